package tasks

import (
	"fmt"
	"time"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchArtists Phase = iota
	FetchTracks
	WriteReport
	SweepSessions
)

func (p Phase) String() string {
	switch p {
	case FetchArtists:
		return "fetch_artists"
	case FetchTracks:
		return "fetch_tracks"
	case WriteReport:
		return "write_report"
	case SweepSessions:
		return "sweep_sessions"
	default:
		return ""
	}
}

func fetchingArtistsUpdate(limit int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchArtists,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching top %d artists from Spotify...", limit),
	}
}

func foundArtistsUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchArtists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d artists", count),
		Data:    count,
	}
}

func trackCompletedUpdate(step, total int, name string, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d tracks)", step, total, name, tracks),
	}
}

func trackFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

func writingReportUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteReport,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing %s...", path),
	}
}

func sweptUpdate(removed int, at time.Time) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SweepSessions,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Removed %d expired sessions", removed),
		Data:    at,
	}
}
