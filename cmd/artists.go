package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotlight/internal/formatter"
	"github.com/desertthunder/spotlight/internal/models"
	"github.com/desertthunder/spotlight/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Artists prints the signed-in user's top artists, optionally resolving top tracks and writing a report.
func (r *Runner) Artists(ctx context.Context, cmd *cli.Command) error {
	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	session, err := r.resolveSession(store, cmd.String("session"))
	if err != nil {
		return err
	}

	spotify, err := r.newSpotify()
	if err != nil {
		return err
	}

	limit := cmd.Int("limit")
	if limit <= 0 {
		limit = r.config.Catalog.TopArtistsLimit
	}

	output := cmd.String("output")
	if !cmd.Bool("tracks") && output == "" {
		r.logger.Debug("fetching top artists", "session", session.Sequence(), "limit", limit)
		artists, err := spotify.FetchTopArtists(ctx, session.AccessToken(), int(limit))
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(artists, cmd.Bool("pretty"))
		}
		r.writePlainHeader(fmt.Sprintf("Top artists for %s", session.Label()))
		return formatter.WriteArtistTable(r.output, artists)
	}

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase)
		}
	}()

	result, err := tasks.BuildReport(ctx, progress, spotify, session.AccessToken(), tasks.ReportOpts{
		Limit:     int(limit),
		RateLimit: r.config.Catalog.RequestsPerSecond,
		Format:    cmd.String("format"),
		Output:    output,
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	if result.Path != "" {
		r.writePlain("✓ Report written to %s\n", result.Path)
		r.writePlain("  Artists: %d (%d without top tracks)\n", len(result.Summaries), result.Failed)
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(result.Summaries, cmd.Bool("pretty"))
	}
	return r.writeSummaries(session.Label(), result.Summaries)
}

func (r *Runner) writeSummaries(user string, summaries []models.ArtistSummary) error {
	r.writePlainHeader(fmt.Sprintf("Top artists for %s", user))
	if len(summaries) == 0 {
		return r.writePlain("No top artists.\n")
	}
	for i, s := range summaries {
		if err := r.writePlain("%d. %s\n", i+1, s.Artist.Name); err != nil {
			return err
		}
		switch track, ok := s.TopTrack(); {
		case s.Error != "":
			r.writePlain("   Top track: unavailable (%s)\n", s.Error)
		case ok:
			r.writePlain("   Top track: %s\n", track.Name)
			if track.ExternalURL != "" {
				r.writePlain("   Link: %s\n", track.ExternalURL)
			}
		default:
			r.writePlain("   Top track: none\n")
		}
	}
	return nil
}
