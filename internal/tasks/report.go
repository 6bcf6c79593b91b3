package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/spotlight/internal/formatter"
	"github.com/desertthunder/spotlight/internal/models"
	"github.com/desertthunder/spotlight/internal/shared"
	"golang.org/x/time/rate"
)

// Catalog is the explicit-error catalog surface used by reports.
type Catalog interface {
	FetchTopArtists(ctx context.Context, credential string, limit int) ([]models.Artist, error)
	FetchTopTracks(ctx context.Context, artistID, credential string) ([]models.TrackRef, error)
}

// ReportOpts contains configuration for an artist report.
type ReportOpts struct {
	Limit      int     // Number of top artists (default: 10)
	NumWorkers int     // Concurrent top-track fetches (default: 4, max 10)
	RateLimit  float64 // Requests per second (default: 5)
	Format     string  // Output format: json, csv, markdown, txt
	Output     string  // File to write; empty skips writing
}

// ReportResult holds the summaries in top-artist order.
type ReportResult struct {
	Summaries []models.ArtistSummary
	Resolved  int
	Failed    int
	Path      string
}

type trackJob struct {
	index  int
	artist models.Artist
}

type trackResult struct {
	index  int
	tracks []models.TrackRef
	err    error
}

// BuildReport fetches the user's top artists and resolves each artist's top tracks
// with a rate-limited worker pool.
//
// A failed artist fetch aborts the report; failed track fetches are recorded on the
// summary and counted in Failed.
func BuildReport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	catalog Catalog,
	credential string,
	opts ReportOpts,
) (*ReportResult, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if credential == "" {
		return nil, shared.ErrNotAuthenticated
	}

	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	sendProgress(prog, fetchingArtistsUpdate(opts.Limit))
	artists, err := catalog.FetchTopArtists(ctx, credential, opts.Limit)
	if err != nil {
		return nil, err
	}
	sendProgress(prog, foundArtistsUpdate(len(artists)))

	result := &ReportResult{Summaries: make([]models.ArtistSummary, len(artists))}
	for i, a := range artists {
		result.Summaries[i] = models.ArtistSummary{Artist: a}
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan trackJob, len(artists))
	results := make(chan trackResult, len(artists))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go trackWorker(ctx, &wg, limiter, catalog, credential, jobs, results)
	}

	for i, a := range artists {
		jobs <- trackJob{index: i, artist: a}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		summary := &result.Summaries[res.index]
		if res.err != nil {
			result.Failed++
			summary.Error = res.err.Error()
			sendProgress(prog, trackFailedUpdate(completed, len(artists), summary.Artist.Name, res.err))
			continue
		}
		result.Resolved++
		summary.TopTracks = res.tracks
		sendProgress(prog, trackCompletedUpdate(completed, len(artists), summary.Artist.Name, len(res.tracks)))
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	if opts.Output != "" {
		sendProgress(prog, writingReportUpdate(opts.Output))
		if err := formatter.WriteArtistReport(result.Summaries, opts.Format, opts.Output); err != nil {
			return result, fmt.Errorf("report built but failed to write it: %w", err)
		}
		result.Path = opts.Output
	}
	return result, nil
}

func trackWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	catalog Catalog,
	credential string,
	jobs <-chan trackJob,
	results chan<- trackResult,
) {
	defer wg.Done()

	for job := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			results <- trackResult{index: job.index, err: err}
			continue
		}
		tracks, err := catalog.FetchTopTracks(ctx, job.artist.ID, credential)
		results <- trackResult{index: job.index, tracks: tracks, err: err}
	}
}
