package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotlight/internal/shared"
	"github.com/desertthunder/spotlight/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal view of the user's top artists.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	session, err := r.resolveSession(store, cmd.String("session"))
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	spotify, err := r.newSpotify()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, spotify, session.AccessToken(), ui.Options{
		Limit:     r.config.Catalog.TopArtistsLimit,
		RateLimit: r.config.Catalog.RequestsPerSecond,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
