package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/spotlight/internal/shared"
	"github.com/urfave/cli/v3"
)

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "spotlight",
		Usage:    "Play your Spotify top artists from the browser",
		Version:  "0.1.0",
		Flags:    r.flags(),
		Before:   r.configure,
		Commands: r.register(),
	}
}

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
