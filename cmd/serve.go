package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/desertthunder/spotlight/internal/server"
	"github.com/desertthunder/spotlight/internal/services"
	"github.com/desertthunder/spotlight/internal/shared"
	"github.com/desertthunder/spotlight/internal/tasks"
	"github.com/desertthunder/spotlight/internal/web"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// profileLookup adapts [services.SpotifyService.UserProfile] for the sign-in callback.
func profileLookup(svc *services.SpotifyService) server.ProfileFunc {
	return func(ctx context.Context, credential string) (string, string, error) {
		user, err := svc.UserProfile(ctx, credential)
		if err != nil {
			return "", "", err
		}
		return user.ID, user.DisplayName, nil
	}
}

// Serve runs the web player until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		r.config.Server.Port = int(port)
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	spotify, err := r.newSpotify()
	if err != nil {
		return err
	}

	secure := cmd.Bool("secure-cookies") || strings.HasPrefix(r.config.Credentials.Spotify.RedirectURI, "https://")
	sessions := server.NewSessionManager(store, r.config.Session.Secret, server.SessionOptions{
		CookieName: r.config.Session.CookieName,
		MaxAge:     r.config.Session.MaxAgeDuration(),
		Secure:     secure,
		Logger:     shared.WithLogger(r.logger, "component", "sessions"),
	})

	var app *web.App
	auth := server.NewAuthHandler(spotify, sessions,
		server.WithProfile(profileLookup(spotify)),
		server.WithSignOutHook(func(sessionID string) { app.EndSession(sessionID) }),
		server.WithAuthLogger(shared.WithLogger(r.logger, "component", "auth")),
	)

	app, err = web.New(web.Options{
		Artists:         spotify,
		Tracks:          spotify,
		Commands:        spotify,
		Sessions:        sessions,
		Auth:            auth,
		Logger:          shared.WithLogger(r.logger, "component", "web"),
		TopArtistsLimit: r.config.Catalog.TopArtistsLimit,
		DeviceName:      r.config.Playback.DeviceName,
		Volume:          r.config.Playback.Volume,
		ConnectTimeout:  r.config.Playback.ConnectTimeoutDuration(),
	})
	if err != nil {
		return fmt.Errorf("failed to build web app: %w", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := tasks.NewSweeper(store, r.config.Session.SweepIntervalDuration(), shared.WithLogger(r.logger, "component", "sweeper"))
	go sweeper.Run(ctx, nil)

	addr := r.config.Server.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("web player listening", "addr", "http://"+addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	if cmd.Bool("open") {
		if err := shared.OpenBrowser("http://" + addr); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	select {
	case err, ok := <-serverErrors:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	return nil
}
