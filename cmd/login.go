package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/spotlight/internal/models"
	"github.com/desertthunder/spotlight/internal/server"
	"github.com/desertthunder/spotlight/internal/services"
	"github.com/desertthunder/spotlight/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const defaultLoginTimeout = 2 * time.Minute

// Login performs the OAuth2 authorization flow from the terminal and stores the resulting session.
//
// Starts a local HTTP server on the redirect address, opens the browser for user authorization, and exchanges the code for tokens.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	sp := r.config.Credentials.Spotify
	if sp.ClientID == "" || sp.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set", shared.ErrMissingCredentials)
	}

	spotify, err := r.newSpotify()
	if err != nil {
		return err
	}

	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	token, err := r.doOAuth(ctx, spotify, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	session := models.NewSession(0, token.AccessToken, token.RefreshToken, token.Expiry)
	session.SetTokenType(token.TokenType)
	if scope, ok := token.Extra("scope").(string); ok {
		session.SetScope(scope)
	}
	if user, err := spotify.UserProfile(ctx, token.AccessToken); err != nil {
		r.logger.Warn("failed to fetch profile", "error", err)
	} else {
		session.SetProfile(user.ID, user.DisplayName)
	}

	if err := store.Create(session); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	r.writePlainln("✓ Signed in as %s", session.Label())
	r.writePlain("✓ Session %d saved to %s\n\n", session.Sequence(), r.config.Database.Path)
	r.writePlain("You can now use: spotlight artists\n")
	return nil
}

// callbackAddr returns the host:port the redirect URI points at.
func callbackAddr(redirectURI string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("%w: redirect_uri: %v", shared.ErrInvalidConfig, err)
	}
	if u.Path != server.CallbackPath {
		return "", fmt.Errorf("%w: redirect_uri path must be %s", shared.ErrInvalidConfig, server.CallbackPath)
	}

	host, port := u.Hostname(), u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(host, port), nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, spotify *services.SpotifyService, timeout time.Duration) (*oauth2.Token, error) {
	if timeout <= 0 {
		timeout = defaultLoginTimeout
	}

	addr, err := callbackAddr(spotify.OAuthConfig().RedirectURL)
	if err != nil {
		return nil, err
	}

	state, err := shared.RandomToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := spotify.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(spotify, state)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger))
	router.Handler(oauthHandler)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", addr)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}
