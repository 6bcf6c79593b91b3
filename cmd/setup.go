package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotlight/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	versions, err := shared.AppliedVersions(db)
	if err != nil {
		return fmt.Errorf("failed to read migration versions: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s (%d migrations applied)\n", r.config.Database.Path, len(versions))
	return nil
}

// SetupConfig writes the configuration template, or validates the effective configuration with --check.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("check") {
		if err := r.config.Validate(); err != nil {
			return err
		}
		r.writePlain("✓ Configuration is valid\n")
		r.writePlain("  Listen: http://%s\n", r.config.Server.Addr())
		r.writePlain("  Redirect URI: %s\n", r.config.Credentials.Spotify.RedirectURI)
		r.writePlain("  Database: %s\n", r.config.Database.Path)
		return nil
	}

	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)
	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret (or SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET)\n")
	r.writePlain("2. Set session.secret (or SESSION_SECRET) to a long random string\n")
	r.writePlain("3. Run 'spotlight setup database' then 'spotlight serve'\n")
	return nil
}
