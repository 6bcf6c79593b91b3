package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotlight/internal/models"
	"github.com/desertthunder/spotlight/internal/repositories"
	"github.com/desertthunder/spotlight/internal/services"
	"github.com/desertthunder/spotlight/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	getenv     func(string) string
	now        func() time.Time
	extra      []services.Option
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Getenv     func(string) string
	// SpotifyOptions are appended to the options derived from the config.
	SpotifyOptions []services.Option
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		getenv:     opts.Getenv,
		now:        time.Now,
		extra:      opts.SpotifyOptions,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, loginCommand, sessionsCommand, artistsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// configure loads the .env file, the TOML config and environment overrides before any command runs.
//
// A missing config file is not an error: the embedded defaults apply.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if err := shared.LoadEnvFile(cmd.String("env")); err != nil {
		r.logger.Warn("failed to load env file", "error", err)
	}

	r.configPath = cmd.String("config")
	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	r.config.ApplyEnv(r.getenv)
	return ctx, nil
}

// openStore opens the configured database, running pending migrations.
func (r *Runner) openStore() (*sql.DB, *repositories.SessionRepository, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, repositories.NewSessionRepository(db), nil
}

// newSpotify builds the catalog client from the loaded configuration.
func (r *Runner) newSpotify() (*services.SpotifyService, error) {
	sp := r.config.Credentials.Spotify
	opts := []services.Option{
		services.WithMarket(r.config.Catalog.Market),
		services.WithRateLimit(r.config.Catalog.RequestsPerSecond),
		services.WithLogger(shared.WithLogger(r.logger, "service", "spotify")),
	}
	if len(sp.Scopes) > 0 {
		opts = append(opts, services.WithScopes(sp.Scopes))
	}
	opts = append(opts, r.extra...)

	svc, err := services.NewSpotifyService(sp.Map(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}
	return svc, nil
}

// resolveSession finds a usable stored session. ref may be a session id or sequence
// number; when empty the most recently created valid session is used.
func (r *Runner) resolveSession(store *repositories.SessionRepository, ref string) (*models.Session, error) {
	now := r.now()

	if ref != "" {
		if seq, err := strconv.Atoi(ref); err == nil {
			session, err := store.GetBySequence(seq)
			if err != nil {
				return nil, err
			}
			if !session.Valid(now) {
				return nil, fmt.Errorf("%w: %s", shared.ErrSessionExpired, ref)
			}
			return session, nil
		}
		return store.Lookup(ref, now)
	}

	sessions, err := store.List(map[string]any{"active_at": now})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("%w: no valid session, run 'spotlight login' first", shared.ErrNotAuthenticated)
	}
	return sessions[len(sessions)-1], nil
}

func (r *Runner) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "env",
			Usage: "Path to dotenv file",
			Value: ".env",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
