package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/spotlight/internal/models"
	"github.com/desertthunder/spotlight/internal/shared"
	"github.com/desertthunder/spotlight/internal/tasks"
	"github.com/urfave/cli/v3"
)

type sessionRow struct {
	ID        string     `json:"id"`
	Sequence  int        `json:"sequence"`
	User      string     `json:"user"`
	Scope     string     `json:"scope,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Valid     bool       `json:"valid"`
}

func toSessionRow(s *models.Session, now time.Time) sessionRow {
	return sessionRow{
		ID:        s.ID(),
		Sequence:  s.Sequence(),
		User:      s.Label(),
		Scope:     s.Scope(),
		ExpiresAt: s.ExpiresAt(),
		CreatedAt: s.CreatedAt(),
		Valid:     s.Valid(now),
	}
}

// SessionsList lists stored sessions. Tokens are never printed.
func (r *Runner) SessionsList(ctx context.Context, cmd *cli.Command) error {
	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	now := r.now()
	criteria := map[string]any{}
	if !cmd.Bool("all") {
		criteria["active_at"] = now
	}

	sessions, err := store.List(criteria)
	if err != nil {
		return err
	}

	rows := make([]sessionRow, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, toSessionRow(s, now))
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	if len(rows) == 0 {
		return r.writePlain("No sessions. Run 'spotlight login' to create one.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Sessions (%d)", len(rows)))
	for _, row := range rows {
		status := "active"
		if !row.Valid {
			status = "expired"
		}
		expires := "never"
		if row.ExpiresAt != nil {
			expires = row.ExpiresAt.Local().Format(time.DateTime)
		}
		r.writePlain("%d. %s [%s]\n", row.Sequence, row.User, status)
		r.writePlain("   ID: %s\n", row.ID)
		r.writePlain("   Expires: %s\n", expires)
	}
	return nil
}

// SessionsRevoke signs out the session given by id or sequence number.
func (r *Runner) SessionsRevoke(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("id")
	if ref == "" {
		return fmt.Errorf("%w: session id", shared.ErrMissingArgument)
	}

	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	id := ref
	if seq, err := strconv.Atoi(ref); err == nil {
		session, err := store.GetBySequence(seq)
		if err != nil {
			return err
		}
		id = session.ID()
	}

	if err := store.Delete(id); err != nil {
		return err
	}
	r.logger.Info("session revoked", "id", id)
	return r.writePlain("✓ Session %s revoked\n", id)
}

// SessionsPurge permanently removes signed-out and expired sessions.
func (r *Runner) SessionsPurge(ctx context.Context, cmd *cli.Command) error {
	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	sweeper := tasks.NewSweeper(store, 0, r.logger)
	removed, err := sweeper.SweepOnce(nil)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Removed %d sessions\n", removed)
}
