package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotlight/internal/models"
	"github.com/desertthunder/spotlight/internal/shared"
)

const sessionColumns = `id, sequence, access_token, refresh_token, token_type, scope, user_id, display_name,
	expires_at, created_at, updated_at, deleted_at`

var _ models.Repository[*models.Session] = (*SessionRepository)(nil)

// SessionRepository implements [models.Repository] for [models.Session] persistence.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		id           string
		sequence     int
		accessToken  string
		refreshToken string
		tokenType    string
		scope        string
		userID       string
		displayName  string
		expiresAt    sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(&id, &sequence, &accessToken, &refreshToken, &tokenType, &scope, &userID, &displayName,
		&expiresAt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	session := models.NewSession(sequence, accessToken, refreshToken, time.Time{})
	session.SetID(id)
	session.SetTokenType(tokenType)
	session.SetScope(scope)
	session.SetProfile(userID, displayName)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	if expiresAt.Valid {
		session.SetExpiresAt(&expiresAt.Time)
	}
	if deletedAt.Valid {
		session.SetDeletedAt(&deletedAt.Time)
	}
	return session, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Create inserts a new session into the database with generated ID and sequence
func (r *SessionRepository) Create(session *models.Session) error {
	sequence, err := NextSequence(r.db, "sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	session.SetID(shared.GenerateID())
	session.SetSequence(sequence)

	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sessions (id, sequence, access_token, refresh_token, token_type, scope, user_id, display_name,
			expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, session.ID(), sequence, session.AccessToken(), session.RefreshToken(),
		session.TokenType(), session.Scope(), session.UserID(), session.DisplayName(),
		nullTime(session.ExpiresAt()), session.CreatedAt().UTC(), session.UpdatedAt().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID, excluding soft-deleted sessions
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? AND deleted_at IS NULL`

	session, err := scanSession(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return session, nil
}

// GetBySequence retrieves a session by its sequence number, excluding soft-deleted sessions
func (r *SessionRepository) GetBySequence(sequence int) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE sequence = ? AND deleted_at IS NULL`

	session, err := scanSession(r.db.QueryRow(query, sequence))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: #%d", shared.ErrSessionNotFound, sequence)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return session, nil
}

// Lookup returns the session only if it is usable at now.
//
// Expired sessions are reported with [shared.ErrSessionExpired] and are otherwise treated as absent.
func (r *SessionRepository) Lookup(id string, now time.Time) (*models.Session, error) {
	session, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if !session.Valid(now) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionExpired, id)
	}
	return session, nil
}

// Update modifies an existing session in the database
func (r *SessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	session.SetUpdatedAt(now)

	query := `
		UPDATE sessions
		SET access_token = ?, refresh_token = ?, token_type = ?, scope = ?, user_id = ?, display_name = ?,
			expires_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, session.AccessToken(), session.RefreshToken(), session.TokenType(),
		session.Scope(), session.UserID(), session.DisplayName(), nullTime(session.ExpiresAt()), now.UTC(),
		session.ID())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, session.ID())
	}

	return nil
}

// Delete soft-deletes a session by ID
func (r *SessionRepository) Delete(id string) error {
	query := `
		UPDATE sessions
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}

	return nil
}

// List retrieves all sessions matching the given criteria, excluding soft-deleted sessions.
//
// Supported criteria: "user_id" (string) and "active_at" ([time.Time]), the latter dropping
// sessions that are no longer valid at that instant.
func (r *SessionRepository) List(criteria map[string]any) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	activeAt, filterActive := criteria["active_at"].(time.Time)

	sessions := []*models.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if filterActive && !session.Valid(activeAt) {
			continue
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

// DeleteExpired permanently removes sessions that were signed out or expired before now.
// Returns the number of rows removed.
func (r *SessionRepository) DeleteExpired(now time.Time) (int, error) {
	rows, err := r.db.Query(`SELECT ` + sessionColumns + ` FROM sessions`)
	if err != nil {
		return 0, fmt.Errorf("failed to query sessions: %w", err)
	}

	var stale []string
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan session: %w", err)
		}
		if !session.Valid(now) {
			stale = append(stale, session.ID())
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range stale {
		if _, err := tx.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
			return 0, fmt.Errorf("failed to purge session %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit purge: %w", err)
	}

	return len(stale), nil
}
