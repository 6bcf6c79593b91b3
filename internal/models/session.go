package models

import (
	"errors"
	"time"
)

// Session is a signed-in browser session. The access token is an opaque bearer credential
// issued by the identity provider; it is never inspected, only forwarded.
type Session struct {
	id           string
	sequence     int
	accessToken  string
	refreshToken string
	tokenType    string
	scope        string
	userID       string
	displayName  string
	expiresAt    *time.Time
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewSession creates a session for the given credential. A zero expiresAt means the
// provider did not report an expiry.
func NewSession(sequence int, accessToken, refreshToken string, expiresAt time.Time) *Session {
	now := time.Now()
	s := &Session{
		sequence:     sequence,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		tokenType:    "Bearer",
		createdAt:    now,
		updatedAt:    now,
	}
	if !expiresAt.IsZero() {
		s.expiresAt = &expiresAt
	}
	return s
}

func (s *Session) ID() string            { return s.id }
func (s *Session) Sequence() int         { return s.sequence }
func (s *Session) AccessToken() string   { return s.accessToken }
func (s *Session) RefreshToken() string  { return s.refreshToken }
func (s *Session) TokenType() string     { return s.tokenType }
func (s *Session) Scope() string         { return s.scope }
func (s *Session) UserID() string        { return s.userID }
func (s *Session) DisplayName() string   { return s.displayName }
func (s *Session) ExpiresAt() *time.Time { return s.expiresAt }
func (s *Session) CreatedAt() time.Time  { return s.createdAt }
func (s *Session) UpdatedAt() time.Time  { return s.updatedAt }
func (s *Session) DeletedAt() *time.Time { return s.deletedAt }

func (s *Session) SetID(id string)                { s.id = id }
func (s *Session) SetSequence(seq int)            { s.sequence = seq }
func (s *Session) SetAccessToken(token string)    { s.accessToken = token }
func (s *Session) SetRefreshToken(token string)   { s.refreshToken = token }
func (s *Session) SetTokenType(t string)          { s.tokenType = t }
func (s *Session) SetScope(scope string)          { s.scope = scope }
func (s *Session) SetExpiresAt(t *time.Time)      { s.expiresAt = t }
func (s *Session) SetCreatedAt(t time.Time)       { s.createdAt = t }
func (s *Session) SetUpdatedAt(t time.Time)       { s.updatedAt = t }
func (s *Session) SetDeletedAt(t *time.Time)      { s.deletedAt = t }
func (s *Session) SetProfile(userID, name string) { s.userID, s.displayName = userID, name }

// Valid reports whether the session can be used at now: it is not deleted and either has
// no expiry or expires after now.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.deletedAt != nil || s.accessToken == "" {
		return false
	}
	return s.expiresAt == nil || s.expiresAt.After(now)
}

// Label returns the display name when known, otherwise the user id, otherwise the session id.
func (s *Session) Label() string {
	switch {
	case s.displayName != "":
		return s.displayName
	case s.userID != "":
		return s.userID
	default:
		return s.id
	}
}

func (s *Session) Validate() error {
	if s.id == "" {
		return errors.New("session id is required")
	}
	if s.accessToken == "" {
		return errors.New("access token is required")
	}
	return nil
}
