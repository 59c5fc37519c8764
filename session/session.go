package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/jonwraymond/taskauth/auth"
)

// Session is the server-side record behind an opaque session id. Tokens live
// only here; they are never handed to the browser.
type Session struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	Username     string      `json:"username,omitempty"`
	Roles        []auth.Role `json:"roles"`
	Department   string      `json:"department,omitempty"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	IssuedAt     time.Time   `json:"issued_at"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

// NewSessionID returns an opaque 256-bit random identifier.
func NewSessionID() (string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// Validate checks the record invariants. A session with an empty role set or
// a non-positive validity window is invalid and must never be stored.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSession)
	}
	if s.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidSession)
	}
	if len(s.Roles) == 0 {
		return fmt.Errorf("%w: empty role set", ErrInvalidSession)
	}
	if !s.ExpiresAt.After(s.IssuedAt) {
		return fmt.Errorf("%w: expires_at not after issued_at", ErrInvalidSession)
	}
	return nil
}

// User returns the read-only projection downstream handlers consume.
func (s *Session) User() *auth.AuthenticatedUser {
	roles := make([]auth.Role, len(s.Roles))
	copy(roles, s.Roles)
	return &auth.AuthenticatedUser{
		UserID:     s.UserID,
		Username:   s.Username,
		Roles:      roles,
		Department: s.Department,
	}
}

// ExpiresWithin reports whether the access token expires within d of now.
func (s *Session) ExpiresWithin(d time.Duration) bool {
	return !time.Now().Add(d).Before(s.ExpiresAt)
}
