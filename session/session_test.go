package session

import (
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/taskauth/auth"
)

func validSession() *Session {
	now := time.Now()
	return &Session{
		ID:           "sess-1",
		UserID:       "u-1",
		Username:     "alice",
		Roles:        []auth.Role{auth.RoleUser},
		Department:   "engineering",
		AccessToken:  "at",
		RefreshToken: "rt",
		IssuedAt:     now,
		ExpiresAt:    now.Add(5 * time.Minute),
	}
}

func TestNewSessionID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewSessionID()
		if err != nil {
			t.Fatalf("NewSessionID() error = %v", err)
		}
		// 32 random bytes base64url-encode to 43 characters.
		if len(id) != 43 {
			t.Fatalf("len(id) = %d, want 43", len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}

func TestSession_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		if err := validSession().Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Session)
	}{
		{"missing id", func(s *Session) { s.ID = "" }},
		{"missing user id", func(s *Session) { s.UserID = "" }},
		{"empty role set", func(s *Session) { s.Roles = nil }},
		{"inverted validity window", func(s *Session) { s.ExpiresAt = s.IssuedAt.Add(-time.Minute) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := validSession()
			tt.mutate(sess)
			if err := sess.Validate(); !errors.Is(err, ErrInvalidSession) {
				t.Errorf("Validate() error = %v, want ErrInvalidSession", err)
			}
		})
	}
}

func TestSession_User(t *testing.T) {
	sess := validSession()
	user := sess.User()

	if user.UserID != "u-1" || user.Username != "alice" || user.Department != "engineering" {
		t.Errorf("User() = %+v, want projection of session", user)
	}

	// Mutating the projection must not reach the session record.
	user.Roles[0] = auth.RoleAdmin
	if sess.Roles[0] != auth.RoleUser {
		t.Error("User() roles should be a copy")
	}
}

func TestSession_ExpiresWithin(t *testing.T) {
	sess := validSession()
	sess.ExpiresAt = time.Now().Add(30 * time.Second)

	if !sess.ExpiresWithin(time.Minute) {
		t.Error("ExpiresWithin(1m) = false for a session expiring in 30s")
	}
	if sess.ExpiresWithin(time.Second) {
		t.Error("ExpiresWithin(1s) = true for a session expiring in 30s")
	}
}
