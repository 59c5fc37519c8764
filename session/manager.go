package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/taskauth/auth"
	"github.com/jonwraymond/taskauth/observe"
)

// ManagerConfig configures session lifecycle behavior.
type ManagerConfig struct {
	// SessionTTL bounds how long a server-side session record lives,
	// independent of access-token lifetime.
	// Default: 8h
	SessionTTL time.Duration

	// RefreshLeeway is how far before access-token expiry a session is
	// refreshed proactively.
	// Default: 60s
	RefreshLeeway time.Duration

	// RefreshTimeout bounds a refresh exchange, including the retry. The
	// timeout applies even after the initiating request is gone.
	// Default: 15s
	RefreshTimeout time.Duration

	// Logger receives lifecycle events. Default: NopLogger.
	Logger observe.Logger
}

// Manager owns session lifecycle: login, lookup with proactive refresh,
// and logout. It verifies every access token it stores or returns.
type Manager struct {
	config    ManagerConfig
	store     Store
	validator *auth.TokenValidator
	provider  *ProviderClient

	// refreshGroup coalesces concurrent refreshes of the same session so a
	// burst of requests costs one provider exchange.
	refreshGroup singleflight.Group

	tracer    trace.Tracer
	logins    metric.Int64Counter
	refreshes metric.Int64Counter
}

// NewManager creates a session manager.
func NewManager(config ManagerConfig, store Store, validator *auth.TokenValidator, provider *ProviderClient) *Manager {
	// Apply defaults
	if config.SessionTTL == 0 {
		config.SessionTTL = 8 * time.Hour
	}
	if config.RefreshLeeway == 0 {
		config.RefreshLeeway = 60 * time.Second
	}
	if config.RefreshTimeout == 0 {
		config.RefreshTimeout = 15 * time.Second
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger{}
	}

	meter := otel.Meter("github.com/jonwraymond/taskauth/session")
	logins, _ := meter.Int64Counter("session.logins",
		metric.WithDescription("Login attempts by result"))
	refreshes, _ := meter.Int64Counter("session.refreshes",
		metric.WithDescription("Session refresh attempts by result"))

	return &Manager{
		config:    config,
		store:     store,
		validator: validator,
		provider:  provider,
		tracer:    otel.Tracer("github.com/jonwraymond/taskauth/session"),
		logins:    logins,
		refreshes: refreshes,
	}
}

// Login exchanges an authorization code for tokens and creates a session.
// The returned session ID is the client's credential from here on.
func (m *Manager) Login(ctx context.Context, code string) (*Session, error) {
	ctx, span := m.tracer.Start(ctx, "session.login")
	defer span.End()

	tokens, err := m.provider.Exchange(ctx, code)
	if err != nil {
		m.countLogin(ctx, "exchange_failed")
		return nil, err
	}

	id, err := NewSessionID()
	if err != nil {
		m.countLogin(ctx, "id_failed")
		return nil, err
	}

	sess, err := m.buildSession(ctx, id, tokens)
	if err != nil {
		m.countLogin(ctx, "invalid_token")
		return nil, err
	}

	if err := m.store.Set(ctx, sess.ID, sess, m.config.SessionTTL); err != nil {
		m.countLogin(ctx, "store_failed")
		return nil, fmt.Errorf("store session: %w", err)
	}

	m.countLogin(ctx, "ok")
	m.config.Logger.Info(ctx, "session created",
		observe.F("user_id", sess.UserID),
		observe.F("expires_at", sess.ExpiresAt),
	)
	return sess, nil
}

// Authenticate resolves a presented credential to a verified user. A raw
// bearer token is verified directly; a session ID is resolved through the
// store, refreshing the session first when it is close to expiry.
func (m *Manager) Authenticate(ctx context.Context, credential string) (*auth.AuthenticatedUser, error) {
	ctx, span := m.tracer.Start(ctx, "session.authenticate")
	defer span.End()

	// A compact JWT has exactly two dots. Session IDs never do.
	if strings.Count(credential, ".") == 2 {
		return m.validator.Verify(ctx, credential)
	}
	return m.authenticateSession(ctx, credential)
}

func (m *Manager) authenticateSession(ctx context.Context, sessionID string) (*auth.AuthenticatedUser, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.ExpiresWithin(m.config.RefreshLeeway) {
		refreshed, err := m.Refresh(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		sess = refreshed
	}

	return sess.User(), nil
}

// Refresh exchanges the session's refresh token for new tokens and rewrites
// the session record in place. Concurrent calls for the same session ID
// share one provider exchange. A rejected refresh token ends the session.
func (m *Manager) Refresh(ctx context.Context, sessionID string) (*Session, error) {
	ctx, span := m.tracer.Start(ctx, "session.refresh")
	defer span.End()

	v, err, _ := m.refreshGroup.Do(sessionID, func() (interface{}, error) {
		// The refresh must finish even if the request that triggered it is
		// abandoned; other callers are waiting on this flight.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.RefreshTimeout)
		defer cancel()
		return m.refresh(fctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *Manager) refresh(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	tokens, err := m.provider.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) {
			// The provider ended this grant. The session cannot recover.
			if delErr := m.store.Delete(ctx, sessionID); delErr != nil {
				m.config.Logger.Warn(ctx, "failed to delete rejected session",
					observe.F("error", delErr.Error()))
			}
			m.countRefresh(ctx, "rejected")
			m.config.Logger.Info(ctx, "session ended by provider",
				observe.F("user_id", sess.UserID))
			return nil, fmt.Errorf("%w: refresh rejected", ErrExpired)
		}
		m.countRefresh(ctx, "upstream_failed")
		return nil, err
	}

	// Some providers rotate the refresh token, some return it only once.
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = sess.RefreshToken
	}

	updated, err := m.buildSession(ctx, sessionID, tokens)
	if err != nil {
		m.countRefresh(ctx, "invalid_token")
		return nil, err
	}

	if err := m.store.Set(ctx, sessionID, updated, m.config.SessionTTL); err != nil {
		m.countRefresh(ctx, "store_failed")
		return nil, fmt.Errorf("store refreshed session: %w", err)
	}

	m.countRefresh(ctx, "ok")
	m.config.Logger.Debug(ctx, "session refreshed",
		observe.F("user_id", updated.UserID),
		observe.F("expires_at", updated.ExpiresAt),
	)
	return updated, nil
}

// Logout revokes the refresh token upstream and deletes the session. The
// local deletion always happens; revocation failure is logged and ignored.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	ctx, span := m.tracer.Start(ctx, "session.logout")
	defer span.End()

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) {
			return nil
		}
		return err
	}

	if err := m.provider.Revoke(ctx, sess.RefreshToken); err != nil {
		m.config.Logger.Warn(ctx, "refresh token revocation failed",
			observe.F("user_id", sess.UserID),
			observe.F("error", err.Error()),
		)
	}

	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	m.config.Logger.Info(ctx, "session ended", observe.F("user_id", sess.UserID))
	return nil
}

// buildSession verifies the access token and projects its claims into a
// session record. Claims are never copied forward from an old session.
func (m *Manager) buildSession(ctx context.Context, id string, tokens *TokenSet) (*Session, error) {
	user, err := m.validator.Verify(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("verify access token: %w", err)
	}

	now := time.Now()
	sess := &Session{
		ID:           id,
		UserID:       user.UserID,
		Username:     user.Username,
		Roles:        user.Roles,
		Department:   user.Department,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		IssuedAt:     now,
		ExpiresAt:    now.Add(time.Duration(tokens.ExpiresIn) * time.Second),
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *Manager) countLogin(ctx context.Context, result string) {
	if m.logins != nil {
		m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}

func (m *Manager) countRefresh(ctx context.Context, result string) {
	if m.refreshes != nil {
		m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}
