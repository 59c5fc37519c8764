package httpauth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jonwraymond/taskauth/auth"
	"github.com/jonwraymond/taskauth/observe"
	"github.com/jonwraymond/taskauth/rbac"
	"github.com/jonwraymond/taskauth/session"
)

// SessionCookie is the cookie carrying a session ID for browser clients.
const SessionCookie = "session_id"

// errorBody is the JSON error envelope returned on auth failures.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Middleware authenticates every request through the manager and injects
// the verified user into the request context. Requests without usable
// credentials are rejected before the handler runs.
type Middleware struct {
	manager *session.Manager
	logger  observe.Logger
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(manager *session.Manager, logger observe.Logger) *Middleware {
	if logger == nil {
		logger = observe.NopLogger{}
	}
	return &Middleware{manager: manager, logger: logger}
}

// Wrap returns a handler that authenticates before calling next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential, ok := extractCredential(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_credentials", "no bearer token or session cookie")
			return
		}

		user, err := m.manager.Authenticate(r.Context(), credential)
		if err != nil {
			status, code := classify(err)
			if status >= http.StatusInternalServerError {
				m.logger.Error(r.Context(), "authentication failed",
					observe.F("error", err.Error()),
					observe.F("path", r.URL.Path),
				)
			}
			writeError(w, status, code, "")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
	})
}

// RequireAction gates a handler behind a privileged action. It runs after
// Wrap, so a missing context user means the request slipped past
// authentication and is denied.
func RequireAction(az *rbac.Authorizer, action rbac.Action, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_credentials", "")
			return
		}
		if err := az.Enforce(user, action); err != nil {
			writeError(w, http.StatusForbidden, "forbidden", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractCredential pulls a bearer token from the Authorization header,
// falling back to the session cookie.
func extractCredential(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if token, found := strings.CutPrefix(header, "Bearer "); found && token != "" {
		return token, true
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

// classify maps an authentication error to an HTTP status and a stable
// error code. Anything unrecognized fails closed as a server error.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken), errors.Is(err, session.ErrExpired):
		return http.StatusUnauthorized, "expired"
	case errors.Is(err, session.ErrNotFound):
		return http.StatusUnauthorized, "session_not_found"
	case errors.Is(err, auth.ErrMalformedToken),
		errors.Is(err, auth.ErrNotYetValid),
		errors.Is(err, auth.ErrInvalidIssuer),
		errors.Is(err, auth.ErrInvalidAudience),
		errors.Is(err, auth.ErrUnknownSigningKey),
		errors.Is(err, session.ErrInvalidSession):
		return http.StatusUnauthorized, "invalid_token"
	case errors.Is(err, rbac.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, auth.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "upstream_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="taskauth"`)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code, Message: message})
}
