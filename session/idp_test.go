package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/taskauth/auth"
)

func newProviderClient(tokenURL, revokeURL string) *ProviderClient {
	return NewProviderClient(ProviderConfig{
		TokenEndpoint:      tokenURL,
		RevocationEndpoint: revokeURL,
		ClientID:           "task-service",
		ClientSecret:       "s3cret",
		RetryDelay:         time.Millisecond,
	})
}

func TestProviderClient_Exchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q, want authorization_code", got)
		}
		if got := r.PostForm.Get("client_id"); got != "task-service" {
			t.Errorf("client_id = %q, want task-service", got)
		}
		if got := r.PostForm.Get("client_secret"); got != "s3cret" {
			t.Errorf("client_secret = %q, want s3cret", got)
		}
		if got := r.PostForm.Get("code"); got != "good-code" {
			t.Errorf("code = %q, want good-code", got)
		}

		_ = json.NewEncoder(w).Encode(TokenSet{
			AccessToken:  "at",
			RefreshToken: "rt",
			ExpiresIn:    300,
		})
	}))
	defer server.Close()

	client := newProviderClient(server.URL, "")
	tokens, err := client.Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if tokens.AccessToken != "at" || tokens.RefreshToken != "rt" || tokens.ExpiresIn != 300 {
		t.Errorf("Exchange() = %+v", tokens)
	}
}

func TestProviderClient_ExchangeInvalidGrant(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Code not valid",
		})
	}))
	defer server.Close()

	client := newProviderClient(server.URL, "")
	_, err := client.Exchange(context.Background(), "bad-code")
	if !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("Exchange() error = %v, want ErrInvalidGrant", err)
	}

	// A rejected grant must not be retried.
	if got := calls.Load(); got != 1 {
		t.Errorf("Server called %d times, want 1", got)
	}
}

func TestProviderClient_RetriesUpstreamFailure(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(TokenSet{AccessToken: "at", ExpiresIn: 300})
	}))
	defer server.Close()

	client := newProviderClient(server.URL, "")
	tokens, err := client.Refresh(context.Background(), "rt")
	if err != nil {
		t.Fatalf("Refresh() error = %v (should succeed on retry)", err)
	}
	if tokens.AccessToken != "at" {
		t.Errorf("AccessToken = %q, want %q", tokens.AccessToken, "at")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("Server called %d times, want 2", got)
	}
}

func TestProviderClient_UpstreamUnavailable(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newProviderClient(server.URL, "")
	_, err := client.Refresh(context.Background(), "rt")
	if !errors.Is(err, auth.ErrUpstreamUnavailable) {
		t.Fatalf("Refresh() error = %v, want ErrUpstreamUnavailable", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("Server called %d times, want 2 (one retry)", got)
	}
}

func TestProviderClient_Revoke(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var gotToken string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			gotToken = r.PostForm.Get("token")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newProviderClient("http://unused.invalid", server.URL)
		if err := client.Revoke(context.Background(), "rt"); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}
		if gotToken != "rt" {
			t.Errorf("token = %q, want %q", gotToken, "rt")
		}
	})

	t.Run("no endpoint configured", func(t *testing.T) {
		client := newProviderClient("http://unused.invalid", "")
		if err := client.Revoke(context.Background(), "rt"); err != nil {
			t.Errorf("Revoke() error = %v, want nil", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newProviderClient("http://unused.invalid", server.URL)
		err := client.Revoke(context.Background(), "rt")
		if !errors.Is(err, auth.ErrUpstreamUnavailable) {
			t.Errorf("Revoke() error = %v, want ErrUpstreamUnavailable", err)
		}
	})
}
