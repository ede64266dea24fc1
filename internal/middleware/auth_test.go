// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"daftar/internal/session"
)

func newTestSession(role string) *session.Data {
	return &session.Data{
		UserID:      uuid.New(),
		Email:       "test@daftar.local",
		DisplayName: "Test User",
		Role:        role,
	}
}

// ctxWithSession simulates the state after LoadSession has run.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, SessionKey, data)
}

// okHandler is a simple handler that records whether it was invoked.
func okHandler() (http.Handler, *bool) {
	var called bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	return h, &called
}

type stubSessions struct {
	data *session.Data
	err  error
}

func (s stubSessions) Get(context.Context, *http.Request) (*session.Data, error) {
	return s.data, s.err
}

func TestSessionFromCtx(t *testing.T) {
	sess := newTestSession("admin")
	if got := SessionFromCtx(ctxWithSession(context.Background(), sess)); got != sess {
		t.Errorf("got %+v, want the stored session", got)
	}
	if got := SessionFromCtx(context.Background()); got != nil {
		t.Errorf("expected nil session, got %+v", got)
	}
	ctx := context.WithValue(context.Background(), SessionKey, "not-a-session")
	if got := SessionFromCtx(ctx); got != nil {
		t.Errorf("expected nil for wrong type, got %+v", got)
	}
}

func TestLoadSession(t *testing.T) {
	tests := []struct {
		name    string
		store   stubSessions
		wantNil bool
	}{
		{name: "session present", store: stubSessions{data: newTestSession("editor")}},
		{name: "no session", store: stubSessions{}, wantNil: true},
		{name: "store error", store: stubSessions{err: errors.New("valkey down")}, wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *session.Data
			called := false
			h := LoadSession(tt.store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				got = SessionFromCtx(r.Context())
			}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			if !called {
				t.Fatal("next handler not called")
			}
			if (got == nil) != tt.wantNil {
				t.Errorf("session = %+v, wantNil %v", got, tt.wantNil)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	t.Run("rejects anonymous with JSON 401", func(t *testing.T) {
		next, called := okHandler()
		rr := httptest.NewRecorder()
		RequireAuth(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/api/pages/tree", nil))

		if *called {
			t.Error("next handler should not be called")
		}
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d, want 401", rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("Content-Type: got %q", ct)
		}
		if !strings.Contains(rr.Body.String(), `"error"`) {
			t.Errorf("body: got %q", rr.Body.String())
		}
	})

	t.Run("passes authenticated", func(t *testing.T) {
		next, called := okHandler()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(ctxWithSession(req.Context(), newTestSession("editor")))
		rr := httptest.NewRecorder()
		RequireAuth(next).ServeHTTP(rr, req)

		if !*called || rr.Code != http.StatusOK {
			t.Errorf("called=%v status=%d", *called, rr.Code)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name   string
		sess   *session.Data
		status int
	}{
		{name: "admin", sess: newTestSession("admin"), status: http.StatusOK},
		{name: "editor", sess: newTestSession("editor"), status: http.StatusForbidden},
		{name: "anonymous", sess: nil, status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, _ := okHandler()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.sess != nil {
				req = req.WithContext(ctxWithSession(req.Context(), tt.sess))
			}
			rr := httptest.NewRecorder()
			RequireAdmin(next).ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Errorf("status: got %d, want %d", rr.Code, tt.status)
			}
		})
	}
}
