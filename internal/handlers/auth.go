// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"daftar/internal/middleware"
	"daftar/internal/models"
	"daftar/internal/session"
	"daftar/internal/store"
)

// Redeemer signs a user in with an invitation code.
type Redeemer interface {
	Redeem(ctx context.Context, email, code string, now time.Time) (*models.User, error)
}

// SessionManager creates and destroys admin sessions.
type SessionManager interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Update(ctx context.Context, r *http.Request, data *session.Data) error
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// Auth groups the sign-in handlers.
type Auth struct {
	sessions    SessionManager
	invitations Redeemer
	locales     []string
	now         func() time.Time
}

// NewAuth creates the Auth handler group. locales lists the content
// locales, default first; new sessions start on the default.
func NewAuth(sessions SessionManager, invitations Redeemer, locales []string) *Auth {
	return &Auth{
		sessions:    sessions,
		invitations: invitations,
		locales:     locales,
		now:         time.Now,
	}
}

type loginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Login redeems an invitation code and starts a session. A user whose
// invitation was already redeemed signs in again with the same code.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	errs := fieldErrors{}
	if msg := validateEmail(in.Email); msg != "" {
		errs["email"] = msg
	}
	if strings.TrimSpace(in.Code) == "" {
		errs["code"] = "code is required"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, http.StatusUnprocessableEntity, errs)
		return
	}

	user, err := a.invitations.Redeem(r.Context(), in.Email, strings.TrimSpace(in.Code), a.now())
	if errors.Is(err, store.ErrInvalidInvitation) {
		slog.Info("sign-in rejected", "email", in.Email)
		writeMessage(w, http.StatusUnauthorized, "invalid email or invitation code")
		return
	}
	if err != nil {
		slog.Error("redeem invitation failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	data := &session.Data{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
		Locale:      a.locales[0],
	}
	if _, err := a.sessions.Create(r.Context(), w, data); err != nil {
		slog.Error("session create failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	slog.Info("user signed in", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// Logout destroys the current session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in session.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess})
}

type localeRequest struct {
	Locale string `json:"locale"`
}

// SetLocale changes the content locale the editor works in. The session
// keeps its ID and cookie.
func (a *Auth) SetLocale(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var in localeRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	locale := strings.ToLower(strings.TrimSpace(in.Locale))
	if !slices.Contains(a.locales, locale) {
		writeFieldErrors(w, http.StatusUnprocessableEntity, fieldErrors{"locale": "unsupported locale"})
		return
	}

	updated := *sess
	updated.Locale = locale
	err := a.sessions.Update(r.Context(), r, &updated)
	if errors.Is(err, session.ErrNoSession) {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err != nil {
		slog.Error("session update failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": &updated})
}
