// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers of daftar. Handlers are
// grouped by concern (admin API, auth, public site) and receive their
// dependencies through the handler struct.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"daftar/internal/pagetree"
	"daftar/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 2 << 20

// PageCache is the rendered page cache used by the public site.
type PageCache interface {
	// Get returns the cached page and the cache generation it saw.
	Get(ctx context.Context, locale, fullPath string) ([]byte, int64, bool)
	// Set stores html only while the cache is still at generation.
	Set(ctx context.Context, generation int64, locale, fullPath string, html []byte) bool
	InvalidateAll(ctx context.Context)
}

// CacheLog records cache invalidations.
type CacheLog interface {
	Log(ctx context.Context, entityType string, entityID uuid.UUID, action string)
	RecentEntries(ctx context.Context, limit int) ([]store.CacheLogEntry, error)
	EntriesFor(ctx context.Context, entityID uuid.UUID, limit int) ([]store.CacheLogEntry, error)
}

// fieldErrors maps a request field to a user-facing message.
type fieldErrors map[string]string

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeFieldErrors(w http.ResponseWriter, status int, errs fieldErrors) {
	writeJSON(w, status, map[string]fieldErrors{"errors": errs})
}

// readBody reads a request body up to maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

// decodeJSON decodes a JSON request body into dst. It answers 400 itself
// and returns false when the body cannot be decoded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// pageID parses the {id} URL parameter, answering 400 when it is not a UUID.
func pageID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return urlID(w, r, "page")
}

// urlID parses the {id} URL parameter, answering 400 when it is not a UUID.
func urlID(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid "+what+" id")
		return uuid.Nil, false
	}
	return id, true
}

// errorStatus maps a page tree error to an HTTP status and, for validation
// problems, the request field it concerns.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, pagetree.ErrInvalidOrderPayload):
		return http.StatusUnprocessableEntity, "order"
	case errors.Is(err, pagetree.ErrTitleRequired):
		return http.StatusUnprocessableEntity, "title"
	case errors.Is(err, pagetree.ErrSlugRequired):
		return http.StatusUnprocessableEntity, "slug"
	case errors.Is(err, pagetree.ErrUnknownLocale):
		return http.StatusUnprocessableEntity, "locale"
	case errors.Is(err, pagetree.ErrParentNotFound):
		return http.StatusUnprocessableEntity, "parent_id"
	case errors.Is(err, pagetree.ErrPageNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrInvitationNotFound):
		return http.StatusNotFound, ""
	case errors.Is(err, pagetree.ErrParentCycle),
		errors.Is(err, pagetree.ErrPathConflict),
		errors.Is(err, pagetree.ErrHasChildren):
		return http.StatusConflict, ""
	}
	return http.StatusInternalServerError, ""
}

// writeServiceError answers with the status matching err. Validation errors
// use the {"errors": {field: message}} shape; unexpected errors are logged
// and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, field := errorStatus(err)
	switch {
	case status == http.StatusInternalServerError:
		slog.Error(op+" failed", "error", err, "path", r.URL.Path)
		writeMessage(w, status, "internal server error")
	case field != "":
		writeFieldErrors(w, status, fieldErrors{field: userMessage(err)})
	default:
		writeMessage(w, status, userMessage(err))
	}
}

// userMessage returns the sentinel message of a page tree error without the
// package prefix and the wrapping context.
func userMessage(err error) string {
	for _, sentinel := range []error{
		pagetree.ErrTitleRequired,
		pagetree.ErrSlugRequired,
		pagetree.ErrUnknownLocale,
		pagetree.ErrParentNotFound,
		pagetree.ErrPageNotFound,
		pagetree.ErrParentCycle,
		pagetree.ErrPathConflict,
		pagetree.ErrHasChildren,
		store.ErrUserNotFound,
		store.ErrInvitationNotFound,
	} {
		if errors.Is(err, sentinel) {
			return trimPrefix(sentinel.Error())
		}
	}
	var payloadErr *pagetree.OrderPayloadError
	if errors.As(err, &payloadErr) {
		return payloadErr.Reason
	}
	return trimPrefix(err.Error())
}

func trimPrefix(msg string) string {
	const prefix = "pagetree: "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
