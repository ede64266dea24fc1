// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"daftar/internal/middleware"
	"daftar/internal/models"
	"daftar/internal/pagetree"
	"daftar/internal/store"
)

// Cache log entity types.
const (
	entityPage        = "page"
	entityTranslation = "translation"
	entityTree        = "tree"
)

// invitationTTL is how long a new invitation code stays redeemable.
const invitationTTL = 7 * 24 * time.Hour

// UserDirectory lists and removes the users of the admin.
type UserDirectory interface {
	List(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// InvitationIssuer stores, lists and revokes invitation codes.
type InvitationIssuer interface {
	Create(ctx context.Context, email, code string, role models.Role, expiresAt *time.Time) (*models.Invitation, error)
	ListByEmail(ctx context.Context, email string) ([]models.Invitation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionRevoker ends every session of a user.
type SessionRevoker interface {
	DestroyUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// Admin groups the admin JSON API handlers and their dependencies.
type Admin struct {
	pages       *pagetree.Service
	users       UserDirectory
	invitations InvitationIssuer
	sessions    SessionRevoker
	pageCache   PageCache
	cacheLog    CacheLog
}

// NewAdmin creates the admin API handler group.
func NewAdmin(pages *pagetree.Service, users UserDirectory, invitations InvitationIssuer, sessions SessionRevoker, pageCache PageCache, cacheLog CacheLog) *Admin {
	return &Admin{
		pages:       pages,
		users:       users,
		invitations: invitations,
		sessions:    sessions,
		pageCache:   pageCache,
		cacheLog:    cacheLog,
	}
}

// pageResponse is a page with its translations.
type pageResponse struct {
	*models.Page
	Translations []models.PageTranslation `json:"translations"`
}

// Tree returns the whole page hierarchy with translation statuses.
func (a *Admin) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := a.pages.Tree(r.Context())
	if err != nil {
		writeServiceError(w, r, "load page tree", err)
		return
	}
	if tree == nil {
		tree = []*models.PageTreeNode{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tree":    tree,
		"locales": a.pages.Locales(),
	})
}

// PageGet returns one page with its translations.
func (a *Admin) PageGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(w, r)
	if !ok {
		return
	}
	page, err := a.pages.Page(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "find page", err)
		return
	}
	if page == nil {
		writeMessage(w, http.StatusNotFound, "page not found")
		return
	}
	a.writePage(w, r, http.StatusOK, page)
}

// PageCreate creates a page from a JSON body.
func (a *Admin) PageCreate(w http.ResponseWriter, r *http.Request) {
	var in pagetree.NewPage
	if !decodeJSON(w, r, &in) {
		return
	}
	if errs := validateNewPage(in); len(errs) > 0 {
		writeFieldErrors(w, http.StatusUnprocessableEntity, errs)
		return
	}

	page, err := a.pages.CreatePage(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, "create page", err)
		return
	}
	a.invalidate(r.Context(), entityPage, page.ID, store.ActionCreate)
	a.writePage(w, r, http.StatusCreated, page)
}

// PageUpdate changes page fields. A slug change rewrites descendant paths.
func (a *Admin) PageUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(w, r)
	if !ok {
		return
	}
	var in pagetree.PageUpdate
	if !decodeJSON(w, r, &in) {
		return
	}
	if errs := validatePageUpdate(in); len(errs) > 0 {
		writeFieldErrors(w, http.StatusUnprocessableEntity, errs)
		return
	}

	page, err := a.pages.UpdatePage(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, "update page", err)
		return
	}
	a.invalidate(r.Context(), entityPage, id, store.ActionUpdate)
	a.writePage(w, r, http.StatusOK, page)
}

// moveRequest is the body of PageMove. A missing sort_order appends the
// page after its new siblings.
type moveRequest struct {
	ParentID  *uuid.UUID `json:"parent_id"`
	SortOrder *int       `json:"sort_order"`
}

// PageMove reparents a single page.
func (a *Admin) PageMove(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(w, r)
	if !ok {
		return
	}
	var in moveRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	sortOrder := -1
	if in.SortOrder != nil {
		if *in.SortOrder < 0 {
			writeFieldErrors(w, http.StatusUnprocessableEntity, fieldErrors{"sort_order": "sort order cannot be negative"})
			return
		}
		sortOrder = *in.SortOrder
	}

	page, err := a.pages.MovePage(r.Context(), id, in.ParentID, sortOrder)
	if err != nil {
		writeServiceError(w, r, "move page", err)
		return
	}
	a.invalidate(r.Context(), entityPage, id, store.ActionMove)
	a.writePage(w, r, http.StatusOK, page)
}

// PageDelete removes a page that has no children.
func (a *Admin) PageDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(w, r)
	if !ok {
		return
	}
	if err := a.pages.DeletePage(r.Context(), id); err != nil {
		writeServiceError(w, r, "delete page", err)
		return
	}
	a.invalidate(r.Context(), entityPage, id, store.ActionDelete)
	w.WriteHeader(http.StatusNoContent)
}

// PageOrder saves the flattened tree sent by the drag-and-drop editor. The
// raw body is the order payload. Success answers {"success": true}; any
// failure answers {"errors": {"order": message}}.
func (a *Admin) PageOrder(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r)
	if err != nil {
		writeFieldErrors(w, http.StatusRequestEntityTooLarge, fieldErrors{"order": "payload is too large"})
		return
	}

	result, err := a.pages.SavePageOrder(r.Context(), raw)
	if err != nil {
		status, _ := errorStatus(err)
		msg := userMessage(err)
		if status == http.StatusInternalServerError {
			slog.Error("save page order failed", "error", err)
			msg = "the order could not be saved"
		}
		writeFieldErrors(w, status, fieldErrors{"order": msg})
		return
	}

	a.invalidate(r.Context(), entityTree, uuid.Nil, store.ActionReorder)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"paths":   result.Paths,
	})
}

// TranslationSave creates or replaces the translation of a page in the
// {locale} URL parameter.
func (a *Admin) TranslationSave(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(w, r)
	if !ok {
		return
	}
	var in pagetree.TranslationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if errs := validateTranslation(in); len(errs) > 0 {
		writeFieldErrors(w, http.StatusUnprocessableEntity, errs)
		return
	}

	tr, err := a.pages.SaveTranslation(r.Context(), id, chi.URLParam(r, "locale"), in)
	if err != nil {
		writeServiceError(w, r, "save translation", err)
		return
	}
	a.invalidate(r.Context(), entityTranslation, tr.ID, store.ActionUpdate)
	writeJSON(w, http.StatusOK, tr)
}

// TranslationDelete removes the translation of a page in one locale.
func (a *Admin) TranslationDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pageID(w, r)
	if !ok {
		return
	}
	locale := chi.URLParam(r, "locale")
	if err := a.pages.DeleteTranslation(r.Context(), id, locale); err != nil {
		writeServiceError(w, r, "delete translation", err)
		return
	}
	a.invalidate(r.Context(), entityTranslation, id, store.ActionDelete)
	w.WriteHeader(http.StatusNoContent)
}

// CacheLogList returns recent cache invalidations. ?limit= defaults to 50;
// ?entity_id= narrows the list to one page.
func (a *Admin) CacheLogList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeFieldErrors(w, http.StatusUnprocessableEntity, fieldErrors{"limit": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	var (
		entries []store.CacheLogEntry
		err     error
	)
	if v := q.Get("entity_id"); v != "" {
		id, perr := uuid.Parse(v)
		if perr != nil {
			writeFieldErrors(w, http.StatusUnprocessableEntity, fieldErrors{"entity_id": "entity_id must be a UUID"})
			return
		}
		entries, err = a.cacheLog.EntriesFor(r.Context(), id, limit)
	} else {
		entries, err = a.cacheLog.RecentEntries(r.Context(), limit)
	}
	if err != nil {
		writeServiceError(w, r, "list cache log", err)
		return
	}
	if entries == nil {
		entries = []store.CacheLogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// UsersList returns every user. Admin only.
func (a *Admin) UsersList(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.List(r.Context())
	if err != nil {
		writeServiceError(w, r, "list users", err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// invitationRequest is the body of InvitationCreate.
type invitationRequest struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// InvitationCreate issues a new invitation code. The plain code is only
// returned in this response. Admin only.
func (a *Admin) InvitationCreate(w http.ResponseWriter, r *http.Request) {
	var in invitationRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	errs := fieldErrors{}
	if msg := validateEmail(in.Email); msg != "" {
		errs["email"] = msg
	}
	if in.Role == "" {
		in.Role = models.RoleEditor
	}
	if in.Role != models.RoleAdmin && in.Role != models.RoleEditor {
		errs["role"] = "role must be admin or editor"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, http.StatusUnprocessableEntity, errs)
		return
	}

	code := rand.Text()
	expires := time.Now().Add(invitationTTL)
	inv, err := a.invitations.Create(r.Context(), in.Email, code, in.Role, &expires)
	if err != nil {
		writeServiceError(w, r, "create invitation", err)
		return
	}

	slog.Info("invitation created",
		"email", inv.Email,
		"role", inv.Role,
		"by", sessionEmail(r),
	)
	writeJSON(w, http.StatusCreated, map[string]any{
		"invitation": inv,
		"code":       code,
	})
}

// UserDelete removes a user and signs them out everywhere. Admins cannot
// remove themselves. Admin only.
func (a *Admin) UserDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "user")
	if !ok {
		return
	}
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil && sess.UserID == id {
		writeMessage(w, http.StatusConflict, "you cannot remove your own account")
		return
	}
	if err := a.users.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, "delete user", err)
		return
	}
	revoked, err := a.sessions.DestroyUser(r.Context(), id)
	if err != nil {
		slog.Warn("revoke sessions failed", "user_id", id, "error", err)
	}
	slog.Info("user deleted", "user_id", id, "sessions_revoked", revoked, "by", sessionEmail(r))
	w.WriteHeader(http.StatusNoContent)
}

// InvitationList returns the invitations issued to ?email=. Codes are
// never returned. Admin only.
func (a *Admin) InvitationList(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if msg := validateEmail(email); msg != "" {
		writeFieldErrors(w, http.StatusUnprocessableEntity, fieldErrors{"email": msg})
		return
	}
	invitations, err := a.invitations.ListByEmail(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, "list invitations", err)
		return
	}
	if invitations == nil {
		invitations = []models.Invitation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": invitations})
}

// InvitationDelete revokes an invitation. Admin only.
func (a *Admin) InvitationDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "invitation")
	if !ok {
		return
	}
	if err := a.invitations.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, "delete invitation", err)
		return
	}
	slog.Info("invitation revoked", "invitation_id", id, "by", sessionEmail(r))
	w.WriteHeader(http.StatusNoContent)
}

// writePage answers with a page and its translations.
func (a *Admin) writePage(w http.ResponseWriter, r *http.Request, status int, page *models.Page) {
	translations, err := a.pages.Translations(r.Context(), page.ID)
	if err != nil {
		writeServiceError(w, r, "list translations", err)
		return
	}
	if translations == nil {
		translations = []models.PageTranslation{}
	}
	writeJSON(w, status, pageResponse{Page: page, Translations: translations})
}

// invalidate drops every cached public page and records why. Any change can
// alter the menu rendered on every page, so the whole cache goes.
func (a *Admin) invalidate(ctx context.Context, entityType string, entityID uuid.UUID, action string) {
	a.pageCache.InvalidateAll(ctx)
	a.cacheLog.Log(ctx, entityType, entityID, action)
}

func sessionEmail(r *http.Request) string {
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		return sess.Email
	}
	return ""
}
