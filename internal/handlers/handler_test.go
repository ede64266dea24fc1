// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared fakes and request helpers. Handlers run
// against the in-memory page store, so no database or Valkey is needed.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"daftar/internal/middleware"
	"daftar/internal/models"
	"daftar/internal/pagetree"
	"daftar/internal/session"
	"daftar/internal/store"
)

// fakeCache is an in-memory PageCache with the same generation rule as
// the Valkey one.
type fakeCache struct {
	mu            sync.Mutex
	pages         map[string][]byte
	generation    int64
	sets          int
	invalidations int

	// beforeSet, when set, runs at the start of every Set.
	beforeSet func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{pages: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, locale, fullPath string) ([]byte, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	html, ok := c.pages[locale+":"+fullPath]
	return html, c.generation, ok
}

func (c *fakeCache) Set(_ context.Context, generation int64, locale, fullPath string, html []byte) bool {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return false
	}
	c.pages[locale+":"+fullPath] = html
	c.sets++
	return true
}

func (c *fakeCache) InvalidateAll(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.pages)
	c.generation++
	c.invalidations++
}

// fakeCacheLog records Log calls.
type fakeCacheLog struct {
	mu      sync.Mutex
	entries []store.CacheLogEntry
}

func (l *fakeCacheLog) Log(_ context.Context, entityType string, entityID uuid.UUID, action string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, store.CacheLogEntry{
		ID:            int64(len(l.entries) + 1),
		EntityType:    entityType,
		EntityID:      entityID,
		Action:        action,
		InvalidatedAt: time.Now(),
	})
}

func (l *fakeCacheLog) RecentEntries(_ context.Context, limit int) ([]store.CacheLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []store.CacheLogEntry
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}

func (l *fakeCacheLog) EntriesFor(ctx context.Context, entityID uuid.UUID, limit int) ([]store.CacheLogEntry, error) {
	all, _ := l.RecentEntries(ctx, 1<<30)
	var out []store.CacheLogEntry
	for _, e := range all {
		if e.EntityID == entityID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *fakeCacheLog) last() store.CacheLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return store.CacheLogEntry{}
	}
	return l.entries[len(l.entries)-1]
}

// fakeUsers is an in-memory UserDirectory.
type fakeUsers struct {
	users []models.User
}

func (u *fakeUsers) List(context.Context) ([]models.User, error) { return u.users, nil }

func (u *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	n := len(u.users)
	u.users = slices.DeleteFunc(u.users, func(x models.User) bool { return x.ID == id })
	if len(u.users) == n {
		return store.ErrUserNotFound
	}
	return nil
}

// fakeInvitations records issued codes and redeems them.
type fakeInvitations struct {
	created []*models.Invitation
	codes   map[string]string
	user    *models.User
	err     error
}

func (f *fakeInvitations) Create(_ context.Context, email, code string, role models.Role, expiresAt *time.Time) (*models.Invitation, error) {
	inv := &models.Invitation{ID: uuid.New(), Email: email, Role: role, ExpiresAt: expiresAt}
	f.created = append(f.created, inv)
	if f.codes == nil {
		f.codes = make(map[string]string)
	}
	f.codes[email] = code
	return inv, nil
}

func (f *fakeInvitations) ListByEmail(_ context.Context, email string) ([]models.Invitation, error) {
	var out []models.Invitation
	for _, inv := range f.created {
		if inv.Email == email {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvitations) Delete(_ context.Context, id uuid.UUID) error {
	n := len(f.created)
	f.created = slices.DeleteFunc(f.created, func(inv *models.Invitation) bool { return inv.ID == id })
	if len(f.created) == n {
		return store.ErrInvitationNotFound
	}
	return nil
}

func (f *fakeInvitations) Redeem(_ context.Context, email, code string, _ time.Time) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.codes[email] != code {
		return nil, store.ErrInvalidInvitation
	}
	return f.user, nil
}

// fakeSessions records created and destroyed sessions.
type fakeSessions struct {
	created   []*session.Data
	updated   []*session.Data
	destroyed int
	revoked   []uuid.UUID
}

func (s *fakeSessions) Create(_ context.Context, w http.ResponseWriter, data *session.Data) (string, error) {
	s.created = append(s.created, data)
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "test-session"})
	return "test-session", nil
}

func (s *fakeSessions) Update(_ context.Context, _ *http.Request, data *session.Data) error {
	s.updated = append(s.updated, data)
	return nil
}

func (s *fakeSessions) DestroyUser(_ context.Context, userID uuid.UUID) (int, error) {
	s.revoked = append(s.revoked, userID)
	return 1, nil
}

func (s *fakeSessions) Destroy(context.Context, http.ResponseWriter, *http.Request) error {
	s.destroyed++
	return nil
}

// adminEnv bundles an Admin handler with its fakes.
type adminEnv struct {
	Admin       *Admin
	Pages       *pagetree.Service
	Store       *pagetree.MemoryStore
	Cache       *fakeCache
	CacheLog    *fakeCacheLog
	Invitations *fakeInvitations
	Users       *fakeUsers
	Sessions    *fakeSessions
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()
	m := pagetree.NewMemoryStore()
	svc := pagetree.NewService(m, []string{"en", "fa"})
	env := &adminEnv{
		Pages:       svc,
		Store:       m,
		Cache:       newFakeCache(),
		CacheLog:    &fakeCacheLog{},
		Invitations: &fakeInvitations{},
		Sessions:    &fakeSessions{},
		Users: &fakeUsers{users: []models.User{
			{ID: uuid.New(), Email: "admin@daftar.local", Role: models.RoleAdmin},
		}},
	}
	env.Admin = NewAdmin(svc, env.Users, env.Invitations, env.Sessions, env.Cache, env.CacheLog)
	return env
}

// mustCreatePage creates a page through the service.
func mustCreatePage(t *testing.T, svc *pagetree.Service, in pagetree.NewPage) *models.Page {
	t.Helper()
	p, err := svc.CreatePage(context.Background(), in)
	if err != nil {
		t.Fatalf("CreatePage(%q): %v", in.Title, err)
	}
	return p
}

// newRequest builds a request with an optional JSON body and chi URL
// parameters given as key/value pairs.
func newRequest(method, target, body string, params ...string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			rctx.URLParams.Add(params[i], params[i+1])
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	return req
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// decodeBody decodes a JSON response body into a generic map.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

// fieldError returns errors[field] from a validation response.
func fieldError(t *testing.T, rec *httptest.ResponseRecorder, field string) string {
	t.Helper()
	errs, _ := decodeBody(t, rec)["errors"].(map[string]any)
	msg, _ := errs[field].(string)
	return msg
}
