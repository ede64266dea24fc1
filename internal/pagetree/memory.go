// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pagetree

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"daftar/internal/models"
)

// MemoryStore is an in-process Repository. Transactions are serialized and
// roll back by restoring a snapshot taken when they began.
type MemoryStore struct {
	txMu sync.Mutex

	mu           sync.RWMutex
	order        []uuid.UUID
	pages        map[uuid.UUID]models.Page
	translations map[uuid.UUID]map[string]models.PageTranslation
	failPaths    map[uuid.UUID]error
	writes       int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pages:        make(map[uuid.UUID]models.Page),
		translations: make(map[uuid.UUID]map[string]models.PageTranslation),
		failPaths:    make(map[uuid.UUID]error),
	}
}

// Seed inserts pages as given, keeping their ids and stored full paths.
func (m *MemoryStore) Seed(pages ...models.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pages {
		if _, ok := m.pages[p.ID]; !ok {
			m.order = append(m.order, p.ID)
		}
		m.pages[p.ID] = clonePage(p)
	}
}

// FailFullPathUpdate makes every UpdateFullPath for id return err.
func (m *MemoryStore) FailFullPathUpdate(id uuid.UUID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPaths[id] = err
}

// WriteCount returns the number of successful writes performed so far.
func (m *MemoryStore) WriteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *MemoryStore) ListPages(_ context.Context) ([]models.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Page, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, clonePage(m.pages[id]))
	}
	return out, nil
}

func (m *MemoryStore) FindPageByID(_ context.Context, id uuid.UUID) (*models.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pages[id]
	if !ok {
		return nil, nil
	}
	c := clonePage(p)
	return &c, nil
}

func (m *MemoryStore) FindPageByFullPath(_ context.Context, fullPath string) (*models.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		if p := m.pages[id]; p.FullPath == fullPath {
			c := clonePage(p)
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListChildren(_ context.Context, parentID uuid.UUID) ([]models.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Page
	for _, id := range m.order {
		p := m.pages[id]
		if p.ParentID != nil && *p.ParentID == parentID {
			out = append(out, clonePage(p))
		}
	}
	slices.SortStableFunc(out, func(a, b models.Page) int {
		return cmp.Compare(a.SortOrder, b.SortOrder)
	})
	return out, nil
}

func (m *MemoryStore) ListByFullPathPrefix(_ context.Context, prefix string) ([]models.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Page
	for _, id := range m.order {
		if p := m.pages[id]; strings.HasPrefix(p.FullPath, prefix) {
			out = append(out, clonePage(p))
		}
	}
	return out, nil
}

func (m *MemoryStore) ListTranslations(_ context.Context) ([]models.PageTranslation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.PageTranslation
	for _, id := range m.order {
		out = append(out, m.sortedTranslations(id)...)
	}
	return out, nil
}

func (m *MemoryStore) UpdateFullPath(_ context.Context, id uuid.UUID, fullPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failPaths[id]; err != nil {
		return err
	}
	return m.mutate(id, func(p *models.Page) { p.FullPath = fullPath })
}

func (m *MemoryStore) UpdateSlug(_ context.Context, id uuid.UUID, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutate(id, func(p *models.Page) { p.Slug = slug })
}

func (m *MemoryStore) UpdatePlacement(_ context.Context, id uuid.UUID, parentID *uuid.UUID, sortOrder int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutate(id, func(p *models.Page) {
		p.ParentID = cloneID(parentID)
		p.SortOrder = sortOrder
	})
}

func (m *MemoryStore) CreatePage(_ context.Context, p *models.Page) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := clonePage(*p)
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	m.pages[c.ID] = c
	m.order = append(m.order, c.ID)
	m.writes++
	out := clonePage(c)
	return &out, nil
}

func (m *MemoryStore) UpdatePage(_ context.Context, p *models.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutate(p.ID, func(stored *models.Page) {
		stored.Title = p.Title
		stored.IsDraft = p.IsDraft
		stored.ShowOnMenu = p.ShowOnMenu
	})
}

func (m *MemoryStore) DeletePage(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[id]; !ok {
		return ErrPageNotFound
	}
	delete(m.pages, id)
	delete(m.translations, id)
	m.order = slices.DeleteFunc(m.order, func(v uuid.UUID) bool { return v == id })
	m.writes++
	return nil
}

func (m *MemoryStore) NextSortOrder(_ context.Context, parentID *uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	next := 0
	for _, p := range m.pages {
		if parentKey(p.ParentID) == parentKey(parentID) && p.SortOrder >= next {
			next = p.SortOrder + 1
		}
	}
	return next, nil
}

func (m *MemoryStore) FindTranslation(_ context.Context, pageID uuid.UUID, locale string) (*models.PageTranslation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.translations[pageID][locale]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *MemoryStore) ListTranslationsByPage(_ context.Context, pageID uuid.UUID) ([]models.PageTranslation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedTranslations(pageID), nil
}

func (m *MemoryStore) UpsertTranslation(_ context.Context, t *models.PageTranslation) (*models.PageTranslation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[t.PageID]; !ok {
		return nil, ErrPageNotFound
	}
	byLocale := m.translations[t.PageID]
	if byLocale == nil {
		byLocale = make(map[string]models.PageTranslation)
		m.translations[t.PageID] = byLocale
	}

	c := *t
	c.Content = slices.Clone(t.Content)
	now := time.Now()
	if existing, ok := byLocale[t.Locale]; ok {
		c.ID, c.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		c.ID, c.CreatedAt = uuid.New(), now
	}
	c.UpdatedAt = now
	byLocale[t.Locale] = c
	m.writes++
	return &c, nil
}

func (m *MemoryStore) DeleteTranslation(_ context.Context, pageID uuid.UUID, locale string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.translations[pageID], locale)
	m.writes++
	return nil
}

// InTx runs fn against the store itself. If fn fails, pages and translations
// are restored to their state before fn ran.
func (m *MemoryStore) InTx(ctx context.Context, fn func(Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	order, pages, translations, writes := m.snapshot()
	if err := fn(m); err != nil {
		m.mu.Lock()
		m.order, m.pages, m.translations, m.writes = order, pages, translations, writes
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemoryStore) snapshot() ([]uuid.UUID, map[uuid.UUID]models.Page, map[uuid.UUID]map[string]models.PageTranslation, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pages := make(map[uuid.UUID]models.Page, len(m.pages))
	for id, p := range m.pages {
		pages[id] = clonePage(p)
	}
	translations := make(map[uuid.UUID]map[string]models.PageTranslation, len(m.translations))
	for id, byLocale := range m.translations {
		c := make(map[string]models.PageTranslation, len(byLocale))
		for locale, t := range byLocale {
			c[locale] = t
		}
		translations[id] = c
	}
	return slices.Clone(m.order), pages, translations, m.writes
}

// mutate applies fn to a stored page. Callers hold m.mu.
func (m *MemoryStore) mutate(id uuid.UUID, fn func(*models.Page)) error {
	p, ok := m.pages[id]
	if !ok {
		return ErrPageNotFound
	}
	fn(&p)
	p.UpdatedAt = time.Now()
	m.pages[id] = p
	m.writes++
	return nil
}

// sortedTranslations returns a page's translations ordered by locale.
// Callers hold m.mu.
func (m *MemoryStore) sortedTranslations(pageID uuid.UUID) []models.PageTranslation {
	var out []models.PageTranslation
	for _, t := range m.translations[pageID] {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b models.PageTranslation) int {
		return cmp.Compare(a.Locale, b.Locale)
	})
	return out
}

func clonePage(p models.Page) models.Page {
	p.ParentID = cloneID(p.ParentID)
	return p
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
