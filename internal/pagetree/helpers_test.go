package pagetree

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"daftar/internal/models"
)

// pid returns a stable, readable page id for tests.
func pid(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
}

func ref(n int) *uuid.UUID {
	id := pid(n)
	return &id
}

func page(n int, slug string, parent *uuid.UUID, sortOrder int, fullPath string) models.Page {
	return models.Page{
		ID:        pid(n),
		Title:     strings.ToUpper(slug[:1]) + slug[1:],
		Slug:      slug,
		ParentID:  parent,
		SortOrder: sortOrder,
		FullPath:  fullPath,
	}
}

// homeAboutTeam seeds Home(1) > About(2) > Team(3) with correct paths.
func homeAboutTeam(t *testing.T) *MemoryStore {
	t.Helper()
	m := NewMemoryStore()
	m.Seed(
		page(1, "home", nil, 0, "home"),
		page(2, "about", ref(1), 0, "home/about"),
		page(3, "team", ref(2), 0, "home/about/team"),
	)
	return m
}

// fullPath reads the stored full path of page n.
func fullPath(t *testing.T, m *MemoryStore, n int) string {
	t.Helper()
	p, err := m.FindPageByID(context.Background(), pid(n))
	if err != nil {
		t.Fatalf("FindPageByID(%d): %v", n, err)
	}
	if p == nil {
		t.Fatalf("page %d not found", n)
	}
	return p.FullPath
}

// shape renders a tree as "slug(child,child)" for structural comparisons.
func shape(nodes []*models.PageTreeNode) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if len(n.Children) == 0 {
			parts = append(parts, n.Slug)
			continue
		}
		parts = append(parts, n.Slug+"("+shape(n.Children)+")")
	}
	return strings.Join(parts, ",")
}
