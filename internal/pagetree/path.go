// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pagetree

import (
	"strings"

	"github.com/google/uuid"

	"daftar/internal/models"
)

// pathIndex resolves ancestry over one snapshot of the page table so a path
// costs one store round trip instead of one per ancestor.
type pathIndex struct {
	pages map[uuid.UUID]*models.Page
}

func newPathIndex(pages []models.Page) *pathIndex {
	ix := &pathIndex{pages: make(map[uuid.UUID]*models.Page, len(pages))}
	for i := range pages {
		ix.pages[pages[i].ID] = &pages[i]
	}
	return ix
}

func (ix *pathIndex) page(id uuid.UUID) *models.Page {
	return ix.pages[id]
}

// resolve walks from id to the root collecting slugs. A missing page ends the
// walk and the segments gathered so far are returned, so a dangling parent
// yields a partial path rather than an error. A repeated id means the
// parent chain loops.
func (ix *pathIndex) resolve(id uuid.UUID) (string, error) {
	var segments []string
	seen := make(map[uuid.UUID]struct{})

	current := &id
	for current != nil {
		if _, ok := seen[*current]; ok {
			return "", ErrParentCycle
		}
		seen[*current] = struct{}{}

		p, ok := ix.pages[*current]
		if !ok {
			break
		}
		segments = append(segments, p.Slug)
		current = p.ParentID
	}

	path := ""
	for i := len(segments) - 1; i >= 0; i-- {
		path = joinPath(path, segments[i])
	}
	return path, nil
}

// isAncestor reports whether candidate is id itself or one of its ancestors.
func (ix *pathIndex) isAncestor(candidate, id uuid.UUID) bool {
	seen := make(map[uuid.UUID]struct{})
	current := &id
	for current != nil {
		if *current == candidate {
			return true
		}
		if _, ok := seen[*current]; ok {
			return false
		}
		seen[*current] = struct{}{}

		p, ok := ix.pages[*current]
		if !ok {
			return false
		}
		current = p.ParentID
	}
	return false
}

// wouldCycle reports whether moving id under newParent would make id its
// own ancestor.
func (ix *pathIndex) wouldCycle(id uuid.UUID, newParent *uuid.UUID) bool {
	if newParent == nil {
		return false
	}
	return ix.isAncestor(id, *newParent)
}

// joinPath appends one slug to a parent path. Empty segments are skipped so
// the result never has leading, trailing or doubled slashes.
func joinPath(parent, slug string) string {
	slug = strings.Trim(slug, "/")
	switch {
	case slug == "":
		return parent
	case parent == "":
		return slug
	default:
		return parent + "/" + slug
	}
}

// hasCycle reports whether any chain in the parent map loops back on itself.
func hasCycle(parents map[uuid.UUID]*uuid.UUID) bool {
	visited := make(map[uuid.UUID]int, len(parents))

	var visit func(uuid.UUID) bool
	visit = func(id uuid.UUID) bool {
		switch visited[id] {
		case 1:
			return true
		case 2:
			return false
		}
		visited[id] = 1
		if parent := parents[id]; parent != nil {
			if visit(*parent) {
				return true
			}
		}
		visited[id] = 2
		return false
	}

	for id := range parents {
		if visit(id) {
			return true
		}
	}
	return false
}

// reachesRoot reports whether following parents up from id ends at a
// top-level page. A chain through a page missing from parents is an orphan
// branch and BuildPageTree never reaches it.
func reachesRoot(parents map[uuid.UUID]*uuid.UUID, id uuid.UUID) bool {
	for range len(parents) + 1 {
		parent, ok := parents[id]
		if !ok {
			return false
		}
		if parent == nil {
			return true
		}
		id = *parent
	}
	return false
}
