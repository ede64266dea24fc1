// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pagetree

import (
	"cmp"
	"slices"

	"github.com/google/uuid"

	"daftar/internal/models"
)

// parentKey turns a nullable parent id into a map key.
func parentKey(id *uuid.UUID) string {
	if id == nil {
		return "root"
	}
	return id.String()
}

// BuildPageTree nests a flat page list under parentID (nil for the top
// level). Siblings are ordered by SortOrder with ties kept in input order.
// Pages whose parent is not reachable from parentID, such as pages pointing
// at a deleted parent, are left out. The input slice is not modified.
func BuildPageTree(pages []models.Page, statuses map[uuid.UUID][]models.TranslationStatus, parentID *uuid.UUID) []*models.PageTreeNode {
	byParent := make(map[string][]*models.Page, len(pages))
	for i := range pages {
		p := &pages[i]
		key := parentKey(p.ParentID)
		byParent[key] = append(byParent[key], p)
	}
	for _, group := range byParent {
		slices.SortStableFunc(group, func(a, b *models.Page) int {
			return cmp.Compare(a.SortOrder, b.SortOrder)
		})
	}

	visited := make(map[uuid.UUID]struct{}, len(pages))

	var assemble func(key string) []*models.PageTreeNode
	assemble = func(key string) []*models.PageTreeNode {
		group := byParent[key]
		nodes := make([]*models.PageTreeNode, 0, len(group))
		for _, p := range group {
			if _, ok := visited[p.ID]; ok {
				continue
			}
			visited[p.ID] = struct{}{}

			translations := slices.Clone(statuses[p.ID])
			if translations == nil {
				translations = []models.TranslationStatus{}
			}
			nodes = append(nodes, &models.PageTreeNode{
				ID:           p.ID,
				Title:        p.Title,
				Slug:         p.Slug,
				IsDraft:      p.IsDraft,
				ShowOnMenu:   p.ShowOnMenu,
				SortOrder:    p.SortOrder,
				Translations: translations,
				Children:     assemble(p.ID.String()),
			})
		}
		return nodes
	}

	return assemble(parentKey(parentID))
}

// TranslationStatusByPage groups translation summaries by page id, keeping
// the order the translations were given in.
func TranslationStatusByPage(translations []models.PageTranslation) map[uuid.UUID][]models.TranslationStatus {
	result := make(map[uuid.UUID][]models.TranslationStatus)
	for i := range translations {
		t := &translations[i]
		result[t.PageID] = append(result[t.PageID], t.Status())
	}
	return result
}

// FlattenTree produces the order payload the editor sends after a drag and
// drop: depth-first, top to bottom, with sortOrder restarting at zero under
// every parent.
func FlattenTree(tree []*models.PageTreeNode) []models.OrderEntry {
	var entries []models.OrderEntry

	var walk func(nodes []*models.PageTreeNode, parentID *uuid.UUID)
	walk = func(nodes []*models.PageTreeNode, parentID *uuid.UUID) {
		for i, n := range nodes {
			var parent *uuid.UUID
			if parentID != nil {
				id := *parentID
				parent = &id
			}
			entries = append(entries, models.OrderEntry{ID: n.ID, ParentID: parent, SortOrder: i})
			id := n.ID
			walk(n.Children, &id)
		}
	}

	walk(tree, nil)
	return entries
}

// PathAssignment is one computed full path.
type PathAssignment struct {
	ID       uuid.UUID
	FullPath string
}

// ComputeFullPaths derives the full path of every node in the tree in
// depth-first order without touching the store.
func ComputeFullPaths(tree []*models.PageTreeNode) []PathAssignment {
	var out []PathAssignment

	var walk func(nodes []*models.PageTreeNode, parentPath string)
	walk = func(nodes []*models.PageTreeNode, parentPath string) {
		for _, n := range nodes {
			path := joinPath(parentPath, n.Slug)
			out = append(out, PathAssignment{ID: n.ID, FullPath: path})
			walk(n.Children, path)
		}
	}

	walk(tree, "")
	return out
}

// duplicatePath returns the first full path assigned to more than one page.
func duplicatePath(paths []PathAssignment) (string, bool) {
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if _, ok := seen[p.FullPath]; ok {
			return p.FullPath, true
		}
		seen[p.FullPath] = struct{}{}
	}
	return "", false
}

// MenuItem is a navigable entry of the public menu.
type MenuItem struct {
	ID       uuid.UUID
	Title    string
	Path     string
	Children []MenuItem
}

// BuildMenu keeps the nodes that should appear in the public menu for a
// locale: not drafts, flagged for the menu, with a published translation.
// A hidden node hides its whole subtree.
func BuildMenu(tree []*models.PageTreeNode, locale string) []MenuItem {
	var build func(nodes []*models.PageTreeNode, parentPath string) []MenuItem
	build = func(nodes []*models.PageTreeNode, parentPath string) []MenuItem {
		var items []MenuItem
		for _, n := range nodes {
			path := joinPath(parentPath, n.Slug)
			if n.IsDraft || !n.ShowOnMenu || !publishedIn(n, locale) {
				continue
			}
			items = append(items, MenuItem{
				ID:       n.ID,
				Title:    n.Title,
				Path:     path,
				Children: build(n.Children, path),
			})
		}
		return items
	}
	return build(tree, "")
}

func publishedIn(n *models.PageTreeNode, locale string) bool {
	for _, t := range n.Translations {
		if t.Locale == locale {
			return t.Published
		}
	}
	return false
}

// countNodes returns the number of nodes in the tree.
func countNodes(tree []*models.PageTreeNode) int {
	n := 0
	for _, node := range tree {
		n += 1 + countNodes(node.Children)
	}
	return n
}
