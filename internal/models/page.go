// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Page is a node in the page hierarchy. FullPath is derived from the slugs
// of the page and its ancestors and is only ever written by the pagetree
// package.
type Page struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Slug       string     `json:"slug"`
	IsDraft    bool       `json:"is_draft"`
	ShowOnMenu bool       `json:"show_on_menu"`
	ParentID   *uuid.UUID `json:"parent_id"`
	SortOrder  int        `json:"sort_order"`
	FullPath   string     `json:"full_path"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsRoot reports whether the page sits at the top level of the tree.
func (p *Page) IsRoot() bool {
	return p.ParentID == nil
}

// TranslationStatus summarises one locale of a page for tree views.
type TranslationStatus struct {
	Locale     string `json:"locale"`
	Published  bool   `json:"published"`
	HasContent bool   `json:"has_content"`
}

// PageTreeNode is the request-scoped nested projection of a page and its
// descendants. Children are ordered by SortOrder.
type PageTreeNode struct {
	ID           uuid.UUID           `json:"id"`
	Title        string              `json:"title"`
	Slug         string              `json:"slug"`
	IsDraft      bool                `json:"is_draft"`
	ShowOnMenu   bool                `json:"show_on_menu"`
	SortOrder    int                 `json:"sort_order"`
	Translations []TranslationStatus `json:"translations"`
	Children     []*PageTreeNode     `json:"children"`
}

// OrderEntry is one row of a flattened tree as submitted by the drag-and-drop
// editor: the page, its new parent and its position among siblings.
type OrderEntry struct {
	ID        uuid.UUID  `json:"id"`
	ParentID  *uuid.UUID `json:"parentId"`
	SortOrder int        `json:"sortOrder"`
}
