// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PageTranslation holds the locale-specific content of a page. Content is the
// page-builder document and is treated as opaque JSON outside of rendering.
type PageTranslation struct {
	ID        uuid.UUID       `json:"id"`
	PageID    uuid.UUID       `json:"page_id"`
	Locale    string          `json:"locale"`
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content"`
	Published bool            `json:"published"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HasContent reports whether the translation carries a non-empty document.
// An empty object, array, string or null counts as no content, as does a
// builder document whose "content" list is empty.
func (t *PageTranslation) HasContent() bool {
	raw := bytes.TrimSpace(t.Content)
	if len(raw) == 0 {
		return false
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		// Not JSON; treat any non-blank payload as content.
		return true
	}

	switch v := doc.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		if len(v) == 0 {
			return false
		}
		if blocks, ok := v["content"].([]any); ok {
			return len(blocks) > 0
		}
		return true
	}
	return true
}

// Status returns the tree-view summary for the translation.
func (t *PageTranslation) Status() TranslationStatus {
	return TranslationStatus{
		Locale:     t.Locale,
		Published:  t.Published,
		HasContent: t.HasContent(),
	}
}
