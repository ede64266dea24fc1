// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pagetree

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"daftar/internal/models"
)

// OrderResult is returned by a successful SavePageOrder.
type OrderResult struct {
	Tree  []*models.PageTreeNode
	Paths BatchResult
}

// ParseOrderPayload decodes and validates a reorder payload: a JSON array of
// {id, parentId, sortOrder}. Errors are *OrderPayloadError.
func ParseOrderPayload(raw []byte) ([]models.OrderEntry, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, &OrderPayloadError{Reason: "payload is empty"}
	}

	var entries []models.OrderEntry
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&entries); err != nil {
		return nil, &OrderPayloadError{Reason: "payload is not a valid order list", Err: err}
	}
	if dec.More() {
		return nil, &OrderPayloadError{Reason: "unexpected data after order list"}
	}
	if len(entries) == 0 {
		return nil, &OrderPayloadError{Reason: "order list is empty"}
	}

	seen := make(map[uuid.UUID]struct{}, len(entries))
	for i, e := range entries {
		if e.ID == uuid.Nil {
			return nil, &OrderPayloadError{Reason: fmt.Sprintf("entry %d has no id", i)}
		}
		if _, ok := seen[e.ID]; ok {
			return nil, &OrderPayloadError{Reason: fmt.Sprintf("page %s appears more than once", e.ID)}
		}
		seen[e.ID] = struct{}{}
		if e.ParentID != nil && *e.ParentID == e.ID {
			return nil, &OrderPayloadError{Reason: fmt.Sprintf("page %s is its own parent", e.ID)}
		}
		if e.SortOrder < 0 {
			return nil, &OrderPayloadError{Reason: fmt.Sprintf("page %s has a negative sort order", e.ID)}
		}
	}
	return entries, nil
}

// SavePageOrder applies a flattened tree from the drag-and-drop editor. The
// placement of every listed page is written, the tree is rebuilt from what
// was persisted and every full path is recomputed from it. All of it runs in
// one transaction: a malformed payload, an unknown page, a parent outside
// the tree, a cycle or any failed path write leaves the store untouched.
func (s *Service) SavePageOrder(ctx context.Context, raw []byte) (*OrderResult, error) {
	entries, err := ParseOrderPayload(raw)
	if err != nil {
		return nil, err
	}

	var result OrderResult
	err = s.repo.InTx(ctx, func(tx Repository) error {
		pages, err := tx.ListPages(ctx)
		if err != nil {
			return fmt.Errorf("load pages: %w", err)
		}

		ix := newPathIndex(pages)
		parents := make(map[uuid.UUID]*uuid.UUID, len(pages))
		for _, p := range pages {
			parents[p.ID] = p.ParentID
		}
		for _, e := range entries {
			if ix.page(e.ID) == nil {
				return fmt.Errorf("page %s: %w", e.ID, ErrPageNotFound)
			}
			if e.ParentID != nil && ix.page(*e.ParentID) == nil {
				return fmt.Errorf("parent %s of page %s: %w", *e.ParentID, e.ID, ErrParentNotFound)
			}
			parents[e.ID] = e.ParentID
		}
		if hasCycle(parents) {
			return ErrParentCycle
		}
		for _, e := range entries {
			if e.ParentID != nil && !reachesRoot(parents, *e.ParentID) {
				return fmt.Errorf("parent %s of page %s is not in the tree: %w", *e.ParentID, e.ID, ErrParentNotFound)
			}
		}

		for _, e := range entries {
			if err := tx.UpdatePlacement(ctx, e.ID, e.ParentID, e.SortOrder); err != nil {
				return fmt.Errorf("save placement of %s: %w", e.ID, err)
			}
		}

		tree, err := loadTree(ctx, tx)
		if err != nil {
			return err
		}

		paths, err := NewUpdater(tx).UpdateFullPathsForTree(ctx, tree)
		result = OrderResult{Tree: tree, Paths: paths}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save page order: %w", err)
	}

	slog.Info("page order saved",
		"entries", len(entries),
		"paths_updated", result.Paths.SuccessCount,
	)
	return &result, nil
}

// loadTree reads the full page set and translations and builds the tree.
func loadTree(ctx context.Context, r Reader) ([]*models.PageTreeNode, error) {
	pages, err := r.ListPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pages: %w", err)
	}
	translations, err := r.ListTranslations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}
	return BuildPageTree(pages, TranslationStatusByPage(translations), nil), nil
}
