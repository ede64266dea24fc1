// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pagetree

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"daftar/internal/models"
)

// Updater keeps every page's materialized FullPath equal to the slash-joined
// slugs from its root ancestor. It never opens transactions itself; callers
// that need atomicity hand it a transaction-scoped Store.
type Updater struct {
	store Store
}

// NewUpdater returns an Updater working against the given store.
func NewUpdater(store Store) *Updater {
	return &Updater{store: store}
}

// BatchResult counts the outcome of a batch full path update.
type BatchResult struct {
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
}

// GenerateFullPath computes the full path of a page from the current tree.
// An unknown id gives an empty path; a dangling ancestor cuts the path short
// at the last page that could be loaded.
func (u *Updater) GenerateFullPath(ctx context.Context, id uuid.UUID) (string, error) {
	pages, err := u.store.ListPages(ctx)
	if err != nil {
		return "", fmt.Errorf("generate full path: %w", err)
	}
	path, err := newPathIndex(pages).resolve(id)
	if err != nil {
		return "", fmt.Errorf("generate full path %s: %w", id, err)
	}
	return path, nil
}

// UpdatePageFullPath recomputes and stores the full path of one page.
func (u *Updater) UpdatePageFullPath(ctx context.Context, id uuid.UUID) error {
	path, err := u.GenerateFullPath(ctx, id)
	if err != nil {
		return err
	}
	if err := u.store.UpdateFullPath(ctx, id, path); err != nil {
		return fmt.Errorf("update full path %s: %w", id, err)
	}
	slog.Debug("page full path updated", "page_id", id, "full_path", path)
	return nil
}

// UpdateFullPathTree recomputes the full path of a page and of every
// descendant, depth-first. Rows whose stored path is already correct are not
// rewritten. It returns the number of rows written.
func (u *Updater) UpdateFullPathTree(ctx context.Context, id uuid.UUID) (int, error) {
	pages, err := u.store.ListPages(ctx)
	if err != nil {
		return 0, fmt.Errorf("update full path tree: %w", err)
	}

	ix := newPathIndex(pages)
	root := ix.page(id)
	if root == nil {
		return 0, fmt.Errorf("update full path tree %s: %w", id, ErrPageNotFound)
	}
	rootPath, err := ix.resolve(id)
	if err != nil {
		return 0, fmt.Errorf("update full path tree %s: %w", id, err)
	}

	children := make(map[uuid.UUID][]*models.Page)
	for i := range pages {
		p := &pages[i]
		if p.ParentID != nil {
			children[*p.ParentID] = append(children[*p.ParentID], p)
		}
	}
	for _, group := range children {
		slices.SortStableFunc(group, func(a, b *models.Page) int {
			return cmp.Compare(a.SortOrder, b.SortOrder)
		})
	}

	written := 0
	visited := make(map[uuid.UUID]struct{})

	var visit func(p *models.Page, path string) error
	visit = func(p *models.Page, path string) error {
		if _, ok := visited[p.ID]; ok {
			return ErrParentCycle
		}
		visited[p.ID] = struct{}{}

		if p.FullPath != path {
			if err := u.store.UpdateFullPath(ctx, p.ID, path); err != nil {
				return fmt.Errorf("page %s: %w", p.ID, err)
			}
			written++
		}
		for _, child := range children[p.ID] {
			if err := visit(child, joinPath(path, child.Slug)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(root, rootPath); err != nil {
		return written, fmt.Errorf("update full path tree %s: %w", id, err)
	}

	slog.Info("page subtree paths updated",
		"page_id", id,
		"visited", len(visited),
		"written", written,
	)
	return written, nil
}

// UpdateFullPathForSlugChange renames a page's slug and rewrites its path and
// the paths of all descendants by replacing the old path prefix.
//
// The prefix rewrite is only correct while every stored path under the page
// already matches the tree. The page's own stored path is checked against its
// parent's; when they disagree the whole subtree is recomputed from parent
// links instead.
func (u *Updater) UpdateFullPathForSlugChange(ctx context.Context, id uuid.UUID, newSlug string) (int, error) {
	page, err := u.store.FindPageByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("slug change %s: %w", id, err)
	}
	if page == nil {
		return 0, fmt.Errorf("slug change %s: %w", id, ErrPageNotFound)
	}

	parentPath := ""
	if page.ParentID != nil {
		parent, err := u.store.FindPageByID(ctx, *page.ParentID)
		if err != nil {
			return 0, fmt.Errorf("slug change %s: load parent: %w", id, err)
		}
		if parent != nil {
			parentPath = parent.FullPath
		}
	}

	oldPath := page.FullPath
	newPath := joinPath(parentPath, newSlug)

	if newPath != oldPath {
		existing, err := u.store.FindPageByFullPath(ctx, newPath)
		if err != nil {
			return 0, fmt.Errorf("slug change %s: %w", id, err)
		}
		if existing != nil && existing.ID != id {
			return 0, fmt.Errorf("slug change %s to %q: %w", id, newPath, ErrPathConflict)
		}
	}

	if err := u.store.UpdateSlug(ctx, id, newSlug); err != nil {
		return 0, fmt.Errorf("slug change %s: %w", id, err)
	}

	if oldPath == "" || oldPath != joinPath(parentPath, page.Slug) {
		slog.Warn("stored full path out of sync, recomputing subtree",
			"page_id", id,
			"stored", oldPath,
			"parent_path", parentPath,
		)
		return u.UpdateFullPathTree(ctx, id)
	}

	if err := u.store.UpdateFullPath(ctx, id, newPath); err != nil {
		return 0, fmt.Errorf("slug change %s: %w", id, err)
	}
	written := 1

	if newPath == oldPath {
		return written, nil
	}

	descendants, err := u.store.ListByFullPathPrefix(ctx, oldPath+"/")
	if err != nil {
		return written, fmt.Errorf("slug change %s: list descendants: %w", id, err)
	}
	for _, d := range descendants {
		rewritten := newPath + strings.TrimPrefix(d.FullPath, oldPath)
		if err := u.store.UpdateFullPath(ctx, d.ID, rewritten); err != nil {
			return written, fmt.Errorf("slug change %s: descendant %s: %w", id, d.ID, err)
		}
		written++
	}

	slog.Info("page slug changed",
		"page_id", id,
		"old_path", oldPath,
		"new_path", newPath,
		"descendants", len(descendants),
	)
	return written, nil
}

// UpdateFullPathsForTree writes the full path of every node in an already
// built tree. Paths are computed in memory first; writes are then issued one
// at a time. A failed row is counted and logged and the batch continues. If
// any row failed the returned error is a *BatchError; rows already written
// stay written unless the caller's transaction is rolled back.
func (u *Updater) UpdateFullPathsForTree(ctx context.Context, tree []*models.PageTreeNode) (BatchResult, error) {
	paths := ComputeFullPaths(tree)
	if dup, ok := duplicatePath(paths); ok {
		return BatchResult{}, fmt.Errorf("update tree paths: %q: %w", dup, ErrPathConflict)
	}

	var result BatchResult
	for _, p := range paths {
		if err := u.store.UpdateFullPath(ctx, p.ID, p.FullPath); err != nil {
			result.FailureCount++
			slog.Warn("full path update failed",
				"page_id", p.ID,
				"full_path", p.FullPath,
				"error", err,
			)
			continue
		}
		result.SuccessCount++
	}

	slog.Info("tree paths updated",
		"success", result.SuccessCount,
		"failed", result.FailureCount,
	)

	if result.FailureCount > 0 {
		return result, &BatchError{Failed: result.FailureCount, Total: len(paths)}
	}
	return result, nil
}
