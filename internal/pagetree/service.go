// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package pagetree maintains the page hierarchy: it builds nested trees from
// flat page rows, keeps each page's materialized full path in step with
// slug and parent changes, and applies reorders coming from the editor.
package pagetree

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"daftar/internal/models"
	"daftar/internal/slug"
)

// Service is the entry point used by handlers and the CLI. Every mutation
// runs inside a single repository transaction.
type Service struct {
	repo    Repository
	locales []string
}

// NewService creates a Service. locales lists the supported content locales;
// new pages get one empty translation per locale.
func NewService(repo Repository, locales []string) *Service {
	return &Service{repo: repo, locales: slices.Clone(locales)}
}

// Locales returns the supported locales.
func (s *Service) Locales() []string {
	return slices.Clone(s.locales)
}

// NewPage holds the fields accepted when creating a page.
type NewPage struct {
	Title      string     `json:"title"`
	Slug       string     `json:"slug"`
	ParentID   *uuid.UUID `json:"parent_id"`
	IsDraft    bool       `json:"is_draft"`
	ShowOnMenu bool       `json:"show_on_menu"`
}

// PageUpdate holds optional field changes; nil fields are left alone.
type PageUpdate struct {
	Title      *string `json:"title"`
	Slug       *string `json:"slug"`
	IsDraft    *bool   `json:"is_draft"`
	ShowOnMenu *bool   `json:"show_on_menu"`
}

// TranslationInput holds the editable fields of a translation.
type TranslationInput struct {
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content"`
	Published bool            `json:"published"`
}

// Tree returns the whole page hierarchy, built fresh from the store.
func (s *Service) Tree(ctx context.Context) ([]*models.PageTreeNode, error) {
	return loadTree(ctx, s.repo)
}

// Page returns a page by id, or nil if it does not exist.
func (s *Service) Page(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	return s.repo.FindPageByID(ctx, id)
}

// CreatePage inserts a page at the end of its sibling list, computes its full
// path and seeds an empty unpublished translation for every locale.
func (s *Service) CreatePage(ctx context.Context, in NewPage) (*models.Page, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	pageSlug := slug.Generate(in.Slug)
	if pageSlug == "" {
		pageSlug = slug.Generate(title)
	}
	if pageSlug == "" {
		return nil, ErrSlugRequired
	}

	var created *models.Page
	err := s.repo.InTx(ctx, func(tx Repository) error {
		parentPath := ""
		if in.ParentID != nil {
			parent, err := tx.FindPageByID(ctx, *in.ParentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return ErrParentNotFound
			}
			parentPath = parent.FullPath
		}

		if err := ensurePathFree(ctx, tx, joinPath(parentPath, pageSlug), uuid.Nil); err != nil {
			return err
		}

		order, err := tx.NextSortOrder(ctx, in.ParentID)
		if err != nil {
			return err
		}

		page, err := tx.CreatePage(ctx, &models.Page{
			Title:      title,
			Slug:       pageSlug,
			IsDraft:    in.IsDraft,
			ShowOnMenu: in.ShowOnMenu,
			ParentID:   in.ParentID,
			SortOrder:  order,
			FullPath:   pageSlug,
		})
		if err != nil {
			return err
		}

		if err := NewUpdater(tx).UpdatePageFullPath(ctx, page.ID); err != nil {
			return err
		}

		for _, locale := range s.locales {
			if _, err := tx.UpsertTranslation(ctx, &models.PageTranslation{
				PageID:  page.ID,
				Locale:  locale,
				Title:   title,
				Content: json.RawMessage(`{}`),
			}); err != nil {
				return fmt.Errorf("seed %s translation: %w", locale, err)
			}
		}

		created, err = tx.FindPageByID(ctx, page.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	slog.Info("page created", "page_id", created.ID, "full_path", created.FullPath)
	return created, nil
}

// UpdatePage applies field changes. A slug change rewrites the page's path
// and every descendant path.
func (s *Service) UpdatePage(ctx context.Context, id uuid.UUID, in PageUpdate) (*models.Page, error) {
	var updated *models.Page
	err := s.repo.InTx(ctx, func(tx Repository) error {
		page, err := tx.FindPageByID(ctx, id)
		if err != nil {
			return err
		}
		if page == nil {
			return ErrPageNotFound
		}

		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return ErrTitleRequired
			}
			page.Title = title
		}
		if in.IsDraft != nil {
			page.IsDraft = *in.IsDraft
		}
		if in.ShowOnMenu != nil {
			page.ShowOnMenu = *in.ShowOnMenu
		}
		if err := tx.UpdatePage(ctx, page); err != nil {
			return err
		}

		if in.Slug != nil {
			newSlug := slug.Generate(*in.Slug)
			if newSlug == "" {
				return ErrSlugRequired
			}
			if newSlug != page.Slug {
				if _, err := NewUpdater(tx).UpdateFullPathForSlugChange(ctx, id, newSlug); err != nil {
					return err
				}
			}
		}

		updated, err = tx.FindPageByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update page %s: %w", id, err)
	}
	return updated, nil
}

// MovePage reparents a single page. The new parent may not be the page itself
// or one of its descendants. A negative sortOrder appends the page after its
// new siblings.
func (s *Service) MovePage(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, sortOrder int) (*models.Page, error) {
	var moved *models.Page
	err := s.repo.InTx(ctx, func(tx Repository) error {
		pages, err := tx.ListPages(ctx)
		if err != nil {
			return err
		}
		ix := newPathIndex(pages)

		page := ix.page(id)
		if page == nil {
			return ErrPageNotFound
		}
		parentPath := ""
		if parentID != nil {
			parent := ix.page(*parentID)
			if parent == nil {
				return ErrParentNotFound
			}
			if ix.wouldCycle(id, parentID) {
				return ErrParentCycle
			}
			if parentPath, err = ix.resolve(*parentID); err != nil {
				return err
			}
		}

		if err := ensurePathFree(ctx, tx, joinPath(parentPath, page.Slug), id); err != nil {
			return err
		}

		if sortOrder < 0 {
			if sortOrder, err = tx.NextSortOrder(ctx, parentID); err != nil {
				return err
			}
		}
		if err := tx.UpdatePlacement(ctx, id, parentID, sortOrder); err != nil {
			return err
		}
		if _, err := NewUpdater(tx).UpdateFullPathTree(ctx, id); err != nil {
			return err
		}

		moved, err = tx.FindPageByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("move page %s: %w", id, err)
	}
	return moved, nil
}

// DeletePage removes a page and its translations. Pages with children cannot
// be deleted.
func (s *Service) DeletePage(ctx context.Context, id uuid.UUID) error {
	err := s.repo.InTx(ctx, func(tx Repository) error {
		page, err := tx.FindPageByID(ctx, id)
		if err != nil {
			return err
		}
		if page == nil {
			return ErrPageNotFound
		}
		children, err := tx.ListChildren(ctx, id)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return ErrHasChildren
		}
		return tx.DeletePage(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	slog.Info("page deleted", "page_id", id)
	return nil
}

// RepairPaths rebuilds the tree and rewrites every reachable page's full
// path. Pages not reachable from the top level are left untouched.
func (s *Service) RepairPaths(ctx context.Context) (BatchResult, error) {
	var result BatchResult
	err := s.repo.InTx(ctx, func(tx Repository) error {
		pages, err := tx.ListPages(ctx)
		if err != nil {
			return err
		}
		tree, err := loadTree(ctx, tx)
		if err != nil {
			return err
		}
		if unreachable := len(pages) - countNodes(tree); unreachable > 0 {
			slog.Warn("pages unreachable from the top level were skipped", "count", unreachable)
		}
		result, err = NewUpdater(tx).UpdateFullPathsForTree(ctx, tree)
		return err
	})
	if err != nil {
		return result, fmt.Errorf("repair paths: %w", err)
	}
	return result, nil
}

// Translation returns one translation, or nil if it does not exist.
func (s *Service) Translation(ctx context.Context, pageID uuid.UUID, locale string) (*models.PageTranslation, error) {
	return s.repo.FindTranslation(ctx, pageID, locale)
}

// Translations lists every translation of a page.
func (s *Service) Translations(ctx context.Context, pageID uuid.UUID) ([]models.PageTranslation, error) {
	return s.repo.ListTranslationsByPage(ctx, pageID)
}

// SaveTranslation creates or replaces the translation of a page for locale.
func (s *Service) SaveTranslation(ctx context.Context, pageID uuid.UUID, locale string, in TranslationInput) (*models.PageTranslation, error) {
	if !slices.Contains(s.locales, locale) {
		return nil, ErrUnknownLocale
	}
	content := in.Content
	if len(content) == 0 {
		content = json.RawMessage(`{}`)
	}

	var saved *models.PageTranslation
	err := s.repo.InTx(ctx, func(tx Repository) error {
		page, err := tx.FindPageByID(ctx, pageID)
		if err != nil {
			return err
		}
		if page == nil {
			return ErrPageNotFound
		}
		saved, err = tx.UpsertTranslation(ctx, &models.PageTranslation{
			PageID:    pageID,
			Locale:    locale,
			Title:     strings.TrimSpace(in.Title),
			Content:   content,
			Published: in.Published,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save %s translation of %s: %w", locale, pageID, err)
	}
	return saved, nil
}

// DeleteTranslation removes one translation. The page itself is kept.
func (s *Service) DeleteTranslation(ctx context.Context, pageID uuid.UUID, locale string) error {
	if err := s.repo.DeleteTranslation(ctx, pageID, locale); err != nil {
		return fmt.Errorf("delete %s translation of %s: %w", locale, pageID, err)
	}
	return nil
}

// Published resolves a public URL path for a locale. It returns nil when the
// page does not exist, is a draft, or has no published translation.
func (s *Service) Published(ctx context.Context, locale, fullPath string) (*models.Page, *models.PageTranslation, error) {
	page, err := s.repo.FindPageByFullPath(ctx, fullPath)
	if err != nil || page == nil || page.IsDraft {
		return nil, nil, err
	}
	tr, err := s.repo.FindTranslation(ctx, page.ID, locale)
	if err != nil || tr == nil || !tr.Published {
		return nil, nil, err
	}
	return page, tr, nil
}

// Menu returns the public menu for a locale. Entries are labelled with the
// translation title when one is set, the page title otherwise.
func (s *Service) Menu(ctx context.Context, locale string) ([]MenuItem, error) {
	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	translations, err := s.repo.ListTranslations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list translations: %w", err)
	}
	titles := make(map[uuid.UUID]string)
	for _, t := range translations {
		if t.Locale == locale && t.Title != "" {
			titles[t.PageID] = t.Title
		}
	}

	menu := BuildMenu(tree, locale)
	relabel(menu, titles)
	return menu, nil
}

func relabel(items []MenuItem, titles map[uuid.UUID]string) {
	for i := range items {
		if title, ok := titles[items[i].ID]; ok {
			items[i].Title = title
		}
		relabel(items[i].Children, titles)
	}
}

// ensurePathFree fails with ErrPathConflict when another page than self
// already owns path.
func ensurePathFree(ctx context.Context, r Reader, path string, self uuid.UUID) error {
	existing, err := r.FindPageByFullPath(ctx, path)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return fmt.Errorf("%q: %w", path, ErrPathConflict)
	}
	return nil
}
