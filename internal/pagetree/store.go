// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pagetree

import (
	"context"

	"github.com/google/uuid"

	"daftar/internal/models"
)

// Reader is the read side of the page store. Single-row lookups return
// nil, nil when the row does not exist.
type Reader interface {
	ListPages(ctx context.Context) ([]models.Page, error)
	FindPageByID(ctx context.Context, id uuid.UUID) (*models.Page, error)
	FindPageByFullPath(ctx context.Context, fullPath string) (*models.Page, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]models.Page, error)
	ListByFullPathPrefix(ctx context.Context, prefix string) ([]models.Page, error)
	ListTranslations(ctx context.Context) ([]models.PageTranslation, error)
}

// Writer is the write side used by path maintenance. Each method returns
// ErrPageNotFound when no row matched.
type Writer interface {
	UpdateFullPath(ctx context.Context, id uuid.UUID, fullPath string) error
	UpdateSlug(ctx context.Context, id uuid.UUID, slug string) error
	UpdatePlacement(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, sortOrder int) error
}

// Store is everything the path updater needs.
type Store interface {
	Reader
	Writer
}

// Repository adds the page CRUD and translation operations used by Service,
// plus a unit of work. Inside InTx every call goes through the transaction
// handed to fn; a non-nil return rolls everything back.
type Repository interface {
	Store

	CreatePage(ctx context.Context, p *models.Page) (*models.Page, error)
	UpdatePage(ctx context.Context, p *models.Page) error
	DeletePage(ctx context.Context, id uuid.UUID) error
	NextSortOrder(ctx context.Context, parentID *uuid.UUID) (int, error)

	FindTranslation(ctx context.Context, pageID uuid.UUID, locale string) (*models.PageTranslation, error)
	ListTranslationsByPage(ctx context.Context, pageID uuid.UUID) ([]models.PageTranslation, error)
	UpsertTranslation(ctx context.Context, t *models.PageTranslation) (*models.PageTranslation, error)
	DeleteTranslation(ctx context.Context, pageID uuid.UUID, locale string) error

	InTx(ctx context.Context, fn func(Repository) error) error
}
