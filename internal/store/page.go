// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"daftar/internal/models"
	"daftar/internal/pagetree"
)

// Postgres error codes mapped onto domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// dbtx is the subset of *sql.DB and *sql.Tx the page queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// expectOne returns notFound when res touched no rows.
func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// PageStore manages pages and their translations in PostgreSQL. It
// implements pagetree.Repository.
type PageStore struct {
	db *sql.DB // nil inside a transaction
	q  dbtx
}

// NewPageStore returns a new PageStore.
func NewPageStore(db *sql.DB) *PageStore {
	return &PageStore{db: db, q: db}
}

var _ pagetree.Repository = (*PageStore)(nil)

const pageColumns = `id, title, slug, is_draft, show_on_menu, parent_id, sort_order, full_path, created_at, updated_at`

// scanPage scans a row into a Page struct.
func scanPage(scanner interface{ Scan(...any) error }) (*models.Page, error) {
	var p models.Page
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Slug, &p.IsDraft, &p.ShowOnMenu,
		&p.ParentID, &p.SortOrder, &p.FullPath, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PageStore) queryPages(ctx context.Context, op, query string, args ...any) ([]models.Page, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var pages []models.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

func (s *PageStore) findPage(ctx context.Context, op, query string, args ...any) (*models.Page, error) {
	p, err := scanPage(s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPages returns every page ordered by parent and sort order.
func (s *PageStore) ListPages(ctx context.Context) ([]models.Page, error) {
	return s.queryPages(ctx, "list pages",
		`SELECT `+pageColumns+` FROM pages ORDER BY parent_id NULLS FIRST, sort_order, created_at`)
}

// FindPageByID retrieves a page by ID. Returns nil if not found.
func (s *PageStore) FindPageByID(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	return s.findPage(ctx, "find page by id",
		`SELECT `+pageColumns+` FROM pages WHERE id = $1`, id)
}

// FindPageByFullPath retrieves a page by its materialized path. Returns nil
// if not found.
func (s *PageStore) FindPageByFullPath(ctx context.Context, fullPath string) (*models.Page, error) {
	return s.findPage(ctx, "find page by full path",
		`SELECT `+pageColumns+` FROM pages WHERE full_path = $1`, fullPath)
}

// ListChildren returns the direct children of a page in sort order.
func (s *PageStore) ListChildren(ctx context.Context, parentID uuid.UUID) ([]models.Page, error) {
	return s.queryPages(ctx, "list children",
		`SELECT `+pageColumns+` FROM pages WHERE parent_id = $1 ORDER BY sort_order, created_at`, parentID)
}

// ListByFullPathPrefix returns pages whose full path starts with prefix. The
// comparison is literal, so "_" and "%" in slugs match only themselves.
func (s *PageStore) ListByFullPathPrefix(ctx context.Context, prefix string) ([]models.Page, error) {
	return s.queryPages(ctx, "list by full path prefix",
		`SELECT `+pageColumns+` FROM pages WHERE left(full_path, length($1)) = $1 ORDER BY full_path`, prefix)
}

// NextSortOrder returns the next sort_order value for a given parent.
func (s *PageStore) NextSortOrder(ctx context.Context, parentID *uuid.UUID) (int, error) {
	var maxOrder sql.NullInt64
	var err error
	if parentID == nil {
		err = s.q.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM pages WHERE parent_id IS NULL`).Scan(&maxOrder)
	} else {
		err = s.q.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM pages WHERE parent_id = $1`, *parentID).Scan(&maxOrder)
	}
	if err != nil {
		return 0, fmt.Errorf("next sort order: %w", err)
	}
	if maxOrder.Valid {
		return int(maxOrder.Int64) + 1, nil
	}
	return 0, nil
}

// CreatePage inserts a new page and returns it.
func (s *PageStore) CreatePage(ctx context.Context, p *models.Page) (*models.Page, error) {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO pages (title, slug, is_draft, show_on_menu, parent_id, sort_order, full_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+pageColumns,
		p.Title, p.Slug, p.IsDraft, p.ShowOnMenu, p.ParentID, p.SortOrder, p.FullPath,
	)
	created, err := scanPage(row)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", mapPgError(err))
	}
	return created, nil
}

// UpdatePage writes the title, draft and menu flags. Slug, parent and path
// have their own methods so paths are only changed through pagetree.
func (s *PageStore) UpdatePage(ctx context.Context, p *models.Page) error {
	return s.execOne(ctx, "update page", `
		UPDATE pages SET title = $1, is_draft = $2, show_on_menu = $3, updated_at = NOW()
		WHERE id = $4
	`, p.Title, p.IsDraft, p.ShowOnMenu, p.ID)
}

// UpdateFullPath stores a page's materialized path.
// Inside a transaction each write runs under a savepoint, so one failed row
// of a batch does not abort the rest of the transaction.
func (s *PageStore) UpdateFullPath(ctx context.Context, id uuid.UUID, fullPath string) error {
	return s.savepoint(ctx, "full_path", func() error {
		return s.execOne(ctx, "update full path",
			`UPDATE pages SET full_path = $1, updated_at = NOW() WHERE id = $2`, fullPath, id)
	})
}

// savepoint runs fn under a named savepoint when the store is bound to a
// transaction and rolls back to it if fn fails. Outside a transaction fn
// runs as is.
func (s *PageStore) savepoint(ctx context.Context, name string, fn func() error) error {
	if s.db != nil {
		return fn()
	}
	if _, err := s.q.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	if err := fn(); err != nil {
		if _, rbErr := s.q.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to savepoint %s: %w", name, rbErr))
		}
		return err
	}
	if _, err := s.q.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint %s: %w", name, err)
	}
	return nil
}

// UpdateSlug stores a page's slug.
func (s *PageStore) UpdateSlug(ctx context.Context, id uuid.UUID, slug string) error {
	return s.execOne(ctx, "update slug",
		`UPDATE pages SET slug = $1, updated_at = NOW() WHERE id = $2`, slug, id)
}

// UpdatePlacement stores a page's parent and sort order.
func (s *PageStore) UpdatePlacement(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, sortOrder int) error {
	return s.execOne(ctx, "update placement",
		`UPDATE pages SET parent_id = $1, sort_order = $2, updated_at = NOW() WHERE id = $3`,
		parentID, sortOrder, id)
}

// DeletePage removes a page by ID. Translations go with it (ON DELETE
// CASCADE); pages that still have children are refused (ON DELETE RESTRICT).
func (s *PageStore) DeletePage(ctx context.Context, id uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM pages WHERE id = $1`, id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return fmt.Errorf("delete page: %w", errors.Join(pagetree.ErrHasChildren, err))
	}
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete page: %w", pagetree.ErrPageNotFound)
	}
	return nil
}

// InTx runs fn with a PageStore bound to a single transaction. It commits
// when fn returns nil and rolls back otherwise. Called on a store that is
// already inside a transaction, fn joins it.
func (s *PageStore) InTx(ctx context.Context, fn func(pagetree.Repository) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&PageStore{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapPgError(err))
	}
	return nil
}

// execOne runs a statement that must touch exactly one row.
func (s *PageStore) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapPgError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, pagetree.ErrPageNotFound)
	}
	return nil
}

// mapPgError translates constraint violations into pagetree errors. The
// original error stays in the chain.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		if pgErr.ConstraintName == "pages_full_path_key" {
			return errors.Join(pagetree.ErrPathConflict, err)
		}
	case pgForeignKeyViolation:
		switch pgErr.ConstraintName {
		case "pages_parent_id_fkey":
			return errors.Join(pagetree.ErrParentNotFound, err)
		case "page_translations_page_id_fkey":
			return errors.Join(pagetree.ErrPageNotFound, err)
		}
	}
	return err
}
