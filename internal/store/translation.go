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

	"daftar/internal/models"
)

const translationColumns = `id, page_id, locale, title, content, published, created_at, updated_at`

func scanTranslation(scanner interface{ Scan(...any) error }) (*models.PageTranslation, error) {
	var t models.PageTranslation
	var content []byte
	err := scanner.Scan(
		&t.ID, &t.PageID, &t.Locale, &t.Title, &content,
		&t.Published, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Content = content
	return &t, nil
}

func (s *PageStore) queryTranslations(ctx context.Context, op, query string, args ...any) ([]models.PageTranslation, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var items []models.PageTranslation
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		items = append(items, *t)
	}
	return items, rows.Err()
}

// ListTranslations returns every translation, grouped by page and ordered
// by locale within a page.
func (s *PageStore) ListTranslations(ctx context.Context) ([]models.PageTranslation, error) {
	return s.queryTranslations(ctx, "list translations",
		`SELECT `+translationColumns+` FROM page_translations ORDER BY page_id, locale`)
}

// ListTranslationsByPage returns the translations of one page ordered by
// locale.
func (s *PageStore) ListTranslationsByPage(ctx context.Context, pageID uuid.UUID) ([]models.PageTranslation, error) {
	return s.queryTranslations(ctx, "list page translations",
		`SELECT `+translationColumns+` FROM page_translations WHERE page_id = $1 ORDER BY locale`, pageID)
}

// FindTranslation retrieves one translation. Returns nil if not found.
func (s *PageStore) FindTranslation(ctx context.Context, pageID uuid.UUID, locale string) (*models.PageTranslation, error) {
	t, err := scanTranslation(s.q.QueryRowContext(ctx,
		`SELECT `+translationColumns+` FROM page_translations WHERE page_id = $1 AND locale = $2`,
		pageID, locale))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find translation: %w", err)
	}
	return t, nil
}

// UpsertTranslation creates the translation of a page for a locale, or
// replaces its title, content and published flag if it exists.
func (s *PageStore) UpsertTranslation(ctx context.Context, t *models.PageTranslation) (*models.PageTranslation, error) {
	content := []byte(t.Content)
	if len(content) == 0 {
		content = []byte(`{}`)
	}
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO page_translations (page_id, locale, title, content, published)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (page_id, locale) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			published = EXCLUDED.published,
			updated_at = NOW()
		RETURNING `+translationColumns,
		t.PageID, t.Locale, t.Title, string(content), t.Published,
	)
	saved, err := scanTranslation(row)
	if err != nil {
		return nil, fmt.Errorf("upsert translation: %w", mapPgError(err))
	}
	return saved, nil
}

// DeleteTranslation removes one translation. Deleting a missing translation
// is not an error.
func (s *PageStore) DeleteTranslation(ctx context.Context, pageID uuid.UUID, locale string) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM page_translations WHERE page_id = $1 AND locale = $2`, pageID, locale)
	if err != nil {
		return fmt.Errorf("delete translation: %w", err)
	}
	return nil
}
