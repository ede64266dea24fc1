// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Development credentials created by Seed.
const (
	SeedAdminEmail = "admin@daftar.local"
	SeedAdminCode  = "welcome-admin"
)

type seedPage struct {
	title, slug, fullPath string
	parent                int // index into the seed list, -1 for top level
	titles                map[string]string
}

var seedPages = []seedPage{
	{title: "Home", slug: "home", fullPath: "home", parent: -1,
		titles: map[string]string{"en": "Home", "fa": "خانه"}},
	{title: "About", slug: "about", fullPath: "home/about", parent: 0,
		titles: map[string]string{"en": "About", "fa": "درباره"}},
	{title: "Team", slug: "team", fullPath: "home/about/team", parent: 1,
		titles: map[string]string{"en": "Team", "fa": "تیم"}},
}

// Seed populates an empty database with development data: an admin
// invitation and a small Home > About > Team page tree translated into
// every locale. It does nothing if any invitation or page exists.
func Seed(ctx context.Context, db *sql.DB, locales []string) error {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT (SELECT COUNT(*) FROM invitations) + (SELECT COUNT(*) FROM pages)").Scan(&count)
	if err != nil {
		return fmt.Errorf("seed check: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedAdminCode), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO invitations (email, code_hash, role) VALUES ($1, $2, 'admin')
	`, SeedAdminEmail, string(hash)); err != nil {
		return fmt.Errorf("seed insert invitation: %w", err)
	}

	ids := make([]uuid.UUID, len(seedPages))
	for i, p := range seedPages {
		var parentID *uuid.UUID
		if p.parent >= 0 {
			parentID = &ids[p.parent]
		}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO pages (title, slug, is_draft, show_on_menu, parent_id, sort_order, full_path)
			VALUES ($1, $2, FALSE, TRUE, $3, 0, $4)
			RETURNING id
		`, p.title, p.slug, parentID, p.fullPath).Scan(&ids[i])
		if err != nil {
			return fmt.Errorf("seed insert page %s: %w", p.fullPath, err)
		}

		for _, locale := range locales {
			title := p.titles[locale]
			if title == "" {
				title = p.title
			}
			content := fmt.Sprintf(`{"content":[{"type":"heading","text":%q}]}`, title)
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO page_translations (page_id, locale, title, content, published)
				VALUES ($1, $2, $3, $4, TRUE)
			`, ids[i], locale, title, content); err != nil {
				return fmt.Errorf("seed insert translation %s/%s: %w", p.fullPath, locale, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded",
		"admin_email", SeedAdminEmail,
		"admin_code", SeedAdminCode,
		"pages", len(seedPages),
	)
	return nil
}
