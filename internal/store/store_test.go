// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Store tests run against PostgreSQL and skip when it is not reachable.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"daftar/internal/database"
)

// testDSN builds the connection string from the same variables and
// defaults as config.Load.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "daftar")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "daftar")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Connect(context.Background(), testDSN())
	if err != nil {
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// cleanUsers removes test users by email. Call in t.Cleanup().
func cleanUsers(t *testing.T, db *sql.DB, emails ...string) {
	t.Helper()
	for _, email := range emails {
		db.Exec("DELETE FROM invitations WHERE email = $1", email)
		db.Exec("DELETE FROM users WHERE email = $1", email)
	}
}

// cleanPages removes test pages whose full path starts with prefix. Leaves
// go first so the parent restriction is never hit.
func cleanPages(t *testing.T, db *sql.DB, prefix string) {
	t.Helper()
	for range 8 {
		db.Exec(`DELETE FROM pages WHERE left(full_path, length($1)) = $1
			AND id NOT IN (SELECT parent_id FROM pages WHERE parent_id IS NOT NULL)`, prefix)
	}
}
