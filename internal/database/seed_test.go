// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"testing"
)

func TestSeedIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Connect(ctx, testDSN())
	if err != nil {
		t.Skipf("skipping: DB not available: %v", err)
	}
	defer db.Close()

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	// Seed only writes into an empty database. Other packages may share it,
	// so it is not cleared first.
	locales := []string{"en", "fa"}
	if err := Seed(ctx, db, locales); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	if err := Seed(ctx, db, locales); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	var invites int
	if err := db.QueryRow("SELECT COUNT(*) FROM invitations WHERE email = $1", SeedAdminEmail).Scan(&invites); err != nil {
		t.Fatalf("count invitations: %v", err)
	}
	var pages int
	if err := db.QueryRow("SELECT COUNT(*) FROM pages").Scan(&pages); err != nil {
		t.Fatalf("count pages: %v", err)
	}
	if invites == 0 && pages == 0 {
		t.Error("expected seeded invitation or pages")
	}
	if invites > 1 {
		t.Errorf("seed ran twice: %d admin invitations", invites)
	}
}
