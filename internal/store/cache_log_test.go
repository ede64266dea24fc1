// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCacheLogStoreLog(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := NewCacheLogStore(db)

	entityID := uuid.New()
	t.Cleanup(func() {
		db.Exec("DELETE FROM cache_invalidation_log WHERE entity_id = $1", entityID)
	})

	s.Log(ctx, "page", entityID, ActionUpdate)

	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM cache_invalidation_log WHERE entity_id = $1", entityID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 log entry, got %d", count)
	}
}

func TestCacheLogStoreRecentEntries(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := NewCacheLogStore(db)

	id1 := uuid.New()
	id2 := uuid.New()
	t.Cleanup(func() {
		db.Exec("DELETE FROM cache_invalidation_log WHERE entity_id IN ($1, $2)", id1, id2)
	})

	s.Log(ctx, "page", id1, ActionCreate)
	s.Log(ctx, "page", id2, ActionDelete)

	entries, err := s.RecentEntries(ctx, 10)
	if err != nil {
		t.Fatalf("RecentEntries: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least 2 entries, got %d", len(entries))
	}
	if entries[0].InvalidatedAt.Before(entries[1].InvalidatedAt) {
		t.Error("expected entries ordered by invalidated_at DESC")
	}
}

func TestCacheLogStoreEntriesFor(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := NewCacheLogStore(db)

	target, other := uuid.New(), uuid.New()
	t.Cleanup(func() {
		db.Exec("DELETE FROM cache_invalidation_log WHERE entity_id IN ($1, $2)", target, other)
	})

	s.Log(ctx, "page", target, ActionCreate)
	s.Log(ctx, "page", other, ActionCreate)
	s.Log(ctx, "translation", target, ActionUpdate)

	entries, err := s.EntriesFor(ctx, target, 10)
	if err != nil {
		t.Fatalf("EntriesFor: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v, want 2", entries)
	}
	for _, e := range entries {
		if e.EntityID != target {
			t.Errorf("entry for %s leaked into %s", e.EntityID, target)
		}
	}
	if entries[0].Action != ActionUpdate {
		t.Errorf("newest action = %q, want %q", entries[0].Action, ActionUpdate)
	}
}

func TestCacheLogStorePrune(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := NewCacheLogStore(db)

	old, recent := uuid.New(), uuid.New()
	t.Cleanup(func() {
		db.Exec("DELETE FROM cache_invalidation_log WHERE entity_id IN ($1, $2)", old, recent)
	})

	s.Log(ctx, "page", old, ActionDelete)
	if _, err := db.Exec(
		"UPDATE cache_invalidation_log SET invalidated_at = NOW() - INTERVAL '60 days' WHERE entity_id = $1", old,
	); err != nil {
		t.Fatalf("age entry: %v", err)
	}
	s.Log(ctx, "page", recent, ActionUpdate)

	n, err := s.Prune(ctx, time.Now().Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n < 1 {
		t.Errorf("pruned %d rows, want at least 1", n)
	}
	if entries, _ := s.EntriesFor(ctx, old, 10); len(entries) != 0 {
		t.Error("old entry survived Prune")
	}
	if entries, _ := s.EntriesFor(ctx, recent, 10); len(entries) != 1 {
		t.Error("recent entry was pruned")
	}
}
