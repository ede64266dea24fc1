// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// The {page} hash tag keeps the generation counter and every entry in
	// one cluster slot, so the scripts below only touch keys they declare
	// in KEYS and stay valid on a Valkey cluster.
	pageKeyPrefix = "{page}:"
	generationKey = pageKeyPrefix + "generation"

	// DefaultPageTTL is how long a rendered page stays cached.
	DefaultPageTTL = 5 * time.Minute
)

// Each cached page is a hash under {page}:{locale}:{fullPath} holding the
// rendered html and the generation it was rendered in. Clearing the cache
// bumps the generation; an entry of an older generation reads as a miss.
//
// Get returns the generation it saw and Set writes only while that is still
// current, so a render that raced an invalidation is dropped instead of
// being stored as fresh.
var (
	getPageScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[1]) or '0'
local entry = redis.call('HMGET', KEYS[2], 'gen', 'html')
if entry[1] == gen then
  return {gen, entry[2]}
end
return {gen}
`)
	setPageScript = redis.NewScript(`
if (redis.call('GET', KEYS[1]) or '0') ~= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[2], 'gen', ARGV[1], 'html', ARGV[2])
redis.call('PEXPIRE', KEYS[2], ARGV[3])
return 1
`)
)

// PageCache stores rendered public pages in Valkey keyed by locale and full
// path. Errors talking to Valkey are logged and treated as misses.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPageCache creates a new page cache backed by the given Valkey client.
// A zero ttl uses DefaultPageTTL.
func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	if ttl == 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl}
}

// Key returns the Valkey key of a page in one locale.
func Key(locale, fullPath string) string {
	return pageKeyPrefix + locale + ":" + fullPath
}

// Get retrieves cached HTML of the current generation. The bool is false
// on a miss. The returned generation is the one to hand to Set after
// rendering; it is -1 when Valkey could not be read.
func (pc *PageCache) Get(ctx context.Context, locale, fullPath string) ([]byte, int64, bool) {
	reply, err := getPageScript.Run(ctx, pc.client, []string{generationKey, Key(locale, fullPath)}).Slice()
	if err != nil {
		slog.Warn("page cache get error", "locale", locale, "full_path", fullPath, "error", err)
		return nil, -1, false
	}
	gen, err := strconv.ParseInt(fmt.Sprint(reply[0]), 10, 64)
	if err != nil {
		slog.Warn("page cache generation unreadable", "value", reply[0], "error", err)
		return nil, -1, false
	}
	if len(reply) < 2 {
		return nil, gen, false
	}
	html, _ := reply[1].(string)
	slog.Debug("page cache hit", "locale", locale, "full_path", fullPath, "generation", gen)
	return []byte(html), gen, true
}

// Set stores rendered HTML with the configured TTL, but only if the cache
// is still at generation. It reports whether the entry was written. A
// negative generation never writes.
func (pc *PageCache) Set(ctx context.Context, generation int64, locale, fullPath string, html []byte) bool {
	if generation < 0 {
		return false
	}
	stored, err := setPageScript.Run(ctx, pc.client, []string{generationKey, Key(locale, fullPath)},
		generation, html, pc.ttl.Milliseconds()).Int()
	if err != nil {
		slog.Warn("page cache set error", "locale", locale, "full_path", fullPath, "error", err)
		return false
	}
	if stored == 0 {
		slog.Debug("page cache set skipped, generation moved", "locale", locale, "full_path", fullPath, "generation", generation)
	}
	return stored == 1
}

// InvalidateAll retires every cached page by moving to a new generation.
// Any tree change can alter the menu rendered on every page, so mutations
// clear the whole cache.
func (pc *PageCache) InvalidateAll(ctx context.Context) {
	gen, err := pc.client.Incr(ctx, generationKey).Result()
	if err != nil {
		slog.Warn("page cache invalidate error", "error", err)
		return
	}
	slog.Info("page cache cleared", "generation", gen)
}
