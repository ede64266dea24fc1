// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package session keeps admin sign-ins in Valkey. The browser only holds an
// opaque id in a cookie scoped to /admin; the payload lives under
// session:{id} and expires after DefaultTTL without activity. Every user
// also has an index set so all of their sessions can be revoked at once.
package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "daftar_session"

	// DefaultTTL is the idle time after which a session expires.
	DefaultTTL = 12 * time.Hour

	cookiePath    = "/admin"
	keyPrefix     = "session:"
	userKeyPrefix = "session:user:"
)

// ErrNoSession is returned by Update when the request carries no live session.
var ErrNoSession = errors.New("session: no active session")

// Data holds the session payload stored in Valkey: the signed-in editor
// and the content locale they work in.
type Data struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	Locale      string    `json:"locale,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsAdmin reports whether the session belongs to an admin.
func (d *Data) IsAdmin() bool {
	return d.Role == "admin"
}

// Store manages session lifecycle in Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// NewStore creates a session store backed by the given Valkey client.
// secure marks the cookie Secure; set it when serving over TLS.
func NewStore(client *redis.Client, secure bool) *Store {
	return &Store{
		client: client,
		ttl:    DefaultTTL,
		secure: secure,
	}
}

func sessionKey(id string) string { return keyPrefix + id }

func userKey(userID uuid.UUID) string { return userKeyPrefix + userID.String() }

// Create stores a new session for data.UserID and sets the cookie.
// Returns the session id.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id := rand.Text()
	data.CreatedAt = time.Now().UTC()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("session marshal: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(id), payload, s.ttl)
		pipe.SAdd(ctx, userKey(data.UserID), id)
		pipe.Expire(ctx, userKey(data.UserID), s.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	s.setCookie(w, id, 0)
	return id, nil
}

// Get returns the session named by the request cookie and pushes its expiry
// out by the idle TTL. A missing cookie or an expired session gives nil, nil.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	payload, err := s.client.GetEx(ctx, sessionKey(cookie.Value), s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	// The user index must outlive every session it lists.
	s.client.Expire(ctx, userKey(data.UserID), s.ttl)
	return &data, nil
}

// Update replaces the payload of the live session in place. The id, the
// cookie and the remaining TTL are kept.
func (s *Store) Update(ctx context.Context, r *http.Request, data *Data) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ErrNoSession
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}

	err = s.client.SetArgs(ctx, sessionKey(cookie.Value), payload, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrNoSession
	}
	if err != nil {
		return fmt.Errorf("session update: %w", err)
	}
	return nil
}

// Destroy ends the request's session and expires the cookie. A request
// without a session is not an error.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	s.setCookie(w, "", -1)

	payload, err := s.client.GetDel(ctx, sessionKey(cookie.Value)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}

	var data Data
	if json.Unmarshal(payload, &data) == nil {
		s.client.SRem(ctx, userKey(data.UserID), cookie.Value)
	}
	return nil
}

// DestroyUser revokes every session of a user and returns how many were
// still live.
func (s *Store) DestroyUser(ctx context.Context, userID uuid.UUID) (int, error) {
	ids, err := s.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("session list for user %s: %w", userID, err)
	}

	var n int64
	if len(ids) > 0 {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = sessionKey(id)
		}
		if n, err = s.client.Del(ctx, keys...).Result(); err != nil {
			return 0, fmt.Errorf("session revoke for user %s: %w", userID, err)
		}
	}
	if err := s.client.Del(ctx, userKey(userID)).Err(); err != nil {
		return int(n), fmt.Errorf("session revoke for user %s: %w", userID, err)
	}
	return int(n), nil
}

// setCookie writes the session cookie. maxAge 0 makes it a browser-session
// cookie; Valkey enforces the idle expiry.
func (s *Store) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     cookiePath,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
}
