// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"daftar/internal/models"
)

// ErrInvalidInvitation is returned when no invitation matches an email and
// code without saying which of the two was wrong.
var ErrInvalidInvitation = errors.New("invalid email or invitation code")

// ErrInvitationNotFound is returned by Delete when no invitation has the id.
var ErrInvitationNotFound = errors.New("invitation not found")

// InvitationStore manages sign-in invitations.
type InvitationStore struct {
	db *sql.DB
}

// NewInvitationStore creates a new InvitationStore.
func NewInvitationStore(db *sql.DB) *InvitationStore {
	return &InvitationStore{db: db}
}

const invitationColumns = `id, email, code_hash, role, used_at, used_by, expires_at, created_at`

func scanInvitation(scanner interface{ Scan(...any) error }) (*models.Invitation, error) {
	var i models.Invitation
	err := scanner.Scan(
		&i.ID, &i.Email, &i.CodeHash, &i.Role,
		&i.UsedAt, &i.UsedBy, &i.ExpiresAt, &i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// normalizeEmail lowercases and trims an address so lookups are
// case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create stores a new invitation with a bcrypt-hashed code.
func (s *InvitationStore) Create(ctx context.Context, email, code string, role models.Role, expiresAt *time.Time) (*models.Invitation, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash invitation code: %w", err)
	}

	inv, err := scanInvitation(s.db.QueryRowContext(ctx, `
		INSERT INTO invitations (email, code_hash, role, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING `+invitationColumns,
		normalizeEmail(email), string(hash), role, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	return inv, nil
}

// ListByEmail returns the invitations issued to an email, newest first.
func (s *InvitationStore) ListByEmail(ctx context.Context, email string) ([]models.Invitation, error) {
	return listInvitations(ctx, s.db, normalizeEmail(email))
}

func listInvitations(ctx context.Context, q dbtx, email string) ([]models.Invitation, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE email = $1 ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var items []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		items = append(items, *inv)
	}
	return items, rows.Err()
}

// CheckCode verifies a plaintext code against the invitation's stored hash.
func CheckCode(inv *models.Invitation, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(inv.CodeHash), []byte(code)) == nil
}

// Redeem signs a user in with an invitation code. An unused, unexpired
// invitation is marked used and its user is created on first use. An
// invitation already redeemed keeps working for the user who redeemed it.
// Any mismatch returns ErrInvalidInvitation.
func (s *InvitationStore) Redeem(ctx context.Context, email, code string, now time.Time) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || code == "" {
		return nil, ErrInvalidInvitation
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	invitations, err := listInvitations(ctx, tx, email)
	if err != nil {
		return nil, err
	}

	users := &UserStore{db: tx}
	for i := range invitations {
		inv := &invitations[i]
		if !CheckCode(inv, code) {
			continue
		}

		if inv.IsUsed() {
			if inv.UsedBy == nil {
				continue
			}
			u, err := users.FindByID(ctx, *inv.UsedBy)
			if err != nil || u == nil {
				return nil, errors.Join(ErrInvalidInvitation, err)
			}
			return u, tx.Commit()
		}
		if inv.IsExpired(now) {
			continue
		}

		u, err := users.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if u == nil {
			if u, err = users.Create(ctx, email, displayNameFromEmail(email), inv.Role); err != nil {
				return nil, err
			}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE invitations SET used_at = $1, used_by = $2
			WHERE id = $3 AND used_at IS NULL
		`, now, u.ID, inv.ID); err != nil {
			return nil, fmt.Errorf("mark invitation used: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		return u, nil
	}
	return nil, ErrInvalidInvitation
}

// displayNameFromEmail uses the local part of an address as a starting
// display name.
func displayNameFromEmail(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

// Delete revokes an invitation. A redeemed invitation can be deleted too;
// its user then cannot sign in again with that code.
func (s *InvitationStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	return expectOne(res, ErrInvitationNotFound)
}
