// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"net/mail"
	"strings"
	"unicode/utf8"

	"daftar/internal/pagetree"
)

// Validation limits for page and translation fields.
const (
	maxTitleLen        = 300
	maxSlugLen         = 300
	maxContentBytes    = 1 << 20
	maxInvitationEmail = 254
)

// validatePage checks the title and slug of a page request. Empty strings
// are accepted here; required fields are enforced by the page tree.
func validatePage(title, slug string) fieldErrors {
	errs := fieldErrors{}
	if utf8.RuneCountInString(strings.TrimSpace(title)) > maxTitleLen {
		errs["title"] = "title is too long (max 300 characters)"
	}
	if utf8.RuneCountInString(slug) > maxSlugLen {
		errs["slug"] = "slug is too long (max 300 characters)"
	}
	return errs
}

// validateNewPage checks a create request.
func validateNewPage(in pagetree.NewPage) fieldErrors {
	errs := validatePage(in.Title, in.Slug)
	if strings.TrimSpace(in.Title) == "" {
		errs["title"] = "title is required"
	}
	return errs
}

// validatePageUpdate checks an update request.
func validatePageUpdate(in pagetree.PageUpdate) fieldErrors {
	var title, slug string
	if in.Title != nil {
		title = *in.Title
	}
	if in.Slug != nil {
		slug = *in.Slug
	}
	errs := validatePage(title, slug)
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		errs["title"] = "title cannot be empty"
	}
	return errs
}

// validateTranslation checks a translation request. Content must be a JSON
// object when present.
func validateTranslation(in pagetree.TranslationInput) fieldErrors {
	errs := validatePage(in.Title, "")
	if len(in.Content) > maxContentBytes {
		errs["content"] = "content is too large (max 1 MiB)"
	} else if len(in.Content) > 0 {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(in.Content, &doc); err != nil {
			errs["content"] = "content must be a JSON object"
		}
	}
	return errs
}

// validateEmail checks an email address field.
func validateEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return "email is required"
	}
	if len(email) > maxInvitationEmail {
		return "email is too long"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "email is not valid"
	}
	return ""
}
