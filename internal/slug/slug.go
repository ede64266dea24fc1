// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings.
// Letters and digits of any script are kept, so Farsi titles produce Farsi
// slugs.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	zwnj    = '\u200c' // zero-width non-joiner, splits Persian compound words
	tatweel = '\u0640' // Arabic kashida, purely typographic
)

// Generate creates a URL-friendly slug from the given string.
// Example: "Hello, World! 2026" → "hello-world-2026", "درباره ما" → "درباره-ما".
// Whitespace, hyphens and ZWNJ separate words; other punctuation is dropped.
func Generate(s string) string {
	s = strings.ToLower(norm.NFKC.String(s))

	var b strings.Builder
	separate := false
	for _, r := range s {
		r = persianForm(r)
		switch {
		case r == tatweel:
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if separate && b.Len() > 0 {
				b.WriteByte('-')
			}
			separate = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == zwnj:
			separate = true
		}
	}
	return b.String()
}

// persianForm maps the Arabic code points for yeh and kaf, which Arabic
// keyboard layouts produce, onto the Persian letters so the same word always
// yields the same slug.
func persianForm(r rune) rune {
	switch r {
	case '\u064a', '\u0649': // ي ى
		return '\u06cc' // ی
	case '\u0643': // ك
		return '\u06a9' // ک
	}
	return r
}
