// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

const localeKey contextKey = "locale"

// LocaleMatcher picks the best supported content locale for a request.
type LocaleMatcher struct {
	locales []string
	matcher language.Matcher
}

// NewLocaleMatcher builds a matcher over the supported locales. The first
// entry of locales must be the default; it wins when nothing matches.
func NewLocaleMatcher(locales []string) *LocaleMatcher {
	tags := make([]language.Tag, 0, len(locales))
	for _, l := range locales {
		tags = append(tags, language.Make(l))
	}
	return &LocaleMatcher{locales: locales, matcher: language.NewMatcher(tags)}
}

// Match returns the supported locale closest to an Accept-Language value.
// Malformed headers fall back to the default locale.
func (m *LocaleMatcher) Match(acceptLanguage string) string {
	if len(m.locales) == 0 {
		return ""
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return m.locales[0]
	}
	_, index, confidence := m.matcher.Match(prefs...)
	if confidence == language.No {
		return m.locales[0]
	}
	return m.locales[index]
}

// Locale negotiates the request locale from Accept-Language and stores it
// in the context for LocaleFromCtx.
func Locale(m *LocaleMatcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := m.Match(r.Header.Get("Accept-Language"))
			w.Header().Add("Vary", "Accept-Language")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), localeKey, locale)))
		})
	}
}

// LocaleFromCtx returns the negotiated locale, or "" if Locale did not run.
func LocaleFromCtx(ctx context.Context) string {
	locale, _ := ctx.Value(localeKey).(string)
	return locale
}
