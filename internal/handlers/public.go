// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"daftar/internal/middleware"
	"daftar/internal/pagetree"
	"daftar/internal/render"
)

// homeSlug is the full path served at a bare locale root.
const homeSlug = "home"

// Public serves the localized public site. Rendered pages are cached in
// Valkey; concurrent misses for the same page are rendered once.
type Public struct {
	pages         *pagetree.Service
	renderer      *render.Renderer
	pageCache     PageCache
	defaultLocale string
	group         singleflight.Group
}

// NewPublic creates the Public handler group.
func NewPublic(pages *pagetree.Service, renderer *render.Renderer, pageCache PageCache, defaultLocale string) *Public {
	return &Public{
		pages:         pages,
		renderer:      renderer,
		pageCache:     pageCache,
		defaultLocale: defaultLocale,
	}
}

// Root redirects to the home page of the negotiated locale.
func (p *Public) Root(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromCtx(r.Context())
	if locale == "" {
		locale = p.defaultLocale
	}
	http.Redirect(w, r, "/"+locale, http.StatusFound)
}

// Page serves /{locale} and /{locale}/*.
func (p *Public) Page(w http.ResponseWriter, r *http.Request) {
	locale := chi.URLParam(r, "locale")
	if !slices.Contains(p.pages.Locales(), locale) {
		http.NotFound(w, r)
		return
	}
	fullPath := strings.Trim(chi.URLParam(r, "*"), "/")
	if fullPath == "" {
		fullPath = homeSlug
	}

	ctx := r.Context()
	cached, gen, ok := p.pageCache.Get(ctx, locale, fullPath)
	if ok {
		writeHTML(w, cached, "HIT")
		return
	}

	// Renders are shared between waiting requests, so one caller going away
	// must not cancel the others. Requests that missed in different cache
	// generations do not share a render.
	key := strconv.FormatInt(gen, 10) + ":" + locale + ":" + fullPath
	v, err, _ := p.group.Do(key, func() (any, error) {
		return p.render(context.WithoutCancel(ctx), gen, locale, fullPath)
	})
	if err != nil {
		slog.Error("render public page failed", "error", err, "locale", locale, "full_path", fullPath)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	html, _ := v.([]byte)
	if html == nil {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, html, "MISS")
}

// render builds a page and caches it if the cache is still at generation
// gen. It returns nil when nothing is published at fullPath in locale.
func (p *Public) render(ctx context.Context, gen int64, locale, fullPath string) ([]byte, error) {
	page, tr, err := p.pages.Published(ctx, locale, fullPath)
	if err != nil || page == nil {
		return nil, err
	}
	menu, err := p.pages.Menu(ctx, locale)
	if err != nil {
		return nil, err
	}

	html, err := p.renderer.RenderPage(render.Page{
		Locale:      locale,
		Locales:     p.pages.Locales(),
		Page:        page,
		Translation: tr,
		Menu:        menu,
	})
	if err != nil {
		return nil, err
	}
	p.pageCache.Set(ctx, gen, locale, fullPath, html)
	return html, nil
}

func writeHTML(w http.ResponseWriter, html []byte, cacheStatus string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Cache", cacheStatus)
	w.Write(html)
}
