// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for daftar.
// It organizes routes into the public site, sign-in and the admin JSON API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"daftar/internal/handlers"
	"daftar/internal/middleware"
)

// Options holds the router settings that are not handlers.
type Options struct {
	// Sessions loads the admin session of each request.
	Sessions middleware.SessionGetter
	// SecureCookies marks the CSRF cookie Secure and turns on HSTS. Set it
	// when the site is served over TLS.
	SecureCookies bool
	// AdminOrigins are the browser origins allowed to call /admin
	// cross-origin. Empty means same-origin only.
	AdminOrigins []string
	// Locales lists the content locales, default first.
	Locales []string
	// LoginLimiter rate-limits sign-in attempts. Optional.
	LoginLimiter *middleware.RateLimiter
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(opts Options, admin *handlers.Admin, auth *handlers.Auth, public *handlers.Public) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders(opts.SecureCookies))
	r.Use(middleware.LoadSession(opts.Sessions))

	// Health check: no auth, no CSRF.
	r.Get("/health", healthHandler)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.APIHeaders)
		if len(opts.AdminOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   opts.AdminOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowedHeaders:   []string{"Accept", "Content-Type", middleware.CSRFHeaderName},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}
		r.Use(middleware.NewCSRF(opts.SecureCookies))

		login := http.HandlerFunc(auth.Login)
		if opts.LoginLimiter != nil {
			r.With(opts.LoginLimiter.Middleware).Post("/login", login)
		} else {
			r.Post("/login", login)
		}
		r.Post("/logout", auth.Logout)

		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/me", auth.Me)
			r.Put("/me", auth.SetLocale)

			r.Route("/pages", func(r chi.Router) {
				r.Get("/tree", admin.Tree)
				r.Post("/", admin.PageCreate)
				r.Post("/order", admin.PageOrder)
				r.Get("/{id}", admin.PageGet)
				r.Put("/{id}", admin.PageUpdate)
				r.Delete("/{id}", admin.PageDelete)
				r.Post("/{id}/move", admin.PageMove)
				r.Put("/{id}/translations/{locale}", admin.TranslationSave)
				r.Delete("/{id}/translations/{locale}", admin.TranslationDelete)
			})

			r.Get("/cache/log", admin.CacheLogList)

			// Admin only.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/users", admin.UsersList)
				r.Delete("/users/{id}", admin.UserDelete)
				r.Get("/invitations", admin.InvitationList)
				r.Post("/invitations", admin.InvitationCreate)
				r.Delete("/invitations/{id}", admin.InvitationDelete)
			})
		})
	})

	// Public site, negotiated by Accept-Language at the root only.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Locale(middleware.NewLocaleMatcher(opts.Locales)))
		r.Get("/", public.Root)
		r.Get("/{locale}", public.Page)
		r.Get("/{locale}/*", public.Page)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
