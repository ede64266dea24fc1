// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"daftar/internal/cache"
	"daftar/internal/config"
	"daftar/internal/database"
	"daftar/internal/handlers"
	"daftar/internal/middleware"
	"daftar/internal/pagetree"
	"daftar/internal/render"
	"daftar/internal/router"
	"daftar/internal/session"
	"daftar/internal/store"
)

const (
	// Sign-in attempts allowed per client IP and window.
	loginLimit  = 10
	loginWindow = time.Minute

	cacheLogPruneEvery = 24 * time.Hour
)

func runServe(ctx context.Context, _ *cli.Command) error {
	return withDatabase(ctx, func(cfg *config.Config, db *sql.DB) error {
		slog.Info("configuration loaded",
			"env", cfg.Env,
			"addr", cfg.Addr(),
			"locales", cfg.Locales,
			"default_locale", cfg.DefaultLocale,
		)

		// Seed development data (no-op if data already exists).
		if cfg.IsDev() {
			if err := database.Seed(ctx, db, cfg.Locales); err != nil {
				return err
			}
		}
		return serve(ctx, cfg, db)
	})
}

func serve(ctx context.Context, cfg *config.Config, db *sql.DB) error {
	valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyAddr(), cfg.ValkeyPassword)
	if err != nil {
		return err
	}
	defer valkeyClient.Close()

	// In non-development environments, mark cookies as Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	renderer, err := render.New()
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}

	pageStore := store.NewPageStore(db)
	userStore := store.NewUserStore(db)
	invitationStore := store.NewInvitationStore(db)
	cacheLogStore := store.NewCacheLogStore(db)

	locales := orderedLocales(cfg)
	pages := pagetree.NewService(pageStore, locales)
	pageCache := cache.NewPageCache(valkeyClient, cfg.PageCacheTTL)

	adminHandlers := handlers.NewAdmin(pages, userStore, invitationStore, sessionStore, pageCache, cacheLogStore)
	authHandlers := handlers.NewAuth(sessionStore, invitationStore, locales)
	publicHandlers := handlers.NewPublic(pages, renderer, pageCache, cfg.DefaultLocale)

	go pruneCacheLog(ctx, cacheLogStore, cfg.CacheLogRetention)

	loginLimiter := middleware.NewRateLimiter(loginLimit, loginWindow)
	defer loginLimiter.Stop()

	r := router.New(router.Options{
		Sessions:      sessionStore,
		SecureCookies: secureCookies,
		AdminOrigins:  cfg.AdminOrigins,
		Locales:       locales,
		LoginLimiter:  loginLimiter,
	}, adminHandlers, authHandlers, publicHandlers)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutdown signal received")

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// pruneCacheLog drops cache log entries older than retention, once at start
// and then daily, until ctx ends. A zero retention keeps everything.
func pruneCacheLog(ctx context.Context, cacheLog *store.CacheLogStore, retention time.Duration) {
	if retention == 0 {
		return
	}
	ticker := time.NewTicker(cacheLogPruneEvery)
	defer ticker.Stop()
	for {
		n, err := cacheLog.Prune(ctx, time.Now().Add(-retention))
		if err != nil {
			slog.Warn("cache log prune failed", "error", err)
		} else if n > 0 {
			slog.Info("cache log pruned", "deleted", n, "retention", retention)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
