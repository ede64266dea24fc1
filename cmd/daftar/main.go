// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the daftar CMS. It exposes the HTTP
// server and the maintenance commands (migrations, seeding, path repair)
// as subcommands of one binary.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/urfave/cli/v3"

	"daftar/internal/config"
	"daftar/internal/database"
	"daftar/internal/pagetree"
	"daftar/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "daftar",
		Usage: "A multilingual page-tree CMS",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run migrations and start the HTTP server",
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations",
				Action: runMigrate,
			},
			{
				Name:  "seed",
				Usage: "Populate an empty database with development data",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDatabase(ctx, func(cfg *config.Config, db *sql.DB) error {
						return database.Seed(ctx, db, cfg.Locales)
					})
				},
			},
			{
				Name:   "repath",
				Usage:  "Recompute the stored full path of every page",
				Action: runRepath,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(ctx, os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// setupLogger installs the default logger: text in development, JSON
// everywhere else.
func setupLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

// withDatabase loads the configuration, connects to PostgreSQL, applies
// migrations and hands the connection to fn.
func withDatabase(ctx context.Context, fn func(cfg *config.Config, db *sql.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	setupLogger(cfg)

	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	return fn(cfg, db)
}

func runMigrate(ctx context.Context, cmd *cli.Command) error {
	return withDatabase(ctx, func(_ *config.Config, db *sql.DB) error {
		version, err := database.SchemaVersion(ctx, db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.Root().Writer, "schema at version %d\n", version)
		return nil
	})
}

func runRepath(ctx context.Context, cmd *cli.Command) error {
	return withDatabase(ctx, func(cfg *config.Config, db *sql.DB) error {
		svc := pagetree.NewService(store.NewPageStore(db), orderedLocales(cfg))
		result, err := svc.RepairPaths(ctx)
		return reportRepair(cmd.Root().Writer, result, err)
	})
}

// reportRepair prints the counts of a path repair. A batch with failures
// is rolled back, so its counts are printed before the error is returned.
func reportRepair(w io.Writer, result pagetree.BatchResult, err error) error {
	var batchErr *pagetree.BatchError
	switch {
	case errors.As(err, &batchErr):
		fmt.Fprintf(w, "paths not repaired: %d of %d failed, %d would have been updated, nothing written\n",
			batchErr.Failed, batchErr.Total, result.SuccessCount)
		return err
	case err != nil:
		return err
	}
	fmt.Fprintf(w, "paths repaired: %d updated, %d failed\n", result.SuccessCount, result.FailureCount)
	return nil
}

// orderedLocales returns the configured locales with the default first.
func orderedLocales(cfg *config.Config) []string {
	out := []string{cfg.DefaultLocale}
	for _, l := range cfg.Locales {
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}
