// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/AleutianAI/AleutianResolve/services/resolve"
	"github.com/AleutianAI/AleutianResolve/services/resolve/config"
	"github.com/AleutianAI/AleutianResolve/services/resolve/fixture"
	"github.com/AleutianAI/AleutianResolve/services/resolve/snapshot"
	"github.com/AleutianAI/AleutianResolve/services/resolve/telemetry"
)

// Serve flags.
var (
	serveDebug    bool
	servePreload  []string
	serveRestore  []string
	servePortFlag int
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the resolution HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable gin debug mode and request logging")
	cmd.Flags().IntVar(&servePortFlag, "port", 0, "Override server.port")
	cmd.Flags().StringSliceVar(&servePreload, "preload", nil, "Fixture files to load as universes at startup")
	cmd.Flags().StringSliceVar(&serveRestore, "restore", nil, "Document names whose latest snapshot is loaded at startup")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if servePortFlag != 0 {
		cfg.Server.Port = servePortFlag
	}

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	opts := []resolve.ServiceOption{resolve.WithServiceLogger(slog.Default())}
	var db *snapshot.DB
	if cfg.Storage.Enabled() {
		db, err = openStore(cfg.Storage)
		if err != nil {
			slog.Warn("snapshot store unavailable, snapshots disabled",
				slog.String("dir", cfg.Storage.Dir),
				slog.String("error", err.Error()),
			)
		} else {
			store, err := snapshot.NewStore(db.DB, slog.Default())
			if err != nil {
				return err
			}
			opts = append(opts, resolve.WithSnapshotStore(store))
		}
	}
	svc := resolve.NewService(cfg.Resolver, opts...)

	if err := preload(ctx, svc); err != nil {
		return err
	}

	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	router.Use(resolve.RateLimitMiddleware(cfg.Server.RateLimit, cfg.Server.RateBurst))
	if serveDebug {
		router.Use(gin.Logger())
	}
	resolve.RegisterRoutes(router.Group("/v1"), resolve.NewHandlers(svc))
	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting resolution server", slog.String("address", srv.Addr), slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("Shutting down resolution server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown", slog.String("error", err.Error()))
	}
	if db != nil {
		if err := db.Close(); err != nil {
			slog.Warn("failed to close snapshot store", slog.String("error", err.Error()))
		}
	}
	return shutdownTelemetry(shutdownCtx)
}

func openStore(cfg config.StorageConfig) (*snapshot.DB, error) {
	return snapshot.OpenDB(snapshot.DBConfig{
		Dir:      cfg.Dir,
		InMemory: cfg.InMemory,
		Logger:   slog.Default().With("component", "badger"),
	})
}

// preload loads the --preload fixtures and --restore snapshots.
func preload(ctx context.Context, svc *resolve.Service) error {
	for _, path := range servePreload {
		doc, err := fixture.LoadFile(ctx, path)
		if err != nil {
			return err
		}
		u, err := svc.LoadUniverse(ctx, doc)
		if err != nil {
			return fmt.Errorf("preload %s: %w", path, err)
		}
		slog.Info("universe preloaded", slog.String("path", path), slog.String("universe_id", u.ID))
	}
	for _, name := range serveRestore {
		u, meta, err := svc.RestoreLatest(ctx, name)
		if err != nil {
			return fmt.Errorf("restore %s: %w", name, err)
		}
		slog.Info("universe restored",
			slog.String("name", name),
			slog.String("snapshot_id", meta.ID),
			slog.String("universe_id", u.ID),
		)
	}
	return nil
}
