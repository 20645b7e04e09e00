// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command resolve runs the overload resolution service and its tools.
//
// Usage:
//
//	resolve check fixtures/scenarios.yaml
//	resolve check fixtures/scenarios.yaml --watch
//	resolve serve --config resolver.yaml
//	resolve snapshot save fixtures/scenarios.yaml --dir /var/lib/resolve --label v1
//	resolve snapshot list --dir /var/lib/resolve --name scenarios
//
// Example requests against a running server:
//
//	# Load a universe
//	curl -X POST http://localhost:12230/v1/resolve/universes \
//	  -H "Content-Type: application/json" -d @universe.json
//
//	# Resolve one call
//	curl -X POST http://localhost:12230/v1/resolve/universes/<id>/resolve \
//	  -H "Content-Type: application/json" \
//	  -d '{"method": "f", "context": "com.acme.Calls", "args": ["int"]}'
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianResolve/services/resolve/config"
)

// version is overridden at build time with -ldflags.
var version = "dev"

// Root flags.
var (
	configPath string
	logLevel   string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "resolve",
		Short:         "Overload resolution for Java-like type universes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a resolver.yaml (defaults are embedded)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	root.AddCommand(newCheckCmd(), newServeCmd(), newSnapshotCmd())
	return root
}

// loadConfig reads the configuration and installs the default logger.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.LoadConfigFile(ctx, configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Logging.SlogLevel()})
	slog.SetDefault(slog.New(handler))
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
