// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfig_Defaults(t *testing.T) {
	ResetConfig()
	defer ResetConfig()

	cfg, err := GetConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12230, cfg.Server.Port)
	assert.Equal(t, ":12230", cfg.Server.Addr())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Zero(t, cfg.Server.RateLimit)
	assert.Equal(t, 50, cfg.Server.RateBurst)
	assert.Equal(t, 8, cfg.Resolver.BatchConcurrency)
	assert.Equal(t, 256, cfg.Resolver.MaxCandidates)
	assert.True(t, cfg.Storage.Enabled())
	assert.Equal(t, "prometheus", cfg.Telemetry.MetricExporter)
	assert.Equal(t, slog.LevelInfo, cfg.Logging.SlogLevel())

	again, err := GetConfig(context.Background())
	require.NoError(t, err)
	assert.Same(t, cfg, again)
}

func TestGetConfig_NilContext(t *testing.T) {
	//nolint:staticcheck
	_, err := GetConfig(nil)
	assert.Error(t, err)
}

func TestLoadConfig_OverridesKeepDefaults(t *testing.T) {
	cfg, err := LoadConfig(context.Background(), []byte("server:\n  port: 9000\nlogging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 1000, cfg.Resolver.MaxBatchSize)
	assert.Equal(t, slog.LevelDebug, cfg.Logging.SlogLevel())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"bad yaml", "server: [1"},
		{"port out of range", "server:\n  port: 70000\n"},
		{"negative rate limit", "server:\n  rate_limit: -1\n"},
		{"zero concurrency", "resolver:\n  batch_concurrency: 0\n"},
		{"unknown exporter", "telemetry:\n  trace_exporter: zipkin\n"},
		{"otlp without endpoint", "telemetry:\n  trace_exporter: otlp\n"},
		{"unknown level", "logging:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(context.Background(), []byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_TooLarge(t *testing.T) {
	_, err := LoadConfig(context.Background(), make([]byte, MaxYAMLFileSize+1))
	assert.Error(t, err)
}

func TestLoadConfigFile(t *testing.T) {
	ResetConfig()
	defer ResetConfig()

	cfg, err := LoadConfigFile(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 12230, cfg.Server.Port)

	path := filepath.Join(t.TempDir(), "resolver.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  dir: /tmp/snap\n  in_memory: false\n"), 0o644))
	cfg, err = LoadConfigFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/snap", cfg.Storage.Dir)
	assert.True(t, cfg.Storage.Enabled())

	_, err = LoadConfigFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStorageConfig_Disabled(t *testing.T) {
	assert.False(t, StorageConfig{}.Enabled())
}
