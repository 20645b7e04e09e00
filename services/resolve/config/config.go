// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the resolution service configuration.
//
// The defaults live in the embedded resolver.yaml. A file given on the
// command line replaces them; fields it leaves out keep their defaults.
package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Defaults
// =============================================================================

//go:embed resolver.yaml
var defaultConfigYAML []byte

var tracer = otel.Tracer("aleutian.resolve.config")

// MaxYAMLFileSize caps configuration files at 1 MiB.
const MaxYAMLFileSize = 1 << 20

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the complete service configuration.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type Config struct {
	Server    ServerConfig    `yaml:"server" validate:"required"`
	Resolver  ResolverConfig  `yaml:"resolver" validate:"required"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry" validate:"required"`
	Logging   LoggingConfig   `yaml:"logging" validate:"required"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Port is the listen port.
	Port int `yaml:"port" validate:"min=1,max=65535"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RateLimit is the sustained API request rate per second. Zero disables
	// limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`

	// RateBurst is the number of requests allowed above RateLimit at once.
	RateBurst int `yaml:"rate_burst" validate:"gte=0"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// ResolverConfig bounds resolution work.
type ResolverConfig struct {
	// BatchConcurrency is the number of calls resolved in parallel by one
	// batch request.
	BatchConcurrency int `yaml:"batch_concurrency" validate:"min=1,max=256"`

	// MaxBatchSize is the largest accepted batch.
	MaxBatchSize int `yaml:"max_batch_size" validate:"min=1"`

	// MaxCandidates limits the candidates one lookup may produce.
	MaxCandidates int `yaml:"max_candidates" validate:"min=1"`

	// MaxMethods limits the methods one universe may hold.
	MaxMethods int `yaml:"max_methods" validate:"min=1"`

	// MaxUniverses limits how many universes the service keeps loaded.
	MaxUniverses int `yaml:"max_universes" validate:"min=1"`
}

// StorageConfig configures the snapshot store.
type StorageConfig struct {
	// Dir is the BadgerDB directory. Empty with InMemory false disables
	// snapshots.
	Dir string `yaml:"dir"`

	// InMemory keeps snapshots in memory only.
	InMemory bool `yaml:"in_memory"`
}

// Enabled reports whether snapshots are available.
func (s StorageConfig) Enabled() bool {
	return s.InMemory || s.Dir != ""
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" validate:"required"`
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`

	// OTLPEndpoint is used when TraceExporter is otlp.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// SlogLevel returns the configured level.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// Singleton Config
// =============================================================================

var (
	configMu      sync.RWMutex
	configOnce    sync.Once
	cachedConfig  *Config
	configLoadErr error
)

// GetConfig returns the cached default configuration.
//
// Description:
//
//	Loads the embedded defaults on first call and caches them for
//	subsequent calls.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//
// Outputs:
//
//	*Config - The loaded configuration. Never nil on success.
//	error - Non-nil if loading or validation failed.
//
// Thread Safety: Safe for concurrent use via sync.Once.
func GetConfig(ctx context.Context) (*Config, error) {
	if ctx == nil {
		return nil, fmt.Errorf("GetConfig: ctx must not be nil")
	}

	configMu.RLock()
	if cachedConfig != nil || configLoadErr != nil {
		cfg, err := cachedConfig, configLoadErr
		configMu.RUnlock()
		return cfg, err
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if cachedConfig != nil || configLoadErr != nil {
		return cachedConfig, configLoadErr
	}

	configOnce.Do(func() {
		cachedConfig, configLoadErr = LoadConfig(ctx, defaultConfigYAML)
	})

	return cachedConfig, configLoadErr
}

// ResetConfig clears the cached config for testing.
func ResetConfig() {
	configMu.Lock()
	defer configMu.Unlock()
	cachedConfig = nil
	configLoadErr = nil
	configOnce = sync.Once{}
}

// LoadConfig parses YAML over the embedded defaults and validates the
// result.
//
// Inputs:
//
//	ctx - Context for tracing.
//	data - Raw YAML bytes to parse.
//
// Outputs:
//
//	*Config - The validated configuration.
//	error - Non-nil if parsing or validation fails.
func LoadConfig(ctx context.Context, data []byte) (*Config, error) {
	_, span := tracer.Start(ctx, "config.LoadConfig")
	defer span.End()

	if len(data) == 0 {
		return nil, fmt.Errorf("LoadConfig: empty YAML data")
	}
	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("LoadConfig: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	var cfg Config
	if err := yaml.Unmarshal(defaultConfigYAML, &cfg); err != nil {
		return nil, fmt.Errorf("LoadConfig: parsing defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("LoadConfig: parsing YAML: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("LoadConfig: %w: %v", ErrInvalidConfig, err)
	}
	if cfg.Telemetry.TraceExporter == "otlp" && cfg.Telemetry.OTLPEndpoint == "" {
		return nil, fmt.Errorf("LoadConfig: %w: otlp_endpoint is required for the otlp exporter", ErrInvalidConfig)
	}

	span.SetAttributes(
		attribute.Int("server.port", cfg.Server.Port),
		attribute.Int("resolver.batch_concurrency", cfg.Resolver.BatchConcurrency),
		attribute.Bool("storage.enabled", cfg.Storage.Enabled()),
	)
	slog.Debug("resolve config loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("trace_exporter", cfg.Telemetry.TraceExporter),
		slog.String("metric_exporter", cfg.Telemetry.MetricExporter),
	)
	return &cfg, nil
}

// LoadConfigFile loads a configuration file. An empty path returns the
// embedded defaults.
func LoadConfigFile(ctx context.Context, path string) (*Config, error) {
	if path == "" {
		return GetConfig(ctx)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadConfigFile: %w", err)
	}
	return LoadConfig(ctx, data)
}

var validate = validator.New(validator.WithRequiredStructEnabled())
