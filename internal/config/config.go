/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int

	// Catalog service (remote playlist + media source)
	CatalogURL     string // Base URL of the catalog API (e.g., https://signage.example.com)
	CatalogAPIKey  string // Opaque device key sent as X-Device-Key
	CatalogTimeout time.Duration
	ScreenCode     string // Pairing code identifying this display

	// Playback tuning
	RefreshInterval time.Duration // How often the playlist is re-fetched and re-resolved
	PollInterval    time.Duration // Playback deadline poll cadence
	DriftGrace      time.Duration // Hidden-time overshoot tolerated before a forced advance
	PreloadWindow   int           // Lookahead entries warmed ahead of the current item
	PreloadTimeout  time.Duration

	// Local state (offline queue snapshot)
	StateDir string

	// S3-compatible object storage for media assets
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	S3PublicBaseURL   string // Optional CDN/CloudFront URL
	S3UsePathStyle    bool   // Required for MinIO
	S3SignedTTL       time.Duration // Signed URL lifetime; 0 disables signing

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"GRIMNIR_SIGNAGE_ENV", "SIGNAGE_ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"GRIMNIR_SIGNAGE_HTTP_BIND", "SIGNAGE_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"GRIMNIR_SIGNAGE_HTTP_PORT", "SIGNAGE_HTTP_PORT"}, 8090),

		CatalogURL:     getEnvAny([]string{"GRIMNIR_SIGNAGE_CATALOG_URL", "SIGNAGE_CATALOG_URL"}, ""),
		CatalogAPIKey:  getEnvAny([]string{"GRIMNIR_SIGNAGE_CATALOG_API_KEY", "SIGNAGE_CATALOG_API_KEY"}, ""),
		CatalogTimeout: time.Duration(getEnvIntAny([]string{"GRIMNIR_SIGNAGE_CATALOG_TIMEOUT_SECONDS", "SIGNAGE_CATALOG_TIMEOUT_SECONDS"}, 15)) * time.Second,
		ScreenCode:     getEnvAny([]string{"GRIMNIR_SIGNAGE_SCREEN_CODE", "SIGNAGE_SCREEN_CODE"}, ""),

		RefreshInterval: time.Duration(getEnvIntAny([]string{"GRIMNIR_SIGNAGE_REFRESH_SECONDS", "SIGNAGE_REFRESH_SECONDS"}, 300)) * time.Second,
		PollInterval:    time.Duration(getEnvIntAny([]string{"GRIMNIR_SIGNAGE_POLL_INTERVAL_MS", "SIGNAGE_POLL_INTERVAL_MS"}, 100)) * time.Millisecond,
		DriftGrace:      time.Duration(getEnvIntAny([]string{"GRIMNIR_SIGNAGE_DRIFT_GRACE_MS", "SIGNAGE_DRIFT_GRACE_MS"}, 1500)) * time.Millisecond,
		PreloadWindow:   getEnvIntAny([]string{"GRIMNIR_SIGNAGE_PRELOAD_WINDOW", "SIGNAGE_PRELOAD_WINDOW"}, 3),
		PreloadTimeout:  time.Duration(getEnvIntAny([]string{"GRIMNIR_SIGNAGE_PRELOAD_TIMEOUT_SECONDS", "SIGNAGE_PRELOAD_TIMEOUT_SECONDS"}, 20)) * time.Second,

		StateDir: getEnvAny([]string{"GRIMNIR_SIGNAGE_STATE_DIR", "SIGNAGE_STATE_DIR"}, "./state"),

		S3AccessKeyID:     getEnvAny([]string{"GRIMNIR_SIGNAGE_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"GRIMNIR_SIGNAGE_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"GRIMNIR_SIGNAGE_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:          getEnvAny([]string{"GRIMNIR_SIGNAGE_S3_BUCKET", "S3_BUCKET"}, ""),
		S3Endpoint:        getEnvAny([]string{"GRIMNIR_SIGNAGE_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3PublicBaseURL:   getEnvAny([]string{"GRIMNIR_SIGNAGE_S3_PUBLIC_BASE_URL", "S3_PUBLIC_BASE_URL"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"GRIMNIR_SIGNAGE_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),
		S3SignedTTL:       time.Duration(getEnvIntAny([]string{"GRIMNIR_SIGNAGE_S3_SIGNED_TTL_SECONDS", "S3_SIGNED_TTL_SECONDS"}, 0)) * time.Second,

		TracingEnabled:    getEnvBoolAny([]string{"GRIMNIR_SIGNAGE_TRACING_ENABLED", "SIGNAGE_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"GRIMNIR_SIGNAGE_OTLP_ENDPOINT", "SIGNAGE_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"GRIMNIR_SIGNAGE_TRACING_SAMPLE_RATE", "SIGNAGE_TRACING_SAMPLE_RATE"}, 1.0),
	}

	if cfg.CatalogURL == "" {
		return nil, fmt.Errorf("GRIMNIR_SIGNAGE_CATALOG_URL or SIGNAGE_CATALOG_URL must be provided")
	}
	cfg.CatalogURL = strings.TrimRight(cfg.CatalogURL, "/")

	if cfg.ScreenCode == "" {
		return nil, fmt.Errorf("GRIMNIR_SIGNAGE_SCREEN_CODE or SIGNAGE_SCREEN_CODE must be provided")
	}

	if cfg.PreloadWindow < 0 {
		return nil, fmt.Errorf("GRIMNIR_SIGNAGE_PRELOAD_WINDOW must not be negative")
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.RefreshInterval < 10*time.Second {
		cfg.RefreshInterval = 10 * time.Second
	}

	if strings.EqualFold(cfg.Environment, "production") {
		if cfg.S3Bucket != "" && (cfg.S3AccessKeyID == "" || cfg.S3SecretAccessKey == "") {
			return nil, fmt.Errorf("S3 credentials must be set when GRIMNIR_SIGNAGE_S3_BUCKET is configured in production")
		}
		if cfg.CatalogAPIKey == "" {
			return nil, fmt.Errorf("GRIMNIR_SIGNAGE_CATALOG_API_KEY must be set in production")
		}
	}

	return cfg, nil
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
