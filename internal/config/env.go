package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays WATCHLOG_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("WATCHLOG_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("WATCHLOG_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("WATCHLOG_APP"); v != "" {
		cfg.App = v
	}
	if v := os.Getenv("WATCHLOG_ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("WATCHLOG_RELEASE"); v != "" {
		cfg.Release = v
	}
	if v := os.Getenv("WATCHLOG_SAMPLE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.SampleRate = f
		}
	}
	if v := os.Getenv("WATCHLOG_BATCH_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BatchMax = n
		}
	}
	if v := os.Getenv("WATCHLOG_FLUSH_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FlushIntervalMs = n
		}
	}
	if v := os.Getenv("WATCHLOG_MAX_QUEUE_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxQueueBytes = n
		}
	}
	if v := os.Getenv("WATCHLOG_SESSION_TTL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SessionTTLMs = n
		}
	}
	if v := os.Getenv("WATCHLOG_FILTER_EXPR"); v != "" {
		cfg.FilterExpr = v
	}
	if v := os.Getenv("WATCHLOG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("WATCHLOG_ROUTE_MANIFEST"); v != "" {
		parts := strings.Split(v, ",")
		cfg.RouteManifest = nil
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cfg.RouteManifest = append(cfg.RouteManifest, p)
			}
		}
	}
}
