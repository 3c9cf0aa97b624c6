package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config is the service configuration file (JSON or YAML).
type Config struct {
	Server  ServerConfig  `json:"server"`
	Logging LoggingConfig `json:"logging"`

	// Storage is the optional SQLite persistence layer. Omitted or
	// driver "none" disables it.
	Storage *StorageConfig `json:"storage,omitempty"`

	// Sweep controls the periodic dedupe sweep. Omitted means every
	// 5 minutes.
	Sweep *SweepConfig `json:"sweep,omitempty"`

	// Pprof is the optional profiling listener, off by default.
	Pprof *PprofConfig `json:"pprof,omitempty"`

	// Rules is a partial suppression-rules patch applied over the
	// defaults at startup and re-applied on config reload. The
	// administrative API can still patch rules at runtime in between.
	// Kept raw so the rules store owns the merge/validation semantics.
	Rules json.RawMessage `json:"rules,omitempty"`
}

type ServerConfig struct {
	Addr string `json:"addr"`

	// RatePerSec caps inbound API requests (token bucket). 0 disables
	// transport-level limiting.
	RatePerSec int `json:"rate_per_sec,omitempty"`
	Burst      int `json:"burst,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type StorageConfig struct {
	Driver string `json:"driver"`
	Path   string `json:"path"`
	// BusyTimeout is a Go duration string (e.g. "500ms", "2s").
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type SweepConfig struct {
	// Every is a Go duration string (e.g. "5m", "1h").
	Every string `json:"every"`
}

type PprofConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Token   string `json:"token,omitempty"`
}

func (c *Config) withDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
}

// ParseDurationOrDefault parses a Go duration string, returning def
// when the field is empty.
func ParseDurationOrDefault(name, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", name, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must not be negative", name)
	}
	return d, nil
}
