package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	ListenAddress        string  `json:"listen_address"`
	DatabasePath         string  `json:"database_path"`
	LogLevel             string  `json:"log_level"`
	HousekeepingSpec     string  `json:"housekeeping_spec"`
	MaxListingAgeDays    int     `json:"max_listing_age_days"`
	KeepTopScored        int     `json:"keep_top_scored"`
	DecidedRetentionDays int     `json:"decided_retention_days"`
	EmbeddingMaxAgeDays  int     `json:"embedding_max_age_days"`
	FetchTimeoutSec      int     `json:"fetch_timeout_sec"`
	HTTPReadTimeoutSec   int     `json:"http_read_timeout_sec"`
	HTTPWriteTimeoutSec  int     `json:"http_write_timeout_sec"`
	HTTPIdleTimeoutSec   int     `json:"http_idle_timeout_sec"`
	MaxBodyBytes         int64   `json:"max_body_bytes"`
	ScoreThreshold       float64 `json:"score_threshold"`
}

func defaultConfig() Config {
	return Config{
		ListenAddress:        "127.0.0.1:8787",
		DatabasePath:         "jobsift.db",
		LogLevel:             "info",
		HousekeepingSpec:     "@every 12h",
		MaxListingAgeDays:    90,
		KeepTopScored:        500,
		DecidedRetentionDays: 30,
		EmbeddingMaxAgeDays:  30,
		FetchTimeoutSec:      20,
		HTTPReadTimeoutSec:   10,
		HTTPWriteTimeoutSec:  30,
		HTTPIdleTimeoutSec:   60,
		MaxBodyBytes:         4 << 20,
		ScoreThreshold:       5.0,
	}
}

// LoadOrInit reads the config file, writing a default one first if it does
// not exist. The second return value reports whether a fresh file was
// created.
func LoadOrInit(path string) (Config, bool, error) {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := defaultConfig()
		if err := writeConfig(path, cfg); err != nil {
			return Config{}, false, err
		}
		return cfg, true, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, false, fmt.Errorf("read config: %w", err)
	}
	cfg := defaultConfig()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, false, err
	}
	return cfg, false, nil
}

func writeConfig(path string, cfg Config) error {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o600)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return errors.New("listen_address is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return errors.New("database_path is required")
	}
	if strings.TrimSpace(c.HousekeepingSpec) == "" {
		return errors.New("housekeeping_spec is required")
	}
	if c.MaxListingAgeDays < 1 || c.MaxListingAgeDays > 3650 {
		return errors.New("max_listing_age_days out of range")
	}
	if c.KeepTopScored < 1 || c.KeepTopScored > 100000 {
		return errors.New("keep_top_scored out of range")
	}
	if c.DecidedRetentionDays < 1 || c.DecidedRetentionDays > 3650 {
		return errors.New("decided_retention_days out of range")
	}
	if c.EmbeddingMaxAgeDays < 1 || c.EmbeddingMaxAgeDays > 3650 {
		return errors.New("embedding_max_age_days out of range")
	}
	if c.FetchTimeoutSec < 1 || c.FetchTimeoutSec > 300 {
		return errors.New("fetch_timeout_sec out of range")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("max_body_bytes must be positive")
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 10 {
		return errors.New("score_threshold must be within 0..10")
	}
	return nil
}
