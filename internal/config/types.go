package config

import (
	"strings"
	"time"

	"fundview/internal/scheduler"
)

// Config is the top-level configuration carrier for fundview.
type Config struct {
	App      AppConfig      `toml:"app"`
	Exchange ExchangeConfig `toml:"exchange"`
	History  HistoryConfig  `toml:"history"`
	Store    StoreConfig    `toml:"store"`
	Catalog  CatalogConfig  `toml:"catalog"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// ExchangeConfig describes the Deribit public API endpoint.
type ExchangeConfig struct {
	Testnet             bool    `toml:"testnet"`
	BaseURL             string  `toml:"base_url"`
	TimeoutSeconds      int     `toml:"timeout_seconds"`
	RateLimitPerSecond  float64 `toml:"rate_limit_per_second"`
	RateBurst           int     `toml:"rate_burst"`
	Retries             int     `toml:"retries"`
	RetryBackoffSeconds float64 `toml:"retry_backoff_seconds"`
}

// ResolveBaseURL returns the configured endpoint, falling back to the
// testnet/production host selected by the testnet flag.
func (e ExchangeConfig) ResolveBaseURL() string {
	if url := strings.TrimSpace(e.BaseURL); url != "" {
		return strings.TrimRight(url, "/")
	}
	if e.Testnet {
		return "https://test.deribit.com"
	}
	return "https://www.deribit.com"
}

// HistoryConfig controls which instrument is charted and how far back
// funding history is pulled.
type HistoryConfig struct {
	Instrument           string `toml:"instrument"`
	OldestMonth          string `toml:"oldest_month"`     // YYYY-MM, inclusive
	RefreshInterval      string `toml:"refresh_interval"` // "1h", "8h", "1d"; empty disables the scheduler
	RefreshOffsetSeconds int    `toml:"refresh_offset_seconds"`
}

// RefreshEvery returns the parsed refresh interval; ok is false when the
// background refresh is disabled ("off" or empty).
func (h HistoryConfig) RefreshEvery() (time.Duration, bool) {
	raw := strings.ToLower(strings.TrimSpace(h.RefreshInterval))
	if raw == "" || raw == "off" {
		return 0, false
	}
	return scheduler.ParseIntervalDuration(raw)
}

type StoreConfig struct {
	SnapshotPath string `toml:"snapshot_path"`
	FetchLogPath string `toml:"fetch_log_path"`
}

type CatalogConfig struct {
	Path string `toml:"path"`
}
