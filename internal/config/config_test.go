package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  env: dev\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8850", cfg.App.HTTPAddr)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "BTC-PERPETUAL", cfg.History.Instrument)
	assert.Equal(t, "2019-05", cfg.History.OldestMonth)
	assert.Equal(t, 30, cfg.Exchange.TimeoutSeconds)
	assert.Equal(t, float64(5), cfg.Exchange.RateLimitPerSecond)
	assert.Equal(t, "data/fundview.db", cfg.Store.SnapshotPath)
	assert.Equal(t, "configs/instruments.yaml", cfg.Catalog.Path)

	every, ok := cfg.History.RefreshEvery()
	require.True(t, ok)
	assert.Equal(t, time.Hour, every)
}

func TestLoadFullDocument(t *testing.T) {
	doc := `app:
  env: prod
  log_level: debug
  http_addr: ":9000"
exchange:
  testnet: true
  timeout_seconds: 10
history:
  instrument: ETH-PERPETUAL
  oldest_month: "2020-01"
  refresh_interval: 8h
  refresh_offset_seconds: 60
store:
  snapshot_path: /tmp/snap.db
`
	cfg, err := Load(writeConfig(t, doc))
	require.NoError(t, err)

	assert.Equal(t, "https://test.deribit.com", cfg.Exchange.ResolveBaseURL())
	assert.Equal(t, "ETH-PERPETUAL", cfg.History.Instrument)
	every, ok := cfg.History.RefreshEvery()
	require.True(t, ok)
	assert.Equal(t, 8*time.Hour, every)
	assert.Equal(t, 60, cfg.History.RefreshOffsetSeconds)
	assert.Equal(t, "/tmp/snap.db", cfg.Store.SnapshotPath)
}

func TestResolveBaseURLTrimsTrailingSlash(t *testing.T) {
	e := ExchangeConfig{BaseURL: "https://www.deribit.com/"}
	assert.Equal(t, "https://www.deribit.com", e.ResolveBaseURL())

	assert.Equal(t, "https://www.deribit.com", ExchangeConfig{}.ResolveBaseURL())
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad log level":  "app:\n  log_level: loud\n",
		"bad month":      "history:\n  oldest_month: \"2019-13\"\n",
		"bad interval":   "history:\n  refresh_interval: sometimes\n",
		"bad offset":     "history:\n  refresh_offset_seconds: -5\n",
		"bad base url":   "exchange:\n  base_url: ftp://deribit\n",
		"empty contract": "history:\n  instrument: \"   \"\n",
	}
	for name, doc := range cases {
		_, err := Load(writeConfig(t, doc))
		assert.Error(t, err, name)
	}
}

func TestRefreshEveryOff(t *testing.T) {
	h := HistoryConfig{RefreshInterval: "off"}
	_, ok := h.RefreshEvery()
	assert.False(t, ok)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}
