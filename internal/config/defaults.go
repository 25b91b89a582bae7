package config

const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":8850"
	defaultExchangeTimeout = 30
	defaultExchangeRate    = 5 // requests per second, Deribit public limit headroom
	defaultExchangeBurst   = 5
	defaultExchangeRetries = 3
	defaultRetryBackoff    = 1.0
	defaultInstrument      = "BTC-PERPETUAL"
	defaultRefreshInterval = "1h" // Deribit settles funding hourly
	defaultRefreshOffset   = 30   // seconds past the settlement boundary
	defaultOldestMonth     = "2019-05" // first month with Deribit funding data
	defaultSnapshotPath    = "data/fundview.db"
	defaultFetchLogPath    = "data/fetch_log.db"
	defaultCatalogPath     = "configs/instruments.yaml"
)

func (c *Config) applyDefaults() {
	c.App.applyDefaults()
	c.Exchange.applyDefaults()
	c.History.applyDefaults()
	c.Store.applyDefaults()
	c.Catalog.applyDefaults()
}

func (a *AppConfig) applyDefaults() {
	if a.Env == "" {
		a.Env = defaultAppEnv
	}
	if a.LogLevel == "" {
		a.LogLevel = defaultAppLogLevel
	}
	if a.HTTPAddr == "" {
		a.HTTPAddr = defaultAppHTTPAddr
	}
}

func (e *ExchangeConfig) applyDefaults() {
	if e.TimeoutSeconds <= 0 {
		e.TimeoutSeconds = defaultExchangeTimeout
	}
	if e.RateLimitPerSecond <= 0 {
		e.RateLimitPerSecond = defaultExchangeRate
	}
	if e.RateBurst <= 0 {
		e.RateBurst = defaultExchangeBurst
	}
	if e.Retries <= 0 {
		e.Retries = defaultExchangeRetries
	}
	if e.RetryBackoffSeconds <= 0 {
		e.RetryBackoffSeconds = defaultRetryBackoff
	}
}

func (h *HistoryConfig) applyDefaults() {
	if h.Instrument == "" {
		h.Instrument = defaultInstrument
	}
	if h.OldestMonth == "" {
		h.OldestMonth = defaultOldestMonth
	}
	if h.RefreshInterval == "" {
		h.RefreshInterval = defaultRefreshInterval
	}
	if h.RefreshOffsetSeconds == 0 {
		h.RefreshOffsetSeconds = defaultRefreshOffset
	}
}

func (s *StoreConfig) applyDefaults() {
	if s.SnapshotPath == "" {
		s.SnapshotPath = defaultSnapshotPath
	}
	if s.FetchLogPath == "" {
		s.FetchLogPath = defaultFetchLogPath
	}
}

func (c *CatalogConfig) applyDefaults() {
	if c.Path == "" {
		c.Path = defaultCatalogPath
	}
}
