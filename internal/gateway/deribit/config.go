package deribit

import "time"

const (
	defaultBaseURL      = "https://www.deribit.com"
	defaultHTTPTimeout  = 30 * time.Second
	defaultRateLimit    = 5 // public endpoint budget, requests per second
	defaultRateBurst    = 5
	defaultRetries      = 3
	defaultRetryBackoff = time.Second

	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 30 * time.Second
)

// Config describes how the public Deribit REST endpoint is reached. Only
// public (unauthenticated) methods are used.
type Config struct {
	BaseURL      string
	HTTPTimeout  time.Duration
	RateLimit    float64
	RateBurst    int
	Retries      int
	RetryBackoff time.Duration

	// BreakerThreshold consecutive hard failures open the circuit for
	// BreakerCooldown before a probe request is allowed through.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
	if c.RateLimit <= 0 {
		c.RateLimit = defaultRateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = defaultRateBurst
	}
	if c.Retries <= 0 {
		c.Retries = defaultRetries
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = defaultBreakerThreshold
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = defaultBreakerCooldown
	}
	return c
}
