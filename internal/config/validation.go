package config

import (
	"fmt"
	"regexp"
	"strings"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Exchange.validate(); err != nil {
		return err
	}
	if err := c.History.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(a.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", a.LogLevel)
}

func (e *ExchangeConfig) validate() error {
	url := e.ResolveBaseURL()
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("exchange.base_url must be an http(s) URL, got %q", url)
	}
	return nil
}

func (h *HistoryConfig) validate() error {
	if strings.TrimSpace(h.Instrument) == "" {
		return fmt.Errorf("history.instrument cannot be empty")
	}
	if !monthPattern.MatchString(h.OldestMonth) {
		return fmt.Errorf("history.oldest_month must be YYYY-MM, got %q", h.OldestMonth)
	}
	if raw := strings.ToLower(strings.TrimSpace(h.RefreshInterval)); raw != "" && raw != "off" {
		if _, ok := h.RefreshEvery(); !ok {
			return fmt.Errorf("history.refresh_interval must be like 1h/8h/1d or off, got %q", h.RefreshInterval)
		}
	}
	if h.RefreshOffsetSeconds < 0 {
		return fmt.Errorf("history.refresh_offset_seconds must be >= 0")
	}
	return nil
}
