package deribit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"fundview/internal/funding"
	"fundview/internal/logger"
	"fundview/internal/pkg/circuit"
)

const (
	pathFundingRateHistory = "/api/v2/public/get_funding_rate_history"
	pathFundingRateValue   = "/api/v2/public/get_funding_rate_value"

	// Deribit returns at most one month of hourly records per page; a full
	// page means older data remains before start_timestamp.
	fullHistoryPage = 744
)

// APIError is a Deribit JSON-RPC error envelope.
type APIError struct {
	Code    int64
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("deribit rpc error %d: %s", e.Code, e.Message)
}

// Client calls the public Deribit REST surface used by the dashboard.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *circuit.Breaker
}

func New(cfg Config) *Client {
	final := cfg.withDefaults()
	return &Client{
		cfg:     final,
		http:    &http.Client{Timeout: final.HTTPTimeout},
		limiter: rate.NewLimiter(rate.Limit(final.RateLimit), final.RateBurst),
		breaker: circuit.NewBreaker("deribit", final.BreakerThreshold, final.BreakerCooldown),
	}
}

// FundingRateHistory fetches all funding settlements for instrument in
// [startMs, endMs] (epoch milliseconds, end inclusive). Each record is one
// hourly settlement: interest_1h is the payment actually exchanged and
// lands in Sample.Rate; the rolling interest_8h quote rides along in
// Sample.Rate8H for display. Pages are pulled newest-first by shrinking
// end_timestamp until a short page arrives; the merged run is returned in
// chronological order.
func (c *Client) FundingRateHistory(ctx context.Context, instrument string, startMs, endMs int64) ([]funding.Sample, error) {
	instrument = strings.TrimSpace(instrument)
	if instrument == "" {
		return nil, fmt.Errorf("instrument is required")
	}
	if startMs > endMs {
		return nil, fmt.Errorf("start %d after end %d", startMs, endMs)
	}

	var samples []funding.Sample
	pageEnd := endMs
	for {
		page, err := c.historyPage(ctx, instrument, startMs, pageEnd)
		if err != nil {
			return nil, err
		}
		samples = append(samples, page...)
		if len(page) < fullHistoryPage {
			break
		}
		oldest := page[0].Timestamp.UnixMilli()
		if oldest <= startMs {
			break
		}
		pageEnd = oldest - 1
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
	return dedupe(samples), nil
}

// FundingRateValue returns the summed funding for instrument over
// [startMs, endMs]. A JSON-RPC error (pre-listing months, bad instrument)
// comes back as *APIError; callers exporting bulk data treat it as zero.
func (c *Client) FundingRateValue(ctx context.Context, instrument string, startMs, endMs int64) (decimal.Decimal, error) {
	body, err := c.get(ctx, pathFundingRateValue, url.Values{
		"instrument_name": {instrument},
		"start_timestamp": {strconv.FormatInt(startMs, 10)},
		"end_timestamp":   {strconv.FormatInt(endMs, 10)},
	})
	if err != nil {
		return decimal.Zero, err
	}
	result := gjson.GetBytes(body, "result")
	if !result.Exists() {
		return decimal.Zero, fmt.Errorf("deribit response missing result")
	}
	value, err := decimal.NewFromString(result.Raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid funding value %q: %w", result.Raw, err)
	}
	return value, nil
}

func (c *Client) historyPage(ctx context.Context, instrument string, startMs, endMs int64) ([]funding.Sample, error) {
	body, err := c.get(ctx, pathFundingRateHistory, url.Values{
		"instrument_name": {instrument},
		"start_timestamp": {strconv.FormatInt(startMs, 10)},
		"end_timestamp":   {strconv.FormatInt(endMs, 10)},
	})
	if err != nil {
		return nil, err
	}

	records := gjson.GetBytes(body, "result").Array()
	samples := make([]funding.Sample, 0, len(records))
	for _, rec := range records {
		ts := rec.Get("timestamp")
		hourly := rec.Get("interest_1h")
		rolling := rec.Get("interest_8h")
		if !ts.Exists() || !hourly.Exists() {
			continue
		}
		payment, err := decimal.NewFromString(hourly.Raw)
		if err != nil {
			return nil, fmt.Errorf("invalid interest_1h %q: %w", hourly.Raw, err)
		}
		rate8h := decimal.Zero
		if rolling.Exists() {
			rate8h, err = decimal.NewFromString(rolling.Raw)
			if err != nil {
				return nil, fmt.Errorf("invalid interest_8h %q: %w", rolling.Raw, err)
			}
		}
		samples = append(samples, funding.Sample{
			Timestamp:  time.UnixMilli(ts.Int()).UTC(),
			Rate:       payment,
			Rate8H:     rate8h,
			Instrument: instrument,
		})
	}
	return samples, nil
}

// get issues one rate-limited GET with linear-backoff retries. JSON-RPC
// error envelopes are terminal, transport and 5xx failures are retried and
// count against the circuit breaker.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.cfg.BaseURL + path + "?" + params.Encode()

	if !c.breaker.Allow() {
		return nil, fmt.Errorf("deribit GET %s rejected: circuit open", path)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		body, retryable, err := c.doGet(ctx, endpoint)
		if err == nil {
			c.breaker.RecordSuccess()
			return body, nil
		}
		if !retryable {
			// RPC errors and 4xx are the caller's problem, not an outage.
			c.breaker.RecordSuccess()
			return nil, err
		}
		lastErr = err
		if attempt < c.cfg.Retries {
			logger.Warnf("[deribit] GET %s attempt %d/%d failed: %v", path, attempt, c.cfg.Retries, err)
			backoff := time.Duration(attempt) * c.cfg.RetryBackoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	c.breaker.RecordFailure()
	return nil, fmt.Errorf("deribit GET %s failed after %d attempts: %w", path, c.cfg.Retries, lastErr)
}

func (c *Client) doGet(ctx context.Context, endpoint string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}

	// Deribit reports JSON-RPC errors with HTTP 400 as well, so inspect the
	// envelope before the status code.
	if rpcErr := gjson.GetBytes(body, "error"); rpcErr.Exists() && rpcErr.Type != gjson.Null {
		return nil, false, &APIError{
			Code:    rpcErr.Get("code").Int(),
			Message: rpcErr.Get("message").String(),
		}
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("deribit http %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("deribit http %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, false, nil
}

func dedupe(samples []funding.Sample) []funding.Sample {
	if len(samples) < 2 {
		return samples
	}
	out := samples[:1]
	for _, s := range samples[1:] {
		if s.Timestamp.Equal(out[len(out)-1].Timestamp) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
