package visual

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

var (
	headlessMu    sync.Mutex
	headlessReady bool
)

// probeHeadless launches a throwaway browser to confirm a headless Chrome
// is installed. It runs on a background context so a canceled caller cannot
// poison the probe result. Swapped in tests.
var probeHeadless = func() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	browser, cancelBrowser := chromedp.NewContext(ctx)
	defer cancelBrowser()
	return chromedp.Run(browser)
}

// EnsureHeadlessAvailable probes for a usable headless Chrome. Only success
// is cached: a failed probe is retried on the next call, so a transient
// outage or slow first launch does not disable PNG snapshots for the rest
// of the process lifetime.
func EnsureHeadlessAvailable() error {
	headlessMu.Lock()
	defer headlessMu.Unlock()
	if headlessReady {
		return nil
	}
	if err := probeHeadless(); err != nil {
		return fmt.Errorf("headless chrome probe: %w", err)
	}
	headlessReady = true
	return nil
}

// RenderPNG rasterizes the chart page through headless Chrome.
func RenderPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if err := EnsureHeadlessAvailable(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
