package fetcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"airbnb-explorer/utils"
)

// BrowserScheme prefixes locators that must be downloaded through headless
// Chrome, e.g. browser+https://host/listings.csv. Some mirrors only answer
// clients that run their JavaScript challenge.
const BrowserScheme = "browser+"

// BrowserFetcher loads a plain-text document in headless Chrome and returns
// the text Chrome renders for it.
type BrowserFetcher struct {
	chromeBin string
	timeout   time.Duration
	logger    *utils.Logger
	retry     *utils.RetryConfig
	// render loads one page and returns its text; each retry attempt calls it
	// once.
	render func(ctx context.Context, target string) (string, error)
}

// NewBrowserFetcher creates a BrowserFetcher. An empty chromeBin searches the
// usual install locations.
func NewBrowserFetcher(chromeBin string, timeout time.Duration, retries int, logger *utils.Logger) *BrowserFetcher {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	b := &BrowserFetcher{
		chromeBin: chromeBin,
		timeout:   timeout,
		logger:    logger,
		retry: &utils.RetryConfig{
			MaxAttempts: retries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
	b.render = b.renderChrome
	return b
}

// browserTarget strips the browser+ prefix and returns the http(s) URL Chrome
// should open.
func browserTarget(locator string) (string, error) {
	if len(locator) < len(BrowserScheme) || !strings.EqualFold(locator[:len(BrowserScheme)], BrowserScheme) {
		return "", fmt.Errorf("locator %q does not start with %s", locator, BrowserScheme)
	}
	target := locator[len(BrowserScheme):]
	switch Scheme(target) {
	case "http", "https":
		return target, nil
	}
	return "", fmt.Errorf("locator %q must wrap an http or https URL", locator)
}

func (b *BrowserFetcher) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	target, err := browserTarget(locator)
	if err != nil {
		return nil, fmt.Errorf("browser: %w", err)
	}
	b.logger.Info("[fetcher] Using browser binary %q for %s", b.chromeBin, target)

	var text string
	err = b.retry.Do(ctx, "browser "+target, func(ctx context.Context) error {
		var err error
		text, err = b.render(ctx, target)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("browser: %w", err)
	}
	return io.NopCloser(strings.NewReader(text)), nil
}

func (b *BrowserFetcher) renderChrome(ctx context.Context, target string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if b.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(b.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	tabCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancel()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	// Chrome wraps text/plain and text/csv responses in a single <pre>.
	var text string
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(target),
		chromedp.Text("pre", &text, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("chromedp: %w", err)
	}
	return text, nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
