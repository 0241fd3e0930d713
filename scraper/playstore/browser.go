package playstore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"playstore-scraper/utils"
)

// BrowserTransport issues the review RPC from inside a headless Chrome tab
// opened on the app's store page. Used when direct HTTP calls get blocked.
type BrowserTransport struct {
	baseURL   string
	chromeBin string
	timeout   time.Duration
	logger    *utils.Logger

	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

var _ Transport = (*BrowserTransport)(nil)

// NewBrowserTransport creates a browser-backed transport. The browser is
// started lazily on first use; call Close to shut it down.
func NewBrowserTransport(baseURL, chromeBin string, timeout time.Duration, logger *utils.Logger) *BrowserTransport {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &BrowserTransport{
		baseURL:   baseURL,
		chromeBin: chromeBin,
		timeout:   timeout,
		logger:    logger,
	}
}

func (b *BrowserTransport) start() context.Context {
	if b.browserCtx != nil {
		return b.browserCtx
	}

	chromeBin := b.chromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	b.logger.Info("[playstore] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	b.browserCtx = browserCtx
	b.cancelBrowser = cancelBrowser
	b.cancelAlloc = cancelAlloc
	return browserCtx
}

func (b *BrowserTransport) BatchExecute(ctx context.Context, appID, lang, country, body string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.start())
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	q := url.Values{"hl": {lang}, "gl": {country}}
	rpcURL := b.baseURL + batchExecutePath + "?" + q.Encode()

	page := url.Values{"id": {appID}, "hl": {lang}, "gl": {country}}
	pageURL := b.baseURL + "/store/apps/details?" + page.Encode()

	script := fmt.Sprintf(`fetch(%q, {
		method: "POST",
		credentials: "include",
		headers: {"Content-Type": "application/x-www-form-urlencoded;charset=UTF-8"},
		body: %q
	}).then(function(r) {
		if (!r.ok) { throw new Error("unexpected status " + r.status); }
		return r.text();
	})`, rpcURL, body)

	var text string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.Evaluate(script, &text, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("chromedp batchexecute: %w", err)
	}
	return text, nil
}

// Close shuts the browser down.
func (b *BrowserTransport) Close() error {
	if b.cancelBrowser != nil {
		b.cancelBrowser()
		b.cancelAlloc()
		b.browserCtx = nil
	}
	return nil
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
