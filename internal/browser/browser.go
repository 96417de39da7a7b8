// Package browser owns the process-wide headless Chrome instance used by the
// rendering source providers and the extraction engine. The allocator is
// started lazily on first use and must be released with Close at run end;
// leaking it leaks an OS process.
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// defaultUserAgents is the rotating identity pool. All desktop Chrome; the
// viewport below matches.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

const (
	viewportWidth  = 1920
	viewportHeight = 1080
)

// Config controls the shared browser.
type Config struct {
	Headless   bool
	Proxy      string   // optional proxy server URL
	UserAgents []string // identity pool; defaults to defaultUserAgents
}

// Page is the rendered result of one navigation.
type Page struct {
	URL   string // URL after redirects/challenges
	HTML  string
	Title string
}

// RenderOptions controls one Render call.
type RenderOptions struct {
	Timeout time.Duration // hard navigation timeout; required
	Settle  time.Duration // post-load wait to emulate human pacing
}

// Browser wraps a single chromedp exec allocator shared across a run.
type Browser struct {
	cfg Config

	mu      sync.Mutex
	started bool
	next    int // round-robin index into the identity pool
	alloc   context.Context
	cancel  context.CancelFunc
}

// New creates an unstarted Browser. Chrome launches on first Render/NewTab.
func New(cfg Config) *Browser {
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}
	return &Browser{cfg: cfg}
}

// NextUserAgent returns the next identity from the rotating pool.
func (b *Browser) NextUserAgent() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ua := b.cfg.UserAgents[b.next%len(b.cfg.UserAgents)]
	b.next++
	return ua
}

func (b *Browser) ensureStarted() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return b.alloc, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(viewportWidth, viewportHeight),
	)
	if b.cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(b.cfg.Proxy))
	}

	b.alloc, b.cancel = chromedp.NewExecAllocator(context.Background(), opts...)
	b.started = true
	zap.L().Debug("browser: allocator started", zap.Bool("headless", b.cfg.Headless))
	return b.alloc, nil
}

// NewTab opens a fresh tab context with the next rotated identity applied.
// The caller must invoke the returned cancel to close the tab.
func (b *Browser) NewTab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	alloc, err := b.ensureStarted()
	if err != nil {
		return nil, nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(alloc)
	// Bind the tab to the caller's context so cancellation propagates.
	stop := context.AfterFunc(ctx, cancelTab)

	ua := b.NextUserAgent()
	if err := chromedp.Run(tabCtx, emulation.SetUserAgentOverride(ua)); err != nil {
		stop()
		cancelTab()
		return nil, nil, eris.Wrap(err, "browser: set identity")
	}

	cancel := func() {
		stop()
		cancelTab()
	}
	return tabCtx, cancel, nil
}

// Render navigates to url in a fresh tab and returns the rendered page.
// Each call uses the next identity from the pool and a hard timeout.
func (b *Browser) Render(ctx context.Context, url string, opts RenderOptions) (Page, error) {
	tabCtx, cancel, err := b.NewTab(ctx)
	if err != nil {
		return Page{}, err
	}
	defer cancel()

	runCtx := tabCtx
	if opts.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(tabCtx, opts.Timeout)
		defer cancelTimeout()
	}

	var page Page
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	}
	if opts.Settle > 0 {
		actions = append(actions, chromedp.Sleep(opts.Settle))
	}
	actions = append(actions,
		chromedp.Location(&page.URL),
		chromedp.Title(&page.Title),
		chromedp.OuterHTML("html", &page.HTML),
	)

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return Page{}, eris.Wrapf(err, "browser: render %s", url)
	}
	return page, nil
}

// Close releases the Chrome process. Safe to call without a prior start and
// more than once.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
		b.started = false
		zap.L().Debug("browser: allocator released")
	}
}
