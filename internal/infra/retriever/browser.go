package retriever

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"news-archiver/internal/resilience/circuitbreaker"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// browserCandidates are executable names looked up on PATH, most specific first.
var browserCandidates = []string{
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"chrome",
}

// BrowserStrategy renders the page in headless Chrome and captures the DOM
// once the network has gone idle.
type BrowserStrategy struct {
	execPath    string
	timeout     time.Duration
	idleTimeout time.Duration
	breaker     *circuitbreaker.CircuitBreaker
}

// DetectBrowser resolves a Chrome executable. An explicit path wins; an empty
// path searches PATH. The second return is false when no browser is installed,
// in which case the heavyweight strategy is left out of the chain.
func DetectBrowser(path string) (*BrowserStrategy, bool) {
	if path != "" {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return nil, false
		}
		return newBrowserStrategy(resolved), true
	}
	for _, name := range browserCandidates {
		if resolved, err := exec.LookPath(name); err == nil {
			return newBrowserStrategy(resolved), true
		}
	}
	return nil, false
}

func newBrowserStrategy(execPath string) *BrowserStrategy {
	return &BrowserStrategy{
		execPath:    execPath,
		timeout:     DefaultTimeout,
		idleTimeout: 10 * time.Second,
		breaker:     circuitbreaker.New(circuitbreaker.BrowserConfig()),
	}
}

// Name implements Strategy.
func (b *BrowserStrategy) Name() string { return "browser" }

// Breaker returns the breaker guarding browser launches.
func (b *BrowserStrategy) Breaker() *circuitbreaker.CircuitBreaker { return b.breaker }

// ExecPath returns the resolved browser executable.
func (b *BrowserStrategy) ExecPath() string { return b.execPath }

// Attempt implements Strategy.
func (b *BrowserStrategy) Attempt(ctx context.Context, url string) (string, error) {
	res, err := b.breaker.Execute(func() (interface{}, error) {
		return b.render(ctx, url)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (b *BrowserStrategy) render(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(b.execPath),
		chromedp.UserAgent(DesktopUserAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, b.timeout)
	defer cancel()

	idle := make(chan *page.EventLifecycleEvent, 32)
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			select {
			case idle <- e:
			default:
			}
		}
	})

	var html string
	err := chromedp.Run(runCtx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, loader, errorText, _, err := page.Navigate(url).Do(ctx)
			if err != nil {
				return err
			}
			if errorText != "" {
				return fmt.Errorf("navigate: %s", errorText)
			}
			_, err = waitNetworkIdle(ctx, idle, loader, b.idleTimeout)
			return err
		}),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("browser render %s: %w", url, err)
	}
	return html, nil
}

// waitNetworkIdle waits for the networkIdle lifecycle event of the navigation
// identified by loader and reports whether it arrived. Events of other loaders,
// such as the initial about:blank page or an iframe, are ignored. Pages that
// keep a connection open never go idle, so the wait gives up quietly after max
// and the current DOM is used.
func waitNetworkIdle(ctx context.Context, idle <-chan *page.EventLifecycleEvent, loader cdp.LoaderID, max time.Duration) (bool, error) {
	timer := time.NewTimer(max)
	defer timer.Stop()
	for {
		select {
		case e := <-idle:
			if e.LoaderID == loader {
				return true, nil
			}
		case <-timer.C:
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}
