// Package browser pins a page identity onto a live Chrome tab.
//
// TabSink drives the same client-side sink the injector script uses, one
// method per Evaluate call, so a page that was never served by homescreen
// can be given the identity from outside.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"

	"homescreen/internal/domain"
	"homescreen/internal/script"
	"homescreen/internal/sink"
)

// Options configures the Chrome instance
type Options struct {
	Headless bool
	Timeout  time.Duration
	ExecPath string
}

// Browser owns one Chrome process shared by all pins
type Browser struct {
	ctx           context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	opts          Options
	logger        *log.Logger

	startOnce sync.Once
	startErr  error
}

// New starts a browser context. Chrome itself is launched lazily on first use.
func New(opts Options, logger *log.Logger) *Browser {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	return &Browser{
		ctx:           browserCtx,
		allocCancel:   allocCancel,
		browserCancel: browserCancel,
		opts:          opts,
		logger:        logger,
	}
}

// Close shuts Chrome down
func (b *Browser) Close() {
	b.browserCancel()
	b.allocCancel()
}

// start launches Chrome on the browser context so tabs share one process
// and cancelling a tab does not close the browser
func (b *Browser) start() error {
	b.startOnce.Do(func() {
		if err := chromedp.Run(b.ctx); err != nil {
			b.startErr = fmt.Errorf("start chrome: %w", err)
		}
	})
	return b.startErr
}

// Result describes the state of the page after both applications
type Result struct {
	URL      string
	Title    string
	Initial  error
	Deferred error
}

// Pin opens url in a new tab, applies the identity once the page is ready,
// applies it again after delay, and reports the final document title.
func (b *Browser) Pin(ctx context.Context, url string, id domain.PageIdentity, delay time.Duration) (*Result, error) {
	if err := b.start(); err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(b.ctx)
	defer cancel()

	if delay <= 0 {
		delay = sink.DefaultRetryDelay
	}
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.opts.Timeout+delay)
	defer cancelTimeout()

	b.logger.Info("Pinning identity", "url", url, "title", id.Title())

	if err := chromedp.Run(tabCtx, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	tab := NewTabSink(tabCtx, b.logger)
	outcome := sink.Schedule(ctx, tab, id, delay)
	if outcome.Initial != nil {
		b.logger.Error("Initial identity application failed", "url", url, "err", outcome.Initial)
	}

	result := &Result{URL: url, Initial: outcome.Initial}

	select {
	case result.Deferred = <-outcome.Deferred:
	case <-tabCtx.Done():
		return nil, fmt.Errorf("wait for deferred application: %w", tabCtx.Err())
	}
	if result.Deferred != nil {
		b.logger.Error("Deferred identity application failed", "url", url, "err", result.Deferred)
	}

	if err := chromedp.Run(tabCtx, chromedp.Title(&result.Title)); err != nil {
		return nil, fmt.Errorf("read title: %w", err)
	}

	b.logger.Info("Identity pinned", "url", url, "title", result.Title)
	return result, nil
}

// TabSink implements sink.IdentitySink against the document of a chromedp tab
type TabSink struct {
	tab    context.Context
	logger *log.Logger
}

// NewTabSink wraps a chromedp tab context
func NewTabSink(tab context.Context, logger *log.Logger) *TabSink {
	return &TabSink{tab: tab, logger: logger}
}

// SetTitle implements sink.IdentitySink
func (s *TabSink) SetTitle(ctx context.Context, title string) error {
	return s.call(ctx, script.MethodSetTitle, title)
}

// SetIcon implements sink.IdentitySink
func (s *TabSink) SetIcon(ctx context.Context, iconURL string) error {
	return s.call(ctx, script.MethodSetIcon, iconURL)
}

// SetAppName implements sink.IdentitySink
func (s *TabSink) SetAppName(ctx context.Context, name string) error {
	return s.call(ctx, script.MethodSetAppName, name)
}

func (s *TabSink) call(ctx context.Context, method script.Method, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	expr, err := script.Invocation(method, value)
	if err != nil {
		return err
	}

	if err := chromedp.Run(s.tab, chromedp.Evaluate(expr, nil)); err != nil {
		return fmt.Errorf("evaluate %s: %w", method, err)
	}

	s.logger.Debug("Sink call", "method", method, "value", value)
	return nil
}
