package browser

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"sjsage522/productbot/logger"
	"sjsage522/productbot/pkg/errors"
)

// ChromedpDriver drives Chrome over the DevTools protocol with chromedp
type ChromedpDriver struct {
	opts        Options
	browserCtx  context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	log         *logger.Logger
}

// NewChromedp starts Chrome and opens a blank tab
func NewChromedp(opts Options) (*ChromedpDriver, error) {
	log := logger.ForBrowser(DriverChromedp)

	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 900),
	)
	if opts.ChromePath != "" {
		execOpts = append(execOpts, chromedp.ExecPath(opts.ChromePath))
	}
	if opts.ProxyURL != "" {
		execOpts = append(execOpts, chromedp.ProxyServer(opts.ProxyURL))
	}
	if opts.UserAgent != "" {
		execOpts = append(execOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), execOpts...)
	browserCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, v ...interface{}) {
			log.Debug().Msgf(format, v...)
		}),
	)

	// The first Run launches the browser process
	if err := chromedp.Run(browserCtx, network.ClearBrowserCookies()); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, errors.NewBrowser("chromedp", "failed to start browser", err)
	}

	log.Info().Bool("headless", opts.Headless).Msg("Browser started")
	return &ChromedpDriver{
		opts:        opts,
		browserCtx:  browserCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		log:         log,
	}, nil
}

func (d *ChromedpDriver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := withTimeout(d.browserCtx, ctx, timeout)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

// Navigate loads url and waits for the load event
func (d *ChromedpDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, d.opts.ActionTimeout*3, chromedp.Navigate(url))
}

// WaitPresent polls until selector matches an element
func (d *ChromedpDriver) WaitPresent(ctx context.Context, selector string, timeout time.Duration) error {
	return d.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
}

// SendKeys types text into the element matched by selector
func (d *ChromedpDriver) SendKeys(ctx context.Context, selector, text string) error {
	return d.run(ctx, d.opts.ActionTimeout, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

// Submit presses Enter in the element matched by selector
func (d *ChromedpDriver) Submit(ctx context.Context, selector string) error {
	return d.run(ctx, d.opts.ActionTimeout, chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery))
}

// CurrentURL returns the location of the current tab
func (d *ChromedpDriver) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := d.run(ctx, d.opts.ActionTimeout, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

// Close shuts the browser down
func (d *ChromedpDriver) Close() error {
	err := chromedp.Cancel(d.browserCtx)
	d.cancelTab()
	d.cancelAlloc()
	d.log.Info().Msg("Browser closed.")
	return err
}
