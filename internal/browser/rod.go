package browser

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"sjsage522/productbot/logger"
	"sjsage522/productbot/pkg/errors"
)

// RodDriver drives Chrome with go-rod
type RodDriver struct {
	opts     Options
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	log      *logger.Logger
}

// NewRod launches Chrome and opens a blank page
func NewRod(opts Options) (*RodDriver, error) {
	log := logger.ForBrowser(DriverRod)

	l := launcher.New().Headless(opts.Headless)
	if opts.ChromePath != "" {
		l = l.Bin(opts.ChromePath)
	}
	if opts.ProxyURL != "" {
		l = l.Proxy(opts.ProxyURL)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, errors.NewBrowser("rod", "failed to launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, errors.NewBrowser("rod", "failed to connect to browser", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		l.Kill()
		return nil, errors.NewBrowser("rod", "failed to open page", err)
	}

	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			log.Warn().Err(err).Msg("Failed to override user agent")
		}
	}

	log.Info().Bool("headless", opts.Headless).Msg("Browser started")
	return &RodDriver{
		opts:     opts,
		launcher: l,
		browser:  browser,
		page:     page,
		log:      log,
	}, nil
}

// timed binds the page to ctx with a deadline; cancel releases the timer
func (d *RodDriver) timed(ctx context.Context, timeout time.Duration) (*rod.Page, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	return d.page.Context(opCtx), cancel
}

// Navigate loads url and waits for the load event
func (d *RodDriver) Navigate(ctx context.Context, url string) error {
	page, cancel := d.timed(ctx, d.opts.ActionTimeout*3)
	defer cancel()

	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

// WaitPresent polls until selector matches an element
func (d *RodDriver) WaitPresent(ctx context.Context, selector string, timeout time.Duration) error {
	page, cancel := d.timed(ctx, timeout)
	defer cancel()

	_, err := page.Element(selector)
	return err
}

// withElement runs fn on the element matched by selector under the action timeout
func (d *RodDriver) withElement(ctx context.Context, selector string, fn func(el *rod.Element) error) error {
	page, cancel := d.timed(ctx, d.opts.ActionTimeout)
	defer cancel()

	el, err := page.Element(selector)
	if err != nil {
		return err
	}
	return fn(el)
}

// SendKeys types text into the element matched by selector
func (d *RodDriver) SendKeys(ctx context.Context, selector, text string) error {
	return d.withElement(ctx, selector, func(el *rod.Element) error {
		return el.Input(text)
	})
}

// Submit presses Enter in the element matched by selector
func (d *RodDriver) Submit(ctx context.Context, selector string) error {
	return d.withElement(ctx, selector, func(el *rod.Element) error {
		return el.Type(input.Enter)
	})
}

// CurrentURL returns the location of the page
func (d *RodDriver) CurrentURL(ctx context.Context) (string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// Close shuts the browser down and kills the launched process
func (d *RodDriver) Close() error {
	err := d.browser.Close()
	d.launcher.Kill()
	d.log.Info().Msg("Browser closed.")
	return err
}
