// Package browser provides the real browser drivers behind login.Driver.
package browser

import (
	"context"
	"fmt"
	"time"

	"sjsage522/productbot/config"
	"sjsage522/productbot/internal/login"
	"sjsage522/productbot/pkg/errors"
)

// Supported driver names
const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
)

// Options configures how the browser process is launched
type Options struct {
	Headless   bool
	ChromePath string
	ProxyURL   string
	UserAgent  string
	// ActionTimeout bounds element lookups made after the element was waited for
	ActionTimeout time.Duration
}

// OptionsFromConfig maps the login configuration to launch options.
// ProxyURL is left for the caller to pick from the proxy pool.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Headless:      cfg.Login.Headless,
		ChromePath:    cfg.Login.ChromePath,
		ActionTimeout: cfg.Login.WaitTimeout,
	}
}

// New launches the named driver
func New(name string, opts Options) (login.Driver, error) {
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 10 * time.Second
	}

	switch name {
	case DriverChromedp, "":
		return NewChromedp(opts)
	case DriverRod:
		return NewRod(opts)
	default:
		return nil, errors.NewConfiguration(fmt.Sprintf("unknown browser driver %q", name), nil)
	}
}

// withTimeout derives a context from base that is also cancelled when ctx is
func withTimeout(base, ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(base, d)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}
