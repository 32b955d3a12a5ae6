// Package login drives a browser through a fixed login sequence and decides
// success by where the browser ends up.
package login

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"sjsage522/productbot/logger"
	"sjsage522/productbot/pkg/errors"
)

// Driver is the subset of browser control the login flow needs
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// WaitPresent polls until selector matches an element or timeout expires
	WaitPresent(ctx context.Context, selector string, timeout time.Duration) error
	SendKeys(ctx context.Context, selector, text string) error
	// Submit presses Enter in the element matched by selector
	Submit(ctx context.Context, selector string) error
	CurrentURL(ctx context.Context) (string, error)
	Close() error
}

// Credentials holds the account used to log in
type Credentials struct {
	Username string
	Password string
}

// Validate fails when either credential is missing
func (c Credentials) Validate() error {
	if c.Username == "" || c.Password == "" {
		return errors.NewCredentials("USERNAME or PASSWORD environment variable is not set.")
	}
	return nil
}

// Result describes the outcome of a login attempt
type Result struct {
	Success  bool
	Location string
}

// Flow is the fixed navigate, fill, submit, check sequence
type Flow struct {
	LoginURL         string
	FormSelector     string
	UsernameSelector string
	PasswordSelector string
	// FailureMarker is matched against the final location; defaults to
	// LoginURL without its scheme
	FailureMarker string
	WaitTimeout   time.Duration
	SettleDelay   time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewFlow returns a Flow with the default selectors and timings
func NewFlow(loginURL string) *Flow {
	return &Flow{
		LoginURL:         loginURL,
		FormSelector:     "#login-form",
		UsernameSelector: "#email",
		PasswordSelector: "#password",
		WaitTimeout:      10 * time.Second,
		SettleDelay:      5 * time.Second,
	}
}

// Marker returns the substring whose presence in the final location means
// the login was rejected
func (f *Flow) Marker() string {
	if f.FailureMarker != "" {
		return f.FailureMarker
	}
	u, err := url.Parse(f.LoginURL)
	if err != nil || u.Host == "" {
		return f.LoginURL
	}
	return u.Host + u.Path
}

// Run performs the login with d. It returns a login_failed error when the
// browser is still on the login page after submitting.
func (f *Flow) Run(ctx context.Context, d Driver, creds Credentials) (Result, error) {
	log := logger.ForLogin()

	if err := creds.Validate(); err != nil {
		return Result{}, err
	}

	log.Info().Str("url", f.LoginURL).Msg("Opening login page...")
	if err := d.Navigate(ctx, f.LoginURL); err != nil {
		return Result{}, errors.NewBrowser("login", "failed to open "+f.LoginURL, err)
	}

	if err := f.wait(ctx, d, f.FormSelector); err != nil {
		return Result{}, err
	}

	log.Info().Msg("Logging in with username...")
	if err := f.fill(ctx, d, f.UsernameSelector, creds.Username); err != nil {
		return Result{}, err
	}

	log.Info().Msg("Logging in with password...")
	if err := f.fill(ctx, d, f.PasswordSelector, creds.Password); err != nil {
		return Result{}, err
	}

	if err := d.Submit(ctx, f.PasswordSelector); err != nil {
		return Result{}, errors.NewBrowser("login", "failed to submit form", err)
	}

	if err := f.doSleep(ctx, f.SettleDelay); err != nil {
		return Result{}, err
	}

	location, err := d.CurrentURL(ctx)
	if err != nil {
		return Result{}, errors.NewBrowser("login", "failed to read current URL", err)
	}

	if strings.Contains(location, f.Marker()) {
		log.Error().Str("location", location).Msg("Login failed. Please check your credentials.")
		return Result{Success: false, Location: location}, errors.NewLoginFailed(location)
	}

	log.Info().Str("location", location).Msg("Login successful.")
	return Result{Success: true, Location: location}, nil
}

func (f *Flow) wait(ctx context.Context, d Driver, selector string) error {
	if err := d.WaitPresent(ctx, selector, f.WaitTimeout); err != nil {
		return errors.NewBrowser("login", fmt.Sprintf("timed out after %v waiting for %s", f.WaitTimeout, selector), err)
	}
	return nil
}

func (f *Flow) fill(ctx context.Context, d Driver, selector, text string) error {
	if err := f.wait(ctx, d, selector); err != nil {
		return err
	}
	if err := d.SendKeys(ctx, selector, text); err != nil {
		return errors.NewBrowser("login", "failed to type into "+selector, err)
	}
	return nil
}

func (f *Flow) doSleep(ctx context.Context, d time.Duration) error {
	if f.sleep != nil {
		return f.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WaitForEnter prompts on w and blocks until a line is read from r
func WaitForEnter(r io.Reader, w io.Writer) error {
	fmt.Fprint(w, "Press Enter to close the browser...")
	_, err := bufio.NewReader(r).ReadString('\n')
	if err == io.EOF {
		return nil
	}
	return err
}
