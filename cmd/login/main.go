package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sjsage522/productbot/config"
	"sjsage522/productbot/helpers"
	"sjsage522/productbot/internal/browser"
	"sjsage522/productbot/internal/login"
	"sjsage522/productbot/logger"
	"sjsage522/productbot/services/proxy"
)

var version = "dev"

func main() {
	// Load environment variables
	godotenv.Load()

	cfg := config.LoadConfig()
	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var randomUA bool

	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Log in to a site through a real browser",
		Version: version,
		Long: `login opens the login page in Chrome, types USERNAME and PASSWORD
from the environment into the form, submits it, and reports whether
the browser left the login page.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := browser.OptionsFromConfig(cfg)
			if randomUA {
				opts.UserAgent = helpers.RandomUserAgent()
			}
			return run(cmd.Context(), cfg, opts)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Login.LoginURL, "url", cfg.Login.LoginURL, "login page URL")
	flags.StringVar(&cfg.Login.Driver, "driver", cfg.Login.Driver, "browser driver (chromedp|rod)")
	flags.BoolVar(&cfg.Login.Headless, "headless", cfg.Login.Headless, "run the browser without a window")
	flags.BoolVar(&cfg.Login.KeepOpen, "keep-open", cfg.Login.KeepOpen, "wait for Enter before closing a headed browser")
	flags.StringVar(&cfg.Login.ChromePath, "chrome", cfg.Login.ChromePath, "path to the Chrome binary")
	flags.StringVar(&cfg.Login.LogFile, "log-file", cfg.Login.LogFile, "log file (empty disables)")
	flags.DurationVar(&cfg.Login.WaitTimeout, "wait", cfg.Login.WaitTimeout, "how long to wait for each form element")
	flags.StringVar(&cfg.ProxyURL, "proxy", cfg.ProxyURL, "proxy URL")
	flags.BoolVar(&randomUA, "random-user-agent", false, "send a random desktop User-Agent")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, opts browser.Options) error {
	if err := logger.Init(logger.Options{File: cfg.Login.LogFile}); err != nil {
		logger.Warn("Logging to console only: %v", err)
	}
	defer logger.Close()
	log := logger.ForLogin()

	if err := cfg.ValidateLogin(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return err
	}

	creds := login.Credentials{Username: cfg.Login.Username, Password: cfg.Login.Password}
	if err := creds.Validate(); err != nil {
		log.Error().Err(err).Msg("Missing credentials")
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.ProxyURL == "" {
		proxyURL, err := pickProxy(ctx, cfg.ProxyURL)
		if err != nil {
			log.Error().Err(err).Msg("Failed to pick a proxy")
			return err
		}
		opts.ProxyURL = proxyURL
	}

	driver, err := browser.New(cfg.Login.Driver, opts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start browser")
		return err
	}
	defer driver.Close()

	flow := login.NewFlow(cfg.Login.LoginURL)
	flow.FormSelector = cfg.Login.FormSelector
	flow.UsernameSelector = cfg.Login.UsernameSelector
	flow.PasswordSelector = cfg.Login.PasswordSelector
	flow.FailureMarker = cfg.Login.FailureMarker
	flow.WaitTimeout = cfg.Login.WaitTimeout
	flow.SettleDelay = cfg.Login.SettleDelay

	_, err = flow.Run(ctx, driver, creds)
	if err != nil {
		log.Error().Err(err).Msg("An error occurred")
	}

	if cfg.Login.KeepOpen && !cfg.Login.Headless {
		if waitErr := login.WaitForEnter(os.Stdin, os.Stdout); waitErr != nil {
			log.Warn().Err(waitErr).Msg("Failed to read from stdin")
		}
	}
	return err
}

// pickProxy returns the fastest reachable proxy, or "" when none are configured
func pickProxy(ctx context.Context, list string) (string, error) {
	pool, err := proxy.Parse(list)
	if err != nil || pool.Len() == 0 {
		return "", err
	}
	pool.Test(ctx)
	fastest, err := pool.Fastest()
	if err != nil {
		return "", err
	}
	return fastest.String(), nil
}
