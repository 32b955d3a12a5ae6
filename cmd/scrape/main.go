package main

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sjsage522/productbot/config"
	"sjsage522/productbot/helpers"
	"sjsage522/productbot/internal/retry"
	"sjsage522/productbot/internal/scraper"
	"sjsage522/productbot/internal/sink"
	"sjsage522/productbot/logger"
	"sjsage522/productbot/pkg/errors"
	"sjsage522/productbot/services/cache"
	"sjsage522/productbot/services/proxy"
	"sjsage522/productbot/services/publisher"
	"sjsage522/productbot/services/worker"
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
	cmd := &cobra.Command{
		Use:     "scrape [URL]",
		Short:   "Scrape title, price and reviews from a product page",
		Version: version,
		Long: `scrape fetches one product page with a random User-Agent, extracts
the title, price and reviews, and writes a single record to a CSV
(or .xlsx) file. Failed attempts are retried with exponential backoff.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.Scrape.ProductURL = args[0]
			}
			return run(cmd.Context(), cfg)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.Scrape.OutputFile, "output", "o", cfg.Scrape.OutputFile, "output file (.csv or .xlsx)")
	flags.StringVar(&cfg.Scrape.LogFile, "log-file", cfg.Scrape.LogFile, "log file (empty disables)")
	flags.IntVarP(&cfg.Scrape.MaxRetries, "retries", "r", cfg.Scrape.MaxRetries, "maximum number of attempts")
	flags.Float64Var(&cfg.Scrape.BackoffBase, "backoff-base", cfg.Scrape.BackoffBase, "exponential backoff base in seconds")
	flags.DurationVar(&cfg.Scrape.RequestTimeout, "timeout", cfg.Scrape.RequestTimeout, "HTTP request timeout")
	flags.StringVar(&cfg.ProxyURL, "proxy", cfg.ProxyURL, "proxy URL")
	flags.StringVar(&cfg.Scrape.MemcacheAddr, "memcache", cfg.Scrape.MemcacheAddr, "memcache address for the rate-limit block")
	flags.StringVar(&cfg.Scrape.RedisAddr, "redis", cfg.Scrape.RedisAddr, "redis address for publishing the product")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := logger.Init(logger.Options{File: cfg.Scrape.LogFile}); err != nil {
		logger.Warn("Logging to console only: %v", err)
	}
	defer logger.Close()
	log := logger.Default

	if err := cfg.ValidateScrape(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("environment", cfg.Environment).
		Str("url", cfg.Scrape.ProductURL).
		Str("output", cfg.Scrape.OutputFile).
		Msg("Starting scrape")

	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize services")
		return err
	}
	defer services.Cleanup()

	client := helpers.NewClient(cfg.Scrape.RequestTimeout, services.proxyFunc())

	s := scraper.NewProductScraper(scraper.ProductScraperConfig{
		URL:       cfg.Scrape.ProductURL,
		Client:    client,
		CacheSvc:  services.Cache,
		CacheKey:  cfg.Scrape.CacheKey,
		BlockTime: cfg.Scrape.BlockTime,
	})

	w := worker.NewWorker(
		s,
		retry.New(cfg.Scrape.MaxRetries, cfg.Scrape.BackoffBase),
		sink.New(cfg.Scrape.OutputFile),
		services.Publisher,
	)

	if _, err := w.Run(ctx); err != nil {
		return err
	}

	log.Info().Str("output", cfg.Scrape.OutputFile).Msg("Product data saved")
	return nil
}

// Services holds the optional backing services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Proxies   *proxy.Pool
}

func (s *Services) proxyFunc() func(*http.Request) (*url.URL, error) {
	if s.Proxies == nil || s.Proxies.Len() == 0 {
		return nil
	}
	return s.Proxies.ProxyFunc()
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices connects the services that are configured
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	pool, err := proxy.Parse(cfg.ProxyURL)
	if err != nil {
		return nil, err
	}
	if pool.Len() > 0 {
		if pool.Test(ctx) == 0 {
			return nil, errors.NewConfiguration("no configured proxy is reachable", proxy.ErrNoProxy)
		}
		services.Proxies = pool
		logger.Default.Info().Interface("proxy_stats", pool.Stats()).Msg("Proxy stats")
	}

	if cfg.Scrape.MemcacheAddr != "" {
		cacheService := cache.NewMemcacheService(cfg.Scrape.MemcacheAddr, cfg.Scrape.RequestTimeout)
		if err := cacheService.Ping(); err != nil {
			logger.Warn("Memcache at %s unavailable, rate-limit block disabled: %v", cfg.Scrape.MemcacheAddr, err)
		} else {
			services.Cache = cacheService
			logger.Info("Connected to Memcache at %s", cfg.Scrape.MemcacheAddr)
		}
	}

	if cfg.Scrape.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			cfg.Scrape.RedisAddr,
			cfg.Scrape.RedisDB,
			cfg.Scrape.RedisStream,
			cfg.Scrape.RedisStreamCount,
			cfg.Scrape.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(ctx); err != nil {
			redisPublisher.Close()
			return nil, err
		}
		services.Publisher = redisPublisher

		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.Scrape.RedisAddr, cfg.Scrape.RedisDB, cfg.Scrape.RedisStream)
	}

	return services, nil
}
