package scraper

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/productbot/helpers"
	"sjsage522/productbot/logger"
	perrors "sjsage522/productbot/pkg/errors"
	"sjsage522/productbot/services/cache"
)

// ProductScraper fetches a single product page and extracts its fields
type ProductScraper struct {
	URL       string
	Client    *http.Client
	Selectors Selectors

	// Optional rate-limit block
	CacheSvc  cache.CacheService
	CacheKey  string
	BlockTime time.Duration

	now func() time.Time
}

// ProductScraperConfig contains configuration for a ProductScraper
type ProductScraperConfig struct {
	URL       string
	Client    *http.Client
	Selectors *Selectors
	CacheSvc  cache.CacheService
	CacheKey  string
	BlockTime time.Duration
}

// NewProductScraper creates a new product scraper
func NewProductScraper(cfg ProductScraperConfig) *ProductScraper {
	selectors := DefaultSelectors()
	if cfg.Selectors != nil {
		selectors = *cfg.Selectors
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &ProductScraper{
		URL:       cfg.URL,
		Client:    client,
		Selectors: selectors,
		CacheSvc:  cfg.CacheSvc,
		CacheKey:  cfg.CacheKey,
		BlockTime: cfg.BlockTime,
		now:       time.Now,
	}
}

// Scrape issues one GET for the product page and extracts a Product from it
func (s *ProductScraper) Scrape(ctx context.Context) (*Product, error) {
	log := logger.ForScraper()

	if err := s.checkBlock(); err != nil {
		return nil, err
	}

	log.Debug().Str("url", s.URL).Msg("Sending request")
	body, err := helpers.FetchWithRandomHeaders(ctx, s.Client, s.URL)
	if err != nil {
		if perrors.IsType(err, perrors.ErrorTypeRateLimit) {
			s.setBlock()
		}
		return nil, err
	}
	log.Debug().Str("url", s.URL).Msg("Received response")

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, perrors.NewParsing("scraper", "failed to parse HTML", err)
	}

	product := Extract(doc, s.Selectors)
	product.URL = s.URL
	product.ScrapedAt = s.now()

	log.Debug().
		Str("title", product.Title).
		Str("price", product.Price).
		Int("reviews", len(product.Reviews)).
		Msg("Product data extracted")
	return product, nil
}

func (s *ProductScraper) blockEnabled() bool {
	return s.CacheSvc != nil && s.CacheKey != "" && s.BlockTime > 0
}

// checkBlock fails fast while a previous rate limit is still in effect
func (s *ProductScraper) checkBlock() error {
	if !s.blockEnabled() {
		return nil
	}

	value, err := s.CacheSvc.Get(s.CacheKey)
	if errors.Is(err, cache.ErrMiss) {
		return nil
	}
	if err != nil {
		logger.ForCache().Warn().Err(err).Msg("Rate-limit check failed, continuing")
		return nil
	}

	remaining := s.BlockTime
	if until, convErr := strconv.ParseInt(string(value), 10, 64); convErr == nil {
		remaining = time.Unix(until, 0).Sub(s.now()).Round(time.Second)
	}
	return perrors.NewBlocked("scraper", remaining)
}

func (s *ProductScraper) setBlock() {
	if !s.blockEnabled() {
		return
	}

	until := s.now().Add(s.BlockTime).Unix()
	if err := s.CacheSvc.Set(s.CacheKey, []byte(strconv.FormatInt(until, 10)), s.BlockTime); err != nil {
		logger.ForCache().Warn().Err(err).Msg("Failed to set rate-limit block")
		return
	}
	logger.ForCache().Info().Dur("block_time", s.BlockTime).Msg("Rate limited, blocking further requests")
}
