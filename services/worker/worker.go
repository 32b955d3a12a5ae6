package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"sjsage522/productbot/internal/retry"
	"sjsage522/productbot/internal/scraper"
	"sjsage522/productbot/internal/sink"
	"sjsage522/productbot/logger"
	"sjsage522/productbot/pkg/errors"
	"sjsage522/productbot/services/publisher"
)

// PublishKey is the stream field holding the base64 product JSON
const PublishKey = "b64_product"

// Worker runs one scrape: retry around the scraper, then write and publish
type Worker struct {
	scraper   scraper.Scraper
	retrier   *retry.Retrier
	sink      sink.Writer
	publisher publisher.Publisher
}

// NewWorker creates a new worker. pub may be nil.
func NewWorker(
	s scraper.Scraper,
	retrier *retry.Retrier,
	w sink.Writer,
	pub publisher.Publisher,
) *Worker {
	return &Worker{
		scraper:   s,
		retrier:   retrier,
		sink:      w,
		publisher: pub,
	}
}

// Run scrapes the product, stopping at the first successful attempt, and
// hands the record to the sink and publisher
func (w *Worker) Run(ctx context.Context) (*scraper.Product, error) {
	log := logger.ForWorker()

	attempts := 0
	product, err := retry.Do(ctx, w.retrier, func(ctx context.Context, attempt int) (*scraper.Product, error) {
		attempts++
		product, err := w.scraper.Scrape(ctx)
		if err != nil {
			log.Error().Err(err).Int("attempt", attempt+1).Msg("An error occurred while scraping the product")
		}
		return product, err
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if stderrors.As(err, &exhausted) {
			log.Error().Err(err).Msgf("Failed to scrape product data after %d attempts", exhausted.Attempts)
		} else {
			log.Error().Err(err).Int("attempts", attempts).Msg("Stopped scraping product data before the retry limit")
		}
		return nil, err
	}

	if err := w.sink.Write(ctx, product); err != nil {
		log.Error().Err(err).Msg("File error")
		return product, err
	}

	if err := w.publish(ctx, product); err != nil {
		log.Error().Err(err).Msg("Failed to publish product")
		return product, err
	}

	log.Info().
		Str("title", product.Title).
		Str("price", product.Price).
		Int("reviews", len(product.Reviews)).
		Msg("Product scraped")
	return product, nil
}

func (w *Worker) publish(ctx context.Context, product *scraper.Product) error {
	if w.publisher == nil {
		return nil
	}

	data, err := json.Marshal(product)
	if err != nil {
		return errors.NewPublisher("worker", "failed to marshal product", err)
	}
	return w.publisher.Publish(ctx, PublishKey, data)
}
