package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sjsage522/productbot/internal/retry"
	"sjsage522/productbot/internal/scraper"
	"sjsage522/productbot/internal/sink"
	"sjsage522/productbot/logger"
	perrors "sjsage522/productbot/pkg/errors"
	"sjsage522/productbot/services/publisher"
)

// MockScraper returns queued results in order
type MockScraper struct {
	mu      sync.Mutex
	results []mockResult
	calls   int
}

type mockResult struct {
	product *scraper.Product
	err     error
}

// Ensure MockScraper implements scraper.Scraper
var _ scraper.Scraper = (*MockScraper)(nil)

func (m *MockScraper) Scrape(ctx context.Context) (*scraper.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.results[m.calls]
	m.calls++
	return r.product, r.err
}

// MockSink records written products
type MockSink struct {
	written []*scraper.Product
	err     error
}

// Ensure MockSink implements sink.Writer
var _ sink.Writer = (*MockSink)(nil)

func (m *MockSink) Write(ctx context.Context, product *scraper.Product) error {
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, product)
	return nil
}

// MockPublisher implements the publisher.Publisher interface for testing
type MockPublisher struct {
	mu       sync.Mutex
	messages map[string][]byte
}

// Ensure MockPublisher implements publisher.Publisher
var _ publisher.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{messages: make(map[string][]byte)}
}

func (m *MockPublisher) Publish(ctx context.Context, key string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	messageCopy := make([]byte, len(message))
	copy(messageCopy, message)
	m.messages[key] = messageCopy
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

func instantRetrier(attempts int) *retry.Retrier {
	r := retry.New(attempts, 2)
	r.Jitter = func() float64 { return 0 }
	r.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return r
}

func testProduct() *scraper.Product {
	return &scraper.Product{
		Title:   "Test Product",
		Price:   "999",
		Reviews: []scraper.Review{{Title: "Nice", Rating: "4.0", Text: "Works"}},
	}
}

func TestWorkerRunRetriesThenSucceeds(t *testing.T) {
	mockScraper := &MockScraper{results: []mockResult{
		{err: perrors.NewHTTPStatus("fetch", 503)},
		{err: perrors.NewNetwork("fetch", "reset", nil)},
		{product: testProduct()},
	}}
	mockSink := &MockSink{}
	mockPublisher := NewMockPublisher()

	w := NewWorker(mockScraper, instantRetrier(5), mockSink, mockPublisher)
	product, err := w.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, "Test Product", product.Title)
	assert.Equal(t, 3, mockScraper.calls)
	assert.Len(t, mockSink.written, 1)

	var published scraper.Product
	assert.NoError(t, json.Unmarshal(mockPublisher.messages[PublishKey], &published))
	assert.Equal(t, "Test Product", published.Title)
}

func TestWorkerRunExhausted(t *testing.T) {
	results := make([]mockResult, 5)
	for i := range results {
		results[i] = mockResult{err: perrors.NewHTTPStatus("fetch", 500)}
	}
	mockScraper := &MockScraper{results: results}
	mockSink := &MockSink{}

	w := NewWorker(mockScraper, instantRetrier(5), mockSink, nil)
	product, err := w.Run(context.Background())

	assert.Nil(t, product)
	var exhausted *retry.ExhaustedError
	assert.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 5, mockScraper.calls)
	assert.Empty(t, mockSink.written)
}

func TestWorkerRunLogsAttemptsMade(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	var console bytes.Buffer
	assert.NoError(t, logger.Init(logger.Options{Console: &console}))

	mockScraper := &MockScraper{results: []mockResult{
		{err: perrors.NewBlocked("scraper", time.Minute)},
	}}

	w := NewWorker(mockScraper, instantRetrier(5), &MockSink{}, nil)
	_, err := w.Run(context.Background())

	assert.True(t, perrors.IsType(err, perrors.ErrorTypeBlocked))
	assert.Equal(t, 1, mockScraper.calls)
	assert.Contains(t, console.String(), "Stopped scraping product data before the retry limit")
	assert.Contains(t, console.String(), "attempts=1")
	assert.NotContains(t, console.String(), "after 5 attempts")
}

func TestWorkerRunLogsExhaustedAttempts(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	var console bytes.Buffer
	assert.NoError(t, logger.Init(logger.Options{Console: &console}))

	mockScraper := &MockScraper{results: []mockResult{
		{err: perrors.NewHTTPStatus("fetch", 503)},
		{err: perrors.NewHTTPStatus("fetch", 503)},
		{err: perrors.NewHTTPStatus("fetch", 503)},
	}}

	w := NewWorker(mockScraper, instantRetrier(3), &MockSink{}, nil)
	_, err := w.Run(context.Background())

	assert.Error(t, err)
	assert.Contains(t, console.String(), "Failed to scrape product data after 3 attempts")
}

func TestWorkerRunSinkError(t *testing.T) {
	mockScraper := &MockScraper{results: []mockResult{{product: testProduct()}}}
	sinkErr := perrors.NewStorage("csv", "disk full", errors.New("ENOSPC"))
	mockPublisher := NewMockPublisher()

	w := NewWorker(mockScraper, instantRetrier(5), &MockSink{err: sinkErr}, mockPublisher)
	product, err := w.Run(context.Background())

	assert.NotNil(t, product)
	assert.ErrorIs(t, err, sinkErr)
	assert.Empty(t, mockPublisher.messages)
}

func TestWorkerRunWithoutPublisher(t *testing.T) {
	mockScraper := &MockScraper{results: []mockResult{{product: testProduct()}}}
	mockSink := &MockSink{}

	w := NewWorker(mockScraper, instantRetrier(1), mockSink, nil)
	_, err := w.Run(context.Background())

	assert.NoError(t, err)
	assert.Len(t, mockSink.written, 1)
}
