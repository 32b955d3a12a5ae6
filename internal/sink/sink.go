package sink

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"sjsage522/productbot/internal/scraper"
)

// Header is the column order of every written record
var Header = []string{"title", "price", "reviews"}

// Writer persists one product record
type Writer interface {
	Write(ctx context.Context, product *scraper.Product) error
}

// New picks a writer from the file extension: .xlsx writes a workbook,
// anything else writes CSV
func New(path string) Writer {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return NewExcelWriter(path)
	default:
		return NewCSVWriter(path)
	}
}

// row flattens a product into Header order, reviews as a JSON array
func row(product *scraper.Product) ([]string, error) {
	reviews := product.Reviews
	if reviews == nil {
		reviews = []scraper.Review{}
	}
	encoded, err := json.Marshal(reviews)
	if err != nil {
		return nil, err
	}
	return []string{product.Title, product.Price, string(encoded)}, nil
}
