package sink

import (
	"context"
	"encoding/csv"
	"os"

	"sjsage522/productbot/internal/scraper"
	"sjsage522/productbot/logger"
	"sjsage522/productbot/pkg/errors"
)

// CSVWriter writes a header and a single row with CRLF line endings,
// truncating the file
type CSVWriter struct {
	Path string
}

// NewCSVWriter creates a new CSV writer
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{Path: path}
}

// Write implements Writer
func (w *CSVWriter) Write(ctx context.Context, product *scraper.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record, err := row(product)
	if err != nil {
		return errors.NewStorage("csv", "failed to encode reviews", err)
	}

	f, err := os.OpenFile(w.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.NewStorage("csv", "failed to open "+w.Path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	cw.UseCRLF = true
	if err := cw.Write(Header); err != nil {
		return errors.NewStorage("csv", "failed to write header", err)
	}
	if err := cw.Write(record); err != nil {
		return errors.NewStorage("csv", "failed to write row", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.NewStorage("csv", "failed to flush", err)
	}
	if err := f.Close(); err != nil {
		return errors.NewStorage("csv", "failed to close "+w.Path, err)
	}

	logger.ForSink().Debug().Str("file", w.Path).Msg("Data written to CSV file")
	return nil
}
