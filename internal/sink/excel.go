package sink

import (
	"context"

	"github.com/xuri/excelize/v2"

	"sjsage522/productbot/internal/scraper"
	"sjsage522/productbot/logger"
	"sjsage522/productbot/pkg/errors"
)

// SheetName is the worksheet holding the product record
const SheetName = "Product"

// ExcelWriter writes the record to a single-sheet workbook
type ExcelWriter struct {
	Path string
}

// NewExcelWriter creates a new xlsx writer
func NewExcelWriter(path string) *ExcelWriter {
	return &ExcelWriter{Path: path}
}

// Write implements Writer
func (w *ExcelWriter) Write(ctx context.Context, product *scraper.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record, err := row(product)
	if err != nil {
		return errors.NewStorage("xlsx", "failed to encode reviews", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return errors.NewStorage("xlsx", "failed to rename sheet", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", toCells(Header)); err != nil {
		return errors.NewStorage("xlsx", "failed to write header", err)
	}
	if err := f.SetSheetRow(SheetName, "A2", toCells(record)); err != nil {
		return errors.NewStorage("xlsx", "failed to write row", err)
	}
	if err := f.SaveAs(w.Path); err != nil {
		return errors.NewStorage("xlsx", "failed to save "+w.Path, err)
	}

	logger.ForSink().Debug().Str("file", w.Path).Msg("Data written to workbook")
	return nil
}

func toCells(values []string) *[]interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return &cells
}
