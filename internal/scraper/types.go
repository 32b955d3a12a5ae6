package scraper

import (
	"context"
	"time"
)

// Placeholders substituted when a field cannot be found on the page
const (
	TitleNotAvailable = "Title not available"
	PriceNotAvailable = "Price not available"
)

// Product represents one scraped product page
type Product struct {
	Title     string    `json:"title"`
	Price     string    `json:"price"`
	Reviews   []Review  `json:"reviews"`
	URL       string    `json:"url"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// Review represents a single customer review
type Review struct {
	Title  string `json:"title"`
	Rating string `json:"rating"`
	Text   string `json:"text"`
}

// Scraper fetches and extracts a product record
type Scraper interface {
	Scrape(ctx context.Context) (*Product, error)
}

// Selectors contains CSS selectors for the fields of a product page
type Selectors struct {
	Title        string
	Price        string
	Review       string
	ReviewTitle  string
	ReviewRating string
	ReviewBody   string
}

// DefaultSelectors matches the Amazon product page layout
func DefaultSelectors() Selectors {
	return Selectors{
		Title:        "span#productTitle",
		Price:        "span.a-price-whole",
		Review:       "div[data-hook='review']",
		ReviewTitle:  "a[data-hook='review-title']",
		ReviewRating: "i[data-hook='review-star-rating']",
		ReviewBody:   "span[data-hook='review-body']",
	}
}
