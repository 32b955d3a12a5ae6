package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/productbot/helpers"
	"sjsage522/productbot/logger"
)

// Extract pulls the product fields out of a parsed page. A missing title or
// price node falls back to a placeholder; a present node keeps its text even
// when empty. Review extraction stops at the first
// incomplete review block, keeping the reviews collected before it.
func Extract(doc *goquery.Document, sel Selectors) *Product {
	log := logger.ForScraper()

	title, ok := firstText(doc.Selection, sel.Title)
	if !ok {
		title = TitleNotAvailable
	}
	log.Debug().Str("title", title).Msg("Extracted title")

	price, ok := firstText(doc.Selection, sel.Price)
	if !ok {
		price = PriceNotAvailable
	}
	log.Debug().Str("price", price).Msg("Extracted price")

	reviews, err := extractReviews(doc.Selection, sel)
	if err != nil {
		log.Error().Err(err).Int("kept", len(reviews)).Msg("Error extracting reviews data")
	} else {
		log.Debug().Int("reviews", len(reviews)).Msg("Extracted reviews data")
	}

	return &Product{
		Title:   title,
		Price:   price,
		Reviews: reviews,
	}
}

func extractReviews(s *goquery.Selection, sel Selectors) ([]Review, error) {
	reviews := []Review{}
	var err error

	s.Find(sel.Review).EachWithBreak(func(i int, block *goquery.Selection) bool {
		var review Review
		review, err = extractReview(block, sel)
		if err != nil {
			err = fmt.Errorf("review %d: %w", i, err)
			return false
		}
		reviews = append(reviews, review)
		return true
	})

	return reviews, err
}

func extractReview(block *goquery.Selection, sel Selectors) (Review, error) {
	titleSel := block.Find(sel.ReviewTitle).First()
	if titleSel.Length() == 0 {
		return Review{}, fmt.Errorf("missing %s", sel.ReviewTitle)
	}
	ratingSel := block.Find(sel.ReviewRating).First()
	if ratingSel.Length() == 0 {
		return Review{}, fmt.Errorf("missing %s", sel.ReviewRating)
	}
	bodySel := block.Find(sel.ReviewBody).First()
	if bodySel.Length() == 0 {
		return Review{}, fmt.Errorf("missing %s", sel.ReviewBody)
	}

	// "4.0 out of 5 stars" -> "4.0"
	rating, err := helpers.GetField(ratingSel.Text(), 0)
	if err != nil {
		return Review{}, fmt.Errorf("empty rating: %w", err)
	}

	return Review{
		Title:  strings.TrimSpace(titleSel.Text()),
		Rating: rating,
		Text:   strings.TrimSpace(bodySel.Text()),
	}, nil
}

// firstText returns the trimmed text of the first match and whether there was one
func firstText(s *goquery.Selection, selector string) (string, bool) {
	if selector == "" {
		return "", false
	}
	match := s.Find(selector).First()
	if match.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(match.Text()), true
}
