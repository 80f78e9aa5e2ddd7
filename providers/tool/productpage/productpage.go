package productpage

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/tool/webfetch"
)

// Placeholders used when a field is missing from the page.
const (
	UnknownName    = "Unknown Product"
	NoDescription  = "No description available."
	PriceNotFound  = "Price not found"
	NoRating       = "No rating"
	userAgentValue = webfetch.DefaultUserAgent
)

var nonPriceChars = regexp.MustCompile(`[^\d.]`)

// ErrEmptyURL is returned by [Scrape] when the URL is blank.
var ErrEmptyURL = webfetch.ErrEmptyURL

// Product is the scraped page data.
type Product struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Rating      string `json:"rating"`
}

// CleanPrice strips currency symbols and separators, keeping digits and dots.
// "£51.77" becomes "51.77".
func CleanPrice(price string) string {
	return nonPriceChars.ReplaceAllString(price, "")
}

// Scrape downloads pageURL and extracts the product. A nil client means
// http.DefaultClient.
func Scrape(ctx context.Context, client *http.Client, pageURL string) (Product, error) {
	url := webfetch.NormalizeURL(pageURL)
	if url == "" {
		return Product{}, ErrEmptyURL
	}

	_, body, err := utils.DoGet(ctx, client, url, utils.HeaderOption{Key: "User-Agent", Value: userAgentValue})
	if err != nil {
		return Product{}, fmt.Errorf("unable to retrieve %s: %w", url, err)
	}
	return Parse(string(body))
}

// Parse extracts the product from an HTML document.
func Parse(htmlContent string) (Product, error) {
	page, err := parsePage(htmlContent)
	if err != nil {
		return Product{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	product := Product{
		Name:        utils.FirstNonEmpty(page.h1, page.jsonLDProduct.name, page.metaTags["og:title"], UnknownName),
		Description: utils.FirstNonEmpty(page.description, page.jsonLDProduct.description, page.metaTags["og:description"], page.metaTags["description"], NoDescription),
		Price:       utils.FirstNonEmpty(page.price, page.jsonLDProduct.price, page.metaTags["product:price:amount"], PriceNotFound),
		Rating:      utils.FirstNonEmpty(page.rating, page.jsonLDProduct.rating, NoRating),
	}
	product.Name = normalizeWhitespace(product.Name)
	product.Description = normalizeWhitespace(product.Description)
	return product, nil
}

// normalizeWhitespace collapses multiple whitespace characters into single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
