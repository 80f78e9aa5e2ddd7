// Package productpage scrapes the name, description, price and rating of a
// product from its web page.
//
// Extraction looks at the common storefront markup first (h1, the
// product_description block, price_color and star-rating paragraphs) and then
// falls back to JSON-LD Product data and meta tags. Fields that cannot be
// found keep a readable placeholder so the result is always complete.
package productpage
