package productpage

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

type jsonLDProduct struct {
	name        string
	description string
	price       string
	rating      string
}

// pageData holds the candidate values found in one pass over the document.
type pageData struct {
	h1            string
	description   string
	price         string
	rating        string
	metaTags      map[string]string
	jsonLDProduct jsonLDProduct
}

func parsePage(htmlContent string) (*pageData, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	data := &pageData{metaTags: make(map[string]string)}

	var parseNode func(*html.Node)
	parseNode = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script":
				if attr(n, "type") == "application/ld+json" && n.FirstChild != nil {
					data.readJSONLD(n.FirstChild.Data)
				}
				return
			case "style", "noscript":
				return
			case "meta":
				content := attr(n, "content")
				if content == "" {
					break
				}
				if name := attr(n, "name"); name != "" {
					data.metaTags[name] = content
				}
				if property := attr(n, "property"); property != "" {
					data.metaTags[property] = content
				}
			case "h1":
				if data.h1 == "" {
					data.h1 = textContent(n)
				}
			case "div":
				if data.description == "" && attr(n, "id") == "product_description" {
					data.description = productDescription(n)
				}
			case "p":
				classes := strings.Fields(attr(n, "class"))
				if data.price == "" && hasClass(classes, "price_color") {
					data.price = textContent(n)
				}
				if data.rating == "" && hasClass(classes, "star-rating") {
					data.rating = starRating(n, classes)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parseNode(c)
		}
	}
	parseNode(doc)

	return data, nil
}

// productDescription returns the text of the product_description block. On
// storefronts where the block only holds a heading, the paragraph that
// follows it carries the actual description.
func productDescription(n *html.Node) string {
	own := textContent(n)
	for sib := n.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type != html.ElementNode {
			continue
		}
		if sib.Data == "p" {
			if text := textContent(sib); len(text) > len(own) {
				return text
			}
		}
		break
	}
	return own
}

// starRating reads the rating text, or the rating word from the class list
// ("star-rating Three") when the element is empty.
func starRating(n *html.Node, classes []string) string {
	if text := textContent(n); text != "" {
		return text
	}
	for _, c := range classes {
		if c != "star-rating" {
			return c
		}
	}
	return ""
}

func (d *pageData) readJSONLD(raw string) {
	var single map[string]any
	if err := json.Unmarshal([]byte(raw), &single); err == nil {
		d.applyJSONLD(single)
		return
	}
	var list []map[string]any
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		for _, item := range list {
			d.applyJSONLD(item)
		}
	}
}

func (d *pageData) applyJSONLD(data map[string]any) {
	typeVal, _ := data["@type"].(string)
	if !strings.EqualFold(typeVal, "Product") {
		return
	}
	p := &d.jsonLDProduct
	if p.name == "" {
		p.name, _ = data["name"].(string)
	}
	if p.description == "" {
		p.description, _ = data["description"].(string)
	}
	if p.price == "" {
		p.price = offerPrice(data["offers"])
	}
	if p.rating == "" {
		if agg, ok := data["aggregateRating"].(map[string]any); ok {
			if v := scalarString(agg["ratingValue"]); v != "" {
				p.rating = v
				if best := scalarString(agg["bestRating"]); best != "" {
					p.rating += "/" + best
				}
			}
		}
	}
}

func offerPrice(offers any) string {
	switch o := offers.(type) {
	case map[string]any:
		price := scalarString(o["price"])
		if price == "" {
			price = scalarString(o["lowPrice"])
		}
		if price != "" {
			if currency := scalarString(o["priceCurrency"]); currency != "" {
				return price + " " + currency
			}
		}
		return price
	case []any:
		for _, item := range o {
			if price := offerPrice(item); price != "" {
				return price
			}
		}
	}
	return ""
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", val), "0"), ".")
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(classes []string, name string) bool {
	for _, c := range classes {
		if c == name {
			return true
		}
	}
	return false
}

// textContent concatenates the visible text below n, trimmed.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
			return
		}
		if node.Type == html.TextNode {
			if text := strings.TrimSpace(node.Data); text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
