// internal/scraper/structured.go
package scraper

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Burrhanburak/scrape-site/internal/normalize"
	"github.com/Burrhanburak/scrape-site/internal/utils"
)

// StructuredData is the typed intermediate representation of a page's
// embedded metadata: every JSON-LD object that parsed, the first object for
// each page-type family, and the flattened meta/Open Graph tag map.
type StructuredData struct {
	Objects    []map[string]interface{}
	Product    *ProductData
	Article    *ArticleData
	Collection *CollectionData
	Meta       map[string]string
}

// ProductData is the Product payload parsed out of JSON-LD. Unknown keys are
// discarded at this boundary.
type ProductData struct {
	Name         string
	Description  string
	Price        string
	Currency     string
	Availability string
	Category     string
	Brand        string
	Images       []string
}

// ArticleData is the Article / BlogPosting / NewsArticle payload
type ArticleData struct {
	Headline      string
	Description   string
	DatePublished string
	Author        string
	Sections      []string
	Images        []string
}

// CollectionData is the CollectionPage / ItemList / SearchResultsPage payload
type CollectionData struct {
	Name        string
	Description string
}

var (
	productTypes    = []string{"product"}
	articleTypes    = []string{"blogposting", "article", "newsarticle"}
	collectionTypes = []string{"collectionpage", "itemlist", "searchresultspage"}
)

// ExtractStructuredData parses every JSON-LD block and meta tag of the
// document. A malformed block is logged and skipped; it never aborts
// extraction of the remaining blocks. No network access.
func ExtractStructuredData(doc *goquery.Document, baseURL string, logger utils.Logger) *StructuredData {
	sd := &StructuredData{Meta: extractMetaTags(doc)}
	if doc == nil {
		return sd
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}
		var parsed interface{}
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			if logger != nil {
				logger.WithField("url", baseURL).Debugf("skipping malformed JSON-LD block %d: %v", i, err)
			}
			return
		}
		sd.Objects = append(sd.Objects, flattenJSONLD(parsed)...)
	})

	for _, obj := range sd.Objects {
		switch {
		case sd.Product == nil && objectHasType(obj, productTypes):
			sd.Product = parseProduct(obj, baseURL)
		case sd.Article == nil && objectHasType(obj, articleTypes):
			sd.Article = parseArticle(obj, baseURL)
		case sd.Collection == nil && objectHasType(obj, collectionTypes):
			sd.Collection = parseCollection(obj)
		}
	}
	return sd
}

// OG returns a meta tag value by property or name key, "" when absent
func (sd *StructuredData) OG(key string) string {
	if sd == nil || sd.Meta == nil {
		return ""
	}
	return sd.Meta[strings.ToLower(key)]
}

// HasType reports whether any parsed object carries one of the given
// lowercased @type names
func (sd *StructuredData) HasType(names ...string) bool {
	if sd == nil {
		return false
	}
	for _, obj := range sd.Objects {
		if objectHasType(obj, names) {
			return true
		}
	}
	return false
}

// flattenJSONLD normalizes a parsed JSON-LD value into a flat object list:
// top-level arrays and @graph containers are walked, everything else is
// dropped.
func flattenJSONLD(parsed interface{}) []map[string]interface{} {
	var objects []map[string]interface{}
	switch v := parsed.(type) {
	case map[string]interface{}:
		objects = append(objects, v)
		if graph, ok := v["@graph"].([]interface{}); ok {
			for _, item := range graph {
				if obj, ok := item.(map[string]interface{}); ok {
					objects = append(objects, obj)
				}
			}
		}
	case []interface{}:
		for _, item := range v {
			objects = append(objects, flattenJSONLD(item)...)
		}
	}
	return objects
}

// objectHasType matches @type case-insensitively; the field may be a single
// string or an array of strings.
func objectHasType(obj map[string]interface{}, names []string) bool {
	matches := func(t string) bool {
		t = strings.ToLower(strings.TrimSpace(t))
		for _, name := range names {
			if t == name {
				return true
			}
		}
		return false
	}

	switch v := obj["@type"].(type) {
	case string:
		return matches(v)
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && matches(s) {
				return true
			}
		}
	}
	return false
}

func parseProduct(obj map[string]interface{}, baseURL string) *ProductData {
	p := &ProductData{
		Name:        stringField(obj, "name"),
		Description: stringField(obj, "description"),
		Category:    stringField(obj, "category"),
		Images:      imageURLs(obj["image"], baseURL),
	}

	if brand, ok := obj["brand"].(map[string]interface{}); ok {
		p.Brand = stringField(brand, "name")
	} else {
		p.Brand = stringField(obj, "brand")
	}

	offer := firstOffer(obj["offers"])
	if offer != nil {
		p.Price = stringField(offer, "price")
		p.Currency = stringField(offer, "priceCurrency")
		p.Availability = stringField(offer, "availability")
		if p.Price == "" {
			if spec, ok := offer["priceSpecification"].(map[string]interface{}); ok {
				p.Price = stringField(spec, "price")
				if p.Currency == "" {
					p.Currency = stringField(spec, "priceCurrency")
				}
			}
		}
	}
	return p
}

func parseArticle(obj map[string]interface{}, baseURL string) *ArticleData {
	a := &ArticleData{
		Headline:      stringField(obj, "headline"),
		Description:   stringField(obj, "description"),
		DatePublished: stringField(obj, "datePublished"),
		Images:        imageURLs(obj["image"], baseURL),
	}
	if a.Headline == "" {
		a.Headline = stringField(obj, "name")
	}
	a.Author = authorName(obj["author"])
	a.Sections = stringList(obj["articleSection"])
	return a
}

func parseCollection(obj map[string]interface{}) *CollectionData {
	return &CollectionData{
		Name:        stringField(obj, "name"),
		Description: stringField(obj, "description"),
	}
}

// firstOffer unwraps schema.org offers, which may be a single Offer object,
// an array of them, or an AggregateOffer.
func firstOffer(v interface{}) map[string]interface{} {
	switch offers := v.(type) {
	case map[string]interface{}:
		return offers
	case []interface{}:
		for _, item := range offers {
			if obj, ok := item.(map[string]interface{}); ok {
				return obj
			}
		}
	}
	return nil
}

// authorName handles author as a plain string, a Person object, or an array
func authorName(v interface{}) string {
	switch author := v.(type) {
	case string:
		return normalize.CleanText(author)
	case map[string]interface{}:
		return stringField(author, "name")
	case []interface{}:
		for _, item := range author {
			if name := authorName(item); name != "" {
				return name
			}
		}
	}
	return ""
}

// imageURLs normalizes the schema.org image field, which may be a URL
// string, an ImageObject, or an array of either, into absolute URLs.
func imageURLs(v interface{}, baseURL string) []string {
	var urls []string
	add := func(raw string) {
		if resolved := normalize.ResolveURL(baseURL, raw); resolved != "" {
			urls = append(urls, resolved)
		}
	}
	switch img := v.(type) {
	case string:
		add(img)
	case map[string]interface{}:
		add(stringField(img, "url"))
	case []interface{}:
		for _, item := range img {
			switch entry := item.(type) {
			case string:
				add(entry)
			case map[string]interface{}:
				add(stringField(entry, "url"))
			}
		}
	}
	return urls
}

// stringField reads a key as cleaned text, rendering numbers without an
// exponent so prices like 19.99 survive as "19.99"
func stringField(obj map[string]interface{}, key string) string {
	switch v := obj[key].(type) {
	case string:
		return normalize.CleanText(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// stringList reads a key as a list of cleaned strings, accepting a single
// string too
func stringList(v interface{}) []string {
	switch value := v.(type) {
	case string:
		if cleaned := normalize.CleanText(value); cleaned != "" {
			return []string{cleaned}
		}
	case []interface{}:
		var out []string
		for _, item := range value {
			if s, ok := item.(string); ok {
				if cleaned := normalize.CleanText(s); cleaned != "" {
					out = append(out, cleaned)
				}
			}
		}
		return out
	}
	return nil
}

// extractMetaTags flattens meta tags into one lowercased map keyed by the
// property attribute when present, the name attribute otherwise. First
// occurrence wins.
func extractMetaTags(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	if doc == nil {
		return meta
	}
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		key, ok := sel.Attr("property")
		if !ok || key == "" {
			key, _ = sel.Attr("name")
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return
		}
		content := normalize.CleanText(sel.AttrOr("content", ""))
		if content == "" {
			return
		}
		if _, exists := meta[key]; !exists {
			meta[key] = content
		}
	})
	return meta
}
