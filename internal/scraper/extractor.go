// internal/scraper/extractor.go
package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Burrhanburak/scrape-site/internal/normalize"
	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// lazySourceAttrs is the fallback order for image sources when a rule names
// no attribute or the named attribute is empty. Lazy-loading markup hides the
// real source behind data attributes.
var lazySourceAttrs = []string{"src", "data-src", "data-lazy-src", "data-original"}

// imageExtensions accepted by ExtractImages. Everything else is rejected as
// a tracking pixel, sprite, or non-image asset.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif", ".svg", ".bmp"}

// minImageSourceLength rejects degenerate sources like "#" or "about:".
const minImageSourceLength = 10

// ExtractSingle tries rules in order against the document and returns the
// first non-empty sanitized value, or "" when no rule yields one. For each
// rule only the first matching element is read; the configured attribute
// takes precedence over element text.
func ExtractSingle(doc *goquery.Document, rules []types.SelectorRule) string {
	if doc == nil {
		return ""
	}
	for _, rule := range rules {
		if rule.Selector == "" {
			continue
		}
		sel := doc.Find(rule.Selector).First()
		if sel.Length() == 0 {
			continue
		}
		if value := readRuleValue(sel, rule); value != "" {
			return value
		}
	}
	return ""
}

// ExtractAll extracts multi-value fields. Rule groups are alternatives, not
// unions: the first group that yields any results wins and later groups are
// not consulted. Tabular-row rules synthesize "key: value" strings, falling
// back to key-only or value-only text when one cell is missing.
func ExtractAll(doc *goquery.Document, ruleGroups [][]types.SelectorRule) []string {
	if doc == nil {
		return nil
	}
	for _, group := range ruleGroups {
		if results := extractGroup(doc, group); len(results) > 0 {
			return results
		}
	}
	return nil
}

// extractGroup collects every value the group's rules produce, deduplicated
// in first-seen order.
func extractGroup(doc *goquery.Document, rules []types.SelectorRule) []string {
	var results []string
	seen := make(map[string]bool)

	add := func(value string) {
		if value == "" || seen[value] {
			return
		}
		seen[value] = true
		results = append(results, value)
	}

	for _, rule := range rules {
		if rule.Selector == "" {
			continue
		}
		doc.Find(rule.Selector).Each(func(_ int, sel *goquery.Selection) {
			if rule.IsTabularRow {
				add(extractTabularRow(sel))
				return
			}
			add(readRuleValue(sel, rule))
		})
	}
	return results
}

// extractTabularRow reads a key cell and a value cell out of a table-like
// row and joins them. Rows with only one recognizable cell yield that cell's
// text alone.
func extractTabularRow(row *goquery.Selection) string {
	key := normalize.CleanText(row.Find("th, dt, .key, .name, .label, .spec-name").First().Text())
	value := normalize.CleanText(row.Find("td, dd, .value, .val, .spec-value").Last().Text())

	if key == "" && value == "" {
		return normalize.CleanText(row.Text())
	}
	if key != "" && value != "" && key != value {
		return key + ": " + value
	}
	if key != "" {
		return key
	}
	return value
}

// ExtractImages pulls image items via the targeted rules, resolving each
// candidate source against baseURL and deduplicating by the resolved
// absolute URL. When the targeted rules yield nothing, one broad pass over
// fallbackSelector (typically "img[src]") runs instead.
func ExtractImages(doc *goquery.Document, baseURL string, rules []types.SelectorRule, fallbackSelector string) []types.ImageItem {
	if doc == nil {
		return nil
	}

	var images []types.ImageItem
	seen := make(map[string]bool)

	collect := func(sel *goquery.Selection, attribute string) {
		src := imageSource(sel, attribute)
		if src == "" {
			return
		}
		resolved := normalize.ResolveURL(baseURL, src)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true

		alt, _ := sel.Attr("alt")
		alt = normalize.CleanText(alt)
		width, _ := sel.Attr("width")
		height, _ := sel.Attr("height")

		images = append(images, types.ImageItem{
			Src:    resolved,
			Alt:    alt,
			Width:  strings.TrimSpace(width),
			Height: strings.TrimSpace(height),
			HasAlt: alt != "",
		})
	}

	for _, rule := range rules {
		if rule.Selector == "" {
			continue
		}
		doc.Find(rule.Selector).Each(func(_ int, sel *goquery.Selection) {
			collect(sel, rule.Attribute)
		})
	}

	if len(images) == 0 && fallbackSelector != "" {
		doc.Find(fallbackSelector).Each(func(_ int, sel *goquery.Selection) {
			collect(sel, "")
		})
	}

	return images
}

// imageSource resolves one element's image source: the explicit attribute
// first, then the lazy-loading attribute ladder, then the first URL of a
// srcset list. Sources that are too short or carry no image extension are
// rejected.
func imageSource(sel *goquery.Selection, attribute string) string {
	try := func(attr string) string {
		value, ok := sel.Attr(attr)
		if !ok {
			return ""
		}
		value = strings.TrimSpace(value)
		if len(value) < minImageSourceLength || !hasImageExtension(value) {
			return ""
		}
		return value
	}

	if attribute != "" {
		if src := try(attribute); src != "" {
			return src
		}
	}
	for _, attr := range lazySourceAttrs {
		if src := try(attr); src != "" {
			return src
		}
	}

	if srcset, ok := sel.Attr("data-srcset"); ok {
		if src := firstSrcsetURL(srcset); src != "" && len(src) >= minImageSourceLength && hasImageExtension(src) {
			return src
		}
	}
	return ""
}

// firstSrcsetURL returns the URL part of the first srcset entry
func firstSrcsetURL(srcset string) string {
	first := srcset
	if i := strings.Index(srcset, ","); i >= 0 {
		first = srcset[:i]
	}
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// hasImageExtension checks the URL path for a known image extension,
// ignoring any query string
func hasImageExtension(src string) bool {
	lowered := strings.ToLower(src)
	if i := strings.IndexAny(lowered, "?#"); i >= 0 {
		lowered = lowered[:i]
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lowered, ext) || strings.Contains(lowered, ext+"/") {
			return true
		}
	}
	return false
}

// readRuleValue reads one element's value per the rule: the configured
// attribute when set, element text otherwise, sanitized either way.
func readRuleValue(sel *goquery.Selection, rule types.SelectorRule) string {
	if rule.Attribute != "" {
		value, ok := sel.Attr(rule.Attribute)
		if !ok {
			return ""
		}
		return normalize.CleanText(value)
	}
	return normalize.CleanText(sel.Text())
}
