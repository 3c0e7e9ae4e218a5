// internal/scraper/maintext.go
package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Burrhanburak/scrape-site/internal/normalize"
)

// nonContentSelectors is the fixed denylist removed before main-text
// extraction: chrome, scripts, forms, ads, and hidden regions.
const nonContentSelectors = `script, style, noscript, template, iframe, svg, ` +
	`nav, header, footer, aside, form, button, input, select, textarea, ` +
	`.nav, .navbar, .menu, .header, .footer, .sidebar, .breadcrumb, .breadcrumbs, ` +
	`.ad, .ads, .advertisement, [class*="cookie-banner"], [class*="newsletter"], ` +
	`[hidden], [aria-hidden="true"], [style*="display:none"], [style*="display: none"]`

// contentContainerSelectors is the preference order for the block whose text
// becomes the record's main text. The body itself is the last resort.
var contentContainerSelectors = []string{
	"main",
	"article",
	"#content",
	".content",
	".main-content",
	"#main",
	".post-content",
	".entry-content",
	".page-content",
	".product-description",
}

// ExtractMainText produces the cleaned body text of a document: denylist
// removal, link-dense block pruning, content-container preference, whitespace
// collapse, and truncation to cfg.MaxMainTextLength runes. The input document
// is not modified; work happens on a clone of the body.
func ExtractMainText(doc *goquery.Document, cfg AssemblerConfig) string {
	if doc == nil {
		return ""
	}
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return ""
	}

	work := body.Clone()
	work.Find(nonContentSelectors).Remove()
	pruneLinkDenseBlocks(work, cfg)

	text := ""
	for _, selector := range contentContainerSelectors {
		container := work.Find(selector).First()
		if container.Length() == 0 {
			continue
		}
		if candidate := normalize.CleanText(container.Text()); candidate != "" {
			text = candidate
			break
		}
	}
	if text == "" {
		text = normalize.CleanText(work.Text())
	}

	runes := []rune(text)
	if cfg.MaxMainTextLength > 0 && len(runes) > cfg.MaxMainTextLength {
		text = strings.TrimSpace(string(runes[:cfg.MaxMainTextLength]))
	}
	return text
}

// pruneLinkDenseBlocks removes remaining short, link-heavy blocks that the
// selector denylist missed: less than MinBlockTextLength characters of text
// with more than MaxBlockLinks links averaging under MaxLinkTextLength
// characters each reads as a navigation fragment, not content.
func pruneLinkDenseBlocks(root *goquery.Selection, cfg AssemblerConfig) {
	root.Find("div, section, li, p").Each(func(_ int, sel *goquery.Selection) {
		text := normalize.CleanText(sel.Text())
		if len(text) >= cfg.MinBlockTextLength {
			return
		}

		links := sel.Find("a")
		if links.Length() <= cfg.MaxBlockLinks {
			return
		}

		totalLinkText := 0
		links.Each(func(_ int, link *goquery.Selection) {
			totalLinkText += len(normalize.CleanText(link.Text()))
		})
		if totalLinkText/links.Length() < cfg.MaxLinkTextLength {
			sel.Remove()
		}
	})
}
