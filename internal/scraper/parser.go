// internal/scraper/parser.go
package scraper

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Burrhanburak/scrape-site/internal/normalize"
	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// homeLabels are breadcrumb texts recognized as the trail's home entry,
// compared lowercased.
var homeLabels = map[string]bool{
	"home":       true,
	"homepage":   true,
	"anasayfa":   true,
	"ana sayfa":  true,
	"start":      true,
	"startseite": true,
}

// ParseDocument parses raw HTML into a queryable document
func ParseDocument(html string) (*goquery.Document, error) {
	if strings.TrimSpace(html) == "" {
		return nil, ErrEmptyHTML
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// ExtractHeadings collects h1-h6 both grouped by level and as one flat list
// in document order.
func ExtractHeadings(doc *goquery.Document) (map[string][]string, []types.Heading) {
	grouped := make(map[string][]string)
	var flat []types.Heading

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		text := normalize.CleanText(sel.Text())
		if text == "" {
			return
		}
		tag := goquery.NodeName(sel)
		level, err := strconv.Atoi(strings.TrimPrefix(tag, "h"))
		if err != nil {
			return
		}
		grouped[tag] = append(grouped[tag], text)
		flat = append(flat, types.Heading{Level: level, Text: text})
	})
	return grouped, flat
}

// ExtractLinks collects every page link, classified internal or external by
// hostname comparison against the page URL. Links that fail URL resolution
// are skipped; deduplication is by resolved href.
func ExtractLinks(doc *goquery.Document, pageURL string) (internal, external []types.LinkItem) {
	host := hostOf(pageURL)
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		resolved := normalize.ResolveURL(pageURL, href)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true

		link := types.LinkItem{Href: resolved, Text: normalize.CleanText(sel.Text())}
		if host != "" && hostOf(resolved) == host {
			internal = append(internal, link)
		} else {
			external = append(external, link)
		}
	})
	return internal, external
}

// ExtractScopedLinks collects links inside the first container any of the
// rules matches. Used for navigation and footer link groups.
func ExtractScopedLinks(doc *goquery.Document, pageURL string, rules []types.SelectorRule) []types.LinkItem {
	container := firstContainer(doc, rules)
	if container == nil {
		return nil
	}

	var links []types.LinkItem
	seen := make(map[string]bool)
	container.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		resolved := normalize.ResolveURL(pageURL, href)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, types.LinkItem{Href: resolved, Text: normalize.CleanText(sel.Text())})
	})
	return links
}

// ExtractBreadcrumbs reads the breadcrumb trail from the first matching
// container. Items are deduplicated by (text, href), ordered by position,
// and a synthesized home entry is prepended when the first real entry is not
// a recognized home label.
func ExtractBreadcrumbs(doc *goquery.Document, pageURL string, rules []types.SelectorRule) []types.BreadcrumbItem {
	container := firstContainer(doc, rules)
	if container == nil {
		return nil
	}

	items := container.Find("li")
	if items.Length() == 0 {
		items = container.Find("a")
	}

	var crumbs []types.BreadcrumbItem
	seen := make(map[string]bool)
	items.Each(func(_ int, sel *goquery.Selection) {
		text := normalize.CleanText(sel.Text())
		if text == "" {
			return
		}
		href, _ := sel.Attr("href")
		if href == "" {
			href, _ = sel.Find("a").First().Attr("href")
		}
		resolved := normalize.ResolveURL(pageURL, href)

		key := text + "\x00" + resolved
		if seen[key] {
			return
		}
		seen[key] = true
		crumbs = append(crumbs, types.BreadcrumbItem{Text: text, Href: resolved})
	})

	if len(crumbs) == 0 {
		return nil
	}

	if !IsHomeLabel(crumbs[0].Text) {
		home := types.BreadcrumbItem{Text: "Home", Href: siteRoot(pageURL)}
		crumbs = append([]types.BreadcrumbItem{home}, crumbs...)
	}
	for i := range crumbs {
		crumbs[i].Position = i + 1
	}
	return crumbs
}

// IsHomeLabel reports whether a breadcrumb text is a recognized home label
func IsHomeLabel(text string) bool {
	return homeLabels[strings.ToLower(strings.TrimSpace(text))]
}

// firstContainer returns the first element any rule's selector matches
func firstContainer(doc *goquery.Document, rules []types.SelectorRule) *goquery.Selection {
	for _, rule := range rules {
		if rule.Selector == "" {
			continue
		}
		if sel := doc.Find(rule.Selector).First(); sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func siteRoot(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}
