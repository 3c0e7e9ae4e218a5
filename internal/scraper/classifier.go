// internal/scraper/classifier.go
package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// urlPatterns maps page types to ordered URL path keyword lists. The list
// order is part of the classification contract: the first list with a
// substring match wins.
var urlPatterns = []struct {
	pageType types.PageType
	keywords []string
}{
	{types.PageTypeProduct, []string{"/product", "/urun", "/p/", "/item", "/detail", "-p-", "/prod/"}},
	{types.PageTypeBlog, []string{"/blog", "/article", "/post/", "/posts/", "/news", "/makale", "/haber", "/yazi"}},
	{types.PageTypeCategory, []string{"/category", "/kategori", "/cat/", "/c/", "/shop/"}},
	{types.PageTypeCollection, []string{"/collection", "/koleksiyon"}},
	{types.PageTypeForum, []string{"/forum", "/topic", "/thread", "/community"}},
	{types.PageTypeSearch, []string{"/search", "/ara", "/arama", "/find"}},
	{types.PageTypeError, []string{"/404", "/error", "/not-found", "/notfound"}},
	{types.PageTypePage, []string{"/about", "/hakkimizda", "/contact", "/iletisim", "/privacy", "/gizlilik", "/terms", "/faq", "/sss", "/help", "/yardim"}},
}

// DOM heuristic selectors, consulted only after structured data, Open Graph,
// and URL patterns all failed to decide.
const (
	priceSelectors       = `[itemprop="price"], .price, .product-price, .current-price, .price-now, span.amount`
	addToCartSelectors   = `[class*="add-to-cart"], [id*="add-to-cart"], [class*="addtocart"], .add-to-basket, button[name="add"], [class*="sepete-ekle"]`
	stockSelectors       = `[itemprop="availability"], .stock-status, .availability, .in-stock, .out-of-stock, .stock`
	productCardSelectors = `.product-card, .product-item, li.product, .product-list-item, [class*="product-grid"] > *`
	articleSelectors     = `article, .blog-post, .post-content, .entry-content, [class*="article-body"]`
	commentSelectors     = `#comments, .comments, .comment-list, #disqus_thread`
)

// minProductCards is how many product-card-like elements make a category page
const minProductCards = 3

// Classify runs the full decision cascade: structured-data type, Open Graph
// type, URL path patterns, DOM heuristics, then unknown. The order is fixed;
// structured data is the most trustworthy signal available and must take
// precedence over heuristics.
func Classify(doc *goquery.Document, pageURL string, sd *StructuredData) types.PageType {
	if sd != nil {
		switch {
		case sd.Product != nil || sd.HasType(productTypes...):
			return types.PageTypeProduct
		case sd.Article != nil || sd.HasType(articleTypes...):
			return types.PageTypeBlog
		case sd.Collection != nil || sd.HasType(collectionTypes...):
			return types.PageTypeCategory
		}

		ogType := strings.ToLower(sd.OG("og:type"))
		switch {
		case strings.Contains(ogType, "product"):
			return types.PageTypeProduct
		case strings.Contains(ogType, "article"):
			return types.PageTypeBlog
		}
	}

	if t, ok := classifyByURL(pageURL); ok {
		return t
	}
	if t, ok := classifyByDOM(doc); ok {
		return t
	}
	return types.PageTypeUnknown
}

// QuickClassify is the cheap URL+DOM variant used for discovery sampling,
// where structured-data parsing would cost more than the answer is worth.
func QuickClassify(pageURL string, doc *goquery.Document) types.PageType {
	if t, ok := classifyByURL(pageURL); ok {
		return t
	}
	if t, ok := classifyByDOM(doc); ok {
		return t
	}
	return types.PageTypeUnknown
}

// classifyByURL matches the URL path against the ordered keyword lists.
// Non-HTML endpoints (sitemaps, robots, feeds) are recognized first; a bare
// root path with no query resolves to the static page type.
func classifyByURL(pageURL string) (types.PageType, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return types.PageTypeUnknown, false
	}
	path := strings.ToLower(u.Path)

	switch {
	case strings.HasSuffix(path, "/robots.txt"):
		return types.PageTypeRobots, true
	case strings.Contains(path, "sitemap") && (strings.HasSuffix(path, ".xml") || strings.HasSuffix(path, ".xml.gz")):
		return types.PageTypeSitemap, true
	case strings.HasSuffix(path, ".rss") || strings.HasSuffix(path, ".atom") ||
		strings.HasSuffix(path, "/feed") || strings.HasSuffix(path, "/feed/") || strings.HasSuffix(path, "/rss"):
		return types.PageTypeFeed, true
	}

	for _, group := range urlPatterns {
		for _, keyword := range group.keywords {
			if strings.Contains(path, keyword) {
				return group.pageType, true
			}
		}
	}

	if (path == "/" || path == "") && u.RawQuery == "" && u.Fragment == "" {
		return types.PageTypePage, true
	}
	return types.PageTypeUnknown, false
}

// classifyByDOM applies the heuristic signals in their fixed order: price
// plus purchase controls means product, repeated product cards mean
// category, an article container or comment region means blog.
func classifyByDOM(doc *goquery.Document) (types.PageType, bool) {
	if doc == nil {
		return types.PageTypeUnknown, false
	}

	hasPrice := doc.Find(priceSelectors).Length() > 0
	if hasPrice {
		hasCart := doc.Find(addToCartSelectors).Length() > 0
		hasStock := doc.Find(stockSelectors).Length() > 0
		if hasCart || hasStock {
			return types.PageTypeProduct, true
		}
	}

	if doc.Find(productCardSelectors).Length() >= minProductCards {
		return types.PageTypeCategory, true
	}

	if doc.Find(articleSelectors).Length() > 0 || doc.Find(commentSelectors).Length() > 0 {
		return types.PageTypeBlog, true
	}
	return types.PageTypeUnknown, false
}

// PathKeywords returns the URL keyword list for a page type. Discovery uses
// it to pick sample URLs from a sitemap.
func PathKeywords(pageType types.PageType) []string {
	for _, group := range urlPatterns {
		if group.pageType == pageType {
			return group.keywords
		}
	}
	return nil
}
