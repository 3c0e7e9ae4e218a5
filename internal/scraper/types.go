// internal/scraper/types.go
package scraper

import (
	"fmt"

	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// Common errors
var (
	ErrEmptyHTML     = fmt.Errorf("HTML content cannot be empty")
	ErrEmptySelector = fmt.Errorf("selector cannot be empty")
	ErrNoDocument    = fmt.Errorf("document cannot be nil")
)

// AssemblerConfig holds the tuning knobs of record assembly. The link-density
// and length constants were tuned empirically; they are configuration, not a
// semantic contract.
type AssemblerConfig struct {
	// MaxMainTextLength caps the extracted body text, in runes.
	MaxMainTextLength int `yaml:"max_main_text_length" json:"max_main_text_length"`

	// MinBlockTextLength is the text length below which a block becomes a
	// candidate for link-density pruning.
	MinBlockTextLength int `yaml:"min_block_text_length" json:"min_block_text_length"`

	// MaxBlockLinks is the link count above which a short block is treated
	// as a navigation fragment.
	MaxBlockLinks int `yaml:"max_block_links" json:"max_block_links"`

	// MaxLinkTextLength is the average anchor-text length under which the
	// links of a pruned block count as navigational.
	MaxLinkTextLength int `yaml:"max_link_text_length" json:"max_link_text_length"`

	// TitleFallbackLength bounds a title synthesized from main text.
	TitleFallbackLength int `yaml:"title_fallback_length" json:"title_fallback_length"`

	// DescriptionFallbackLength bounds a meta description synthesized from
	// main text.
	DescriptionFallbackLength int `yaml:"description_fallback_length" json:"description_fallback_length"`
}

// DefaultAssemblerConfig returns the assembly defaults
func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		MaxMainTextLength:         15000,
		MinBlockTextLength:        100,
		MaxBlockLinks:             2,
		MaxLinkTextLength:         20,
		TitleFallbackLength:       70,
		DescriptionFallbackLength: 160,
	}
}

// defaultRules is the global fallback selector profile. Site-specific rules
// discovered per hostname are layered in front of these, never instead of
// them.
var defaultRules = map[types.FieldKey][]types.SelectorRule{
	types.FieldTitle: {
		{Selector: "title"},
		{Selector: `meta[property="og:title"]`, Attribute: "content"},
		{Selector: "h1"},
	},
	types.FieldMetaDescription: {
		{Selector: `meta[name="description"]`, Attribute: "content"},
		{Selector: `meta[property="og:description"]`, Attribute: "content"},
	},
	types.FieldKeywords: {
		{Selector: `meta[name="keywords"]`, Attribute: "content"},
	},
	types.FieldOGImage: {
		{Selector: `meta[property="og:image"]`, Attribute: "content"},
		{Selector: `meta[name="twitter:image"]`, Attribute: "content"},
	},
	types.FieldCanonicalURL: {
		{Selector: `link[rel="canonical"]`, Attribute: "href"},
	},
	types.FieldPrice: {
		{Selector: `[itemprop="price"]`, Attribute: "content"},
		{Selector: `[itemprop="price"]`},
		{Selector: `meta[property="product:price:amount"]`, Attribute: "content"},
		{Selector: ".product-price"},
		{Selector: ".current-price"},
		{Selector: ".price-now"},
		{Selector: ".price"},
		{Selector: "span.amount"},
	},
	types.FieldStockStatus: {
		{Selector: `[itemprop="availability"]`, Attribute: "href"},
		{Selector: `[itemprop="availability"]`, Attribute: "content"},
		{Selector: `[itemprop="availability"]`},
		{Selector: ".stock-status"},
		{Selector: ".availability"},
		{Selector: ".in-stock"},
		{Selector: ".out-of-stock"},
		{Selector: ".stock"},
	},
	types.FieldProductImages: {
		{Selector: ".product-gallery img"},
		{Selector: ".product-images img"},
		{Selector: ".product-image img"},
		{Selector: `img[itemprop="image"]`},
		{Selector: ".gallery img"},
	},
	types.FieldFeatures: {
		{Selector: ".product-features tr", IsTabularRow: true},
		{Selector: ".specifications tr", IsTabularRow: true},
		{Selector: ".product-specs tr", IsTabularRow: true},
		{Selector: ".product-features li"},
		{Selector: ".features li"},
		{Selector: ".specs li"},
	},
	types.FieldProductCategory: {
		{Selector: `[itemprop="category"]`},
		{Selector: ".product-category"},
		{Selector: `meta[property="product:category"]`, Attribute: "content"},
	},
	types.FieldPublishDate: {
		{Selector: `meta[property="article:published_time"]`, Attribute: "content"},
		{Selector: "time[datetime]", Attribute: "datetime"},
		{Selector: `[itemprop="datePublished"]`, Attribute: "content"},
		{Selector: ".post-date"},
		{Selector: ".published"},
		{Selector: ".entry-date"},
	},
	types.FieldBlogCategories: {
		{Selector: ".post-categories a"},
		{Selector: ".cat-links a"},
		{Selector: `a[rel="category tag"]`},
		{Selector: `a[rel="category"]`},
		{Selector: ".entry-categories a"},
	},
	types.FieldBlogContentSample: {
		{Selector: "article p"},
		{Selector: ".post-content p"},
		{Selector: ".entry-content p"},
		{Selector: ".blog-content p"},
	},
	types.FieldCategoryName: {
		{Selector: ".category-title"},
		{Selector: ".category-header h1"},
		{Selector: ".collection-title"},
		{Selector: "h1"},
	},
	types.FieldNavigationContainer: {
		{Selector: "nav"},
		{Selector: "header nav"},
		{Selector: ".navbar"},
		{Selector: ".main-menu"},
		{Selector: "#menu"},
	},
	types.FieldFooterContainer: {
		{Selector: "footer"},
		{Selector: ".footer"},
		{Selector: "#footer"},
	},
	types.FieldBreadcrumbContainer: {
		{Selector: `[itemtype*="BreadcrumbList"]`},
		{Selector: `nav[aria-label="breadcrumb"]`},
		{Selector: ".breadcrumb"},
		{Selector: ".breadcrumbs"},
		{Selector: "#breadcrumb"},
	},
}

// DefaultRules returns the global fallback rules for a field
func DefaultRules(key types.FieldKey) []types.SelectorRule {
	return defaultRules[key]
}

// LayeredRules concatenates a site profile's rules for a field in front of
// the global defaults. Site-specific rules are tried first; a hostname with
// no profile falls back entirely to defaults.
func LayeredRules(profile *types.SiteSelectorProfile, key types.FieldKey) []types.SelectorRule {
	site := profile.RulesFor(key)
	def := defaultRules[key]
	if len(site) == 0 {
		return def
	}
	out := make([]types.SelectorRule, 0, len(site)+len(def))
	out = append(out, site...)
	out = append(out, def...)
	return out
}
