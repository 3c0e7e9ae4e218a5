// internal/scraper/assembler.go
package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Burrhanburak/scrape-site/internal/normalize"
	"github.com/Burrhanburak/scrape-site/internal/utils"
	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// Assembler reconciles structured-data, selector, and heuristic signals from
// one HTML document into a normalized page record under a strict per-field
// priority order: structured data seeds the record, selector extraction
// fills gaps, heuristic fallbacks fill the rest. It holds no per-call state
// and is safe for concurrent use across distinct URLs.
type Assembler struct {
	config AssemblerConfig
	logger utils.Logger
}

// NewAssembler creates an assembler with the given configuration
func NewAssembler(config AssemblerConfig, logger utils.Logger) *Assembler {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Assembler{config: config, logger: logger}
}

// Assemble builds a page record from raw HTML. It never fails: any internal
// problem yields an error-typed record with a captured message rather than
// an error return, per the core boundary contract. The optional profile
// layers hostname-scoped selector rules in front of the global defaults.
func (a *Assembler) Assemble(html, pageURL string, profile *types.SiteSelectorProfile) *types.PageRecord {
	doc, err := ParseDocument(html)
	if err != nil {
		return types.NewErrorRecord(pageURL, fmt.Sprintf("document parse failed: %v", err))
	}

	rec := types.NewPageRecord(pageURL)
	if host := hostOf(pageURL); host != "" {
		rec.Hostname = host
	} else {
		// Malformed URL: hostname-derived fields stay unset, extraction
		// continues.
		a.logger.WithField("url", pageURL).Debug("could not resolve hostname")
	}

	a.extractMeta(doc, rec, profile)
	titleWasPlaceholder := rec.Title == nil
	var placeholderTitle string
	if titleWasPlaceholder {
		placeholderTitle = titleFromURL(pageURL)
		fillString(&rec.Title, placeholderTitle)
	}

	sd := ExtractStructuredData(doc, pageURL, a.logger)
	a.seedFromStructuredData(rec, sd, pageURL)
	// A structured-data object with an empty name seeds nothing; the
	// placeholder only stops counting as one when the title actually changed.
	if titleWasPlaceholder && types.StringVal(rec.Title) != placeholderTitle {
		titleWasPlaceholder = false
	}

	rec.PageTypeGuess = Classify(doc, pageURL, sd)

	a.fillTypeSpecific(doc, rec, profile, pageURL)
	a.extractStructure(doc, rec, pageURL, profile)
	a.inferCategoryFromBreadcrumbs(rec)
	a.normalizeProductPrice(rec)

	mainText := ExtractMainText(doc, a.config)
	seedString(&rec.MainTextContent, mainText)
	fillString(&rec.Language, normalize.DetectLanguage(mainText))

	a.synthesizeFallbacks(rec, mainText, titleWasPlaceholder)
	rec.TitleFallback = titleWasPlaceholder
	return rec
}

// extractMeta runs step 2: core metadata through the layered selector rules,
// site profile first.
func (a *Assembler) extractMeta(doc *goquery.Document, rec *types.PageRecord, profile *types.SiteSelectorProfile) {
	fillString(&rec.Title, ExtractSingle(doc, LayeredRules(profile, types.FieldTitle)))
	fillString(&rec.MetaDescription, ExtractSingle(doc, LayeredRules(profile, types.FieldMetaDescription)))
	fillString(&rec.CanonicalURL, ExtractSingle(doc, LayeredRules(profile, types.FieldCanonicalURL)))
	fillString(&rec.OGImage, ExtractSingle(doc, LayeredRules(profile, types.FieldOGImage)))

	if keywords := ExtractSingle(doc, LayeredRules(profile, types.FieldKeywords)); keywords != "" {
		fillSlice(&rec.Keywords, splitKeywords(keywords))
	}

	meta := extractMetaTags(doc)
	fillString(&rec.OGTitle, meta["og:title"])
	fillString(&rec.OGDescription, meta["og:description"])
	fillString(&rec.OGType, meta["og:type"])
	fillString(&rec.Language, docLanguage(doc))
}

// seedFromStructuredData runs step 3: the first Product, Article, or
// Collection object seeds the record. Seeding always overwrites a
// selector-derived value because structured data is authoritative.
func (a *Assembler) seedFromStructuredData(rec *types.PageRecord, sd *StructuredData, pageURL string) {
	if p := sd.Product; p != nil {
		seedString(&rec.Title, p.Name)
		seedString(&rec.MetaDescription, p.Description)
		info := rec.EnsureProduct()
		seedString(&info.Price, p.Price)
		seedString(&info.Currency, p.Currency)
		seedString(&info.StockStatus, normalize.NormalizeStockStatus(availabilityLabel(p.Availability)))
		seedString(&info.Category, p.Category)
		for _, src := range p.Images {
			rec.AddImage(types.ImageItem{Src: src})
		}
	}

	if art := sd.Article; art != nil {
		seedString(&rec.Title, art.Headline)
		seedString(&rec.MetaDescription, art.Description)
		info := rec.EnsureBlog()
		seedString(&info.PublishDate, art.DatePublished)
		seedString(&info.Author, art.Author)
		seedSlice(&info.Categories, art.Sections)
		for _, src := range art.Images {
			rec.AddImage(types.ImageItem{Src: src})
		}
	}

	if col := sd.Collection; col != nil {
		info := rec.EnsureCategory()
		seedString(&info.Name, col.Name)
		seedString(&info.Description, col.Description)
	}

	if og := sd.OG("og:image"); og != "" {
		if resolved := normalize.ResolveURL(pageURL, og); resolved != "" {
			rec.AddImage(types.ImageItem{Src: resolved})
		}
	}
}

// fillTypeSpecific runs step 5: selector extraction for the classified
// type's payload fields. This step only closes gaps; a value seeded from
// structured data is never overwritten here.
func (a *Assembler) fillTypeSpecific(doc *goquery.Document, rec *types.PageRecord, profile *types.SiteSelectorProfile, pageURL string) {
	switch rec.PageTypeGuess {
	case types.PageTypeProduct:
		info := rec.EnsureProduct()
		fillString(&info.Price, ExtractSingle(doc, LayeredRules(profile, types.FieldPrice)))
		if info.StockStatus == nil {
			raw := ExtractSingle(doc, LayeredRules(profile, types.FieldStockStatus))
			fillString(&info.StockStatus, normalize.NormalizeStockStatus(availabilityLabel(raw)))
		}
		fillString(&info.Category, ExtractSingle(doc, LayeredRules(profile, types.FieldProductCategory)))
		fillSlice(&info.Features, ExtractAll(doc, ruleGroups(profile, types.FieldFeatures)))

		images := ExtractImages(doc, pageURL, LayeredRules(profile, types.FieldProductImages), "img[src]")
		for _, img := range images {
			rec.AddImage(img)
		}

	case types.PageTypeBlog:
		info := rec.EnsureBlog()
		fillString(&info.PublishDate, ExtractSingle(doc, LayeredRules(profile, types.FieldPublishDate)))
		fillSlice(&info.Categories, ExtractAll(doc, ruleGroups(profile, types.FieldBlogCategories)))
		if info.ContentSample == nil {
			sample := ExtractSingle(doc, LayeredRules(profile, types.FieldBlogContentSample))
			fillString(&info.ContentSample, normalize.TruncateAtWord(sample, a.config.DescriptionFallbackLength*2))
		}

	case types.PageTypeCategory, types.PageTypeCollection:
		info := rec.EnsureCategory()
		fillString(&info.Name, ExtractSingle(doc, LayeredRules(profile, types.FieldCategoryName)))
		fillString(&info.Description, types.StringVal(rec.MetaDescription))
	}
}

// extractStructure runs step 6 unconditionally: headings, link groups, and
// breadcrumbs.
func (a *Assembler) extractStructure(doc *goquery.Document, rec *types.PageRecord, pageURL string, profile *types.SiteSelectorProfile) {
	rec.Headings, rec.HeadingsFlat = ExtractHeadings(doc)
	rec.InternalLinks, rec.ExternalLinks = ExtractLinks(doc, pageURL)
	rec.NavLinks = ExtractScopedLinks(doc, pageURL, LayeredRules(profile, types.FieldNavigationContainer))
	rec.FooterLinks = ExtractScopedLinks(doc, pageURL, LayeredRules(profile, types.FieldFooterContainer))
	rec.Breadcrumbs = ExtractBreadcrumbs(doc, pageURL, LayeredRules(profile, types.FieldBreadcrumbContainer))
}

// inferCategoryFromBreadcrumbs runs step 7: when category is still empty,
// derive it from breadcrumb position. Product and blog take the
// second-to-last crumb, category pages the last; recognized home labels
// never qualify.
func (a *Assembler) inferCategoryFromBreadcrumbs(rec *types.PageRecord) {
	if len(rec.Breadcrumbs) == 0 {
		return
	}

	crumbAt := func(fromEnd int) string {
		idx := len(rec.Breadcrumbs) - fromEnd
		if idx < 0 {
			return ""
		}
		text := rec.Breadcrumbs[idx].Text
		if IsHomeLabel(text) {
			return ""
		}
		return text
	}

	switch rec.PageTypeGuess {
	case types.PageTypeProduct:
		if rec.Product == nil || rec.Product.Category != nil {
			return
		}
		fillString(&rec.Product.Category, crumbAt(2))
	case types.PageTypeCategory, types.PageTypeCollection:
		if rec.Category != nil && rec.Category.Name != nil {
			return
		}
		fillString(&rec.EnsureCategory().Name, crumbAt(1))
	case types.PageTypeBlog:
		if rec.Blog == nil || len(rec.Blog.Categories) > 0 {
			return
		}
		if crumb := crumbAt(2); crumb != "" {
			rec.Blog.Categories = []string{crumb}
		}
	}
}

// normalizeProductPrice runs step 8: split symbol from value, normalize
// separators, map the symbol to an ISO code. A currency parsed out of the
// price string only fills a currency gap, never overrides one from
// structured data.
func (a *Assembler) normalizeProductPrice(rec *types.PageRecord) {
	if rec.Product == nil || rec.Product.Price == nil {
		return
	}
	price, currency := normalize.NormalizePrice(*rec.Product.Price)
	if price == "" {
		rec.Product.Price = nil
	} else {
		rec.Product.Price = types.StringPtr(price)
	}
	fillString(&rec.Product.Currency, currency)
}

// synthesizeFallbacks runs step 10: when the title is still the URL-derived
// placeholder and main text is non-trivial, derive title and description
// from the text's opening.
func (a *Assembler) synthesizeFallbacks(rec *types.PageRecord, mainText string, titleWasPlaceholder bool) {
	if mainText == "" || len(mainText) < a.config.TitleFallbackLength {
		return
	}
	if titleWasPlaceholder {
		seedString(&rec.Title, normalize.TruncateAtWord(mainText, a.config.TitleFallbackLength))
	}
	fillString(&rec.MetaDescription, normalize.TruncateAtWord(mainText, a.config.DescriptionFallbackLength))
}

// ruleGroups builds the alternative rule groups for multi-value extraction:
// the site profile's rules as one group tried first, the defaults as the
// fallback group.
func ruleGroups(profile *types.SiteSelectorProfile, key types.FieldKey) [][]types.SelectorRule {
	var groups [][]types.SelectorRule
	if site := profile.RulesFor(key); len(site) > 0 {
		groups = append(groups, site)
	}
	if def := defaultRules[key]; len(def) > 0 {
		groups = append(groups, def)
	}
	return groups
}

// availabilityLabel strips the schema.org URL prefix from availability
// values like "https://schema.org/InStock"
func availabilityLabel(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, "/"); i >= 0 && strings.Contains(raw, "schema.org") {
		return raw[i+1:]
	}
	return raw
}

// titleFromURL derives a human-readable placeholder title from the last URL
// path segment, falling back to the hostname.
func titleFromURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	segment := ""
	for _, part := range strings.Split(u.Path, "/") {
		if part != "" {
			segment = part
		}
	}
	if segment == "" {
		return u.Hostname()
	}
	segment = strings.TrimSuffix(segment, ".html")
	segment = strings.TrimSuffix(segment, ".htm")
	segment = strings.NewReplacer("-", " ", "_", " ").Replace(segment)
	return normalize.CleanText(segment)
}

// splitKeywords splits a meta keywords value on commas and semicolons
func splitKeywords(raw string) []string {
	var keywords []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		if cleaned := normalize.CleanText(part); cleaned != "" {
			keywords = append(keywords, cleaned)
		}
	}
	return keywords
}

// docLanguage reads the html element's lang attribute
func docLanguage(doc *goquery.Document) string {
	lang, _ := doc.Find("html").First().Attr("lang")
	lang = strings.TrimSpace(lang)
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return strings.ToLower(lang)
}
