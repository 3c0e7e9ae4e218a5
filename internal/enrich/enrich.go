// internal/enrich/enrich.go

// Package enrich completes page records the deterministic pipeline left
// gaps in, by asking a language model for exactly the missing fields and
// merging its answer under a strict override policy. The model's values win
// only when present and non-placeholder; its type opinion is recorded apart
// from the DOM-derived classification and never replaces it.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	scraperrors "github.com/Burrhanburak/scrape-site/internal/errors"
	"github.com/Burrhanburak/scrape-site/internal/llm"
	"github.com/Burrhanburak/scrape-site/internal/normalize"
	"github.com/Burrhanburak/scrape-site/internal/utils"
	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// Config tunes enrichment decisions
type Config struct {
	// MinMainTextLength gates enrichment: below this there is nothing for
	// the model to work from.
	MinMainTextLength int `yaml:"min_main_text_length" json:"min_main_text_length"`

	// MaxPromptTextLength caps how much page text goes into the prompt.
	MaxPromptTextLength int `yaml:"max_prompt_text_length" json:"max_prompt_text_length"`

	// MinCategoryDescLength is the shortest category description considered
	// complete.
	MinCategoryDescLength int `yaml:"min_category_desc_length" json:"min_category_desc_length"`
}

// DefaultConfig returns the settings used when the section is absent
func DefaultConfig() Config {
	return Config{
		MinMainTextLength:     200,
		MaxPromptTextLength:   8000,
		MinCategoryDescLength: 50,
	}
}

// Enricher fills record gaps through an LLM provider
type Enricher struct {
	provider llm.Provider
	config   Config
	logger   utils.Logger
}

// NewEnricher creates an enricher. A nil provider yields an enricher whose
// Enrich always reports enrichment failure, so wiring stays uniform.
func NewEnricher(provider llm.Provider, cfg Config, logger utils.Logger) *Enricher {
	def := DefaultConfig()
	if cfg.MinMainTextLength <= 0 {
		cfg.MinMainTextLength = def.MinMainTextLength
	}
	if cfg.MaxPromptTextLength <= 0 {
		cfg.MaxPromptTextLength = def.MaxPromptTextLength
	}
	if cfg.MinCategoryDescLength <= 0 {
		cfg.MinCategoryDescLength = def.MinCategoryDescLength
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Enricher{provider: provider, config: cfg, logger: logger}
}

// MissingFields returns the field names whose absence makes this record a
// candidate for enrichment, per its page type. An empty result means the
// record is complete enough; a record with too little main text is never a
// candidate regardless of gaps.
func (e *Enricher) MissingFields(record *types.PageRecord) []string {
	if record == nil || !record.PageTypeGuess.Enrichable() {
		return nil
	}
	if len(types.StringVal(record.MainTextContent)) < e.config.MinMainTextLength {
		return nil
	}

	var missing []string
	switch record.PageTypeGuess {
	case types.PageTypeProduct:
		p := record.Product
		if p == nil || len(p.Features) == 0 {
			missing = append(missing, "features")
		}
		if p == nil || p.Price == nil {
			missing = append(missing, "price")
		}
		if p == nil || p.StockStatus == nil {
			missing = append(missing, "stock_status")
		}
		if len(record.Images) == 0 {
			missing = append(missing, "images")
		}
		if p == nil || p.Category == nil {
			missing = append(missing, "category")
		}
	case types.PageTypeBlog:
		b := record.Blog
		if b == nil || b.PublishDate == nil {
			missing = append(missing, "publish_date")
		}
		if b == nil || b.ContentSample == nil {
			missing = append(missing, "content_sample")
		}
		if b == nil || (len(b.Categories) == 0 && len(b.Tags) == 0) {
			missing = append(missing, "categories", "tags")
		}
	case types.PageTypeCategory:
		c := record.Category
		if c == nil || len(types.StringVal(c.Description)) < e.config.MinCategoryDescLength {
			missing = append(missing, "description")
		}
	}
	return missing
}

// response is the shape the model is asked to return. Unknown keys are
// discarded at this boundary.
type response struct {
	DetectedType    *string  `json:"detected_type"`
	Title           *string  `json:"title"`
	MetaDescription *string  `json:"meta_description"`
	Summary         *string  `json:"summary"`
	Price           *string  `json:"price"`
	Currency        *string  `json:"currency"`
	StockStatus     *string  `json:"stock_status"`
	Features        []string `json:"features"`
	Category        *string  `json:"category"`
	PublishDate     *string  `json:"publish_date"`
	Author          *string  `json:"author"`
	Categories      []string `json:"categories"`
	Tags            []string `json:"tags"`
	ContentSample   *string  `json:"content_sample"`
	Description     *string  `json:"description"`
	Images          []string `json:"images"`
}

// Enrich asks the model for the named missing fields and merges the answer
// into the record. Failures are recorded on the record's enrichment
// sub-record and returned as enrichment errors; the assembled fields are
// never downgraded.
func (e *Enricher) Enrich(ctx context.Context, record *types.PageRecord, missing []string) error {
	if e.provider == nil {
		return e.fail(record, fmt.Errorf("no LLM provider configured"))
	}
	if len(missing) == 0 {
		return nil
	}

	prompt := e.buildPrompt(record, missing)
	raw, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		return e.fail(record, err)
	}

	obj, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return e.fail(record, fmt.Errorf("unparseable model response: %w", err))
	}
	var resp response
	if err := json.Unmarshal(obj, &resp); err != nil {
		return e.fail(record, fmt.Errorf("model response does not match expected shape: %w", err))
	}

	e.merge(record, &resp)
	e.logger.WithFields(map[string]interface{}{
		"url":    record.URL,
		"fields": strings.Join(missing, ","),
	}).Debug("record enriched")
	return nil
}

func (e *Enricher) fail(record *types.PageRecord, cause error) error {
	if record.Enrichment == nil {
		record.Enrichment = &types.Enrichment{}
	}
	msg := cause.Error()
	record.Enrichment.Error = &msg
	return scraperrors.New(scraperrors.KindEnrichmentFailure, "enrich", record.URL, cause)
}

func (e *Enricher) buildPrompt(record *types.PageRecord, missing []string) string {
	text := types.StringVal(record.MainTextContent)
	if len(text) > e.config.MaxPromptTextLength {
		text = normalize.TruncateAtWord(text, e.config.MaxPromptTextLength)
	}

	var b strings.Builder
	b.WriteString("You are extracting page data for a web crawler.\n")
	fmt.Fprintf(&b, "Page URL: %s\n", record.URL)
	fmt.Fprintf(&b, "Page type: %s\n", record.PageTypeGuess)
	if t := types.StringVal(record.Title); t != "" {
		fmt.Fprintf(&b, "Page title: %s\n", t)
	}
	fmt.Fprintf(&b, "\nThe following fields could not be determined: %s.\n", strings.Join(missing, ", "))
	b.WriteString("From the page text below, return ONLY a JSON object with these keys:\n")
	for _, field := range missing {
		fmt.Fprintf(&b, "  %q: %s\n", field, fieldHint(field))
	}
	b.WriteString("  \"detected_type\": your own opinion of the page type (product, blog, category or page)\n")
	b.WriteString("Use JSON null for anything the text does not support. Do not invent values.\n")
	b.WriteString("\nPage text:\n")
	b.WriteString(text)
	return b.String()
}

func fieldHint(field string) string {
	switch field {
	case "features":
		return "array of short product feature strings"
	case "price":
		return "numeric price as a string, no currency symbol"
	case "stock_status":
		return "one of Mevcut, Tükendi, Ön Sipariş, or the page's own wording"
	case "images":
		return "array of image URLs named in the text"
	case "category":
		return "the product's category name"
	case "publish_date":
		return "publication date as written on the page"
	case "content_sample":
		return "two-sentence excerpt of the article body"
	case "categories":
		return "array of article category names"
	case "tags":
		return "array of article tag names"
	case "description":
		return "one-paragraph description of this category"
	default:
		return "string value"
	}
}

// merge applies the override policy field by field
func (e *Enricher) merge(record *types.PageRecord, resp *response) {
	enr := record.Enrichment
	if enr == nil {
		enr = &types.Enrichment{}
		record.Enrichment = enr
	}
	now := time.Now().UTC()
	enr.EnrichedAt = &now
	enr.Error = nil

	if v, ok := usable(resp.DetectedType); ok {
		enr.AIDetectedType = &v
	}
	if v, ok := usable(resp.Title); ok {
		enr.Title = &v
		record.Title = &v
	}
	if v, ok := usable(resp.MetaDescription); ok {
		enr.MetaDescription = &v
		record.MetaDescription = &v
	}
	if v, ok := usable(resp.Summary); ok {
		enr.Summary = &v
	}

	if p := e.mergeProduct(record, resp); p != nil {
		enr.Product = p
	}
	if b := e.mergeBlog(record, resp); b != nil {
		enr.Blog = b
	}
	if c := e.mergeCategory(record, resp); c != nil {
		enr.Category = c
	}

	for _, raw := range resp.Images {
		resolved := normalize.ResolveURL(record.URL, raw)
		if resolved == "" {
			continue
		}
		if record.AddImage(types.ImageItem{Src: resolved}) {
			enr.Images = append(enr.Images, resolved)
		}
	}
}

func (e *Enricher) mergeProduct(record *types.PageRecord, resp *response) *types.ProductInfo {
	if record.PageTypeGuess != types.PageTypeProduct {
		return nil
	}
	var out *types.ProductInfo
	set := func(apply func(*types.ProductInfo, string), v string) {
		if out == nil {
			out = &types.ProductInfo{}
		}
		apply(out, v)
		apply(record.EnsureProduct(), v)
	}

	if v, ok := usable(resp.Price); ok {
		price, currency := normalize.NormalizePrice(v)
		if price != "" {
			set(func(p *types.ProductInfo, s string) { p.Price = &s }, price)
			if currency != "" && (record.Product == nil || record.Product.Currency == nil) {
				set(func(p *types.ProductInfo, s string) { p.Currency = &s }, currency)
			}
		}
	}
	if v, ok := usable(resp.Currency); ok {
		set(func(p *types.ProductInfo, s string) { p.Currency = &s }, v)
	}
	if v, ok := usable(resp.StockStatus); ok {
		set(func(p *types.ProductInfo, s string) { p.StockStatus = &s }, normalize.NormalizeStockStatus(v))
	}
	if v, ok := usable(resp.Category); ok {
		set(func(p *types.ProductInfo, s string) { p.Category = &s }, v)
	}
	if features := usableSlice(resp.Features); len(features) > 0 {
		if out == nil {
			out = &types.ProductInfo{}
		}
		out.Features = features
		record.EnsureProduct().Features = features
	}
	return out
}

func (e *Enricher) mergeBlog(record *types.PageRecord, resp *response) *types.BlogInfo {
	if record.PageTypeGuess != types.PageTypeBlog {
		return nil
	}
	var out *types.BlogInfo
	ensure := func() *types.BlogInfo {
		if out == nil {
			out = &types.BlogInfo{}
		}
		return out
	}

	if v, ok := usable(resp.PublishDate); ok {
		ensure().PublishDate = &v
		record.EnsureBlog().PublishDate = &v
	}
	if v, ok := usable(resp.Author); ok {
		ensure().Author = &v
		record.EnsureBlog().Author = &v
	}
	if v, ok := usable(resp.ContentSample); ok {
		ensure().ContentSample = &v
		record.EnsureBlog().ContentSample = &v
	}
	if categories := usableSlice(resp.Categories); len(categories) > 0 {
		ensure().Categories = categories
		record.EnsureBlog().Categories = categories
	}
	if tags := usableSlice(resp.Tags); len(tags) > 0 {
		ensure().Tags = tags
		record.EnsureBlog().Tags = tags
	}
	return out
}

func (e *Enricher) mergeCategory(record *types.PageRecord, resp *response) *types.CategoryInfo {
	if record.PageTypeGuess != types.PageTypeCategory {
		return nil
	}
	v, ok := usable(resp.Description)
	if !ok {
		return nil
	}
	record.EnsureCategory().Description = &v
	return &types.CategoryInfo{Description: &v}
}

// usable reports whether a model-returned string may override an assembled
// value. JSON null, the empty string, and the literal string "null" are all
// treated as absent; models emit all three.
func usable(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	v := strings.TrimSpace(*p)
	if v == "" || strings.EqualFold(v, "null") {
		return "", false
	}
	return v, true
}

func usableSlice(values []string) []string {
	var out []string
	for _, v := range values {
		if cleaned, ok := usable(&v); ok {
			out = append(out, cleaned)
		}
	}
	return out
}
