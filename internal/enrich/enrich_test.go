// internal/enrich/enrich_test.go
package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	scraperrors "github.com/Burrhanburak/scrape-site/internal/errors"
	"github.com/Burrhanburak/scrape-site/pkg/types"
)

type stubProvider struct {
	response string
	err      error
	prompt   string
}

func (s *stubProvider) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func (s *stubProvider) Name() string { return "stub" }

func productRecord(mainTextLen int) *types.PageRecord {
	rec := types.NewPageRecord("https://shop.example.com/p/red-shoe")
	rec.PageTypeGuess = types.PageTypeProduct
	rec.Title = types.StringPtr("Red Shoe")
	text := strings.Repeat("Quality running shoe with cushioned sole. ", mainTextLen/42+1)
	rec.MainTextContent = &text
	return rec
}

func TestMissingFieldsProduct(t *testing.T) {
	e := NewEnricher(nil, Config{}, nil)

	rec := productRecord(500)
	missing := e.MissingFields(rec)
	joined := strings.Join(missing, ",")
	for _, want := range []string{"features", "price", "stock_status", "images", "category"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing fields %v lacks %s", missing, want)
		}
	}

	rec.EnsureProduct().Price = types.StringPtr("49.90")
	rec.EnsureProduct().StockStatus = types.StringPtr("Mevcut")
	rec.EnsureProduct().Category = types.StringPtr("Shoes")
	rec.EnsureProduct().Features = []string{"cushioned sole"}
	rec.AddImage(types.ImageItem{Src: "https://shop.example.com/a.jpg"})
	if got := e.MissingFields(rec); len(got) != 0 {
		t.Errorf("complete product still reports missing fields: %v", got)
	}
}

func TestMissingFieldsSkipsThinContent(t *testing.T) {
	e := NewEnricher(nil, Config{MinMainTextLength: 200}, nil)
	rec := productRecord(500)
	short := "barely anything"
	rec.MainTextContent = &short
	if got := e.MissingFields(rec); got != nil {
		t.Errorf("thin content should never be enriched, got %v", got)
	}
}

func TestMissingFieldsBlog(t *testing.T) {
	e := NewEnricher(nil, Config{}, nil)
	rec := productRecord(500)
	rec.PageTypeGuess = types.PageTypeBlog

	missing := strings.Join(e.MissingFields(rec), ",")
	for _, want := range []string{"publish_date", "content_sample", "categories", "tags"} {
		if !strings.Contains(missing, want) {
			t.Errorf("blog missing fields %q lacks %s", missing, want)
		}
	}

	// Either categories or tags satisfies the taxonomy requirement.
	rec.EnsureBlog().Tags = []string{"golang"}
	missing = strings.Join(e.MissingFields(rec), ",")
	if strings.Contains(missing, "categories") {
		t.Errorf("tags present but categories still demanded: %q", missing)
	}
}

func TestMissingFieldsNonEnrichableTypes(t *testing.T) {
	e := NewEnricher(nil, Config{}, nil)
	for _, pt := range []types.PageType{types.PageTypeError, types.PageTypeSitemap, types.PageTypeUnknown} {
		rec := productRecord(500)
		rec.PageTypeGuess = pt
		if got := e.MissingFields(rec); got != nil {
			t.Errorf("%s records must not be enriched, got %v", pt, got)
		}
	}
}

func TestEnrichMergesUsableValues(t *testing.T) {
	provider := &stubProvider{response: `Here you go:
` + "```json\n" + `{
  "price": "1.234,56 ₺",
  "stock_status": "stokta var",
  "features": ["kırmızı", "", "null", "hafif taban"],
  "category": "Koşu Ayakkabıları",
  "detected_type": "product",
  "images": ["/img/side.jpg", "https://shop.example.com/a.jpg"]
}` + "\n```"}

	e := NewEnricher(provider, Config{}, nil)
	rec := productRecord(500)
	rec.AddImage(types.ImageItem{Src: "https://shop.example.com/a.jpg"})

	missing := []string{"price", "stock_status", "features", "category", "images"}
	if err := e.Enrich(context.Background(), rec, missing); err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	if got := types.StringVal(rec.Product.Price); got != "1234.56" {
		t.Errorf("price = %q, want 1234.56", got)
	}
	if got := types.StringVal(rec.Product.Currency); got != "TRY" {
		t.Errorf("currency = %q, want TRY", got)
	}
	if got := types.StringVal(rec.Product.StockStatus); got != "Mevcut" {
		t.Errorf("stock = %q, want Mevcut", got)
	}
	if len(rec.Product.Features) != 2 {
		t.Errorf("features = %v, placeholders must be dropped", rec.Product.Features)
	}
	if rec.Enrichment == nil || types.StringVal(rec.Enrichment.AIDetectedType) != "product" {
		t.Error("detected type not recorded on the enrichment sub-record")
	}
	if rec.Enrichment.EnrichedAt == nil {
		t.Error("EnrichedAt not set")
	}
}

func TestEnrichUnionsImagesByResolvedURL(t *testing.T) {
	provider := &stubProvider{response: `{"images": ["/img/side.jpg", "https://shop.example.com/a.jpg", "not a scheme://x"]}`}
	e := NewEnricher(provider, Config{}, nil)

	rec := productRecord(500)
	rec.AddImage(types.ImageItem{Src: "https://shop.example.com/a.jpg"})

	if err := e.Enrich(context.Background(), rec, []string{"images"}); err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if len(rec.Images) != 2 {
		t.Fatalf("images = %d, want 2 (union, dedup by resolved URL)", len(rec.Images))
	}
	if rec.Images[1].Src != "https://shop.example.com/img/side.jpg" {
		t.Errorf("new image not resolved to absolute form: %q", rec.Images[1].Src)
	}
	if len(rec.Enrichment.Images) != 1 {
		t.Errorf("enrichment sub-record lists %d images, want only the 1 actually added", len(rec.Enrichment.Images))
	}
}

func TestEnrichNeverReplacesPageTypeGuess(t *testing.T) {
	provider := &stubProvider{response: `{"detected_type": "blog", "price": "10.00"}`}
	e := NewEnricher(provider, Config{}, nil)

	rec := productRecord(500)
	if err := e.Enrich(context.Background(), rec, []string{"price"}); err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if rec.PageTypeGuess != types.PageTypeProduct {
		t.Errorf("pageTypeGuess changed to %s; the model's opinion must stay separate", rec.PageTypeGuess)
	}
	if types.StringVal(rec.Enrichment.AIDetectedType) != "blog" {
		t.Error("model's type opinion lost")
	}
}

func TestEnrichIgnoresPlaceholderValues(t *testing.T) {
	provider := &stubProvider{response: `{"title": "null", "price": "", "stock_status": null}`}
	e := NewEnricher(provider, Config{}, nil)

	rec := productRecord(500)
	if err := e.Enrich(context.Background(), rec, []string{"price", "stock_status"}); err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if types.StringVal(rec.Title) != "Red Shoe" {
		t.Errorf("title overwritten by placeholder: %q", types.StringVal(rec.Title))
	}
	if rec.Product != nil && (rec.Product.Price != nil || rec.Product.StockStatus != nil) {
		t.Errorf("placeholder values stored: %+v", rec.Product)
	}
}

func TestEnrichProviderFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("rate limited")}
	e := NewEnricher(provider, Config{}, nil)

	rec := productRecord(500)
	err := e.Enrich(context.Background(), rec, []string{"price"})
	if err == nil {
		t.Fatal("Enrich swallowed a provider failure")
	}
	kind, ok := scraperrors.KindOf(err)
	if !ok || kind != scraperrors.KindEnrichmentFailure {
		t.Errorf("error kind = %v, want enrichment_failure", kind)
	}
	if rec.Enrichment == nil || rec.Enrichment.Error == nil {
		t.Error("failure not recorded on the enrichment sub-record")
	}
	if types.StringVal(rec.Title) != "Red Shoe" {
		t.Error("assembled fields downgraded by a failed enrichment")
	}
}

func TestEnrichUnparseableResponse(t *testing.T) {
	provider := &stubProvider{response: "I could not find any structured information on this page."}
	e := NewEnricher(provider, Config{}, nil)

	rec := productRecord(500)
	if err := e.Enrich(context.Background(), rec, []string{"price"}); err == nil {
		t.Fatal("Enrich accepted a response with no JSON object")
	}
}

func TestPromptNamesExactlyMissingFields(t *testing.T) {
	provider := &stubProvider{response: `{}`}
	e := NewEnricher(provider, Config{}, nil)

	rec := productRecord(500)
	if err := e.Enrich(context.Background(), rec, []string{"price", "stock_status"}); err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if !strings.Contains(provider.prompt, "price, stock_status") {
		t.Errorf("prompt does not name the missing fields:\n%s", provider.prompt)
	}
	if strings.Contains(provider.prompt, `"features"`) {
		t.Error("prompt asks for fields that are not missing")
	}
}
