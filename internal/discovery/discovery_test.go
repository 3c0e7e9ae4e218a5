// internal/discovery/discovery_test.go
package discovery

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/Burrhanburak/scrape-site/internal/fetch"
	"github.com/Burrhanburak/scrape-site/internal/scraper"
	"github.com/Burrhanburak/scrape-site/internal/store"
	"github.com/Burrhanburak/scrape-site/pkg/types"
)

type mapFetcher struct {
	pages map[string]string
}

func (f *mapFetcher) Fetch(_ context.Context, url string) (*fetch.Result, error) {
	body, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("no page for %s", url)
	}
	return &fetch.Result{URL: url, FinalURL: url, StatusCode: 200, Body: body}, nil
}

type stubProvider struct {
	response string
	err      error
	prompts  []string
}

func (s *stubProvider) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

func (s *stubProvider) Name() string { return "stub" }

func productHTML(n int) string {
	extra := ""
	if n == 1 {
		extra = `<div class="only-on-first">unique</div>`
	}
	return fmt.Sprintf(`<html><body>
<h1 class="product-name">Product %d</h1>
<span class="price-tag">%d9,90 TL</span>
<ul class="spec-list"><li>feature a</li><li>feature b</li></ul>
%s
</body></html>`, n, n, extra)
}

func testSite() *mapFetcher {
	pages := map[string]string{
		"https://shop.example.com": `<html><body><h1>Shop</h1></body></html>`,
		"https://shop.example.com/robots.txt": "Sitemap: https://shop.example.com/sitemap.xml\n",
		"https://shop.example.com/sitemap.xml": `<urlset>
  <url><loc>https://shop.example.com/product/one</loc></url>
  <url><loc>https://shop.example.com/product/two</loc></url>
  <url><loc>https://shop.example.com/product/three</loc></url>
  <url><loc>https://shop.example.com/blog/post</loc></url>
</urlset>`,
		"https://shop.example.com/product/one":   productHTML(1),
		"https://shop.example.com/product/two":   productHTML(2),
		"https://shop.example.com/product/three": productHTML(3),
		"https://shop.example.com/blog/post": `<html><body><article>
<h1>Post</h1><time datetime="2026-01-05">Jan 5</time></article></body></html>`,
	}
	return &mapFetcher{pages: pages}
}

func mustSample(t *testing.T, url, html string, pt types.PageType) sample {
	t.Helper()
	doc, err := scraper.ParseDocument(html)
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	return sample{url: url, pageType: pt, html: html, doc: doc}
}

func TestDiscoverPersistsScoredProfile(t *testing.T) {
	provider := &stubProvider{response: `{
  "price": [{"selector": ".price-tag"}, {"selector": ".nonexistent-price"}],
  "features": [{"selector": ".spec-list li"}],
  "title": [{"selector": "h1"}],
  "publishDate": [{"selector": "time", "attr": "datetime"}],
  "stockStatus": [{"selector": ".only-on-first"}],
  "notAField": [{"selector": ".whatever"}]
}`}
	profiles := store.NewMemoryStore()
	e := NewEngine(testSite(), provider, profiles, Config{}, nil)

	profile, err := e.Discover(context.Background(), "https://shop.example.com")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if len(provider.prompts) != 1 {
		t.Fatalf("LLM called %d times, want exactly 1 batched call", len(provider.prompts))
	}

	price := profile.RulesFor(types.FieldPrice)
	if len(price) != 1 || price[0].Selector != ".price-tag" {
		t.Errorf("price rule = %+v, want .price-tag", price)
	}
	features := profile.RulesFor(types.FieldFeatures)
	if len(features) != 1 || features[0].Selector != ".spec-list li" {
		t.Errorf("features rule = %+v", features)
	}
	date := profile.RulesFor(types.FieldPublishDate)
	if len(date) != 1 || date[0].Attribute != "datetime" {
		t.Errorf("publishDate rule = %+v, attribute lost", date)
	}
	if rules := profile.RulesFor(types.FieldKey("notAField")); rules != nil {
		t.Error("unknown field key persisted")
	}

	stored, err := profiles.Get(context.Background(), "shop.example.com")
	if err != nil {
		t.Fatalf("profile not persisted: %v", err)
	}
	if stored.FieldCount() != profile.FieldCount() {
		t.Errorf("stored %d fields, returned %d", stored.FieldCount(), profile.FieldCount())
	}
}

func TestDiscoverDropsZeroMatchCandidates(t *testing.T) {
	provider := &stubProvider{response: `{
  "price": [{"selector": ".does-not-exist-anywhere"}]
}`}
	profiles := store.NewMemoryStore()
	e := NewEngine(testSite(), provider, profiles, Config{}, nil)

	profile, err := e.Discover(context.Background(), "https://shop.example.com")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if rules := profile.RulesFor(types.FieldPrice); rules != nil {
		t.Errorf("zero-match candidate persisted: %+v", rules)
	}
}

func TestDiscoverPenalizesSingleSampleSelectors(t *testing.T) {
	// .only-on-first exists on one of three product samples with a value;
	// sqrt(1/3) scaling must push it below threshold.
	provider := &stubProvider{response: `{
  "stockStatus": [{"selector": ".only-on-first"}]
}`}
	profiles := store.NewMemoryStore()
	e := NewEngine(testSite(), provider, profiles, Config{}, nil)

	profile, err := e.Discover(context.Background(), "https://shop.example.com")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if rules := profile.RulesFor(types.FieldStockStatus); rules != nil {
		t.Errorf("single-sample selector accepted: %+v", rules)
	}
}

func TestDiscoverEmptyProfileIsValid(t *testing.T) {
	provider := &stubProvider{response: `{}`}
	profiles := store.NewMemoryStore()
	e := NewEngine(testSite(), provider, profiles, Config{}, nil)

	profile, err := e.Discover(context.Background(), "https://shop.example.com")
	if err != nil {
		t.Fatalf("empty proposal must not fail discovery: %v", err)
	}
	if !profile.IsEmpty() {
		t.Errorf("profile should be empty, got %d fields", profile.FieldCount())
	}
	if _, err := profiles.Get(context.Background(), "shop.example.com"); err != nil {
		t.Error("empty profile still gets persisted")
	}
}

func TestDiscoverNoSamples(t *testing.T) {
	provider := &stubProvider{response: `{}`}
	e := NewEngine(&mapFetcher{pages: map[string]string{}}, provider, store.NewMemoryStore(), Config{}, nil)

	if _, err := e.Discover(context.Background(), "https://down.example.com"); err == nil {
		t.Fatal("discovery succeeded with zero fetchable samples")
	}
}

func TestDiscoverLLMFailure(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("model unavailable")}
	e := NewEngine(testSite(), provider, store.NewMemoryStore(), Config{}, nil)

	if _, err := e.Discover(context.Background(), "https://shop.example.com"); err == nil {
		t.Fatal("discovery succeeded despite LLM failure")
	}
}

func TestProposeCandidatesDefensiveParsing(t *testing.T) {
	provider := &stubProvider{response: "Sure! Here are my suggestions:\n```json\n" + `{
  "price": [{"selector": ".a"}, {"selector": ""}, {"attr": "content"}],
  "title": "not an array",
  "features": [{"selector": ".b", "attr": "data-x"}]
}` + "\n```"}
	e := NewEngine(testSite(), provider, store.NewMemoryStore(), Config{}, nil)

	rep := mustSample(t, "https://shop.example.com/product/one", productHTML(1), types.PageTypeProduct)
	proposals, err := e.proposeCandidates(context.Background(), rep)
	if err != nil {
		t.Fatalf("proposeCandidates failed: %v", err)
	}
	if len(proposals[types.FieldPrice]) != 1 {
		t.Errorf("price candidates = %+v, empty selectors must be dropped", proposals[types.FieldPrice])
	}
	if _, ok := proposals[types.FieldTitle]; ok {
		t.Error("malformed field survived parsing")
	}
	if got := proposals[types.FieldFeatures]; len(got) != 1 || got[0].Attr != "data-x" {
		t.Errorf("features candidates = %+v", got)
	}
}

func TestPickRepresentative(t *testing.T) {
	blog := mustSample(t, "b", "<html></html>", types.PageTypeBlog)
	category := mustSample(t, "c", "<html></html>", types.PageTypeCategory)
	product := mustSample(t, "p", "<html></html>", types.PageTypeProduct)
	page := mustSample(t, "x", "<html></html>", types.PageTypePage)

	if got := pickRepresentative([]sample{page, category, blog, product}); got.url != "p" {
		t.Errorf("representative = %s, want product sample", got.url)
	}
	if got := pickRepresentative([]sample{page, category, blog}); got.url != "b" {
		t.Errorf("representative = %s, want blog sample", got.url)
	}
	if got := pickRepresentative([]sample{page, category}); got.url != "c" {
		t.Errorf("representative = %s, want category sample", got.url)
	}
	if got := pickRepresentative([]sample{page}); got.url != "x" {
		t.Errorf("representative = %s, want first sample", got.url)
	}
}

func TestAggregateScore(t *testing.T) {
	everywhere := mustSample(t, "a", `<div class="x">value</div>`, types.PageTypeProduct)
	alsoThere := mustSample(t, "b", `<p><span class="x">other</span></p>`, types.PageTypeProduct)
	missing := mustSample(t, "c", `<div class="y">nope</div>`, types.PageTypeProduct)

	full := aggregateScore(types.FieldPrice, candidate{Selector: ".x"}, []sample{everywhere, alsoThere})
	// Present once with a value on a single-value field: 2 + 1 + 1 on both samples.
	if math.Abs(full-4.0) > 1e-9 {
		t.Errorf("full score = %f, want 4.0", full)
	}

	partial := aggregateScore(types.FieldPrice, candidate{Selector: ".x"}, []sample{everywhere, alsoThere, missing})
	want := (4.0 + 4.0 + 0.0) / 3.0 * math.Sqrt(2.0/3.0)
	if math.Abs(partial-want) > 1e-9 {
		t.Errorf("partial score = %f, want %f", partial, want)
	}
	if partial >= full {
		t.Error("missing sample must reduce the aggregate")
	}

	if got := aggregateScore(types.FieldPrice, candidate{Selector: ".zzz"}, []sample{everywhere}); got != 0 {
		t.Errorf("zero-match score = %f, want 0", got)
	}
}

func TestSampleScoreMultiplicity(t *testing.T) {
	multi := mustSample(t, "m", `<ul><li class="f">a</li><li class="f">b</li></ul>`, types.PageTypeProduct)
	single := mustSample(t, "s", `<li class="f">a</li>`, types.PageTypeProduct)

	// features expects multiple values.
	if got := sampleScore(types.FieldFeatures, candidate{Selector: ".f"}, multi); got != 4.0 {
		t.Errorf("multi-match on multi-field = %f, want 4.0", got)
	}
	if got := sampleScore(types.FieldFeatures, candidate{Selector: ".f"}, single); got != 3.0 {
		t.Errorf("single-match on multi-field = %f, want 3.0 (no multiplicity bonus)", got)
	}
	// price expects a single value.
	if got := sampleScore(types.FieldPrice, candidate{Selector: ".f"}, multi); got != 3.0 {
		t.Errorf("multi-match on single-field = %f, want 3.0", got)
	}
}

func TestRelevantSamplesFallsBackToAll(t *testing.T) {
	blogOnly := []sample{
		mustSample(t, "b1", "<html></html>", types.PageTypeBlog),
		mustSample(t, "b2", "<html></html>", types.PageTypeBlog),
	}
	// price is product-restricted but no product sample exists.
	if got := relevantSamples(types.FieldPrice, blogOnly); len(got) != 2 {
		t.Errorf("fallback failed, got %d samples", len(got))
	}
	if got := relevantSamples(types.FieldPublishDate, blogOnly); len(got) != 2 {
		t.Errorf("restricted match failed, got %d samples", len(got))
	}
	if got := relevantSamples(types.FieldTitle, blogOnly); len(got) != 2 {
		t.Errorf("unrestricted field must see all samples, got %d", len(got))
	}
}

func TestPromptContainsAllFieldsAndTruncatedHTML(t *testing.T) {
	e := NewEngine(nil, nil, nil, Config{PromptHTMLLimit: 50}, nil)
	rep := mustSample(t, "https://x.example.com/p/1", strings.Repeat("<div>x</div>", 100), types.PageTypeProduct)

	prompt := e.buildPrompt(rep)
	for _, field := range types.ValidFieldKeys() {
		if !strings.Contains(prompt, string(field)) {
			t.Errorf("prompt missing field %s", field)
		}
	}
	if strings.Count(prompt, "<div>x</div>") > 5 {
		t.Error("HTML not truncated for the prompt")
	}
}
