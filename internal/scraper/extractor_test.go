// internal/scraper/extractor_test.go
package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/Burrhanburak/scrape-site/pkg/types"
)

func mustParse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse test HTML: %v", err)
	}
	return doc
}

func TestExtractSingle(t *testing.T) {
	html := `<html><body>
		<h1>  Main   Title </h1>
		<div class="empty"></div>
		<meta name="description" content="A description">
		<span class="price" data-value="19.99">19,99 TL</span>
	</body></html>`
	doc := mustParse(t, html)

	tests := []struct {
		name     string
		rules    []types.SelectorRule
		expected string
	}{
		{
			name:     "text extraction sanitizes whitespace",
			rules:    []types.SelectorRule{{Selector: "h1"}},
			expected: "Main Title",
		},
		{
			name:     "attribute extraction",
			rules:    []types.SelectorRule{{Selector: "span.price", Attribute: "data-value"}},
			expected: "19.99",
		},
		{
			name: "first non-empty rule wins",
			rules: []types.SelectorRule{
				{Selector: ".empty"},
				{Selector: "h1"},
			},
			expected: "Main Title",
		},
		{
			name: "rules tried in order",
			rules: []types.SelectorRule{
				{Selector: "span.price"},
				{Selector: "h1"},
			},
			expected: "19,99 TL",
		},
		{
			name:     "no match yields empty",
			rules:    []types.SelectorRule{{Selector: ".missing"}},
			expected: "",
		},
		{
			name:     "missing attribute yields empty",
			rules:    []types.SelectorRule{{Selector: "h1", Attribute: "data-nothing"}},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSingle(doc, tt.rules); got != tt.expected {
				t.Errorf("ExtractSingle() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtractAllTabularRows(t *testing.T) {
	html := `<html><body>
		<table class="specs">
			<tr><th>Color</th><td>Red</td></tr>
			<tr><th>Size</th><td>42</td></tr>
			<tr><td>Leather upper</td></tr>
		</table>
	</body></html>`
	doc := mustParse(t, html)

	got := ExtractAll(doc, [][]types.SelectorRule{
		{{Selector: ".specs tr", IsTabularRow: true}},
	})

	want := []string{"Color: Red", "Size: 42", "Leather upper"}
	if len(got) != len(want) {
		t.Fatalf("ExtractAll() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractAllGroupsAreAlternatives(t *testing.T) {
	html := `<html><body>
		<ul class="features"><li>Waterproof</li><li>Lightweight</li></ul>
		<ul class="other"><li>Should not appear</li></ul>
	</body></html>`
	doc := mustParse(t, html)

	got := ExtractAll(doc, [][]types.SelectorRule{
		{{Selector: ".missing li"}},
		{{Selector: ".features li"}},
		{{Selector: ".other li"}},
	})

	if len(got) != 2 {
		t.Fatalf("expected 2 results from the first yielding group, got %v", got)
	}
	for _, v := range got {
		if v == "Should not appear" {
			t.Error("later rule group leaked into results; groups must be alternatives, not unions")
		}
	}
}

func TestExtractAllNoResults(t *testing.T) {
	doc := mustParse(t, `<html><body><p>nothing here</p></body></html>`)
	if got := ExtractAll(doc, [][]types.SelectorRule{{{Selector: ".missing"}}}); got != nil {
		t.Errorf("expected nil for no matches, got %v", got)
	}
}

func TestExtractImages(t *testing.T) {
	html := `<html><body>
		<div class="gallery">
			<img src="/images/shoe-front.jpg" alt="Front view" width="800" height="600">
			<img data-src="/images/shoe-side.png" alt="">
			<img data-srcset="/images/shoe-top.webp 1x, /images/shoe-top-big.webp 2x">
			<img src="/i.gif">
			<img src="/assets/icon.css">
		</div>
		<img src="/images/unrelated.jpg" alt="outside gallery">
	</body></html>`
	doc := mustParse(t, html)
	base := "https://shop.example.com/p/shoe"

	images := ExtractImages(doc, base, []types.SelectorRule{{Selector: ".gallery img"}}, "img[src]")

	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %d: %+v", len(images), images)
	}
	if images[0].Src != "https://shop.example.com/images/shoe-front.jpg" {
		t.Errorf("unexpected first image src %q", images[0].Src)
	}
	if !images[0].HasAlt || images[0].Alt != "Front view" {
		t.Errorf("alt metadata not carried: %+v", images[0])
	}
	if images[1].Src != "https://shop.example.com/images/shoe-side.png" {
		t.Errorf("lazy data-src not resolved: %q", images[1].Src)
	}
	if images[2].Src != "https://shop.example.com/images/shoe-top.webp" {
		t.Errorf("first srcset URL not taken: %q", images[2].Src)
	}
}

func TestExtractImagesDeduplicatesByResolvedURL(t *testing.T) {
	html := `<html><body>
		<img class="a" src="//cdn.example.com/img/a.jpg">
		<img class="b" src="https://cdn.example.com/img/a.jpg">
	</body></html>`
	doc := mustParse(t, html)

	images := ExtractImages(doc, "https://shop.example.com/", []types.SelectorRule{
		{Selector: "img.a"},
		{Selector: "img.b"},
	}, "")

	if len(images) != 1 {
		t.Fatalf("expected protocol-relative and absolute forms to deduplicate, got %d images", len(images))
	}
	if images[0].Src != "https://cdn.example.com/img/a.jpg" {
		t.Errorf("unexpected resolved src %q", images[0].Src)
	}
}

func TestExtractImagesFallbackOnlyWhenTargetedRulesEmpty(t *testing.T) {
	html := `<html><body>
		<img src="/images/page-banner.jpeg">
	</body></html>`
	doc := mustParse(t, html)

	images := ExtractImages(doc, "https://example.com/", []types.SelectorRule{{Selector: ".gallery img"}}, "img[src]")
	if len(images) != 1 {
		t.Fatalf("broad fallback should have found 1 image, got %d", len(images))
	}

	// With no fallback selector the targeted miss stays a miss.
	images = ExtractImages(doc, "https://example.com/", []types.SelectorRule{{Selector: ".gallery img"}}, "")
	if len(images) != 0 {
		t.Errorf("expected no images without fallback, got %d", len(images))
	}
}

func TestLayeredRulesSiteFirst(t *testing.T) {
	profile := types.NewSiteSelectorProfile("shop.example.com")
	profile.Rules[types.FieldPrice] = []types.SelectorRule{{Selector: ".site-price"}}

	rules := LayeredRules(profile, types.FieldPrice)
	if len(rules) <= len(DefaultRules(types.FieldPrice)) {
		t.Fatal("layered rules should contain site rules plus defaults")
	}
	if rules[0].Selector != ".site-price" {
		t.Errorf("site-specific rule must come first, got %q", rules[0].Selector)
	}

	// No profile falls back entirely to defaults.
	def := LayeredRules(nil, types.FieldPrice)
	if len(def) != len(DefaultRules(types.FieldPrice)) {
		t.Errorf("nil profile should yield defaults only")
	}
}
