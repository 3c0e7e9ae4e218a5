// internal/scraper/parser_test.go
package scraper

import (
	"testing"

	"github.com/Burrhanburak/scrape-site/pkg/types"
)

func TestParseDocument(t *testing.T) {
	if _, err := ParseDocument(""); err == nil {
		t.Error("expected error for empty HTML")
	}
	if _, err := ParseDocument("   \n\t "); err == nil {
		t.Error("expected error for whitespace-only HTML")
	}
	if _, err := ParseDocument("<html><body><p>ok</p></body></html>"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExtractHeadings(t *testing.T) {
	html := `<html><body>
		<h1>Top</h1>
		<h2>Section A</h2>
		<h2>Section B</h2>
		<h3>   </h3>
		<h6>Deep</h6>
	</body></html>`
	doc := mustParse(t, html)

	grouped, flat := ExtractHeadings(doc)

	if len(grouped["h2"]) != 2 {
		t.Errorf("expected 2 h2 headings, got %v", grouped["h2"])
	}
	if len(grouped["h3"]) != 0 {
		t.Error("empty headings must be skipped")
	}
	if len(flat) != 4 {
		t.Fatalf("expected 4 flat headings, got %d", len(flat))
	}
	if flat[0].Level != 1 || flat[0].Text != "Top" {
		t.Errorf("flat order wrong: %+v", flat[0])
	}
	if flat[3].Level != 6 {
		t.Errorf("expected h6 last, got %+v", flat[3])
	}
}

func TestExtractLinks(t *testing.T) {
	html := `<html><body>
		<a href="/about">About</a>
		<a href="https://shop.example.com/contact">Contact</a>
		<a href="https://other.example.org/page">Elsewhere</a>
		<a href="mailto:info@example.com">Mail</a>
		<a href="/about">Duplicate</a>
	</body></html>`
	doc := mustParse(t, html)

	internal, external := ExtractLinks(doc, "https://shop.example.com/p/shoe")

	if len(internal) != 2 {
		t.Fatalf("expected 2 internal links, got %v", internal)
	}
	if internal[0].Href != "https://shop.example.com/about" {
		t.Errorf("relative link not resolved: %q", internal[0].Href)
	}
	if len(external) != 1 {
		t.Fatalf("expected 1 external link (mailto skipped), got %v", external)
	}
	if external[0].Href != "https://other.example.org/page" {
		t.Errorf("external link = %q", external[0].Href)
	}
}

func TestExtractScopedLinks(t *testing.T) {
	html := `<html><body>
		<nav><a href="/home">Home</a><a href="/shop">Shop</a></nav>
		<div><a href="/outside">Outside</a></div>
	</body></html>`
	doc := mustParse(t, html)

	links := ExtractScopedLinks(doc, "https://example.com/", DefaultRules(types.FieldNavigationContainer))
	if len(links) != 2 {
		t.Fatalf("expected 2 nav links, got %v", links)
	}

	if links = ExtractScopedLinks(doc, "https://example.com/", DefaultRules(types.FieldFooterContainer)); links != nil {
		t.Errorf("no footer container, expected nil, got %v", links)
	}
}

func TestExtractBreadcrumbs(t *testing.T) {
	html := `<html><body>
		<ul class="breadcrumb">
			<li><a href="/">Anasayfa</a></li>
			<li><a href="/c/electronics">Electronics</a></li>
			<li><a href="/c/electronics">Electronics</a></li>
			<li>Phones</li>
		</ul>
	</body></html>`
	doc := mustParse(t, html)

	crumbs := ExtractBreadcrumbs(doc, "https://example.com/p/phone", DefaultRules(types.FieldBreadcrumbContainer))

	if len(crumbs) != 3 {
		t.Fatalf("expected 3 crumbs after dedup, got %+v", crumbs)
	}
	if crumbs[0].Text != "Anasayfa" || crumbs[0].Position != 1 {
		t.Errorf("recognized home label must stay first: %+v", crumbs[0])
	}
	if crumbs[1].Href != "https://example.com/c/electronics" {
		t.Errorf("crumb href not resolved: %q", crumbs[1].Href)
	}
	if crumbs[2].Text != "Phones" || crumbs[2].Position != 3 {
		t.Errorf("positions must ascend: %+v", crumbs[2])
	}
}

func TestExtractBreadcrumbsSynthesizesHome(t *testing.T) {
	html := `<html><body>
		<ul class="breadcrumbs">
			<li>Electronics</li>
			<li>Phones</li>
		</ul>
	</body></html>`
	doc := mustParse(t, html)

	crumbs := ExtractBreadcrumbs(doc, "https://example.com/p/phone", DefaultRules(types.FieldBreadcrumbContainer))

	if len(crumbs) != 3 {
		t.Fatalf("expected synthesized home entry, got %+v", crumbs)
	}
	if crumbs[0].Text != "Home" || crumbs[0].Href != "https://example.com/" {
		t.Errorf("home entry = %+v", crumbs[0])
	}
}

func TestIsHomeLabel(t *testing.T) {
	for _, label := range []string{"Home", "ANASAYFA", " ana sayfa "} {
		if !IsHomeLabel(label) {
			t.Errorf("IsHomeLabel(%q) = false", label)
		}
	}
	if IsHomeLabel("Electronics") {
		t.Error("IsHomeLabel(Electronics) = true")
	}
}
