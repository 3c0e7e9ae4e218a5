// internal/scraper/maintext_test.go
package scraper

import (
	"strings"
	"testing"
)

func TestExtractMainTextPrefersContentContainer(t *testing.T) {
	html := `<html><body>
		<nav>Navigation noise</nav>
		<main><p>This is the actual article body with enough words to matter.</p></main>
		<footer>Footer noise</footer>
	</body></html>`
	doc := mustParse(t, html)

	text := ExtractMainText(doc, DefaultAssemblerConfig())

	if !strings.Contains(text, "actual article body") {
		t.Errorf("main container text missing: %q", text)
	}
	if strings.Contains(text, "Navigation noise") || strings.Contains(text, "Footer noise") {
		t.Errorf("denylisted regions leaked into main text: %q", text)
	}
}

func TestExtractMainTextRemovesScriptsAndHidden(t *testing.T) {
	html := `<html><body>
		<script>var x = "script text";</script>
		<div style="display:none">hidden text</div>
		<div aria-hidden="true">aria hidden</div>
		<p>visible paragraph text that should survive the cleanup pass</p>
	</body></html>`
	doc := mustParse(t, html)

	text := ExtractMainText(doc, DefaultAssemblerConfig())

	for _, noise := range []string{"script text", "hidden text", "aria hidden"} {
		if strings.Contains(text, noise) {
			t.Errorf("%q leaked into main text", noise)
		}
	}
	if !strings.Contains(text, "visible paragraph text") {
		t.Errorf("visible content missing: %q", text)
	}
}

func TestExtractMainTextPrunesLinkDenseBlocks(t *testing.T) {
	// A short block stuffed with short links is a navigation fragment the
	// selector denylist missed.
	html := `<html><body><main>
		<div class="linkfarm"><a href="/a">One</a> <a href="/b">Two</a> <a href="/c">Three</a> <a href="/d">Four</a></div>
		<p>` + strings.Repeat("Real sentence content here. ", 10) + `</p>
	</main></body></html>`
	doc := mustParse(t, html)

	text := ExtractMainText(doc, DefaultAssemblerConfig())

	if strings.Contains(text, "One") || strings.Contains(text, "Four") {
		t.Errorf("link-dense block survived pruning: %q", text)
	}
	if !strings.Contains(text, "Real sentence content") {
		t.Errorf("real content missing: %q", text)
	}
}

func TestExtractMainTextKeepsLinkHeavyLongBlocks(t *testing.T) {
	// Long text with links is prose, not navigation; it must survive.
	long := strings.Repeat("meaningful words in a sentence ", 8)
	html := `<html><body><main>
		<p>` + long + `<a href="/a">x</a> <a href="/b">y</a> <a href="/c">z</a></p>
	</main></body></html>`
	doc := mustParse(t, html)

	text := ExtractMainText(doc, DefaultAssemblerConfig())
	if !strings.Contains(text, "meaningful words") {
		t.Errorf("long prose block wrongly pruned: %q", text)
	}
}

func TestExtractMainTextTruncates(t *testing.T) {
	cfg := DefaultAssemblerConfig()
	cfg.MaxMainTextLength = 50

	html := `<html><body><main><p>` + strings.Repeat("abcde ", 100) + `</p></main></body></html>`
	doc := mustParse(t, html)

	text := ExtractMainText(doc, cfg)
	if len([]rune(text)) > 50 {
		t.Errorf("text not truncated: %d runes", len([]rune(text)))
	}
}

func TestExtractMainTextFallsBackToBody(t *testing.T) {
	html := `<html><body><span>just a bare span of page text</span></body></html>`
	doc := mustParse(t, html)

	text := ExtractMainText(doc, DefaultAssemblerConfig())
	if !strings.Contains(text, "bare span of page text") {
		t.Errorf("body fallback missing: %q", text)
	}
}
