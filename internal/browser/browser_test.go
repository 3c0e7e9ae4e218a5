// internal/browser/browser_test.go
package browser

import (
	"strings"
	"testing"
	"time"
)

// Chrome is not available in CI; these tests cover configuration handling.
// Render itself is exercised through the pipeline's Renderer interface.

func TestNewRendererAppliesDefaults(t *testing.T) {
	r, err := NewRenderer(Config{}, nil)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	defer r.Close()

	if r.config.MaxTabs != 4 {
		t.Errorf("MaxTabs = %d, want 4", r.config.MaxTabs)
	}
	if r.config.NavigateTimeout != 45*time.Second {
		t.Errorf("NavigateTimeout = %v, want 45s", r.config.NavigateTimeout)
	}
	if r.config.ViewportWidth <= 0 || r.config.ViewportHeight <= 0 {
		t.Error("viewport defaults not applied")
	}
	if r.tabs == nil {
		t.Fatal("tab semaphore not initialized")
	}
}

func TestNewRendererKeepsExplicitConfig(t *testing.T) {
	cfg := Config{
		MaxTabs:         2,
		NavigateTimeout: 10 * time.Second,
		WaitForSelector: ".price",
		ViewportWidth:   800,
		ViewportHeight:  600,
	}
	r, err := NewRenderer(cfg, nil)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	defer r.Close()

	if r.config.MaxTabs != 2 || r.config.WaitForSelector != ".price" {
		t.Errorf("explicit config overridden: %+v", r.config)
	}
}

func TestBlockedURLPatternsCoverStaticAssets(t *testing.T) {
	joined := strings.Join(blockedURLPatterns, " ")
	for _, ext := range []string{".png", ".woff2", ".mp4"} {
		if !strings.Contains(joined, ext) {
			t.Errorf("blocked patterns missing %s", ext)
		}
	}
	for _, ext := range []string{".js", ".css", ".json"} {
		if strings.Contains(joined, ext) {
			t.Errorf("blocked patterns must not block %s, rendering depends on it", ext)
		}
	}
}
