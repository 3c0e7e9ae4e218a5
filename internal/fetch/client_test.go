// internal/fetch/client_test.go
package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	scraperrors "github.com/Burrhanburak/scrape-site/internal/errors"
)

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1000 // keep tests fast
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 1000
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	if cfg.MaxRetryDelay == 0 {
		cfg.MaxRetryDelay = 5 * time.Millisecond
	}
	client, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><h1>Hello</h1></body></html>"))
	}))
	defer server.Close()

	client := newTestClient(t, Config{})
	result, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", result.StatusCode)
	}
	if !strings.Contains(result.Body, "<h1>Hello</h1>") {
		t.Errorf("body missing expected content: %q", result.Body)
	}
	if result.Duration <= 0 {
		t.Error("duration not recorded")
	}
}

func TestFetchRetriesRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>recovered</html>"))
	}))
	defer server.Close()

	client := newTestClient(t, Config{RetryAttempts: 3})
	result, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed after retries: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d requests, want 3", got)
	}
	if !strings.Contains(result.Body, "recovered") {
		t.Errorf("unexpected body: %q", result.Body)
	}
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestClient(t, Config{RetryAttempts: 3})
	_, err := client.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Fetch succeeded on a 404")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d requests, want 1 (404 is not retryable)", got)
	}
	kind, ok := scraperrors.KindOf(err)
	if !ok || kind != scraperrors.KindTransportFailure {
		t.Errorf("error kind = %v (ok=%v), want transport_failure", kind, ok)
	}
}

func TestFetchRejectsEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	}))
	defer server.Close()

	client := newTestClient(t, Config{})
	_, err := client.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Fetch accepted an empty body")
	}
	var se *scraperrors.ScrapeError
	if !errors.As(err, &se) || se.Kind != scraperrors.KindTransportFailure {
		t.Errorf("err = %v, want transport_failure ScrapeError", err)
	}
}

func TestFetchRejectsNonTextContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.7"))
	}))
	defer server.Close()

	client := newTestClient(t, Config{})
	if _, err := client.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Fetch accepted a PDF response")
	}
}

func TestFetchRejectsInvalidURL(t *testing.T) {
	client := newTestClient(t, Config{})
	for _, target := range []string{"ftp://example.com/file", "not a url", "javascript:alert(1)"} {
		if _, err := client.Fetch(context.Background(), target); err == nil {
			t.Errorf("Fetch accepted %q", target)
		}
	}
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	client := newTestClient(t, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := client.Fetch(ctx, server.URL); err == nil {
		t.Fatal("Fetch ignored context cancellation")
	}
	if time.Since(start) > time.Second {
		t.Error("Fetch did not return promptly on cancellation")
	}
}

func TestUserAgentRotation(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	client := newTestClient(t, Config{UserAgents: []string{"agent-a", "agent-b"}})
	for i := 0; i < 3; i++ {
		if _, err := client.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
	}
	want := []string{"agent-a", "agent-b", "agent-a"}
	for i, ua := range want {
		if seen[i] != ua {
			t.Errorf("request %d used UA %q, want %q", i, seen[i], ua)
		}
	}
}

func TestBrowserlikeHeaders(t *testing.T) {
	var accept, dnt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		dnt = r.Header.Get("DNT")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	client := newTestClient(t, Config{Headers: map[string]string{"X-Custom": "yes"}})
	if _, err := client.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !strings.Contains(accept, "text/html") {
		t.Errorf("Accept header = %q", accept)
	}
	if dnt != "1" {
		t.Errorf("DNT header = %q, want 1", dnt)
	}
}

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{200, false},
		{301, false},
		{404, false},
		{403, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{520, true},
		{524, true},
		{525, false},
	}
	for _, tt := range tests {
		if got := retryableStatus(tt.code); got != tt.want {
			t.Errorf("retryableStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestProxyRotator(t *testing.T) {
	rotator, err := newProxyRotator([]string{"http://proxy-a:8080", "http://proxy-b:8080"})
	if err != nil {
		t.Fatalf("newProxyRotator failed: %v", err)
	}
	hosts := make([]string, 4)
	for i := range hosts {
		u, err := rotator.proxyFunc(nil)
		if err != nil {
			t.Fatalf("proxyFunc failed: %v", err)
		}
		hosts[i] = u.Host
	}
	want := []string{"proxy-a:8080", "proxy-b:8080", "proxy-a:8080", "proxy-b:8080"}
	for i := range want {
		if hosts[i] != want[i] {
			t.Errorf("proxy %d = %q, want %q", i, hosts[i], want[i])
		}
	}

	if _, err := newProxyRotator([]string{"::bad::"}); err == nil {
		t.Error("invalid proxy accepted")
	}
	if _, err := newProxyRotator(nil); err == nil {
		t.Error("empty proxy list accepted")
	}
}
