// internal/fetch/client.go

// Package fetch provides the light HTTP fetch strategy: a rate-limited,
// retrying client with rotating browser-like request identity. Rendering
// falls to internal/browser; this package never executes JavaScript.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/time/rate"

	scraperrors "github.com/Burrhanburak/scrape-site/internal/errors"
	"github.com/Burrhanburak/scrape-site/internal/utils"
)

// maxBodySize caps how much of a response body is read. Pages past this are
// truncated, not rejected.
const maxBodySize = 10 << 20

// Config defines client behavior
type Config struct {
	Timeout       time.Duration     `yaml:"timeout" json:"timeout"`
	RetryAttempts int               `yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay    time.Duration     `yaml:"retry_delay" json:"retry_delay"`
	MaxRetryDelay time.Duration     `yaml:"max_retry_delay" json:"max_retry_delay"`
	RateLimit     float64           `yaml:"rate_limit" json:"rate_limit"` // requests per second
	RateBurst     int               `yaml:"rate_burst" json:"rate_burst"`
	UserAgents    []string          `yaml:"user_agents" json:"user_agents"`
	Headers       map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Proxies       []string          `yaml:"proxies,omitempty" json:"proxies,omitempty"`
}

// DefaultConfig returns the settings used when a section is absent
func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
		MaxRetryDelay: 30 * time.Second,
		RateLimit:     1.0,
		RateBurst:     5,
	}
}

// Result is a completed light fetch
type Result struct {
	URL        string
	FinalURL   string // after redirects
	StatusCode int
	Body       string
	Duration   time.Duration
}

// Client fetches pages over plain HTTP with UA rotation, rate limiting and
// retry on retryable status codes.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      retrypolicy.RetryPolicy[*http.Response]

	userAgents []string
	uaIndex    int
	uaMu       sync.Mutex

	headers map[string]string
	logger  utils.Logger
}

// NewClient creates a fetch client. Zero-value config fields fall back to
// DefaultConfig values.
func NewClient(cfg Config, logger utils.Logger) (*Client, error) {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = def.RetryAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = def.MaxRetryDelay
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = def.RateBurst
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents()
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if len(cfg.Proxies) > 0 {
		rotator, err := newProxyRotator(cfg.Proxies)
		if err != nil {
			return nil, err
		}
		transport.Proxy = rotator.proxyFunc
	}

	//nolint:bodyclose // generic type parameter, not a live response
	retry := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(cfg.RetryDelay, cfg.MaxRetryDelay).
		WithMaxRetries(cfg.RetryAttempts).
		WithJitterFactor(0.1).
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && retryableStatus(resp.StatusCode)
		}).
		Build()

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		retry:      retry,
		userAgents: cfg.UserAgents,
		headers:    cfg.Headers,
		logger:     logger,
	}, nil
}

// Fetch performs a rate-limited GET and returns the page body. All failures
// come back as transport errors; callers decide whether to escalate.
func (c *Client) Fetch(ctx context.Context, targetURL string) (*Result, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, scraperrors.Newf(scraperrors.KindTransportFailure, "fetch", targetURL,
			"invalid target URL")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, scraperrors.New(scraperrors.KindTransportFailure, "fetch", targetURL, err)
	}

	start := time.Now()
	resp, err := failsafe.With(c.retry).WithContext(ctx).Get(func() (*http.Response, error) {
		return c.doRequest(ctx, targetURL)
	})
	if err != nil {
		return nil, scraperrors.New(scraperrors.KindTransportFailure, "fetch", targetURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, scraperrors.Newf(scraperrors.KindTransportFailure, "fetch", targetURL,
			"HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !utils.IsTextContent(ct) {
		return nil, scraperrors.Newf(scraperrors.KindTransportFailure, "fetch", targetURL,
			"non-text content type %q", utils.ParseContentType(ct))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, scraperrors.New(scraperrors.KindTransportFailure, "fetch", targetURL, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, scraperrors.Newf(scraperrors.KindTransportFailure, "fetch", targetURL,
			"empty response body")
	}

	finalURL := targetURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	result := &Result{
		URL:        targetURL,
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Duration:   time.Since(start),
	}
	c.logger.WithFields(map[string]interface{}{
		"url":      targetURL,
		"status":   resp.StatusCode,
		"bytes":    len(result.Body),
		"duration": result.Duration.String(),
	}).Debug("page fetched")
	return result, nil
}

func (c *Client) doRequest(ctx context.Context, targetURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,tr;q=0.8")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	// Accept-Encoding is left to the transport so gzip is decoded for us.

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if retryableStatus(resp.StatusCode) {
		// The retry policy inspects the response; the body of a discarded
		// attempt must still be closed here.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		resp.Body.Close()
	}
	return resp, nil
}

func (c *Client) nextUserAgent() string {
	c.uaMu.Lock()
	defer c.uaMu.Unlock()
	ua := c.userAgents[c.uaIndex]
	c.uaIndex = (c.uaIndex + 1) % len(c.userAgents)
	return ua
}

// retryableStatus reports whether a status warrants another attempt
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	// Cloudflare's unofficial 52x range.
	return code >= 520 && code <= 524
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	}
}
