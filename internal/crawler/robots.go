// internal/crawler/robots.go
package crawler

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Robots is the parsed subset of robots.txt the crawler acts on
type Robots struct {
	Sitemaps   []string
	CrawlDelay time.Duration

	disallow []string
	allow    []string
}

// ParseRobots extracts sitemap references and the wildcard agent's rules.
// Per-agent sections other than "*" are ignored; the crawler identifies as
// a generic browser UA and honors the most permissive reading it is given.
func ParseRobots(data string) *Robots {
	robots := &Robots{}
	applies := true

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		directive := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		switch directive {
		case "user-agent":
			applies = value == "*"
		case "sitemap":
			// Sitemap lines are global, not agent-scoped.
			if value != "" {
				robots.Sitemaps = append(robots.Sitemaps, value)
			}
		case "disallow":
			if applies && value != "" {
				robots.disallow = append(robots.disallow, value)
			}
		case "allow":
			if applies && value != "" {
				robots.allow = append(robots.allow, value)
			}
		case "crawl-delay":
			if applies {
				if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
					robots.CrawlDelay = time.Duration(secs * float64(time.Second))
				}
			}
		}
	}
	return robots
}

// Allowed reports whether a path may be crawled. Allow rules take
// precedence over disallow rules of equal or shorter prefix length.
func (r *Robots) Allowed(path string) bool {
	if path == "" {
		path = "/"
	}
	var matched string
	allowed := true
	for _, rule := range r.disallow {
		if strings.HasPrefix(path, rule) && len(rule) > len(matched) {
			matched = rule
			allowed = false
		}
	}
	for _, rule := range r.allow {
		if strings.HasPrefix(path, rule) && len(rule) >= len(matched) {
			matched = rule
			allowed = true
		}
	}
	return allowed
}

// FetchRobots loads and parses a site's robots.txt. A missing or
// unreachable file yields an empty permissive Robots, not an error.
func FetchRobots(ctx context.Context, fetcher Fetcher, siteURL string) *Robots {
	parsed, err := url.Parse(siteURL)
	if err != nil || parsed.Host == "" {
		return &Robots{}
	}
	robotsURL := parsed.Scheme + "://" + parsed.Host + "/robots.txt"
	result, err := fetcher.Fetch(ctx, robotsURL)
	if err != nil {
		return &Robots{}
	}
	return ParseRobots(result.Body)
}
