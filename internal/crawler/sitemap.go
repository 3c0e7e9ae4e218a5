// internal/crawler/sitemap.go
package crawler

import (
	"context"
	"encoding/xml"
	"net/url"
	"strings"
)

// maxSitemapDepth bounds sitemap-index recursion. Cyclic or adversarially
// deep indexes stop here rather than looping.
const maxSitemapDepth = 3

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

type sitemapIndex struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapEntry struct {
	Loc string `xml:"loc"`
}

// CollectSitemapURLs fetches a sitemap (or sitemap index) and returns every
// page URL it references, recursing into child sitemaps up to
// maxSitemapDepth. Fetch and parse failures of individual sitemaps are
// skipped; already-visited sitemap URLs are never refetched.
func CollectSitemapURLs(ctx context.Context, fetcher Fetcher, sitemapURL string, limit int) []string {
	seen := make(map[string]bool)
	pages := make(map[string]bool)
	var ordered []string

	var walk func(loc string, depth int)
	walk = func(loc string, depth int) {
		if depth > maxSitemapDepth || seen[loc] || (limit > 0 && len(ordered) >= limit) {
			return
		}
		seen[loc] = true

		result, err := fetcher.Fetch(ctx, loc)
		if err != nil {
			return
		}

		var index sitemapIndex
		if xml.Unmarshal([]byte(result.Body), &index) == nil && len(index.Sitemaps) > 0 {
			for _, child := range index.Sitemaps {
				if child.Loc = strings.TrimSpace(child.Loc); child.Loc != "" {
					walk(child.Loc, depth+1)
				}
			}
			return
		}

		var set sitemapURLSet
		if xml.Unmarshal([]byte(result.Body), &set) != nil {
			return
		}
		for _, entry := range set.URLs {
			loc := strings.TrimSpace(entry.Loc)
			if loc == "" || pages[loc] || !validPageURL(loc) {
				continue
			}
			if limit > 0 && len(ordered) >= limit {
				return
			}
			pages[loc] = true
			ordered = append(ordered, loc)
		}
	}

	walk(sitemapURL, 0)
	return ordered
}

func validPageURL(raw string) bool {
	parsed, err := url.Parse(raw)
	return err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// DiscoverURLs finds a site's page URLs: robots.txt sitemap references
// first, the conventional /sitemap.xml as fallback. The site URL itself is
// always first in the result.
func DiscoverURLs(ctx context.Context, fetcher Fetcher, siteURL string, limit int) []string {
	urls := []string{siteURL}
	seen := map[string]bool{siteURL: true}

	robots := FetchRobots(ctx, fetcher, siteURL)
	sitemaps := robots.Sitemaps
	if len(sitemaps) == 0 {
		if parsed, err := url.Parse(siteURL); err == nil && parsed.Host != "" {
			sitemaps = []string{parsed.Scheme + "://" + parsed.Host + "/sitemap.xml"}
		}
	}

	for _, sm := range sitemaps {
		remaining := 0
		if limit > 0 {
			remaining = limit - len(urls)
			if remaining <= 0 {
				break
			}
		}
		for _, pageURL := range CollectSitemapURLs(ctx, fetcher, sm, remaining) {
			if !seen[pageURL] {
				seen[pageURL] = true
				urls = append(urls, pageURL)
			}
		}
	}
	return urls
}
