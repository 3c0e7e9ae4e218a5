// internal/crawler/crawler.go

// Package crawler walks a site's sitemap and runs each page through the
// processing pipeline in bounded concurrent batches. The per-page pipeline
// is strictly sequential; concurrency exists only across pages.
package crawler

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Burrhanburak/scrape-site/internal/fetch"
	"github.com/Burrhanburak/scrape-site/internal/utils"
	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// Fetcher fetches one URL. Satisfied by *fetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// Processor runs the per-page pipeline. It never returns an error; total
// failure comes back as an error-typed record.
type Processor interface {
	Process(ctx context.Context, url string) *types.PageRecord
}

// Config bounds a crawl
type Config struct {
	MaxURLs      int           `yaml:"max_urls" json:"max_urls"`
	BatchSize    int           `yaml:"batch_size" json:"batch_size"`
	BatchDelay   time.Duration `yaml:"batch_delay" json:"batch_delay"`
	RespectRules bool          `yaml:"respect_robots" json:"respect_robots"`
}

// DefaultConfig returns the settings used when the crawler section is absent
func DefaultConfig() Config {
	return Config{
		MaxURLs:      200,
		BatchSize:    5,
		BatchDelay:   2 * time.Second,
		RespectRules: true,
	}
}

// Progress is emitted after each finished page
type Progress struct {
	JobID     string            `json:"jobId"`
	URL       string            `json:"url"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Record    *types.PageRecord `json:"record,omitempty"`
}

// Crawler orchestrates a full-site crawl
type Crawler struct {
	fetcher   Fetcher
	processor Processor
	config    Config
	logger    utils.Logger
}

// NewCrawler creates a crawler. Zero-value config fields fall back to
// DefaultConfig values.
func NewCrawler(fetcher Fetcher, processor Processor, cfg Config, logger utils.Logger) *Crawler {
	def := DefaultConfig()
	if cfg.MaxURLs <= 0 {
		cfg.MaxURLs = def.MaxURLs
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = def.BatchDelay
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Crawler{fetcher: fetcher, processor: processor, config: cfg, logger: logger}
}

// NewJobID returns an identifier for one crawl run
func NewJobID() string {
	return uuid.NewString()
}

// CrawlSite discovers a site's URLs and processes them all. Records arrive
// in URL-discovery order regardless of batch scheduling. The optional
// progress callback is invoked after each page, from a single goroutine.
func (c *Crawler) CrawlSite(ctx context.Context, siteURL string, onProgress func(Progress)) ([]*types.PageRecord, error) {
	return c.CrawlSiteWithJob(ctx, NewJobID(), siteURL, onProgress)
}

// CrawlSiteWithJob is CrawlSite under a caller-chosen job identifier, so
// API-managed jobs see their own id in progress events.
func (c *Crawler) CrawlSiteWithJob(ctx context.Context, jobID, siteURL string, onProgress func(Progress)) ([]*types.PageRecord, error) {
	urls := DiscoverURLs(ctx, c.fetcher, siteURL, c.config.MaxURLs)
	if c.config.RespectRules {
		urls = c.filterDisallowed(ctx, siteURL, urls)
	}
	c.logger.WithFields(map[string]interface{}{
		"job":  jobID,
		"site": siteURL,
		"urls": len(urls),
	}).Info("crawl started")

	records := make([]*types.PageRecord, len(urls))
	completed := 0

	for start := 0; start < len(urls); start += c.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return records[:completed], err
		}
		end := start + c.config.BatchSize
		if end > len(urls) {
			end = len(urls)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				records[i] = c.processor.Process(gctx, urls[i])
				return nil
			})
		}
		// Workers never return errors; Wait only propagates ctx failure.
		_ = g.Wait()

		for i := start; i < end; i++ {
			completed++
			if onProgress != nil {
				onProgress(Progress{
					JobID:     jobID,
					URL:       urls[i],
					Completed: completed,
					Total:     len(urls),
					Record:    records[i],
				})
			}
		}

		if end < len(urls) && c.config.BatchDelay > 0 {
			select {
			case <-time.After(c.config.BatchDelay):
			case <-ctx.Done():
				return records[:completed], ctx.Err()
			}
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"job":   jobID,
		"pages": completed,
	}).Info("crawl finished")
	return records, nil
}

func (c *Crawler) filterDisallowed(ctx context.Context, siteURL string, urls []string) []string {
	robots := FetchRobots(ctx, c.fetcher, siteURL)

	kept := urls[:0]
	for _, u := range urls {
		if robots.Allowed(pathOf(u)) {
			kept = append(kept, u)
		} else {
			c.logger.WithField("url", u).Debug("skipped by robots.txt")
		}
	}
	return kept
}

func pathOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Path == "" {
		return "/"
	}
	return parsed.Path
}
