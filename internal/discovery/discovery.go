// internal/discovery/discovery.go

// Package discovery learns site-specific selector profiles. One batched LLM
// call proposes candidate selectors for every target field; each candidate
// is then scored empirically against sampled pages, and only candidates that
// generalize across samples are persisted. The model generates guesses, the
// DOM decides.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/Burrhanburak/scrape-site/internal/crawler"
	scraperrors "github.com/Burrhanburak/scrape-site/internal/errors"
	"github.com/Burrhanburak/scrape-site/internal/llm"
	"github.com/Burrhanburak/scrape-site/internal/scraper"
	"github.com/Burrhanburak/scrape-site/internal/store"
	"github.com/Burrhanburak/scrape-site/internal/utils"
	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// Scoring constants. A candidate found on a sample earns the presence base;
// matching the field's expected multiplicity and yielding a non-empty value
// earn bonuses. The threshold sits between "merely present" and "present
// with a usable value".
const (
	scorePresenceBase      = 2.0
	scoreMultiplicityBonus = 1.0
	scoreNonEmptyBonus     = 1.0
)

// Config tunes a discovery run
type Config struct {
	SamplesPerType  int     `yaml:"samples_per_type" json:"samples_per_type"`
	ScoreThreshold  float64 `yaml:"score_threshold" json:"score_threshold"`
	PromptHTMLLimit int     `yaml:"prompt_html_limit" json:"prompt_html_limit"`
	MaxSitemapURLs  int     `yaml:"max_sitemap_urls" json:"max_sitemap_urls"`
	ScoringWorkers  int     `yaml:"scoring_workers" json:"scoring_workers"`
}

// DefaultConfig returns the settings used when the discovery section is absent
func DefaultConfig() Config {
	return Config{
		SamplesPerType:  3,
		ScoreThreshold:  3.0,
		PromptHTMLLimit: 10000,
		MaxSitemapURLs:  500,
		ScoringWorkers:  8,
	}
}

// MetricsRecorder receives discovery events. A nil recorder is a no-op.
type MetricsRecorder interface {
	RecordDiscoveryRun(result string)
	RecordSelectorScore(score float64, accepted bool)
}

// Engine runs selector discovery for a site
type Engine struct {
	fetcher  crawler.Fetcher
	provider llm.Provider
	profiles store.Store
	config   Config
	logger   utils.Logger
	metrics  MetricsRecorder
}

// NewEngine creates a discovery engine
func NewEngine(fetcher crawler.Fetcher, provider llm.Provider, profiles store.Store, cfg Config, logger utils.Logger) *Engine {
	def := DefaultConfig()
	if cfg.SamplesPerType <= 0 {
		cfg.SamplesPerType = def.SamplesPerType
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = def.ScoreThreshold
	}
	if cfg.PromptHTMLLimit <= 0 {
		cfg.PromptHTMLLimit = def.PromptHTMLLimit
	}
	if cfg.MaxSitemapURLs <= 0 {
		cfg.MaxSitemapURLs = def.MaxSitemapURLs
	}
	if cfg.ScoringWorkers <= 0 {
		cfg.ScoringWorkers = def.ScoringWorkers
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Engine{fetcher: fetcher, provider: provider, profiles: profiles, config: cfg, logger: logger}
}

// SetMetrics attaches a metrics recorder. Must be called before Discover.
func (e *Engine) SetMetrics(m MetricsRecorder) {
	e.metrics = m
}

func (e *Engine) recordRun(result string) {
	if e.metrics != nil {
		e.metrics.RecordDiscoveryRun(result)
	}
}

// sample is one fetched page used for candidate verification
type sample struct {
	url      string
	pageType types.PageType
	html     string
	doc      *goquery.Document
}

// candidate is one model-proposed selector for one field
type candidate struct {
	Selector string `json:"selector"`
	Attr     string `json:"attr,omitempty"`
}

// Discover samples a site, proposes selectors through the LLM, scores them
// against the samples, and persists the accepted mapping. A field with no
// candidate clearing the threshold is omitted; an empty profile is a valid
// outcome, not an error.
func (e *Engine) Discover(ctx context.Context, siteURL string) (*types.SiteSelectorProfile, error) {
	hostname, err := utils.Hostname(siteURL)
	if err != nil {
		return nil, scraperrors.New(scraperrors.KindDiscoveryFailure, "discover", siteURL, err)
	}

	samples := e.collectSamples(ctx, siteURL)
	if len(samples) == 0 {
		e.recordRun("failed")
		return nil, scraperrors.Newf(scraperrors.KindDiscoveryFailure, "discover", siteURL,
			"no sample page could be fetched")
	}

	representative := pickRepresentative(samples)
	proposals, err := e.proposeCandidates(ctx, representative)
	if err != nil {
		e.recordRun("failed")
		return nil, err
	}

	profile := types.NewSiteSelectorProfile(hostname)
	scores := e.scoreProposals(ctx, proposals, samples)
	for field, best := range scores {
		profile.Rules[field] = []types.SelectorRule{{
			Selector:  best.candidate.Selector,
			Attribute: best.candidate.Attr,
		}}
		e.logger.WithFields(map[string]interface{}{
			"field":    field.String(),
			"selector": best.candidate.Selector,
			"score":    fmt.Sprintf("%.2f", best.score),
		}).Debug("selector accepted")
	}

	if err := e.profiles.Put(ctx, profile); err != nil {
		e.recordRun("failed")
		return nil, scraperrors.New(scraperrors.KindDiscoveryFailure, "discover", siteURL, err)
	}
	e.recordRun("ok")
	e.logger.WithFields(map[string]interface{}{
		"hostname": hostname,
		"fields":   profile.FieldCount(),
		"samples":  len(samples),
	}).Info("selector profile discovered")
	return profile, nil
}

// collectSamples gathers up to SamplesPerType URLs for each of the product,
// blog and category path-pattern lists, padding with arbitrary sitemap URLs.
// Individual fetch failures are skipped.
func (e *Engine) collectSamples(ctx context.Context, siteURL string) []sample {
	urls := crawler.DiscoverURLs(ctx, e.fetcher, siteURL, e.config.MaxSitemapURLs)

	picked := []string{siteURL}
	seen := map[string]bool{siteURL: true}
	for _, pt := range []types.PageType{types.PageTypeProduct, types.PageTypeBlog, types.PageTypeCategory} {
		count := 0
		for _, u := range urls {
			if count >= e.config.SamplesPerType {
				break
			}
			if !seen[u] && matchesPathKeywords(u, scraper.PathKeywords(pt)) {
				seen[u] = true
				picked = append(picked, u)
				count++
			}
		}
	}
	// Pad with arbitrary sitemap URLs when pattern matching found little.
	minSamples := e.config.SamplesPerType + 1
	for _, u := range urls {
		if len(picked) >= minSamples {
			break
		}
		if !seen[u] {
			seen[u] = true
			picked = append(picked, u)
		}
	}

	var samples []sample
	for _, u := range picked {
		result, err := e.fetcher.Fetch(ctx, u)
		if err != nil {
			e.logger.WithField("url", u).Debug("sample fetch skipped")
			continue
		}
		doc, err := scraper.ParseDocument(result.Body)
		if err != nil {
			continue
		}
		samples = append(samples, sample{
			url:      u,
			pageType: scraper.QuickClassify(u, doc),
			html:     result.Body,
			doc:      doc,
		})
	}
	return samples
}

func matchesPathKeywords(rawURL string, keywords []string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(parsed.Path)
	for _, kw := range keywords {
		if strings.Contains(path, kw) {
			return true
		}
	}
	return false
}

// pickRepresentative chooses the sample whose HTML goes into the prompt:
// product beats blog beats category beats whatever came first.
func pickRepresentative(samples []sample) sample {
	for _, want := range []types.PageType{types.PageTypeProduct, types.PageTypeBlog, types.PageTypeCategory} {
		for _, s := range samples {
			if s.pageType == want {
				return s
			}
		}
	}
	return samples[0]
}

// proposeCandidates issues the single batched LLM request and parses its
// answer defensively. Fields with malformed candidate arrays are dropped,
// never fatal.
func (e *Engine) proposeCandidates(ctx context.Context, rep sample) (map[types.FieldKey][]candidate, error) {
	if e.provider == nil {
		return nil, scraperrors.Newf(scraperrors.KindDiscoveryFailure, "discover", rep.url,
			"no LLM provider configured")
	}

	raw, err := e.provider.Complete(ctx, e.buildPrompt(rep))
	if err != nil {
		return nil, scraperrors.New(scraperrors.KindDiscoveryFailure, "discover", rep.url, err)
	}
	obj, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return nil, scraperrors.New(scraperrors.KindDiscoveryFailure, "discover", rep.url, err)
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(obj, &parsed); err != nil {
		return nil, scraperrors.New(scraperrors.KindDiscoveryFailure, "discover", rep.url, err)
	}

	proposals := make(map[types.FieldKey][]candidate)
	for key, value := range parsed {
		field := types.FieldKey(key)
		if !field.IsValid() {
			continue
		}
		var raw []candidate
		if err := json.Unmarshal(value, &raw); err != nil {
			e.logger.WithField("field", key).Debug("malformed candidate array dropped")
			continue
		}
		var kept []candidate
		for _, c := range raw {
			c.Selector = utils.SanitizeSelector(c.Selector)
			if c.Selector != "" {
				kept = append(kept, c)
			}
		}
		if len(kept) > 0 {
			proposals[field] = kept
		}
	}
	return proposals, nil
}

func (e *Engine) buildPrompt(rep sample) string {
	html := rep.html
	if len(html) > e.config.PromptHTMLLimit {
		html = html[:e.config.PromptHTMLLimit]
	}

	var b strings.Builder
	b.WriteString("You are a CSS selector expert helping a web crawler adapt to a site.\n")
	fmt.Fprintf(&b, "Below is the HTML of %s (a %s page, possibly truncated).\n\n", rep.url, rep.pageType)
	b.WriteString("Propose 1-3 CSS selector candidates for EACH of these fields:\n")
	for _, field := range types.ValidFieldKeys() {
		fmt.Fprintf(&b, "  - %s\n", field)
	}
	b.WriteString(`
Return ONLY a JSON object mapping each field name to an array of
{"selector": "...", "attr": "..."} objects. Omit "attr" when the element's
text content is the value. Omit fields you cannot propose selectors for.
Selectors must be standard CSS, no jQuery extensions.

HTML:
`)
	b.WriteString(html)
	return b.String()
}

// scored pairs a winning candidate with its aggregate score
type scored struct {
	candidate candidate
	score     float64
}

// scoreProposals verifies every (field, candidate) pair against the samples
// and keeps the best candidate per field when it clears the threshold.
// Pairs are scored concurrently; results are deterministic regardless of
// scheduling.
func (e *Engine) scoreProposals(ctx context.Context, proposals map[types.FieldKey][]candidate, samples []sample) map[types.FieldKey]scored {
	type key struct {
		field types.FieldKey
		index int
	}
	results := make(map[key]float64)
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.config.ScoringWorkers)
	for field, candidates := range proposals {
		relevant := relevantSamples(field, samples)
		for i, c := range candidates {
			field, i, c := field, i, c
			g.Go(func() error {
				score := aggregateScore(field, c, relevant)
				mu.Lock()
				results[key{field, i}] = score
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	best := make(map[types.FieldKey]scored)
	for field, candidates := range proposals {
		winner := -1
		var top float64
		for i := range candidates {
			// Ties go to the model's first-listed candidate.
			if score := results[key{field, i}]; score > top {
				top = score
				winner = i
			}
		}
		if e.metrics != nil && winner >= 0 {
			e.metrics.RecordSelectorScore(top, top >= e.config.ScoreThreshold)
		}
		if winner >= 0 && top >= e.config.ScoreThreshold {
			best[field] = scored{candidate: candidates[winner], score: top}
		} else if winner >= 0 {
			e.logger.WithFields(map[string]interface{}{
				"field": field.String(),
				"score": fmt.Sprintf("%.2f", top),
			}).Debug("no candidate cleared the threshold")
		}
	}
	return best
}

// relevantSamples filters samples by the field's page-type restriction,
// falling back to all samples when unrestricted or nothing matches.
func relevantSamples(field types.FieldKey, samples []sample) []sample {
	restriction := field.RelevantPageTypes()
	if len(restriction) == 0 {
		return samples
	}
	var matched []sample
	for _, s := range samples {
		for _, pt := range restriction {
			if s.pageType == pt {
				matched = append(matched, s)
				break
			}
		}
	}
	if len(matched) == 0 {
		return samples
	}
	return matched
}

// aggregateScore is mean(per-sample score) scaled by sqrt(hit fraction),
// punishing candidates that only work on one sample.
func aggregateScore(field types.FieldKey, c candidate, samples []sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var total float64
	hits := 0
	for _, s := range samples {
		score := sampleScore(field, c, s)
		if score > 0 {
			hits++
		}
		total += score
	}
	if hits == 0 {
		return 0
	}
	mean := total / float64(len(samples))
	fraction := float64(hits) / float64(len(samples))
	return mean * math.Sqrt(fraction)
}

func sampleScore(field types.FieldKey, c candidate, s sample) float64 {
	sel := s.doc.Find(c.Selector)
	count := sel.Length()
	if count == 0 {
		return 0
	}

	score := scorePresenceBase
	if field.ExpectsMultiple() == (count > 1) {
		score += scoreMultiplicityBonus
	}

	var value string
	if c.Attr != "" {
		value, _ = sel.First().Attr(c.Attr)
	} else {
		value = sel.First().Text()
	}
	if strings.TrimSpace(value) != "" {
		score += scoreNonEmptyBonus
	}
	return score
}
