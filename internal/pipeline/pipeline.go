// internal/pipeline/pipeline.go

// Package pipeline runs one page through the fetch-strategy state machine:
// light fetch, optional headless escalation, optional LLM enrichment. The
// steps are strictly ordered; concurrency belongs to the caller, across
// pages, never within one.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/Burrhanburak/scrape-site/internal/browser"
	"github.com/Burrhanburak/scrape-site/internal/fetch"
	"github.com/Burrhanburak/scrape-site/internal/store"
	"github.com/Burrhanburak/scrape-site/internal/utils"
	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// Fetcher is the light HTTP fetch strategy. Satisfied by *fetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// Renderer is the headless escalation strategy. Satisfied by
// *browser.Renderer. A nil Renderer disables escalation.
type Renderer interface {
	Render(ctx context.Context, url string) (*browser.Result, error)
}

// Enricher is the LLM completion strategy. Satisfied by *enrich.Enricher.
// A nil Enricher disables enrichment.
type Enricher interface {
	MissingFields(record *types.PageRecord) []string
	Enrich(ctx context.Context, record *types.PageRecord, missing []string) error
}

// Assembler turns HTML into a page record. Satisfied by *scraper.Assembler.
type Assembler interface {
	Assemble(html, pageURL string, profile *types.SiteSelectorProfile) *types.PageRecord
}

// MetricsRecorder receives pipeline events. A nil recorder is a no-op.
type MetricsRecorder interface {
	RecordPage(pageType, status string)
	RecordEscalation(reason string)
}

// Config tunes the escalation decisions
type Config struct {
	// MinMainTextLength below which a page counts as thin content.
	MinMainTextLength int `yaml:"min_main_text_length" json:"min_main_text_length"`

	// HeadlessGrowthFactor: rendered HTML must be at least this many times
	// larger than the light-fetch HTML to replace the record.
	HeadlessGrowthFactor float64 `yaml:"headless_growth_factor" json:"headless_growth_factor"`

	EnableHeadless   bool `yaml:"enable_headless" json:"enable_headless"`
	EnableEnrichment bool `yaml:"enable_enrichment" json:"enable_enrichment"`
}

// DefaultConfig returns the settings used when the pipeline section is absent
func DefaultConfig() Config {
	return Config{
		MinMainTextLength:    200,
		HeadlessGrowthFactor: 1.2,
		EnableHeadless:       true,
		EnableEnrichment:     true,
	}
}

// Pipeline processes single pages. Safe for concurrent use across URLs.
type Pipeline struct {
	fetcher   Fetcher
	renderer  Renderer
	enricher  Enricher
	assembler Assembler
	profiles  store.Store
	config    Config
	logger    utils.Logger
	metrics   MetricsRecorder
}

// New creates a pipeline. renderer, enricher and metrics may be nil.
func New(fetcher Fetcher, renderer Renderer, enricher Enricher, assembler Assembler, profiles store.Store, cfg Config, logger utils.Logger, metrics MetricsRecorder) *Pipeline {
	def := DefaultConfig()
	if cfg.MinMainTextLength <= 0 {
		cfg.MinMainTextLength = def.MinMainTextLength
	}
	if cfg.HeadlessGrowthFactor <= 1 {
		cfg.HeadlessGrowthFactor = def.HeadlessGrowthFactor
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Pipeline{
		fetcher:   fetcher,
		renderer:  renderer,
		enricher:  enricher,
		assembler: assembler,
		profiles:  profiles,
		config:    cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// Process runs the full state machine for one URL. It never returns an
// error: total fetch failure comes back as an error-typed record, every
// other failure kind is absorbed into the record it happened on.
func (p *Pipeline) Process(ctx context.Context, pageURL string) *types.PageRecord {
	stage := types.StageLightFetchPending
	profile := p.loadProfile(ctx, pageURL)

	var html string
	var record *types.PageRecord

	result, fetchErr := p.fetcher.Fetch(ctx, pageURL)
	stage = p.advance(pageURL, stage, types.StageLightFetchDone)
	if fetchErr == nil {
		html = result.Body
		record = p.assembler.Assemble(html, pageURL, profile)
	} else {
		p.logger.WithField("url", pageURL).WithField("error", fetchErr.Error()).Debug("light fetch failed")
	}

	if reason := p.headlessReason(fetchErr, record); reason != "" && p.canRender() {
		stage = p.advance(pageURL, stage, types.StageHeadlessPending)
		if p.metrics != nil {
			p.metrics.RecordEscalation(reason)
		}
		html, record = p.renderAndMaybeReplace(ctx, pageURL, html, record, profile, reason)
		stage = p.advance(pageURL, stage, types.StageHeadlessDone)
	}

	if record == nil {
		message := "all fetch strategies failed"
		if fetchErr != nil {
			message = fmt.Sprintf("all fetch strategies failed: %v", fetchErr)
		}
		rec := types.NewErrorRecord(pageURL, message)
		rec.FetchStage = types.StageFinalized
		if p.metrics != nil {
			p.metrics.RecordPage(string(types.PageTypeError), "failed")
		}
		return rec
	}

	if p.config.EnableEnrichment && p.enricher != nil {
		if missing := p.enricher.MissingFields(record); len(missing) > 0 {
			stage = p.advance(pageURL, stage, types.StageEnrichmentPending)
			if err := p.enricher.Enrich(ctx, record, missing); err != nil {
				// Absorbed: the assembled record stands, the failure sits on
				// its enrichment sub-record.
				p.logger.WithField("url", pageURL).WithField("error", err.Error()).Warn("enrichment failed")
			}
			stage = p.advance(pageURL, stage, types.StageEnrichmentDone)
		}
	}

	stage = p.advance(pageURL, stage, types.StageFinalized)
	record.FetchStage = stage
	if p.metrics != nil {
		p.metrics.RecordPage(string(record.PageTypeGuess), "ok")
	}
	return record
}

// advance moves the state machine, logging any illegal transition. The
// transition table is authoritative; a violation is a programming error
// worth surfacing, not a reason to abort the page.
func (p *Pipeline) advance(pageURL string, from, to types.FetchStage) types.FetchStage {
	if !from.CanTransitionTo(to) {
		p.logger.WithFields(map[string]interface{}{
			"url":  pageURL,
			"from": string(from),
			"to":   string(to),
		}).Error("illegal fetch stage transition")
	}
	return to
}

func (p *Pipeline) canRender() bool {
	return p.config.EnableHeadless && p.renderer != nil
}

// headlessReason decides escalation. An empty string means no escalation.
func (p *Pipeline) headlessReason(fetchErr error, record *types.PageRecord) string {
	if fetchErr != nil || record == nil {
		return "light_fetch_failed"
	}
	thin := len(types.StringVal(record.MainTextContent)) < p.config.MinMainTextLength
	switch {
	case record.Title == nil || record.TitleFallback:
		return "missing_title"
	case record.PageTypeGuess == types.PageTypeProduct &&
		(record.Product == nil || record.Product.Price == nil):
		return "product_missing_price"
	case record.PageTypeGuess == types.PageTypeUnknown && thin:
		return "unknown_thin_content"
	case thin:
		return "thin_content"
	}
	return ""
}

// renderAndMaybeReplace runs the headless fetch and applies the replacement
// rule: the rendered document replaces the light-fetch record only when
// meaningfully larger, or when there was nothing to replace.
func (p *Pipeline) renderAndMaybeReplace(ctx context.Context, pageURL, priorHTML string, priorRecord *types.PageRecord, profile *types.SiteSelectorProfile, reason string) (string, *types.PageRecord) {
	rendered, err := p.renderer.Render(ctx, pageURL)
	if err != nil {
		p.logger.WithField("url", pageURL).WithField("error", err.Error()).Warn("headless render failed")
		return priorHTML, priorRecord
	}

	threshold := int(float64(len(priorHTML)) * p.config.HeadlessGrowthFactor)
	if priorHTML != "" && len(rendered.HTML) < threshold {
		p.logger.WithFields(map[string]interface{}{
			"url":    pageURL,
			"reason": reason,
			"prior":  len(priorHTML),
			"grown":  len(rendered.HTML),
		}).Debug("headless render discarded, no meaningful growth")
		return priorHTML, priorRecord
	}

	record := p.assembler.Assemble(rendered.HTML, pageURL, profile)
	record.Rendered = true
	return rendered.HTML, record
}

func (p *Pipeline) loadProfile(ctx context.Context, pageURL string) *types.SiteSelectorProfile {
	if p.profiles == nil {
		return nil
	}
	hostname, err := utils.Hostname(pageURL)
	if err != nil {
		return nil
	}
	profile, err := p.profiles.Get(ctx, hostname)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			p.logger.WithField("hostname", hostname).WithField("error", err.Error()).Warn("profile load failed")
		}
		return nil
	}
	return profile
}
