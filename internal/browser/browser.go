// internal/browser/browser.go

// Package browser renders JavaScript-dependent pages through headless Chrome.
// One Chrome process is shared; each Render opens a fresh tab and closes it
// on every exit path.
package browser

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	scraperrors "github.com/Burrhanburak/scrape-site/internal/errors"
	"github.com/Burrhanburak/scrape-site/internal/utils"
)

// Config defines headless rendering behavior
type Config struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	MaxTabs         int           `yaml:"max_tabs" json:"max_tabs"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout" json:"navigate_timeout"`
	WaitForSelector string        `yaml:"wait_for_selector,omitempty" json:"wait_for_selector,omitempty"`
	WaitDelay       time.Duration `yaml:"wait_delay,omitempty" json:"wait_delay,omitempty"`
	ViewportWidth   int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight  int           `yaml:"viewport_height" json:"viewport_height"`
	UserAgent       string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	BlockResources  bool          `yaml:"block_resources" json:"block_resources"`
}

// DefaultConfig returns the settings used when the browser section is absent
func DefaultConfig() Config {
	return Config{
		Enabled:         false,
		MaxTabs:         4,
		NavigateTimeout: 45 * time.Second,
		WaitDelay:       2 * time.Second,
		ViewportWidth:   1366,
		ViewportHeight:  900,
		BlockResources:  true,
	}
}

// blockedURLPatterns match resources that never influence extraction
var blockedURLPatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.otf", "*.eot",
	"*.mp4", "*.webm", "*.mp3", "*.avi",
}

// Result is a completed headless render
type Result struct {
	URL      string
	HTML     string
	Duration time.Duration
}

// Renderer drives a shared headless Chrome. Safe for concurrent use; tab
// count is bounded by MaxTabs.
type Renderer struct {
	config    Config
	allocCtx  context.Context
	allocStop context.CancelFunc
	tabs      *semaphore.Weighted
	logger    utils.Logger
}

// NewRenderer starts the Chrome allocator. The process itself launches
// lazily on the first Render.
func NewRenderer(cfg Config, logger utils.Logger) (*Renderer, error) {
	def := DefaultConfig()
	if cfg.MaxTabs <= 0 {
		cfg.MaxTabs = def.MaxTabs
	}
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = def.NavigateTimeout
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = def.ViewportWidth
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = def.ViewportHeight
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	opts := append([]chromedp.ExecAllocatorOption{},
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.BlockResources {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, allocStop := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Renderer{
		config:    cfg,
		allocCtx:  allocCtx,
		allocStop: allocStop,
		tabs:      semaphore.NewWeighted(int64(cfg.MaxTabs)),
		logger:    logger,
	}, nil
}

// Render loads a page in a new tab, waits per the configured policy, and
// returns the rendered DOM. The tab is always closed before returning.
func (r *Renderer) Render(ctx context.Context, targetURL string) (*Result, error) {
	if err := r.tabs.Acquire(ctx, 1); err != nil {
		return nil, scraperrors.New(scraperrors.KindTransportFailure, "render", targetURL, err)
	}
	defer r.tabs.Release(1)

	tabCtx, cancelTab := chromedp.NewContext(r.allocCtx)
	defer cancelTab()

	navCtx := tabCtx
	if r.config.NavigateTimeout > 0 {
		var cancelNav context.CancelFunc
		navCtx, cancelNav = context.WithTimeout(tabCtx, r.config.NavigateTimeout)
		defer cancelNav()
	}
	// The caller's deadline still applies on top of the navigation timeout.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	tasks := []chromedp.Action{
		chromedp.EmulateViewport(int64(r.config.ViewportWidth), int64(r.config.ViewportHeight)),
	}
	if r.config.BlockResources {
		tasks = append(tasks,
			network.Enable(),
			network.SetBlockedURLS(blockedURLPatterns),
		)
	}
	tasks = append(tasks,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body"),
	)
	if r.config.WaitForSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(r.config.WaitForSelector))
	}
	if r.config.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(r.config.WaitDelay))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	start := time.Now()
	if err := chromedp.Run(navCtx, tasks...); err != nil {
		return nil, scraperrors.New(scraperrors.KindTransportFailure, "render", targetURL, err)
	}
	if strings.TrimSpace(html) == "" {
		return nil, scraperrors.Newf(scraperrors.KindTransportFailure, "render", targetURL,
			"rendered document is empty")
	}

	result := &Result{URL: targetURL, HTML: html, Duration: time.Since(start)}
	r.logger.WithFields(map[string]interface{}{
		"url":      targetURL,
		"bytes":    len(html),
		"duration": result.Duration.String(),
	}).Debug("page rendered")
	return result, nil
}

// Close shuts down the shared Chrome process
func (r *Renderer) Close() error {
	r.allocStop()
	return nil
}
