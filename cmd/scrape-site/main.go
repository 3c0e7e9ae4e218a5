// Command scrape-site crawls a site, assembles structured page records,
// and serves the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Burrhanburak/scrape-site/internal/browser"
	"github.com/Burrhanburak/scrape-site/internal/config"
	"github.com/Burrhanburak/scrape-site/internal/crawler"
	"github.com/Burrhanburak/scrape-site/internal/discovery"
	"github.com/Burrhanburak/scrape-site/internal/enrich"
	"github.com/Burrhanburak/scrape-site/internal/fetch"
	"github.com/Burrhanburak/scrape-site/internal/llm"
	"github.com/Burrhanburak/scrape-site/internal/monitoring"
	"github.com/Burrhanburak/scrape-site/internal/output"
	"github.com/Burrhanburak/scrape-site/internal/pipeline"
	"github.com/Burrhanburak/scrape-site/internal/scraper"
	"github.com/Burrhanburak/scrape-site/internal/security"
	"github.com/Burrhanburak/scrape-site/internal/store"
	"github.com/Burrhanburak/scrape-site/internal/utils"
	"github.com/Burrhanburak/scrape-site/pkg/api"
	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// Version information, set by build flags.
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	// Optional .env for API keys and DSNs.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var code int
	switch os.Args[1] {
	case "crawl":
		code = runCrawl(os.Args[2:])
	case "assemble":
		code = runAssemble(os.Args[2:])
	case "discover":
		code = runDiscover(os.Args[2:])
	case "serve":
		code = runServe(os.Args[2:])
	case "validate":
		code = runValidate(os.Args[2:])
	case "template":
		fmt.Print(config.GenerateTemplate())
	case "version":
		fmt.Printf("scrape-site %s (commit %s, built %s)\n", version, gitCommit, buildTime)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		code = 2
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: scrape-site <command> [flags]

Commands:
  crawl      crawl a site and write records in the configured formats
  assemble   process a single URL and print the record as JSON
  discover   learn a selector profile for a site and print it
  serve      run the HTTP API
  validate   check a configuration file
  template   print a starter configuration
  version    print version information

Run 'scrape-site <command> -h' for command flags.
`)
}

// commonFlags are shared by every command that loads a configuration.
type commonFlags struct {
	configPath string
	logLevel   string
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	cf := &commonFlags{}
	fs.StringVar(&cf.configPath, "config", "", "path to the YAML configuration file")
	fs.StringVar(&cf.logLevel, "log-level", "", "override the configured log level")
	return cf
}

func (cf *commonFlags) load() (*config.Config, utils.Logger, error) {
	cfg := config.Default()
	if cf.configPath != "" {
		loaded, err := config.LoadFromFile(cf.configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if cf.logLevel != "" {
		cfg.Logging.Level = cf.logLevel
	}

	logger := utils.NewLoggerWithOptions(utils.LoggerOptions{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	return cfg, logger, nil
}

// app holds the wired components for one invocation.
type app struct {
	cfg      *config.Config
	logger   utils.Logger
	fetcher  *fetch.Client
	renderer *browser.Renderer
	provider llm.Provider
	profiles store.Store
	pipeline *pipeline.Pipeline
	crawler  *crawler.Crawler
	engine   *discovery.Engine
	metrics  *monitoring.Metrics
	health   *monitoring.Health
	output   *output.Manager
}

func buildApp(cfg *config.Config, logger utils.Logger) (*app, error) {
	fetcher, err := fetch.NewClient(cfg.Fetch, logger)
	if err != nil {
		return nil, fmt.Errorf("fetch client: %w", err)
	}

	profiles, err := store.New(cfg.Profiles)
	if err != nil {
		return nil, fmt.Errorf("profile store: %w", err)
	}

	var renderer *browser.Renderer
	if cfg.Browser.Enabled {
		renderer, err = browser.NewRenderer(cfg.Browser, logger)
		if err != nil {
			profiles.Close()
			return nil, fmt.Errorf("browser renderer: %w", err)
		}
	}

	// The model layer is optional: without a configured provider the system
	// runs on selectors and heuristics alone.
	var provider llm.Provider
	if cfg.LLM.APIKey != "" || cfg.LLM.Provider == "ollama" {
		provider, err = llm.New(cfg.LLM)
		if err != nil {
			profiles.Close()
			return nil, fmt.Errorf("llm provider: %w", err)
		}
	}

	assembler := scraper.NewAssembler(scraper.DefaultAssemblerConfig(), logger)
	metrics := monitoring.NewMetrics()

	var enricher pipeline.Enricher
	pipeCfg := cfg.Pipeline
	if provider != nil {
		enricher = enrich.NewEnricher(provider, cfg.Enrichment, logger)
	} else {
		pipeCfg.EnableEnrichment = false
	}

	var pipeRenderer pipeline.Renderer
	if renderer != nil {
		pipeRenderer = renderer
	} else {
		pipeCfg.EnableHeadless = false
	}

	pipe := pipeline.New(fetcher, pipeRenderer, enricher, assembler, profiles, pipeCfg, logger, metrics)
	crawl := crawler.NewCrawler(fetcher, pipe, cfg.Crawler, logger)
	engine := discovery.NewEngine(fetcher, provider, profiles, cfg.Discovery, logger)
	engine.SetMetrics(metrics)

	writer, err := output.NewManager(cfg.Output, logger)
	if err != nil {
		profiles.Close()
		return nil, fmt.Errorf("output: %w", err)
	}

	health := monitoring.NewHealth()
	health.AddCheck("profiles", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_, err := profiles.Get(ctx, "healthcheck.invalid")
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return nil
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		fetcher:  fetcher,
		renderer: renderer,
		provider: provider,
		profiles: profiles,
		pipeline: pipe,
		crawler:  crawl,
		engine:   engine,
		metrics:  metrics,
		health:   health,
		output:   writer,
	}, nil
}

func (a *app) Close() {
	if a.renderer != nil {
		a.renderer.Close()
	}
	if err := a.profiles.Close(); err != nil {
		a.logger.Warnf("closing profile store: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runCrawl(args []string) int {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	cf := registerCommon(fs)
	outDir := fs.String("out", "", "override the output directory")
	fs.Parse(args)

	cfg, logger, err := cf.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	siteURL := cfg.Site.URL
	if fs.NArg() > 0 {
		siteURL = fs.Arg(0)
	}
	if siteURL == "" {
		fmt.Fprintln(os.Stderr, "error: no site URL; pass one as an argument or set site.url in the config")
		return 2
	}
	if *outDir != "" {
		cfg.Output.Directory = *outDir
	}

	app, err := buildApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer app.Close()

	ctx, cancel := signalContext()
	defer cancel()

	app.metrics.CrawlStarted()
	records, err := app.crawler.CrawlSite(ctx, siteURL, func(p crawler.Progress) {
		logger.WithFields(map[string]interface{}{
			"url":      p.URL,
			"progress": fmt.Sprintf("%d/%d", p.Completed, p.Total),
		}).Info("page done")
	})
	app.metrics.CrawlFinished()

	if err != nil && len(records) == 0 {
		fmt.Fprintf(os.Stderr, "error: crawl failed: %v\n", err)
		return 1
	}
	if err != nil {
		logger.Warnf("crawl interrupted after %d pages: %v", len(records), err)
	}

	paths, werr := app.output.WriteAll(siteURL, records)
	if werr != nil {
		fmt.Fprintf(os.Stderr, "error: writing output: %v\n", werr)
		return 1
	}
	for _, path := range paths {
		fmt.Println(path)
	}
	return 0
}

func runAssemble(args []string) int {
	fs := flag.NewFlagSet("assemble", flag.ExitOnError)
	cf := registerCommon(fs)
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: scrape-site assemble [flags] <url>")
		return 2
	}
	pageURL := fs.Arg(0)

	cfg, logger, err := cf.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	app, err := buildApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer app.Close()

	ctx, cancel := signalContext()
	defer cancel()

	record := app.pipeline.Process(ctx, pageURL)
	printJSON(record)
	if record.PageTypeGuess == types.PageTypeError {
		return 1
	}
	return 0
}

func runDiscover(args []string) int {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	cf := registerCommon(fs)
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: scrape-site discover [flags] <site-url>")
		return 2
	}
	siteURL := fs.Arg(0)

	cfg, logger, err := cf.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	app, err := buildApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer app.Close()

	if app.provider == nil {
		fmt.Fprintln(os.Stderr, "error: discovery needs an llm provider; configure llm.api_key or llm.provider: ollama")
		return 2
	}

	ctx, cancel := signalContext()
	defer cancel()

	profile, err := app.engine.Discover(ctx, siteURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: discovery failed: %v\n", err)
		return 1
	}
	printJSON(profile)
	return 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cf := registerCommon(fs)
	fs.Parse(args)

	cfg, logger, err := cf.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	app, err := buildApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer app.Close()

	server := api.NewServer(api.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, api.Deps{
		Processor:  app.pipeline,
		Assembler:  scraper.NewAssembler(scraper.DefaultAssemblerConfig(), logger),
		Discoverer: app.engine,
		Crawler:    app.crawler,
		Profiles:   app.profiles,
		Validator:  security.NewValidator(security.DefaultConfig()),
		Metrics:    app.metrics,
		Health:     app.health,
		Logger:     logger,
	})

	httpServer := &http.Server{
		Addr:              server.Addr(),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Config changes on disk take effect on the next restart; watching here
	// only surfaces them in the log.
	if cf.configPath != "" {
		watcher, werr := config.NewWatcher(cf.configPath, logger)
		if werr != nil {
			logger.Warnf("config watcher unavailable: %v", werr)
		} else {
			defer watcher.Close()
			watcher.OnChange(func(*config.Config) {
				logger.Info("configuration file changed; restart to apply")
			})
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", httpServer.Addr).Info("http api listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "error: server: %v\n", err)
		return 1
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
	logger.Info("server stopped")
	return 0
}

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cf := registerCommon(fs)
	fs.Parse(args)

	path := cf.configPath
	if path == "" && fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "usage: scrape-site validate <config.yaml>")
		return 2
	}

	if _, err := config.LoadFromFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Printf("%s is valid\n", path)
	return 0
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: encoding output: %v\n", err)
	}
}
