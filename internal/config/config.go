// Package config loads and validates the application configuration. YAML
// files are unmarshalled onto a fully populated default tree, so every
// section and field is optional and `${VAR}` references are expanded from
// the environment before parsing.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Burrhanburak/scrape-site/internal/browser"
	"github.com/Burrhanburak/scrape-site/internal/crawler"
	"github.com/Burrhanburak/scrape-site/internal/discovery"
	"github.com/Burrhanburak/scrape-site/internal/enrich"
	"github.com/Burrhanburak/scrape-site/internal/fetch"
	"github.com/Burrhanburak/scrape-site/internal/llm"
	"github.com/Burrhanburak/scrape-site/internal/output"
	"github.com/Burrhanburak/scrape-site/internal/pipeline"
	"github.com/Burrhanburak/scrape-site/internal/store"
)

// SiteConfig identifies the crawl target.
type SiteConfig struct {
	URL string `yaml:"url" json:"url"`
}

// LoggingConfig controls the application log output.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // text or json
}

// ServerConfig holds the HTTP API listener settings.
type ServerConfig struct {
	Host           string   `yaml:"host" json:"host"`
	Port           int      `yaml:"port" json:"port"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" json:"allowed_origins,omitempty"`
}

// Config is the full application configuration. Each section maps onto the
// package that consumes it.
type Config struct {
	Site       SiteConfig       `yaml:"site" json:"site"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Fetch      fetch.Config     `yaml:"fetch" json:"fetch"`
	Browser    browser.Config   `yaml:"browser" json:"browser"`
	LLM        llm.Config       `yaml:"llm" json:"llm"`
	Discovery  discovery.Config `yaml:"discovery" json:"discovery"`
	Enrichment enrich.Config    `yaml:"enrichment" json:"enrichment"`
	Pipeline   pipeline.Config  `yaml:"pipeline" json:"pipeline"`
	Crawler    crawler.Config   `yaml:"crawler" json:"crawler"`
	Profiles   store.Config     `yaml:"profiles" json:"profiles"`
	Output     output.Config    `yaml:"output" json:"output"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// Default returns a configuration with every section at its package default.
func Default() *Config {
	return &Config{
		Logging:    LoggingConfig{Level: "info", Format: "text"},
		Fetch:      fetch.DefaultConfig(),
		Browser:    browser.DefaultConfig(),
		Discovery:  discovery.DefaultConfig(),
		Enrichment: enrich.DefaultConfig(),
		Pipeline:   pipeline.DefaultConfig(),
		Crawler:    crawler.DefaultConfig(),
		Profiles:   store.Config{Backend: "memory"},
		Output:     output.DefaultConfig(),
		Server:     ServerConfig{Host: "0.0.0.0", Port: 8080},
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. Absent fields keep
// their defaults; fields set in the YAML win, including explicit zero values.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := os.ExpandEnv(string(data))

	config := Default()
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	return LoadFromBytes(data)
}

// Validate checks cross-field constraints that the section packages cannot
// check themselves.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json; got %q", c.Logging.Format)
	}

	if c.Site.URL != "" && !strings.HasPrefix(c.Site.URL, "http://") && !strings.HasPrefix(c.Site.URL, "https://") {
		return fmt.Errorf("site.url must start with http:// or https://; got %q", c.Site.URL)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535; got %d", c.Server.Port)
	}

	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch.timeout cannot be negative")
	}
	if c.Fetch.RateLimit < 0 {
		return fmt.Errorf("fetch.rate_limit cannot be negative")
	}

	if c.Pipeline.HeadlessGrowthFactor < 1.0 {
		return fmt.Errorf("pipeline.headless_growth_factor must be at least 1.0; got %g", c.Pipeline.HeadlessGrowthFactor)
	}

	if c.Crawler.MaxURLs < 1 {
		return fmt.Errorf("crawler.max_urls must be at least 1; got %d", c.Crawler.MaxURLs)
	}
	if c.Crawler.BatchSize < 1 {
		return fmt.Errorf("crawler.batch_size must be at least 1; got %d", c.Crawler.BatchSize)
	}

	if c.Discovery.SamplesPerType < 1 {
		return fmt.Errorf("discovery.samples_per_type must be at least 1; got %d", c.Discovery.SamplesPerType)
	}
	if c.Discovery.ScoreThreshold < 0 {
		return fmt.Errorf("discovery.score_threshold cannot be negative")
	}

	switch strings.ToLower(c.Profiles.Backend) {
	case "", "memory", "sqlite", "sqlite3", "postgres", "postgresql", "mysql", "mongodb", "mongo", "redis":
	default:
		return fmt.Errorf("profiles.backend %q is not supported", c.Profiles.Backend)
	}

	return nil
}

// GenerateTemplate returns a commented starter configuration.
func GenerateTemplate() string {
	return `# scrape-site configuration
site:
  url: "https://example.com"

logging:
  level: info    # debug, info, warn, error
  format: text   # text or json

fetch:
  timeout: 30s
  retry_attempts: 3
  retry_delay: 1s
  max_retry_delay: 30s
  rate_limit: 1.0   # requests per second
  rate_burst: 5

browser:
  enabled: false
  max_tabs: 4
  navigate_timeout: 45s
  block_resources: true

llm:
  provider: openai      # openai or ollama
  model: gpt-4o-mini
  api_key: "${OPENAI_API_KEY}"

discovery:
  samples_per_type: 3
  score_threshold: 3.0

pipeline:
  enable_headless: true
  enable_enrichment: true

crawler:
  max_urls: 200
  batch_size: 5
  batch_delay: 2s
  respect_robots: true

profiles:
  backend: memory   # memory, sqlite, postgres, mysql, mongodb, redis
  # dsn: "profiles.db"

output:
  directory: output
  formats: [json]

server:
  host: 0.0.0.0
  port: 8080
`
}
