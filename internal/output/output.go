// internal/output/output.go

// Package output exports crawl results. One Manager fans a record batch out
// to every configured format; tabular formats share a single flatten rule so
// their columns stay aligned.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Burrhanburak/scrape-site/internal/utils"
	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// Config selects formats and destination
type Config struct {
	Directory string   `yaml:"directory" json:"directory"`
	Formats   []string `yaml:"formats" json:"formats"`

	// BaseName overrides the hostname-plus-timestamp file naming.
	BaseName string `yaml:"base_name,omitempty" json:"base_name,omitempty"`
}

// DefaultConfig returns the settings used when the output section is absent
func DefaultConfig() Config {
	return Config{
		Directory: "output",
		Formats:   []string{"json"},
	}
}

// Writer persists one record batch to one destination file
type Writer interface {
	Write(path string, records []*types.PageRecord) error
	Extension() string
}

// Manager writes record batches in every configured format
type Manager struct {
	config Config
	logger utils.Logger
}

// NewManager creates an output manager, validating the format list
func NewManager(cfg Config, logger utils.Logger) (*Manager, error) {
	def := DefaultConfig()
	if cfg.Directory == "" {
		cfg.Directory = def.Directory
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = def.Formats
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	for _, format := range cfg.Formats {
		if _, err := writerFor(format); err != nil {
			return nil, err
		}
	}
	return &Manager{config: cfg, logger: logger}, nil
}

func writerFor(format string) (Writer, error) {
	switch types.OutputFormat(strings.ToLower(format)) {
	case types.FormatJSON:
		return &JSONWriter{}, nil
	case types.FormatCSV:
		return &CSVWriter{}, nil
	case types.FormatExcel:
		return &ExcelWriter{}, nil
	case types.FormatXML:
		return &XMLWriter{}, nil
	case types.FormatYAML:
		return &YAMLWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteAll writes the batch in every configured format and returns the
// produced file paths. The first write failure aborts the remaining formats.
func (m *Manager) WriteAll(siteURL string, records []*types.PageRecord) ([]string, error) {
	if err := os.MkdirAll(m.config.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths []string
	for _, format := range m.config.Formats {
		writer, err := writerFor(format)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(m.config.Directory, m.fileName(siteURL, writer.Extension()))
		if err := writer.Write(path, records); err != nil {
			return paths, fmt.Errorf("failed to write %s output: %w", format, err)
		}
		m.logger.WithFields(map[string]interface{}{
			"format":  format,
			"path":    path,
			"records": len(records),
		}).Info("output written")
		paths = append(paths, path)
	}
	return paths, nil
}

func (m *Manager) fileName(siteURL, extension string) string {
	if m.config.BaseName != "" {
		return utils.CleanFileName(m.config.BaseName) + extension
	}
	return utils.GenerateOutputFileName(siteURL, extension)
}

// flatColumns is the fixed column order shared by the tabular writers
var flatColumns = []string{
	"url", "pageType", "title", "metaDescription", "canonicalUrl", "language",
	"price", "currency", "stockStatus", "category", "features",
	"publishDate", "author", "blogCategories", "tags",
	"imageCount", "firstImage", "breadcrumbs", "fetchStage", "rendered",
	"error", "scrapedAt",
}

// flattenRecord projects a record onto the shared column set. Multi-valued
// fields are pipe-joined; absent fields are empty strings.
func flattenRecord(rec *types.PageRecord) map[string]string {
	row := map[string]string{
		"url":             rec.URL,
		"pageType":        string(rec.PageTypeGuess),
		"title":           types.StringVal(rec.Title),
		"metaDescription": types.StringVal(rec.MetaDescription),
		"canonicalUrl":    types.StringVal(rec.CanonicalURL),
		"language":        types.StringVal(rec.Language),
		"fetchStage":      string(rec.FetchStage),
		"error":           types.StringVal(rec.Error),
		"scrapedAt":       rec.ScrapedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if rec.Rendered {
		row["rendered"] = "true"
	} else {
		row["rendered"] = "false"
	}
	if p := rec.Product; p != nil {
		row["price"] = types.StringVal(p.Price)
		row["currency"] = types.StringVal(p.Currency)
		row["stockStatus"] = types.StringVal(p.StockStatus)
		row["category"] = types.StringVal(p.Category)
		row["features"] = strings.Join(p.Features, "|")
	}
	if b := rec.Blog; b != nil {
		row["publishDate"] = types.StringVal(b.PublishDate)
		row["author"] = types.StringVal(b.Author)
		row["blogCategories"] = strings.Join(b.Categories, "|")
		row["tags"] = strings.Join(b.Tags, "|")
	}
	if c := rec.Category; c != nil && row["category"] == "" {
		row["category"] = types.StringVal(c.Name)
	}
	row["imageCount"] = fmt.Sprintf("%d", len(rec.Images))
	if len(rec.Images) > 0 {
		row["firstImage"] = rec.Images[0].Src
	}
	if len(rec.Breadcrumbs) > 0 {
		crumbs := make([]string, len(rec.Breadcrumbs))
		for i, crumb := range rec.Breadcrumbs {
			crumbs[i] = crumb.Text
		}
		row["breadcrumbs"] = strings.Join(crumbs, " > ")
	}
	return row
}
