// internal/output/yaml.go
package output

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// YAMLWriter writes the record batch as a YAML sequence
type YAMLWriter struct{}

func (w *YAMLWriter) Extension() string { return ".yaml" }

func (w *YAMLWriter) Write(path string, records []*types.PageRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return encoder.Close()
}
