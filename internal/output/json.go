// internal/output/json.go
package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// JSONWriter writes the record batch as one indented JSON array
type JSONWriter struct{}

func (w *JSONWriter) Extension() string { return ".json" }

func (w *JSONWriter) Write(path string, records []*types.PageRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return nil
}
