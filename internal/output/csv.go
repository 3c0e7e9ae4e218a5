// internal/output/csv.go
package output

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// CSVWriter writes the flattened record batch with a header row
type CSVWriter struct{}

func (w *CSVWriter) Extension() string { return ".csv" }

func (w *CSVWriter) Write(path string, records []*types.PageRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(flatColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range records {
		row := flattenRecord(rec)
		values := make([]string, len(flatColumns))
		for i, column := range flatColumns {
			values[i] = row[column]
		}
		if err := writer.Write(values); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", rec.URL, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
