// internal/output/xml.go
package output

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// XMLWriter writes the flattened record batch as <pages><page>... documents
type XMLWriter struct{}

type xmlField struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlPage struct {
	XMLName xml.Name   `xml:"page"`
	URL     string     `xml:"url,attr"`
	Fields  []xmlField `xml:"field"`
}

type xmlDocument struct {
	XMLName xml.Name  `xml:"pages"`
	Pages   []xmlPage `xml:"page"`
}

func (w *XMLWriter) Extension() string { return ".xml" }

func (w *XMLWriter) Write(path string, records []*types.PageRecord) error {
	doc := xmlDocument{Pages: make([]xmlPage, 0, len(records))}
	for _, rec := range records {
		row := flattenRecord(rec)
		page := xmlPage{URL: rec.URL}
		for _, column := range flatColumns {
			if column == "url" || row[column] == "" {
				continue
			}
			page.Fields = append(page.Fields, xmlField{Name: column, Value: row[column]})
		}
		doc.Pages = append(doc.Pages, page)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.WriteString(xml.Header); err != nil {
		return err
	}
	encoder := xml.NewEncoder(file)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return encoder.Close()
}
