// internal/output/excel.go
package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// excelMaxCellLength is the hard cell size limit of the xlsx format
const excelMaxCellLength = 32767

// ExcelWriter writes the flattened record batch to one worksheet with a
// frozen, auto-filtered header row.
type ExcelWriter struct{}

func (w *ExcelWriter) Extension() string { return ".xlsx" }

func (w *ExcelWriter) Write(path string, records []*types.PageRecord) error {
	file := excelize.NewFile()
	defer file.Close()

	const sheet = "Pages"
	file.SetSheetName(file.GetSheetName(0), sheet)

	for i, column := range flatColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, column); err != nil {
			return err
		}
	}

	for rowIdx, rec := range records {
		row := flattenRecord(rec)
		for colIdx, column := range flatColumns {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			value := row[column]
			if len(value) > excelMaxCellLength {
				value = value[:excelMaxCellLength]
			}
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to set cell for %s: %w", rec.URL, err)
			}
		}
	}

	if len(records) > 0 {
		lastCell, err := excelize.CoordinatesToCellName(len(flatColumns), len(records)+1)
		if err == nil {
			_ = file.AutoFilter(sheet, "A1:"+lastCell, nil)
		}
	}
	_ = file.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
