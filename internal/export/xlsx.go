package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/deckscan/deckscan/internal/entity"
)

const sheetName = "Decks"

// marshalXLSX renders the records as a single-sheet workbook using the same
// columns as the CSV export.
func marshalXLSX(decks []*entity.Deck) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if index, _ := f.GetSheetIndex(sheetName); index == -1 {
		if _, err := f.NewSheet(sheetName); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(activeIndex)

	for i, h := range Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}

	for i, d := range decks {
		row := i + 2
		for col, v := range recordRow(d.Record) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, err
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 24) // startup
	_ = f.SetColWidth(sheetName, "C", "C", 36) // founders
	_ = f.SetColWidth(sheetName, "E", "F", 44) // niche, usp
	_ = f.SetColWidth(sheetName, "I", "K", 12) // market

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
