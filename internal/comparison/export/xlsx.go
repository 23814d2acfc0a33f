package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the media type of RenderXLSX output.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RenderXLSX writes every sheet of wb into a spreadsheet.
func RenderXLSX(wb Workbook) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("export: header style: %w", err)
	}

	defaultSheet := f.GetSheetName(0)
	for i, sheet := range wb.Sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				return nil, fmt.Errorf("export: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return nil, fmt.Errorf("export: add sheet %s: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet, headerStyle); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	for col, title := range sheet.Header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet.Name, cell, title); err != nil {
			return fmt.Errorf("export: %s header: %w", sheet.Name, err)
		}
	}
	if len(sheet.Header) > 0 {
		if err := f.SetRowStyle(sheet.Name, 1, 1, headerStyle); err != nil {
			return fmt.Errorf("export: %s header style: %w", sheet.Name, err)
		}
		last, err := excelize.ColumnNumberToName(len(sheet.Header))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet.Name, "A", last, 18); err != nil {
			return fmt.Errorf("export: %s column width: %w", sheet.Name, err)
		}
	}
	for r, row := range sheet.Rows {
		for col, value := range row {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet.Name, cell, value); err != nil {
				return fmt.Errorf("export: %s!%s: %w", sheet.Name, cell, err)
			}
		}
	}
	return nil
}
