package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV serialises the Summary sheet of wb.
func WriteCSV(w io.Writer, wb Workbook) error {
	sheet, ok := wb.Sheet(SheetSummary)
	if !ok {
		return fmt.Errorf("export: workbook has no %s sheet", SheetSummary)
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(sheet.Header); err != nil {
		return err
	}
	for _, row := range sheet.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
