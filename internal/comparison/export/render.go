package export

import (
	"bytes"
	"context"
	"fmt"
)

// Supported output formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
)

// Document is a rendered export ready to be served.
type Document struct {
	Data        []byte
	ContentType string
	Extension   string
}

// Render produces the workbook in the requested format. pdf may be nil
// unless format is FormatPDF.
func Render(ctx context.Context, wb Workbook, format string, pdf PDFRenderer) (Document, error) {
	switch format {
	case FormatXLSX, "":
		data, err := RenderXLSX(wb)
		if err != nil {
			return Document{}, err
		}
		return Document{Data: data, ContentType: ContentTypeXLSX, Extension: FormatXLSX}, nil
	case FormatCSV:
		var buf bytes.Buffer
		if err := WriteCSV(&buf, wb); err != nil {
			return Document{}, err
		}
		return Document{Data: buf.Bytes(), ContentType: "text/csv; charset=utf-8", Extension: FormatCSV}, nil
	case FormatPDF:
		data, err := RenderPDF(ctx, pdf, wb, "Financial Comparison")
		if err != nil {
			return Document{}, err
		}
		return Document{Data: data, ContentType: "application/pdf", Extension: FormatPDF}, nil
	default:
		return Document{}, fmt.Errorf("export: unsupported format %q", format)
	}
}
