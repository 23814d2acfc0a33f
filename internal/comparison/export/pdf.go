package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/fincompare/fincompare/web"
)

const pdfTemplate = "comparison_pdf.html"

// PDFRenderer converts HTML into PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

type pdfCell struct {
	Text    string
	Numeric bool
}

type pdfSheet struct {
	Name   string
	Header []string
	Rows   [][]pdfCell
}

type pdfView struct {
	Title       string
	GeneratedAt string
	Sheets      []pdfSheet
}

var pdfTemplates = template.Must(template.New(pdfTemplate).ParseFS(web.Templates, "templates/reports/"+pdfTemplate))

// RenderHTML lays out wb as a printable HTML document.
func RenderHTML(wb Workbook, title string, now time.Time) (string, error) {
	view := pdfView{Title: title, GeneratedAt: now.Format("2006-01-02 15:04 MST")}
	for _, sheet := range wb.Sheets {
		ps := pdfSheet{Name: sheet.Name, Header: sheet.Header}
		for _, row := range sheet.Rows {
			cells := make([]pdfCell, len(row))
			for i, v := range row {
				cells[i] = pdfCell{Text: displayCell(v)}
				if _, ok := v.(float64); ok {
					cells[i].Numeric = true
				}
			}
			ps.Rows = append(ps.Rows, cells)
		}
		view.Sheets = append(view.Sheets, ps)
	}
	var buf bytes.Buffer
	if err := pdfTemplates.ExecuteTemplate(&buf, pdfTemplate, view); err != nil {
		return "", fmt.Errorf("export: render html: %w", err)
	}
	return buf.String(), nil
}

// RenderPDF renders wb through renderer.
func RenderPDF(ctx context.Context, renderer PDFRenderer, wb Workbook, title string) ([]byte, error) {
	if renderer == nil {
		return nil, errors.New("export: pdf renderer not configured")
	}
	html, err := RenderHTML(wb, title, time.Now())
	if err != nil {
		return nil, err
	}
	data, err := renderer.RenderHTML(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("export: render pdf: %w", err)
	}
	return data, nil
}

func displayCell(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	return formatCell(v)
}
