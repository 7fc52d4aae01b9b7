package register

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Printer produces the physical or printable copy of a close-out report.
// Failures are reported but the close-out workflow never depends on them.
type Printer interface {
	Print(ctx context.Context, report *Report) error
}

// NopPrinter skips printing
type NopPrinter struct{}

// Print implements Printer
func (NopPrinter) Print(ctx context.Context, report *Report) error {
	slog.Debug("Printing disabled", "report_id", report.ID)
	return nil
}

// PDFPrinter renders the report to a PDF and hands it to storage, where the
// host print spooler or the operator picks it up
type PDFPrinter struct {
	storage Storage
}

// NewPDFPrinter creates a PDFPrinter writing into storage
func NewPDFPrinter(storage Storage) *PDFPrinter {
	return &PDFPrinter{storage: storage}
}

// Print implements Printer
func (p *PDFPrinter) Print(ctx context.Context, report *Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := RenderPDF(report)
	if err != nil {
		return err
	}

	name, err := p.storage.Save(ReportFilename(report.GeneratedAt, "pdf"), data)
	if err != nil {
		return fmt.Errorf("storing pdf: %w", err)
	}
	slog.Info("Close-out PDF written", "report_id", report.ID, "file", name)
	return nil
}

// RenderPDF lays out the Markdown body of report on A4 pages
func RenderPDF(report *Report) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentW := pageW - left - right

	for _, line := range strings.Split(report.Markdown, "\n") {
		switch {
		case strings.HasPrefix(line, "# "):
			pdf.SetFont("Helvetica", "B", 16)
			pdf.CellFormat(contentW, 9, tr(strings.TrimPrefix(line, "# ")), "", 1, "C", false, 0, "")
			pdf.Ln(2)
		case strings.HasPrefix(line, "## "):
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "B", 12)
			pdf.CellFormat(contentW, 7, tr(strings.TrimPrefix(line, "## ")), "B", 1, "L", false, 0, "")
			pdf.Ln(1)
		case strings.TrimSpace(line) == "":
			pdf.Ln(2)
		default:
			indent := float64(len(line)-len(strings.TrimLeft(line, " "))) * 2
			text := strings.TrimLeft(line, " ")
			if strings.HasPrefix(text, "- ") {
				text = "• " + strings.TrimPrefix(text, "- ")
			}
			style := ""
			if strings.Contains(text, "**") {
				style = "B"
			}
			pdf.SetFont("Helvetica", style, 9)
			pdf.SetX(left + indent)
			pdf.MultiCell(contentW-indent, 5, tr(strings.ReplaceAll(text, "**", "")), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}
