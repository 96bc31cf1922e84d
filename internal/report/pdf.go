package report

import (
	"bytes"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin    = 20.0
	pdfLineH     = 7.0
	pdfPageWidth = 210.0 - 2*pdfMargin
)

// The core PDF fonts are cp1252 encoded and have no rupee glyph.
var pdfReplacer = strings.NewReplacer("₹", "Rs. ")

func renderPDF(buf *bytes.Buffer, a Analysis) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetTitle(a.Title+" Report", true)
	pdf.SetCreator("AgenicAI", true)
	pdf.SetCreationDate(a.Date)
	pdf.AddPage()

	cp := pdf.UnicodeTranslatorFromDescriptor("")
	tr := func(s string) string { return cp(pdfReplacer.Replace(s)) }

	heading := func(s string, size float64) {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", size)
		pdf.SetTextColor(0, 58, 136)
		pdf.CellFormat(0, pdfLineH+2, tr(s), "", 1, "L", false, 0, "")
		pdf.SetTextColor(51, 51, 51)
		pdf.SetFont("Helvetica", "", 11)
	}
	bullets := func(lines []string) {
		for _, line := range lines {
			pdf.MultiCell(0, pdfLineH, tr("• "+line), "", "L", false)
		}
	}

	heading(a.Title+" Report", 18)
	pdf.SetDrawColor(0, 58, 136)
	pdf.Line(pdfMargin, pdf.GetY(), pdfMargin+pdfPageWidth, pdf.GetY())

	heading("Executive Summary", 14)
	bullets(a.Summary)

	heading("Key Metrics", 14)
	pdf.SetFillColor(240, 244, 250)
	for _, m := range a.Metrics {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, pdfLineH, tr(m.Label), "", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, pdfLineH, tr(m.Value+" ("+m.Note+")"), "", 1, "L", true, 0, "")
		pdf.Ln(1)
	}

	heading("Top Candidates", 14)
	widths := []float64{18, 42, 70, pdfPageWidth - 130}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(0, 58, 136)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range []string{"Rank", "Molecule Name", "Indication", "Market Opportunity"} {
		pdf.CellFormat(widths[i], pdfLineH+1, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(51, 51, 51)
	for _, c := range a.Candidates {
		for i, v := range []string{c.Rank, c.Name, c.Indication, c.Market} {
			pdf.CellFormat(widths[i], pdfLineH+1, tr(v), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(a.Findings) > 0 {
		heading("Agent Findings", 14)
		for _, f := range a.Findings {
			pdf.SetFont("Helvetica", "B", 11)
			pdf.CellFormat(0, pdfLineH, tr(f.Agent), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 11)
			bullets(f.Findings)
		}
	}

	heading("Next Steps", 14)
	bullets(a.NextSteps)

	heading("Analysis Date", 14)
	pdf.CellFormat(0, pdfLineH, FormatDate(a.Date), "", 1, "L", false, 0, "")

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.Output(buf)
}
