package document

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/yanqian/thermostraw/internal/domain/prediction"
)

const chartImageName = "chart"

// Renderer produces the downloadable PDF report and XLSX history.
type Renderer struct {
	title string
	now   func() time.Time
}

// NewRenderer constructs the document renderer.
func NewRenderer() *Renderer {
	return &Renderer{title: "ThermoStraw Analysis Report", now: time.Now}
}

// ReportPDF lays out the summary on one A4 page with the chart below it.
func (r *Renderer) ReportPDF(summary prediction.Summary, chartPNG []byte) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(r.title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(r.title))
	pdf.Ln(12)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, tr(title))
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
	}
	row := func(label, value string) {
		pdf.CellFormat(70, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(value), "", 1, "L", false, 0, "")
	}

	batch := summary.BatchNumber
	if batch == "" {
		batch = "-"
	}
	timestamp := "-"
	if !summary.Timestamp.IsZero() {
		timestamp = summary.Timestamp.UTC().Format("02/01/2006 15:04:05")
	}

	section("General information")
	row("Batch number", batch)
	row("Date and time", timestamp)
	row("Model", fmt.Sprintf("%s (%s)", summary.Model.Name, summary.Model.Indicator))
	pdf.Ln(3)

	section("Particle size distribution")
	for _, line := range summary.Fractions {
		row(line.Label, line.Display)
	}
	row("Total", summary.Total)
	pdf.Ln(3)

	section("Prediction results")
	row("Predicted thermal conductivity", summary.Lambda)
	row("Uncertainty (95% CI)", summary.Uncertainty)
	row("Interval", summary.IntervalLow+" to "+summary.IntervalHigh)
	row("Threshold", summary.ThresholdText)
	row("Status", prediction.BadgeLabel(summary.Badge))
	pdf.Ln(3)

	section(summary.Guidance.Title)
	pdf.MultiCell(0, 6, tr(summary.Guidance.Headline), "", "L", false)
	for _, advice := range summary.Guidance.Advisories {
		pdf.MultiCell(0, 6, tr("- "+advice), "", "L", false)
	}
	pdf.Ln(3)

	if len(summary.Model.Parameters) > 0 {
		section("Model parameters")
		for _, p := range summary.Model.Parameters {
			row(p.Name, p.Value)
		}
		pdf.Ln(3)
	}

	if len(chartPNG) > 0 {
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader(chartImageName, opts, bytes.NewReader(chartPNG))
		if pdf.Ok() {
			left, _, right, _ := pdf.GetMargins()
			pageW, _ := pdf.GetPageSize()
			pdf.ImageOptions(chartImageName, left, pdf.GetY(), pageW-left-right, 0, true, opts, 0, "")
		}
	}

	pdf.SetY(-15)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Generated by ThermoStraw Analyzer on %s", r.now().UTC().Format(time.RFC3339))), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
