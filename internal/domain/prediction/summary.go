package prediction

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yanqian/thermostraw/internal/domain/chart"
	"github.com/yanqian/thermostraw/internal/domain/fraction"
)

// Unit of thermal conductivity.
const Unit = "W/(m·K)"

// reportTimeLayout is the date format used in reports.
const reportTimeLayout = "02/01/2006 15:04:05"

// FormatLambda renders a conductivity with four decimals and its unit.
func FormatLambda(v float64) string {
	return fmt.Sprintf("%.4f %s", v, Unit)
}

// FormatUncertainty renders a half-width as ±value.
func FormatUncertainty(v float64) string {
	return fmt.Sprintf("±%.4f %s", v, Unit)
}

// FormatThreshold renders a threshold with three decimals.
func FormatThreshold(v float64) string {
	return fmt.Sprintf("%.3f %s", v, Unit)
}

// Gauge is lambda as a percentage of the threshold, capped at 100.
func Gauge(lambda, threshold float64) float64 {
	if threshold <= 0 {
		return 100
	}
	return math.Max(0, math.Min(100, lambda/threshold*100))
}

// Summarize builds the summary view. The badge always uses the active threshold, not the
// threshold echoed in the response.
func Summarize(p Prediction, sub fraction.Submission, threshold float64, points []chart.Point, model Model) Summary {
	lines := make([]FractionLine, 0, len(fraction.Names))
	for _, name := range fraction.Names {
		lines = append(lines, FractionLine{
			Name:    name,
			Label:   fraction.Label(name),
			Display: fraction.FormatPercent(sub.Fractions.Get(name)),
		})
	}
	return Summary{
		BatchNumber:   sub.BatchNumber,
		Timestamp:     sub.Timestamp,
		Fractions:     lines,
		Total:         fraction.FormatPercent(sub.Fractions.Total()),
		Lambda:        FormatLambda(p.LambdaPredicted),
		Uncertainty:   FormatUncertainty(p.ConfidenceInterval),
		IntervalLow:   FormatLambda(p.LambdaPredicted - p.ConfidenceInterval),
		IntervalHigh:  FormatLambda(p.LambdaPredicted + p.ConfidenceInterval),
		Threshold:     threshold,
		ThresholdText: FormatThreshold(threshold),
		Badge:         Badge(p.LambdaPredicted, threshold),
		BackendStatus: ParseStatus(p.Status),
		Guidance:      GuidanceFor(TierFor(p, threshold, points)),
		GaugePercent:  Gauge(p.LambdaPredicted, threshold),
		Model:         model,
	}
}

// BadgeLabel is the display text of a badge.
func BadgeLabel(s Status) string {
	switch s {
	case StatusCompliant:
		return "Compliant"
	case StatusAttention:
		return "Attention"
	case StatusNonCompliant:
		return "Non-compliant"
	default:
		return "Unknown"
	}
}

// ReportText renders the plain-text analysis report.
func ReportText(s Summary) string {
	const rule = "======================================="
	batch := s.BatchNumber
	if batch == "" {
		batch = "-"
	}

	var b strings.Builder
	b.WriteString("THERMOSTRAW ANALYSIS REPORT\n")
	b.WriteString(rule + "\n\n")

	b.WriteString("GENERAL INFORMATION\n")
	fmt.Fprintf(&b, "- Batch number: %s\n", batch)
	fmt.Fprintf(&b, "- Date and time: %s\n", formatTimestamp(s.Timestamp))
	fmt.Fprintf(&b, "- Model: %s with indicator %s\n\n", s.Model.Name, s.Model.Indicator)

	b.WriteString("PARTICLE SIZE DISTRIBUTION\n")
	for _, line := range s.Fractions {
		fmt.Fprintf(&b, "- %s: %s\n", line.Label, line.Display)
	}
	fmt.Fprintf(&b, "- Total: %s\n\n", s.Total)

	b.WriteString("PREDICTION RESULTS\n")
	fmt.Fprintf(&b, "- Predicted thermal conductivity: %s\n", s.Lambda)
	fmt.Fprintf(&b, "- Uncertainty (95%% CI): %s\n", s.Uncertainty)
	fmt.Fprintf(&b, "- Threshold: %s\n", s.ThresholdText)
	fmt.Fprintf(&b, "- Status: %s\n\n", BadgeLabel(s.Badge))

	if len(s.Model.Parameters) > 0 {
		b.WriteString("MODEL PARAMETERS\n")
		for _, p := range s.Model.Parameters {
			fmt.Fprintf(&b, "- %s = %s\n", p.Name, p.Value)
		}
		b.WriteString("\n")
	}

	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "Report generated by ThermoStraw Analyzer, model %s", s.Model.Name)
	return b.String()
}

// Copy hands the report to the client. It never fails: without clipboard support the
// client receives the text for manual selection.
func Copy(s Summary, clipboard bool) CopyOutcome {
	text := ReportText(s)
	if clipboard {
		return CopyOutcome{Method: CopyClipboard, Text: text, Message: "Summary copied to the clipboard"}
	}
	return CopyOutcome{Method: CopyManual, Text: text, Message: "Clipboard unavailable, select the text to copy it"}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(reportTimeLayout)
}
