package chart

import (
	"bytes"
	"fmt"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Renderer rasterises chart points to PNG bytes.
type Renderer interface {
	Render(points []Point, width, height int) ([]byte, error)
}

// alertOffset lifts the alert badge above an out-of-range marker.
const alertOffset = 4.0

var (
	colorSample   = drawing.ColorFromHex("3b82f6")
	colorInRange  = drawing.ColorFromHex("22c55e")
	colorOutRange = drawing.ColorFromHex("ef4444")

	// Band line colours and opacities, indexed like Margins.
	bandColors = [4]drawing.Color{
		drawing.ColorFromHex("166534").WithAlpha(153),
		drawing.ColorFromHex("22c55e").WithAlpha(128),
		drawing.ColorFromHex("facc15").WithAlpha(102),
		drawing.ColorFromHex("f97316").WithAlpha(77),
	}
	bandNames = [4]string{"±1 %", "±3 %", "±6 %", "±10 %"}
)

// GoChartRenderer draws the distribution chart with go-chart.
type GoChartRenderer struct {
	Title string
}

// NewGoChartRenderer constructs the default renderer.
func NewGoChartRenderer() *GoChartRenderer {
	return &GoChartRenderer{Title: "Particle size distribution vs optimal ranges"}
}

// Render draws the chart synchronously; the returned bytes are the complete image.
func (r *GoChartRenderer) Render(points []Point, width, height int) ([]byte, error) {
	actual := Real(points)
	if len(actual) == 0 {
		return nil, fmt.Errorf("render chart: no points")
	}

	xs := make([]float64, len(points))
	values := make([]float64, len(points))
	mins := make([]float64, len(points))
	maxs := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		values[i] = p.Value
		mins[i] = p.Min
		maxs[i] = p.Max
	}

	series := make([]gochart.Series, 0, 16)

	// Widest band first so the narrow ones are drawn on top.
	for k := len(Margins) - 1; k >= 0; k-- {
		lows := make([]float64, len(points))
		highs := make([]float64, len(points))
		for i, p := range points {
			lows[i] = p.Bands[k].Low
			highs[i] = p.Bands[k].High
		}
		style := gochart.Style{StrokeColor: bandColors[k], StrokeWidth: 1}
		if k == 0 {
			style.StrokeWidth = 1.5
		}
		series = append(series,
			gochart.ContinuousSeries{Name: bandNames[k] + " low", XValues: xs, YValues: lows, Style: style},
			gochart.ContinuousSeries{Name: bandNames[k] + " high", XValues: xs, YValues: highs, Style: style},
		)
	}

	thresholdStyle := gochart.Style{
		StrokeColor:     drawing.ColorBlack,
		StrokeWidth:     1.5,
		StrokeDashArray: []float64{4, 4},
	}
	series = append(series,
		gochart.ContinuousSeries{Name: "Minimum", XValues: xs, YValues: mins, Style: thresholdStyle},
		gochart.ContinuousSeries{Name: "Maximum", XValues: xs, YValues: maxs, Style: thresholdStyle},
		gochart.ContinuousSeries{
			Name:    "Sample",
			XValues: xs,
			YValues: values,
			Style:   gochart.Style{StrokeColor: colorSample, StrokeWidth: 2.5},
		},
	)

	var (
		inX, inY, outX, outY []float64
		alerts               []gochart.Value2
	)
	for _, p := range actual {
		switch MarkerFor(p) {
		case MarkerInRange:
			inX = append(inX, p.X)
			inY = append(inY, p.Value)
		case MarkerOutOfRange:
			outX = append(outX, p.X)
			outY = append(outY, p.Value)
			alerts = append(alerts, gochart.Value2{XValue: p.X, YValue: clamp(p.Value + alertOffset), Label: "!"})
		}
	}
	if len(inX) > 0 {
		series = append(series, gochart.ContinuousSeries{Name: "In range", XValues: inX, YValues: inY, Style: markerStyle(colorInRange)})
	}
	if len(outX) > 0 {
		series = append(series, gochart.ContinuousSeries{Name: "Out of range", XValues: outX, YValues: outY, Style: markerStyle(colorOutRange)})
		series = append(series, gochart.AnnotationSeries{
			Name:        "Alerts",
			Annotations: alerts,
			Style: gochart.Style{
				FillColor:   colorOutRange,
				StrokeColor: colorOutRange,
				FontColor:   drawing.ColorWhite,
				FontSize:    10,
			},
		})
	}

	ticks := make([]gochart.Tick, 0, len(actual))
	for _, p := range actual {
		ticks = append(ticks, gochart.Tick{Value: p.X, Label: p.Label})
	}
	yTicks := make([]gochart.Tick, 0, 8)
	for v := AxisMin; v <= AxisMax; v += 10 {
		yTicks = append(yTicks, gochart.Tick{Value: v, Label: fmt.Sprintf("%.0f", v)})
	}

	ch := gochart.Chart{
		Title:      r.Title,
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 20, Right: 30, Bottom: 10}},
		XAxis: gochart.XAxis{
			Range: &gochart.ContinuousRange{Min: actual[0].X - 0.3, Max: actual[len(actual)-1].X + 0.3},
			Ticks: ticks,
		},
		YAxis: gochart.YAxis{
			Name:  "Percentage (%)",
			Range: &gochart.ContinuousRange{Min: AxisMin, Max: AxisMax},
			Ticks: yTicks,
		},
		Series: series,
	}

	var buf bytes.Buffer
	if err := ch.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// markerStyle renders points only, with no connecting line.
func markerStyle(col drawing.Color) gochart.Style {
	return gochart.Style{
		StrokeWidth: gochart.Disabled,
		StrokeColor: drawing.ColorTransparent,
		DotWidth:    6,
		DotColor:    col,
	}
}

var _ Renderer = (*GoChartRenderer)(nil)
