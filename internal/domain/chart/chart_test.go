package chart

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/thermostraw/internal/domain/fraction"
	apperrors "github.com/yanqian/thermostraw/pkg/errors"
)

type stubRenderer struct {
	render func(points []Point, width, height int) ([]byte, error)
}

func (s stubRenderer) Render(points []Point, width, height int) ([]byte, error) {
	return s.render(points, width, height)
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestBuildInterpolatesBetweenNeighbours(t *testing.T) {
	points := Build([]Input{
		{Name: "a", Value: 10, Min: 5, Max: 15},
		{Name: "b", Value: 20, Min: 15, Max: 25},
	})

	require.Len(t, points, 6)
	require.False(t, points[0].IsInterpolated)
	require.False(t, points[5].IsInterpolated)

	want := []float64{12, 14, 16, 18}
	for j, v := range want {
		p := points[j+1]
		require.True(t, p.IsInterpolated)
		require.False(t, p.InRange)
		require.InDelta(t, v, p.Value, 1e-9)
		require.InDelta(t, float64(j+1)/5, p.X, 1e-9)
	}
	require.Equal(t, "a_1", points[1].Name)
	require.InDelta(t, 7, points[1].Min, 1e-9)
	require.InDelta(t, 17, points[1].Max, 1e-9)
	require.InDelta(t, 6, points[1].Bands[0].Low, 1e-9)
}

func TestBuildSinglePointHasNoInterpolation(t *testing.T) {
	points := Build([]Input{{Name: "a", Value: 10, Min: 5, Max: 15}})

	require.Len(t, points, 1)
	require.True(t, points[0].InRange)
	require.Nil(t, Build(nil))
}

func TestBandsClampToAxis(t *testing.T) {
	bands := Bands(10, 20)
	require.Equal(t, Band{Margin: 3, Low: 7, High: 23}, bands[1])

	low := Bands(1, 5)
	require.Equal(t, 0.0, low[3].Low)
	require.Equal(t, 0.0, low[1].Low)
	require.Equal(t, 0.0, low[0].Low)

	high := Bands(50, 65)
	require.Equal(t, AxisMax, high[3].High)
	require.Equal(t, 66.0, high[0].High)
}

func TestInputsFromUsesDefaultRanges(t *testing.T) {
	inputs := InputsFrom(fraction.Default(), map[string][2]float64{fraction.Taux2mm: {10, 20}})

	require.Len(t, inputs, 5)
	require.Equal(t, fraction.Taux2mm, inputs[0].Name)
	require.Equal(t, 10.0, inputs[0].Min)
	require.Equal(t, 53.0, inputs[1].Min)
	require.Equal(t, 58.0, inputs[1].Max)
	require.Equal(t, fraction.Taux0, inputs[4].Name)
	require.Equal(t, 3.01, inputs[4].Value)
}

func TestMarkerAndOutOfRange(t *testing.T) {
	points := Build([]Input{
		{Name: "a", Value: 10, Min: 5, Max: 15},
		{Name: "b", Value: 30, Min: 15, Max: 25},
	})

	require.Equal(t, MarkerInRange, MarkerFor(points[0]))
	require.Equal(t, MarkerNone, MarkerFor(points[1]))
	require.Equal(t, MarkerOutOfRange, MarkerFor(points[5]))
	require.True(t, AnyOutOfRange(points))
	require.False(t, AnyOutOfRange(points[:5]))
	require.Len(t, Real(points), 2)
}

func TestTooltip(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		deviation  float64
		confidence Confidence
	}{
		{"in range", 15, 0, ConfidenceVeryHigh},
		{"just below", 9.5, -0.5, ConfidenceHigh},
		{"above by two", 22, 2, ConfidenceMedium},
		{"below by five", 5, -5, ConfidenceLow},
		{"far above", 35, 15, ConfidenceVeryLow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Build([]Input{{Name: "a", Label: "A", Value: tc.value, Min: 10, Max: 20}})[0]
			tip, ok := Tooltip(p)
			require.True(t, ok)
			require.InDelta(t, tc.deviation, tip.Deviation, 1e-9)
			require.Equal(t, tc.confidence, tip.Confidence)
			require.Equal(t, ConfidenceLabel(tc.confidence), tip.ConfidenceLabel)
			if tc.deviation == 0 {
				require.Empty(t, tip.DeviationText)
			} else {
				require.NotEmpty(t, tip.DeviationText)
			}
		})
	}
}

func TestTooltipSkipsInterpolatedPoints(t *testing.T) {
	points := Build([]Input{
		{Name: "a", Value: 10, Min: 5, Max: 15},
		{Name: "b", Value: 20, Min: 15, Max: 25},
	})

	_, ok := Tooltip(points[2])
	require.False(t, ok)
}

func TestExportBlankImageFails(t *testing.T) {
	raw := solidPNG(t, 40, 20, color.White)
	exp := NewExporter(stubRenderer{render: func([]Point, int, int) ([]byte, error) { return raw, nil }}, 40, 20, 0)

	out := exp.Export(nil, Capability{Clipboard: true})
	require.Equal(t, MethodFailed, out.Method)
	require.Empty(t, out.PNG)
	require.NotEmpty(t, out.Message)

	_, err := exp.Capture(nil)
	require.True(t, apperrors.IsCode(err, "capture_failed"))
}

func TestExportRenderErrorFails(t *testing.T) {
	exp := NewExporter(stubRenderer{render: func([]Point, int, int) ([]byte, error) {
		return nil, errors.New("boom")
	}}, 40, 20, 0)

	out := exp.Export(nil, Capability{})
	require.Equal(t, MethodFailed, out.Method)
}

func TestExportDownscalesPastCeiling(t *testing.T) {
	raw := solidPNG(t, 1200, 1000, color.RGBA{R: 20, G: 80, B: 200, A: 255})
	exp := NewExporter(stubRenderer{render: func([]Point, int, int) ([]byte, error) { return raw, nil }}, 1200, 1000, DefaultPixelCeiling)

	out := exp.Export(nil, Capability{})
	require.Equal(t, MethodDownload, out.Method)
	require.LessOrEqual(t, out.Width*out.Height, DefaultPixelCeiling)
	require.Greater(t, out.Width, out.Height)

	img, err := png.Decode(bytes.NewReader(out.PNG))
	require.NoError(t, err)
	require.Equal(t, out.Width, img.Bounds().Dx())
}

func TestExportKeepsSmallImagesAndUsesClipboard(t *testing.T) {
	raw := solidPNG(t, 30, 10, color.Black)
	exp := NewExporter(stubRenderer{render: func([]Point, int, int) ([]byte, error) { return raw, nil }}, 30, 10, 0)

	out := exp.Export(nil, Capability{Clipboard: true})
	require.Equal(t, MethodClipboard, out.Method)
	require.Equal(t, raw, out.PNG)
	require.Equal(t, 30, out.Width)
	require.Equal(t, 10, out.Height)
}

func TestGoChartRendererProducesImage(t *testing.T) {
	s := fraction.Default()
	s.Taux0 = 9
	points := Build(InputsFrom(s, nil))

	raw, err := NewGoChartRenderer().Render(points, 600, 300)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 600, img.Bounds().Dx())
	require.Equal(t, 300, img.Bounds().Dy())
	require.False(t, IsBlank(img))
}

func TestGoChartRendererRejectsEmptyInput(t *testing.T) {
	_, err := NewGoChartRenderer().Render(nil, 600, 300)
	require.Error(t, err)
}
