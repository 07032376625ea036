package chart

import (
	"bytes"
	"image"
	"image/png"
	"math"

	"golang.org/x/image/draw"

	apperrors "github.com/yanqian/thermostraw/pkg/errors"
)

// DefaultPixelCeiling bounds the exported image size.
const DefaultPixelCeiling = 900000

// Method tells the client how an export was delivered.
type Method string

const (
	MethodClipboard Method = "clipboard"
	MethodDownload  Method = "download"
	MethodFailed    Method = "failed"
)

// Capability is what the requesting client declared it can do.
type Capability struct {
	Clipboard bool
}

// Outcome is the tagged result of an export. PNG is empty when Method is failed.
type Outcome struct {
	Method  Method `json:"method"`
	PNG     []byte `json:"-"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Message string `json:"message"`
}

// Image is a captured raster encoded as PNG.
type Image struct {
	PNG    []byte
	Width  int
	Height int
}

// Exporter captures chart images.
type Exporter struct {
	renderer     Renderer
	width        int
	height       int
	pixelCeiling int
}

// NewExporter wires a renderer with the capture size and pixel ceiling.
func NewExporter(renderer Renderer, width, height, pixelCeiling int) *Exporter {
	if pixelCeiling <= 0 {
		pixelCeiling = DefaultPixelCeiling
	}
	return &Exporter{renderer: renderer, width: width, height: height, pixelCeiling: pixelCeiling}
}

// Capture renders the points, rejects blank rasters and downscales past the ceiling.
func (e *Exporter) Capture(points []Point) (Image, error) {
	raw, err := e.renderer.Render(points, e.width, e.height)
	if err != nil {
		return Image{}, apperrors.Wrap("capture_failed", "the chart could not be rendered", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return Image{}, apperrors.Wrap("capture_failed", "the chart image could not be decoded", err)
	}
	if IsBlank(img) {
		return Image{}, apperrors.Wrap("capture_failed", "the captured chart is empty", nil)
	}

	bounds := img.Bounds()
	if bounds.Dx()*bounds.Dy() <= e.pixelCeiling {
		return Image{PNG: raw, Width: bounds.Dx(), Height: bounds.Dy()}, nil
	}
	scaled := Downscale(img, e.pixelCeiling)
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return Image{}, apperrors.Wrap("capture_failed", "the chart image could not be encoded", err)
	}
	sb := scaled.Bounds()
	return Image{PNG: buf.Bytes(), Width: sb.Dx(), Height: sb.Dy()}, nil
}

// Export captures the chart and picks the delivery method. It never returns an error:
// failures are reported through the outcome.
func (e *Exporter) Export(points []Point, capability Capability) Outcome {
	captured, err := e.Capture(points)
	if err != nil {
		return Outcome{Method: MethodFailed, Message: apperrors.MessageOf(err)}
	}
	out := Outcome{PNG: captured.PNG, Width: captured.Width, Height: captured.Height}
	if capability.Clipboard {
		out.Method = MethodClipboard
		out.Message = "Chart copied to the clipboard"
		return out
	}
	out.Method = MethodDownload
	out.Message = "Clipboard unavailable, the chart was downloaded instead"
	return out
}

// IsBlank reports whether every pixel is white or fully transparent.
func IsBlank(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			if r != 0xffff || g != 0xffff || bl != 0xffff {
				return false
			}
		}
	}
	return true
}

// Downscale shrinks img by sqrt(ceiling/pixels) so the result fits the ceiling.
func Downscale(img image.Image, ceiling int) image.Image {
	b := img.Bounds()
	pixels := b.Dx() * b.Dy()
	if pixels <= ceiling || ceiling <= 0 {
		return img
	}
	scale := math.Sqrt(float64(ceiling) / float64(pixels))
	w := int(math.Floor(float64(b.Dx()) * scale))
	h := int(math.Floor(float64(b.Dy()) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
