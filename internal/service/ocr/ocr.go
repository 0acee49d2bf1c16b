// Package ocr wraps text detection and recognition engines behind a single
// Localizer interface. Engines return one Line per detected text line; a line
// the engine produced without usable geometry or text carries an error instead
// of a detection so the rest of the scan can continue.
package ocr

import (
	"fmt"
	"image"

	"docscanner/internal/config"
	"docscanner/internal/logger"
	"docscanner/internal/model"

	"gocv.io/x/gocv"
)

// Point is a pixel coordinate in the source image.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Quad is an ordered quadrilateral (not necessarily axis-aligned).
type Quad [4]Point

// QuadFromRect returns the corners of r in TL, TR, BR, BL order.
func QuadFromRect(r image.Rectangle) Quad {
	return Quad{
		{X: r.Min.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Max.Y},
		{X: r.Min.X, Y: r.Max.Y},
	}
}

// Detection is one recognized text line.
type Detection struct {
	Box        Quad
	Text       string
	Confidence float64 // in [0,1]
}

// Line is an entry of a scan: either a Detection or a per-item error.
type Line struct {
	Detection
	Err error
}

// Malformed builds a Line for an entry the engine could not describe.
func Malformed(index int, reason string) Line {
	return Line{Err: fmt.Errorf("%w: entry %d: %s", model.ErrMalformedDetection, index, reason)}
}

// Localizer finds and reads text in a decoded image. A nil slice with a nil
// error means the engine returned no structure at all; an empty slice means
// it found no text.
type Localizer interface {
	DetectText(img gocv.Mat) ([]Line, error)
}

// New builds the engine selected by cfg.OCREngine. Any initialization failure
// wraps model.ErrOCRUnavailable.
func New(cfg *config.Config, logger *logger.Logger) (Localizer, error) {
	switch cfg.OCREngine {
	case config.OCREnginePaddle:
		return NewPaddleClient(cfg.PaddleOCRURL, logger)
	case config.OCREngineTesseract, "":
		return NewTesseractEngine(TesseractOptions{
			Language:          cfg.OCRLanguage,
			TessdataPrefix:    cfg.TessdataPrefix,
			DetectOrientation: cfg.OCRDetectOrientation,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", model.ErrOCRUnavailable, cfg.OCREngine)
	}
}

// encodePNG serializes img for engines that consume encoded bytes.
func encodePNG(img gocv.Mat) ([]byte, error) {
	if img.Empty() {
		return nil, fmt.Errorf("%w: empty image", model.ErrInvalidImage)
	}
	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}
