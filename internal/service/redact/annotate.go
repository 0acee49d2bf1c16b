package redact

import (
	"fmt"
	"image"
	"image/color"

	"docscanner/internal/model"
	"docscanner/internal/service/ocr"

	"gocv.io/x/gocv"
)

var (
	boxColor   = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	labelColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// DrawDetections outlines every detection above MinConfidence on img and
// writes its text next to the first corner, masked when it is a sensitive
// number. Returns how many were drawn.
func DrawDetections(img *gocv.Mat, lines []ocr.Line) (int, error) {
	drawn := 0
	for _, line := range lines {
		if line.Err != nil || line.Confidence <= MinConfidence {
			continue
		}

		pts := make([]image.Point, len(line.Box))
		for i, p := range line.Box {
			pts[i] = image.Pt(p.X, p.Y)
		}
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
		err := gocv.Polylines(img, pv, true, boxColor, 2)
		pv.Close()
		if err != nil {
			return drawn, fmt.Errorf("failed to draw box: %v", err)
		}

		text := line.Text
		if MatchDetection(line.Detection) != KindNone {
			text = Mask(text)
		}
		label := fmt.Sprintf("%s (%.2f)", text, line.Confidence)
		pt := image.Pt(line.Box[0].X, line.Box[0].Y-5)
		if err := gocv.PutText(img, label, pt, gocv.FontHersheySimplex, 0.5, labelColor, 1); err != nil {
			return drawn, fmt.Errorf("failed to draw text: %v", err)
		}
		drawn++
	}
	return drawn, nil
}

// Annotate runs the localizer once on src, redacts a copy with those lines
// and returns a PNG of the redacted copy with all confident detections drawn
// on it.
func (r *Redactor) Annotate(src gocv.Mat) ([]byte, int, error) {
	if r.localizer == nil {
		return nil, 0, model.ErrOCRUnavailable
	}
	if src.Empty() {
		return nil, 0, fmt.Errorf("%w: empty image", model.ErrInvalidImage)
	}

	lines, err := r.localizer.DetectText(src)
	if err != nil {
		return nil, 0, err
	}

	canvas := src.Clone()
	defer canvas.Close()

	if _, err := r.apply(&canvas, lines); err != nil {
		return nil, 0, err
	}

	drawn, err := DrawDetections(&canvas, lines)
	if err != nil {
		return nil, 0, err
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, canvas)
	if err != nil {
		r.logger.Error("Failed to encode debug image: %v", err)
		return nil, 0, err
	}
	defer buf.Close()
	overlay := make([]byte, len(buf.GetBytes()))
	copy(overlay, buf.GetBytes())

	r.logger.Info("Debug overlay drawn with %d detections", drawn)
	return overlay, drawn, nil
}
