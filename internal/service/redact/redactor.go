package redact

import (
	"fmt"
	"image"

	"docscanner/internal/logger"
	"docscanner/internal/model"
	"docscanner/internal/service/ocr"

	"gocv.io/x/gocv"
)

// BlurredRegion describes one region that was blurred. The recognized text
// is not kept.
type BlurredRegion struct {
	Kind       Kind
	Region     Region
	Kernel     int
	Confidence float64
}

// Report summarizes a redaction pass.
type Report struct {
	// NoStructure is set when the engine returned nothing at all.
	NoStructure bool
	Detections  int
	Skipped     int
	Regions     []BlurredRegion
}

// Redactor blurs PAN-like and Aadhaar-like text found by a Localizer.
type Redactor struct {
	localizer ocr.Localizer
	logger    *logger.Logger
}

// NewRedactor returns a Redactor. A nil localizer is allowed; Redact then
// fails with model.ErrOCRUnavailable.
func NewRedactor(localizer ocr.Localizer, logger *logger.Logger) *Redactor {
	return &Redactor{localizer: localizer, logger: logger}
}

// Localizer returns the attached text engine, or nil.
func (r *Redactor) Localizer() ocr.Localizer {
	return r.localizer
}

// Available reports whether a text engine is attached.
func (r *Redactor) Available() bool {
	return r.localizer != nil
}

// Redact returns a copy of src with every matching detection blurred, in the
// order the localizer returned them. src is left untouched and the caller
// owns the returned Mat.
func (r *Redactor) Redact(src gocv.Mat) (gocv.Mat, Report, error) {
	var report Report

	if r.localizer == nil {
		return gocv.NewMat(), report, model.ErrOCRUnavailable
	}
	if src.Empty() {
		return gocv.NewMat(), report, fmt.Errorf("%w: empty image", model.ErrInvalidImage)
	}

	lines, err := r.localizer.DetectText(src)
	if err != nil {
		return gocv.NewMat(), report, err
	}

	out := src.Clone()
	report, err = r.apply(&out, lines)
	if err != nil {
		out.Close()
		return gocv.NewMat(), report, err
	}
	return out, report, nil
}

// apply blurs every matching line on img in localizer order.
func (r *Redactor) apply(img *gocv.Mat, lines []ocr.Line) (Report, error) {
	var report Report
	if lines == nil {
		report.NoStructure = true
		r.logger.Warning("Text engine returned no structure, image left unchanged")
		return report, nil
	}

	width, height := img.Cols(), img.Rows()
	for _, line := range lines {
		if line.Err != nil {
			report.Skipped++
			r.logger.Warning("Skipping detection: %v", line.Err)
			continue
		}
		report.Detections++

		kind := MatchDetection(line.Detection)
		if kind == KindNone {
			continue
		}

		region := Envelope(line.Box, width, height)
		if region.Empty() {
			r.logger.Warning("Skipping %s match %s: region clamps to zero area", kind, Mask(line.Text))
			continue
		}

		kernel := KernelSize(region.Width(), region.Height())
		if err := blurRegion(img, region, kernel); err != nil {
			return report, err
		}

		report.Regions = append(report.Regions, BlurredRegion{
			Kind:       kind,
			Region:     region,
			Kernel:     kernel,
			Confidence: line.Confidence,
		})
		r.logger.Info("Blurred %s %s at %v (kernel %d)", kind, Mask(line.Text), region.Rect(), kernel)
	}
	return report, nil
}

// blurRegion replaces the pixels inside region with a Gaussian blur of
// themselves. The region is copied out first so the filter only sees pixels
// inside it.
func blurRegion(img *gocv.Mat, region Region, kernel int) error {
	roi := img.Region(region.Rect())
	defer roi.Close()

	patch := roi.Clone()
	defer patch.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()

	if err := gocv.GaussianBlur(patch, &blurred, image.Pt(kernel, kernel), BlurSigma, BlurSigma, gocv.BorderDefault); err != nil {
		return fmt.Errorf("failed to blur region %v: %w", region.Rect(), err)
	}
	blurred.CopyTo(&roi)
	return nil
}
