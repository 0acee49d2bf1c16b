package redact

import (
	"image"

	"docscanner/internal/service/ocr"
)

const (
	// MinKernel is the smallest blur kernel applied to a region.
	MinKernel = 23
	// BlurSigma is the Gaussian standard deviation in both directions.
	BlurSigma = 30.0
)

// Region is the axis-aligned envelope of a detection, clamped to the image.
// Max coordinates are exclusive.
type Region struct {
	XMin, YMin, XMax, YMax int
}

// Envelope returns the min/max envelope of q clamped to [0,width) x [0,height).
func Envelope(q ocr.Quad, width, height int) Region {
	r := Region{XMin: q[0].X, YMin: q[0].Y, XMax: q[0].X, YMax: q[0].Y}
	for _, p := range q[1:] {
		r.XMin = min(r.XMin, p.X)
		r.YMin = min(r.YMin, p.Y)
		r.XMax = max(r.XMax, p.X)
		r.YMax = max(r.YMax, p.Y)
	}

	r.XMin = clamp(r.XMin, 0, width)
	r.XMax = clamp(r.XMax, 0, width)
	r.YMin = clamp(r.YMin, 0, height)
	r.YMax = clamp(r.YMax, 0, height)
	return r
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Width of the region in pixels.
func (r Region) Width() int { return r.XMax - r.XMin }

// Height of the region in pixels.
func (r Region) Height() int { return r.YMax - r.YMin }

// Empty reports whether the region has no area after clamping.
func (r Region) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Rect converts the region to an image.Rectangle for gocv.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.XMin, r.YMin, r.XMax, r.YMax)
}

// KernelSize returns the odd blur kernel for a region of the given size:
// max(23, (w/2)|1, (h/2)|1).
func KernelSize(width, height int) int {
	return max(MinKernel, (width/2)|1, (height/2)|1)
}
