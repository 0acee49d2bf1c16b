// Package pipeline chains decoding, classification and redaction into one
// synchronous call per image.
package pipeline

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"docscanner/internal/logger"
	"docscanner/internal/model"
	"docscanner/internal/service/ai"
	"docscanner/internal/service/ocr"
	"docscanner/internal/service/redact"

	"gocv.io/x/gocv"
)

// Result is the outcome of Process. The caller owns Image and must Close it.
type Result struct {
	Classification ai.ClassificationResult
	Image          gocv.Mat
	Report         redact.Report
}

// Close releases the image buffer.
func (r *Result) Close() error {
	return r.Image.Close()
}

// Output is the encoded form of a Result handed back to the calling service.
type Output struct {
	Classification ai.ClassificationResult
	Image          []byte
	Format         string
	Report         redact.Report
}

// Pipeline holds one classifier and one redactor. It is not safe for
// concurrent use; run one Pipeline per worker.
type Pipeline struct {
	classifier ai.Classifier
	redactor   *redact.Redactor
	logger     *logger.Logger
}

// New wires a pipeline. localizer may be nil, in which case Sensitive images
// fail with model.ErrOCRUnavailable while classification keeps working.
func New(classifier ai.Classifier, localizer ocr.Localizer, logger *logger.Logger) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		redactor:   redact.NewRedactor(localizer, logger),
		logger:     logger,
	}
}

// DecodeImage decodes JPEG, PNG or WebP bytes into an 8-bit BGR Mat.
func DecodeImage(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), fmt.Errorf("%w: no image data", model.ErrInvalidImage)
	}
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", model.ErrInvalidImage, err)
	}
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("%w: unsupported or corrupt image", model.ErrInvalidImage)
	}
	return img, nil
}

// Process decodes and classifies the image and, when it is Sensitive,
// blurs every PAN-like or Aadhaar-like text region. Errors are returned
// as-is; nothing is retried.
func (p *Pipeline) Process(data []byte) (*Result, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}

	classification, err := p.classifier.Classify(img)
	if err != nil {
		img.Close()
		return nil, err
	}

	if !classification.IsSensitive() {
		return &Result{Classification: classification, Image: img}, nil
	}

	redacted, report, err := p.redactor.Redact(img)
	img.Close()
	if err != nil {
		redacted.Close()
		return nil, err
	}

	p.logger.Info("Redaction finished: %d regions blurred, %d detections, %d skipped", len(report.Regions), report.Detections, report.Skipped)
	return &Result{Classification: classification, Image: redacted, Report: report}, nil
}

// Scan runs Process and encodes the result. Sensitive images come back as
// PNG; anything else returns data unchanged in the format named by filename.
func (p *Pipeline) Scan(data []byte, filename string) (*Output, error) {
	result, err := p.Process(data)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	out := &Output{
		Classification: result.Classification,
		Report:         result.Report,
	}

	if !result.Classification.IsSensitive() {
		out.Image = data
		out.Format = OutputFormat(filename, data)
		return out, nil
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, result.Image)
	if err != nil {
		p.logger.Error("Failed to encode redacted image: %v", err)
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()
	out.Image = make([]byte, len(buf.GetBytes()))
	copy(out.Image, buf.GetBytes())
	out.Format = "PNG"
	return out, nil
}

// Debug returns a PNG overlay of every confident detection in the image and
// the number drawn.
func (p *Pipeline) Debug(data []byte) ([]byte, int, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, 0, err
	}
	defer img.Close()
	return p.redactor.Annotate(img)
}

// CanRedact reports whether a text engine is attached.
func (p *Pipeline) CanRedact() bool {
	return p.redactor.Available()
}

// Close releases whichever of the classifier and localizer hold resources.
func (p *Pipeline) Close() error {
	var firstErr error
	for _, c := range []any{p.classifier, p.redactor.Localizer()} {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// OutputFormat maps a filename extension to an image format name. Unknown
// extensions fall back to sniffing data.
func OutputFormat(filename string, data []byte) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "jpg", "jpeg":
		return "JPEG"
	case "png":
		return "PNG"
	case "webp":
		return "WEBP"
	}

	switch http.DetectContentType(data) {
	case "image/jpeg":
		return "JPEG"
	case "image/webp":
		return "WEBP"
	default:
		return "PNG"
	}
}
