package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"docscanner/internal/logger"
	"docscanner/internal/model"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// TesseractOptions configures the in-process engine.
type TesseractOptions struct {
	Language          string
	TessdataPrefix    string
	DetectOrientation bool
}

// tessClient is the subset of *gosseract.Client the engine uses.
type tessClient interface {
	SetImageFromBytes(data []byte) error
	GetBoundingBoxes(level gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error)
	Text() (string, error)
	Close() error
}

// TesseractEngine implements Localizer with a single long-lived gosseract
// client. The client is not safe for concurrent use, so calls are serialized.
type TesseractEngine struct {
	client tessClient
	logger *logger.Logger
	mu     sync.Mutex
}

// NewTesseractEngine configures a client and warms it up once so a missing
// language pack fails at startup rather than on the first request.
func NewTesseractEngine(opts TesseractOptions, logger *logger.Logger) (*TesseractEngine, error) {
	if opts.Language == "" {
		opts.Language = "eng"
	}

	c := gosseract.NewClient()
	if opts.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(opts.TessdataPrefix); err != nil {
			c.Close()
			return nil, fmt.Errorf("%w: set tessdata prefix: %v", model.ErrOCRUnavailable, err)
		}
	}
	if err := c.SetLanguage(opts.Language); err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: set language: %v", model.ErrOCRUnavailable, err)
	}
	mode := gosseract.PSM_AUTO
	if opts.DetectOrientation {
		mode = gosseract.PSM_AUTO_OSD
	}
	if err := c.SetPageSegMode(mode); err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: set page segmentation: %v", model.ErrOCRUnavailable, err)
	}

	engine := &TesseractEngine{client: c, logger: logger}
	if err := engine.warmUp(); err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: %v", model.ErrOCRUnavailable, err)
	}

	logger.Info("Tesseract %s initialized (language %s, orientation detection %t)", gosseract.Version(), opts.Language, opts.DetectOrientation)
	return engine, nil
}

// warmUp forces the lazy tesseract initialization on a blank page.
func (e *TesseractEngine) warmUp() error {
	blank := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range blank.Pix {
		blank.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, blank); err != nil {
		return fmt.Errorf("encode warm-up image: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return fmt.Errorf("set warm-up image: %w", err)
	}
	if _, err := e.client.Text(); err != nil {
		return fmt.Errorf("initialize tesseract: %w", err)
	}
	return nil
}

// DetectText returns one Line per recognized text line.
func (e *TesseractEngine) DetectText(img gocv.Mat) ([]Line, error) {
	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		return nil, model.ErrOCRUnavailable
	}
	if err := e.client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize text lines: %w", err)
	}

	return linesFromBoxes(boxes), nil
}

// linesFromBoxes converts gosseract boxes, keeping malformed ones as errors.
func linesFromBoxes(boxes []gosseract.BoundingBox) []Line {
	lines := make([]Line, 0, len(boxes))
	for i, b := range boxes {
		text := strings.TrimSpace(b.Word)
		switch {
		case b.Box.Empty():
			lines = append(lines, Malformed(i, "empty bounding box"))
			continue
		case text == "":
			lines = append(lines, Malformed(i, "no text"))
			continue
		case b.Confidence < 0 || b.Confidence > 100:
			lines = append(lines, Malformed(i, fmt.Sprintf("confidence %v out of range", b.Confidence)))
			continue
		}
		lines = append(lines, Line{Detection: Detection{
			Box:        QuadFromRect(b.Box),
			Text:       text,
			Confidence: b.Confidence / 100.0,
		}})
	}
	return lines
}

// Close releases the tesseract handle.
func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
