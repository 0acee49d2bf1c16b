package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"docscanner/internal/logger"
	"docscanner/internal/model"

	"gocv.io/x/gocv"
)

// PaddleClient calls a PaddleOCR sidecar that runs angle-classified detection
// and recognition (use_angle_cls=True) with a single language model.
type PaddleClient struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
}

// NewPaddleClient checks the sidecar's /health endpoint and returns a client.
func NewPaddleClient(baseURL string, logger *logger.Logger) (*PaddleClient, error) {
	c := &PaddleClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.health(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrOCRUnavailable, err)
	}

	logger.Info("PaddleOCR sidecar reachable at %s", baseURL)
	return c, nil
}

func (c *PaddleClient) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("paddle: request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("paddle: sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("paddle: health returned status %d", resp.StatusCode)
	}
	return nil
}

// ocrResponse mirrors PaddleOCR's ocr()[0]: a list of [box, [text, confidence]].
// Entries are kept raw so one bad line does not fail the whole decode.
type ocrResponse struct {
	Result []json.RawMessage `json:"result"`
}

// DetectText posts the image to the sidecar and decodes each entry on its own.
func (c *PaddleClient) DetectText(img gocv.Mat) ([]Line, error) {
	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/ocr", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("paddle: request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrOCRUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paddle: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("paddle: read body: %w", err)
	}
	return decodeResult(body)
}

// decodeResult parses a sidecar response body. A null or missing result
// yields a nil slice: the engine returned no structure.
func decodeResult(body []byte) ([]Line, error) {
	var resp ocrResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("paddle: decode: %w", err)
	}
	if resp.Result == nil {
		return nil, nil
	}

	lines := make([]Line, 0, len(resp.Result))
	for i, raw := range resp.Result {
		lines = append(lines, decodeEntry(i, raw))
	}
	return lines, nil
}

// coord truncates a sidecar coordinate toward zero, saturating at the int32
// range so huge values keep their sign.
func coord(v float64) int {
	return int(math.Max(math.MinInt32, math.Min(math.MaxInt32, v)))
}

// decodeEntry turns [[[x,y] x4], ["text", conf]] into a Line.
func decodeEntry(index int, raw json.RawMessage) Line {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) < 2 {
		return Malformed(index, "expected [box, [text, confidence]]")
	}

	var points [][]float64
	if err := json.Unmarshal(parts[0], &points); err != nil || len(points) != 4 {
		return Malformed(index, "bounding box must have 4 points")
	}
	var box Quad
	for j, p := range points {
		if len(p) < 2 || math.IsNaN(p[0]) || math.IsNaN(p[1]) {
			return Malformed(index, "bounding box point needs x and y")
		}
		box[j] = Point{X: coord(p[0]), Y: coord(p[1])}
	}

	var rec []json.RawMessage
	if err := json.Unmarshal(parts[1], &rec); err != nil || len(rec) < 2 {
		return Malformed(index, "recognition must be [text, confidence]")
	}
	var text string
	if err := json.Unmarshal(rec[0], &text); err != nil {
		return Malformed(index, "text is not a string")
	}
	var conf float64
	if err := json.Unmarshal(rec[1], &conf); err != nil || conf < 0 || conf > 1 {
		return Malformed(index, "confidence must be a number in [0,1]")
	}

	return Line{Detection: Detection{Box: box, Text: text, Confidence: conf}}
}
