package ai

import (
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"docscanner/internal/logger"
	"docscanner/internal/model"

	"gocv.io/x/gocv"
)

const (
	// DefaultInputSize is the square resolution the EfficientNet-B3 head was trained on.
	DefaultInputSize = 300
	// DefaultThreshold separates Sensitive from Non-Sensitive scores.
	DefaultThreshold = 0.5
)

// Label is the binary decision of the classifier.
type Label string

const (
	LabelSensitive    Label = "Sensitive"
	LabelNonSensitive Label = "Non-Sensitive"
)

// ClassificationResult is produced once per image and never updated.
type ClassificationResult struct {
	Label Label
	Score float64 // probability of Sensitive, in [0,1]
}

// IsSensitive reports whether the image should go through redaction.
func (r ClassificationResult) IsSensitive() bool {
	return r.Label == LabelSensitive
}

// Classifier turns a decoded BGR image into a binary label.
type Classifier interface {
	Classify(img gocv.Mat) (ClassificationResult, error)
}

// Decide applies the strict score > threshold rule.
func Decide(score, threshold float64) ClassificationResult {
	if score > threshold {
		return ClassificationResult{Label: LabelSensitive, Score: score}
	}
	return ClassificationResult{Label: LabelNonSensitive, Score: score}
}

// ClassifierService runs a frozen ONNX export of the classifier through the gocv DNN module.
// A single gocv.Net is not reentrant, so Classify is serialized per instance.
type ClassifierService struct {
	net       gocv.Net
	modelPath string
	inputSize int
	threshold float64
	logger    *logger.Logger
	mu        sync.Mutex
}

// NewClassifierService loads the network from modelPath. A missing or corrupt
// artifact returns an error wrapping model.ErrModelUnavailable.
func NewClassifierService(modelPath string, inputSize int, threshold float64, logger *logger.Logger) (*ClassifierService, error) {
	if inputSize <= 0 {
		inputSize = DefaultInputSize
	}
	service := &ClassifierService{
		modelPath: modelPath,
		inputSize: inputSize,
		threshold: threshold,
		logger:    logger,
	}

	if err := service.initializeNet(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrModelUnavailable, err)
	}
	return service, nil
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *ClassifierService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	net := gocv.ReadNetFromONNX(s.modelPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", s.modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.logger.Info("Classification network initialized from %s (input %dx%d)", s.modelPath, s.inputSize, s.inputSize)
	return nil
}

// Classify converts the image to 8-bit BGR, resizes it to the model
// resolution, scales intensities to [0,1], reorders BGR to RGB in NCHW layout
// and runs one forward pass.
func (s *ClassifierService) Classify(img gocv.Mat) (ClassificationResult, error) {
	bgr, err := toBGR8(img)
	if err != nil {
		return ClassificationResult{}, err
	}
	defer bgr.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.net.Empty() {
		return ClassificationResult{}, model.ErrModelUnavailable
	}

	blob := gocv.BlobFromImage(bgr, 1.0/255.0, image.Pt(s.inputSize, s.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	if output.Empty() || output.Total() < 1 {
		return ClassificationResult{}, fmt.Errorf("classifier produced no output")
	}

	score := float64(output.GetFloatAt(0, 0))
	if math.IsNaN(score) {
		return ClassificationResult{}, fmt.Errorf("classifier produced NaN score")
	}
	score = math.Min(1, math.Max(0, score))

	result := Decide(score, s.threshold)
	s.logger.Info("Classified image as %s (score %.4f)", result.Label, result.Score)
	return result, nil
}

// Threshold returns the decision threshold in use.
func (s *ClassifierService) Threshold() float64 {
	return s.threshold
}

// toBGR8 returns a new 8-bit 3-channel copy of img. 16-bit images are scaled
// from [0,65535] and floating point images from [0,1].
func toBGR8(img gocv.Mat) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), fmt.Errorf("%w: empty image", model.ErrInvalidImage)
	}

	depth := gocv.MatType(int(img.Type()) & 7)
	var scale float32
	switch depth {
	case gocv.MatTypeCV8U:
		scale = 1
	case gocv.MatTypeCV16U:
		scale = 255.0 / 65535.0
	case gocv.MatTypeCV32F, gocv.MatTypeCV64F:
		scale = 255
	default:
		return gocv.NewMat(), fmt.Errorf("%w: unsupported pixel depth %d", model.ErrInvalidImage, depth)
	}

	var code gocv.ColorConversionCode
	switch img.Channels() {
	case 1:
		code = gocv.ColorGrayToBGR
	case 3:
		code = -1
	case 4:
		code = gocv.ColorBGRAToBGR
	default:
		return gocv.NewMat(), fmt.Errorf("%w: unsupported channel count %d", model.ErrInvalidImage, img.Channels())
	}

	eight := gocv.NewMat()
	if depth == gocv.MatTypeCV8U {
		img.CopyTo(&eight)
	} else {
		img.ConvertToWithParams(&eight, gocv.MatTypeCV8U, scale, 0)
	}
	if code < 0 {
		return eight, nil
	}
	defer eight.Close()

	bgr := gocv.NewMat()
	if err := gocv.CvtColor(eight, &bgr, code); err != nil {
		bgr.Close()
		return gocv.NewMat(), fmt.Errorf("%w: color conversion: %v", model.ErrInvalidImage, err)
	}
	return bgr, nil
}

// Close releases the underlying network.
func (s *ClassifierService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Close()
}
