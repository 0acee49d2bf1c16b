package service

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"docscanner/internal/logger"
	"docscanner/internal/model"
	"docscanner/internal/repository/sqlite"
	"docscanner/internal/service/ai"
	"docscanner/internal/service/ocr"
	"docscanner/internal/service/pipeline"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// blockingClassifier signals when it starts and waits for release.
type blockingClassifier struct {
	score   float64
	started chan struct{}
	release chan struct{}
}

func (c *blockingClassifier) Classify(img gocv.Mat) (ai.ClassificationResult, error) {
	if c.started != nil {
		c.started <- struct{}{}
		<-c.release
	}
	return ai.Decide(c.score, ai.DefaultThreshold), nil
}

type fixedLocalizer struct {
	lines []ocr.Line
}

func (l fixedLocalizer) DetectText(img gocv.Mat) ([]ocr.Line, error) {
	return l.lines, nil
}

var panLines = []ocr.Line{{Detection: ocr.Detection{
	Box:        ocr.QuadFromRect(image.Rect(5, 20, 220, 60)),
	Text:       "ABCDE1234F",
	Confidence: 0.9,
}}}

func documentBytes(t *testing.T) []byte {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 80, 280, gocv.MatTypeCV8UC3)
	defer img.Close()
	if err := gocv.PutText(&img, "ABCDE1234F", image.Pt(10, 50), gocv.FontHersheySimplex, 1.0, color.RGBA{A: 255}, 2); err != nil {
		t.Fatalf("PutText failed: %v", err)
	}
	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		t.Fatalf("IMEncode failed: %v", err)
	}
	defer buf.Close()
	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data
}

func setupRepo(t *testing.T) *sqlite.ScanRepository {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "scans.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlite.NewScanRepository(db)
}

func TestManager_ScanRecordsHistory(t *testing.T) {
	repo := setupRepo(t)
	p := pipeline.New(&blockingClassifier{score: 0.95}, fixedLocalizer{lines: panLines}, logger.NewNop())
	m := NewManager([]*pipeline.Pipeline{p}, 4, repo, nil, logger.NewNop())
	defer m.Stop()

	result, err := m.Scan(context.Background(), documentBytes(t), "pan.jpg")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if _, err := uuid.Parse(result.ScanID); err != nil {
		t.Errorf("ScanID %q is not a UUID: %v", result.ScanID, err)
	}
	if result.Output.Format != "PNG" || !result.Output.Classification.IsSensitive() {
		t.Errorf("Unexpected output: %s %s", result.Output.Format, result.Output.Classification.Label)
	}

	stored, err := repo.GetByScanID(result.ScanID)
	if err != nil || stored == nil {
		t.Fatalf("Scan not recorded: %+v, %v", stored, err)
	}
	if !stored.Redacted || stored.Filename != "pan.jpg" || stored.OutputFormat != "PNG" {
		t.Errorf("Unexpected stored scan %+v", stored)
	}

	stats, _ := repo.GetStats()
	if stats.RegionsPerKind["PAN"] != 1 {
		t.Errorf("Expected one PAN region recorded, got %v", stats.RegionsPerKind)
	}

	regions := RegionResults(result.Output)
	if len(regions) != 1 || regions[0].Kind != "PAN" || regions[0].XMax != 220 {
		t.Errorf("Unexpected region results %+v", regions)
	}
}

func TestManager_NonSensitiveKeepsFormat(t *testing.T) {
	p := pipeline.New(&blockingClassifier{score: 0.1}, fixedLocalizer{}, logger.NewNop())
	m := NewManager([]*pipeline.Pipeline{p}, 1, nil, nil, logger.NewNop())
	defer m.Stop()

	result, err := m.Scan(context.Background(), documentBytes(t), "bill.webp")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if result.Output.Format != "WEBP" {
		t.Errorf("Expected WEBP, got %s", result.Output.Format)
	}
	if len(RegionResults(result.Output)) != 0 {
		t.Error("Expected no regions")
	}
}

func TestManager_PropagatesPipelineErrors(t *testing.T) {
	p := pipeline.New(&blockingClassifier{score: 0.9}, nil, logger.NewNop())
	m := NewManager([]*pipeline.Pipeline{p}, 1, nil, nil, logger.NewNop())
	defer m.Stop()

	if _, err := m.Scan(context.Background(), []byte("junk"), "x.png"); !errors.Is(err, model.ErrInvalidImage) {
		t.Errorf("Expected ErrInvalidImage, got %v", err)
	}
	if _, err := m.Scan(context.Background(), documentBytes(t), "x.png"); !errors.Is(err, model.ErrOCRUnavailable) {
		t.Errorf("Expected ErrOCRUnavailable, got %v", err)
	}
	if m.CanRedact() {
		t.Error("Manager without text engine should not redact")
	}
}

func TestManager_QueueFull(t *testing.T) {
	clf := &blockingClassifier{score: 0.1, started: make(chan struct{}), release: make(chan struct{})}
	p := pipeline.New(clf, fixedLocalizer{}, logger.NewNop())
	m := NewManager([]*pipeline.Pipeline{p}, 1, nil, nil, logger.NewNop())
	defer m.Stop()

	data := documentBytes(t)
	errs := make(chan error, 2)
	go func() {
		_, err := m.Scan(context.Background(), data, "first.png")
		errs <- err
	}()
	<-clf.started

	go func() {
		_, err := m.Scan(context.Background(), data, "second.png")
		errs <- err
	}()

	// wait until the second task sits in the queue
	deadline := time.Now().Add(2 * time.Second)
	for len(m.processingQueue) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Second task was never queued")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := m.Scan(context.Background(), data, "third.png"); !errors.Is(err, model.ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}

	clf.release <- struct{}{}
	<-clf.started
	clf.release <- struct{}{}

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Errorf("Queued scan failed: %v", err)
		}
	}
}

func TestManager_ContextCancelled(t *testing.T) {
	clf := &blockingClassifier{score: 0.1, started: make(chan struct{}), release: make(chan struct{})}
	p := pipeline.New(clf, fixedLocalizer{}, logger.NewNop())
	m := NewManager([]*pipeline.Pipeline{p}, 1, nil, nil, logger.NewNop())
	defer m.Stop()

	data := documentBytes(t)
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := m.Scan(ctx, data, "slow.png")
		errs <- err
	}()

	<-clf.started
	cancel()
	if err := <-errs; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	clf.release <- struct{}{}
}

func TestManager_Debug(t *testing.T) {
	p := pipeline.New(&blockingClassifier{}, fixedLocalizer{lines: panLines}, logger.NewNop())
	m := NewManager([]*pipeline.Pipeline{p}, 1, nil, nil, logger.NewNop())
	defer m.Stop()

	overlay, drawn, err := m.Debug(context.Background(), documentBytes(t))
	if err != nil {
		t.Fatalf("Debug failed: %v", err)
	}
	if drawn != 1 || len(overlay) == 0 {
		t.Errorf("Expected 1 detection drawn, got %d", drawn)
	}
}

func TestManager_StopRejectsNewScans(t *testing.T) {
	p := pipeline.New(&blockingClassifier{}, fixedLocalizer{}, logger.NewNop())
	m := NewManager([]*pipeline.Pipeline{p}, 1, nil, nil, logger.NewNop())
	m.Stop()
	m.Stop()

	if _, err := m.Scan(context.Background(), []byte("x"), "x.png"); !errors.Is(err, model.ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull after Stop, got %v", err)
	}
}

func TestRegionResults_Empty(t *testing.T) {
	got := RegionResults(&pipeline.Output{})
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", got)
	}
}
