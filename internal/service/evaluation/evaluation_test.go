package evaluation

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"docscanner/internal/logger"
	"docscanner/internal/service/ai"

	"gocv.io/x/gocv"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// ========================================
// Metric Tests
// ========================================

func TestConfusion_Metrics(t *testing.T) {
	var c Confusion
	outcomes := []struct{ actual, predicted bool }{
		{true, true}, {true, true}, {true, true},
		{true, false},
		{false, true},
		{false, false}, {false, false}, {false, false}, {false, false}, {false, false},
	}
	for _, o := range outcomes {
		c.Add(o.actual, o.predicted)
	}

	if c.TruePositive != 3 || c.FalseNegative != 1 || c.FalsePositive != 1 || c.TrueNegative != 5 {
		t.Fatalf("Unexpected confusion matrix %+v", c)
	}
	if !almostEqual(c.Accuracy(), 0.8) {
		t.Errorf("Accuracy = %v, want 0.8", c.Accuracy())
	}
	if !almostEqual(c.Precision(), 0.75) {
		t.Errorf("Precision = %v, want 0.75", c.Precision())
	}
	if !almostEqual(c.Recall(), 0.75) {
		t.Errorf("Recall = %v, want 0.75", c.Recall())
	}
	if !almostEqual(c.F1(), 0.75) {
		t.Errorf("F1 = %v, want 0.75", c.F1())
	}
}

func TestConfusion_ZeroDivision(t *testing.T) {
	var empty Confusion
	if empty.Accuracy() != 0 || empty.Precision() != 0 || empty.Recall() != 0 || empty.F1() != 0 {
		t.Errorf("Empty matrix should score 0 everywhere, got %+v", empty)
	}

	negativesOnly := Confusion{TrueNegative: 4}
	if negativesOnly.Accuracy() != 1 {
		t.Errorf("Accuracy = %v, want 1", negativesOnly.Accuracy())
	}
	if negativesOnly.Precision() != 0 || negativesOnly.Recall() != 0 || negativesOnly.F1() != 0 {
		t.Error("No positive predictions or labels should give 0 precision, recall and F1")
	}
}

// ========================================
// Dataset Tests
// ========================================

// widthClassifier calls wide images Sensitive.
type widthClassifier struct{}

func (widthClassifier) Classify(img gocv.Mat) (ai.ClassificationResult, error) {
	score := 0.1
	if img.Cols() > 50 {
		score = 0.9
	}
	return ai.Decide(score, ai.DefaultThreshold), nil
}

func writeImage(t *testing.T, path string, width int) {
	t.Helper()
	img := gocv.NewMatWithSize(20, width, gocv.MatTypeCV8UC3)
	defer img.Close()
	if ok := gocv.IMWrite(path, img); !ok {
		t.Fatalf("IMWrite %s failed", path)
	}
}

func setupDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	sensitive := filepath.Join(dir, "Sensitive")
	nonSensitive := filepath.Join(dir, "non_sensitive")
	for _, d := range []string{sensitive, nonSensitive} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", d, err)
		}
	}

	writeImage(t, filepath.Join(sensitive, "pan1.png"), 100)
	writeImage(t, filepath.Join(sensitive, "pan2.png"), 100)
	if err := os.Rename(filepath.Join(sensitive, "pan2.png"), filepath.Join(sensitive, "pan2.PNG")); err != nil {
		t.Fatalf("Failed to rename: %v", err)
	}
	writeImage(t, filepath.Join(sensitive, "missed.png"), 10)
	writeImage(t, filepath.Join(nonSensitive, "bill.png"), 10)
	writeImage(t, filepath.Join(nonSensitive, "wide_bill.png"), 100)

	// unreadable: scored 0, counts as a negative prediction
	if err := os.WriteFile(filepath.Join(sensitive, "broken.jpg"), []byte("not an image"), 0644); err != nil {
		t.Fatalf("Failed to write broken image: %v", err)
	}
	if err := os.WriteFile(filepath.Join(nonSensitive, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatalf("Failed to write text file: %v", err)
	}
	return dir
}

func TestLoadDataset(t *testing.T) {
	dir := setupDataset(t)

	samples, err := LoadDataset(dir, logger.NewNop())
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if len(samples) != 6 {
		t.Fatalf("Expected 6 images, got %d", len(samples))
	}

	positives := 0
	for _, s := range samples {
		if s.Sensitive {
			positives++
		}
	}
	if positives != 4 {
		t.Errorf("Expected 4 sensitive samples, got %d", positives)
	}
}

func TestLoadDataset_MissingDir(t *testing.T) {
	if _, err := LoadDataset(filepath.Join(t.TempDir(), "missing"), logger.NewNop()); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestEvaluate(t *testing.T) {
	samples, err := LoadDataset(setupDataset(t), logger.NewNop())
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}

	report := Evaluate(widthClassifier{}, samples, ai.DefaultThreshold, logger.NewNop())

	if report.Unreadable != 1 {
		t.Errorf("Expected 1 unreadable image, got %d", report.Unreadable)
	}
	want := Confusion{TruePositive: 2, FalseNegative: 2, TrueNegative: 1, FalsePositive: 1}
	if report.Confusion != want {
		t.Errorf("Confusion = %+v, want %+v", report.Confusion, want)
	}
}
