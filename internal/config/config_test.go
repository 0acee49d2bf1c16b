package config

import (
	"os"
	"reflect"
	"testing"
)

// chdirTemp moves into an empty directory so no local .env leaks into Load.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8080 || cfg.ModelInputSize != 300 || cfg.ClassifyThreshold != 0.5 {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
	if cfg.OCREngine != OCREngineTesseract || !cfg.OCRRequired || !cfg.OCRDetectOrientation {
		t.Errorf("Unexpected OCR defaults %+v", cfg)
	}
	if cfg.MaxUploadSize != 10*1024*1024 {
		t.Errorf("Expected 10MB upload limit, got %d", cfg.MaxUploadSize)
	}
	if !reflect.DeepEqual(cfg.AllowedFormats, []string{".jpg", ".jpeg", ".png", ".webp"}) {
		t.Errorf("Unexpected formats %v", cfg.AllowedFormats)
	}
}

func TestLoad_Environment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "9090")
	t.Setenv("OCR_ENGINE", " Paddle ")
	t.Setenv("PADDLE_OCR_URL", "http://ocr:8866/")
	t.Setenv("OCR_REQUIRED", "false")
	t.Setenv("ALLOWED_FORMATS", "PNG, .jpg")
	t.Setenv("PROCESSING_WORKERS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9090 || cfg.ProcessingWorkers != 3 || cfg.OCRRequired {
		t.Errorf("Environment not applied: %+v", cfg)
	}
	if cfg.OCREngine != OCREnginePaddle || cfg.PaddleOCRURL != "http://ocr:8866" {
		t.Errorf("Unexpected OCR settings %q %q", cfg.OCREngine, cfg.PaddleOCRURL)
	}
	if !reflect.DeepEqual(cfg.AllowedFormats, []string{".png", ".jpg"}) {
		t.Errorf("Unexpected formats %v", cfg.AllowedFormats)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"OCR_ENGINE", "easyocr"},
		{"CLASSIFY_THRESHOLD", "1.5"},
		{"PROCESSING_WORKERS", "0"},
		{"PROCESSING_QUEUE_SIZE", "-1"},
		{"MAX_UPLOAD_SIZE", "0"},
		{"MODEL_INPUT_SIZE", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestIsAllowedFormat(t *testing.T) {
	cfg := &Config{AllowedFormats: normalizeFormats([]string{".jpg,.png"})}

	tests := []struct {
		name     string
		expected bool
	}{
		{"scan.jpg", true},
		{"SCAN.PNG", true},
		{"scan.webp", false},
		{"scan", false},
		{"archive.png.exe", false},
	}
	for _, tt := range tests {
		if got := cfg.IsAllowedFormat(tt.name); got != tt.expected {
			t.Errorf("IsAllowedFormat(%q) = %v, expected %v", tt.name, got, tt.expected)
		}
	}
}
