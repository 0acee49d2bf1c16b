package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// OCREngineTesseract runs recognition in-process through libtesseract.
	OCREngineTesseract = "tesseract"
	// OCREnginePaddle delegates recognition to a PaddleOCR HTTP sidecar.
	OCREnginePaddle = "paddle"
)

type Config struct {
	Port     int
	Password string

	ModelPath         string
	ModelInputSize    int     // square side the classifier expects
	ClassifyThreshold float64 // score > threshold means Sensitive

	OCREngine            string
	OCRLanguage          string
	OCRDetectOrientation bool // angle-robust page segmentation
	TessdataPrefix       string
	PaddleOCRURL         string
	OCRRequired          bool // refuse to start without a text engine

	ProcessingWorkers   int // pipelines loaded side by side, one inference each
	ProcessingQueueSize int

	MaxUploadSize  int64
	AllowedFormats []string

	DatabasePath    string
	LogDirectory    string
	StaticDirectory string
}

// Load reads .env (if present), then environment variables, and returns Config.
func Load() (*Config, error) {
	// Best-effort: a missing .env is not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Port:                 v.GetInt("PORT"),
		Password:             v.GetString("PASSWORD"),
		ModelPath:            v.GetString("MODEL_PATH"),
		ModelInputSize:       v.GetInt("MODEL_INPUT_SIZE"),
		ClassifyThreshold:    v.GetFloat64("CLASSIFY_THRESHOLD"),
		OCREngine:            strings.ToLower(strings.TrimSpace(v.GetString("OCR_ENGINE"))),
		OCRLanguage:          v.GetString("OCR_LANGUAGE"),
		OCRDetectOrientation: v.GetBool("OCR_DETECT_ORIENTATION"),
		TessdataPrefix:       v.GetString("TESSDATA_PREFIX"),
		PaddleOCRURL:         strings.TrimRight(v.GetString("PADDLE_OCR_URL"), "/"),
		OCRRequired:          v.GetBool("OCR_REQUIRED"),
		ProcessingWorkers:    v.GetInt("PROCESSING_WORKERS"),
		ProcessingQueueSize:  v.GetInt("PROCESSING_QUEUE_SIZE"),
		MaxUploadSize:        v.GetInt64("MAX_UPLOAD_SIZE"),
		AllowedFormats:       normalizeFormats(v.GetStringSlice("ALLOWED_FORMATS")),
		DatabasePath:         v.GetString("DATABASE_PATH"),
		LogDirectory:         v.GetString("LOG_DIR"),
		StaticDirectory:      v.GetString("STATIC_DIR"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("PASSWORD", "changeme")
	v.SetDefault("MODEL_PATH", filepath.Join("models", "efficientnetb3.onnx"))
	v.SetDefault("MODEL_INPUT_SIZE", 300)
	v.SetDefault("CLASSIFY_THRESHOLD", 0.5)
	v.SetDefault("OCR_ENGINE", OCREngineTesseract)
	v.SetDefault("OCR_LANGUAGE", "eng")
	v.SetDefault("OCR_DETECT_ORIENTATION", true)
	v.SetDefault("TESSDATA_PREFIX", "")
	v.SetDefault("PADDLE_OCR_URL", "http://localhost:8866")
	v.SetDefault("OCR_REQUIRED", true)
	v.SetDefault("PROCESSING_WORKERS", 1)
	v.SetDefault("PROCESSING_QUEUE_SIZE", 16)
	v.SetDefault("MAX_UPLOAD_SIZE", 10*1024*1024) // 10MB
	v.SetDefault("ALLOWED_FORMATS", []string{".jpg", ".jpeg", ".png", ".webp"})
	v.SetDefault("DATABASE_PATH", filepath.Join("data", "scans.db"))
	v.SetDefault("LOG_DIR", "logs")
	v.SetDefault("STATIC_DIR", "static")
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.ModelInputSize <= 0 {
		return fmt.Errorf("MODEL_INPUT_SIZE must be positive, got %d", c.ModelInputSize)
	}
	if c.ClassifyThreshold < 0 || c.ClassifyThreshold > 1 {
		return fmt.Errorf("CLASSIFY_THRESHOLD must be in [0,1], got %v", c.ClassifyThreshold)
	}
	if c.OCREngine != OCREngineTesseract && c.OCREngine != OCREnginePaddle {
		return fmt.Errorf("unknown OCR_ENGINE %q", c.OCREngine)
	}
	if c.ProcessingWorkers <= 0 {
		return fmt.Errorf("PROCESSING_WORKERS must be positive, got %d", c.ProcessingWorkers)
	}
	if c.ProcessingQueueSize < 0 {
		return fmt.Errorf("PROCESSING_QUEUE_SIZE must not be negative, got %d", c.ProcessingQueueSize)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive, got %d", c.MaxUploadSize)
	}
	return nil
}

// IsAllowedFormat reports whether the file extension of name is accepted for upload.
func (c *Config) IsAllowedFormat(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, f := range c.AllowedFormats {
		if f == ext {
			return true
		}
	}
	return false
}

// normalizeFormats lowercases extensions and makes sure each starts with a dot.
// Env values arrive as a single comma separated string.
func normalizeFormats(in []string) []string {
	var out []string
	for _, item := range in {
		for _, f := range strings.Split(item, ",") {
			f = strings.ToLower(strings.TrimSpace(f))
			if f == "" {
				continue
			}
			if !strings.HasPrefix(f, ".") {
				f = "." + f
			}
			out = append(out, f)
		}
	}
	return out
}
