package main

import (
	"flag"
	"fmt"
	"log"

	"docscanner/internal/config"
	"docscanner/internal/logger"
	"docscanner/internal/service/ai"
	"docscanner/internal/service/evaluation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dataDir := flag.String("data", "data/test", "Directory with sensitive/ and non_sensitive/ subfolders")
	modelPath := flag.String("model", cfg.ModelPath, "ONNX classifier path")
	threshold := flag.Float64("threshold", cfg.ClassifyThreshold, "Decision threshold on the Sensitive probability")
	flag.Parse()

	lg := logger.NewConsole()
	defer lg.Close()

	classifier, err := ai.NewClassifierService(*modelPath, cfg.ModelInputSize, *threshold, logger.NewNop())
	if err != nil {
		log.Fatalf("Evaluation stopped: %v", err)
	}
	defer classifier.Close()

	samples, err := evaluation.LoadDataset(*dataDir, lg)
	if err != nil {
		log.Fatalf("Failed to load test data: %v", err)
	}
	if len(samples) == 0 {
		log.Fatalf("No test data found in %s: expected sensitive/ and non_sensitive/ subfolders", *dataDir)
	}

	fmt.Printf("Evaluating %d images...\n", len(samples))
	report := evaluation.Evaluate(classifier, samples, classifier.Threshold(), lg)
	c := report.Confusion

	fmt.Printf("\n%s\n", "========================================")
	fmt.Printf("CLASSIFICATION PERFORMANCE METRICS (Threshold: %.2f)\n", report.Threshold)
	fmt.Printf("%s\n", "========================================")
	fmt.Printf("Accuracy:  %.4f\n", c.Accuracy())
	fmt.Printf("Precision: %.4f\n", c.Precision())
	fmt.Printf("Recall:    %.4f\n", c.Recall())
	fmt.Printf("F1 Score:  %.4f\n", c.F1())
	fmt.Printf("\nConfusion matrix:\n%s\n", c)
	if report.Unreadable > 0 {
		fmt.Printf("\n⚠️  %d images could not be read and were scored as 0\n", report.Unreadable)
	}
}
