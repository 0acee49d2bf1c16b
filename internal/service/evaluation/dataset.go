package evaluation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docscanner/internal/logger"
	"docscanner/internal/service/ai"
	"docscanner/internal/service/pipeline"
)

// Sample is one labelled image on disk.
type Sample struct {
	Path      string
	Sensitive bool
}

var labelFolders = []struct {
	names     []string
	sensitive bool
}{
	{names: []string{"sensitive", "Sensitive"}, sensitive: true},
	{names: []string{"non_sensitive", "Non_sensitive", "Non_Sensitive"}, sensitive: false},
}

var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// LoadDataset lists images under dir/sensitive and dir/non_sensitive. A
// missing label folder is logged and skipped.
func LoadDataset(dir string, logger *logger.Logger) ([]Sample, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("test data directory not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var samples []Sample
	for _, label := range labelFolders {
		folder := findFolder(dir, label.names)
		if folder == "" {
			logger.Warning("Subfolder %q not found, skipping label", label.names[0])
			continue
		}

		entries, err := os.ReadDir(folder)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", folder, err)
		}
		for _, e := range entries {
			if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			samples = append(samples, Sample{Path: filepath.Join(folder, e.Name()), Sensitive: label.sensitive})
		}
	}

	logger.Info("Found %d images for evaluation in %s", len(samples), dir)
	return samples, nil
}

func findFolder(dir string, names []string) string {
	for _, name := range names {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p
		}
	}
	return ""
}

// Report is the outcome of an evaluation run.
type Report struct {
	Threshold float64
	Confusion Confusion
	// Unreadable counts images that failed to load or classify; each was
	// scored as probability 0.
	Unreadable int
}

// Evaluate classifies every sample and applies threshold to the raw score.
func Evaluate(classifier ai.Classifier, samples []Sample, threshold float64, logger *logger.Logger) Report {
	report := Report{Threshold: threshold}
	for _, s := range samples {
		score, err := scoreFile(classifier, s.Path)
		if err != nil {
			logger.Warning("Could not process image %s: %v", filepath.Base(s.Path), err)
			report.Unreadable++
			score = 0
		}
		report.Confusion.Add(s.Sensitive, ai.Decide(score, threshold).IsSensitive())
	}
	return report
}

func scoreFile(classifier ai.Classifier, path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	img, err := pipeline.DecodeImage(data)
	if err != nil {
		return 0, err
	}
	defer img.Close()

	result, err := classifier.Classify(img)
	if err != nil {
		return 0, err
	}
	return result.Score, nil
}
