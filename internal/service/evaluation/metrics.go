// Package evaluation scores the classifier against a labelled folder of images.
package evaluation

import "fmt"

// Confusion counts binary outcomes with Sensitive as the positive class.
type Confusion struct {
	TruePositive  int
	FalsePositive int
	TrueNegative  int
	FalseNegative int
}

// Add records one prediction.
func (c *Confusion) Add(actual, predicted bool) {
	switch {
	case actual && predicted:
		c.TruePositive++
	case !actual && predicted:
		c.FalsePositive++
	case !actual && !predicted:
		c.TrueNegative++
	default:
		c.FalseNegative++
	}
}

// Total is the number of recorded predictions.
func (c Confusion) Total() int {
	return c.TruePositive + c.FalsePositive + c.TrueNegative + c.FalseNegative
}

// ratio returns 0 instead of dividing by zero.
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func (c Confusion) Accuracy() float64 {
	return ratio(c.TruePositive+c.TrueNegative, c.Total())
}

func (c Confusion) Precision() float64 {
	return ratio(c.TruePositive, c.TruePositive+c.FalsePositive)
}

func (c Confusion) Recall() float64 {
	return ratio(c.TruePositive, c.TruePositive+c.FalseNegative)
}

// F1 is the harmonic mean of precision and recall, 0 when both are 0.
func (c Confusion) F1() float64 {
	return ratio(2*c.TruePositive, 2*c.TruePositive+c.FalsePositive+c.FalseNegative)
}

func (c Confusion) String() string {
	return fmt.Sprintf("                 pred Non-Sensitive  pred Sensitive\n"+
		"  Non-Sensitive  %18d  %14d\n"+
		"  Sensitive      %18d  %14d",
		c.TrueNegative, c.FalsePositive, c.FalseNegative, c.TruePositive)
}
