package training

import (
	"fmt"
	"strings"

	"fitcoach-backend/internal/ml"
)

// ClassMetrics holds per-class evaluation numbers
type ClassMetrics struct {
	Label     ml.Label
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report summarises a held-out evaluation
type Report struct {
	Classes  []ClassMetrics
	Accuracy float64
	Total    int
}

// Evaluate compares predicted labels with the truth for both classes
func Evaluate(yTrue, yPred []int) (*Report, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("length mismatch: %d true labels, %d predictions", len(yTrue), len(yPred))
	}

	report := &Report{Total: len(yTrue)}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	if len(yTrue) > 0 {
		report.Accuracy = float64(correct) / float64(len(yTrue))
	}

	for _, label := range []ml.Label{ml.LabelCorrect, ml.LabelIncorrect} {
		c := int(label)
		var tp, fp, fn int
		for i := range yTrue {
			switch {
			case yPred[i] == c && yTrue[i] == c:
				tp++
			case yPred[i] == c:
				fp++
			case yTrue[i] == c:
				fn++
			}
		}

		m := ClassMetrics{Label: label, Support: tp + fn}
		m.Precision = ratio(tp, tp+fp)
		m.Recall = ratio(tp, tp+fn)
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report.Classes = append(report.Classes, m)
	}

	return report, nil
}

// String renders the report as a fixed-width table
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s %10s %10s %10s %10s\n", "", "precision", "recall", "f1-score", "support")
	for _, m := range r.Classes {
		fmt.Fprintf(&b, "%12s %10.3f %10.3f %10.3f %10d\n", m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	fmt.Fprintf(&b, "\n%12s %10s %10s %10.3f %10d\n", "accuracy", "", "", r.Accuracy, r.Total)
	return b.String()
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
