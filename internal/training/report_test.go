package training_test

import (
	"math"
	"strings"
	"testing"

	"fitcoach-backend/internal/ml"
	"fitcoach-backend/internal/training"
)

func TestEvaluate(t *testing.T) {
	yTrue := []int{0, 0, 0, 1, 1, 1}
	yPred := []int{0, 0, 1, 1, 1, 0}

	r, err := training.Evaluate(yTrue, yPred)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if r.Total != 6 || math.Abs(r.Accuracy-4.0/6) > 1e-12 {
		t.Errorf("accuracy %.3f over %d", r.Accuracy, r.Total)
	}
	if len(r.Classes) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(r.Classes))
	}

	for _, m := range r.Classes {
		if m.Support != 3 {
			t.Errorf("%s: support %d", m.Label, m.Support)
		}
		if math.Abs(m.Precision-2.0/3) > 1e-12 || math.Abs(m.Recall-2.0/3) > 1e-12 || math.Abs(m.F1-2.0/3) > 1e-12 {
			t.Errorf("%s: unexpected metrics %+v", m.Label, m)
		}
	}

	out := r.String()
	for _, want := range []string{ml.LabelCorrect.String(), ml.LabelIncorrect.String(), "accuracy"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestEvaluateNoPredictionsForClass(t *testing.T) {
	r, err := training.Evaluate([]int{0, 1}, []int{0, 0})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	incorrect := r.Classes[1]
	if incorrect.Precision != 0 || incorrect.Recall != 0 || incorrect.F1 != 0 {
		t.Errorf("expected zero metrics, got %+v", incorrect)
	}
}

func TestEvaluateLengthMismatch(t *testing.T) {
	if _, err := training.Evaluate([]int{0}, nil); err == nil {
		t.Fatal("expected an error")
	}
}
