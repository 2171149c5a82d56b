package pipeline_test

import (
	"errors"
	"math"
	"testing"

	"fitcoach-backend/internal/models"
	"fitcoach-backend/internal/pipeline"
)

func TestFeatureNamesMatchCount(t *testing.T) {
	names := pipeline.FeatureNames()
	if len(names) != pipeline.FeatureCount {
		t.Fatalf("expected %d names, got %d", pipeline.FeatureCount, len(names))
	}
	if names[0] != "ax_mean" || names[29] != "gz_range" || names[32] != "duration" {
		t.Errorf("unexpected name order: %v", names)
	}
}

func TestExtractFeaturesLength(t *testing.T) {
	table := gridTable(400, 0.01)
	for _, w := range [][2]int{{0, 2}, {0, 150}, {100, 250}, {398, 400}, {0, 400}} {
		fv, err := pipeline.ExtractFeatures(table, w[0], w[1])
		if err != nil {
			t.Fatalf("window %v: %v", w, err)
		}
		if len(fv) != pipeline.FeatureCount {
			t.Fatalf("window %v: expected %d features, got %d", w, pipeline.FeatureCount, len(fv))
		}
	}
}

func TestExtractFeaturesValues(t *testing.T) {
	table := pipeline.TableFromSamples([]models.Sample{
		{Time: 1.00, Ax: 0, Ay: 3, Az: 0, Gx: 1, Gy: -1, Gz: 5},
		{Time: 1.01, Ax: 2, Ay: 4, Az: 0, Gx: 1, Gy: -3, Gz: 5},
		{Time: 1.02, Ax: 4, Ay: 3, Az: 0, Gx: 1, Gy: -2, Gz: 5},
	})

	fv, err := pipeline.ExtractFeatures(table, 0, 3)
	if err != nil {
		t.Fatalf("ExtractFeatures failed: %v", err)
	}

	// magnitudes: 3, sqrt(20), 5
	mag := []float64{3, math.Sqrt(20), 5}
	d1, d2 := mag[1]-mag[0], mag[2]-mag[1]
	diffMean := (d1 + d2) / 2
	diffStd := math.Sqrt(((d1-diffMean)*(d1-diffMean) + (d2-diffMean)*(d2-diffMean)) / 2)

	want := map[int]float64{
		0:  2,                  // ax mean
		1:  math.Sqrt(8.0 / 3), // ax population std
		2:  0,                  // ax min
		3:  4,                  // ax max
		4:  4,                  // ax range
		5:  10.0 / 3,           // ay mean
		14: 0,                  // az range
		15: 1,                  // gx mean
		16: 0,                  // gx std
		22: -3,                 // gy min
		25: 5,                  // gz mean
		30: 5,                  // magnitude max
		31: diffStd,
		32: 0.02,
	}
	for idx, w := range want {
		if math.Abs(fv[idx]-w) > 1e-9 {
			t.Errorf("%s = %v, want %v", pipeline.FeatureNames()[idx], fv[idx], w)
		}
	}
}

func TestExtractFeaturesDeterministic(t *testing.T) {
	table, err := pipeline.Align(ramp(0, 4, 0.013), ramp(0, 4, 0.021), 0.01)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	a, _ := pipeline.ExtractFeatures(table, 10, 160)
	b, _ := pipeline.ExtractFeatures(table, 10, 160)
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			t.Fatalf("feature %d differs between runs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestExtractFeaturesSingleRow(t *testing.T) {
	fv, err := pipeline.ExtractFeatures(gridTable(5, 0.01), 2, 3)
	if err != nil {
		t.Fatalf("ExtractFeatures failed: %v", err)
	}
	if fv[31] != 0 || fv[32] != 0 {
		t.Errorf("single row: smoothness=%v duration=%v, want 0 and 0", fv[31], fv[32])
	}
}

func TestExtractFeaturesInvalidRange(t *testing.T) {
	table := gridTable(10, 0.01)
	for _, w := range [][2]int{{-1, 5}, {5, 5}, {6, 5}, {0, 11}} {
		if _, err := pipeline.ExtractFeatures(table, w[0], w[1]); !errors.Is(err, pipeline.ErrInvalidRange) {
			t.Errorf("window %v: expected ErrInvalidRange, got %v", w, err)
		}
	}
}

func TestExtractAll(t *testing.T) {
	table := gridTable(1000, 0.01)
	windows, err := pipeline.Segment(table, 1.5, 1.0)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	matrix, err := pipeline.ExtractAll(table, windows)
	if err != nil {
		t.Fatalf("ExtractAll failed: %v", err)
	}
	if len(matrix) != len(windows) {
		t.Fatalf("expected %d vectors, got %d", len(windows), len(matrix))
	}
	// ax is the row index, so each window mean is start + 74.5
	for i, fv := range matrix {
		if want := float64(windows[i].Start) + 74.5; math.Abs(fv[0]-want) > 1e-9 {
			t.Errorf("window %d ax mean %v, want %v", i, fv[0], want)
		}
	}
}
