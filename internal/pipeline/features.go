package pipeline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"fitcoach-backend/internal/models"
)

// FeatureCount is the length of every feature vector. Training and inference
// must agree on it and on the order given by FeatureNames.
const FeatureCount = 33

// FeatureVector is the numeric summary of one window
type FeatureVector []float64

var channelNames = []string{"ax", "ay", "az", "gx", "gy", "gz"}

var statNames = []string{"mean", "std", "min", "max", "range"}

// FeatureNames returns the ordered names of the values produced by
// ExtractFeatures. Persisted models record this list.
func FeatureNames() []string {
	names := make([]string, 0, FeatureCount)
	for _, ch := range channelNames {
		for _, st := range statNames {
			names = append(names, ch+"_"+st)
		}
	}
	return append(names, "accel_mag_max", "accel_mag_diff_std", "duration")
}

// ExtractFeatures computes the feature vector of rows [start, end) of table
func ExtractFeatures(table *AlignedTable, start, end int) (FeatureVector, error) {
	if start < 0 || start >= end || end > table.Len() {
		return nil, fmt.Errorf("%w: [%d, %d) on table of %d rows", ErrInvalidRange, start, end, table.Len())
	}
	return featuresOf(table.Rows[start:end]), nil
}

// ExtractAll computes one feature vector per window, in window order
func ExtractAll(table *AlignedTable, windows []Window) ([]FeatureVector, error) {
	out := make([]FeatureVector, 0, len(windows))
	for i, w := range windows {
		fv, err := ExtractFeatures(table, w.Start, w.End)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", i, err)
		}
		out = append(out, fv)
	}
	return out, nil
}

// TableFromSamples wraps already-fused samples as a table without resampling.
// The serving boundary receives windows in this form.
func TableFromSamples(samples []models.Sample) *AlignedTable {
	rows := make([]models.Sample, len(samples))
	copy(rows, samples)
	return &AlignedTable{Rows: rows}
}

func featuresOf(rows []models.Sample) FeatureVector {
	n := len(rows)
	cols := make([][]float64, len(channelNames))
	for c := range cols {
		cols[c] = make([]float64, n)
	}
	mag := make([]float64, n)

	for i, r := range rows {
		cols[0][i], cols[1][i], cols[2][i] = r.Ax, r.Ay, r.Az
		cols[3][i], cols[4][i], cols[5][i] = r.Gx, r.Gy, r.Gz
		mag[i] = math.Sqrt(r.Ax*r.Ax + r.Ay*r.Ay + r.Az*r.Az)
	}

	fv := make(FeatureVector, 0, FeatureCount)
	for _, vals := range cols {
		mean, std := popMeanStd(vals)
		lo, hi := floats.Min(vals), floats.Max(vals)
		fv = append(fv, mean, std, lo, hi, hi-lo)
	}

	// smoothness is measured on the sample-to-sample change of the magnitude
	var smoothness float64
	if n > 1 {
		diff := make([]float64, n-1)
		for i := 1; i < n; i++ {
			diff[i-1] = mag[i] - mag[i-1]
		}
		_, smoothness = popMeanStd(diff)
	}

	duration := rows[n-1].Time - rows[0].Time
	return append(fv, floats.Max(mag), smoothness, duration)
}

// popMeanStd returns the mean and the population (divide by N) standard deviation
func popMeanStd(x []float64) (float64, float64) {
	mean, variance := stat.PopMeanVariance(x, nil)
	return mean, math.Sqrt(math.Max(variance, 0))
}
