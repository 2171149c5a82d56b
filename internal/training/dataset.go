package training

import (
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"path/filepath"
	"sort"

	"fitcoach-backend/internal/ml"
	"fitcoach-backend/internal/pipeline"
)

// Labelled session directories inside the data directory
const (
	CorrectDir   = "correct"
	IncorrectDir = "incorrect"
)

// ErrNoWindows means none of the training sessions produced a single window
var ErrNoWindows = errors.New("no rep windows were detected")

// Dataset is a labelled feature matrix
type Dataset struct {
	X [][]float64
	Y []int
}

// Len returns the number of samples
func (d *Dataset) Len() int {
	return len(d.Y)
}

// Add appends one labelled feature vector
func (d *Dataset) Add(fv pipeline.FeatureVector, label ml.Label) {
	d.X = append(d.X, fv)
	d.Y = append(d.Y, int(label))
}

// BuildDataset runs the shared pipeline over dataDir/correct (label 0) and
// dataDir/incorrect (label 1).
func BuildDataset(dataDir string, p pipeline.Params) (*Dataset, error) {
	ds := &Dataset{}

	sessions := []struct {
		dir   string
		label ml.Label
	}{
		{filepath.Join(dataDir, CorrectDir), ml.LabelCorrect},
		{filepath.Join(dataDir, IncorrectDir), ml.LabelIncorrect},
	}

	for _, s := range sessions {
		n, err := AddSession(ds, s.dir, s.label, p)
		if err != nil {
			return nil, err
		}
		log.Printf("Training: %s session %s produced %d windows", s.label, s.dir, n)
	}

	if ds.Len() == 0 {
		return nil, fmt.Errorf("%w (window_seconds=%v, step_seconds=%v)", ErrNoWindows, p.WindowSeconds, p.StepSeconds)
	}
	return ds, nil
}

// AddSession aligns, segments and extracts one session directory into ds
// and returns how many windows it contributed.
func AddSession(ds *Dataset, dir string, label ml.Label, p pipeline.Params) (int, error) {
	table, err := pipeline.AlignSession(dir, p)
	if err != nil {
		return 0, err
	}

	windows, err := pipeline.Segment(table, p.WindowSeconds, p.StepSeconds)
	if err != nil {
		return 0, fmt.Errorf("failed to segment %s: %w", dir, err)
	}

	matrix, err := pipeline.ExtractAll(table, windows)
	if err != nil {
		return 0, fmt.Errorf("failed to extract features from %s: %w", dir, err)
	}
	for _, fv := range matrix {
		ds.Add(fv, label)
	}
	return len(matrix), nil
}

// StratifiedSplit shuffles each class with seed and holds out testFraction of
// it (rounded up, at least one sample when the class has two or more) for testing.
func StratifiedSplit(ds *Dataset, testFraction float64, seed int64) (*Dataset, *Dataset, error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %v", testFraction)
	}

	byClass := make(map[int][]int)
	for i, label := range ds.Y {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	train, test := &Dataset{}, &Dataset{}
	for _, c := range classes {
		idx := byClass[c]
		if len(idx) < 2 {
			return nil, nil, fmt.Errorf("class %d has %d sample(s); need at least 2 to split", c, len(idx))
		}
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := int(math.Ceil(float64(len(idx)) * testFraction))
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		for k, i := range idx {
			if k < nTest {
				test.X = append(test.X, ds.X[i])
				test.Y = append(test.Y, ds.Y[i])
			} else {
				train.X = append(train.X, ds.X[i])
				train.Y = append(train.Y, ds.Y[i])
			}
		}
	}
	return train, test, nil
}
