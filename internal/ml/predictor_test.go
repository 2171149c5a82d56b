package ml_test

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"fitcoach-backend/internal/ml"
	"fitcoach-backend/internal/models"
	"fitcoach-backend/internal/pipeline"
)

// syntheticWindow returns the features of a 150-row window. Flat windows hold
// the arm still; spiky ones add large periodic jolts on every channel.
func syntheticWindow(rng *rand.Rand, spiky bool) pipeline.FeatureVector {
	rows := make([]models.Sample, 150)
	for i := range rows {
		noise := func() float64 { return rng.NormFloat64() * 0.05 }
		r := models.Sample{Time: float64(i) * 0.01}
		r.Ax, r.Ay, r.Az = noise(), noise(), 9.81+noise()
		r.Gx, r.Gy, r.Gz = noise(), noise(), noise()
		if spiky && i%10 == 0 {
			r.Ax += 8
			r.Gy += 6
			r.Az -= 5
		}
		rows[i] = r
	}
	fv, err := pipeline.ExtractFeatures(pipeline.TableFromSamples(rows), 0, len(rows))
	if err != nil {
		panic(err)
	}
	return fv
}

func trainFlatVsSpiky(t *testing.T) *ml.RandomForest {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	var X [][]float64
	var y []int
	for i := 0; i < 20; i++ {
		X = append(X, syntheticWindow(rng, false))
		y = append(y, int(ml.LabelCorrect))
		X = append(X, syntheticWindow(rng, true))
		y = append(y, int(ml.LabelIncorrect))
	}
	rf := smallForest()
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	return rf
}

func TestClassifyRoundTripLabelMapping(t *testing.T) {
	p := ml.NewPredictor(trainFlatVsSpiky(t))
	rng := rand.New(rand.NewSource(99))

	flat, err := p.Classify(syntheticWindow(rng, false))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if flat.Label != ml.LabelCorrect || flat.Confidence <= 0.5 {
		t.Errorf("flat window: got %v with confidence %.2f", flat.Label, flat.Confidence)
	}

	spiky, err := p.Classify(syntheticWindow(rng, true))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if spiky.Label != ml.LabelIncorrect {
		t.Errorf("spiky window: got %v", spiky.Label)
	}
}

func TestClassifyAllKeepsOrder(t *testing.T) {
	p := ml.NewPredictor(trainFlatVsSpiky(t))
	rng := rand.New(rand.NewSource(5))
	matrix := []pipeline.FeatureVector{
		syntheticWindow(rng, true),
		syntheticWindow(rng, false),
		syntheticWindow(rng, true),
	}

	preds, err := p.ClassifyAll(matrix)
	if err != nil {
		t.Fatalf("ClassifyAll failed: %v", err)
	}
	want := []ml.Label{ml.LabelIncorrect, ml.LabelCorrect, ml.LabelIncorrect}
	for i, pr := range preds {
		if pr.Label != want[i] {
			t.Errorf("row %d: got %v, want %v", i, pr.Label, want[i])
		}
		if pr.Confidence < 0 || pr.Confidence > 1 {
			t.Errorf("row %d: confidence %v outside [0,1]", i, pr.Confidence)
		}
	}
}

func TestClassifyRejectsWrongLength(t *testing.T) {
	p := ml.NewPredictor(trainFlatVsSpiky(t))
	_, err := p.Classify(pipeline.FeatureVector{1, 2, 3})
	if !errors.Is(err, ml.ErrFeatureMismatch) {
		t.Fatalf("expected ErrFeatureMismatch, got %v", err)
	}
}

func TestSaveAndLoadModel(t *testing.T) {
	rf := trainFlatVsSpiky(t)
	path := filepath.Join(t.TempDir(), "models", "bicep_model.json")
	if err := ml.SaveModel(path, rf, pipeline.DefaultParams()); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}

	loaded, err := ml.LoadPredictor(path, pipeline.DefaultParams())
	if err != nil {
		t.Fatalf("LoadPredictor failed: %v", err)
	}
	if loaded.Version() != ml.ModelVersion {
		t.Errorf("version %q, want %q", loaded.Version(), ml.ModelVersion)
	}

	rng := rand.New(rand.NewSource(11))
	fv := syntheticWindow(rng, true)
	want, _ := ml.NewPredictor(rf).Classify(fv)
	got, err := loaded.Classify(fv)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got.Label != want.Label || math.Abs(got.Confidence-want.Confidence) > 1e-12 {
		t.Errorf("loaded model predicts %+v, original %+v", got, want)
	}
}

func TestLoadPredictorMissing(t *testing.T) {
	_, err := ml.LoadPredictor(filepath.Join(t.TempDir(), "nope.json"), pipeline.DefaultParams())
	if !errors.Is(err, ml.ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
}

func TestLoadPredictorRejectsReorderedFeatures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := ml.SaveModel(path, trainFlatVsSpiky(t), pipeline.DefaultParams()); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var model ml.Model
	if err := json.Unmarshal(data, &model); err != nil {
		t.Fatal(err)
	}
	model.FeatureNames[0], model.FeatureNames[1] = model.FeatureNames[1], model.FeatureNames[0]
	data, _ = json.Marshal(model)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ml.LoadPredictor(path, pipeline.DefaultParams()); !errors.Is(err, ml.ErrFeatureMismatch) {
		t.Fatalf("expected ErrFeatureMismatch, got %v", err)
	}
}

func TestLoadPredictorChecksParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	trained := pipeline.DefaultParams()
	if err := ml.SaveModel(path, trainFlatVsSpiky(t), trained); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}

	serving := trained
	serving.WindowSeconds = 2
	if _, err := ml.LoadPredictor(path, serving); !errors.Is(err, ml.ErrParamsMismatch) {
		t.Fatalf("expected ErrParamsMismatch, got %v", err)
	}

	// Artifacts written before params were recorded still load
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var model ml.Model
	if err := json.Unmarshal(data, &model); err != nil {
		t.Fatal(err)
	}
	model.Params = nil
	data, _ = json.Marshal(model)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ml.LoadPredictor(path, serving); err != nil {
		t.Fatalf("LoadPredictor without recorded params failed: %v", err)
	}
}

func TestLabelText(t *testing.T) {
	data, err := json.Marshal(ml.Prediction{Label: ml.LabelIncorrect, Confidence: 0.75})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"label":"INCORRECT","confidence":0.75}` {
		t.Errorf("unexpected JSON %s", data)
	}

	var p ml.Prediction
	if err := json.Unmarshal(data, &p); err != nil || p.Label != ml.LabelIncorrect {
		t.Errorf("round trip gave %+v, %v", p, err)
	}
}
