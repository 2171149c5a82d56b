package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"fitcoach-backend/internal/pipeline"
)

// Label is the form verdict for one repetition
type Label int

// The numeric values are fixed at training time: 0 is correct form, 1 is not
const (
	LabelCorrect   Label = 0
	LabelIncorrect Label = 1
)

func (l Label) String() string {
	switch l {
	case LabelCorrect:
		return "CORRECT"
	case LabelIncorrect:
		return "INCORRECT"
	}
	return fmt.Sprintf("Label(%d)", int(l))
}

// MarshalText encodes the label by name so JSON payloads read "CORRECT"
func (l Label) MarshalText() ([]byte, error) {
	if l != LabelCorrect && l != LabelIncorrect {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLabel, int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText
func (l *Label) UnmarshalText(text []byte) error {
	switch string(text) {
	case "CORRECT":
		*l = LabelCorrect
	case "INCORRECT":
		*l = LabelIncorrect
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLabel, text)
	}
	return nil
}

// ModelVersion is written into every artifact
const ModelVersion = "v1.0.0"

var (
	ErrModelNotFound   = errors.New("model artifact not found")
	ErrFeatureMismatch = errors.New("feature layout mismatch")
	ErrParamsMismatch  = errors.New("pipeline parameters differ from training")
	ErrUnknownLabel    = errors.New("classifier returned an unknown label")
)

// Prediction is the adapter output for one feature vector
type Prediction struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Model is the persisted artifact: the trained forest plus the feature layout
// and pipeline parameters it was trained on.
type Model struct {
	Version      string           `json:"version"`
	CreatedAt    time.Time        `json:"created_at"`
	FeatureNames []string         `json:"feature_names"`
	Params       *pipeline.Params `json:"params,omitempty"`
	Classes      []string         `json:"classes"`
	Forest       *RandomForest    `json:"forest"`
}

// Predictor handles ML predictions against a loaded, read-only classifier
type Predictor struct {
	clf     Classifier
	version string
}

// NewPredictor wraps an already-trained classifier
func NewPredictor(clf Classifier) *Predictor {
	return &Predictor{clf: clf, version: ModelVersion}
}

// LoadPredictor creates a new predictor by loading the model from file.
// params are the pipeline parameters the caller will extract features with;
// they must match the ones recorded at training time.
func LoadPredictor(modelPath string, params pipeline.Params) (*Predictor, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
		}
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}

	if err := checkFeatureNames(model.FeatureNames); err != nil {
		return nil, err
	}
	if model.Params == nil {
		log.Printf("Warning: model %s does not record its pipeline parameters", modelPath)
	} else if *model.Params != params {
		return nil, fmt.Errorf("%w: model trained with %+v, pipeline configured with %+v",
			ErrParamsMismatch, *model.Params, params)
	}
	if model.Forest == nil || len(model.Forest.Trees) == 0 {
		return nil, fmt.Errorf("model %s contains no trees", modelPath)
	}

	log.Printf("Loaded model %s from %s (%d trees, %d features)",
		model.Version, modelPath, len(model.Forest.Trees), len(model.FeatureNames))

	return &Predictor{clf: model.Forest, version: model.Version}, nil
}

// SaveModel writes a trained forest to path together with the current
// feature layout and the params it was trained with, creating the parent
// directory if needed.
func SaveModel(path string, forest *RandomForest, params pipeline.Params) error {
	model := Model{
		Version:      ModelVersion,
		CreatedAt:    time.Now().UTC(),
		FeatureNames: pipeline.FeatureNames(),
		Params:       &params,
		Classes:      []string{LabelCorrect.String(), LabelIncorrect.String()},
		Forest:       forest,
	}

	data, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}

	log.Printf("Model saved to %s", path)
	return nil
}

// Version returns the artifact version the predictor was loaded from
func (p *Predictor) Version() string {
	return p.version
}

// Classify predicts the label of a single feature vector. Confidence is the
// highest class probability.
func (p *Predictor) Classify(features pipeline.FeatureVector) (Prediction, error) {
	preds, err := p.ClassifyAll([]pipeline.FeatureVector{features})
	if err != nil {
		return Prediction{}, err
	}
	return preds[0], nil
}

// ClassifyAll predicts every row of a feature matrix in order
func (p *Predictor) ClassifyAll(matrix []pipeline.FeatureVector) ([]Prediction, error) {
	X := make([][]float64, len(matrix))
	for i, fv := range matrix {
		if len(fv) != pipeline.FeatureCount {
			return nil, fmt.Errorf("%w: row %d has %d features, expected %d",
				ErrFeatureMismatch, i, len(fv), pipeline.FeatureCount)
		}
		X[i] = fv
	}

	labels, err := p.clf.Predict(X)
	if err != nil {
		return nil, fmt.Errorf("failed to predict: %w", err)
	}
	probas, err := p.clf.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("failed to predict probabilities: %w", err)
	}

	out := make([]Prediction, len(labels))
	for i, l := range labels {
		label := Label(l)
		if label != LabelCorrect && label != LabelIncorrect {
			return nil, fmt.Errorf("%w: %d", ErrUnknownLabel, l)
		}
		out[i] = Prediction{Label: label, Confidence: maxOf(probas[i])}
	}
	return out, nil
}

func checkFeatureNames(names []string) error {
	want := pipeline.FeatureNames()
	if len(names) != len(want) {
		return fmt.Errorf("%w: model has %d features, pipeline produces %d", ErrFeatureMismatch, len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			return fmt.Errorf("%w: feature %d is %q in model, %q in pipeline", ErrFeatureMismatch, i, names[i], want[i])
		}
	}
	return nil
}

func maxOf(p []float64) float64 {
	if len(p) == 0 {
		return 0
	}
	m := p[0]
	for _, v := range p[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
