package pipeline

import (
	"fmt"
)

// Default fixed-cadence segmentation, roughly one curl every one to two seconds
const (
	DefaultWindowSeconds = 1.5
	DefaultStepSeconds   = 1.0
)

// Window is a half-open row range [Start, End) of an AlignedTable
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of rows covered by the window
func (w Window) Len() int {
	return w.End - w.Start
}

// Params groups the three numbers that must be identical between training
// and every inference path.
type Params struct {
	ResampleDT    float64 `yaml:"resample_dt" json:"resample_dt"`
	WindowSeconds float64 `yaml:"window_seconds" json:"window_seconds"`
	StepSeconds   float64 `yaml:"step_seconds" json:"step_seconds"`
}

// DefaultParams returns the parameters the shipped model was trained with
func DefaultParams() Params {
	return Params{
		ResampleDT:    DefaultResampleDT,
		WindowSeconds: DefaultWindowSeconds,
		StepSeconds:   DefaultStepSeconds,
	}
}

// Validate checks that all parameters are positive
func (p Params) Validate() error {
	if p.ResampleDT <= 0 {
		return fmt.Errorf("%w: resample_dt must be positive, got %v", ErrInvalidParameter, p.ResampleDT)
	}
	if p.WindowSeconds <= 0 {
		return fmt.Errorf("%w: window_seconds must be positive, got %v", ErrInvalidParameter, p.WindowSeconds)
	}
	if p.StepSeconds <= 0 {
		return fmt.Errorf("%w: step_seconds must be positive, got %v", ErrInvalidParameter, p.StepSeconds)
	}
	return nil
}

// Segment slices table into fixed-width windows advancing by a fixed step.
// The grid step is taken from the first two timestamps and both durations are
// converted to sample counts by truncation. A table shorter than one window
// produces no windows and no error.
func Segment(table *AlignedTable, windowSeconds, stepSeconds float64) ([]Window, error) {
	n := table.Len()
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 rows to infer grid step, got %d", ErrInsufficientData, n)
	}

	dt := table.Rows[1].Time - table.Rows[0].Time
	if dt <= 0 {
		return nil, fmt.Errorf("%w: non-increasing grid step %v", ErrInsufficientData, dt)
	}

	winSamples, stepSamples, err := SampleCounts(dt, windowSeconds, stepSeconds)
	if err != nil {
		return nil, err
	}

	windows := make([]Window, 0)
	for start := 0; start+winSamples <= n; start += stepSamples {
		windows = append(windows, Window{Start: start, End: start + winSamples})
	}

	return windows, nil
}

// SampleCounts converts window and step durations to row counts at grid step
// dt, truncating toward zero.
func SampleCounts(dt, windowSeconds, stepSeconds float64) (int, int, error) {
	winSamples := int(windowSeconds / dt)
	stepSamples := int(stepSeconds / dt)
	if winSamples < 1 || stepSamples < 1 {
		return 0, 0, fmt.Errorf("%w: window=%vs step=%vs at grid step %vs gives %d/%d samples",
			ErrInvalidParameter, windowSeconds, stepSeconds, dt, winSamples, stepSamples)
	}
	return winSamples, stepSamples, nil
}
