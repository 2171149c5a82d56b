package pipeline_test

import (
	"errors"
	"testing"

	"fitcoach-backend/internal/models"
	"fitcoach-backend/internal/pipeline"
)

// gridTable builds an n-row table with timestamps i*dt
func gridTable(n int, dt float64) *pipeline.AlignedTable {
	samples := make([]models.Sample, n)
	for i := range samples {
		samples[i] = models.Sample{Time: float64(i) * dt, Ax: float64(i)}
	}
	return pipeline.TableFromSamples(samples)
}

func TestSegmentTenSecondSession(t *testing.T) {
	accel := ramp(0, 10, 0.02)
	gyro := ramp(0, 10, 0.025)

	table, err := pipeline.Align(accel, gyro, 0.01)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	if table.Len() != 1000 {
		t.Fatalf("expected 1000 rows, got %d", table.Len())
	}

	windows, err := pipeline.Segment(table, 1.5, 1.0)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}

	if len(windows) != 9 {
		t.Fatalf("expected 9 windows, got %d", len(windows))
	}
	for i, w := range windows {
		if w.Len() != 150 {
			t.Errorf("window %d has %d samples, want 150", i, w.Len())
		}
		if w.Start != i*100 {
			t.Errorf("window %d starts at %d, want %d", i, w.Start, i*100)
		}
		if w.End > table.Len() {
			t.Errorf("window %d ends past the table: %d", i, w.End)
		}
	}
}

func TestSegmentOverlap(t *testing.T) {
	windows, err := pipeline.Segment(gridTable(500, 0.01), 1.5, 1.0)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	for i := 1; i < len(windows); i++ {
		overlap := windows[i-1].End - windows[i].Start
		if overlap != 50 {
			t.Errorf("windows %d/%d overlap by %d samples, want 50", i-1, i, overlap)
		}
	}
}

func TestSegmentShortTableYieldsNoWindows(t *testing.T) {
	windows, err := pipeline.Segment(gridTable(149, 0.01), 1.5, 1.0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(windows) != 0 {
		t.Fatalf("expected no windows, got %d", len(windows))
	}
}

func TestSegmentExactFit(t *testing.T) {
	windows, err := pipeline.Segment(gridTable(150, 0.01), 1.5, 1.0)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	if len(windows) != 1 || windows[0] != (pipeline.Window{Start: 0, End: 150}) {
		t.Fatalf("expected a single [0,150) window, got %v", windows)
	}
}

func TestSegmentErrors(t *testing.T) {
	tests := []struct {
		name   string
		table  *pipeline.AlignedTable
		window float64
		step   float64
		want   error
	}{
		{"nil table", nil, 1.5, 1.0, pipeline.ErrInsufficientData},
		{"single row", gridTable(1, 0.01), 1.5, 1.0, pipeline.ErrInsufficientData},
		{"step below grid", gridTable(300, 0.01), 1.5, 0.001, pipeline.ErrInvalidParameter},
		{"zero window", gridTable(300, 0.01), 0, 1.0, pipeline.ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pipeline.Segment(tt.table, tt.window, tt.step)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParamsValidate(t *testing.T) {
	if err := pipeline.DefaultParams().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
	p := pipeline.DefaultParams()
	p.StepSeconds = -1
	if err := p.Validate(); !errors.Is(err, pipeline.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}
