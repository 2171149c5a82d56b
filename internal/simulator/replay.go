package simulator

import (
	"context"
	"fmt"
	"io"
	"time"

	"fitcoach-backend/internal/ml"
	"fitcoach-backend/internal/models"
	"fitcoach-backend/internal/pipeline"
)

// WindowSink classifies one window of fused samples
type WindowSink interface {
	ClassifyWindow(ctx context.Context, samples []models.Sample) (ml.Prediction, error)
}

// SamplePublisher sends raw samples the way a device does
type SamplePublisher interface {
	PublishSamples(deviceID string, sensor models.SensorKind, samples []models.RawSample) error
}

// ReplayWindows sends every window of table to sink in order, pausing step
// between windows. Per-window failures are reported and the replay goes on.
// It returns the number of windows classified successfully.
func ReplayWindows(ctx context.Context, table *pipeline.AlignedTable, windows []pipeline.Window,
	sink WindowSink, step time.Duration, out io.Writer) (int, error) {
	ok := 0
	for i, w := range windows {
		if i > 0 && step > 0 {
			if err := sleep(ctx, step); err != nil {
				return ok, err
			}
		}

		pred, err := sink.ClassifyWindow(ctx, table.Rows[w.Start:w.End])
		if err != nil {
			if ctx.Err() != nil {
				return ok, ctx.Err()
			}
			fmt.Fprintf(out, "Window %02d: error: %v\n", i+1, err)
			continue
		}
		fmt.Fprintf(out, "Window %02d: %s (confidence %.2f)\n", i+1, pred.Label, pred.Confidence)
		ok++
	}
	fmt.Fprintln(out, "Done simulation.")
	return ok, nil
}

// ReplayRaw publishes both raw streams in chunks of chunk seconds of device
// time, pausing chunk between publishes when realtime is set.
func ReplayRaw(ctx context.Context, deviceID string, accel, gyro []models.RawSample,
	pub SamplePublisher, chunk float64, realtime bool) error {
	if chunk <= 0 {
		return fmt.Errorf("chunk must be positive, got %v", chunk)
	}
	if len(accel) == 0 && len(gyro) == 0 {
		return nil
	}

	start := firstTime(accel, gyro)
	var ai, gi int
	for edge := start + chunk; ai < len(accel) || gi < len(gyro); edge += chunk {
		a := takeUntil(accel, &ai, edge)
		g := takeUntil(gyro, &gi, edge)

		if len(a) > 0 {
			if err := pub.PublishSamples(deviceID, models.SensorAccelerometer, a); err != nil {
				return err
			}
		}
		if len(g) > 0 {
			if err := pub.PublishSamples(deviceID, models.SensorGyroscope, g); err != nil {
				return err
			}
		}

		if realtime {
			if err := sleep(ctx, time.Duration(chunk*float64(time.Second))); err != nil {
				return err
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func takeUntil(stream []models.RawSample, idx *int, edge float64) []models.RawSample {
	from := *idx
	for *idx < len(stream) && stream[*idx].Time < edge {
		*idx++
	}
	return stream[from:*idx]
}

func firstTime(accel, gyro []models.RawSample) float64 {
	switch {
	case len(accel) == 0:
		return gyro[0].Time
	case len(gyro) == 0:
		return accel[0].Time
	case accel[0].Time < gyro[0].Time:
		return accel[0].Time
	}
	return gyro[0].Time
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
