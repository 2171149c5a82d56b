package pipeline

import (
	"fmt"
	"math"
	"sort"

	"fitcoach-backend/internal/models"
)

// DefaultResampleDT is the grid step, in seconds, used by every call site
const DefaultResampleDT = 0.01

// AlignedTable is the merge of one accelerometer and one gyroscope stream on a
// regular time grid. It is never modified after Align returns it.
type AlignedTable struct {
	Rows []models.Sample
}

// Len returns the number of grid rows
func (t *AlignedTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Times returns a copy of the grid timestamps
func (t *AlignedTable) Times() []float64 {
	times := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		times[i] = r.Time
	}
	return times
}

// Align merges accel and gyro onto a shared grid of step resampleDT covering
// only the interval where both sensors recorded. Each stream is deduplicated
// (first record wins for a repeated timestamp) and linearly interpolated at
// every grid point.
func Align(accel, gyro []models.RawSample, resampleDT float64) (*AlignedTable, error) {
	if resampleDT <= 0 || math.IsNaN(resampleDT) || math.IsInf(resampleDT, 0) {
		return nil, fmt.Errorf("%w: resample step %v", ErrInvalidParameter, resampleDT)
	}
	if len(accel) == 0 {
		return nil, fmt.Errorf("%w: accelerometer", ErrEmptyStream)
	}
	if len(gyro) == 0 {
		return nil, fmt.Errorf("%w: gyroscope", ErrEmptyStream)
	}
	if err := checkTimes(accel, gyro); err != nil {
		return nil, err
	}

	a := dedupe(accel)
	g := dedupe(gyro)

	start := math.Max(a[0].Time, g[0].Time)
	end := math.Min(a[len(a)-1].Time, g[len(g)-1].Time)
	if end-start <= 0 {
		return nil, fmt.Errorf("%w: overlap [%.6f, %.6f)", ErrDisjointRange, start, end)
	}

	// Point count is computed once instead of accumulating the step, so the
	// grid length does not depend on floating-point summation order.
	n := int(math.Floor((end - start) / resampleDT))
	if n == 0 {
		return nil, fmt.Errorf("%w: overlap %.6fs is shorter than one grid step", ErrDisjointRange, end-start)
	}

	return &AlignedTable{Rows: gridRows(a, g, start, resampleDT, 0, n)}, nil
}

// GridStart returns the first grid timestamp Align would use for the two
// streams: the later of their earliest samples.
func GridStart(accel, gyro []models.RawSample) (float64, error) {
	if len(accel) == 0 {
		return 0, fmt.Errorf("%w: accelerometer", ErrEmptyStream)
	}
	if len(gyro) == 0 {
		return 0, fmt.Errorf("%w: gyroscope", ErrEmptyStream)
	}
	return math.Max(minTime(accel), minTime(gyro)), nil
}

// GridEnd returns the exclusive grid index bound Align would produce for a
// grid anchored at origin, given the samples seen so far.
func GridEnd(accel, gyro []models.RawSample, origin, resampleDT float64) int {
	if len(accel) == 0 || len(gyro) == 0 || resampleDT <= 0 {
		return 0
	}
	end := math.Min(maxTime(accel), maxTime(gyro))
	if !finite(end) || !finite(origin) || end-origin <= 0 {
		return 0
	}
	return int(math.Floor((end - origin) / resampleDT))
}

// AlignGrid evaluates rows [from, to) of the grid origin + i*resampleDT.
// For the same origin it yields exactly the rows Align produces at those
// indices, which lets a caller align a long stream piece by piece.
func AlignGrid(accel, gyro []models.RawSample, origin, resampleDT float64, from, to int) (*AlignedTable, error) {
	if resampleDT <= 0 || math.IsNaN(resampleDT) || math.IsInf(resampleDT, 0) {
		return nil, fmt.Errorf("%w: resample step %v", ErrInvalidParameter, resampleDT)
	}
	if len(accel) == 0 {
		return nil, fmt.Errorf("%w: accelerometer", ErrEmptyStream)
	}
	if len(gyro) == 0 {
		return nil, fmt.Errorf("%w: gyroscope", ErrEmptyStream)
	}
	if err := checkTimes(accel, gyro); err != nil {
		return nil, err
	}
	if from < 0 || from >= to {
		return nil, fmt.Errorf("%w: grid rows [%d, %d)", ErrInvalidRange, from, to)
	}
	return &AlignedTable{Rows: gridRows(dedupe(accel), dedupe(gyro), origin, resampleDT, from, to)}, nil
}

func gridRows(a, g []models.RawSample, start, dt float64, from, to int) []models.Sample {
	rows := make([]models.Sample, 0, to-from)
	for i := from; i < to; i++ {
		t := start + float64(i)*dt
		ax, ay, az := interpolate(a, t)
		gx, gy, gz := interpolate(g, t)
		rows = append(rows, models.Sample{Time: t, Ax: ax, Ay: ay, Az: az, Gx: gx, Gy: gy, Gz: gz})
	}
	return rows
}

// checkTimes rejects NaN and infinite timestamps, which would otherwise
// produce an unbounded grid.
func checkTimes(accel, gyro []models.RawSample) error {
	for _, s := range accel {
		if !finite(s.Time) {
			return fmt.Errorf("%w: accelerometer sample at %v", ErrNonFiniteTime, s.Time)
		}
	}
	for _, s := range gyro {
		if !finite(s.Time) {
			return fmt.Errorf("%w: gyroscope sample at %v", ErrNonFiniteTime, s.Time)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func minTime(stream []models.RawSample) float64 {
	m := stream[0].Time
	for _, s := range stream[1:] {
		m = math.Min(m, s.Time)
	}
	return m
}

func maxTime(stream []models.RawSample) float64 {
	m := stream[0].Time
	for _, s := range stream[1:] {
		m = math.Max(m, s.Time)
	}
	return m
}

// dedupe drops repeated timestamps keeping the first-seen record, then
// orders the remainder by time. The input slice is not modified.
func dedupe(stream []models.RawSample) []models.RawSample {
	seen := make(map[float64]struct{}, len(stream))
	out := make([]models.RawSample, 0, len(stream))
	for _, s := range stream {
		if _, ok := seen[s.Time]; ok {
			continue
		}
		seen[s.Time] = struct{}{}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// interpolate evaluates a time-sorted stream at t. Outside the recorded range
// the nearest edge sample is used.
func interpolate(stream []models.RawSample, t float64) (float64, float64, float64) {
	idx := sort.Search(len(stream), func(i int) bool {
		return stream[i].Time >= t
	})

	switch {
	case idx == 0:
		s := stream[0]
		return s.X, s.Y, s.Z
	case idx == len(stream):
		s := stream[len(stream)-1]
		return s.X, s.Y, s.Z
	case stream[idx].Time == t:
		s := stream[idx]
		return s.X, s.Y, s.Z
	}

	lo, hi := stream[idx-1], stream[idx]
	w := (t - lo.Time) / (hi.Time - lo.Time)
	return lerp(lo.X, hi.X, w), lerp(lo.Y, hi.Y, w), lerp(lo.Z, hi.Z, w)
}

func lerp(a, b, w float64) float64 {
	return a + (b-a)*w
}
