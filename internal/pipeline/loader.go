package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fitcoach-backend/internal/models"
)

// File names expected inside a session directory
const (
	AccelFile = "Accelerometer.csv"
	GyroFile  = "Gyroscope.csv"
)

// SessionPaths returns the accelerometer and gyroscope file paths of dir and
// a *MissingFileError for the first one that does not exist.
func SessionPaths(dir string) (string, string, error) {
	accelPath := filepath.Join(dir, AccelFile)
	gyroPath := filepath.Join(dir, GyroFile)

	for _, p := range []string{accelPath, gyroPath} {
		st, err := os.Stat(p)
		if err != nil || st.IsDir() {
			return "", "", &MissingFileError{Path: p}
		}
	}
	return accelPath, gyroPath, nil
}

// LoadSession reads both sensor files of a session directory
func LoadSession(dir string) ([]models.RawSample, []models.RawSample, error) {
	accelPath, gyroPath, err := SessionPaths(dir)
	if err != nil {
		return nil, nil, err
	}

	accel, err := LoadStreamFile(accelPath)
	if err != nil {
		return nil, nil, err
	}
	gyro, err := LoadStreamFile(gyroPath)
	if err != nil {
		return nil, nil, err
	}
	return accel, gyro, nil
}

// AlignSession loads a session directory and aligns it with p.ResampleDT
func AlignSession(dir string, p Params) (*AlignedTable, error) {
	accel, gyro, err := LoadSession(dir)
	if err != nil {
		return nil, err
	}
	table, err := Align(accel, gyro, p.ResampleDT)
	if err != nil {
		return nil, fmt.Errorf("failed to align session %s: %w", dir, err)
	}
	return table, nil
}

// LoadStreamFile reads one sensor CSV file
func LoadStreamFile(path string) ([]models.RawSample, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingFileError{Path: path}
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	samples, err := ReadStream(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return samples, nil
}

// ReadStream parses a delimited sensor stream. The first row is a header;
// column 0 is the timestamp in seconds and columns 1-3 are the three axes.
// Any further columns are ignored.
func ReadStream(r io.Reader) ([]models.RawSample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	var samples []models.RawSample
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv read error at line %d: %w", line, err)
		}
		if len(record) < 4 {
			return nil, fmt.Errorf("line %d: expected at least 4 columns, got %d", line, len(record))
		}

		var vals [4]float64
		for i := range vals {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: invalid number %q", line, i, record[i])
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("line %d column %d: non-finite value %q", line, i, record[i])
			}
			vals[i] = v
		}
		samples = append(samples, models.RawSample{Time: vals[0], X: vals[1], Y: vals[2], Z: vals[3]})
	}

	return samples, nil
}
