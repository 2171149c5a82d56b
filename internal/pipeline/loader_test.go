package pipeline_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fitcoach-backend/internal/pipeline"
)

func TestReadStream(t *testing.T) {
	input := "time,x,y,z,extra\n0.0, 1.5, -2, 3,foo\n0.02,4,5,6,bar\n"

	samples, err := pipeline.ReadStream(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if s := samples[0]; s.Time != 0 || s.X != 1.5 || s.Y != -2 || s.Z != 3 {
		t.Errorf("unexpected first sample: %+v", s)
	}
	if samples[1].Time != 0.02 {
		t.Errorf("unexpected second timestamp: %v", samples[1].Time)
	}
}

func TestReadStreamRejectsBadRows(t *testing.T) {
	tests := map[string]string{
		"short row":  "time,x,y,z\n0.0,1,2\n",
		"bad number": "time,x,y,z\n0.0,1,abc,3\n",
		"nan time":   "time,x,y,z\nnan,1,2,3\n0.5,1,2,3\n",
		"inf time":   "time,x,y,z\n0.0,1,2,3\n+Inf,1,2,3\n",
		"inf value":  "time,x,y,z\n0.0,1,-inf,3\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := pipeline.ReadStream(strings.NewReader(input)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestReadStreamHeaderOnly(t *testing.T) {
	samples, err := pipeline.ReadStream(strings.NewReader("time,x,y,z\n"))
	if err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	if len(samples) != 0 {
		t.Fatalf("expected no samples, got %d", len(samples))
	}
}

func TestSessionPathsMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, pipeline.AccelFile), "time,x,y,z\n0,0,0,0\n")

	_, _, err := pipeline.SessionPaths(dir)
	var missing *pipeline.MissingFileError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFileError, got %v", err)
	}
	if filepath.Base(missing.Path) != pipeline.GyroFile {
		t.Errorf("expected missing %s, got %s", pipeline.GyroFile, missing.Path)
	}
}

func TestAlignSession(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, pipeline.AccelFile), "time,ax,ay,az\n0,0,0,9.8\n1,1,0,9.8\n2,2,0,9.8\n")
	writeFile(t, filepath.Join(dir, pipeline.GyroFile), "time,gx,gy,gz\n0.5,0,0,0\n1.5,1,1,1\n2.5,2,2,2\n")

	table, err := pipeline.AlignSession(dir, pipeline.DefaultParams())
	if err != nil {
		t.Fatalf("AlignSession failed: %v", err)
	}
	if table.Len() != 150 {
		t.Fatalf("expected 150 rows over [0.5, 2.0), got %d", table.Len())
	}
	if table.Rows[0].Time != 0.5 {
		t.Errorf("grid starts at %v, want 0.5", table.Rows[0].Time)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
