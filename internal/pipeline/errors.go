package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the alignment, segmentation and feature stages.
// Callers match them with errors.Is; messages carry the offending values.
var (
	ErrEmptyStream      = errors.New("empty sensor stream")
	ErrDisjointRange    = errors.New("sensor streams do not overlap in time")
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidRange     = errors.New("invalid window range")
	ErrInvalidParameter = errors.New("invalid pipeline parameter")
	ErrNonFiniteTime    = errors.New("non-finite timestamp")
)

// MissingFileError reports a required session file that could not be found.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("missing session file: %s", e.Path)
}
