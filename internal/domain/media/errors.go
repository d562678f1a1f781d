package media

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks client faults: bad upload, bad format token, bad size cap.
	ErrInvalidRequest = errors.New("invalid request")

	ErrProbeFailed     = errors.New("probe failed")
	ErrTranscodeFailed = errors.New("transcode failed")
	ErrNoProgress      = errors.New("segment made no progress")
	ErrPackFailed      = errors.New("pack failed")
)

// SourceIndex is the SegmentError index used for failures on the uploaded input.
const SourceIndex = -1

// SegmentError reports which iteration of the segmentation loop failed.
// It matches both its Kind sentinel and the underlying cause with errors.Is.
type SegmentError struct {
	Index int
	Kind  error
	Err   error
}

func (e *SegmentError) Error() string {
	target := fmt.Sprintf("segment %d", e.Index)
	if e.Index == SourceIndex {
		target = "source"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", target, e.Kind)
	}
	if errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("%s: %v", target, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", target, e.Kind, e.Err)
}

func (e *SegmentError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// InvalidRequest wraps a validation failure so it matches ErrInvalidRequest.
func InvalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
