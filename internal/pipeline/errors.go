package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the pipeline. Callers distinguish them with
// errors.Is to pick exit codes and messaging.
var (
	// ErrDeviceBusy means the selected GPU was over the busy threshold and
	// the policy (or the user) declined to proceed.
	ErrDeviceBusy = errors.New("device is busy")

	// ErrWorkDirClaimed means another run appears to own the per-device
	// working directory for this source.
	ErrWorkDirClaimed = errors.New("working directory is claimed by another run")

	// ErrNoFrames means extraction produced zero frames.
	ErrNoFrames = errors.New("no frames were extracted")

	// ErrNormalizeMismatch means the geometry pass finished but a sampled
	// frame still misses the target size.
	ErrNormalizeMismatch = errors.New("normalized frames do not match the target size")
)

// ValidationError describes an encoded output that failed post-encode checks.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("output %s failed validation: %s", e.Path, e.Reason)
}
