package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/RanmaKei/Video-Tools/internal/model"
)

// validateOutput checks that the encoded artifact exists, is non-empty, and
// probes as a playable video. Audio presence is required only when the
// source carried audio.
func (s *Service) validateOutput(ctx context.Context, source model.SourceVideo, path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return &ValidationError{Path: path, Reason: fmt.Sprintf("missing output: %v", err)}
	}
	if fi.Size() == 0 {
		return &ValidationError{Path: path, Reason: "output file is empty"}
	}

	res, err := s.prober.Probe(ctx, path)
	if err != nil {
		return &ValidationError{Path: path, Reason: fmt.Sprintf("probe failed: %v", err)}
	}
	if !res.HasVideo() {
		return &ValidationError{Path: path, Reason: "no video stream in output"}
	}
	if source.HasAudio && !res.HasAudio() {
		return &ValidationError{Path: path, Reason: "source had audio but output has none"}
	}
	return nil
}
