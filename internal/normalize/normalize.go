// Package normalize runs the geometry transform that brings upscaled frames
// to the exact target resolution when the integer upscale factor overshoots
// it.
package normalize

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/RanmaKei/Video-Tools/internal/frames"
	"github.com/RanmaKei/Video-Tools/internal/model"
	"github.com/RanmaKei/Video-Tools/internal/preset"
	"github.com/RanmaKei/Video-Tools/internal/util"
)

// Options control the normalization pass.
type Options struct {
	FFmpegPath string
	Fit        model.FitMode
	Runner     util.CmdRunner
	Verbose    bool
}

// Filter returns the ffmpeg video filter implementing the chosen fit mode
// for the given target.
func Filter(fit model.FitMode, t preset.TargetSpec) string {
	switch fit {
	case model.FitStretch:
		return fmt.Sprintf("scale=%d:%d", t.Width, t.Height)
	case model.FitCrop:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
			t.Width, t.Height, t.Width, t.Height)
	default: // pad
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
			t.Width, t.Height, t.Width, t.Height)
	}
}

// Run transforms every frame in inputDir into outputDir at exactly the
// target size, preserving the sequence naming so downstream stages keep
// diffing by filename.
func Run(ctx context.Context, inputDir, outputDir string, target preset.TargetSpec, opts Options) error {
	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	if err := util.ClearDir(outputDir); err != nil {
		return fmt.Errorf("clear normalized dir: %w", err)
	}

	inPattern := filepath.Join(inputDir, frames.Pattern("png"))
	outPattern := filepath.Join(outputDir, frames.Pattern("png"))
	if _, err := runner.Run(ctx, util.CmdSpec{
		Path: opts.FFmpegPath,
		Args: []string{
			"-hide_banner", "-loglevel", "error",
			"-i", inPattern,
			"-vf", Filter(opts.Fit, target),
			outPattern,
		},
		Verbose: opts.Verbose,
	}); err != nil {
		return fmt.Errorf("normalize frames to %dx%d: %w", target.Width, target.Height, err)
	}
	return nil
}
