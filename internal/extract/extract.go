// Package extract drives the external frame-extraction tool (ffmpeg) for
// one source file.
package extract

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/RanmaKei/Video-Tools/internal/frames"
	"github.com/RanmaKei/Video-Tools/internal/util"
)

// FrameExt is the intermediate frame image format. PNG keeps the
// extraction lossless so the upscaler sees exactly what the decoder saw.
const FrameExt = "png"

// Options control the extraction invocation.
type Options struct {
	FFmpegPath string
	Runner     util.CmdRunner
	Verbose    bool
}

// Run clears framesDir and extracts every frame of source into it as
// frame_NNNNNN.png, blocking until the tool exits. It returns the number of
// frames produced. ffmpeg writes each frame atomically one file at a time,
// which is what makes an interrupted extraction recoverable by count alone.
func Run(ctx context.Context, source, framesDir string, opts Options) (int, error) {
	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	if err := util.ClearDir(framesDir); err != nil {
		return 0, fmt.Errorf("clear frames dir: %w", err)
	}

	pattern := filepath.Join(framesDir, frames.Pattern(FrameExt))
	_, err := runner.Run(ctx, util.CmdSpec{
		Path: opts.FFmpegPath,
		Args: []string{
			"-hide_banner", "-loglevel", "error",
			"-i", source,
			"-fps_mode", "passthrough",
			pattern,
		},
		Verbose: opts.Verbose,
	})
	if err != nil {
		return 0, fmt.Errorf("extract frames from %s: %w", filepath.Base(source), err)
	}

	set, err := frames.Load(framesDir)
	if err != nil {
		return 0, err
	}
	return len(set), nil
}
