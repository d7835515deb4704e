// Package encode reassembles a processed frame sequence into the final
// output video with ffmpeg.
package encode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RanmaKei/Video-Tools/internal/model"
	"github.com/RanmaKei/Video-Tools/internal/preset"
	"github.com/RanmaKei/Video-Tools/internal/util"
)

// Options control the encode pass.
type Options struct {
	FFmpegPath string
	Overwrite  bool
	Runner     util.CmdRunner
	Verbose    bool
}

// OutputPath derives the destination file under outDir. The name carries the
// preset and device tag so runs of the same source at different targets do
// not collide.
func OutputPath(jobName string, p preset.Preset, outDir, tag string) string {
	return filepath.Join(outDir, fmt.Sprintf("%s_%s_%s.%s", jobName, p.Name, tag, p.Container))
}

// Run encodes framesDir into outputPath and reports the artifact size.
func Run(ctx context.Context, source model.SourceVideo, p preset.Preset, framesDir, outputPath string, opts Options) (model.OutputArtifact, error) {
	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}

	args := BuildArgs(source, p, framesDir, outputPath, opts.Overwrite)
	if _, err := runner.Run(ctx, util.CmdSpec{
		Path:    opts.FFmpegPath,
		Args:    args,
		Verbose: opts.Verbose,
	}); err != nil {
		return model.OutputArtifact{}, fmt.Errorf("encode %s: %w", filepath.Base(outputPath), err)
	}

	fi, err := os.Stat(outputPath)
	if err != nil {
		return model.OutputArtifact{}, fmt.Errorf("stat encoded output: %w", err)
	}
	return model.OutputArtifact{Path: outputPath, Bytes: fi.Size()}, nil
}
