// Package upscale drives the external neural-upscaling tool
// (realesrgan-ncnn-vulkan) over a directory of frames.
package upscale

import (
	"context"
	"fmt"
	"strconv"

	"github.com/RanmaKei/Video-Tools/internal/frames"
	"github.com/RanmaKei/Video-Tools/internal/util"
)

// DefaultModel is the general-purpose Real-ESRGAN model shipped with the
// ncnn binary.
const DefaultModel = "realesrgan-x4plus"

// Options control the upscaler invocation.
type Options struct {
	BinPath string
	Model   string
	Scale   int // required factor from the target resolver, 1..4
	Device  int // GPU index; negative = let the tool pick
	Runner  util.CmdRunner
	Verbose bool
}

// Run invokes the tool once over inputDir with output directed at
// outputDir. The tool writes one output frame per input frame under the
// same filename, and leaves files outside the input subset untouched, which
// is what the reconciliation engine relies on for subset re-invocation.
func Run(ctx context.Context, inputDir, outputDir string, opts Options) error {
	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	if err := util.EnsureDir(outputDir); err != nil {
		return err
	}

	args := []string{
		"-i", inputDir,
		"-o", outputDir,
		"-n", model,
		"-s", strconv.Itoa(opts.Scale),
		"-f", "png",
	}
	if opts.Device >= 0 {
		args = append(args, "-g", strconv.Itoa(opts.Device))
	}

	if _, err := runner.Run(ctx, util.CmdSpec{
		Path:    opts.BinPath,
		Args:    args,
		Verbose: opts.Verbose,
	}); err != nil {
		return fmt.Errorf("upscale %s: %w", inputDir, err)
	}
	return nil
}

// Func adapts Options into the callback shape the reconciliation engine
// takes.
func Func(opts Options) frames.UpscaleFunc {
	return func(ctx context.Context, inputDir, outputDir string) error {
		return Run(ctx, inputDir, outputDir, opts)
	}
}
