package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/RanmaKei/Video-Tools/internal/gpu"
	"github.com/RanmaKei/Video-Tools/internal/model"
	"github.com/RanmaKei/Video-Tools/internal/pipeline"
	"github.com/RanmaKei/Video-Tools/internal/preset"
	"github.com/RanmaKei/Video-Tools/internal/probe"
	"github.com/RanmaKei/Video-Tools/internal/ui"
	"github.com/RanmaKei/Video-Tools/internal/util"
	"github.com/RanmaKei/Video-Tools/internal/util/deps"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "run [files...]",
		Short:         "Upscale one or more videos",
		Long:          "Upscale the given video files, or every video in a directory when --input-dir is set. Each file goes through extract, upscale, fit, and encode; an existing output skips the file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := assembleRunInputs(cmd, args)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if in.InputDir == "" && len(in.Files) == 0 {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("nothing to do: pass video files or --input-dir")}
			}
			return runExecute(cmd, in)
		},
	}
	cmd.Flags().StringP("input-dir", "i", "", "Process every video in this directory")
	bindRunFlags(cmd.Flags())
	return cmd
}

// assembleRunInputs validates flags and produces the options shared by the
// run, resume, and plan commands.
func assembleRunInputs(cmd *cobra.Command, args []string) (model.CLIOptions, error) {
	var opts model.CLIOptions

	opts.OutDir = filepath.Clean(getPersistentString(cmd, "out-dir", defaultOutDir()))
	opts.WorkRoot = filepath.Clean(getPersistentString(cmd, "work-root", defaultWorkRoot()))
	opts.Verbose = getPersistentBool(cmd, "verbose", false)
	opts.FFmpegBinary = getPersistentString(cmd, "ffmpeg-binary", "")
	opts.FFprobeBinary = getPersistentString(cmd, "ffprobe-binary", "")
	opts.UpscalerBinary = getPersistentString(cmd, "upscaler-binary", "")
	opts.PresetsFile = getPersistentString(cmd, "presets-file", "")

	opts.Preset, _ = cmd.Flags().GetString("preset")
	fit, _ := cmd.Flags().GetString("fit")
	opts.Model, _ = cmd.Flags().GetString("model")
	opts.GPU, _ = cmd.Flags().GetInt("gpu")
	onBusy, _ := cmd.Flags().GetString("on-busy")
	opts.BusyPct, _ = cmd.Flags().GetInt("busy-pct")
	opts.Overwrite, _ = cmd.Flags().GetBool("overwrite")
	opts.KeepJob, _ = cmd.Flags().GetBool("keep-job")
	opts.Resume, _ = cmd.Flags().GetBool("resume")

	fit = strings.ToLower(fit)
	switch fit {
	case string(model.FitPad), string(model.FitCrop), string(model.FitStretch):
		opts.Fit = model.FitMode(fit)
	default:
		return opts, fmt.Errorf("invalid --fit: %q (valid: pad|crop|stretch)", fit)
	}

	onBusy = strings.ToLower(onBusy)
	switch onBusy {
	case string(model.OnBusyAsk), string(model.OnBusyAbort), string(model.OnBusyContinue):
		opts.OnBusy = model.OnBusyPolicy(onBusy)
	default:
		return opts, fmt.Errorf("invalid --on-busy: %q (valid: ask|abort|continue)", onBusy)
	}

	if opts.BusyPct < 1 || opts.BusyPct > 100 {
		return opts, fmt.Errorf("invalid --busy-pct: %d (valid: 1..100)", opts.BusyPct)
	}

	if f := cmd.Flags().Lookup("input-dir"); f != nil {
		opts.InputDir, _ = cmd.Flags().GetString("input-dir")
	}
	opts.Files = args
	if opts.InputDir != "" && len(opts.Files) > 0 {
		return opts, fmt.Errorf("--input-dir and explicit files are mutually exclusive")
	}
	for _, f := range opts.Files {
		if _, err := os.Stat(f); err != nil {
			return opts, fmt.Errorf("input file %s: %w", f, err)
		}
	}

	return opts, nil
}

// loadCatalog builds the preset catalog, applying the overlay file when set.
func loadCatalog(opts model.CLIOptions) (*preset.Catalog, error) {
	catalog := preset.NewCatalog()
	if opts.PresetsFile != "" {
		if err := catalog.LoadOverlay(opts.PresetsFile); err != nil {
			return nil, fmt.Errorf("load presets file: %w", err)
		}
	}
	if _, err := catalog.Get(opts.Preset); err != nil {
		return nil, err
	}
	return catalog, nil
}

// buildService resolves binaries and assembles the pipeline service.
func buildService(opts model.CLIOptions, extra ...pipeline.Option) (*pipeline.Service, error) {
	ffmpegPath, err := deps.FindFFmpeg(opts.FFmpegBinary)
	if err != nil {
		return nil, &ExitError{Code: ExitMissingDep, Err: err}
	}
	ffprobePath, err := deps.FindFFprobe(opts.FFprobeBinary)
	if err != nil {
		return nil, &ExitError{Code: ExitMissingDep, Err: err}
	}
	upscalerPath, err := deps.FindUpscaler(opts.UpscalerBinary)
	if err != nil {
		return nil, &ExitError{Code: ExitMissingDep, Err: err}
	}

	catalog, err := loadCatalog(opts)
	if err != nil {
		return nil, &ExitError{Code: ExitCLIError, Err: err}
	}

	options := []pipeline.Option{
		pipeline.WithFFmpegPath(ffmpegPath),
		pipeline.WithFFprobePath(ffprobePath),
		pipeline.WithUpscalerPath(upscalerPath),
		pipeline.WithCLIOptions(opts),
		pipeline.WithCatalog(catalog),
	}
	// GPU sampling is best-effort: without nvidia-smi the busy gate is off.
	if smiPath, serr := deps.FindNvidiaSMI(""); serr == nil {
		options = append(options, pipeline.WithGPUProvider(gpu.NewSMIProvider(smiPath, util.NewDefaultRunner())))
	}
	options = append(options, extra...)
	return pipeline.NewService(options...), nil
}

func runExecute(cmd *cobra.Command, opts model.CLIOptions) error {
	if err := ensureDir(opts.OutDir); err != nil {
		return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("create output dir: %v", err)}
	}

	files := opts.Files
	if opts.InputDir != "" {
		var derr error
		files, derr = pipeline.Discover(opts.InputDir)
		if derr != nil {
			return &ExitError{Code: ExitCLIError, Err: derr}
		}
		if len(files) == 0 {
			return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("no video files in %s", opts.InputDir)}
		}
	}

	reporter := ui.NewConsole(cmd.OutOrStdout(), opts.Verbose)
	svc, err := buildService(opts, pipeline.WithReporter(reporter))
	if err != nil {
		return err
	}

	stats, _, herr := svc.RunBatch(cmd.Context(), files)
	printSummary(cmd, stats)
	if herr != nil {
		return exitFor(herr)
	}
	return batchError(stats)
}

func printSummary(cmd *cobra.Command, stats pipeline.RunStats) {
	if stats.Total <= 1 {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d processed in %s: %d succeeded, %d skipped, %d failed\n",
		stats.Total, stats.Elapsed.Round(time.Second), stats.Succeeded, stats.Skipped, stats.Failed)
}

// batchError maps batch stats to a process exit error.
func batchError(stats pipeline.RunStats) error {
	if stats.Failed == 0 {
		return nil
	}
	return &ExitError{
		Code: ExitPipelineError,
		Err:  fmt.Errorf("%d of %d file(s) failed", stats.Failed, stats.Total),
	}
}

// exitFor maps a single-job error to an ExitError, keeping busy/claimed
// outcomes distinguishable for scripts.
func exitFor(err error) error {
	if err == nil {
		return nil
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee
	}
	if errors.Is(err, pipeline.ErrDeviceBusy) || errors.Is(err, pipeline.ErrWorkDirClaimed) {
		return &ExitError{Code: ExitDeviceBusy, Err: err}
	}
	var perr *probe.Error
	if errors.As(err, &perr) {
		return &ExitError{Code: ExitProbeError, Err: err}
	}
	return &ExitError{Code: ExitPipelineError, Err: err}
}
