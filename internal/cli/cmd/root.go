package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/RanmaKei/Video-Tools/internal/config"
	"github.com/RanmaKei/Video-Tools/internal/dirs"
)

const (
	ExitOK            = 0
	ExitCLIError      = 1
	ExitMissingDep    = 2
	ExitProbeError    = 3
	ExitPipelineError = 4
	ExitDeviceBusy    = 5
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "framelift",
		Short:         "GPU frame-by-frame video upscaler",
		Long:          "Framelift upscales videos one frame at a time: it extracts every frame, runs each through a neural upscaling model on the GPU, fits the result to a target resolution, and re-encodes the sequence with the original audio. Interrupted runs pick up exactly where they stopped.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all subcommands
	root.PersistentFlags().StringP("out-dir", "o", "", "Output directory (default: user data dir)")
	root.PersistentFlags().String("work-root", "", "Base path for per-GPU working directories (default: user cache dir)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Show full subprocess commands/output")
	root.PersistentFlags().String("ffmpeg-binary", "", "Path to ffmpeg")
	root.PersistentFlags().String("ffprobe-binary", "", "Path to ffprobe")
	root.PersistentFlags().String("upscaler-binary", "", "Path to realesrgan-ncnn-vulkan")
	root.PersistentFlags().String("presets-file", "", "YAML file with additional encode presets")

	// Subcommands
	root.AddCommand(newRunCmd())
	root.AddCommand(newResumeCmd())
	root.AddCommand(newJobsCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindRunFlags(fs *pflag.FlagSet) {
	fs.StringP("preset", "p", "fhd", "Encode preset: archive, uhd, qhd, fhd, or one from --presets-file")
	fs.String("fit", "pad", "Geometry fit when the upscale overshoots the target: pad, crop, stretch")
	fs.StringP("model", "m", "realesrgan-x4plus", "Upscaling model name")
	fs.Int("gpu", -1, "GPU index; -1 auto-selects the most capable device")
	fs.String("on-busy", "ask", "When the GPU is busy: ask, abort, continue")
	fs.Int("busy-pct", 50, "Utilization/memory percentage at which a GPU counts as busy")
	fs.Bool("overwrite", false, "Re-encode even when the output file already exists")
	fs.Bool("keep-job", false, "Keep the working directory after a successful run")
	fs.Bool("resume", false, "Reuse existing working directories instead of re-extracting")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	_ = config.Init(root)
	return root.ExecuteContext(ctx)
}

// Helpers
func getPersistentString(cmd *cobra.Command, name, def string) string {
	v, err := cmd.InheritedFlags().GetString(name)
	if err != nil || v == "" {
		return def
	}
	return v
}

func getPersistentBool(cmd *cobra.Command, name string, def bool) bool {
	v, err := cmd.InheritedFlags().GetBool(name)
	if err != nil {
		return def
	}
	return v
}

func defaultOutDir() string {
	if d, err := dirs.DefaultOutputDir(); err == nil {
		return d
	}
	return "."
}

func defaultWorkRoot() string {
	if d, err := dirs.DefaultWorkRoot(); err == nil {
		return d
	}
	return filepath.Join(os.TempDir(), "framelift")
}

func ensureDir(path string) error {
	if path == "" {
		path = "."
	}
	return os.MkdirAll(filepath.Clean(path), 0o755)
}
