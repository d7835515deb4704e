package model

// OnBusyPolicy decides what happens when the selected GPU is busy or locked.
type OnBusyPolicy string

const (
	OnBusyAsk      OnBusyPolicy = "ask"      // prompt the operator (requires a TTY)
	OnBusyAbort    OnBusyPolicy = "abort"    // skip this run
	OnBusyContinue OnBusyPolicy = "continue" // place work anyway
)

// FitMode selects the geometry transform used when an upscaled frame
// overshoots the target resolution.
type FitMode string

const (
	FitPad     FitMode = "pad"
	FitCrop    FitMode = "crop"
	FitStretch FitMode = "stretch"
)

// CLIOptions holds user-configurable runtime options as parsed from flags.
// It is assembled once per run and passed explicitly into every component.
type CLIOptions struct {
	InputDir    string   // Directory scanned for source videos; empty when files are listed explicitly.
	Files       []string // Explicit source files.
	OutDir      string   // Final artifact directory.
	WorkRoot    string   // Base path for per-GPU job directories (gets "_<gpuTag>" appended).
	PresetsFile string   // Optional YAML preset overlay.

	Preset  string // Preset name from the catalog.
	Fit     FitMode
	Model   string // Upscaler model name passed to the external tool.
	GPU     int    // Explicit device index; -1 = auto-select.
	OnBusy  OnBusyPolicy
	BusyPct int // Utilization/memory-percent busy threshold (inclusive).

	Resume    bool // Reuse existing job directories instead of starting fresh.
	Overwrite bool // Re-encode over an existing output artifact.
	KeepJob   bool // Retain the job directory after success.

	FFmpegBinary   string // Optional explicit path to ffmpeg.
	FFprobeBinary  string // Optional explicit path to ffprobe.
	UpscalerBinary string // Optional explicit path to the upscaling tool.

	Verbose bool
}

// SourceVideo is the probed, immutable description of one input file.
type SourceVideo struct {
	Path       string
	Width      int
	Height     int
	PixFmt     string
	FPS        float64 // Decimal framerate reduced from the probed rational.
	FPSRaw     string  // Original rational text, e.g. "30000/1001".
	Duration   float64 // Seconds.
	BitRate    int64
	VideoCodec string
	AudioCodec string // Empty when the source has no audio stream.
	SampleRate int
	Channels   int
	ColorSpace string
	HasAudio   bool
}

// OutputArtifact captures the result of a completed pipeline run.
type OutputArtifact struct {
	Path    string
	Bytes   int64
	Width   int
	Height  int
	Skipped bool // True when a pre-existing valid output short-circuited the run.
}
