// Package pipeline provides planning and orchestration for the upscaling
// workflow: probe → plan → extract → upscale → normalize → encode → validate.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RanmaKei/Video-Tools/internal/confirm"
	"github.com/RanmaKei/Video-Tools/internal/encode"
	"github.com/RanmaKei/Video-Tools/internal/extract"
	"github.com/RanmaKei/Video-Tools/internal/frames"
	"github.com/RanmaKei/Video-Tools/internal/gpu"
	"github.com/RanmaKei/Video-Tools/internal/job"
	"github.com/RanmaKei/Video-Tools/internal/model"
	"github.com/RanmaKei/Video-Tools/internal/normalize"
	"github.com/RanmaKei/Video-Tools/internal/preset"
	"github.com/RanmaKei/Video-Tools/internal/probe"
	"github.com/RanmaKei/Video-Tools/internal/progress"
	"github.com/RanmaKei/Video-Tools/internal/upscale"
	"github.com/RanmaKei/Video-Tools/internal/util"
	"github.com/RanmaKei/Video-Tools/internal/util/format"
)

// Service orchestrates the full per-video workflow.
type Service struct {
	ffmpegPath   string
	ffprobePath  string
	upscalerPath string
	opts         model.CLIOptions
	runner       util.CmdRunner
	reporter     progress.Reporter
	prober       *probe.Prober
	provider     gpu.InfoProvider
	confirmer    confirm.Confirmer
	catalog      *preset.Catalog

	detector *gpu.Detector

	device    int
	deviceTag string
	picked    bool
}

// Option configures a Service.
type Option func(*Service)

// WithFFmpegPath sets the ffmpeg binary path.
func WithFFmpegPath(p string) Option {
	return func(s *Service) {
		s.ffmpegPath = p
	}
}

// WithFFprobePath sets the ffprobe binary path.
func WithFFprobePath(p string) Option {
	return func(s *Service) {
		s.ffprobePath = p
	}
}

// WithUpscalerPath sets the upscaling tool binary path.
func WithUpscalerPath(p string) Option {
	return func(s *Service) {
		s.upscalerPath = p
	}
}

// WithCLIOptions sets the CLI options used for planning and execution.
func WithCLIOptions(o model.CLIOptions) Option {
	return func(s *Service) {
		s.opts = o
	}
}

// WithRunner injects a custom command runner (useful for testing).
func WithRunner(r util.CmdRunner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithReporter attaches a progress reporter (used by the CLI and TUI).
func WithReporter(rp progress.Reporter) Option {
	return func(s *Service) {
		s.reporter = rp
	}
}

// WithGPUProvider injects the device inventory/activity source. Without one
// the busy gate is skipped and device 0 is assumed.
func WithGPUProvider(p gpu.InfoProvider) Option {
	return func(s *Service) {
		s.provider = p
	}
}

// WithConfirmer overrides the operator confirmation strategy derived from
// the on-busy policy.
func WithConfirmer(c confirm.Confirmer) Option {
	return func(s *Service) {
		s.confirmer = c
	}
}

// WithCatalog injects a preset catalog (with any overlay already loaded).
func WithCatalog(c *preset.Catalog) Option {
	return func(s *Service) {
		s.catalog = c
	}
}

// NewService constructs a new Service with the provided options.
// It applies sensible defaults for missing components.
func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, o := range opts {
		o(s)
	}
	if s.runner == nil {
		s.runner = util.NewDefaultRunner()
	}
	if s.reporter == nil {
		s.reporter = progress.Nop{}
	}
	if s.catalog == nil {
		s.catalog = preset.NewCatalog()
	}
	if s.confirmer == nil {
		s.confirmer = confirm.ForPolicy(s.opts.OnBusy)
	}
	s.prober = probe.New(s.ffprobePath, s.runner, s.opts.Verbose)
	if s.provider != nil {
		cfg := gpu.DefaultDetectorConfig()
		if s.opts.BusyPct > 0 {
			cfg.BusyPct = float64(s.opts.BusyPct)
		}
		s.detector = gpu.NewDetector(s.provider, cfg)
	}
	return s
}

// Result returns the outcome of RunJob.
type Result struct {
	Source     model.SourceVideo
	Resolution preset.Resolution
	Job        job.Job
	Output     *model.OutputArtifact
	Skipped    bool
	Frames     int
}

// RunJob executes the full pipeline for a single source file.
// It never prints; when a Reporter is present, it emits progress and a final
// Result. On failure the job directory is retained for a later resume.
func (s *Service) RunJob(ctx context.Context, path string) (Result, error) {
	var res Result

	if s.ffmpegPath == "" {
		return res, fmt.Errorf("ffmpeg path is required")
	}
	if s.ffprobePath == "" {
		return res, fmt.Errorf("ffprobe path is required")
	}
	if s.upscalerPath == "" {
		return res, fmt.Errorf("upscaler path is required")
	}

	p, err := s.catalog.Get(s.opts.Preset)
	if err != nil {
		return res, err
	}

	// Step 1: probe the source.
	s.update(path, progress.StageProbing, -1, "Probing source")
	source, err := s.probeSource(ctx, path)
	if err != nil {
		return res, s.fail(path, err)
	}
	res.Source = source

	// Step 2: resolve the preset into a target and upscale factor.
	resolution, err := preset.Resolve(p, source.Width, source.Height)
	if err != nil {
		return res, s.fail(path, fmt.Errorf("resolve preset %s: %w", p.Name, err))
	}
	res.Resolution = resolution
	s.warnAdvisories(path, resolution)

	// Step 3: device placement. Resolved before the skip check because the
	// output name carries the device tag.
	if err := s.pickDevice(ctx); err != nil {
		return res, s.fail(path, err)
	}
	j := job.New(s.opts.WorkRoot, s.deviceTag, path)
	res.Job = j

	// Step 4: idempotence. Only an existing artifact that still validates
	// short-circuits the run; a partial or broken leftover is rebuilt.
	outputPath := encode.OutputPath(j.Name, p, s.opts.OutDir, s.deviceTag)
	if !s.opts.Overwrite {
		if skipped := s.checkExisting(ctx, source, outputPath, resolution); skipped != nil {
			res.Output = skipped
			res.Skipped = true
			s.update(path, progress.StageSkipped, 100, fmt.Sprintf("Exists: %s", filepath.Base(outputPath)))
			s.result(path, skipped, true, nil)
			return res, nil
		}
	}

	// Step 5: the busy/claimed gates.
	if err := s.gate(ctx, path); err != nil {
		return res, s.fail(path, err)
	}

	// Step 6: extract frames, unless resuming a job that already has them.
	resuming := s.opts.Resume && j.Exists() && util.DirNonEmpty(j.FramesDir())
	if err := j.Init(); err != nil {
		return res, s.fail(path, fmt.Errorf("init job dir: %w", err))
	}
	if resuming {
		n, _, cerr := j.Counts()
		if cerr != nil {
			return res, s.fail(path, cerr)
		}
		res.Frames = n
		s.update(path, progress.StageExtracting, 100, fmt.Sprintf("Resuming with %d extracted frames", n))
	} else {
		s.update(path, progress.StageExtracting, -1, "Extracting frames")
		n, eerr := extract.Run(ctx, source.Path, j.FramesDir(), extract.Options{
			FFmpegPath: s.ffmpegPath,
			Runner:     s.runner,
			Verbose:    s.opts.Verbose,
		})
		if eerr != nil {
			return res, s.fail(path, fmt.Errorf("extract: %w", eerr))
		}
		if n == 0 {
			return res, s.fail(path, fmt.Errorf("%s: %w", path, ErrNoFrames))
		}
		res.Frames = n

		// A fresh pass upscales the whole extracted set; frames left by an
		// earlier run at a different factor must not be adopted by filename.
		if cerr := util.ClearDir(j.UpscaledDir()); cerr != nil {
			return res, s.fail(path, cerr)
		}
	}

	// Step 7: upscale only the frames that are not already done.
	s.update(path, progress.StageUpscaling, -1, fmt.Sprintf("Upscaling at %dx on %s", resolution.Factor, s.deviceTag))
	if err := frames.Reconcile(ctx, j, upscale.Func(upscale.Options{
		BinPath: s.upscalerPath,
		Model:   s.opts.Model,
		Scale:   resolution.Factor,
		Device:  s.device,
		Runner:  s.runner,
		Verbose: s.opts.Verbose,
	})); err != nil {
		return res, s.fail(path, fmt.Errorf("upscale: %w", err))
	}

	// Step 8: normalize geometry when the upscaled frames miss the target.
	// The decision samples a real frame rather than trusting the factor
	// arithmetic, since the clamp can leave frames under the target too.
	encodeDir := j.UpscaledDir()
	needFit := resolution.NeedsNormalize()
	if w, h, serr := s.sampleFrame(ctx, j.UpscaledDir()); serr == nil {
		needFit = w != resolution.Target.Width || h != resolution.Target.Height
		resolution.PreWidth = w
		resolution.PreHeight = h
		res.Resolution = resolution
	}
	if needFit {
		s.update(path, progress.StageNormalizing, -1,
			fmt.Sprintf("Fitting %dx%d to %dx%d", resolution.PreWidth, resolution.PreHeight, resolution.Target.Width, resolution.Target.Height))
		if err := normalize.Run(ctx, j.UpscaledDir(), j.NormalizedDir(), resolution.Target, normalize.Options{
			FFmpegPath: s.ffmpegPath,
			Fit:        s.opts.Fit,
			Runner:     s.runner,
			Verbose:    s.opts.Verbose,
		}); err != nil {
			return res, s.fail(path, err)
		}
		// The pass must land exactly on the target; re-sample to prove it.
		if w, h, serr := s.sampleFrame(ctx, j.NormalizedDir()); serr == nil &&
			(w != resolution.Target.Width || h != resolution.Target.Height) {
			return res, s.fail(path, fmt.Errorf("frames are %dx%d after fitting, want %dx%d: %w",
				w, h, resolution.Target.Width, resolution.Target.Height, ErrNormalizeMismatch))
		}
		encodeDir = j.NormalizedDir()
	}

	// Step 9: encode.
	s.update(path, progress.StageEncoding, -1, fmt.Sprintf("Encoding %s", filepath.Base(outputPath)))
	if err := util.EnsureDir(s.opts.OutDir); err != nil {
		return res, s.fail(path, err)
	}
	if !s.opts.Overwrite {
		// Anything still at the output path failed the skip check; the
		// strict no-overwrite encode must not trip over it.
		_ = util.RemoveIfExists(outputPath)
	}
	artifact, err := encode.Run(ctx, source, p, encodeDir, outputPath, encode.Options{
		FFmpegPath: s.ffmpegPath,
		Overwrite:  s.opts.Overwrite,
		Runner:     s.runner,
		Verbose:    s.opts.Verbose,
	})
	if err != nil {
		return res, s.fail(path, err)
	}
	artifact.Width = resolution.Target.Width
	artifact.Height = resolution.Target.Height

	// Step 10: validate before claiming success. An artifact that fails
	// validation is removed so it cannot satisfy the skip check later.
	s.update(path, progress.StageValidating, -1, "Validating output")
	if err := s.validateOutput(ctx, source, artifact.Path); err != nil {
		_ = util.RemoveIfExists(artifact.Path)
		return res, s.fail(path, err)
	}
	res.Output = &artifact

	// Step 11: the job directory only survives success on request.
	if !s.opts.KeepJob {
		if err := j.Remove(); err != nil {
			s.log(path, fmt.Sprintf("warning: could not remove job dir: %v", err))
		}
	}

	s.update(path, progress.StageCompleted, 100,
		fmt.Sprintf("Saved: %s (%s)", filepath.Base(artifact.Path), format.HumanizeBytes(artifact.Bytes)))
	s.result(path, &artifact, false, nil)
	return res, nil
}

// sampleFrame measures the dimensions of the first frame in dir.
func (s *Service) sampleFrame(ctx context.Context, dir string) (int, int, error) {
	set, err := frames.Load(dir)
	if err != nil {
		return 0, 0, err
	}
	names := set.List()
	if len(names) == 0 {
		return 0, 0, fmt.Errorf("no frames in %s", dir)
	}
	return s.prober.ImageSize(ctx, filepath.Join(dir, names[0]))
}

// probeSource maps an ffprobe result onto the domain source description.
func (s *Service) probeSource(ctx context.Context, path string) (model.SourceVideo, error) {
	r, err := s.prober.Probe(ctx, path)
	if err != nil {
		return model.SourceVideo{}, err
	}
	if !r.HasVideo() {
		return model.SourceVideo{}, &probe.Error{Path: path, Err: fmt.Errorf("no usable video stream")}
	}

	v := r.PrimaryVideo
	src := model.SourceVideo{
		Path:       path,
		Width:      v.Width,
		Height:     v.Height,
		PixFmt:     v.PixFmt,
		FPS:        r.FrameRate(probe.DefaultFrameRate),
		FPSRaw:     v.AvgFrameRate,
		Duration:   r.Format.Duration,
		BitRate:    r.Format.BitRate,
		VideoCodec: v.Codec,
		ColorSpace: v.ColorSpace,
		HasAudio:   r.HasAudio(),
	}
	if src.HasAudio {
		a := r.AudioStreams[0]
		src.AudioCodec = a.Codec
		src.SampleRate = a.SampleRate
		src.Channels = a.Channels
	}
	return src, nil
}

// checkExisting returns a skip artifact when an output already sits at
// outputPath and still validates, nil otherwise. It never mutates the
// filesystem, so the planner can call it too.
func (s *Service) checkExisting(ctx context.Context, source model.SourceVideo, outputPath string, resolution preset.Resolution) *model.OutputArtifact {
	fi, err := os.Stat(outputPath)
	if err != nil || fi.Size() == 0 {
		return nil
	}
	if s.validateOutput(ctx, source, outputPath) != nil {
		return nil
	}
	return &model.OutputArtifact{
		Path:    outputPath,
		Bytes:   fi.Size(),
		Width:   resolution.Target.Width,
		Height:  resolution.Target.Height,
		Skipped: true,
	}
}

// pickDevice resolves the device index and tag once per Service.
func (s *Service) pickDevice(ctx context.Context) error {
	if s.picked {
		return nil
	}
	idx := s.opts.GPU
	if idx < 0 {
		idx = 0
		if s.provider != nil {
			devices, err := s.provider.Devices(ctx)
			if err == nil && len(devices) > 0 {
				idx = gpu.AutoSelect(devices)
			}
		}
	}
	s.device = idx
	s.deviceTag = job.Tag(idx)
	s.picked = true
	return nil
}

// gate enforces the claimed-directory and busy-device checks. Both are
// advisory: the confirmer decides whether an unfavorable state stops the run.
func (s *Service) gate(ctx context.Context, path string) error {
	if claimed, owner := job.Locked(s.opts.WorkRoot, s.deviceTag); claimed {
		// A resume run owns its unfinished directories; only fresh runs ask.
		if !s.opts.Resume {
			ok, err := s.confirmer.Confirm(fmt.Sprintf("Work directory for %s is in use (found %s). Continue anyway?", s.deviceTag, owner))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: %w", s.deviceTag, ErrWorkDirClaimed)
			}
		}
	}

	if s.detector == nil {
		return nil
	}
	status, err := s.detector.Check(ctx, s.device)
	if err != nil {
		// No activity counters is a degraded environment, not a failure.
		s.log(path, fmt.Sprintf("warning: could not sample device activity: %v", err))
		return nil
	}
	if !status.Busy {
		return nil
	}
	ok, cerr := s.confirmer.Confirm(fmt.Sprintf("Device %s looks busy (%s). Continue anyway?", s.deviceTag, status.Reason))
	if cerr != nil {
		return cerr
	}
	if !ok {
		return fmt.Errorf("%s (%s): %w", s.deviceTag, status.Reason, ErrDeviceBusy)
	}
	return nil
}

// warnAdvisories surfaces waste warnings without changing the plan.
func (s *Service) warnAdvisories(path string, r preset.Resolution) {
	for _, a := range r.Advisories {
		s.log(path, "warning: "+a.Message)
	}
}

func (s *Service) update(video string, stage progress.Stage, pct float64, msg string) {
	s.reporter.Update(progress.Update{Video: video, Stage: stage, Percent: pct, Message: msg})
}

func (s *Service) log(video, line string) {
	s.reporter.Log(progress.Log{Video: video, Stream: progress.StreamStderr, Line: line})
}

func (s *Service) result(video string, out *model.OutputArtifact, skipped bool, err error) {
	r := progress.Result{Video: video, Skipped: skipped, Err: err}
	if out != nil {
		r.OutputPath = out.Path
		r.Bytes = out.Bytes
	}
	s.reporter.Result(r)
}

// fail reports a terminal error for the video and returns it unchanged.
func (s *Service) fail(video string, err error) error {
	s.update(video, progress.StageError, -1, err.Error())
	s.result(video, nil, false, err)
	return err
}
