package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RanmaKei/Video-Tools/internal/confirm"
	"github.com/RanmaKei/Video-Tools/internal/frames"
	"github.com/RanmaKei/Video-Tools/internal/gpu"
	"github.com/RanmaKei/Video-Tools/internal/job"
	"github.com/RanmaKei/Video-Tools/internal/model"
	"github.com/RanmaKei/Video-Tools/internal/progress"
	"github.com/RanmaKei/Video-Tools/internal/util"
)

const (
	fakeFFmpeg   = "/fake/ffmpeg"
	fakeFFprobe  = "/fake/ffprobe"
	fakeUpscaler = "/fake/realesrgan-ncnn-vulkan"
)

type recordingReporter struct {
	updates []progress.Update
	results []progress.Result
	logs    []progress.Log
}

func (r *recordingReporter) Update(u progress.Update) { r.updates = append(r.updates, u) }
func (r *recordingReporter) Log(l progress.Log)       { r.logs = append(r.logs, l) }
func (r *recordingReporter) Result(res progress.Result) {
	r.results = append(r.results, res)
}

func (r *recordingReporter) sawStage(stage progress.Stage) bool {
	for _, u := range r.updates {
		if u.Stage == stage {
			return true
		}
	}
	return false
}

// fakeToolRunner simulates ffprobe, the frame extractor/encoder, and the
// upscaling tool by acting on the real (temp) filesystem.
type fakeToolRunner struct {
	t *testing.T

	sourceW, sourceH int
	frameW, frameH   int // upscaled frame size reported for png probes
	normW, normH     int // overrides frameW/frameH for normalized frames
	frameCount       int

	// output probing behavior
	outputHasVideo bool
	outputHasAudio bool

	// recordings
	extractCalls  int
	upscaleInputs []int // staged file count per upscaler invocation
	encodeArgs    []string
}

func (f *fakeToolRunner) Run(_ context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	switch spec.Path {
	case fakeFFprobe:
		path := spec.Args[len(spec.Args)-1]
		switch {
		case strings.HasSuffix(path, ".png"):
			return util.CmdResult{Stdout: []byte(f.frameJSON(path))}, nil
		case strings.Contains(filepath.Base(path), "_gpu"):
			return util.CmdResult{Stdout: []byte(f.outputJSON(path))}, nil
		default:
			return util.CmdResult{Stdout: []byte(f.sourceJSON(path))}, nil
		}

	case fakeFFmpeg:
		switch {
		case contains(spec.Args, "-fps_mode"):
			f.extractCalls++
			dir := filepath.Dir(spec.Args[len(spec.Args)-1])
			writeFrames(f.t, dir, 1, f.frameCount)
			return util.CmdResult{}, nil
		case contains(spec.Args, "-vf"):
			inDir := filepath.Dir(argAfter(spec.Args, "-i"))
			outDir := filepath.Dir(spec.Args[len(spec.Args)-1])
			copyFrames(f.t, inDir, outDir)
			return util.CmdResult{}, nil
		default:
			f.encodeArgs = spec.Args
			out := spec.Args[len(spec.Args)-1]
			if contains(spec.Args, "-n") {
				if _, err := os.Stat(out); err == nil {
					return util.CmdResult{}, fmt.Errorf("File %s already exists. Exiting.", out)
				}
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return util.CmdResult{}, err
			}
			if err := os.WriteFile(out, make([]byte, 2048), 0o644); err != nil {
				return util.CmdResult{}, err
			}
			return util.CmdResult{}, nil
		}

	case fakeUpscaler:
		inDir := argAfter(spec.Args, "-i")
		outDir := argAfter(spec.Args, "-o")
		names, err := util.FileNames(inDir)
		if err != nil {
			return util.CmdResult{}, err
		}
		f.upscaleInputs = append(f.upscaleInputs, len(names))
		copyFrames(f.t, inDir, outDir)
		return util.CmdResult{}, nil
	}
	return util.CmdResult{}, fmt.Errorf("unexpected tool: %s", spec.Path)
}

func (f *fakeToolRunner) sourceJSON(path string) string {
	return fmt.Sprintf(`{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video",
     "width": %d, "height": %d, "pix_fmt": "yuv420p",
     "avg_frame_rate": "30000/1001", "disposition": {"attached_pic": 0}},
    {"index": 1, "codec_name": "aac", "codec_type": "audio",
     "channels": 2, "sample_rate": "48000"}
  ],
  "format": {"filename": %q, "nb_streams": 2, "duration": "10.0"}
}`, f.sourceW, f.sourceH, path)
}

func (f *fakeToolRunner) frameJSON(path string) string {
	w, h := f.frameW, f.frameH
	if f.normW > 0 && strings.Contains(path, "normalized") {
		w, h = f.normW, f.normH
	}
	return fmt.Sprintf(`{
  "streams": [{"index": 0, "codec_name": "png", "codec_type": "video",
    "width": %d, "height": %d, "disposition": {"attached_pic": 0}}],
  "format": {"filename": %q, "nb_streams": 1}
}`, w, h, path)
}

func (f *fakeToolRunner) outputJSON(path string) string {
	if data, err := os.ReadFile(path); err == nil && string(data) == "garbage" {
		// a truncated or corrupt container probes with no streams
		return fmt.Sprintf(`{"streams": [], "format": {"filename": %q}}`, path)
	}
	var streams []string
	if f.outputHasVideo {
		streams = append(streams, `{"index": 0, "codec_name": "libx264", "codec_type": "video",
     "width": 1920, "height": 1080, "avg_frame_rate": "30000/1001",
     "disposition": {"attached_pic": 0}}`)
	}
	if f.outputHasAudio {
		streams = append(streams, `{"index": 1, "codec_name": "aac", "codec_type": "audio",
     "channels": 2, "sample_rate": "48000"}`)
	}
	return fmt.Sprintf(`{"streams": [%s], "format": {"filename": %q, "duration": "10.0"}}`,
		strings.Join(streams, ","), path)
}

func writeFrames(t *testing.T, dir string, first, count int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for i := first; i < first+count; i++ {
		p := filepath.Join(dir, frames.Name(i, "png"))
		require.NoError(t, os.WriteFile(p, []byte("img"), 0o644))
	}
}

func copyFrames(t *testing.T, inDir, outDir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	names, err := util.FileNames(inDir)
	require.NoError(t, err)
	for _, n := range names {
		data, err := os.ReadFile(filepath.Join(inDir, n))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(outDir, n), data, 0o644))
	}
}

func contains(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func testOpts(t *testing.T) model.CLIOptions {
	t.Helper()
	base := t.TempDir()
	return model.CLIOptions{
		OutDir:   filepath.Join(base, "out"),
		WorkRoot: filepath.Join(base, "work"),
		Preset:   "fhd",
		Fit:      model.FitPad,
		Model:    "realesrgan-x4plus",
		GPU:      0,
		OnBusy:   model.OnBusyAbort,
	}
}

func writeSource(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("video-bytes"), 0o644))
	return p
}

func newTestService(opts model.CLIOptions, runner util.CmdRunner, extra ...Option) *Service {
	all := append([]Option{
		WithFFmpegPath(fakeFFmpeg),
		WithFFprobePath(fakeFFprobe),
		WithUpscalerPath(fakeUpscaler),
		WithCLIOptions(opts),
		WithRunner(runner),
	}, extra...)
	return NewService(all...)
}

func TestRunJobEndToEnd(t *testing.T) {
	// 960x540 source, fhd target: factor 2 lands exactly on 1920x1080.
	runner := &fakeToolRunner{
		t: t, sourceW: 960, sourceH: 540, frameW: 1920, frameH: 1080, frameCount: 5,
		outputHasVideo: true, outputHasAudio: true,
	}
	opts := testOpts(t)
	reporter := &recordingReporter{}
	svc := newTestService(opts, runner, WithReporter(reporter))

	source := writeSource(t, "clip.mkv")
	res, err := svc.RunJob(context.Background(), source)
	require.NoError(t, err)

	require.NotNil(t, res.Output)
	assert.False(t, res.Skipped)
	assert.Equal(t, 5, res.Frames)
	assert.Equal(t, 2, res.Resolution.Factor)
	assert.Equal(t, int64(2048), res.Output.Bytes)
	assert.Equal(t, 1920, res.Output.Width)
	assert.FileExists(t, res.Output.Path)
	assert.Equal(t, "clip_fhd_gpu0.mp4", filepath.Base(res.Output.Path))

	// all five frames went through the upscaler in one call
	assert.Equal(t, []int{5}, runner.upscaleInputs)

	// factor hit the target exactly, so no geometry pass
	assert.False(t, res.Resolution.NeedsNormalize())
	assert.False(t, reporter.sawStage(progress.StageNormalizing))
	assert.True(t, reporter.sawStage(progress.StageValidating))
	assert.True(t, reporter.sawStage(progress.StageCompleted))

	// job dir is cleaned up on success
	assert.NoDirExists(t, res.Job.Dir)
}

func TestRunJobSkipsExistingOutput(t *testing.T) {
	runner := &fakeToolRunner{
		t: t, sourceW: 960, sourceH: 540, frameCount: 5,
		outputHasVideo: true, outputHasAudio: true,
	}
	opts := testOpts(t)
	require.NoError(t, os.MkdirAll(opts.OutDir, 0o755))
	source := writeSource(t, "clip.mkv")
	existing := filepath.Join(opts.OutDir, "clip_fhd_gpu0.mp4")
	require.NoError(t, os.WriteFile(existing, []byte("already-done"), 0o644))

	svc := newTestService(opts, runner)
	res, err := svc.RunJob(context.Background(), source)
	require.NoError(t, err)

	assert.True(t, res.Skipped)
	require.NotNil(t, res.Output)
	assert.True(t, res.Output.Skipped)
	assert.Equal(t, existing, res.Output.Path)
	assert.Zero(t, runner.extractCalls)
	assert.Empty(t, runner.upscaleInputs)
}

func TestRunJobRebuildsBrokenExisting(t *testing.T) {
	runner := &fakeToolRunner{
		t: t, sourceW: 960, sourceH: 540, frameW: 1920, frameH: 1080, frameCount: 5,
		outputHasVideo: true, outputHasAudio: true,
	}
	opts := testOpts(t)
	require.NoError(t, os.MkdirAll(opts.OutDir, 0o755))
	source := writeSource(t, "clip.mkv")
	existing := filepath.Join(opts.OutDir, "clip_fhd_gpu0.mp4")
	require.NoError(t, os.WriteFile(existing, []byte("garbage"), 0o644))

	svc := newTestService(opts, runner)
	res, err := svc.RunJob(context.Background(), source)
	require.NoError(t, err)

	// the leftover did not probe as playable, so the full run went through
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, runner.extractCalls)
	fi, serr := os.Stat(existing)
	require.NoError(t, serr)
	assert.Equal(t, int64(2048), fi.Size())
}

func TestRunJobDifferentPresetNotSkipped(t *testing.T) {
	runner := &fakeToolRunner{
		t: t, sourceW: 960, sourceH: 540, frameW: 3840, frameH: 2160, frameCount: 3,
		outputHasVideo: true, outputHasAudio: true,
	}
	opts := testOpts(t)
	opts.Preset = "uhd"
	require.NoError(t, os.MkdirAll(opts.OutDir, 0o755))
	source := writeSource(t, "clip.mkv")
	// a finished fhd artifact for the same source must not satisfy uhd
	require.NoError(t, os.WriteFile(filepath.Join(opts.OutDir, "clip_fhd_gpu0.mp4"), []byte("done"), 0o644))

	svc := newTestService(opts, runner)
	res, err := svc.RunJob(context.Background(), source)
	require.NoError(t, err)

	assert.False(t, res.Skipped)
	require.NotNil(t, res.Output)
	assert.Equal(t, "clip_uhd_gpu0.mp4", filepath.Base(res.Output.Path))
	assert.FileExists(t, filepath.Join(opts.OutDir, "clip_fhd_gpu0.mp4"))
}

func TestRunJobZeroByteLeftoverIsReplaced(t *testing.T) {
	runner := &fakeToolRunner{
		t: t, sourceW: 960, sourceH: 540, frameW: 1920, frameH: 1080, frameCount: 2,
		outputHasVideo: true, outputHasAudio: true,
	}
	opts := testOpts(t)
	require.NoError(t, os.MkdirAll(opts.OutDir, 0o755))
	source := writeSource(t, "clip.mkv")
	existing := filepath.Join(opts.OutDir, "clip_fhd_gpu0.mp4")
	require.NoError(t, os.WriteFile(existing, nil, 0o644))

	svc := newTestService(opts, runner)
	res, err := svc.RunJob(context.Background(), source)
	require.NoError(t, err)

	// the empty file is gone before the no-clobber encode runs
	assert.Contains(t, runner.encodeArgs, "-n")
	require.NotNil(t, res.Output)
	assert.Equal(t, int64(2048), res.Output.Bytes)
}

func TestRunJobOverwriteIgnoresExisting(t *testing.T) {
	runner := &fakeToolRunner{
		t: t, sourceW: 960, sourceH: 540, frameW: 1920, frameH: 1080, frameCount: 3,
		outputHasVideo: true, outputHasAudio: true,
	}
	opts := testOpts(t)
	opts.Overwrite = true
	require.NoError(t, os.MkdirAll(opts.OutDir, 0o755))
	source := writeSource(t, "clip.mkv")
	require.NoError(t, os.WriteFile(filepath.Join(opts.OutDir, "clip_fhd_gpu0.mp4"), []byte("stale"), 0o644))

	svc := newTestService(opts, runner)
	res, err := svc.RunJob(context.Background(), source)
	require.NoError(t, err)

	assert.False(t, res.Skipped)
	assert.Equal(t, 1, runner.extractCalls)
	assert.Contains(t, runner.encodeArgs, "-y")
}

func TestRunJobResumeUpscalesOnlyMissing(t *testing.T) {
	runner := &fakeToolRunner{
		t: t, sourceW: 960, sourceH: 540, frameW: 1920, frameH: 1080, frameCount: 5,
		outputHasVideo: true, outputHasAudio: true,
	}
	opts := testOpts(t)
	opts.Resume = true
	source := writeSource(t, "clip.mkv")

	// a prior interrupted run left 5 extracted frames, 3 upscaled
	j := job.New(opts.WorkRoot, "gpu0", source)
	require.NoError(t, j.Init())
	writeFrames(t, j.FramesDir(), 1, 5)
	writeFrames(t, j.UpscaledDir(), 1, 3)

	svc := newTestService(opts, runner)
	res, err := svc.RunJob(context.Background(), source)
	require.NoError(t, err)

	require.NotNil(t, res.Output)
	assert.Equal(t, 5, res.Frames)
	// no re-extraction, and only the two missing frames were staged
	assert.Zero(t, runner.extractCalls)
	assert.Equal(t, []int{2}, runner.upscaleInputs)
}

func TestRunJobFreshRunDiscardsStaleUpscaled(t *testing.T) {
	runner := &fakeToolRunner{
		t: t, sourceW: 960, sourceH: 540, frameW: 1920, frameH: 1080, frameCount: 5,
		outputHasVideo: true, outputHasAudio: true,
	}
	opts := testOpts(t)
	source := writeSource(t, "clip.mkv")

	// a previous run at another factor left finished-looking frames behind
	j := job.New(opts.WorkRoot, "gpu0", source)
	require.NoError(t, j.Init())
	writeFrames(t, j.UpscaledDir(), 1, 5)

	svc := newTestService(opts, runner, WithConfirmer(confirm.Policy{Allow: true}))
	res, err := svc.RunJob(context.Background(), source)
	require.NoError(t, err)

	// without --resume nothing is adopted by filename: all five are redone
	assert.Equal(t, 1, runner.extractCalls)
	assert.Equal(t, []int{5}, runner.upscaleInputs)
	require.NotNil(t, res.Output)
}

func TestRunJobBusyAbort(t *testing.T) {
	runner := &fakeToolRunner{t: t, sourceW: 960, sourceH: 540, frameCount: 5}
	opts := testOpts(t)
	provider := &gpu.StaticProvider{
		DeviceList: []gpu.Device{{Index: 0, Name: "NVIDIA GeForce RTX 3080", MemoryTotal: 10 << 30}},
		Activities: map[int]gpu.Activity{
			0: {EngineUtil: []float64{92}, MemoryUsed: 1 << 30, MemoryTotal: 10 << 30},
		},
	}

	svc := newTestService(opts, runner, WithGPUProvider(provider))
	source := writeSource(t, "clip.mkv")
	_, err := svc.RunJob(context.Background(), source)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceBusy)
	// nothing was extracted or upscaled
	assert.Zero(t, runner.extractCalls)
	assert.Empty(t, runner.upscaleInputs)
}

func TestRunJobBusyContinuePolicy(t *testing.T) {
	runner := &fakeToolRunner{
		t: t, sourceW: 960, sourceH: 540, frameW: 1920, frameH: 1080, frameCount: 2,
		outputHasVideo: true, outputHasAudio: true,
	}
	opts := testOpts(t)
	opts.OnBusy = model.OnBusyContinue
	provider := &gpu.StaticProvider{
		DeviceList: []gpu.Device{{Index: 0, Name: "NVIDIA GeForce RTX 3080", MemoryTotal: 10 << 30}},
		Activities: map[int]gpu.Activity{
			0: {EngineUtil: []float64{92}, MemoryUsed: 1 << 30, MemoryTotal: 10 << 30},
		},
	}

	svc := newTestService(opts, runner, WithGPUProvider(provider))
	source := writeSource(t, "clip.mkv")
	res, err := svc.RunJob(context.Background(), source)

	require.NoError(t, err)
	require.NotNil(t, res.Output)
}

func TestRunJobClaimedWorkDir(t *testing.T) {
	runner := &fakeToolRunner{t: t, sourceW: 960, sourceH: 540, frameCount: 5}
	opts := testOpts(t)
	source := writeSource(t, "clip.mkv")

	// another run left a populated job dir under the same device root
	other := job.New(opts.WorkRoot, "gpu0", "/elsewhere/other.mkv")
	require.NoError(t, other.Init())
	writeFrames(t, other.FramesDir(), 1, 3)

	svc := newTestService(opts, runner, WithConfirmer(confirm.Policy{Allow: false}))
	_, err := svc.RunJob(context.Background(), source)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorkDirClaimed)
}

func TestRunJobNoFramesExtracted(t *testing.T) {
	runner := &fakeToolRunner{t: t, sourceW: 960, sourceH: 540, frameCount: 0}
	opts := testOpts(t)
	source := writeSource(t, "clip.mkv")

	svc := newTestService(opts, runner)
	res, err := svc.RunJob(context.Background(), source)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoFrames)
	// the job dir survives failure for diagnosis
	j := job.New(opts.WorkRoot, "gpu0", source)
	assert.DirExists(t, j.Dir)
	assert.Nil(t, res.Output)
}

func TestRunJobNormalizePass(t *testing.T) {
	// 1440x1080 source, fhd target: factor 2 gives 2880x2160, which must be
	// fitted down to 1920x1080.
	runner := &fakeToolRunner{
		t: t, sourceW: 1440, sourceH: 1080, frameW: 2880, frameH: 2160,
		normW: 1920, normH: 1080, frameCount: 4,
		outputHasVideo: true, outputHasAudio: true,
	}
	opts := testOpts(t)
	reporter := &recordingReporter{}
	svc := newTestService(opts, runner, WithReporter(reporter))

	source := writeSource(t, "clip.mkv")
	res, err := svc.RunJob(context.Background(), source)
	require.NoError(t, err)

	assert.True(t, res.Resolution.NeedsNormalize())
	assert.True(t, reporter.sawStage(progress.StageNormalizing))
	// the encode consumed the normalized sequence, not the raw upscale
	assert.Contains(t, argAfter(runner.encodeArgs, "-i"), "normalized")
}

func TestRunJobNormalizeMismatchFails(t *testing.T) {
	// the geometry pass runs but the frames come out at the wrong size
	runner := &fakeToolRunner{
		t: t, sourceW: 1440, sourceH: 1080, frameW: 2880, frameH: 2160,
		normW: 2880, normH: 2160, frameCount: 2,
		outputHasVideo: true, outputHasAudio: true,
	}
	opts := testOpts(t)
	source := writeSource(t, "clip.mkv")

	svc := newTestService(opts, runner)
	_, err := svc.RunJob(context.Background(), source)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNormalizeMismatch)
	// nothing was encoded, and the job dir survives for diagnosis
	assert.Empty(t, runner.encodeArgs)
	j := job.New(opts.WorkRoot, "gpu0", source)
	assert.DirExists(t, j.Dir)
}

func TestRunJobValidationFailure(t *testing.T) {
	runner := &fakeToolRunner{
		t: t, sourceW: 960, sourceH: 540, frameW: 1920, frameH: 1080, frameCount: 2,
		outputHasVideo: true, outputHasAudio: false, // source has audio, output lost it
	}
	opts := testOpts(t)
	source := writeSource(t, "clip.mkv")

	svc := newTestService(opts, runner)
	_, err := svc.RunJob(context.Background(), source)

	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Reason, "audio")
	// the broken artifact must not satisfy the skip check on a retry
	assert.NoFileExists(t, filepath.Join(opts.OutDir, "clip_fhd_gpu0.mp4"))
}

func TestRunJobUnknownPreset(t *testing.T) {
	runner := &fakeToolRunner{t: t}
	opts := testOpts(t)
	opts.Preset = "imax"

	svc := newTestService(opts, runner)
	_, err := svc.RunJob(context.Background(), writeSource(t, "clip.mkv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "imax")
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mkv", "a.mp4", "notes.txt", "c.webm"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub.mp4"), 0o755))

	files, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "a.mp4", filepath.Base(files[0]))
	assert.Equal(t, "b.mkv", filepath.Base(files[1]))
	assert.Equal(t, "c.webm", filepath.Base(files[2]))
}

func TestRunBatchStats(t *testing.T) {
	runner := &fakeToolRunner{
		t: t, sourceW: 960, sourceH: 540, frameW: 1920, frameH: 1080, frameCount: 2,
		outputHasVideo: true, outputHasAudio: true,
	}
	opts := testOpts(t)
	require.NoError(t, os.MkdirAll(opts.OutDir, 0o755))

	good := writeSource(t, "good.mkv")
	done := writeSource(t, "done.mkv")
	require.NoError(t, os.WriteFile(filepath.Join(opts.OutDir, "done_fhd_gpu0.mp4"), []byte("v"), 0o644))

	svc := newTestService(opts, runner)
	stats, results, err := svc.RunBatch(context.Background(), []string{good, done})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, stats.Failed)
	require.Len(t, results, 2)
}

func TestRunBatchStopsOnBusyDevice(t *testing.T) {
	runner := &fakeToolRunner{t: t, sourceW: 960, sourceH: 540, frameCount: 2}
	opts := testOpts(t)
	provider := &gpu.StaticProvider{
		DeviceList: []gpu.Device{{Index: 0, Name: "NVIDIA GeForce RTX 3080", MemoryTotal: 10 << 30}},
		Activities: map[int]gpu.Activity{
			0: {EngineUtil: []float64{75}, MemoryUsed: 1 << 30, MemoryTotal: 10 << 30},
		},
	}

	svc := newTestService(opts, runner, WithGPUProvider(provider))
	a := writeSource(t, "a.mkv")
	b := writeSource(t, "b.mkv")
	stats, results, err := svc.RunBatch(context.Background(), []string{a, b})

	// the second file is never attempted
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceBusy)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, results, 1)
}

func TestPlanJob(t *testing.T) {
	runner := &fakeToolRunner{t: t, sourceW: 640, sourceH: 360, frameCount: 0}
	opts := testOpts(t)

	svc := newTestService(opts, runner)
	source := writeSource(t, "clip.mkv")
	pl, err := svc.PlanJob(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, 3, pl.Resolution.Factor)
	assert.Equal(t, 1920, pl.Resolution.Target.Width)
	assert.Equal(t, "gpu0", pl.DeviceTag)
	assert.False(t, pl.Exists)
	assert.Equal(t, "clip_fhd_gpu0.mp4", filepath.Base(pl.OutputPath))
	// planning leaves no job directory behind
	assert.NoDirExists(t, pl.JobDir)
}
