package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RanmaKei/Video-Tools/internal/util"
)

// frameWritingRunner pretends to be ffmpeg and drops frame files into the
// pattern's directory.
type frameWritingRunner struct {
	spec   util.CmdSpec
	frames []string
	err    error
}

func (f *frameWritingRunner) Run(_ context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	f.spec = spec
	if f.err != nil {
		return util.CmdResult{}, f.err
	}
	dir := filepath.Dir(spec.Args[len(spec.Args)-1])
	for _, name := range f.frames {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o644); err != nil {
			return util.CmdResult{}, err
		}
	}
	return util.CmdResult{}, nil
}

func TestRun(t *testing.T) {
	runner := &frameWritingRunner{frames: []string{"frame_000001.png", "frame_000002.png", "frame_000003.png"}}
	framesDir := filepath.Join(t.TempDir(), "frames")

	n, err := Run(context.Background(), "/videos/in.mkv", framesDir, Options{
		FFmpegPath: "/usr/bin/ffmpeg",
		Runner:     runner,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, "/usr/bin/ffmpeg", runner.spec.Path)
	assert.Contains(t, runner.spec.Args, "-fps_mode")
	assert.Equal(t, filepath.Join(framesDir, "frame_%06d.png"), runner.spec.Args[len(runner.spec.Args)-1])
}

func TestRunClearsStaleFrames(t *testing.T) {
	framesDir := filepath.Join(t.TempDir(), "frames")
	require.NoError(t, os.MkdirAll(framesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(framesDir, "frame_000099.png"), []byte("old"), 0o644))

	runner := &frameWritingRunner{frames: []string{"frame_000001.png"}}
	n, err := Run(context.Background(), "/videos/in.mkv", framesDir, Options{
		FFmpegPath: "/usr/bin/ffmpeg",
		Runner:     runner,
	})
	require.NoError(t, err)

	// the stale frame from a previous source is gone
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, filepath.Join(framesDir, "frame_000099.png"))
}

func TestRunToolFailure(t *testing.T) {
	boom := errors.New("ffmpeg exploded")
	runner := &frameWritingRunner{err: boom}

	_, err := Run(context.Background(), "/videos/in.mkv", filepath.Join(t.TempDir(), "frames"), Options{
		FFmpegPath: "/usr/bin/ffmpeg",
		Runner:     runner,
	})
	assert.ErrorIs(t, err, boom)
}
