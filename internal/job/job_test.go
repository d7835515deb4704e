package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFrames(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("px"), 0o644))
	}
}

func TestNewJobLayout(t *testing.T) {
	work := filepath.Join(t.TempDir(), "work")
	j := New(work, Tag(1), "/movies/My Clip (2019).mkv")

	assert.Equal(t, "gpu1", j.Tag)
	assert.Equal(t, "My_Clip__2019", j.Name)
	assert.Equal(t, filepath.Join(work+"_gpu1", "My_Clip__2019"), j.Dir)
	assert.Equal(t, filepath.Join(j.Dir, "frames"), j.FramesDir())
	assert.Equal(t, filepath.Join(j.Dir, "pending"), j.PendingDir())
}

func TestInitAndCounts(t *testing.T) {
	work := filepath.Join(t.TempDir(), "work")
	j := New(work, Tag(0), "clip.mp4")
	require.NoError(t, j.Init())

	frames, upscaled, err := j.Counts()
	require.NoError(t, err)
	assert.Zero(t, frames)
	assert.Zero(t, upscaled)

	writeFrames(t, j.FramesDir(), "frame_000001.png", "frame_000002.png")
	writeFrames(t, j.UpscaledDir(), "frame_000001.png")

	frames, upscaled, err = j.Counts()
	require.NoError(t, err)
	assert.Equal(t, 2, frames)
	assert.Equal(t, 1, upscaled)
}

func TestRecordedSource(t *testing.T) {
	work := filepath.Join(t.TempDir(), "work")
	src := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(src, []byte("v"), 0o644))

	j := New(work, Tag(0), src)
	require.NoError(t, j.Init())

	got, err := j.RecordedSource()
	require.NoError(t, err)
	assert.Equal(t, src, got)

	// Jobs found by Discover carry no source; reading it must fail cleanly.
	orphan := Job{Name: "x", Tag: "gpu0", Dir: filepath.Join(work+"_gpu0", "x")}
	_, err = orphan.RecordedSource()
	assert.Error(t, err)
}

func TestLocked(t *testing.T) {
	work := filepath.Join(t.TempDir(), "work")

	locked, _ := Locked(work, "gpu0")
	assert.False(t, locked, "missing root is not locked")

	j := New(work, "gpu0", "clip.mp4")
	require.NoError(t, j.Init())
	locked, _ = Locked(work, "gpu0")
	assert.False(t, locked, "empty job dirs hold no claim")

	writeFrames(t, j.FramesDir(), "frame_000001.png")
	locked, name := Locked(work, "gpu0")
	assert.True(t, locked)
	assert.Equal(t, "clip", name)

	// Claims are per tag.
	locked, _ = Locked(work, "gpu1")
	assert.False(t, locked)
}

func TestDiscover(t *testing.T) {
	work := filepath.Join(t.TempDir(), "work")

	// Unfinished on gpu0: 2 of 5 upscaled.
	a := New(work, "gpu0", "alpha.mkv")
	writeFrames(t, a.FramesDir(), "frame_000001.png", "frame_000002.png", "frame_000003.png", "frame_000004.png", "frame_000005.png")
	writeFrames(t, a.UpscaledDir(), "frame_000001.png", "frame_000002.png")

	// Finished on gpu0: equal sets, must not be reported.
	b := New(work, "gpu0", "beta.mkv")
	writeFrames(t, b.FramesDir(), "frame_000001.png")
	writeFrames(t, b.UpscaledDir(), "frame_000001.png")

	// Never started on gpu1: no frames, must not be reported.
	c := New(work, "gpu1", "gamma.mkv")
	require.NoError(t, c.Init())

	// Unfinished on gpu1: nothing upscaled yet.
	d := New(work, "gpu1", "delta.mkv")
	writeFrames(t, d.FramesDir(), "frame_000001.png", "frame_000002.png")
	require.NoError(t, os.MkdirAll(d.UpscaledDir(), 0o755))

	found, err := Discover(work)
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, "alpha", found[0].Job.Name)
	assert.Equal(t, "gpu0", found[0].Job.Tag)
	assert.Equal(t, 40, found[0].CompletionPct())

	assert.Equal(t, "delta", found[1].Job.Name)
	assert.Equal(t, "gpu1", found[1].Job.Tag)
	assert.Equal(t, 0, found[1].CompletionPct())
}

func TestDiscoverIdempotent(t *testing.T) {
	work := filepath.Join(t.TempDir(), "work")
	a := New(work, "gpu0", "alpha.mkv")
	writeFrames(t, a.FramesDir(), "frame_000001.png", "frame_000002.png", "frame_000003.png")
	writeFrames(t, a.UpscaledDir(), "frame_000002.png")

	first, err := Discover(work)
	require.NoError(t, err)
	second, err := Discover(work)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompletionPctRounds(t *testing.T) {
	u := Unfinished{Frames: 3, Upscaled: 2}
	assert.Equal(t, 67, u.CompletionPct())

	u = Unfinished{Frames: 0, Upscaled: 0}
	assert.Equal(t, 0, u.CompletionPct())
}
