package frames

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/RanmaKei/Video-Tools/internal/job"
	"github.com/RanmaKei/Video-Tools/internal/util"
)

// UpscaleFunc invokes the external upscaling tool once over inputDir,
// writing results into outputDir. It must not disturb pre-existing files
// in outputDir that are not part of the input subset.
type UpscaleFunc func(ctx context.Context, inputDir, outputDir string) error

// IncompleteResumeError reports frames still missing after a tool
// invocation that exited cleanly.
type IncompleteResumeError struct {
	Missing []string
}

func (e *IncompleteResumeError) Error() string {
	show := e.Missing
	if len(show) > 5 {
		show = show[:5]
	}
	return fmt.Sprintf("upscaler exited cleanly but %d frame(s) are still missing (%s...)",
		len(e.Missing), strings.Join(show, ", "))
}

// Reconcile makes the upscaled frame set equal the extracted one with
// minimal recomputation. It diffs by filename, materializes exactly the
// missing frames into the job's pending scratch area (hard-linking when the
// volume allows), runs the tool once against that subset, and verifies the
// sets now match.
//
// An empty diff reports completion without invoking the tool at all. Only
// resume paths call this; a fresh run clears the upscaled area and processes
// the whole extracted set in one invocation instead.
func Reconcile(ctx context.Context, j job.Job, upscale UpscaleFunc) error {
	extracted, err := Load(j.FramesDir())
	if err != nil {
		return fmt.Errorf("read extracted frames: %w", err)
	}
	upscaled, err := Load(j.UpscaledDir())
	if err != nil {
		return fmt.Errorf("read upscaled frames: %w", err)
	}

	missing := Missing(extracted, upscaled)
	if len(missing) == 0 {
		return nil
	}

	// The scratch area is rebuilt on every resume so stale content from an
	// interrupted earlier attempt can never leak into the tool invocation.
	pending := j.PendingDir()
	if err := util.ClearDir(pending); err != nil {
		return fmt.Errorf("prepare pending dir: %w", err)
	}
	for _, name := range missing {
		src := filepath.Join(j.FramesDir(), name)
		dst := filepath.Join(pending, name)
		if err := util.LinkOrCopy(src, dst); err != nil {
			return fmt.Errorf("stage pending frame %s: %w", name, err)
		}
	}

	if err := upscale(ctx, pending, j.UpscaledDir()); err != nil {
		return err
	}

	after, err := Load(j.UpscaledDir())
	if err != nil {
		return fmt.Errorf("re-read upscaled frames: %w", err)
	}
	if gap := Missing(extracted, after); len(gap) > 0 {
		return &IncompleteResumeError{Missing: gap}
	}

	_ = util.ClearDir(pending) // scratch only, best-effort
	return nil
}
