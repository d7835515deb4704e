package job

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RanmaKei/Video-Tools/internal/util"
)

// Unfinished describes one recoverable job found on disk.
type Unfinished struct {
	Job      Job
	Frames   int
	Upscaled int
}

// CompletionPct returns the rounded upscale completion percentage.
func (u Unfinished) CompletionPct() int {
	if u.Frames == 0 {
		return 0
	}
	return int(math.Round(100 * float64(u.Upscaled) / float64(u.Frames)))
}

// Discover scans every GPU-tagged work root derived from workRoot
// ("<workRoot>_gpu0", "<workRoot>_gpu1", ...) and returns the jobs whose
// upscale stage has started but not finished: frames present and
// |upscaled| < |frames|.
//
// The scan is read-only and idempotent; inspection commands and the
// interactive resume picker call it freely.
func Discover(workRoot string) ([]Unfinished, error) {
	parent := filepath.Dir(workRoot)
	prefix := filepath.Base(workRoot) + "_"

	entries, err := os.ReadDir(parent)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var found []Unfinished
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		tag := strings.TrimPrefix(e.Name(), prefix)
		root := filepath.Join(parent, e.Name())

		jobs, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, jd := range jobs {
			if !jd.IsDir() {
				continue
			}
			j := Job{Name: jd.Name(), Tag: tag, Dir: filepath.Join(root, jd.Name())}
			frames, err := util.FileNames(j.FramesDir())
			if err != nil || len(frames) == 0 {
				continue
			}
			upscaled, err := util.FileNames(j.UpscaledDir())
			if err != nil {
				continue
			}
			if len(upscaled) < len(frames) {
				found = append(found, Unfinished{
					Job:      j,
					Frames:   len(frames),
					Upscaled: len(upscaled),
				})
			}
		}
	}

	sort.Slice(found, func(i, k int) bool {
		if found[i].Job.Tag != found[k].Job.Tag {
			return found[i].Job.Tag < found[k].Job.Tag
		}
		return found[i].Job.Name < found[k].Job.Name
	})
	return found, nil
}
