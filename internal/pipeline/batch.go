package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Video extensions accepted by directory discovery.
var videoExts = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".mov":  true,
	".avi":  true,
	".webm": true,
	".m4v":  true,
	".ts":   true,
	".wmv":  true,
}

// RunStats aggregates outcomes across a batch.
type RunStats struct {
	Total     int
	Current   int
	Succeeded int
	Skipped   int
	Failed    int
	Elapsed   time.Duration
}

// Discover lists the video files directly under dir, sorted by name.
// Subdirectories and non-video files are ignored.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if videoExts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// RunBatch processes each file sequentially and returns aggregate stats with
// the per-file results. One file failing does not stop the rest, except for
// a busy or claimed device, which would fail every remaining file the same
// way, and context cancellation; such a halting error is returned.
func (s *Service) RunBatch(ctx context.Context, files []string) (RunStats, []Result, error) {
	start := time.Now()
	stats := RunStats{Total: len(files)}
	results := make([]Result, 0, len(files))

	for i, path := range files {
		stats.Current = i + 1
		if ctx.Err() != nil {
			stats.Elapsed = time.Since(start)
			return stats, results, ctx.Err()
		}

		res, err := s.RunJob(ctx, path)
		results = append(results, res)
		switch {
		case err == nil && res.Skipped:
			stats.Skipped++
		case err == nil:
			stats.Succeeded++
		default:
			stats.Failed++
			if errors.Is(err, ErrDeviceBusy) || errors.Is(err, ErrWorkDirClaimed) || errors.Is(err, context.Canceled) {
				stats.Elapsed = time.Since(start)
				return stats, results, err
			}
		}
	}
	stats.Elapsed = time.Since(start)
	return stats, results, nil
}
