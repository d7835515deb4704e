// Package job models the per-GPU, per-source working directory that carries
// all resumable pipeline state. The directory layout is the persistence
// format: there is no database, so anything the pipeline must survive a
// restart with lives here as plain files.
package job

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RanmaKei/Video-Tools/internal/util"
)

// Subdirectory names under one job.
const (
	SubFrames     = "frames"
	SubUpscaled   = "upscaled"
	SubNormalized = "normalized"
	SubPending    = "pending"
)

// SourceFile records the absolute source path inside the job directory so a
// later `resume` can find the original video without re-deriving it.
const SourceFile = "source"

// Tag returns the device-slot identifier for a GPU index, e.g. "gpu0".
func Tag(index int) string {
	return fmt.Sprintf("gpu%d", index)
}

// Root returns the work root bound to one GPU tag: "<workRoot>_<tag>".
// A non-empty job directory under this root is an advisory exclusive claim
// on that device slot.
func Root(workRoot, tag string) string {
	return workRoot + "_" + tag
}

// Job is one (source file, GPU tag) unit of pipeline work.
type Job struct {
	Name   string // sanitized source basename, also the directory name
	Tag    string
	Dir    string // <workRoot>_<tag>/<Name>
	Source string // source video path, empty for jobs found by Discover
}

// New derives the job for a source path under the given work root and tag.
func New(workRoot, tag, sourcePath string) Job {
	name := sanitizeName(sourcePath)
	return Job{
		Name:   name,
		Tag:    tag,
		Dir:    filepath.Join(Root(workRoot, tag), name),
		Source: sourcePath,
	}
}

// FramesDir is where extraction writes frame_NNNNNN images.
func (j Job) FramesDir() string { return filepath.Join(j.Dir, SubFrames) }

// UpscaledDir holds the upscaler's output frames.
func (j Job) UpscaledDir() string { return filepath.Join(j.Dir, SubUpscaled) }

// NormalizedDir holds geometry-corrected frames. Created lazily; absent when
// the upscaled frames already match the target size.
func (j Job) NormalizedDir() string { return filepath.Join(j.Dir, SubNormalized) }

// PendingDir is the scratch area holding only the frames still missing from
// the upscaled set. Recreated on every resume.
func (j Job) PendingDir() string { return filepath.Join(j.Dir, SubPending) }

// Exists reports whether the job directory is present with any content.
func (j Job) Exists() bool {
	return util.DirNonEmpty(j.Dir)
}

// Init creates the frames and upscaled areas and records the source path.
// Normalized and pending are created on demand by their stages.
func (j Job) Init() error {
	for _, d := range []string{j.FramesDir(), j.UpscaledDir()} {
		if err := util.EnsureDir(d); err != nil {
			return fmt.Errorf("init job %s: %w", j.Name, err)
		}
	}
	if j.Source != "" {
		abs, err := filepath.Abs(j.Source)
		if err != nil {
			abs = j.Source
		}
		if err := os.WriteFile(filepath.Join(j.Dir, SourceFile), []byte(abs), 0o644); err != nil {
			return fmt.Errorf("record source for %s: %w", j.Name, err)
		}
	}
	return nil
}

// RecordedSource reads back the source path written by Init.
func (j Job) RecordedSource() (string, error) {
	data, err := os.ReadFile(filepath.Join(j.Dir, SourceFile))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Counts returns the number of extracted and upscaled frames on disk.
func (j Job) Counts() (frames, upscaled int, err error) {
	f, err := util.FileNames(j.FramesDir())
	if err != nil {
		return 0, 0, err
	}
	u, err := util.FileNames(j.UpscaledDir())
	if err != nil {
		return 0, 0, err
	}
	return len(f), len(u), nil
}

// Remove deletes the whole job directory tree.
func (j Job) Remove() error {
	return os.RemoveAll(j.Dir)
}

// Locked reports whether the tagged work root holds any non-empty job
// directory, and names the first one found. This is the advisory claim
// check: it catches devices reserved by a crashed run that shows no live
// utilization. It deliberately ignores how stale the claim is.
func Locked(workRoot, tag string) (bool, string) {
	root := Root(workRoot, tag)
	entries, err := os.ReadDir(root)
	if err != nil {
		return false, ""
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		// Freshly initialized subdirectories hold no claim; staged frames do.
		dir := filepath.Join(root, e.Name())
		if util.DirNonEmpty(filepath.Join(dir, SubFrames)) || util.DirNonEmpty(filepath.Join(dir, SubUpscaled)) {
			return true, e.Name()
		}
	}
	return false, ""
}

// sanitizeName turns a source path into a directory-safe job name.
func sanitizeName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), "._-")
	if s == "" {
		return "untitled"
	}
	return s
}
