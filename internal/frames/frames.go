// Package frames tracks per-frame completion by filename and reconciles a
// partially upscaled frame set against the extracted one. Membership is
// filename equality only: a present-but-corrupt frame counts as done. That
// trade-off is what makes resume cheap enough to be worth having.
package frames

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/RanmaKei/Video-Tools/internal/util"
)

// Prefix and padding are load-bearing: reconciliation diffs by filename, so
// the extractor and upscaler must produce identical naming.
const (
	Prefix   = "frame_"
	SeqWidth = 6
)

var framePattern = regexp.MustCompile(`^frame_\d{6}\.[A-Za-z0-9]+$`)

// Name returns the canonical filename for sequence number n, e.g.
// Name(7, "png") == "frame_000007.png".
func Name(n int, ext string) string {
	return fmt.Sprintf("%s%0*d.%s", Prefix, SeqWidth, n, ext)
}

// Pattern returns the printf-style sequence pattern handed to the
// extraction tool, e.g. "frame_%06d.png".
func Pattern(ext string) string {
	return fmt.Sprintf("%s%%0%dd.%s", Prefix, SeqWidth, ext)
}

// Set is a frame set keyed by filename.
type Set map[string]struct{}

// Load reads the frame files present in dir. Files that do not match the
// canonical naming are ignored; a missing directory yields an empty set.
func Load(dir string) (Set, error) {
	names, err := util.FileNames(dir)
	if err != nil {
		return nil, err
	}
	s := make(Set, len(names))
	for _, n := range names {
		if framePattern.MatchString(n) {
			s[n] = struct{}{}
		}
	}
	return s, nil
}

// Contains reports membership by filename.
func (s Set) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// List returns the filenames in sequence order.
func (s Set) List() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Missing returns extracted − upscaled in sequence order.
func Missing(extracted, upscaled Set) []string {
	var out []string
	for n := range extracted {
		if !upscaled.Contains(n) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
