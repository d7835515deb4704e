package gpu

import "strings"

// Substrings that mark adapters unusable for neural upscaling work.
var excludedNameParts = []string{
	"virtual",
	"remote",
	"basic render",
	"basic display",
	"parsec",
	"citrix",
	"llvmpipe",
	"software",
}

// Keyword scores for auto-selection. High-end model tokens outrank generic
// vendor tokens so a "GeForce RTX 4090" beats a bare "NVIDIA" entry.
var nameScores = []struct {
	token string
	score int
}{
	{"rtx", 40},
	{"titan", 40},
	{"quadro", 30},
	{"tesla", 30},
	{"radeon pro", 30},
	{"gtx", 20},
	{"geforce", 10},
	{"nvidia", 10},
	{"radeon", 10},
	{"amd", 8},
	{"arc", 8},
	{"intel", 2},
}

// Usable reports whether a device name describes a real local adapter
// rather than a virtual, remote, or basic fallback renderer.
func Usable(name string) bool {
	n := strings.ToLower(name)
	for _, part := range excludedNameParts {
		if strings.Contains(n, part) {
			return false
		}
	}
	return true
}

// Score rates a device for auto-selection: keyword points plus a bonus per
// 4 GiB of dedicated memory.
func Score(d Device) int {
	n := strings.ToLower(d.Name)
	score := 0
	for _, ks := range nameScores {
		if strings.Contains(n, ks.token) {
			score += ks.score
		}
	}
	score += int(d.MemoryTotal / (4 << 30))
	return score
}

// AutoSelect picks the most capable usable device. When the list is empty
// or nothing survives filtering, it defaults to index 0 so a machine whose
// inventory cannot be parsed still gets a working default.
func AutoSelect(devices []Device) int {
	best, bestScore := -1, -1
	for _, d := range devices {
		if !Usable(d.Name) {
			continue
		}
		if s := Score(d); s > bestScore {
			best, bestScore = d.Index, s
		}
	}
	if best < 0 {
		return 0
	}
	return best
}
