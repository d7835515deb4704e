// Package preset holds the fixed encoding-preset catalog and the logic that
// resolves a preset against a probed source into concrete target dimensions
// and a required upscale factor.
package preset

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Preset is a named bundle of container/codec/argument choices plus an
// optional nominal resolution. An empty Resolution means "match source".
type Preset struct {
	Name       string   `yaml:"name"`
	Container  string   `yaml:"container"`
	VideoCodec string   `yaml:"video_codec"`
	VideoArgs  []string `yaml:"video_args"`
	AudioCodec string   `yaml:"audio_codec"`
	AudioArgs  []string `yaml:"audio_args"`
	Resolution string   `yaml:"resolution"` // "W:H", empty = match source
}

// MatchesSource reports whether this preset carries no nominal resolution.
func (p Preset) MatchesSource() bool {
	return p.Resolution == ""
}

// builtins is the fixed catalog. User overlays may shadow entries by name.
var builtins = map[string]Preset{
	"archive": {
		Name:       "archive",
		Container:  "mkv",
		VideoCodec: "libx265",
		VideoArgs:  []string{"-preset", "slow", "-crf", "16", "-pix_fmt", "yuv420p10le"},
		AudioCodec: "flac",
		Resolution: "", // match source
	},
	"uhd": {
		Name:       "uhd",
		Container:  "mkv",
		VideoCodec: "libx265",
		VideoArgs:  []string{"-preset", "medium", "-crf", "18", "-pix_fmt", "yuv420p10le"},
		AudioCodec: "aac",
		AudioArgs:  []string{"-b:a", "192k"},
		Resolution: "3840:2160",
	},
	"qhd": {
		Name:       "qhd",
		Container:  "mp4",
		VideoCodec: "libx264",
		VideoArgs:  []string{"-preset", "medium", "-crf", "18", "-pix_fmt", "yuv420p", "-movflags", "+faststart"},
		AudioCodec: "aac",
		AudioArgs:  []string{"-b:a", "160k"},
		Resolution: "2560:1440",
	},
	"fhd": {
		Name:       "fhd",
		Container:  "mp4",
		VideoCodec: "libx264",
		VideoArgs:  []string{"-preset", "medium", "-crf", "18", "-pix_fmt", "yuv420p", "-movflags", "+faststart"},
		AudioCodec: "aac",
		AudioArgs:  []string{"-b:a", "160k"},
		Resolution: "1920:1080",
	},
}

// Catalog maps preset names to presets. Lookup is case-insensitive on name.
type Catalog struct {
	presets map[string]Preset
}

// NewCatalog returns the built-in catalog.
func NewCatalog() *Catalog {
	m := make(map[string]Preset, len(builtins))
	for k, v := range builtins {
		m[k] = v
	}
	return &Catalog{presets: m}
}

// Get looks up a preset by name.
func (c *Catalog) Get(name string) (Preset, error) {
	p, ok := c.presets[strings.ToLower(name)]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(c.Names(), ", "))
	}
	return p, nil
}

// Names returns the sorted preset names.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.presets))
	for k := range c.presets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

type overlayFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadOverlay merges user-defined presets from a YAML file over the catalog.
// Overlay entries with a name already in the catalog replace the built-in.
func (c *Catalog) LoadOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read presets file: %w", err)
	}
	var of overlayFile
	if err := yaml.Unmarshal(data, &of); err != nil {
		return fmt.Errorf("parse presets file %s: %w", path, err)
	}
	for _, p := range of.Presets {
		if p.Name == "" {
			return fmt.Errorf("presets file %s: entry without a name", path)
		}
		if err := validateOverlay(p); err != nil {
			return fmt.Errorf("presets file %s, preset %q: %w", path, p.Name, err)
		}
		c.presets[strings.ToLower(p.Name)] = p
	}
	return nil
}

func validateOverlay(p Preset) error {
	if p.Container == "" {
		return fmt.Errorf("container is required")
	}
	if p.VideoCodec == "" {
		return fmt.Errorf("video_codec is required")
	}
	if p.Resolution != "" {
		if _, _, err := parseResolution(p.Resolution); err != nil {
			return err
		}
	}
	return nil
}

func parseResolution(s string) (int, int, error) {
	w, h, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("resolution %q is not in W:H form", s)
	}
	wi, err1 := strconv.Atoi(w)
	hi, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil || wi <= 0 || hi <= 0 {
		return 0, 0, fmt.Errorf("resolution %q is not in W:H form", s)
	}
	return wi, hi, nil
}
