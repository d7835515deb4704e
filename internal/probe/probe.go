// Package probe queries media and image metadata through ffprobe.
// It is read-only: probing never touches the file it inspects.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/RanmaKei/Video-Tools/internal/util"
)

// DefaultFrameRate is used when the probed rational is missing or has a
// zero denominator.
const DefaultFrameRate = 30.0

// Error wraps any failure to obtain or parse metadata for a path.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("probe %q: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Prober runs ffprobe against files. The zero value is not usable; construct
// with New.
type Prober struct {
	bin     string
	runner  util.CmdRunner
	verbose bool
}

// New returns a Prober using the given ffprobe binary path.
func New(bin string, runner util.CmdRunner, verbose bool) *Prober {
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	return &Prober{bin: bin, runner: runner, verbose: verbose}
}

// Probe runs a single ffprobe JSON call against path and returns the parsed
// result.
func (p *Prober) Probe(ctx context.Context, path string) (*Result, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	res, err := p.runner.Run(ctx, util.CmdSpec{
		Path: p.bin,
		Args: []string{
			"-v", "quiet",
			"-print_format", "json",
			"-show_format", "-show_streams",
			path,
		},
		CaptureStdout: true,
		Verbose:       p.verbose,
	})
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	r, perr := ParseJSON(res.Stdout)
	if perr != nil {
		return nil, &Error{Path: path, Err: perr}
	}
	return r, nil
}

// ImageSize returns the pixel dimensions of a single image file. Used to
// sample upscaled frames against the target resolution.
func (p *Prober) ImageSize(ctx context.Context, path string) (int, int, error) {
	r, err := p.Probe(ctx, path)
	if err != nil {
		return 0, 0, err
	}
	if !r.HasVideo() {
		return 0, 0, &Error{Path: path, Err: fmt.Errorf("no image stream")}
	}
	return r.PrimaryVideo.Width, r.PrimaryVideo.Height, nil
}

// ParseJSON converts raw ffprobe JSON output into a Result.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (*Result, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("empty ffprobe output")
	}
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	if raw.Format.Filename == "" && len(raw.Streams) == 0 {
		return nil, fmt.Errorf("ffprobe output carries no format or streams")
	}
	return buildResult(&raw), nil
}

// ParseFrameRate reduces an ffprobe rational ("30000/1001") or plain decimal
// text to a float. A zero denominator or unparseable value yields fallback.
func ParseFrameRate(s string, fallback float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return fallback
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return fallback
		}
		return n / d
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Filename   string `json:"filename"`
	NbStreams  int    `json:"nb_streams"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type ffprobeStream struct {
	Index          int            `json:"index"`
	CodecName      string         `json:"codec_name"`
	CodecType      string         `json:"codec_type"`
	PixFmt         string         `json:"pix_fmt"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	BitRate        string         `json:"bit_rate"`
	ColorTransfer  string         `json:"color_transfer"`
	ColorPrimaries string         `json:"color_primaries"`
	ColorSpace     string         `json:"color_space"`
	AvgFrameRate   string         `json:"avg_frame_rate"`
	Channels       int            `json:"channels"`
	ChannelLayout  string         `json:"channel_layout"`
	SampleRate     string         `json:"sample_rate"`
	Disposition    map[string]int `json:"disposition"`
}

// --- Conversion from wire types to domain types ---

func buildResult(raw *ffprobeOutput) *Result {
	r := &Result{
		Format: FormatInfo{
			Filename:   raw.Format.Filename,
			NbStreams:  raw.Format.NbStreams,
			FormatName: raw.Format.FormatName,
			Duration:   parseFloat(raw.Format.Duration),
			Size:       parseInt64(raw.Format.Size),
			BitRate:    parseInt64(raw.Format.BitRate),
		},
	}
	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			vs := VideoStream{
				Index:          s.Index,
				Codec:          s.CodecName,
				PixFmt:         s.PixFmt,
				Width:          s.Width,
				Height:         s.Height,
				BitRate:        parseInt64(s.BitRate),
				ColorTransfer:  s.ColorTransfer,
				ColorPrimaries: s.ColorPrimaries,
				ColorSpace:     s.ColorSpace,
				IsAttachedPic:  s.Disposition["attached_pic"] == 1,
				AvgFrameRate:   s.AvgFrameRate,
			}
			if !vs.IsAttachedPic && r.PrimaryVideo == nil {
				r.PrimaryVideo = &vs
			}
		case "audio":
			r.AudioStreams = append(r.AudioStreams, AudioStream{
				Index:         s.Index,
				Codec:         s.CodecName,
				Channels:      s.Channels,
				ChannelLayout: s.ChannelLayout,
				SampleRate:    int(parseInt64(s.SampleRate)),
				BitRate:       parseInt64(s.BitRate),
			})
		}
	}
	return r
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
