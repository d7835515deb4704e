package encode

import (
	"fmt"
	"path/filepath"

	"github.com/RanmaKei/Video-Tools/internal/frames"
	"github.com/RanmaKei/Video-Tools/internal/model"
	"github.com/RanmaKei/Video-Tools/internal/preset"
)

// BuildArgs constructs ffmpeg arguments that assemble the processed frame
// sequence back into a video, muxing the source's audio when it has any.
// The source file is the second input; its audio is mapped optionally so a
// stream that ffprobe saw but ffmpeg cannot read does not fail the encode.
func BuildArgs(source model.SourceVideo, p preset.Preset, framesDir, outputPath string, overwrite bool) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if overwrite {
		args = append(args, "-y")
	} else {
		args = append(args, "-n")
	}

	args = append(args,
		"-framerate", formatFPS(source),
		"-i", filepath.Join(framesDir, frames.Pattern("png")),
	)

	if source.HasAudio {
		args = append(args,
			"-i", source.Path,
			"-map", "0:v:0",
			"-map", "1:a:0?",
			"-c:a", p.AudioCodec,
		)
		args = append(args, p.AudioArgs...)
	}

	args = append(args, "-c:v", p.VideoCodec)
	args = append(args, p.VideoArgs...)
	if !hasPixFmt(p.VideoArgs) {
		args = append(args, "-pix_fmt", pixelFormat(source))
	}
	args = append(args, outputPath)
	return args
}

func hasPixFmt(videoArgs []string) bool {
	for _, a := range videoArgs {
		if a == "-pix_fmt" {
			return true
		}
	}
	return false
}

// formatFPS prefers the probe's rational rate string so fractional NTSC
// rates survive the round trip exactly.
func formatFPS(source model.SourceVideo) string {
	if source.FPSRaw != "" {
		return source.FPSRaw
	}
	return fmt.Sprintf("%g", source.FPS)
}

// pixelFormat is the fallback for presets whose args carry no -pix_fmt of
// their own.
func pixelFormat(source model.SourceVideo) string {
	if source.PixFmt != "" {
		return source.PixFmt
	}
	return "yuv420p"
}
