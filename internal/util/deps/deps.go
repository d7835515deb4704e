package deps

import (
	"fmt"
	"os"
	"os/exec"
)

// findTool resolves customPath (file or PATH lookup) or falls back to the
// given candidate names in order.
func findTool(customPath string, candidates ...string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
		if p, err := exec.LookPath(customPath); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("could not find %q", customPath)
	}
	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("could not find %s in PATH", candidates[0])
}

// FindFFmpeg returns the path to the ffmpeg binary.
func FindFFmpeg(customPath string) (string, error) {
	p, err := findTool(customPath, "ffmpeg")
	if err != nil {
		return "", fmt.Errorf("%w. Please install ffmpeg", err)
	}
	return p, nil
}

// FindFFprobe returns the path to the ffprobe binary.
func FindFFprobe(customPath string) (string, error) {
	p, err := findTool(customPath, "ffprobe")
	if err != nil {
		return "", fmt.Errorf("%w. Please install ffmpeg (ffprobe ships with it)", err)
	}
	return p, nil
}

// FindUpscaler returns the path to the Real-ESRGAN ncnn binary.
func FindUpscaler(customPath string) (string, error) {
	p, err := findTool(customPath, "realesrgan-ncnn-vulkan", "realesrgan")
	if err != nil {
		return "", fmt.Errorf("%w. Please install realesrgan-ncnn-vulkan", err)
	}
	return p, nil
}

// FindNvidiaSMI returns the path to nvidia-smi, used for device inventory.
func FindNvidiaSMI(customPath string) (string, error) {
	return findTool(customPath, "nvidia-smi")
}
