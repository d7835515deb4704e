package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RanmaKei/Video-Tools/internal/gpu"
	"github.com/RanmaKei/Video-Tools/internal/util"
	"github.com/RanmaKei/Video-Tools/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (ffmpeg, ffprobe, upscaler, nvidia-smi)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			ff, ferr := deps.FindFFmpeg(getPersistentString(cmd, "ffmpeg-binary", ""))
			if ferr != nil {
				return &ExitError{Code: ExitMissingDep, Err: ferr}
			}
			fp, perr := deps.FindFFprobe(getPersistentString(cmd, "ffprobe-binary", ""))
			if perr != nil {
				return &ExitError{Code: ExitMissingDep, Err: perr}
			}
			up, uerr := deps.FindUpscaler(getPersistentString(cmd, "upscaler-binary", ""))
			if uerr != nil {
				return &ExitError{Code: ExitMissingDep, Err: uerr}
			}
			fmt.Fprintf(out, "FFmpeg:   %s\n", ff)
			fmt.Fprintf(out, "FFprobe:  %s\n", fp)
			fmt.Fprintf(out, "Upscaler: %s\n", up)

			// GPU inventory is informational, not a hard requirement.
			smi, serr := deps.FindNvidiaSMI("")
			if serr != nil {
				fmt.Fprintln(out, "GPU:      nvidia-smi not found; busy detection disabled")
				return nil
			}
			provider := gpu.NewSMIProvider(smi, util.NewDefaultRunner())
			devices, derr := provider.Devices(cmd.Context())
			if derr != nil {
				fmt.Fprintf(out, "GPU:      %v\n", derr)
				return nil
			}
			pick := gpu.AutoSelect(devices)
			detector := gpu.NewDetector(provider, gpu.DefaultDetectorConfig())
			for _, d := range devices {
				mark := " "
				if d.Index == pick {
					mark = "*"
				}
				load := "load unknown"
				if act, aerr := provider.Sample(cmd.Context(), d.Index); aerr == nil {
					if detector.Active(act) {
						load = "active"
					} else {
						load = "idle"
					}
				}
				fmt.Fprintf(out, "GPU %d:    %s %s (%s)\n", d.Index, d.Name, mark, load)
			}
			return nil
		},
	}
}
