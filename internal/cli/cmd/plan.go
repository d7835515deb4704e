package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RanmaKei/Video-Tools/internal/pipeline"
	"github.com/RanmaKei/Video-Tools/internal/preset"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plan [files...]",
		Short:         "Show what a run would do without executing it",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := assembleRunInputs(cmd, args)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}

			if opts.InputDir == "" && len(opts.Files) == 0 {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("nothing to plan: pass video files or --input-dir")}
			}

			files := opts.Files
			if opts.InputDir != "" {
				files, err = pipeline.Discover(opts.InputDir)
				if err != nil {
					return &ExitError{Code: ExitCLIError, Err: err}
				}
			}

			svc, berr := buildService(opts)
			if berr != nil {
				return berr
			}
			for _, f := range files {
				pl, perr := svc.PlanJob(cmd.Context(), f)
				if perr != nil {
					return exitFor(perr)
				}
				printPlan(cmd, pl)
			}
			return nil
		},
	}
	cmd.Flags().StringP("input-dir", "i", "", "Plan every video in this directory")
	bindRunFlags(cmd.Flags())
	return cmd
}

func printPlan(cmd *cobra.Command, pl pipeline.Plan) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", pl.Source.Path)
	fmt.Fprintf(out, "  source:     %dx%d @ %s fps\n", pl.Source.Width, pl.Source.Height, pl.Source.FPSRaw)
	fmt.Fprintf(out, "  preset:     %s (%s/%s)\n", pl.Preset.Name, pl.Preset.Container, pl.Preset.VideoCodec)
	fmt.Fprintf(out, "  target:     %dx%d, model factor %dx\n",
		pl.Resolution.Target.Width, pl.Resolution.Target.Height, pl.Resolution.Factor)
	if pl.Resolution.NeedsNormalize() {
		fmt.Fprintf(out, "  fit:        %dx%d -> %dx%d\n",
			pl.Resolution.PreWidth, pl.Resolution.PreHeight,
			pl.Resolution.Target.Width, pl.Resolution.Target.Height)
	}
	fmt.Fprintf(out, "  device:     %s\n", pl.DeviceTag)
	fmt.Fprintf(out, "  work dir:   %s\n", pl.JobDir)
	fmt.Fprintf(out, "  output:     %s\n", pl.OutputPath)
	if pl.Exists {
		fmt.Fprintf(out, "  note:       output exists; run would skip (use --overwrite)\n")
	}
	for _, a := range pl.Resolution.Advisories {
		label := "advisory"
		if a.Kind == preset.AdvisoryWasteful {
			label = "wasteful"
		}
		fmt.Fprintf(out, "  %s:   %s\n", label, a.Message)
	}
	fmt.Fprintln(out)
}
