package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/RanmaKei/Video-Tools/internal/job"
)

func newJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "jobs",
		Short:         "List interrupted upscaling jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workRoot := getPersistentString(cmd, "work-root", defaultWorkRoot())
			unfinished, err := job.Discover(workRoot)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if len(unfinished) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No interrupted jobs.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "JOB\tDEVICE\tFRAMES\tDONE\tSOURCE")
			for _, u := range unfinished {
				source, serr := u.Job.RecordedSource()
				if serr != nil {
					source = "(unknown)"
				}
				fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d%%\t%s\n",
					u.Job.Name, u.Job.Tag, u.Upscaled, u.Frames, u.CompletionPct(), source)
			}
			return w.Flush()
		},
	}
}
