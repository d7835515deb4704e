package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/RanmaKei/Video-Tools/internal/job"
	"github.com/RanmaKei/Video-Tools/internal/model"
	"github.com/RanmaKei/Video-Tools/internal/pipeline"
	"github.com/RanmaKei/Video-Tools/internal/ui"
)

func newResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "resume [files...]",
		Short:         "Pick up interrupted upscaling jobs",
		Long:          "Finish jobs whose working directories still hold extracted frames. Already-upscaled frames are kept; only the missing ones go back through the model. With no arguments, interrupted jobs are discovered under the work root; on a terminal a picker lets you choose which to resume.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := assembleRunInputs(cmd, args)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			in.Resume = true
			if len(in.Files) > 0 || in.InputDir != "" {
				return runExecute(cmd, in)
			}
			return resumeDiscovered(cmd, in)
		},
	}
	cmd.Flags().StringP("input-dir", "i", "", "Resume every video in this directory")
	cmd.Flags().Bool("all", false, "Resume all discovered jobs without the picker")
	bindRunFlags(cmd.Flags())
	return cmd
}

// resumeDiscovered scans the work root for interrupted jobs and re-runs the
// sources named by the surviving job directories.
func resumeDiscovered(cmd *cobra.Command, opts model.CLIOptions) error {
	unfinished, err := job.Discover(opts.WorkRoot)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	if len(unfinished) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No interrupted jobs found.")
		return nil
	}

	all, _ := cmd.Flags().GetBool("all")
	picked := unfinished
	if !all && term.IsTerminal(int(os.Stdout.Fd())) {
		picked, err = ui.Pick(unfinished)
		if err != nil {
			return &ExitError{Code: ExitCLIError, Err: err}
		}
		if len(picked) == 0 {
			return nil
		}
	}

	reporter := ui.NewConsole(cmd.OutOrStdout(), opts.Verbose)
	var failed int
	for _, u := range picked {
		source, serr := sourceForJob(u)
		if serr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: %v\n", u.Job.Name, serr)
			failed++
			continue
		}
		runOpts := opts
		runOpts.Files = []string{source}
		// Stay on the device slot the job was started on.
		if idx, ok := deviceIndex(u.Job.Tag); ok {
			runOpts.GPU = idx
		}
		svc, berr := buildService(runOpts, pipeline.WithReporter(reporter))
		if berr != nil {
			return berr
		}
		if _, rerr := svc.RunJob(cmd.Context(), source); rerr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", u.Job.Name, rerr)
			failed++
		}
	}
	if failed > 0 {
		return &ExitError{Code: ExitPipelineError, Err: fmt.Errorf("%d job(s) could not be resumed", failed)}
	}
	return nil
}

// deviceIndex extracts the GPU index from a job tag like "gpu1".
func deviceIndex(tag string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(tag, "gpu"))
	if err != nil {
		return 0, false
	}
	return n, true
}

// sourceForJob recovers the original source path recorded in the job dir.
func sourceForJob(u job.Unfinished) (string, error) {
	source, err := u.Job.RecordedSource()
	if err != nil {
		return "", fmt.Errorf("job has no source record: %w", err)
	}
	if _, err := os.Stat(source); err != nil {
		return "", fmt.Errorf("recorded source %s: %w", source, err)
	}
	return source, nil
}
