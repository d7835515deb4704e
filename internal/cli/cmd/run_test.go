package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RanmaKei/Video-Tools/internal/model"
)

// assembleOn builds the full command tree and runs input assembly against
// the run subcommand, the way Execute would.
func assembleOn(t *testing.T, args []string, flags map[string]string) (model.CLIOptions, error) {
	t.Helper()
	root := newRootCmd()
	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	for name, value := range flags {
		if f := run.Flags().Lookup(name); f != nil {
			require.NoError(t, run.Flags().Set(name, value))
			continue
		}
		require.NoError(t, root.PersistentFlags().Set(name, value))
	}
	return assembleRunInputs(run, args)
}

func TestAssembleRunInputsDefaults(t *testing.T) {
	src := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(src, []byte("v"), 0o644))

	opts, err := assembleOn(t, []string{src}, nil)
	require.NoError(t, err)

	assert.Equal(t, "fhd", opts.Preset)
	assert.Equal(t, model.FitPad, opts.Fit)
	assert.Equal(t, model.OnBusyAsk, opts.OnBusy)
	assert.Equal(t, 50, opts.BusyPct)
	assert.Equal(t, -1, opts.GPU)
	assert.Equal(t, []string{src}, opts.Files)
}

func TestAssembleRunInputsValidation(t *testing.T) {
	src := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(src, []byte("v"), 0o644))

	_, err := assembleOn(t, []string{src}, map[string]string{"fit": "tile"})
	assert.ErrorContains(t, err, "--fit")

	_, err = assembleOn(t, []string{src}, map[string]string{"on-busy": "retry"})
	assert.ErrorContains(t, err, "--on-busy")

	_, err = assembleOn(t, []string{src}, map[string]string{"busy-pct": "150"})
	assert.ErrorContains(t, err, "--busy-pct")

	_, err = assembleOn(t, []string{filepath.Join(t.TempDir(), "missing.mp4")}, nil)
	assert.Error(t, err)

	_, err = assembleOn(t, []string{src}, map[string]string{"input-dir": t.TempDir()})
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestExitErrorUnwrap(t *testing.T) {
	inner := os.ErrNotExist
	ee := &ExitError{Code: ExitMissingDep, Err: inner}
	assert.ErrorIs(t, ee, os.ErrNotExist)
	assert.Equal(t, inner.Error(), ee.Error())
}
