package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/RanmaKei/Video-Tools/internal/progress"
)

// Console is a line-oriented progress.Reporter for non-TUI runs. Stage
// changes print once; repeated updates within a stage are folded.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	styles  Styles
	last    map[string]progress.Stage
	verbose bool
}

// NewConsole returns a reporter writing to out.
func NewConsole(out io.Writer, verbose bool) *Console {
	return &Console{
		out:     out,
		styles:  defaultStyles(),
		last:    make(map[string]progress.Stage),
		verbose: verbose,
	}
}

// Update implements progress.Reporter.
func (c *Console) Update(u progress.Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last[u.Video] == u.Stage && !c.verbose {
		return
	}
	c.last[u.Video] = u.Stage

	name := c.styles.JobName.Render(filepath.Base(u.Video))
	switch u.Stage {
	case progress.StageCompleted, progress.StageSkipped:
		fmt.Fprintf(c.out, "%s %s %s\n", c.styles.Selected.Render("✓"), name, u.Message)
	case progress.StageError:
		fmt.Fprintf(c.out, "%s %s %s\n", c.styles.Warning.Render("✗"), name, u.Message)
	default:
		fmt.Fprintf(c.out, "  %s %s\n", name, c.styles.JobInfo.Render(u.Message))
	}
}

// Log implements progress.Reporter.
func (c *Console) Log(l progress.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "  %s %s\n", c.styles.Faint.Render(filepath.Base(l.Video)+":"), l.Line)
}

// Result implements progress.Reporter. The final line already came through
// Update, so results are only echoed in verbose mode.
func (c *Console) Result(r progress.Result) {
	if !c.verbose || r.Err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "  %s\n", c.styles.Faint.Render(r.OutputPath))
}
