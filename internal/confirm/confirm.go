// Package confirm models the continue/abort decisions the pipeline asks the
// operator to make (busy devices, wasteful upscale plans).
package confirm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/RanmaKei/Video-Tools/internal/model"
)

// Confirmer answers yes/no questions raised mid-run.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// Policy always answers the same way. It backs the non-interactive
// --on-busy=abort|continue modes.
type Policy struct {
	Allow bool
}

// Confirm implements Confirmer.
func (p Policy) Confirm(string) (bool, error) {
	return p.Allow, nil
}

// Terminal prompts on a TTY and reads a y/N answer. Anything but an
// explicit yes declines.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// Confirm implements Confirmer.
func (t Terminal) Confirm(prompt string) (bool, error) {
	in := t.In
	if in == nil {
		in = os.Stdin
	}
	out := t.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// ForPolicy maps an on-busy policy to a Confirmer. "ask" requires a TTY;
// without one it degrades to abort, never to a silent continue.
func ForPolicy(policy model.OnBusyPolicy) Confirmer {
	switch policy {
	case model.OnBusyContinue:
		return Policy{Allow: true}
	case model.OnBusyAsk:
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return Terminal{}
		}
		return Policy{Allow: false}
	default:
		return Policy{Allow: false}
	}
}
