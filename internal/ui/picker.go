// Package ui implements the interactive picker shown by `framelift resume`
// when several interrupted jobs are found.
package ui

import (
	"fmt"
	"strings"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/RanmaKei/Video-Tools/internal/job"
)

type pickerModel struct {
	jobs    []job.Unfinished
	bars    []bubblesprogress.Model
	checked []bool
	cursor  int
	width   int
	confirm bool
	aborted bool
	styles  Styles
}

func newPickerModel(jobs []job.Unfinished) pickerModel {
	m := pickerModel{
		jobs:    jobs,
		bars:    make([]bubblesprogress.Model, len(jobs)),
		checked: make([]bool, len(jobs)),
		styles:  defaultStyles(),
	}
	for i := range jobs {
		m.bars[i] = bubblesprogress.New(
			bubblesprogress.WithDefaultGradient(),
			bubblesprogress.WithWidth(30),
		)
		m.checked[i] = true // resuming everything is the common case
	}
	return m
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.jobs)-1 {
				m.cursor++
			}
		case " ":
			m.checked[m.cursor] = !m.checked[m.cursor]
		case "a":
			all := true
			for _, c := range m.checked {
				if !c {
					all = false
					break
				}
			}
			for i := range m.checked {
				m.checked[i] = !all
			}
		case "enter":
			m.confirm = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Interrupted jobs"))
	b.WriteString("\n")
	b.WriteString(m.styles.Subtitle.Render("Select which jobs to resume"))
	b.WriteString("\n\n")

	for i, u := range m.jobs {
		cursor := "  "
		if i == m.cursor {
			cursor = m.styles.Cursor.Render("> ")
		}
		check := "[ ]"
		if m.checked[i] {
			check = m.styles.Selected.Render("[x]")
		}
		pct := u.CompletionPct()
		b.WriteString(fmt.Sprintf("%s%s %s %s\n", cursor, check,
			m.styles.JobName.Render(u.Job.Name),
			m.styles.JobInfo.Render(fmt.Sprintf("(%s)", u.Job.Tag))))
		b.WriteString(fmt.Sprintf("      %s %s\n", m.bars[i].ViewAs(float64(pct)/100),
			m.styles.JobInfo.Render(fmt.Sprintf("%d/%d frames", u.Upscaled, u.Frames))))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render("space toggle · a all/none · enter resume · q quit"))
	b.WriteString("\n")
	return b.String()
}

// Pick shows the picker and returns the jobs the operator chose to resume.
// A nil slice with nil error means the operator backed out.
func Pick(jobs []job.Unfinished) ([]job.Unfinished, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	prog := tea.NewProgram(newPickerModel(jobs))
	final, err := prog.Run()
	if err != nil {
		return nil, fmt.Errorf("resume picker: %w", err)
	}
	m, ok := final.(pickerModel)
	if !ok || m.aborted || !m.confirm {
		return nil, nil
	}
	var picked []job.Unfinished
	for i, c := range m.checked {
		if c {
			picked = append(picked, m.jobs[i])
		}
	}
	return picked, nil
}
