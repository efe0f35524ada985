// Package app runs the interactive progress view for bulk generation.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/quizgen/internal/bulk"
	"github.com/abhisek/quizgen/internal/ui/components"
	"github.com/abhisek/quizgen/internal/ui/layout"
	"github.com/abhisek/quizgen/internal/ui/theme"
)

// ErrInterrupted is returned when the user quits before the run finishes.
var ErrInterrupted = errors.New("interrupted")

// Job runs a bulk generation, reporting progress through onProgress.
type Job func(ctx context.Context, onProgress bulk.ProgressFunc) (*bulk.Result, error)

type progressMsg bulk.Progress

type doneMsg struct {
	res *bulk.Result
	err error
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	title      string
	progress   bulk.Progress
	result     *bulk.Result
	err        error
	cancel     context.CancelFunc
	cancelling bool
	width      int
}

func newAppModel(title string, total int, cancel context.CancelFunc) AppModel {
	return AppModel{
		title:    title,
		progress: bulk.Progress{Total: total},
		cancel:   cancel,
		width:    60,
	}
}

func (m AppModel) Init() tea.Cmd {
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			// First press stops scheduling new batches; a second one
			// abandons the run.
			if m.cancelling {
				m.err = ErrInterrupted
				return m, tea.Quit
			}
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case progressMsg:
		if msg.Completed >= m.progress.Completed {
			m.progress = bulk.Progress(msg)
		}
		return m, nil

	case doneMsg:
		m.result, m.err = msg.res, msg.err
		if msg.res != nil {
			m.progress.Completed = m.progress.Total
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m AppModel) View() tea.View {
	return tea.NewView(m.render())
}

func (m AppModel) render() string {
	var b strings.Builder
	b.WriteString(layout.RenderHeader(m.title, m.width))
	b.WriteString("\n\n")
	b.WriteString(components.NewProgressBar("Generating", m.progress, m.width-2).View())
	b.WriteString("\n\n")
	b.WriteString(theme.Correct.Render(fmt.Sprintf("%d ok", m.progress.Succeeded)))
	b.WriteString("   ")
	b.WriteString(theme.Failed.Render(fmt.Sprintf("%d failed", m.progress.Failed)))
	b.WriteString("   ")
	b.WriteString(theme.Cancelled.Render(fmt.Sprintf("%d cancelled", m.progress.Cancelled)))
	b.WriteString("\n\n")

	if m.cancelling && m.result == nil {
		b.WriteString(theme.Hint.Render("Stopping after the current batch..."))
		b.WriteString("\n\n")
		b.WriteString(layout.RenderFooter([]layout.KeyHint{{Key: "Ctrl+C", Description: "Quit now"}}))
	} else {
		b.WriteString(layout.RenderFooter([]layout.KeyHint{{Key: "Ctrl+C", Description: "Stop"}}))
	}
	b.WriteString("\n")
	return b.String()
}

// Run shows live progress while job runs and returns its result. The job
// context is cancelled when the user presses Ctrl+C.
func Run(ctx context.Context, title string, total int, job Job) (*bulk.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newAppModel(title, total, cancel))
	go func() {
		res, err := job(ctx, func(pr bulk.Progress) { p.Send(progressMsg(pr)) })
		p.Send(doneMsg{res: res, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("run progress view: %w", err)
	}
	m := final.(AppModel)
	return m.result, m.err
}
