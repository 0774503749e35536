package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobsweep/internal/engine"
)

// ErrCancelled is returned when the user aborts a running preview.
var ErrCancelled = errors.New("cancelled")

// PreviewFunc runs one (keyword, scope) preview.
type PreviewFunc func(ctx context.Context) (*engine.PreviewResult, error)

type previewDoneMsg struct {
	result *engine.PreviewResult
	err    error
}

type loaderModel struct {
	label   string
	preview PreviewFunc
	ctx     context.Context
	cancel  context.CancelFunc
	spinner spinner.Model
	result  *engine.PreviewResult
	err     error
	done    bool
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doPreview(), m.spinner.Tick)
}

func (m loaderModel) doPreview() tea.Cmd {
	ctx, preview := m.ctx, m.preview
	return func() tea.Msg {
		res, err := preview(ctx)
		return previewDoneMsg{result: res, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case previewDoneMsg:
		m.result, m.err, m.done = msg.result, msg.err, true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			m.done = true
			m.err = ErrCancelled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Searching %s...\n", m.spinner.View(), m.label)
}

// RunLoader shows a spinner while preview runs. It renders inline (no alt screen).
func RunLoader(ctx context.Context, label string, preview PreviewFunc) (*engine.PreviewResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))

	m := loaderModel{label: label, preview: preview, ctx: ctx, cancel: cancel, spinner: sp}
	result, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
