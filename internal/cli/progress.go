package cli

import (
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/timepivot/internal/engine"
	"github.com/raphaelgruber/timepivot/internal/index"
)

const pollInterval = 100 * time.Millisecond

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the rebuild progress
type tickMsg time.Time

// rebuildDoneMsg carries the rebuild outcome
type rebuildDoneMsg struct {
	err error
}

// rebuildModel is the bubbletea model for index rebuild progress.
type rebuildModel struct {
	eng      *engine.Engine
	doneCh   <-chan error
	status   index.Progress
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

// newRebuildModel creates a progress model over a running rebuild.
// doneCh must deliver exactly one value when the rebuild finishes.
func newRebuildModel(eng *engine.Engine, doneCh <-chan error) rebuildModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return rebuildModel{
		eng:      eng,
		doneCh:   doneCh,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial commands (start polling, wait for completion).
func (m rebuildModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.waitForDone(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m rebuildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		m.status = m.eng.IndexProgress()
		return m, tickCmd()

	case rebuildDoneMsg:
		m.done = true
		m.err = msg.err
		m.status = m.eng.IndexProgress()
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m rebuildModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m rebuildModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	var pct float64
	if m.status.Total > 0 {
		pct = float64(m.status.Done) / float64(m.status.Total)
	}

	status := m.theme.statusStyle().Render("[rebuilding]")
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d entities", m.status.Done, m.status.Total)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to abort")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

// finalView renders the completion message.
func (m rebuildModel) finalView() string {
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Rebuild failed: %s\n", m.err))
	}
	return m.theme.completedStyle().Render(
		fmt.Sprintf("✓ Index rebuilt, %d entities processed\n", m.status.Done))
}

// waitForDone blocks on the rebuild goroutine's result.
func (m rebuildModel) waitForDone() tea.Cmd {
	return func() tea.Msg {
		return rebuildDoneMsg{err: <-m.doneCh}
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runRebuildProgress runs the interactive progress UI over a rebuild that
// is already running; doneCh delivers its result.
func runRebuildProgress(eng *engine.Engine, doneCh <-chan error) error {
	model := newRebuildModel(eng, doneCh)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(rebuildModel); ok {
		if m.quitting {
			return nil
		}
		return m.err
	}

	return nil
}
