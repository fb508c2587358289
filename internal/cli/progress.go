package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/suarabot/suarabot/internal/embed"
	"github.com/suarabot/suarabot/internal/models"
)

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

// Style functions for dynamic theming
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

// itemResultMsg reports one finished pipeline item.
type itemResultMsg struct {
	title string
	err   error
}

// embedDoneMsg signals that the whole batch finished.
type embedDoneMsg struct{}

// embedModel is the bubbletea model for embedding progress.
type embedModel struct {
	cancel   context.CancelFunc
	total    int
	done     int
	current  string
	failures []string
	progress progress.Model
	theme    Theme
	finished bool
	quitting bool
}

// newEmbedModel creates a new progress model.
func newEmbedModel(cancel context.CancelFunc, total int) embedModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return embedModel{
		cancel:   cancel,
		total:    total,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command.
func (m embedModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m embedModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case itemResultMsg:
		m.done++
		m.current = msg.title
		if msg.err != nil {
			m.failures = append(m.failures, fmt.Sprintf("%s: %v", msg.title, msg.err))
		}
		return m, nil

	case embedDoneMsg:
		m.finished = true
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m embedModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m embedModel) renderContent() string {
	if m.finished || m.quitting {
		return m.finalView()
	}

	var pct float64
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}

	status := m.theme.statusStyle().Render("[embedding]")
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d items", m.done, m.total)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to abort")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

// finalView renders the completion message.
func (m embedModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nAborted. Remaining items stay pending; rerun 'suarabot process' to resume.\n")
	}

	succeeded := m.done - len(m.failures)
	var output string
	if succeeded > 0 {
		output += m.theme.completedStyle().Render("✓ Completed") + "\n\n"
		output += fmt.Sprintf("  Items embedded: %d\n", succeeded)
	}
	if len(m.failures) > 0 {
		output += m.theme.errorStyle().Render(fmt.Sprintf("\nFailed (%d):\n", len(m.failures)))
		for _, f := range m.failures {
			output += fmt.Sprintf("  • %s\n", f)
		}
	}
	if output == "" {
		output = m.theme.completedStyle().Render("✓ Nothing to do\n")
	}
	return output
}

// RunEmbedProgress runs the interactive progress UI while the pipeline
// processes the given items sequentially. Ctrl+C cancels the batch;
// already-finished items keep their state.
func RunEmbedProgress(ctx context.Context, pipeline *embed.Pipeline, items []models.KnowledgeItem, ownerID string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newEmbedModel(cancel, len(items)))

	go func() {
		for i := range items {
			if ctx.Err() != nil {
				return
			}
			err := pipeline.Process(ctx, &items[i], ownerID)
			p.Send(itemResultMsg{title: items[i].Title, err: err})
		}
		p.Send(embedDoneMsg{})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(embedModel); ok {
		if !m.quitting && len(m.failures) == m.total && m.total > 0 {
			return fmt.Errorf("all %d items failed to embed", m.total)
		}
	}
	return nil
}
