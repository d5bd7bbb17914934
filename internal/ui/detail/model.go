package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lecture-board/internal/board"
	"github.com/nhle/lecture-board/internal/keys"
	"github.com/nhle/lecture-board/internal/model"
	"github.com/nhle/lecture-board/internal/theme"
)

// BackMsg signals the parent to navigate back to the board.
type BackMsg struct{}

// ActionMsg asks the parent to act on the shown task. Action is "edit"
// or "delete".
type ActionMsg struct {
	Action string
	Task   model.Task
}

// Model is the task detail view component.
type Model struct {
	task       *model.Task
	columnName string
	viewport   viewport.Model
	keys       *keys.KeyMap
	now        func() time.Time
	width      int
	height     int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		now:      time.Now,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.Edit):
			if m.task != nil {
				t := *m.task
				return m, func() tea.Msg {
					return ActionMsg{Action: "edit", Task: t}
				}
			}

		case key.Matches(msg, m.keys.Delete):
			if m.task != nil {
				t := *m.task
				return m, func() tea.Msg {
					return ActionMsg{Action: "delete", Task: t}
				}
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.task == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No task selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}

	task := m.task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(task.Title))
	sections = append(sections, theme.DimmedStyle.Render(m.columnName))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		sections = append(sections, fmt.Sprintf("%s %s",
			metaStyle.Width(10).Render(label+":"),
			valStyle.Render(value),
		))
	}

	if task.Deadline != nil {
		status := board.ClassifyDeadline(task.Deadline, m.now())
		badge := theme.DeadlineStyle(status.String()).Render(status.Label())
		row("Deadline", task.Deadline.Local().Format("2006-01-02")+" "+badge)
	}
	if a := task.AssigneeName(); a != "" {
		row("Assignee", a)
	}
	if !task.CreatedAt.IsZero() {
		row("Created", task.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if !task.UpdatedAt.IsZero() {
		row("Updated", task.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))
	sections = append(sections, "", separator, "")

	descHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	sections = append(sections, descHeaderStyle.Render("Description"))

	body := task.Description
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, lipgloss.NewStyle().Width(max(m.width-4, 10)).Render(body))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetTask updates the task being displayed and re-renders the content.
// columnName is the display title of the task's column.
func (m *Model) SetTask(task model.Task, columnName string) {
	m.task = &task
	m.columnName = columnName
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Clear removes the shown task.
func (m *Model) Clear() {
	m.task = nil
	m.viewport.SetContent("")
}

// TaskID returns the id of the shown task, or "".
func (m Model) TaskID() string {
	if m.task == nil {
		return ""
	}
	return m.task.ID
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.task != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
