package confirm

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// ResultMsg reports the answer to a confirmation. ID identifies what was
// being confirmed.
type ResultMsg struct {
	ID        string
	Confirmed bool
}

// Model asks a yes/no question before a destructive action.
type Model struct {
	form      *huh.Form
	id        string
	confirmed *bool
	width     int
}

// New creates a confirmation model.
func New(width int) Model {
	return Model{confirmed: new(bool), width: width}
}

// Ask opens the prompt for the item id.
func (m *Model) Ask(id, title, description string) tea.Cmd {
	m.id = id
	*m.confirmed = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Delete").
				Negative("Cancel").
				Value(m.confirmed),
		),
	).WithWidth(min(max(m.width-4, 30), 60))
	return m.form.Init()
}

// Update handles messages for the prompt.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		res := ResultMsg{ID: m.id, Confirmed: *m.confirmed}
		return m, func() tea.Msg { return res }
	case huh.StateAborted:
		res := ResultMsg{ID: m.id}
		return m, func() tea.Msg { return res }
	}
	return m, cmd
}

// View renders the prompt.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(m.form.View())
}

// SetSize updates the prompt width.
func (m *Model) SetSize(width, height int) {
	m.width = width
}
