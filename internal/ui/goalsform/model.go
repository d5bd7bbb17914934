package goalsform

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lecture-board/internal/model"
	"github.com/nhle/lecture-board/internal/theme"
)

// SubmittedMsg carries the goal targets entered in the form. A nil target
// was left blank.
type SubmittedMsg struct {
	Traffic    *int
	Conversion *int
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

type formBindings struct {
	traffic    string
	conversion string
}

// Model is the goals editor.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	width  int
	height int
}

// New creates a new goals form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start opens the form prefilled with current.
func (m *Model) Start(current model.Goals) tea.Cmd {
	m.fb.traffic = formatTarget(current.TargetTraffic)
	m.fb.conversion = formatTarget(current.TargetConversion)
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Target traffic").
				Placeholder("blank to unset").
				Value(&m.fb.traffic).
				Validate(validateTarget),
			huh.NewInput().
				Title("Target conversion").
				Placeholder("blank to unset").
				Value(&m.fb.conversion).
				Validate(validateTarget),
		),
	).WithWidth(min(max(m.width-4, 30), 60))
	return m.form.Init()
}

// Update handles messages for the goals form.
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
		out := SubmittedMsg{
			Traffic:    parseTarget(m.fb.traffic),
			Conversion: parseTarget(m.fb.conversion),
		}
		return m, func() tea.Msg { return out }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the goals form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Goals")

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(title + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func formatTarget(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// parseTarget reads a validated target; blank means unset.
func parseTarget(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func validateTarget(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("enter a whole number or leave blank")
	}
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
