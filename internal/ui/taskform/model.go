package taskform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lecture-board/internal/board"
	"github.com/nhle/lecture-board/internal/model"
	"github.com/nhle/lecture-board/internal/theme"
)

// DateLayout is the format deadlines are typed in.
const DateLayout = "2006-01-02"

// AddSubmittedMsg is dispatched when the add form is submitted.
type AddSubmittedMsg struct {
	Column model.ColumnID
	Title  string
}

// EditSubmittedMsg is dispatched when the edit form is submitted.
type EditSubmittedMsg struct {
	TaskID string
	Edit   board.TaskEdit
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	assignee    string
	deadline    string
}

// Model is the Bubble Tea model for the task add/edit form.
type Model struct {
	form       *huh.Form
	fb         *formBindings
	editMode   bool
	editID     string
	column     model.ColumnID
	columnName string
	width      int
	height     int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// StartAdd initializes the form for adding a task to column. title is the
// column's display name.
func (m *Model) StartAdd(column model.ColumnID, title string) tea.Cmd {
	m.editMode = false
	m.editID = ""
	m.column = column
	m.columnName = title
	*m.fb = formBindings{}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&m.fb.title),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
	return m.form.Init()
}

// StartEdit initializes the form for editing task.
func (m *Model) StartEdit(task model.Task) tea.Cmd {
	m.editMode = true
	m.editID = task.ID
	m.column = task.ColumnID
	m.fb.title = task.Title
	m.fb.description = task.Description
	m.fb.assignee = task.AssigneeName()
	if task.Deadline != nil {
		m.fb.deadline = task.Deadline.Local().Format(DateLayout)
	} else {
		m.fb.deadline = ""
	}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Placeholder("Optional details...").
				Value(&m.fb.description),
			huh.NewInput().
				Title("Assignee").
				Placeholder("Optional").
				Value(&m.fb.assignee),
			huh.NewInput().
				Title("Deadline").
				Placeholder("YYYY-MM-DD (optional)").
				Value(&m.fb.deadline).
				Validate(validateOptionalDate),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
	return m.form.Init()
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.columnName != "" && !m.editMode {
		titleText = "New Task · " + m.columnName
	}
	if m.editMode {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) handleSubmit() tea.Cmd {
	if !m.editMode {
		msg := AddSubmittedMsg{Column: m.column, Title: m.fb.title}
		return func() tea.Msg { return msg }
	}

	edit := board.TaskEdit{
		Title:       m.fb.title,
		Description: m.fb.description,
		Assignee:    strings.TrimSpace(m.fb.assignee),
		Deadline:    parseDeadline(m.fb.deadline),
	}
	msg := EditSubmittedMsg{TaskID: m.editID, Edit: edit}
	return func() tea.Msg { return msg }
}

// parseDeadline reads a YYYY-MM-DD date as local midnight. Blank or
// malformed input yields no deadline.
func parseDeadline(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return nil
	}
	return &t
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	_, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}
