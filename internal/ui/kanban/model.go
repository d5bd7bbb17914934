package kanban

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lecture-board/internal/board"
	"github.com/nhle/lecture-board/internal/keys"
	"github.com/nhle/lecture-board/internal/model"
	"github.com/nhle/lecture-board/internal/theme"
)

// AddRequestMsg asks the parent to open the add form for Column.
type AddRequestMsg struct {
	Column model.ColumnID
}

// EditRequestMsg asks the parent to open the edit form for Task.
type EditRequestMsg struct {
	Task model.Task
}

// DeleteRequestMsg asks the parent to confirm deleting Task.
type DeleteRequestMsg struct {
	Task model.Task
}

// OpenRequestMsg asks the parent to show Task in the detail view.
type OpenRequestMsg struct {
	Task model.Task
}

// MoveRequestMsg is emitted when a grabbed card is dropped on another
// column.
type MoveRequestMsg struct {
	TaskID string
	From   model.ColumnID
	To     model.ColumnID
}

// cardHeight is the number of lines one card takes, including spacing.
const cardHeight = 3

// grab remembers the card being carried between columns.
type grab struct {
	taskID string
	from   model.ColumnID
}

// Model is the kanban board view: four columns side by side with a
// cursor on one card.
type Model struct {
	keys    *keys.KeyMap
	state   board.State
	col     int
	rows    []int
	grabbed *grab
	now     func() time.Time
	width   int
	height  int
}

// New creates a new board view model.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		keys:   k,
		state:  board.NewState(nil),
		rows:   make([]int, len(model.ColumnIDs)),
		now:    time.Now,
		width:  width,
		height: height,
	}
}

// SetState replaces the board being shown, keeping the cursor in range
// and dropping a grab whose card is gone.
func (m *Model) SetState(s board.State) {
	m.state = s
	if len(m.rows) != len(s.Columns) {
		m.rows = make([]int, len(s.Columns))
	}
	for i, col := range s.Columns {
		m.rows[i] = clamp(m.rows[i], 0, len(col.Tasks)-1)
	}
	if m.grabbed != nil {
		if _, _, ok := s.FindTask(m.grabbed.taskID); !ok {
			m.grabbed = nil
		}
	}
}

// SetClock overrides the time used to classify deadlines.
func (m *Model) SetClock(now func() time.Time) {
	m.now = now
}

// SetSize updates the board dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// FocusedColumn returns the id of the column holding the cursor.
func (m Model) FocusedColumn() model.ColumnID {
	if m.col < len(m.state.Columns) {
		return m.state.Columns[m.col].ID
	}
	return model.ColumnTodo
}

// Selected returns the card under the cursor.
func (m Model) Selected() (model.Task, bool) {
	if m.col >= len(m.state.Columns) {
		return model.Task{}, false
	}
	tasks := m.state.Columns[m.col].Tasks
	row := m.rows[m.col]
	if row < 0 || row >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[row], true
}

// Grabbing reports whether a card is being carried.
func (m Model) Grabbing() bool {
	return m.grabbed != nil
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key presses on the board.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.state.Loading {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Left):
		m.col = clamp(m.col-1, 0, len(m.state.Columns)-1)

	case key.Matches(keyMsg, m.keys.Right):
		m.col = clamp(m.col+1, 0, len(m.state.Columns)-1)

	case key.Matches(keyMsg, m.keys.Up):
		if m.grabbed == nil {
			m.rows[m.col] = clamp(m.rows[m.col]-1, 0, m.columnLen(m.col)-1)
		}

	case key.Matches(keyMsg, m.keys.Down):
		if m.grabbed == nil {
			m.rows[m.col] = clamp(m.rows[m.col]+1, 0, m.columnLen(m.col)-1)
		}

	case key.Matches(keyMsg, m.keys.Back):
		m.grabbed = nil

	case key.Matches(keyMsg, m.keys.Grab):
		return m.toggleGrab()

	case key.Matches(keyMsg, m.keys.Add):
		col := m.FocusedColumn()
		return m, func() tea.Msg { return AddRequestMsg{Column: col} }

	case key.Matches(keyMsg, m.keys.Edit):
		if t, ok := m.Selected(); ok && m.grabbed == nil {
			return m, func() tea.Msg { return EditRequestMsg{Task: t} }
		}

	case key.Matches(keyMsg, m.keys.Delete):
		if t, ok := m.Selected(); ok && m.grabbed == nil {
			return m, func() tea.Msg { return DeleteRequestMsg{Task: t} }
		}

	case key.Matches(keyMsg, m.keys.Select):
		if t, ok := m.Selected(); ok && m.grabbed == nil {
			return m, func() tea.Msg { return OpenRequestMsg{Task: t} }
		}
	}

	return m, nil
}

// toggleGrab picks up the selected card, or drops the carried one on the
// focused column. Dropping on the column it came from cancels the grab.
func (m Model) toggleGrab() (Model, tea.Cmd) {
	if m.grabbed == nil {
		t, ok := m.Selected()
		if !ok {
			return m, nil
		}
		m.grabbed = &grab{taskID: t.ID, from: m.FocusedColumn()}
		return m, nil
	}

	g := *m.grabbed
	m.grabbed = nil
	to := m.FocusedColumn()
	if to == g.from {
		return m, nil
	}
	// The card lands at the tail of the target column.
	m.rows[m.col] = m.columnLen(m.col)
	return m, func() tea.Msg {
		return MoveRequestMsg{TaskID: g.taskID, From: g.from, To: to}
	}
}

func (m Model) columnLen(i int) int {
	if i < 0 || i >= len(m.state.Columns) {
		return 0
	}
	return len(m.state.Columns[i].Tasks)
}

// View renders the four columns side by side.
func (m Model) View() string {
	if m.state.Loading {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Loading board...")
	}

	n := len(m.state.Columns)
	if n == 0 {
		return ""
	}
	colWidth := max(m.width/n, 16)
	rendered := make([]string, n)
	for i, col := range m.state.Columns {
		rendered[i] = m.renderColumn(i, col, colWidth)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderColumn(i int, col model.Column, width int) string {
	style := theme.ColumnStyle
	switch {
	case i == m.col && m.grabbed != nil && col.ID != m.grabbed.from:
		style = theme.DropTargetStyle
	case i == m.col:
		style = theme.FocusedColumnStyle
	}

	// Border takes two columns and two rows; padding two more columns.
	inner := width - 4
	height := max(m.height-2, 4)

	header := theme.ColumnTitleStyle.Render(fmt.Sprintf("%s (%d)", col.Title, len(col.Tasks)))

	visible := max((height-2)/cardHeight, 1)
	start := 0
	if i == m.col && m.rows[i] >= visible {
		start = m.rows[i] - visible + 1
	}
	end := min(start+visible, len(col.Tasks))

	lines := []string{header}
	if len(col.Tasks) == 0 {
		lines = append(lines, theme.DimmedStyle.Italic(true).Render("No tasks"))
	}
	for j := start; j < end; j++ {
		lines = append(lines, m.renderCard(col.Tasks[j], i == m.col && j == m.rows[i], inner))
	}
	if end < len(col.Tasks) {
		lines = append(lines, theme.DimmedStyle.Render(fmt.Sprintf("+%d more", len(col.Tasks)-end)))
	}

	return style.
		Width(width - 2).
		Height(height).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderCard(t model.Task, selected bool, width int) string {
	style := theme.CardStyle
	switch {
	case m.grabbed != nil && m.grabbed.taskID == t.ID:
		style = theme.GrabbedCardStyle
	case selected:
		style = theme.SelectedCardStyle
	}

	title := truncate(t.Title, width-2)
	meta := cardMeta(t, m.now())
	if meta == "" {
		return style.Render(title) + "\n"
	}
	return style.Render(title) + "\n" + lipgloss.NewStyle().PaddingLeft(2).Render(meta)
}

// cardMeta renders the deadline badge and assignee shown under a title.
func cardMeta(t model.Task, now time.Time) string {
	var parts []string
	if t.Deadline != nil {
		status := board.ClassifyDeadline(t.Deadline, now)
		date := theme.DimmedStyle.Render(t.Deadline.Local().Format("01/02"))
		parts = append(parts, date+theme.DeadlineStyle(status.String()).Render(status.Label()))
	}
	if a := t.AssigneeName(); a != "" {
		parts = append(parts, theme.DimmedStyle.Render("@"+a))
	}
	return strings.Join(parts, " ")
}

func truncate(s string, width int) string {
	if width <= 1 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
