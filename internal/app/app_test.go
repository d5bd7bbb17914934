package app

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lecture-board/internal/board"
	"github.com/nhle/lecture-board/internal/model"
	"github.com/nhle/lecture-board/internal/ui/confirm"
	"github.com/nhle/lecture-board/internal/ui/kanban"
	"github.com/nhle/lecture-board/internal/ui/taskform"
	"github.com/nhle/lecture-board/tests/testutil"
)

func newTestModel(t *testing.T) (Model, *board.Controller) {
	t.Helper()
	client := testutil.NewTestStore(t)
	notices := &board.NoticeBuffer{}
	ctrl := board.NewController(client, notices, model.DefaultColumnTitles)
	cfg := &model.AppConfig{Store: model.StoreConfig{TimeoutSec: 5}}

	m := New(ctrl, notices, cfg)
	m = step(t, m, tea.WindowSizeMsg{Width: 160, Height: 40})
	return m, ctrl
}

// step applies msg and returns the updated model.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

// settle runs cmd and feeds its boardResultMsg back into the model.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	res, ok := msg.(boardResultMsg)
	require.True(t, ok, "expected boardResultMsg, got %T", msg)
	return step(t, m, res)
}

func TestModel_InitLoadsBoard(t *testing.T) {
	m, ctrl := newTestModel(t)
	require.NoError(t, ctrl.AddTask(context.Background(), model.ColumnDone, "Outline"))

	m = settle(t, m, m.Init())

	assert.False(t, ctrl.Snapshot().Loading)
	assert.Contains(t, m.View(), "Outline")
	assert.Contains(t, m.View(), "Lecture Board")
}

func TestModel_AddFlow(t *testing.T) {
	m, ctrl := newTestModel(t)
	m = settle(t, m, m.Init())

	m = step(t, m, kanban.AddRequestMsg{Column: model.ColumnTodo})
	assert.Equal(t, ViewTaskAdd, m.currentView)

	next, cmd := m.Update(taskform.AddSubmittedMsg{Column: model.ColumnTodo, Title: "Write slides"})
	m = next.(Model)
	assert.Equal(t, ViewBoard, m.currentView)
	m = settle(t, m, cmd)

	col, ok := ctrl.Snapshot().Column(model.ColumnTodo)
	require.True(t, ok)
	require.Len(t, col.Tasks, 1)
	assert.Equal(t, "Write slides", col.Tasks[0].Title)

	require.NotNil(t, m.notice)
	assert.Equal(t, model.SeveritySuccess, m.notice.Severity)
	assert.Equal(t, "Task added.", m.notice.Message)
}

func TestModel_NoticeClearsOnlyForLatestSequence(t *testing.T) {
	m, _ := newTestModel(t)
	m = settle(t, m, m.Init())
	m = settle(t, m, m.addTask(model.ColumnTodo, "One"))
	require.NotNil(t, m.notice)

	stale := m.noticeSeq - 1
	m = step(t, m, clearNoticeMsg{seq: stale})
	assert.NotNil(t, m.notice)

	m = step(t, m, clearNoticeMsg{seq: m.noticeSeq})
	assert.Nil(t, m.notice)
}

func TestModel_DeleteNeedsConfirmation(t *testing.T) {
	m, ctrl := newTestModel(t)
	ctx := context.Background()
	require.NoError(t, ctrl.AddTask(ctx, model.ColumnDoing, "Record intro"))
	m = settle(t, m, m.Init())
	task := ctrl.Snapshot().Columns[1].Tasks[0]

	m = step(t, m, kanban.DeleteRequestMsg{Task: task})
	assert.Equal(t, ViewConfirmDelete, m.currentView)

	next, cmd := m.Update(confirm.ResultMsg{ID: task.ID, Confirmed: false})
	m = next.(Model)
	assert.Equal(t, ViewBoard, m.currentView)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, ctrl.Snapshot().TaskCount())

	m = step(t, m, kanban.DeleteRequestMsg{Task: task})
	_, cmd = m.Update(confirm.ResultMsg{ID: task.ID, Confirmed: true})
	settle(t, m, cmd)
	assert.Equal(t, 0, ctrl.Snapshot().TaskCount())
}

func TestModel_MoveRequest(t *testing.T) {
	m, ctrl := newTestModel(t)
	ctx := context.Background()
	require.NoError(t, ctrl.AddTask(ctx, model.ColumnTodo, "Book studio"))
	m = settle(t, m, m.Init())
	task := ctrl.Snapshot().Columns[0].Tasks[0]

	_, cmd := m.Update(kanban.MoveRequestMsg{TaskID: task.ID, From: model.ColumnTodo, To: model.ColumnDone})
	settle(t, m, cmd)

	_, colID, ok := ctrl.Snapshot().FindTask(task.ID)
	require.True(t, ok)
	assert.Equal(t, model.ColumnDone, colID)
}

func TestModel_NegativeGoalSurfacesError(t *testing.T) {
	m, ctrl := newTestModel(t)
	bad := -1

	m = settle(t, m, m.saveGoals(&bad, nil))

	require.NotNil(t, m.notice)
	assert.Equal(t, model.SeverityError, m.notice.Severity)
	assert.Nil(t, ctrl.Snapshot().Goals.TargetTraffic)
}

func TestModel_GlobalKeys(t *testing.T) {
	m, _ := newTestModel(t)
	m = settle(t, m, m.Init())

	m = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Equal(t, ViewHelp, m.currentView)
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewBoard, m.currentView)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Equal(t, ViewGoals, m.currentView)

	// Keys typed into a form are not treated as shortcuts.
	m = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Equal(t, ViewGoals, m.currentView)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestExecuteCommand(t *testing.T) {
	m, _ := newTestModel(t)
	m = settle(t, m, m.Init())

	m.executeCommand("goals")
	assert.Equal(t, ViewGoals, m.currentView)

	m.currentView = ViewBoard
	assert.Nil(t, m.executeCommand("edit"))
	assert.Equal(t, ViewBoard, m.currentView)

	assert.Nil(t, m.executeCommand("unknown"))
}

func TestGoalsSummary(t *testing.T) {
	assert.Equal(t, "goals not set", goalsSummary(model.Goals{}))

	traffic := 1200
	assert.Equal(t, "traffic 1200 · conversion -", goalsSummary(model.Goals{TargetTraffic: &traffic}))
}

func TestModel_BoardIsReadOnlyDuringReload(t *testing.T) {
	m, ctrl := newTestModel(t)
	m = settle(t, m, m.Init())

	next, reloadCmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m = next.(Model)
	require.NotNil(t, reloadCmd)
	assert.True(t, m.loading)

	// A second reload while one is in flight is not issued.
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	assert.Nil(t, cmd)

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Equal(t, ViewBoard, m.currentView)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Equal(t, ViewBoard, m.currentView)

	m = step(t, m, kanban.AddRequestMsg{Column: model.ColumnTodo})
	assert.Equal(t, ViewBoard, m.currentView)

	assert.Nil(t, m.executeCommand("add"))
	assert.Nil(t, m.executeCommand("goals"))
	assert.Equal(t, ViewBoard, m.currentView)
	assert.Contains(t, m.View(), "Loading board...")

	m = settle(t, m, reloadCmd)
	assert.False(t, m.loading)
	assert.False(t, ctrl.Snapshot().Loading)

	m = step(t, m, kanban.AddRequestMsg{Column: model.ColumnTodo})
	assert.Equal(t, ViewTaskAdd, m.currentView)
}
