package app

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/lecture-board/internal/board"
	"github.com/nhle/lecture-board/internal/keys"
	"github.com/nhle/lecture-board/internal/model"
	"github.com/nhle/lecture-board/internal/ui"
	"github.com/nhle/lecture-board/internal/ui/command"
	"github.com/nhle/lecture-board/internal/ui/confirm"
	"github.com/nhle/lecture-board/internal/ui/detail"
	"github.com/nhle/lecture-board/internal/ui/goalsform"
	helpview "github.com/nhle/lecture-board/internal/ui/help"
	"github.com/nhle/lecture-board/internal/ui/kanban"
	"github.com/nhle/lecture-board/internal/ui/taskform"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
	ViewTaskAdd
	ViewTaskEdit
	ViewGoals
	ViewConfirmDelete
)

// Model is the root Bubble Tea model that manages view routing, layout,
// and the board controller.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	ctrl         *board.Controller
	notices      *board.NoticeBuffer
	cfg          *model.AppConfig
	timeout      time.Duration
	keys         *keys.KeyMap
	board        kanban.Model
	detail       detail.Model
	helpView     helpview.Model
	commandView  command.Model
	taskForm     taskform.Model
	goalsForm    goalsform.Model
	confirmView  confirm.Model
	notice       *model.Notice
	noticeSeq    int
	loading      bool
	ready        bool
}

// New creates the root application model. notices must be the notifier
// ctrl was created with so the model can surface what it reports.
func New(ctrl *board.Controller, notices *board.NoticeBuffer, cfg *model.AppConfig) Model {
	k := keys.DefaultKeyMap()

	timeout := time.Duration(cfg.Store.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	b := kanban.New(k, 80, 24)
	b.SetState(ctrl.Snapshot().WithLoading(true))

	return Model{
		currentView: ViewBoard,
		ctrl:        ctrl,
		notices:     notices,
		cfg:         cfg,
		timeout:     timeout,
		keys:        k,
		board:       b,
		detail:      detail.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		taskForm:    taskform.New(80, 24),
		goalsForm:   goalsform.New(80, 24),
		confirmView: confirm.New(80),
		loading:     true,
	}
}

// Init starts the initial load of the board.
func (m Model) Init() tea.Cmd {
	return m.loadBoard()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.board.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.taskForm.SetSize(contentWidth, contentHeight)
		m.goalsForm.SetSize(contentWidth, contentHeight)
		m.confirmView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case boardResultMsg:
		if msg.err != nil {
			log.WithError(msg.err).WithField("op", msg.op).Warn("board operation failed")
		}
		if msg.op == opLoad {
			m.loading = false
		}
		return m, m.refresh(msg.err)

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case kanban.AddRequestMsg:
		if m.loading {
			return m, nil
		}
		return m, m.openAdd(msg.Column)

	case kanban.EditRequestMsg:
		if m.loading {
			return m, nil
		}
		return m, m.openEdit(msg.Task)

	case kanban.DeleteRequestMsg:
		if m.loading {
			return m, nil
		}
		return m, m.openDelete(msg.Task)

	case kanban.OpenRequestMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetTask(msg.Task, m.cfg.ColumnTitle(msg.Task.ColumnID))
		return m, nil

	case kanban.MoveRequestMsg:
		if m.loading {
			return m, nil
		}
		return m, m.moveTask(msg.TaskID, msg.From, msg.To)

	case detail.BackMsg:
		m.currentView = ViewBoard
		m.detail.Clear()
		return m, nil

	case detail.ActionMsg:
		if m.loading {
			return m, nil
		}
		switch msg.Action {
		case "edit":
			return m, m.openEdit(msg.Task)
		case "delete":
			return m, m.openDelete(msg.Task)
		}
		return m, nil

	case taskform.AddSubmittedMsg:
		m.currentView = ViewBoard
		return m, m.addTask(msg.Column, msg.Title)

	case taskform.EditSubmittedMsg:
		m.currentView = ViewBoard
		m.detail.Clear()
		return m, m.editTask(msg.TaskID, msg.Edit)

	case taskform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case goalsform.SubmittedMsg:
		m.currentView = ViewBoard
		return m, m.saveGoals(msg.Traffic, msg.Conversion)

	case goalsform.CancelMsg:
		m.currentView = ViewBoard
		return m, nil

	case confirm.ResultMsg:
		m.currentView = ViewBoard
		m.detail.Clear()
		if !msg.Confirmed {
			return m, nil
		}
		return m, m.deleteTask(msg.ID)

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.inForm() {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.currentView == ViewBoard && !m.board.Grabbing() {
				return m, tea.Quit
			}

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case key.Matches(msg, m.keys.Command):
			if m.currentView == ViewCommand {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewCommand
			return m, m.commandView.Focus()

		case key.Matches(msg, m.keys.Back):
			if m.currentView == ViewHelp || m.currentView == ViewCommand {
				m.currentView = m.previousView
				return m, nil
			}

		case key.Matches(msg, m.keys.Goals):
			if m.currentView == ViewBoard && !m.board.Grabbing() {
				if m.loading {
					return m, nil
				}
				return m, m.openGoals()
			}

		case key.Matches(msg, m.keys.Reload):
			if m.currentView == ViewBoard && !m.board.Grabbing() {
				return m, m.reload()
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// inForm reports whether a view that consumes raw keystrokes is active.
func (m Model) inForm() bool {
	switch m.currentView {
	case ViewCommand, ViewTaskAdd, ViewTaskEdit, ViewGoals, ViewConfirmDelete:
		return true
	}
	return false
}

// reload starts a fresh load of the board. The board stays read-only until
// the load finishes so nothing applied meanwhile is overwritten by it.
func (m *Model) reload() tea.Cmd {
	if m.loading {
		return nil
	}
	m.loading = true
	m.board.SetState(m.ctrl.Snapshot().WithLoading(true))
	return m.loadBoard()
}

// refresh re-reads the board from the controller and surfaces the latest
// notice.
func (m *Model) refresh(err error) tea.Cmd {
	snap := m.ctrl.Snapshot()
	m.board.SetState(snap.WithLoading(snap.Loading || m.loading))

	pending := m.notices.Drain()
	if len(pending) == 0 {
		if err == nil {
			return nil
		}
		// Validation errors carry no notice of their own.
		pending = []model.Notice{{Severity: model.SeverityError, Title: "Error", Message: err.Error()}}
	}

	n := pending[len(pending)-1]
	m.notice = &n
	m.noticeSeq++
	return scheduleClear(m.noticeSeq)
}

func (m *Model) openAdd(column model.ColumnID) tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewTaskAdd
	return m.taskForm.StartAdd(column, m.cfg.ColumnTitle(column))
}

func (m *Model) openEdit(task model.Task) tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewTaskEdit
	return m.taskForm.StartEdit(task)
}

func (m *Model) openDelete(task model.Task) tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewConfirmDelete
	return m.confirmView.Ask(task.ID, "Delete this task?", task.Title)
}

func (m *Model) openGoals() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewGoals
	return m.goalsForm.Start(m.ctrl.Snapshot().Goals)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBoard:
		m.board, cmd = m.board.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskAdd, ViewTaskEdit:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewGoals:
		m.goalsForm, cmd = m.goalsForm.Update(msg)
	case ViewConfirmDelete:
		m.confirmView, cmd = m.confirmView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Lecture Board", goalsSummary(m.ctrl.Snapshot().Goals))
	content := m.renderContent()

	statusBar := m.layout.RenderStatusBar(m.keyHints())
	if m.notice != nil {
		statusBar = m.layout.RenderNotice(*m.notice)
	}

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBoard:
		return m.board.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewTaskAdd, ViewTaskEdit:
		return m.taskForm.View()
	case ViewGoals:
		return m.goalsForm.View()
	case ViewConfirmDelete:
		return m.confirmView.View()
	default:
		return ""
	}
}

// goalsSummary renders the goal targets for the header.
func goalsSummary(g model.Goals) string {
	if g.TargetTraffic == nil && g.TargetConversion == nil {
		return "goals not set"
	}
	return fmt.Sprintf("traffic %s · conversion %s",
		targetText(g.TargetTraffic), targetText(g.TargetConversion))
}

func targetText(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return ": close command | enter execute | esc back"
	case ViewDetail:
		return "esc back | e edit | d delete | j/k scroll"
	case ViewTaskAdd, ViewTaskEdit, ViewGoals:
		return "enter submit | esc cancel"
	case ViewConfirmDelete:
		return "←/→ choose | enter confirm | esc cancel"
	default:
		if m.board.Grabbing() {
			return "h/l choose column | space drop | esc cancel"
		}
		return "q quit | ? help | a add | e edit | d delete | space move | g goals | r reload"
	}
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "add", "new", "edit", "delete", "goals":
		if m.loading {
			return nil
		}
	}

	switch cmd {
	case "reload", "refresh":
		return m.reload()
	case "add", "new":
		return m.openAdd(m.board.FocusedColumn())
	case "edit":
		if t, ok := m.board.Selected(); ok {
			return m.openEdit(t)
		}
		return nil
	case "delete":
		if t, ok := m.board.Selected(); ok {
			return m.openDelete(t)
		}
		return nil
	case "goals":
		return m.openGoals()
	case "help":
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil
	case "quit", "q":
		return tea.Quit
	default:
		return nil
	}
}
