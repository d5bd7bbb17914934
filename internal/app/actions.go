package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/lecture-board/internal/board"
	"github.com/nhle/lecture-board/internal/model"
)

// boardResultMsg is sent after a controller operation finishes. The
// board is re-read from the controller when it arrives.
type boardResultMsg struct {
	op  string
	err error
}

// clearNoticeMsg hides the notice with the matching sequence number.
type clearNoticeMsg struct {
	seq int
}

// opLoad names the load operation in a boardResultMsg.
const opLoad = "load"

// noticeTTL is how long a notice stays in the status bar.
const noticeTTL = 4 * time.Second

// run executes fn against the controller with the configured timeout.
func (m Model) run(op string, fn func(ctx context.Context, c *board.Controller) error) tea.Cmd {
	c := m.ctrl
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return boardResultMsg{op: op, err: fn(ctx, c)}
	}
}

// loadBoard reads every task and the goals from the store.
func (m Model) loadBoard() tea.Cmd {
	return m.run(opLoad, func(ctx context.Context, c *board.Controller) error {
		return c.Load(ctx)
	})
}

func (m Model) addTask(column model.ColumnID, title string) tea.Cmd {
	return m.run("add", func(ctx context.Context, c *board.Controller) error {
		return c.AddTask(ctx, column, title)
	})
}

func (m Model) editTask(id string, edit board.TaskEdit) tea.Cmd {
	return m.run("edit", func(ctx context.Context, c *board.Controller) error {
		return c.EditTask(ctx, id, edit)
	})
}

func (m Model) deleteTask(id string) tea.Cmd {
	return m.run("delete", func(ctx context.Context, c *board.Controller) error {
		return c.DeleteTask(ctx, id)
	})
}

func (m Model) moveTask(id string, from, to model.ColumnID) tea.Cmd {
	return m.run("move", func(ctx context.Context, c *board.Controller) error {
		return c.MoveTask(ctx, id, from, to)
	})
}

// saveGoals stores the goal targets. A store failure has already been
// reported as a notice and the targets are kept in memory, so only
// validation errors are passed on.
func (m Model) saveGoals(traffic, conversion *int) tea.Cmd {
	return m.run("goals", func(ctx context.Context, c *board.Controller) error {
		_, err := c.SaveGoals(ctx, traffic, conversion)
		if errors.Is(err, board.ErrNegativeGoal) {
			return err
		}
		return nil
	})
}

// scheduleClear hides the current notice after noticeTTL.
func scheduleClear(seq int) tea.Cmd {
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}
