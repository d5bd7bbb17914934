package board

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/lecture-board/internal/model"
	"github.com/nhle/lecture-board/internal/store"
)

// GoalsOutcome reports where a SaveGoals call left the goal targets.
type GoalsOutcome int

const (
	// GoalsSaved means the targets were written to the store.
	GoalsSaved GoalsOutcome = iota

	// GoalsLocalOnly means the store has no goals table; the targets only
	// live in memory.
	GoalsLocalOnly

	// GoalsUnsaved means the write failed; the targets only live in
	// memory and the store still holds the previous values.
	GoalsUnsaved
)

func (o GoalsOutcome) String() string {
	switch o {
	case GoalsSaved:
		return "saved"
	case GoalsLocalOnly:
		return "local-only"
	default:
		return "unsaved"
	}
}

// TaskEdit carries the editable fields of a task.
type TaskEdit struct {
	Title       string
	Description string

	// Assignee is stored as NULL when blank.
	Assignee string

	// Deadline is stored as an absolute UTC timestamp, or NULL when nil.
	Deadline *time.Time
}

// Controller owns the in-memory board and keeps it in step with the store.
// Store calls run outside the lock; results are applied to the state as
// pure transitions under it. A failed call leaves the state untouched.
type Controller struct {
	client   store.Client
	notifier Notifier

	mu    sync.Mutex
	state State
}

// NewController creates a controller over client. notifier may be nil.
// titles overrides column labels by id.
func NewController(client store.Client, notifier Notifier, titles map[model.ColumnID]string) *Controller {
	if notifier == nil {
		notifier = NotifierFunc(func(model.Notice) {})
	}
	return &Controller{
		client:   client,
		notifier: notifier,
		state:    NewState(titles),
	}
}

// Snapshot returns a deep copy of the current board.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

func (c *Controller) apply(fn func(State) State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = fn(c.state)
}

func (c *Controller) notify(n model.Notice) {
	entry := log.WithField("title", n.Title)
	switch n.Severity {
	case model.SeverityError:
		entry.Error(n.Message)
	case model.SeverityWarning:
		entry.Warn(n.Message)
	default:
		entry.Debug(n.Message)
	}
	c.notifier.Notify(n)
}

// Load reads every task, oldest first, and the most recent goals row. A
// missing goals table, or any goals failure, leaves both targets unset
// without reporting an error. A task failure is reported and returned.
func (c *Controller) Load(ctx context.Context) error {
	c.apply(func(s State) State { return s.WithLoading(true) })
	defer c.apply(func(s State) State { return s.WithLoading(false) })

	tasksErr := c.loadTasks(ctx)
	c.loadGoals(ctx)
	return tasksErr
}

func (c *Controller) loadTasks(ctx context.Context) error {
	rows, err := c.client.From(store.TableTasks).SelectAll(ctx, "created_at", true)
	if err != nil {
		c.notify(errorNotice("Failed to load tasks."))
		return fmt.Errorf("loading tasks: %w", err)
	}
	tasks := decodeTasks(rows)
	c.apply(func(s State) State { return s.WithTasks(tasks) })
	log.WithField("count", len(tasks)).Debug("loaded tasks")
	return nil
}

func (c *Controller) loadGoals(ctx context.Context) {
	rows, err := c.client.From(store.TableGoals).SelectLimited(ctx, 1, "created_at", true)
	if err != nil {
		if store.IsRelationMissing(err) {
			log.Info("goals table does not exist, using defaults")
		} else {
			log.WithError(err).Error("loading goals")
		}
		c.apply(func(s State) State { return s.WithGoals(model.Goals{}) })
		return
	}
	if len(rows) == 0 {
		return
	}

	goals, err := decodeGoals(rows[0])
	if err != nil {
		log.WithError(err).Error("loading goals")
		goals = model.Goals{}
	}
	c.apply(func(s State) State { return s.WithGoals(goals) })
}

// AddTask creates a task titled title at the tail of column. A blank
// title is ignored without touching the store.
func (c *Controller) AddTask(ctx context.Context, column model.ColumnID, title string) error {
	if strings.TrimSpace(title) == "" {
		return nil
	}
	if !column.Valid() {
		return fmt.Errorf("adding task to %q: %w", column, ErrUnknownColumn)
	}

	row, err := c.client.From(store.TableTasks).Insert(ctx, store.Row{
		"title":       title,
		"description": "",
		"column_id":   string(column),
	})
	if err != nil {
		c.notify(errorNotice("Failed to add task."))
		return fmt.Errorf("adding task: %w", err)
	}

	task, err := decodeTask(row)
	if err != nil {
		c.notify(errorNotice("Failed to add task."))
		return fmt.Errorf("adding task: %w", err)
	}
	if task.ColumnID == "" {
		task.ColumnID = column
	}

	c.apply(func(s State) State { return s.WithAdded(task) })
	log.WithFields(log.Fields{"task_id": task.ID, "column_id": column}).Info("task added")
	c.notify(successNotice("Task added."))
	return nil
}

// EditTask writes edit to the task with id and, on success, replaces the
// in-memory copy while keeping its id and column.
func (c *Controller) EditTask(ctx context.Context, id string, edit TaskEdit) error {
	if strings.TrimSpace(edit.Title) == "" {
		return fmt.Errorf("editing task %s: %w", id, ErrEmptyTitle)
	}

	var assignee *string
	if edit.Assignee != "" {
		a := edit.Assignee
		assignee = &a
	}
	var deadline *time.Time
	if edit.Deadline != nil {
		d := edit.Deadline.UTC()
		deadline = &d
	}

	fields := store.Row{
		"title":       edit.Title,
		"description": edit.Description,
		"assignee":    nil,
		"deadline":    nil,
	}
	if assignee != nil {
		fields["assignee"] = *assignee
	}
	if deadline != nil {
		fields["deadline"] = *deadline
	}

	if err := c.client.From(store.TableTasks).Update(ctx, id, fields); err != nil {
		c.notify(errorNotice("Failed to update task."))
		return fmt.Errorf("editing task %s: %w", id, err)
	}

	found := false
	c.apply(func(s State) State {
		cur, _, ok := s.FindTask(id)
		if !ok {
			return s
		}
		found = true
		cur.Title = edit.Title
		cur.Description = edit.Description
		cur.Assignee = assignee
		cur.Deadline = deadline
		return s.WithEdited(cur)
	})
	if !found {
		log.WithField("task_id", id).Debug("edited task not on board")
	}
	c.notify(successNotice("Task updated."))
	return nil
}

// DeleteTask removes the task with id from the store and the board.
func (c *Controller) DeleteTask(ctx context.Context, id string) error {
	if err := c.client.From(store.TableTasks).Delete(ctx, id); err != nil {
		c.notify(errorNotice("Failed to delete task."))
		return fmt.Errorf("deleting task %s: %w", id, err)
	}

	c.apply(func(s State) State { return s.WithDeleted(id) })
	log.WithField("task_id", id).Info("task deleted")
	c.notify(successNotice("Task deleted."))
	return nil
}

// MoveTask moves the task with id from one column to the tail of another.
// Moving within the same column does nothing. If from no longer holds the
// task once the store has been updated, the board is left as it is.
func (c *Controller) MoveTask(ctx context.Context, id string, from, to model.ColumnID) error {
	if from == to {
		return nil
	}
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("moving task %s from %q to %q: %w", id, from, to, ErrUnknownColumn)
	}

	err := c.client.From(store.TableTasks).Update(ctx, id, store.Row{"column_id": string(to)})
	if err != nil {
		c.notify(errorNotice("Failed to move task."))
		return fmt.Errorf("moving task %s: %w", id, err)
	}

	moved := false
	c.apply(func(s State) State {
		next, ok := s.WithMoved(id, from, to)
		moved = ok
		return next
	})
	if !moved {
		log.WithFields(log.Fields{"task_id": id, "from": from}).Debug("moved task not found in source column")
		return nil
	}
	log.WithFields(log.Fields{"task_id": id, "from": from, "to": to}).Info("task moved")
	return nil
}

// SaveGoals stores the goal targets, updating the existing goals row or
// creating one. The in-memory targets change whatever the store does:
// when the goals table is missing the outcome is GoalsLocalOnly, and on
// any other failure it is GoalsUnsaved with the store error returned.
// Negative targets are rejected before anything changes.
func (c *Controller) SaveGoals(ctx context.Context, traffic, conversion *int) (GoalsOutcome, error) {
	if (traffic != nil && *traffic < 0) || (conversion != nil && *conversion < 0) {
		return GoalsUnsaved, ErrNegativeGoal
	}

	goals := cloneGoals(model.Goals{TargetTraffic: traffic, TargetConversion: conversion})
	outcome, err := c.persistGoals(ctx, goals)
	c.apply(func(s State) State { return s.WithGoals(goals) })

	switch outcome {
	case GoalsSaved:
		c.notify(successNotice("Goals saved."))
	case GoalsLocalOnly:
		c.notify(model.Notice{
			Severity: model.SeverityWarning,
			Title:    "Notice",
			Message:  "Goals kept for this session only. Check the database setup.",
		})
	default:
		log.WithError(err).Error("saving goals")
		c.notify(model.Notice{
			Severity: model.SeverityWarning,
			Title:    "Warning",
			Message:  "Goals kept for this session only. Check the database connection.",
		})
		return outcome, fmt.Errorf("saving goals: %w", err)
	}
	return outcome, nil
}

func (c *Controller) persistGoals(ctx context.Context, goals model.Goals) (GoalsOutcome, error) {
	tbl := c.client.From(store.TableGoals)

	existing, err := tbl.SelectLimited(ctx, 1, "created_at", true)
	if err != nil {
		if store.IsRelationMissing(err) {
			log.Info("goals table does not exist, keeping goals in memory")
			return GoalsLocalOnly, nil
		}
		// Fall through to an insert, which reports the real failure.
		log.WithError(err).Warn("looking up goals row")
		existing = nil
	}

	fields := store.Row{
		"target_traffic":    goals.TargetTraffic,
		"target_conversion": goals.TargetConversion,
	}
	if len(existing) > 0 {
		id := fmt.Sprint(existing[0]["id"])
		err = tbl.Update(ctx, id, fields)
	} else {
		_, err = tbl.Insert(ctx, fields)
	}

	switch {
	case err == nil:
		return GoalsSaved, nil
	case store.IsRelationMissing(err):
		log.Info("goals table does not exist, keeping goals in memory")
		return GoalsLocalOnly, nil
	default:
		return GoalsUnsaved, err
	}
}
