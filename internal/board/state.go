package board

import (
	log "github.com/sirupsen/logrus"

	"github.com/nhle/lecture-board/internal/model"
)

// State is an immutable view of the board. Every With* method returns a
// new State and leaves the receiver untouched, so a State handed out by
// Snapshot can be read without holding any lock.
type State struct {
	// Columns are always the four board columns in display order.
	Columns []model.Column

	Goals model.Goals

	// Loading is set while the initial load is in flight.
	Loading bool
}

// NewState returns an empty board whose columns use titles, falling back
// to the default label for any column titles does not name.
func NewState(titles map[model.ColumnID]string) State {
	cols := make([]model.Column, len(model.ColumnIDs))
	for i, id := range model.ColumnIDs {
		title := titles[id]
		if title == "" {
			title = model.DefaultColumnTitles[id]
		}
		cols[i] = model.Column{ID: id, Title: title, Tasks: []model.Task{}}
	}
	return State{Columns: cols}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{Goals: cloneGoals(s.Goals), Loading: s.Loading}
	out.Columns = make([]model.Column, len(s.Columns))
	for i, col := range s.Columns {
		tasks := make([]model.Task, len(col.Tasks))
		for j, t := range col.Tasks {
			tasks[j] = cloneTask(t)
		}
		out.Columns[i] = model.Column{ID: col.ID, Title: col.Title, Tasks: tasks}
	}
	return out
}

// Column returns the column with id.
func (s State) Column(id model.ColumnID) (model.Column, bool) {
	i := s.columnIndex(id)
	if i < 0 {
		return model.Column{}, false
	}
	return s.Columns[i], true
}

// FindTask returns the task with id and the column holding it.
func (s State) FindTask(id string) (model.Task, model.ColumnID, bool) {
	for _, col := range s.Columns {
		for _, t := range col.Tasks {
			if t.ID == id {
				return t, col.ID, true
			}
		}
	}
	return model.Task{}, "", false
}

// TaskCount returns the number of tasks across all columns.
func (s State) TaskCount() int {
	n := 0
	for _, col := range s.Columns {
		n += len(col.Tasks)
	}
	return n
}

// WithTasks replaces every column's tasks by partitioning tasks on their
// ColumnID, preserving input order. Tasks naming an unknown column are
// left out of the board.
func (s State) WithTasks(tasks []model.Task) State {
	out := s.Clone()
	for i := range out.Columns {
		out.Columns[i].Tasks = []model.Task{}
	}
	for _, t := range tasks {
		i := out.columnIndex(t.ColumnID)
		if i < 0 {
			log.WithFields(log.Fields{
				"task_id":   t.ID,
				"column_id": t.ColumnID,
			}).Debug("dropping task with unknown column")
			continue
		}
		out.Columns[i].Tasks = append(out.Columns[i].Tasks, cloneTask(t))
	}
	return out
}

// WithAdded appends t to the tail of its column. A task naming an unknown
// column leaves the state unchanged.
func (s State) WithAdded(t model.Task) State {
	out := s.Clone()
	i := out.columnIndex(t.ColumnID)
	if i < 0 {
		return out
	}
	out.Columns[i].Tasks = append(out.Columns[i].Tasks, cloneTask(t))
	return out
}

// WithEdited replaces the task sharing t's ID wherever it lives. The
// stored ID and ColumnID are kept; everything else comes from t.
func (s State) WithEdited(t model.Task) State {
	out := s.Clone()
	for i := range out.Columns {
		for j, cur := range out.Columns[i].Tasks {
			if cur.ID != t.ID {
				continue
			}
			edited := cloneTask(t)
			edited.ID = cur.ID
			edited.ColumnID = cur.ColumnID
			out.Columns[i].Tasks[j] = edited
		}
	}
	return out
}

// WithDeleted removes the task with id from whichever column holds it.
func (s State) WithDeleted(id string) State {
	out := s.Clone()
	for i := range out.Columns {
		out.Columns[i].Tasks = removeTask(out.Columns[i].Tasks, id)
	}
	return out
}

// WithMoved moves the task with id from the from column to the tail of the
// to column and sets its ColumnID. It reports false, returning s
// unchanged, when from does not hold the task or either column is unknown.
func (s State) WithMoved(id string, from, to model.ColumnID) (State, bool) {
	if from == to {
		return s, false
	}
	fi, ti := s.columnIndex(from), s.columnIndex(to)
	if fi < 0 || ti < 0 {
		return s, false
	}

	var (
		task  model.Task
		found bool
	)
	for _, t := range s.Columns[fi].Tasks {
		if t.ID == id {
			task, found = t, true
			break
		}
	}
	if !found {
		return s, false
	}

	out := s.Clone()
	out.Columns[fi].Tasks = removeTask(out.Columns[fi].Tasks, id)
	moved := cloneTask(task)
	moved.ColumnID = to
	out.Columns[ti].Tasks = append(out.Columns[ti].Tasks, moved)
	return out, true
}

// WithGoals replaces the goals.
func (s State) WithGoals(g model.Goals) State {
	out := s.Clone()
	out.Goals = cloneGoals(g)
	return out
}

// WithLoading sets the loading flag.
func (s State) WithLoading(loading bool) State {
	out := s.Clone()
	out.Loading = loading
	return out
}

func (s State) columnIndex(id model.ColumnID) int {
	for i, col := range s.Columns {
		if col.ID == id {
			return i
		}
	}
	return -1
}

func removeTask(tasks []model.Task, id string) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func cloneTask(t model.Task) model.Task {
	if t.Deadline != nil {
		d := *t.Deadline
		t.Deadline = &d
	}
	if t.Assignee != nil {
		a := *t.Assignee
		t.Assignee = &a
	}
	return t
}

func cloneGoals(g model.Goals) model.Goals {
	if g.TargetTraffic != nil {
		g.TargetTraffic = model.IntPtr(*g.TargetTraffic)
	}
	if g.TargetConversion != nil {
		g.TargetConversion = model.IntPtr(*g.TargetConversion)
	}
	return g
}
