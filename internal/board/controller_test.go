package board

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lecture-board/internal/model"
	"github.com/nhle/lecture-board/internal/store"
)

func newTestController(t *testing.T) (*Controller, *fakeClient, *NoticeBuffer) {
	t.Helper()
	client := newFakeClient()
	notices := &NoticeBuffer{}
	return NewController(client, notices, nil), client, notices
}

func taskRow(id, title string, col model.ColumnID) store.Row {
	return store.Row{
		"id":          id,
		"title":       title,
		"description": "",
		"column_id":   string(col),
		"deadline":    nil,
		"assignee":    nil,
	}
}

func columnTaskIDs(s State, id model.ColumnID) []string {
	col, _ := s.Column(id)
	ids := make([]string, len(col.Tasks))
	for i, t := range col.Tasks {
		ids[i] = t.ID
	}
	return ids
}

// assertExclusive checks every task sits in exactly one column, the one
// matching its ColumnID.
func assertExclusive(t *testing.T, s State) {
	t.Helper()
	seen := map[string]model.ColumnID{}
	for _, col := range s.Columns {
		for _, task := range col.Tasks {
			prev, dup := seen[task.ID]
			assert.False(t, dup, "task %s in both %s and %s", task.ID, prev, col.ID)
			assert.Equal(t, col.ID, task.ColumnID, "task %s", task.ID)
			seen[task.ID] = col.ID
		}
	}
}

func loadedController(t *testing.T) (*Controller, *fakeClient, *NoticeBuffer) {
	t.Helper()
	c, client, notices := newTestController(t)
	client.seed(store.TableTasks,
		taskRow("a", "Outline", model.ColumnTodo),
		taskRow("b", "Slides", model.ColumnTodo),
		taskRow("c", "Recording", model.ColumnDoing),
		taskRow("d", "Venue", model.ColumnAgenda),
	)
	require.NoError(t, c.Load(context.Background()))
	notices.Drain()
	return c, client, notices
}

func TestLoadPartitionsTasks(t *testing.T) {
	c, client, _ := newTestController(t)
	client.seed(store.TableTasks,
		taskRow("a", "Outline", model.ColumnTodo),
		taskRow("b", "Recording", model.ColumnDoing),
		taskRow("x", "Stray", model.ColumnID("archive")),
		taskRow("c", "Slides", model.ColumnTodo),
	)
	client.seed(store.TableGoals, store.Row{
		"id": "g", "target_traffic": int64(1200), "target_conversion": nil,
	})

	require.NoError(t, c.Load(context.Background()))

	s := c.Snapshot()
	assert.False(t, s.Loading)
	assert.Equal(t, []string{"a", "c"}, columnTaskIDs(s, model.ColumnTodo))
	assert.Equal(t, []string{"b"}, columnTaskIDs(s, model.ColumnDoing))
	assert.Empty(t, columnTaskIDs(s, model.ColumnDone))
	assert.Empty(t, columnTaskIDs(s, model.ColumnAgenda))
	assert.Equal(t, 3, s.TaskCount())
	assertExclusive(t, s)

	require.NotNil(t, s.Goals.TargetTraffic)
	assert.Equal(t, 1200, *s.Goals.TargetTraffic)
	assert.Nil(t, s.Goals.TargetConversion)
}

func TestLoadTasksFailure(t *testing.T) {
	c, client, notices := newTestController(t)
	client.failOn(store.TableTasks, "select", errConnection)

	err := c.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errConnection)

	s := c.Snapshot()
	assert.False(t, s.Loading)
	assert.Zero(t, s.TaskCount())

	got := notices.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, model.SeverityError, got[0].Severity)
}

func TestLoadSkipsUndecodableRows(t *testing.T) {
	c, client, notices := newTestController(t)
	bad := taskRow("b", "Broken", model.ColumnTodo)
	bad["deadline"] = "next tuesday"
	client.seed(store.TableTasks,
		taskRow("a", "Outline", model.ColumnTodo),
		bad,
		taskRow("c", "Slides", model.ColumnTodo),
	)

	require.NoError(t, c.Load(context.Background()))

	s := c.Snapshot()
	assert.Equal(t, []string{"a", "c"}, columnTaskIDs(s, model.ColumnTodo))
	assert.Empty(t, notices.Drain())
}

func TestAddTask(t *testing.T) {
	c, client, notices := loadedController(t)

	require.NoError(t, c.AddTask(context.Background(), model.ColumnDone, "Publish"))

	calls := client.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, "insert", last.Op)
	assert.Equal(t, store.Row{"title": "Publish", "description": "", "column_id": "done"}, last.Row)

	s := c.Snapshot()
	col, _ := s.Column(model.ColumnDone)
	require.Len(t, col.Tasks, 1)
	assert.Equal(t, "Publish", col.Tasks[0].Title)
	assert.NotEmpty(t, col.Tasks[0].ID)
	assertExclusive(t, s)

	got := notices.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, model.SeveritySuccess, got[0].Severity)
}

func TestAddTaskBlankTitle(t *testing.T) {
	c, client, notices := loadedController(t)
	before := c.Snapshot()
	callsBefore := len(client.Calls())

	for _, title := range []string{"", "   ", "\t\n"} {
		require.NoError(t, c.AddTask(context.Background(), model.ColumnTodo, title))
	}

	assert.Len(t, client.Calls(), callsBefore, "blank titles must not reach the store")
	assert.Equal(t, before, c.Snapshot())
	assert.Empty(t, notices.Drain())
}

func TestAddTaskUnknownColumn(t *testing.T) {
	c, client, _ := loadedController(t)
	callsBefore := len(client.Calls())

	err := c.AddTask(context.Background(), model.ColumnID("backlog"), "Publish")
	assert.ErrorIs(t, err, ErrUnknownColumn)
	assert.Len(t, client.Calls(), callsBefore)
}

func TestAddTaskStoreFailure(t *testing.T) {
	c, client, notices := loadedController(t)
	client.failOn(store.TableTasks, "insert", errConnection)
	before := c.Snapshot()

	err := c.AddTask(context.Background(), model.ColumnTodo, "Publish")
	require.Error(t, err)
	assert.Equal(t, before, c.Snapshot())

	got := notices.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, model.SeverityError, got[0].Severity)
}

func TestMoveTaskSameColumn(t *testing.T) {
	c, client, notices := loadedController(t)
	before := c.Snapshot()
	callsBefore := len(client.Calls())

	require.NoError(t, c.MoveTask(context.Background(), "a", model.ColumnTodo, model.ColumnTodo))

	assert.Equal(t, before, c.Snapshot())
	assert.Len(t, client.Calls(), callsBefore)
	assert.Empty(t, notices.Drain())
}

func TestMoveTaskAppendsToTail(t *testing.T) {
	c, client, _ := loadedController(t)

	require.NoError(t, c.MoveTask(context.Background(), "a", model.ColumnTodo, model.ColumnDoing))

	calls := client.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, storeCall{
		Table: store.TableTasks, Op: "update", ID: "a",
		Row: store.Row{"column_id": "doing"},
	}, last)

	s := c.Snapshot()
	assert.Equal(t, []string{"b"}, columnTaskIDs(s, model.ColumnTodo))
	assert.Equal(t, []string{"c", "a"}, columnTaskIDs(s, model.ColumnDoing))

	task, col, ok := s.FindTask("a")
	require.True(t, ok)
	assert.Equal(t, model.ColumnDoing, col)
	assert.Equal(t, model.ColumnDoing, task.ColumnID)
	assertExclusive(t, s)
}

func TestMoveTaskNotInSourceColumn(t *testing.T) {
	c, client, _ := loadedController(t)
	before := c.Snapshot()

	// "c" lives in doing, not todo: the store is updated but the board
	// is left alone.
	require.NoError(t, c.MoveTask(context.Background(), "c", model.ColumnTodo, model.ColumnDone))

	calls := client.Calls()
	assert.Equal(t, "update", calls[len(calls)-1].Op)
	assert.Equal(t, before, c.Snapshot())
}

func TestMoveTaskStoreFailure(t *testing.T) {
	c, client, notices := loadedController(t)
	client.failOn(store.TableTasks, "update", errConnection)
	before := c.Snapshot()

	err := c.MoveTask(context.Background(), "a", model.ColumnTodo, model.ColumnDone)
	require.Error(t, err)
	assert.Equal(t, before, c.Snapshot())
	assert.Len(t, notices.Drain(), 1)
}

func TestMoveTaskUnknownColumn(t *testing.T) {
	c, _, _ := loadedController(t)
	err := c.MoveTask(context.Background(), "a", model.ColumnTodo, model.ColumnID("trash"))
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestDeleteTaskTouchesOnlyOwningColumn(t *testing.T) {
	c, client, notices := loadedController(t)
	before := c.Snapshot()

	require.NoError(t, c.DeleteTask(context.Background(), "b"))

	calls := client.Calls()
	assert.Equal(t, storeCall{Table: store.TableTasks, Op: "delete", ID: "b"}, calls[len(calls)-1])

	after := c.Snapshot()
	assert.Equal(t, []string{"a"}, columnTaskIDs(after, model.ColumnTodo))
	for _, id := range []model.ColumnID{model.ColumnDoing, model.ColumnDone, model.ColumnAgenda} {
		want, _ := before.Column(id)
		got, _ := after.Column(id)
		assert.Equal(t, want, got, "column %s", id)
	}

	got := notices.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, model.SeveritySuccess, got[0].Severity)
}

func TestDeleteTaskStoreFailure(t *testing.T) {
	c, client, _ := loadedController(t)
	client.failOn(store.TableTasks, "delete", errConnection)
	before := c.Snapshot()

	require.Error(t, c.DeleteTask(context.Background(), "b"))
	assert.Equal(t, before, c.Snapshot())
}

func TestEditTaskPreservesIdentity(t *testing.T) {
	c, client, _ := loadedController(t)
	deadline := time.Date(2024, 1, 20, 0, 0, 0, 0, time.FixedZone("KST", 9*60*60))

	require.NoError(t, c.EditTask(context.Background(), "c", TaskEdit{
		Title:       "Record lecture 1",
		Description: "Studio B",
		Assignee:    "Park",
		Deadline:    &deadline,
	}))

	calls := client.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, "update", last.Op)
	assert.Equal(t, "c", last.ID)
	assert.Equal(t, store.Row{
		"title":       "Record lecture 1",
		"description": "Studio B",
		"assignee":    "Park",
		"deadline":    deadline.UTC(),
	}, last.Row)

	s := c.Snapshot()
	task, col, ok := s.FindTask("c")
	require.True(t, ok)
	assert.Equal(t, model.ColumnDoing, col)
	assert.Equal(t, "c", task.ID)
	assert.Equal(t, model.ColumnDoing, task.ColumnID)
	assert.Equal(t, "Record lecture 1", task.Title)
	assert.Equal(t, "Studio B", task.Description)
	assert.Equal(t, "Park", task.AssigneeName())
	require.NotNil(t, task.Deadline)
	assert.True(t, task.Deadline.Equal(deadline))
	assertExclusive(t, s)
}

func TestEditTaskClearsOptionalFields(t *testing.T) {
	c, client, _ := loadedController(t)
	deadline := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.EditTask(context.Background(), "a", TaskEdit{
		Title: "Outline", Assignee: "Kim", Deadline: &deadline,
	}))

	require.NoError(t, c.EditTask(context.Background(), "a", TaskEdit{Title: "Outline v2"}))

	calls := client.Calls()
	last := calls[len(calls)-1]
	assert.Nil(t, last.Row["assignee"])
	assert.Nil(t, last.Row["deadline"])
	assert.Equal(t, "", last.Row["description"])

	task, _, ok := c.Snapshot().FindTask("a")
	require.True(t, ok)
	assert.Nil(t, task.Assignee)
	assert.Nil(t, task.Deadline)
	assert.Equal(t, "", task.Description)
}

func TestEditTaskBlankTitle(t *testing.T) {
	c, client, _ := loadedController(t)
	callsBefore := len(client.Calls())

	err := c.EditTask(context.Background(), "a", TaskEdit{Title: "  "})
	assert.ErrorIs(t, err, ErrEmptyTitle)
	assert.Len(t, client.Calls(), callsBefore)
}

func TestEditTaskStoreFailure(t *testing.T) {
	c, client, notices := loadedController(t)
	client.failOn(store.TableTasks, "update", errConnection)
	before := c.Snapshot()

	require.Error(t, c.EditTask(context.Background(), "a", TaskEdit{Title: "New"}))
	assert.Equal(t, before, c.Snapshot())
	assert.Equal(t, model.SeverityError, notices.Drain()[0].Severity)
}

func TestGoalsRelationMissing(t *testing.T) {
	c, client, notices := newTestController(t)
	client.failOn(store.TableGoals, "select", errRelationMissing)
	client.failOn(store.TableGoals, "insert", errRelationMissing)

	require.NoError(t, c.Load(context.Background()))
	s := c.Snapshot()
	assert.Nil(t, s.Goals.TargetTraffic)
	assert.Nil(t, s.Goals.TargetConversion)
	assert.Empty(t, notices.Drain())

	outcome, err := c.SaveGoals(context.Background(), model.IntPtr(100), model.IntPtr(5))
	require.NoError(t, err)
	assert.Equal(t, GoalsLocalOnly, outcome)

	s = c.Snapshot()
	require.NotNil(t, s.Goals.TargetTraffic)
	require.NotNil(t, s.Goals.TargetConversion)
	assert.Equal(t, 100, *s.Goals.TargetTraffic)
	assert.Equal(t, 5, *s.Goals.TargetConversion)

	got := notices.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, model.SeverityWarning, got[0].Severity)
}

func TestLoadGoalsOtherFailure(t *testing.T) {
	c, client, notices := newTestController(t)
	client.failOn(store.TableGoals, "select", errConnection)

	require.NoError(t, c.Load(context.Background()))
	s := c.Snapshot()
	assert.Nil(t, s.Goals.TargetTraffic)
	assert.Nil(t, s.Goals.TargetConversion)
	assert.Empty(t, notices.Drain())
}

func TestSaveGoalsInsertThenUpdate(t *testing.T) {
	c, client, notices := newTestController(t)

	outcome, err := c.SaveGoals(context.Background(), model.IntPtr(100), nil)
	require.NoError(t, err)
	assert.Equal(t, GoalsSaved, outcome)

	outcome, err = c.SaveGoals(context.Background(), model.IntPtr(150), model.IntPtr(3))
	require.NoError(t, err)
	assert.Equal(t, GoalsSaved, outcome)

	var ops []string
	for _, call := range client.Calls() {
		ops = append(ops, call.Op)
	}
	assert.Equal(t, []string{"select", "insert", "select", "update"}, ops)

	calls := client.Calls()
	assert.Equal(t, "goals-1", calls[3].ID)

	s := c.Snapshot()
	assert.Equal(t, 150, *s.Goals.TargetTraffic)
	assert.Equal(t, 3, *s.Goals.TargetConversion)

	got := notices.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, model.SeveritySuccess, got[1].Severity)
}

func TestSaveGoalsStoreFailureKeepsValues(t *testing.T) {
	c, client, notices := newTestController(t)
	client.failOn(store.TableGoals, "insert", errConnection)

	outcome, err := c.SaveGoals(context.Background(), model.IntPtr(10), model.IntPtr(2))
	require.Error(t, err)
	assert.Equal(t, GoalsUnsaved, outcome)

	s := c.Snapshot()
	assert.Equal(t, 10, *s.Goals.TargetTraffic)
	assert.Equal(t, 2, *s.Goals.TargetConversion)

	got := notices.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, model.SeverityWarning, got[0].Severity)
}

func TestSaveGoalsRejectsNegative(t *testing.T) {
	c, client, _ := newTestController(t)

	_, err := c.SaveGoals(context.Background(), model.IntPtr(-1), nil)
	assert.ErrorIs(t, err, ErrNegativeGoal)
	assert.Empty(t, client.Calls())
	assert.Nil(t, c.Snapshot().Goals.TargetTraffic)
}

func TestSnapshotIsIndependent(t *testing.T) {
	c, _, _ := loadedController(t)

	s := c.Snapshot()
	s.Columns[0].Tasks[0].Title = "mutated"
	s.Columns[0].Tasks = nil

	fresh := c.Snapshot()
	assert.Equal(t, []string{"a", "b"}, columnTaskIDs(fresh, model.ColumnTodo))
	assert.Equal(t, "Outline", fresh.Columns[0].Tasks[0].Title)
}

func TestColumnExclusivityUnderRandomOperations(t *testing.T) {
	c, _, _ := loadedController(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 300; i++ {
		s := c.Snapshot()
		col := model.ColumnIDs[rng.Intn(len(model.ColumnIDs))]

		var ids []string
		for _, column := range s.Columns {
			for _, task := range column.Tasks {
				ids = append(ids, task.ID)
			}
		}

		switch op := rng.Intn(4); {
		case op == 0 || len(ids) == 0:
			require.NoError(t, c.AddTask(ctx, col, "task"))
		case op == 1:
			id := ids[rng.Intn(len(ids))]
			_, from, _ := s.FindTask(id)
			require.NoError(t, c.MoveTask(ctx, id, from, col))
		case op == 2:
			// Stale source column: must never duplicate the task.
			id := ids[rng.Intn(len(ids))]
			require.NoError(t, c.MoveTask(ctx, id, model.ColumnTodo, col))
		default:
			require.NoError(t, c.DeleteTask(ctx, ids[rng.Intn(len(ids))]))
		}

		assertExclusive(t, c.Snapshot())
	}
}
