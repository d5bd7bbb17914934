package board

import (
	"context"
	"fmt"
	"sync"

	"github.com/nhle/lecture-board/internal/store"
)

// storeCall records one Table method invocation.
type storeCall struct {
	Table string
	Op    string
	ID    string
	Row   store.Row
}

// fakeClient is an in-memory store.Client that records every call and can
// be told to fail specific operations.
type fakeClient struct {
	mu     sync.Mutex
	calls  []storeCall
	rows   map[string][]store.Row
	fail   map[string]error // keyed by "table.op"
	nextID int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		rows: map[string][]store.Row{},
		fail: map[string]error{},
	}
}

func (c *fakeClient) From(table string) store.Table { return &fakeTable{c: c, name: table} }
func (c *fakeClient) Close() error                  { return nil }

func (c *fakeClient) failOn(table, op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[table+"."+op] = err
}

func (c *fakeClient) seed(table string, rows ...store.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[table] = append(c.rows[table], rows...)
}

func (c *fakeClient) Calls() []storeCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]storeCall, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *fakeClient) record(table, op, id string, row store.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, storeCall{Table: table, Op: op, ID: id, Row: row})
	return c.fail[table+"."+op]
}

type fakeTable struct {
	c    *fakeClient
	name string
}

func (t *fakeTable) SelectAll(ctx context.Context, orderBy string, ascending bool) ([]store.Row, error) {
	if err := t.c.record(t.name, "select", "", nil); err != nil {
		return nil, err
	}
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return append([]store.Row(nil), t.c.rows[t.name]...), nil
}

func (t *fakeTable) SelectLimited(ctx context.Context, limit int, orderBy string, descending bool) ([]store.Row, error) {
	if err := t.c.record(t.name, "select", "", nil); err != nil {
		return nil, err
	}
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	rows := t.c.rows[t.name]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return append([]store.Row(nil), rows...), nil
}

func (t *fakeTable) Insert(ctx context.Context, row store.Row) (store.Row, error) {
	if err := t.c.record(t.name, "insert", "", row); err != nil {
		return nil, err
	}
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	t.c.nextID++
	created := store.Row{"id": fmt.Sprintf("%s-%d", t.name, t.c.nextID)}
	for k, v := range row {
		created[k] = v
	}
	t.c.rows[t.name] = append(t.c.rows[t.name], created)
	return created, nil
}

func (t *fakeTable) Update(ctx context.Context, id string, fields store.Row) error {
	if err := t.c.record(t.name, "update", id, fields); err != nil {
		return err
	}
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	for _, r := range t.c.rows[t.name] {
		if r["id"] == id {
			for k, v := range fields {
				r[k] = v
			}
		}
	}
	return nil
}

func (t *fakeTable) Delete(ctx context.Context, id string) error {
	if err := t.c.record(t.name, "delete", id, nil); err != nil {
		return err
	}
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	kept := t.c.rows[t.name][:0]
	for _, r := range t.c.rows[t.name] {
		if r["id"] != id {
			kept = append(kept, r)
		}
	}
	t.c.rows[t.name] = kept
	return nil
}

var errRelationMissing = &store.Error{
	Op: "select", Table: store.TableGoals,
	Code: store.CodeRelationMissing, Message: `relation "goals" does not exist`,
}

var errConnection = &store.Error{
	Op: "select", Table: store.TableTasks,
	Message: "connection refused",
}
