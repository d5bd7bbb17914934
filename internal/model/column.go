package model

// ColumnID identifies one of the four fixed board columns.
type ColumnID string

const (
	ColumnTodo   ColumnID = "todo"
	ColumnDoing  ColumnID = "doing"
	ColumnDone   ColumnID = "done"
	ColumnAgenda ColumnID = "agenda"
)

// ColumnIDs lists the board columns in display order.
var ColumnIDs = []ColumnID{ColumnTodo, ColumnDoing, ColumnDone, ColumnAgenda}

// DefaultColumnTitles holds the labels the board ships with.
var DefaultColumnTitles = map[ColumnID]string{
	ColumnTodo:   "해야 할 일 (TO DO)",
	ColumnDoing:  "진행 중 (DOING)",
	ColumnDone:   "완료 (DONE)",
	ColumnAgenda: "회의사안/요청할 사안",
}

// Valid reports whether id is one of the four known columns.
func (id ColumnID) Valid() bool {
	switch id {
	case ColumnTodo, ColumnDoing, ColumnDone, ColumnAgenda:
		return true
	}
	return false
}

// Column is a titled, ordered bucket of tasks. The set of columns is fixed
// at startup and never changes while the board runs.
type Column struct {
	ID    ColumnID `json:"id" yaml:"id"`
	Title string   `json:"title" yaml:"title"`
	Tasks []Task   `json:"tasks" yaml:"tasks"`
}
