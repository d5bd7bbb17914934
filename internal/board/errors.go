package board

import "errors"

var (
	// ErrUnknownColumn is returned when an operation names a column that is
	// not one of the four board columns.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrEmptyTitle is returned when an edit would leave a task without a
	// title.
	ErrEmptyTitle = errors.New("task title must not be blank")

	// ErrNegativeGoal is returned when a goal target is below zero.
	ErrNegativeGoal = errors.New("goal targets must be non-negative")
)
