package model

import "time"

// Task is a single card on the board. Rows in the tasks table are the
// source of truth; a Task held in memory is a cached copy of one.
type Task struct {
	// ID is assigned by the store when the task is created.
	ID string `json:"id" yaml:"id" mapstructure:"id"`

	// Title is the display string shown on the card. Never blank.
	Title string `json:"title" yaml:"title" mapstructure:"title"`

	// Description is free text and defaults to the empty string.
	Description string `json:"description" yaml:"description" mapstructure:"description"`

	// Deadline is optional and only meaningful at date granularity.
	Deadline *time.Time `json:"deadline,omitempty" yaml:"deadline,omitempty" mapstructure:"deadline"`

	// Assignee is an optional free-text name.
	Assignee *string `json:"assignee,omitempty" yaml:"assignee,omitempty" mapstructure:"assignee"`

	// ColumnID names the column that currently holds the task.
	ColumnID ColumnID `json:"column_id" yaml:"column_id" mapstructure:"column_id"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at" mapstructure:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" mapstructure:"updated_at"`
}

// AssigneeName returns the assignee or "" when unset.
func (t Task) AssigneeName() string {
	if t.Assignee == nil {
		return ""
	}
	return *t.Assignee
}
