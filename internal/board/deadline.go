package board

import (
	"math"
	"time"
)

// DeadlineStatus buckets a deadline by how many days remain.
type DeadlineStatus int

const (
	DeadlineNone DeadlineStatus = iota
	DeadlineOverdue
	DeadlineUrgent
	DeadlineSoon
	DeadlineNormal
)

// String returns the status name used in logs and dumps.
func (s DeadlineStatus) String() string {
	switch s {
	case DeadlineOverdue:
		return "overdue"
	case DeadlineUrgent:
		return "urgent"
	case DeadlineSoon:
		return "soon"
	case DeadlineNormal:
		return "normal"
	default:
		return "none"
	}
}

// Label is the short badge text shown next to a deadline.
func (s DeadlineStatus) Label() string {
	switch s {
	case DeadlineOverdue:
		return "지남"
	case DeadlineUrgent:
		return "임박"
	case DeadlineSoon:
		return "곧"
	case DeadlineNormal:
		return "여유"
	default:
		return ""
	}
}

// ClassifyDeadline buckets deadline relative to now using the number of
// days left, rounded up: negative is overdue, 0 to 2 urgent, 3 to 7 soon,
// anything later normal. A nil deadline has no status.
func ClassifyDeadline(deadline *time.Time, now time.Time) DeadlineStatus {
	if deadline == nil {
		return DeadlineNone
	}

	days := math.Ceil(deadline.Sub(now).Hours() / 24)
	switch {
	case days < 0:
		return DeadlineOverdue
	case days <= 2:
		return DeadlineUrgent
	case days <= 7:
		return DeadlineSoon
	default:
		return DeadlineNormal
	}
}
