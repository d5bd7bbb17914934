package board

import (
	"sync"

	"github.com/nhle/lecture-board/internal/model"
)

// Notifier receives the user-facing notices a Controller emits.
type Notifier interface {
	Notify(n model.Notice)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n model.Notice)

func (f NotifierFunc) Notify(n model.Notice) { f(n) }

// NoticeBuffer is a Notifier that queues notices until they are drained.
// It is safe for concurrent use.
type NoticeBuffer struct {
	mu      sync.Mutex
	notices []model.Notice
}

func (b *NoticeBuffer) Notify(n model.Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, n)
}

// Drain returns the queued notices in arrival order and empties the queue.
func (b *NoticeBuffer) Drain() []model.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	return out
}

func successNotice(msg string) model.Notice {
	return model.Notice{Severity: model.SeveritySuccess, Title: "Success", Message: msg}
}

func errorNotice(msg string) model.Notice {
	return model.Notice{Severity: model.SeverityError, Title: "Error", Message: msg}
}
