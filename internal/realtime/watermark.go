package realtime

import (
	"sync"

	"github.com/yungbote/dbchat-backend/internal/platform/logger"
)

// Watermark tracks the highest message id this process knows to be committed.
// Waiters grab Changed() before checking the store and block on it; Advance
// closes that channel so every waiter wakes at once.
type Watermark struct {
	mu      sync.Mutex
	logger  *logger.Logger
	current int64
	changed chan struct{}
}

func NewWatermark(log *logger.Logger) *Watermark {
	if log == nil {
		log = logger.Nop()
	}
	return &Watermark{
		logger:  log.With("component", "Watermark"),
		changed: make(chan struct{}),
	}
}

func (w *Watermark) Current() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Changed returns a channel closed by the next Advance past Current.
func (w *Watermark) Changed() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changed
}

// Advance moves the mark to id. Ids at or below the mark are ignored.
func (w *Watermark) Advance(id int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id <= w.current {
		return false
	}
	w.current = id
	close(w.changed)
	w.changed = make(chan struct{})
	w.logger.Debug("Watermark advanced", "message_id", id)
	return true
}
