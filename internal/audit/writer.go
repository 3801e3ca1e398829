// Package audit persists audit records off the request path.
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/ecklinen/internal/models"
	"github.com/xelth-com/ecklinen/internal/repository"
)

const writeTimeout = 5 * time.Second

// Writer is a fire-and-forget audit sink. Records are buffered and written
// by a single background goroutine; when the buffer is full the record is
// dropped and logged.
type Writer struct {
	repo repository.AuditRepository
	ch   chan models.AuditLog
	log  *zap.SugaredLogger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewWriter starts a Writer with room for buffer pending records
func NewWriter(repo repository.AuditRepository, buffer int, log *zap.SugaredLogger) *Writer {
	if buffer <= 0 {
		buffer = 1
	}
	w := &Writer{
		repo: repo,
		ch:   make(chan models.AuditLog, buffer),
		log:  log,
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

// Record queues entry without blocking
func (w *Writer) Record(entry models.AuditLog) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.log.Warnw("audit writer closed, dropping record", "action", entry.Action, "entity", entry.EntityID)
		return
	}
	select {
	case w.ch <- entry:
	default:
		w.log.Warnw("audit buffer full, dropping record", "action", entry.Action, "entity", entry.EntityID)
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for entry := range w.ch {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := w.repo.Create(ctx, &entry); err != nil {
			w.log.Warnw("failed to write audit record", "action", entry.Action, "entity", entry.EntityID, "error", err)
		}
		cancel()
	}
}

// Close stops accepting records and waits until queued ones are written
func (w *Writer) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
	w.mu.Unlock()
	<-w.done
}
