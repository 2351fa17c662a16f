package journal

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/tutorbot/core/logger"
)

// ErrQueueFull is returned by Async.Record when the buffer is exhausted.
var ErrQueueFull = errors.New("journal queue full")

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second
	writeAttempts       = 2
	retryDelay          = 500 * time.Millisecond
)

// Async writes entries to next from a single background worker so callers
// never wait on the database.
type Async struct {
	next  Recorder
	queue chan Entry

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsync starts the worker. size <= 0 selects the default queue size.
func NewAsync(next Recorder, size int) *Async {
	if size <= 0 {
		size = defaultQueueSize
	}
	a := &Async{
		next:  next,
		queue: make(chan Entry, size),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

// Record enqueues e; a full queue drops it with a warning.
func (a *Async) Record(ctx context.Context, e Entry) error {
	e.Stamp()
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrQueueFull
	}
	select {
	case a.queue <- e:
		return nil
	default:
		logger.LogEvent(ctx, logger.Journal, slog.LevelWarn, "journal.drop",
			slog.Int64("user_id", e.UserID),
			slog.Int("queue_cap", cap(a.queue)),
		)
		return ErrQueueFull
	}
}

// Stats reads through to the underlying recorder.
func (a *Async) Stats(ctx context.Context, userID int64) (Totals, error) {
	return a.next.Stats(ctx, userID)
}

// Close stops accepting entries and waits for the queue to drain.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.queue {
		a.write(e)
	}
}

// write stores e, trying once more after a failure. The entry keeps its ID
// across attempts so a write that did land is not duplicated.
func (a *Async) write(e Entry) {
	var err error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
		err = a.next.Record(ctx, e)
		cancel()
		if err == nil {
			return
		}
		if attempt < writeAttempts {
			time.Sleep(retryDelay)
		}
	}
	logger.Journal.Warn("journal write failed",
		slog.String("event", "journal.record"),
		slog.Int64("user_id", e.UserID),
		slog.String("entry_id", e.ID.String()),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}
