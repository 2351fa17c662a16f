package tutor

import (
	"context"
	"log/slog"

	"github.com/m3rciful/tutorbot/core/logger"
	"github.com/m3rciful/tutorbot/internal/session"
)

type job struct {
	ctx context.Context
	ev  Event
	r   Renderer
	gen uint64
}

// lane serializes the events of one user. Its goroutine exits when the
// queue runs dry.
type lane struct {
	queue   []job
	running bool
	cancel  context.CancelFunc
}

// Submit queues ev on the user's lane. A control command supersedes every
// event submitted before it: queued events are dropped, the in-flight turn
// is invalidated and cancelled, then the command runs at once. The lane keeps
// the values of ctx but not its cancellation.
func (d *Dispatcher) Submit(ctx context.Context, userID int64, ev Event, r Renderer) {
	ctx = logger.WithUser(ctx, userID)
	if isControl(ev) {
		d.supersede(ctx, userID)
		d.Handle(ctx, userID, ev, r)
		return
	}

	j := job{ctx: context.WithoutCancel(ctx), ev: ev, r: r, gen: d.generation(userID)}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		logger.LogEvent(ctx, logger.Tutor, slog.LevelWarn, "turn.rejected", slog.String("reason", "closed"))
		return
	}
	l := d.lanes[userID]
	if l == nil {
		l = &lane{}
		d.lanes[userID] = l
	}
	l.queue = append(l.queue, j)
	if !l.running {
		l.running = true
		d.wg.Add(1)
		go d.drain(userID, l)
	}
}

func (d *Dispatcher) drain(userID int64, l *lane) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(l.queue) == 0 {
			l.running = false
			delete(d.lanes, userID)
			d.mu.Unlock()
			return
		}
		j := l.queue[0]
		l.queue = l.queue[1:]
		ctx, cancel := context.WithCancel(j.ctx)
		l.cancel = cancel
		d.mu.Unlock()

		d.handle(ctx, userID, j.ev, j.r, &j.gen)

		d.mu.Lock()
		l.cancel = nil
		d.mu.Unlock()
		cancel()
	}
}

// supersede drops the queued events of the user and fences off the turn in
// flight, so nothing submitted earlier can change the session afterwards.
func (d *Dispatcher) supersede(ctx context.Context, userID int64) {
	d.store.With(userID, func(s *session.Session) { s.Generation++ })

	d.mu.Lock()
	defer d.mu.Unlock()
	l := d.lanes[userID]
	if l == nil {
		return
	}
	if n := len(l.queue); n > 0 {
		l.queue = nil
		logger.LogEvent(ctx, logger.Tutor, slog.LevelInfo, "turn.dropped",
			slog.Int("queued", n),
		)
	}
	if l.cancel != nil {
		l.cancel()
	}
}

// Close stops accepting events, cancels in-flight turns and waits for the
// lanes to finish, or for ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	for _, l := range d.lanes {
		l.queue = nil
		if l.cancel != nil {
			l.cancel()
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
