package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/tutorbot/core/logger"
	"github.com/m3rciful/tutorbot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is the capacity of each shard.
	QueueSize int
	// Workers is the number of shards. Jobs of one chat always land on the
	// same shard and run in enqueue order.
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
type Dispatcher struct {
	opts   Options
	shards []chan job
	mu     sync.RWMutex
	closed bool
	next   atomic.Uint64
	wg     sync.WaitGroup

	sent    atomic.Uint64
	retried atomic.Uint64
	failed  atomic.Uint64
	blocked atomic.Uint64
}

// Stats are cumulative job outcomes.
type Stats struct {
	Sent    uint64
	Retried uint64
	Failed  uint64
	// Blocked counts jobs refused because the user blocked the bot. They are
	// included in Failed.
	Blocked uint64
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{
		opts:   opts,
		shards: make([]chan job, opts.Workers),
	}

	d.wg.Add(opts.Workers)
	for i := range d.shards {
		d.shards[i] = make(chan job, opts.QueueSize)
		go d.worker(d.shards[i])
	}

	return d
}

// Enqueue schedules the provided function for asynchronous execution on the
// shard of the chat found in ctx. Without a chat the job goes round-robin.
// The run closure must be idempotent if retries are desired.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}

	j := job{
		ctx:      ctx,
		action:   action,
		endpoint: endpoint,
		run:      run,
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.shards[d.shardFor(ctx)] <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) shardFor(ctx context.Context) int {
	n := uint64(len(d.shards))
	key := logger.ChatIDFrom(ctx)
	if key == 0 {
		key = logger.UserIDFrom(ctx)
	}
	if key == 0 {
		return int(d.next.Add(1) % n)
	}
	if key < 0 {
		key = -key
	}
	return int(uint64(key) % n)
}

// Stats returns a snapshot of the job counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Sent:    d.sent.Load(),
		Retried: d.retried.Load(),
		Failed:  d.failed.Load(),
		Blocked: d.blocked.Load(),
	}
}

// Close stops accepting jobs and waits for the workers to drain the queues.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.shards {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(jobs <-chan job) {
	defer d.wg.Done()
	for j := range jobs {
		d.handleJob(j)
	}
}

// handleJob runs j until it succeeds, fails permanently or exhausts its
// retry budget. Flood-control replies set the wait.
func (d *Dispatcher) handleJob(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	deadline, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	logger.Debug(ctx, "tg.sender", "send.start", j.attrs(ctx)...)

	attempts := d.opts.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		err := deadline.Err()
		if err == nil {
			err = j.run()
		}
		if err == nil {
			d.sent.Add(1)
			if attempt > 1 {
				d.retried.Add(1)
			}
			logSendSuccess(ctx, j, attempt, time.Since(start))
			return
		}
		if deadline.Err() != nil || attempt >= attempts || !netutil.ShouldRetry(err) {
			d.fail(ctx, j, err, attempt, time.Since(start))
			return
		}

		delay := d.opts.RetryBackoff * time.Duration(attempt)
		if wait, ok := netutil.RetryAfter(err); ok {
			delay = wait
		}
		logger.Debug(ctx, "tg.sender", "send.retry.backoff",
			append(j.attrs(ctx), slog.Int("attempt", attempt), slog.Duration("delay", delay))...,
		)
		timer := time.NewTimer(delay)
		select {
		case <-deadline.Done():
			timer.Stop()
			d.fail(ctx, j, deadline.Err(), attempt, time.Since(start))
			return
		case <-timer.C:
		}
	}
}

func (d *Dispatcher) fail(ctx context.Context, j job, err error, attempts int, elapsed time.Duration) {
	d.failed.Add(1)
	kind := classifyError(err)
	if kind == kindForbidden {
		d.blocked.Add(1)
	}
	attrs := append(j.attrs(ctx),
		slog.String("error", sanitizeErrorMessage(err)),
		slog.String("error_kind", kind),
		slog.Int("attempts", attempts),
		slog.Int("elapsed_ms", durationToMS(elapsed)),
	)
	// A user who blocked the bot is not an operational error.
	if kind == kindForbidden {
		logger.Warn(ctx, "tg.sender", "send.fail", attrs...)
		return
	}
	logger.Error(ctx, "tg.sender", "send.fail", attrs...)
}

func (j job) attrs(ctx context.Context) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("action", j.action),
	}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	if updateID := logger.UpdateIDFrom(ctx); updateID != 0 {
		attrs = append(attrs, slog.Int("update_id", updateID))
	}
	if chatID := logger.ChatIDFrom(ctx); chatID != 0 {
		attrs = append(attrs, slog.Int64("chat_id", chatID))
	}
	if userID := logger.UserIDFrom(ctx); userID != 0 {
		attrs = append(attrs, slog.Int64("user_id", userID))
	}
	return attrs
}

func logSendSuccess(ctx context.Context, j job, attempt int, elapsed time.Duration) {
	attrs := j.attrs(ctx)
	if attempt > 1 {
		attrs = append(attrs, slog.Int("attempt", attempt))
	}
	attrs = append(attrs, slog.Int("elapsed_ms", durationToMS(elapsed)))
	level := slog.LevelDebug
	if attempt > 1 {
		level = slog.LevelInfo
	}
	logger.LogEvent(ctx, logger.Component("tg.sender"), level, "send.success", attrs...)
}

func durationToMS(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(logger.RoundMS(d) / time.Millisecond)
}
