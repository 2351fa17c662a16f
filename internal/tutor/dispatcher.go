// Package tutor routes decoded user events through the mode transition table.
package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/m3rciful/tutorbot/core/logger"
	"github.com/m3rciful/tutorbot/core/telegram/format"
	"github.com/m3rciful/tutorbot/internal/content"
	"github.com/m3rciful/tutorbot/internal/feedback"
	"github.com/m3rciful/tutorbot/internal/journal"
	"github.com/m3rciful/tutorbot/internal/llm"
	"github.com/m3rciful/tutorbot/internal/session"
	"github.com/m3rciful/tutorbot/internal/voice"
)

// Speech is the voice collaborator.
type Speech interface {
	Enabled() bool
	Resolve(pref string) string
	Synthesize(ctx context.Context, text, pref string) ([]byte, error)
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Grader grades translation answers. It never fails.
type Grader interface {
	Check(ctx context.Context, ex content.Exercise, answer string) feedback.Verdict
}

// Deps are the collaborators of a Dispatcher. Nil Checker, Voice and
// Journal select the LLM-backed checker, disabled voice and no journal.
type Deps struct {
	Store   *session.Store
	Catalog *content.Catalog
	LLM     llm.Provider
	Checker Grader
	Voice   Speech
	Journal journal.Recorder
}

// Options tunes generation and timeouts.
type Options struct {
	MaxTokensDialog   int
	MaxTokensQuestion int
	Temperature       float64
	AvoidRepeat       bool

	// CallTimeout bounds each text-generation call.
	CallTimeout time.Duration
	// LoadTimeout bounds fetching a voice message from the transport.
	LoadTimeout time.Duration
	// StatsTimeout bounds the journal lookup of /progress.
	StatsTimeout time.Duration

	// Seed makes exercise selection reproducible when non-zero.
	Seed uint64
}

func (o *Options) defaults() {
	if o.MaxTokensDialog <= 0 {
		o.MaxTokensDialog = 500
	}
	if o.MaxTokensQuestion <= 0 {
		o.MaxTokensQuestion = 800
	}
	if o.Temperature <= 0 {
		o.Temperature = 0.7
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 60 * time.Second
	}
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = 30 * time.Second
	}
	if o.StatsTimeout <= 0 {
		o.StatsTimeout = 2 * time.Second
	}
}

// Dispatcher owns the transition table and the per-user lanes.
type Dispatcher struct {
	store    *session.Store
	catalog  *content.Catalog
	selector *content.Selector
	llm      llm.Provider
	checker  Grader
	voice    Speech
	journal  journal.Recorder
	opts     Options
	table    table

	rngMu sync.Mutex
	rng   *rand.Rand

	mu     sync.Mutex
	lanes  map[int64]*lane
	closed bool
	wg     sync.WaitGroup
}

// New builds a dispatcher.
func New(deps Deps, opts Options) *Dispatcher {
	opts.defaults()
	d := &Dispatcher{
		store:    deps.Store,
		catalog:  deps.Catalog,
		selector: content.NewSelector(deps.Catalog.Exercises, opts.AvoidRepeat),
		llm:      deps.LLM,
		checker:  deps.Checker,
		voice:    deps.Voice,
		journal:  deps.Journal,
		opts:     opts,
		lanes:    make(map[int64]*lane),
	}
	if d.store == nil {
		d.store = session.NewStore(session.Options{})
	}
	if d.checker == nil {
		d.checker = feedback.NewChecker(deps.LLM, 0)
	}
	if d.voice == nil {
		d.voice = voice.Disabled()
	}
	if d.journal == nil {
		d.journal = journal.Nop{}
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	d.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	d.table = d.buildTable()
	return d
}

// Store exposes the session store, e.g. for admin reports.
func (d *Dispatcher) Store() *session.Store { return d.store }

// Handle processes one event synchronously.
func (d *Dispatcher) Handle(ctx context.Context, userID int64, ev Event, r Renderer) {
	d.handle(ctx, userID, ev, r, nil)
}

// handle runs ev. A non-nil fence is the generation the event was queued
// under; the turn is discarded if the session moved past it.
func (d *Dispatcher) handle(ctx context.Context, userID int64, ev Event, r Renderer, fence *uint64) {
	ctx = logger.WithUser(ctx, userID)
	if ev.Kind == EventVoice {
		var (
			gen uint64
			ok  bool
		)
		if ev, gen, ok = d.transcribe(ctx, userID, ev, r, fence); !ok {
			return
		}
		fence = &gen
	}
	d.dispatch(ctx, userID, ev, r, fence)
}

func (d *Dispatcher) dispatch(ctx context.Context, userID int64, ev Event, r Renderer, fence *uint64) {
	start := time.Now()
	t := d.newTurn(ctx, userID, ev, r, fence)
	if !t.live() {
		return
	}
	trig := triggerOf(ev)

	tr, ok := d.table.lookup(t.mode, trig)
	if !ok {
		logger.LogEvent(t.ctx, logger.Tutor, slog.LevelDebug, "turn.unmatched",
			slog.String("trigger", string(trig)),
		)
		d.prompt(t)
		return
	}
	t.tr = tr
	tr.handle(t)

	var next session.Mode
	d.store.With(userID, func(s *session.Session) { next = s.Mode })
	logger.LogEvent(t.ctx, logger.Tutor, slog.LevelInfo, "turn.handled",
		slog.String("trigger", string(trig)),
		slog.String("transition", tr.name),
		slog.String("next_mode", next.String()),
		slog.Duration("duration", logger.Took(start)),
	)
}

// newTurn snapshots mode and generation of the user's session.
func (d *Dispatcher) newTurn(ctx context.Context, userID int64, ev Event, r Renderer, fence *uint64) *turn {
	t := &turn{d: d, userID: userID, ev: ev, r: r, tr: transition{name: "prompt", next: same}}
	d.store.With(userID, func(s *session.Session) {
		t.mode, t.gen = s.Mode, s.Generation
	})
	if fence != nil {
		t.gen = *fence
	}
	t.ctx = logger.WithTurn(logger.WithMode(ctx, t.mode.String()), t.gen)
	return t
}

// transcribe turns a voice event into a text event and returns the
// generation it was heard under. ok is false when the turn ends here, either
// after an apology or because it went stale.
func (d *Dispatcher) transcribe(ctx context.Context, userID int64, ev Event, r Renderer, fence *uint64) (Event, uint64, bool) {
	t := d.newTurn(ctx, userID, ev, r, fence)
	if !t.live() {
		return Event{}, 0, false
	}
	if !d.voice.Enabled() {
		t.say(textVoiceOff)
		d.prompt(t)
		return Event{}, 0, false
	}

	text, err := d.loadAndTranscribe(t.ctx, ev.Voice)
	if err != nil {
		logger.LogEvent(t.ctx, logger.Tutor, slog.LevelWarn, "turn.voice",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		if t.live() {
			t.plain(textVoiceFailed)
			d.prompt(t)
		}
		return Event{}, 0, false
	}
	if !t.live() {
		return Event{}, 0, false
	}
	t.say(fmt.Sprintf(textVoiceHeard, format.Escape(text)))

	out := TextEvent(text)
	out.FromVoice = true
	out.FirstName = ev.FirstName
	return out, t.gen, true
}

func (d *Dispatcher) loadAndTranscribe(ctx context.Context, v Voice) (string, error) {
	if v.Load == nil {
		return "", fmt.Errorf("%w: no audio", voice.ErrTranscriptionFailed)
	}
	lctx, cancel := context.WithTimeout(ctx, d.opts.LoadTimeout)
	audio, err := v.Load(lctx)
	cancel()
	if err != nil {
		return "", fmt.Errorf("%w: load: %w", voice.ErrTranscriptionFailed, err)
	}
	return d.voice.Transcribe(ctx, audio)
}

func (d *Dispatcher) generation(userID int64) uint64 {
	var gen uint64
	d.store.With(userID, func(s *session.Session) { gen = s.Generation })
	return gen
}

func (d *Dispatcher) pick(previous int) (int, content.Exercise) {
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return d.selector.Pick(d.rng, previous)
}
