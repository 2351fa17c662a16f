package tutor

import (
	"context"
	"log/slog"

	"github.com/m3rciful/tutorbot/core/logger"
	"github.com/m3rciful/tutorbot/internal/session"
)

// turn is one event being handled. mode and gen are snapshots taken when the
// turn started; results are applied only while gen is still current.
type turn struct {
	ctx    context.Context
	d      *Dispatcher
	userID int64
	ev     Event
	r      Renderer
	mode   session.Mode
	gen    uint64
	tr     transition

	edited    bool
	discarded bool
}

// apply runs fn under the session lock if the turn is not stale.
func (t *turn) apply(fn func(*session.Session)) bool {
	ok := false
	t.d.store.With(t.userID, func(s *session.Session) {
		if s.Generation != t.gen {
			return
		}
		ok = true
		fn(s)
	})
	if !ok && !t.discarded {
		t.discarded = true
		logger.LogEvent(t.ctx, logger.Tutor, slog.LevelInfo, "turn.discarded",
			slog.String("status", "discarded"),
			slog.String("transition", t.tr.name),
		)
	}
	return ok
}

func (t *turn) live() bool {
	return t.apply(func(*session.Session) {})
}

// advance moves s to the row's next mode.
func (t *turn) advance(s *session.Session) {
	if t.tr.next != same {
		s.Mode = t.tr.next
	}
}

// interrupt moves s to the row's next mode and invalidates other turns. The
// current turn stays live.
func (t *turn) interrupt(s *session.Session) {
	next := t.tr.next
	if next == same {
		next = s.Mode
	}
	s.Interrupt(next)
	t.gen = s.Generation
}

// show replaces the view the pressed button belongs to, or sends a new
// message for other events.
func (t *turn) show(m Message) {
	if t.ev.Kind == EventButton && !t.edited {
		m.Edit = true
		t.edited = true
	}
	t.send(m)
}

func (t *turn) send(m Message) {
	if err := t.r.Text(t.ctx, m); err != nil {
		t.renderFailed("text", err)
	}
}

func (t *turn) say(text string)   { t.send(Message{Text: text, Markdown: true}) }
func (t *turn) plain(text string) { t.send(Message{Text: text}) }

func (t *turn) audio(a Audio) {
	if err := t.r.Audio(t.ctx, a); err != nil {
		t.renderFailed("audio", err)
	}
}

func (t *turn) renderFailed(kind string, err error) {
	logger.LogEvent(t.ctx, logger.Tutor, slog.LevelWarn, "turn.render",
		slog.String("status", "fail"),
		slog.String("kind", kind),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}

// call bounds a text-generation call.
func (t *turn) call() (context.Context, context.CancelFunc) {
	return context.WithTimeout(t.ctx, t.d.opts.CallTimeout)
}
