package middleware

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/tutorbot/core/logger"
	"github.com/m3rciful/tutorbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/tutorbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// seenUpdates remembers recently logged update ids; the logger runs on the
// global chain and again inside every route.
type seenUpdates struct {
	mu   sync.Mutex
	ids  map[int]time.Time
	keep time.Duration
}

var receipts = &seenUpdates{ids: make(map[int]time.Time), keep: 10 * time.Second}

// first reports whether id is seen for the first time within keep.
func (s *seenUpdates) first(id int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ts := range s.ids {
		if now.Sub(ts) > s.keep {
			delete(s.ids, k)
		}
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = now
	return true
}

// LoggerMiddleware attaches the request context to c and logs one
// update.received line per update at debug level.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)

		upd := c.Update()
		if logger.ShouldSampleDebug() && receipts.first(upd.ID, time.Now()) {
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.Int("update_id", upd.ID),
			}
			attrs = append(attrs, senderAttrs(c)...)
			attrs = append(attrs, kindAttrs(c)...)
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", attrs...)
		}
		return next(c)
	}
}

func senderAttrs(c tele.Context) []slog.Attr {
	var attrs []slog.Attr
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}
	return attrs
}

// kindAttrs describes what the update carries. Learner text is truncated.
func kindAttrs(c tele.Context) []slog.Attr {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		key, payload := callbacks.ParseCallbackData(upd.Callback)
		return []slog.Attr{
			slog.String("kind", "callback"),
			slog.String("cb_key", logger.SanitizeLimit(key, 64)),
			slog.String("payload", logger.SanitizeLimit(payload, 128)),
		}
	case upd.Message == nil:
		return []slog.Attr{slog.String("kind", "other")}
	case upd.Message.Voice != nil:
		return []slog.Attr{
			slog.String("kind", "voice"),
			slog.Int("voice_seconds", upd.Message.Voice.Duration),
		}
	case strings.HasPrefix(upd.Message.Text, "/"):
		return []slog.Attr{
			slog.String("kind", "command"),
			slog.String("payload", logger.SanitizeLimit(upd.Message.Text, 64)),
		}
	case upd.Message.Text != "":
		return []slog.Attr{
			slog.String("kind", "text"),
			slog.Int("chars", len([]rune(upd.Message.Text))),
			slog.String("payload", logger.SanitizeLimit(upd.Message.Text, 128)),
		}
	}
	return []slog.Attr{slog.String("kind", "media")}
}
