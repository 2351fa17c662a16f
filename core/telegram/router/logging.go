package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/tutorbot/core/logger"
	tghelpers "github.com/m3rciful/tutorbot/core/telegram/helpers"
	"github.com/m3rciful/tutorbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summary collects the single handler.handled line logged per update.
type summary struct {
	c     tele.Context
	name  string
	start time.Time
	attrs []slog.Attr
}

func newSummary(c tele.Context, name string) *summary {
	tghelpers.WithHandler(c, name)
	return &summary{c: c, name: name, start: time.Now()}
}

func (s *summary) with(attrs ...slog.Attr) *summary {
	s.attrs = append(s.attrs, attrs...)
	return s
}

// run calls fn and logs its outcome.
func (s *summary) run(fn func() error) error {
	err := fn()
	status := "ok"
	if err != nil {
		status = "fail"
	}
	s.log(status, err)
	return err
}

// skip logs an update nothing handled.
func (s *summary) skip() { s.log("skip", nil) }

func (s *summary) log(status string, err error) {
	ctx := tghelpers.WithHandler(s.c, s.name)
	msgs, kb := middleware.GetCounters(s.c)

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", s.name),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(s.start)).Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	attrs = append(attrs, s.attrs...)
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

// deriveErrorCode maps an error to a short upper-case code for log filters.
// Telegram API errors carry their HTTP code.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return "TG_FLOOD"
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return "TG_" + strconv.Itoa(apiErr.Code)
	}
	type coder interface{ Code() string }
	if c, ok := err.(coder); ok {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
