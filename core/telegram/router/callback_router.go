package router

import (
	"log/slog"

	"github.com/m3rciful/tutorbot/core/logger"
	tg "github.com/m3rciful/tutorbot/core/telegram"
	"github.com/m3rciful/tutorbot/core/telegram/callbacks"
	"github.com/m3rciful/tutorbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the registry.
// Keys without a registered handler, including legacy payloads that carry no
// unique prefix, go to the registry fallback and then to opts.NotFound.
// The query is answered before the handler runs so the client stops its
// spinner even when the turn is queued.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}

		key, _ := callbacks.ParseCallbackData(c.Callback())
		s := newSummary(c, "callback."+normalizeHandlerName(key)).
			with(slog.String("cb_key", logger.SanitizeLimit(key, 64)))

		_ = c.Respond()

		h, ok := reg.GetCallback(key)
		if !ok || h == nil {
			h = reg.CallbackNotFound()
			if h == nil {
				h = opts.NotFound
			}
			s.with(slog.String("reason", "not_found"))
		}
		if h == nil {
			s.skip()
			return nil
		}
		return s.run(func() error { return h(c) })
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
