package router

import (
	"strings"

	tg "github.com/m3rciful/tutorbot/core/telegram"
	"github.com/m3rciful/tutorbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls fallback behaviour for message updates.
type TextOptions struct {
	// UnknownCommand receives slash commands telebot did not match, e.g.
	// typos or commands addressed to another bot.
	UnknownCommand tele.HandlerFunc
	// UnknownText receives text when the registry has no text fallback.
	UnknownText tele.HandlerFunc
	// Voice receives voice notes.
	Voice tele.HandlerFunc
	// Unsupported receives documents, photos and stickers.
	Unsupported tele.HandlerFunc
}

// TextRoutes builds handlers for text, voice and unsupported media.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		text := c.Text()

		if strings.HasPrefix(text, "/") {
			if reg != nil {
				if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil && !cmd.AdminOnly {
					return newSummary(c, "command."+normalizeHandlerName(key)).run(func() error {
						return cmd.Handler(c)
					})
				}
			}
			if opts.UnknownCommand != nil {
				return newSummary(c, "unknown_command").run(func() error {
					return opts.UnknownCommand(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return newSummary(c, "text").run(func() error { return fb(c) })
			}
		}

		s := newSummary(c, "unknown_text")
		if opts.UnknownText == nil {
			s.skip()
			return nil
		}
		return s.run(func() error { return opts.UnknownText(c) })
	}

	wrap := func(name string, h tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			s := newSummary(c, name)
			if h == nil {
				s.skip()
				return nil
			}
			return s.run(func() error { return h(c) })
		}
	}

	routes := []tg.Route{
		{Endpoint: tele.OnText, Handler: handler},
		{Endpoint: tele.OnVoice, Handler: wrap("voice", opts.Voice)},
	}
	for _, ep := range []string{tele.OnDocument, tele.OnPhoto, tele.OnSticker} {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: wrap("unsupported", opts.Unsupported)})
	}
	for i := range routes {
		routes[i].Handler = middleware.RecoverMiddleware(middleware.LoggerMiddleware(routes[i].Handler))
	}
	return routes
}
