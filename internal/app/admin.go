package app

import (
	"fmt"
	"strings"

	"github.com/m3rciful/tutorbot/core/buildinfo"
	tghelpers "github.com/m3rciful/tutorbot/core/telegram/helpers"
	"github.com/m3rciful/tutorbot/core/telegram/sender"
	"github.com/m3rciful/tutorbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

// sessionReport summarises the live sessions by mode and, when the sender
// is running, the outbound message counters.
func sessionReport(st *session.Store, out *sender.Dispatcher) string {
	byMode := make(map[session.Mode]int)
	st.Range(func(s *session.Session) bool {
		byMode[s.Mode]++
		return true
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Sessions: %d\n", st.Len())
	for _, m := range session.Modes {
		if n := byMode[m]; n > 0 {
			fmt.Fprintf(&b, "• %s: %d\n", m, n)
		}
	}
	if out != nil {
		o := out.Stats()
		fmt.Fprintf(&b, "Outbound: %d sent, %d retried, %d failed (%d blocked)\n", o.Sent, o.Retried, o.Failed, o.Blocked)
	}
	fmt.Fprintf(&b, "Build: %s", buildinfo.Summary())
	return b.String()
}

func sessionsHandler(st *session.Store, out func() *sender.Dispatcher) tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, sessionReport(st, out()))
	}
}

func rejectAdmin(c tele.Context) error {
	return tghelpers.SendText(c, "Команда доступна только администратору.")
}

func onRateLimited(c tele.Context) error {
	const text = "⏳ Слишком быстро! Подожди секунду."
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: text})
	}
	return tghelpers.SendText(c, text)
}
