package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/tutorbot/core/logger"
	tg "github.com/m3rciful/tutorbot/core/telegram"
	"github.com/m3rciful/tutorbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/tutorbot/core/telegram/helpers"
	"github.com/m3rciful/tutorbot/internal/tutor"

	tele "gopkg.in/telebot.v4"
)

// maxVoiceBytes caps voice note downloads; Telegram bots cannot fetch
// files above 20 MB anyway.
const maxVoiceBytes = 20 << 20

// telegramAPI is the part of *tele.Bot the handlers use.
type telegramAPI interface {
	chatAPI
	File(file *tele.File) (io.ReadCloser, error)
}

// events decodes Telegram updates into tutor events and submits them to the
// user's lane. Handlers return before the turn runs.
type events struct {
	tutor *tutor.Dispatcher
	api   atomic.Pointer[telegramAPI]
}

func newEvents(d *tutor.Dispatcher) *events {
	return &events{tutor: d}
}

// bind sets the bot the handlers reply through. Handlers run only after the
// bot has started, which is after bind.
func (e *events) bind(api telegramAPI) {
	e.api.Store(&api)
}

func (e *events) submit(c tele.Context, ev tutor.Event) error {
	user := c.Sender()
	api := e.api.Load()
	if user == nil || c.Chat() == nil || api == nil {
		return nil
	}
	ev.FirstName = user.FirstName
	ctx := tghelpers.BuildContext(c)
	e.tutor.Submit(ctx, user.ID, ev, newRenderer(*api, c))
	return nil
}

func (e *events) onCommand(c tele.Context) error {
	cmd, ok := tutor.ParseCommand(c.Text())
	if !ok {
		return e.submit(c, tutor.Event{Kind: tutor.EventInvalid})
	}
	return e.submit(c, tutor.Event{Kind: tutor.EventCommand, Command: cmd})
}

func (e *events) onText(c tele.Context) error {
	return e.submit(c, tutor.TextEvent(c.Text()))
}

func (e *events) onCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	b, err := tutor.DecodeButton(callbackData(cb))
	if err != nil {
		logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "callback.invalid",
			slog.String("payload", logger.SanitizeLimit(cb.Data, 64)),
		)
		return e.submit(c, tutor.Event{Kind: tutor.EventInvalid})
	}
	return e.submit(c, tutor.ButtonEvent(b))
}

// callbackData restores the raw callback data when telebot has already
// split it into unique and payload.
func callbackData(cb *tele.Callback) string {
	if cb.Unique == "" {
		return cb.Data
	}
	if cb.Data == "" {
		return "\f" + cb.Unique
	}
	return "\f" + cb.Unique + "|" + cb.Data
}

func (e *events) onVoice(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Voice == nil {
		return nil
	}
	file := msg.Voice.File
	return e.submit(c, tutor.VoiceEvent(func(ctx context.Context) ([]byte, error) {
		return e.download(ctx, &file)
	}))
}

func (e *events) onUnsupported(c tele.Context) error {
	return e.submit(c, tutor.Event{Kind: tutor.EventInvalid})
}

func (e *events) download(ctx context.Context, file *tele.File) ([]byte, error) {
	api := e.api.Load()
	if api == nil {
		return nil, fmt.Errorf("bot not started")
	}
	if file.FileSize > maxVoiceBytes {
		return nil, fmt.Errorf("voice note too large: %d bytes", file.FileSize)
	}
	rc, err := (*api).File(file)
	if err != nil {
		return nil, fmt.Errorf("fetch voice: %w", err)
	}
	defer rc.Close()
	stop := context.AfterFunc(ctx, func() { _ = rc.Close() })
	defer stop()

	data, err := io.ReadAll(io.LimitReader(rc, maxVoiceBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read voice: %w", err)
	}
	if len(data) > maxVoiceBytes {
		return nil, fmt.Errorf("voice note too large")
	}
	return data, nil
}

// register binds every tutor command and button kind to the event handlers.
func (e *events) register(reg *tg.Registry) error {
	for _, info := range tutor.Commands {
		err := reg.RegisterCommand("/"+info.Name, commands.Command{
			Handler:     e.onCommand,
			Description: info.Description,
		})
		if err != nil {
			return err
		}
	}
	for _, kind := range tutor.ButtonKinds {
		if err := reg.RegisterCallback(string(kind), e.onCallback); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(e.onCallback)
	reg.SetTextFallback(e.onText)
	return nil
}
