package app

import (
	"bytes"
	"context"
	"strings"

	tghelpers "github.com/m3rciful/tutorbot/core/telegram/helpers"
	"github.com/m3rciful/tutorbot/core/telegram/keyboard"
	"github.com/m3rciful/tutorbot/core/telegram/middleware"
	"github.com/m3rciful/tutorbot/internal/tutor"

	tele "gopkg.in/telebot.v4"
)

// chatAPI is the part of *tele.Bot the renderer writes through.
type chatAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// renderer delivers tutor output to one chat through the sender queue, so
// replies of one chat keep their order.
type renderer struct {
	api      chatAPI
	chat     tele.Recipient
	origin   *tele.Message
	counters *middleware.Counters
}

func newRenderer(api chatAPI, c tele.Context) *renderer {
	r := &renderer{api: api, chat: c.Chat(), counters: middleware.CountersFrom(c)}
	if cb := c.Callback(); cb != nil {
		r.origin = cb.Message
	}
	return r
}

func markupOf(rows [][]tutor.Key) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	btns := make([][]keyboard.InlineBtn, len(rows))
	for i, row := range rows {
		btns[i] = make([]keyboard.InlineBtn, len(row))
		for j, k := range row {
			btns[i][j] = keyboard.InlineBtn{Text: k.Label, Unique: k.Button.Unique(), Data: k.Button.Payload()}
		}
	}
	return keyboard.InlineButtonsRows(btns...)
}

func (r *renderer) Text(ctx context.Context, m tutor.Message) error {
	opts := &tele.SendOptions{ReplyMarkup: markupOf(m.Buttons)}
	if m.Markdown {
		opts.ParseMode = tele.ModeMarkdown
	}
	edit := m.Edit && r.origin != nil
	action, endpoint := "send.text", "sendMessage"
	if edit {
		action, endpoint = "edit.text", "editMessageText"
	}
	return tghelpers.Deliver(ctx, action, endpoint, func() error {
		err := r.write(m.Text, opts, edit)
		if err != nil && m.Markdown && isParseError(err) {
			plain := *opts
			plain.ParseMode = tele.ModeDefault
			err = r.write(m.Text, &plain, edit)
		}
		if err == nil {
			r.counters.Add(opts.ReplyMarkup != nil)
		}
		return err
	})
}

// write edits the origin message when asked to, falling back to a new
// message when the origin can no longer be edited.
func (r *renderer) write(text string, opts *tele.SendOptions, edit bool) error {
	if edit {
		_, err := r.api.Edit(r.origin, text, opts)
		if err == nil || isNotModified(err) {
			return nil
		}
		if isParseError(err) {
			return err
		}
	}
	_, err := r.api.Send(r.chat, text, opts)
	return err
}

func (r *renderer) Audio(ctx context.Context, a tutor.Audio) error {
	data := a.Data
	return tghelpers.Deliver(ctx, "send.voice", "sendVoice", func() error {
		v := &tele.Voice{File: tele.FromReader(bytes.NewReader(data)), Caption: a.Caption}
		_, err := r.api.Send(r.chat, v)
		if err == nil {
			r.counters.Add(false)
		}
		return err
	})
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

func isParseError(err error) bool {
	return strings.Contains(err.Error(), "can't parse entities")
}
