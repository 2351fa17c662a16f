package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/tutorbot/core/logger"
	"github.com/m3rciful/tutorbot/internal/content"
	"github.com/m3rciful/tutorbot/internal/dialog"
	"github.com/m3rciful/tutorbot/internal/feedback"
	"github.com/m3rciful/tutorbot/internal/journal"
	"github.com/m3rciful/tutorbot/internal/llm"
	"github.com/m3rciful/tutorbot/internal/session"
	"github.com/m3rciful/tutorbot/internal/voice"
)

// prompt re-renders the default view of the current mode without changing
// state, except that Translate poses an exercise when none is pending.
func (d *Dispatcher) prompt(t *turn) {
	var (
		mode    session.Mode
		pending *content.Exercise
		done    []string
	)
	if !t.apply(func(s *session.Session) {
		mode = s.Mode
		done = s.CompletedTopics.List()
		if s.Pending != nil {
			ex := *s.Pending
			pending = &ex
		}
	}) {
		return
	}
	switch mode {
	case session.Choosing:
		t.show(Message{Text: textChooseAction, Buttons: mainMenu()})
	case session.Lesson:
		t.show(Message{Text: textTopicsHeader, Markdown: true, Buttons: topicList(d.catalog, done)})
	case session.Dialog:
		t.say(textDialogReminder)
	case session.Translate:
		if pending != nil {
			t.say(exerciseText(*pending))
			return
		}
		d.poseExercise(t)
	case session.Question:
		t.say(textQuestionReminder)
	default:
		t.plain(textEnded)
	}
}

func (d *Dispatcher) start(t *turn) {
	if !t.apply(t.interrupt) {
		return
	}
	t.send(Message{Text: welcomeText(t.ev.FirstName), Markdown: true, Buttons: mainMenu()})
}

func (d *Dispatcher) cancel(t *turn) {
	if !t.apply(t.interrupt) {
		return
	}
	t.plain(textCancelled)
}

func (d *Dispatcher) showMenu(t *turn) {
	if !t.apply(t.advance) {
		return
	}
	t.show(Message{Text: textChooseAction, Buttons: mainMenu()})
}

func (d *Dispatcher) help(t *turn) { t.say(textHelp) }

// lesson

func (d *Dispatcher) showTopics(t *turn) {
	var done []string
	if !t.apply(func(s *session.Session) {
		done = s.CompletedTopics.List()
		t.advance(s)
	}) {
		return
	}
	t.show(Message{Text: textTopicsHeader, Markdown: true, Buttons: topicList(d.catalog, done)})
}

func (d *Dispatcher) openTopic(t *turn) {
	topic, ok := d.catalog.Topic(t.ev.Button.Topic)
	if !ok {
		d.showTopics(t)
		return
	}
	d.renderPhrase(t, topic, 0)
}

func (d *Dispatcher) showPhrase(t *turn) {
	topic, ok := d.catalog.Topic(t.ev.Button.Topic)
	if !ok {
		d.showTopics(t)
		return
	}
	d.renderPhrase(t, topic, t.ev.Button.Index)
}

// renderPhrase shows phrase i of topic, or completes the topic when i is
// past its end.
func (d *Dispatcher) renderPhrase(t *turn, topic content.Topic, i int) {
	p, ok := topic.Phrase(i)
	if !ok {
		var done []string
		if !t.apply(func(s *session.Session) {
			if s.CompletedTopics.Add(topic.ID) {
				logger.LogEvent(t.ctx, logger.Tutor, slog.LevelInfo, "lesson.completed", slog.String("topic", topic.ID))
			}
			s.CurrentTopic = ""
			s.PhraseIndex = 0
			done = s.CompletedTopics.List()
			t.advance(s)
		}) {
			return
		}
		t.show(Message{Text: textTopicDone, Markdown: true, Buttons: topicList(d.catalog, done)})
		return
	}
	if !t.apply(func(s *session.Session) {
		s.CurrentTopic = topic.ID
		s.PhraseIndex = i
		t.advance(s)
	}) {
		return
	}
	t.show(Message{Text: phraseText(topic, i, p), Markdown: true, Buttons: phraseKeys(topic.ID, i)})
}

func (d *Dispatcher) listen(t *turn) {
	topic, ok := d.catalog.Topic(t.ev.Button.Topic)
	if !ok {
		d.showTopics(t)
		return
	}
	p, ok := topic.Phrase(t.ev.Button.Index)
	if !ok {
		d.showTopics(t)
		return
	}
	audio, err := d.synthesize(t, p.Target)
	if !t.live() {
		return
	}
	if err != nil {
		t.plain(fmt.Sprintf(textListenFailed, p.Target))
		return
	}
	t.audio(Audio{Data: audio, Caption: "🔊 " + p.Target})
}

// dialog

func (d *Dispatcher) startDialog(t *turn) {
	if !t.apply(func(s *session.Session) {
		s.Dialog.Reset()
		t.advance(s)
	}) {
		return
	}
	t.show(Message{Text: textDialogIntro, Markdown: true})
}

func (d *Dispatcher) stopDialog(t *turn) {
	if !t.apply(t.interrupt) {
		return
	}
	t.plain(textDialogEnded)
}

func (d *Dispatcher) dialogTurn(t *turn) {
	var window []dialog.Turn
	if !t.apply(func(s *session.Session) {
		s.Dialog.Append(dialog.RoleUser, t.ev.Text)
		window = s.Dialog.Window()
	}) {
		return
	}

	ctx, cancel := t.call()
	reply, err := llm.Complete(llm.WithPurpose(ctx, "dialog"), d.llm, dialogPrompt, toMessages(window), d.opts.MaxTokensDialog, d.opts.Temperature)
	cancel()
	if err != nil {
		d.generationFailed(t, err)
		if t.live() {
			t.plain(textDialogError)
		}
		return
	}
	if !t.apply(func(s *session.Session) {
		s.Dialog.Append(dialog.RoleAssistant, reply)
		t.advance(s)
	}) {
		return
	}
	t.plain(reply)

	portion, ok := voice.TargetPortion(reply)
	if !ok || !d.voice.Enabled() {
		return
	}
	audio, err := d.synthesize(t, portion)
	if err != nil || !t.live() {
		return
	}
	t.audio(Audio{Data: audio, Caption: textListenCaption})
}

func toMessages(window []dialog.Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(window))
	for _, w := range window {
		switch w.Role {
		case dialog.RoleUser:
			msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: w.Text})
		case dialog.RoleAssistant:
			msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: w.Text})
		}
	}
	return msgs
}

// translate

func (d *Dispatcher) startTranslate(t *turn) { d.poseExercise(t) }

func (d *Dispatcher) poseExercise(t *turn) {
	var (
		ex    content.Exercise
		posed bool
	)
	if !t.apply(func(s *session.Session) {
		i, e := d.pick(s.LastExercise)
		if i < 0 {
			return
		}
		ex, posed = e, true
		s.Pending = &e
		s.LastExercise = i
		t.advance(s)
	}) {
		return
	}
	if !posed {
		t.plain(textNoExercises)
		return
	}
	logger.LogEvent(t.ctx, logger.Tutor, slog.LevelDebug, "translate.posed", slog.String("exercise", ex.Native))
	t.show(Message{Text: exerciseText(ex), Markdown: true})
}

func (d *Dispatcher) checkAnswer(t *turn) {
	answer := strings.TrimSpace(t.ev.Text)
	var (
		ex      content.Exercise
		pending bool
	)
	if !t.apply(func(s *session.Session) {
		if s.Pending != nil {
			ex, pending = *s.Pending, true
		}
	}) {
		return
	}
	if !pending {
		d.poseExercise(t)
		return
	}

	ctx, cancel := t.call()
	v := d.checker.Check(llm.WithPurpose(ctx, "judge"), ex, answer)
	cancel()

	var streak int
	if !t.apply(func(s *session.Session) {
		feedback.Apply(s, v)
		streak = s.Streak
		s.Pending = nil
		t.advance(s)
	}) {
		return
	}
	logger.LogEvent(t.ctx, logger.Tutor, slog.LevelInfo, "translate.checked",
		slog.Bool("verdict", v.Correct),
		slog.String("source", string(v.Source)),
		slog.Int("streak", streak),
	)
	d.record(t, ex, answer, v)

	if !v.Correct {
		t.say(incorrectText(answer, ex, v.Explanation))
		return
	}
	t.say(correctText(streak))
	if !d.voice.Enabled() {
		return
	}
	if audio, err := d.synthesize(t, ex.Target); err == nil && t.live() {
		t.audio(Audio{Data: audio, Caption: "🔊 " + ex.Target})
	}
}

func (d *Dispatcher) record(t *turn, ex content.Exercise, answer string, v feedback.Verdict) {
	err := d.journal.Record(t.ctx, journal.Entry{
		UserID:      t.userID,
		Prompt:      ex.Native,
		Expected:    ex.Target,
		Answer:      answer,
		Correct:     v.Correct,
		Explanation: v.Explanation,
		Source:      string(v.Source),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, journal.ErrQueueFull) {
		logger.LogEvent(t.ctx, logger.Tutor, slog.LevelWarn, "journal.record",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

// question

func (d *Dispatcher) startQuestion(t *turn) {
	if !t.apply(t.advance) {
		return
	}
	t.show(Message{Text: textQuestionIntro, Markdown: true})
}

func (d *Dispatcher) stopQuestion(t *turn) {
	if !t.apply(t.interrupt) {
		return
	}
	t.plain(textQuestionStopped)
}

func (d *Dispatcher) answerQuestion(t *turn) {
	ctx, cancel := t.call()
	answer, err := llm.Complete(llm.WithPurpose(ctx, "question"), d.llm, questionPrompt,
		[]llm.Message{{Role: llm.RoleUser, Content: t.ev.Text}},
		d.opts.MaxTokensQuestion, d.opts.Temperature)
	cancel()
	if !t.live() {
		return
	}
	if err != nil {
		d.generationFailed(t, err)
		t.plain(textQuestionError)
	} else {
		t.plain(answer)
	}
	t.say(textQuestionMore)
}

// assistant answers free speech outside the practice modes.
func (d *Dispatcher) assistant(t *turn) {
	ctx, cancel := t.call()
	answer, err := llm.Complete(llm.WithPurpose(ctx, "assistant"), d.llm, assistantPrompt,
		[]llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(assistantUserFormat, t.ev.Text)}},
		d.opts.MaxTokensDialog, d.opts.Temperature)
	cancel()
	if err != nil {
		d.generationFailed(t, err)
		if t.live() {
			t.plain(textAssistantFail)
		}
		return
	}
	if !t.apply(t.advance) {
		return
	}
	t.plain(answer)
	t.send(Message{Text: textNextAction, Buttons: nextActions()})
}

// global commands

func (d *Dispatcher) progress(t *turn) {
	var view progressView
	if !t.apply(func(s *session.Session) {
		view = progressView{
			completed: s.CompletedTopics.List(),
			total:     s.TotalCount,
			accuracy:  s.Accuracy(),
			streak:    s.Streak,
		}
	}) {
		return
	}

	var lifetime *journal.Totals
	ctx, cancel := context.WithTimeout(t.ctx, d.opts.StatsTimeout)
	tot, err := d.journal.Stats(ctx, t.userID)
	cancel()
	switch {
	case err == nil:
		lifetime = &tot
	case !errors.Is(err, journal.ErrDisabled):
		logger.LogEvent(t.ctx, logger.Tutor, slog.LevelWarn, "journal.stats",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
	if !t.live() {
		return
	}
	t.say(progressText(d.catalog, view, lifetime))
}

func (d *Dispatcher) speak(t *turn) {
	text := t.ev.Command.Args
	if text == "" {
		t.plain(textVoiceUsage)
		return
	}
	if !d.voice.Enabled() {
		t.plain(textVoiceOff)
		return
	}
	audio, err := d.synthesize(t, text)
	if !t.live() {
		return
	}
	if err != nil {
		t.plain(textSynthFailed)
		return
	}
	t.audio(Audio{Data: audio, Caption: "🔊 " + text})
}

func (d *Dispatcher) voicePicker(t *turn) {
	if !d.voice.Enabled() {
		t.plain(textVoiceOff)
		return
	}
	var pref string
	if !t.apply(func(s *session.Session) { pref = s.VoicePreference }) {
		return
	}
	t.send(Message{Text: textVoicePicker, Markdown: true, Buttons: voicePicker(d.voice.Resolve(pref))})
}

func (d *Dispatcher) setVoice(t *turn) {
	v := t.ev.Button.Voice
	if !voice.Known(v) {
		d.prompt(t)
		return
	}
	if !t.apply(func(s *session.Session) { s.VoicePreference = v }) {
		return
	}
	t.show(Message{Text: fmt.Sprintf(textVoiceSet, v), Markdown: true, Buttons: voicePicker(v)})
}

// synthesize voices text with the learner's preferred voice.
func (d *Dispatcher) synthesize(t *turn, text string) ([]byte, error) {
	var pref string
	if !t.apply(func(s *session.Session) { pref = s.VoicePreference }) {
		return nil, errStale
	}
	return d.voice.Synthesize(t.ctx, text, pref)
}

var errStale = errors.New("turn is stale")

func (d *Dispatcher) generationFailed(t *turn, err error) {
	logger.LogEvent(t.ctx, logger.Tutor, slog.LevelWarn, "turn.generate",
		slog.String("status", "fail"),
		slog.String("transition", t.tr.name),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}
