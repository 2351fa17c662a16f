package tutor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/m3rciful/tutorbot/internal/content"
	"github.com/m3rciful/tutorbot/internal/feedback"
	"github.com/m3rciful/tutorbot/internal/llm"
	"github.com/m3rciful/tutorbot/internal/session"
	"github.com/m3rciful/tutorbot/internal/voice"
)

const uid int64 = 42

type recorder struct {
	mu     sync.Mutex
	texts  []Message
	audios []Audio
}

func (r *recorder) Text(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, m)
	return nil
}

func (r *recorder) Audio(_ context.Context, a Audio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audios = append(r.audios, a)
	return nil
}

func (r *recorder) messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.texts...)
}

func (r *recorder) last() Message {
	msgs := r.messages()
	if len(msgs) == 0 {
		return Message{}
	}
	return msgs[len(msgs)-1]
}

func (r *recorder) contains(sub string) bool {
	for _, m := range r.messages() {
		if strings.Contains(m.Text, sub) {
			return true
		}
	}
	return false
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts, r.audios = nil, nil
}

type fakeSpeech struct {
	transcript string
	transErr   error
	synthErr   error
}

func (f *fakeSpeech) Enabled() bool { return true }

func (f *fakeSpeech) Resolve(pref string) string {
	if voice.Known(pref) {
		return pref
	}
	return "alloy"
}

func (f *fakeSpeech) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	return []byte("ogg:" + text), nil
}

func (f *fakeSpeech) Transcribe(context.Context, []byte) (string, error) {
	return f.transcript, f.transErr
}

type fakeGrader struct{ correct bool }

func (g fakeGrader) Check(_ context.Context, ex content.Exercise, answer string) feedback.Verdict {
	return feedback.Verdict{Correct: g.correct, Source: feedback.SourceJudge}
}

// echoProvider answers with the last user message.
type echoProvider struct{}

func (echoProvider) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	return &llm.Response{Text: "echo: " + req.Messages[len(req.Messages)-1].Content}, nil
}

func (echoProvider) ModelID() string { return "echo" }

func newDispatcher(t *testing.T, p llm.Provider, g Grader, sp Speech) *Dispatcher {
	t.Helper()
	cat, err := content.Default()
	if err != nil {
		t.Fatalf("content.Default: %v", err)
	}
	deps := Deps{Catalog: cat, LLM: p, Checker: g}
	if sp != nil {
		deps.Voice = sp
	}
	return New(deps, Options{AvoidRepeat: true, Seed: 7})
}

func snapshot(d *Dispatcher) session.Session {
	var out session.Session
	d.Store().With(uid, func(s *session.Session) { out = *s })
	return out
}

func setMode(d *Dispatcher, m session.Mode) {
	d.Store().With(uid, func(s *session.Session) { s.Mode = m })
}

func press(d *Dispatcher, r Renderer, b Button) {
	got, err := DecodeButton(encode(b))
	if err != nil {
		panic(err)
	}
	d.Handle(context.Background(), uid, ButtonEvent(got), r)
}

func command(d *Dispatcher, r Renderer, name, args string) {
	d.Handle(context.Background(), uid, CommandEvent(name, args), r)
}

func text(d *Dispatcher, r Renderer, s string) {
	d.Handle(context.Background(), uid, TextEvent(s), r)
}

func TestStartOnFreshSession(t *testing.T) {
	d := newDispatcher(t, echoProvider{}, fakeGrader{}, nil)
	r := &recorder{}

	ev := CommandEvent("start", "")
	ev.FirstName = "Олена"
	d.Handle(context.Background(), uid, ev, r)

	s := snapshot(d)
	if s.Mode != session.Choosing || s.CompletedTopics.Len() != 0 {
		t.Fatalf("fresh start: mode %v completed %v", s.Mode, s.CompletedTopics.List())
	}
	if s.TotalCount != 0 || s.Streak != 0 || d.Store().Len() != 1 {
		t.Fatalf("fresh start: total %d streak %d sessions %d", s.TotalCount, s.Streak, d.Store().Len())
	}
	m := r.last()
	if !strings.Contains(m.Text, "Привет, Олена!") || !m.Markdown || len(m.Buttons) != 4 {
		t.Fatalf("welcome = %+v", m)
	}
}

func TestLessonWalkthrough(t *testing.T) {
	d := newDispatcher(t, echoProvider{}, fakeGrader{}, nil)
	r := &recorder{}

	command(d, r, "start", "")
	if snapshot(d).Mode != session.Choosing || len(r.last().Buttons) != 4 {
		t.Fatalf("start: mode %v buttons %d", snapshot(d).Mode, len(r.last().Buttons))
	}

	press(d, r, Button{Kind: ButtonStartLesson})
	if got := snapshot(d).Mode; got != session.Lesson {
		t.Fatalf("mode = %v, want lesson", got)
	}
	m := r.last()
	if !m.Edit || len(m.Buttons) != d.catalog.Len()+1 {
		t.Fatalf("topic list edit=%v rows=%d", m.Edit, len(m.Buttons))
	}

	topic, _ := d.catalog.Topic("greetings")
	press(d, r, Button{Kind: ButtonTopic, Topic: "greetings"})
	if !strings.Contains(r.last().Text, "Фраза 1/") {
		t.Fatalf("phrase view = %q", r.last().Text)
	}
	for i := 1; i < len(topic.Phrases); i++ {
		press(d, r, Button{Kind: ButtonPhrase, Topic: "greetings", Index: i})
		if s := snapshot(d); s.PhraseIndex != i || s.CurrentTopic != "greetings" {
			t.Fatalf("after phrase %d: %+v", i, s)
		}
	}
	if snapshot(d).CompletedTopics.Has("greetings") {
		t.Fatal("topic completed before its end")
	}

	// Scenario A: the index one past the end completes the topic
	press(d, r, Button{Kind: ButtonPhrase, Topic: "greetings", Index: len(topic.Phrases)})
	s := snapshot(d)
	if !s.CompletedTopics.Has("greetings") || s.Mode != session.Lesson {
		t.Fatalf("completion: %+v", s)
	}
	if r.last().Text != textTopicDone {
		t.Fatalf("completion text = %q", r.last().Text)
	}

	press(d, r, Button{Kind: ButtonBackToMenu})
	if snapshot(d).Mode != session.Choosing {
		t.Fatal("back_to_menu did not return to choosing")
	}
}

func TestPhrasePastEndAndUnknownTopic(t *testing.T) {
	d := newDispatcher(t, echoProvider{}, fakeGrader{}, nil)
	r := &recorder{}
	setMode(d, session.Lesson)

	press(d, r, Button{Kind: ButtonPhrase, Topic: "cafe", Index: 99})
	if !snapshot(d).CompletedTopics.Has("cafe") || r.last().Text != textTopicDone {
		t.Fatalf("index past end did not complete topic: %q", r.last().Text)
	}

	press(d, r, Button{Kind: ButtonPhrase, Topic: "nope", Index: 0})
	s := snapshot(d)
	if s.CompletedTopics.Len() != 1 || s.CompletedTopics.Has("nope") {
		t.Fatalf("unknown topic changed completion: %v", s.CompletedTopics.List())
	}
	if r.last().Text != textTopicsHeader {
		t.Fatalf("unknown topic view = %q", r.last().Text)
	}
}

func TestTranslateCounters(t *testing.T) {
	g := &switchGrader{}
	d := newDispatcher(t, echoProvider{}, g, nil)
	r := &recorder{}

	command(d, r, "translate", "")
	s := snapshot(d)
	if s.Mode != session.Translate || s.Pending == nil {
		t.Fatalf("translate start: %+v", s)
	}
	posed := *s.Pending

	g.correct = true
	text(d, r, posed.Target)
	s = snapshot(d)
	if s.CorrectCount != 1 || s.TotalCount != 1 || s.Streak != 1 || s.Mode != session.Choosing || s.Pending != nil {
		t.Fatalf("after correct: %+v", s)
	}

	command(d, r, "translate", "")
	if snapshot(d).Pending.Native == posed.Native {
		t.Fatal("exercise repeated back to back")
	}
	g.correct = false
	text(d, r, "щось не те")
	s = snapshot(d)
	if s.CorrectCount != 1 || s.TotalCount != 2 || s.Streak != 0 {
		t.Fatalf("after incorrect: %+v", s)
	}
	if s.CorrectCount > s.TotalCount {
		t.Fatal("correct exceeds total")
	}
	if !strings.Contains(r.last().Text, "Не совсем так") {
		t.Fatalf("incorrect feedback = %q", r.last().Text)
	}
}

type switchGrader struct{ correct bool }

func (g *switchGrader) Check(context.Context, content.Exercise, string) feedback.Verdict {
	return feedback.Verdict{Correct: g.correct, Source: feedback.SourceFallback}
}

func TestTranslateWithJudgeFallback(t *testing.T) {
	p := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	d := newDispatcher(t, p, nil, nil)
	r := &recorder{}

	command(d, r, "translate", "")
	ex := *snapshot(d).Pending
	text(d, r, "  "+strings.ToUpper(ex.Target)+" ")

	s := snapshot(d)
	if s.CorrectCount != 1 || s.TotalCount != 1 {
		t.Fatalf("fallback verdict not applied: %+v", s)
	}
}

func TestSkipPosesNewExercise(t *testing.T) {
	d := newDispatcher(t, echoProvider{}, fakeGrader{}, nil)
	r := &recorder{}
	command(d, r, "translate", "")
	first := *snapshot(d).Pending
	command(d, r, "skip", "")
	s := snapshot(d)
	if s.Mode != session.Translate || s.Pending == nil || *s.Pending == first {
		t.Fatalf("skip: %+v", s)
	}
	if s.TotalCount != 0 {
		t.Fatal("skip counted as an answer")
	}
}

func TestVoiceInDialog(t *testing.T) {
	p := llm.NewMockProvider(llm.MockResponse{Text: "Привіт! Як справи? (Привет! Как дела?)"})
	sp := &fakeSpeech{transcript: "Привіт"}
	d := newDispatcher(t, p, fakeGrader{}, sp)
	r := &recorder{}

	command(d, r, "dialog", "")
	r.reset()
	d.Handle(context.Background(), uid, VoiceEvent(func(context.Context) ([]byte, error) {
		return []byte("ogg"), nil
	}), r)

	msgs := r.messages()
	if len(msgs) != 2 || !strings.Contains(msgs[0].Text, "Привіт") || !strings.HasPrefix(msgs[0].Text, "🎤") {
		t.Fatalf("messages = %+v", msgs)
	}
	if len(r.audios) != 1 || string(r.audios[0].Data) != "ogg:Привіт! Як справи?" {
		t.Fatalf("audio = %+v", r.audios)
	}
	s := snapshot(d)
	if s.Mode != session.Dialog || s.Dialog.Len() != 2 {
		t.Fatalf("dialog state: mode %v len %d", s.Mode, s.Dialog.Len())
	}
	last, _ := p.LastCall()
	if got := last.Messages; len(got) != 1 || got[0].Content != "Привіт" {
		t.Fatalf("prompt turns = %+v", got)
	}
}

func TestVoiceFailureLeavesStateAlone(t *testing.T) {
	sp := &fakeSpeech{transErr: voice.ErrTranscriptionFailed}
	d := newDispatcher(t, echoProvider{}, fakeGrader{}, sp)
	r := &recorder{}

	command(d, r, "translate", "")
	before := snapshot(d)
	r.reset()
	d.Handle(context.Background(), uid, VoiceEvent(func(context.Context) ([]byte, error) {
		return []byte("ogg"), nil
	}), r)

	after := snapshot(d)
	if after.Mode != session.Translate || after.TotalCount != 0 || *after.Pending != *before.Pending {
		t.Fatalf("state changed: %+v", after)
	}
	msgs := r.messages()
	if len(msgs) != 2 || msgs[0].Text != textVoiceFailed || !strings.Contains(msgs[1].Text, before.Pending.Native) {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestVoiceLoadFailure(t *testing.T) {
	d := newDispatcher(t, echoProvider{}, fakeGrader{}, &fakeSpeech{transcript: "x"})
	r := &recorder{}
	d.Handle(context.Background(), uid, VoiceEvent(func(context.Context) ([]byte, error) {
		return nil, errors.New("download failed")
	}), r)
	if r.messages()[0].Text != textVoiceFailed || snapshot(d).Mode != session.Choosing {
		t.Fatalf("messages = %+v", r.messages())
	}
}

func TestStopDialogKeepsBuffer(t *testing.T) {
	d := newDispatcher(t, echoProvider{}, fakeGrader{}, nil)
	r := &recorder{}

	command(d, r, "dialog", "")
	text(d, r, "Привіт")
	text(d, r, "Як справи?")
	before := snapshot(d)
	if before.Dialog.Len() != 4 {
		t.Fatalf("dialog len = %d", before.Dialog.Len())
	}

	command(d, r, "stop", "")
	s := snapshot(d)
	if s.Mode != session.Choosing || s.Dialog.Len() != 4 {
		t.Fatalf("after stop: mode %v len %d", s.Mode, s.Dialog.Len())
	}
	if s.Generation == before.Generation {
		t.Fatal("stop did not bump generation")
	}
	if r.last().Text != textDialogEnded {
		t.Fatalf("stop reply = %q", r.last().Text)
	}

	// entering again starts from an empty buffer
	command(d, r, "dialog", "")
	if n := snapshot(d).Dialog.Len(); n != 0 {
		t.Fatalf("buffer on entry = %d", n)
	}
}

func TestDialogWindowIsBounded(t *testing.T) {
	p := llm.NewMockProvider()
	for range 8 {
		p.AddResponse(llm.MockResponse{Text: "ok"})
	}
	d := newDispatcher(t, p, fakeGrader{}, nil)
	r := &recorder{}
	command(d, r, "dialog", "")
	for i := range 8 {
		text(d, r, strings.Repeat("a", i+1))
	}
	last, _ := p.LastCall()
	if got := len(last.Messages); got != 10 {
		t.Fatalf("prompt window = %d, want 10", got)
	}
}

func TestGenerationFailureSelfLoops(t *testing.T) {
	p := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrRateLimit{}},
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{}},
	)
	d := newDispatcher(t, p, fakeGrader{}, nil)
	r := &recorder{}

	command(d, r, "dialog", "")
	text(d, r, "Привіт")
	if snapshot(d).Mode != session.Dialog || r.last().Text != textDialogError {
		t.Fatalf("dialog failure: mode %v text %q", snapshot(d).Mode, r.last().Text)
	}

	setMode(d, session.Question)
	r.reset()
	text(d, r, "Чем отличается и от і?")
	msgs := r.messages()
	if len(msgs) != 2 || msgs[0].Text != textQuestionError || msgs[1].Text != textQuestionMore {
		t.Fatalf("question failure messages = %+v", msgs)
	}
	if snapshot(d).Mode != session.Question {
		t.Fatal("question failure left the mode")
	}
}

func TestCancelAndEnded(t *testing.T) {
	d := newDispatcher(t, echoProvider{}, fakeGrader{}, nil)
	r := &recorder{}
	command(d, r, "translate", "")
	command(d, r, "cancel", "")
	s := snapshot(d)
	if s.Mode != session.Ended || s.Pending != nil {
		t.Fatalf("cancel: %+v", s)
	}

	command(d, r, "lesson", "")
	if snapshot(d).Mode != session.Ended || r.last().Text != textEnded {
		t.Fatalf("ended accepted lesson: %q", r.last().Text)
	}
	command(d, r, "start", "")
	if snapshot(d).Mode != session.Choosing {
		t.Fatal("start did not leave ended")
	}
}

func TestProgressAndVoicePreference(t *testing.T) {
	d := newDispatcher(t, echoProvider{}, fakeGrader{}, &fakeSpeech{})
	r := &recorder{}

	command(d, r, "progress", "")
	if !strings.Contains(r.last().Text, "Пока нет пройденных тем") {
		t.Fatalf("progress = %q", r.last().Text)
	}

	command(d, r, "setvoice", "")
	if len(r.last().Buttons) != 3 {
		t.Fatalf("picker rows = %d", len(r.last().Buttons))
	}
	press(d, r, Button{Kind: ButtonSetVoice, Voice: "nova"})
	if snapshot(d).VoicePreference != "nova" {
		t.Fatal("voice preference not stored")
	}
	press(d, r, Button{Kind: ButtonSetVoice, Voice: "robot"})
	if snapshot(d).VoicePreference != "nova" {
		t.Fatal("unknown voice accepted")
	}

	command(d, r, "voice", "")
	if r.last().Text != textVoiceUsage {
		t.Fatalf("voice usage = %q", r.last().Text)
	}
	command(d, r, "voice", "Добрий день")
	if len(r.audios) != 1 || r.audios[0].Caption != "🔊 Добрий день" {
		t.Fatalf("audio = %+v", r.audios)
	}
}

func TestListenFailure(t *testing.T) {
	d := newDispatcher(t, echoProvider{}, fakeGrader{}, &fakeSpeech{synthErr: voice.ErrSynthesisFailed})
	r := &recorder{}
	setMode(d, session.Lesson)
	press(d, r, Button{Kind: ButtonListen, Topic: "greetings", Index: 0})
	if !strings.HasPrefix(r.last().Text, "⚠️") || r.last().Edit {
		t.Fatalf("listen failure = %+v", r.last())
	}
}

func TestAssistantInChoosing(t *testing.T) {
	d := newDispatcher(t, echoProvider{}, fakeGrader{}, &fakeSpeech{transcript: "як сказати дякую"})
	r := &recorder{}
	d.Handle(context.Background(), uid, VoiceEvent(func(context.Context) ([]byte, error) {
		return []byte("ogg"), nil
	}), r)
	msgs := r.messages()
	if len(msgs) != 3 || !strings.Contains(msgs[1].Text, "як сказати дякую") || len(msgs[2].Buttons) != 3 {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestInvalidEventRendersDefaultView(t *testing.T) {
	d := newDispatcher(t, echoProvider{}, fakeGrader{}, nil)
	r := &recorder{}
	d.Handle(context.Background(), uid, Event{Kind: EventInvalid}, r)
	if r.last().Text != textChooseAction {
		t.Fatalf("invalid event view = %q", r.last().Text)
	}
}

// Every (mode, event) pair renders something and leaves a valid mode.
func TestTableIsTotal(t *testing.T) {
	events := []Event{TextEvent("Привіт"), {Kind: EventInvalid}, CommandEvent("unknown", "")}
	for _, c := range Commands {
		events = append(events, CommandEvent(c.Name, "привіт"))
	}
	for _, b := range []Button{
		{Kind: ButtonStartLesson}, {Kind: ButtonStartDialog}, {Kind: ButtonStartTranslate},
		{Kind: ButtonAskQuestion}, {Kind: ButtonBackToMenu}, {Kind: ButtonTopic, Topic: "cafe"},
		{Kind: ButtonPhrase, Topic: "cafe", Index: 1}, {Kind: ButtonListen, Topic: "cafe", Index: 1},
		{Kind: ButtonSetVoice, Voice: "echo"},
	} {
		events = append(events, ButtonEvent(b))
	}
	events = append(events, VoiceEvent(func(context.Context) ([]byte, error) { return []byte("ogg"), nil }))

	if len(ButtonKinds) != 9 {
		t.Fatalf("button kinds = %d", len(ButtonKinds))
	}
	for _, mode := range session.Modes {
		for _, ev := range events {
			d := newDispatcher(t, echoProvider{}, fakeGrader{}, &fakeSpeech{transcript: "так"})
			r := &recorder{}
			setMode(d, mode)
			if mode == session.Translate {
				d.Store().With(uid, func(s *session.Session) { s.Pending = &d.catalog.Exercises[0] })
			}
			d.Handle(context.Background(), uid, ev, r)
			if len(r.messages())+len(r.audios) == 0 {
				t.Fatalf("mode %v event %v/%q rendered nothing", mode, ev.Kind, triggerOf(ev))
			}
			s := snapshot(d)
			if s.Mode < session.Choosing || s.Mode > session.Ended {
				t.Fatalf("mode %v event %q left invalid mode %v", mode, triggerOf(ev), s.Mode)
			}
			if s.CorrectCount > s.TotalCount {
				t.Fatalf("counter invariant broken: %+v", s)
			}
		}
	}
}
