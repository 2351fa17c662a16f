package tutor

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/tutorbot/internal/llm"
	"github.com/m3rciful/tutorbot/internal/session"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func closeDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSubmitKeepsPerUserOrder(t *testing.T) {
	d := newDispatcher(t, echoProvider{}, fakeGrader{}, nil)
	r := &recorder{}
	setMode(d, session.Question)

	for i := range 5 {
		d.Submit(context.Background(), uid, TextEvent(fmt.Sprintf("q%d", i)), r)
	}
	waitFor(t, func() bool { return len(r.messages()) == 10 })
	closeDispatcher(t, d)

	var answers []string
	for _, m := range r.messages() {
		if strings.HasPrefix(m.Text, "echo: ") {
			answers = append(answers, strings.TrimPrefix(m.Text, "echo: "))
		}
	}
	if strings.Join(answers, ",") != "q0,q1,q2,q3,q4" {
		t.Fatalf("answers out of order: %v", answers)
	}
}

func TestStopPreemptsInflightDialog(t *testing.T) {
	p := llm.NewMockProvider(llm.MockResponse{Text: "Привіт!"})
	p.Block = make(chan struct{})
	defer close(p.Block)

	d := newDispatcher(t, p, fakeGrader{}, nil)
	r := &recorder{}
	command(d, r, "dialog", "")
	r.reset()

	d.Submit(context.Background(), uid, TextEvent("Привіт"), r)
	waitFor(t, func() bool { return p.CallCount() == 1 })

	// queued behind the blocked turn; dropped by /stop
	d.Submit(context.Background(), uid, TextEvent("Як справи?"), r)
	d.Submit(context.Background(), uid, CommandEvent("stop", ""), r)
	closeDispatcher(t, d)

	msgs := r.messages()
	if len(msgs) != 1 || msgs[0].Text != textDialogEnded {
		t.Fatalf("messages = %+v", msgs)
	}
	if p.CallCount() != 1 {
		t.Fatalf("stale queued turn reached the provider: %d calls", p.CallCount())
	}
	s := snapshot(d)
	if s.Mode != session.Choosing {
		t.Fatalf("mode = %v", s.Mode)
	}
	// the user turn of the cancelled exchange stays, no reply was applied
	if s.Dialog.Len() != 1 {
		t.Fatalf("dialog len = %d", s.Dialog.Len())
	}
}

func TestStopSupersedesQueuedEvents(t *testing.T) {
	release := make(chan struct{})
	loading := make(chan struct{})
	d := newDispatcher(t, echoProvider{}, fakeGrader{}, &fakeSpeech{transcript: "Привіт"})
	r := &recorder{}

	d.Submit(context.Background(), uid, VoiceEvent(func(context.Context) ([]byte, error) {
		close(loading)
		<-release
		return []byte("ogg"), nil
	}), r)
	<-loading
	d.Submit(context.Background(), uid, CommandEvent("dialog", ""), r)
	d.Submit(context.Background(), uid, CommandEvent("stop", ""), r)
	close(release)
	closeDispatcher(t, d)

	if got := snapshot(d).Mode; got != session.Choosing {
		t.Fatalf("voice, /dialog, /stop ended in mode %v, want choosing", got)
	}
	msgs := r.messages()
	if len(msgs) != 1 || msgs[0].Text != textChooseAction {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestStartPreemptsPendingTranslation(t *testing.T) {
	d := newDispatcher(t, echoProvider{}, &blockingGrader{release: make(chan struct{})}, nil)
	g := d.checker.(*blockingGrader)
	r := &recorder{}
	command(d, r, "translate", "")
	r.reset()

	d.Submit(context.Background(), uid, TextEvent("відповідь"), r)
	waitFor(t, g.started)
	d.Submit(context.Background(), uid, CommandEvent("start", ""), r)
	close(g.release)
	closeDispatcher(t, d)

	s := snapshot(d)
	if s.TotalCount != 0 || s.Mode != session.Choosing {
		t.Fatalf("stale verdict applied: %+v", s)
	}
	for _, m := range r.messages() {
		if strings.Contains(m.Text, "Правильно") || strings.Contains(m.Text, "Не совсем так") {
			t.Fatalf("stale feedback rendered: %q", m.Text)
		}
	}
}

func TestSubmitAfterClose(t *testing.T) {
	d := newDispatcher(t, echoProvider{}, fakeGrader{}, nil)
	closeDispatcher(t, d)
	r := &recorder{}
	d.Submit(context.Background(), uid, TextEvent("x"), r)
	time.Sleep(20 * time.Millisecond)
	if len(r.messages()) != 0 {
		t.Fatal("closed dispatcher handled an event")
	}
}
