package helpers

import (
	"context"
	"errors"
	"testing"

	"github.com/m3rciful/tutorbot/core/telegram/sender"
)

func TestDeliverInlineWithoutDispatcher(t *testing.T) {
	SetDispatcher(nil)
	want := errors.New("boom")
	if err := Deliver(context.Background(), "send.text", "sendMessage", func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected inline error, got %v", err)
	}
}

func TestDeliverFallsBackWhenClosed(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1})
	d.Close()
	SetDispatcher(d)
	defer SetDispatcher(nil)

	ran := false
	if err := Deliver(context.Background(), "send.text", "sendMessage", func() error { ran = true; return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatalf("closed queue must run the job inline")
	}
}

func TestDeliverQueues(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1})
	SetDispatcher(d)
	defer SetDispatcher(nil)

	done := make(chan struct{})
	if err := Deliver(context.Background(), "send.text", "sendMessage", func() error { close(done); return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.Close()
	select {
	case <-done:
	default:
		t.Fatalf("queued job did not run before Close returned")
	}
}
