package telegram

import (
	"errors"
	"testing"

	"github.com/m3rciful/tutorbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func nopHandler(tele.Context) error { return nil }

func TestRegistryListCommandsKeepsOrder(t *testing.T) {
	reg := NewRegistry()
	for _, tc := range []struct {
		name string
		cmd  commands.Command
	}{
		{"/start", commands.Command{Handler: nopHandler, Description: "menu"}},
		{"/lesson", commands.Command{Handler: nopHandler, Description: "lesson"}},
		{"/sessions", commands.Command{Handler: nopHandler, Description: "admin", AdminOnly: true}},
	} {
		if err := reg.RegisterCommand(tc.name, tc.cmd); err != nil {
			t.Fatalf("register %s: %v", tc.name, err)
		}
	}
	if err := reg.RegisterCommand("skip", commands.Command{Handler: nopHandler, Description: "no slash"}); !errors.Is(err, ErrInvalidRegistration) {
		t.Fatalf("expected ErrInvalidRegistration, got %v", err)
	}
	if err := reg.RegisterCommand("/start", commands.Command{Handler: nopHandler, Description: "duplicate"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	visible := reg.ListCommands(true)
	if len(visible) != 2 || visible[0].Text != "start" || visible[1].Text != "lesson" {
		t.Fatalf("unexpected visible commands: %+v", visible)
	}
	if all := reg.ListCommands(false); len(all) != 3 {
		t.Fatalf("expected 3 commands, got %+v", all)
	}
	if visible[0].Description != "menu" {
		t.Fatalf("duplicate registration must not replace the first")
	}
}

func TestRegistryLookupCommand(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCommand("/voice", commands.Command{Handler: nopHandler, Description: "tts", Aliases: []string{"say"}}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, in := range []string{"/voice", "voice", "/voice@TutorBot Привіт", "/VOICE", "/say", "/say@TutorBot"} {
		key, _, ok := reg.LookupCommand(in)
		if !ok || key != "/voice" {
			t.Fatalf("LookupCommand(%q) = %q, %v", in, key, ok)
		}
	}
	if _, _, ok := reg.LookupCommand("/nope"); ok {
		t.Fatalf("unknown command must not resolve")
	}
	if err := reg.RegisterCommand("/say", commands.Command{Handler: nopHandler, Description: "clash"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("command clashing with an alias must fail, got %v", err)
	}
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCallback("topic", nopHandler); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.RegisterCallback("topic", nopHandler); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate callback must fail, got %v", err)
	}
	if err := reg.RegisterCallback("", nopHandler); !errors.Is(err, ErrInvalidRegistration) {
		t.Fatalf("empty key must fail, got %v", err)
	}
	if _, ok := reg.GetCallback("topic"); !ok {
		t.Fatalf("registered callback not found")
	}
	if got := reg.ListCallbacks(); len(got) != 1 || got[0] != "topic" {
		t.Fatalf("unexpected callbacks %v", got)
	}
}
