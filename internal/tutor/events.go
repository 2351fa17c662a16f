package tutor

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// EventKind classifies an inbound event.
type EventKind int

const (
	EventCommand EventKind = iota
	EventButton
	EventText
	EventVoice
	// EventInvalid carries a payload the transport could not decode.
	EventInvalid
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventButton:
		return "button"
	case EventText:
		return "text"
	case EventVoice:
		return "voice"
	case EventInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Event is one decoded user action.
type Event struct {
	Kind    EventKind
	Command Command
	Button  Button
	Text    string
	Voice   Voice

	// FromVoice marks text produced by transcribing a voice message.
	FromVoice bool
	// FirstName is the sender's display name, used in greetings.
	FirstName string
}

// Command is a slash command without the slash.
type Command struct {
	Name string
	Args string
}

// Voice is a voice message whose audio is fetched on demand.
type Voice struct {
	Load func(ctx context.Context) ([]byte, error)
}

func CommandEvent(name, args string) Event {
	return Event{Kind: EventCommand, Command: Command{Name: name, Args: args}}
}

func ButtonEvent(b Button) Event { return Event{Kind: EventButton, Button: b} }

func TextEvent(text string) Event { return Event{Kind: EventText, Text: text} }

func VoiceEvent(load func(ctx context.Context) ([]byte, error)) Event {
	return Event{Kind: EventVoice, Voice: Voice{Load: load}}
}

// ParseCommand splits "/name@bot args" into a Command. ok is false when text
// is not a command.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}
	head, args, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	head = strings.ToLower(strings.TrimSpace(head))
	if head == "" {
		return Command{}, false
	}
	return Command{Name: head, Args: strings.TrimSpace(args)}, true
}

// ButtonKind names an inline button action.
type ButtonKind string

const (
	ButtonStartLesson    ButtonKind = "start_lesson"
	ButtonStartDialog    ButtonKind = "start_dialog"
	ButtonStartTranslate ButtonKind = "start_translate"
	ButtonAskQuestion    ButtonKind = "ask_question"
	ButtonBackToMenu     ButtonKind = "back_to_menu"
	ButtonTopic          ButtonKind = "topic"
	ButtonPhrase         ButtonKind = "phrase"
	ButtonListen         ButtonKind = "listen"
	ButtonSetVoice       ButtonKind = "set_voice"
)

// ButtonKinds lists every button kind.
var ButtonKinds = []ButtonKind{
	ButtonStartLesson, ButtonStartDialog, ButtonStartTranslate, ButtonAskQuestion,
	ButtonBackToMenu, ButtonTopic, ButtonPhrase, ButtonListen, ButtonSetVoice,
}

// Button is a decoded callback payload.
type Button struct {
	Kind  ButtonKind
	Topic string
	Index int
	Voice string
}

// ErrInvalidPayload is returned for callback data that does not decode.
var ErrInvalidPayload = errors.New("invalid callback payload")

// Unique is the telebot callback unique for the button.
func (b Button) Unique() string { return string(b.Kind) }

// Payload is the "|"-joined callback data after the unique.
func (b Button) Payload() []string {
	switch b.Kind {
	case ButtonTopic:
		return []string{b.Topic}
	case ButtonPhrase, ButtonListen:
		return []string{b.Topic, strconv.Itoa(b.Index)}
	case ButtonSetVoice:
		return []string{b.Voice}
	}
	return nil
}

// DecodeButton parses callback data. Both the telebot form
// "\f<unique>|<a>|<b>" and the plain underscore form "phrase_greetings_6"
// are accepted.
func DecodeButton(data string) (Button, error) {
	var (
		kind string
		args []string
	)
	if raw, ok := trimUniquePrefix(data); ok {
		var rest string
		kind, rest, _ = strings.Cut(raw, "|")
		if rest != "" {
			args = strings.Split(rest, "|")
		}
	} else {
		kind, args = splitLegacy(data)
	}
	return buildButton(ButtonKind(kind), args)
}

func trimUniquePrefix(data string) (string, bool) {
	if s, ok := strings.CutPrefix(data, "\f"); ok {
		return s, true
	}
	if s, ok := strings.CutPrefix(data, `\f`); ok {
		return s, true
	}
	return data, strings.Contains(data, "|")
}

func splitLegacy(data string) (string, []string) {
	switch ButtonKind(data) {
	case ButtonStartLesson, ButtonStartDialog, ButtonStartTranslate, ButtonAskQuestion, ButtonBackToMenu:
		return data, nil
	}
	if v, ok := strings.CutPrefix(data, "set_voice_"); ok {
		return string(ButtonSetVoice), []string{v}
	}
	if id, ok := strings.CutPrefix(data, "topic_"); ok {
		return string(ButtonTopic), []string{id}
	}
	for _, k := range []ButtonKind{ButtonPhrase, ButtonListen} {
		rest, ok := strings.CutPrefix(data, string(k)+"_")
		if !ok {
			continue
		}
		i := strings.LastIndex(rest, "_")
		if i < 0 {
			return string(k), []string{rest}
		}
		return string(k), []string{rest[:i], rest[i+1:]}
	}
	return data, nil
}

func buildButton(kind ButtonKind, args []string) (Button, error) {
	b := Button{Kind: kind}
	switch kind {
	case ButtonStartLesson, ButtonStartDialog, ButtonStartTranslate, ButtonAskQuestion, ButtonBackToMenu:
		if len(args) != 0 {
			return Button{}, ErrInvalidPayload
		}
	case ButtonTopic:
		if len(args) != 1 || args[0] == "" {
			return Button{}, ErrInvalidPayload
		}
		b.Topic = args[0]
	case ButtonPhrase, ButtonListen:
		if len(args) != 2 || args[0] == "" {
			return Button{}, ErrInvalidPayload
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return Button{}, ErrInvalidPayload
		}
		b.Topic, b.Index = args[0], n
	case ButtonSetVoice:
		if len(args) != 1 || args[0] == "" {
			return Button{}, ErrInvalidPayload
		}
		b.Voice = args[0]
	default:
		return Button{}, ErrInvalidPayload
	}
	return b, nil
}
