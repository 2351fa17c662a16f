package tutor

import "context"

// Renderer delivers tutor output to the learner's chat.
type Renderer interface {
	Text(ctx context.Context, m Message) error
	Audio(ctx context.Context, a Audio) error
}

// Message is a text reply with an optional inline keyboard.
type Message struct {
	Text string
	// Markdown selects the legacy Markdown parse mode.
	Markdown bool
	Buttons  [][]Key
	// Edit replaces the message that carried the pressed button.
	Edit bool
}

// Key is one labelled inline button.
type Key struct {
	Label  string
	Button Button
}

// Audio is a voice note.
type Audio struct {
	Data    []byte
	Caption string
}

func row(keys ...Key) []Key { return keys }

func key(label string, b Button) Key { return Key{Label: label, Button: b} }
