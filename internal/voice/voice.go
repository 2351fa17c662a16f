// Package voice converts text to speech and speech to text through
// external collaborators, with bounded timeouts and a disabled mode.
package voice

import (
	"context"
	"errors"
	"slices"
	"strings"
)

var (
	// ErrSynthesisFailed wraps every text-to-speech failure.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
	// ErrTranscriptionFailed wraps every speech-to-text failure.
	ErrTranscriptionFailed = errors.New("speech transcription failed")
)

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Transcriber turns encoded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, languageHint string) (string, error)
}

// Voices is the fixed table of selectable voice ids.
var Voices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// Known reports whether id is in the voice table.
func Known(id string) bool {
	return slices.Contains(Voices, id)
}

const (
	targetPortionMax = 100
	targetPortionMin = 5
)

// TargetPortion extracts the part of a tutor reply worth voicing: the text
// before the first "(" (where the translation starts), or the first 100
// runes when there is none. ok is false when the portion is too short.
func TargetPortion(reply string) (string, bool) {
	var part string
	if i := strings.Index(reply, "("); i >= 0 {
		part = strings.TrimSpace(reply[:i])
	} else {
		r := []rune(reply)
		if len(r) > targetPortionMax {
			r = r[:targetPortionMax]
		}
		part = strings.TrimSpace(string(r))
	}
	if len([]rune(part)) <= targetPortionMin {
		return "", false
	}
	return part, true
}
