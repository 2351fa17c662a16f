package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/tutorbot/core/logger"
)

// Options configures a Bridge.
type Options struct {
	DefaultVoice string
	Language     string
	Timeout      time.Duration
}

// Bridge is the voice collaborator used by the tutor.
type Bridge struct {
	synth   Synthesizer
	trans   Transcriber
	opts    Options
	enabled bool
}

// NewBridge composes a synthesizer and a transcriber.
func NewBridge(s Synthesizer, t Transcriber, opts Options) *Bridge {
	if opts.DefaultVoice == "" || !Known(opts.DefaultVoice) {
		opts.DefaultVoice = Voices[0]
	}
	if opts.Language == "" {
		opts.Language = "uk"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	return &Bridge{synth: s, trans: t, opts: opts, enabled: s != nil && t != nil}
}

// Disabled returns a bridge whose every call fails with the documented sentinel.
func Disabled() *Bridge {
	return NewBridge(nil, nil, Options{})
}

func (b *Bridge) Enabled() bool { return b.enabled }

// Resolve maps a stored preference to a voice id, falling back to the default.
func (b *Bridge) Resolve(pref string) string {
	if Known(pref) {
		return pref
	}
	return b.opts.DefaultVoice
}

// Synthesize voices text with the preferred voice.
func (b *Bridge) Synthesize(ctx context.Context, text, pref string) ([]byte, error) {
	if !b.enabled {
		return nil, fmt.Errorf("%w: voice disabled", ErrSynthesisFailed)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrSynthesisFailed)
	}
	voiceID := b.Resolve(pref)

	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()
	start := time.Now()
	audio, err := b.synth.Synthesize(ctx, text, voiceID)
	if err == nil && len(audio) == 0 {
		err = fmt.Errorf("%w: empty audio", ErrSynthesisFailed)
	}
	if err != nil {
		err = ensure(err, ErrSynthesisFailed)
		b.log(ctx, "voice.synthesize", start, err, slog.String("voice", voiceID))
		return nil, err
	}
	b.log(ctx, "voice.synthesize", start, nil, slog.String("voice", voiceID), slog.Int("bytes", len(audio)))
	return audio, nil
}

// Transcribe converts a voice note to text using the configured language hint.
func (b *Bridge) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if !b.enabled {
		return "", fmt.Errorf("%w: voice disabled", ErrTranscriptionFailed)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio", ErrTranscriptionFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()
	start := time.Now()
	text, err := b.trans.Transcribe(ctx, audio, b.opts.Language)
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("%w: empty transcript", ErrTranscriptionFailed)
	}
	if err != nil {
		err = ensure(err, ErrTranscriptionFailed)
		b.log(ctx, "voice.transcribe", start, err, slog.Int("bytes", len(audio)))
		return "", err
	}
	b.log(ctx, "voice.transcribe", start, nil, slog.Int("bytes", len(audio)))
	return strings.TrimSpace(text), nil
}

// ensure makes err match sentinel.
func ensure(err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func (b *Bridge) log(ctx context.Context, event string, start time.Time, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.Duration("duration", logger.Took(start)))
	if err != nil {
		attrs = append(attrs, slog.String("status", "fail"), slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.LogEvent(ctx, logger.Voice, slog.LevelWarn, event, attrs...)
		return
	}
	attrs = append(attrs, slog.String("status", "ok"))
	logger.LogEvent(ctx, logger.Voice, slog.LevelInfo, event, attrs...)
}
