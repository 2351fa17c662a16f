package voice

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeSynth struct {
	audio []byte
	err   error
	voice string
	delay time.Duration
}

func (f *fakeSynth) Synthesize(ctx context.Context, _ string, voiceID string) ([]byte, error) {
	f.voice = voiceID
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.audio, f.err
}

type fakeTrans struct {
	text string
	err  error
	lang string
}

func (f *fakeTrans) Transcribe(_ context.Context, _ []byte, lang string) (string, error) {
	f.lang = lang
	return f.text, f.err
}

func TestTargetPortion(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Привіт! Як справи? (Привет! Как дела?)", "Привіт! Як справи?", true},
		{"Так (Да)", "", false},
		{"Дуже добре, молодець!", "Дуже добре, молодець!", true},
		{strings.Repeat("я", 150), strings.Repeat("я", 100), true},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := TargetPortion(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("TargetPortion(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestBridgeResolveVoice(t *testing.T) {
	synth := &fakeSynth{audio: []byte("ogg")}
	b := NewBridge(synth, &fakeTrans{}, Options{DefaultVoice: "nova"})
	if _, err := b.Synthesize(context.Background(), "Привіт", "bogus"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if synth.voice != "nova" {
		t.Fatalf("voice = %q, want default nova", synth.voice)
	}
	if _, err := b.Synthesize(context.Background(), "Привіт", "onyx"); err != nil || synth.voice != "onyx" {
		t.Fatalf("preference not used: voice=%q err=%v", synth.voice, err)
	}
}

func TestBridgeFailuresWrapSentinels(t *testing.T) {
	b := NewBridge(&fakeSynth{err: errors.New("quota")}, &fakeTrans{text: "   "}, Options{})
	if _, err := b.Synthesize(context.Background(), "Привіт", ""); !errors.Is(err, ErrSynthesisFailed) {
		t.Fatalf("expected ErrSynthesisFailed, got %v", err)
	}
	if _, err := b.Transcribe(context.Background(), []byte("ogg")); !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("empty transcript should fail, got %v", err)
	}
}

func TestBridgeTimeout(t *testing.T) {
	b := NewBridge(&fakeSynth{audio: []byte("x"), delay: time.Second}, &fakeTrans{}, Options{Timeout: 5 * time.Millisecond})
	_, err := b.Synthesize(context.Background(), "Привіт", "")
	if !errors.Is(err, ErrSynthesisFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout synthesis failure, got %v", err)
	}
}

func TestBridgeDisabled(t *testing.T) {
	b := Disabled()
	if b.Enabled() {
		t.Fatal("disabled bridge reports enabled")
	}
	if _, err := b.Synthesize(context.Background(), "x", ""); !errors.Is(err, ErrSynthesisFailed) {
		t.Fatalf("got %v", err)
	}
	if _, err := b.Transcribe(context.Background(), []byte("x")); !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("got %v", err)
	}
}

func TestBridgeTranscribeLanguageHint(t *testing.T) {
	trans := &fakeTrans{text: " Привіт "}
	b := NewBridge(&fakeSynth{}, trans, Options{})
	text, err := b.Transcribe(context.Background(), []byte("ogg"))
	if err != nil || text != "Привіт" {
		t.Fatalf("Transcribe = %q, %v", text, err)
	}
	if trans.lang != "uk" {
		t.Fatalf("language hint = %q, want uk", trans.lang)
	}
}

func TestOpenAIClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/audio/speech":
			w.Header().Set("Content-Type", "audio/ogg")
			_, _ = io.WriteString(w, "OggS-audio")
		case "/v1/audio/transcriptions":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if r.FormValue("language") != "uk" {
				http.Error(w, "missing language", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"text":"Добрий день"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client, err := NewOpenAI("test-key", server.URL+"/v1", "tts-1", "whisper-1")
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	audio, err := client.Synthesize(context.Background(), "Привіт", "alloy")
	if err != nil || string(audio) != "OggS-audio" {
		t.Fatalf("Synthesize = %q, %v", audio, err)
	}
	text, err := client.Transcribe(context.Background(), []byte("OggS"), "uk")
	if err != nil || text != "Добрий день" {
		t.Fatalf("Transcribe = %q, %v", text, err)
	}
}
