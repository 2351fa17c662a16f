package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI implements Synthesizer and Transcriber with the audio endpoints.
type OpenAI struct {
	client   *openai.Client
	ttsModel string
	sttModel string
}

// NewOpenAI creates a client; baseURL may point at a compatible endpoint.
func NewOpenAI(apiKey, baseURL, ttsModel, sttModel string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("voice API key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if ttsModel == "" {
		ttsModel = string(openai.TTSModel1)
	}
	if sttModel == "" {
		sttModel = openai.Whisper1
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), ttsModel: ttsModel, sttModel: sttModel}, nil
}

// Synthesize returns Opus audio so Telegram shows it as a voice note.
func (o *OpenAI) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.ttsModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voiceID),
		ResponseFormat: openai.SpeechResponseFormatOpus,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: read audio: %w", ErrSynthesisFailed, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio", ErrSynthesisFailed)
	}
	return audio, nil
}

// Transcribe uploads Telegram's OGG/Opus voice note as-is.
func (o *OpenAI) Transcribe(ctx context.Context, audio []byte, languageHint string) (string, error) {
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.sttModel,
		FilePath: "voice.ogg",
		Reader:   bytes.NewReader(audio),
		Language: languageHint,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}
	return strings.TrimSpace(resp.Text), nil
}
