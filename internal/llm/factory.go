package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/tutorbot/core/config"
)

// NewProvider builds the configured provider wrapped as
// caller → timeout → retry → logging → base.
func NewProvider(ctx context.Context, cfg coreconfig.LLMConfig) (Provider, error) {
	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case coreconfig.ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAIKey, cfg.BaseURL, cfg.Model)
	case coreconfig.ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.AnthropicKey, cfg.Model)
	case coreconfig.ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.GeminiKey, cfg.Model)
	case coreconfig.ProviderMock:
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	retry := DefaultRetryConfig()
	retry.MaxAttempts = cfg.RetryAttempts
	retry.InitialWait = time.Duration(cfg.RetryInitialMS) * time.Millisecond
	retry.MaxWait = time.Duration(cfg.RetryMaxWaitMS) * time.Millisecond

	p := WithLogging(base, cfg.Provider)
	p = WithRetry(p, retry)
	return WithTimeout(p, time.Duration(cfg.TimeoutSeconds)*time.Second), nil
}

// Complete is the plain-text contract used by the tutor: system prompt plus
// conversation turns in, reply text out. Every failure, including an empty
// reply, satisfies errors.Is(err, ErrGenerationFailed).
func Complete(ctx context.Context, p Provider, system string, turns []Message, maxTokens int, temperature float64) (string, error) {
	resp, err := p.Generate(ctx, Request{
		System:      system,
		Messages:    turns,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("complete: %w", asGenerationFailure(err))
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", &ErrInvalidResponse{Err: fmt.Errorf("empty completion")}
	}
	return text, nil
}

func asGenerationFailure(err error) error {
	if errors.Is(err, ErrGenerationFailed) {
		return err
	}
	return &ErrProviderUnavailable{Err: err}
}
