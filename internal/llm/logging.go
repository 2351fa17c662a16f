package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/tutorbot/core/logger"
)

type contextKey string

const purposeKey contextKey = "llm_purpose"

// WithPurpose labels calls made with ctx (dialog, question, judge, ...).
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from ctx.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// LoggingProvider logs one structured line per Generate call.
type LoggingProvider struct {
	inner    Provider
	provider string
}

// WithLogging wraps p with request logging under the "llm" component.
func WithLogging(p Provider, providerName string) Provider {
	return &LoggingProvider{inner: p, provider: providerName}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	attrs := []slog.Attr{
		slog.String("provider", l.provider),
		slog.String("model", l.inner.ModelID()),
		slog.String("purpose", PurposeFrom(ctx)),
		slog.Int("messages", len(req.Messages)),
		slog.Duration("duration", logger.Took(start)),
	}
	if resp != nil {
		attrs = append(attrs,
			slog.Int("tokens_in", resp.Usage.InputTokens),
			slog.Int("tokens_out", resp.Usage.OutputTokens),
		)
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("status", "fail"),
			slog.String("err_code", classify(err)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		logger.LogEvent(ctx, logger.LLM, slog.LevelWarn, "llm.generate", attrs...)
		return nil, err
	}
	attrs = append(attrs, slog.String("status", "ok"))
	logger.LogEvent(ctx, logger.LLM, slog.LevelInfo, "llm.generate", attrs...)
	return resp, nil
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
