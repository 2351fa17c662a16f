package llm

import (
	"errors"
	"fmt"
	"time"
)

// ErrGenerationFailed matches every failure returned by a Provider built in
// this package: errors.Is(err, ErrGenerationFailed) is the single check
// callers need.
var ErrGenerationFailed = errors.New("text generation failed")

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error        { return e.Err }
func (e *ErrRateLimit) Is(target error) bool { return target == ErrGenerationFailed }

// ErrInvalidResponse indicates output that does not match the requested schema.
type ErrInvalidResponse struct {
	Content string
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error        { return e.Err }
func (e *ErrInvalidResponse) Is(target error) bool { return target == ErrGenerationFailed }

// ErrProviderUnavailable indicates the provider is down, unreachable or timed out.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error        { return e.Err }
func (e *ErrProviderUnavailable) Is(target error) bool { return target == ErrGenerationFailed }

// ErrMaxTokensExceeded indicates a truncated response.
type ErrMaxTokensExceeded struct {
	Content string
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated: max tokens exceeded"
}

func (e *ErrMaxTokensExceeded) Is(target error) bool { return target == ErrGenerationFailed }

// classify labels err for logs.
func classify(err error) string {
	var (
		rl      *ErrRateLimit
		invalid *ErrInvalidResponse
		maxTok  *ErrMaxTokensExceeded
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rl):
		return "RATE_LIMIT"
	case errors.As(err, &invalid):
		return "INVALID_RESPONSE"
	case errors.As(err, &maxTok):
		return "MAX_TOKENS"
	default:
		return "PROVIDER_UNAVAILABLE"
	}
}
