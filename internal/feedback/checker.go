// Package feedback grades translation answers and keeps the score counters.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/tutorbot/core/logger"
	"github.com/m3rciful/tutorbot/internal/content"
	"github.com/m3rciful/tutorbot/internal/llm"
	"github.com/m3rciful/tutorbot/internal/session"
)

// Source tells which path produced a verdict.
type Source string

const (
	SourceJudge    Source = "judge"
	SourceFallback Source = "fallback"
)

// Verdict is the result of checking one answer.
type Verdict struct {
	Correct     bool
	Explanation string
	Source      Source
}

const judgeSystemPrompt = `Ты проверяешь перевод ученика с русского на украинский.
Ответь JSON: {"correct": true/false, "explanation": "краткое объяснение на русском"}
Будь гибким: небольшие опечатки или альтернативные формы допустимы.`

var verdictSchema = &llm.Schema{
	Name:        "translation-verdict",
	Description: "Whether the learner's translation is acceptable, with a short explanation in Russian.",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correct":     map[string]any{"type": "boolean"},
			"explanation": map[string]any{"type": "string"},
		},
		"required":             []string{"correct", "explanation"},
		"additionalProperties": false,
	},
}

type judgeVerdict struct {
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation"`
}

// Checker consults an LLM judge and falls back to exact matching.
type Checker struct {
	judge     llm.Provider
	maxTokens int
}

// NewChecker builds a checker; a nil judge always uses the fallback.
func NewChecker(judge llm.Provider, maxTokens int) *Checker {
	if maxTokens <= 0 {
		maxTokens = 150
	}
	return &Checker{judge: judge, maxTokens: maxTokens}
}

// Check grades answer against the exercise. It never fails.
func (c *Checker) Check(ctx context.Context, ex content.Exercise, answer string) Verdict {
	if c.judge != nil {
		v, err := c.askJudge(ctx, ex, answer)
		if err == nil {
			return v
		}
		logger.LogEvent(ctx, logger.Tutor, slog.LevelWarn, "feedback.fallback",
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
	return Fallback(ex.Target, answer)
}

// Fallback compares trimmed, case-folded strings.
func Fallback(expected, actual string) Verdict {
	return Verdict{
		Correct: normalize(expected) == normalize(actual),
		Source:  SourceFallback,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (c *Checker) askJudge(ctx context.Context, ex content.Exercise, answer string) (Verdict, error) {
	prompt := fmt.Sprintf("Русский: '%s'\nПравильный ответ: '%s'\nОтвет ученика: '%s'",
		ex.Native, normalize(ex.Target), normalize(answer))

	resp, err := c.judge.Generate(llm.WithPurpose(ctx, "judge"), llm.Request{
		System:    judgeSystemPrompt,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Schema:    verdictSchema,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return Verdict{}, err
	}
	jv, err := decodeVerdict(resp.Text)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{Correct: jv.Correct, Explanation: strings.TrimSpace(jv.Explanation), Source: SourceJudge}, nil
}

// decodeVerdict strictly parses a judge reply, tolerating a markdown code fence.
func decodeVerdict(text string) (judgeVerdict, error) {
	text = llm.StripFences(text)
	if _, err := llm.ValidateJSON(verdictSchema, text); err != nil {
		return judgeVerdict{}, err
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.DisallowUnknownFields()
	var jv judgeVerdict
	if err := dec.Decode(&jv); err != nil {
		return judgeVerdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	return jv, nil
}

// Apply records a graded answer on the session counters.
func Apply(s *session.Session, v Verdict) {
	s.TotalCount++
	if v.Correct {
		s.CorrectCount++
		s.Streak++
		return
	}
	s.Streak = 0
}
