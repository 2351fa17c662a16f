package feedback

import (
	"context"
	"errors"
	"testing"

	"github.com/m3rciful/tutorbot/internal/content"
	"github.com/m3rciful/tutorbot/internal/llm"
	"github.com/m3rciful/tutorbot/internal/session"
)

var greeting = content.Exercise{Native: "Привет, как дела?", Target: "Привіт, як справи?", Hint: "Помни: е→і"}

func TestFallbackWhenJudgeUnavailable(t *testing.T) {
	c := NewChecker(llm.NewMockProvider(), 150)
	v := c.Check(context.Background(), greeting, "  привіт, ЯК справи?  ")
	if !v.Correct || v.Explanation != "" || v.Source != SourceFallback {
		t.Fatalf("unexpected verdict %+v", v)
	}
}

func TestJudgeVerdict(t *testing.T) {
	judge := llm.NewMockProvider(llm.MockResponse{Text: "```json\n{\"correct\": false, \"explanation\": \"Нужно 'і' вместо 'е'\"}\n```"})
	c := NewChecker(judge, 150)
	v := c.Check(context.Background(), greeting, "Привет, як справи?")
	if v.Correct || v.Source != SourceJudge || v.Explanation != "Нужно 'і' вместо 'е'" {
		t.Fatalf("unexpected verdict %+v", v)
	}
	req, _ := judge.LastCall()
	if req.Schema == nil || req.MaxTokens != 150 {
		t.Fatalf("judge request missing schema or token cap: %+v", req)
	}
}

func TestMalformedJudgeFallsBack(t *testing.T) {
	replies := []string{
		`{"correct": "yes"}`,
		`{"correct": true, "explanation": "ok", "score": 5}`,
		`правильно!`,
	}
	for _, reply := range replies {
		c := NewChecker(llm.NewMockProvider(llm.MockResponse{Text: reply}), 150)
		v := c.Check(context.Background(), greeting, "не то")
		if v.Correct || v.Source != SourceFallback || v.Explanation != "" {
			t.Fatalf("reply %q: unexpected verdict %+v", reply, v)
		}
	}
}

func TestJudgeErrorFallsBack(t *testing.T) {
	judge := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrRateLimit{Err: errors.New("429")}})
	v := NewChecker(judge, 0).Check(context.Background(), greeting, "Привіт, як справи?")
	if !v.Correct || v.Source != SourceFallback {
		t.Fatalf("unexpected verdict %+v", v)
	}
}

func TestNilJudge(t *testing.T) {
	v := NewChecker(nil, 0).Check(context.Background(), greeting, "x")
	if v.Correct || v.Source != SourceFallback {
		t.Fatalf("unexpected verdict %+v", v)
	}
}

func TestApplyCounters(t *testing.T) {
	s := &session.Session{}
	Apply(s, Verdict{Correct: true})
	Apply(s, Verdict{Correct: true})
	if s.CorrectCount != 2 || s.TotalCount != 2 || s.Streak != 2 {
		t.Fatalf("after two correct: %+v", s)
	}
	Apply(s, Verdict{Correct: false})
	if s.CorrectCount != 2 || s.TotalCount != 3 || s.Streak != 0 {
		t.Fatalf("after incorrect: correct=%d total=%d streak=%d", s.CorrectCount, s.TotalCount, s.Streak)
	}
	if s.CorrectCount > s.TotalCount {
		t.Fatal("correct count exceeds total")
	}
}
