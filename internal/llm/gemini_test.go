package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestBuildGeminiSchema(t *testing.T) {
	s := buildGeminiSchema(verdictSchema.Definition)
	if s.Type != genai.TypeObject {
		t.Fatalf("type = %v, want object", s.Type)
	}
	if s.Properties["correct"] == nil || s.Properties["correct"].Type != genai.TypeBoolean {
		t.Fatalf("correct property = %+v", s.Properties["correct"])
	}
	if len(s.Required) != 2 {
		t.Fatalf("required = %v", s.Required)
	}
}

func TestResolveModel(t *testing.T) {
	if got := resolveModel("claude-haiku", anthropicModels); got != "claude-haiku-4-5-20251001" {
		t.Fatalf("resolveModel = %q", got)
	}
	if got := resolveModel("custom-model", geminiModels); got != "custom-model" {
		t.Fatalf("unknown names should pass through, got %q", got)
	}
}
