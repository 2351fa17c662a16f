package llm

import (
	"errors"
	"testing"
)

var verdictSchema = &Schema{
	Name: "test-verdict",
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

func TestValidateJSON(t *testing.T) {
	if _, err := ValidateJSON(verdictSchema, `{"correct":true,"explanation":"ok"}`); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
	bad := []string{
		`{"correct":"yes","explanation":"ok"}`,
		`{"correct":true}`,
		`{"correct":true,"explanation":"","extra":1}`,
		`not json`,
	}
	for _, doc := range bad {
		_, err := ValidateJSON(verdictSchema, doc)
		var inv *ErrInvalidResponse
		if !errors.As(err, &inv) {
			t.Fatalf("%s: expected ErrInvalidResponse, got %v", doc, err)
		}
	}
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"```{\"a\":1}```":         `{"a":1}`,
		`  {"a":1} `:              `{"a":1}`,
	}
	for in, want := range cases {
		if got := StripFences(in); got != want {
			t.Fatalf("StripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
