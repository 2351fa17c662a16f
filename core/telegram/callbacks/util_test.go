package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestSplitData(t *testing.T) {
	cases := []struct {
		in, key, payload string
	}{
		{"\fphrase|greetings|2", "phrase", "greetings|2"},
		{`\fphrase|greetings|2`, "phrase", "greetings|2"},
		{"\fstart_lesson", "start_lesson", ""},
		{"phrase_greetings_6", "phrase_greetings_6", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		key, payload := SplitData(tc.in)
		if key != tc.key || payload != tc.payload {
			t.Fatalf("SplitData(%q) = %q, %q; want %q, %q", tc.in, key, payload, tc.key, tc.payload)
		}
	}
}

func TestParseCallbackDataPrefersUnique(t *testing.T) {
	key, payload := ParseCallbackData(&tele.Callback{Unique: "topic", Data: "food"})
	if key != "topic" || payload != "food" {
		t.Fatalf("got %q, %q", key, payload)
	}
	if key, payload := ParseCallbackData(nil); key != "" || payload != "" {
		t.Fatalf("nil callback: got %q, %q", key, payload)
	}
}
