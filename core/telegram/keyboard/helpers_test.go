package keyboard

import "testing"

func TestInlineButtonsRowsEncodesData(t *testing.T) {
	m := InlineButtonsRows(
		[]InlineBtn{{Text: "Next", Unique: "phrase", Data: []string{"greetings", "3"}}},
		nil,
		[]InlineBtn{{Text: "Back", Unique: "back_to_menu"}},
	)
	if m == nil || len(m.InlineKeyboard) != 2 {
		t.Fatalf("expected two rows, got %+v", m)
	}
	next := m.InlineKeyboard[0][0]
	if next.Unique != "phrase" || next.Data != "greetings|3" {
		t.Fatalf("unexpected button unique %q data %q", next.Unique, next.Data)
	}
	back := m.InlineKeyboard[1][0]
	if back.Unique != "back_to_menu" || back.Data != "" {
		t.Fatalf("unexpected button unique %q data %q", back.Unique, back.Data)
	}
}

func TestInlineButtonsRowsEmpty(t *testing.T) {
	if m := InlineButtonsRows(); m != nil {
		t.Fatalf("expected nil markup, got %+v", m)
	}
}
