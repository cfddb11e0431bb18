package keyboard

import "testing"

func TestOneTimeColumn(t *testing.T) {
	m := OneTimeColumn("Yes", "No")
	if !m.OneTimeKeyboard || !m.ResizeKeyboard {
		t.Fatalf("flags = %+v", m)
	}
	if len(m.ReplyKeyboard) != 2 || len(m.ReplyKeyboard[0]) != 1 {
		t.Fatalf("layout = %+v", m.ReplyKeyboard)
	}
	if m.ReplyKeyboard[0][0].Text != "Yes" || m.ReplyKeyboard[1][0].Text != "No" {
		t.Fatalf("labels = %+v", m.ReplyKeyboard)
	}
}

func TestRemoveKeyboard(t *testing.T) {
	if !RemoveKeyboard().RemoveKeyboard {
		t.Fatal("expected remove flag")
	}
}
