package format

import "testing"

func TestEscapeMarkdownV2(t *testing.T) {
	got, err := EscapeMarkdown("Dr. J_Doe (ok)!", MarkdownV2, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `Dr\. J\_Doe \(ok\)\!`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if V2("a-b\\c") != `a\-b\\c` {
		t.Fatalf("V2 = %q", V2("a-b\\c"))
	}
}

func TestEscapeMarkdownV2LeavesPlainPunctuation(t *testing.T) {
	in := "Live sessions: 3, 10/20; a<b @x"
	if got := V2(in); got != in {
		t.Fatalf("V2(%q) = %q, want unchanged", in, got)
	}
	if got := V2("+-="); got != `\+\-\=` {
		t.Fatalf("V2(+-=) = %q", got)
	}
}

func TestEscapeMarkdownCodeEntity(t *testing.T) {
	got, _ := EscapeMarkdown("x.y `z`", MarkdownV2, EntityCode)
	if got != "x.y \\`z\\`" {
		t.Fatalf("got %q", got)
	}
}

func TestEscapeMarkdownV1(t *testing.T) {
	got, _ := EscapeMarkdown("a_b*c", MarkdownV1, "")
	if got != `a\_b\*c` {
		t.Fatalf("got %q", got)
	}
	if _, err := EscapeMarkdown("x", 3, ""); err == nil {
		t.Fatal("expected error for unknown version")
	}
}
