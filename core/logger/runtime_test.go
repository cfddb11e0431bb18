package logger

import (
	"context"
	"testing"
)

func TestContextMetaIsCopiedNotShared(t *testing.T) {
	base := WithUpdateMeta(WithRID(context.Background(), "1:2:3"), 1, 3, 2)
	child := WithHandler(base, "start")

	if HandlerFrom(base) != "" {
		t.Fatal("handler leaked into the parent context")
	}
	if HandlerFrom(child) != "start" || RIDFrom(child) != "1:2:3" {
		t.Fatalf("child lost fields: %q %q", HandlerFrom(child), RIDFrom(child))
	}
	if UpdateIDFrom(child) != 1 || UserIDFrom(child) != 3 || ChatIDFrom(child) != 2 {
		t.Fatalf("ids = %d/%d/%d", UpdateIDFrom(child), UserIDFrom(child), ChatIDFrom(child))
	}
	if WithHandler(child, "") != child {
		t.Fatal("empty handler must return ctx unchanged")
	}

	var nilCtx context.Context
	if RIDFrom(nilCtx) != "" || ChatIDFrom(nilCtx) != 0 || FromContext(nilCtx) != L {
		t.Fatal("nil context must read as empty")
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := Sanitize("a\x00b\u200bc\td\n\x7f"); got != "abc\td\n" {
		t.Fatalf("Sanitize = %q", got)
	}
	if got := SanitizeLimit("привет", 3); got != "при" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("ok", 10); got != "ok" {
		t.Fatalf("SanitizeLimit short = %q", got)
	}
	if SanitizeLimit("x", 0) != "" {
		t.Fatal("zero limit must be empty")
	}
}

func TestCompactRID(t *testing.T) {
	if got := CompactRID(BuildRID(36, 71, 1295)); got != "10.1z.zz" {
		t.Fatalf("CompactRID = %q", got)
	}
	if got := CompactRID(" not-a-rid "); got != "not-a-rid" {
		t.Fatalf("CompactRID passthrough = %q", got)
	}
	if got := CompactRID("1:-5:2"); got != "1.-5.2" {
		t.Fatalf("CompactRID negative = %q", got)
	}
}
