package logger

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestComponentLoggerBeforeInit(t *testing.T) {
	prev := L
	L = nil
	defer func() { L = prev }()

	DB.Info(Background(), "db.connect")
	MIG.LogAttrs(Background(), slog.LevelError, "apply")
}

func TestComponentLoggerNamesComponent(t *testing.T) {
	var buf bytes.Buffer
	aw := newAsyncWriter([]io.Writer{&buf}, 1024)
	prev := L
	L = slog.New(newStructuredHandler(handlerConfig{level: slog.LevelDebug, writer: aw, format: formatKV}))
	defer func() { L = prev }()

	TWire.Warn(Background(), "register.command.skip", slog.String("cause", "empty_name"))
	Named("intake").Debug(Background(), "session.busy")
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "level=WARN component=tg.wire event=register.command.skip") {
		t.Fatalf("line = %s", lines[0])
	}
	if !strings.Contains(lines[1], "component=intake event=session.busy") {
		t.Fatalf("line = %s", lines[1])
	}
}
