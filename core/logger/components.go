package logger

import (
	"context"
	"log/slog"
)

// ComponentLogger logs under a fixed component name. The zero setup is safe:
// before InitLogger every call is a no-op.
type ComponentLogger string

// Component loggers of the core runtime.
var (
	APP    = Named("app")
	TG     = Named("tg")
	TWire  = Named("tg.wire")
	Sender = Named("tg.sender")
	DB     = Named("db")
	MIG    = Named("db.migrate")
)

// Named returns the logger for a component.
func Named(component string) ComponentLogger {
	return ComponentLogger(component)
}

func (c ComponentLogger) Debug(ctx context.Context, event string, attrs ...slog.Attr) {
	Event(ctx, string(c), slog.LevelDebug, event, attrs...)
}

func (c ComponentLogger) Info(ctx context.Context, event string, attrs ...slog.Attr) {
	Event(ctx, string(c), slog.LevelInfo, event, attrs...)
}

func (c ComponentLogger) Warn(ctx context.Context, event string, attrs ...slog.Attr) {
	Event(ctx, string(c), slog.LevelWarn, event, attrs...)
}

func (c ComponentLogger) Error(ctx context.Context, event string, attrs ...slog.Attr) {
	Event(ctx, string(c), slog.LevelError, event, attrs...)
}

// LogAttrs logs at an explicit level, mirroring slog.Logger.LogAttrs.
func (c ComponentLogger) LogAttrs(ctx context.Context, level slog.Level, event string, attrs ...slog.Attr) {
	Event(ctx, string(c), level, event, attrs...)
}
