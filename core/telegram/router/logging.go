package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/adaptermap/core/logger"
	tghelpers "github.com/m3rciful/adaptermap/core/telegram/helpers"
	"github.com/m3rciful/adaptermap/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// EffectKey is the tele.Context key a handler may set to report what the
// update did; the summary line carries it as "effect".
const EffectKey = "effect"

// summarized wraps h so every call ends with one "handler.handled" line
// carrying the outcome, reply counters and timings.
func summarized(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		ctx := tghelpers.WithHandler(c, name)
		err := h(c)

		msgs, kb := middleware.GetCounters(c)
		status := "ok"
		if err != nil {
			status = "fail"
		}
		attrs := []slog.Attr{
			slog.String("status", status),
			slog.String("outcome", status),
			slog.Int("messages", msgs),
			slog.Bool("kb", kb),
			slog.Duration("duration", logger.Took(start)),
		}
		if received, ok := c.Get(tghelpers.StartKey).(time.Time); ok {
			attrs = append(attrs, slog.Duration("update", logger.Took(received)))
		}
		if effect, _ := c.Get(EffectKey).(string); effect != "" {
			attrs = append(attrs, slog.String("effect", effect))
		}
		if err != nil {
			attrs = append(attrs,
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
				slog.String("err_code", errorCode(err)),
				slog.String("cause", name),
			)
		}
		logger.TG.Info(ctx, "handler.handled", attrs...)
		return err
	}
}

func normalizeHandlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// errorCode prefers an error's own Code() and otherwise uses its type name,
// both upper snake case.
func errorCode(err error) string {
	var coder interface{ Code() string }
	if errors.As(err, &coder) {
		if code := strings.TrimSpace(coder.Code()); code != "" {
			return upperSnake(code)
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return upperSnake(t.Name())
}

func upperSnake(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", "_"))
}
