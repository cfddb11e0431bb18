package helpers

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/adaptermap/core/logger"
	"github.com/m3rciful/adaptermap/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

// Enqueue runs fn on the dispatcher, or inline when none is wired. A job the
// dispatcher refuses is dropped and logged: running it inline would overtake
// the jobs already queued for the same chat.
func Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	err := disp.Enqueue(ctx, action, endpoint, run)
	if err != nil {
		logger.Sender.Warn(ctx, "send.drop",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
	}
	return err
}

func mdV2Options(markup []*tele.ReplyMarkup) *tele.SendOptions {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return &tele.SendOptions{ParseMode: tele.ModeMarkdownV2, ReplyMarkup: rm}
}

// SendMDV2 replies in the current chat with MarkdownV2 parse mode and optional reply markup.
func SendMDV2(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := mdV2Options(markup)
	return Enqueue(BuildContext(c), "send.text", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// MessageSender is the part of *tele.Bot used for chat-addressed sends.
type MessageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// SendMDV2To sends a MarkdownV2 message to chatID outside of any update,
// e.g. from a background task.
func SendMDV2To(ctx context.Context, api MessageSender, chatID int64, text string, markup ...*tele.ReplyMarkup) error {
	opts := mdV2Options(markup)
	return Enqueue(ctx, "send.notice", "sendMessage", func() error {
		_, err := api.Send(tele.ChatID(chatID), text, opts)
		return err
	})
}
