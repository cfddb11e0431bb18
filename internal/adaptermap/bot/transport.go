// Package bot adapts the intake dialogue to Telegram.
package bot

import (
	"context"
	"errors"

	tghelpers "github.com/m3rciful/adaptermap/core/telegram/helpers"
	"github.com/m3rciful/adaptermap/core/telegram/keyboard"
	"github.com/m3rciful/adaptermap/core/telegram/middleware"
	"github.com/m3rciful/adaptermap/internal/intake"

	tele "gopkg.in/telebot.v4"
)

type updateKey struct{}

// withUpdate remembers the update being handled so replies to its chat go
// through the update's context.
func withUpdate(ctx context.Context, c tele.Context) context.Context {
	return context.WithValue(ctx, updateKey{}, c)
}

func updateFrom(ctx context.Context) (tele.Context, bool) {
	c, ok := ctx.Value(updateKey{}).(tele.Context)
	return c, ok && c != nil
}

// Transport delivers intake replies as MarkdownV2 messages.
type Transport struct {
	api tghelpers.MessageSender
}

// ErrUnbound is returned for chat-addressed sends before Bind.
var ErrUnbound = errors.New("bot: transport has no bot bound")

// NewTransport sends through api, normally the *tele.Bot. api may be nil when
// the bot does not exist yet; Bind it before the first update or sweep.
func NewTransport(api tghelpers.MessageSender) *Transport {
	return &Transport{api: api}
}

// Bind sets the bot used for sends outside an update. It is not safe to call
// concurrently with Send.
func (t *Transport) Bind(api tghelpers.MessageSender) {
	t.api = api
}

// Markup renders reply buttons as a vertical one-time keyboard, or removes
// any keyboard left from an earlier prompt.
func Markup(reply intake.Reply) *tele.ReplyMarkup {
	if len(reply.Buttons) == 0 {
		return keyboard.RemoveKeyboard()
	}
	return keyboard.OneTimeColumn(reply.Buttons...)
}

// Send implements intake.Transport.
func (t *Transport) Send(ctx context.Context, chatID int64, reply intake.Reply) error {
	markup := Markup(reply)
	if c, ok := updateFrom(ctx); ok {
		if chat := c.Chat(); chat != nil && chat.ID == chatID {
			middleware.CountReply(c, len(reply.Buttons) > 0)
			return tghelpers.SendMDV2(c, reply.Text, markup)
		}
	}
	if t.api == nil {
		return ErrUnbound
	}
	return tghelpers.SendMDV2To(ctx, t.api, chatID, reply.Text, markup)
}
