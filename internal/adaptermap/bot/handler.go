package bot

import (
	"context"
	"log/slog"

	"github.com/m3rciful/adaptermap/core/logger"
	tghelpers "github.com/m3rciful/adaptermap/core/telegram/helpers"
	"github.com/m3rciful/adaptermap/core/telegram/router"
	"github.com/m3rciful/adaptermap/internal/intake"
	"github.com/m3rciful/adaptermap/internal/records"

	tele "gopkg.in/telebot.v4"
)

// Dialogue is the part of the intake engine the handler drives.
type Dialogue interface {
	HandleEvent(ctx context.Context, ev intake.Event) intake.Effect
}

// Handler feeds Telegram messages into the dialogue.
type Handler struct {
	dialogue Dialogue
}

// NewHandler wraps a dialogue engine.
func NewHandler(d Dialogue) *Handler {
	return &Handler{dialogue: d}
}

// EventFrom reduces a Telegram message to a dialogue event. It reports false
// for updates without a message or a human sender.
func EventFrom(c tele.Context) (intake.Event, bool) {
	msg := c.Message()
	user := c.Sender()
	if msg == nil || user == nil || user.IsBot || msg.Chat == nil {
		return intake.Event{}, false
	}
	ev := intake.Event{
		UserID:    user.ID,
		ChatID:    msg.Chat.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		Text:      msg.Text,
	}
	switch {
	case msg.Location != nil:
		ev.Location = location(*msg.Location)
	case msg.Venue != nil:
		ev.Location = location(msg.Venue.Location)
	}
	return ev, true
}

func location(l tele.Location) *records.Location {
	return &records.Location{Latitude: float64(l.Lat), Longitude: float64(l.Lng)}
}

// Handle is the tele.HandlerFunc for every message kind and for /start.
func (h *Handler) Handle(c tele.Context) error {
	ev, ok := EventFrom(c)
	if !ok {
		logger.TG.Debug(tghelpers.BuildContext(c), "update.skip",
			slog.String("status", "skip"),
			slog.String("cause", "no_sender"),
		)
		return nil
	}
	ctx := withUpdate(tghelpers.BuildContext(c), c)
	effect := h.dialogue.HandleEvent(ctx, ev)
	c.Set(router.EffectKey, effect.String())
	return nil
}
