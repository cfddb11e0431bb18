package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/adaptermap/core/logger"
	tghelpers "github.com/m3rciful/adaptermap/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// seenUpdates remembers update ids for a short window so a receipt is logged
// once even when the middleware runs on more than one handler chain.
type seenUpdates struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[int]time.Time
}

func newSeenUpdates(ttl time.Duration) *seenUpdates {
	return &seenUpdates{ttl: ttl, seen: make(map[int]time.Time)}
}

// first reports whether id is new, recording it at now.
func (s *seenUpdates) first(id int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for old, at := range s.seen {
		if now.Sub(at) > s.ttl {
			delete(s.seen, old)
		}
	}
	if _, dup := s.seen[id]; dup {
		return false
	}
	s.seen[id] = now
	return true
}

var receipts = newSeenUpdates(10 * time.Second)

// LoggerMiddleware stamps the update with a rid and start time, caches its
// context and writes a sampled debug receipt.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		var chatID, userID int64
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		if user := c.Sender(); user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set(tghelpers.RIDKey, rid)
		c.Set(tghelpers.StartKey, time.Now())

		ctx := tghelpers.UpdateContext(c)
		tghelpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() && receipts.first(upd.ID, time.Now()) {
			logReceipt(ctx, c)
		}
		return next(c)
	}
}

func logReceipt(ctx context.Context, c tele.Context) {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}
	if msg := c.Update().Message; msg != nil {
		attrs = append(attrs, slog.String("payload", messagePayload(msg)))
	}
	logger.TG.Debug(ctx, "update.received", attrs...)
}

// messagePayload summarizes a message for the receipt log. Coordinates are
// reduced to their presence so positions never reach the logs.
func messagePayload(msg *tele.Message) string {
	switch {
	case msg.Text != "":
		return logger.SanitizeLimit(msg.Text, 256)
	case msg.Venue != nil:
		return "<venue>"
	case msg.Location != nil:
		return "<location>"
	case msg.Sticker != nil:
		return "<sticker>"
	case msg.Contact != nil:
		return "<contact>"
	case msg.Photo != nil, msg.Document != nil, msg.Video != nil, msg.Audio != nil, msg.Voice != nil:
		return "<media>"
	}
	return "<other>"
}
