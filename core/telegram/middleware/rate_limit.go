package middleware

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/adaptermap/core/logger"
	tghelpers "github.com/m3rciful/adaptermap/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// pruneAt is the tracked-user count above which stale entries are dropped.
const pruneAt = 4096

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// UpdateKind names the update for exclusion matching and logs.
func UpdateKind(upd tele.Update) string {
	msg := upd.Message
	switch {
	case msg == nil:
		return "other"
	case strings.HasPrefix(msg.Text, "/"):
		return "command"
	case msg.Location != nil || msg.Venue != nil:
		return "location"
	}
	return "message"
}

// RateLimitMiddleware returns a middleware that enforces a minimum interval
// between updates from the same user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	var (
		lastSeen = make(map[int64]time.Time)
		mu       sync.Mutex
	)
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	allow := func(userID int64, t time.Time) bool {
		mu.Lock()
		defer mu.Unlock()
		if last, ok := lastSeen[userID]; ok && t.Sub(last) < opts.Interval {
			return false
		}
		lastSeen[userID] = t
		if len(lastSeen) > pruneAt {
			for id, seen := range lastSeen {
				if t.Sub(seen) >= opts.Interval {
					delete(lastSeen, id)
				}
			}
		}
		return true
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[UpdateKind(c.Update())]; skip {
				return next(c)
			}

			if allow(user.ID, now()) {
				return next(c)
			}

			logger.TG.Warn(tghelpers.BuildContext(c), "tg.rate_limit",
				slog.Bool("rate_limited", true),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
