package intake

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/adaptermap/core/logger"
	"github.com/m3rciful/adaptermap/core/telegram/state"
	"github.com/m3rciful/adaptermap/internal/records"
)

var log = logger.Named("intake")

// Sink stores a finished record.
type Sink interface {
	Insert(ctx context.Context, rec records.Record) error
}

// Transport delivers replies to a chat.
type Transport interface {
	Send(ctx context.Context, chatID int64, reply Reply) error
}

// Observer receives dialogue lifecycle signals, typically for metrics.
type Observer interface {
	SessionOpened()
	SessionClosed(reason string)
	RecordStored(err error)
}

// Session close reasons passed to Observer.SessionClosed.
const (
	CloseFinalized = "finalized"
	CloseAborted   = "aborted"
	CloseReaped    = "reaped"
)

type nopObserver struct{}

func (nopObserver) SessionOpened()       {}
func (nopObserver) SessionClosed(string) {}
func (nopObserver) RecordStored(error)   {}

// Config holds engine settings.
type Config struct {
	// InsertTimeout bounds a single sink call; zero means DefaultInsertTimeout.
	InsertTimeout    time.Duration `yaml:"insert_timeout" envconfig:"INTAKE_INSERT_TIMEOUT"`
	RepromptLocation bool          `yaml:"reprompt_location" envconfig:"INTAKE_REPROMPT_LOCATION"`
}

// DefaultInsertTimeout bounds sink calls when Config leaves it unset.
const DefaultInsertTimeout = 5 * time.Second

// Engine applies Transition to the session store and performs the I/O that
// follows from it.
type Engine struct {
	store     *state.Store[State]
	sink      Sink
	transport Transport
	cfg       Config
	observer  Observer

	// Now is the clock used for session activity; tests replace it.
	Now func() time.Time
}

// NewEngine wires an engine. A nil observer is replaced with a no-op.
func NewEngine(store *state.Store[State], sink Sink, transport Transport, cfg Config, observer Observer) *Engine {
	if cfg.InsertTimeout <= 0 {
		cfg.InsertTimeout = DefaultInsertTimeout
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Engine{
		store:     store,
		sink:      sink,
		transport: transport,
		cfg:       cfg,
		observer:  observer,
		Now:       time.Now,
	}
}

// Store exposes the session store, for the reaper and admin commands.
func (e *Engine) Store() *state.Store[State] {
	return e.store
}

// HandleEvent runs one inbound message through the dialogue and reports the
// effect it had on the session store. Events that lost a race with the reaper
// or a concurrent update report EffectNone.
func (e *Engine) HandleEvent(ctx context.Context, ev Event) Effect {
	var cur State
	if sess, ok := e.store.Get(ev.UserID); ok {
		if sess.Closing() {
			log.Debug(ctx, "session.busy",
				slog.Int64("user_id", ev.UserID),
				slog.String("state", StateName(sess.Data)),
			)
			return EffectNone
		}
		cur = sess.Data
	}

	out := Transition(cur, ev, Options{RepromptLocation: e.cfg.RepromptLocation})
	log.Debug(ctx, "dialogue.transition",
		slog.Int64("user_id", ev.UserID),
		slog.String("state", StateName(cur)),
		slog.String("next_state", StateName(out.Next)),
		slog.String("effect", out.Effect.String()),
	)

	applied := true
	switch out.Effect {
	case EffectNone:
		e.send(ctx, ev.ChatID, out.Reply)
	case EffectCreate:
		applied = e.create(ctx, ev, out)
	case EffectAdvance:
		applied = e.advance(ctx, ev, cur, out)
	case EffectAbort:
		applied = e.abort(ctx, ev, out)
	case EffectFinalize:
		applied = e.finalize(ctx, ev, out)
	}
	if !applied {
		return EffectNone
	}
	return out.Effect
}

func (e *Engine) create(ctx context.Context, ev Event, out Outcome) bool {
	if _, created := e.store.GetOrInsert(ev.UserID, ev.ChatID, out.Next, e.Now()); !created {
		// Another update for this user opened the session first.
		log.Debug(ctx, "session.exists", slog.Int64("user_id", ev.UserID))
		return false
	}
	e.observer.SessionOpened()
	log.Info(ctx, "session.created",
		slog.Int64("user_id", ev.UserID),
		slog.Int64("chat_id", ev.ChatID),
	)
	e.send(ctx, ev.ChatID, out.Reply)
	return true
}

func (e *Engine) advance(ctx context.Context, ev Event, cur State, out Outcome) bool {
	now := e.Now()
	stale := false
	_, ok := e.store.MutateIfPresent(ev.UserID, func(sess *Session) {
		if sess.Data != cur {
			stale = true
			return
		}
		sess.Data = out.Next
		sess.ChatID = ev.ChatID
		sess.LastActive = now
	})
	if !ok || stale {
		// Reaped, claimed or moved on since the lookup.
		log.Debug(ctx, "session.stale",
			slog.Int64("user_id", ev.UserID),
			slog.String("state", StateName(cur)),
		)
		return false
	}
	e.send(ctx, ev.ChatID, out.Reply)
	return true
}

func (e *Engine) abort(ctx context.Context, ev Event, out Outcome) bool {
	if _, ok := e.store.Claim(ev.UserID); !ok {
		return false
	}
	log.Info(ctx, "session.aborted",
		slog.Int64("user_id", ev.UserID),
		slog.String("cause", AbortCause(out.Cause)),
	)
	e.send(ctx, ev.ChatID, out.Reply)
	e.store.Remove(ev.UserID)
	e.observer.SessionClosed(CloseAborted)
	return true
}

// AbortCause names an abort reason for logs.
func AbortCause(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, records.ErrNoHandle):
		return "no_handle"
	case errors.Is(err, records.ErrInvalidLocation):
		return "invalid_location"
	}
	return "invalid_record"
}

func (e *Engine) finalize(ctx context.Context, ev Event, out Outcome) bool {
	if _, ok := e.store.Claim(ev.UserID); !ok {
		return false
	}
	defer func() {
		e.store.Remove(ev.UserID)
		e.observer.SessionClosed(CloseFinalized)
	}()

	insertCtx, cancel := context.WithTimeout(ctx, e.cfg.InsertTimeout)
	err := e.sink.Insert(insertCtx, *out.Draft)
	cancel()
	e.observer.RecordStored(err)

	if err != nil {
		log.Error(ctx, "record.insert.fail",
			slog.Int64("user_id", ev.UserID),
			slog.String("username", out.Draft.Username),
			slog.String("err", err.Error()),
		)
		e.send(ctx, ev.ChatID, text(msgFailed))
		return true
	}
	log.Info(ctx, "record.insert",
		slog.String("status", "ok"),
		slog.Int64("user_id", ev.UserID),
		slog.Bool("has_note", out.Draft.Note != nil),
	)
	e.send(ctx, ev.ChatID, text(msgDone))
	return true
}

// NotifyReaped tells an evicted user that the session was cancelled. It is
// the reaper's notifier.
func (e *Engine) NotifyReaped(ctx context.Context, idle state.Idle) {
	e.observer.SessionClosed(CloseReaped)
	ctx = logger.WithUpdateMeta(ctx, 0, idle.UserID, idle.ChatID)
	log.Info(ctx, "session.reaped",
		slog.Int64("user_id", idle.UserID),
		slog.Int64("chat_id", idle.ChatID),
	)
	e.send(ctx, idle.ChatID, text(msgTimedOut))
}

func (e *Engine) send(ctx context.Context, chatID int64, reply *Reply) {
	if reply == nil {
		return
	}
	if err := e.transport.Send(ctx, chatID, *reply); err != nil {
		log.Warn(ctx, "reply.send.fail",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
	}
}
