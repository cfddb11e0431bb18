package intake

import (
	"fmt"

	"github.com/m3rciful/adaptermap/internal/records"
)

// Effect is the session-store side effect of a transition.
type Effect int

const (
	// EffectNone leaves the store untouched.
	EffectNone Effect = iota
	// EffectCreate opens a session in Outcome.Next.
	EffectCreate
	// EffectAdvance moves the live session to Outcome.Next.
	EffectAdvance
	// EffectAbort ends the session without writing a record.
	EffectAbort
	// EffectFinalize writes Outcome.Draft to the sink and ends the session.
	EffectFinalize
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectCreate:
		return "create"
	case EffectAdvance:
		return "advance"
	case EffectAbort:
		return "abort"
	case EffectFinalize:
		return "finalize"
	}
	return fmt.Sprintf("effect(%d)", int(e))
}

// Outcome is the decision for one event. For EffectFinalize Reply is nil:
// the message depends on the sink result.
type Outcome struct {
	Effect Effect
	Next   State
	Reply  *Reply
	Draft  *records.Record
	// Cause says why an EffectAbort gave up on the session.
	Cause error
}

// Options tune the few behaviours that are configurable.
type Options struct {
	// RepromptLocation answers location-less messages in AwaitingLocation
	// instead of ignoring them.
	RepromptLocation bool
}

// Transition decides what ev does to a user in state cur (nil for no session).
// It performs no I/O.
func Transition(cur State, ev Event, opts Options) Outcome {
	switch st := cur.(type) {
	case nil:
		return fromNoSession(ev)
	case AwaitingLocation:
		if ev.Location == nil {
			if opts.RepromptLocation {
				return Outcome{Effect: EffectNone, Reply: text(msgLocationReprompt)}
			}
			return Outcome{Effect: EffectNone}
		}
		return Outcome{
			Effect: EffectAdvance,
			Next:   AwaitingNoteChoice{Location: *ev.Location},
			Reply:  choice(msgNoteChoice),
		}
	case AwaitingNoteChoice:
		switch ev.Text {
		case AnswerYes:
			return Outcome{
				Effect: EffectAdvance,
				Next:   AwaitingNoteText(st),
				Reply:  text(msgNotePrompt),
			}
		case AnswerNo:
			return finalize(ev, st.Location, nil)
		}
		return Outcome{Effect: EffectNone, Reply: choice(msgNoteChoiceRetry)}
	case AwaitingNoteText:
		if ev.Text == "" {
			return Outcome{Effect: EffectNone, Reply: text(msgNoteNotText)}
		}
		note := ev.Text
		return finalize(ev, st.Location, &note)
	}
	return Outcome{Effect: EffectNone}
}

func fromNoSession(ev Event) Outcome {
	if !ev.IsStart() {
		return Outcome{Effect: EffectNone, Reply: text(msgHelp)}
	}
	name := greetingName(ev.FirstName)
	if !ev.HasHandle() {
		return Outcome{Effect: EffectNone, Reply: text(fmt.Sprintf(msgGreetingNoHandle, name))}
	}
	return Outcome{
		Effect: EffectCreate,
		Next:   AwaitingLocation{},
		Reply:  text(fmt.Sprintf(msgGreeting, name)),
	}
}

func finalize(ev Event, loc records.Location, note *string) Outcome {
	if !ev.HasHandle() {
		return Outcome{Effect: EffectAbort, Reply: text(msgHandleRemoved), Cause: records.ErrNoHandle}
	}
	rec, err := records.New(ev.UserID, ev.Username, loc, note)
	if err != nil {
		return Outcome{Effect: EffectAbort, Reply: text(msgFailed), Cause: err}
	}
	return Outcome{Effect: EffectFinalize, Draft: &rec}
}
