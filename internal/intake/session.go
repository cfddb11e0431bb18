package intake

import "github.com/m3rciful/adaptermap/core/telegram/state"

// Session is a stored dialogue.
type Session = state.Session[State]

// NewStore returns an empty session store for the dialogue.
func NewStore() *state.Store[State] {
	return state.NewStore[State]()
}
