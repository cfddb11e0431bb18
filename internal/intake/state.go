// Package intake runs the dialogue that collects a map entry from a user:
// greeting, location, an optional note, then a write to the record sink.
package intake

import "github.com/m3rciful/adaptermap/internal/records"

// State is the dialogue position of a user with a live session. The zero
// value of the interface (nil) means the user has no session.
type State interface {
	Name() string
	isState()
}

// AwaitingLocation follows the greeting; the user must share a location.
type AwaitingLocation struct{}

// AwaitingNoteChoice holds the shared location while the user decides
// whether to add a note.
type AwaitingNoteChoice struct {
	Location records.Location
}

// AwaitingNoteText holds the shared location while the user types the note.
type AwaitingNoteText struct {
	Location records.Location
}

func (AwaitingLocation) Name() string   { return "awaiting_location" }
func (AwaitingNoteChoice) Name() string { return "awaiting_note_choice" }
func (AwaitingNoteText) Name() string   { return "awaiting_note_text" }

func (AwaitingLocation) isState()   {}
func (AwaitingNoteChoice) isState() {}
func (AwaitingNoteText) isState()   {}

// StateName returns the log name of s, including the no-session case.
func StateName(s State) string {
	if s == nil {
		return "none"
	}
	return s.Name()
}
