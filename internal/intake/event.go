package intake

import (
	"strings"

	"github.com/m3rciful/adaptermap/internal/records"
)

// StartCommand opens a dialogue.
const StartCommand = "/start"

// Event is one inbound message, reduced to what the dialogue needs.
type Event struct {
	UserID int64
	ChatID int64
	// Username is the public handle; empty when the user has none.
	Username  string
	FirstName string
	// Text is the message text; captions of media do not count.
	Text     string
	Location *records.Location
}

// IsStart reports whether the message is the start command, with or
// without a bot mention or deep-link payload.
func (e Event) IsStart() bool {
	fields := strings.Fields(e.Text)
	if len(fields) == 0 {
		return false
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return cmd == StartCommand
}

// HasHandle reports whether the sender has a public username.
func (e Event) HasHandle() bool {
	return e.Username != ""
}
