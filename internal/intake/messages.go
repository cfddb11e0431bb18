package intake

import (
	"github.com/m3rciful/adaptermap/core/telegram/format"
)

// Answers accepted on the note prompt.
const (
	AnswerYes = "Yes"
	AnswerNo  = "No"
)

// Reply is an outgoing MarkdownV2 message. Buttons, when set, are shown as a
// vertical one-time reply keyboard; otherwise any keyboard is removed.
type Reply struct {
	Text    string
	Buttons []string
}

var yesNo = []string{AnswerYes, AnswerNo}

const (
	msgHelp = `Hi\! This is the bot managing the Dreame adapter map\. To add a new adapter or to manage an existing adapter linked to your telegram account, please send me the command /start\.`

	msgGreetingNoHandle = `Hello %s\! Looks like you want to add a Dreame adapter to the map\. However, you do not have a Telegram username\. To allow users to contact you via the map, a Telegram username is necessary\. Please set a username in the Telegram settings\. When you are done, you can send me the command /start to restart the process\.`

	msgGreeting = "Hello %s\\! Looks like you want to add a Dreame adapter to the map\\. To do so, please send me the location that should be shown on the map\\.\n\n" +
		"*__IMPORTANT__*: The location you send me will be used as\\-is and displayed on the map\\. If you don't want the world to know where exactly you live, you might want to use a location that is a bit away\\."

	msgLocationReprompt = `Please share a location using the attachment menu, or send a venue\. I can't place you on the map without it\.`

	msgNoteChoice = `Thank you\. Do you want to add any additional information to the map, apart from a link to your telegram account? For example, you might want to introduce yourself or to add a e\-mail address\.`

	msgNoteChoiceRetry = `Sorry, I don't understand\. Please reply either "Yes" or "No"\.`

	msgNotePrompt = `Alright, then you may now enter this additional information\. Please don't enter too much, I will truncate your input at 250 characters\.`

	msgNoteNotText = `Sorry, this additional information must be text\.`

	msgHandleRemoved = `I'm sorry, you seem to have removed your username during our conversation\. To allow users to contact you via the map, a Telegram username is necessary\. Please set a username in the Telegram settings\. When you are done, you can send me the command /start to restart our conversation\.`

	msgDone = `Great\! We are done here\. To edit your entry on the map, send me /start again\.`

	msgFailed = `Sorry, that didn't work\. Please send me the command /start to try again\. If the problem persists, please open an issue on GitHub\.`

	msgTimedOut = `Sorry, you took too long, I had to cancel our session\. If you still want to add yourself to the map, send me /start again\.`
)

func greetingName(firstName string) string {
	if firstName == "" {
		return "there"
	}
	return format.V2(firstName)
}

func text(msg string) *Reply {
	return &Reply{Text: msg}
}

func choice(msg string) *Reply {
	return &Reply{Text: msg, Buttons: yesNo}
}
