package format

import (
	"fmt"
	"regexp"
)

const (
	// MarkdownV1 denotes Telegram markdown version 1.
	MarkdownV1 = 1
	// MarkdownV2 denotes Telegram markdown version 2.
	MarkdownV2 = 2
)

// EntityCode marks text placed inside a `code` or ```pre``` entity.
const EntityCode = "code"

var (
	mdV1Re     = regexp.MustCompile("[_*`\\[]")
	// The hyphen is escaped so it is not read as a range inside the class.
	mdV2Re     = regexp.MustCompile("[_*\\[\\]()~`>#+\\-=|{}.!\\\\]")
	mdV2CodeRe = regexp.MustCompile("[`\\\\]")
)

// EscapeMarkdown escapes special characters for MarkdownV1 or V2.
// Inside code entities MarkdownV2 only reserves the backtick and backslash.
func EscapeMarkdown(text string, version int, entityType string) (string, error) {
	switch version {
	case MarkdownV1:
		return mdV1Re.ReplaceAllString(text, `\$0`), nil
	case MarkdownV2:
		if entityType == EntityCode {
			return mdV2CodeRe.ReplaceAllString(text, `\$0`), nil
		}
		return mdV2Re.ReplaceAllString(text, `\$0`), nil
	}
	return "", fmt.Errorf("unsupported markdown version: %d", version)
}

// V2 escapes plain text for a MarkdownV2 message body.
func V2(text string) string {
	return mdV2Re.ReplaceAllString(text, `\$0`)
}
