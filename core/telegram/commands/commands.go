// Package commands describes slash commands independent of how they are routed.
package commands

import (
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command is a bot command with its handler and menu metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are gated on the configured admin and never listed.
	AdminOnly bool
	Hidden    bool
	Aliases   []string
}

// Errors reported by Validate.
var (
	ErrNoSlash = errors.New("commands: name must start with /")
	ErrInvalid = errors.New("commands: handler and description are required")
	ErrBadName = errors.New("commands: name must be 1-32 lowercase letters, digits or underscores")
)

const maxNameLength = 32

// Normalize lowercases name and makes sure it carries exactly one leading slash.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return "/" + strings.TrimLeft(name, "/")
}

// Validate checks name and cmd against what the Bot API accepts for setMyCommands.
func Validate(name string, cmd Command) error {
	if cmd.Handler == nil || cmd.Description == "" {
		return ErrInvalid
	}
	if !strings.HasPrefix(name, "/") {
		return ErrNoSlash
	}
	bare := name[1:]
	if bare == "" || len(bare) > maxNameLength {
		return ErrBadName
	}
	for _, r := range bare {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return ErrBadName
		}
	}
	return nil
}

// Listed reports whether the command belongs in the public bot menu.
func (c Command) Listed() bool {
	return !c.Hidden && !c.AdminOnly
}
