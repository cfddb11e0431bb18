package telegram

import (
	"testing"

	"github.com/m3rciful/adaptermap/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Add or edit your entry"})
	reg.RegisterCommand("/sessions", commands.Command{Handler: noop, Description: "Live sessions", AdminOnly: true, Hidden: true})
	reg.RegisterCommand("nope", commands.Command{Handler: noop, Description: "missing slash"})
	reg.RegisterCommand("/empty", commands.Command{Handler: noop})
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "duplicate"})

	if len(reg.Commands()) != 2 {
		t.Fatalf("commands = %v", reg.Commands())
	}
	visible := reg.ListCommands(true)
	if len(visible) != 1 || visible[0].Text != "start" || visible[0].Description != "Add or edit your entry" {
		t.Fatalf("visible = %+v", visible)
	}
	if all := reg.ListCommands(false); len(all) != 2 || all[0].Text != "sessions" {
		t.Fatalf("all = %+v", all)
	}
	if key, _, ok := reg.LookupCommand("start"); !ok || key != "/start" {
		t.Fatalf("lookup = %q %v", key, ok)
	}
	if key, _, ok := reg.LookupCommand(" /START "); !ok || key != "/start" {
		t.Fatalf("lookup is not normalized: %q %v", key, ok)
	}
}

func TestValidateCommandNames(t *testing.T) {
	cmd := commands.Command{Handler: noop, Description: "d"}
	for name, want := range map[string]error{
		"/start":     nil,
		"/set_note2": nil,
		"start":      commands.ErrNoSlash,
		"/":          commands.ErrBadName,
		"/Start":     commands.ErrBadName,
		"/a-b":       commands.ErrBadName,
	} {
		if err := commands.Validate(name, cmd); err != want {
			t.Fatalf("Validate(%q) = %v, want %v", name, err, want)
		}
	}
	if err := commands.Validate("/x", commands.Command{Handler: noop}); err != commands.ErrInvalid {
		t.Fatalf("missing description: %v", err)
	}
}
