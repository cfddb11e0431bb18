package router

import (
	"errors"
	"testing"

	tg "github.com/m3rciful/adaptermap/core/telegram"
	"github.com/m3rciful/adaptermap/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func TestNormalizeHandlerName(t *testing.T) {
	cases := map[string]string{
		"/Start":    "start",
		"  ":        "unknown",
		"my action": "my_action",
	}
	for in, want := range cases {
		if got := normalizeHandlerName(in); got != want {
			t.Fatalf("normalizeHandlerName(%q) = %q, want %q", in, got, want)
		}
	}
}

type codedErr struct{}

func (codedErr) Error() string { return "x" }
func (codedErr) Code() string  { return "sink down" }

type plainErr struct{}

func (*plainErr) Error() string { return "y" }

func TestErrorCode(t *testing.T) {
	if got := errorCode(codedErr{}); got != "SINK_DOWN" {
		t.Fatalf("coded = %q", got)
	}
	if got := errorCode(&plainErr{}); got != "PLAINERR" {
		t.Fatalf("plain = %q", got)
	}
	if got := errorCode(errors.New("z")); got != "ERRORSTRING" {
		t.Fatalf("errors.New = %q", got)
	}
}

func TestMessageRoutesCoverEveryKind(t *testing.T) {
	routes := MessageRoutes(func(tele.Context) error { return nil })
	if len(routes) != len(MessageKinds) {
		t.Fatalf("routes = %d", len(routes))
	}
	seen := map[any]bool{}
	for _, r := range routes {
		seen[r.Endpoint] = true
	}
	for _, ep := range []string{tele.OnText, tele.OnLocation, tele.OnVenue, tele.OnMedia} {
		if !seen[ep] {
			t.Fatalf("missing endpoint %q", ep)
		}
	}
	if MessageRoutes(nil) != nil {
		t.Fatal("nil handler must produce no routes")
	}
}

func TestCommandRoutesIncludeAliases(t *testing.T) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     func(tele.Context) error { return nil },
		Description: "start",
		Aliases:     []string{"begin"},
	})
	routes := CommandRoutes(reg, CommandRouteOptions{})
	if len(routes) != 2 || routes[0].Endpoint != "/start" || routes[1].Endpoint != "/begin" {
		t.Fatalf("routes = %+v", routes)
	}
}
