package router

import (
	tg "github.com/m3rciful/adaptermap/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// MessageKinds maps the message endpoints a dialogue listens on to the
// handler names used in summary logs.
var MessageKinds = []struct {
	Endpoint string
	Name     string
}{
	{tele.OnText, "message.text"},
	{tele.OnLocation, "message.location"},
	{tele.OnVenue, "message.venue"},
	{tele.OnMedia, "message.media"},
	{tele.OnSticker, "message.sticker"},
	{tele.OnContact, "message.contact"},
}

// MessageRoutes sends every non-command message kind to handler, so a dialogue
// sees wrong-kind input and can answer it.
func MessageRoutes(handler tele.HandlerFunc) []tg.Route {
	if handler == nil {
		return nil
	}
	routes := make([]tg.Route, 0, len(MessageKinds))
	for _, kind := range MessageKinds {
		routes = append(routes, tg.Route{
			Endpoint: kind.Endpoint,
			Handler:  summarized(kind.Name, handler),
		})
	}
	return routes
}
