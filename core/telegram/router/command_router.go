package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/adaptermap/core/logger"
	tg "github.com/m3rciful/adaptermap/core/telegram"
	"github.com/m3rciful/adaptermap/core/telegram/commands"
	"github.com/m3rciful/adaptermap/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes binds every registered command, with its aliases, to a handler
// that logs a summary line. Admin-only commands are gated on AdminID.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	adminOpts := middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		h := summarized(normalizeHandlerName(cmd), def.Handler)
		if def.AdminOnly {
			h = middleware.AdminOnlyMiddleware(adminOpts)(h)
		}
		routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
		for _, alias := range def.Aliases {
			if strings.TrimSpace(alias) == "" {
				continue
			}
			routes = append(routes, tg.Route{Endpoint: commands.Normalize(alias), Handler: h})
		}
	}

	logger.TWire.Info(context.Background(), "routes.commands",
		slog.String("status", "ok"),
		slog.Int("commands", len(reg.Commands())),
	)

	return routes
}
