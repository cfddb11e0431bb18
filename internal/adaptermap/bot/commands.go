package bot

import (
	"fmt"
	"time"

	tg "github.com/m3rciful/adaptermap/core/telegram"
	"github.com/m3rciful/adaptermap/core/telegram/commands"
	"github.com/m3rciful/adaptermap/core/telegram/format"
	tghelpers "github.com/m3rciful/adaptermap/core/telegram/helpers"
	"github.com/m3rciful/adaptermap/core/telegram/state"
	"github.com/m3rciful/adaptermap/internal/intake"

	tele "gopkg.in/telebot.v4"
)

// SessionStats is what the admin report shows.
type SessionStats struct {
	Live        int
	IdleTimeout time.Duration
	Flood       bool
	Pending     int
}

// StatsFunc collects SessionStats on demand.
type StatsFunc func() SessionStats

// StoreStats reports on store under the reaper's configuration. pending, when
// set, reports queued outbound messages.
func StoreStats(store *state.Store[intake.State], cfg state.ReaperConfig, pending func() int) StatsFunc {
	return func() SessionStats {
		live := store.Len()
		timeout, flood := cfg.Timeout(live)
		st := SessionStats{Live: live, IdleTimeout: timeout, Flood: flood}
		if pending != nil {
			st.Pending = pending()
		}
		return st
	}
}

// FormatStats renders the admin report as MarkdownV2.
func FormatStats(st SessionStats) string {
	posture := "normal"
	if st.Flood {
		posture = "flood"
	}
	return format.V2(fmt.Sprintf(
		"Live sessions: %d\nIdle timeout: %s (%s)\nQueued messages: %d",
		st.Live, st.IdleTimeout, posture, st.Pending,
	))
}

// RegisterCommands adds /start to the menu and the hidden admin /sessions.
func RegisterCommands(reg *tg.Registry, h *Handler, stats StatsFunc) {
	reg.RegisterCommand(intake.StartCommand, commands.Command{
		Handler:     h.Handle,
		Description: "Add or edit your adapter on the map",
	})
	if stats == nil {
		return
	}
	reg.RegisterCommand("/sessions", commands.Command{
		Handler: func(c tele.Context) error {
			return tghelpers.SendMDV2(c, FormatStats(stats()))
		},
		Description: "Show live dialogue sessions",
		AdminOnly:   true,
		Hidden:      true,
	})
}
