package app

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/adaptermap/core/config"
	tg "github.com/m3rciful/adaptermap/core/telegram"
	"github.com/m3rciful/adaptermap/core/telegram/state"
	"github.com/m3rciful/adaptermap/internal/adaptermap/config"
	"github.com/m3rciful/adaptermap/internal/intake"

	tele "gopkg.in/telebot.v4"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Telegram = coreconfig.TelegramConfig{Token: "1:x", AdminID: 7}
	cfg.Sender = coreconfig.SenderConfig{Workers: 1, QueueSize: 8}
	cfg.Intake.ReaperConfig = state.ReaperConfig{Interval: time.Hour}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) (*App, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return New(cfg, sqlx.NewDb(db, "postgres")), mock
}

func endpoints(routes []tg.Route) map[string]bool {
	out := make(map[string]bool, len(routes))
	for _, r := range routes {
		if s, ok := r.Endpoint.(string); ok {
			out[s] = true
		}
	}
	return out
}

func TestTelegramRunOptions(t *testing.T) {
	a, _ := newTestApp(t, testConfig())
	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	t.Cleanup(opts.Dispatcher.Close)

	assert.True(t, opts.Synchronous)
	assert.Equal(t, []string{"message"}, opts.AllowedUpdates)
	assert.NotEmpty(t, opts.Middlewares)

	got := endpoints(opts.Routes)
	for _, want := range []string{"/start", "/sessions", tele.OnText, tele.OnLocation, tele.OnVenue, tele.OnMedia, tele.OnSticker, tele.OnContact} {
		assert.True(t, got[want], want)
	}

	visible := opts.Registry.ListCommands(true)
	require.Len(t, visible, 1)
	assert.Equal(t, "start", visible[0].Text)
}

func TestLifecycle(t *testing.T) {
	a, mock := newTestApp(t, testConfig())
	mock.ExpectClose()

	ctx := context.Background()
	require.NoError(t, a.start(ctx, tg.Runtime{}))

	a.store.GetOrInsert(1, 1, intake.AwaitingLocation{}, time.Now())
	require.NoError(t, a.stop(ctx, tg.Runtime{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReaperOutlivesPublisherFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := testConfig()
	cfg.Intake.ReaperConfig.Interval = 20 * time.Millisecond
	cfg.HTTP.Enabled = true
	cfg.HTTP.Listen = taken.Addr().String()
	a, mock := newTestApp(t, cfg)
	mock.ExpectClose()
	a.reaper.Clock = func() time.Time { return time.Now().Add(10 * time.Hour) }

	ctx := context.Background()
	require.NoError(t, a.start(ctx, tg.Runtime{}))
	a.store.GetOrInsert(1, 1, intake.AwaitingLocation{}, time.Now())

	assert.Eventually(t, func() bool { return a.store.Len() == 0 }, 2*time.Second, 10*time.Millisecond,
		"idle session survived after the publisher failed to bind")

	assert.Error(t, a.stop(ctx, tg.Runtime{}), "bind failure should surface on stop")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHTTPPublisherIsOptional(t *testing.T) {
	a, _ := newTestApp(t, testConfig())
	assert.Nil(t, a.web)

	cfg := testConfig()
	cfg.HTTP.Enabled = true
	cfg.HTTP.Listen = "127.0.0.1:0"
	a, _ = newTestApp(t, cfg)
	assert.NotNil(t, a.web)
}

type foreignConfig struct{}

func (foreignConfig) CoreConfig() *coreconfig.Config { return &coreconfig.Config{} }

func TestBootstrapRejectsForeignConfig(t *testing.T) {
	_, err := Bootstrap(foreignConfig{}, false)
	assert.Error(t, err)
}
