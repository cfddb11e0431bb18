// Package app wires the adaptermap bot: storage, the intake dialogue, the
// session reaper, metrics and the HTTP publisher.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/adaptermap/core/bootstrap"
	corecmd "github.com/m3rciful/adaptermap/core/cmd"
	"github.com/m3rciful/adaptermap/core/logger"
	tg "github.com/m3rciful/adaptermap/core/telegram"
	"github.com/m3rciful/adaptermap/core/telegram/router"
	tgsender "github.com/m3rciful/adaptermap/core/telegram/sender"
	"github.com/m3rciful/adaptermap/core/telegram/state"
	"github.com/m3rciful/adaptermap/internal/adaptermap/bot"
	"github.com/m3rciful/adaptermap/internal/adaptermap/config"
	"github.com/m3rciful/adaptermap/internal/adaptermap/metrics"
	"github.com/m3rciful/adaptermap/internal/adaptermap/web"
	"github.com/m3rciful/adaptermap/internal/intake"
	"github.com/m3rciful/adaptermap/internal/records"
)

var log = logger.Named("app")

// App holds the wired components for one bot process.
type App struct {
	cfg *config.Config
	db  *sqlx.DB

	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	store     *state.Store[intake.State]
	engine    *intake.Engine
	reaper    *state.Reaper[intake.State]
	transport *bot.Transport
	handler   *bot.Handler
	web       *web.Server

	cancel context.CancelFunc
	group  *errgroup.Group
}

// Bootstrap initializes logging and the database, then wires the app. It
// satisfies the shared runner's Bootstrap hook.
func Bootstrap(carrier corecmd.ConfigCarrier, skipMigrations bool) (*App, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:         &cfg.Config,
		Database:       cfg.Database,
		SkipMigrations: skipMigrations,
	})
	if err != nil {
		return nil, err
	}
	cfg.Database = res.Database
	return New(cfg, res.DB), nil
}

// New wires every component around an open database.
func New(cfg *config.Config, db *sqlx.DB) *App {
	a := &App{cfg: cfg, db: db}

	repo := records.NewRepository(db)
	a.store = intake.NewStore()

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(a.registry, a.store.Len)
	a.metrics = m

	a.transport = bot.NewTransport(nil)
	a.engine = intake.NewEngine(a.store, repo, a.transport, cfg.Intake.Config, m)
	a.reaper = state.NewReaper(a.store, cfg.Intake.ReaperConfig, a.engine.NotifyReaped)
	a.reaper.OnSweep = m.ObserveSweep
	a.handler = bot.NewHandler(a.engine)

	if cfg.HTTP.Enabled {
		a.web = web.NewServer(cfg.HTTP, repo, a.registry)
	}
	return a
}

// TelegramRunOptions builds the middleware chain, routes and lifecycle hooks.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()
	senderOpts := tg.DispatcherOptionsFrom(core.Sender)
	senderOpts.OnResult = a.metrics.ObserveSend
	dispatcher := tgsender.NewDispatcher(senderOpts)

	reg := tg.NewRegistry()
	bot.RegisterCommands(reg, a.handler, bot.StoreStats(a.store, a.reaper.Config(), dispatcher.Pending))

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: core.Telegram.AdminID,
		// Non-admins typing /sessions get the ordinary dialogue answer.
		OnAdminReject: a.handler.Handle,
	})
	routes = append(routes, router.MessageRoutes(a.handler.Handle)...)

	return tg.RunOptions{
		Config:         core,
		Registry:       reg,
		Dispatcher:     dispatcher,
		Middlewares:    tg.DefaultMiddlewares(core, nil),
		Routes:         routes,
		AllowedUpdates: []string{"message"},
		// One update at a time keeps a user's messages in arrival order.
		Synchronous: true,
		OnStart:     a.start,
		OnStop:      a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, rt tg.Runtime) error {
	if rt.Bot != nil {
		a.transport.Bind(rt.Bot)
	}
	// Tasks share runCtx rather than a group context, so a publisher that
	// fails to bind does not stop session eviction.
	runCtx, cancel := context.WithCancel(ctx)
	g := new(errgroup.Group)
	g.Go(func() error { return a.reaper.Run(runCtx) })
	if a.web != nil {
		g.Go(func() error {
			err := a.web.Run(runCtx)
			if err != nil {
				log.Error(ctx, "publisher.fail", slog.String("err", err.Error()))
			}
			return err
		})
	}
	a.cancel, a.group = cancel, g

	cfg := a.reaper.Config()
	log.Info(ctx, "intake.ready",
		slog.String("status", "ok"),
		slog.Duration("idle_timeout", cfg.IdleTimeout),
		slog.Int("flood_threshold", cfg.FloodThreshold),
		slog.Bool("http", a.web != nil),
	)
	return nil
}

func (a *App) stop(ctx context.Context, _ tg.Runtime) error {
	var err error
	if a.cancel != nil {
		a.cancel()
		err = a.group.Wait()
	}
	if cerr := a.db.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("app: close database: %w", cerr)
	}
	log.Info(ctx, "intake.stopped",
		slog.Int("sessions_dropped", a.store.Len()),
	)
	return err
}

// Runner adapts Bootstrap to the shared runner's signature.
func Runner(skipMigrations bool) func(corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	return func(c corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
		a, err := Bootstrap(c, skipMigrations)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}
