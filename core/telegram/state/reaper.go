package state

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/adaptermap/core/logger"
)

var log = logger.Named("reaper")

// ReaperConfig controls how often idle sessions are swept and how long a
// session may stay idle. Above FloodThreshold live sessions the shorter
// FloodIdleTimeout applies, which caps memory when someone opens sessions in bulk.
type ReaperConfig struct {
	Interval         time.Duration `yaml:"interval" envconfig:"REAPER_INTERVAL"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" envconfig:"REAPER_IDLE_TIMEOUT"`
	FloodIdleTimeout time.Duration `yaml:"flood_idle_timeout" envconfig:"REAPER_FLOOD_IDLE_TIMEOUT"`
	FloodThreshold   int           `yaml:"flood_threshold" envconfig:"REAPER_FLOOD_THRESHOLD"`
}

// DefaultReaperConfig returns the production defaults: sweep every 5 minutes,
// evict after 4 hours, or after 15 minutes once more than 10,000 sessions are live.
func DefaultReaperConfig() ReaperConfig {
	return ReaperConfig{
		Interval:         5 * time.Minute,
		IdleTimeout:      4 * time.Hour,
		FloodIdleTimeout: 15 * time.Minute,
		FloodThreshold:   10_000,
	}
}

func (c ReaperConfig) withDefaults() ReaperConfig {
	def := DefaultReaperConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.FloodIdleTimeout <= 0 {
		c.FloodIdleTimeout = def.FloodIdleTimeout
	}
	if c.FloodThreshold <= 0 {
		c.FloodThreshold = def.FloodThreshold
	}
	return c
}

// Timeout returns the idle timeout for the given number of live sessions and
// whether the flood posture is active.
func (c ReaperConfig) Timeout(live int) (time.Duration, bool) {
	c = c.withDefaults()
	if live > c.FloodThreshold {
		return c.FloodIdleTimeout, true
	}
	return c.IdleTimeout, false
}

// Notifier tells an evicted user that their session was cancelled. It runs
// outside the store lock; errors are the notifier's to log.
type Notifier func(ctx context.Context, idle Idle)

// SweepResult summarizes one reaper cycle.
type SweepResult struct {
	Live      int
	Idle      int
	Reaped    int
	Skipped   int
	Threshold time.Duration
	Flood     bool
}

// Reaper periodically evicts idle sessions from a Store.
type Reaper[T any] struct {
	store  *Store[T]
	cfg    ReaperConfig
	notify Notifier

	// Clock is the time source; tests replace it.
	Clock func() time.Time
	// OnSweep, when set, observes every completed sweep.
	OnSweep func(SweepResult)
}

// NewReaper builds a reaper over store. A nil notifier evicts silently.
func NewReaper[T any](store *Store[T], cfg ReaperConfig, notify Notifier) *Reaper[T] {
	return &Reaper[T]{
		store:  store,
		cfg:    cfg.withDefaults(),
		notify: notify,
		Clock:  time.Now,
	}
}

// Config returns the effective configuration.
func (r *Reaper[T]) Config() ReaperConfig {
	return r.cfg
}

// Run sweeps on every interval tick until ctx is done.
func (r *Reaper[T]) Run(ctx context.Context) error {
	log.Info(ctx, "reaper.start",
		slog.Duration("interval", r.cfg.Interval),
		slog.Duration("idle_timeout", r.cfg.IdleTimeout),
		slog.Duration("flood_idle_timeout", r.cfg.FloodIdleTimeout),
		slog.Int("flood_threshold", r.cfg.FloodThreshold),
	)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info(ctx, "reaper.stop")
			return nil
		case <-ticker.C:
			r.Sweep(ctx, r.Clock())
		}
	}
}

// Sweep runs one eviction cycle as of now.
func (r *Reaper[T]) Sweep(ctx context.Context, now time.Time) SweepResult {
	start := time.Now()
	res := SweepResult{Live: r.store.Len()}
	res.Threshold, res.Flood = r.cfg.Timeout(res.Live)
	if res.Flood {
		log.Warn(ctx, "reaper.flood",
			slog.Int("sessions", res.Live),
			slog.Duration("threshold", res.Threshold),
			slog.Bool("flood", true),
		)
	}

	cutoff := now.Add(-res.Threshold)
	idle := r.store.SnapshotIdleBefore(cutoff)
	res.Idle = len(idle)
	for _, candidate := range idle {
		// The session may have been finalized or touched since the snapshot.
		if _, ok := r.store.RemoveIfIdle(candidate.UserID, cutoff); !ok {
			res.Skipped++
			continue
		}
		res.Reaped++
		if r.notify != nil {
			r.notify(ctx, candidate)
		}
	}

	level := slog.LevelDebug
	if res.Reaped > 0 {
		level = slog.LevelInfo
	}
	log.LogAttrs(ctx, level, "reaper.sweep",
		slog.Int("sessions", res.Live),
		slog.Int("idle", res.Idle),
		slog.Int("reaped", res.Reaped),
		slog.Int("skipped", res.Skipped),
		slog.Duration("threshold", res.Threshold),
		slog.Duration("duration", logger.Took(start)),
	)
	if r.OnSweep != nil {
		r.OnSweep(res)
	}
	return res
}
