// Package metrics exposes Prometheus collectors for the intake dialogue.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/m3rciful/adaptermap/core/telegram/state"
)

const namespace = "adaptermap"

// Metrics implements intake.Observer and records reaper sweeps.
type Metrics struct {
	opened   prometheus.Counter
	closed   *prometheus.CounterVec
	records  *prometheus.CounterVec
	sweeps   prometheus.Counter
	reaped   prometheus.Counter
	flood    prometheus.Gauge
	idleSecs prometheus.Gauge
	sends    *prometheus.CounterVec
}

// New registers the collectors on reg. live reports the current number of
// sessions and is sampled on every scrape.
func New(reg prometheus.Registerer, live func() int) *Metrics {
	m := &Metrics{
		opened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Dialogue sessions opened by /start.",
		}),
		closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Dialogue sessions closed, by reason.",
		}, []string{"reason"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Record sink writes, by status.",
		}, []string{"status"}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "sweeps_total",
			Help:      "Completed reaper cycles.",
		}),
		reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "evicted_total",
			Help:      "Sessions evicted for inactivity.",
		}),
		flood: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "flood",
			Help:      "1 while the shortened flood timeout is in effect.",
		}),
		idleSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "idle_threshold_seconds",
			Help:      "Idle timeout applied by the last sweep.",
		}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "sends_total",
			Help:      "Outbound Telegram calls, by action and error class.",
		}, []string{"action", "result"}),
	}
	reg.MustRegister(m.opened, m.closed, m.records, m.sweeps, m.reaped, m.flood, m.idleSecs, m.sends)
	if live != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Dialogue sessions currently held in memory.",
		}, func() float64 { return float64(live()) }))
	}
	return m
}

// SessionOpened counts a new session.
func (m *Metrics) SessionOpened() { m.opened.Inc() }

// SessionClosed counts a closed session.
func (m *Metrics) SessionClosed(reason string) { m.closed.WithLabelValues(reason).Inc() }

// RecordStored counts a sink write.
func (m *Metrics) RecordStored(err error) {
	status := "ok"
	if err != nil {
		status = "fail"
	}
	m.records.WithLabelValues(status).Inc()
}

// ObserveSweep is the reaper's OnSweep hook.
func (m *Metrics) ObserveSweep(res state.SweepResult) {
	m.sweeps.Inc()
	m.reaped.Add(float64(res.Reaped))
	m.idleSecs.Set(res.Threshold.Seconds())
	if res.Flood {
		m.flood.Set(1)
	} else {
		m.flood.Set(0)
	}
}

// ObserveSend is the sender dispatcher's OnResult hook. An empty class
// counts as "ok".
func (m *Metrics) ObserveSend(action, errClass string) {
	if errClass == "" {
		errClass = "ok"
	}
	m.sends.WithLabelValues(action, errClass).Inc()
}
