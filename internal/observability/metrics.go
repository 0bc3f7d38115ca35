package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Stream status label values, one-hot in StreamStatus.
var streamStatuses = []string{"idle", "connecting", "connected", "error", "disconnected"}

type Metrics struct {
	registry        *prometheus.Registry
	ActiveSession   prometheus.Gauge
	SamplesTotal    *prometheus.CounterVec
	SessionsTotal   *prometheus.CounterVec
	StreamStatus    *prometheus.GaugeVec
	ReconnectsTotal prometheus.Counter
	BroadcastDrops  prometheus.Counter
	StoreErrors     prometheus.Counter
}

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		ActiveSession: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sitefocus",
			Name:      "active_session",
			Help:      "1 while a browsing session is being tracked",
		}),
		SamplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitefocus",
			Name:      "samples_total",
			Help:      "Stream samples by outcome",
		}, []string{"result"}),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitefocus",
			Name:      "sessions_total",
			Help:      "Ended sessions by outcome",
		}, []string{"result"}),
		StreamStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sitefocus",
			Name:      "stream_status",
			Help:      "Current EEG stream connection status (one-hot)",
		}, []string{"status"}),
		ReconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sitefocus",
			Name:      "stream_reconnects_total",
			Help:      "Scheduled stream reconnect attempts",
		}),
		BroadcastDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sitefocus",
			Name:      "broadcast_drops_total",
			Help:      "Broadcast messages dropped for slow subscribers",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sitefocus",
			Name:      "store_errors_total",
			Help:      "Failed session log writes",
		}),
	}
	r.MustRegister(m.ActiveSession, m.SamplesTotal, m.SessionsTotal, m.StreamStatus,
		m.ReconnectsTotal, m.BroadcastDrops, m.StoreErrors)
	return m
}

// SetStreamStatus marks status as the only current stream status.
func (m *Metrics) SetStreamStatus(status string) {
	for _, s := range streamStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		m.StreamStatus.WithLabelValues(s).Set(v)
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
