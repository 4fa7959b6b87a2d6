package authapi

import (
	"net"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts auth events by outcome. A nil *Metrics is a no-op.
type Metrics struct {
	events *prometheus.CounterVec
}

// NewMetrics registers pulselog_auth_events_total on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulselog",
		Name:      "auth_events_total",
		Help:      "Authentication events by type and outcome.",
	}, []string{"event", "outcome"})
	if err := reg.Register(events); err != nil {
		return nil, err
	}
	return &Metrics{events: events}, nil
}

func (m *Metrics) inc(event, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(event, outcome).Inc()
}

// audit records one auth event as a counter and a structured log line.
// It never logs secrets or raw usernames of failed logins.
func (h *Handler) audit(event, outcome string, ip net.IP, attrs ...any) {
	h.metrics.inc(event, outcome)

	args := []any{"outcome", outcome}
	if ip != nil {
		args = append(args, "ip", ip.String())
	}
	args = append(args, attrs...)
	h.log.Info("auth."+event, args...)
}
