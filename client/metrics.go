package client

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the client's prometheus instruments, grounded on the
// teacher's pervasive per-subsystem metrics.go files (e.g.
// internal/bgp/metrics.go, internal/liveness/metrics.go): a handful of
// counters/gauges constructed once and registered by the caller, safe to
// leave nil or unregistered for library-only use.
type Metrics struct {
	LinkState      prometheus.Gauge
	BytesSent      prometheus.Counter
	BytesReceived  prometheus.Counter
	ReconnectTotal prometheus.Counter
}

// NewMetrics builds a Metrics instance registered against reg. Pass a
// fresh prometheus.NewRegistry() in tests, or prometheus.DefaultRegisterer
// in production.
func NewMetrics(reg prometheus.Registerer, constLabels prometheus.Labels) *Metrics {
	m := &Metrics{
		LinkState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "cpdlc",
			Subsystem:   "client",
			Name:        "link_state",
			Help:        "Current LogonStatus as an integer (None=0 .. Complete=5).",
			ConstLabels: constLabels,
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "cpdlc",
			Subsystem:   "client",
			Name:        "bytes_sent_total",
			Help:        "Bytes written to the transport.",
			ConstLabels: constLabels,
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "cpdlc",
			Subsystem:   "client",
			Name:        "bytes_received_total",
			Help:        "Bytes read from the transport.",
			ConstLabels: constLabels,
		}),
		ReconnectTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "cpdlc",
			Subsystem:   "client",
			Name:        "reconnect_total",
			Help:        "Number of reconnect attempts made.",
			ConstLabels: constLabels,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.LinkState, m.BytesSent, m.BytesReceived, m.ReconnectTotal)
	}
	return m
}

func (m *Metrics) setLinkState(s LogonStatus) {
	if m == nil {
		return
	}
	m.LinkState.Set(float64(s))
}

func (m *Metrics) addBytesSent(n int) {
	if m == nil {
		return
	}
	m.BytesSent.Add(float64(n))
}

func (m *Metrics) addBytesReceived(n int) {
	if m == nil {
		return
	}
	m.BytesReceived.Add(float64(n))
}

func (m *Metrics) incReconnect() {
	if m == nil {
		return
	}
	m.ReconnectTotal.Inc()
}
