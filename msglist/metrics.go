package msglist

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the list's prometheus instruments, grounded the same way
// as client.Metrics on the teacher's per-subsystem metrics.go files: a
// gauge per thread status plus an open-thread count, safe to leave nil.
type Metrics struct {
	ThreadsByStatus *prometheus.GaugeVec
	OpenThreads     prometheus.Gauge

	mu    sync.Mutex
	tally map[ThrID]Status // last known status per thread, for the gauge recompute
}

// NewMetrics builds a Metrics instance registered against reg.
func NewMetrics(reg prometheus.Registerer, constLabels prometheus.Labels) *Metrics {
	m := &Metrics{
		ThreadsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "cpdlc",
			Subsystem:   "msglist",
			Name:        "threads_by_status",
			Help:        "Number of threads currently in each status.",
			ConstLabels: constLabels,
		}, []string{"status"}),
		OpenThreads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "cpdlc",
			Subsystem:   "msglist",
			Name:        "open_threads",
			Help:        "Number of threads not yet in a final status.",
			ConstLabels: constLabels,
		}),
		tally: make(map[ThrID]Status),
	}
	if reg != nil {
		reg.MustRegister(m.ThreadsByStatus, m.OpenThreads)
	}
	return m
}

// setThreadStatus records that thread id is now in status s and
// recomputes both gauges. The list already holds its own lock when
// calling this; Metrics uses an independent mutex rather than assuming
// that.
func (m *Metrics) setThreadStatus(id ThrID, s Status) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tally[id] = s
	m.publishLocked()
}

// publishLocked recomputes both gauges from the tally. Statuses no
// thread is in any more are dropped from ThreadsByStatus. m.mu is held.
func (m *Metrics) publishLocked() {
	counts := make(map[Status]int, len(m.tally))
	open := 0
	for _, st := range m.tally {
		counts[st]++
		if !statusIsFinal(st) {
			open++
		}
	}
	m.ThreadsByStatus.Reset()
	for st, n := range counts {
		m.ThreadsByStatus.WithLabelValues(st.String()).Set(float64(n))
	}
	m.OpenThreads.Set(float64(open))
}

// forgetThread drops a removed thread from the tally and recomputes the
// gauges, so it no longer counts toward any gauge.
func (m *Metrics) forgetThread(id ThrID) {
	if m == nil {
		return
	}
	m.mu.Lock()
	delete(m.tally, id)
	m.publishLocked()
	m.mu.Unlock()
}
