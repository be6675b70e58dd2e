package search

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jakechorley/guard-rota/pkg/utils/metrics"
)

// Metrics records search progress in Prometheus collectors
type Metrics struct {
	attempts   prometheus.Counter
	backtracks *prometheus.CounterVec
	deadEnds   prometheus.Counter
	unassigned prometheus.Gauge
	maxDepth   prometheus.Gauge
}

// NewMetrics registers the search collectors on reg.
// A nil registerer defaults to the global one; already registered collectors are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	attempts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guard_rota_candidate_attempts_total",
		Help: "Candidate assignments tried by the backtracking engine",
	})
	backtracks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_rota_backtracks_total",
		Help: "Backtrack calls by outcome",
	}, []string{"outcome"})
	deadEnds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guard_rota_dead_ends_total",
		Help: "Slots found with no feasible candidate",
	})
	unassigned := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "guard_rota_unassigned_slots",
		Help: "Slots left unassigned by the last solve",
	})
	maxDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "guard_rota_max_stack_depth",
		Help: "Deepest assignment stack observed",
	})

	var err error
	if attempts, err = metrics.Register(reg, attempts); err != nil {
		return nil, err
	}
	if backtracks, err = metrics.Register(reg, backtracks); err != nil {
		return nil, err
	}
	if deadEnds, err = metrics.Register(reg, deadEnds); err != nil {
		return nil, err
	}
	if unassigned, err = metrics.Register(reg, unassigned); err != nil {
		return nil, err
	}
	if maxDepth, err = metrics.Register(reg, maxDepth); err != nil {
		return nil, err
	}

	return &Metrics{
		attempts:   attempts,
		backtracks: backtracks,
		deadEnds:   deadEnds,
		unassigned: unassigned,
		maxDepth:   maxDepth,
	}, nil
}

// Recording methods are no-ops on a nil *Metrics so the engine can run without metrics
func (m *Metrics) attempt() {
	if m != nil {
		m.attempts.Inc()
	}
}

func (m *Metrics) backtrack(outcome BacktrackOutcome) {
	if m != nil {
		m.backtracks.WithLabelValues(outcome.String()).Inc()
	}
}

func (m *Metrics) deadEnd() {
	if m != nil {
		m.deadEnds.Inc()
	}
}

func (m *Metrics) depth(d int) {
	if m != nil {
		m.maxDepth.Set(float64(d))
	}
}

func (m *Metrics) setUnassigned(n int) {
	if m != nil {
		m.unassigned.Set(float64(n))
	}
}
