package genetic

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jakechorley/guard-rota/pkg/utils/metrics"
)

// Metrics records optimiser progress
type Metrics struct {
	generations prometheus.Counter
	bestFitness prometheus.Gauge
}

// NewMetrics registers the optimiser collectors on reg (nil means the default registerer)
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	generations, err := metrics.Register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guard_rota_ga_generations_total",
		Help: "Generations run by the genetic optimiser",
	}))
	if err != nil {
		return nil, err
	}
	bestFitness, err := metrics.Register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "guard_rota_ga_best_fitness",
		Help: "Fitness of the best individual found",
	}))
	if err != nil {
		return nil, err
	}
	return &Metrics{generations: generations, bestFitness: bestFitness}, nil
}

func (m *Metrics) generation(best float64) {
	if m == nil {
		return
	}
	m.generations.Inc()
	m.bestFitness.Set(best)
}
