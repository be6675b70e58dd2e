package genetic

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

// Population is an ordered set of individuals with cached summary statistics
type Population struct {
	Individuals []*Individual

	best           *Individual
	averageFitness float64
}

// Initialize replaces the population with the seed (when non-nil) followed by random
// individuals up to size. Each random slot is filled with probability assignProbability
// by a uniformly chosen eligible person; manually assigned slots always hold their
// designated person.
func (p *Population) Initialize(seed *Individual, size int, sctx *model.SchedulingContext, assignProbability float64, rng *rand.Rand) {
	p.Individuals = make([]*Individual, 0, size)
	p.best = nil
	p.averageFitness = 0

	if seed != nil && size > 0 {
		p.Individuals = append(p.Individuals, seed.Clone())
	}
	for len(p.Individuals) < size {
		p.Individuals = append(p.Individuals, RandomIndividual(sctx, assignProbability, rng))
	}
}

// RandomIndividual builds a random genome for the context
func RandomIndividual(sctx *model.SchedulingContext, assignProbability float64, rng *rand.Rand) *Individual {
	ind := NewIndividual(sctx.NumDates(), sctx.NumPositions())
	for date := 0; date < sctx.NumDates(); date++ {
		for period := model.Period(0); period < model.NumPeriods; period++ {
			for pos := range sctx.Positions {
				ind.Grids[date].Set(period, pos, randomGene(sctx, date, period, pos, assignProbability, rng))
			}
		}
	}
	return ind
}

func randomGene(sctx *model.SchedulingContext, date int, period model.Period, pos int, assignProbability float64, rng *rand.Rand) int {
	if designated := sctx.ManualAt(date, period, pos); designated != model.Unassigned {
		return designated
	}
	eligible := sctx.Positions[pos].Eligible
	if len(eligible) == 0 || rng.Float64() >= assignProbability {
		return model.Unassigned
	}
	return eligible[rng.Intn(len(eligible))]
}

// Evaluate scores every individual in parallel and refreshes the cached statistics.
// Individuals are independent and the evaluator is read-only, so workers share nothing
// mutable. A non-positive workers value means one goroutine per individual.
func (p *Population) Evaluate(ctx context.Context, evaluator *FitnessEvaluator, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for _, ind := range p.Individuals {
		if ind.Evaluated() {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			evaluator.Evaluate(ind)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to evaluate population: %w", err)
	}
	p.refresh()
	return nil
}

func (p *Population) refresh() {
	p.best = nil
	p.averageFitness = 0
	if len(p.Individuals) == 0 {
		return
	}
	total := 0.0
	for _, ind := range p.Individuals {
		total += ind.Fitness
		if p.best == nil || ind.Fitness > p.best.Fitness {
			p.best = ind
		}
	}
	p.averageFitness = total / float64(len(p.Individuals))
}

// Best returns the fittest individual from the last evaluation (nil before any)
func (p *Population) Best() *Individual {
	return p.best
}

// AverageFitness returns the mean fitness from the last evaluation
func (p *Population) AverageFitness() float64 {
	return p.averageFitness
}

// Size returns the number of individuals
func (p *Population) Size() int {
	return len(p.Individuals)
}

// GetElites returns deep copies of the n fittest individuals, best first
func (p *Population) GetElites(n int) []*Individual {
	ranked := make([]*Individual, len(p.Individuals))
	copy(ranked, p.Individuals)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness > ranked[j].Fitness
	})

	n = min(n, len(ranked))
	elites := make([]*Individual, 0, max(n, 0))
	for i := 0; i < n; i++ {
		elites = append(elites, ranked[i].Clone())
	}
	return elites
}
