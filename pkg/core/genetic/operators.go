package genetic

import (
	"math/rand"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

// SelectByTournament returns the fittest of k randomly drawn individuals
func SelectByTournament(pop []*Individual, k int, rng *rand.Rand) *Individual {
	k = max(k, 1)
	var best *Individual
	for i := 0; i < k; i++ {
		candidate := pop[rng.Intn(len(pop))]
		if best == nil || candidate.Fitness > best.Fitness {
			best = candidate
		}
	}
	return best
}

// SelectByRoulette picks an individual with probability proportional to its fitness.
// Fitness is shifted so the worst individual still has a small positive weight, which
// keeps the wheel valid when penalties push fitness below zero.
func SelectByRoulette(pop []*Individual, rng *rand.Rand) *Individual {
	worst := pop[0].Fitness
	for _, ind := range pop {
		worst = min(worst, ind.Fitness)
	}
	const floor = 1e-9
	sum := 0.0
	for _, ind := range pop {
		sum += ind.Fitness - worst + floor
	}

	pick := rng.Float64() * sum
	partial := 0.0
	for _, ind := range pop {
		partial += ind.Fitness - worst + floor
		if partial >= pick {
			return ind
		}
	}
	return pop[len(pop)-1]
}

// Crossover swaps every date grid after a random cut point between two genomes of the
// same shape. Genomes with fewer than two dates are left untouched.
func Crossover(a, b *Individual, rng *rand.Rand) {
	if a.NumDates() != b.NumDates() || a.NumPositions() != b.NumPositions() || a.NumDates() < 2 {
		return
	}
	point := 1 + rng.Intn(a.NumDates()-1)
	for date := point; date < a.NumDates(); date++ {
		a.Grids[date], b.Grids[date] = b.Grids[date], a.Grids[date]
	}
	a.evaluated = false
	b.evaluated = false
}

// Mutate reassigns each gene with probability rate to a random eligible person or to
// unassigned. Manually assigned genes are restored to their designated person.
func Mutate(ind *Individual, sctx *model.SchedulingContext, rate float64, rng *rand.Rand) {
	for date := 0; date < ind.NumDates(); date++ {
		for period := model.Period(0); period < model.NumPeriods; period++ {
			for pos := 0; pos < ind.NumPositions(); pos++ {
				if designated := sctx.ManualAt(date, period, pos); designated != model.Unassigned {
					if ind.PersonAt(date, period, pos) != designated {
						ind.Set(date, period, pos, designated)
					}
					continue
				}
				if rng.Float64() >= rate {
					continue
				}
				eligible := sctx.Positions[pos].Eligible
				choice := rng.Intn(len(eligible) + 1)
				if choice == len(eligible) {
					ind.Set(date, period, pos, model.Unassigned)
				} else {
					ind.Set(date, period, pos, eligible[choice])
				}
			}
		}
	}
}
