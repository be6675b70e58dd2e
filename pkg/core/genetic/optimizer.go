package genetic

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

// Config tunes the optimiser
type Config struct {
	PopulationSize    int
	Generations       int
	EliteCount        int
	CrossoverRate     float64
	MutationRate      float64
	AssignProbability float64
	TournamentSize    int

	// Workers bounds parallel fitness evaluation (0 means unbounded)
	Workers int

	// Seed makes runs reproducible
	Seed int64

	// StallGenerations stops the run after this many generations without improvement (0 disables)
	StallGenerations int

	Fitness FitnessConfig
	Metrics *Metrics
}

// DefaultConfig returns the default optimiser settings
func DefaultConfig() Config {
	return Config{
		PopulationSize:    50,
		Generations:       100,
		EliteCount:        2,
		CrossoverRate:     0.8,
		MutationRate:      0.01,
		AssignProbability: 0.9,
		TournamentSize:    3,
		Workers:           4,
		Seed:              1,
		StallGenerations:  20,
		Fitness:           DefaultFitnessConfig(),
	}
}

// Optimizer evolves complete schedules towards fewer violations and open slots
type Optimizer struct {
	sctx      *model.SchedulingContext
	evaluator *FitnessEvaluator
	cfg       Config
	logger    *zap.Logger
	rng       *rand.Rand
}

// NewOptimizer creates an optimiser for the context
func NewOptimizer(sctx *model.SchedulingContext, counter ViolationCounter, scorer SoftScorer, cfg Config, logger *zap.Logger) (*Optimizer, error) {
	if cfg.PopulationSize < 1 {
		return nil, fmt.Errorf("population size must be positive, got %d", cfg.PopulationSize)
	}
	if cfg.EliteCount < 0 || cfg.EliteCount > cfg.PopulationSize {
		return nil, fmt.Errorf("elite count %d out of range for population %d", cfg.EliteCount, cfg.PopulationSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{
		sctx:      sctx,
		evaluator: NewFitnessEvaluator(counter, scorer, cfg.Fitness),
		cfg:       cfg,
		logger:    logger,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Evaluator returns the evaluator used for every generation
func (o *Optimizer) Evaluator() *FitnessEvaluator {
	return o.evaluator
}

// Run evolves a population seeded with the given schedule (nil seeds randomly) and returns
// the best individual seen. The best individual is never worse than the evaluated seed.
func (o *Optimizer) Run(ctx context.Context, seed *model.Schedule) (*Individual, error) {
	var seedInd *Individual
	if seed != nil {
		seedInd = FromSchedule(seed)
	}

	pop := &Population{}
	pop.Initialize(seedInd, o.cfg.PopulationSize, o.sctx, o.cfg.AssignProbability, o.rng)
	if err := pop.Evaluate(ctx, o.evaluator, o.cfg.Workers); err != nil {
		return nil, err
	}

	best := pop.Best().Clone()
	stall := 0
	o.logger.Info("Starting genetic optimisation",
		zap.Int("population", pop.Size()),
		zap.Int("generations", o.cfg.Generations),
		zap.Float64("initialBest", best.Fitness))

	for gen := 0; gen < o.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			o.logger.Warn("Genetic optimisation cancelled", zap.Int("generation", gen))
			return best, fmt.Errorf("genetic optimisation cancelled: %w", err)
		}

		pop.Individuals = o.nextGeneration(pop)
		if err := pop.Evaluate(ctx, o.evaluator, o.cfg.Workers); err != nil {
			return best, err
		}

		if pop.Best().Fitness > best.Fitness {
			best = pop.Best().Clone()
			stall = 0
		} else {
			stall++
		}
		o.cfg.Metrics.generation(best.Fitness)

		o.logger.Debug("Generation evaluated",
			zap.Int("generation", gen),
			zap.Float64("best", best.Fitness),
			zap.Float64("average", pop.AverageFitness()))

		if o.cfg.StallGenerations > 0 && stall >= o.cfg.StallGenerations {
			o.logger.Debug("Optimisation stalled", zap.Int("generation", gen))
			break
		}
	}

	o.logger.Info("Genetic optimisation finished",
		zap.Float64("fitness", best.Fitness),
		zap.Int("hardViolations", best.HardViolations),
		zap.Int("unassigned", best.Unassigned))
	return best, nil
}

func (o *Optimizer) nextGeneration(pop *Population) []*Individual {
	next := pop.GetElites(o.cfg.EliteCount)
	for len(next) < o.cfg.PopulationSize {
		a := SelectByTournament(pop.Individuals, o.cfg.TournamentSize, o.rng).Clone()
		b := SelectByTournament(pop.Individuals, o.cfg.TournamentSize, o.rng).Clone()
		if o.rng.Float64() < o.cfg.CrossoverRate {
			Crossover(a, b, o.rng)
		}
		Mutate(a, o.sctx, o.cfg.MutationRate, o.rng)
		Mutate(b, o.sctx, o.cfg.MutationRate, o.rng)
		next = append(next, a)
		if len(next) < o.cfg.PopulationSize {
			next = append(next, b)
		}
	}
	return next
}
