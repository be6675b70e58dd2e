package genetic

import (
	"math"

	"github.com/jakechorley/guard-rota/pkg/core/constraints"
)

// ViolationCounter counts assignments that break hard rules.
// constraints.Validator satisfies it.
type ViolationCounter interface {
	CountViolations(view constraints.View) int
}

// SoftScorer returns the mean soft score of a complete schedule.
// scoring.Calculator satisfies it.
type SoftScorer interface {
	MeanScore(view constraints.View) float64
}

// FitnessConfig holds the penalty weights
type FitnessConfig struct {
	HardPenalty       float64
	UnassignedPenalty float64
}

// DefaultFitnessConfig returns the default penalties
func DefaultFitnessConfig() FitnessConfig {
	return FitnessConfig{HardPenalty: 10000, UnassignedPenalty: 1000}
}

// ComputeFitness combines the components into a single fitness value.
// Negative penalties are treated as zero.
func ComputeFitness(meanSoft float64, violations, unassigned int, cfg FitnessConfig) float64 {
	hard := math.Max(cfg.HardPenalty, 0)
	open := math.Max(cfg.UnassignedPenalty, 0)
	return meanSoft - float64(violations)*hard - float64(unassigned)*open
}

// FitnessEvaluator scores individuals against their own genome only.
// It holds no mutable state, so one evaluator can be shared between goroutines as long
// as its counter and scorer are read-only.
type FitnessEvaluator struct {
	counter ViolationCounter
	scorer  SoftScorer
	cfg     FitnessConfig
}

// NewFitnessEvaluator creates an evaluator
func NewFitnessEvaluator(counter ViolationCounter, scorer SoftScorer, cfg FitnessConfig) *FitnessEvaluator {
	return &FitnessEvaluator{counter: counter, scorer: scorer, cfg: cfg}
}

// Evaluate fills in the individual's derived fields and returns its fitness
func (f *FitnessEvaluator) Evaluate(ind *Individual) float64 {
	ind.HardViolations = f.counter.CountViolations(ind)
	ind.SoftScore = f.scorer.MeanScore(ind)
	ind.Unassigned = ind.UnassignedCount()
	ind.Fitness = ComputeFitness(ind.SoftScore, ind.HardViolations, ind.Unassigned, f.cfg)
	ind.evaluated = true
	return ind.Fitness
}
