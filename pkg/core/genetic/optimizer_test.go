package genetic_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/guard-rota/pkg/core/constraints"
	"github.com/jakechorley/guard-rota/pkg/core/genetic"
	"github.com/jakechorley/guard-rota/pkg/core/model"
	"github.com/jakechorley/guard-rota/pkg/core/scoring"
	"github.com/jakechorley/guard-rota/pkg/core/scoring/criteria"
	"github.com/jakechorley/guard-rota/pkg/core/search"
)

type fixture struct {
	sctx      *model.SchedulingContext
	validator *constraints.Validator
	calc      *scoring.Calculator
}

func newFixture(t *testing.T, dates, persons, positions int) fixture {
	t.Helper()
	start := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	input := model.ContextInput{Dates: model.DateRange(start, start.AddDate(0, 0, dates-1))}
	var ids []int
	for i := 1; i <= persons; i++ {
		input.Persons = append(input.Persons, model.NewPerson(i, "guard"))
		ids = append(ids, i)
	}
	for i := 0; i < positions; i++ {
		input.Positions = append(input.Positions, model.Position{ID: 30 + i, Name: "gate", Eligible: ids})
	}
	sctx, err := model.NewSchedulingContext(input)
	require.NoError(t, err)
	validator, err := constraints.NewValidator(sctx)
	require.NoError(t, err)
	calc, err := scoring.NewCalculator(sctx, scoring.DefaultParams(), criteria.Defaults(criteria.DefaultWeights())...)
	require.NoError(t, err)
	return fixture{sctx: sctx, validator: validator, calc: calc}
}

func smallConfig() genetic.Config {
	cfg := genetic.DefaultConfig()
	cfg.PopulationSize = 8
	cfg.Generations = 5
	cfg.StallGenerations = 0
	cfg.Workers = 2
	return cfg
}

func TestNewOptimizer_RejectsBadConfig(t *testing.T) {
	f := newFixture(t, 1, 4, 1)

	cfg := smallConfig()
	cfg.PopulationSize = 0
	_, err := genetic.NewOptimizer(f.sctx, f.validator, f.calc, cfg, nil)
	assert.Error(t, err)

	cfg = smallConfig()
	cfg.EliteCount = cfg.PopulationSize + 1
	_, err = genetic.NewOptimizer(f.sctx, f.validator, f.calc, cfg, nil)
	assert.Error(t, err)
}

func TestOptimizer_NeverWorseThanSeed(t *testing.T) {
	f := newFixture(t, 2, 12, 2)
	engine := search.NewEngine(f.sctx, f.validator, f.calc, search.DefaultConfig(), zap.NewNop())
	result, err := engine.Solve(context.Background())
	require.NoError(t, err)
	require.True(t, result.Complete())

	optimizer, err := genetic.NewOptimizer(f.sctx, f.validator, f.calc, smallConfig(), zap.NewNop())
	require.NoError(t, err)

	seed := genetic.FromSchedule(result.Schedule)
	seedFitness := optimizer.Evaluator().Evaluate(seed)
	require.Equal(t, 0, seed.HardViolations)

	best, err := optimizer.Run(context.Background(), result.Schedule)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, best.Fitness, seedFitness)
	assert.Equal(t, 0, best.HardViolations)
	assert.Equal(t, 0, best.Unassigned)
}

func TestOptimizer_RandomStartRecordsMetrics(t *testing.T) {
	f := newFixture(t, 1, 6, 1)
	reg := prometheus.NewRegistry()
	m, err := genetic.NewMetrics(reg)
	require.NoError(t, err)

	cfg := smallConfig()
	cfg.Generations = 3
	cfg.Metrics = m
	optimizer, err := genetic.NewOptimizer(f.sctx, f.validator, f.calc, cfg, nil)
	require.NoError(t, err)

	best, err := optimizer.Run(context.Background(), nil)

	require.NoError(t, err)
	require.NotNil(t, best)
	count, err := testutil.GatherAndCount(reg, "guard_rota_ga_generations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	again, err := genetic.NewMetrics(reg)
	require.NoError(t, err, "collectors are reused on a second registration")
	assert.NotNil(t, again)
}

func TestOptimizer_Cancelled(t *testing.T) {
	f := newFixture(t, 1, 4, 1)
	optimizer, err := genetic.NewOptimizer(f.sctx, f.validator, f.calc, smallConfig(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = optimizer.Run(ctx, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFitnessEvaluator_BackToBackShiftCostsOnePenalty(t *testing.T) {
	f := newFixture(t, 1, 4, 1)
	evaluator := genetic.NewFitnessEvaluator(f.validator, f.calc, genetic.DefaultFitnessConfig())

	// Nights 0-2 and 11 go to different persons, days rotate 1, 2, 3
	rota := [model.NumPeriods]int{1, 2, 3, 1, 2, 3, 1, 2, 3, 1, 2, 4}
	clean := genetic.NewIndividual(1, 1)
	for period, personID := range rota {
		clean.Set(0, model.Period(period), 0, personID)
	}
	cleanFitness := evaluator.Evaluate(clean)
	require.Equal(t, 0, clean.HardViolations)

	clash := clean.Clone()
	clash.Set(0, 9, 0, 2)
	clashFitness := evaluator.Evaluate(clash)

	assert.Equal(t, 1, clash.HardViolations, "periods 9 and 10 are one clash")
	assert.InDelta(t, -genetic.DefaultFitnessConfig().HardPenalty, clashFitness-cleanFitness, 5)
}
