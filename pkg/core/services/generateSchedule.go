package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jakechorley/guard-rota/internal/config"
	"github.com/jakechorley/guard-rota/pkg/core/constraints"
	"github.com/jakechorley/guard-rota/pkg/core/genetic"
	"github.com/jakechorley/guard-rota/pkg/core/model"
	"github.com/jakechorley/guard-rota/pkg/core/scoring"
	"github.com/jakechorley/guard-rota/pkg/core/scoring/criteria"
	"github.com/jakechorley/guard-rota/pkg/core/search"
	"github.com/jakechorley/guard-rota/pkg/db"
)

const (
	SourceBacktracking = "backtracking"
	SourceGenetic      = "genetic"
)

// GenerateScheduleStore defines the database operations needed for generating a schedule
type GenerateScheduleStore interface {
	SchedulingInputStore
	InsertRun(ctx context.Context, run *db.Run) error
	InsertAssignments(ctx context.Context, assignments []db.Assignment) error
}

// GenerateOptions controls a schedule generation
type GenerateOptions struct {
	From time.Time
	To   time.Time

	// DryRun skips persisting the run
	DryRun bool

	// ForceCommit persists the run even when slots are left unassigned
	ForceCommit bool

	// NoGA disables the genetic repair pass regardless of config
	NoGA bool

	// Registerer receives search and optimiser metrics (nil disables them)
	Registerer prometheus.Registerer
}

// GenerateScheduleResult contains the generated schedule and its diagnostics
type GenerateScheduleResult struct {
	RunID       string
	Source      string
	Context     *model.SchedulingContext
	Schedule    *model.Schedule
	Diagnostics search.Diagnostics
	Report      constraints.ConsistencyReport
	Fitness     float64
	Duration    time.Duration
	Saved       bool
}

// Complete returns true if every slot is filled
func (r *GenerateScheduleResult) Complete() bool {
	return r.Report.Unassigned == 0
}

// GenerateSchedule fills every (date, period, position) slot in [From, To].
// Backtracking search runs first; if it leaves slots open the genetic optimiser tries to
// repair the schedule, and its result is kept only if it is violation-free and fitter.
func GenerateSchedule(
	ctx context.Context,
	database GenerateScheduleStore,
	cfg *config.Config,
	logger *zap.Logger,
	opts GenerateOptions,
) (*GenerateScheduleResult, error) {
	if opts.To.Before(opts.From) {
		return nil, fmt.Errorf("end date %s is before start date %s",
			opts.To.Format(model.DateLayout), opts.From.Format(model.DateLayout))
	}

	logger.Debug("Starting generateSchedule",
		zap.String("from", opts.From.Format(model.DateLayout)),
		zap.String("to", opts.To.Format(model.DateLayout)),
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("no_ga", opts.NoGA))

	sctx, err := buildSchedulingContext(ctx, database, cfg, opts.From, opts.To, logger)
	if err != nil {
		return nil, err
	}

	validator, err := constraints.NewValidator(sctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	calc, err := scoring.NewCalculator(sctx, scoringParams(cfg), criteria.Defaults(scoringWeights(cfg))...)
	if err != nil {
		return nil, fmt.Errorf("failed to create score calculator: %w", err)
	}

	searchCfg := searchConfig(cfg)
	if opts.Registerer != nil {
		if searchCfg.Metrics, err = search.NewMetrics(opts.Registerer); err != nil {
			return nil, fmt.Errorf("failed to register search metrics: %w", err)
		}
	}

	engine := search.NewEngine(sctx, validator, calc, searchCfg, logger)
	searchResult, err := engine.Solve(ctx)
	if err != nil {
		return nil, fmt.Errorf("backtracking search failed: %w", err)
	}

	result := &GenerateScheduleResult{
		Source:      SourceBacktracking,
		Context:     sctx,
		Schedule:    searchResult.Schedule,
		Diagnostics: searchResult.Diagnostics,
		Duration:    searchResult.Duration,
	}

	evaluator := genetic.NewFitnessEvaluator(validator, calc, geneticConfig(cfg).Fitness)
	result.Fitness = evaluator.Evaluate(genetic.FromSchedule(result.Schedule))

	if !searchResult.Complete() {
		logger.Warn("Backtracking left slots unassigned",
			zap.Int("unassigned", len(searchResult.Diagnostics.Unassigned)),
			zap.String("summary", searchResult.Diagnostics.Summary()))

		if opts.NoGA || cfg.Genetic.Disabled {
			logger.Info("Genetic repair disabled")
		} else if err := repairWithGenetic(ctx, sctx, validator, calc, cfg, opts, result, logger); err != nil {
			return nil, err
		}
	}

	result.Report = validator.Audit(result.Schedule)
	logger.Info("Schedule generated",
		zap.String("source", result.Source),
		zap.Int("checked", result.Report.Checked),
		zap.Int("unassigned", result.Report.Unassigned),
		zap.Int("violations", len(result.Report.Violations)),
		zap.Float64("fitness", result.Fitness))

	for _, v := range result.Report.Violations {
		logger.Warn("Constraint violation", zap.String("rule", v.RuleName), zap.String("detail", v.Error()))
	}

	switch {
	case opts.DryRun:
		logger.Info("Dry run mode - schedule not saved")
		return result, nil
	case !result.Report.Consistent():
		return nil, fmt.Errorf("generated schedule has %d constraint violations", len(result.Report.Violations))
	case !result.Complete() && !opts.ForceCommit:
		logger.Warn("Schedule incomplete - not saving to database (use force commit to save anyway)")
		return result, nil
	}

	if err := saveRun(ctx, database, opts, result, logger); err != nil {
		return nil, err
	}
	return result, nil
}

// repairWithGenetic runs the optimiser from the partial schedule and adopts its best
// individual when that is violation-free and fitter than the partial schedule
func repairWithGenetic(
	ctx context.Context,
	sctx *model.SchedulingContext,
	validator *constraints.Validator,
	calc *scoring.Calculator,
	cfg *config.Config,
	opts GenerateOptions,
	result *GenerateScheduleResult,
	logger *zap.Logger,
) error {
	gaCfg := geneticConfig(cfg)
	if opts.Registerer != nil {
		m, err := genetic.NewMetrics(opts.Registerer)
		if err != nil {
			return fmt.Errorf("failed to register genetic metrics: %w", err)
		}
		gaCfg.Metrics = m
	}

	optimizer, err := genetic.NewOptimizer(sctx, validator, calc, gaCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create genetic optimiser: %w", err)
	}

	best, err := optimizer.Run(ctx, result.Schedule)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("genetic repair interrupted: %w", err)
		}
		return fmt.Errorf("genetic repair failed: %w", err)
	}

	if best.HardViolations > 0 || best.Fitness <= result.Fitness {
		logger.Info("Keeping backtracking schedule",
			zap.Float64("backtracking_fitness", result.Fitness),
			zap.Float64("genetic_fitness", best.Fitness),
			zap.Int("genetic_violations", best.HardViolations))
		return nil
	}

	logger.Info("Adopting genetic schedule",
		zap.Float64("backtracking_fitness", result.Fitness),
		zap.Float64("genetic_fitness", best.Fitness),
		zap.Int("unassigned", best.Unassigned))
	result.Source = SourceGenetic
	result.Schedule = best.ToSchedule(sctx.Dates)
	result.Fitness = best.Fitness
	result.Diagnostics = stillOpen(result.Diagnostics, result.Schedule)
	return nil
}

// stillOpen drops the diagnostics for slots the schedule has since filled
func stillOpen(diags search.Diagnostics, schedule *model.Schedule) search.Diagnostics {
	open := make([]search.SlotDiagnostic, 0, len(diags.Unassigned))
	for _, d := range diags.Unassigned {
		if schedule.PersonAt(d.Slot.Date, d.Slot.Period, d.Slot.Position) == model.Unassigned {
			open = append(open, d)
		}
	}
	diags.Unassigned = open
	return diags
}

func saveRun(ctx context.Context, database GenerateScheduleStore, opts GenerateOptions, result *GenerateScheduleResult, logger *zap.Logger) error {
	assigned := result.Schedule.AssignedCount()
	run := &db.Run{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		Start:      opts.From.Format(model.DateLayout),
		End:        opts.To.Format(model.DateLayout),
		Source:     result.Source,
		Assigned:   assigned,
		Unassigned: result.Schedule.TotalSlots() - assigned,
		Fitness:    result.Fitness,
	}

	logger.Info("Saving run", zap.String("run_id", run.ID), zap.Int("assigned", run.Assigned))
	if err := database.InsertRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	assignments := db.AssignmentsFromSchedule(run.ID, result.Schedule, result.Context.Positions, func() string {
		return uuid.New().String()
	})
	if err := database.InsertAssignments(ctx, assignments); err != nil {
		return fmt.Errorf("failed to save assignments: %w", err)
	}

	logger.Info("Run saved", zap.String("run_id", run.ID), zap.Int("assignments", len(assignments)))
	result.RunID = run.ID
	result.Saved = true
	return nil
}

func scoringParams(cfg *config.Config) scoring.Params {
	return scoring.Params{
		MaxRestDays:        float64(cfg.Scoring.MaxRestDays),
		NeverAssignedScore: cfg.Scoring.NeverAssignedScore,
	}
}

func scoringWeights(cfg *config.Config) criteria.Weights {
	rest, holiday, period := cfg.Scoring.Weights()
	return criteria.Weights{Rest: rest, Holiday: holiday, Period: period}
}

func searchConfig(cfg *config.Config) search.Config {
	return search.Config{
		MaxDepth:             cfg.Search.MaxDepth,
		MaxBacktracksPerDate: cfg.Search.MaxBacktracksPerDate,
		MemoryCheckInterval:  cfg.Search.MemoryCheckInterval,
		MemoryThresholdBytes: uint64(cfg.Search.MemoryThresholdMB) << 20,
	}
}

func geneticConfig(cfg *config.Config) genetic.Config {
	gaCfg := genetic.DefaultConfig()
	gaCfg.PopulationSize = cfg.Genetic.PopulationSize
	gaCfg.Generations = cfg.Genetic.Generations
	gaCfg.EliteCount = min(cfg.Genetic.EliteCount, cfg.Genetic.PopulationSize)
	gaCfg.CrossoverRate = cfg.Genetic.CrossoverRate
	gaCfg.MutationRate = cfg.Genetic.MutationRate
	gaCfg.StallGenerations = cfg.Genetic.StallGenerations
	gaCfg.Workers = cfg.Genetic.Workers
	gaCfg.Seed = cfg.Genetic.Seed
	if cfg.Genetic.AssignProbability > 0 {
		gaCfg.AssignProbability = cfg.Genetic.AssignProbability
	}
	if cfg.Genetic.TournamentSize > 0 {
		gaCfg.TournamentSize = cfg.Genetic.TournamentSize
	}
	if cfg.Genetic.HardPenalty > 0 {
		gaCfg.Fitness.HardPenalty = cfg.Genetic.HardPenalty
	}
	if cfg.Genetic.UnassignedPenalty > 0 {
		gaCfg.Fitness.UnassignedPenalty = cfg.Genetic.UnassignedPenalty
	}
	return gaCfg
}
