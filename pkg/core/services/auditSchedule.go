package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/guard-rota/internal/config"
	"github.com/jakechorley/guard-rota/pkg/core/constraints"
	"github.com/jakechorley/guard-rota/pkg/core/model"
	"github.com/jakechorley/guard-rota/pkg/db"
)

// StoredScheduleStore defines the database operations needed to reload a stored run
type StoredScheduleStore interface {
	SchedulingInputStore
	GetRuns(ctx context.Context) ([]db.Run, error)
	GetRun(ctx context.Context, id string) (*db.Run, error)
	GetAssignments(ctx context.Context, from, to time.Time) ([]db.Assignment, error)
}

// StoredSchedule is a run reloaded into a schedule against current personnel data
type StoredSchedule struct {
	Run      *db.Run
	Context  *model.SchedulingContext
	Schedule *model.Schedule
}

// AuditResult contains the re-validation of a stored run
type AuditResult struct {
	StoredSchedule
	Report constraints.ConsistencyReport
}

// AuditSchedule re-validates every assignment of a stored run against the current rules.
// An empty runID audits the most recent run.
func AuditSchedule(
	ctx context.Context,
	database StoredScheduleStore,
	cfg *config.Config,
	logger *zap.Logger,
	runID string,
) (*AuditResult, error) {
	stored, err := loadStoredSchedule(ctx, database, cfg, logger, runID)
	if err != nil {
		return nil, err
	}

	validator, err := constraints.NewValidator(stored.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	report := validator.Audit(stored.Schedule)
	logger.Info("Audit completed",
		zap.String("run_id", stored.Run.ID),
		zap.Int("checked", report.Checked),
		zap.Int("unassigned", report.Unassigned),
		zap.Int("violations", len(report.Violations)))

	return &AuditResult{StoredSchedule: *stored, Report: report}, nil
}

// loadStoredSchedule resolves the run and rebuilds its schedule from the stored assignments
func loadStoredSchedule(
	ctx context.Context,
	database StoredScheduleStore,
	cfg *config.Config,
	logger *zap.Logger,
	runID string,
) (*StoredSchedule, error) {
	run, err := resolveRun(ctx, database, runID)
	if err != nil {
		return nil, err
	}
	logger.Debug("Using run",
		zap.String("id", run.ID),
		zap.String("start", run.Start),
		zap.String("end", run.End),
		zap.String("source", run.Source))

	from, err := db.ParseDate(run.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run start date: %w", err)
	}
	to, err := db.ParseDate(run.End)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run end date: %w", err)
	}

	sctx, err := buildSchedulingContext(ctx, database, cfg, from, to, logger)
	if err != nil {
		return nil, err
	}

	assignments, err := database.GetAssignments(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignments: %w", err)
	}

	schedule, err := scheduleFromAssignments(sctx, filterAssignmentsByRunID(assignments, run.ID))
	if err != nil {
		return nil, err
	}

	return &StoredSchedule{Run: run, Context: sctx, Schedule: schedule}, nil
}

func resolveRun(ctx context.Context, database StoredScheduleStore, runID string) (*db.Run, error) {
	if runID != "" {
		run, err := database.GetRun(ctx, runID)
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch run: %w", err)
		}
		return run, nil
	}

	runs, err := database.GetRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs found - please generate a schedule first")
	}
	return findLatestRun(runs), nil
}

// findLatestRun returns the most recently created run
func findLatestRun(runs []db.Run) *db.Run {
	latest := &runs[0]
	for i := 1; i < len(runs); i++ {
		if runs[i].CreatedAt > latest.CreatedAt {
			latest = &runs[i]
		}
	}
	return latest
}

func filterAssignmentsByRunID(assignments []db.Assignment, runID string) []db.Assignment {
	var filtered []db.Assignment
	for _, a := range assignments {
		if a.RunID == runID {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// scheduleFromAssignments writes stored rows into an empty schedule for the context
func scheduleFromAssignments(sctx *model.SchedulingContext, assignments []db.Assignment) (*model.Schedule, error) {
	schedule := sctx.NewSchedule()
	for _, a := range assignments {
		date, err := db.ParseDate(a.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid assignment date %q: %w", a.Date, err)
		}
		dateIdx := sctx.DateIndex(date)
		if dateIdx < 0 {
			continue
		}
		posIdx, ok := sctx.PositionIndex(a.PositionID)
		if !ok {
			return nil, fmt.Errorf("assignment %s references unknown position %d", a.ID, a.PositionID)
		}
		schedule.RecordAssignment(dateIdx, model.Period(a.Period), posIdx, a.PersonID)
	}
	return schedule, nil
}
