package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/guard-rota/internal/config"
	"github.com/jakechorley/guard-rota/pkg/core/model"
	"github.com/jakechorley/guard-rota/pkg/db"
)

// SchedulingInputStore defines the reads needed to build a scheduling context
type SchedulingInputStore interface {
	db.PersonnelStore
	GetHistory(ctx context.Context, before time.Time) ([]db.Assignment, error)
}

// buildSchedulingContext loads personnel, positions, rules, manual assignments and history
// for [from, to] and assembles the read-only context the scheduler works from
func buildSchedulingContext(
	ctx context.Context,
	database SchedulingInputStore,
	cfg *config.Config,
	from, to time.Time,
	logger *zap.Logger,
) (*model.SchedulingContext, error) {
	logger.Debug("Fetching personnel")
	storedPersonnel, err := database.GetPersonnel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch personnel: %w", err)
	}

	logger.Debug("Fetching positions")
	storedPositions, err := database.GetPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch positions: %w", err)
	}

	logger.Debug("Fetching fixed rules")
	storedRules, err := database.GetFixedRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fixed rules: %w", err)
	}

	logger.Debug("Fetching manual assignments")
	storedManual, err := database.GetManualAssignments(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manual assignments: %w", err)
	}

	logger.Debug("Fetching assignment history")
	history, err := database.GetHistory(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignment history: %w", err)
	}

	logger.Debug("Loaded scheduling inputs",
		zap.Int("personnel", len(storedPersonnel)),
		zap.Int("positions", len(storedPositions)),
		zap.Int("fixed_rules", len(storedRules)),
		zap.Int("manual_assignments", len(storedManual)),
		zap.Int("history", len(history)))

	// Recurring holidays are expanded back to the oldest history entry so holiday
	// counters seeded from history see them too
	calendarStart := from
	for _, a := range history {
		if d, err := db.ParseDate(a.Date); err == nil && d.Before(calendarStart) {
			calendarStart = d
		}
	}
	isHoliday, err := cfg.Holidays.HolidayCalendar(calendarStart, to)
	if err != nil {
		return nil, fmt.Errorf("failed to build holiday calendar: %w", err)
	}

	persons := make([]model.Person, len(storedPersonnel))
	for i, p := range storedPersonnel {
		persons[i] = p.ToModel()
	}
	if err := seedHistory(persons, history, from, isHoliday); err != nil {
		return nil, fmt.Errorf("failed to seed history: %w", err)
	}

	positions := make([]model.Position, len(storedPositions))
	for i, p := range storedPositions {
		positions[i] = p.ToModel()
	}

	rules := make([]model.FixedPositionRule, len(storedRules))
	for i, r := range storedRules {
		rules[i] = r.ToModel()
	}

	manual, err := mergeManualAssignments(storedManual, cfg, from, to)
	if err != nil {
		return nil, err
	}

	sctx, err := model.NewSchedulingContext(model.ContextInput{
		Dates:      model.DateRange(from, to),
		Persons:    persons,
		Positions:  positions,
		IsHoliday:  isHoliday,
		FixedRules: rules,
		Manual:     manual,
		PriorDay:   priorDayShifts(history, from),
	})
	if err != nil {
		return nil, fmt.Errorf("invalid scheduling inputs: %w", err)
	}
	return sctx, nil
}

// mergeManualAssignments combines stored manual assignments with the config's recurring overrides
func mergeManualAssignments(stored []db.ManualAssignment, cfg *config.Config, from, to time.Time) ([]model.ManualAssignment, error) {
	manual := make([]model.ManualAssignment, 0, len(stored))
	for _, m := range stored {
		converted, err := m.ToModel()
		if err != nil {
			return nil, err
		}
		manual = append(manual, converted)
	}

	overrides, err := cfg.ManualAssignments(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to expand manual overrides: %w", err)
	}
	return append(manual, overrides...), nil
}

// seedHistory sets each person's rolling counters from assignments dated before start.
// An assignment d days before start in period p happened d*12-p periods ago.
func seedHistory(persons []model.Person, history []db.Assignment, start time.Time, isHoliday model.HolidayPredicate) error {
	index := make(map[int]int, len(persons))
	for i, p := range persons {
		index[p.ID] = i
	}

	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for _, a := range history {
		i, ok := index[a.PersonID]
		if !ok {
			continue
		}
		date, err := db.ParseDate(a.Date)
		if err != nil {
			return fmt.Errorf("invalid history date %q: %w", a.Date, err)
		}
		days := int(start.Sub(date).Hours() / 24)
		if days <= 0 {
			continue
		}
		since := days*model.NumPeriods - a.Period

		p := &persons[i]
		p.PeriodsSinceLastShift = closer(p.PeriodsSinceLastShift, since)
		p.PeriodsSincePeriod[a.Period] = closer(p.PeriodsSincePeriod[a.Period], since)
		if isHoliday(date) {
			p.PeriodsSinceLastHoliday = closer(p.PeriodsSinceLastHoliday, since)
		}
	}
	return nil
}

// priorDayShifts returns the history assignments dated the day before start.
// Overlapping stored runs for that day are merged.
func priorDayShifts(history []db.Assignment, start time.Time) []model.PriorShift {
	prior := start.AddDate(0, 0, -1).Format(model.DateLayout)
	var shifts []model.PriorShift
	for _, a := range history {
		if a.Date == prior {
			shifts = append(shifts, model.PriorShift{Period: model.Period(a.Period), PersonID: a.PersonID})
		}
	}
	return shifts
}

// closer keeps the most recent of two "periods since" counters, where negative means never
func closer(current, candidate int) int {
	if current < 0 || candidate < current {
		return candidate
	}
	return current
}
