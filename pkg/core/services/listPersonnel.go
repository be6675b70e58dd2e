package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/guard-rota/pkg/db"
)

// PersonnelSummary is one person with the positions they may fill and their latest shift
type PersonnelSummary struct {
	Person    db.Person
	Positions []string
	LastShift string // Format: "2006-01-02", empty if never assigned
}

// ListPersonnelStore defines the database operations needed for listing personnel
type ListPersonnelStore interface {
	GetPersonnel(ctx context.Context) ([]db.Person, error)
	GetPositions(ctx context.Context) ([]db.Position, error)
	GetHistory(ctx context.Context, before time.Time) ([]db.Assignment, error)
}

// ListPersonnel returns every person sorted by name, with eligibility and last shift date
// strictly before asOf
func ListPersonnel(ctx context.Context, database ListPersonnelStore, logger *zap.Logger, asOf time.Time) ([]PersonnelSummary, error) {
	personnel, err := database.GetPersonnel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch personnel: %w", err)
	}

	positions, err := database.GetPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch positions: %w", err)
	}

	history, err := database.GetHistory(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignment history: %w", err)
	}

	logger.Debug("Listing personnel",
		zap.Int("personnel", len(personnel)),
		zap.Int("positions", len(positions)),
		zap.Int("history", len(history)))

	eligible := make(map[int][]string)
	for _, pos := range positions {
		for _, personID := range pos.Eligible {
			eligible[personID] = append(eligible[personID], pos.Name)
		}
	}

	lastShift := make(map[int]string)
	for _, a := range history {
		if a.Date > lastShift[a.PersonID] {
			lastShift[a.PersonID] = a.Date
		}
	}

	summaries := make([]PersonnelSummary, len(personnel))
	for i, p := range personnel {
		summaries[i] = PersonnelSummary{
			Person:    p,
			Positions: eligible[p.ID],
			LastShift: lastShift[p.ID],
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Person.Name < summaries[j].Person.Name
	})

	return summaries, nil
}

// PersonnelImporter replaces the personnel, positions and fixed rules of a store
type PersonnelImporter interface {
	ReplacePersonnel(ctx context.Context, personnel []db.Person, positions []db.Position, rules []db.FixedRule) error
}

// ImportPersonnel copies personnel, positions and fixed rules from source into target
func ImportPersonnel(ctx context.Context, source db.PersonnelStore, target PersonnelImporter, logger *zap.Logger) (int, error) {
	personnel, err := source.GetPersonnel(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch personnel: %w", err)
	}
	positions, err := source.GetPositions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch positions: %w", err)
	}
	rules, err := source.GetFixedRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch fixed rules: %w", err)
	}

	if err := target.ReplacePersonnel(ctx, personnel, positions, rules); err != nil {
		return 0, fmt.Errorf("failed to import personnel: %w", err)
	}

	logger.Info("Imported personnel",
		zap.Int("personnel", len(personnel)),
		zap.Int("positions", len(positions)),
		zap.Int("fixed_rules", len(rules)))
	return len(personnel), nil
}
