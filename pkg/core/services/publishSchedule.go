package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/guard-rota/internal/config"
	"github.com/jakechorley/guard-rota/pkg/clients/sheetsclient"
	"github.com/jakechorley/guard-rota/pkg/core/model"
)

const publishedDateLayout = "Mon Jan 02 2006"

// SchedulePublisher writes a laid out schedule to a spreadsheet
type SchedulePublisher interface {
	PublishSchedule(spreadsheetID string, schedule *sheetsclient.PublishedSchedule) error
}

// PublishScheduleResult describes what was published
type PublishScheduleResult struct {
	RunID    string
	TabTitle string
	Rows     int
}

// PublishSchedule publishes a stored run to the configured schedule spreadsheet.
// An empty runID publishes the most recent run.
func PublishSchedule(
	ctx context.Context,
	database StoredScheduleStore,
	publisher SchedulePublisher,
	cfg *config.Config,
	logger *zap.Logger,
	runID string,
) (*PublishScheduleResult, error) {
	if cfg.ScheduleSheetID == "" {
		return nil, fmt.Errorf("scheduleSheetID is not configured")
	}

	stored, err := loadStoredSchedule(ctx, database, cfg, logger, runID)
	if err != nil {
		return nil, err
	}

	published := buildPublishedSchedule(stored.Context, stored.Schedule)
	logger.Info("Publishing schedule",
		zap.String("run_id", stored.Run.ID),
		zap.String("tab", published.TabTitle()),
		zap.Int("rows", len(published.Rows)))

	if err := publisher.PublishSchedule(cfg.ScheduleSheetID, published); err != nil {
		return nil, fmt.Errorf("failed to publish schedule: %w", err)
	}

	return &PublishScheduleResult{
		RunID:    stored.Run.ID,
		TabTitle: published.TabTitle(),
		Rows:     len(published.Rows),
	}, nil
}

// buildPublishedSchedule lays the schedule out as one row per (date, period) and one
// column per position. Open slots are left blank.
func buildPublishedSchedule(sctx *model.SchedulingContext, schedule *model.Schedule) *sheetsclient.PublishedSchedule {
	published := &sheetsclient.PublishedSchedule{
		Positions: make([]string, len(sctx.Positions)),
	}
	for i, p := range sctx.Positions {
		published.Positions[i] = p.Name
	}
	if len(sctx.Dates) > 0 {
		published.Start = sctx.Dates[0]
		published.End = sctx.Dates[len(sctx.Dates)-1]
	}

	for date, day := range sctx.Dates {
		for period := model.Period(0); period < model.NumPeriods; period++ {
			row := sheetsclient.ScheduleRow{
				Date:   day.Format(publishedDateLayout),
				Period: period.String(),
				Names:  make([]string, len(sctx.Positions)),
			}
			for pos := range sctx.Positions {
				row.Names[pos] = personName(sctx, schedule.GetAssignment(date, period, pos))
			}
			published.Rows = append(published.Rows, row)
		}
	}
	return published
}

func personName(sctx *model.SchedulingContext, personID int) string {
	if personID == model.Unassigned {
		return ""
	}
	if person, ok := sctx.PersonByID(personID); ok {
		return person.Name
	}
	return fmt.Sprintf("#%d", personID)
}
