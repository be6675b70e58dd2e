package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/guard-rota/pkg/core/model"
	"github.com/jakechorley/guard-rota/pkg/db"
)

const assignmentColumns = `id, run_id, shift_date, period, position_id, person_id`

// GetAssignments retrieves the assignments dated within [from, to]
func (d *DB) GetAssignments(ctx context.Context, from, to time.Time) ([]db.Assignment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignment
		WHERE shift_date BETWEEN $1 AND $2
		ORDER BY shift_date, period, position_id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	return collectAssignments(rows)
}

// GetHistory retrieves the assignments dated strictly before the given date
func (d *DB) GetHistory(ctx context.Context, before time.Time) ([]db.Assignment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignment
		WHERE shift_date < $1
		ORDER BY shift_date, period, position_id
	`, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment history: %w", err)
	}
	return collectAssignments(rows)
}

// InsertAssignments inserts assignment records in a single transaction
func (d *DB) InsertAssignments(ctx context.Context, assignments []db.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, a := range assignments {
		batch.Queue(`
			INSERT INTO assignment (`+assignmentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, a.ID, a.RunID, a.Date, a.Period, a.PositionID, a.PersonID)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert assignments: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func collectAssignments(rows pgx.Rows) ([]db.Assignment, error) {
	defer rows.Close()

	var assignments []db.Assignment
	for rows.Next() {
		var a db.Assignment
		var shiftDate time.Time
		if err := rows.Scan(&a.ID, &a.RunID, &shiftDate, &a.Period, &a.PositionID, &a.PersonID); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.Date = shiftDate.Format(model.DateLayout)
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}
