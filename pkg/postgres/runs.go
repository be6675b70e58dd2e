package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/guard-rota/pkg/core/model"
	"github.com/jakechorley/guard-rota/pkg/db"
)

const runColumns = `id, created_at, start_date, end_date, source, assigned, unassigned, fitness`

// GetRuns retrieves every run, oldest first
func (d *DB) GetRuns(ctx context.Context) ([]db.Run, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+runColumns+` FROM run ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []db.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// GetRun retrieves a single run or db.ErrNotFound
func (d *DB) GetRun(ctx context.Context, id string) (*db.Run, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM run WHERE id = $1`, id)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// InsertRun inserts a new run record
func (d *DB) InsertRun(ctx context.Context, run *db.Run) error {
	createdAt, err := time.Parse(time.RFC3339, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("invalid run created_at: %w", err)
	}
	_, err = d.pool.Exec(ctx, `
		INSERT INTO run (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, run.ID, createdAt, run.Start, run.End, run.Source, run.Assigned, run.Unassigned, run.Fitness)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func scanRun(row pgx.Row) (*db.Run, error) {
	var r db.Run
	var createdAt, start, end time.Time
	err := row.Scan(&r.ID, &createdAt, &start, &end, &r.Source, &r.Assigned, &r.Unassigned, &r.Fitness)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	r.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	r.Start = start.Format(model.DateLayout)
	r.End = end.Format(model.DateLayout)
	return &r, nil
}
