package db

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// PersonnelStore defines the read operations for scheduling inputs
type PersonnelStore interface {
	GetPersonnel(ctx context.Context) ([]Person, error)
	GetPositions(ctx context.Context) ([]Position, error)
	GetFixedRules(ctx context.Context) ([]FixedRule, error)
	GetManualAssignments(ctx context.Context, from, to time.Time) ([]ManualAssignment, error)
}

// RunStore defines the operations on generated schedules
type RunStore interface {
	GetRuns(ctx context.Context) ([]Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	InsertRun(ctx context.Context, run *Run) error
	GetAssignments(ctx context.Context, from, to time.Time) ([]Assignment, error)
	GetHistory(ctx context.Context, before time.Time) ([]Assignment, error)
	InsertAssignments(ctx context.Context, assignments []Assignment) error
}

// Database defines the interface for all database operations.
// Both the YAML-backed db.FileDB and postgres.DB implement this interface.
type Database interface {
	PersonnelStore
	RunStore
}
