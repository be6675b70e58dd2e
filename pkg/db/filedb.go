package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

// fileData is the document layout of a FileDB
type fileData struct {
	Personnel         []Person           `yaml:"personnel" validate:"dive"`
	Positions         []Position         `yaml:"positions" validate:"dive"`
	FixedRules        []FixedRule        `yaml:"fixedRules,omitempty" validate:"dive"`
	ManualAssignments []ManualAssignment `yaml:"manualAssignments,omitempty" validate:"dive"`
	Runs              []Run              `yaml:"runs,omitempty" validate:"dive"`
	Assignments       []Assignment       `yaml:"assignments,omitempty" validate:"dive"`
}

// FileDB provides database operations backed by a single YAML document.
// Every write rewrites the whole file.
type FileDB struct {
	path     string
	mu       sync.RWMutex
	data     fileData
	validate *validator.Validate
}

var _ Database = (*FileDB)(nil)

// OpenFileDB loads the document at path. A missing file opens an empty database which is
// created on the first write.
func OpenFileDB(path string) (*FileDB, error) {
	f := &FileDB{path: path, validate: validator.New()}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read database file: %w", err)
	}

	if err := yaml.Unmarshal(content, &f.data); err != nil {
		return nil, fmt.Errorf("failed to parse database file: %w", err)
	}
	if err := f.validate.Struct(&f.data); err != nil {
		return nil, fmt.Errorf("database file validation failed: %w", err)
	}
	return f, nil
}

// Path returns the backing file path
func (f *FileDB) Path() string {
	return f.path
}

// GetPersonnel returns every person
func (f *FileDB) GetPersonnel(ctx context.Context) ([]Person, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Person(nil), f.data.Personnel...), nil
}

// GetPositions returns every position
func (f *FileDB) GetPositions(ctx context.Context) ([]Position, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Position(nil), f.data.Positions...), nil
}

// GetFixedRules returns every fixed rule
func (f *FileDB) GetFixedRules(ctx context.Context) ([]FixedRule, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]FixedRule(nil), f.data.FixedRules...), nil
}

// GetManualAssignments returns the manual assignments dated within [from, to]
func (f *FileDB) GetManualAssignments(ctx context.Context, from, to time.Time) ([]ManualAssignment, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []ManualAssignment
	for _, m := range f.data.ManualAssignments {
		if inRange(m.Date, from, to) {
			out = append(out, m)
		}
	}
	return out, nil
}

// GetRuns returns every run, oldest first
func (f *FileDB) GetRuns(ctx context.Context) ([]Run, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	runs := append([]Run(nil), f.data.Runs...)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt < runs[j].CreatedAt })
	return runs, nil
}

// GetRun returns the run with the given id or ErrNotFound
func (f *FileDB) GetRun(ctx context.Context, id string) (*Run, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, r := range f.data.Runs {
		if r.ID == id {
			run := r
			return &run, nil
		}
	}
	return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
}

// InsertRun stores a new run
func (f *FileDB) InsertRun(ctx context.Context, run *Run) error {
	if err := f.validate.Struct(run); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.data.Runs {
		if r.ID == run.ID {
			return fmt.Errorf("run %s already exists", run.ID)
		}
	}
	f.data.Runs = append(f.data.Runs, *run)
	if err := f.flush(); err != nil {
		f.data.Runs = f.data.Runs[:len(f.data.Runs)-1]
		return err
	}
	return nil
}

// GetAssignments returns the stored assignments dated within [from, to]
func (f *FileDB) GetAssignments(ctx context.Context, from, to time.Time) ([]Assignment, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []Assignment
	for _, a := range f.data.Assignments {
		if inRange(a.Date, from, to) {
			out = append(out, a)
		}
	}
	return out, nil
}

// GetHistory returns the stored assignments dated strictly before the given date
func (f *FileDB) GetHistory(ctx context.Context, before time.Time) ([]Assignment, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	cutoff := before.Format(model.DateLayout)
	var out []Assignment
	for _, a := range f.data.Assignments {
		if a.Date < cutoff {
			out = append(out, a)
		}
	}
	return out, nil
}

// InsertAssignments stores assignment rows in one write
func (f *FileDB) InsertAssignments(ctx context.Context, assignments []Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	for i := range assignments {
		if err := f.validate.Struct(&assignments[i]); err != nil {
			return fmt.Errorf("invalid assignment %d: %w", i, err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	previous := len(f.data.Assignments)
	f.data.Assignments = append(f.data.Assignments, assignments...)
	if err := f.flush(); err != nil {
		f.data.Assignments = f.data.Assignments[:previous]
		return err
	}
	return nil
}

// flush writes the document through a temporary file so a failed write never truncates it.
// Callers hold the write lock.
func (f *FileDB) flush() error {
	content, err := yaml.Marshal(&f.data)
	if err != nil {
		return fmt.Errorf("failed to marshal database: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".guard-rota-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temporary database file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write database file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close database file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace database file: %w", err)
	}
	return nil
}
