package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/guard-rota/internal/config"
	"github.com/jakechorley/guard-rota/pkg/clients/sheetsclient"
	"github.com/jakechorley/guard-rota/pkg/core/model"
	"github.com/jakechorley/guard-rota/pkg/db"
)

// mockStore implements db.Database for testing
type mockStore struct {
	personnel   []db.Person
	positions   []db.Position
	rules       []db.FixedRule
	manual      []db.ManualAssignment
	runs        []db.Run
	assignments []db.Assignment

	insertedRuns        []db.Run
	insertedAssignments []db.Assignment

	getPersonnelErr      error
	getHistoryErr        error
	insertRunErr         error
	insertAssignmentsErr error
}

var _ db.Database = (*mockStore)(nil)

func (m *mockStore) GetPersonnel(ctx context.Context) ([]db.Person, error) {
	if m.getPersonnelErr != nil {
		return nil, m.getPersonnelErr
	}
	return m.personnel, nil
}

func (m *mockStore) GetPositions(ctx context.Context) ([]db.Position, error) {
	return m.positions, nil
}

func (m *mockStore) GetFixedRules(ctx context.Context) ([]db.FixedRule, error) {
	return m.rules, nil
}

func (m *mockStore) GetManualAssignments(ctx context.Context, from, to time.Time) ([]db.ManualAssignment, error) {
	var out []db.ManualAssignment
	for _, a := range m.manual {
		if a.Date >= from.Format(model.DateLayout) && a.Date <= to.Format(model.DateLayout) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockStore) GetRuns(ctx context.Context) ([]db.Run, error) {
	return m.runs, nil
}

func (m *mockStore) GetRun(ctx context.Context, id string) (*db.Run, error) {
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, fmt.Errorf("run %s: %w", id, db.ErrNotFound)
}

func (m *mockStore) InsertRun(ctx context.Context, run *db.Run) error {
	if m.insertRunErr != nil {
		return m.insertRunErr
	}
	m.insertedRuns = append(m.insertedRuns, *run)
	return nil
}

func (m *mockStore) GetAssignments(ctx context.Context, from, to time.Time) ([]db.Assignment, error) {
	var out []db.Assignment
	for _, a := range m.assignments {
		if a.Date >= from.Format(model.DateLayout) && a.Date <= to.Format(model.DateLayout) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockStore) GetHistory(ctx context.Context, before time.Time) ([]db.Assignment, error) {
	if m.getHistoryErr != nil {
		return nil, m.getHistoryErr
	}
	var out []db.Assignment
	for _, a := range m.assignments {
		if a.Date < before.Format(model.DateLayout) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockStore) InsertAssignments(ctx context.Context, assignments []db.Assignment) error {
	if m.insertAssignmentsErr != nil {
		return m.insertAssignmentsErr
	}
	m.insertedAssignments = append(m.insertedAssignments, assignments...)
	return nil
}

// mockPublisher implements SchedulePublisher for testing
type mockPublisher struct {
	spreadsheetID string
	published     *sheetsclient.PublishedSchedule
	publishErr    error
}

func (m *mockPublisher) PublishSchedule(spreadsheetID string, schedule *sheetsclient.PublishedSchedule) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.spreadsheetID = spreadsheetID
	m.published = schedule
	return nil
}

// mockImporter implements PersonnelImporter for testing
type mockImporter struct {
	personnel []db.Person
	positions []db.Position
	rules     []db.FixedRule
	err       error
}

func (m *mockImporter) ReplacePersonnel(ctx context.Context, personnel []db.Person, positions []db.Position, rules []db.FixedRule) error {
	if m.err != nil {
		return m.err
	}
	m.personnel = personnel
	m.positions = positions
	m.rules = rules
	return nil
}

func date(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// newStore builds a store with the given number of persons, all eligible for both positions
func newStore(persons int) *mockStore {
	store := &mockStore{
		positions: []db.Position{
			{ID: 10, Name: "Gate"},
			{ID: 20, Name: "Tower"},
		},
	}
	for i := 1; i <= persons; i++ {
		store.personnel = append(store.personnel, db.Person{
			ID:        i,
			Name:      fmt.Sprintf("Guard %02d", i),
			Available: true,
		})
		store.positions[0].Eligible = append(store.positions[0].Eligible, i)
		store.positions[1].Eligible = append(store.positions[1].Eligible, i)
	}
	return store
}

func newConfig() *config.Config {
	cfg := &config.Config{
		Database:        config.DatabaseConfig{Driver: "file", Path: "guard.yaml"},
		ScheduleSheetID: "sheet-1",
		Genetic: config.GeneticConfig{
			PopulationSize: 6,
			Generations:    3,
			Workers:        2,
		},
	}
	cfg.ApplyDefaults()
	return cfg
}
