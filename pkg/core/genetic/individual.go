package genetic

import (
	"time"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

// Individual is one complete candidate schedule.
// The genome is a grid per date shaped like the scheduling context's; the derived fields
// are filled in by FitnessEvaluator.
type Individual struct {
	Grids     []model.Grid
	positions int

	Fitness        float64
	HardViolations int
	SoftScore      float64
	Unassigned     int
	evaluated      bool
}

// NewIndividual creates an empty genome
func NewIndividual(dates, positions int) *Individual {
	grids := make([]model.Grid, dates)
	for i := range grids {
		grids[i] = model.NewGrid(positions)
	}
	return &Individual{Grids: grids, positions: positions}
}

// FromSchedule copies a schedule into a new genome
func FromSchedule(s *model.Schedule) *Individual {
	grids := make([]model.Grid, len(s.Grids))
	for i := range s.Grids {
		grids[i] = s.Grids[i].Clone()
	}
	return &Individual{Grids: grids, positions: s.NumPositions()}
}

// NumDates returns the number of dates in the genome
func (ind *Individual) NumDates() int {
	return len(ind.Grids)
}

// NumPositions returns the number of positions per grid
func (ind *Individual) NumPositions() int {
	return ind.positions
}

// PersonAt returns the person id at a slot. Dates outside the genome read as unassigned.
func (ind *Individual) PersonAt(date int, period model.Period, position int) int {
	if date < 0 || date >= len(ind.Grids) {
		return model.Unassigned
	}
	return ind.Grids[date].Get(period, position)
}

// Set writes a slot and marks the individual for re-evaluation
func (ind *Individual) Set(date int, period model.Period, position int, personID int) {
	ind.Grids[date].Set(period, position, personID)
	ind.evaluated = false
}

// Evaluated reports whether the derived fields match the genome
func (ind *Individual) Evaluated() bool {
	return ind.evaluated
}

// UnassignedCount counts empty slots in the genome
func (ind *Individual) UnassignedCount() int {
	total := 0
	for i := range ind.Grids {
		total += model.NumPeriods*ind.positions - ind.Grids[i].AssignedCount()
	}
	return total
}

// Clone returns a deep copy including the derived fields
func (ind *Individual) Clone() *Individual {
	c := *ind
	c.Grids = make([]model.Grid, len(ind.Grids))
	for i := range ind.Grids {
		c.Grids[i] = ind.Grids[i].Clone()
	}
	return &c
}

// ToSchedule copies the genome into a schedule for the given dates
func (ind *Individual) ToSchedule(dates []time.Time) *model.Schedule {
	s := model.NewSchedule(dates, ind.positions)
	for i := range ind.Grids {
		s.Grids[i].CopyFrom(ind.Grids[i])
	}
	return s
}
