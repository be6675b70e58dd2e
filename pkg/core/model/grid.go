package model

import (
	"fmt"
	"slices"
	"time"
)

// Grid holds one date's assignments as a dense [period][position] array of person ids.
// Cells hold Unassigned when nobody is posted.
type Grid struct {
	positions int
	cells     []int
}

// NewGrid creates an empty grid for the given number of positions
func NewGrid(positions int) Grid {
	cells := make([]int, NumPeriods*positions)
	for i := range cells {
		cells[i] = Unassigned
	}
	return Grid{positions: positions, cells: cells}
}

func (g *Grid) index(period Period, position int) int {
	if !period.Valid() || position < 0 || position >= g.positions {
		panic(fmt.Sprintf("grid index out of range: period %d position %d", period, position))
	}
	return int(period)*g.positions + position
}

// Positions returns the number of positions the grid covers
func (g *Grid) Positions() int {
	return g.positions
}

// Get returns the person id at (period, position) or Unassigned
func (g *Grid) Get(period Period, position int) int {
	return g.cells[g.index(period, position)]
}

// Set stores a person id (or Unassigned) at (period, position)
func (g *Grid) Set(period Period, position int, personID int) {
	g.cells[g.index(period, position)] = personID
}

// Clone returns an independent copy of the grid
func (g Grid) Clone() Grid {
	return Grid{positions: g.positions, cells: slices.Clone(g.cells)}
}

// CopyFrom overwrites the grid in place with the contents of other.
// Both grids must have the same shape.
func (g *Grid) CopyFrom(other Grid) {
	if g.positions != other.positions || len(g.cells) != len(other.cells) {
		panic("grid shape mismatch")
	}
	copy(g.cells, other.cells)
}

// Equal returns true if both grids hold exactly the same assignments
func (g Grid) Equal(other Grid) bool {
	return g.positions == other.positions && slices.Equal(g.cells, other.cells)
}

// AssignedCount returns the number of filled cells
func (g *Grid) AssignedCount() int {
	count := 0
	for _, c := range g.cells {
		if c != Unassigned {
			count++
		}
	}
	return count
}

// PositionOf returns the first position the person holds at the period, or -1
func (g *Grid) PositionOf(personID int, period Period) int {
	for pos := 0; pos < g.positions; pos++ {
		if g.Get(period, pos) == personID {
			return pos
		}
	}
	return -1
}

// Schedule holds a grid per date over a contiguous date range
type Schedule struct {
	Dates     []time.Time
	Grids     []Grid
	positions int
}

// NewSchedule creates an empty schedule for the dates and number of positions
func NewSchedule(dates []time.Time, positions int) *Schedule {
	grids := make([]Grid, len(dates))
	for i := range grids {
		grids[i] = NewGrid(positions)
	}
	return &Schedule{Dates: dates, Grids: grids, positions: positions}
}

// NumDates returns the number of dates in the schedule
func (s *Schedule) NumDates() int {
	return len(s.Grids)
}

// NumPositions returns the number of positions per grid
func (s *Schedule) NumPositions() int {
	return s.positions
}

// PersonAt returns the person at the slot, or Unassigned.
// Out-of-range dates read as Unassigned so cross-midnight checks at the range edges are no-ops.
func (s *Schedule) PersonAt(date int, period Period, position int) int {
	if date < 0 || date >= len(s.Grids) {
		return Unassigned
	}
	return s.Grids[date].Get(period, position)
}

// RecordAssignment writes a person (or Unassigned) into a slot
func (s *Schedule) RecordAssignment(date int, period Period, position int, personID int) {
	s.Grids[date].Set(period, position, personID)
}

// GetAssignment reads a slot
func (s *Schedule) GetAssignment(date int, period Period, position int) int {
	return s.Grids[date].Get(period, position)
}

// DateIndex returns the index of the given calendar date in the schedule
func (s *Schedule) DateIndex(date time.Time) (int, bool) {
	for i, d := range s.Dates {
		if sameDay(d, date) {
			return i, true
		}
	}
	return -1, false
}

// AssignedCount returns the number of filled slots across all dates
func (s *Schedule) AssignedCount() int {
	total := 0
	for i := range s.Grids {
		total += s.Grids[i].AssignedCount()
	}
	return total
}

// TotalSlots returns the number of slots across all dates
func (s *Schedule) TotalSlots() int {
	return len(s.Grids) * NumPeriods * s.positions
}

// Clone returns a deep copy of the schedule
func (s *Schedule) Clone() *Schedule {
	grids := make([]Grid, len(s.Grids))
	for i := range s.Grids {
		grids[i] = s.Grids[i].Clone()
	}
	return &Schedule{Dates: slices.Clone(s.Dates), Grids: grids, positions: s.positions}
}

// AbsolutePeriod converts a (date index, period) pair into a single running period count
func AbsolutePeriod(date int, period Period) int {
	return date*NumPeriods + int(period)
}

// DateRange returns every calendar date from start to end inclusive, normalised to UTC midnight
func DateRange(start, end time.Time) []time.Time {
	start = truncateDay(start)
	end = truncateDay(end)
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
