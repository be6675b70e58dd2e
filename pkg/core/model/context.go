package model

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// HolidayPredicate reports whether a calendar date is a holiday
type HolidayPredicate func(date time.Time) bool

// NoHolidays is a HolidayPredicate that never matches
func NoHolidays(time.Time) bool { return false }

// ContextInput contains the raw data needed to build a SchedulingContext
type ContextInput struct {
	// Dates to schedule, in ascending order
	Dates []time.Time

	// Persons is the full personnel list (unavailable and retired persons included)
	Persons []Person

	// Positions to fill in every period
	Positions []Position

	// IsHoliday marks holiday dates (nil means no holidays)
	IsHoliday HolidayPredicate

	// FixedRules restrict persons to subsets of positions/periods
	FixedRules []FixedPositionRule

	// Manual assignments pinned before automatic scheduling.
	// Entries outside Dates are ignored.
	Manual []ManualAssignment

	// PriorDay holds the confirmed postings on the day before the first date, so rules
	// that look across midnight see what came before the range
	PriorDay []PriorShift
}

// SchedulingContext is the read-only view of everything the scheduler needs.
// Lookups are dense-indexed so the search loop never hashes composite keys.
type SchedulingContext struct {
	Dates      []time.Time
	Persons    []Person
	Positions  []Position
	FixedRules []FixedPositionRule
	Manual     []ManualAssignment

	isHoliday     HolidayPredicate
	holidayByDate []bool
	personIndex   map[int]int
	positionIndex map[int]int
	rulesByPerson map[int][]int

	// manualGrids mirrors the schedule shape: manualGrids[date] holds designated person ids
	manualGrids []Grid

	// priorDay[period] lists the persons posted in that period on the day before Dates[0]
	priorDay [NumPeriods][]int
}

// NewSchedulingContext validates the input and builds the lookup tables
func NewSchedulingContext(input ContextInput) (*SchedulingContext, error) {
	if len(input.Positions) == 0 {
		return nil, fmt.Errorf("no positions to schedule")
	}

	isHoliday := input.IsHoliday
	if isHoliday == nil {
		isHoliday = NoHolidays
	}

	dates := make([]time.Time, len(input.Dates))
	copy(dates, input.Dates)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	ctx := &SchedulingContext{
		Dates:         dates,
		Persons:       input.Persons,
		Positions:     input.Positions,
		FixedRules:    input.FixedRules,
		isHoliday:     isHoliday,
		holidayByDate: make([]bool, len(dates)),
		personIndex:   make(map[int]int, len(input.Persons)),
		positionIndex: make(map[int]int, len(input.Positions)),
		rulesByPerson: make(map[int][]int),
		manualGrids:   make([]Grid, len(dates)),
	}

	for i, person := range input.Persons {
		if person.ID < 0 {
			return nil, fmt.Errorf("person '%s' has negative id %d", person.Name, person.ID)
		}
		if _, exists := ctx.personIndex[person.ID]; exists {
			return nil, fmt.Errorf("duplicate person id %d", person.ID)
		}
		ctx.personIndex[person.ID] = i
	}

	for i, position := range input.Positions {
		if _, exists := ctx.positionIndex[position.ID]; exists {
			return nil, fmt.Errorf("duplicate position id %d", position.ID)
		}
		ctx.positionIndex[position.ID] = i
	}

	for i, rule := range input.FixedRules {
		if _, ok := ctx.personIndex[rule.PersonID]; !ok {
			return nil, fmt.Errorf("fixed rule %d references unknown person %d", i, rule.PersonID)
		}
		for _, p := range rule.Periods {
			if !p.Valid() {
				return nil, fmt.Errorf("fixed rule %d has invalid period %d", i, p)
			}
		}
		if rule.Enabled {
			ctx.rulesByPerson[rule.PersonID] = append(ctx.rulesByPerson[rule.PersonID], i)
		}
	}

	for i, date := range dates {
		ctx.holidayByDate[i] = isHoliday(date)
		ctx.manualGrids[i] = NewGrid(len(input.Positions))
	}

	for _, m := range input.Manual {
		dateIdx := ctx.DateIndex(m.Date)
		if dateIdx < 0 {
			continue
		}
		if !m.Period.Valid() {
			return nil, fmt.Errorf("manual assignment on %s has invalid period %d", m.Date.Format(DateLayout), m.Period)
		}
		posIdx, ok := ctx.positionIndex[m.PositionID]
		if !ok {
			return nil, fmt.Errorf("manual assignment on %s references unknown position %d", m.Date.Format(DateLayout), m.PositionID)
		}
		if _, ok := ctx.personIndex[m.PersonID]; !ok {
			return nil, fmt.Errorf("manual assignment on %s references unknown person %d", m.Date.Format(DateLayout), m.PersonID)
		}
		if existing := ctx.manualGrids[dateIdx].Get(m.Period, posIdx); existing != Unassigned && existing != m.PersonID {
			return nil, fmt.Errorf("conflicting manual assignments on %s period %d position %d",
				m.Date.Format(DateLayout), m.Period, m.PositionID)
		}
		ctx.manualGrids[dateIdx].Set(m.Period, posIdx, m.PersonID)
		ctx.Manual = append(ctx.Manual, m)
	}

	for _, shift := range input.PriorDay {
		if !shift.Period.Valid() {
			return nil, fmt.Errorf("prior day shift for person %d has invalid period %d", shift.PersonID, shift.Period)
		}
		if !slices.Contains(ctx.priorDay[shift.Period], shift.PersonID) {
			ctx.priorDay[shift.Period] = append(ctx.priorDay[shift.Period], shift.PersonID)
		}
	}

	return ctx, nil
}

// WorkedPriorDay returns true if the person was posted in period on the day before the first date
func (c *SchedulingContext) WorkedPriorDay(period Period, personID int) bool {
	if !period.Valid() {
		return false
	}
	return slices.Contains(c.priorDay[period], personID)
}

// NumDates returns the number of dates being scheduled
func (c *SchedulingContext) NumDates() int {
	return len(c.Dates)
}

// NumPersons returns the size of the personnel list
func (c *SchedulingContext) NumPersons() int {
	return len(c.Persons)
}

// NumPositions returns the number of positions
func (c *SchedulingContext) NumPositions() int {
	return len(c.Positions)
}

// DateIndex returns the index of the date or -1 if it is not scheduled
func (c *SchedulingContext) DateIndex(date time.Time) int {
	for i, d := range c.Dates {
		if sameDay(d, date) {
			return i
		}
	}
	return -1
}

// IsHolidayIndex returns true if the date at index is a holiday
func (c *SchedulingContext) IsHolidayIndex(date int) bool {
	if date < 0 || date >= len(c.holidayByDate) {
		return false
	}
	return c.holidayByDate[date]
}

// IsHoliday applies the holiday predicate to an arbitrary date
func (c *SchedulingContext) IsHoliday(date time.Time) bool {
	return c.isHoliday(date)
}

// PersonIndex returns the dense index of a person id
func (c *SchedulingContext) PersonIndex(personID int) (int, bool) {
	idx, ok := c.personIndex[personID]
	return idx, ok
}

// PersonByID returns the person with the given id
func (c *SchedulingContext) PersonByID(personID int) (*Person, bool) {
	idx, ok := c.personIndex[personID]
	if !ok {
		return nil, false
	}
	return &c.Persons[idx], true
}

// PositionIndex returns the dense index of a position id
func (c *SchedulingContext) PositionIndex(positionID int) (int, bool) {
	idx, ok := c.positionIndex[positionID]
	return idx, ok
}

// RulesFor returns the enabled fixed rules that apply to a person
func (c *SchedulingContext) RulesFor(personID int) []*FixedPositionRule {
	indices := c.rulesByPerson[personID]
	if len(indices) == 0 {
		return nil
	}
	rules := make([]*FixedPositionRule, len(indices))
	for i, idx := range indices {
		rules[i] = &c.FixedRules[idx]
	}
	return rules
}

// ManualAt returns the designated person for a slot or Unassigned
func (c *SchedulingContext) ManualAt(date int, period Period, position int) int {
	if date < 0 || date >= len(c.manualGrids) {
		return Unassigned
	}
	return c.manualGrids[date].Get(period, position)
}

// EligibleIndices returns, for every position, the dense person indices listed as eligible.
// Unknown person ids are skipped.
func (c *SchedulingContext) EligibleIndices() [][]int {
	eligible := make([][]int, len(c.Positions))
	for posIdx, position := range c.Positions {
		for _, personID := range position.Eligible {
			if idx, ok := c.personIndex[personID]; ok {
				eligible[posIdx] = append(eligible[posIdx], idx)
			}
		}
	}
	return eligible
}

// NewSchedule creates an empty schedule shaped for this context
func (c *SchedulingContext) NewSchedule() *Schedule {
	return NewSchedule(c.Dates, len(c.Positions))
}
