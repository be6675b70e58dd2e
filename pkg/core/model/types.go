package model

import (
	"fmt"
	"slices"
	"time"
)

// NumPeriods is the number of fixed two-hour periods in a day
const NumPeriods = 12

// Unassigned marks a slot with no person in it
const Unassigned = -1

// DateLayout is the layout used for every date string in the repository
const DateLayout = "2006-01-02"

// Period is a two-hour window of the day, 0 to 11
type Period int

// NightPeriods are the periods that belong to a single night.
// A person can work at most one of them per night.
var NightPeriods = []Period{11, 0, 1, 2}

// IsNight returns true if the period is one of the night periods
func (p Period) IsNight() bool {
	return p == 11 || p == 0 || p == 1 || p == 2
}

// Valid returns true if the period is in range
func (p Period) Valid() bool {
	return p >= 0 && p < NumPeriods
}

// Prev returns the period before p and the date offset it lives on.
// Period 0 wraps to period 11 of the previous date.
func (p Period) Prev() (Period, int) {
	if p == 0 {
		return NumPeriods - 1, -1
	}
	return p - 1, 0
}

// Next returns the period after p and the date offset it lives on.
// Period 11 wraps to period 0 of the next date.
func (p Period) Next() (Period, int) {
	if p == NumPeriods-1 {
		return 0, 1
	}
	return p + 1, 0
}

// String renders the period as its clock window, e.g. "06:00-08:00"
func (p Period) String() string {
	start := int(p) * 2
	return fmt.Sprintf("%02d:00-%02d:00", start, (start+2)%24)
}

// SkillSet is an unordered set of skill names
type SkillSet []string

// Covers returns true if every skill in required is present in s
func (s SkillSet) Covers(required SkillSet) bool {
	for _, skill := range required {
		if !slices.Contains(s, skill) {
			return false
		}
	}
	return true
}

// Person represents a member of staff who can be posted to guard positions
type Person struct {
	ID   int
	Name string

	// Available is false when the person is on leave or otherwise excluded from scheduling
	Available bool

	// Retired persons are never scheduled
	Retired bool

	// Skills the person holds
	Skills SkillSet

	// Rolling counters seeded from the last confirmed history.
	// A negative value means the person has never worked the relevant shift.
	PeriodsSinceLastShift   int
	PeriodsSinceLastHoliday int
	PeriodsSincePeriod      [NumPeriods]int
}

// NewPerson creates an available person with no history
func NewPerson(id int, name string, skills ...string) Person {
	p := Person{
		ID:                      id,
		Name:                    name,
		Available:               true,
		Skills:                  skills,
		PeriodsSinceLastShift:   -1,
		PeriodsSinceLastHoliday: -1,
	}
	for i := range p.PeriodsSincePeriod {
		p.PeriodsSincePeriod[i] = -1
	}
	return p
}

// Schedulable returns true if the person may be posted at all
func (p *Person) Schedulable() bool {
	return p.Available && !p.Retired
}

// Position represents a guard post that needs one person per period
type Position struct {
	ID   int
	Name string

	// RequiredSkills must all be held by the person posted here
	RequiredSkills SkillSet

	// Eligible is the explicit list of person ids allowed at this position.
	// A person not listed is never feasible here, whatever their skills.
	Eligible []int
}

// IsEligible returns true if the person id is in the position's eligible list
func (p *Position) IsEligible(personID int) bool {
	return slices.Contains(p.Eligible, personID)
}

// FixedPositionRule restricts a person to a subset of positions and/or periods.
// An empty PositionIDs or Periods list means "any".
type FixedPositionRule struct {
	PersonID    int
	PositionIDs []int
	Periods     []Period
	Enabled     bool
	Description string
}

// Allows returns true if the rule permits the person at the position and period
func (r *FixedPositionRule) Allows(positionID int, period Period) bool {
	if len(r.PositionIDs) > 0 && !slices.Contains(r.PositionIDs, positionID) {
		return false
	}
	if len(r.Periods) > 0 && !slices.Contains(r.Periods, period) {
		return false
	}
	return true
}

// ManualAssignment pins a person to a slot before automatic scheduling
type ManualAssignment struct {
	Date       time.Time
	Period     Period
	PositionID int
	PersonID   int
}

// PriorShift is a confirmed posting on the day before the scheduled range.
// The position does not matter to the rules that read it.
type PriorShift struct {
	Period   Period
	PersonID int
}

// Slot addresses one (date, period, position) cell by dense indices
type Slot struct {
	Date     int
	Period   Period
	Position int
}

func (s Slot) String() string {
	return fmt.Sprintf("date[%d] period %d position[%d]", s.Date, s.Period, s.Position)
}
