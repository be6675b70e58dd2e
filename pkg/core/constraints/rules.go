package constraints

import (
	"fmt"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

// Rule is a single hard constraint.
// Check returns false with a human-readable reason when posting the candidate would break it.
type Rule interface {
	// Name returns a short identifier used in violation reports
	Name() string

	// Check evaluates the candidate against the assignments in view
	Check(sctx *model.SchedulingContext, view View, c Candidate) (bool, string)
}

// Preparer is implemented by rules that build lookup tables once per scheduling context.
// The validator calls Prepare before the first Check.
type Preparer interface {
	Prepare(sctx *model.SchedulingContext) error
}

// DefaultRules returns every hard rule, cheapest first
func DefaultRules() []Rule {
	return []Rule{
		AvailabilityRule{},
		SingleOccupancyRule{},
		PositionEligibilityRule{},
		&SkillMatchRule{},
		ManualOverrideRule{},
		FixedPositionRule{},
		PersonSinglePeriodRule{},
		NonConsecutiveRule{},
		NightUniquenessRule{},
	}
}

// AvailabilityRule rejects persons who are retired or marked unavailable
type AvailabilityRule struct{}

func (AvailabilityRule) Name() string { return "Availability" }

func (AvailabilityRule) Check(sctx *model.SchedulingContext, view View, c Candidate) (bool, string) {
	person, ok := sctx.PersonByID(c.PersonID)
	if !ok {
		return false, fmt.Sprintf("person %d is unknown", c.PersonID)
	}
	if person.Retired {
		return false, fmt.Sprintf("%s is retired", person.Name)
	}
	if !person.Available {
		return false, fmt.Sprintf("%s is not available", person.Name)
	}
	return true, ""
}

// PositionEligibilityRule rejects persons missing from the position's eligible list
type PositionEligibilityRule struct{}

func (PositionEligibilityRule) Name() string { return "PositionEligibility" }

func (PositionEligibilityRule) Check(sctx *model.SchedulingContext, view View, c Candidate) (bool, string) {
	position := &sctx.Positions[c.Slot.Position]
	if !position.IsEligible(c.PersonID) {
		return false, fmt.Sprintf("person %d is not eligible for %s", c.PersonID, position.Name)
	}
	return true, ""
}

// SkillMatchRule rejects persons whose skills do not cover the position's requirements.
// The person/position match table is built once in Prepare.
type SkillMatchRule struct {
	covers [][]bool // [personIdx][posIdx]
}

var _ Preparer = (*SkillMatchRule)(nil)

func (r *SkillMatchRule) Name() string { return "SkillMatch" }

func (r *SkillMatchRule) Prepare(sctx *model.SchedulingContext) error {
	r.covers = make([][]bool, len(sctx.Persons))
	for i := range sctx.Persons {
		r.covers[i] = make([]bool, len(sctx.Positions))
		for j := range sctx.Positions {
			r.covers[i][j] = sctx.Persons[i].Skills.Covers(sctx.Positions[j].RequiredSkills)
		}
	}
	return nil
}

func (r *SkillMatchRule) Check(sctx *model.SchedulingContext, view View, c Candidate) (bool, string) {
	idx, ok := sctx.PersonIndex(c.PersonID)
	if !ok {
		return false, fmt.Sprintf("person %d is unknown", c.PersonID)
	}
	if r.covers != nil {
		if r.covers[idx][c.Slot.Position] {
			return true, ""
		}
	} else if sctx.Persons[idx].Skills.Covers(sctx.Positions[c.Slot.Position].RequiredSkills) {
		return true, ""
	}
	return false, fmt.Sprintf("%s lacks skills %v required by %s",
		sctx.Persons[idx].Name, sctx.Positions[c.Slot.Position].RequiredSkills, sctx.Positions[c.Slot.Position].Name)
}

// SingleOccupancyRule rejects a slot that already has someone in it
type SingleOccupancyRule struct{}

func (SingleOccupancyRule) Name() string { return "SingleOccupancy" }

func (SingleOccupancyRule) Check(sctx *model.SchedulingContext, view View, c Candidate) (bool, string) {
	if occupant := view.PersonAt(c.Slot.Date, c.Slot.Period, c.Slot.Position); occupant != model.Unassigned {
		return false, fmt.Sprintf("slot already held by person %d", occupant)
	}
	return true, ""
}

// PersonSinglePeriodRule rejects a person already posted elsewhere in the same period
type PersonSinglePeriodRule struct{}

func (PersonSinglePeriodRule) Name() string { return "PersonSinglePeriod" }

func (PersonSinglePeriodRule) Check(sctx *model.SchedulingContext, view View, c Candidate) (bool, string) {
	if worksPeriod(sctx, view, c.Slot.Date, c.Slot.Period, c.PersonID, c.Slot.Position) {
		return false, fmt.Sprintf("person %d already posted in period %d", c.PersonID, c.Slot.Period)
	}
	return true, ""
}

// NightUniquenessRule allows at most one of the night periods {11,0,1,2} per person per night.
// Periods 0-2 are also checked against period 11 of the previous date (the prior day for
// the first date) and period 11 against periods 0-2 of the next date.
type NightUniquenessRule struct{}

func (NightUniquenessRule) Name() string { return "NightUniqueness" }

func (NightUniquenessRule) Check(sctx *model.SchedulingContext, view View, c Candidate) (bool, string) {
	if !c.Slot.Period.IsNight() {
		return true, ""
	}
	for _, night := range model.NightPeriods {
		if night == c.Slot.Period {
			continue
		}
		if worksPeriod(sctx, view, c.Slot.Date, night, c.PersonID, -1) {
			return false, fmt.Sprintf("person %d already works night period %d", c.PersonID, night)
		}
	}
	if c.Slot.Period == model.NumPeriods-1 {
		for _, early := range []model.Period{0, 1, 2} {
			if worksPeriod(sctx, view, c.Slot.Date+1, early, c.PersonID, -1) {
				return false, fmt.Sprintf("person %d works period %d after midnight", c.PersonID, early)
			}
		}
	} else if worksPeriod(sctx, view, c.Slot.Date-1, model.NumPeriods-1, c.PersonID, -1) {
		return false, fmt.Sprintf("person %d worked period 11 before midnight", c.PersonID)
	}
	return true, ""
}

// NonConsecutiveRule rejects a person posted in the period before or after, across midnight too
type NonConsecutiveRule struct{}

func (NonConsecutiveRule) Name() string { return "NonConsecutive" }

func (NonConsecutiveRule) Check(sctx *model.SchedulingContext, view View, c Candidate) (bool, string) {
	prev, prevOffset := c.Slot.Period.Prev()
	if worksPeriod(sctx, view, c.Slot.Date+prevOffset, prev, c.PersonID, -1) {
		return false, fmt.Sprintf("person %d works the previous period", c.PersonID)
	}
	next, nextOffset := c.Slot.Period.Next()
	if worksPeriod(sctx, view, c.Slot.Date+nextOffset, next, c.PersonID, -1) {
		return false, fmt.Sprintf("person %d works the next period", c.PersonID)
	}
	return true, ""
}

// FixedPositionRule requires persons with fixed-position rules to match at least one of them
type FixedPositionRule struct{}

func (FixedPositionRule) Name() string { return "FixedPosition" }

func (FixedPositionRule) Check(sctx *model.SchedulingContext, view View, c Candidate) (bool, string) {
	rules := sctx.RulesFor(c.PersonID)
	if len(rules) == 0 {
		return true, ""
	}
	positionID := sctx.Positions[c.Slot.Position].ID
	for _, rule := range rules {
		if rule.Allows(positionID, c.Slot.Period) {
			return true, ""
		}
	}
	return false, fmt.Sprintf("person %d is restricted by fixed position rules", c.PersonID)
}

// ManualOverrideRule keeps manually pinned slots for their designated person
type ManualOverrideRule struct{}

func (ManualOverrideRule) Name() string { return "ManualOverride" }

func (ManualOverrideRule) Check(sctx *model.SchedulingContext, view View, c Candidate) (bool, string) {
	designated := sctx.ManualAt(c.Slot.Date, c.Slot.Period, c.Slot.Position)
	if designated != model.Unassigned && designated != c.PersonID {
		return false, fmt.Sprintf("slot is manually assigned to person %d", designated)
	}
	return true, ""
}
