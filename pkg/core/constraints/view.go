package constraints

import "github.com/jakechorley/guard-rota/pkg/core/model"

// View is a read-only source of assignments.
// Both the live schedule and a genetic-algorithm genome implement it, so the same rules
// judge either one.
type View interface {
	NumDates() int
	NumPositions() int

	// PersonAt returns the person id at a slot or model.Unassigned.
	// Dates outside the view must read as model.Unassigned.
	PersonAt(date int, period model.Period, position int) int
}

// Candidate is a tentative posting of a person to a slot
type Candidate struct {
	PersonID int
	Slot     model.Slot
}

// vacated hides one slot's occupant so an existing assignment can be re-checked
// as if it were being made for the first time
type vacated struct {
	View
	slot model.Slot
}

func (v vacated) PersonAt(date int, period model.Period, position int) int {
	if date == v.slot.Date && period == v.slot.Period && position == v.slot.Position {
		return model.Unassigned
	}
	return v.View.PersonAt(date, period, position)
}

// earlierOnly hides a slot and every slot ordered after it (by date, then period, then
// position). Re-checking an assignment against it sees each pair of assignments once.
type earlierOnly struct {
	View
	slot model.Slot
}

func (v earlierOnly) PersonAt(date int, period model.Period, position int) int {
	if !slotBefore(model.Slot{Date: date, Period: period, Position: position}, v.slot) {
		return model.Unassigned
	}
	return v.View.PersonAt(date, period, position)
}

func slotBefore(a, b model.Slot) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	if a.Period != b.Period {
		return a.Period < b.Period
	}
	return a.Position < b.Position
}

// worksPeriod returns true if the person holds any position at (date, period),
// skipping the excluded position (pass -1 to skip nothing).
// Date -1 is the day before the range and is answered from the context's prior-day shifts.
func worksPeriod(sctx *model.SchedulingContext, view View, date int, period model.Period, personID int, excludePosition int) bool {
	if date == -1 {
		return sctx.WorkedPriorDay(period, personID)
	}
	if date < 0 || date >= view.NumDates() {
		return false
	}
	for pos := 0; pos < view.NumPositions(); pos++ {
		if pos == excludePosition {
			continue
		}
		if view.PersonAt(date, period, pos) == personID {
			return true
		}
	}
	return false
}
