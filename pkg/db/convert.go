package db

import (
	"fmt"
	"time"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

// ToModel converts a stored person into a scheduling person with no history
func (p Person) ToModel() model.Person {
	person := model.NewPerson(p.ID, p.Name, p.Skills...)
	person.Available = p.Available
	person.Retired = p.Retired
	return person
}

// ToModel converts a stored position
func (p Position) ToModel() model.Position {
	return model.Position{
		ID:             p.ID,
		Name:           p.Name,
		RequiredSkills: p.RequiredSkills,
		Eligible:       p.Eligible,
	}
}

// ToModel converts a stored fixed rule
func (r FixedRule) ToModel() model.FixedPositionRule {
	periods := make([]model.Period, len(r.Periods))
	for i, p := range r.Periods {
		periods[i] = model.Period(p)
	}
	return model.FixedPositionRule{
		PersonID:    r.PersonID,
		PositionIDs: r.PositionIDs,
		Periods:     periods,
		Enabled:     r.Enabled,
		Description: r.Description,
	}
}

// ToModel converts a stored manual assignment
func (m ManualAssignment) ToModel() (model.ManualAssignment, error) {
	date, err := time.Parse(model.DateLayout, m.Date)
	if err != nil {
		return model.ManualAssignment{}, fmt.Errorf("invalid manual assignment date %q: %w", m.Date, err)
	}
	return model.ManualAssignment{
		Date:       date,
		Period:     model.Period(m.Period),
		PositionID: m.PositionID,
		PersonID:   m.PersonID,
	}, nil
}

// ParseDate parses a stored date string
func ParseDate(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, s)
}

// AssignmentsFromSchedule flattens every filled slot of a schedule into rows for the run.
// newID supplies row ids.
func AssignmentsFromSchedule(runID string, s *model.Schedule, positions []model.Position, newID func() string) []Assignment {
	var rows []Assignment
	for date := range s.Grids {
		dateStr := s.Dates[date].Format(model.DateLayout)
		for period := model.Period(0); period < model.NumPeriods; period++ {
			for pos := range positions {
				person := s.GetAssignment(date, period, pos)
				if person == model.Unassigned {
					continue
				}
				rows = append(rows, Assignment{
					ID:         newID(),
					RunID:      runID,
					Date:       dateStr,
					Period:     int(period),
					PositionID: positions[pos].ID,
					PersonID:   person,
				})
			}
		}
	}
	return rows
}

// inRange reports whether a stored date string falls within [from, to] by calendar day
func inRange(date string, from, to time.Time) bool {
	return date >= from.Format(model.DateLayout) && date <= to.Format(model.DateLayout)
}
