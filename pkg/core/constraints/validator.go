package constraints

import (
	"fmt"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

// Violation describes one broken hard rule
type Violation struct {
	Slot        model.Slot
	Date        string
	PersonID    int
	RuleName    string
	Description string
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s %s: person %d violates %s: %s",
		v.Date, v.Slot.Period, v.PersonID, v.RuleName, v.Description)
}

// Validator applies a fixed rule set to candidates.
// It is the single source of truth for hard constraints: the search engine consults it
// before committing and the genetic optimizer counts its violations for fitness.
type Validator struct {
	sctx  *model.SchedulingContext
	rules []Rule
}

// NewValidator creates a validator with the default rules
func NewValidator(sctx *model.SchedulingContext) (*Validator, error) {
	return NewValidatorWithRules(sctx, DefaultRules()...)
}

// NewValidatorWithRules creates a validator with a custom rule set and prepares any rule
// that builds lookup tables
func NewValidatorWithRules(sctx *model.SchedulingContext, rules ...Rule) (*Validator, error) {
	for _, rule := range rules {
		if p, ok := rule.(Preparer); ok {
			if err := p.Prepare(sctx); err != nil {
				return nil, fmt.Errorf("failed to prepare rule %s: %w", rule.Name(), err)
			}
		}
	}
	return &Validator{sctx: sctx, rules: rules}, nil
}

// Context returns the scheduling context the validator was built for
func (v *Validator) Context() *model.SchedulingContext {
	return v.sctx
}

// ValidateAll returns true if the candidate breaks no rule. Stops at the first failure.
func (v *Validator) ValidateAll(view View, c Candidate) bool {
	for _, rule := range v.rules {
		if ok, _ := rule.Check(v.sctx, view, c); !ok {
			return false
		}
	}
	return true
}

// Violations returns every rule the candidate breaks
func (v *Validator) Violations(view View, c Candidate) []Violation {
	var violations []Violation
	for _, rule := range v.rules {
		if ok, reason := rule.Check(v.sctx, view, c); !ok {
			violations = append(violations, Violation{
				Slot:        c.Slot,
				Date:        v.dateLabel(c.Slot.Date),
				PersonID:    c.PersonID,
				RuleName:    rule.Name(),
				Description: reason,
			})
		}
	}
	return violations
}

// ValidateAssigned re-checks an existing assignment as though its slot were empty.
// Returns nil for an empty slot.
func (v *Validator) ValidateAssigned(view View, slot model.Slot) []Violation {
	personID := view.PersonAt(slot.Date, slot.Period, slot.Position)
	if personID == model.Unassigned {
		return nil
	}
	return v.Violations(vacated{View: view, slot: slot}, Candidate{PersonID: personID, Slot: slot})
}

// CountViolations returns the number of broken rules in view.
// Each assignment is checked only against the assignments before it, so a clash between
// two assignments counts once, charged to the later one. An assignment counts at most once.
func (v *Validator) CountViolations(view View) int {
	count := 0
	forEachSlot(view, func(slot model.Slot) {
		personID := view.PersonAt(slot.Date, slot.Period, slot.Position)
		if personID == model.Unassigned {
			return
		}
		if !v.ValidateAll(earlierOnly{View: view, slot: slot}, Candidate{PersonID: personID, Slot: slot}) {
			count++
		}
	})
	return count
}

// Audit re-validates every assignment in view.
// A clash between two assignments is reported on both of them.
func (v *Validator) Audit(view View) ConsistencyReport {
	report := ConsistencyReport{}
	forEachSlot(view, func(slot model.Slot) {
		if view.PersonAt(slot.Date, slot.Period, slot.Position) == model.Unassigned {
			report.Unassigned++
			return
		}
		report.Checked++
		report.Violations = append(report.Violations, v.ValidateAssigned(view, slot)...)
	})
	return report
}

func (v *Validator) dateLabel(date int) string {
	if date >= 0 && date < len(v.sctx.Dates) {
		return v.sctx.Dates[date].Format(model.DateLayout)
	}
	return fmt.Sprintf("date[%d]", date)
}

func forEachSlot(view View, fn func(model.Slot)) {
	for date := 0; date < view.NumDates(); date++ {
		for period := model.Period(0); period < model.NumPeriods; period++ {
			for pos := 0; pos < view.NumPositions(); pos++ {
				fn(model.Slot{Date: date, Period: period, Position: pos})
			}
		}
	}
}

// ConsistencyReport is the outcome of re-validating a finished schedule
type ConsistencyReport struct {
	Checked    int
	Unassigned int
	Violations []Violation
}

// Consistent returns true if no assignment breaks a rule
func (r ConsistencyReport) Consistent() bool {
	return len(r.Violations) == 0
}

// ViolationsByRule groups violation counts by rule name
func (r ConsistencyReport) ViolationsByRule() map[string]int {
	counts := make(map[string]int)
	for _, v := range r.Violations {
		counts[v.RuleName]++
	}
	return counts
}
