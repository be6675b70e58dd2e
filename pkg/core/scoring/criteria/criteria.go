package criteria

import (
	"github.com/jakechorley/guard-rota/pkg/core/model"
	"github.com/jakechorley/guard-rota/pkg/core/scoring"
)

// Weights are the per-criterion multipliers
type Weights struct {
	Rest    float64
	Holiday float64
	Period  float64
}

// DefaultWeights favours holiday fairness slightly over rest and rotation
func DefaultWeights() Weights {
	return Weights{Rest: 1.0, Holiday: 1.5, Period: 1.0}
}

// Defaults returns the standard criteria with the given weights
func Defaults(w Weights) []scoring.Criterion {
	return []scoring.Criterion{
		NewRestCriterion(w.Rest),
		NewHolidayBalanceCriterion(w.Holiday),
		NewPeriodBalanceCriterion(w.Period),
	}
}

// RestCriterion prefers persons who have rested longest.
//
// Score:
//   - Days since the person's last shift, capped at MaxRestDays and scaled to [0, 1]
//   - NeverAssignedScore for a person with no shift history
type RestCriterion struct {
	weight float64
}

// NewRestCriterion creates a RestCriterion with the given weight
func NewRestCriterion(weight float64) *RestCriterion {
	return &RestCriterion{weight: weight}
}

func (c *RestCriterion) Name() string {
	return "Rest"
}

func (c *RestCriterion) Weight() float64 {
	return c.weight
}

func (c *RestCriterion) Score(h *scoring.History, p scoring.Params, cand scoring.Candidate) float64 {
	return scoring.RestScore(h, p, cand)
}

// HolidayBalanceCriterion spreads holiday shifts across the personnel.
//
// Score:
//   - 0 on ordinary dates
//   - On holidays, days since the person's last holiday shift scaled to [0, 1]
//
// When the scheduled range contains no holidays the criterion short-circuits to 0.
type HolidayBalanceCriterion struct {
	weight      float64
	anyHolidays bool
}

var _ scoring.Preparer = (*HolidayBalanceCriterion)(nil)

// NewHolidayBalanceCriterion creates a HolidayBalanceCriterion with the given weight
func NewHolidayBalanceCriterion(weight float64) *HolidayBalanceCriterion {
	return &HolidayBalanceCriterion{weight: weight, anyHolidays: true}
}

func (c *HolidayBalanceCriterion) Name() string {
	return "HolidayBalance"
}

func (c *HolidayBalanceCriterion) Weight() float64 {
	return c.weight
}

func (c *HolidayBalanceCriterion) Prepare(sctx *model.SchedulingContext) error {
	c.anyHolidays = false
	for i := range sctx.Dates {
		if sctx.IsHolidayIndex(i) {
			c.anyHolidays = true
			break
		}
	}
	return nil
}

func (c *HolidayBalanceCriterion) Score(h *scoring.History, p scoring.Params, cand scoring.Candidate) float64 {
	if !c.anyHolidays {
		return 0
	}
	return scoring.HolidayBalanceScore(h, p, cand)
}

// PeriodBalanceCriterion rotates persons through the twelve periods.
//
// Score:
//   - Days since the person last worked this same period index, scaled to [0, 1]
type PeriodBalanceCriterion struct {
	weight float64
}

// NewPeriodBalanceCriterion creates a PeriodBalanceCriterion with the given weight
func NewPeriodBalanceCriterion(weight float64) *PeriodBalanceCriterion {
	return &PeriodBalanceCriterion{weight: weight}
}

func (c *PeriodBalanceCriterion) Name() string {
	return "PeriodBalance"
}

func (c *PeriodBalanceCriterion) Weight() float64 {
	return c.weight
}

func (c *PeriodBalanceCriterion) Score(h *scoring.History, p scoring.Params, cand scoring.Candidate) float64 {
	return scoring.PeriodBalanceScore(h, p, cand)
}
