package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/jakechorley/guard-rota/pkg/core/constraints"
	"github.com/jakechorley/guard-rota/pkg/core/model"
)

// Candidate is a person being scored for a (date, period)
type Candidate struct {
	// Person is the dense index into the context's person list
	Person  int
	Date    int
	Period  model.Period
	Holiday bool
}

// Params controls how distances are normalised into scores
type Params struct {
	// MaxRestDays caps the rest distance; anything longer scores 1.0
	MaxRestDays float64

	// NeverAssignedScore is returned for a person with no relevant history.
	// It sits above the capped distance so newcomers outrank the longest rested.
	NeverAssignedScore float64
}

// DefaultParams returns the default normalisation parameters
func DefaultParams() Params {
	return Params{MaxRestDays: 7, NeverAssignedScore: 1.2}
}

// Criterion is a weighted soft preference.
// Score returns a value between 0.0 and 1.0, or NeverAssignedScore without history,
// which is multiplied by Weight.
type Criterion interface {
	Name() string
	Weight() float64
	Score(h *History, p Params, c Candidate) float64
}

// Preparer is implemented by criteria that precompute state for a scheduling context
type Preparer interface {
	Prepare(sctx *model.SchedulingContext) error
}

// Calculator ranks candidates by weighted soft criteria over a rolling history.
// It is not safe for concurrent use except for MeanScore, which only reads the seed history.
type Calculator struct {
	sctx     *model.SchedulingContext
	params   Params
	criteria []Criterion

	seed    *History
	history *History
}

// NewCalculator creates a calculator seeded from the context's person counters
func NewCalculator(sctx *model.SchedulingContext, params Params, criteria ...Criterion) (*Calculator, error) {
	if params.MaxRestDays <= 0 {
		return nil, fmt.Errorf("max rest days must be positive, got %v", params.MaxRestDays)
	}
	for _, criterion := range criteria {
		if p, ok := criterion.(Preparer); ok {
			if err := p.Prepare(sctx); err != nil {
				return nil, fmt.Errorf("failed to prepare criterion %s: %w", criterion.Name(), err)
			}
		}
	}
	seed := NewHistory(sctx.Persons)
	return &Calculator{
		sctx:     sctx,
		params:   params,
		criteria: criteria,
		seed:     seed,
		history:  seed.Clone(),
	}, nil
}

// History returns the live rolling state
func (c *Calculator) History() *History {
	return c.history
}

// Candidate builds a scoring candidate for a dense person index
func (c *Calculator) Candidate(person, date int, period model.Period) Candidate {
	return Candidate{Person: person, Date: date, Period: period, Holiday: c.sctx.IsHolidayIndex(date)}
}

// Record updates the rolling state after a commit
func (c *Calculator) Record(person, date int, period model.Period) {
	c.history.Record(person, date, period, c.sctx.IsHolidayIndex(date))
}

// RestScore scores the time since the person's last shift
func (c *Calculator) RestScore(cand Candidate) float64 {
	return RestScore(c.history, c.params, cand)
}

// HolidayBalanceScore scores the time since the person's last holiday shift
func (c *Calculator) HolidayBalanceScore(cand Candidate) float64 {
	return HolidayBalanceScore(c.history, c.params, cand)
}

// PeriodBalanceScore scores the time since the person last worked the same period
func (c *Calculator) PeriodBalanceScore(cand Candidate) float64 {
	return PeriodBalanceScore(c.history, c.params, cand)
}

// TotalScore returns the weighted sum of every criterion
func (c *Calculator) TotalScore(cand Candidate) float64 {
	return c.totalScore(c.history, cand)
}

func (c *Calculator) totalScore(h *History, cand Candidate) float64 {
	total := 0.0
	for _, criterion := range c.criteria {
		total += criterion.Weight() * criterion.Score(h, c.params, cand)
	}
	return total
}

// RankCandidates orders dense person indices by descending total score.
// Ties are broken by ascending person id so rankings are reproducible.
func (c *Calculator) RankCandidates(persons []int, date int, period model.Period) []int {
	type scored struct {
		person int
		id     int
		score  float64
	}

	ranked := make([]scored, len(persons))
	for i, person := range persons {
		ranked[i] = scored{
			person: person,
			id:     c.sctx.Persons[person].ID,
			score:  c.TotalScore(c.Candidate(person, date, period)),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})

	out := make([]int, len(ranked))
	for i, r := range ranked {
		out[i] = r.person
	}
	return out
}

// MeanScore replays a complete schedule chronologically from the seed history and
// returns the mean total score over assigned slots (0 when nothing is assigned).
// Person ids not in the context are skipped.
func (c *Calculator) MeanScore(view constraints.View) float64 {
	h := c.seed.Clone()
	total := 0.0
	count := 0
	for date := 0; date < view.NumDates(); date++ {
		holiday := c.sctx.IsHolidayIndex(date)
		for period := model.Period(0); period < model.NumPeriods; period++ {
			for pos := 0; pos < view.NumPositions(); pos++ {
				personID := view.PersonAt(date, period, pos)
				if personID == model.Unassigned {
					continue
				}
				person, ok := c.sctx.PersonIndex(personID)
				if !ok {
					continue
				}
				total += c.totalScore(h, Candidate{Person: person, Date: date, Period: period, Holiday: holiday})
				count++
				h.Record(person, date, period, holiday)
			}
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// RestScore is the normalised distance since the person's most recent shift
func RestScore(h *History, p Params, c Candidate) float64 {
	last, ok := h.LastShift(c.Person)
	return normalisedDistance(last, ok, c, p)
}

// HolidayBalanceScore is the normalised distance since the person's last holiday shift.
// Only applies on holidays; returns 0 otherwise.
func HolidayBalanceScore(h *History, p Params, c Candidate) float64 {
	if !c.Holiday {
		return 0
	}
	last, ok := h.LastHoliday(c.Person)
	return normalisedDistance(last, ok, c, p)
}

// PeriodBalanceScore is the normalised distance since the person last worked this period index
func PeriodBalanceScore(h *History, p Params, c Candidate) float64 {
	last, ok := h.LastInPeriod(c.Person, c.Period)
	return normalisedDistance(last, ok, c, p)
}

// normalisedDistance converts the gap in periods to days and scales it into [0, 1]
func normalisedDistance(last int, ok bool, c Candidate, p Params) float64 {
	if !ok {
		return p.NeverAssignedScore
	}
	gap := model.AbsolutePeriod(c.Date, c.Period) - last
	days := math.Abs(float64(gap)) / model.NumPeriods
	return math.Min(days, p.MaxRestDays) / p.MaxRestDays
}
