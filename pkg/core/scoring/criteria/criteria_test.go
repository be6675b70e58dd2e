package criteria

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/guard-rota/pkg/core/model"
	"github.com/jakechorley/guard-rota/pkg/core/scoring"
)

func newContext(t *testing.T, isHoliday model.HolidayPredicate) *model.SchedulingContext {
	t.Helper()
	start := time.Date(2024, 12, 24, 0, 0, 0, 0, time.UTC)
	sctx, err := model.NewSchedulingContext(model.ContextInput{
		Dates:     model.DateRange(start, start.AddDate(0, 0, 2)),
		Persons:   []model.Person{model.NewPerson(1, "a")},
		Positions: []model.Position{{ID: 1, Eligible: []int{1}}},
		IsHoliday: isHoliday,
	})
	require.NoError(t, err)
	return sctx
}

func TestDefaults_UsesWeights(t *testing.T) {
	crits := Defaults(Weights{Rest: 2, Holiday: 3, Period: 4})

	require.Len(t, crits, 3)
	assert.Equal(t, "Rest", crits[0].Name())
	assert.Equal(t, 2.0, crits[0].Weight())
	assert.Equal(t, "HolidayBalance", crits[1].Name())
	assert.Equal(t, 3.0, crits[1].Weight())
	assert.Equal(t, "PeriodBalance", crits[2].Name())
	assert.Equal(t, 4.0, crits[2].Weight())
}

func TestHolidayBalanceCriterion_ShortCircuitsWithoutHolidays(t *testing.T) {
	sctx := newContext(t, nil)
	criterion := NewHolidayBalanceCriterion(1.5)
	require.NoError(t, criterion.Prepare(sctx))

	h := scoring.NewHistory(sctx.Persons)
	cand := scoring.Candidate{Person: 0, Date: 1, Period: 3, Holiday: true}

	assert.Equal(t, 0.0, criterion.Score(h, scoring.DefaultParams(), cand))
}

func TestHolidayBalanceCriterion_ScoresHolidays(t *testing.T) {
	christmas := func(d time.Time) bool { return d.Month() == time.December && d.Day() == 25 }
	sctx := newContext(t, christmas)
	criterion := NewHolidayBalanceCriterion(1.5)
	require.NoError(t, criterion.Prepare(sctx))

	h := scoring.NewHistory(sctx.Persons)

	assert.Equal(t, 1.2, criterion.Score(h, scoring.DefaultParams(), scoring.Candidate{Date: 1, Holiday: true}))
	assert.Equal(t, 0.0, criterion.Score(h, scoring.DefaultParams(), scoring.Candidate{Date: 0}))
}

func TestRestCriterion_UsesSeedCounters(t *testing.T) {
	person := model.NewPerson(1, "a")
	person.PeriodsSinceLastShift = 84
	h := scoring.NewHistory([]model.Person{person})

	score := NewRestCriterion(1).Score(h, scoring.DefaultParams(), scoring.Candidate{Date: 0, Period: 0})

	assert.Equal(t, 1.0, score, "seven days of rest reaches the cap")
}
