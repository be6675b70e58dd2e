package scoring_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/guard-rota/pkg/core/model"
	"github.com/jakechorley/guard-rota/pkg/core/scoring"
	"github.com/jakechorley/guard-rota/pkg/core/scoring/criteria"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func newContext(t *testing.T, persons []model.Person, holidays ...int) *model.SchedulingContext {
	t.Helper()
	var ids []int
	for _, p := range persons {
		ids = append(ids, p.ID)
	}
	sctx, err := model.NewSchedulingContext(model.ContextInput{
		Dates:     model.DateRange(day(1), day(3)),
		Persons:   persons,
		Positions: []model.Position{{ID: 1, Name: "gate", Eligible: ids}},
		IsHoliday: func(d time.Time) bool {
			for _, h := range holidays {
				if d.Equal(day(h)) {
					return true
				}
			}
			return false
		},
	})
	require.NoError(t, err)
	return sctx
}

func newCalculator(t *testing.T, sctx *model.SchedulingContext) *scoring.Calculator {
	t.Helper()
	calc, err := scoring.NewCalculator(sctx, scoring.DefaultParams(), criteria.Defaults(criteria.DefaultWeights())...)
	require.NoError(t, err)
	return calc
}

func TestRestScore_NormalisesDaysSinceLastShift(t *testing.T) {
	rested := model.NewPerson(1, "rested")
	rested.PeriodsSinceLastShift = 24
	longRested := model.NewPerson(2, "long rested")
	longRested.PeriodsSinceLastShift = 500
	fresh := model.NewPerson(3, "fresh")

	sctx := newContext(t, []model.Person{rested, longRested, fresh})
	calc := newCalculator(t, sctx)

	assert.InDelta(t, 2.0/7.0, calc.RestScore(calc.Candidate(0, 0, 0)), 1e-9)
	assert.InDelta(t, 1.0, calc.RestScore(calc.Candidate(1, 0, 0)), 1e-9, "distance is capped")
	assert.InDelta(t, 1.2, calc.RestScore(calc.Candidate(2, 0, 0)), 1e-9, "never assigned outranks the cap")
}

func TestHolidayBalanceScore_OnlyOnHolidays(t *testing.T) {
	person := model.NewPerson(1, "a")
	sctx := newContext(t, []model.Person{person}, 2)
	calc := newCalculator(t, sctx)

	assert.Equal(t, 0.0, calc.HolidayBalanceScore(calc.Candidate(0, 0, 5)))
	assert.Equal(t, 1.2, calc.HolidayBalanceScore(calc.Candidate(0, 1, 5)))

	calc.Record(0, 1, 5)
	assert.InDelta(t, 0.5/7.0, calc.HolidayBalanceScore(calc.Candidate(0, 1, 11)), 1e-9)
}

func TestPeriodBalanceScore_RewardsRotation(t *testing.T) {
	sctx := newContext(t, []model.Person{model.NewPerson(1, "a")})
	calc := newCalculator(t, sctx)

	calc.Record(0, 0, 4)

	assert.InDelta(t, 1.0/7.0, calc.PeriodBalanceScore(calc.Candidate(0, 1, 4)), 1e-9)
	assert.Equal(t, 1.2, calc.PeriodBalanceScore(calc.Candidate(0, 1, 5)), "other periods are untouched")
}

func TestTotalScore_DefaultWeights(t *testing.T) {
	sctx := newContext(t, []model.Person{model.NewPerson(1, "a")}, 3)
	calc := newCalculator(t, sctx)

	// Never assigned: rest 1.2 + period 1.2, holiday only counts on holidays
	assert.InDelta(t, 2.4, calc.TotalScore(calc.Candidate(0, 0, 0)), 1e-9)
	assert.InDelta(t, 4.2, calc.TotalScore(calc.Candidate(0, 2, 0)), 1e-9)
}

func TestRankCandidates_DescendingWithIDTieBreak(t *testing.T) {
	recent := model.NewPerson(1, "recent")
	recent.PeriodsSinceLastShift = 2
	recent.PeriodsSincePeriod[0] = 12
	neverA := model.NewPerson(7, "never a")
	neverB := model.NewPerson(4, "never b")

	sctx := newContext(t, []model.Person{recent, neverA, neverB})
	calc := newCalculator(t, sctx)

	ranked := calc.RankCandidates([]int{0, 1, 2}, 0, 0)

	assert.Equal(t, []int{2, 1, 0}, ranked, "ids 4 and 7 tie and sort by id, the recent worker is last")
}

func TestRankCandidates_NewcomerBeatsLongRested(t *testing.T) {
	veteran := model.NewPerson(1, "veteran")
	veteran.PeriodsSinceLastShift = 500
	veteran.PeriodsSincePeriod[0] = 500
	newcomer := model.NewPerson(2, "newcomer")

	sctx := newContext(t, []model.Person{veteran, newcomer})
	calc := newCalculator(t, sctx)

	assert.Greater(t, calc.TotalScore(calc.Candidate(1, 0, 0)), calc.TotalScore(calc.Candidate(0, 0, 0)))
	assert.Equal(t, []int{1, 0}, calc.RankCandidates([]int{0, 1}, 0, 0), "the lower id no longer wins the tie")
}

func TestRankCandidates_IsDeterministic(t *testing.T) {
	var persons []model.Person
	for i := 10; i > 0; i-- {
		persons = append(persons, model.NewPerson(i, "p"))
	}
	sctx := newContext(t, persons)
	calc := newCalculator(t, sctx)

	first := calc.RankCandidates([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, 1, 3)
	second := calc.RankCandidates([]int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}, 1, 3)

	assert.Equal(t, first, second)
	assert.Equal(t, 9, first[0], "person id 1 sits at index 9")
}

func TestHistorySnapshot_RestoresRecordedState(t *testing.T) {
	sctx := newContext(t, []model.Person{model.NewPerson(1, "a")})
	calc := newCalculator(t, sctx)

	saved := calc.History().Clone()
	calc.Record(0, 0, 6)
	require.False(t, calc.History().Equal(saved))

	calc.History().CopyFrom(saved)

	assert.True(t, calc.History().Equal(saved))
	assert.Equal(t, 1.2, calc.RestScore(calc.Candidate(0, 0, 8)))
}

func TestMeanScore_ReplaysChronologically(t *testing.T) {
	sctx := newContext(t, []model.Person{model.NewPerson(1, "a")})
	calc := newCalculator(t, sctx)

	schedule := sctx.NewSchedule()
	schedule.RecordAssignment(0, 0, 0, 1)
	schedule.RecordAssignment(0, 6, 0, 1)

	// First shift: 1.2 rest + 1.2 period. Second: half a day of rest, fresh period.
	want := (2.4 + (0.5/7.0 + 1.2)) / 2
	assert.InDelta(t, want, calc.MeanScore(schedule), 1e-9)
	assert.Equal(t, 1.2, calc.RestScore(calc.Candidate(0, 0, 0)), "replay does not touch live history")
}

func TestMeanScore_EmptySchedule(t *testing.T) {
	sctx := newContext(t, []model.Person{model.NewPerson(1, "a")})
	calc := newCalculator(t, sctx)

	assert.Equal(t, 0.0, calc.MeanScore(sctx.NewSchedule()))
}

func TestNewCalculator_RejectsNonPositiveRestCap(t *testing.T) {
	sctx := newContext(t, []model.Person{model.NewPerson(1, "a")})

	_, err := scoring.NewCalculator(sctx, scoring.Params{MaxRestDays: 0})

	assert.Error(t, err)
}
