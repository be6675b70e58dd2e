package feasibility

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

func allEligible(positions, persons int) [][]int {
	eligible := make([][]int, positions)
	for pos := range eligible {
		for person := 0; person < persons; person++ {
			eligible[pos] = append(eligible[pos], person)
		}
	}
	return eligible
}

func TestNewTensor_AllInfeasible(t *testing.T) {
	tensor := NewTensor(2, 5)

	for pos := 0; pos < 2; pos++ {
		for period := model.Period(0); period < model.NumPeriods; period++ {
			assert.Equal(t, 0, tensor.CountFeasible(pos, period))
			assert.Empty(t, tensor.FeasiblePersons(pos, period))
		}
	}
	require.NoError(t, tensor.ValidateConsistency())
}

func TestInitializeFromEligibility_OpensOnlyDeclaredPairs(t *testing.T) {
	tensor := NewTensor(2, 4)
	tensor.InitializeFromEligibility([][]int{{0, 2}, {1}})

	for period := model.Period(0); period < model.NumPeriods; period++ {
		assert.Equal(t, []int{0, 2}, tensor.FeasiblePersons(0, period))
		assert.Equal(t, []int{1}, tensor.FeasiblePersons(1, period))
		assert.False(t, tensor.IsFeasible(0, period, 1))
		assert.False(t, tensor.IsFeasible(1, period, 3))
	}
	require.NoError(t, tensor.ValidateConsistency())
}

func TestInitializeFromEligibility_ResetsPreviousState(t *testing.T) {
	tensor := NewTensor(1, 3)
	tensor.InitializeFromEligibility([][]int{{0, 1, 2}})
	tensor.InitializeFromEligibility([][]int{{1}})

	assert.Equal(t, []int{1}, tensor.FeasiblePersons(0, 5))
}

func TestCountFeasible_SpansMultipleWords(t *testing.T) {
	tensor := NewTensor(1, 130)
	tensor.InitializeFromEligibility(allEligible(1, 130))

	assert.Equal(t, 130, tensor.CountFeasible(0, 0))

	tensor.ExcludeCell(0, 0, 63)
	tensor.ExcludeCell(0, 0, 64)
	tensor.ExcludeCell(0, 0, 129)

	assert.Equal(t, 127, tensor.CountFeasible(0, 0))
	persons := tensor.FeasiblePersons(0, 0)
	assert.Len(t, persons, 127)
	assert.NotContains(t, persons, 64)
	assert.Contains(t, persons, 65)
	require.NoError(t, tensor.ValidateConsistency())
}

func TestExcludeOthersForSlot(t *testing.T) {
	tensor := NewTensor(2, 3)
	tensor.InitializeFromEligibility(allEligible(2, 3))

	tensor.ExcludeOthersForSlot(0, 4, 1)

	assert.Equal(t, []int{1}, tensor.FeasiblePersons(0, 4))
	// Other slots untouched
	assert.Equal(t, 3, tensor.CountFeasible(1, 4))
	assert.Equal(t, 3, tensor.CountFeasible(0, 5))
}

func TestExcludeOtherPositionsForPersonPeriod(t *testing.T) {
	tensor := NewTensor(3, 2)
	tensor.InitializeFromEligibility(allEligible(3, 2))

	tensor.ExcludeOtherPositionsForPersonPeriod(0, 6, 1)

	assert.False(t, tensor.IsFeasible(0, 6, 0))
	assert.True(t, tensor.IsFeasible(1, 6, 0))
	assert.False(t, tensor.IsFeasible(2, 6, 0))
	assert.True(t, tensor.IsFeasible(0, 6, 1), "other persons are unaffected")
	assert.True(t, tensor.IsFeasible(0, 7, 0), "other periods are unaffected")
}

func TestExcludePeriodForPerson(t *testing.T) {
	tensor := NewTensor(2, 2)
	tensor.InitializeFromEligibility(allEligible(2, 2))

	tensor.ExcludePeriodForPerson(1, 3)

	assert.False(t, tensor.IsFeasible(0, 3, 1))
	assert.False(t, tensor.IsFeasible(1, 3, 1))
	assert.True(t, tensor.IsFeasible(0, 3, 0))
	assert.True(t, tensor.IsFeasible(0, 4, 1))
}

func TestExcludePersonAtPosition(t *testing.T) {
	tensor := NewTensor(2, 2)
	tensor.InitializeFromEligibility(allEligible(2, 2))

	tensor.ExcludePersonAtPosition(0, 1)

	for period := model.Period(0); period < model.NumPeriods; period++ {
		assert.False(t, tensor.IsFeasible(1, period, 0))
		assert.True(t, tensor.IsFeasible(0, period, 0))
	}
}

func TestOutOfRangeIndexPanics(t *testing.T) {
	tensor := NewTensor(1, 2)

	assert.Panics(t, func() { tensor.IsFeasible(1, 0, 0) })
	assert.Panics(t, func() { tensor.IsFeasible(0, 12, 0) })
	assert.Panics(t, func() { tensor.IsFeasible(0, 0, 2) })
	assert.Panics(t, func() { tensor.ExcludeOthersForSlot(0, -1, 0) })
}

func TestValidateConsistency_RandomExclusionSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 25; trial++ {
		positions := 1 + rng.Intn(4)
		persons := 1 + rng.Intn(150)
		tensor := NewTensor(positions, persons)

		eligible := make([][]int, positions)
		for pos := range eligible {
			for person := 0; person < persons; person++ {
				if rng.Float64() < 0.7 {
					eligible[pos] = append(eligible[pos], person)
				}
			}
		}
		tensor.InitializeFromEligibility(eligible)
		require.NoError(t, tensor.ValidateConsistency())

		for op := 0; op < 200; op++ {
			pos := rng.Intn(positions)
			period := model.Period(rng.Intn(model.NumPeriods))
			person := rng.Intn(persons)

			switch rng.Intn(5) {
			case 0:
				tensor.ExcludeOthersForSlot(pos, period, person)
			case 1:
				tensor.ExcludeOtherPositionsForPersonPeriod(person, period, pos)
			case 2:
				tensor.ExcludePeriodForPerson(person, period)
			case 3:
				tensor.ExcludePersonAtPosition(person, pos)
			case 4:
				tensor.ExcludeCell(pos, period, person)
			}

			require.NoError(t, tensor.ValidateConsistency(), "trial %d op %d", trial, op)

			// The packed count must agree with an element scan of the logical view
			scan := 0
			for p := 0; p < persons; p++ {
				if tensor.IsFeasible(pos, period, p) {
					scan++
				}
			}
			require.Equal(t, scan, tensor.CountFeasible(pos, period))
		}
	}
}

func TestSerializeRestore_RoundTrip(t *testing.T) {
	tensor := NewTensor(3, 70)
	tensor.InitializeFromEligibility(allEligible(3, 70))
	tensor.ExcludeOthersForSlot(0, 0, 5)
	tensor.ExcludePeriodForPerson(66, 11)

	saved := tensor.Serialize()
	before := tensor.Clone()

	tensor.ExcludeOthersForSlot(1, 3, 0)
	tensor.ExcludePersonAtPosition(69, 2)
	require.False(t, tensor.Equal(before))

	tensor.Restore(saved)

	assert.True(t, tensor.Equal(before))
	assert.Equal(t, saved, tensor.Serialize())
	require.NoError(t, tensor.ValidateConsistency())
	assert.True(t, tensor.IsFeasible(1, 3, 12), "logical view is rebuilt from restored words")
}

func TestRestore_MalformedSnapshotPanics(t *testing.T) {
	tensor := NewTensor(2, 10)
	other := NewTensor(2, 11)

	assert.Panics(t, func() { tensor.Restore([]byte{1, 2, 3}) })
	assert.Panics(t, func() {
		data := other.Serialize()
		tensor.Restore(data[:len(tensor.Serialize())])
	})
}

func TestClone_IsIndependent(t *testing.T) {
	tensor := NewTensor(1, 4)
	tensor.InitializeFromEligibility(allEligible(1, 4))

	clone := tensor.Clone()
	clone.ExcludeOthersForSlot(0, 0, 2)

	assert.Equal(t, 4, tensor.CountFeasible(0, 0))
	assert.Equal(t, 1, clone.CountFeasible(0, 0))
	require.NoError(t, clone.ValidateConsistency())
}
