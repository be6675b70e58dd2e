package search

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(depth int) *AssignmentRecord {
	return &AssignmentRecord{
		Position:   0,
		Period:     3,
		Candidates: []int{4, 2},
		Snapshot:   &StateSnapshot{},
		Depth:      depth,
	}
}

func TestAssignmentRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *AssignmentRecord)
		wantErr string
	}{
		{"valid", func(r *AssignmentRecord) {}, ""},
		{"no candidates", func(r *AssignmentRecord) { r.Candidates = nil }, "no candidates"},
		{"index past end", func(r *AssignmentRecord) { r.CandidateIndex = 2 }, "outside 2 candidates"},
		{"negative index", func(r *AssignmentRecord) { r.CandidateIndex = -1 }, "outside"},
		{"no snapshot", func(r *AssignmentRecord) { r.Snapshot = nil }, "no snapshot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRecord(0)
			tt.mutate(r)
			err := r.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestAssignmentRecord_ChosenAndRemaining(t *testing.T) {
	r := testRecord(0)
	assert.Equal(t, 4, r.Chosen())
	assert.Equal(t, 1, r.Remaining())

	r.CandidateIndex = 1
	assert.Equal(t, 2, r.Chosen())
	assert.Equal(t, 0, r.Remaining())

	r.CandidateIndex = 0
	r.Manual = true
	assert.Equal(t, 0, r.Remaining(), "manual records never advance")
}

func TestAssignmentStack_PushPop(t *testing.T) {
	s := NewAssignmentStack(3)

	_, ok := s.Pop()
	assert.False(t, ok, "empty stack signals on pop")

	first := testRecord(0)
	second := testRecord(1)
	s.Push(first)
	s.Push(second)

	top, ok := s.Peek()
	require.True(t, ok)
	assert.Same(t, second, top)

	popped, ok := s.Pop()
	require.True(t, ok)
	assert.Same(t, second, popped)
	assert.Equal(t, 1, s.Len())
}

func TestAssignmentStack_PushInvalidRecordPanics(t *testing.T) {
	s := NewAssignmentStack(3)

	assert.Panics(t, func() { s.Push(&AssignmentRecord{Snapshot: &StateSnapshot{}}) })
	assert.Panics(t, func() { s.Push(testRecord(1)) }, "depth must match the stack length")
}

func TestAssignmentStack_DepthInvariantUnderEviction(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := NewAssignmentStack(5)

	for i := 0; i < 500; i++ {
		if s.Len() > 0 && rng.Intn(3) == 0 {
			s.Pop()
		} else {
			s.Push(testRecord(s.Len()))
		}

		require.LessOrEqual(t, s.Len(), s.Capacity())
		for k, rec := range s.entries() {
			require.Equal(t, k, rec.Depth, "iteration %d", i)
		}
	}
	assert.Positive(t, s.Evicted())
}

func TestAssignmentStack_EvictsOldest(t *testing.T) {
	s := NewAssignmentStack(2)
	oldest := testRecord(0)
	s.Push(oldest)
	s.Push(testRecord(1))

	evicted := s.Push(testRecord(2))

	assert.True(t, evicted)
	assert.Equal(t, 2, s.Len())
	assert.NotContains(t, s.entries(), oldest)
	assert.Equal(t, 1, s.Evicted())
}

func TestAssignmentStack_CheckpointRollback(t *testing.T) {
	s := NewAssignmentStack(4)
	s.Push(testRecord(0))
	s.Push(testRecord(1))
	cp := s.checkpoint()

	top, _ := s.Pop()
	top.CandidateIndex = 1
	s.Pop()

	s.rollback(cp)

	require.Equal(t, 2, s.Len())
	assert.Equal(t, 0, s.entries()[1].CandidateIndex, "rolled back records are copies")
}
