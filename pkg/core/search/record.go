package search

import (
	"fmt"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

// AssignmentRecord is one decision in the search tree.
//
// Candidates holds dense person indices ordered best first and CandidateIndex points at
// the person currently committed. Snapshot is the state captured before the decision, so
// popping the record and restoring the snapshot undoes it exactly.
type AssignmentRecord struct {
	Position       int
	Period         model.Period
	Date           int
	Candidates     []int
	CandidateIndex int
	Snapshot       *StateSnapshot

	// Manual records pin a designated person and are never advanced
	Manual bool

	// Depth equals the record's index in the stack
	Depth int
}

// Validate checks the preconditions for pushing the record
func (r *AssignmentRecord) Validate() error {
	if len(r.Candidates) == 0 {
		return fmt.Errorf("record for %s has no candidates", r.Slot())
	}
	if r.CandidateIndex < 0 || r.CandidateIndex >= len(r.Candidates) {
		return fmt.Errorf("record for %s has candidate index %d outside %d candidates",
			r.Slot(), r.CandidateIndex, len(r.Candidates))
	}
	if r.Snapshot == nil {
		return fmt.Errorf("record for %s has no snapshot", r.Slot())
	}
	return nil
}

// Chosen returns the committed person index
func (r *AssignmentRecord) Chosen() int {
	return r.Candidates[r.CandidateIndex]
}

// Remaining returns the number of untried candidates after the current one
func (r *AssignmentRecord) Remaining() int {
	if r.Manual {
		return 0
	}
	return len(r.Candidates) - r.CandidateIndex - 1
}

// Slot returns the slot the decision filled
func (r *AssignmentRecord) Slot() model.Slot {
	return model.Slot{Date: r.Date, Period: r.Period, Position: r.Position}
}

// AssignmentStack is a bounded LIFO of decisions.
//
// When a push would exceed capacity the oldest decision is evicted and can no longer be
// undone; the remaining depths are renumbered so records[k].Depth == k always holds.
type AssignmentStack struct {
	records  []*AssignmentRecord
	capacity int
	evicted  int
}

// NewAssignmentStack creates a stack holding at most capacity records
func NewAssignmentStack(capacity int) *AssignmentStack {
	if capacity < 1 {
		panic(fmt.Sprintf("assignment stack capacity must be positive, got %d", capacity))
	}
	return &AssignmentStack{
		records:  make([]*AssignmentRecord, 0, capacity),
		capacity: capacity,
	}
}

// Push adds a record on top. The record's depth must equal Len().
// Invalid records are a programming error and panic.
// Returns true if the oldest record was evicted to make room.
func (s *AssignmentStack) Push(r *AssignmentRecord) bool {
	if err := r.Validate(); err != nil {
		panic(err.Error())
	}
	if r.Depth != len(s.records) {
		panic(fmt.Sprintf("record depth %d does not match stack length %d", r.Depth, len(s.records)))
	}

	evicted := false
	if len(s.records) == s.capacity {
		copy(s.records, s.records[1:])
		s.records = s.records[:len(s.records)-1]
		for k, rec := range s.records {
			rec.Depth = k
		}
		r.Depth = len(s.records)
		s.evicted++
		evicted = true
	}
	s.records = append(s.records, r)
	return evicted
}

// Pop removes and returns the top record
func (s *AssignmentStack) Pop() (*AssignmentRecord, bool) {
	if len(s.records) == 0 {
		return nil, false
	}
	top := s.records[len(s.records)-1]
	s.records[len(s.records)-1] = nil
	s.records = s.records[:len(s.records)-1]
	return top, true
}

// Peek returns the top record without removing it
func (s *AssignmentStack) Peek() (*AssignmentRecord, bool) {
	if len(s.records) == 0 {
		return nil, false
	}
	return s.records[len(s.records)-1], true
}

// Len returns the number of records
func (s *AssignmentStack) Len() int {
	return len(s.records)
}

// Capacity returns the maximum number of records
func (s *AssignmentStack) Capacity() int {
	return s.capacity
}

// Evicted returns how many records were dropped off the bottom since the last Clear
func (s *AssignmentStack) Evicted() int {
	return s.evicted
}

// Clear drops every record
func (s *AssignmentStack) Clear() {
	clear(s.records)
	s.records = s.records[:0]
	s.evicted = 0
}

// entries returns the records bottom first. The slice must not be modified.
func (s *AssignmentStack) entries() []*AssignmentRecord {
	return s.records
}

// checkpoint copies the stack so a failed backtrack chain can be rolled back.
// Records are copied by value; snapshots and candidate lists are immutable and shared.
type stackCheckpoint struct {
	records []AssignmentRecord
	evicted int
}

func (s *AssignmentStack) checkpoint() stackCheckpoint {
	cp := stackCheckpoint{records: make([]AssignmentRecord, len(s.records)), evicted: s.evicted}
	for i, r := range s.records {
		cp.records[i] = *r
	}
	return cp
}

func (s *AssignmentStack) rollback(cp stackCheckpoint) {
	s.Clear()
	for i := range cp.records {
		rec := cp.records[i]
		s.records = append(s.records, &rec)
	}
	s.evicted = cp.evicted
}
