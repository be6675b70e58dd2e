package search

import (
	"slices"

	"github.com/jakechorley/guard-rota/pkg/core/feasibility"
	"github.com/jakechorley/guard-rota/pkg/core/model"
	"github.com/jakechorley/guard-rota/pkg/core/scoring"
)

// StateSnapshot is an immutable copy of the mutable search state for one date.
// Nothing done to the live state after capture can reach into a snapshot.
type StateSnapshot struct {
	Date  int
	Depth int

	tensor   []byte
	counts   []int
	assigned []bool
	grid     model.Grid
	history  *scoring.History
}

// liveState is the set of structures a snapshot captures and restores
type liveState struct {
	tensor   *feasibility.Tensor
	counts   []int
	assigned []bool
	grid     *model.Grid
	history  *scoring.History
}

// CaptureSnapshot deep copies the live state
func CaptureSnapshot(tensor *feasibility.Tensor, counts []int, assigned []bool, grid model.Grid, history *scoring.History, date, depth int) *StateSnapshot {
	return &StateSnapshot{
		Date:     date,
		Depth:    depth,
		tensor:   tensor.Serialize(),
		counts:   slices.Clone(counts),
		assigned: slices.Clone(assigned),
		grid:     grid.Clone(),
		history:  history.Clone(),
	}
}

func captureLive(live liveState, date, depth int) *StateSnapshot {
	return CaptureSnapshot(live.tensor, live.counts, live.assigned, *live.grid, live.history, date, depth)
}

// Restore overwrites the live structures in place with the captured values.
// Shapes must match the capture; a mismatch panics.
func (s *StateSnapshot) Restore(tensor *feasibility.Tensor, counts []int, assigned []bool, grid *model.Grid, history *scoring.History) {
	if len(counts) != len(s.counts) || len(assigned) != len(s.assigned) {
		panic("snapshot shape does not match live state")
	}
	tensor.Restore(s.tensor)
	copy(counts, s.counts)
	copy(assigned, s.assigned)
	grid.CopyFrom(s.grid)
	history.CopyFrom(s.history)
}

func (s *StateSnapshot) restore(live liveState) {
	s.Restore(live.tensor, live.counts, live.assigned, live.grid, live.history)
}

// Counts returns a copy of the captured remaining-candidate counts
func (s *StateSnapshot) Counts() []int {
	return slices.Clone(s.counts)
}

// Grid returns a copy of the captured date grid
func (s *StateSnapshot) Grid() model.Grid {
	return s.grid.Clone()
}

// TensorBytes returns a copy of the captured tensor encoding
func (s *StateSnapshot) TensorBytes() []byte {
	return slices.Clone(s.tensor)
}
