package search

import (
	"fmt"
	"strings"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

// BacktrackOutcome is the result of one Backtrack call
type BacktrackOutcome int

const (
	// Resolved means a prior decision was advanced to a new candidate
	Resolved BacktrackOutcome = iota
	// Unsolvable means the stack emptied with every decision exhausted
	Unsolvable
	// DepthExhausted means the stack emptied but older decisions had been evicted
	DepthExhausted
)

func (o BacktrackOutcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Unsolvable:
		return "unsolvable"
	case DepthExhausted:
		return "depth_exhausted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// BacktrackingStatistics are cumulative counters over an engine's lifetime
type BacktrackingStatistics struct {
	TotalBacktracks      int
	SuccessfulBacktracks int
	FailedBacktracks     int
	MaxDepthReached      int
	DeadEnds             int
	Attempts             int
	Evictions            int
	SkippedSlots         int
	MemoryChecks         int
	GCRequests           int
}

// FailureReason explains why a slot was left unassigned
type FailureReason string

const (
	NoEligibleCandidates          FailureReason = "no_eligible_candidates"
	InsufficientCandidates        FailureReason = "insufficient_candidates"
	AllCandidatesFailedValidation FailureReason = "all_candidates_failed_validation"
)

// SlotDiagnostic describes one unassigned slot after a run
type SlotDiagnostic struct {
	Slot model.Slot
	Date string

	// Eligible is the number of persons listed for the position and schedulable
	Eligible int

	// Feasible is the number of persons the tensor still allowed at the end of the date
	Feasible int

	Reason FailureReason
}

// Diagnostics is the report for a run
type Diagnostics struct {
	Statistics     BacktrackingStatistics
	MemoryPressure bool
	Unassigned     []SlotDiagnostic
}

// Summary renders a one-line overview
func (d Diagnostics) Summary() string {
	reasons := make(map[FailureReason]int)
	for _, u := range d.Unassigned {
		reasons[u.Reason]++
	}
	var parts []string
	for _, reason := range []FailureReason{NoEligibleCandidates, InsufficientCandidates, AllCandidatesFailedValidation} {
		if reasons[reason] > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", reason, reasons[reason]))
		}
	}
	s := fmt.Sprintf("backtracks=%d (ok=%d failed=%d) maxDepth=%d deadEnds=%d unassigned=%d",
		d.Statistics.TotalBacktracks, d.Statistics.SuccessfulBacktracks, d.Statistics.FailedBacktracks,
		d.Statistics.MaxDepthReached, d.Statistics.DeadEnds, len(d.Unassigned))
	if len(parts) > 0 {
		s += " [" + strings.Join(parts, " ") + "]"
	}
	if d.MemoryPressure {
		s += " memoryPressure"
	}
	return s
}
