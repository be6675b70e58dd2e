package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/guard-rota/pkg/core/constraints"
	"github.com/jakechorley/guard-rota/pkg/core/feasibility"
	"github.com/jakechorley/guard-rota/pkg/core/model"
	"github.com/jakechorley/guard-rota/pkg/core/scoring"
)

// ErrCancelled is returned when the caller's context ends mid-search.
// It wraps the context error.
var ErrCancelled = errors.New("search cancelled")

// Config bounds the search
type Config struct {
	// MaxDepth is the assignment stack capacity
	MaxDepth int

	// MaxBacktracksPerDate caps Backtrack calls while solving a single date
	MaxBacktracksPerDate int

	// MemoryCheckInterval is the number of candidate attempts between heap samples (0 disables)
	MemoryCheckInterval int

	// MemoryThresholdBytes is the heap size treated as a breach (0 disables)
	MemoryThresholdBytes uint64

	// Metrics is optional
	Metrics *Metrics
}

// DefaultConfig returns the default search bounds
func DefaultConfig() Config {
	return Config{
		MaxDepth:             50,
		MaxBacktracksPerDate: 1000,
		MemoryCheckInterval:  100,
		MemoryThresholdBytes: 1 << 30,
	}
}

// DateResult summarises the outcome for one date
type DateResult struct {
	Date       int
	Assigned   int
	Unassigned int
	Backtracks int
}

// Result is the outcome of Solve
type Result struct {
	Schedule    *model.Schedule
	Dates       []DateResult
	Diagnostics Diagnostics
	Duration    time.Duration
}

// Complete returns true if every slot was filled
func (r *Result) Complete() bool {
	return len(r.Diagnostics.Unassigned) == 0
}

// Engine fills a schedule date by date with MRV-ordered backtracking search.
//
// The tensor, counts, flags and stack describe only the active date; earlier dates are
// final once their date is finished and later dates are still empty. An Engine must be
// driven from a single goroutine.
type Engine struct {
	sctx      *model.SchedulingContext
	validator *constraints.Validator
	calc      *scoring.Calculator
	cfg       Config
	logger    *zap.Logger
	metrics   *Metrics
	memory    *MemoryMonitor

	schedule *model.Schedule
	eligible [][]int

	date         int
	tensor       *feasibility.Tensor
	counts       []int
	staticCounts []int
	assigned     []bool
	skipped      []bool
	stack        *AssignmentStack
	backtracks   int

	stats        BacktrackingStatistics
	dateResults  []DateResult
	unassigned   []SlotDiagnostic
	warnedMemory bool
}

// NewEngine creates an engine writing into a fresh schedule for the context
func NewEngine(sctx *model.SchedulingContext, validator *constraints.Validator, calc *scoring.Calculator, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxDepth < 1 {
		cfg.MaxDepth = DefaultConfig().MaxDepth
	}
	slots := model.NumPeriods * sctx.NumPositions()
	return &Engine{
		sctx:         sctx,
		validator:    validator,
		calc:         calc,
		cfg:          cfg,
		logger:       logger,
		metrics:      cfg.Metrics,
		memory:       NewMemoryMonitor(cfg.MemoryCheckInterval, cfg.MemoryThresholdBytes),
		schedule:     sctx.NewSchedule(),
		eligible:     sctx.EligibleIndices(),
		date:         -1,
		tensor:       feasibility.NewTensor(sctx.NumPositions(), sctx.NumPersons()),
		counts:       make([]int, slots),
		staticCounts: make([]int, slots),
		assigned:     make([]bool, slots),
		skipped:      make([]bool, slots),
		stack:        NewAssignmentStack(cfg.MaxDepth),
	}
}

// Schedule returns the schedule being written
func (e *Engine) Schedule() *model.Schedule {
	return e.schedule
}

// Statistics returns the cumulative counters
func (e *Engine) Statistics() BacktrackingStatistics {
	return e.stats
}

// MemoryPressure reports whether repeated heap breaches have stopped backtracking
func (e *Engine) MemoryPressure() bool {
	return e.memory.Pressure()
}

func (e *Engine) slotIndex(pos int, period model.Period) int {
	return int(period)*e.sctx.NumPositions() + pos
}

func (e *Engine) live() liveState {
	return liveState{
		tensor:   e.tensor,
		counts:   e.counts,
		assigned: e.assigned,
		grid:     &e.schedule.Grids[e.date],
		history:  e.calc.History(),
	}
}

func (e *Engine) candidate(person, pos int, period model.Period) constraints.Candidate {
	return constraints.Candidate{
		PersonID: e.sctx.Persons[person].ID,
		Slot:     model.Slot{Date: e.date, Period: period, Position: pos},
	}
}

// BeginDate makes a date active: its grid is cleared, the tensor is rebuilt from
// eligibility and static rules, exclusions from neighbouring dates are applied and
// manual assignments are committed.
func (e *Engine) BeginDate(date int) {
	if date < 0 || date >= e.sctx.NumDates() {
		panic(fmt.Sprintf("date index %d out of range", date))
	}
	e.date = date
	e.schedule.Grids[date] = model.NewGrid(e.sctx.NumPositions())
	clear(e.assigned)
	clear(e.skipped)
	e.stack.Clear()
	e.backtracks = 0

	e.applyStaticExclusions()
	e.applyNeighbourExclusions()
	e.applyManualExclusions()
	e.refreshCounts()
	copy(e.staticCounts, e.counts)

	e.commitManual()
}

func (e *Engine) applyStaticExclusions() {
	e.tensor.InitializeFromEligibility(e.eligible)

	for idx := range e.sctx.Persons {
		person := &e.sctx.Persons[idx]
		rules := e.sctx.RulesFor(person.ID)
		for pos := range e.sctx.Positions {
			position := &e.sctx.Positions[pos]
			if !person.Schedulable() || !person.Skills.Covers(position.RequiredSkills) {
				e.tensor.ExcludePersonAtPosition(idx, pos)
				continue
			}
			if len(rules) == 0 {
				continue
			}
			for period := model.Period(0); period < model.NumPeriods; period++ {
				if !anyRuleAllows(rules, position.ID, period) {
					e.tensor.ExcludeCell(pos, period, idx)
				}
			}
		}
	}
}

func anyRuleAllows(rules []*model.FixedPositionRule, positionID int, period model.Period) bool {
	for _, rule := range rules {
		if rule.Allows(positionID, period) {
			return true
		}
	}
	return false
}

// applyNeighbourExclusions carries night and adjacency constraints across midnight.
// The previous date is final (the context's prior day for the first date); the next date
// holds only manual assignments at this point.
func (e *Engine) applyNeighbourExclusions() {
	last := model.Period(model.NumPeriods - 1)
	if e.date == 0 {
		for idx := range e.sctx.Persons {
			if e.sctx.WorkedPriorDay(last, e.sctx.Persons[idx].ID) {
				for _, early := range []model.Period{0, 1, 2} {
					e.tensor.ExcludePeriodForPerson(idx, early)
				}
			}
		}
	}
	for pos := range e.sctx.Positions {
		if idx, ok := e.personIndexAt(e.date-1, last, pos); ok {
			for _, early := range []model.Period{0, 1, 2} {
				e.tensor.ExcludePeriodForPerson(idx, early)
			}
		}
		for _, early := range []model.Period{0, 1, 2} {
			if idx, ok := e.personIndexAt(e.date+1, early, pos); ok {
				e.tensor.ExcludePeriodForPerson(idx, last)
			}
			if designated := e.sctx.ManualAt(e.date+1, early, pos); designated != model.Unassigned {
				if idx, ok := e.sctx.PersonIndex(designated); ok {
					e.tensor.ExcludePeriodForPerson(idx, last)
				}
			}
		}
	}
}

func (e *Engine) personIndexAt(date int, period model.Period, pos int) (int, bool) {
	personID := e.schedule.PersonAt(date, period, pos)
	if personID == model.Unassigned {
		return 0, false
	}
	return e.sctx.PersonIndex(personID)
}

// applyManualExclusions reserves manually assigned slots for their designated person
func (e *Engine) applyManualExclusions() {
	e.forEachManual(func(pos int, period model.Period, idx int) {
		e.tensor.ExcludeOthersForSlot(pos, period, idx)
	})
}

func (e *Engine) commitManual() {
	e.forEachManual(func(pos int, period model.Period, idx int) {
		if !e.tensor.IsFeasible(pos, period, idx) || !e.validator.ValidateAll(e.schedule, e.candidate(idx, pos, period)) {
			e.logger.Warn("Manual assignment rejected",
				zap.String("date", e.sctx.Dates[e.date].Format(model.DateLayout)),
				zap.Int("period", int(period)),
				zap.Int("positionID", e.sctx.Positions[pos].ID),
				zap.Int("personID", e.sctx.Persons[idx].ID))
			return
		}
		snap := captureLive(e.live(), e.date, e.stack.Len())
		e.commit(pos, period, idx)
		e.push(&AssignmentRecord{
			Position:   pos,
			Period:     period,
			Date:       e.date,
			Candidates: []int{idx},
			Snapshot:   snap,
			Manual:     true,
			Depth:      e.stack.Len(),
		})
	})
}

func (e *Engine) forEachManual(fn func(pos int, period model.Period, idx int)) {
	for period := model.Period(0); period < model.NumPeriods; period++ {
		for pos := range e.sctx.Positions {
			designated := e.sctx.ManualAt(e.date, period, pos)
			if designated == model.Unassigned {
				continue
			}
			if idx, ok := e.sctx.PersonIndex(designated); ok {
				fn(pos, period, idx)
			}
		}
	}
}

func (e *Engine) refreshCounts() {
	for period := model.Period(0); period < model.NumPeriods; period++ {
		for pos := range e.sctx.Positions {
			e.counts[e.slotIndex(pos, period)] = e.tensor.CountFeasible(pos, period)
		}
	}
}

// commit writes the assignment and applies every forward exclusion it implies
func (e *Engine) commit(pos int, period model.Period, person int) {
	e.schedule.RecordAssignment(e.date, period, pos, e.sctx.Persons[person].ID)
	e.assigned[e.slotIndex(pos, period)] = true

	e.tensor.ExcludeOthersForSlot(pos, period, person)
	e.tensor.ExcludeOtherPositionsForPersonPeriod(person, period, pos)
	if prev, offset := period.Prev(); offset == 0 {
		e.tensor.ExcludePeriodForPerson(person, prev)
	}
	if next, offset := period.Next(); offset == 0 {
		e.tensor.ExcludePeriodForPerson(person, next)
	}
	if period.IsNight() {
		for _, night := range model.NightPeriods {
			if night != period {
				e.tensor.ExcludePeriodForPerson(person, night)
			}
		}
	}

	e.calc.Record(person, e.date, period)
	e.refreshCounts()
}

func (e *Engine) push(r *AssignmentRecord) {
	if e.stack.Push(r) {
		e.stats.Evictions++
	}
	if e.stack.Len() > e.stats.MaxDepthReached {
		e.stats.MaxDepthReached = e.stack.Len()
		e.metrics.depth(e.stats.MaxDepthReached)
	}
}

func (e *Engine) checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

// tick accounts for one candidate attempt and runs the memory policy
func (e *Engine) tick() {
	e.stats.Attempts++
	e.metrics.attempt()

	sampled, collected := e.memory.Tick()
	if sampled {
		e.stats.MemoryChecks++
	}
	if collected {
		e.stats.GCRequests++
		e.logger.Debug("Heap above threshold, requested collection")
	}
	if e.memory.Pressure() && !e.warnedMemory {
		e.warnedMemory = true
		e.logger.Warn("Memory pressure, backtracking disabled",
			zap.Uint64("thresholdBytes", e.cfg.MemoryThresholdBytes))
	}
}

func (e *Engine) checkActive(date int) error {
	if date != e.date {
		return fmt.Errorf("date %d is not the active date %d", date, e.date)
	}
	return nil
}

// TryAssignWithBacktracking fills a slot with the best ranked candidate that passes the
// validator. On success the decision is pushed; on failure nothing is changed.
func (e *Engine) TryAssignWithBacktracking(ctx context.Context, pos int, period model.Period, date int) (bool, error) {
	if err := e.checkActive(date); err != nil {
		return false, err
	}
	if e.assigned[e.slotIndex(pos, period)] {
		return false, nil
	}

	persons := e.tensor.FeasiblePersons(pos, period)
	if len(persons) == 0 {
		return false, nil
	}
	ranked := e.calc.RankCandidates(persons, date, period)
	snap := captureLive(e.live(), date, e.stack.Len())

	for i, person := range ranked {
		if err := e.checkCancelled(ctx); err != nil {
			return false, err
		}
		e.tick()
		if !e.validator.ValidateAll(e.schedule, e.candidate(person, pos, period)) {
			continue
		}
		e.commit(pos, period, person)
		e.push(&AssignmentRecord{
			Position:       pos,
			Period:         period,
			Date:           date,
			Candidates:     ranked,
			CandidateIndex: i,
			Snapshot:       snap,
			Depth:          e.stack.Len(),
		})
		return true, nil
	}
	return false, nil
}

// Backtrack undoes decisions from the top of the stack until one can be advanced to its
// next candidate. Manual decisions are never advanced.
func (e *Engine) Backtrack(ctx context.Context, date int) (BacktrackOutcome, error) {
	if err := e.checkActive(date); err != nil {
		return Unsolvable, err
	}
	e.stats.TotalBacktracks++
	e.backtracks++

	for {
		rec, ok := e.stack.Pop()
		if !ok {
			e.stats.FailedBacktracks++
			outcome := Unsolvable
			if e.stack.Evicted() > 0 {
				outcome = DepthExhausted
			}
			e.metrics.backtrack(outcome)
			return outcome, nil
		}
		rec.Snapshot.restore(e.live())
		if rec.Remaining() == 0 {
			continue
		}

		for next := rec.CandidateIndex + 1; next < len(rec.Candidates); next++ {
			if err := e.checkCancelled(ctx); err != nil {
				return Unsolvable, err
			}
			e.tick()
			person := rec.Candidates[next]
			if !e.validator.ValidateAll(e.schedule, e.candidate(person, rec.Position, rec.Period)) {
				continue
			}
			e.commit(rec.Position, rec.Period, person)
			rec.CandidateIndex = next
			rec.Depth = e.stack.Len()
			e.push(rec)
			e.stats.SuccessfulBacktracks++
			e.metrics.backtrack(Resolved)
			return Resolved, nil
		}
	}
}

// DetectDeadEnd reports whether an open slot of the active date has no feasible candidate
func (e *Engine) DetectDeadEnd() bool {
	for i := range e.counts {
		if !e.assigned[i] && !e.skipped[i] && e.counts[i] == 0 {
			return true
		}
	}
	return false
}

// nextSlot returns the open slot with the fewest feasible candidates.
// Ties go to the earlier period, then the lower position.
func (e *Engine) nextSlot() (int, model.Period, bool) {
	best := -1
	for i := range e.counts {
		if e.assigned[i] || e.skipped[i] {
			continue
		}
		if best < 0 || e.counts[i] < e.counts[best] {
			best = i
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	positions := e.sctx.NumPositions()
	return best % positions, model.Period(best / positions), true
}

type checkpoint struct {
	snapshot *StateSnapshot
	stack    stackCheckpoint
}

func (e *Engine) checkpoint() checkpoint {
	return checkpoint{
		snapshot: captureLive(e.live(), e.date, e.stack.Len()),
		stack:    e.stack.checkpoint(),
	}
}

func (e *Engine) rollback(cp checkpoint) {
	cp.snapshot.restore(e.live())
	e.stack.rollback(cp.stack)
}

// resolveFailure handles a slot that could not be filled: backtrack if allowed, otherwise (or if
// backtracking fails) roll back to the state before the attempt and leave the slot open.
func (e *Engine) resolveFailure(ctx context.Context, pos int, period model.Period) error {
	slot := e.slotIndex(pos, period)
	if e.staticCounts[slot] == 0 || e.memory.Pressure() ||
		e.backtracks >= e.cfg.MaxBacktracksPerDate || e.stack.Len() == 0 {
		e.skip(pos, period)
		return nil
	}

	cp := e.checkpoint()
	outcome, err := e.Backtrack(ctx, e.date)
	if err != nil {
		e.rollback(cp)
		return err
	}
	if outcome == Resolved {
		return nil
	}

	e.logger.Debug("Backtracking failed, leaving slot open",
		zap.String("date", e.sctx.Dates[e.date].Format(model.DateLayout)),
		zap.Int("period", int(period)),
		zap.Int("position", pos),
		zap.Stringer("outcome", outcome))
	e.rollback(cp)
	e.skip(pos, period)
	return nil
}

func (e *Engine) skip(pos int, period model.Period) {
	e.skipped[e.slotIndex(pos, period)] = true
	e.stats.SkippedSlots++
}

// SolveDate fills as much of one date as the search bounds allow
func (e *Engine) SolveDate(ctx context.Context, date int) (*DateResult, error) {
	e.BeginDate(date)

	for {
		if err := e.checkCancelled(ctx); err != nil {
			return nil, err
		}
		pos, period, ok := e.nextSlot()
		if !ok {
			break
		}

		if e.DetectDeadEnd() {
			e.stats.DeadEnds++
			e.metrics.deadEnd()
			if err := e.resolveFailure(ctx, pos, period); err != nil {
				return nil, err
			}
			continue
		}

		assigned, err := e.TryAssignWithBacktracking(ctx, pos, period, date)
		if err != nil {
			return nil, err
		}
		if !assigned {
			if err := e.resolveFailure(ctx, pos, period); err != nil {
				return nil, err
			}
		}
	}

	result := e.finishDate()
	return &result, nil
}

// finishDate records the date result and diagnoses every slot left open
func (e *Engine) finishDate() DateResult {
	result := DateResult{Date: e.date, Backtracks: e.backtracks}
	label := e.sctx.Dates[e.date].Format(model.DateLayout)
	for period := model.Period(0); period < model.NumPeriods; period++ {
		for pos := range e.sctx.Positions {
			slot := e.slotIndex(pos, period)
			if e.assigned[slot] {
				result.Assigned++
				continue
			}
			result.Unassigned++
			diag := SlotDiagnostic{
				Slot:     model.Slot{Date: e.date, Period: period, Position: pos},
				Date:     label,
				Eligible: e.staticCounts[slot],
				Feasible: e.counts[slot],
			}
			switch {
			case diag.Eligible == 0:
				diag.Reason = NoEligibleCandidates
			case diag.Feasible == 0:
				diag.Reason = InsufficientCandidates
			default:
				diag.Reason = AllCandidatesFailedValidation
			}
			e.unassigned = append(e.unassigned, diag)
		}
	}
	e.dateResults = append(e.dateResults, result)
	return result
}

// Solve runs SolveDate over every date in order.
// On cancellation the partial result is returned together with the error.
func (e *Engine) Solve(ctx context.Context) (*Result, error) {
	start := time.Now()
	e.logger.Info("Starting backtracking search",
		zap.Int("dates", e.sctx.NumDates()),
		zap.Int("positions", e.sctx.NumPositions()),
		zap.Int("persons", e.sctx.NumPersons()))

	for date := range e.sctx.Dates {
		res, err := e.SolveDate(ctx, date)
		if err != nil {
			return e.result(start), err
		}
		e.logger.Debug("Date solved",
			zap.String("date", e.sctx.Dates[date].Format(model.DateLayout)),
			zap.Int("assigned", res.Assigned),
			zap.Int("unassigned", res.Unassigned),
			zap.Int("backtracks", res.Backtracks))
	}

	result := e.result(start)
	e.metrics.setUnassigned(len(result.Diagnostics.Unassigned))
	e.logger.Info("Backtracking search finished",
		zap.Bool("complete", result.Complete()),
		zap.String("summary", result.Diagnostics.Summary()),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (e *Engine) result(start time.Time) *Result {
	return &Result{
		Schedule:    e.schedule,
		Dates:       append([]DateResult(nil), e.dateResults...),
		Diagnostics: e.Diagnostics(),
		Duration:    time.Since(start),
	}
}

// Diagnostics returns the statistics and the open slots of every finished date
func (e *Engine) Diagnostics() Diagnostics {
	return Diagnostics{
		Statistics:     e.stats,
		MemoryPressure: e.memory.Pressure(),
		Unassigned:     append([]SlotDiagnostic(nil), e.unassigned...),
	}
}

// Diagnose returns the open slots of one finished date
func (e *Engine) Diagnose(date int) []SlotDiagnostic {
	var out []SlotDiagnostic
	for _, d := range e.unassigned {
		if d.Slot.Date == date {
			out = append(out, d)
		}
	}
	return out
}
