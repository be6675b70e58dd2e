package scoring

import (
	"math"
	"slices"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

// never marks a person who has no recorded shift of the relevant kind
const never = math.MinInt32

// History is the rolling per-person scheduling state the soft criteria read.
//
// Every entry is an absolute period (date index * 12 + period) relative to the first
// scheduled date, so earlier history seeded from the person counters is negative.
// The engine snapshots and restores it alongside the tensor.
type History struct {
	lastShift    []int
	lastHoliday  []int
	lastByPeriod [][model.NumPeriods]int
}

// NewHistory seeds the history from each person's rolling counters
func NewHistory(persons []model.Person) *History {
	h := &History{
		lastShift:    make([]int, len(persons)),
		lastHoliday:  make([]int, len(persons)),
		lastByPeriod: make([][model.NumPeriods]int, len(persons)),
	}
	for i := range persons {
		h.lastShift[i] = seed(persons[i].PeriodsSinceLastShift)
		h.lastHoliday[i] = seed(persons[i].PeriodsSinceLastHoliday)
		for p := range h.lastByPeriod[i] {
			h.lastByPeriod[i][p] = seed(persons[i].PeriodsSincePeriod[p])
		}
	}
	return h
}

func seed(periodsSince int) int {
	if periodsSince < 0 {
		return never
	}
	return -periodsSince
}

// Record notes that the person worked the slot
func (h *History) Record(person, date int, period model.Period, holiday bool) {
	abs := model.AbsolutePeriod(date, period)
	h.lastShift[person] = max(h.lastShift[person], abs)
	h.lastByPeriod[person][period] = max(h.lastByPeriod[person][period], abs)
	if holiday {
		h.lastHoliday[person] = max(h.lastHoliday[person], abs)
	}
}

// LastShift returns the absolute period of the person's latest shift
func (h *History) LastShift(person int) (int, bool) {
	return h.lastShift[person], h.lastShift[person] != never
}

// LastHoliday returns the absolute period of the person's latest holiday shift
func (h *History) LastHoliday(person int) (int, bool) {
	return h.lastHoliday[person], h.lastHoliday[person] != never
}

// LastInPeriod returns the absolute period of the person's latest shift in the given period
func (h *History) LastInPeriod(person int, period model.Period) (int, bool) {
	last := h.lastByPeriod[person][period]
	return last, last != never
}

// PeriodsSinceLastShift converts the history back into a person counter at the given
// absolute period. Returns -1 for a person who never worked.
func (h *History) PeriodsSinceLastShift(person, now int) int {
	last, ok := h.LastShift(person)
	if !ok {
		return -1
	}
	return now - last
}

// Clone returns an independent copy
func (h *History) Clone() *History {
	return &History{
		lastShift:    slices.Clone(h.lastShift),
		lastHoliday:  slices.Clone(h.lastHoliday),
		lastByPeriod: slices.Clone(h.lastByPeriod),
	}
}

// CopyFrom overwrites the history in place with other
func (h *History) CopyFrom(other *History) {
	copy(h.lastShift, other.lastShift)
	copy(h.lastHoliday, other.lastHoliday)
	copy(h.lastByPeriod, other.lastByPeriod)
}

// Equal returns true if both histories hold the same state
func (h *History) Equal(other *History) bool {
	return slices.Equal(h.lastShift, other.lastShift) &&
		slices.Equal(h.lastHoliday, other.lastHoliday) &&
		slices.Equal(h.lastByPeriod, other.lastByPeriod)
}
