package feasibility

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

const wordBits = 64

// headerSize is the serialized header: positions, periods, persons as uint32
const headerSize = 12

// Tensor is the [position][period][person] feasibility relation for one date.
//
// A bit is set when posting that person to that (position, period) does not yet break any
// hard exclusion applied so far. The relation is stored twice: a logical bool view used for
// element reads and a bit-packed view (one uint64 per 64 persons) used for counting and
// snapshots. Every mutation updates both.
//
// Indices out of range are programming errors and panic.
type Tensor struct {
	positions int
	periods   int
	persons   int
	words     int // uint64 words per (position, period) row

	logical []bool
	packed  []uint64
}

// NewTensor creates an all-infeasible tensor
func NewTensor(positions, persons int) *Tensor {
	if positions < 0 || persons < 0 {
		panic(fmt.Sprintf("invalid tensor shape: %d positions, %d persons", positions, persons))
	}
	words := (persons + wordBits - 1) / wordBits
	return &Tensor{
		positions: positions,
		periods:   model.NumPeriods,
		persons:   persons,
		words:     words,
		logical:   make([]bool, positions*model.NumPeriods*persons),
		packed:    make([]uint64, positions*model.NumPeriods*words),
	}
}

// Positions returns the position dimension
func (t *Tensor) Positions() int { return t.positions }

// Persons returns the person dimension
func (t *Tensor) Persons() int { return t.persons }

func (t *Tensor) check(pos int, period model.Period, person int) {
	if pos < 0 || pos >= t.positions || int(period) < 0 || int(period) >= t.periods || person < 0 || person >= t.persons {
		panic(fmt.Sprintf("tensor index out of range: position %d period %d person %d", pos, period, person))
	}
}

func (t *Tensor) checkSlot(pos int, period model.Period) {
	if pos < 0 || pos >= t.positions || int(period) < 0 || int(period) >= t.periods {
		panic(fmt.Sprintf("tensor slot out of range: position %d period %d", pos, period))
	}
}

func (t *Tensor) rowIndex(pos int, period model.Period) int {
	return pos*t.periods + int(period)
}

func (t *Tensor) set(pos int, period model.Period, person int, value bool) {
	row := t.rowIndex(pos, period)
	t.logical[row*t.persons+person] = value
	word := row*t.words + person/wordBits
	mask := uint64(1) << uint(person%wordBits)
	if value {
		t.packed[word] |= mask
	} else {
		t.packed[word] &^= mask
	}
}

// IsFeasible reports whether the person may still be posted to (pos, period)
func (t *Tensor) IsFeasible(pos int, period model.Period, person int) bool {
	t.check(pos, period, person)
	return t.logical[t.rowIndex(pos, period)*t.persons+person]
}

// FeasiblePersons returns the feasible person indices for a slot in ascending order
func (t *Tensor) FeasiblePersons(pos int, period model.Period) []int {
	t.checkSlot(pos, period)
	row := t.rowIndex(pos, period) * t.words
	persons := make([]int, 0, t.countRow(row))
	for w := 0; w < t.words; w++ {
		word := t.packed[row+w]
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			persons = append(persons, w*wordBits+bit)
			word &= word - 1
		}
	}
	return persons
}

// CountFeasible returns the number of feasible persons for a slot
func (t *Tensor) CountFeasible(pos int, period model.Period) int {
	t.checkSlot(pos, period)
	return t.countRow(t.rowIndex(pos, period) * t.words)
}

func (t *Tensor) countRow(start int) int {
	count := 0
	for _, word := range t.packed[start : start+t.words] {
		count += bits.OnesCount64(word)
	}
	return count
}

// ExcludeOthersForSlot clears every person except keep from (pos, period).
// Enforces one person per slot.
func (t *Tensor) ExcludeOthersForSlot(pos int, period model.Period, keep int) {
	t.check(pos, period, keep)
	for person := 0; person < t.persons; person++ {
		if person != keep {
			t.set(pos, period, person, false)
		}
	}
}

// ExcludeOtherPositionsForPersonPeriod clears the person from every position but keep at the period.
// Enforces one post per person per period.
func (t *Tensor) ExcludeOtherPositionsForPersonPeriod(person int, period model.Period, keep int) {
	t.check(keep, period, person)
	for pos := 0; pos < t.positions; pos++ {
		if pos != keep {
			t.set(pos, period, person, false)
		}
	}
}

// ExcludePeriodForPerson clears the person from a whole period across all positions.
// Used for the adjacency and night uniqueness rules.
func (t *Tensor) ExcludePeriodForPerson(person int, period model.Period) {
	if t.positions == 0 {
		return
	}
	t.check(0, period, person)
	for pos := 0; pos < t.positions; pos++ {
		t.set(pos, period, person, false)
	}
}

// ExcludePersonAtPosition clears the person from a position in every period
func (t *Tensor) ExcludePersonAtPosition(person int, pos int) {
	t.check(pos, 0, person)
	for period := model.Period(0); int(period) < t.periods; period++ {
		t.set(pos, period, person, false)
	}
}

// ExcludeCell clears a single (pos, period, person) element
func (t *Tensor) ExcludeCell(pos int, period model.Period, person int) {
	t.check(pos, period, person)
	t.set(pos, period, person, false)
}

// InitializeFromEligibility resets the tensor to all infeasible and then opens exactly the
// (position, person) pairs listed in eligible, across every period.
// eligible[pos] holds person indices.
func (t *Tensor) InitializeFromEligibility(eligible [][]int) {
	if len(eligible) != t.positions {
		panic(fmt.Sprintf("eligibility covers %d positions, tensor has %d", len(eligible), t.positions))
	}
	clear(t.logical)
	clear(t.packed)
	for pos, persons := range eligible {
		for _, person := range persons {
			for period := model.Period(0); int(period) < t.periods; period++ {
				t.check(pos, period, person)
				t.set(pos, period, person, true)
			}
		}
	}
}

// Serialize encodes the bit-packed state with a shape header
func (t *Tensor) Serialize() []byte {
	buf := make([]byte, headerSize+len(t.packed)*8)
	binary.LittleEndian.PutUint32(buf[0:], uint32(t.positions))
	binary.LittleEndian.PutUint32(buf[4:], uint32(t.periods))
	binary.LittleEndian.PutUint32(buf[8:], uint32(t.persons))
	for i, word := range t.packed {
		binary.LittleEndian.PutUint64(buf[headerSize+i*8:], word)
	}
	return buf
}

// Restore overwrites the tensor with serialized state.
// Data from a tensor of a different shape is a programming error and panics.
func (t *Tensor) Restore(data []byte) {
	if len(data) != headerSize+len(t.packed)*8 {
		panic(fmt.Sprintf("malformed tensor snapshot: %d bytes, want %d", len(data), headerSize+len(t.packed)*8))
	}
	positions := int(binary.LittleEndian.Uint32(data[0:]))
	periods := int(binary.LittleEndian.Uint32(data[4:]))
	persons := int(binary.LittleEndian.Uint32(data[8:]))
	if positions != t.positions || periods != t.periods || persons != t.persons {
		panic(fmt.Sprintf("tensor snapshot shape %dx%dx%d does not match %dx%dx%d",
			positions, periods, persons, t.positions, t.periods, t.persons))
	}
	for i := range t.packed {
		t.packed[i] = binary.LittleEndian.Uint64(data[headerSize+i*8:])
	}
	t.rebuildLogical()
}

func (t *Tensor) rebuildLogical() {
	for row := 0; row < t.positions*t.periods; row++ {
		for person := 0; person < t.persons; person++ {
			word := t.packed[row*t.words+person/wordBits]
			t.logical[row*t.persons+person] = word&(uint64(1)<<uint(person%wordBits)) != 0
		}
	}
}

// Clone returns an independent copy
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{
		positions: t.positions,
		periods:   t.periods,
		persons:   t.persons,
		words:     t.words,
		logical:   make([]bool, len(t.logical)),
		packed:    make([]uint64, len(t.packed)),
	}
	copy(c.logical, t.logical)
	copy(c.packed, t.packed)
	return c
}

// Equal returns true if both tensors have the same shape and bits
func (t *Tensor) Equal(other *Tensor) bool {
	if t.positions != other.positions || t.persons != other.persons || len(t.packed) != len(other.packed) {
		return false
	}
	for i := range t.packed {
		if t.packed[i] != other.packed[i] {
			return false
		}
	}
	return true
}

// ValidateConsistency checks the packed view against the logical view bit for bit,
// including that padding bits past the last person are clear.
func (t *Tensor) ValidateConsistency() error {
	for row := 0; row < t.positions*t.periods; row++ {
		for w := 0; w < t.words; w++ {
			word := t.packed[row*t.words+w]
			for b := 0; b < wordBits; b++ {
				person := w*wordBits + b
				bit := word&(uint64(1)<<uint(b)) != 0
				if person >= t.persons {
					if bit {
						return fmt.Errorf("padding bit set at row %d person %d", row, person)
					}
					continue
				}
				if bit != t.logical[row*t.persons+person] {
					return fmt.Errorf("packed/logical mismatch at position %d period %d person %d",
						row/t.periods, row%t.periods, person)
				}
			}
		}
	}
	return nil
}
