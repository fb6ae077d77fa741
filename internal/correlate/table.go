package correlate

import "fmt"

// Table is the fixed-capacity correlation table: one 64-bit timestamp slot
// per masked identifier. A nonzero slot holds an unmatched pre-side
// timestamp awaiting its post-side counterpart; zero means empty or already
// resolved.
//
// Two distinct identifiers may alias to the same slot; that is an accepted,
// quantified error source tracked by the engine's overwrite counter, not a
// correctness failure.
//
// The table has exactly one writer and reader (the engine) for a run's
// lifetime.
type Table struct {
	slots []uint64
	mask  uint64
}

// NewTable allocates a zeroed table addressed by the low `bits` bits of the
// identifier. Valid widths are 1 through 32; the resulting capacity is
// 2^bits slots.
func NewTable(bits uint) (*Table, error) {
	if bits < 1 || bits > 32 {
		return nil, fmt.Errorf("table mask width must be between 1 and 32 bits, got %d", bits)
	}
	size := uint64(1) << bits
	return &Table{
		slots: make([]uint64, size),
		mask:  size - 1,
	}, nil
}

// Capacity returns the number of addressable slots.
func (t *Table) Capacity() uint64 {
	return t.mask + 1
}

// Mask returns the identifier bitmask.
func (t *Table) Mask() uint64 {
	return t.mask
}

// Insert stores a pre-side timestamp for the masked identifier. It reports
// whether a still-pending entry was overwritten.
func (t *Table) Insert(id, ts uint64) (overwrote bool) {
	slot := id & t.mask
	overwrote = t.slots[slot] != 0
	t.slots[slot] = ts
	return overwrote
}

// Lookup returns the pending pre-side timestamp for the masked identifier,
// or zero if none is pending.
func (t *Table) Lookup(id uint64) uint64 {
	return t.slots[id&t.mask]
}

// Clear marks the masked identifier's slot as resolved, so the same
// identifier cannot match twice.
func (t *Table) Clear(id uint64) {
	t.slots[id&t.mask] = 0
}
