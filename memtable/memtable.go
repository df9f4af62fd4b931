// Package memtable implements the in-memory write buffer: an ordered
// skip list (component B) plus the exact projected-SST-size accounting
// that decides when a flush is required (component G).
package memtable

import (
	"math/rand"

	"github.com/klauspost/compress/s2"

	"github.com/AmrMurad1/lsmkv/shared"
)

// Accounting holds the fixed per-file cost figures the projected size is
// measured against: the header/bloom overhead every SST pays regardless
// of entry count, and the cap no flushed SST may exceed.
type Accounting struct {
	InitialFileSize int // sizeof(timestamp) + header size + bloom bytes
	MaxFileSize     int
}

// Memtable is the buffer described in spec §3/§4.G: a skip list plus a
// running projected_sst_size counter.
type Memtable struct {
	skiplist      *SkipList
	accounting    Accounting
	projectedSize int
}

// New builds an empty memtable.
func New(maxLevel int, p float64, cmp shared.Comparator, rnd *rand.Rand, acct Accounting) *Memtable {
	return &Memtable{
		skiplist:      NewSkipList(maxLevel, p, cmp, rnd),
		accounting:    acct,
		projectedSize: acct.InitialFileSize,
	}
}

// entryCost estimates slot's on-disk footprint once flushed, using s2's
// worst-case compressed-size bound rather than the raw encoded size: the
// sstable writer s2-compresses every value independently, and
// incompressible data can expand slightly under compression, so budgeting
// off the raw length alone could let a flushed SST exceed MaxFileSize.
func entryCost(slot shared.Slot) int {
	if slot.Tombstone {
		return shared.KeyOffsetSize
	}
	return shared.KeyOffsetSize + s2.MaxEncodedLen(slot.EncodedSize)
}

// TryPut inserts or updates key with a live value. ok is false when
// committing the write would push the projected flushed size past
// MaxFileSize; the caller must flush this memtable and retry against a
// fresh one.
func (m *Memtable) TryPut(key shared.Key, value []byte, encodedSize int) (ok bool) {
	return m.try(key, shared.PresentSlot(value, encodedSize))
}

// TryDelete writes a tombstone for key under the same accounting gate as
// TryPut.
func (m *Memtable) TryDelete(key shared.Key) (ok bool) {
	return m.try(key, shared.TombstoneSlot())
}

func (m *Memtable) try(key shared.Key, newSlot shared.Slot) bool {
	accepted := false
	m.skiplist.Replace(key, func(slot *shared.Slot, existsBefore bool) bool {
		oldCost := 0
		if existsBefore {
			oldCost = entryCost(*slot)
		}
		delta := entryCost(newSlot) - oldCost
		if m.projectedSize+delta > m.accounting.MaxFileSize {
			return false
		}
		m.projectedSize += delta
		*slot = newSlot
		accepted = true
		return true
	})
	return accepted
}

// Get looks up key in the buffer.
func (m *Memtable) Get(key shared.Key) (shared.Slot, bool) { return m.skiplist.Search(key) }

// ForEach visits every buffered entry in ascending key order.
func (m *Memtable) ForEach(visit func(shared.Key, shared.Slot)) { m.skiplist.ForEach(visit) }

// Scan visits buffered entries with key in [min, max] ascending.
func (m *Memtable) Scan(min, max shared.Key, visit func(shared.Key, shared.Slot)) {
	m.skiplist.Scan(min, max, visit)
}

// Empty reports whether the buffer holds no entries.
func (m *Memtable) Empty() bool { return m.skiplist.Empty() }

// Size returns the number of buffered entries.
func (m *Memtable) Size() int { return m.skiplist.Size() }

// ProjectedSize is the byte size the buffer would occupy if flushed to an
// SST right now.
func (m *Memtable) ProjectedSize() int { return m.projectedSize }
