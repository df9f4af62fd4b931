package sstable

import (
	"sort"

	"github.com/AmrMurad1/lsmkv/shared"
	"github.com/AmrMurad1/lsmkv/sstable/filter"
)

// bufferTableSeq distinguishes buffer-tables from one another under
// IsPrior; every buffer-table outranks every file-table regardless, so
// this only matters when two buffer-tables are compared directly.
var bufferTableSeq uint64

// BufferTable is the in-RAM analogue of an SST: a sorted index plus a
// contiguous value blob, used as a transient intermediate product of
// flush or compaction before it is either consumed by the next stage or
// promoted to a durable SST.
type BufferTable struct {
	entries []IndexEntry
	values  []byte
	bf      *filter.Filter
	seq     uint64
}

// NewBufferTable builds a buffer-table from a sorted batch of append
// records (records must already be in ascending key order, as produced
// by the Appender).
func NewBufferTable(records []Entry, bloomM, bloomK int) *BufferTable {
	entries, values := buildIndex(records)
	bf := filter.New(bloomM, bloomK)
	for _, e := range entries {
		bf.Add(filter.KeyBytes(uint64(e.Key)))
	}
	bufferTableSeq++
	return &BufferTable{entries: entries, values: values, bf: bf, seq: bufferTableSeq}
}

func (t *BufferTable) MinKey() shared.Key { return t.entries[0].Key }
func (t *BufferTable) MaxKey() shared.Key { return t.entries[len(t.entries)-1].Key }
func (t *BufferTable) Count() int         { return len(t.entries) }
func (t *BufferTable) Level() int         { return -1 }
func (t *BufferTable) Timestamp() uint64  { return t.seq }
func (t *BufferTable) Close() error       { return nil }

func (t *BufferTable) Overlaps(min, max shared.Key) bool {
	return t.MinKey() <= max && min <= t.MaxKey()
}

func (t *BufferTable) IsPrior(other Table) bool {
	if o, ok := other.(*BufferTable); ok {
		return t.seq > o.seq
	}
	return true // any buffer-table outranks any file-table
}

func (t *BufferTable) lowerBound(key shared.Key) int {
	return sort.Search(len(t.entries), func(i int) bool { return t.entries[i].Key >= key })
}

func (t *BufferTable) Find(key shared.Key) (shared.Slot, bool, error) {
	if key < t.MinKey() || key > t.MaxKey() {
		return shared.Slot{}, false, nil
	}
	if !t.bf.MayContain(filter.KeyBytes(uint64(key))) {
		return shared.Slot{}, false, nil
	}
	i := t.lowerBound(key)
	if i == len(t.entries) || t.entries[i].Key != key {
		return shared.Slot{}, false, nil
	}
	return t.slotAt(i), true, nil
}

func (t *BufferTable) valueRange(i int) (start, end int) {
	start = int(t.entries[i].Offset)
	if i+1 < len(t.entries) {
		end = int(t.entries[i+1].Offset)
	} else {
		end = len(t.values)
	}
	return
}

func (t *BufferTable) slotAt(i int) shared.Slot {
	if t.entries[i].Tombstone {
		return shared.TombstoneSlot()
	}
	start, end := t.valueRange(i)
	v := make([]byte, end-start)
	copy(v, t.values[start:end])
	return shared.PresentSlot(v, len(v))
}

func (t *BufferTable) NewIterator() Iterator {
	return &bufferTableIterator{table: t}
}

type bufferTableIterator struct {
	table *BufferTable
	idx   int
}

func (it *bufferTableIterator) Valid() bool       { return it.idx < len(it.table.entries) }
func (it *bufferTableIterator) Key() shared.Key   { return it.table.entries[it.idx].Key }
func (it *bufferTableIterator) IsTombstone() bool { return it.table.entries[it.idx].Tombstone }

func (it *bufferTableIterator) ValueSize() int {
	start, end := it.table.valueRange(it.idx)
	return end - start
}

func (it *bufferTableIterator) ReadValue() ([]byte, error) {
	start, end := it.table.valueRange(it.idx)
	v := make([]byte, end-start)
	copy(v, it.table.values[start:end])
	return v, nil
}

func (it *bufferTableIterator) CopyValueBytes(dst []byte) (int, error) {
	start, end := it.table.valueRange(it.idx)
	return copy(dst, it.table.values[start:end]), nil
}

func (it *bufferTableIterator) Proceed() error {
	it.idx++
	return nil
}
