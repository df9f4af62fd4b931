package sstable

import (
	"container/heap"

	"github.com/AmrMurad1/lsmkv/shared"
)

// heapEntry pairs a source table's live iterator with the table itself,
// so ties on Key can be broken by the table's freshness (IsPrior).
type heapEntry struct {
	it    Iterator
	table Table
}

// mergeHeap is a container/heap min-heap ordered by key, then by
// freshness (the fresher table sorts first among equal keys) so that
// MergeIterator naturally surfaces the winning version of a duplicated
// key first and can discard the rest.
type mergeHeap []*heapEntry

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	ki, kj := h[i].it.Key(), h[j].it.Key()
	if ki != kj {
		return ki < kj
	}
	return h[i].table.IsPrior(h[j].table)
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(*heapEntry)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// MergeIterator drives an N-way merge across a set of source tables in
// key order, exposing only the freshest live record for each distinct
// key (component H). Superseded duplicates and, optionally, tombstones
// at the terminal level are skipped transparently by Proceed.
type MergeIterator struct {
	h          mergeHeap
	dropTombs  bool
	currentKey shared.Key
	haveKey    bool
	top        *heapEntry
	err        error
}

// NewMergeIterator builds a merge iterator over tables, freshest-first on
// ties. When dropTombstones is true, keys whose winning record is a
// tombstone are skipped entirely rather than surfaced.
func NewMergeIterator(tables []Table, dropTombstones bool) (*MergeIterator, error) {
	m := &MergeIterator{dropTombs: dropTombstones}
	for _, t := range tables {
		it := t.NewIterator()
		if it.Valid() {
			heap.Push(&m.h, &heapEntry{it: it, table: t})
		}
	}
	m.advance()
	return m, m.err
}

// advance pops the heap until it is positioned on the next distinct,
// (optionally) non-tombstone key, or exhausted.
func (m *MergeIterator) advance() {
	for {
		if m.h.Len() == 0 {
			m.top = nil
			return
		}
		entry := m.h[0]
		key := entry.it.Key()

		if m.haveKey && key == m.currentKey {
			// Superseded duplicate of the key we just surfaced: drop it.
			m.consumeTop()
			continue
		}

		m.currentKey = key
		m.haveKey = true
		m.top = entry

		if m.dropTombs && entry.it.IsTombstone() {
			m.consumeTop()
			continue
		}
		return
	}
}

// consumeTop advances the winning entry's iterator, requeues it if still
// valid, and pops it from the heap otherwise.
func (m *MergeIterator) consumeTop() {
	entry := heap.Pop(&m.h).(*heapEntry)
	if err := entry.it.Proceed(); err != nil {
		m.err = err
		return
	}
	if entry.it.Valid() {
		heap.Push(&m.h, entry)
	}
}

func (m *MergeIterator) Valid() bool { return m.err == nil && m.top != nil }
func (m *MergeIterator) Err() error  { return m.err }

func (m *MergeIterator) Key() shared.Key { return m.top.it.Key() }

func (m *MergeIterator) IsTombstone() bool { return m.top.it.IsTombstone() }

func (m *MergeIterator) ReadValue() ([]byte, error) { return m.top.it.ReadValue() }

// Proceed discards the current winning key (and any now-stale
// duplicates still sitting behind it in the heap) and advances to the
// next distinct key.
func (m *MergeIterator) Proceed() error {
	if !m.Valid() {
		return nil
	}
	m.consumeTop()
	if m.err != nil {
		return m.err
	}
	m.advance()
	return m.err
}
