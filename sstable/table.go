package sstable

import "github.com/AmrMurad1/lsmkv/shared"

// Table is the uniform lookup/iteration contract shared by an in-RAM
// buffer-table and a persisted SST file (spec component F). Compaction
// and scan drive both kinds through this interface without knowing which
// one they hold.
type Table interface {
	MinKey() shared.Key
	MaxKey() shared.Key
	Count() int

	// Find performs a point lookup: bloom gate, key-range gate, then
	// binary search. ok is false when the key is definitely absent from
	// this table.
	Find(key shared.Key) (slot shared.Slot, ok bool, err error)

	// Overlaps reports whether this table's [min, max] range intersects
	// the given range.
	Overlaps(min, max shared.Key) bool

	// NewIterator returns a forward cursor positioned at the first record.
	NewIterator() Iterator

	// IsPrior reports whether this table outranks other in the freshness
	// order: a buffer-table is always newer than any file-table; among
	// file-tables, lower Level wins, ties broken by higher Timestamp.
	IsPrior(other Table) bool

	// Level is -1 for a buffer-table (always prior to every file-table).
	Level() int
	Timestamp() uint64

	Close() error
}

// Iterator is a forward, monotonic cursor over one table's sorted
// records. ReadValue and CopyValueBytes always re-resolve their handle
// by path, so an LRU eviction mid-iteration is tolerated transparently.
type Iterator interface {
	Valid() bool
	Key() shared.Key
	IsTombstone() bool
	ValueSize() int
	ReadValue() ([]byte, error)
	CopyValueBytes(dst []byte) (int, error)
	Proceed() error
}

// isPriorFileTable is the freshness comparison SST.IsPrior uses between
// two file-tables: lower level wins; same level, higher timestamp wins.
func isPriorFileTable(level int, ts uint64, otherLevel int, otherTS uint64) bool {
	if level != otherLevel {
		return level < otherLevel
	}
	return ts > otherTS
}
