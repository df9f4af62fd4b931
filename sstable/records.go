package sstable

import "github.com/AmrMurad1/lsmkv/shared"

// Entry is one record buffered by the Appender before emission, or a
// materialized snapshot row handed to NewBufferTable directly: a key,
// its tombstone flag, and (for live values) the value bytes.
type Entry struct {
	Key       shared.Key
	Tombstone bool
	Value     []byte
}

// IndexEntry is the in-memory form of one on-disk KeyOffset record, with
// Offset relative to the start of the value section.
type IndexEntry struct {
	Key       shared.Key
	Tombstone bool
	Offset    uint32
}

// buildIndex lays a sorted batch of records out as an index plus a
// contiguous value blob: a tombstone's offset equals the offset of the
// following record (or end-of-blob), consuming zero value bytes.
func buildIndex(records []Entry) ([]IndexEntry, []byte) {
	entries := make([]IndexEntry, len(records))
	var values []byte
	off := uint32(0)
	for i, r := range records {
		entries[i] = IndexEntry{Key: r.Key, Tombstone: r.Tombstone, Offset: off}
		if !r.Tombstone {
			values = append(values, r.Value...)
			off += uint32(len(r.Value))
		}
	}
	return entries, values
}
