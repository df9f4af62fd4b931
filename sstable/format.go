// Package sstable implements the on-disk SST format (component D), the
// file-system manager (component E), the buffer-table and file-table
// abstractions (component F), the streaming appender (component I), the
// heap-based merge iterator (component H), and the compaction engine
// (component J).
package sstable

import "github.com/AmrMurad1/lsmkv/sstable/filter"

// Binary layout (spec §6), all integers little-endian:
//
//	timestamp  8 bytes   u64
//	count      4 bytes   u32
//	min_key    8 bytes   Key
//	max_key    8 bytes   Key
//	bloom      ceil(M/8) bytes, raw bits
//	records    count * 12 bytes, each (key u64, packed_offset u32)
//	values     remainder, concatenated
const (
	TimestampSize = 8
	CountSize     = 4
	KeySize       = 8
	HeaderSize    = CountSize + KeySize + KeySize
)

func initialFileSize(bloomM int) int {
	return TimestampSize + HeaderSize + filter.ByteLen(bloomM)
}

// InitialFileSize is the fixed per-file overhead (timestamp + header +
// bloom bytes) every SST pays regardless of entry count, for memtable
// accounting (component G).
func InitialFileSize(bloomM int) int {
	return initialFileSize(bloomM)
}

// Recommend re-exports filter.Recommend so callers outside this package
// (options.go) can size a bloom filter without importing sstable/filter
// directly.
func Recommend(n int, p float64) (m, k int) {
	return filter.Recommend(n, p)
}
