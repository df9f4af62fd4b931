package sstable

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"github.com/klauspost/compress/s2"

	"github.com/AmrMurad1/lsmkv/shared"
	"github.com/AmrMurad1/lsmkv/sstable/filter"
)

// SST is a persisted, immutable sorted string table (spec component D).
// Only the header and index are eagerly materialized at Open time; value
// bytes are read on demand through the manager's LRU-cached handles.
type SST struct {
	manager *Manager
	path    string
	level   int
	ts      uint64

	minKey, maxKey shared.Key
	bf             *filter.Filter
	index          []IndexEntry

	valuesStart int64
	fileEnd     int64
}

// OpenSST loads an SST's header, bloom filter, and index eagerly. The
// bloom size in bytes (bloomBytes, i.e. ceil(M/8)) and k (bloomHashes)
// are fixed engine-wide configuration,
// not self-described in the file, so the caller must supply them.
func OpenSST(manager *Manager, path string, level int, bloomBytes, bloomHashes int) (*SST, error) {
	var head [TimestampSize + HeaderSize]byte
	if _, err := manager.ReadAt(path, 0, head[:]); err != nil {
		return nil, fmt.Errorf("lsmkv: read sstable header %s: %w", path, err)
	}
	ts := binary.LittleEndian.Uint64(head[0:8])
	count := binary.LittleEndian.Uint32(head[8:12])
	minKey := shared.Key(binary.LittleEndian.Uint64(head[12:20]))
	maxKey := shared.Key(binary.LittleEndian.Uint64(head[20:28]))

	if count == 0 || minKey > maxKey {
		return nil, fmt.Errorf("%w: %s: empty or inverted key range", shared.ErrCorruptSST, path)
	}

	bloomOffset := int64(TimestampSize + HeaderSize)
	bloomBuf := make([]byte, bloomBytes)
	if bloomBytes > 0 {
		if _, err := manager.ReadAt(path, bloomOffset, bloomBuf); err != nil {
			return nil, fmt.Errorf("%w: %s: bloom section: %v", shared.ErrCorruptSST, path, err)
		}
	}
	bf := filter.Decode(bloomBuf, bloomHashes)

	recordsOffset := bloomOffset + int64(bloomBytes)
	recordsSize := int(count) * shared.KeyOffsetSize
	recordBuf := make([]byte, recordsSize)
	if _, err := manager.ReadAt(path, recordsOffset, recordBuf); err != nil {
		return nil, fmt.Errorf("%w: %s: index section: %v", shared.ErrCorruptSST, path, err)
	}

	index := make([]IndexEntry, count)
	prevOffset := uint32(0)
	for i := 0; i < int(count); i++ {
		base := i * shared.KeyOffsetSize
		k := shared.Key(binary.LittleEndian.Uint64(recordBuf[base : base+8]))
		packed := binary.LittleEndian.Uint32(recordBuf[base+8 : base+12])
		offset, tombstone := shared.UnpackOffset(packed)
		if offset < prevOffset {
			return nil, fmt.Errorf("%w: %s: non-monotonic value offsets", shared.ErrCorruptSST, path)
		}
		prevOffset = offset
		index[i] = IndexEntry{Key: k, Tombstone: tombstone, Offset: offset}
	}

	valuesStart := recordsOffset + int64(recordsSize)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("lsmkv: stat sstable %s: %w", path, err)
	}
	fileEnd := info.Size()
	if fileEnd < valuesStart {
		return nil, fmt.Errorf("%w: %s: truncated value section", shared.ErrCorruptSST, path)
	}

	return &SST{
		manager: manager, path: path, level: level, ts: ts,
		minKey: minKey, maxKey: maxKey, bf: bf, index: index,
		valuesStart: valuesStart, fileEnd: fileEnd,
	}, nil
}

func (s *SST) Path() string       { return s.path }
func (s *SST) MinKey() shared.Key { return s.minKey }
func (s *SST) MaxKey() shared.Key { return s.maxKey }
func (s *SST) Count() int         { return len(s.index) }
func (s *SST) Level() int         { return s.level }
func (s *SST) Timestamp() uint64  { return s.ts }
func (s *SST) Close() error       { return nil } // handles are pool-owned; nothing file-specific to release here

func (s *SST) Overlaps(min, max shared.Key) bool {
	return s.minKey <= max && min <= s.maxKey
}

func (s *SST) IsPrior(other Table) bool {
	if _, ok := other.(*BufferTable); ok {
		return false // any buffer-table outranks any file-table
	}
	o := other.(*SST)
	return isPriorFileTable(s.level, s.ts, o.level, o.ts)
}

func (s *SST) lowerBound(key shared.Key) int {
	return sort.Search(len(s.index), func(i int) bool { return s.index[i].Key >= key })
}

func (s *SST) valueRange(i int) (start, end int64) {
	start = s.valuesStart + int64(s.index[i].Offset)
	if i+1 < len(s.index) {
		end = s.valuesStart + int64(s.index[i+1].Offset)
	} else {
		end = s.fileEnd
	}
	return
}

func (s *SST) Find(key shared.Key) (shared.Slot, bool, error) {
	if key < s.minKey || key > s.maxKey {
		return shared.Slot{}, false, nil
	}
	if !s.bf.MayContain(filter.KeyBytes(uint64(key))) {
		return shared.Slot{}, false, nil
	}
	i := s.lowerBound(key)
	if i == len(s.index) || s.index[i].Key != key {
		return shared.Slot{}, false, nil
	}
	return s.slotAt(i)
}

func (s *SST) slotAt(i int) (shared.Slot, bool, error) {
	if s.index[i].Tombstone {
		return shared.TombstoneSlot(), true, nil
	}
	start, end := s.valueRange(i)
	n := end - start
	if n == 0 {
		return shared.PresentSlot(nil, 0), true, nil
	}
	compressed := make([]byte, n)
	if _, err := s.manager.ReadAt(s.path, start, compressed); err != nil {
		return shared.Slot{}, false, err
	}
	value, err := s2.Decode(nil, compressed)
	if err != nil {
		return shared.Slot{}, false, fmt.Errorf("%w: %s: value decompress: %v", shared.ErrCorruptSST, s.path, err)
	}
	return shared.PresentSlot(value, len(value)), true, nil
}

func (s *SST) NewIterator() Iterator {
	return &sstIterator{table: s}
}

type sstIterator struct {
	table *SST
	idx   int
}

func (it *sstIterator) Valid() bool       { return it.idx < len(it.table.index) }
func (it *sstIterator) Key() shared.Key   { return it.table.index[it.idx].Key }
func (it *sstIterator) IsTombstone() bool { return it.table.index[it.idx].Tombstone }

// ValueSize reports the on-disk (s2-compressed) size of the current
// value, not its decompressed length; callers needing the logical size
// must decode via ReadValue.
func (it *sstIterator) ValueSize() int {
	start, end := it.table.valueRange(it.idx)
	return int(end - start)
}

func (it *sstIterator) ReadValue() ([]byte, error) {
	slot, _, err := it.table.slotAt(it.idx)
	if err != nil {
		return nil, err
	}
	return slot.Value, nil
}

func (it *sstIterator) CopyValueBytes(dst []byte) (int, error) {
	slot, _, err := it.table.slotAt(it.idx)
	if err != nil {
		return 0, err
	}
	return copy(dst, slot.Value), nil
}

func (it *sstIterator) Proceed() error {
	it.idx++
	return nil
}
