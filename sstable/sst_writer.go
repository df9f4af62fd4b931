package sstable

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/s2"

	"github.com/AmrMurad1/lsmkv/shared"
	"github.com/AmrMurad1/lsmkv/sstable/filter"
)

// Emitter receives a sorted batch of records (an Appender's spill, or a
// flushed memtable) and turns it into one new Table (component I).
// Tombstones in the batch are kept.
type Emitter interface {
	Emit(records []Entry) (Table, error)
}

// buildCompressedIndex mirrors buildIndex but s2-compresses each live
// value independently before appending it to the value blob, so a
// reader can decompress exactly one record's bytes per lookup instead
// of an entire section. This is the only place on the write path that
// reaches for s2; every value read on the file path (SST.slotAt)
// mirrors it with s2.Decode.
func buildCompressedIndex(records []Entry) ([]IndexEntry, []byte) {
	entries := make([]IndexEntry, len(records))
	var values []byte
	off := uint32(0)
	for i, r := range records {
		entries[i] = IndexEntry{Key: r.Key, Tombstone: r.Tombstone, Offset: off}
		if !r.Tombstone {
			enc := s2.Encode(nil, r.Value)
			values = append(values, enc...)
			off += uint32(len(enc))
		}
	}
	return entries, values
}

// WriteSST serializes one append batch to w in the on-disk format from
// spec §6: timestamp, header (count/min/max), bloom bytes, KeyOffset
// records, then the compressed value blob. ts has already been written
// by the caller (Manager.CreateFile writes the timestamp header itself);
// WriteSST is responsible for everything after it.
func WriteSST(w io.Writer, records []Entry, bloomM, bloomK int) error {
	if len(records) == 0 {
		return fmt.Errorf("lsmkv: cannot write an empty sstable")
	}

	entries, values := buildCompressedIndex(records)

	bf := filter.New(bloomM, bloomK)
	for _, e := range entries {
		bf.Add(filter.KeyBytes(uint64(e.Key)))
	}

	var header [HeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(entries)))
	binary.LittleEndian.PutUint64(header[4:12], uint64(entries[0].Key))
	binary.LittleEndian.PutUint64(header[12:20], uint64(entries[len(entries)-1].Key))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	if _, err := w.Write(bf.Bytes()); err != nil {
		return err
	}

	var rec [shared.KeyOffsetSize]byte
	for _, e := range entries {
		binary.LittleEndian.PutUint64(rec[0:8], uint64(e.Key))
		binary.LittleEndian.PutUint32(rec[8:12], shared.PackOffset(e.Offset, e.Tombstone))
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
	}

	if _, err := w.Write(values); err != nil {
		return err
	}
	return nil
}

// fileEmitter writes each spilled batch as a new SST in level
// via the manager, then reopens it to materialize the in-memory index.
type fileEmitter struct {
	manager        *Manager
	level          int
	bloomM, bloomK int
	bloomBytes     int
}

// FileEmitter returns an Emitter that persists each batch to disk as a
// new SST in the given level.
func FileEmitter(manager *Manager, level, bloomM, bloomK int) Emitter {
	return &fileEmitter{manager: manager, level: level, bloomM: bloomM, bloomK: bloomK, bloomBytes: filter.ByteLen(bloomM)}
}

func (e *fileEmitter) Emit(records []Entry) (Table, error) {
	path, _, err := e.manager.CreateFile(e.level, func(ts uint64, w io.Writer) error {
		return WriteSST(w, records, e.bloomM, e.bloomK)
	})
	if err != nil {
		return nil, fmt.Errorf("lsmkv: emit sstable: %w", err)
	}
	sst, err := OpenSST(e.manager, path, e.level, e.bloomBytes, e.bloomK)
	if err != nil {
		return nil, fmt.Errorf("lsmkv: reopen emitted sstable: %w", err)
	}
	return sst, nil
}

// bufferEmitter keeps each spilled batch in RAM, uncompressed, as a
// BufferTable. Used once an Appender's file-count cap for the current
// compaction has been exhausted.
type bufferEmitter struct {
	bloomM, bloomK int
}

// BufferEmitter returns an Emitter that keeps spilled batches in memory.
func BufferEmitter(bloomM, bloomK int) Emitter {
	return &bufferEmitter{bloomM: bloomM, bloomK: bloomK}
}

func (e *bufferEmitter) Emit(records []Entry) (Table, error) {
	return NewBufferTable(records, e.bloomM, e.bloomK), nil
}
