// Package lsmkv implements an embedded, single-process LSM-tree
// key-value store: fixed-width integer keys, a pluggable value codec,
// an in-memory skip-list buffer, and immutable SSTs organized into
// leveled/tiered files on disk.
package lsmkv

import (
	"bytes"
	"fmt"
	"log"
	"sync"

	"github.com/AmrMurad1/lsmkv/codec"
	"github.com/AmrMurad1/lsmkv/memtable"
	"github.com/AmrMurad1/lsmkv/shared"
	"github.com/AmrMurad1/lsmkv/sstable"
	"github.com/AmrMurad1/lsmkv/sstable/filter"
)

// Engine is the KV facade (component K) orchestrating the memtable (B,
// G), the table abstractions and compactor (F, J), and the file-system
// manager (E). A single mutex serializes the public API, matching the
// teacher's db.go Engine.lock: there is no internal concurrency to
// protect, only safety for callers invoking the engine from multiple
// goroutines.
type Engine[V any] struct {
	mu   sync.Mutex
	opts Options[V]

	manager   *sstable.Manager
	levels    *sstable.Levels
	compactor *sstable.Compactor
	mem       *memtable.Memtable

	bloomBytes int
	closed     bool
}

// Open constructs an engine rooted at dir: bootstraps the directory,
// enumerates existing SSTs, and restores the timestamp counter, per
// spec.md §6's "Construct with (directory, stream_cache_capacity)".
func Open[V any](dir string, c codec.Codec[V], opts ...Option[V]) (*Engine[V], error) {
	o := DefaultOptions[V](c)
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.Levels) == 0 || o.Levels[0].Policy != sstable.Tiering {
		return nil, fmt.Errorf("lsmkv: level 0 must use tiering")
	}

	log.Printf("lsmkv: opening store at %s\n", dir)

	manager, err := sstable.OpenManager(dir, len(o.Levels), o.LRUCapacity)
	if err != nil {
		return nil, fmt.Errorf("lsmkv: open manager: %w", err)
	}

	levels := sstable.NewLevels(manager, o.terminalLevels())
	bloomBytes := filter.ByteLen(o.BloomM)
	if err := levels.Load(bloomBytes, o.BloomK); err != nil {
		return nil, fmt.Errorf("lsmkv: load levels: %w", err)
	}

	compactor := sstable.NewCompactor(levels, manager, o.MaxFileSize, o.BloomM, o.BloomK)

	acct := memtable.Accounting{
		InitialFileSize: sstable.InitialFileSize(o.BloomM),
		MaxFileSize:     o.MaxFileSize,
	}
	mem := memtable.New(o.SkipListMaxLevel, o.SkipListP, o.Comparator, o.Rand, acct)

	log.Println("lsmkv: open complete")
	return &Engine[V]{
		opts: o, manager: manager, levels: levels, compactor: compactor,
		mem: mem, bloomBytes: bloomBytes,
	}, nil
}

func (e *Engine[V]) encode(value V) ([]byte, int, error) {
	size := e.opts.Codec.EncodedSize(value)
	var buf bytes.Buffer
	buf.Grow(size)
	if err := e.opts.Codec.Write(&buf, value); err != nil {
		return nil, 0, fmt.Errorf("lsmkv: encode value: %w", err)
	}
	return buf.Bytes(), size, nil
}

func (e *Engine[V]) decode(raw []byte) (V, error) {
	var zero V
	v, err := e.opts.Codec.Read(bytes.NewReader(raw), len(raw))
	if err != nil {
		return zero, fmt.Errorf("lsmkv: decode value: %w", err)
	}
	return v, nil
}

// Put stores value under key, per spec.md §4.K. If the memtable cannot
// absorb the write without its projected flushed size exceeding
// MaxFileSize, the engine flushes first (§4.G) and retries.
func (e *Engine[V]) Put(key shared.Key, value V) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return shared.ErrClosed
	}

	raw, size, err := e.encode(value)
	if err != nil {
		return err
	}
	if e.mem.TryPut(key, raw, size) {
		return nil
	}
	if err := e.flush(); err != nil {
		return err
	}
	if !e.mem.TryPut(key, raw, size) {
		return shared.ErrValueTooLarge
	}
	return nil
}

// Get looks up key: memtable first, then levels 0 upward, newest file
// first within a level, per spec.md §4.K.
func (e *Engine[V]) Get(key shared.Key) (V, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var zero V
	if e.closed {
		return zero, false, shared.ErrClosed
	}

	slot, found, err := e.find(key)
	if err != nil {
		return zero, false, err
	}
	if !found || slot.Tombstone {
		return zero, false, nil
	}
	v, err := e.decode(slot.Value)
	return v, err == nil, err
}

// find resolves key to its current slot across the memtable and every
// level (newest file first per level), or reports it as entirely absent.
func (e *Engine[V]) find(key shared.Key) (shared.Slot, bool, error) {
	if slot, ok := e.mem.Get(key); ok {
		return slot, true, nil
	}
	for level := 0; level < e.levels.NumLevels(); level++ {
		files := e.levels.FileSlice(level)
		for i := len(files) - 1; i >= 0; i-- {
			slot, ok, err := files[i].Find(key)
			if err != nil {
				return shared.Slot{}, false, fmt.Errorf("lsmkv: lookup level %d: %w", level, err)
			}
			if ok {
				return slot, true, nil
			}
		}
	}
	return shared.Slot{}, false, nil
}

// Delete converts a live key to a tombstone, returning true iff a live
// key existed. An already-absent or already-tombstoned key returns false
// without modifying state, per spec.md §4.K.
func (e *Engine[V]) Delete(key shared.Key) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, shared.ErrClosed
	}

	slot, found, err := e.find(key)
	if err != nil {
		return false, err
	}
	if !found || slot.Tombstone {
		return false, nil
	}

	if e.mem.TryDelete(key) {
		return true, nil
	}
	if err := e.flush(); err != nil {
		return false, err
	}
	if !e.mem.TryDelete(key) {
		return false, shared.ErrValueTooLarge
	}
	return true, nil
}

// Scan visits every live key in [min, max] in ascending order exactly
// once, newest version wins, tombstones skipped, per spec.md §4.K/§4.H.
func (e *Engine[V]) Scan(min, max shared.Key, visit func(shared.Key, V) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return shared.ErrClosed
	}

	var sources []sstable.Table
	var memEntries []sstable.Entry
	e.mem.Scan(min, max, func(k shared.Key, s shared.Slot) {
		memEntries = append(memEntries, sstable.Entry{Key: k, Tombstone: s.Tombstone, Value: s.Value})
	})
	if len(memEntries) > 0 {
		sources = append(sources, sstable.NewBufferTable(memEntries, e.opts.BloomM, e.opts.BloomK))
	}
	for level := 0; level < e.levels.NumLevels(); level++ {
		for _, t := range e.levels.Overlapping(level, min, max) {
			sources = append(sources, t)
		}
	}
	if len(sources) == 0 {
		return nil
	}

	mi, err := sstable.NewMergeIterator(sources, false)
	if err != nil {
		return fmt.Errorf("lsmkv: scan: %w", err)
	}
	for mi.Valid() {
		key := mi.Key()
		if key < min {
			if err := mi.Proceed(); err != nil {
				return fmt.Errorf("lsmkv: scan: %w", err)
			}
			continue
		}
		if key > max {
			break
		}
		if !mi.IsTombstone() {
			raw, err := mi.ReadValue()
			if err != nil {
				return fmt.Errorf("lsmkv: scan read value: %w", err)
			}
			v, err := e.decode(raw)
			if err != nil {
				return err
			}
			if err := visit(key, v); err != nil {
				return err
			}
		}
		if err := mi.Proceed(); err != nil {
			return fmt.Errorf("lsmkv: scan: %w", err)
		}
	}
	return mi.Err()
}

// flush persists the current memtable, installs a fresh one, and triggers
// any resulting cascade of compaction, mirroring the teacher's
// flushToDisk-then-AddSSTable shape (db.go). Per spec.md §4.G: if level 0
// has room under its configured MaxFiles, the buffer is written directly
// as a new level-0 SST; otherwise it becomes an in-memory buffer-table
// that is compacted into level 1 together with every resident level-0
// file, since level 0 has no room left to receive it.
func (e *Engine[V]) flush() error {
	if e.mem.Empty() {
		return nil
	}

	var entries []sstable.Entry
	e.mem.ForEach(func(k shared.Key, s shared.Slot) {
		entries = append(entries, sstable.Entry{Key: k, Tombstone: s.Tombstone, Value: s.Value})
	})

	if e.levels.Count(0) < e.levels.Config(0).MaxFiles {
		log.Println("lsmkv: flushing memtable to disk")
		emitter := sstable.FileEmitter(e.manager, 0, e.opts.BloomM, e.opts.BloomK)
		table, err := emitter.Emit(entries)
		if err != nil {
			return fmt.Errorf("lsmkv: flush: %w", err)
		}
		sst, ok := table.(*sstable.SST)
		if !ok {
			return fmt.Errorf("lsmkv: flush: emitter produced non-file table")
		}
		e.levels.AppendLevel0(sst)

		if err := e.compactor.MaybeCompact(0); err != nil {
			return fmt.Errorf("lsmkv: compaction: %w", err)
		}
	} else {
		log.Println("lsmkv: level 0 full, flushing memtable straight into compaction")
		buf, err := sstable.BufferEmitter(e.opts.BloomM, e.opts.BloomK).Emit(entries)
		if err != nil {
			return fmt.Errorf("lsmkv: flush: %w", err)
		}
		resident := e.levels.FileSlice(0)
		sources := make([]sstable.Table, 0, len(resident)+1)
		sources = append(sources, buf)
		for _, f := range resident {
			sources = append(sources, f)
		}
		if err := e.compactor.Compact(0, sources, resident); err != nil {
			return fmt.Errorf("lsmkv: flush via compaction: %w", err)
		}
	}

	acct := memtable.Accounting{
		InitialFileSize: sstable.InitialFileSize(e.opts.BloomM),
		MaxFileSize:     e.opts.MaxFileSize,
	}
	e.mem = memtable.New(e.opts.SkipListMaxLevel, e.opts.SkipListP, e.opts.Comparator, e.opts.Rand, acct)
	return nil
}

// Reset clears the memtable and every level, purges the data directory,
// and recreates the skeleton, per spec.md §4.K.
func (e *Engine[V]) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return shared.ErrClosed
	}

	log.Println("lsmkv: resetting store")
	if err := e.manager.Reset(); err != nil {
		return fmt.Errorf("lsmkv: reset: %w", err)
	}
	e.levels.Reset()

	acct := memtable.Accounting{
		InitialFileSize: sstable.InitialFileSize(e.opts.BloomM),
		MaxFileSize:     e.opts.MaxFileSize,
	}
	e.mem = memtable.New(e.opts.SkipListMaxLevel, e.opts.SkipListP, e.opts.Comparator, e.opts.Rand, acct)
	return nil
}

// Close flushes any outstanding memtable contents to disk, matching
// spec.md §6's "Destructor persists any outstanding memtable".
func (e *Engine[V]) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	var err error
	if !e.mem.Empty() {
		err = e.flush()
	}
	e.closed = true
	return err
}
