package sstable

import (
	"fmt"

	"github.com/klauspost/compress/s2"

	"github.com/AmrMurad1/lsmkv/shared"
)

// Appender accumulates sorted records from a merge iterator and spills
// them to an Emitter whenever the projected size of the in-progress
// batch would exceed maxFileSize, mirroring the memtable's own
// projected-size accounting so every emitted table respects the same
// size budget as the tables that feed it (component I).
type Appender struct {
	emitter       Emitter
	overflow      Emitter // used once maxOutputs file emissions are exhausted
	maxFileSize   int
	dropTombstone bool
	maxOutputs    int // -1 means unbounded

	pending      []Entry
	pendingSize  int
	filesEmitted int
	outputs      []Table
}

// NewAppender creates an Appender. When dropTombstones is true, tombstone
// records are discarded rather than carried forward (used when the
// destination level is the terminal level of the LSM tree). maxOutputs
// bounds how many file batches this Appender will persist through
// emitter before falling back to overflow; pass -1 for no bound.
func NewAppender(emitter Emitter, maxFileSize int, dropTombstones bool, maxOutputs int) *Appender {
	return &Appender{emitter: emitter, maxFileSize: maxFileSize, dropTombstone: dropTombstones, maxOutputs: maxOutputs}
}

// SetOverflowEmitter installs the Emitter used once maxOutputs file
// emissions have already happened; subsequent spills route to it
// instead of the primary emitter.
func (a *Appender) SetOverflowEmitter(e Emitter) {
	a.overflow = e
}

// recordCost estimates a record's on-disk footprint using s2's worst-case
// bound (values are s2-compressed independently before being written to
// the value blob; incompressible data can expand slightly, so budgeting
// off the raw length alone could let a batch exceed maxFileSize once
// written).
func recordCost(r Entry) int {
	if r.Tombstone {
		return shared.KeyOffsetSize
	}
	return shared.KeyOffsetSize + s2.MaxEncodedLen(len(r.Value))
}

// Append adds one record to the current batch, spilling the existing
// batch first if adding this record would push it over maxFileSize. A
// tombstone is silently dropped when dropTombstones is set.
func (a *Appender) Append(key shared.Key, tombstone bool, value []byte) error {
	if tombstone && a.dropTombstone {
		return nil
	}
	rec := Entry{Key: key, Tombstone: tombstone, Value: value}
	cost := recordCost(rec)

	if len(a.pending) > 0 && a.pendingSize+cost > a.maxFileSize {
		if err := a.spill(); err != nil {
			return err
		}
	}
	a.pending = append(a.pending, rec)
	a.pendingSize += cost
	return nil
}

func (a *Appender) spill() error {
	if len(a.pending) == 0 {
		return nil
	}
	emitter := a.emitter
	exhausted := a.maxOutputs >= 0 && a.filesEmitted >= a.maxOutputs
	if exhausted && a.overflow != nil {
		emitter = a.overflow
	}

	table, err := emitter.Emit(a.pending)
	if err != nil {
		return fmt.Errorf("lsmkv: appender spill: %w", err)
	}
	if !exhausted {
		a.filesEmitted++
	}
	a.outputs = append(a.outputs, table)
	a.pending = nil
	a.pendingSize = 0
	return nil
}

// Finish flushes any partial batch and returns every table produced, in
// emission order.
func (a *Appender) Finish() ([]Table, error) {
	if err := a.spill(); err != nil {
		return nil, err
	}
	return a.outputs, nil
}
