package sstable

import (
	"fmt"

	"github.com/AmrMurad1/lsmkv/shared"
)

// Compactor implements component J: it decides when a level has
// overflowed its file budget, selects sources per the level's policy,
// merges them (optionally with overlapping next-level files) through a
// heap-based MergeIterator and Appender, and recurses on any overflow
// the Appender could not fit within the destination level's own budget.
type Compactor struct {
	levels         *Levels
	manager        *Manager
	maxFileSize    int
	bloomM, bloomK int
}

// NewCompactor builds a Compactor bound to levels and manager, using
// maxFileSize as every emitted file's size budget and (bloomM, bloomK)
// as the fixed bloom-filter parameters for every file it writes.
func NewCompactor(levels *Levels, manager *Manager, maxFileSize, bloomM, bloomK int) *Compactor {
	return &Compactor{levels: levels, manager: manager, maxFileSize: maxFileSize, bloomM: bloomM, bloomK: bloomK}
}

// MaybeCompact checks whether level has exceeded its configured MaxFiles
// and, if so, selects sources per the level's policy and compacts them
// one level deeper. The terminal level never triggers a compaction of
// its own (there is nothing beyond it to compact into); it is only ever
// a compaction destination.
func (c *Compactor) MaybeCompact(level int) error {
	terminal := c.levels.NumLevels() - 1
	if level >= terminal {
		return nil
	}
	cfg := c.levels.Config(level)
	if c.levels.Count(level) <= cfg.MaxFiles {
		return nil
	}

	resident := c.levels.FileSlice(level)
	var selected []*SST
	switch cfg.Policy {
	case Tiering:
		selected = resident
	case Leveling:
		start := cfg.MaxFiles
		if start > len(resident) {
			start = len(resident)
		}
		selected = resident[start:]
	}
	if len(selected) == 0 {
		return nil
	}

	sources := make([]Table, len(selected))
	for i, f := range selected {
		sources[i] = f
	}
	return c.Compact(level, sources, selected)
}

// Compact merges sources (logically drawn from sourceLevel) one level
// deeper. doomedSourceSSTs are the resident files sources correspond to
// on disk, to be removed once the merge succeeds; it is nil when sources
// are transient buffer-tables not yet resident anywhere (the recursive
// overflow case).
func (c *Compactor) Compact(sourceLevel int, sources []Table, doomedSourceSSTs []*SST) error {
	if len(sources) == 0 {
		return nil
	}
	destLevel := sourceLevel + 1
	terminal := c.levels.NumLevels() - 1
	if destLevel > terminal {
		destLevel = terminal
	}
	nextCfg := c.levels.Config(destLevel)

	minKey, maxKey := rangeOf(sources)

	var overlapSSTs []*SST
	if destLevel == terminal || nextCfg.Policy == Leveling {
		overlapSSTs = c.levels.Overlapping(destLevel, minKey, maxKey)
	}

	dropTombstones := destLevel == terminal

	maxOutputs := -1
	if destLevel != terminal && nextCfg.Policy == Leveling {
		already := c.levels.Count(destLevel) - len(overlapSSTs)
		remaining := nextCfg.MaxFiles - already
		if remaining < 0 {
			remaining = 0
		}
		maxOutputs = remaining
	}

	return c.merge(sourceLevel, destLevel, sources, doomedSourceSSTs, overlapSSTs, dropTombstones, maxOutputs)
}

// merge drives sources plus any overlapping destination-level files
// through a MergeIterator into a fresh Appender, then reconciles the
// level bookkeeping: doomed sources and superseded overlap files are
// removed, new files are added to destLevel, and any Appender overflow
// recurses one level deeper.
func (c *Compactor) merge(sourceLevel, destLevel int, sources []Table, doomedSourceSSTs, overlapSSTs []*SST, dropTombstones bool, maxOutputs int) error {
	all := make([]Table, 0, len(sources)+len(overlapSSTs))
	all = append(all, sources...)
	for _, f := range overlapSSTs {
		all = append(all, f)
	}

	mi, err := NewMergeIterator(all, dropTombstones)
	if err != nil {
		return fmt.Errorf("lsmkv: compaction merge: %w", err)
	}

	emitter := FileEmitter(c.manager, destLevel, c.bloomM, c.bloomK)
	appender := NewAppender(emitter, c.maxFileSize-initialFileSize(c.bloomM), dropTombstones, maxOutputs)
	if maxOutputs >= 0 {
		appender.SetOverflowEmitter(BufferEmitter(c.bloomM, c.bloomK))
	}

	for mi.Valid() {
		tomb := mi.IsTombstone()
		var value []byte
		if !tomb {
			value, err = mi.ReadValue()
			if err != nil {
				return fmt.Errorf("lsmkv: compaction read value: %w", err)
			}
		}
		if err := appender.Append(mi.Key(), tomb, value); err != nil {
			return err
		}
		if err := mi.Proceed(); err != nil {
			return fmt.Errorf("lsmkv: compaction advance: %w", err)
		}
	}
	if err := mi.Err(); err != nil {
		return fmt.Errorf("lsmkv: compaction merge: %w", err)
	}

	outputs, err := appender.Finish()
	if err != nil {
		return err
	}

	var newFiles []*SST
	var overflow []Table
	for _, t := range outputs {
		switch v := t.(type) {
		case *SST:
			newFiles = append(newFiles, v)
		case *BufferTable:
			overflow = append(overflow, v)
		}
	}

	c.levels.AddFiles(destLevel, newFiles)

	// The original sources and any superseded overlap files stay resident
	// (and on disk) as a fallback until the entire cascade below succeeds;
	// only once recursion completes do we delete them, per spec.md §4.J
	// step 6.
	if len(overflow) > 0 {
		if err := c.Compact(destLevel, overflow, nil); err != nil {
			return err
		}
	} else if err := c.MaybeCompact(destLevel); err != nil {
		return err
	}

	if len(doomedSourceSSTs) > 0 {
		if err := c.levels.RemoveFiles(sourceLevel, doomedSourceSSTs); err != nil {
			return err
		}
	}
	if len(overlapSSTs) > 0 {
		if err := c.levels.RemoveFiles(destLevel, overlapSSTs); err != nil {
			return err
		}
	}
	return nil
}

// rangeOf computes the union key range spanned by a set of tables.
func rangeOf(tables []Table) (min, max shared.Key) {
	min, max = tables[0].MinKey(), tables[0].MaxKey()
	for _, t := range tables[1:] {
		if t.MinKey() < min {
			min = t.MinKey()
		}
		if t.MaxKey() > max {
			max = t.MaxKey()
		}
	}
	return
}
