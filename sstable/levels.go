package sstable

import "github.com/AmrMurad1/lsmkv/shared"

// LevelPolicy selects how a level chooses compaction sources once it
// overflows its file-count budget.
type LevelPolicy int

const (
	// Tiering compacts every file currently resident in the level.
	Tiering LevelPolicy = iota
	// Leveling compacts only the suffix of files needed to bring the
	// level's file count back down to MaxFiles.
	Leveling
)

// LevelConfig is the fixed, engine-wide policy for one level.
type LevelConfig struct {
	MaxFiles int
	Policy   LevelPolicy
}

// Levels owns the per-level list of resident file-tables (component J's
// bookkeeping). Level 0 is populated by flush; every other level only
// grows via compaction output.
type Levels struct {
	manager *Manager
	configs []LevelConfig
	files   [][]*SST // files[level], sorted ascending by timestamp
}

// NewLevels builds an empty Levels for the given per-level configs.
// configs[0] is level 0.
func NewLevels(manager *Manager, configs []LevelConfig) *Levels {
	return &Levels{manager: manager, configs: configs, files: make([][]*SST, len(configs))}
}

// Load populates each level from the manager's directory enumeration,
// opening every discovered SST with the given bloom parameters.
func (l *Levels) Load(bloomBytes, bloomHashes int) error {
	paths, err := l.manager.Enumerate()
	if err != nil {
		return err
	}
	for level := 0; level < len(l.configs); level++ {
		for _, path := range paths[level] {
			sst, err := OpenSST(l.manager, path, level, bloomBytes, bloomHashes)
			if err != nil {
				return err
			}
			l.AddFiles(level, []*SST{sst})
		}
	}
	return nil
}

func (l *Levels) NumLevels() int { return len(l.configs) }

func (l *Levels) Config(level int) LevelConfig { return l.configs[level] }

// Count returns how many files currently sit in level.
func (l *Levels) Count(level int) int { return len(l.files[level]) }

// Files returns the resident file-tables of level as Tables, oldest
// first (ascending timestamp).
func (l *Levels) Files(level int) []Table {
	out := make([]Table, len(l.files[level]))
	for i, f := range l.files[level] {
		out[i] = f
	}
	return out
}

// FileSlice returns a defensive copy of level's resident file-tables,
// ascending by timestamp.
func (l *Levels) FileSlice(level int) []*SST {
	return append([]*SST(nil), l.files[level]...)
}

// Overlapping returns the file-tables in level whose key range
// intersects [min, max].
func (l *Levels) Overlapping(level int, min, max shared.Key) []*SST {
	var out []*SST
	for _, f := range l.files[level] {
		if f.Overlaps(min, max) {
			out = append(out, f)
		}
	}
	return out
}

// AppendLevel0 adds a freshly flushed file-table to level 0.
func (l *Levels) AppendLevel0(sst *SST) {
	l.files[0] = append(l.files[0], sst)
}

// RemoveFiles deletes the named source files from level's resident list
// and evicts them from the manager (they've just been superseded by
// compaction output).
func (l *Levels) RemoveFiles(level int, doomed []*SST) error {
	remove := make(map[string]bool, len(doomed))
	for _, f := range doomed {
		remove[f.Path()] = true
	}
	kept := l.files[level][:0]
	for _, f := range l.files[level] {
		if remove[f.Path()] {
			continue
		}
		kept = append(kept, f)
	}
	l.files[level] = kept
	for _, f := range doomed {
		if err := l.manager.Remove(f.Path()); err != nil {
			return err
		}
	}
	return nil
}

// AddFiles inserts newly produced file-tables into level, keeping the
// resident list sorted by ascending timestamp.
func (l *Levels) AddFiles(level int, added []*SST) {
	l.files[level] = append(l.files[level], added...)
	fs := l.files[level]
	for i := 1; i < len(fs); i++ {
		for j := i; j > 0 && fs[j-1].Timestamp() > fs[j].Timestamp(); j-- {
			fs[j-1], fs[j] = fs[j], fs[j-1]
		}
	}
}

// Reset drops every level's in-memory file list (the caller is
// responsible for having already reset the manager's on-disk state).
func (l *Levels) Reset() {
	for i := range l.files {
		l.files[i] = nil
	}
}
