package sstable

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/AmrMurad1/lsmkv/internal/lrucache"
)

// Manager owns the on-disk directory layout, the single global
// timestamp counter, and the bounded LRU of open SST read handles (spec
// component E).
type Manager struct {
	root    string
	kLevels int
	handles *lrucache.Handles
	nextTS  uint64
}

// OpenManager bootstraps the directory skeleton (creating root and
// level-0..kLevels subdirectories if absent) and builds an empty handle
// pool. Callers must follow with Enumerate to restore the timestamp
// counter and discover existing SSTs.
func OpenManager(root string, kLevels int, lruCapacity int) (*Manager, error) {
	m := &Manager{root: root, kLevels: kLevels}
	handles, err := lrucache.New(lruCapacity)
	if err != nil {
		return nil, err
	}
	m.handles = handles
	if err := m.bootstrap(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) levelDir(level int) string {
	return filepath.Join(m.root, fmt.Sprintf("level-%d", level))
}

func (m *Manager) bootstrap() error {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return fmt.Errorf("lsmkv: create root directory: %w", err)
	}
	for lvl := 0; lvl <= m.kLevels; lvl++ {
		if err := os.MkdirAll(m.levelDir(lvl), 0o755); err != nil {
			return fmt.Errorf("lsmkv: create level directory: %w", err)
		}
	}
	return nil
}

// Enumerate lists, for each level in [0, kLevels], the .sst file paths
// present on disk (sorted by name for determinism), and advances the
// timestamp counter past every timestamp it observes. Directories for
// levels beyond kLevels, or that don't parse as "level-<N>", are ignored
// silently per spec §7.
func (m *Manager) Enumerate() (map[int][]string, error) {
	result := make(map[int][]string)
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "level-") {
			continue
		}
		level, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "level-"))
		if err != nil || level < 0 || level > m.kLevels {
			continue
		}
		dirPath := filepath.Join(m.root, e.Name())
		files, err := os.ReadDir(dirPath)
		if err != nil {
			return nil, err
		}
		var paths []string
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".sst") {
				continue
			}
			paths = append(paths, filepath.Join(dirPath, f.Name()))
		}
		sort.Strings(paths)
		result[level] = paths

		for _, p := range paths {
			ts, err := peekTimestamp(p)
			if err != nil {
				continue // unreadable header: left for the caller's Open to surface as corrupt
			}
			if ts >= m.nextTS {
				m.nextTS = ts + 1
			}
		}
	}
	return result, nil
}

func peekTimestamp(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	var buf [TimestampSize]byte
	if _, err := f.ReadAt(buf[:], 0); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// CreateFile allocates the next timestamp, creates "<ts>.sst" in level's
// directory, writes the timestamp header, then invokes write to produce
// the remainder of the file's bytes. The counter advances only once write
// succeeds and the buffered bytes are flushed to the file; the file is not
// fsynced.
func (m *Manager) CreateFile(level int, write func(ts uint64, w io.Writer) error) (path string, ts uint64, err error) {
	ts = m.nextTS
	path = filepath.Join(m.levelDir(level), fmt.Sprintf("%d.sst", ts))

	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	var tsBuf [TimestampSize]byte
	binary.LittleEndian.PutUint64(tsBuf[:], ts)
	if _, err := bw.Write(tsBuf[:]); err != nil {
		os.Remove(path)
		return "", 0, err
	}

	if err := write(ts, bw); err != nil {
		os.Remove(path)
		return "", 0, err
	}

	if err := bw.Flush(); err != nil {
		os.Remove(path)
		return "", 0, err
	}

	m.nextTS++
	return path, ts, nil
}

// ReadAt reads len(buf) bytes from path at offset via the handle pool.
func (m *Manager) ReadAt(path string, offset int64, buf []byte) (int, error) {
	return m.handles.ReadAt(path, offset, buf)
}

// Remove evicts any cached handle for path, then deletes the file. Used
// by compaction once a source file's replacement has been durably
// written.
func (m *Manager) Remove(path string) error {
	m.handles.Evict(path)
	return os.Remove(path)
}

// Reset closes every handle, removes the whole directory tree, zeroes the
// timestamp counter, and recreates the level skeleton.
func (m *Manager) Reset() error {
	m.handles.Close()
	if err := os.RemoveAll(m.root); err != nil {
		return err
	}
	m.nextTS = 0
	return m.bootstrap()
}

// Root returns the engine's data directory.
func (m *Manager) Root() string { return m.root }
