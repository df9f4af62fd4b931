package lsmkv

import (
	"math"
	"math/rand"

	"github.com/AmrMurad1/lsmkv/codec"
	"github.com/AmrMurad1/lsmkv/shared"
	"github.com/AmrMurad1/lsmkv/sstable"
)

// Options holds every build-time configuration knob spec.md §6
// enumerates: key comparator, value codec, skip-list parameters, bloom
// parameters, per-level policy, the per-SST size cap, and the read-stream
// LRU capacity. The teacher hardcodes the equivalent values as literals
// inline (db.go, ssManager.go); Options promotes them into one
// functional-options-configured struct, matching how the wider corpus
// expresses engine tunables.
type Options[V any] struct {
	Comparator shared.Comparator
	Codec      codec.Codec[V]

	SkipListMaxLevel int
	SkipListP        float64
	Rand             *rand.Rand

	BloomM int
	BloomK int

	// Levels describes levels 0..len(Levels)-1. Level 0 must use
	// sstable.Tiering. An implicit, unlisted terminal level beyond the
	// last configured one is always uncapped.
	Levels []sstable.LevelConfig

	MaxFileSize int
	LRUCapacity int
}

// Option mutates an Options[V] during Open.
type Option[V any] func(*Options[V])

// DefaultOptions mirrors the teacher's literal defaults from
// db.go/ssManager.go: a 4096-adjacent size cap (renamed MaxFileSize), a
// 1% bloom false-positive rate sized for 1000 expected entries, an
// 18-level skip list with p=0.5, two tiering levels and one leveling
// level feeding an uncapped terminal level, and a 32-handle read LRU.
func DefaultOptions[V any](c codec.Codec[V]) Options[V] {
	bloomM, bloomK := sstable.Recommend(1000, 0.01)
	return Options[V]{
		Comparator:       shared.NaturalOrder,
		Codec:            c,
		SkipListMaxLevel: 18,
		SkipListP:        0.5,
		Rand:             rand.New(rand.NewSource(1)),
		BloomM:           bloomM,
		BloomK:           bloomK,
		Levels: []sstable.LevelConfig{
			{MaxFiles: 4, Policy: sstable.Tiering},
			{MaxFiles: 4, Policy: sstable.Tiering},
			{MaxFiles: 8, Policy: sstable.Leveling},
		},
		MaxFileSize: 4096,
		LRUCapacity: 32,
	}
}

// WithComparator overrides the key comparator.
func WithComparator[V any](cmp shared.Comparator) Option[V] {
	return func(o *Options[V]) { o.Comparator = cmp }
}

// WithCodec overrides the value codec.
func WithCodec[V any](c codec.Codec[V]) Option[V] {
	return func(o *Options[V]) { o.Codec = c }
}

// WithSkipListParams overrides the skip list's max level and level
// probability.
func WithSkipListParams[V any](maxLevel int, p float64) Option[V] {
	return func(o *Options[V]) { o.SkipListMaxLevel = maxLevel; o.SkipListP = p }
}

// WithRandSource overrides the skip list's random level generator.
func WithRandSource[V any](r *rand.Rand) Option[V] {
	return func(o *Options[V]) { o.Rand = r }
}

// WithBloomBits sets the bloom filter's bit width and hash count directly.
func WithBloomBits[V any](m, k int) Option[V] {
	return func(o *Options[V]) { o.BloomM = m; o.BloomK = k }
}

// WithBloomFPRate sizes the bloom filter via sstable.Recommend for n
// expected entries at false-positive rate p.
func WithBloomFPRate[V any](n int, p float64) Option[V] {
	return func(o *Options[V]) {
		o.BloomM, o.BloomK = sstable.Recommend(n, p)
	}
}

// WithLevels overrides the explicit (non-terminal) level configuration.
// Level 0 must use sstable.Tiering.
func WithLevels[V any](levels []sstable.LevelConfig) Option[V] {
	return func(o *Options[V]) { o.Levels = levels }
}

// WithMaxFileSize overrides the per-SST size cap.
func WithMaxFileSize[V any](n int) Option[V] {
	return func(o *Options[V]) { o.MaxFileSize = n }
}

// WithLRUCapacity overrides the read-stream handle LRU capacity.
func WithLRUCapacity[V any](n int) Option[V] {
	return func(o *Options[V]) { o.LRUCapacity = n }
}

// terminalLevels returns the full per-level config list, with the
// implicit uncapped terminal level appended after the user's explicit
// ones.
func (o Options[V]) terminalLevels() []sstable.LevelConfig {
	full := make([]sstable.LevelConfig, 0, len(o.Levels)+1)
	full = append(full, o.Levels...)
	full = append(full, sstable.LevelConfig{MaxFiles: math.MaxInt, Policy: sstable.Leveling})
	return full
}
