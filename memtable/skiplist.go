package memtable

import (
	"math/rand"

	"github.com/AmrMurad1/lsmkv/shared"
)

// skipListNode is one level-tower node. The head node carries no key or
// slot; comparisons only ever touch next[i].key, so no sentinel key value
// is needed.
type skipListNode struct {
	key  shared.Key
	slot shared.Slot
	next []*skipListNode
}

// SkipList is the memtable's ordered map (spec component B). Insertion
// order is irrelevant; key order is enforced by the tower search.
type SkipList struct {
	head     *skipListNode
	maxLevel int
	level    int
	p        float64
	rnd      *rand.Rand
	cmp      shared.Comparator
	size     int
}

// NewSkipList builds an empty skip list with the given level cap,
// level-up probability, comparator, and random source. A deterministic
// rand.Rand makes the tower shape (not the key order) reproducible.
func NewSkipList(maxLevel int, p float64, cmp shared.Comparator, rnd *rand.Rand) *SkipList {
	if maxLevel < 1 {
		maxLevel = 1
	}
	if cmp == nil {
		cmp = shared.NaturalOrder
	}
	return &SkipList{
		head:     &skipListNode{next: make([]*skipListNode, maxLevel)},
		maxLevel: maxLevel,
		level:    1,
		p:        p,
		rnd:      rnd,
		cmp:      cmp,
	}
}

func (s *SkipList) randomLevel() int {
	level := 1
	for s.rnd.Float64() < s.p && level < s.maxLevel {
		level++
	}
	return level
}

// Search returns the slot for key, if present.
func (s *SkipList) Search(key shared.Key) (shared.Slot, bool) {
	curr := s.head
	for i := s.maxLevel - 1; i >= 0; i-- {
		for curr.next[i] != nil && s.cmp(curr.next[i].key, key) < 0 {
			curr = curr.next[i]
		}
	}
	curr = curr.next[0]
	if curr != nil && s.cmp(curr.key, key) == 0 {
		return curr.slot, true
	}
	return shared.Slot{}, false
}

// Insert replaces any prior value for key unconditionally.
func (s *SkipList) Insert(key shared.Key, value shared.Slot) {
	s.Replace(key, func(slot *shared.Slot, existsBefore bool) bool {
		*slot = value
		return true
	})
}

// Replace calls f(slot, existsBefore) with the current slot for key
// (zero-valued if absent). If f returns true the slot is committed —
// creating a new node if key was absent, or overwriting the existing
// node's slot otherwise. If f returns false, the skip list is left
// completely unchanged. This is the atomic test-and-update hook the
// memtable uses to gate writes against the projected-size accounting.
func (s *SkipList) Replace(key shared.Key, f func(slot *shared.Slot, existsBefore bool) bool) {
	update := make([]*skipListNode, s.maxLevel)
	curr := s.head
	for i := s.maxLevel - 1; i >= 0; i-- {
		for curr.next[i] != nil && s.cmp(curr.next[i].key, key) < 0 {
			curr = curr.next[i]
		}
		update[i] = curr
	}

	next := curr.next[0]
	existsBefore := next != nil && s.cmp(next.key, key) == 0

	var scratch shared.Slot
	if existsBefore {
		scratch = next.slot
	}

	if !f(&scratch, existsBefore) {
		return
	}

	if existsBefore {
		next.slot = scratch
		return
	}

	level := s.randomLevel()
	if level > s.level {
		for i := s.level; i < level; i++ {
			update[i] = s.head
		}
		s.level = level
	}

	node := &skipListNode{key: key, slot: scratch, next: make([]*skipListNode, level)}
	for i := 0; i < level; i++ {
		node.next[i] = update[i].next[i]
		update[i].next[i] = node
	}
	s.size++
}

// ForEach visits every entry in ascending key order.
func (s *SkipList) ForEach(visit func(key shared.Key, slot shared.Slot)) {
	for curr := s.head.next[0]; curr != nil; curr = curr.next[0] {
		visit(curr.key, curr.slot)
	}
}

// Scan visits entries with key in [min, max] in ascending order.
func (s *SkipList) Scan(min, max shared.Key, visit func(key shared.Key, slot shared.Slot)) {
	curr := s.head
	for i := s.maxLevel - 1; i >= 0; i-- {
		for curr.next[i] != nil && s.cmp(curr.next[i].key, min) < 0 {
			curr = curr.next[i]
		}
	}
	curr = curr.next[0]
	for curr != nil && s.cmp(curr.key, max) <= 0 {
		visit(curr.key, curr.slot)
		curr = curr.next[0]
	}
}

// Size returns the number of entries (tombstones included).
func (s *SkipList) Size() int { return s.size }

// Empty reports whether the skip list holds no entries.
func (s *SkipList) Empty() bool { return s.size == 0 }

// Clear resets the skip list to empty, keeping its configuration.
func (s *SkipList) Clear() {
	s.head = &skipListNode{next: make([]*skipListNode, s.maxLevel)}
	s.level = 1
	s.size = 0
}
