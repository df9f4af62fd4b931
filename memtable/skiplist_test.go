package memtable

import (
	"math/rand"
	"testing"

	"github.com/AmrMurad1/lsmkv/shared"
)

func newTestSkipList() *SkipList {
	return NewSkipList(12, 0.5, shared.NaturalOrder, rand.New(rand.NewSource(1)))
}

func TestSkipListInsertAndSearch(t *testing.T) {
	sl := newTestSkipList()

	sl.Insert(1, shared.PresentSlot([]byte("a"), 1))
	sl.Insert(2, shared.PresentSlot([]byte("b"), 1))
	sl.Insert(3, shared.PresentSlot([]byte("c"), 1))

	if slot, ok := sl.Search(2); !ok || string(slot.Value) != "b" {
		t.Fatalf("Search(2) = %v, %v, want b, true", slot, ok)
	}
	if _, ok := sl.Search(99); ok {
		t.Fatalf("Search(99) found, want absent")
	}

	sl.Insert(2, shared.PresentSlot([]byte("updated"), 7))
	if slot, ok := sl.Search(2); !ok || string(slot.Value) != "updated" {
		t.Fatalf("Search(2) after overwrite = %v, %v", slot, ok)
	}
	if sl.Size() != 3 {
		t.Fatalf("Size() = %d, want 3 (overwrite must not grow size)", sl.Size())
	}
}

func TestSkipListTombstone(t *testing.T) {
	sl := newTestSkipList()
	sl.Insert(5, shared.PresentSlot([]byte("v"), 1))
	sl.Insert(5, shared.TombstoneSlot())

	slot, ok := sl.Search(5)
	if !ok {
		t.Fatalf("expected tombstoned key to still be present in the structure")
	}
	if !slot.Tombstone {
		t.Fatalf("expected tombstone, got live slot %v", slot)
	}
}

func TestSkipListForEachAscending(t *testing.T) {
	sl := newTestSkipList()
	order := []shared.Key{5, 1, 3, 2, 4}
	for _, k := range order {
		sl.Insert(k, shared.PresentSlot(nil, 0))
	}

	var seen []shared.Key
	sl.ForEach(func(k shared.Key, _ shared.Slot) { seen = append(seen, k) })
	for i := 1; i < len(seen); i++ {
		if seen[i-1] >= seen[i] {
			t.Fatalf("ForEach not ascending: %v", seen)
		}
	}
	if len(seen) != 5 {
		t.Fatalf("ForEach visited %d entries, want 5", len(seen))
	}
}

func TestSkipListScanRange(t *testing.T) {
	sl := newTestSkipList()
	for k := shared.Key(0); k < 10; k++ {
		sl.Insert(k, shared.PresentSlot(nil, 0))
	}

	var seen []shared.Key
	sl.Scan(3, 6, func(k shared.Key, _ shared.Slot) { seen = append(seen, k) })
	want := []shared.Key{3, 4, 5, 6}
	if len(seen) != len(want) {
		t.Fatalf("Scan(3,6) = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("Scan(3,6)[%d] = %d, want %d", i, seen[i], want[i])
		}
	}
}

func TestSkipListReplaceRejection(t *testing.T) {
	sl := newTestSkipList()
	sl.Insert(1, shared.PresentSlot([]byte("a"), 1))

	committed := false
	sl.Replace(1, func(slot *shared.Slot, existsBefore bool) bool {
		if !existsBefore {
			t.Fatalf("existsBefore = false, want true")
		}
		committed = true
		return false // reject: structure must stay unchanged
	})
	if !committed {
		t.Fatalf("callback never invoked")
	}
	slot, ok := sl.Search(1)
	if !ok || string(slot.Value) != "a" {
		t.Fatalf("rejected Replace mutated the structure: %v, %v", slot, ok)
	}
}

func TestSkipListEmpty(t *testing.T) {
	sl := newTestSkipList()
	if !sl.Empty() {
		t.Fatalf("new skip list should be empty")
	}
	sl.Insert(1, shared.PresentSlot(nil, 0))
	if sl.Empty() {
		t.Fatalf("non-empty skip list reported as empty")
	}
}
