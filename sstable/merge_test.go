package sstable

import (
	"testing"

	"github.com/AmrMurad1/lsmkv/shared"
)

func TestMergeIteratorFreshnessTieBreak(t *testing.T) {
	older := NewBufferTable([]Entry{{Key: 1, Value: []byte("old")}}, 64, 2)
	newer := NewBufferTable([]Entry{{Key: 1, Value: []byte("new")}}, 64, 2)
	// newer was constructed after older, so it carries a higher seq and
	// must win under IsPrior.

	mi, err := NewMergeIterator([]Table{older, newer}, false)
	if err != nil {
		t.Fatalf("NewMergeIterator: %v", err)
	}
	if !mi.Valid() {
		t.Fatalf("expected one surfaced key")
	}
	v, err := mi.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	if string(v) != "new" {
		t.Fatalf("merged value = %q, want %q (fresher buffer-table must win)", v, "new")
	}
	if err := mi.Proceed(); err != nil {
		t.Fatalf("Proceed: %v", err)
	}
	if mi.Valid() {
		t.Fatalf("expected exactly one distinct key, got more")
	}
}

func TestMergeIteratorAscendingAcrossTables(t *testing.T) {
	a := NewBufferTable([]Entry{{Key: 1, Value: []byte("a1")}, {Key: 3, Value: []byte("a3")}}, 64, 2)
	b := NewBufferTable([]Entry{{Key: 2, Value: []byte("b2")}, {Key: 4, Value: []byte("b4")}}, 64, 2)

	mi, err := NewMergeIterator([]Table{a, b}, false)
	if err != nil {
		t.Fatalf("NewMergeIterator: %v", err)
	}
	var keys []shared.Key
	for mi.Valid() {
		keys = append(keys, mi.Key())
		if err := mi.Proceed(); err != nil {
			t.Fatalf("Proceed: %v", err)
		}
	}
	want := []shared.Key{1, 2, 3, 4}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys[%d] = %d, want %d", i, keys[i], want[i])
		}
	}
}

func TestMergeIteratorDropTombstones(t *testing.T) {
	a := NewBufferTable([]Entry{{Key: 1, Tombstone: true}, {Key: 2, Value: []byte("v")}}, 64, 2)

	mi, err := NewMergeIterator([]Table{a}, true)
	if err != nil {
		t.Fatalf("NewMergeIterator: %v", err)
	}
	var keys []shared.Key
	for mi.Valid() {
		keys = append(keys, mi.Key())
		if err := mi.Proceed(); err != nil {
			t.Fatalf("Proceed: %v", err)
		}
	}
	if len(keys) != 1 || keys[0] != 2 {
		t.Fatalf("keys = %v, want [2] (tombstone dropped)", keys)
	}
}

func TestMergeIteratorEmptySources(t *testing.T) {
	mi, err := NewMergeIterator(nil, false)
	if err != nil {
		t.Fatalf("NewMergeIterator: %v", err)
	}
	if mi.Valid() {
		t.Fatalf("expected invalid iterator over no sources")
	}
}
