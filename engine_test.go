package lsmkv

import (
	"fmt"
	"testing"

	"github.com/AmrMurad1/lsmkv/codec"
	"github.com/AmrMurad1/lsmkv/shared"
)

func openTestEngine(t *testing.T, opts ...Option[[]byte]) *Engine[[]byte] {
	t.Helper()
	e, err := Open[[]byte](t.TempDir(), codec.Bytes{}, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

// TestEngineSingleKey is scenario 1 from spec.md §8.
func TestEngineSingleKey(t *testing.T) {
	e := openTestEngine(t)

	if err := e.Put(1, []byte("SE")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, ok, err := e.Get(1)
	if err != nil || !ok || string(v) != "SE" {
		t.Fatalf("Get(1) = %q, %v, %v, want SE, true", v, ok, err)
	}

	deleted, err := e.Delete(1)
	if err != nil || !deleted {
		t.Fatalf("Delete(1) = %v, %v, want true", deleted, err)
	}
	_, ok, err = e.Get(1)
	if err != nil || ok {
		t.Fatalf("Get(1) after delete = %v, %v, want absent", ok, err)
	}

	deleted, err = e.Delete(1)
	if err != nil || deleted {
		t.Fatalf("second Delete(1) = %v, %v, want false", deleted, err)
	}
}

// TestEngineDenseInsertion is scenario 2 from spec.md §8.
func TestEngineDenseInsertion(t *testing.T) {
	e := openTestEngine(t, WithMaxFileSize[[]byte](1<<20))

	const n = 1024
	for i := 0; i < n; i++ {
		v := make([]byte, i+1)
		for j := range v {
			v[j] = 's'
		}
		if err := e.Put(shared.Key(i), v); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		v, ok, err := e.Get(shared.Key(i))
		if err != nil || !ok {
			t.Fatalf("Get(%d) = %v, %v, want present", i, ok, err)
		}
		if len(v) != i+1 {
			t.Fatalf("Get(%d) length = %d, want %d", i, len(v), i+1)
		}
	}
}

// TestEngineInterleavedDeletion is scenario 3 from spec.md §8.
func TestEngineInterleavedDeletion(t *testing.T) {
	e := openTestEngine(t, WithMaxFileSize[[]byte](1<<20))

	const n = 256
	for i := 0; i < n; i++ {
		if err := e.Put(shared.Key(i), []byte(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}
	for i := 0; i < n; i += 2 {
		if _, err := e.Delete(shared.Key(i)); err != nil {
			t.Fatalf("Delete(%d): %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		v, ok, err := e.Get(shared.Key(i))
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if i%2 == 0 {
			if ok {
				t.Fatalf("Get(%d) = present, want absent (even key deleted)", i)
			}
		} else {
			want := fmt.Sprintf("v%d", i)
			if !ok || string(v) != want {
				t.Fatalf("Get(%d) = %q, %v, want %q, true", i, v, ok, want)
			}
		}
	}
	for i := 1; i < n; i += 2 {
		ok, err := e.Delete(shared.Key(i))
		if err != nil || !ok {
			t.Fatalf("Delete(%d) = %v, %v, want true", i, ok, err)
		}
	}
	for i := 0; i < n; i += 2 {
		ok, err := e.Delete(shared.Key(i))
		if err != nil || ok {
			t.Fatalf("re-Delete(%d) = %v, %v, want false", i, ok, err)
		}
	}
}

// TestEngineScanAcrossMemtableAndLevels is scenario 5 from spec.md §8.
func TestEngineScanAcrossMemtableAndLevels(t *testing.T) {
	e := openTestEngine(t, WithMaxFileSize[[]byte](4096))

	const n = 4000
	for i := 0; i < n; i++ {
		v := make([]byte, i%32+1)
		for j := range v {
			v[j] = 'v'
		}
		if err := e.Put(shared.Key(i), v); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}

	var got []shared.Key
	err := e.Scan(100, 200, func(k shared.Key, _ []byte) error {
		got = append(got, k)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 101 {
		t.Fatalf("Scan(100,200) emitted %d pairs, want 101", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("Scan not ascending: %v", got)
		}
	}
	if got[0] != 100 || got[len(got)-1] != 200 {
		t.Fatalf("Scan range = [%d,%d], want [100,200]", got[0], got[len(got)-1])
	}
}

// TestEngineTombstoneFlushThenCompact is scenario 6 from spec.md §8.
func TestEngineTombstoneFlushThenCompact(t *testing.T) {
	e := openTestEngine(t, WithMaxFileSize[[]byte](2048))

	const n = 200
	for i := 0; i < n; i++ {
		if err := e.Put(shared.Key(i), []byte("v")); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		if _, err := e.Delete(shared.Key(i)); err != nil {
			t.Fatalf("Delete(%d): %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		_, ok, err := e.Get(shared.Key(i))
		if err != nil || ok {
			t.Fatalf("Get(%d) after delete-all = %v, %v, want absent", i, ok, err)
		}
	}

	// Force every level to cascade into the terminal level.
	for i := 0; i < n; i++ {
		if err := e.Put(shared.Key(i+n), []byte("w")); err != nil {
			t.Fatalf("Put(%d): %v", i+n, err)
		}
	}
	for i := 0; i < n; i++ {
		_, ok, err := e.Get(shared.Key(i))
		if err != nil || ok {
			t.Fatalf("key %d resurrected after further compaction", i)
		}
	}
}

// TestEnginePutOverwrite verifies Put(k,v1); Put(k,v2) -> Get(k) == v2.
func TestEnginePutOverwrite(t *testing.T) {
	e := openTestEngine(t)
	if err := e.Put(1, []byte("v1")); err != nil {
		t.Fatalf("Put v1: %v", err)
	}
	if err := e.Put(1, []byte("v2")); err != nil {
		t.Fatalf("Put v2: %v", err)
	}
	v, ok, err := e.Get(1)
	if err != nil || !ok || string(v) != "v2" {
		t.Fatalf("Get(1) = %q, %v, want v2", v, ok)
	}
}

func TestEngineReset(t *testing.T) {
	e := openTestEngine(t)
	for i := 0; i < 10; i++ {
		if err := e.Put(shared.Key(i), []byte("x")); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}
	if err := e.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	for i := 0; i < 10; i++ {
		_, ok, err := e.Get(shared.Key(i))
		if err != nil || ok {
			t.Fatalf("Get(%d) after Reset = %v, %v, want absent", i, ok, err)
		}
	}
}

func TestEngineRestartPreservesCommittedData(t *testing.T) {
	dir := t.TempDir()
	e1, err := Open[[]byte](dir, codec.Bytes{}, WithMaxFileSize[[]byte](2048))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 50; i++ {
		if err := e1.Put(shared.Key(i), []byte(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}
	if err := e1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e2, err := Open[[]byte](dir, codec.Bytes{}, WithMaxFileSize[[]byte](2048))
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	defer e2.Close()
	for i := 0; i < 50; i++ {
		v, ok, err := e2.Get(shared.Key(i))
		want := fmt.Sprintf("v%d", i)
		if err != nil || !ok || string(v) != want {
			t.Fatalf("Get(%d) after restart = %q, %v, want %q", i, v, ok, want)
		}
	}
}
