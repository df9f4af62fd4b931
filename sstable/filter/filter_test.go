package filter

import "testing"

func TestFilterNoFalseNegatives(t *testing.T) {
	f := New(1024, 4)
	keys := make([][]byte, 0, 200)
	for i := 0; i < 200; i++ {
		k := KeyBytes(uint64(i))
		f.Add(k)
		keys = append(keys, k)
	}
	for i, k := range keys {
		if !f.MayContain(k) {
			t.Fatalf("MayContain(%d) = false, want true (no false negatives allowed)", i)
		}
	}
}

func TestFilterAbsentKeyOftenNegative(t *testing.T) {
	f := New(4096, 4)
	for i := 0; i < 50; i++ {
		f.Add(KeyBytes(uint64(i)))
	}
	falsePositives := 0
	for i := 10000; i < 10200; i++ {
		if f.MayContain(KeyBytes(uint64(i))) {
			falsePositives++
		}
	}
	if falsePositives > 20 {
		t.Fatalf("false positive rate too high: %d/200 for a sparsely loaded 4096-bit filter", falsePositives)
	}
}

func TestFilterEncodeDecodeRoundTrip(t *testing.T) {
	f := New(512, 3)
	for i := 0; i < 30; i++ {
		f.Add(KeyBytes(uint64(i * 7)))
	}
	decoded := Decode(f.Bytes(), 3)
	for i := 0; i < 30; i++ {
		if !decoded.MayContain(KeyBytes(uint64(i * 7))) {
			t.Fatalf("decoded filter lost membership for key %d", i*7)
		}
	}
}

func TestByteLenRounding(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 7: 1, 8: 1, 9: 2, 16: 2, 17: 3}
	for m, want := range cases {
		if got := ByteLen(m); got != want {
			t.Fatalf("ByteLen(%d) = %d, want %d", m, got, want)
		}
	}
}

func TestFilterByteBoundaryCapacityMatchesDecode(t *testing.T) {
	// m=10 rounds up to 2 bytes (16 bits); Add/MayContain must agree on the
	// effective capacity both before and after a disk round-trip.
	f := New(10, 2)
	f.Add(KeyBytes(123))
	decoded := Decode(f.Bytes(), 2)
	if !decoded.MayContain(KeyBytes(123)) {
		t.Fatalf("byte-rounded capacity mismatch between New and Decode")
	}
}

func TestRecommendProducesUsableParameters(t *testing.T) {
	m, k := Recommend(1000, 0.01)
	if m <= 0 || k <= 0 {
		t.Fatalf("Recommend(1000, 0.01) = (%d, %d), want positive values", m, k)
	}
	f := New(m, k)
	for i := 0; i < 1000; i++ {
		f.Add(KeyBytes(uint64(i)))
	}
	for i := 0; i < 1000; i++ {
		if !f.MayContain(KeyBytes(uint64(i))) {
			t.Fatalf("MayContain(%d) = false after Recommend-sized insert", i)
		}
	}
}
