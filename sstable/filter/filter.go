// Package filter implements the engine's Bloom filter: a fixed bit array
// with k independent hashes derived deterministically from a key's bytes,
// so a filter written to disk yields identical membership results on
// reload.
package filter

import (
	"encoding/binary"
	"math"

	"github.com/spaolacci/murmur3"
)

// Filter is a fixed-size bit-array membership test. Only false positives
// are allowed; Add/MayContain never produce false negatives.
type Filter struct {
	bits []byte
	m    int // bit capacity, always len(bits)*8
	k    int
}

// New allocates a filter with bit width m and k independent hash
// functions. m is rounded up to a whole number of bytes.
func New(m, k int) *Filter {
	if m < 8 {
		m = 8
	}
	if k < 1 {
		k = 1
	}
	bytesLen := ByteLen(m)
	return &Filter{bits: make([]byte, bytesLen), m: bytesLen * 8, k: k}
}

// ByteLen is the serialized size of an m-bit filter.
func ByteLen(m int) int {
	return (m + 7) / 8
}

// Recommend derives a (bits, hashes) pair for n expected entries at false
// positive rate p, using the standard optimal-Bloom-filter sizing
// formulas.
func Recommend(n int, p float64) (m, k int) {
	if n <= 0 {
		n = 1
	}
	if p <= 0 || p >= 1 {
		p = 0.01
	}
	m = int(math.Ceil(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2)))
	if m < 8 {
		m = 8
	}
	k = int(math.Round(float64(m) / float64(n) * math.Ln2))
	if k < 1 {
		k = 1
	}
	return m, k
}

func (f *Filter) hashAt(key []byte, seed uint32) int {
	h := murmur3.New32WithSeed(seed)
	h.Write(key) //nolint:errcheck // hash.Hash32.Write never errors
	return int(h.Sum32()) % f.m
}

// Add sets the k bits derived from key.
func (f *Filter) Add(key []byte) {
	for i := 0; i < f.k; i++ {
		idx := f.hashAt(key, uint32(i))
		f.bits[idx/8] |= 1 << uint(idx%8)
	}
}

// MayContain reports whether key is possibly present. False means
// definitely absent.
func (f *Filter) MayContain(key []byte) bool {
	for i := 0; i < f.k; i++ {
		idx := f.hashAt(key, uint32(i))
		if f.bits[idx/8]&(1<<uint(idx%8)) == 0 {
			return false
		}
	}
	return true
}

// Bytes returns the raw bit array for serialization.
func (f *Filter) Bytes() []byte { return f.bits }

// Decode reconstructs a filter from its serialized bytes and the engine's
// fixed hash count (k is not self-described on disk; it is a build-time
// constant shared by every SST).
func Decode(data []byte, k int) *Filter {
	if k < 1 {
		k = 1
	}
	return &Filter{bits: data, m: len(data) * 8, k: k}
}

// KeyBytes encodes a fixed-width key into the byte form the filter hashes,
// little-endian per the engine's portable wire format.
func KeyBytes(k uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, k)
	return buf
}
