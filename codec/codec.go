// Package codec defines the engine's pluggable value contract: a
// deterministic encode/decode pair with a length-delimited read, so the
// engine can store a value's size implicitly via adjacent key-offset
// deltas instead of an external length field.
package codec

import "io"

// Codec translates between an application value type V and the bytes the
// engine persists. Write must write exactly EncodedSize(v) bytes; Read
// must consume exactly n bytes and reconstruct the original value.
type Codec[V any] interface {
	EncodedSize(v V) int
	Write(w io.Writer, v V) error
	Read(r io.Reader, n int) (V, error)
}

// Bytes is the identity codec for []byte values: the stored bytes are the
// value itself, with no additional framing.
type Bytes struct{}

func (Bytes) EncodedSize(v []byte) int { return len(v) }

func (Bytes) Write(w io.Writer, v []byte) error {
	_, err := w.Write(v)
	return err
}

func (Bytes) Read(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
