// Package zstdcodec wraps a world.Codec's byte encoding with zstd
// compression, as an explicitly opt-in alternative to the uncompressed
// baseline. It frames each compressed record with a 4-byte big-endian
// length prefix ahead of the compressed bytes, per the length-prefix
// strategy: compression makes the record length nondeterministic from
// the decompressor's point of view, so the frame must say exactly how
// many compressed bytes to feed it before the region layer's trailing
// zero padding begins.
package zstdcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/bwkimmel/infinigen/world"
)

// Wrap returns a codec that compresses inner's encoded bytes with zstd
// before they reach the region layer, and decompresses them on the way
// back. Generate and the auxiliary hooks pass through unchanged.
func Wrap[T any](inner world.Codec[T]) (world.Codec[T], error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return world.Codec[T]{}, fmt.Errorf("zstdcodec: new encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return world.Codec[T]{}, fmt.Errorf("zstdcodec: new decoder: %w", err)
	}

	return world.Codec[T]{
		Encode: func(v T) ([]byte, error) {
			raw, err := inner.Encode(v)
			if err != nil {
				return nil, err
			}
			compressed := enc.EncodeAll(raw, nil)
			buf := make([]byte, 4+len(compressed))
			binary.BigEndian.PutUint32(buf, uint32(len(compressed)))
			copy(buf[4:], compressed)
			return buf, nil
		},
		Decode: func(raw []byte) (T, error) {
			var zero T
			if len(raw) < 4 {
				return zero, fmt.Errorf("zstdcodec: record too short: %d bytes", len(raw))
			}
			n := binary.BigEndian.Uint32(raw[:4])
			if int(n) > len(raw)-4 {
				return zero, fmt.Errorf("zstdcodec: frame length %d exceeds buffer", n)
			}
			decompressed, err := dec.DecodeAll(raw[4:4+n], nil)
			if err != nil {
				return zero, fmt.Errorf("zstdcodec: decompress: %w", err)
			}
			return inner.Decode(decompressed)
		},
		Generate:            inner.Generate,
		CollectAuxiliary:    inner.CollectAuxiliary,
		DistributeAuxiliary: inner.DistributeAuxiliary,
	}, nil
}
