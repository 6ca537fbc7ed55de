// Package demo provides a concrete, exercised ChunkPayload: an NBT-backed
// tile grid plus a set of small actors, standing in for the terrain and
// entity content the core treats as opaque. It exists to give the
// otherwise-generic world.Codec a real instance to round-trip, the way
// the teacher's own tool exists to read and patch real NBT chunk data.
package demo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/sandertv/gophertunnel/minecraft/nbt"

	"github.com/bwkimmel/infinigen/coords"
)

// TileWidth is the number of cells along one edge of a demo chunk.
const TileWidth = 16

// Actor is a small, named entity with a world position and a glyph used
// to render it, the demo analogue of an auxiliary per-chunk object that
// a real game would track independently of terrain.
type Actor struct {
	X     int32  `nbt:"x"`
	Y     int32  `nbt:"y"`
	Glyph string `nbt:"glyph"`
	Name  string `nbt:"name"`
}

// Chunk is the demo payload: a flat byte grid of terrain ids plus any
// actors currently inside the chunk's footprint.
type Chunk struct {
	Tiles  []byte  `nbt:"tiles"`
	Actors []Actor `nbt:"actors"`
}

// nbtDoc is the root compound encoded to and decoded from each record.
// gophertunnel's NBT codec expects a single root value; wrapping Chunk in
// a named field keeps the on-disk shape stable even if Chunk grows.
type nbtDoc struct {
	Chunk Chunk `nbt:"chunk"`
}

// Encode serializes c with a 4-byte big-endian length prefix ahead of
// the NBT bytes, so Decode can ignore the region layer's trailing zero
// padding without relying on the NBT root tag being self-delimiting in
// the presence of padding.
func Encode(c Chunk) ([]byte, error) {
	var body bytes.Buffer
	enc := nbt.NewEncoderWithEncoding(&body, nbt.BigEndian)
	if err := enc.Encode(nbtDoc{Chunk: c}); err != nil {
		return nil, fmt.Errorf("demo: encode chunk: %w", err)
	}
	out := make([]byte, 4+body.Len())
	binary.BigEndian.PutUint32(out, uint32(body.Len()))
	copy(out[4:], body.Bytes())
	return out, nil
}

// Decode reads a record produced by Encode, tolerating any trailing
// zero padding the region layer appended.
func Decode(raw []byte) (Chunk, error) {
	if len(raw) < 4 {
		return Chunk{}, fmt.Errorf("demo: record too short: %d bytes", len(raw))
	}
	n := binary.BigEndian.Uint32(raw[:4])
	if int(n) > len(raw)-4 {
		return Chunk{}, fmt.Errorf("demo: record length %d exceeds buffer", n)
	}
	var doc nbtDoc
	if err := nbt.UnmarshalEncoding(raw[4:4+n], &doc, nbt.BigEndian); err != nil {
		return Chunk{}, fmt.Errorf("demo: decode chunk: %w", err)
	}
	return doc.Chunk, nil
}

// Generate deterministically manufactures terrain for a chunk index
// nobody has saved yet. It hashes the chunk index into a handful of
// terrain ids rather than depending on a noise library absent from this
// module's dependency stack (see DESIGN.md).
func Generate(ci coords.ChunkIndex) (Chunk, error) {
	tiles := make([]byte, TileWidth*TileWidth)
	for i := range tiles {
		h := fnv.New32a()
		fmt.Fprintf(h, "%d:%d:%d", ci.X, ci.Y, i)
		tiles[i] = byte(h.Sum32() % 4)
	}
	return Chunk{Tiles: tiles}, nil
}
