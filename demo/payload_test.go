package demo

import (
	"bytes"
	"testing"

	"github.com/bwkimmel/infinigen/coords"
	"github.com/bwkimmel/infinigen/region"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := Chunk{
		Tiles: bytes.Repeat([]byte{2}, TileWidth*TileWidth),
		Actors: []Actor{
			{X: 3, Y: 4, Glyph: "@", Name: "Scout"},
		},
	}
	encoded, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	padded := region.PadToSector(encoded, 4096)
	if len(padded)%4096 != 0 {
		t.Fatalf("padded length %d not a sector multiple", len(padded))
	}

	got, err := Decode(padded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Tiles, c.Tiles) {
		t.Errorf("tiles mismatch after round trip")
	}
	if len(got.Actors) != 1 || got.Actors[0].Name != "Scout" {
		t.Errorf("actors mismatch after round trip: %+v", got.Actors)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	ci := coords.ChunkIndex{X: 7, Y: -2}
	a, err := Generate(ci)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate(ci)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.Equal(a.Tiles, b.Tiles) {
		t.Errorf("Generate is not deterministic for the same chunk index")
	}
}
