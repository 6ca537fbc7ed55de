package zstdcodec

import (
	"bytes"
	"testing"

	"github.com/bwkimmel/infinigen/region"
	"github.com/bwkimmel/infinigen/world"
)

func TestWrapRoundTripThroughPadding(t *testing.T) {
	inner := world.Codec[string]{
		Encode: func(s string) ([]byte, error) { return []byte(s), nil },
		Decode: func(b []byte) (string, error) { return string(b), nil },
	}
	codec, err := Wrap(inner)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	original := "the quick brown fox jumps over the lazy dog, repeated, repeated, repeated"
	encoded, err := codec.Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	padded := region.PadToSector(encoded, 4096)
	if len(padded)%4096 != 0 {
		t.Fatalf("padded length not a sector multiple: %d", len(padded))
	}

	decoded, err := codec.Decode(padded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip mismatch: got %q, want %q", decoded, original)
	}
}

func TestWrapCompressesRepeatedData(t *testing.T) {
	inner := world.Codec[string]{
		Encode: func(s string) ([]byte, error) { return []byte(s), nil },
		Decode: func(b []byte) (string, error) { return string(b), nil },
	}
	codec, err := Wrap(inner)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	original := string(bytes.Repeat([]byte("abcdefgh"), 1024))
	encoded, err := codec.Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(encoded) >= len(original) {
		t.Errorf("expected compression to shrink highly repetitive input: %d >= %d", len(encoded), len(original))
	}
}
