// Package coords defines the strongly-typed coordinate spaces used to
// address chunks and the regions that store them.
package coords

import "fmt"

// ChunkIndex identifies one chunk in infinite world space.
type ChunkIndex struct {
	X, Y int32
}

// String implements fmt.Stringer.
func (c ChunkIndex) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// RegionIndex identifies one region file in world space.
type RegionIndex struct {
	X, Y int32
}

func (r RegionIndex) String() string {
	return fmt.Sprintf("(%d,%d)", r.X, r.Y)
}

// RegionLocalIndex identifies a chunk's slot inside its region. Both
// fields satisfy 0 <= v < RegionWidth for the region's configured width.
type RegionLocalIndex struct {
	X, Y int32
}

func (l RegionLocalIndex) String() string {
	return fmt.Sprintf("(%d,%d)", l.X, l.Y)
}

// floorDiv divides a by b using floored (not truncating) semantics, so
// that floorDiv(-1, 16) == -1 rather than Go's native 0.
func floorDiv(a, b int32) int32 {
	q := a / b
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		q--
	}
	return q
}

// floorMod computes a mod b with a result in [0, b), matching floorDiv
// such that floorDiv(a,b)*b + floorMod(a,b) == a.
func floorMod(a, b int32) int32 {
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

// RegionOf maps a chunk index to the index of the region that owns it,
// using floored division so that negative chunk indices map to negative
// region indices rather than wrapping toward zero.
func RegionOf(ci ChunkIndex, regionWidth int32) RegionIndex {
	return RegionIndex{
		X: floorDiv(ci.X, regionWidth),
		Y: floorDiv(ci.Y, regionWidth),
	}
}

// LocalOf maps a chunk index to its slot within its owning region.
func LocalOf(ci ChunkIndex, regionWidth int32) RegionLocalIndex {
	return RegionLocalIndex{
		X: floorMod(ci.X, regionWidth),
		Y: floorMod(ci.Y, regionWidth),
	}
}

// SlotOffset computes the byte offset of a chunk's lookup-table slot,
// relative to the start of the lookup table.
func SlotOffset(li RegionLocalIndex, regionWidth int32) int64 {
	return 2 * int64(li.Y*regionWidth+li.X)
}

// LookupTableSize returns the fixed size, in bytes, of a region's lookup
// table: two bytes per chunk slot.
func LookupTableSize(regionWidth int32) int64 {
	return 2 * int64(regionWidth) * int64(regionWidth)
}
