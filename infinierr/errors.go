// Package infinierr defines the closed set of error kinds surfaced by the
// region and world packages. The sentinels for kinds that carry an index
// (no chunk in world, no chunk in savefile, chunk already loaded) are
// returned wrapped in a typed error, so that a caller-visible error
// carries the offending index while still satisfying errors.Is against
// the sentinel; the remaining sentinels are returned bare.
package infinierr

import (
	"errors"
	"fmt"

	"github.com/bwkimmel/infinigen/coords"
)

// Sentinels for the error kinds that carry no index of their own.
var (
	// ErrRecordGrewPastAllocation is returned by Region.WriteChunk when an
	// updated payload no longer fits in its previously reserved sectors.
	ErrRecordGrewPastAllocation = errors.New("infinigen: record grew past its allocated sectors")

	// ErrRegionFull is returned when a new record's sector offset or
	// count would exceed the single-byte lookup-table field width.
	ErrRegionFull = errors.New("infinigen: region has no room for a new sector-aligned record")

	// ErrChunkAlreadyLoaded is returned when the residency controller is
	// asked to load a chunk index that is already resident.
	ErrChunkAlreadyLoaded = errors.New("infinigen: chunk already loaded")

	// ErrNoChunkInWorld is returned when the residency controller is
	// asked to unload a chunk index that is not resident.
	ErrNoChunkInWorld = errors.New("infinigen: chunk not present in resident set")

	// ErrNoChunkInSavefile is returned by Region.ReadChunk when the
	// lookup table has no record for the requested slot.
	ErrNoChunkInSavefile = errors.New("infinigen: no saved record for that region slot")

	// ErrDirectoryLocked is returned when a save directory is already
	// owned by another open World.
	ErrDirectoryLocked = errors.New("infinigen: save directory is locked by another process")
)

// NoChunkInSavefileError reports which region-local slot had no record.
type NoChunkInSavefileError struct {
	Local coords.RegionLocalIndex
}

func (e *NoChunkInSavefileError) Error() string {
	return fmt.Sprintf("infinigen: no saved record for slot %v", e.Local)
}

func (e *NoChunkInSavefileError) Unwrap() error { return ErrNoChunkInSavefile }

// ChunkAlreadyLoadedError reports which chunk index was already resident.
type ChunkAlreadyLoadedError struct {
	Chunk coords.ChunkIndex
}

func (e *ChunkAlreadyLoadedError) Error() string {
	return fmt.Sprintf("infinigen: chunk %v already loaded", e.Chunk)
}

func (e *ChunkAlreadyLoadedError) Unwrap() error { return ErrChunkAlreadyLoaded }

// NoChunkInWorldError reports which chunk index was not resident.
type NoChunkInWorldError struct {
	Chunk coords.ChunkIndex
}

func (e *NoChunkInWorldError) Error() string {
	return fmt.Sprintf("infinigen: chunk %v not resident", e.Chunk)
}

func (e *NoChunkInWorldError) Unwrap() error { return ErrNoChunkInWorld }

// IOError wraps an underlying file I/O failure.
type IOError struct {
	Cause error
}

func (e *IOError) Error() string { return fmt.Sprintf("infinigen: i/o error: %v", e.Cause) }
func (e *IOError) Unwrap() error { return e.Cause }

// WrapIO wraps err as an IOError, or returns nil if err is nil.
func WrapIO(err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Cause: err}
}

// CodecError wraps an underlying (de)serializer failure.
type CodecError struct {
	Cause error
}

func (e *CodecError) Error() string { return fmt.Sprintf("infinigen: codec error: %v", e.Cause) }
func (e *CodecError) Unwrap() error { return e.Cause }

// WrapCodec wraps err as a CodecError, or returns nil if err is nil.
func WrapCodec(err error) error {
	if err == nil {
		return nil
	}
	return &CodecError{Cause: err}
}
