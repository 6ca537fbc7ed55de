// Package world implements the residency controller: the in-memory set
// of loaded chunks, the observer-driven windowed load/unload policy, and
// the save/load entry points a caller uses to drive a world.
package world

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/bwkimmel/infinigen/coords"
	"github.com/bwkimmel/infinigen/infinierr"
	"github.com/bwkimmel/infinigen/manager"
	"github.com/bwkimmel/infinigen/region"
	"github.com/bwkimmel/infinigen/xlog"
)

var log = xlog.New("world")

// Codec is the caller-provided contract for one payload type T: how to
// turn it into bytes, how to read it back, and how to manufacture one
// for a chunk index nobody has ever saved.
//
// CollectAuxiliary and DistributeAuxiliary are optional. If set,
// CollectAuxiliary is called just before Encode on unload, letting the
// caller fold any auxiliary per-chunk state (entities at world positions
// inside the chunk's footprint, say) into the payload that gets
// persisted. DistributeAuxiliary is called just after a payload becomes
// resident (whether freshly generated or decoded from disk), letting the
// caller pull that same auxiliary state back out into its own
// world-wide bookkeeping.
type Codec[T any] struct {
	Encode   func(T) ([]byte, error)
	Decode   func([]byte) (T, error)
	Generate func(coords.ChunkIndex) (T, error)

	CollectAuxiliary    func(coords.ChunkIndex, T) T
	DistributeAuxiliary func(coords.ChunkIndex, T)
}

// Config bundles the on-disk geometry with the residency policy.
type Config struct {
	Region      region.Config
	UpdateRadius int32
}

// DefaultConfig returns the baseline on-disk geometry with an update
// radius of 2.
func DefaultConfig() Config {
	return Config{Region: region.DefaultConfig(), UpdateRadius: 2}
}

// World is the residency controller for one save directory and one
// payload type T. It is not safe for concurrent use: every mutating
// operation must run on a single goroutine, matching the single-threaded
// cooperative model this package implements.
type World[T any] struct {
	dir      string
	cfg      Config
	codec    Codec[T]
	mgr      *manager.Manager
	resident map[coords.ChunkIndex]T
	observer coords.ChunkIndex

	lockFile *os.File
	closed   bool
}

// NewWorld opens (creating if necessary) a save directory and returns a
// World with no chunks resident and the observer at the origin.
func NewWorld[T any](dir string, cfg Config, codec Codec[T]) (*World[T], error) {
	if cfg.Region.SectorSize <= 0 || cfg.Region.RegionWidth <= 0 {
		return nil, fmt.Errorf("world: invalid region geometry %+v", cfg.Region)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, infinierr.WrapIO(err)
	}
	lockFile, err := acquireDirLock(dir)
	if err != nil {
		return nil, err
	}
	w := &World[T]{
		dir:      dir,
		cfg:      cfg,
		codec:    codec,
		mgr:      manager.New(dir, cfg.Region),
		resident: make(map[coords.ChunkIndex]T),
		lockFile: lockFile,
	}
	log.Infof("opened world at %s", dir)
	return w, nil
}

// LoadWorld opens an existing save directory. The on-disk format makes
// no distinction between "new" and "existing" saves at the storage
// layer (region files are created lazily either way), so LoadWorld is a
// thin alias for NewWorld kept to mirror the caller-facing operation
// named in the library surface.
func LoadWorld[T any](dir string, cfg Config, codec Codec[T]) (*World[T], error) {
	return NewWorld(dir, cfg, codec)
}

func acquireDirLock(dir string) (*os.File, error) {
	path := filepath.Join(dir, ".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, infinierr.WrapIO(err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, infinierr.ErrDirectoryLocked
	}
	return f, nil
}

// Close releases the world's exclusive hold on its save directory and
// closes every open region handle. It does not save resident chunks;
// call Save first if that is wanted.
func (w *World[T]) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.mgr.CloseAll()
	syscall.Flock(int(w.lockFile.Fd()), syscall.LOCK_UN)
	w.lockFile.Close()
	return err
}

// SetObserver moves the observer to the given chunk index. It takes
// effect on the next UpdateChunks call.
func (w *World[T]) SetObserver(ci coords.ChunkIndex) {
	w.observer = ci
}

// CellAt returns the resident payload at ci, if any.
func (w *World[T]) CellAt(ci coords.ChunkIndex) (T, bool) {
	v, ok := w.resident[ci]
	return v, ok
}

// CellMutAt lets a caller mutate the resident payload at ci. Because Go
// map values are not addressable, it returns the current value and a
// setter that stores an updated value back into the resident map, not a
// pointer.
func (w *World[T]) CellMutAt(ci coords.ChunkIndex) (T, func(T), bool) {
	v, ok := w.resident[ci]
	if !ok {
		var zero T
		return zero, nil, false
	}
	return v, func(updated T) { w.resident[ci] = updated }, true
}

// ResidentCount returns the number of currently resident chunks.
func (w *World[T]) ResidentCount() int {
	return len(w.resident)
}

// ChunkLoaded reports whether ci is currently resident.
func (w *World[T]) ChunkLoaded(ci coords.ChunkIndex) bool {
	_, ok := w.resident[ci]
	return ok
}

// targetWindow computes the diamond-shaped (L1-ball) set of chunk
// indices within radius of center: the center itself, plus for each of
// the four sign quadrants and each ring 1..=radius, the indices swept by
// (dr-i)*sx, i*sy for i in 0..=dr.
func targetWindow(center coords.ChunkIndex, radius int32) map[coords.ChunkIndex]struct{} {
	window := map[coords.ChunkIndex]struct{}{center: {}}
	signs := [4][2]int32{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	for _, s := range signs {
		sx, sy := s[0], s[1]
		for dr := int32(1); dr <= radius; dr++ {
			for i := int32(0); i <= dr; i++ {
				ci := coords.ChunkIndex{
					X: center.X + (dr-i)*sx,
					Y: center.Y + i*sy,
				}
				window[ci] = struct{}{}
			}
		}
	}
	return window
}

// UpdateChunks is the central tick: it computes the target window around
// the observer, loads everything newly inside it, unloads everything
// that fell outside it, and prunes any region left with nothing dirty.
// Within one call every load completes before any unload begins, so
// chunks at the boundary of a moving window are never thrashed within a
// single tick.
func (w *World[T]) UpdateChunks() error {
	target := targetWindow(w.observer, w.cfg.UpdateRadius)

	for ci := range target {
		if _, ok := w.resident[ci]; !ok {
			if err := w.Load(ci); err != nil {
				return err
			}
		}
	}
	for ci := range w.resident {
		if _, ok := target[ci]; !ok {
			if err := w.Unload(ci); err != nil {
				return err
			}
		}
	}
	return w.mgr.PruneEmpty()
}

// Load brings ci into residency: read its saved record, or generate a
// fresh payload if none exists.
func (w *World[T]) Load(ci coords.ChunkIndex) error {
	if _, ok := w.resident[ci]; ok {
		return &infinierr.ChunkAlreadyLoadedError{Chunk: ci}
	}

	r, err := w.mgr.GetForChunk(ci)
	if err != nil {
		return err
	}

	raw, err := r.ReadChunk(ci)
	if err == nil {
		payload, decErr := w.codec.Decode(raw)
		if decErr != nil {
			return infinierr.WrapCodec(decErr)
		}
		w.resident[ci] = payload
		if w.codec.DistributeAuxiliary != nil {
			w.codec.DistributeAuxiliary(ci, payload)
		}
		return nil
	}

	if !errors.Is(err, infinierr.ErrNoChunkInSavefile) {
		return err
	}

	payload, genErr := w.codec.Generate(ci)
	if genErr != nil {
		return genErr
	}
	w.resident[ci] = payload
	if err := w.mgr.NotifyChunkCreation(ci); err != nil {
		delete(w.resident, ci)
		return err
	}
	if w.codec.DistributeAuxiliary != nil {
		w.codec.DistributeAuxiliary(ci, payload)
	}
	return nil
}

// Unload removes ci from residency and writes it back to its region.
func (w *World[T]) Unload(ci coords.ChunkIndex) error {
	payload, ok := w.resident[ci]
	if !ok {
		return &infinierr.NoChunkInWorldError{Chunk: ci}
	}
	delete(w.resident, ci)

	if w.codec.CollectAuxiliary != nil {
		payload = w.codec.CollectAuxiliary(ci, payload)
	}

	encoded, err := w.codec.Encode(payload)
	if err != nil {
		w.resident[ci] = payload
		return infinierr.WrapCodec(err)
	}
	padded := region.PadToSector(encoded, w.cfg.Region.SectorSize)

	r, err := w.mgr.GetForChunk(ci)
	if err != nil {
		w.resident[ci] = payload
		return err
	}
	if err := r.WriteChunk(ci, padded); err != nil {
		w.resident[ci] = payload
		return err
	}
	return nil
}

// Save unloads every currently resident chunk. It stops at the first
// failure and returns it; chunks already written remain on disk (save is
// a best-effort batch, not a transaction).
func (w *World[T]) Save() error {
	indices := make([]coords.ChunkIndex, 0, len(w.resident))
	for ci := range w.resident {
		indices = append(indices, ci)
	}
	for _, ci := range indices {
		if err := w.Unload(ci); err != nil {
			return err
		}
	}
	return w.mgr.PruneEmpty()
}
