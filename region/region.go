// Package region implements the on-disk region-file format: a fixed-size
// lookup table followed by a sequence of sector-aligned chunk records.
// A Region owns exactly one open file handle and the set of chunk
// indices dirty with respect to that file.
package region

import (
	"io"
	"os"
	"path/filepath"

	"github.com/bwkimmel/infinigen/coords"
	"github.com/bwkimmel/infinigen/infinierr"
	"github.com/bwkimmel/infinigen/xlog"
)

var log = xlog.New("region")

// Config fixes the geometry of a region file. SectorSize and RegionWidth
// must be the same for every region in a save directory; nothing in this
// package enforces that across regions, it is a caller-level invariant.
type Config struct {
	// SectorSize is the on-disk alignment unit for chunk records, in
	// bytes. Must be a power of two. Baseline 4096.
	SectorSize int64
	// RegionWidth is the number of chunks along one edge of a region.
	// RegionWidth*RegionWidth must not exceed 65535. Baseline 32.
	RegionWidth int32
}

// DefaultConfig returns the baseline geometry described in the on-disk
// format: 4096-byte sectors, 32x32 chunks per region.
func DefaultConfig() Config {
	return Config{SectorSize: 4096, RegionWidth: 32}
}

func (c Config) lookupTableSize() int64 {
	return coords.LookupTableSize(c.RegionWidth)
}

// Filename returns the on-disk filename for a region, "r.{rx}.{ry}.sr".
func Filename(index coords.RegionIndex) string {
	return "r." + itoa(index.X) + "." + itoa(index.Y) + ".sr"
}

func itoa(v int32) string {
	neg := v < 0
	if neg {
		v = -v
	}
	if v == 0 {
		return "0"
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Region is one open region file plus its dirty set.
type Region struct {
	cfg    Config
	index  coords.RegionIndex
	path   string
	f      *os.File
	dirty  map[coords.ChunkIndex]struct{}
	closed bool
}

// Open opens the region file for index inside dir, creating it
// (zero-filled lookup table) if it does not already exist.
func Open(dir string, index coords.RegionIndex, cfg Config) (*Region, error) {
	path := filepath.Join(dir, Filename(index))
	_, statErr := os.Stat(path)
	existed := statErr == nil

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, infinierr.WrapIO(err)
	}

	if !existed {
		zeros := make([]byte, cfg.lookupTableSize())
		if _, err := f.Write(zeros); err != nil {
			f.Close()
			return nil, infinierr.WrapIO(err)
		}
		log.Debugf("created region %v at %s", index, path)
	}

	return &Region{
		cfg:   cfg,
		index: index,
		path:  path,
		f:     f,
		dirty: make(map[coords.ChunkIndex]struct{}),
	}, nil
}

// Close closes the underlying file handle. The on-disk content persists.
func (r *Region) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return infinierr.WrapIO(r.f.Close())
}

// Index returns the region's own index.
func (r *Region) Index() coords.RegionIndex { return r.index }

// readSlot reads the raw (sectorOffset, sectorCount) pair for li.
func (r *Region) readSlot(li coords.RegionLocalIndex) (sectorOffset, sectorCount uint8, err error) {
	off := coords.SlotOffset(li, r.cfg.RegionWidth)
	buf := make([]byte, 2)
	if _, err := r.f.ReadAt(buf, off); err != nil {
		return 0, 0, infinierr.WrapIO(err)
	}
	return buf[0], buf[1], nil
}

// writeSlot writes the (sectorOffset, sectorCount) pair for li.
func (r *Region) writeSlot(li coords.RegionLocalIndex, sectorOffset, sectorCount uint8) error {
	off := coords.SlotOffset(li, r.cfg.RegionWidth)
	buf := []byte{sectorOffset, sectorCount}
	if _, err := r.f.WriteAt(buf, off); err != nil {
		return infinierr.WrapIO(err)
	}
	return nil
}

// ReadChunk reads the raw, sector-padded bytes for ci. The caller (the
// residency controller) must not call this for a chunk already in the
// dirty set; the in-memory copy is authoritative in that case.
//
// On success ci is inserted into the dirty set: a chunk read back into
// memory may be mutated before its next write-back, so it is considered
// unsaved from the moment it is read.
func (r *Region) ReadChunk(ci coords.ChunkIndex) ([]byte, error) {
	li := coords.LocalOf(ci, r.cfg.RegionWidth)
	sectorOffset, sectorCount, err := r.readSlot(li)
	if err != nil {
		return nil, err
	}
	if sectorCount == 0 {
		return nil, &infinierr.NoChunkInSavefileError{Local: li}
	}

	byteOffset := r.cfg.lookupTableSize() + int64(sectorOffset)*r.cfg.SectorSize
	size := int64(sectorCount) * r.cfg.SectorSize
	buf := make([]byte, size)
	if _, err := r.f.ReadAt(buf, byteOffset); err != nil && err != io.EOF {
		return nil, infinierr.WrapIO(err)
	}

	r.dirty[ci] = struct{}{}
	return buf, nil
}

// WriteChunk writes already-encoded, sector-padded bytes for ci. The
// caller must ensure ci is in the dirty set (it is a programmer error
// to write a chunk that was never read or created through this region;
// this mirrors the core's promise to panic only on internal invariant
// violations, never on external I/O or codec failures).
//
// encoded must already be zero-padded to a multiple of SectorSize by the
// caller (the codec boundary's responsibility, not the region's).
func (r *Region) WriteChunk(ci coords.ChunkIndex, encoded []byte) error {
	if _, ok := r.dirty[ci]; !ok {
		panic("region: WriteChunk called for a chunk not in the dirty set: " + ci.String())
	}
	if int64(len(encoded))%r.cfg.SectorSize != 0 {
		panic("region: WriteChunk called with unpadded data")
	}
	sectorCount := len(encoded) / int(r.cfg.SectorSize)
	if sectorCount < 1 {
		panic("region: WriteChunk called with zero-length payload")
	}

	li := coords.LocalOf(ci, r.cfg.RegionWidth)
	existingOffset, existingCount, err := r.readSlot(li)
	if err != nil {
		return err
	}

	switch {
	case existingCount == 0:
		if err := r.appendChunk(li, encoded, sectorCount); err != nil {
			return err
		}
	case int64(existingCount)*r.cfg.SectorSize >= int64(len(encoded)):
		byteOffset := r.cfg.lookupTableSize() + int64(existingOffset)*r.cfg.SectorSize
		if _, err := r.f.WriteAt(encoded, byteOffset); err != nil {
			return infinierr.WrapIO(err)
		}
		// Slot's sector_count is left unchanged: the unused trailing
		// sectors remain reserved, no compaction on write.
	default:
		return infinierr.ErrRecordGrewPastAllocation
	}

	delete(r.dirty, ci)
	return nil
}

func (r *Region) appendChunk(li coords.RegionLocalIndex, encoded []byte, sectorCount int) error {
	if sectorCount > 255 {
		return infinierr.ErrRegionFull
	}
	eof, err := r.f.Seek(0, io.SeekEnd)
	if err != nil {
		return infinierr.WrapIO(err)
	}
	sectorOffsetField := (eof - r.cfg.lookupTableSize()) / r.cfg.SectorSize
	if sectorOffsetField > 255 {
		return infinierr.ErrRegionFull
	}

	if _, err := r.f.Write(encoded); err != nil {
		return infinierr.WrapIO(err)
	}
	return r.writeSlot(li, uint8(sectorOffsetField), uint8(sectorCount))
}

// MarkCreated inserts ci into the dirty set without touching disk. Used
// when the residency controller generates a brand-new payload for an
// index the region has never seen.
func (r *Region) MarkCreated(ci coords.ChunkIndex) {
	r.dirty[ci] = struct{}{}
}

// IsEmpty reports whether the region has no unsaved chunks, the signal
// the region manager uses to decide eviction.
func (r *Region) IsEmpty() bool {
	return len(r.dirty) == 0
}

// PadToSector right-pads data with zero bytes to the next multiple of
// sectorSize. It is the codec-boundary helper described by the format:
// payload bytes followed by zero padding up to a sector boundary.
func PadToSector(data []byte, sectorSize int64) []byte {
	rem := int64(len(data)) % sectorSize
	if rem == 0 {
		return data
	}
	padded := make([]byte, int64(len(data))+sectorSize-rem)
	copy(padded, data)
	return padded
}
