package region

import (
	"fmt"
	"os"
	"sort"

	"github.com/bwkimmel/infinigen/infinierr"
)

// Compact removes orphaned sectors from a closed region file: sectors
// that lie past the lookup table but are not covered by any slot's
// (offset, count) range, such as a record body whose slot update never
// happened. Every sector a slot covers is kept, including the unused
// trailing sectors of a record rewritten in place with fewer sectors,
// since writing in place never shrinks a slot's count. Compact is a
// maintenance operation, not part of the read/write hot path; callers
// must ensure the region is not concurrently open.
func Compact(path string, cfg Config) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return infinierr.WrapIO(err)
	}
	defer f.Close()

	tableSize := cfg.lookupTableSize()
	numSlots := int(cfg.RegionWidth) * int(cfg.RegionWidth)

	raw := make([]byte, tableSize)
	if _, err := f.ReadAt(raw, 0); err != nil {
		return fmt.Errorf("region: cannot read lookup table: %w", infinierr.WrapIO(err))
	}

	type slot struct {
		offset, count uint8
	}
	slots := make([]slot, numSlots)
	for i := 0; i < numSlots; i++ {
		slots[i] = slot{offset: raw[2*i], count: raw[2*i+1]}
	}

	// sectors lists every occupied sector index (relative to the end of
	// the lookup table). Unlike the teacher's fixed "first two sectors
	// always reserved" rule, this format reserves no sectors beyond the
	// lookup table prefix itself, which is addressed separately.
	var sectors []int32
	reloc := make(map[int32]int32)
	for _, s := range slots {
		if s.count == 0 {
			continue
		}
		start := int32(s.offset)
		end := start + int32(s.count)
		reloc[start] = -1
		for sector := start; sector < end; sector++ {
			sectors = append(sectors, sector)
		}
	}
	if len(sectors) == 0 {
		return f.Truncate(tableSize)
	}

	sort.Slice(sectors, func(i, j int) bool { return sectors[i] < sectors[j] })
	prev := int32(-1)
	for _, s := range sectors {
		if s == prev {
			return fmt.Errorf("region: overlapping sectors in %q", path)
		}
		prev = s
	}

	buf := make([]byte, cfg.SectorSize)
	for i, j := range sectors { // i = new sector index, j = old sector index
		if _, ok := reloc[j]; ok {
			reloc[j] = int32(i)
		}
		if int32(i) > j {
			return fmt.Errorf("region: cannot relocate sector later in file")
		}
		if int32(i) == j {
			continue
		}
		if _, err := f.ReadAt(buf, tableSize+int64(j)*cfg.SectorSize); err != nil {
			return fmt.Errorf("region: cannot read sector %d: %w", j, infinierr.WrapIO(err))
		}
		if _, err := f.WriteAt(buf, tableSize+int64(i)*cfg.SectorSize); err != nil {
			return fmt.Errorf("region: cannot write sector %d: %w", i, infinierr.WrapIO(err))
		}
	}

	for i, s := range slots {
		if s.count == 0 {
			continue
		}
		newStart, ok := reloc[int32(s.offset)]
		if !ok {
			return fmt.Errorf("region: cannot find new location for sector %d", s.offset)
		}
		raw[2*i] = byte(newStart)
		raw[2*i+1] = s.count
	}
	if _, err := f.WriteAt(raw, 0); err != nil {
		return fmt.Errorf("region: cannot write lookup table: %w", infinierr.WrapIO(err))
	}

	newSize := tableSize + int64(len(sectors))*cfg.SectorSize
	log.Debugf("compacting %s: %d sectors occupied", path, len(sectors))
	if err := f.Truncate(newSize); err != nil {
		return fmt.Errorf("region: cannot truncate: %w", infinierr.WrapIO(err))
	}
	return nil
}
