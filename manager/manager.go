// Package manager routes chunk indices to the region files that own them,
// lazily opening regions on first access and evicting them once they have
// nothing left to save.
package manager

import (
	"github.com/bwkimmel/infinigen/coords"
	"github.com/bwkimmel/infinigen/region"
	"github.com/bwkimmel/infinigen/xlog"
)

var log = xlog.New("manager")

// Manager owns the set of currently open regions for one save directory.
type Manager struct {
	dir     string
	cfg     region.Config
	regions map[coords.RegionIndex]*region.Region
}

// New returns a Manager with no regions yet open.
func New(dir string, cfg region.Config) *Manager {
	return &Manager{
		dir:     dir,
		cfg:     cfg,
		regions: make(map[coords.RegionIndex]*region.Region),
	}
}

// GetForChunk returns the region owning ci, opening it first if needed.
func (m *Manager) GetForChunk(ci coords.ChunkIndex) (*region.Region, error) {
	ri := coords.RegionOf(ci, m.cfg.RegionWidth)
	if r, ok := m.regions[ri]; ok {
		return r, nil
	}
	r, err := region.Open(m.dir, ri, m.cfg)
	if err != nil {
		return nil, err
	}
	log.Debugf("opened region %v", ri)
	m.regions[ri] = r
	return r, nil
}

// NotifyChunkCreation routes to the owning region's MarkCreated, opening
// the region first if it is not already loaded.
func (m *Manager) NotifyChunkCreation(ci coords.ChunkIndex) error {
	r, err := m.GetForChunk(ci)
	if err != nil {
		return err
	}
	r.MarkCreated(ci)
	return nil
}

// PruneEmpty closes every loaded region whose dirty set is empty. The
// on-disk content is unaffected; only the open file handle is released.
func (m *Manager) PruneEmpty() error {
	for ri, r := range m.regions {
		if !r.IsEmpty() {
			continue
		}
		if err := r.Close(); err != nil {
			return err
		}
		delete(m.regions, ri)
		log.Debugf("evicted empty region %v", ri)
	}
	return nil
}

// CloseAll force-closes every open region regardless of dirty state. Used
// when tearing down a World; callers are expected to have already saved
// anything they care about.
func (m *Manager) CloseAll() error {
	for ri, r := range m.regions {
		if err := r.Close(); err != nil {
			return err
		}
		delete(m.regions, ri)
	}
	return nil
}

// Len reports how many regions are currently open, mainly for tests and
// diagnostics.
func (m *Manager) Len() int {
	return len(m.regions)
}
