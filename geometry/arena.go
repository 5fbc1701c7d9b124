package geometry

import (
	"fmt"

	"github.com/sergev/fdimage/ferr"
)

// Arena is the Go-native replacement for the source's bump-style
// top-of-buffer allocator: the original packed trk_map/sec_map/sec_info/
// trk_info tables beneath a shared read-data buffer, downward from its top,
// to save RAM on an embedded target. Here the tables are just owned slices
// growing on an ordinary Go heap, but Arena still enforces the same
// "tables must leave room for a primary sector buffer" contract via an
// explicit Reserved budget, instead of hard-coding the source's 1 KB
// literal. Bounds are checked on every table-growing call so a caller
// cannot build an image whose tables would have overflowed the original's
// shared buffer.
type Arena struct {
	// Budget is the total number of bytes the packed tables (trk_map +
	// sec_map + sec_info + trk_info) are allowed to occupy.
	Budget int
	// Reserved is how many of those bytes must remain free for the
	// primary sector read buffer; defaults to 1024 to match the source.
	Reserved int

	used int
}

// NewArena creates an Arena with the given total budget and reserved
// floor. A zero reserved defaults to 1024, matching the source's literal.
func NewArena(budget, reserved int) *Arena {
	if reserved == 0 {
		reserved = 1024
	}
	return &Arena{Budget: budget, Reserved: reserved}
}

// Alloc charges n bytes against the arena, failing FORMAT-INVALID if doing
// so would leave fewer than Reserved bytes of budget free.
func (a *Arena) Alloc(n int) error {
	if a.Budget > 0 && a.used+n > a.Budget-a.Reserved {
		return fmt.Errorf("%w: table arena overflow: need %d more bytes, only %d available (reserved %d)",
			ferr.ErrFormatInvalid, n, a.Budget-a.Reserved-a.used, a.Reserved)
	}
	a.used += n
	return nil
}

// Used returns the number of bytes charged so far.
func (a *Arena) Used() int { return a.used }

// InitTrackMap allocates and zero-fills im.TrkMap for the given geometry,
// per §4.1's init_track_map contract. It rejects invalid side/cylinder
// counts before touching the arena.
func InitTrackMap(im *Image, nrCyls, nrSides int, arena *Arena) error {
	if nrSides != 1 && nrSides != 2 {
		return fmt.Errorf("%w: nr_sides must be 1 or 2, got %d", ferr.ErrFormatInvalid, nrSides)
	}
	if nrCyls < 1 || nrCyls > MaxCyls {
		return fmt.Errorf("%w: nr_cyls must be in [1,%d], got %d", ferr.ErrFormatInvalid, MaxCyls, nrCyls)
	}
	if arena == nil {
		arena = NewArena(0, 0) // unbounded; still enforces Reserved=1024 budget semantics if Budget>0
	}
	n := nrCyls * nrSides
	if err := arena.Alloc(n); err != nil {
		return err
	}
	im.NrCyls = nrCyls
	im.NrSides = nrSides
	im.TrkMap = make([]int, n)
	im.arena = arena
	return nil
}

// AddTrackLayout prepends a new TrackDescriptor with nrSectors sectors,
// shifting every existing descriptor's SecOff up by nrSectors (since the
// new layout's sectors occupy the low end of SecInfo), and returns the
// index of the new descriptor in im.TrkInfo. This mirrors the source's
// add_track_layout, which grows the sec_info/trk_info tables downward from
// the heap top as new layouts are discovered by an opener.
func AddTrackLayout(im *Image, nrSectors int) (int, error) {
	if nrSectors > MaxSectorsPerTrack {
		return 0, fmt.Errorf("%w: track has %d sectors, max %d", ferr.ErrFormatInvalid, nrSectors, MaxSectorsPerTrack)
	}
	if im.arena == nil {
		im.arena = NewArena(0, 0)
	}
	if err := im.arena.Alloc(nrSectors*int(sectorDescriptorSize) + int(trackDescriptorSize)); err != nil {
		return 0, err
	}

	for i := range im.TrkInfo {
		im.TrkInfo[i].SecOff += nrSectors
	}
	im.SecInfo = append(make([]SectorDescriptor, nrSectors), im.SecInfo...)
	// Matches add_track_layout's memset-then-defaults: interleave=1,
	// gap_2=gap_3=gap_4a=-1 ("auto"), so an opener that only overrides
	// gap_3 (e.g. ibm_3174_open) still gets auto gap_2/gap_4a rather than
	// a literal zero-byte gap.
	im.TrkInfo = append([]TrackDescriptor{{
		NrSectors:  nrSectors,
		SecOff:     0,
		Interleave: 1,
		Gap2:       -1,
		Gap3:       -1,
		Gap4A:      -1,
	}}, im.TrkInfo...)
	return 0, nil
}

// sectorDescriptorSize/trackDescriptorSize are the nominal packed sizes
// the source's heap allocator would have charged; kept only so Arena
// budgets (when set) reject the same oversize layouts the source would
// have.
const (
	sectorDescriptorSize = 2
	trackDescriptorSize  = 16
)

// FinaliseTrackMap walks every (cyl, side) in the map and asserts that
// every sector referenced has a size code within range, per §4.1's
// finalise_track_map.
func FinaliseTrackMap(im *Image) error {
	for cyl := 0; cyl < im.NrCyls; cyl++ {
		for side := 0; side < im.NrSides; side++ {
			trk, err := im.TrackAt(cyl, side)
			if err != nil {
				return err
			}
			for _, s := range im.Sectors(trk) {
				if s.N > MaxSizeCode {
					return fmt.Errorf("%w: sector size code %d > %d at cyl %d side %d",
						ferr.ErrFormatInvalid, s.N, MaxSizeCode, cyl, side)
				}
			}
		}
	}
	return nil
}
