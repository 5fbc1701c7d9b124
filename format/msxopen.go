package format

import (
	"fmt"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
	"github.com/sergev/fdimage/host"
)

// OpenMSX implements img.c's msx_open, selected by the MSX host hint:
// 320k and 360k images are ambiguous between an 80-cylinder 1-sided disk
// and a 40-cylinder 2-sided one, so it first tries to disambiguate via
// the boot sector's BPB (sector size, heads, sectors/track, total
// sectors all self-consistent); failing that, it falls back to
// host.MSX.Table()'s fixed two rows; if even that misses, it returns
// OPEN-MISMATCH so the caller's generic opener gets a turn, matching
// img.c's "caller falls back to the generic list" comment.
func OpenMSX(f fsio.File, size int64) (*geometry.Image, error) {
	if size == 320*1024 || size == 360*1024 {
		b, err := readBPB(f)
		if err == nil && b.BytesPerSec == 512 &&
			(b.NumHeads == 1 || b.NumHeads == 2) &&
			int64(b.TotSecSmall) == size/int64(b.BytesPerSec) &&
			(b.SecPerTrack == 8 || b.SecPerTrack == 9) {
			nrSides := int(b.NumHeads)
			nrCyls := 80
			if nrSides != 1 {
				nrCyls = 40
			}
			layout := geometry.SimpleLayout{
				NrSectors:  int(b.SecPerTrack),
				No:         2,
				HasIAM:     true,
				Base:       [2]int{1, 1},
				Interleave: 1,
			}
			im := &geometry.Image{}
			arena := geometry.NewArena(0, 0)
			if err := geometry.InitTrackMap(im, nrCyls, nrSides, arena); err != nil {
				return nil, err
			}
			if err := geometry.ApplySimpleLayout(im, layout); err == nil {
				return im, nil
			}
		}
	}

	if im, err := openFromTable(host.MSX.Table(), size, 0); err == nil {
		return im, nil
	}

	return nil, fmt.Errorf("%w: MSX BPB/table lookup failed, deferring to generic", ferr.ErrOpenMismatch)
}
