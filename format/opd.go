package format

import (
	"fmt"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
)

// OpenOPD implements img.c's opd_open: Opus Discovery images come in
// exactly two sizes (184320 = 40 cyl/1 side, 737280 = 80 cyl/2 sides),
// both with the same fixed 18-sector/256-byte/interleave-13/cskew-13
// layout. Gated on the .opd extension.
func OpenOPD(f fsio.File, size int64) (*geometry.Image, error) {
	var nrCyls, nrSides int
	switch size {
	case 184320:
		nrCyls, nrSides = 40, 1
	case 737280:
		nrCyls, nrSides = 80, 2
	default:
		return nil, fmt.Errorf("%w: unrecognized OPD image size %d", ferr.ErrOpenMismatch, size)
	}

	layout := geometry.SimpleLayout{
		NrSectors:  18,
		No:         1, // 256-byte
		HasIAM:     true,
		Gap3:       12,
		Base:       [2]int{0, 0},
		Interleave: 13,
		CSkew:      13,
	}
	im := &geometry.Image{}
	arena := geometry.NewArena(0, 0)
	if err := geometry.InitTrackMap(im, nrCyls, nrSides, arena); err != nil {
		return nil, err
	}
	if err := geometry.ApplySimpleLayout(im, layout); err != nil {
		return nil, err
	}
	return im, nil
}
