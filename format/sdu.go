package format

import (
	"encoding/binary"
	"fmt"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
)

// sduHeaderSize is the 46-byte SABDU header img.c skips: app[21]+ver[5]+
// flags+type+max{c,h,s}+used{c,h,s}+sec_size+trk_size, all before the
// sector data begins.
const sduHeaderSize = 46

// OpenSDU implements img.c's sdu_open: reads (cyls, heads, sectors/track)
// from the header's "max" geometry fields, accepts only the standard PC
// sizes (9/18/36 sectors/track, 40 or 80 cyls, 1 or 2 sides), and skips
// the 46-byte header. Gated on the .sdu extension.
func OpenSDU(f fsio.File, size int64) (*geometry.Image, error) {
	if size < sduHeaderSize {
		return nil, fmt.Errorf("%w: file too small for SABDU header", ferr.ErrOpenMismatch)
	}
	buf := make([]byte, sduHeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	nrCyls := int(binary.LittleEndian.Uint16(buf[30:32]))
	nrSides := int(binary.LittleEndian.Uint16(buf[32:34]))
	nrSectors := int(binary.LittleEndian.Uint16(buf[34:36]))

	if (nrCyls != 40 && nrCyls != 80) ||
		(nrSides != 1 && nrSides != 2) ||
		(nrSectors != 9 && nrSectors != 18 && nrSectors != 36) {
		return nil, fmt.Errorf("%w: SABDU geometry is not a standard PC size", ferr.ErrOpenMismatch)
	}

	layout := geometry.SimpleLayout{
		NrSectors:  nrSectors,
		No:         2, // 512-byte
		HasIAM:     true,
		Gap3:       84,
		Base:       [2]int{1, 1},
		Interleave: 1,
	}
	im := &geometry.Image{BaseOff: sduHeaderSize}
	arena := geometry.NewArena(0, 0)
	if err := geometry.InitTrackMap(im, nrCyls, nrSides, arena); err != nil {
		return nil, err
	}
	if err := geometry.ApplySimpleLayout(im, layout); err != nil {
		return nil, err
	}
	return im, nil
}
