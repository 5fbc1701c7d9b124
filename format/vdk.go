package format

import (
	"encoding/binary"
	"fmt"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
)

const vdkHeaderSize = 12

// OpenVDK implements §4.4's VDK opener (Commodore 1541 disk image):
// "dk" magic at offset 0, 12+ byte header giving track/side counts and
// the header length itself (so extended headers are skipped correctly).
func OpenVDK(f fsio.File, size int64) (*geometry.Image, error) {
	if size < vdkHeaderSize {
		return nil, fmt.Errorf("%w: file too small for VDK header", ferr.ErrOpenMismatch)
	}
	buf := make([]byte, vdkHeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	if buf[0] != 'd' || buf[1] != 'k' {
		return nil, fmt.Errorf("%w: VDK magic mismatch", ferr.ErrOpenMismatch)
	}

	headerLen := binary.LittleEndian.Uint16(buf[6:8])
	if headerLen < vdkHeaderSize {
		headerLen = vdkHeaderSize
	}
	nrCyls := int(buf[8])
	nrSides := int(buf[9])
	if nrCyls == 0 {
		nrCyls = 35
	}
	if nrSides == 0 {
		nrSides = 1
	}

	im := &geometry.Image{BaseOff: int64(headerLen)}
	arena := geometry.NewArena(0, 0)
	if err := geometry.InitTrackMap(im, nrCyls, nrSides, arena); err != nil {
		return nil, err
	}
	layout := geometry.SimpleLayout{
		NrSectors: 17, No: 0, DataRate: 250000, HasIAM: true,
		Base: [2]int{0, 0}, Interleave: 1,
	}
	if err := geometry.ApplySimpleLayout(im, layout); err != nil {
		return nil, err
	}
	return im, nil
}
