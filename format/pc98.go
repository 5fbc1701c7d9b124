package format

import (
	"encoding/binary"
	"fmt"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
	"github.com/sergev/fdimage/host"
)

// pc98fdiHeaderSize is the fixed 32-byte FDI header img.c reads before
// the sector data: zero, density, header_size, image_body_size,
// sector_size_bytes, nr_secs, nr_sides, cyls, all little-endian uint32s.
const pc98fdiHeaderSize = 32

// OpenPC98FDI implements img.c's pc98fdi_open: a 32-byte header gives the
// geometry directly (no size-table lookup), with gap3/rpm picked by the
// header's density byte (0x30 = 300rpm/gap3=84, else 360rpm/gap3=116) and
// sector-size code picked by whether sectors are 512 bytes (no=2) or not
// (no=3, the 1KB-sector variant). Gated on the .fdi extension.
func OpenPC98FDI(f fsio.File, size int64) (*geometry.Image, error) {
	if size < pc98fdiHeaderSize {
		return nil, fmt.Errorf("%w: file too small for FDI header", ferr.ErrOpenMismatch)
	}
	buf := make([]byte, pc98fdiHeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	density := binary.LittleEndian.Uint32(buf[4:8])
	headerSize := binary.LittleEndian.Uint32(buf[8:12])
	sectorSizeBytes := binary.LittleEndian.Uint32(buf[16:20])
	nrSecs := binary.LittleEndian.Uint32(buf[20:24])
	nrSides := binary.LittleEndian.Uint32(buf[24:28])
	cyls := binary.LittleEndian.Uint32(buf[28:32])

	layout := geometry.SimpleLayout{
		NrSectors:  int(nrSecs),
		Base:       [2]int{1, 1},
		Interleave: 1,
		HasIAM:     true,
	}
	if density == 0x30 {
		layout.RPM = 300
		layout.Gap3 = 84
	} else {
		layout.RPM = 360
		layout.Gap3 = 116
	}
	if sectorSizeBytes == 512 {
		layout.No = 2
	} else {
		layout.No = 3
	}

	if cyls == 0 || nrSides == 0 || nrSecs == 0 {
		return nil, fmt.Errorf("%w: FDI header has zero geometry field", ferr.ErrOpenMismatch)
	}

	im := &geometry.Image{BaseOff: int64(headerSize)}
	arena := geometry.NewArena(0, 0)
	if err := geometry.InitTrackMap(im, int(cyls), int(nrSides), arena); err != nil {
		return nil, err
	}
	if err := geometry.ApplySimpleLayout(im, layout); err != nil {
		return nil, err
	}
	return im, nil
}

// OpenPC98HDM implements img.c's pc98hdm_open: raw_type_open over
// host.PC98.Table(), gated on the .hdm extension.
func OpenPC98HDM(f fsio.File, size int64) (*geometry.Image, error) {
	return openFromTable(host.PC98.Table(), size, 0)
}
