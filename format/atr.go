package format

import (
	"encoding/binary"
	"fmt"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
)

const atrMagic = 0x0296
const atrHeaderSize = 16

// atrHeader is the 16-byte Atari ATR header (§6.5): magic, image size in
// 16-byte paragraphs (low+high words), and the sector size.
type atrHeader struct {
	Magic     uint16
	SizeLo    uint16
	SecSize   uint16
	SizeHi    uint16
	_         [8]byte
}

// OpenATR implements §4.4's ATR opener: 16-byte header, magic 0x0296,
// SD/ED/SSDD disambiguated by total data size and the header's declared
// sector size, invert_data forced true, two track layouts (track 0 has
// three 128-byte sectors then size-no sectors; every other track is
// uniform).
func OpenATR(f fsio.File, size int64) (*geometry.Image, error) {
	if size < atrHeaderSize {
		return nil, fmt.Errorf("%w: file too small for ATR header", ferr.ErrOpenMismatch)
	}
	buf := make([]byte, atrHeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	var hdr atrHeader
	hdr.Magic = binary.LittleEndian.Uint16(buf[0:2])
	hdr.SizeLo = binary.LittleEndian.Uint16(buf[2:4])
	hdr.SecSize = binary.LittleEndian.Uint16(buf[4:6])
	hdr.SizeHi = binary.LittleEndian.Uint16(buf[6:8])
	if hdr.Magic != atrMagic {
		return nil, fmt.Errorf("%w: ATR magic mismatch", ferr.ErrOpenMismatch)
	}

	dataSize := int64(hdr.SizeLo) * 16
	dataSize |= int64(hdr.SizeHi) * 16 * 65536
	if dataSize <= 0 {
		dataSize = size - atrHeaderSize
	}

	var spt int
	isFM := hdr.SecSize == 128
	switch {
	case hdr.SecSize == 128 && dataSize > 40*18*128:
		spt = 26 // enhanced density
	case hdr.SecSize == 128:
		spt = 18 // single density
	default:
		spt = 18 // double density, 256-byte sectors
		isFM = false
	}

	no := uint8(0)
	if hdr.SecSize == 256 {
		no = 1
	}

	nrCyls := int(dataSize / (int64(spt) * int64(hdr.SecSize)))
	if nrCyls <= 0 {
		nrCyls = 40
	}

	im := &geometry.Image{BaseOff: atrHeaderSize}
	arena := geometry.NewArena(0, 0)
	if err := geometry.InitTrackMap(im, nrCyls, 1, arena); err != nil {
		return nil, err
	}

	rate := 260
	if isFM {
		rate = 130
	}

	uniformIdx, err := geometry.AddTrackLayout(im, spt)
	if err != nil {
		return nil, err
	}
	uniformIdx = 0
	for i := range im.Sectors(im.TrkInfo[uniformIdx]) {
		im.SecInfo[im.TrkInfo[uniformIdx].SecOff+i] = geometry.SectorDescriptor{R: byte(i + 1), N: no}
	}
	im.TrkInfo[uniformIdx].IsFM = isFM
	im.TrkInfo[uniformIdx].HasIAM = true
	im.TrkInfo[uniformIdx].DataRate = rate * 1000
	im.TrkInfo[uniformIdx].InvertData = true

	track0Idx := uniformIdx
	if no != 0 {
		t0, err := geometry.AddTrackLayout(im, spt)
		if err != nil {
			return nil, err
		}
		track0Idx = 0
		uniformIdx++
		secs := im.Sectors(im.TrkInfo[track0Idx])
		for i := range secs {
			n := no
			if i < 3 {
				n = 0 // track 0's first three sectors are always 128 bytes
			}
			secs[i] = geometry.SectorDescriptor{R: byte(i + 1), N: n}
		}
		im.TrkInfo[track0Idx].IsFM = isFM
		im.TrkInfo[track0Idx].HasIAM = true
		im.TrkInfo[track0Idx].DataRate = rate * 1000
		im.TrkInfo[track0Idx].InvertData = true
		_ = t0
	}

	for cyl := 0; cyl < im.NrCyls; cyl++ {
		idx := uniformIdx
		if cyl == 0 && no != 0 {
			idx = track0Idx
		}
		im.TrkMap[cyl] = idx
	}

	return im, nil
}
