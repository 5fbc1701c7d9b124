package format

import (
	"fmt"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
)

// jvcMaxHeader is the largest header jvc_open will ever read: {spt,
// sides, ssize_code, sec_id, attr}, one byte each.
const jvcMaxHeader = 5

// OpenJVC implements img.c's jvc_open: the header length isn't fixed, it
// is file_size&255 bytes (0..5, since JVC pads images to a whole number
// of 256-byte-aligned cylinders); defaults apply for any header field a
// short/absent header leaves unread. interleave is fixed at 3 (RSDOS's
// preferred skew); cylinder count comes from dividing the remaining file
// size by bytes-per-cylinder, with an auto-upgrade from 1-sided to
// 2-sided if that computes to 88+ cylinders (a 1-sided interpretation of
// a 2-sided image looks like an implausibly tall single-sided disk).
// Gated on the .jvc extension.
func OpenJVC(f fsio.File, size int64) (*geometry.Image, error) {
	hdrLen := int(size & 255)
	if hdrLen > jvcMaxHeader {
		hdrLen = jvcMaxHeader
	}

	spt, sides, ssizeCode, secID, attr := 18, 1, 1, 1, 0
	if hdrLen > 0 {
		buf := make([]byte, hdrLen)
		if _, err := f.ReadAt(buf, 0); err != nil {
			return nil, err
		}
		if hdrLen > 0 {
			spt = int(buf[0])
		}
		if hdrLen > 1 {
			sides = int(buf[1])
		}
		if hdrLen > 2 {
			ssizeCode = int(buf[2])
		}
		if hdrLen > 3 {
			secID = int(buf[3])
		}
		if hdrLen > 4 {
			attr = int(buf[4])
		}
	}

	if attr != 0 || (sides != 1 && sides != 2) || spt == 0 {
		return nil, fmt.Errorf("%w: JVC header fields out of range", ferr.ErrOpenMismatch)
	}

	no := uint8(ssizeCode & 3)
	layout := geometry.SimpleLayout{
		NrSectors:  spt,
		No:         no,
		HasIAM:     true,
		Base:       [2]int{secID, secID},
		Gap3:       20,
		Gap4A:      54,
		Interleave: 3,
	}

	bps := 128 << no
	bpc := bps * spt * sides
	if bpc == 0 {
		return nil, fmt.Errorf("%w: JVC geometry implies zero bytes/cylinder", ferr.ErrOpenMismatch)
	}
	imSize := int(size - int64(hdrLen))
	nrCyls := imSize / bpc
	if nrCyls >= 88 && sides == 1 {
		sides = 2
		nrCyls /= 2
		bpc *= 2
	}
	if imSize%bpc >= bps {
		nrCyls++
	}
	if nrCyls == 0 {
		return nil, fmt.Errorf("%w: JVC geometry implies zero cylinders", ferr.ErrOpenMismatch)
	}

	im := &geometry.Image{BaseOff: int64(hdrLen)}
	arena := geometry.NewArena(0, 0)
	if err := geometry.InitTrackMap(im, nrCyls, sides, arena); err != nil {
		return nil, err
	}
	if err := geometry.ApplySimpleLayout(im, layout); err != nil {
		return nil, err
	}
	return im, nil
}
