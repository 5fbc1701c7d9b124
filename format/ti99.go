package format

import (
	"fmt"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
)

const ti99VIBOffset = 10

// ti99VIB is the slice of img.c's 16-byte Volume Information Block (read
// from logical sector 0) this opener needs: sectors_per_track at offset
// 12, the "DSK" id at offset 10, tracks_per_side at 14, sides at 15.
type ti99VIB struct {
	id            [3]byte
	tracksPerSide byte
	sides         byte
}

func readTI99VIB(f fsio.File) (ti99VIB, error) {
	buf := make([]byte, 16)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return ti99VIB{}, err
	}
	var v ti99VIB
	copy(v.id[:], buf[ti99VIBOffset:ti99VIBOffset+3])
	v.tracksPerSide = buf[14]
	v.sides = buf[15]
	return v, nil
}

func (v ti99VIB) hasMagic() bool { return string(v.id[:]) == "DSK" }

// OpenTI99 implements §4.4's TI99 opener, following
// original_source/src/image/img.c's ti99_open: the file size must be a
// multiple of 256 bytes; a trailing 3-sector bad-sector map (file size
// in 256-byte units ≡ 3 mod 10) is stripped and ignored; layout defaults
// to interleave=4, cskew=3, base=0, no=1 (256-byte sectors), flags
// SEQUENTIAL|REVERSE_SIDE_1, then the size-in-256-byte-units table
// resolves the rest, disambiguating the two-way and four-way size
// collisions using the VIB's sides/tracks_per_side fields when present
// (spec §8 scenario 5: a 737280-byte DSDD80 image with tracks_per_side=80
// resolves to 80 cyl/2 sides/18 spt MFM, interleave=5, cskew=3).
func OpenTI99(f fsio.File, size int64) (*geometry.Image, error) {
	if size%256 != 0 {
		return nil, fmt.Errorf("%w: size not a multiple of 256", ferr.ErrOpenMismatch)
	}
	fsize := int(size / 256)
	if fsize%10 == 3 {
		fsize -= 3 // trailing bad-sector-map footer, ignored
	}
	if fsize == 0 {
		return nil, fmt.Errorf("%w: TI99 image is empty after stripping the footer", ferr.ErrOpenMismatch)
	}

	vib, err := readTI99VIB(f)
	if err != nil {
		return nil, err
	}
	haveVIB := vib.hasMagic()

	nrCyls, nrSides := 0, 0
	layout := geometry.SimpleLayout{
		Interleave: 4, CSkew: 3, No: 1, Base: [2]int{0, 0}, HasIAM: true, DataRate: 250000,
	}

	switch {
	case fsize%(40*9) == 0:
		switch fsize / (40 * 9) {
		case 1: // SSSD
			nrCyls, nrSides = 40, 1
			layout.NrSectors, layout.Gap3, layout.IsFM = 9, 44, true
		case 2:
			if haveVIB && vib.sides == 1 {
				// SSDD: disambiguated by the VIB.
				nrCyls, nrSides = 40, 1
				layout.Interleave, layout.NrSectors, layout.Gap3 = 5, 18, 24
			} else {
				// Assume DSSD.
				nrCyls, nrSides = 40, 2
				layout.NrSectors, layout.Gap3, layout.IsFM = 9, 44, true
			}
		case 4:
			if haveVIB && vib.tracksPerSide == 80 {
				// DSSD80: disambiguated by the VIB.
				nrCyls, nrSides = 80, 2
				layout.NrSectors, layout.Gap3, layout.IsFM = 9, 44, true
			} else {
				// Assume DSDD.
				nrCyls, nrSides = 40, 2
				layout.Interleave, layout.NrSectors, layout.Gap3 = 5, 18, 24
			}
		case 8: // DSDD80
			nrCyls, nrSides = 80, 2
			layout.Interleave, layout.NrSectors, layout.Gap3 = 5, 18, 24
		case 16: // DSHD80
			nrCyls, nrSides = 80, 2
			layout.Interleave, layout.NrSectors, layout.Gap3 = 5, 36, 24
		}
	case fsize%(40*16) == 0:
		sides := fsize / (40 * 16)
		if sides <= 2 {
			nrCyls, nrSides = 40, sides
			layout.Interleave, layout.NrSectors, layout.Gap3 = 5, 16, 44
		}
	}

	if nrCyls == 0 || nrSides == 0 {
		return nil, fmt.Errorf("%w: no TI99 geometry matches %d 256-byte units", ferr.ErrOpenMismatch, fsize)
	}

	im := &geometry.Image{
		LayoutFlags: geometry.Sequential | geometry.ReverseSide1,
	}
	arena := geometry.NewArena(0, 0)
	if err := geometry.InitTrackMap(im, nrCyls, nrSides, arena); err != nil {
		return nil, err
	}
	if err := geometry.ApplySimpleLayout(im, layout); err != nil {
		return nil, err
	}
	return im, nil
}
