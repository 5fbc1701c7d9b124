package format

import (
	"fmt"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
	"github.com/sergev/fdimage/host"
)

// OpenIBM3174 implements img.c's ibm_3174_open, selected by the IBM3174
// host hint rather than by extension: the controller only ever produces
// two file sizes. 1228800 (1.2MB HD) is the ordinary 80/2/15/512B
// geometry, so it defers to the generic table; 2442240 (2.4MB ED) is
// unique to this controller and uses a hand-built two-layout track map
// (cylinder 0 at 15 sectors/360rpm, every other cylinder at 30
// sectors/180rpm, both 512-byte/gap3=104).
func OpenIBM3174(f fsio.File, size int64) (*geometry.Image, error) {
	switch size {
	case 1228800:
		return openFromTable(host.Generic.Table(), size, 0)
	case 2442240:
		// fall through
	default:
		return nil, fmt.Errorf("%w: size %d is not a valid IBM 3174 image", ferr.ErrOpenMismatch, size)
	}

	im := &geometry.Image{}
	arena := geometry.NewArena(0, 0)
	if err := geometry.InitTrackMap(im, 80, 2, arena); err != nil {
		return nil, err
	}

	layouts := [2]struct {
		nrSectors int
		rpm       int
	}{
		{15, 360},
		{30, 180},
	}
	idx := make([]int, 2)
	for i, l := range layouts {
		if _, err := geometry.AddTrackLayout(im, l.nrSectors); err != nil {
			return nil, err
		}
		idx[i] = 0
		for j := range idx[:i] {
			idx[j]++
		}
		secs := im.Sectors(im.TrkInfo[idx[i]])
		for j := range secs {
			secs[j] = geometry.SectorDescriptor{R: byte(j + 1), N: 2}
		}
		im.TrkInfo[idx[i]].HasIAM = true
		im.TrkInfo[idx[i]].Gap3 = 104
		im.TrkInfo[idx[i]].RPM = l.rpm
	}

	for cyl := 0; cyl < im.NrCyls; cyl++ {
		layout := idx[1]
		if cyl == 0 {
			layout = idx[0]
		}
		for side := 0; side < im.NrSides; side++ {
			im.TrkMap[cyl*im.NrSides+side] = layout
		}
	}

	return im, nil
}
