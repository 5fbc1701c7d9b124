package format

import (
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
)

// dfsOpen implements img.c's dfs_open: a fixed 80-cylinder, FM,
// 10-sector/256-byte layout with cskew=3, used by both ssd_open
// (1-sided) and dsd_open (2-sided) after they fix nrSides.
func dfsOpen(nrSides int) (*geometry.Image, error) {
	layout := geometry.SimpleLayout{
		NrSectors:  10,
		IsFM:       true,
		No:         1, // 256-byte
		Gap3:       21,
		Base:       [2]int{0, 0},
		Interleave: 1,
		CSkew:      3,
	}
	im := &geometry.Image{}
	arena := geometry.NewArena(0, 0)
	if err := geometry.InitTrackMap(im, 80, nrSides, arena); err != nil {
		return nil, err
	}
	if err := geometry.ApplySimpleLayout(im, layout); err != nil {
		return nil, err
	}
	return im, nil
}

// OpenSSD implements img.c's ssd_open: single-sided Acorn DFS, gated on
// the .ssd extension.
func OpenSSD(f fsio.File, size int64) (*geometry.Image, error) {
	return dfsOpen(1)
}

// OpenDSD implements img.c's dsd_open: double-sided Acorn DFS, gated on
// the .dsd extension.
func OpenDSD(f fsio.File, size int64) (*geometry.Image, error) {
	return dfsOpen(2)
}
