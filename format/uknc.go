package format

import (
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
	"github.com/sergev/fdimage/host"
)

// OpenUKNC implements img.c's uknc_open, selected by the UKNC host hint:
// raw_type_open over host.UKNC.Table(), then every resulting track
// descriptor gets its GAP2/GAP4A overridden (all UKNC tracks use custom
// gap values) and the image is marked with an extra post-CRC sync mark
// per track, which img.c sets globally before the table lookup.
func OpenUKNC(f fsio.File, size int64) (*geometry.Image, error) {
	im, err := openFromTable(host.UKNC.Table(), size, 0)
	if err != nil {
		return nil, err
	}
	im.PostCRCSyncs = 1
	for i := range im.TrkInfo {
		im.TrkInfo[i].Gap2 = 24
		im.TrkInfo[i].Gap4A = 27
	}
	return im, nil
}
