package format

import (
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
	"github.com/sergev/fdimage/host"
)

// OpenD81 implements img.c's d81_open: Commodore 1581 geometry
// (host.D81Table, a single 80-cyl/2-side/10-sector row) with the file's
// two sides stored swapped, per img.c's LAYOUT_sides_swapped.
func OpenD81(f fsio.File, size int64) (*geometry.Image, error) {
	im, err := openFromTable(host.D81Table, size, 0)
	if err != nil {
		return nil, err
	}
	im.LayoutFlags |= geometry.SidesSwapped
	return im, nil
}
