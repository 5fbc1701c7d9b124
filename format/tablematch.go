package format

import (
	"fmt"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/geometry"
)

// openFromTable is the common body shared by every extension-gated
// opener that, like img.c's adfs_open/mgt_open/mbd_open/pc98hdm_open,
// does nothing but raw_type_open(im, some_table): match the file size
// against table and materialize the resulting SimpleLayout.
func openFromTable(table []geometry.GeometryEntry, size, baseOff int64) (*geometry.Image, error) {
	result, ok := geometry.MatchGeometryTable(table, size, baseOff)
	if !ok {
		return nil, fmt.Errorf("%w: file size %d matches no entry in table", ferr.ErrOpenMismatch, size)
	}
	im := &geometry.Image{BaseOff: baseOff}
	arena := geometry.NewArena(0, 0)
	if err := geometry.InitTrackMap(im, result.NrCyls, result.NrSides, arena); err != nil {
		return nil, err
	}
	if err := geometry.ApplySimpleLayout(im, result.Layout); err != nil {
		return nil, err
	}
	return im, nil
}
