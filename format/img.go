package format

import (
	"fmt"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
	"github.com/sergev/fdimage/host"
)

// OpenGenericIMG is the §4.4 "generic IMG" opener: try the tag-based
// opener first (caller wires that in by registering it ahead of this one
// keyed by filename extension), then a host-specific table, falling back
// to the fully-generic table. This function implements the table half;
// TagOpener (tagconfig.go) implements the tag half.
func OpenGenericIMG(h host.Host) func(f fsio.File, size int64) (*geometry.Image, error) {
	return func(f fsio.File, size int64) (*geometry.Image, error) {
		table := h.Table()
		result, ok := geometry.MatchGeometryTable(table, size, 0)
		if !ok {
			return nil, fmt.Errorf("%w: file size %d matches no entry in host table", ferr.ErrOpenMismatch, size)
		}
		im := &geometry.Image{}
		arena := geometry.NewArena(0, 0)
		if err := geometry.InitTrackMap(im, result.NrCyls, result.NrSides, arena); err != nil {
			return nil, err
		}
		if err := geometry.ApplySimpleLayout(im, result.Layout); err != nil {
			return nil, err
		}
		return im, nil
	}
}
