package format

import (
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
	"github.com/sergev/fdimage/host"
)

// OpenST implements img.c's st_open: Atari ST images reuse the 80-cylinder
// rows of the generic img_type table, but with IAM disabled (TOS drives
// don't write one) and, for 9-sector/track rows, TOS's skewed layout
// (1-sided: cskew=2; 2-sided: cskew=4, hskew=2). Gated on the .st
// extension since these rows would otherwise collide with plain PC-DOS
// images of the same size.
func OpenST(f fsio.File, size int64) (*geometry.Image, error) {
	var stTable []geometry.GeometryEntry
	for _, e := range host.Generic.Table() {
		if e.CylClass != 1 { // _C(80) only
			continue
		}
		e.HasIAM = false
		if e.SectorsPerSide == 9 {
			if e.NrSides == 1 {
				e.CSkew = 2
			} else {
				e.CSkew = 4
				e.HSkew = 2
			}
		}
		stTable = append(stTable, e)
	}
	return openFromTable(stTable, size, 0)
}
