package format

import (
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
	"github.com/sergev/fdimage/host"
)

// OpenMGT implements img.c's mgt_open: it reuses the generic img_type
// table verbatim (Sam Coupe / +D/DISCiPLE "MGT" images share the plain
// PC-geometry size table), gated on the .mgt extension so it doesn't
// shadow the content-sniffed generic opener for every other family that
// also happens to match a img_type row.
func OpenMGT(f fsio.File, size int64) (*geometry.Image, error) {
	return openFromTable(host.Generic.Table(), size, 0)
}
