package format

import (
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
	"github.com/sergev/fdimage/host"
)

// OpenMBD implements img.c's mbd_open: raw_type_open over host.MBDTable
// (Tandy Model I/III "doubler" formats), gated on the .mbd extension.
func OpenMBD(f fsio.File, size int64) (*geometry.Image, error) {
	return openFromTable(host.MBDTable, size, 0)
}
