package format

import (
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
	"github.com/sergev/fdimage/host"
)

// OpenADFS implements img.c's adfs_open: a pure raw_type_open over
// host.ADFSTable (Acorn ADFS D/E/F/L/M/S), gated on the .adf/.adl
// extension since every row is a plain size match with no magic bytes.
func OpenADFS(f fsio.File, size int64) (*geometry.Image, error) {
	return openFromTable(host.ADFSTable, size, 0)
}
