// Package format implements the per-family image openers (§4.4, §6.1,
// §6.5): each Handler sniffs a file and, on match, populates a
// geometry.Image. Handlers are tried in registration order; the first to
// return a non-OPEN-MISMATCH result wins.
package format

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
	"github.com/sergev/fdimage/track"
)

// Handler is the §6.1 host/core contract, minus setup_track/read_track/
// write_track which live on track.Cursor once Open has populated the
// geometry: Open is the only family-specific operation left here.
//
// Several of img.c's openers (ADFS, D81, ST, MBD, MGT, OPD, DFS/SSD/DSD,
// JVC, PC98FDI/HDM, SDU) match purely on file size with no distinguishing
// magic bytes, and in the original are reached only because the caller
// dispatches by filename extension before ever calling raw_type_open.
// Exts reproduces that gate here: non-empty means "only try this handler
// when the image's extension is one of these", so content-sniffing
// doesn't let two equally-sized but unrelated formats collide.
type Handler struct {
	Name string
	Exts []string
	Open func(f fsio.File, size int64) (*geometry.Image, error)
}

// registry is the ordered list of handlers OpenImage tries.
var registry []Handler

// Register adds h to the registry, in the order openers should be tried.
func Register(h Handler) {
	registry = append(registry, h)
}

func extMatches(exts []string, filename string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// OpenImage tries every registered handler in order and returns the first
// match, per §6.1's "openers returning FALSE because the file does not
// match this family; the caller tries the next handler" rule. filename is
// used only to gate extension-specific handlers (see Handler.Exts); it
// need not name a real path on disk.
func OpenImage(f fsio.File, filename string) (*geometry.Image, string, error) {
	size, err := f.Size()
	if err != nil {
		return nil, "", err
	}
	for _, h := range registry {
		if !extMatches(h.Exts, filename) {
			continue
		}
		im, err := h.Open(f, size)
		if err == nil {
			if err := geometry.FinaliseTrackMap(im); err != nil {
				return nil, h.Name, err
			}
			return im, h.Name, nil
		}
		if !ferr.Is(err, ferr.ErrOpenMismatch) {
			return nil, h.Name, err
		}
	}
	return nil, "", fmt.Errorf("%w: no handler recognized this image", ferr.ErrOpenMismatch)
}

// fileFetcher adapts an fsio.File to track.Fetcher.
type fileFetcher struct {
	f fsio.File
}

// NewFetcher wraps f as a track.Fetcher for Cursor use.
func NewFetcher(f fsio.File) track.Fetcher { return fileFetcher{f} }

func (ff fileFetcher) ReadSectorAt(off int64, size int) ([]byte, error) {
	buf := make([]byte, size)
	n, err := ff.f.ReadAt(buf, off)
	if n == size {
		return buf, nil
	}
	return buf, err
}

func (ff fileFetcher) WriteSectorAt(off int64, data []byte) error {
	_, err := ff.f.WriteAt(data, off)
	return err
}
