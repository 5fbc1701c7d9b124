package format

import (
	"fmt"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
)

const (
	xdfSecPerTrack0 = 19 // cylinder 0's physical sectors per head
	xdfSecPerTrackN = 4  // cylinder N's physical sectors per head
	xdfLogicalSPT   = 23 // the BPB's reported sectors/track
	xdfHead1ShiftBC = 10000
)

// xdfCylSector is one entry of img.c's xdf_format.cylN_sec: a size code
// and the sector's offset (in 256-byte units) into the cylinder's image
// data, per fdutils' XDF scheme.
type xdfCylSector struct {
	No   uint8
	Offs int64
}

// xdfCylNSec is formats[0].cylN_sec from img.c's xdf_open, transcribed
// directly: head 0 and head 1 each place their four oversized sectors
// (1k/512/2k/8k) at different byte offsets within the cylinder, which is
// what gives cylinder N its interleaved, non-sequential layout.
var xdfCylNSec = [2][4]xdfCylSector{
	{{No: 3, Offs: 0x00}, {No: 2, Offs: 0x2c}, {No: 4, Offs: 0x04}, {No: 6, Offs: 0x30}},
	{{No: 4, Offs: 0x50}, {No: 2, Offs: 0x2e}, {No: 3, Offs: 0x58}, {No: 6, Offs: 0x0c}},
}

// OpenXDF implements §4.4's XDF opener, grounded directly on img.c's
// xdf_open: recognized when the BPB declares sig=0xAA55, bytes_per_sec=512,
// num_heads=2 and sec_per_track=23 (3.5" HD), with the rootdir occupying a
// whole number of logical sectors and the boot+FAT+rootdir region fitting
// within cylinder 0's 2*19 physical sectors. Builds four track layouts
// (C0H0, C0H1, CnH0, CnH1): cylinder 0 is 19 512-byte sectors per head in
// the AUX/MAIN order fdutils' xdfcopy documents; cylinder N is the four
// oversized sectors {131,130,132,134} sized {1024,512,2048,8192} per §8
// scenario 4, with a TrackDelayBC of 10000 on head 1 modeling the physical
// head-skew. Cylinder 0's within-cylinder sector order is captured exactly
// via FileSecOffsets (it occurs only once, so an absolute table suffices);
// cylinder N's interleaved slip order repeats identically on every
// cylinder, which the engine's per-layout (not per-cylinder) FileSecOffsets
// table cannot index absolutely, so cylinders > 0 fall back to the
// sequential per-track offset rule in the same size-code order img.c uses
// — self-consistent for read/write round-tripping, though it does not
// reproduce the original's byte-for-byte slipped placement within the
// cylinder (see DESIGN.md's Open Question decisions).
func OpenXDF(f fsio.File, size int64) (*geometry.Image, error) {
	b, err := readBPB(f)
	if err != nil {
		return nil, err
	}
	if b.Signature != 0xAA55 || b.BytesPerSec != 512 || b.NumHeads != 2 ||
		int(b.TotSecSmall) != 2*80*int(b.SecPerTrack) || b.SecPerTrack != xdfLogicalSPT {
		return nil, fmt.Errorf("%w: BPB does not declare XDF geometry", ferr.ErrOpenMismatch)
	}

	fatSecs := int(b.FatSecs)
	rootDirEnts := int(b.RootDirEnts)
	rootDirSecs := rootDirEnts / 16
	if rootDirEnts%16 != 0 {
		return nil, fmt.Errorf("%w: XDF rootdir entry count not a multiple of 16", ferr.ErrOpenMismatch)
	}
	if 8+1+fatSecs+rootDirSecs > 2*xdfSecPerTrack0 {
		return nil, fmt.Errorf("%w: XDF boot/FAT/rootdir region overflows cylinder 0", ferr.ErrOpenMismatch)
	}

	const nrCyls = 80
	const nrSides = 2
	im := &geometry.Image{}
	arena := geometry.NewArena(0, 0)
	if err := geometry.InitTrackMap(im, nrCyls, nrSides, arena); err != nil {
		return nil, err
	}

	// layoutIdx tracks each layout's current TrkInfo index as later
	// AddTrackLayout calls prepend and shift earlier ones up by one.
	var layoutIdx [4]int
	addLayout := func(i, nrSectors int) error {
		if _, err := geometry.AddTrackLayout(im, nrSectors); err != nil {
			return err
		}
		for j := range layoutIdx {
			if j != i {
				layoutIdx[j]++
			}
		}
		layoutIdx[i] = 0
		return nil
	}

	// CnH0/CnH1 are added first so that C0H0/C0H1 end up at the low end
	// of SecInfo (AddTrackLayout prepends, so whatever is added last
	// keeps the lowest SecOff) — FileSecOffsets below is then sized to
	// cover only that low range, leaving CnH0/CnH1 beyond its length so
	// SectorFileOffset falls back to the sequential per-track rule for
	// them (see the doc comment above).
	for i := 2; i < 4; i++ {
		if err := addLayout(i, xdfSecPerTrackN); err != nil {
			return nil, err
		}
		trk := &im.TrkInfo[layoutIdx[i]]
		trk.Interleave = 1
		trk.HasIAM = true
		trk.DataRate = 500000
		trk.Gap2, trk.Gap3, trk.Gap4A = -1, -1, -1
		if i == 3 {
			trk.TrackDelayBC = xdfHead1ShiftBC
		}
		secs := im.Sectors(*trk)
		for j, cs := range xdfCylNSec[i-2] {
			secs[j] = geometry.SectorDescriptor{R: cs.No + 128, N: cs.No}
		}
	}

	// C0H0/C0H1: 19 512-byte sectors/head, interleave 2, AUX sectors
	// 1-8 on head 0 followed by MAIN sectors 129+ on both heads.
	for i := 0; i < 2; i++ {
		if err := addLayout(i, xdfSecPerTrack0); err != nil {
			return nil, err
		}
		trk := &im.TrkInfo[layoutIdx[i]]
		trk.Interleave = 2
		trk.HasIAM = true
		trk.DataRate = 500000
		trk.Gap2, trk.Gap3, trk.Gap4A = -1, -1, -1
		secs := im.Sectors(*trk)
		auxID, mainID := byte(1), byte(129)
		for j := 0; j < xdfSecPerTrack0; j++ {
			if i == 0 && j < 8 {
				secs[j] = geometry.SectorDescriptor{R: auxID, N: 2}
				auxID++
			} else {
				secs[j] = geometry.SectorDescriptor{R: mainID, N: 2}
				mainID++
			}
		}
	}

	im.TrkMap[0] = layoutIdx[0]
	im.TrkMap[1] = layoutIdx[1]
	for i := 2; i < nrCyls*nrSides; i++ {
		im.TrkMap[i] = layoutIdx[2+i%2]
	}

	// Cylinder 0's file layout, per fdutils/xdfcopy: AUX Fat (8 secs),
	// MAIN Boot+Fat (1+fat_secs secs), MAIN RootDir, then MAIN Data
	// filling out the remaining sectors of the 2*19-sector cylinder.
	allOffsets := make([]int64, 2*xdfSecPerTrack0)
	off := make([]int64, 0, 2*xdfSecPerTrack0)
	cursor := 1 + fatSecs // skip MAIN Boot+Fat
	for i := 0; i < 8; i++ {
		off = append(off, int64(cursor+i)<<9)
	}
	for i := 0; i < 1+fatSecs; i++ {
		off = append(off, int64(i)<<9)
	}
	cursor += fatSecs // skip AUX Fat
	for i := 0; i < rootDirSecs; i++ {
		off = append(off, int64(cursor)<<9)
		cursor++
	}
	cursor += 5 // skip AUX Fat duplicate
	for len(off) < 2*xdfSecPerTrack0 {
		off = append(off, int64(cursor)<<9)
		cursor++
	}
	h0 := im.TrkInfo[layoutIdx[0]].SecOff
	h1 := im.TrkInfo[layoutIdx[1]].SecOff
	copy(allOffsets[h0:h0+xdfSecPerTrack0], off[:xdfSecPerTrack0])
	copy(allOffsets[h1:h1+xdfSecPerTrack0], off[xdfSecPerTrack0:])
	im.FileSecOffsets = allOffsets

	return im, nil
}
