// Package geometry implements the CORE data model of the floppy image
// engine: the Image/TrackDescriptor/SectorDescriptor tables that a format
// opener builds once at open time, and that the track engine walks on
// every seek. It is the Go-native replacement for the C source's
// bump-allocated heap of packed tables (see DESIGN.md).
package geometry

import (
	"fmt"

	"github.com/sergev/fdimage/ferr"
)

// LayoutFlag is a bitmask selecting how logical (cylinder, side) pairs map
// onto byte offsets within the image file.
type LayoutFlag uint8

const (
	// Sequential lays out all of side 0's cylinders before side 1's
	// (s*nrCyls + c); the default is out-by-cylinder (c*nrSides + s).
	Sequential LayoutFlag = 1 << iota
	// SidesSwapped exchanges side 0 and side 1 in the file.
	SidesSwapped
	// ReverseSide0 stores cylinder 0 last and cylinder nrCyls-1 first,
	// for side 0.
	ReverseSide0
	// ReverseSide1 is the same, for side 1.
	ReverseSide1
)

// Has reports whether all bits of flag are set.
func (l LayoutFlag) Has(flag LayoutFlag) bool { return l&flag == flag }

// MaxCyls and MaxSectorsPerTrack bound the data model per spec §3.
const (
	MaxCyls            = 255
	MaxSectorsPerTrack = 256
	MaxSizeCode        = 6
)

// Image is the top-level, immutable-after-open geometry of a sector image
// file. All mutable per-track cursor state lives in the track package, not
// here: an Image can be shared by multiple concurrent Cursors (though the
// engine itself is single-threaded per spec §5).
type Image struct {
	NrCyls  int
	NrSides int

	// BaseOff is the byte offset within the file where sector data
	// begins, skipping any image header.
	BaseOff int64

	LayoutFlags  LayoutFlag
	Step         int // head-step factor, coerced to >=1 on open (see DESIGN.md)
	PostCRCSyncs int

	// TrkMap[cyl*NrSides+side] indexes TrkInfo.
	TrkMap []int
	TrkInfo []TrackDescriptor
	// SecInfo is the flat backing array; TrackDescriptor.SecOff indexes
	// into it for that track's NrSectors entries.
	SecInfo []SectorDescriptor

	// FileSecOffsets, if non-nil, gives the absolute byte offset of each
	// sector's payload within the file, indexed the same way SecInfo is
	// (TrkInfo[i].SecOff + j). Used by layouts whose sectors are not laid
	// out file-sequentially (XDF). When nil, offsets are computed by
	// summing sector sizes in file order.
	FileSecOffsets []int64

	arena *Arena
}

// TrackDescriptor describes one distinct track layout, shared by every
// (cyl, side) pair that maps to it via Image.TrkMap.
type TrackDescriptor struct {
	NrSectors int
	SecOff    int

	IsFM       bool
	HasIAM     bool
	InvertData bool

	RPM      int // 0 means "default to 300"
	DataRate int // bits per second; 0 means "infer from track content"

	// Gap2, Gap3, Gap4A are byte counts, or -1 to mean "auto".
	Gap2, Gap3, Gap4A int

	Interleave int // >=1
	CSkew      int
	HSkew      int
	Head       int // 0 = use physical head; else 1-based forced head value

	// TrackDelayBC models XDF's per-sector head-skew delay (bitcells of
	// extra rotation before the first sector of this track becomes
	// readable).
	TrackDelayBC int
}

// Empty reports whether this descriptor is the trailing "empty track"
// sentinel used by partial last cylinders (e.g. TRD).
func (t TrackDescriptor) Empty() bool { return t.NrSectors == 0 }

// RPMOrDefault returns the effective RPM, defaulting 0 to 300.
func (t TrackDescriptor) RPMOrDefault() int {
	if t.RPM == 0 {
		return 300
	}
	return t.RPM
}

// SectorDescriptor describes one sector within a track layout.
type SectorDescriptor struct {
	R byte // sector ID byte emitted in the IDAM
	N uint8 // size code: payload length is 128 << N
}

// Size returns the sector's physical payload length in bytes.
func (s SectorDescriptor) Size() int { return 128 << s.N }

// Sectors returns the SectorDescriptor slice owned by trk.
func (im *Image) Sectors(trk TrackDescriptor) []SectorDescriptor {
	return im.SecInfo[trk.SecOff : trk.SecOff+trk.NrSectors]
}

// TrackAt resolves the TrackDescriptor for a given (cyl, side), applying
// the §4.5 track encoding (cyl = track/(2*step), side = track&(nrSides-1))
// when callers address tracks by the drive's physical track number instead
// of (cyl, side) directly.
func (im *Image) TrackAt(cyl, side int) (TrackDescriptor, error) {
	if cyl < 0 || cyl >= im.NrCyls || side < 0 || side >= im.NrSides {
		return TrackDescriptor{}, fmt.Errorf("%w: track (%d,%d) out of range %dx%d",
			ferr.ErrFormatInvalid, cyl, side, im.NrCyls, im.NrSides)
	}
	idx := im.TrkMap[cyl*im.NrSides+side]
	if idx < 0 || idx >= len(im.TrkInfo) {
		return TrackDescriptor{}, fmt.Errorf("%w: track map entry %d out of range", ferr.ErrFormatInvalid, idx)
	}
	return im.TrkInfo[idx], nil
}

// DecodeTrackNumber splits a drive track number into (cyl, side) per the
// step factor, the way setup_track does in §4.5.
func (im *Image) DecodeTrackNumber(track int) (cyl, side int) {
	step := im.Step
	if step <= 0 {
		step = 1
	}
	cyl = track / (2 * step)
	side = track & (im.NrSides - 1)
	return cyl, side
}

// FileIndex computes the file-order index of a (cyl, side) pair per the
// §4.5 ordering rules.
func (im *Image) FileIndex(cyl, side int) int {
	c := cyl
	if (side == 0 && im.LayoutFlags.Has(ReverseSide0)) || (side == 1 && im.LayoutFlags.Has(ReverseSide1)) {
		c = im.NrCyls - 1 - cyl
	}
	s := side
	if im.LayoutFlags.Has(SidesSwapped) {
		s = side ^ (im.NrSides - 1)
	}
	if im.LayoutFlags.Has(Sequential) {
		return s*im.NrCyls + c
	}
	return c*im.NrSides + s
}

// TrackOffset returns the byte offset within the file where (cyl, side)'s
// sector payloads begin, summing the sizes of every preceding track in
// file order. Panics-free: returns an error if any preceding track's
// descriptor is invalid.
func (im *Image) TrackOffset(cyl, side int) (int64, error) {
	target := im.FileIndex(cyl, side)
	off := im.BaseOff
	for c := 0; c < im.NrCyls; c++ {
		for s := 0; s < im.NrSides; s++ {
			idx := im.FileIndex(c, s)
			if idx >= target {
				continue
			}
			trk, err := im.TrackAt(c, s)
			if err != nil {
				return 0, err
			}
			off += int64(sumSectorSizes(im.Sectors(trk)))
		}
	}
	return off, nil
}

func sumSectorSizes(secs []SectorDescriptor) int {
	total := 0
	for _, s := range secs {
		total += s.Size()
	}
	return total
}

// Extend returns the canonical file size implied by the geometry: BaseOff
// plus the sum of every track's sector sizes, per spec §3's invariant.
func (im *Image) Extend() (int64, error) {
	total := im.BaseOff
	for c := 0; c < im.NrCyls; c++ {
		for s := 0; s < im.NrSides; s++ {
			trk, err := im.TrackAt(c, s)
			if err != nil {
				return 0, err
			}
			total += int64(sumSectorSizes(im.Sectors(trk)))
		}
	}
	return total, nil
}

// SectorFileOffset returns the absolute file offset of sector index i
// (0-based, within trk's NrSectors) for the track starting at trkOff.
func (im *Image) SectorFileOffset(trk TrackDescriptor, trkOff int64, i int) int64 {
	secOff := trk.SecOff + i
	if im.FileSecOffsets != nil && secOff < len(im.FileSecOffsets) {
		return im.FileSecOffsets[secOff]
	}
	off := trkOff
	secs := im.Sectors(trk)
	for j := 0; j < i; j++ {
		off += int64(secs[j].Size())
	}
	return off
}
