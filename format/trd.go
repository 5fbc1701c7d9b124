package format

import (
	"fmt"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
)

const trdGeometryOffset = 0x8E0

// trdIDOffset is the id byte's offset within the geometry block: the
// block is {na, free_sec, free_trk, type, nr_files, free_secs_lo,
// free_secs_hi, id}, one byte each, so id is the 8th byte, not the
// first (§6.5 only names the block's base offset 0x8E0 and the type
// byte at 0x8E3; the id byte itself sits at 0x8E0+7).
const trdIDOffset = 7
const trdID = 0x10
const trdSectorsPerTrack = 16
const trdMaxSectors = 4096 // 16 sectors/track * 256 tracks

// OpenTRD implements §4.4's TR-DOS opener: nr_sides comes from the disk
// type byte at 0x8E3 (1 for types 0x18/0x19, 2 otherwise); total sector
// count is "first free sector plus sectors still free" from the
// catalog's free-space fields, rejected as invalid if it isn't a whole
// number of 16-sector tracks or exceeds 4096, and in that case (or if
// it's implausibly small) replaced by size/256; nr_cyls is the
// resulting track count divided by nr_sides, rounded up. Every track is
// 16 sectors of 256 bytes, MFM, gap_3=57; a trailing half-filled
// cylinder (odd total track count on a 2-sided disk) gets the
// empty-track layout on its missing side.
func OpenTRD(f fsio.File, size int64) (*geometry.Image, error) {
	if size < trdGeometryOffset+8 {
		return nil, fmt.Errorf("%w: file too small for TRD geometry block", ferr.ErrOpenMismatch)
	}
	buf := make([]byte, 8)
	if _, err := f.ReadAt(buf, trdGeometryOffset); err != nil {
		return nil, err
	}
	if buf[trdIDOffset] != trdID {
		return nil, fmt.Errorf("%w: TRD id byte mismatch", ferr.ErrOpenMismatch)
	}

	freeSec := int(buf[1])
	freeTrk := int(buf[2])
	diskType := buf[3]
	freeSecsLo := int(buf[5])
	freeSecsHi := int(buf[6])

	nrSides := 2
	if diskType == 0x18 || diskType == 0x19 {
		nrSides = 1
	}

	totSecs := freeSec + freeTrk*trdSectorsPerTrack + freeSecsLo + freeSecsHi*256
	if totSecs%trdSectorsPerTrack != 0 || totSecs > trdMaxSectors {
		totSecs = 0 // invalid: not a whole track count, or too large
	}
	if fromFile := int(size / 256); fromFile > totSecs {
		totSecs = fromFile
	}

	totTrks := totSecs / trdSectorsPerTrack
	if totTrks == 0 {
		return nil, fmt.Errorf("%w: TRD geometry implies zero tracks", ferr.ErrOpenMismatch)
	}
	nrCyls := (totTrks + nrSides - 1) / nrSides

	im := &geometry.Image{}
	arena := geometry.NewArena(0, 0)
	if err := geometry.InitTrackMap(im, nrCyls, nrSides, arena); err != nil {
		return nil, err
	}

	layout := geometry.SimpleLayout{
		NrSectors: trdSectorsPerTrack, No: 1, HasIAM: true, HasEmpty: true,
		Gap3: 57, Base: [2]int{1, 1}, Interleave: 1,
	}
	if err := geometry.ApplySimpleLayout(im, layout); err != nil {
		return nil, err
	}

	// A partial last cylinder (odd total-track count on a 2-sided disk)
	// leaves one side of the final cylinder unrecorded; mark that single
	// flat track-slot empty, matching the original's direct
	// trk_map[tot_trks] write.
	if nrSides == 2 && totTrks%2 == 1 && totTrks < nrCyls*nrSides {
		im.TrkMap[totTrks] = geometry.EmptyTrackIndex(im)
	}

	return im, nil
}
