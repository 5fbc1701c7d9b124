package format

import (
	"encoding/binary"
	"fmt"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
)

// bpb is the subset of fields the §4.4 PC-DOS opener needs, at the
// well-known BPB byte offsets (§6.5): {510:sig, 11:bps, 24:spt, 26:heads,
// 19/22:totSec}.
type bpb struct {
	BytesPerSec uint16
	RootDirEnts uint16
	TotSecSmall uint16
	FatSecs     uint16
	SecPerTrack uint16
	NumHeads    uint16
	Signature   uint16
}

func readBPB(f fsio.File) (bpb, error) {
	buf := make([]byte, 512)
	n, err := f.ReadAt(buf, 0)
	if err != nil && n < 512 {
		return bpb{}, err
	}
	var b bpb
	b.BytesPerSec = binary.LittleEndian.Uint16(buf[11:13])
	b.RootDirEnts = binary.LittleEndian.Uint16(buf[17:19])
	b.TotSecSmall = binary.LittleEndian.Uint16(buf[19:21])
	b.FatSecs = binary.LittleEndian.Uint16(buf[22:24])
	b.SecPerTrack = binary.LittleEndian.Uint16(buf[24:26])
	b.NumHeads = binary.LittleEndian.Uint16(buf[26:28])
	b.Signature = binary.LittleEndian.Uint16(buf[510:512])
	return b, nil
}

// xdfCheck reports whether a BPB looks like an XDF 3.5" HD image: 23
// sectors/track is never a legal plain PC-DOS geometry.
func xdfCheck(b bpb) bool { return b.SecPerTrack == 23 }

// OpenPCDOS implements §4.4's PC-DOS/BPB opener: rejects on bad signature,
// computes geometry from the BPB fields, special-cases MSDMF (21 spt, 512
// bps) with interleave=2/cskew=3, and declines (OPEN-MISMATCH) any image
// whose BPB passes xdfCheck so the registry's XDF handler gets a turn.
func OpenPCDOS(f fsio.File, size int64) (*geometry.Image, error) {
	b, err := readBPB(f)
	if err != nil {
		return nil, err
	}
	if b.Signature != 0xAA55 {
		return nil, fmt.Errorf("%w: BPB signature mismatch", ferr.ErrOpenMismatch)
	}
	if xdfCheck(b) {
		return nil, fmt.Errorf("%w: BPB declares XDF geometry, deferring to xdf_open", ferr.ErrOpenMismatch)
	}
	if b.BytesPerSec == 0 || b.SecPerTrack == 0 || b.NumHeads == 0 {
		return nil, fmt.Errorf("%w: BPB has zero geometry field", ferr.ErrOpenMismatch)
	}

	totSec := int(b.TotSecSmall)
	if totSec == 0 {
		totSec = int(size / int64(b.BytesPerSec))
	}
	if totSec == 0 {
		return nil, fmt.Errorf("%w: BPB total sectors is zero", ferr.ErrOpenMismatch)
	}

	nrSides := int(b.NumHeads)
	spt := int(b.SecPerTrack)
	nrCyls := totSec / (spt * nrSides)
	if nrCyls <= 0 {
		return nil, fmt.Errorf("%w: BPB implies zero cylinders", ferr.ErrOpenMismatch)
	}

	no := sizeCodeForBytes(int(b.BytesPerSec))

	interleave, cskew := 1, 0
	if spt == 21 && b.BytesPerSec == 512 {
		interleave, cskew = 2, 3
	}

	im := &geometry.Image{}
	arena := geometry.NewArena(0, 0)
	if err := geometry.InitTrackMap(im, nrCyls, nrSides, arena); err != nil {
		return nil, err
	}
	layout := geometry.SimpleLayout{
		NrSectors: spt, No: no, DataRate: 250000, HasIAM: true,
		Base: [2]int{1, 1}, Interleave: interleave, CSkew: cskew,
	}
	if spt >= 15 {
		layout.DataRate = 500000
	}
	if err := geometry.ApplySimpleLayout(im, layout); err != nil {
		return nil, err
	}
	return im, nil
}

func sizeCodeForBytes(n int) uint8 {
	var no uint8
	for v := 128; v < n && no < geometry.MaxSizeCode; v <<= 1 {
		no++
	}
	return no
}
