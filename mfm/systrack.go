// Package mfm implements both the legacy Amiga/IBM-PC bit-level codec
// (writer.go, reader.go, flux.go) used by the HFE passthrough path, and
// the spec-faithful IBM/ISO System-34 MFM track-level encoder/decoder
// (this file, sysbits.go) that the track package drives (§4.6, §4.8).
package mfm

import (
	"fmt"

	"github.com/sergev/fdimage/crc"
	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/geometry"
)

// gap3Max is GAP_3_MAX[n]: the largest gap_3 the auto-gap algorithm will
// choose for a sector of size code n, per §4.6.
var gap3Max = [7]int{32, 54, 84, 116, 255, 255, 255}

// defaultGap1 is the fixed post-IAM gap (§4.6); unlike gap_2/gap_3/gap_4a
// it is never auto-computed or overridable per track.
const defaultGap1 = 50

// TrackTiming holds every gap/rate/length value PrepTrack resolves for one
// track, ready for EncodeTrack and DecodeWriteTrack.
type TrackTiming struct {
	Gap2, Gap3, Gap4A int
	DataRateKbps      int
	IdxSzBytes        int // post-index gap_4a (+ IAM block) in encoded bytes
	EssBytes          []int // per-sector encoded size, in bytes
	TrackLenBC        int // total raw bitcells for the track, rounded to 32
	Gap4Bytes         int // trailing-gap byte count that pads to TrackLenBC
	TrackDelayBC      int // head-skew offset subtracted from cur_bc before decode, per calc_start_pos
}

// idamSize returns the encoded byte length of one IDAM field: 12 zero +
// 3 sync + mark + CHRN (8) + CRC (2) + gap_2 + post_crc_syncs.
func idamSize(gap2, postCRCSyncs int) int {
	return 12 + 8 + 2 + gap2 + postCRCSyncs
}

// damSizePre returns the IDAM-to-data-mark fixed prefix: 12 zero + 3 sync
// + mark byte.
func damSizePre() int { return 12 + 4 }

// damSizePost returns the post-data fixed suffix: CRC (2) + gap_3 +
// post_crc_syncs.
func damSizePost(gap3, postCRCSyncs int) int {
	return 2 + gap3 + postCRCSyncs
}

func idxSize(hasIAM bool, gap4a int) int {
	sz := gap4a
	if hasIAM {
		sz += 12 + 4 + defaultGap1
	}
	return sz
}

// PrepTrack resolves gap2/gap3/gap4a, infers the data rate when the track
// asks for it, and computes the encoded byte length of every sector and
// the overall track, per §4.6.
func PrepTrack(trk geometry.TrackDescriptor, secs []geometry.SectorDescriptor, postCRCSyncs int) (TrackTiming, error) {
	gap2 := trk.Gap2
	gap2Auto := gap2 < 0
	if gap2Auto {
		gap2 = 22
	}
	gap4a := trk.Gap4A
	if gap4a < 0 {
		gap4a = 80
	}

	idxSz := idxSize(trk.HasIAM, gap4a)
	idamSz := idamSize(gap2, postCRCSyncs)
	preSz := damSizePre()

	// First pass: baseline ess with gap_3 treated as 0, to infer the data
	// rate before gap_3 is known.
	ess0 := make([]int, len(secs))
	total0 := idxSz
	for i, s := range secs {
		ess0[i] = idamSz + preSz + s.Size() + damSizePost(0, postCRCSyncs)
		total0 += ess0[i]
	}
	totalBitcells0 := total0 * 16

	rpm := trk.RPMOrDefault()
	stkBase := 50000 * 300 / rpm
	rateKbps := 1000
	for i := 1; i <= 3; i++ {
		capBits := (stkBase << uint(i)) + 5000
		if totalBitcells0 <= capBits {
			rateKbps = []int{250, 500, 1000}[i-1]
			break
		}
	}

	if rateKbps >= 1000 && gap2Auto {
		gap2 = 41
		idamSz = idamSize(gap2, postCRCSyncs)
	}

	if trk.DataRate != 0 {
		rateKbps = trk.DataRate / 1000
	}

	targetTrackLenBC := rateKbps * 400 * 300 / rpm

	gap3 := trk.Gap3
	if gap3 < 0 {
		n := uint8(0)
		if len(secs) > 0 {
			n = secs[0].N
		}
		maxGap3 := gap3Max[minInt(int(n), len(gap3Max)-1)]
		baseNoGap3 := idxSz
		for i, s := range secs {
			baseNoGap3 += idamSz + preSz + s.Size() + damSizePost(0, postCRCSyncs)
			_ = i
		}
		spaceBytes := targetTrackLenBC/16 - baseNoGap3
		if len(secs) > 0 {
			gap3 = spaceBytes / len(secs)
		} else {
			gap3 = maxGap3
		}
		if gap3 > maxGap3 {
			gap3 = maxGap3
		}
		if gap3 < 0 {
			gap3 = 0
		}
	}

	ess := make([]int, len(secs))
	actual := idxSz
	for i, s := range secs {
		ess[i] = idamSz + preSz + s.Size() + damSizePost(gap3, postCRCSyncs)
		actual += ess[i]
	}
	actualBC := actual * 16

	trackLenBC := targetTrackLenBC
	if actualBC > trackLenBC {
		trackLenBC = actualBC
	}
	if rem := trackLenBC % 32; rem != 0 {
		trackLenBC += 32 - rem
	}

	gap4 := (trackLenBC - actualBC) / 16
	if gap4 < 0 {
		gap4 = 0
	}

	return TrackTiming{
		Gap2: gap2, Gap3: gap3, Gap4A: gap4a,
		DataRateKbps: rateKbps,
		IdxSzBytes:   idxSz,
		EssBytes:     ess,
		TrackLenBC:   trackLenBC,
		Gap4Bytes:    gap4,
		TrackDelayBC: trk.TrackDelayBC,
	}, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// SectorSource supplies the payload bytes for a sector given its logical
// index within trk's SectorDescriptor slice (0-based).
type SectorSource func(logicalIdx int) ([]byte, error)

// EncodeTrack renders one full MFM track as raw bitcells (one byte per 16
// cells), in the rotational order given by secMap (rotational slot i maps
// to logical sector secMap[i]), per §4.6.
func EncodeTrack(cyl, head int, trk geometry.TrackDescriptor, secs []geometry.SectorDescriptor, secMap []int, timing TrackTiming, postCRCSyncs int, src SectorSource) ([]byte, error) {
	if len(secMap) != len(secs) {
		return nil, fmt.Errorf("%w: sec_map length %d != nr_sectors %d", ferr.ErrFormatInvalid, len(secMap), len(secs))
	}

	w := newSysBitWriter(timing.TrackLenBC/8 + 64)
	w.WriteGap(timing.Gap4A, 0x4E)
	if trk.HasIAM {
		w.WriteSyncC2()
		w.WriteByte(0xFC)
		w.WriteGap(defaultGap1, 0x4E)
	}

	effHead := head
	if trk.Head != 0 {
		effHead = trk.Head - 1
	}

	for rot, logical := range secMap {
		s := secs[logical]

		w.WriteSyncA1()
		w.WriteByte(0xFE)
		chrn := []byte{byte(cyl), byte(effHead), s.R, s.N}
		w.WriteByte(chrn[0])
		w.WriteByte(chrn[1])
		w.WriteByte(chrn[2])
		w.WriteByte(chrn[3])
		idamCRC := crc.Bytes(crc.MFMIDAMCRC, chrn)
		w.WriteByte(byte(idamCRC >> 8))
		w.WriteByte(byte(idamCRC))
		for k := 0; k < postCRCSyncs; k++ {
			w.WriteRawSyncA1()
		}
		w.WriteGap(timing.Gap2, 0x4E)

		w.WriteSyncA1()
		w.WriteByte(0xFB)
		payload, err := src(logical)
		if err != nil {
			return nil, err
		}
		if len(payload) != s.Size() {
			return nil, fmt.Errorf("%w: sector %d payload length %d != expected %d",
				ferr.ErrFormatInvalid, logical, len(payload), s.Size())
		}
		out := payload
		if trk.InvertData {
			out = make([]byte, len(payload))
			for i, b := range payload {
				out[i] = b ^ 0xFF
			}
		}
		for _, b := range out {
			w.WriteByte(b)
		}
		dataCRC := crc.Bytes(crc.MFMDAMCRC, out)
		w.WriteByte(byte(dataCRC >> 8))
		w.WriteByte(byte(dataCRC))
		for k := 0; k < postCRCSyncs; k++ {
			w.WriteRawSyncA1()
		}
		w.WriteGap(timing.Gap3, 0x4E)
		_ = rot
	}

	w.WriteGap(timing.Gap4Bytes, 0x4E)
	return w.Bytes(), nil
}

// DecodedSector is one sector pulled off the raw bitstream by ScanTrack.
type DecodedSector struct {
	Cyl, Head, R, N int
	Data            []byte
	CRCOK           bool
	HeaderCRCOK     bool
}

// ScanTrack walks a raw MFM bitcell buffer (as produced by EncodeTrack, or
// read back from a real drive/container) and extracts every IDAM/DAM pair
// it can synchronize on, verifying CRCs but never aborting on mismatch
// (§4.8's "persist across CRC errors" policy: mismatched sectors are
// still returned, with CRCOK=false, for the caller to decide).
func ScanTrack(raw []byte) []DecodedSector {
	r := newSysBitReader(raw)
	var out []DecodedSector
outer:
	for {
		mark, ok := r.syncTo0xA1orC2()
		if !ok {
			break
		}
		b, ok := r.ReadByte()
		if !ok {
			break
		}
		switch {
		case mark == 0xA1 && b == 0xFE:
			chrn, ok := r.ReadBytes(4)
			if !ok {
				break outer
			}
			crcBytes, ok := r.ReadBytes(2)
			if !ok {
				break outer
			}
			want := crc.Bytes(crc.MFMIDAMCRC, chrn)
			got := uint16(crcBytes[0])<<8 | uint16(crcBytes[1])
			sec := DecodedSector{
				Cyl: int(chrn[0]), Head: int(chrn[1]), R: int(chrn[2]), N: int(chrn[3]),
				HeaderCRCOK: want == got,
			}
			out = append(out, sec)
		case mark == 0xA1 && (b == 0xFB || b == 0xF8):
			if len(out) == 0 {
				continue
			}
			last := &out[len(out)-1]
			if last.Data != nil {
				continue
			}
			size := 128 << uint(last.N&0x7)
			data, ok := r.ReadBytes(size)
			if !ok {
				break outer
			}
			crcBytes, ok := r.ReadBytes(2)
			if !ok {
				break outer
			}
			want := crc.Bytes(crc.MFMDAMCRC, data)
			got := uint16(crcBytes[0])<<8 | uint16(crcBytes[1])
			last.Data = data
			last.CRCOK = want == got
		}
	}
	return out
}

// FindFirstWriteSector resolves the §4.9 find_first_write_sector rule: the
// rotational slot under the head when a write begins at the given
// fractional angle (0..1) of a revolution. Matches img.c's calc_start_pos:
// the head-skew delay is subtracted (and wrapped) before the sector walk.
func FindFirstWriteSector(secMap []int, timing TrackTiming, angle float64) int {
	if len(secMap) == 0 {
		return 0
	}
	targetBC := int(angle * float64(timing.TrackLenBC))
	targetBC -= timing.TrackDelayBC
	if targetBC < 0 {
		targetBC += timing.TrackLenBC
	}
	pos := timing.IdxSzBytes * 16
	for i := range secMap {
		essBC := timing.EssBytes[i] * 16
		if pos+essBC > targetBC {
			return i
		}
		pos += essBC
	}
	return 0
}
