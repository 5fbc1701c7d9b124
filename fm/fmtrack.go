// Package fm implements the IBM System-3740 single-density (FM) track-level
// encoder/decoder, the FM counterpart to package mfm's System-34 (MFM)
// engine, per §4.7.
package fm

import (
	"fmt"

	"github.com/sergev/fdimage/crc"
	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/geometry"
)

// fmSyncClock is the clock pattern written on IDAM/DAM/IAM marks instead
// of FM's normal all-ones clock, producing the synchronization violation
// a read channel locks onto.
const fmSyncClock = 0xC7

// gap3Max is this format's GAP_3_MAX[n], smaller than MFM's since FM wastes
// one cell per bit: derived by halving the nominal MFM table.
var gap3Max = [7]int{16, 27, 42, 58, 128, 128, 128}

const defaultGap1 = 26

// TrackTiming mirrors mfm.TrackTiming for the FM engine.
type TrackTiming struct {
	Gap2, Gap3, Gap4A int
	DataRateKbps      int
	IdxSzBytes        int
	EssBytes          []int
	TrackLenBC        int
	Gap4Bytes         int
	TrackDelayBC      int
}

func idamSize(gap2 int) int { return 6 + 6 + 2 + gap2 }
func damSizePre() int       { return 6 + 1 }
func damSizePost(gap3 int) int { return 2 + gap3 }

func idxSize(hasIAM bool, gap4a int) int {
	sz := gap4a
	if hasIAM {
		sz += 6 + 1 + defaultGap1
	}
	return sz
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// PrepTrack is the FM analogue of mfm.PrepTrack: FM defaults to gap_2=11,
// gap_4a=40 (with IAM) or 16 (without), independent of data rate; its
// rate is always inferred at one half the MFM table since FM never runs
// above single density.
func PrepTrack(trk geometry.TrackDescriptor, secs []geometry.SectorDescriptor) (TrackTiming, error) {
	gap2 := trk.Gap2
	if gap2 < 0 {
		gap2 = 11
	}
	gap4a := trk.Gap4A
	gap4aAuto := gap4a < 0
	if gap4aAuto {
		gap4a = 40
		if !trk.HasIAM {
			gap4a = 16
		}
	}

	idxSz := idxSize(trk.HasIAM, gap4a)
	idamSz := idamSize(gap2)
	preSz := damSizePre()

	total0 := idxSz
	for _, s := range secs {
		total0 += idamSz + preSz + s.Size() + damSizePost(0)
	}
	totalBitcells0 := total0 * 16

	rpm := trk.RPMOrDefault()
	stkBase := 50000 * 300 / rpm
	rateKbps := 500
	for i := 1; i <= 2; i++ {
		capBits := (stkBase << uint(i)) + 5000
		if totalBitcells0 <= capBits {
			rateKbps = []int{125, 250}[i-1]
			break
		}
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
		for _, s := range secs {
			baseNoGap3 += idamSz + preSz + s.Size() + damSizePost(0)
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
		ess[i] = idamSz + preSz + s.Size() + damSizePost(gap3)
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

// SectorSource supplies one sector's payload by logical index.
type SectorSource func(logicalIdx int) ([]byte, error)

type fmBitWriter struct {
	buf    []byte
	bitPos int
}

func newFMBitWriter(sizeHint int) *fmBitWriter {
	return &fmBitWriter{buf: make([]byte, 0, sizeHint)}
}

func (w *fmBitWriter) writeHalfBit(bit int) {
	byteIdx := w.bitPos / 8
	for byteIdx >= len(w.buf) {
		w.buf = append(w.buf, 0)
	}
	if bit != 0 {
		w.buf[byteIdx] |= 1 << uint(7-(w.bitPos%8))
	}
	w.bitPos++
}

func (w *fmBitWriter) WriteByte(b byte) {
	for i := 7; i >= 0; i-- {
		w.writeHalfBit(1)
		w.writeHalfBit(int((b >> uint(i)) & 1))
	}
}

func (w *fmBitWriter) WriteGap(n int, fill byte) {
	for i := 0; i < n; i++ {
		w.WriteByte(fill)
	}
}

func (w *fmBitWriter) WriteSync(markByte byte) {
	for i := 7; i >= 0; i-- {
		w.writeHalfBit(int((fmSyncClock >> uint(i)) & 1))
		w.writeHalfBit(int((markByte >> uint(i)) & 1))
	}
}

func (w *fmBitWriter) Bytes() []byte {
	n := (w.bitPos + 7) / 8
	if n < len(w.buf) {
		return w.buf[:n]
	}
	return w.buf
}

// EncodeTrack renders one full FM track as raw bitcells, per §4.7.
func EncodeTrack(cyl, head int, trk geometry.TrackDescriptor, secs []geometry.SectorDescriptor, secMap []int, timing TrackTiming, src SectorSource) ([]byte, error) {
	if len(secMap) != len(secs) {
		return nil, fmt.Errorf("%w: sec_map length %d != nr_sectors %d", ferr.ErrFormatInvalid, len(secMap), len(secs))
	}

	w := newFMBitWriter(timing.TrackLenBC/8 + 64)
	w.WriteGap(timing.Gap4A, 0xFF)
	if trk.HasIAM {
		w.WriteSync(0xFC)
		w.WriteGap(defaultGap1, 0xFF)
	}

	effHead := head
	if trk.Head != 0 {
		effHead = trk.Head - 1
	}

	for _, logical := range secMap {
		s := secs[logical]

		w.WriteSync(0xFE)
		chrn := []byte{byte(cyl), byte(effHead), s.R, s.N}
		for _, b := range chrn {
			w.WriteByte(b)
		}
		idamCRC := crc.Byte(crc.Init, 0xFE)
		idamCRC = crc.Bytes(idamCRC, chrn)
		w.WriteByte(byte(idamCRC >> 8))
		w.WriteByte(byte(idamCRC))
		w.WriteGap(timing.Gap2, 0xFF)

		w.WriteSync(0xFB)
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
		dataCRC := crc.Byte(crc.Init, 0xFB)
		dataCRC = crc.Bytes(dataCRC, out)
		w.WriteByte(byte(dataCRC >> 8))
		w.WriteByte(byte(dataCRC))
		w.WriteGap(timing.Gap3, 0xFF)
	}

	w.WriteGap(timing.Gap4Bytes, 0xFF)
	return w.Bytes(), nil
}

// DecodedSector mirrors mfm.DecodedSector for the FM engine.
type DecodedSector struct {
	Cyl, Head, R, N int
	Data            []byte
	CRCOK           bool
	HeaderCRCOK     bool
}

type fmBitReader struct {
	buf    []byte
	bitPos int
}

func newFMBitReader(buf []byte) *fmBitReader { return &fmBitReader{buf: buf} }

func (r *fmBitReader) totalBits() int { return len(r.buf) * 8 }

func (r *fmBitReader) peekBit(offset int) int {
	pos := r.bitPos + offset
	if pos < 0 || pos >= r.totalBits() {
		return 0
	}
	byteIdx := pos / 8
	return int((r.buf[byteIdx] >> uint(7-(pos%8))) & 1)
}

// syncToMark scans for the fmSyncClock clock pattern interleaved with a
// data byte and returns that data byte (0xFC/0xFE/0xFB/0xF8).
func (r *fmBitReader) syncToMark() (byte, bool) {
	for r.bitPos+16 <= r.totalBits() {
		var clock, data byte
		for i := 0; i < 8; i++ {
			clock = (clock << 1) | byte(r.peekBit(2*i))
			data = (data << 1) | byte(r.peekBit(2*i+1))
		}
		if clock == fmSyncClock && (data == 0xFC || data == 0xFE || data == 0xFB || data == 0xF8) {
			r.bitPos += 16
			return data, true
		}
		r.bitPos++
	}
	return 0, false
}

func (r *fmBitReader) ReadByte() (byte, bool) {
	if r.bitPos+16 > r.totalBits() {
		return 0, false
	}
	var b byte
	for i := 0; i < 8; i++ {
		b = (b << 1) | byte(r.peekBit(2*i+1))
	}
	r.bitPos += 16
	return b, true
}

func (r *fmBitReader) ReadBytes(n int) ([]byte, bool) {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b, ok := r.ReadByte()
		if !ok {
			return nil, false
		}
		out[i] = b
	}
	return out, true
}

// ScanTrack is the FM analogue of mfm.ScanTrack.
func ScanTrack(raw []byte) []DecodedSector {
	r := newFMBitReader(raw)
	var out []DecodedSector
outer:
	for {
		mark, ok := r.syncToMark()
		if !ok {
			break
		}
		switch mark {
		case 0xFE:
			chrn, ok := r.ReadBytes(4)
			if !ok {
				break outer
			}
			crcBytes, ok := r.ReadBytes(2)
			if !ok {
				break outer
			}
			want := crc.Bytes(crc.Byte(crc.Init, 0xFE), chrn)
			got := uint16(crcBytes[0])<<8 | uint16(crcBytes[1])
			out = append(out, DecodedSector{
				Cyl: int(chrn[0]), Head: int(chrn[1]), R: int(chrn[2]), N: int(chrn[3]),
				HeaderCRCOK: want == got,
			})
		case 0xFB, 0xF8:
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
			want := crc.Bytes(crc.Byte(crc.Init, mark), data)
			got := uint16(crcBytes[0])<<8 | uint16(crcBytes[1])
			last.Data = data
			last.CRCOK = want == got
		}
	}
	return out
}

// FindFirstWriteSector is the FM analogue of mfm.FindFirstWriteSector.
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
