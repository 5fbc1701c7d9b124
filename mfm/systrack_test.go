package mfm

import (
	"bytes"
	"testing"

	"github.com/sergev/fdimage/geometry"
)

func testTrack() (geometry.TrackDescriptor, []geometry.SectorDescriptor) {
	trk := geometry.TrackDescriptor{
		NrSectors: 9, HasIAM: true, Gap2: -1, Gap3: -1, Gap4A: -1,
		Interleave: 1,
	}
	secs := make([]geometry.SectorDescriptor, trk.NrSectors)
	for i := range secs {
		secs[i] = geometry.SectorDescriptor{R: byte(i + 1), N: 2}
	}
	return trk, secs
}

func TestPrepTrackProducesPositiveTrackLen(t *testing.T) {
	trk, secs := testTrack()
	timing, err := PrepTrack(trk, secs, 0)
	if err != nil {
		t.Fatalf("PrepTrack: %v", err)
	}
	if timing.TrackLenBC <= 0 {
		t.Errorf("TrackLenBC = %d, want > 0", timing.TrackLenBC)
	}
	if timing.TrackLenBC%32 != 0 {
		t.Errorf("TrackLenBC = %d, want multiple of 32", timing.TrackLenBC)
	}
	if len(timing.EssBytes) != len(secs) {
		t.Errorf("EssBytes length = %d, want %d", len(timing.EssBytes), len(secs))
	}
}

func TestEncodeScanRoundTrip(t *testing.T) {
	trk, secs := testTrack()
	timing, err := PrepTrack(trk, secs, 0)
	if err != nil {
		t.Fatalf("PrepTrack: %v", err)
	}
	secMap := make([]int, len(secs))
	for i := range secMap {
		secMap[i] = i
	}

	payloads := make(map[int][]byte)
	for i := range secs {
		p := bytes.Repeat([]byte{byte(0x10 + i)}, secs[i].Size())
		payloads[i] = p
	}
	src := func(logical int) ([]byte, error) { return payloads[logical], nil }

	raw, err := EncodeTrack(1, 0, trk, secs, secMap, timing, 0, src)
	if err != nil {
		t.Fatalf("EncodeTrack: %v", err)
	}

	decoded := ScanTrack(raw)
	if len(decoded) != len(secs) {
		t.Fatalf("ScanTrack returned %d sectors, want %d", len(decoded), len(secs))
	}
	for i, d := range decoded {
		if !d.HeaderCRCOK {
			t.Errorf("sector %d: header CRC mismatch", i)
		}
		if !d.CRCOK {
			t.Errorf("sector %d: data CRC mismatch", i)
		}
		if !bytes.Equal(d.Data, payloads[d.R-1]) {
			t.Errorf("sector %d (R=%d): payload mismatch", i, d.R)
		}
		if d.Cyl != 1 {
			t.Errorf("sector %d: cyl = %d, want 1", i, d.Cyl)
		}
	}
}

func TestFindFirstWriteSectorAtZeroAngle(t *testing.T) {
	trk, secs := testTrack()
	timing, err := PrepTrack(trk, secs, 0)
	if err != nil {
		t.Fatalf("PrepTrack: %v", err)
	}
	secMap := make([]int, len(secs))
	for i := range secMap {
		secMap[i] = i
	}
	if got := FindFirstWriteSector(secMap, timing, 0); got != 0 {
		t.Errorf("FindFirstWriteSector(angle=0) = %d, want 0", got)
	}
}
