package fm

import (
	"bytes"
	"testing"

	"github.com/sergev/fdimage/geometry"
)

func testTrack() (geometry.TrackDescriptor, []geometry.SectorDescriptor) {
	return testTrackWithIAM(true)
}

func testTrackWithIAM(hasIAM bool) (geometry.TrackDescriptor, []geometry.SectorDescriptor) {
	trk := geometry.TrackDescriptor{
		NrSectors: 10, HasIAM: hasIAM, Gap2: -1, Gap3: -1, Gap4A: -1,
		Interleave: 1, IsFM: true,
	}
	secs := make([]geometry.SectorDescriptor, trk.NrSectors)
	for i := range secs {
		secs[i] = geometry.SectorDescriptor{R: byte(i + 1), N: 0}
	}
	return trk, secs
}

// Per spec.md's "default gap_2 = 11, default gap_4a = 40 (with IAM) or 16
// (without)": the gap_4a default must depend only on HasIAM, never on the
// inferred data rate.
func TestPrepTrackGap4ADefault(t *testing.T) {
	trk, secs := testTrackWithIAM(true)
	timing, err := PrepTrack(trk, secs)
	if err != nil {
		t.Fatalf("PrepTrack: %v", err)
	}
	if timing.Gap4A != 40 {
		t.Errorf("HasIAM=true: Gap4A = %d, want 40", timing.Gap4A)
	}

	trk, secs = testTrackWithIAM(false)
	timing, err = PrepTrack(trk, secs)
	if err != nil {
		t.Fatalf("PrepTrack: %v", err)
	}
	if timing.Gap4A != 16 {
		t.Errorf("HasIAM=false: Gap4A = %d, want 16", timing.Gap4A)
	}
}

func TestEncodeScanRoundTrip(t *testing.T) {
	trk, secs := testTrack()
	timing, err := PrepTrack(trk, secs)
	if err != nil {
		t.Fatalf("PrepTrack: %v", err)
	}
	secMap := make([]int, len(secs))
	for i := range secMap {
		secMap[i] = i
	}

	payloads := make(map[int][]byte)
	for i := range secs {
		payloads[i] = bytes.Repeat([]byte{byte(0x20 + i)}, secs[i].Size())
	}
	src := func(logical int) ([]byte, error) { return payloads[logical], nil }

	raw, err := EncodeTrack(0, 0, trk, secs, secMap, timing, src)
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
	}
}
