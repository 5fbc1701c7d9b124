package track

import (
	"bytes"
	"testing"

	"github.com/sergev/fdimage/geometry"
)

// memFetcher is an in-memory Fetcher for tests.
type memFetcher struct {
	data []byte
}

func (m *memFetcher) ReadSectorAt(off int64, size int) ([]byte, error) {
	buf := make([]byte, size)
	copy(buf, m.data[off:off+int64(size)])
	return buf, nil
}

func (m *memFetcher) WriteSectorAt(off int64, data []byte) error {
	copy(m.data[off:], data)
	return nil
}

func newTestImage(t *testing.T) (*geometry.Image, *memFetcher) {
	t.Helper()
	im := &geometry.Image{}
	if err := geometry.InitTrackMap(im, 4, 2, nil); err != nil {
		t.Fatalf("InitTrackMap: %v", err)
	}
	layout := geometry.SimpleLayout{NrSectors: 9, No: 2, Base: [2]int{1, 1}, Interleave: 1, HasIAM: true}
	if err := geometry.ApplySimpleLayout(im, layout); err != nil {
		t.Fatalf("ApplySimpleLayout: %v", err)
	}
	size, err := im.Extend()
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	fetcher := &memFetcher{data: make([]byte, size)}
	for i := range fetcher.data {
		fetcher.data[i] = byte(i)
	}
	return im, fetcher
}

func TestCalcStartPosZeroAngle(t *testing.T) {
	im, fetcher := newTestImage(t)
	c := NewCursor(im, fetcher, 0)
	if err := c.SeekTrack(0, 0); err != nil {
		t.Fatalf("SeekTrack: %v", err)
	}
	if err := c.ensureEncoded(); err != nil {
		t.Fatalf("ensureEncoded: %v", err)
	}
	c.CalcStartPos(0)
	if c.DecodePos != 0 || c.TrkSec != 0 || c.RdSecPos != 0 || c.DecodeDataPos != 0 || c.CRC != 0xFFFF {
		t.Errorf("CalcStartPos(0) = %+v, want all-zero state with CRC 0xFFFF", c)
	}
}

// TestCalcStartPosHeadSkew proves TrackDelayBC is live in CalcStartPos, not
// a disguised no-op: two tracks identical except for TrackDelayBC (modeling
// XDF's cyl>0 head 1 skew of 10000 bitcells per format/xdf.go) must decode
// to different cursor state at the same rotational angle.
func TestCalcStartPosHeadSkew(t *testing.T) {
	im, fetcher := newTestImage(t)

	head0 := NewCursor(im, fetcher, 0)
	if err := head0.SeekTrack(2, 0); err != nil {
		t.Fatalf("SeekTrack: %v", err)
	}
	if err := head0.ensureEncoded(); err != nil {
		t.Fatalf("ensureEncoded: %v", err)
	}
	head0.CalcStartPos(0)

	head1 := NewCursor(im, fetcher, 0)
	if err := head1.SeekTrack(2, 0); err != nil {
		t.Fatalf("SeekTrack: %v", err)
	}
	head1.Trk.TrackDelayBC = 10000
	if err := head1.ensureEncoded(); err != nil {
		t.Fatalf("ensureEncoded: %v", err)
	}
	head1.CalcStartPos(0)

	if head0.DecodePos == head1.DecodePos && head0.TrkSec == head1.TrkSec &&
		head0.RdSecPos == head1.RdSecPos {
		t.Errorf("CalcStartPos(0) identical for TrackDelayBC=0 and TrackDelayBC=10000: "+
			"got decode_pos=%d trk_sec=%d rd_sec_pos=%d both times, TrackDelayBC is dead",
			head0.DecodePos, head0.TrkSec, head0.RdSecPos)
	}
}

func TestSecMapIsPermutation(t *testing.T) {
	im, fetcher := newTestImage(t)
	c := NewCursor(im, fetcher, 0)
	if err := c.SeekTrack(2, 1); err != nil {
		t.Fatalf("SeekTrack: %v", err)
	}
	seen := make(map[int]bool)
	for _, logical := range c.SecMap {
		if logical < 0 || logical >= len(c.Secs) {
			t.Fatalf("sec_map entry %d out of range", logical)
		}
		if seen[logical] {
			t.Fatalf("sec_map is not a permutation: %d appears twice", logical)
		}
		seen[logical] = true
	}
}

func TestReadWriteTrackRoundTrip(t *testing.T) {
	im, fetcher := newTestImage(t)
	reader := NewCursor(im, fetcher, 0)
	if err := reader.SeekTrack(1, 0); err != nil {
		t.Fatalf("SeekTrack: %v", err)
	}
	if err := reader.ensureEncoded(); err != nil {
		t.Fatalf("ensureEncoded: %v", err)
	}
	raw := append([]byte(nil), reader.raw...)

	target := &memFetcher{data: make([]byte, len(fetcher.data))}
	writer := NewCursor(im, target, 0)
	if err := writer.SeekTrack(1, 0); err != nil {
		t.Fatalf("SeekTrack: %v", err)
	}
	flushed, err := writer.WriteTrack(raw, nil)
	if err != nil {
		t.Fatalf("WriteTrack: %v", err)
	}
	if !flushed {
		t.Fatal("WriteTrack did not flush on a full track's worth of data")
	}

	trk, _ := im.TrackAt(1, 0)
	off, err := im.TrackOffset(1, 0)
	if err != nil {
		t.Fatalf("TrackOffset: %v", err)
	}
	size := 0
	for _, s := range im.Sectors(trk) {
		size += s.Size()
	}
	want := fetcher.data[off : off+int64(size)]
	got := target.data[off : off+int64(size)]
	if !bytes.Equal(got, want) {
		t.Errorf("write_track round trip mismatch: got %v want %v", got, want)
	}
}
