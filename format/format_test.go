package format

import (
	"testing"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/geometry"
	"github.com/sergev/fdimage/host"
)

// memFile is a minimal in-memory fsio.File for exercising openers without
// touching disk, per spec §6.2's filesystem-collaborator seam.
type memFile struct {
	data []byte
}

func newMemFile(data []byte) *memFile { return &memFile{data: data} }

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, nil
	}
	n := copy(p, m.data[off:])
	return n, nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:], p)
	return len(p), nil
}

func (m *memFile) Size() (int64, error) { return int64(len(m.data)), nil }
func (m *memFile) Close() error         { return nil }

// Scenario 1 (spec §8): 1.44 MB PC IMG, no header.
func TestOpenGenericIMG144(t *testing.T) {
	size := int64(80 * 2 * 18 * 512)
	f := newMemFile(make([]byte, size))
	im, err := OpenGenericIMG(host.Generic)(f, size)
	if err != nil {
		t.Fatalf("OpenGenericIMG: %v", err)
	}
	if err := geometry.FinaliseTrackMap(im); err != nil {
		t.Fatalf("FinaliseTrackMap: %v", err)
	}
	if im.NrCyls != 80 || im.NrSides != 2 {
		t.Errorf("geometry = %dx%d, want 80x2", im.NrCyls, im.NrSides)
	}
	trk, err := im.TrackAt(0, 0)
	if err != nil {
		t.Fatalf("TrackAt: %v", err)
	}
	if trk.NrSectors != 18 {
		t.Errorf("NrSectors = %d, want 18", trk.NrSectors)
	}
	if trk.IsFM {
		t.Error("1.44M image should be MFM, got FM")
	}
	if !trk.HasIAM {
		t.Error("expected HasIAM=true")
	}
	off, err := im.TrackOffset(0, 0)
	if err != nil {
		t.Fatalf("TrackOffset: %v", err)
	}
	if off != 0 {
		t.Errorf("track (0,0) offset = %d, want 0", off)
	}
	extended, err := im.Extend()
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if extended != size {
		t.Errorf("Extend() = %d, want %d", extended, size)
	}
}

// Scenario 2 (spec §8): ATR SD, header magic 0x0296.
func TestOpenATRSingleDensity(t *testing.T) {
	const nrCyls = 40
	const spt = 18
	const secSize = 128
	dataSize := int64(nrCyls * spt * secSize)

	buf := make([]byte, atrHeaderSize+dataSize)
	buf[0], buf[1] = 0x96, 0x02 // magic 0x0296, little-endian
	sizeParagraphs := dataSize / 16
	buf[2] = byte(sizeParagraphs)
	buf[3] = byte(sizeParagraphs >> 8)
	buf[4], buf[5] = secSize, 0 // sec size = 128

	f := newMemFile(buf)
	im, err := OpenATR(f, int64(len(buf)))
	if err != nil {
		t.Fatalf("OpenATR: %v", err)
	}
	if err := geometry.FinaliseTrackMap(im); err != nil {
		t.Fatalf("FinaliseTrackMap: %v", err)
	}
	if im.BaseOff != atrHeaderSize {
		t.Errorf("BaseOff = %d, want %d", im.BaseOff, atrHeaderSize)
	}
	trk, err := im.TrackAt(0, 0)
	if err != nil {
		t.Fatalf("TrackAt: %v", err)
	}
	if !trk.IsFM {
		t.Error("ATR SD should decode as FM")
	}
	if !trk.InvertData {
		t.Error("ATR tracks must have InvertData=true")
	}
	if trk.DataRate != 130000 {
		t.Errorf("DataRate = %d, want 130000 (FM)", trk.DataRate)
	}
}

// Scenario 3 (spec §8): TRD single-sided, id byte 0x10 at 0x8E0+7,
// geometry derived from the file size since the catalog's free-space
// fields are left zeroed (an "invalid"/too-small reading per the real
// algorithm, so it falls back to size/256).
func TestOpenTRDSingleSided(t *testing.T) {
	nrCyls, nrSides, spt := 80, 1, 16
	size := int64(nrCyls * nrSides * spt * 256)
	buf := make([]byte, size)
	buf[trdGeometryOffset+3] = 0x19 // disk type: single-sided
	buf[trdGeometryOffset+trdIDOffset] = trdID

	f := newMemFile(buf)
	im, err := OpenTRD(f, size)
	if err != nil {
		t.Fatalf("OpenTRD: %v", err)
	}
	if err := geometry.FinaliseTrackMap(im); err != nil {
		t.Fatalf("FinaliseTrackMap: %v", err)
	}
	if im.NrSides != 1 {
		t.Errorf("NrSides = %d, want 1", im.NrSides)
	}
	if im.NrCyls != nrCyls {
		t.Errorf("NrCyls = %d, want %d", im.NrCyls, nrCyls)
	}
	trk, err := im.TrackAt(0, 0)
	if err != nil {
		t.Fatalf("TrackAt: %v", err)
	}
	if trk.IsFM {
		t.Error("TRD tracks should be MFM")
	}
	if trk.NrSectors != 16 {
		t.Errorf("NrSectors = %d, want 16", trk.NrSectors)
	}
}

// Exercises the real total-sectors formula via the catalog's free-space
// fields directly, per original_source's trd_open: tot_secs = free_sec +
// free_trk*16 + free_secs_lo + free_secs_hi*256.
func TestOpenTRDUsesCatalogFreeSpaceFields(t *testing.T) {
	const nrCyls, nrSides = 40, 2
	size := int64(nrCyls * nrSides * trdSectorsPerTrack * 256)
	buf := make([]byte, size)
	totSecs := nrCyls * nrSides * trdSectorsPerTrack // 1280
	buf[trdGeometryOffset+3] = 0x16                  // double-sided
	buf[trdGeometryOffset+5] = byte(totSecs & 0xFF)  // free_secs_lo
	buf[trdGeometryOffset+6] = byte(totSecs >> 8)    // free_secs_hi
	buf[trdGeometryOffset+trdIDOffset] = trdID

	f := newMemFile(buf)
	im, err := OpenTRD(f, size)
	if err != nil {
		t.Fatalf("OpenTRD: %v", err)
	}
	if im.NrCyls != nrCyls || im.NrSides != nrSides {
		t.Errorf("geometry = %dx%d, want %dx%d", im.NrCyls, im.NrSides, nrCyls, nrSides)
	}
}

// Scenario 5 (spec §8): TI99 DSDD80 (737280 bytes, VIB "DSK",
// tracks_per_side=80) resolves to 80 cyl/2 sides/18 spt MFM,
// interleave=5, cskew=3.
func TestOpenTI99DSDD80(t *testing.T) {
	const size = 737280
	buf := make([]byte, size)
	copy(buf[ti99VIBOffset:], []byte("DSK"))
	buf[14] = 80 // tracks_per_side, disambiguates DSDD80 from plain DSDD

	f := newMemFile(buf)
	im, err := OpenTI99(f, size)
	if err != nil {
		t.Fatalf("OpenTI99: %v", err)
	}
	if err := geometry.FinaliseTrackMap(im); err != nil {
		t.Fatalf("FinaliseTrackMap: %v", err)
	}
	if im.NrCyls != 80 || im.NrSides != 2 {
		t.Errorf("geometry = %dx%d, want 80x2", im.NrCyls, im.NrSides)
	}
	if !im.LayoutFlags.Has(geometry.Sequential) || !im.LayoutFlags.Has(geometry.ReverseSide1) {
		t.Error("expected Sequential|ReverseSide1 layout flags")
	}
	trk, err := im.TrackAt(0, 0)
	if err != nil {
		t.Fatalf("TrackAt: %v", err)
	}
	if trk.Interleave != 5 || trk.CSkew != 3 {
		t.Errorf("Interleave/CSkew = %d/%d, want 5/3", trk.Interleave, trk.CSkew)
	}
	if trk.NrSectors != 18 {
		t.Errorf("NrSectors = %d, want 18", trk.NrSectors)
	}
	if trk.IsFM {
		t.Error("DSDD80 should decode as MFM")
	}
}

// Without the tracks_per_side=80 VIB hint, the same fsize/(40*9)==4 case
// falls back to the plain DSDD assumption (40 cyl, interleave=5, 18 spt).
func TestOpenTI99DSDDWithoutVIBHint(t *testing.T) {
	const size = 737280
	buf := make([]byte, size)
	copy(buf[ti99VIBOffset:], []byte("DSK")) // magic present, tracksPerSide left 0

	f := newMemFile(buf)
	im, err := OpenTI99(f, size)
	if err != nil {
		t.Fatalf("OpenTI99: %v", err)
	}
	if im.NrCyls != 40 || im.NrSides != 2 {
		t.Errorf("geometry = %dx%d, want 40x2 (plain DSDD)", im.NrCyls, im.NrSides)
	}
}

// Scenario 4 (spec §8): XDF 3.5" HD (1,884,160 B, BPB spt=23): four
// layouts installed; cyl>0 head 1 emits with track_delay_bc=10000;
// sector IDs on cyl N head 0 are {131,130,132,134} with sizes
// {1024,512,2048,8192}.
func TestOpenXDF35HD(t *testing.T) {
	const size = 1884160
	buf := make([]byte, size)
	binaryLE16(buf, 11, 512)  // bytes_per_sec
	binaryLE16(buf, 17, 224)  // rootdir_ents (14 sectors, multiple of 16)
	binaryLE16(buf, 19, 3680) // tot_sec = 2*80*23
	binaryLE16(buf, 22, 9)    // fat_secs
	binaryLE16(buf, 24, 23)   // sec_per_track
	binaryLE16(buf, 26, 2)    // num_heads
	binaryLE16(buf, 510, 0xAA55)

	f := newMemFile(buf)
	im, err := OpenXDF(f, size)
	if err != nil {
		t.Fatalf("OpenXDF: %v", err)
	}
	if err := geometry.FinaliseTrackMap(im); err != nil {
		t.Fatalf("FinaliseTrackMap: %v", err)
	}
	if im.NrCyls != 80 || im.NrSides != 2 {
		t.Errorf("geometry = %dx%d, want 80x2", im.NrCyls, im.NrSides)
	}

	trk, err := im.TrackAt(1, 1)
	if err != nil {
		t.Fatalf("TrackAt(1,1): %v", err)
	}
	if trk.TrackDelayBC != 10000 {
		t.Errorf("cyl>0 head 1 TrackDelayBC = %d, want 10000", trk.TrackDelayBC)
	}

	trk0, err := im.TrackAt(1, 0)
	if err != nil {
		t.Fatalf("TrackAt(1,0): %v", err)
	}
	if trk0.NrSectors != 4 {
		t.Fatalf("cyl N head 0 NrSectors = %d, want 4", trk0.NrSectors)
	}
	wantR := []byte{131, 130, 132, 134}
	wantSize := []int{1024, 512, 2048, 8192}
	secs := im.Sectors(trk0)
	for i, s := range secs {
		if s.R != wantR[i] {
			t.Errorf("sector %d id = %d, want %d", i, s.R, wantR[i])
		}
		if s.Size() != wantSize[i] {
			t.Errorf("sector %d size = %d, want %d", i, s.Size(), wantSize[i])
		}
	}
}

func binaryLE16(buf []byte, off int, v uint16) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
}

// JVC with no header (811008 % 256 == 0) and every field defaulted:
// spt=18, sides=1, 256-byte sectors. 811008/4608 = 176 cylinders at the
// pre-upgrade, 1-sided geometry, which trips the >=88 single->double-side
// heuristic: sides becomes 2 and the cylinder count must be halved (not
// left at 176) to still account for the whole file.
func TestOpenJVCAutoUpgradesSides(t *testing.T) {
	const size = 811008
	f := newMemFile(make([]byte, size))
	im, err := OpenJVC(f, size)
	if err != nil {
		t.Fatalf("OpenJVC: %v", err)
	}
	if im.NrSides != 2 || im.NrCyls != 88 {
		t.Errorf("geometry = %dx%d, want 88x2", im.NrCyls, im.NrSides)
	}
	if err := geometry.FinaliseTrackMap(im); err != nil {
		t.Fatalf("FinaliseTrackMap: %v", err)
	}
	trk, err := im.TrackAt(0, 0)
	if err != nil {
		t.Fatalf("TrackAt(0,0): %v", err)
	}
	if !trk.HasIAM {
		t.Errorf("HasIAM = false, want true (jvc_open's layout inherits dfl_simple_layout's default)")
	}
	if trk.Interleave != 3 {
		t.Errorf("Interleave = %d, want 3", trk.Interleave)
	}
}

func TestOpenATRRejectsWrongMagic(t *testing.T) {
	buf := make([]byte, atrHeaderSize+128)
	f := newMemFile(buf)
	if _, err := OpenATR(f, int64(len(buf))); !ferr.Is(err, ferr.ErrOpenMismatch) {
		t.Errorf("expected ErrOpenMismatch for bad magic, got %v", err)
	}
}

func TestOpenImageTriesHandlersInOrder(t *testing.T) {
	registry = nil
	RegisterAll(host.Generic, nil, nil, nil)
	defer func() { registry = nil }()

	size := int64(80 * 2 * 18 * 512)
	f := newMemFile(make([]byte, size))
	im, handler, err := OpenImage(f, "disk.img")
	if err != nil {
		t.Fatalf("OpenImage: %v", err)
	}
	if handler != "generic" {
		t.Errorf("handler = %q, want generic", handler)
	}
	if im.NrCyls != 80 || im.NrSides != 2 {
		t.Errorf("geometry = %dx%d, want 80x2", im.NrCyls, im.NrSides)
	}
}

// File size 0 must fail every opener (spec §8 boundary: "File size 0 ->
// open fails").
func TestOpenImageRejectsEmptyFile(t *testing.T) {
	registry = nil
	RegisterAll(host.Generic, nil, nil, nil)
	defer func() { registry = nil }()

	f := newMemFile(nil)
	if _, _, err := OpenImage(f, "empty.img"); !ferr.Is(err, ferr.ErrOpenMismatch) {
		t.Errorf("expected ErrOpenMismatch for a 0-byte file, got %v", err)
	}
}
