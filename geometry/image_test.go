package geometry

import "testing"

func TestInitTrackMapRejectsBadSides(t *testing.T) {
	cases := []struct {
		name    string
		nrSides int
		wantErr bool
	}{
		{"one side ok", 1, false},
		{"two sides ok", 2, false},
		{"zero sides rejected", 0, true},
		{"three sides rejected", 3, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			im := &Image{}
			err := InitTrackMap(im, 40, tc.nrSides, nil)
			if (err != nil) != tc.wantErr {
				t.Errorf("InitTrackMap(nrSides=%d) error = %v, wantErr %v", tc.nrSides, err, tc.wantErr)
			}
		})
	}
}

func TestInitTrackMapRejectsBadCyls(t *testing.T) {
	im := &Image{}
	if err := InitTrackMap(im, 0, 2, nil); err == nil {
		t.Error("expected error for nrCyls=0")
	}
	im2 := &Image{}
	if err := InitTrackMap(im2, MaxCyls+1, 2, nil); err == nil {
		t.Error("expected error for nrCyls > MaxCyls")
	}
}

func TestApplySimpleLayoutUniformTrack(t *testing.T) {
	im := &Image{}
	if err := InitTrackMap(im, 40, 2, nil); err != nil {
		t.Fatalf("InitTrackMap: %v", err)
	}
	layout := SimpleLayout{NrSectors: 9, No: 2, Base: [2]int{1, 1}, Interleave: 1, HasIAM: true}
	if err := ApplySimpleLayout(im, layout); err != nil {
		t.Fatalf("ApplySimpleLayout: %v", err)
	}

	for cyl := 0; cyl < im.NrCyls; cyl++ {
		for side := 0; side < im.NrSides; side++ {
			trk, err := im.TrackAt(cyl, side)
			if err != nil {
				t.Fatalf("TrackAt(%d,%d): %v", cyl, side, err)
			}
			if trk.NrSectors != 9 {
				t.Errorf("TrackAt(%d,%d).NrSectors = %d, want 9", cyl, side, trk.NrSectors)
			}
			secs := im.Sectors(trk)
			for i, s := range secs {
				if int(s.R) != i+1 {
					t.Errorf("sector %d has R=%d, want %d", i, s.R, i+1)
				}
				if s.Size() != 512 {
					t.Errorf("sector %d size = %d, want 512", i, s.Size())
				}
			}
		}
	}
}

func TestExtendMatchesFileLayout(t *testing.T) {
	im := &Image{}
	if err := InitTrackMap(im, 40, 2, nil); err != nil {
		t.Fatalf("InitTrackMap: %v", err)
	}
	layout := SimpleLayout{NrSectors: 9, No: 2, Base: [2]int{1, 1}, Interleave: 1}
	if err := ApplySimpleLayout(im, layout); err != nil {
		t.Fatalf("ApplySimpleLayout: %v", err)
	}
	got, err := im.Extend()
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	want := int64(40 * 2 * 9 * 512)
	if got != want {
		t.Errorf("Extend() = %d, want %d", got, want)
	}
}

func TestFileIndexOrderingFlags(t *testing.T) {
	im := &Image{NrCyls: 4, NrSides: 2}
	cases := []struct {
		name  string
		flags LayoutFlag
		cyl   int
		side  int
		want  int
	}{
		{"default by-cylinder", 0, 1, 0, 2},
		{"sequential", Sequential, 1, 0, 1},
		{"sequential side1", Sequential, 1, 1, 5},
		{"sides-swapped", SidesSwapped, 0, 0, 1},
		{"reverse-side0", ReverseSide0, 0, 0, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			im.LayoutFlags = tc.flags
			if got := im.FileIndex(tc.cyl, tc.side); got != tc.want {
				t.Errorf("FileIndex(%d,%d) with flags %v = %d, want %d", tc.cyl, tc.side, tc.flags, got, tc.want)
			}
		})
	}
}
