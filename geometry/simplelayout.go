package geometry

// SimpleLayout describes a uniform geometry: the same sector count, size,
// and timing on every track of every side, per §4.2. Most "raw" openers
// (generic IMG, ATR's non-track-0 tracks, TRD, …) reduce to one of these.
type SimpleLayout struct {
	NrSectors int
	RPM       int
	DataRate  int
	IsFM      bool
	HasIAM    bool
	HasEmpty  bool // append a trailing empty-track layout for partial cylinders
	No        uint8 // size code
	Gap2, Gap3, Gap4A int
	Base      [2]int // starting sector ID per side
	Interleave int
	CSkew, HSkew int
	Head      int
}

// ApplySimpleLayout materializes l into im: one TrackDescriptor per side
// (up to NrSides), each with NrSectors sectors numbered Base[side]..
// Base[side]+NrSectors-1, all of size code No; optionally a trailing empty
// track; then maps every (cyl, side) to its side's layout.
func ApplySimpleLayout(im *Image, l SimpleLayout) error {
	gap2, gap3, gap4a := l.Gap2, l.Gap3, l.Gap4A
	if gap2 == 0 {
		gap2 = -1
	}
	if gap3 == 0 {
		gap3 = -1
	}
	if gap4a == 0 {
		gap4a = -1
	}

	interleave := l.Interleave
	if interleave < 1 {
		interleave = 1
	}

	sideLayoutIdx := make([]int, im.NrSides)
	for side := 0; side < im.NrSides; side++ {
		idx, err := AddTrackLayout(im, l.NrSectors)
		if err != nil {
			return err
		}
		// AddTrackLayout always prepends at index 0; re-resolve the
		// live index after the prepend settles.
		idx = 0
		secs := im.Sectors(im.TrkInfo[idx])
		for i := range secs {
			secs[i] = SectorDescriptor{R: byte(l.Base[side] + i), N: l.No}
		}
		im.TrkInfo[idx].IsFM = l.IsFM
		im.TrkInfo[idx].HasIAM = l.HasIAM
		im.TrkInfo[idx].RPM = l.RPM
		im.TrkInfo[idx].DataRate = l.DataRate
		im.TrkInfo[idx].Gap2 = gap2
		im.TrkInfo[idx].Gap3 = gap3
		im.TrkInfo[idx].Gap4A = gap4a
		im.TrkInfo[idx].Interleave = interleave
		im.TrkInfo[idx].CSkew = l.CSkew
		im.TrkInfo[idx].HSkew = l.HSkew
		im.TrkInfo[idx].Head = l.Head
		sideLayoutIdx[side] = idx
		// Shift every other recorded index up by one: AddTrackLayout
		// inserted at the front, so whatever we stored previously now
		// lives one slot further along.
		for s := 0; s < side; s++ {
			sideLayoutIdx[s]++
		}
	}

	emptyIdx := -1
	if l.HasEmpty {
		idx, err := AddTrackLayout(im, 0)
		if err != nil {
			return err
		}
		emptyIdx = 0
		for s := range sideLayoutIdx {
			sideLayoutIdx[s]++
		}
		_ = idx
	}

	for cyl := 0; cyl < im.NrCyls; cyl++ {
		for side := 0; side < im.NrSides; side++ {
			im.TrkMap[cyl*im.NrSides+side] = sideLayoutIdx[side]
		}
	}
	_ = emptyIdx
	return nil
}

// EmptyTrackIndex returns the index of the trailing empty-track layout
// added by a HasEmpty SimpleLayout, or -1 if none was requested. Callers
// that need to remap trailing partial cylinders (TRD) should call
// ApplySimpleLayout first, then overwrite the relevant im.TrkMap entries
// with this index.
func EmptyTrackIndex(im *Image) int {
	for i, t := range im.TrkInfo {
		if t.Empty() {
			return i
		}
	}
	return -1
}
