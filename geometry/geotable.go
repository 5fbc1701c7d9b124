package geometry

// GeometryEntry is one row of a zero-terminated candidate-geometry table,
// per §4.3: a compact description of sectors/side, size code, and data
// rate that the generic matcher tries against a file's size.
type GeometryEntry struct {
	SectorsPerSide int
	No             uint8
	DataRateKbps   int
	IsFM           bool
	HasIAM         bool
	NrSides        int
	Interleave     int
	CSkew, HSkew   int
	// Gap3 is the post-ID gap length in bytes, or 0 to let the writer pick
	// the format's default (ApplySimpleLayout treats 0 as "auto").
	Gap3 int
	// RPM is the nominal spindle speed this row was measured at (300 or
	// 360); 0 defaults to 300 via ApplySimpleLayout's zero-RPM handling
	// upstream.
	RPM int
	// Base is the starting sector-ID number, applied to both sides alike
	// (img.c's raw_type.base, always mirrored as base[0]=base[1]=base).
	Base uint8
	// CylClass selects which of cylinderClasses this row is tried against:
	// 0 for the 40-cylinder class, 1 for the 80-cylinder class, mirroring
	// img.c's _C(cyls) macro rather than trying both for every row.
	CylClass int
}

// cylinderClasses enumerates the plausible cylinder counts the matcher
// tries for each of the two disk size classes named in §4.3, indexed by
// GeometryEntry.CylClass.
var cylinderClasses = [][2]int{
	{38, 42}, // 40-cylinder class
	{77, 85}, // 80-cylinder class
}

// MatchResult is what the generic matcher found: a fully-populated
// SimpleLayout, its resolved side count, and its resolved cylinder count,
// ready for InitTrackMap + ApplySimpleLayout.
type MatchResult struct {
	NrCyls  int
	NrSides int
	Layout  SimpleLayout
}

// MatchGeometryTable walks table and, for each entry, enumerates the
// cylinder counts plausible for its CylClass and accepts the first
// (entry, nrCyls) such that nrCyls*secs*size*sides == fileSize-baseOff.
// Returns false if no entry matches.
func MatchGeometryTable(table []GeometryEntry, fileSize, baseOff int64) (MatchResult, bool) {
	avail := fileSize - baseOff
	if avail <= 0 {
		return MatchResult{}, false
	}
	for _, e := range table {
		sectorBytes := int64(128 << e.No)
		perCyl := int64(e.SectorsPerSide) * sectorBytes * int64(e.NrSides)
		if perCyl <= 0 {
			continue
		}
		class := cylinderClasses[0]
		if e.CylClass >= 0 && e.CylClass < len(cylinderClasses) {
			class = cylinderClasses[e.CylClass]
		}
		for nrCyls := class[0]; nrCyls <= class[1]; nrCyls++ {
			if int64(nrCyls)*perCyl == avail {
				return MatchResult{
					NrCyls:  nrCyls,
					NrSides: e.NrSides,
					Layout: SimpleLayout{
						NrSectors:  e.SectorsPerSide,
						No:         e.No,
						RPM:        e.RPM,
						DataRate:   e.DataRateKbps * 1000,
						IsFM:       e.IsFM,
						HasIAM:     e.HasIAM,
						Interleave: maxInt(1, e.Interleave),
						CSkew:      e.CSkew,
						HSkew:      e.HSkew,
						Gap3:       e.Gap3,
						Base:       [2]int{int(e.Base), int(e.Base)},
					},
				}, true
			}
		}
	}
	return MatchResult{}, false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
