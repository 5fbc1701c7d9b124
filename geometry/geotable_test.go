package geometry

import "testing"

func Test360KFloppyMatches(t *testing.T) {
	table := []GeometryEntry{
		{SectorsPerSide: 9, No: 2, DataRateKbps: 250, HasIAM: true, NrSides: 2},
	}
	size := int64(40 * 2 * 9 * 512)
	result, ok := MatchGeometryTable(table, size, 0)
	if !ok {
		t.Fatalf("MatchGeometryTable did not match a 360K image")
	}
	if result.NrCyls != 40 {
		t.Errorf("NrCyls = %d, want 40", result.NrCyls)
	}
	if result.Layout.NrSectors != 9 {
		t.Errorf("Layout.NrSectors = %d, want 9", result.Layout.NrSectors)
	}
}

func TestNoMatchReturnsFalse(t *testing.T) {
	table := []GeometryEntry{
		{SectorsPerSide: 9, No: 2, DataRateKbps: 250, HasIAM: true, NrSides: 2},
	}
	if _, ok := MatchGeometryTable(table, 12345, 0); ok {
		t.Error("expected no match for an arbitrary size")
	}
}

func TestBaseOffsetIsSubtracted(t *testing.T) {
	table := []GeometryEntry{
		{SectorsPerSide: 9, No: 2, DataRateKbps: 250, HasIAM: true, NrSides: 2},
	}
	baseOff := int64(16)
	size := int64(40*2*9*512) + baseOff
	result, ok := MatchGeometryTable(table, size, baseOff)
	if !ok {
		t.Fatalf("MatchGeometryTable did not match with a header offset")
	}
	if result.NrCyls != 40 {
		t.Errorf("NrCyls = %d, want 40", result.NrCyls)
	}
}
