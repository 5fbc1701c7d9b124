// Package host holds the per-vendor geometry tables the generic opener
// tries against an unrecognized image's file size (§6.3). Each table is a
// plain list of candidate geometries transcribed from img.c's raw_type
// tables (img_type, adfs_type, akai_type, casio_type, dec_type,
// ensoniq_type, fluke_type, memotech_type, msx_type, nascom_type,
// pc98_type, uknc_type); host.Generic is the fallback used when the hint
// doesn't match a known family, mirroring img_open's own fallback to
// img_type on every unrecognised or failed host-specific lookup.
//
// IBM3174 and PCDOS have no raw_type table of their own in img.c: both
// are special-cased openers (ibm_3174_open, pc_dos_open) that parse a
// header/BPB directly rather than walking a size table, so Table() falls
// through to Generic for them; see format.OpenIBM3174 and format.OpenPCDOS.
package host

import "github.com/sergev/fdimage/geometry"

// Host names the per-family geometry table to use, selected by a HOST
// hint (drive config, CLI flag, or caller default).
type Host int

const (
	Generic Host = iota
	AkaiGem
	Casio
	DEC
	Ensoniq
	Fluke
	IBM3174
	Memotech
	MSX
	Nascom
	PC98
	PCDOS
	TI99
	UKNC
)

// ParseHost maps a lowercase host hint string to a Host, defaulting to
// Generic for anything unrecognized (§6.3: "Unknown hosts -> generic IMG
// table").
func ParseHost(name string) Host {
	switch name {
	case "akai", "gem", "akai/gem":
		return AkaiGem
	case "casio":
		return Casio
	case "dec":
		return DEC
	case "ensoniq":
		return Ensoniq
	case "fluke":
		return Fluke
	case "ibm_3174", "ibm-3174":
		return IBM3174
	case "memotech":
		return Memotech
	case "msx":
		return MSX
	case "nascom":
		return Nascom
	case "pc98":
		return PC98
	case "pc_dos", "pc-dos":
		return PCDOS
	case "ti99":
		return TI99
	case "uknc":
		return UKNC
	default:
		return Generic
	}
}

// Table returns h's candidate geometry table, falling back to Generic's
// table for hosts that are special-cased openers rather than table-driven
// ones (IBM3174, PCDOS; see the package doc).
func (h Host) Table() []geometry.GeometryEntry {
	if t, ok := tables[h]; ok {
		return t
	}
	return tables[Generic]
}

// cyl40, cyl80 select GeometryEntry.CylClass, mirroring img.c's _C(40)/
// _C(80) macros.
const (
	cyl40 = 0
	cyl80 = 1
)

// rpm300, rpm360 mirror img.c's _R(300)/_R(360) macros.
const (
	rpm300 = 300
	rpm360 = 360
)

// img.c's raw_type rows carry no data-rate field at all (data rate is
// derived downstream from rpm/sector size); GeometryEntry.DataRateKbps is
// left 0 ("auto") on every transcribed row below, exactly as the source's
// dfl_simple_layout.data_rate=0 default does.

var tables = map[Host][]geometry.GeometryEntry{
	// img_type[]: the generic/default table, also reused verbatim by
	// mgt_open and by ibm_3174_open's 1.2MB branch.
	Generic: {
		{SectorsPerSide: 8, No: 2, HasIAM: true, NrSides: 1, Gap3: 84, Interleave: 1, Base: 1, CylClass: cyl40, RPM: rpm300},  // 160k
		{SectorsPerSide: 9, No: 2, HasIAM: true, NrSides: 1, Gap3: 84, Interleave: 1, Base: 1, CylClass: cyl40, RPM: rpm300},  // 180k
		{SectorsPerSide: 10, No: 2, HasIAM: true, NrSides: 1, Gap3: 30, Interleave: 1, Base: 1, CylClass: cyl40, RPM: rpm300}, // 200k
		{SectorsPerSide: 8, No: 2, HasIAM: true, NrSides: 2, Gap3: 84, Interleave: 1, Base: 1, CylClass: cyl40, RPM: rpm300},  // 320k
		{SectorsPerSide: 9, No: 2, HasIAM: true, NrSides: 2, Gap3: 84, Interleave: 1, Base: 1, CylClass: cyl40, RPM: rpm300},  // 360k (#1)
		{SectorsPerSide: 10, No: 2, HasIAM: true, NrSides: 2, Gap3: 30, Interleave: 1, Base: 1, CylClass: cyl40, RPM: rpm300}, // 400k (#1)
		{SectorsPerSide: 15, No: 2, HasIAM: true, NrSides: 2, Gap3: 84, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm360}, // 1.2MB
		{SectorsPerSide: 9, No: 2, HasIAM: true, NrSides: 1, Gap3: 84, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300},  // 360k (#2)
		{SectorsPerSide: 10, No: 2, HasIAM: true, NrSides: 1, Gap3: 30, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300}, // 400k (#2)
		{SectorsPerSide: 11, No: 2, HasIAM: true, NrSides: 1, Gap3: 3, Interleave: 2, Base: 1, CylClass: cyl80, RPM: rpm300},  // 440k
		{SectorsPerSide: 8, No: 2, HasIAM: true, NrSides: 2, Gap3: 84, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300},  // 640k
		{SectorsPerSide: 9, No: 2, HasIAM: true, NrSides: 2, Gap3: 84, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300},  // 720k
		{SectorsPerSide: 10, No: 2, HasIAM: true, NrSides: 2, Gap3: 30, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300}, // 800k
		{SectorsPerSide: 11, No: 2, HasIAM: true, NrSides: 2, Gap3: 3, Interleave: 2, Base: 1, CylClass: cyl80, RPM: rpm300},  // 880k
		{SectorsPerSide: 18, No: 2, HasIAM: true, NrSides: 2, Gap3: 84, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300}, // 1.44M
		{SectorsPerSide: 19, No: 2, HasIAM: true, NrSides: 2, Gap3: 70, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300}, // 1.52M
		{SectorsPerSide: 21, No: 2, HasIAM: true, NrSides: 2, Gap3: 12, Interleave: 2, Base: 1, CSkew: 3, CylClass: cyl80, RPM: rpm300}, // 1.68M
		{SectorsPerSide: 20, No: 2, HasIAM: true, NrSides: 2, Gap3: 40, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300}, // 1.6M
		{SectorsPerSide: 36, No: 2, HasIAM: true, NrSides: 2, Gap3: 84, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300}, // 2.88M
	},
	MSX: {
		{SectorsPerSide: 8, No: 2, HasIAM: true, NrSides: 1, Gap3: 84, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300}, // 320k
		{SectorsPerSide: 9, No: 2, HasIAM: true, NrSides: 1, Gap3: 84, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300}, // 360k
	},
	Nascom: {
		{SectorsPerSide: 16, No: 1, IsFM: false, HasIAM: true, NrSides: 1, Gap3: 57, Interleave: 3, HSkew: 8, Base: 1, CylClass: cyl80, RPM: rpm300}, // 320k
		{SectorsPerSide: 16, No: 1, IsFM: false, HasIAM: true, NrSides: 2, Gap3: 57, Interleave: 3, HSkew: 8, Base: 1, CylClass: cyl80, RPM: rpm300}, // 360k
	},
	DEC: {
		// RX50, 400k. (img.c notes the RX33/1.2MB variant falls through
		// to the default img_type list.)
		{SectorsPerSide: 10, No: 2, HasIAM: true, NrSides: 1, Gap3: 30, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300},
	},
	Fluke: {
		{SectorsPerSide: 16, No: 1, HasIAM: true, NrSides: 2, Gap3: 57, Interleave: 2, CylClass: cyl80, RPM: rpm300},
	},
	Ensoniq: {
		{SectorsPerSide: 10, No: 2, HasIAM: true, NrSides: 2, Gap3: 30, Interleave: 1, CylClass: cyl80, RPM: rpm300}, // 800kB
		{SectorsPerSide: 20, No: 2, HasIAM: true, NrSides: 2, Gap3: 40, Interleave: 1, CylClass: cyl80, RPM: rpm300}, // 1.6MB
	},
	Casio: {
		{SectorsPerSide: 8, No: 3, HasIAM: true, NrSides: 2, Gap3: 116, Interleave: 3, Base: 1, CylClass: cyl80, RPM: rpm360}, // 1280k
	},
	Memotech: {
		{SectorsPerSide: 16, No: 1, HasIAM: true, NrSides: 2, Gap3: 57, Interleave: 3, Base: 1, CylClass: cyl40, RPM: rpm300}, // Type 03
		{SectorsPerSide: 16, No: 1, HasIAM: true, NrSides: 2, Gap3: 57, Interleave: 3, Base: 1, CylClass: cyl80, RPM: rpm300}, // Type 07
	},
	AkaiGem: {
		{SectorsPerSide: 5, No: 3, HasIAM: true, NrSides: 2, Gap3: 116, Interleave: 1, HSkew: 2, Base: 1, CylClass: cyl80, RPM: rpm300},  // DD: 5*1kB
		{SectorsPerSide: 10, No: 3, HasIAM: true, NrSides: 2, Gap3: 116, Interleave: 1, HSkew: 5, Base: 1, CylClass: cyl80, RPM: rpm300}, // HD: 10*1kB
	},
	UKNC: {
		{SectorsPerSide: 10, No: 2, HasIAM: false, NrSides: 2, Gap3: 38, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300},
	},
	PC98: {
		{SectorsPerSide: 8, No: 3, HasIAM: true, NrSides: 2, Gap3: 116, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm360}, // HD 360RPM
		{SectorsPerSide: 8, No: 2, HasIAM: true, NrSides: 2, Gap3: 57, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm360},  // DD 360RPM
	},
}

// ADFSTable, D81Table, MBDTable are exported so the extension-gated
// format openers (adfs.go, d81.go, mbd.go) can reuse them without a
// second copy of img.c's data; they aren't reachable through Table()
// because nothing in §6.3 names them as a HOST hint, only as a filename
// extension (§6.1's by-extension dispatch for size-ambiguous families).
var (
	ADFSTable = []geometry.GeometryEntry{
		// ADFS D/E: 5 * 1kB, 800k
		{SectorsPerSide: 5, No: 3, HasIAM: true, NrSides: 2, Gap3: 116, Interleave: 1, HSkew: 1, CylClass: cyl80, RPM: rpm300},
		// ADFS F: 10 * 1kB, 1600k
		{SectorsPerSide: 10, No: 3, HasIAM: true, NrSides: 2, Gap3: 116, Interleave: 1, HSkew: 2, CylClass: cyl80, RPM: rpm300},
		// ADFS L 640k
		{SectorsPerSide: 16, No: 1, HasIAM: true, NrSides: 2, Gap3: 57, Interleave: 1, CylClass: cyl80, RPM: rpm300},
		// ADFS M 320k
		{SectorsPerSide: 16, No: 1, HasIAM: true, NrSides: 1, Gap3: 57, Interleave: 1, CylClass: cyl80, RPM: rpm300},
		// ADFS S 160k
		{SectorsPerSide: 16, No: 1, HasIAM: true, NrSides: 1, Gap3: 57, Interleave: 1, CylClass: cyl40, RPM: rpm300},
	}

	D81Table = []geometry.GeometryEntry{
		{SectorsPerSide: 10, No: 2, HasIAM: true, NrSides: 2, Gap3: 30, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300},
	}

	MBDTable = []geometry.GeometryEntry{
		{SectorsPerSide: 11, No: 3, HasIAM: true, NrSides: 2, Gap3: 30, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300},
		{SectorsPerSide: 5, No: 3, HasIAM: true, NrSides: 2, Gap3: 116, Interleave: 1, Base: 1, CylClass: cyl80, RPM: rpm300},
		{SectorsPerSide: 11, No: 3, HasIAM: true, NrSides: 2, Gap3: 30, Interleave: 1, Base: 1, CylClass: cyl40, RPM: rpm300},
		{SectorsPerSide: 5, No: 3, HasIAM: true, NrSides: 2, Gap3: 116, Interleave: 1, Base: 1, CylClass: cyl40, RPM: rpm300},
	}
)
