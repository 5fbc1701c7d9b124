package format

import (
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
	"github.com/sergev/fdimage/host"
)

// RegisterAll wires every opener into the registry in the order
// OpenImage should try them: specific magic-number formats first (ATR,
// TRD, VDK), then the extension-gated size-ambiguous families (ADFS,
// D81, ST, MBD, MGT, PC98FDI/HDM, OPD, SSD/DSD, SDU, JVC — each reaches
// only its own extension, mirroring img.c's per-extension image_handler
// dispatch for these).
//
// What's left mirrors img_open's host switch directly: HOST_ibm_3174,
// HOST_ti99 and HOST_uknc call their bespoke opener and return its
// verdict with no fallback (ti99_open in particular matches almost any
// 256-byte-aligned size, so it must never run for a host that didn't
// ask for it — e.g. a stock 1.44M PC image's byte count also happens to
// satisfy the DSHD80 case); HOST_msx and HOST_pc_dos try their opener
// first but fall back to the generic table on a miss; every other host
// (including Generic) goes straight to the host table with its own
// generic-table fallback (host.Host.Table already folds that in).
// tagConfig/tagOrder may be nil to skip the §6.4 tag-based opener.
func RegisterAll(h host.Host, tagCfg TagConfig, tagOrder []string, tagForFile func(f fsio.File) string) {
	if tagCfg != nil {
		Register(Handler{Name: "tagconfig", Open: func(f fsio.File, size int64) (*geometry.Image, error) {
			tag := ""
			if tagForFile != nil {
				tag = tagForFile(f)
			}
			return OpenWithTagConfig(tagCfg, tagOrder, tag, f, size)
		}})
	}
	Register(Handler{Name: "atr", Open: OpenATR})
	Register(Handler{Name: "trd", Open: OpenTRD})
	Register(Handler{Name: "vdk", Open: OpenVDK})

	Register(Handler{Name: "adfs", Exts: []string{".adf", ".adl"}, Open: OpenADFS})
	Register(Handler{Name: "d81", Exts: []string{".d81"}, Open: OpenD81})
	Register(Handler{Name: "st", Exts: []string{".st"}, Open: OpenST})
	Register(Handler{Name: "mbd", Exts: []string{".mbd"}, Open: OpenMBD})
	Register(Handler{Name: "mgt", Exts: []string{".mgt"}, Open: OpenMGT})
	Register(Handler{Name: "pc98fdi", Exts: []string{".fdi"}, Open: OpenPC98FDI})
	Register(Handler{Name: "pc98hdm", Exts: []string{".hdm"}, Open: OpenPC98HDM})
	Register(Handler{Name: "opd", Exts: []string{".opd"}, Open: OpenOPD})
	Register(Handler{Name: "ssd", Exts: []string{".ssd"}, Open: OpenSSD})
	Register(Handler{Name: "dsd", Exts: []string{".dsd"}, Open: OpenDSD})
	Register(Handler{Name: "sdu", Exts: []string{".sdu"}, Open: OpenSDU})
	Register(Handler{Name: "jvc", Exts: []string{".jvc"}, Open: OpenJVC})

	switch h {
	case host.IBM3174:
		Register(Handler{Name: "ibm_3174", Open: OpenIBM3174})
	case host.TI99:
		Register(Handler{Name: "ti99", Open: OpenTI99})
	case host.UKNC:
		Register(Handler{Name: "uknc", Open: OpenUKNC})
	case host.MSX:
		Register(Handler{Name: "msx", Open: OpenMSX})
		Register(Handler{Name: "xdf", Open: OpenXDF})
		Register(Handler{Name: "generic", Open: OpenGenericIMG(h)})
	case host.PCDOS:
		Register(Handler{Name: "pcdos", Open: OpenPCDOS})
		Register(Handler{Name: "xdf", Open: OpenXDF})
		Register(Handler{Name: "generic", Open: OpenGenericIMG(h)})
	default:
		Register(Handler{Name: "xdf", Open: OpenXDF})
		Register(Handler{Name: "generic", Open: OpenGenericIMG(h)})
	}
}
