package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
)

// TagSection is one `[tag]` or `[tag::size]` block of a §6.4 configuration
// tag file, parsed via BurntSushi/toml with the section name itself
// quoted as the TOML table key (e.g. `["img::368640"]`) since Go's TOML
// decoder treats `::` as an ordinary rune inside a quoted key, not a
// nesting separator.
type TagSection struct {
	Tracks     string `toml:"tracks"`
	Cyls       int    `toml:"cyls"`
	Heads      int    `toml:"heads"`
	Step       int    `toml:"step"`
	Secs       int    `toml:"secs"`
	Bps        int    `toml:"bps"`
	ID         int    `toml:"id"`
	Head       string `toml:"h"`
	Mode       string `toml:"mode"`
	Interleave int    `toml:"interleave"`
	CSkew      int    `toml:"cskew"`
	HSkew      int    `toml:"hskew"`
	RPM        int    `toml:"rpm"`
	Gap2       string `toml:"gap2"`
	Gap3       string `toml:"gap3"`
	Gap4A      string `toml:"gap4a"`
	IAM        string `toml:"iam"`
	Rate       int    `toml:"rate"`
	FileLayout string `toml:"file-layout"`
}

// TagConfig is the parsed §6.4 file: a flat map from "tag" or "tag::size"
// section name to its section body.
type TagConfig map[string]TagSection

// ParseTagConfig decodes a §6.4 tag file's TOML text.
func ParseTagConfig(text string) (TagConfig, error) {
	var cfg TagConfig
	if _, err := toml.Decode(text, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ferr.ErrConfigMiss, err)
	}
	return cfg, nil
}

// scoreSection implements §6.4's section-matching score: exact tag match
// = +4; ::size match = +2, mismatch = -100; empty tag = +1; non-empty tag
// mismatch = -100.
func scoreSection(name, tag string, size int64) (int, bool) {
	sectionTag := name
	sectionSize := int64(-1)
	if i := strings.Index(name, "::"); i >= 0 {
		sectionTag = name[:i]
		if n, err := strconv.ParseInt(name[i+2:], 10, 64); err == nil {
			sectionSize = n
		}
	}

	score := 0
	switch {
	case sectionTag == "":
		score += 1
	case sectionTag == tag:
		score += 4
	default:
		return 0, false
	}

	if sectionSize >= 0 {
		if sectionSize == size {
			score += 2
		} else {
			return 0, false
		}
	}
	return score, true
}

// bestSection picks the highest-scoring section for (tag, size), ties
// broken by first-encountered; returns ferr.ErrConfigMiss (mapped by the
// caller to OPEN-MISMATCH) if nothing matches.
func bestSection(cfg TagConfig, tag string, size int64, order []string) (string, TagSection, error) {
	bestName, bestScore := "", -1
	var best TagSection
	for _, name := range order {
		sec, ok := cfg[name]
		if !ok {
			continue
		}
		score, matched := scoreSection(name, tag, size)
		if !matched {
			continue
		}
		if score > bestScore {
			bestScore, bestName, best = score, name, sec
		}
	}
	if bestScore < 0 {
		return "", TagSection{}, fmt.Errorf("%w: no section matched tag %q size %d", ferr.ErrConfigMiss, tag, size)
	}
	return bestName, best, nil
}

func parseGapValue(s string) int {
	if s == "" || s == "a" {
		return -1
	}
	n, _ := strconv.Atoi(s)
	return n
}

func parseLayoutFlags(s string) geometry.LayoutFlag {
	var flags geometry.LayoutFlag
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "sequential":
			flags |= geometry.Sequential
		case "sides-swapped":
			flags |= geometry.SidesSwapped
		case "reverse-side0":
			flags |= geometry.ReverseSide0
		case "reverse-side1":
			flags |= geometry.ReverseSide1
		}
	}
	return flags
}

// OpenWithTagConfig implements the §6.4 tag-based opener: given the
// already-parsed config, the image's filename tag (its extension or
// registered family name), and file size, find the best-scoring section
// and materialize its geometry.
func OpenWithTagConfig(cfg TagConfig, order []string, tag string, f fsio.File, size int64) (*geometry.Image, error) {
	_, sec, err := bestSection(cfg, tag, size, order)
	if err != nil {
		return nil, err
	}

	nrCyls := sec.Cyls
	if nrCyls == 0 {
		return nil, fmt.Errorf("%w: section has no cyls", ferr.ErrFormatInvalid)
	}
	nrSides := sec.Heads
	if nrSides == 0 {
		nrSides = 1
	}

	im := &geometry.Image{LayoutFlags: parseLayoutFlags(sec.FileLayout)}
	if sec.Step > 0 {
		im.Step = sec.Step
	}
	arena := geometry.NewArena(0, 0)
	if err := geometry.InitTrackMap(im, nrCyls, nrSides, arena); err != nil {
		return nil, err
	}

	no := sizeCodeForBytes(sec.Bps)
	head := 0
	if sec.Head != "" && sec.Head != "a" {
		if n, err := strconv.Atoi(sec.Head); err == nil {
			head = n
		}
	}
	layout := geometry.SimpleLayout{
		NrSectors:  sec.Secs,
		No:         no,
		RPM:        sec.RPM,
		DataRate:   sec.Rate * 1000,
		IsFM:       sec.Mode == "fm",
		HasIAM:     sec.IAM != "no",
		Interleave: sec.Interleave,
		CSkew:      sec.CSkew,
		HSkew:      sec.HSkew,
		Head:       head,
		Gap2:       parseGapValue(sec.Gap2),
		Gap3:       parseGapValue(sec.Gap3),
		Gap4A:      parseGapValue(sec.Gap4A),
		Base:       [2]int{1, 1},
	}
	if err := geometry.ApplySimpleLayout(im, layout); err != nil {
		return nil, err
	}
	return im, nil
}
