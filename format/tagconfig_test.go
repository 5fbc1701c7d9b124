package format

import "testing"

const sampleConfig = `
["img"]
cyls = 40
heads = 2
secs = 9
bps = 512
mode = "mfm"
gap3 = "a"

["img::737280"]
cyls = 80
heads = 2
secs = 9
bps = 512
mode = "mfm"
gap3 = "a"
`

func TestParseTagConfigAndScore(t *testing.T) {
	cfg, err := ParseTagConfig(sampleConfig)
	if err != nil {
		t.Fatalf("ParseTagConfig: %v", err)
	}
	order := []string{"img", "img::737280"}

	name, sec, err := bestSection(cfg, "img", 737280, order)
	if err != nil {
		t.Fatalf("bestSection: %v", err)
	}
	if name != "img::737280" {
		t.Errorf("bestSection picked %q, want the size-qualified section (higher score)", name)
	}
	if sec.Cyls != 80 {
		t.Errorf("Cyls = %d, want 80", sec.Cyls)
	}
}

func TestParseTagConfigFallsBackToUnqualified(t *testing.T) {
	cfg, err := ParseTagConfig(sampleConfig)
	if err != nil {
		t.Fatalf("ParseTagConfig: %v", err)
	}
	order := []string{"img", "img::737280"}

	name, sec, err := bestSection(cfg, "img", 999, order)
	if err != nil {
		t.Fatalf("bestSection: %v", err)
	}
	if name != "img" {
		t.Errorf("bestSection picked %q, want the unqualified section", name)
	}
	if sec.Cyls != 40 {
		t.Errorf("Cyls = %d, want 40", sec.Cyls)
	}
}

func TestParseTagConfigNoMatch(t *testing.T) {
	cfg, err := ParseTagConfig(sampleConfig)
	if err != nil {
		t.Fatalf("ParseTagConfig: %v", err)
	}
	order := []string{"img", "img::737280"}
	if _, _, err := bestSection(cfg, "other", 1, order); err == nil {
		t.Error("expected ErrConfigMiss for an unrelated tag")
	}
}

func TestParseGapValue(t *testing.T) {
	cases := map[string]int{"": -1, "a": -1, "22": 22, "41": 41}
	for in, want := range cases {
		if got := parseGapValue(in); got != want {
			t.Errorf("parseGapValue(%q) = %d, want %d", in, got, want)
		}
	}
}
