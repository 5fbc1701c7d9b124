package crc

import "testing"

func TestOf(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want uint16
	}{
		{"empty", []byte{}, Init},
		{"single zero", []byte{0x00}, Byte(Init, 0x00)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Of(tc.data); got != tc.want {
				t.Errorf("Of(%v) = %#04x, want %#04x", tc.data, got, tc.want)
			}
		})
	}
}

func TestBytesMatchesByte(t *testing.T) {
	data := []byte{0xA1, 0xA1, 0xA1, 0xFE}
	want := Init
	for _, b := range data {
		want = Byte(want, b)
	}
	if got := Bytes(Init, data); got != want {
		t.Errorf("Bytes = %#04x, want %#04x", got, want)
	}
}

func TestSeedConstantsDistinct(t *testing.T) {
	if MFMIDAMCRC == MFMDAMCRC {
		t.Errorf("MFMIDAMCRC and MFMDAMCRC must differ: both %#04x", MFMIDAMCRC)
	}
	if FMIDAMCRC == FMDAMCRC {
		t.Errorf("FMIDAMCRC and FMDAMCRC must differ: both %#04x", FMIDAMCRC)
	}
}

func TestBytesIncremental(t *testing.T) {
	data := []byte{0x12, 0x34, 0x56, 0x78}
	whole := Bytes(Init, data)
	split := Bytes(Bytes(Init, data[:2]), data[2:])
	if whole != split {
		t.Errorf("CRC is not incremental: whole=%#04x split=%#04x", whole, split)
	}
}
