package byteunit

import "testing"

func TestParseSuffixes(t *testing.T) {
	cases := map[string]ByteValue{
		"10":  10,
		"1K":  1 << 10,
		"1k":  1 << 10,
		"4M":  4 << 20,
		"2G":  2 << 30,
		" 8m": 8 << 20,
	}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("Parse(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "-5", "abc", "5X"} {
		if _, err := Parse(in); err == nil {
			t.Fatalf("Parse(%q): want error", in)
		}
	}
}

func TestAlign(t *testing.T) {
	cases := map[int32]int32{
		0:  FrameAlignment,
		1:  FrameAlignment,
		8:  8,
		9:  16,
		15: 16,
		16: 16,
	}
	for in, want := range cases {
		if got := Align(in); got != want {
			t.Fatalf("Align(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[int64]int64{
		0:    1,
		1:    1,
		2:    2,
		3:    4,
		1000: 1024,
		1024: 1024,
	}
	for in, want := range cases {
		if got := NextPowerOfTwo(in); got != want {
			t.Fatalf("NextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}
