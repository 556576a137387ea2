package util

import "testing"

func TestFormatCompact(t *testing.T) {
	cases := map[float64]string{
		2_500_000_000: "2.50B",
		1_234_567:     "1.23M",
		100_000:       "100.00K",
		999.5:         "999.50",
	}
	for in, want := range cases {
		if got := FormatCompact(in); got != want {
			t.Fatalf("FormatCompact(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestParseFloatDefault(t *testing.T) {
	if got := ParseFloatDefault("0.00001", -1); got != 0.00001 {
		t.Fatalf("unexpected %v", got)
	}
	if got := ParseFloatDefault("", 7); got != 7 {
		t.Fatalf("expected default for empty, got %v", got)
	}
	if got := ParseFloatDefault("abc", 7); got != 7 {
		t.Fatalf("expected default for invalid, got %v", got)
	}
}
