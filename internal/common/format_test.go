package common

import (
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		display string
		want    int64
	}{
		{"1", 1_000_000_000_000},
		{"0.5", 500_000_000_000},
		{"0.0001", 100_000_000},
		{"0.000000000001", 1},
		{"123.456", 123_456_000_000_000},
	}

	for _, tc := range cases {
		got, err := ParseAmount(tc.display)
		if err != nil {
			t.Errorf("ParseAmount(%q) failed: %v", tc.display, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseAmount(%q) = %d, expected %d", tc.display, got, tc.want)
		}
	}
}

func TestParseAmount_Rejects(t *testing.T) {
	cases := []string{
		"0",
		"-1",
		"abc",
		"",
		"0.0000000000001", // finer than one piconero
		"99999999999999999999999",
	}

	for _, display := range cases {
		if _, err := ParseAmount(display); err == nil {
			t.Errorf("ParseAmount(%q) should have failed", display)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		piconero int64
		want     string
	}{
		{1_000_000_000_000, "1"},
		{500_000_000_000, "0.5"},
		{1, "0.000000000001"},
		{0, "0"},
	}

	for _, tc := range cases {
		if got := FormatAmount(tc.piconero); got != tc.want {
			t.Errorf("FormatAmount(%d) = %q, expected %q", tc.piconero, got, tc.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, display := range []string{"1", "0.25", "42.000000000001"} {
		piconero, err := ParseAmount(display)
		if err != nil {
			t.Fatalf("ParseAmount(%q) failed: %v", display, err)
		}
		if got := FormatAmount(piconero); got != display {
			t.Errorf("Round trip of %q gave %q", display, got)
		}
	}
}
