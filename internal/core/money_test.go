package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.0", 1, true},
		{"1.23", 1.23, true},
		{"1,23", 1.23, true},
		{"0", 0, true},
		{" 2.50 ", 2.5, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1e3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1,5", 1.5, true},
		{"1,234", 1234, true},
		{"1,234,567", 1234567, true},
		{"1,234.5", 1234.5, true},
		{"12,345.67", 12345.67, true},
		{"1,2,3", 0, false},
		{"12,34.5", 0, false},
		{"1234,567.8", 0, false},
		{"1.234,5", 0, false},
		{"1,,234", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestRound(t *testing.T) {
	cases := []struct {
		in     float64
		places int32
		out    float64
	}{
		{46.666666666666664, 0, 47},
		{15.666666666666666, 0, 16},
		{2.5, 0, 3},
		{-2.5, 0, -3},
		{1.005, 2, 1.01},
		{725, 2, 725},
		{106.00543478260869, 2, 106.01},
	}
	for _, tc := range cases {
		if got := Round(tc.in, tc.places); got != tc.out {
			t.Fatalf("Round(%v, %d) = %v, want %v", tc.in, tc.places, got, tc.out)
		}
	}
}
