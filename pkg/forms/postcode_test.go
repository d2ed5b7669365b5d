package forms

import "testing"

func TestNormalizePostcode(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"sw1a1aa", "SW1A 1AA"},
		{"SW1A 1AA", "SW1A 1AA"},
		{"  sw1a   1aa  ", "SW1A 1AA"},
		{"ls11aa", "LS1 1AA"},
		{"m11ae", "M1 1AE"},
		{"w1a", "W1A"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizePostcode(tc.in); got != tc.want {
			t.Fatalf("NormalizePostcode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizePostcodeIdempotent(t *testing.T) {
	inputs := []string{"sw1a1aa", "SW1A 1AA", "ls1 1aa", "m11ae"}
	for _, in := range inputs {
		once := NormalizePostcode(in)
		twice := NormalizePostcode(once)
		if once != twice {
			t.Fatalf("normalization not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestSplitAddress(t *testing.T) {
	cases := []struct {
		in     string
		house  string
		street string
	}{
		{"12 High Street", "12", "High Street"},
		{"12, High Street", "12", "High Street"},
		{"Flat 4a, Mill Lane", "Flat 4a", "Mill Lane"},
		{"12", "12", ""},
		{"  12   High   Street  ", "12", "High Street"},
		{"", "", ""},
	}
	for _, tc := range cases {
		house, street := SplitAddress(tc.in)
		if house != tc.house || street != tc.street {
			t.Fatalf("SplitAddress(%q) = (%q, %q), want (%q, %q)", tc.in, house, street, tc.house, tc.street)
		}
	}
}
