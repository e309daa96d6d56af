package domain

import "testing"

func TestNormalizeMaterialName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Beton (1)", "Beton"},
		{"Beton (23) ", "Beton"},
		{"Beton", "Beton"},
		{"Holz (weich)", "Holz (weich)"},
		{"Stahl (2) verzinkt", "Stahl (2) verzinkt"},
		{"", ""},
		{" (7)", ""},
	}
	for _, c := range cases {
		got := NormalizeMaterialName(c.in)
		if got != c.want {
			t.Fatalf("NormalizeMaterialName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeMaterialName_Idempotent(t *testing.T) {
	inputs := []string{"Beton (1)", "Holz (weich)", "Kalksandstein", "", "Ziegel (10) "}
	for _, in := range inputs {
		once := NormalizeMaterialName(in)
		twice := NormalizeMaterialName(once)
		if once != twice {
			t.Fatalf("normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
