package domain

import (
	"math"
	"testing"
)

func validRecord() *ReferenceRecord {
	return &ReferenceRecord{ID: "REF1", Name: "Beton", Density: 2400, GWP: 0.1, UBP: 10, PENR: 1}
}

func TestComputeAbsolute(t *testing.T) {
	got := ComputeAbsolute(2.0, validRecord())
	if got.GWP != 480 || got.UBP != 48000 || got.PENR != 4800 {
		t.Fatalf("unexpected impact: %+v", got)
	}
}

func TestComputeAbsolute_ZeroOnInvalidInput(t *testing.T) {
	if got := ComputeAbsolute(5, nil); !got.IsZero() {
		t.Fatalf("nil record: got %+v", got)
	}
	if got := ComputeAbsolute(0, validRecord()); !got.IsZero() {
		t.Fatalf("zero volume: got %+v", got)
	}
	if got := ComputeAbsolute(-5, validRecord()); !got.IsZero() {
		t.Fatalf("negative volume: got %+v", got)
	}
	if got := ComputeAbsolute(math.NaN(), validRecord()); !got.IsZero() {
		t.Fatalf("NaN volume: got %+v", got)
	}
	if got := ComputeAbsolute(math.Inf(1), validRecord()); !got.IsZero() {
		t.Fatalf("Inf volume: got %+v", got)
	}
	record := validRecord()
	record.Density = 0
	if got := ComputeAbsolute(2, record); !got.IsZero() {
		t.Fatalf("zero density: got %+v", got)
	}
}

func TestComputeAbsolute_MissingFactorsReadAsZero(t *testing.T) {
	record := &ReferenceRecord{ID: "REF2", Density: 1000, GWP: 0.5}
	got := ComputeAbsolute(1, record)
	if got.GWP != 500 {
		t.Fatalf("gwp: got %v, want 500", got.GWP)
	}
	if got.UBP != 0 || got.PENR != 0 {
		t.Fatalf("missing factors should contribute zero: %+v", got)
	}
}

func TestComputeAbsolute_MonotonicInVolume(t *testing.T) {
	record := validRecord()
	previous := 0.0
	for _, volume := range []float64{0.1, 0.5, 1, 2, 10, 100} {
		current := ComputeAbsolute(volume, record).GWP
		if current < previous {
			t.Fatalf("gwp decreased at volume %v: %v < %v", volume, current, previous)
		}
		previous = current
	}
}

func TestNormalizeRelative(t *testing.T) {
	if got := NormalizeRelative(480, 80, 100); got != 0.06 {
		t.Fatalf("got %v, want 0.06", got)
	}
}

func TestNormalizeRelative_ZeroWithoutBasis(t *testing.T) {
	cases := []struct {
		years     int
		floorArea float64
	}{
		{80, 0},
		{80, -1},
		{0, 100},
		{-3, 100},
		{80, math.NaN()},
		{80, math.Inf(1)},
	}
	for _, c := range cases {
		if got := NormalizeRelative(480, c.years, c.floorArea); got != 0 {
			t.Fatalf("years=%d floorArea=%v: got %v, want 0", c.years, c.floorArea, got)
		}
	}
}

func TestNormalizeImpact_ChannelsIndependent(t *testing.T) {
	got := NormalizeImpact(Impact{GWP: 480, UBP: 48000, PENR: 4800}, 80, 100)
	if got.GWP != 0.06 || got.UBP != 6 || got.PENR != 0.6 {
		t.Fatalf("unexpected relative impact: %+v", got)
	}
}

func TestReferenceIndex(t *testing.T) {
	records := []ReferenceRecord{
		{ID: "REF1", Name: "Beton"},
		{ID: "REF2", Name: "Holz"},
		{Name: "no id"},
	}
	index := NewReferenceIndex(records)
	if index.Len() != 2 {
		t.Fatalf("len: got %d, want 2", index.Len())
	}
	if got := index.Lookup("REF2"); got == nil || got.Name != "Holz" {
		t.Fatalf("lookup REF2: got %+v", got)
	}
	if got := index.Lookup("missing"); got != nil {
		t.Fatalf("lookup missing: got %+v", got)
	}
	if got := index.Lookup(""); got != nil {
		t.Fatalf("lookup empty id: got %+v", got)
	}
}
