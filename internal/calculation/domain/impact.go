package domain

import "math"

// Impact carries the three tracked environmental impact channels.
type Impact struct {
	GWP  float64 `json:"gwp"`
	UBP  float64 `json:"ubp"`
	PENR float64 `json:"penr"`
}

// Add accumulates another impact into this one.
func (i *Impact) Add(other Impact) {
	i.GWP += other.GWP
	i.UBP += other.UBP
	i.PENR += other.PENR
}

// IsZero reports whether all channels are exactly zero.
func (i Impact) IsZero() bool {
	return i.GWP == 0 && i.UBP == 0 && i.PENR == 0
}

// ReferenceRecord is a KBOB catalog entry providing density and
// per-kilogram impact factors for a generic material.
type ReferenceRecord struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Density float64 `json:"density"`
	GWP     float64 `json:"gwp"`
	UBP     float64 `json:"ubp"`
	PENR    float64 `json:"penr"`
}

// ReferenceIndex indexes reference records by identifier.
type ReferenceIndex struct {
	byID map[string]*ReferenceRecord
}

// NewReferenceIndex builds an index over a point-in-time catalog snapshot.
func NewReferenceIndex(records []ReferenceRecord) *ReferenceIndex {
	index := &ReferenceIndex{byID: make(map[string]*ReferenceRecord, len(records))}
	for i := range records {
		record := &records[i]
		if record.ID == "" {
			continue
		}
		index.byID[record.ID] = record
	}
	return index
}

// Lookup returns the record for an id, or nil when absent or the id is empty.
func (ix *ReferenceIndex) Lookup(id string) *ReferenceRecord {
	if ix == nil || id == "" {
		return nil
	}
	return ix.byID[id]
}

// Len returns the number of indexed records.
func (ix *ReferenceIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.byID)
}

// ComputeAbsolute converts a material volume to mass via the record
// density and multiplies by the per-kilogram factors. It returns a zero
// impact unless the record is present with a positive density and the
// volume is a finite positive number.
func ComputeAbsolute(volume float64, record *ReferenceRecord) Impact {
	if record == nil || record.Density <= 0 {
		return Impact{}
	}
	if math.IsNaN(volume) || math.IsInf(volume, 0) || volume <= 0 {
		return Impact{}
	}
	mass := volume * record.Density
	return Impact{
		GWP:  mass * record.GWP,
		UBP:  mass * record.UBP,
		PENR: mass * record.PENR,
	}
}

// NormalizeRelative annualizes an absolute impact over the amortization
// period and normalizes it by the reference floor area. Without a valid
// basis (floor area and years both positive and finite) the relative
// figure is defined as zero, never NaN or Inf.
func NormalizeRelative(absolute float64, years int, floorArea float64) float64 {
	if years <= 0 {
		return 0
	}
	if math.IsNaN(floorArea) || math.IsInf(floorArea, 0) || floorArea <= 0 {
		return 0
	}
	return absolute / (float64(years) * floorArea)
}

// NormalizeImpact applies NormalizeRelative to each channel independently.
func NormalizeImpact(absolute Impact, years int, floorArea float64) Impact {
	return Impact{
		GWP:  NormalizeRelative(absolute.GWP, years, floorArea),
		UBP:  NormalizeRelative(absolute.UBP, years, floorArea),
		PENR: NormalizeRelative(absolute.PENR, years, floorArea),
	}
}
