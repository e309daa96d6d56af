package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project identifies one uploaded building model and the metadata the
// downstream sink expects with dispatched results.
type Project struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	FileID     string    `json:"file_id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Volume is a material volume in cubic metres. The takeoff exporter
// emits it either as a JSON number or as a numeric string; anything
// unparseable reads as zero.
type Volume struct {
	value float64
	valid bool
}

// NewVolume builds a volume from a plain float.
func NewVolume(value float64) Volume {
	return Volume{value: value, valid: true}
}

// Value returns the parsed volume, or 0 when missing or unparseable.
func (v Volume) Value() float64 {
	if !v.valid {
		return 0
	}
	return v.value
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (v *Volume) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*v = Volume{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*v = Volume{}
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*v = Volume{}
			return nil
		}
		*v = Volume{value: parsed, valid: true}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*v = Volume{}
		return nil
	}
	*v = Volume{value: f, valid: true}
	return nil
}

// MarshalJSON writes the parsed value as a number.
func (v Volume) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Value())
}

// MaterialEntry is one raw material row on an element.
type MaterialEntry struct {
	Name     string  `json:"name"`
	Volume   Volume  `json:"volume"`
	Unit     string  `json:"unit,omitempty"`
	Fraction float64 `json:"fraction,omitempty"`
}

// UnmarshalJSON tolerates a non-string name (left empty, classified as
// an invalid entry by the aggregator) instead of failing the whole
// element document.
func (m *MaterialEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name     json.RawMessage `json:"name"`
		Volume   Volume          `json:"volume"`
		Unit     string          `json:"unit"`
		Fraction float64         `json:"fraction"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var name string
	if len(raw.Name) > 0 {
		// Non-string names are left empty rather than rejected.
		_ = json.Unmarshal(raw.Name, &name)
	}
	m.Name = name
	m.Volume = raw.Volume
	m.Unit = raw.Unit
	m.Fraction = raw.Fraction
	return nil
}

// ElementRecord is one building element with its raw material rows, as
// read from the takeoff store. Parsing from loosely-typed input happens
// at the storage boundary; the calculation only sees this strict type.
type ElementRecord struct {
	ID           string          `json:"id"`
	GlobalID     string          `json:"global_id,omitempty"`
	IfcID        string          `json:"ifc_id,omitempty"`
	CategoryCode string          `json:"ebkp_code,omitempty"`
	Description  string          `json:"description,omitempty"`
	Materials    []MaterialEntry `json:"materials"`
}

// OutputID returns the identifier used on emitted material instances,
// falling back from the declared global id to the IFC id, the internal
// id, and finally a generated placeholder. Never empty.
func (e ElementRecord) OutputID() string {
	if e.GlobalID != "" {
		return e.GlobalID
	}
	if e.IfcID != "" {
		return e.IfcID
	}
	if e.ID != "" {
		return e.ID
	}
	return "unknown_element_" + uuid.NewString()
}
