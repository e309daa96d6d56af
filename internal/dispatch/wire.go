package dispatch

import "lca-backend/internal/calculation/domain"

// Placeholder reference id for instances dispatched without a mapping.
const unknownReference = "UNKNOWN_KBOB"

// WireRecord is one material instance in the downstream batch schema.
// Field names follow the consumer's established schema, including the
// historical "upb" spelling of the UBP channel.
type WireRecord struct {
	ID           string  `json:"id"`
	Sequence     int     `json:"sequence"`
	MatKbob      string  `json:"mat_kbob"`
	GWPRelative  float64 `json:"gwp_relative"`
	GWPAbsolute  float64 `json:"gwp_absolute"`
	PENRRelative float64 `json:"penr_relative"`
	PENRAbsolute float64 `json:"penr_absolute"`
	UBPRelative  float64 `json:"upb_relative"`
	UBPAbsolute  float64 `json:"upb_absolute"`
}

// BatchMessage is one message on the result topic: file metadata plus up
// to one batch of instance records, keyed downstream by FileID.
type BatchMessage struct {
	Project   string       `json:"project"`
	Filename  string       `json:"filename"`
	Timestamp string       `json:"timestamp"`
	FileID    string       `json:"fileId"`
	Data      []WireRecord `json:"data"`
}

func wireRecord(instance domain.MaterialInstance) WireRecord {
	matKbob := instance.ReferenceID
	if matKbob == "" {
		matKbob = unknownReference
	}
	return WireRecord{
		ID:           instance.ElementID,
		Sequence:     instance.Sequence,
		MatKbob:      matKbob,
		GWPRelative:  instance.Relative.GWP,
		GWPAbsolute:  instance.Absolute.GWP,
		PENRRelative: instance.Relative.PENR,
		PENRAbsolute: instance.Absolute.PENR,
		UBPRelative:  instance.Relative.UBP,
		UBPAbsolute:  instance.Absolute.UBP,
	}
}
