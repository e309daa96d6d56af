package domain

import "time"

// Sentinel reference names distinguishing the two unmapped states: a
// material nobody mapped yet versus a mapping pointing at a catalog
// entry that is not in the supplied snapshot.
const (
	ReferenceNotMapped   = "Not Mapped"
	ReferenceDataMissing = "KBOB Data Missing"
)

// MaterialInstance is one (element, material-within-element) pairing,
// the atomic unit of calculation output. Sequence is unique within an
// element for one calculation pass.
type MaterialInstance struct {
	ElementID         string `json:"element_id"`
	Sequence          int    `json:"sequence"`
	MaterialName      string `json:"material_name"`
	ReferenceID       string `json:"kbob_id,omitempty"`
	ReferenceName     string `json:"kbob_name"`
	CategoryCode      string `json:"ebkp_code,omitempty"`
	AmortizationYears int    `json:"amortization_years"`
	Absolute          Impact `json:"absolute"`
	Relative          Impact `json:"relative"`
}

// CalculationResult is the aggregate output of one calculation pass.
// It is never mutated after construction.
type CalculationResult struct {
	Instances      []MaterialInstance `json:"material_instances"`
	TotalImpact    Impact             `json:"total_impact"`
	ProcessedCount int                `json:"processed_count"`
	ErrorCount     int                `json:"error_count"`
}

// ResultSummary is the persisted per-project summary; the full instance
// list is dispatched, not stored.
type ResultSummary struct {
	ProjectID      string            `json:"project_id"`
	TotalImpact    Impact            `json:"total_impact"`
	ProcessedCount int               `json:"processed_count"`
	ErrorCount     int               `json:"error_count"`
	Mapping        map[string]string `json:"mapping"`
	FloorArea      float64           `json:"floor_area"`
	CalculatedAt   time.Time         `json:"calculated_at"`
}
