package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"lca-backend/internal/calculation/domain"
	"lca-backend/internal/observability/metrics"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// ElementSource supplies projects and their building elements.
type ElementSource interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
	GetProjectByFileID(ctx context.Context, fileID string) (*domain.Project, error)
	ListElements(ctx context.Context, projectID string) ([]domain.ElementRecord, error)
}

// ReferenceSource supplies the KBOB reference catalog snapshot.
type ReferenceSource interface {
	ListReferences(ctx context.Context) ([]domain.ReferenceRecord, error)
}

// ResultStore persists per-project calculation summaries.
type ResultStore interface {
	UpsertSummary(ctx context.Context, summary domain.ResultSummary) error
	GetSummary(ctx context.Context, projectID string) (*domain.ResultSummary, error)
}

// ErrProjectNotFound is returned when a project id resolves to nothing.
var ErrProjectNotFound = errors.New("calculation: project not found")

// CalculationService runs the impact calculation over all elements of a
// project and persists the resulting summary.
type CalculationService struct {
	elements     ElementSource
	references   ReferenceSource
	results      ResultStore
	amortization domain.AmortizationTable
	clock        Clock
	logger       *log.Logger
}

// NewCalculationService constructs a service.
func NewCalculationService(
	elements ElementSource,
	references ReferenceSource,
	results ResultStore,
	amortization domain.AmortizationTable,
	clock Clock,
	logger *log.Logger,
) (*CalculationService, error) {
	if elements == nil {
		return nil, errors.New("calculation service: nil element source")
	}
	if references == nil {
		return nil, errors.New("calculation service: nil reference source")
	}
	if results == nil {
		return nil, errors.New("calculation service: nil result store")
	}
	if amortization == nil {
		amortization = domain.DefaultAmortizationTable()
	}
	if clock == nil {
		return nil, errors.New("calculation service: nil clock")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CalculationService{
		elements:     elements,
		references:   references,
		results:      results,
		amortization: amortization,
		clock:        clock,
		logger:       logger,
	}, nil
}

// Calculate runs one calculation pass over the supplied elements. The
// mapping is keyed by material name; both the raw and the normalized
// name are tried, raw first. A floor area of zero or less means no
// normalization basis; relative figures then stay zero.
//
// Per-instance failures never abort the pass: every enumerable material
// yields a row, failed rows carry zero impacts and are counted.
func (s *CalculationService) Calculate(
	elements []domain.ElementRecord,
	mapping map[string]string,
	references []domain.ReferenceRecord,
	floorArea float64,
) *domain.CalculationResult {
	index := domain.NewReferenceIndex(references)
	result := &domain.CalculationResult{}

	for _, element := range elements {
		if len(element.Materials) == 0 {
			continue
		}
		elementID := element.OutputID()
		sequence := 0

		for _, material := range element.Materials {
			if strings.TrimSpace(material.Name) == "" {
				s.logger.Printf("calculation element=%s: skipping invalid material entry", elementID)
				result.ErrorCount++
				continue
			}

			normalized := domain.NormalizeMaterialName(material.Name)
			referenceID := mapping[material.Name]
			if referenceID == "" {
				referenceID = mapping[normalized]
			}
			record := index.Lookup(referenceID)
			volume := material.Volume.Value()
			volumeValid := volume > 0 && !math.IsNaN(volume) && !math.IsInf(volume, 0)
			years := s.amortization.ResolveYears(element.CategoryCode, element.Description)

			absolute := domain.ComputeAbsolute(volume, record)
			relative := domain.NormalizeImpact(absolute, years, floorArea)

			referenceName := domain.ReferenceNotMapped
			switch {
			case record != nil && record.Density > 0 && volumeValid:
				referenceName = record.Name
				result.TotalImpact.Add(absolute)
			case referenceID != "" && record == nil:
				referenceName = domain.ReferenceDataMissing
				s.logger.Printf("calculation element=%s material=%q: no reference data for mapped id %s", elementID, material.Name, referenceID)
				result.ErrorCount++
			case record != nil:
				referenceName = record.Name
				s.logger.Printf("calculation element=%s material=%q: invalid volume (%v) or density (%v)", elementID, material.Name, volume, record.Density)
				result.ErrorCount++
			default:
				// Not mapped at all: a zero-impact row, not an error.
			}

			result.Instances = append(result.Instances, domain.MaterialInstance{
				ElementID:         elementID,
				Sequence:          sequence,
				MaterialName:      material.Name,
				ReferenceID:       referenceID,
				ReferenceName:     referenceName,
				CategoryCode:      element.CategoryCode,
				AmortizationYears: years,
				Absolute:          absolute,
				Relative:          relative,
			})
			sequence++
		}
	}

	result.ProcessedCount = len(result.Instances)
	s.logger.Printf("calculation: processed %d material instances, %d errors", result.ProcessedCount, result.ErrorCount)
	return result
}

// CalculateProject loads a project's elements and the reference catalog,
// runs a calculation pass and upserts the summary (without the instance
// list). The full result is returned for dispatching.
func (s *CalculationService) CalculateProject(
	ctx context.Context,
	projectID string,
	mapping map[string]string,
	floorArea float64,
) (*domain.CalculationResult, *domain.Project, error) {
	start := time.Now()
	observed := metrics.ResultSuccess
	var result *domain.CalculationResult
	defer func() {
		instances, errCount := 0, 0
		if result != nil {
			instances, errCount = result.ProcessedCount, result.ErrorCount
		}
		metrics.ObserveCalculation(observed, time.Since(start), instances, errCount)
	}()

	if projectID == "" {
		observed = metrics.ResultError
		return nil, nil, errors.New("calculation service: empty project id")
	}
	project, err := s.elements.GetProject(ctx, projectID)
	if err != nil {
		observed = metrics.ResultError
		return nil, nil, err
	}
	if project == nil {
		observed = metrics.ResultError
		return nil, nil, ErrProjectNotFound
	}
	elements, err := s.elements.ListElements(ctx, projectID)
	if err != nil {
		observed = metrics.ResultError
		return nil, nil, err
	}
	references, err := s.references.ListReferences(ctx)
	if err != nil {
		observed = metrics.ResultError
		return nil, nil, err
	}

	result = s.Calculate(elements, mapping, references, floorArea)

	summary := domain.ResultSummary{
		ProjectID:      projectID,
		TotalImpact:    result.TotalImpact,
		ProcessedCount: result.ProcessedCount,
		ErrorCount:     result.ErrorCount,
		Mapping:        mapping,
		FloorArea:      floorArea,
		CalculatedAt:   s.clock.Now().UTC(),
	}
	if err := s.results.UpsertSummary(ctx, summary); err != nil {
		observed = metrics.ResultError
		return nil, nil, fmt.Errorf("calculation service: persist summary: %w", err)
	}
	return result, project, nil
}

// RecalculateProject re-runs the calculation with the stored mapping and
// floor area, e.g. after an element update arrived on the stream.
func (s *CalculationService) RecalculateProject(ctx context.Context, projectID string) (*domain.CalculationResult, *domain.Project, error) {
	summary, err := s.results.GetSummary(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	mapping := map[string]string{}
	floorArea := 0.0
	if summary != nil {
		if summary.Mapping != nil {
			mapping = summary.Mapping
		}
		floorArea = summary.FloorArea
	}
	return s.CalculateProject(ctx, projectID, mapping, floorArea)
}

// Projects lists the known projects.
func (s *CalculationService) Projects(ctx context.Context) ([]domain.Project, error) {
	return s.elements.ListProjects(ctx)
}

// ProjectByFileID resolves a project from an upload file id.
func (s *CalculationService) ProjectByFileID(ctx context.Context, fileID string) (*domain.Project, error) {
	if fileID == "" {
		return nil, errors.New("calculation service: empty file id")
	}
	return s.elements.GetProjectByFileID(ctx, fileID)
}

// AggregatedMaterial is one unique material with its summed volume.
type AggregatedMaterial struct {
	Name   string  `json:"name"`
	Volume float64 `json:"volume"`
}

// MaterialsView is what the mapping editor needs for one project.
type MaterialsView struct {
	Project   domain.Project       `json:"project"`
	Materials []AggregatedMaterial `json:"materials"`
	Mapping   map[string]string    `json:"mapping"`
	FloorArea float64              `json:"floor_area"`
}

// ProjectMaterials aggregates the unique (normalized) materials of a
// project with their total volumes, together with the saved mapping.
func (s *CalculationService) ProjectMaterials(ctx context.Context, projectID string) (*MaterialsView, error) {
	if projectID == "" {
		return nil, errors.New("calculation service: empty project id")
	}
	project, err := s.elements.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	elements, err := s.elements.ListElements(ctx, projectID)
	if err != nil {
		return nil, err
	}

	volumes := make(map[string]float64)
	for _, element := range elements {
		for _, material := range element.Materials {
			if strings.TrimSpace(material.Name) == "" {
				continue
			}
			volume := material.Volume.Value()
			if volume <= 0 {
				continue
			}
			name := domain.NormalizeMaterialName(material.Name)
			volumes[name] += volume
		}
	}
	materials := make([]AggregatedMaterial, 0, len(volumes))
	for name, volume := range volumes {
		materials = append(materials, AggregatedMaterial{Name: name, Volume: volume})
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i].Name < materials[j].Name })

	view := &MaterialsView{Project: *project, Materials: materials, Mapping: map[string]string{}}
	summary, err := s.results.GetSummary(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if summary != nil {
		if summary.Mapping != nil {
			view.Mapping = summary.Mapping
		}
		view.FloorArea = summary.FloorArea
	}
	return view, nil
}
