package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"lca-backend/internal/calculation/application"
	"lca-backend/internal/calculation/domain"
	"lca-backend/internal/dispatch"
	"lca-backend/internal/observability/metrics"
)

// Service is the calculation surface the handler drives.
type Service interface {
	Projects(ctx context.Context) ([]domain.Project, error)
	ProjectMaterials(ctx context.Context, projectID string) (*application.MaterialsView, error)
	CalculateProject(ctx context.Context, projectID string, mapping map[string]string, floorArea float64) (*domain.CalculationResult, *domain.Project, error)
	RecalculateProject(ctx context.Context, projectID string) (*domain.CalculationResult, *domain.Project, error)
}

// ResultSink forwards computed instances downstream.
type ResultSink interface {
	Send(ctx context.Context, instances []domain.MaterialInstance, meta dispatch.Metadata) error
}

// Handler provides the project and calculation HTTP endpoints.
type Handler struct {
	service Service
	sink    ResultSink
	logger  *log.Logger
}

// NewHandler constructs a handler. A nil sink disables dispatching.
func NewHandler(service Service, sink ResultSink, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("lca handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, sink: sink, logger: logger}, nil
}

// ServeHTTP handles /api/v1/projects and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/projects":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/projects/"):
		h.handleProjectRoute(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleProjectRoute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/projects/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	projectID := parts[0]

	switch parts[1] {
	case "materials":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleMaterials(w, r, projectID)
	case "calculate":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleCalculate(w, r, projectID)
	case "export.xlsx":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExport(w, r, projectID, "xlsx")
	case "export.pdf":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExport(w, r, projectID, "pdf")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.Projects(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	writeJSON(w, projects)
}

func (h *Handler) handleMaterials(w http.ResponseWriter, r *http.Request, projectID string) {
	view, err := h.service.ProjectMaterials(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, application.ErrProjectNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, view)
}

type calculateRequest struct {
	Mapping   map[string]string `json:"mapping"`
	FloorArea float64           `json:"floor_area"`
}

type calculateResponse struct {
	ProjectID      string        `json:"project_id"`
	TotalImpact    domain.Impact `json:"total_impact"`
	ProcessedCount int           `json:"processed_count"`
	ErrorCount     int           `json:"error_count"`
	FloorArea      float64       `json:"floor_area"`
	Dispatched     bool          `json:"dispatched"`
	DispatchError  string        `json:"dispatch_error,omitempty"`
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request, projectID string) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Mapping == nil {
		req.Mapping = map[string]string{}
	}

	result, project, err := h.service.CalculateProject(r.Context(), projectID, req.Mapping, req.FloorArea)
	if err != nil {
		if errors.Is(err, application.ErrProjectNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := calculateResponse{
		ProjectID:      projectID,
		TotalImpact:    result.TotalImpact,
		ProcessedCount: result.ProcessedCount,
		ErrorCount:     result.ErrorCount,
		FloorArea:      req.FloorArea,
	}
	if h.sink != nil {
		if err := h.sink.Send(r.Context(), result.Instances, dispatchMetadata(project)); err != nil {
			h.logger.Printf("lca handler: dispatch for project %s failed: %v", projectID, err)
			resp.DispatchError = err.Error()
		} else {
			resp.Dispatched = len(result.Instances) > 0
		}
	}
	writeJSON(w, resp)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, projectID, format string) {
	start := time.Now()
	result, project, err := h.service.RecalculateProject(r.Context(), projectID)
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		if errors.Is(err, application.ErrProjectNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	floorArea := 0.0
	if view, viewErr := h.service.ProjectMaterials(r.Context(), projectID); viewErr == nil && view != nil {
		floorArea = view.FloorArea
	}

	var payload []byte
	var contentType, extension string
	switch format {
	case "xlsx":
		payload, err = BuildResultXLSX(project, result, floorArea)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		extension = "xlsx"
	case "pdf":
		payload, err = BuildResultPDF(project, result, floorArea)
		contentType = "application/pdf"
		extension = "pdf"
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="lca-result-`+projectID+`.`+extension+`"`)
	_, _ = w.Write(payload)
}

// dispatchMetadata builds the batch metadata from project fields; the
// dispatcher refuses the call if any of them is empty.
func dispatchMetadata(project *domain.Project) dispatch.Metadata {
	if project == nil {
		return dispatch.Metadata{}
	}
	timestamp := ""
	if !project.UploadedAt.IsZero() {
		timestamp = project.UploadedAt.UTC().Format(time.RFC3339)
	}
	return dispatch.Metadata{
		Project:   project.Name,
		Filename:  project.Filename,
		Timestamp: timestamp,
		FileID:    project.FileID,
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
