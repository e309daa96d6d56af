package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lca-backend/internal/calculation/domain"
)

const defaultResultsTable = "lca_results"

// ResultRepository persists per-project calculation summaries. One row
// per project; the material mapping is stored as JSONB so a later
// recalculation can reuse it.
type ResultRepository struct {
	db    DBTX
	table string
}

// NewResultRepository constructs a repository.
func NewResultRepository(db DBTX, opts ...ResultOption) *ResultRepository {
	repo := &ResultRepository{db: db, table: defaultResultsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ResultOption configures the repository.
type ResultOption func(*ResultRepository)

// WithResultsTable overrides the default table name.
func WithResultsTable(table string) ResultOption {
	return func(repo *ResultRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// UpsertSummary inserts or replaces the summary of a project.
func (r *ResultRepository) UpsertSummary(ctx context.Context, summary domain.ResultSummary) error {
	if r == nil || r.db == nil {
		return errors.New("result repo: nil db")
	}
	if summary.ProjectID == "" {
		return errors.New("result repo: empty project id")
	}
	if summary.CalculatedAt.IsZero() {
		summary.CalculatedAt = time.Now().UTC()
	}
	mapping, err := json.Marshal(summary.Mapping)
	if err != nil {
		return fmt.Errorf("result repo: encode mapping: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	project_id, total_gwp, total_ubp, total_penr,
	processed_count, error_count, mapping, floor_area, calculated_at
) VALUES (
	$1, $2, $3, $4,
	$5, $6, $7, $8, $9
)
ON CONFLICT (project_id)
DO UPDATE SET
	total_gwp = EXCLUDED.total_gwp,
	total_ubp = EXCLUDED.total_ubp,
	total_penr = EXCLUDED.total_penr,
	processed_count = EXCLUDED.processed_count,
	error_count = EXCLUDED.error_count,
	mapping = EXCLUDED.mapping,
	floor_area = EXCLUDED.floor_area,
	calculated_at = EXCLUDED.calculated_at`, r.table)

	_, err = r.db.ExecContext(
		ctx,
		query,
		summary.ProjectID,
		summary.TotalImpact.GWP,
		summary.TotalImpact.UBP,
		summary.TotalImpact.PENR,
		summary.ProcessedCount,
		summary.ErrorCount,
		mapping,
		summary.FloorArea,
		summary.CalculatedAt.UTC(),
	)
	return err
}

// GetSummary loads the stored summary of a project, or nil when the
// project was never calculated.
func (r *ResultRepository) GetSummary(ctx context.Context, projectID string) (*domain.ResultSummary, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("result repo: nil db")
	}
	if projectID == "" {
		return nil, errors.New("result repo: empty project id")
	}

	query := fmt.Sprintf(`
SELECT project_id, total_gwp, total_ubp, total_penr,
	processed_count, error_count, mapping, floor_area, calculated_at
FROM %s
WHERE project_id = $1
LIMIT 1`, r.table)

	var summary domain.ResultSummary
	var mapping []byte
	if err := r.db.QueryRowContext(ctx, query, projectID).Scan(
		&summary.ProjectID,
		&summary.TotalImpact.GWP,
		&summary.TotalImpact.UBP,
		&summary.TotalImpact.PENR,
		&summary.ProcessedCount,
		&summary.ErrorCount,
		&mapping,
		&summary.FloorArea,
		&summary.CalculatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(mapping) > 0 {
		if err := json.Unmarshal(mapping, &summary.Mapping); err != nil {
			return nil, fmt.Errorf("result repo: decode mapping: %w", err)
		}
	}
	summary.CalculatedAt = summary.CalculatedAt.UTC()
	return &summary, nil
}
