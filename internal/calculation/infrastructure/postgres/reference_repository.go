package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lca-backend/internal/calculation/domain"
)

const defaultReferencesTable = "kbob_materials"

// ReferenceRepository reads the KBOB reference catalog.
type ReferenceRepository struct {
	db    DBTX
	table string
}

// NewReferenceRepository constructs a repository.
func NewReferenceRepository(db DBTX, opts ...ReferenceOption) *ReferenceRepository {
	repo := &ReferenceRepository{db: db, table: defaultReferencesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ReferenceOption configures the repository.
type ReferenceOption func(*ReferenceRepository)

// WithReferencesTable overrides the default table name.
func WithReferencesTable(table string) ReferenceOption {
	return func(repo *ReferenceRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// ListReferences returns the full catalog snapshot. Rows with NULL
// density or factors load as zero; the calculation treats them as
// unusable records rather than failing the load.
func (r *ReferenceRepository) ListReferences(ctx context.Context) ([]domain.ReferenceRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reference repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, name, density, gwp, ubp, penr
FROM %s
ORDER BY id`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var references []domain.ReferenceRecord
	for rows.Next() {
		var record domain.ReferenceRecord
		var density, gwp, ubp, penr sql.NullFloat64
		if err := rows.Scan(
			&record.ID,
			&record.Name,
			&density,
			&gwp,
			&ubp,
			&penr,
		); err != nil {
			return nil, err
		}
		record.Density = density.Float64
		record.GWP = gwp.Float64
		record.UBP = ubp.Float64
		record.PENR = penr.Float64
		references = append(references, record)
	}
	return references, rows.Err()
}
