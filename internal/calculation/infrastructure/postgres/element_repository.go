package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"lca-backend/internal/calculation/domain"
)

const (
	defaultProjectsTable = "projects"
	defaultElementsTable = "elements"
)

// ElementRepository is a Postgres implementation of the element source.
// Element materials are stored as a JSONB array in the shape the
// ingestion pipeline delivers them.
type ElementRepository struct {
	db            DBTX
	projectsTable string
	elementsTable string
}

// NewElementRepository constructs a repository.
func NewElementRepository(db DBTX, opts ...ElementOption) *ElementRepository {
	repo := &ElementRepository{
		db:            db,
		projectsTable: defaultProjectsTable,
		elementsTable: defaultElementsTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ElementOption configures the repository.
type ElementOption func(*ElementRepository)

// WithProjectsTable overrides the default projects table name.
func WithProjectsTable(table string) ElementOption {
	return func(repo *ElementRepository) {
		if table != "" {
			repo.projectsTable = table
		}
	}
}

// WithElementsTable overrides the default elements table name.
func WithElementsTable(table string) ElementOption {
	return func(repo *ElementRepository) {
		if table != "" {
			repo.elementsTable = table
		}
	}
}

// ListProjects returns all known projects, newest upload first.
func (r *ElementRepository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("element repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, name, file_id, filename, uploaded_at
FROM %s
ORDER BY uploaded_at DESC`, r.projectsTable)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var project domain.Project
		if err := rows.Scan(
			&project.ID,
			&project.Name,
			&project.FileID,
			&project.Filename,
			&project.UploadedAt,
		); err != nil {
			return nil, err
		}
		project.UploadedAt = project.UploadedAt.UTC()
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// GetProject loads a project by id.
func (r *ElementRepository) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("element repo: nil db")
	}
	if projectID == "" {
		return nil, errors.New("element repo: empty project id")
	}

	query := fmt.Sprintf(`
SELECT id, name, file_id, filename, uploaded_at
FROM %s
WHERE id = $1
LIMIT 1`, r.projectsTable)

	return r.scanProject(r.db.QueryRowContext(ctx, query, projectID))
}

// GetProjectByFileID resolves a project from its upload file id.
func (r *ElementRepository) GetProjectByFileID(ctx context.Context, fileID string) (*domain.Project, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("element repo: nil db")
	}
	if fileID == "" {
		return nil, errors.New("element repo: empty file id")
	}

	query := fmt.Sprintf(`
SELECT id, name, file_id, filename, uploaded_at
FROM %s
WHERE file_id = $1
ORDER BY uploaded_at DESC
LIMIT 1`, r.projectsTable)

	return r.scanProject(r.db.QueryRowContext(ctx, query, fileID))
}

func (r *ElementRepository) scanProject(row *sql.Row) (*domain.Project, error) {
	var project domain.Project
	if err := row.Scan(
		&project.ID,
		&project.Name,
		&project.FileID,
		&project.Filename,
		&project.UploadedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	project.UploadedAt = project.UploadedAt.UTC()
	return &project, nil
}

// ListElements returns the building elements of a project with their
// material layers decoded from the JSONB column.
func (r *ElementRepository) ListElements(ctx context.Context, projectID string) ([]domain.ElementRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("element repo: nil db")
	}
	if projectID == "" {
		return nil, errors.New("element repo: empty project id")
	}

	query := fmt.Sprintf(`
SELECT id, global_id, ifc_id, ebkp_code, description, materials
FROM %s
WHERE project_id = $1
ORDER BY id`, r.elementsTable)

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var elements []domain.ElementRecord
	for rows.Next() {
		var element domain.ElementRecord
		var globalID, ifcID, categoryCode, description sql.NullString
		var materials []byte
		if err := rows.Scan(
			&element.ID,
			&globalID,
			&ifcID,
			&categoryCode,
			&description,
			&materials,
		); err != nil {
			return nil, err
		}
		element.GlobalID = globalID.String
		element.IfcID = ifcID.String
		element.CategoryCode = categoryCode.String
		element.Description = description.String
		if len(materials) > 0 {
			if err := json.Unmarshal(materials, &element.Materials); err != nil {
				return nil, fmt.Errorf("element repo: decode materials of %s: %w", element.ID, err)
			}
		}
		elements = append(elements, element)
	}
	return elements, rows.Err()
}

// UpsertElements replaces the stored elements of a project with the
// given set, e.g. when a new model version arrives on the stream.
func (r *ElementRepository) UpsertElements(ctx context.Context, projectID string, elements []domain.ElementRecord) error {
	if r == nil || r.db == nil {
		return errors.New("element repo: nil db")
	}
	if projectID == "" {
		return errors.New("element repo: empty project id")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id, project_id, global_id, ifc_id, ebkp_code, description, materials
) VALUES (
	$1, $2, $3, $4, $5, $6, $7
)
ON CONFLICT (id)
DO UPDATE SET
	project_id = EXCLUDED.project_id,
	global_id = EXCLUDED.global_id,
	ifc_id = EXCLUDED.ifc_id,
	ebkp_code = EXCLUDED.ebkp_code,
	description = EXCLUDED.description,
	materials = EXCLUDED.materials`, r.elementsTable)

	for _, element := range elements {
		materials, err := json.Marshal(element.Materials)
		if err != nil {
			return fmt.Errorf("element repo: encode materials of %s: %w", element.ID, err)
		}
		if _, err := r.db.ExecContext(
			ctx,
			query,
			element.ID,
			projectID,
			element.GlobalID,
			element.IfcID,
			element.CategoryCode,
			element.Description,
			materials,
		); err != nil {
			return err
		}
	}
	return nil
}
