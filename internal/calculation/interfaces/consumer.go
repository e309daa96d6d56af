package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"lca-backend/internal/calculation/domain"
	"lca-backend/internal/dispatch"
)

// CalculationApp is the application surface the consumer drives.
type CalculationApp interface {
	ProjectByFileID(ctx context.Context, fileID string) (*domain.Project, error)
	RecalculateProject(ctx context.Context, projectID string) (*domain.CalculationResult, *domain.Project, error)
}

// ResultSink forwards recomputed instances downstream.
type ResultSink interface {
	Send(ctx context.Context, instances []domain.MaterialInstance, meta dispatch.Metadata) error
}

// ElementStore persists element payloads delivered on the stream.
type ElementStore interface {
	UpsertElements(ctx context.Context, projectID string, elements []domain.ElementRecord) error
}

// elementUpdateEvent is the notification published when a model upload
// finishes processing. Elements is optional; when present it carries
// the updated element set to persist before recalculating.
type elementUpdateEvent struct {
	Project   string                 `json:"project"`
	Filename  string                 `json:"filename"`
	Timestamp string                 `json:"timestamp"`
	FileID    string                 `json:"fileId"`
	Elements  []domain.ElementRecord `json:"elements,omitempty"`
}

// ElementUpdateConsumer reacts to element-update notifications by
// persisting any delivered element payload, recalculating the affected
// project with its stored mapping and dispatching the fresh instances.
type ElementUpdateConsumer struct {
	app    CalculationApp
	store  ElementStore
	sink   ResultSink
	logger *log.Logger
}

// NewElementUpdateConsumer constructs a consumer adapter. A nil store
// skips element persistence; a nil sink disables dispatching.
func NewElementUpdateConsumer(app CalculationApp, store ElementStore, sink ResultSink, logger *log.Logger) (*ElementUpdateConsumer, error) {
	if app == nil {
		return nil, errors.New("element consumer: nil app service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ElementUpdateConsumer{app: app, store: store, sink: sink, logger: logger}, nil
}

// HandleMessage processes one raw message from the element topic. An
// unknown file id is logged and dropped, not retried: the upload may
// belong to another plugin.
func (c *ElementUpdateConsumer) HandleMessage(ctx context.Context, value []byte) error {
	var event elementUpdateEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("element consumer: decode event: %w", err)
	}
	if event.FileID == "" {
		return errors.New("element consumer: event without file id")
	}

	project, err := c.app.ProjectByFileID(ctx, event.FileID)
	if err != nil {
		return fmt.Errorf("element consumer: resolve file %s: %w", event.FileID, err)
	}
	if project == nil {
		c.logger.Printf("element consumer: no project for file %s, skipping", event.FileID)
		return nil
	}
	projectID := project.ID

	if len(event.Elements) > 0 && c.store != nil {
		if err := c.store.UpsertElements(ctx, projectID, event.Elements); err != nil {
			return fmt.Errorf("element consumer: store elements of project %s: %w", projectID, err)
		}
	}

	result, _, err := c.app.RecalculateProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("element consumer: recalculate project %s: %w", projectID, err)
	}
	c.logger.Printf("element consumer: recalculated project %s (%d instances, %d errors)", projectID, result.ProcessedCount, result.ErrorCount)

	if c.sink == nil || len(result.Instances) == 0 {
		return nil
	}
	meta := dispatch.Metadata{
		Project:   event.Project,
		Filename:  event.Filename,
		Timestamp: event.Timestamp,
		FileID:    event.FileID,
	}
	if err := c.sink.Send(ctx, result.Instances, meta); err != nil {
		return fmt.Errorf("element consumer: dispatch project %s: %w", projectID, err)
	}
	return nil
}
