package interfaces

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"lca-backend/internal/calculation/domain"
	"lca-backend/internal/dispatch"
)

type fakeApp struct {
	project        *domain.Project
	result         *domain.CalculationResult
	resolveErr     error
	recalcErr      error
	recalculated   []string
	resolvedFileID string
}

func (f *fakeApp) ProjectByFileID(ctx context.Context, fileID string) (*domain.Project, error) {
	f.resolvedFileID = fileID
	return f.project, f.resolveErr
}

func (f *fakeApp) RecalculateProject(ctx context.Context, projectID string) (*domain.CalculationResult, *domain.Project, error) {
	if f.recalcErr != nil {
		return nil, nil, f.recalcErr
	}
	f.recalculated = append(f.recalculated, projectID)
	return f.result, f.project, nil
}

type fakeSink struct {
	instances []domain.MaterialInstance
	meta      dispatch.Metadata
	calls     int
	err       error
}

func (f *fakeSink) Send(ctx context.Context, instances []domain.MaterialInstance, meta dispatch.Metadata) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.instances = instances
	f.meta = meta
	return nil
}

func consumerProject() *domain.Project {
	return &domain.Project{
		ID:         "P1",
		Name:       "Amtshaus Walche",
		FileID:     "file-1",
		Filename:   "model.ifc",
		UploadedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

type fakeElementStore struct {
	projectID string
	elements  []domain.ElementRecord
	calls     int
	err       error
}

func (f *fakeElementStore) UpsertElements(ctx context.Context, projectID string, elements []domain.ElementRecord) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.projectID = projectID
	f.elements = elements
	return nil
}

func newTestConsumer(t *testing.T, app CalculationApp, sink ResultSink) *ElementUpdateConsumer {
	t.Helper()
	consumer, err := NewElementUpdateConsumer(app, nil, sink, log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	return consumer
}

func TestHandleMessage_RecalculatesAndDispatches(t *testing.T) {
	app := &fakeApp{
		project: consumerProject(),
		result: &domain.CalculationResult{
			Instances:      []domain.MaterialInstance{{ElementID: "E1", Sequence: 0}},
			ProcessedCount: 1,
		},
	}
	sink := &fakeSink{}
	consumer := newTestConsumer(t, app, sink)

	message := []byte(`{"project":"Amtshaus Walche","filename":"model.ifc","timestamp":"2026-08-01T12:00:00Z","fileId":"file-1"}`)
	if err := consumer.HandleMessage(context.Background(), message); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if app.resolvedFileID != "file-1" {
		t.Fatalf("file id not resolved: %q", app.resolvedFileID)
	}
	if len(app.recalculated) != 1 || app.recalculated[0] != "P1" {
		t.Fatalf("recalculations: %v", app.recalculated)
	}
	want := dispatch.Metadata{
		Project:   "Amtshaus Walche",
		Filename:  "model.ifc",
		Timestamp: "2026-08-01T12:00:00Z",
		FileID:    "file-1",
	}
	if sink.meta != want {
		t.Fatalf("metadata: got %+v, want %+v", sink.meta, want)
	}
}

func TestHandleMessage_UnknownFileSkipped(t *testing.T) {
	app := &fakeApp{}
	sink := &fakeSink{}
	consumer := newTestConsumer(t, app, sink)

	message := []byte(`{"project":"X","filename":"x.ifc","timestamp":"2026-08-01T12:00:00Z","fileId":"file-unknown"}`)
	if err := consumer.HandleMessage(context.Background(), message); err != nil {
		t.Fatalf("unknown file must be skipped without error, got %v", err)
	}
	if len(app.recalculated) != 0 || sink.calls != 0 {
		t.Fatalf("no recalculation expected for unknown file")
	}
}

func TestHandleMessage_MalformedPayload(t *testing.T) {
	consumer := newTestConsumer(t, &fakeApp{}, nil)

	if err := consumer.HandleMessage(context.Background(), []byte("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
	if err := consumer.HandleMessage(context.Background(), []byte(`{"project":"X"}`)); err == nil {
		t.Fatalf("expected error for missing file id")
	}
}

func TestHandleMessage_EmptyResultNotDispatched(t *testing.T) {
	app := &fakeApp{project: consumerProject(), result: &domain.CalculationResult{}}
	sink := &fakeSink{}
	consumer := newTestConsumer(t, app, sink)

	message := []byte(`{"project":"Amtshaus Walche","filename":"model.ifc","timestamp":"2026-08-01T12:00:00Z","fileId":"file-1"}`)
	if err := consumer.HandleMessage(context.Background(), message); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if sink.calls != 0 {
		t.Fatalf("empty result must not be dispatched")
	}
}

func TestHandleMessage_RecalculationErrorReturned(t *testing.T) {
	app := &fakeApp{project: consumerProject(), recalcErr: errors.New("store unavailable")}
	sink := &fakeSink{}
	consumer := newTestConsumer(t, app, sink)

	message := []byte(`{"project":"Amtshaus Walche","filename":"model.ifc","timestamp":"2026-08-01T12:00:00Z","fileId":"file-1"}`)
	err := consumer.HandleMessage(context.Background(), message)
	if err == nil {
		t.Fatalf("expected recalculation error")
	}
	if !errors.Is(err, app.recalcErr) {
		t.Fatalf("wrapped error lost: %v", err)
	}
	if sink.calls != 0 {
		t.Fatalf("nothing must be dispatched after a failed recalculation")
	}
}

func TestHandleMessage_PersistsDeliveredElements(t *testing.T) {
	app := &fakeApp{
		project: consumerProject(),
		result: &domain.CalculationResult{
			Instances:      []domain.MaterialInstance{{ElementID: "E9", Sequence: 0}},
			ProcessedCount: 1,
		},
	}
	store := &fakeElementStore{}
	sink := &fakeSink{}
	consumer, err := NewElementUpdateConsumer(app, store, sink, log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	message := []byte(`{"project":"Amtshaus Walche","filename":"model.ifc","timestamp":"2026-08-01T12:00:00Z","fileId":"file-1",` +
		`"elements":[{"id":"E9","ebkp_code":"C01","materials":[{"name":"Beton","volume":2.0}]}]}`)
	if err := consumer.HandleMessage(context.Background(), message); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if store.calls != 1 || store.projectID != "P1" {
		t.Fatalf("elements not persisted: %+v", store)
	}
	if len(store.elements) != 1 || store.elements[0].ID != "E9" || len(store.elements[0].Materials) != 1 {
		t.Fatalf("persisted elements: %+v", store.elements)
	}
	if len(app.recalculated) != 1 {
		t.Fatalf("recalculation must follow persistence")
	}
}

func TestHandleMessage_StoreFailureAbortsRecalculation(t *testing.T) {
	app := &fakeApp{project: consumerProject(), result: &domain.CalculationResult{}}
	store := &fakeElementStore{err: errors.New("insert failed")}
	consumer, err := NewElementUpdateConsumer(app, store, nil, log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	message := []byte(`{"project":"X","filename":"x.ifc","timestamp":"2026-08-01T12:00:00Z","fileId":"file-1",` +
		`"elements":[{"id":"E9","materials":[{"name":"Beton","volume":1}]}]}`)
	if err := consumer.HandleMessage(context.Background(), message); err == nil {
		t.Fatalf("expected store error")
	}
	if len(app.recalculated) != 0 {
		t.Fatalf("recalculation must not run on stale elements")
	}
}

func TestHandleMessage_DispatchErrorPropagates(t *testing.T) {
	app := &fakeApp{
		project: consumerProject(),
		result: &domain.CalculationResult{
			Instances:      []domain.MaterialInstance{{ElementID: "E1"}},
			ProcessedCount: 1,
		},
	}
	sink := &fakeSink{err: errors.New("broker down")}
	consumer := newTestConsumer(t, app, sink)

	message := []byte(`{"project":"Amtshaus Walche","filename":"model.ifc","timestamp":"2026-08-01T12:00:00Z","fileId":"file-1"}`)
	if err := consumer.HandleMessage(context.Background(), message); err == nil {
		t.Fatalf("expected dispatch error to propagate")
	}
}
