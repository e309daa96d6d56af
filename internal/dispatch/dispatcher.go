package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"lca-backend/internal/calculation/domain"
	"lca-backend/internal/observability/metrics"
)

const (
	batchSize         = 200
	defaultBatchDelay = 50 * time.Millisecond
)

// ErrIncompleteMetadata is returned when dispatch metadata is missing a
// field; nothing is sent in that case.
var ErrIncompleteMetadata = errors.New("dispatch: incomplete metadata")

// Metadata identifies the originating upload on every dispatched batch.
type Metadata struct {
	Project   string
	Filename  string
	Timestamp string
	FileID    string
}

func (m Metadata) complete() bool {
	return m.Project != "" && m.Filename != "" && m.Timestamp != "" && m.FileID != ""
}

// Producer publishes keyed messages to the result topic.
type Producer interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, key string, value []byte) error
}

// TopicEnsurer makes sure the result topic exists before first use.
type TopicEnsurer interface {
	EnsureTopic(ctx context.Context) error
}

// Dispatcher delivers computed material instances to the downstream
// sink in fixed-size batches. Connection and topic state live on the
// dispatcher and are guarded by one mutex, which also serializes
// dispatch calls: one in flight at a time.
type Dispatcher struct {
	producer Producer
	topics   TopicEnsurer
	logger   *log.Logger
	delay    time.Duration

	mu                sync.Mutex
	producerConnected bool
	topicReady        bool
}

// Option configures a dispatcher.
type Option func(*Dispatcher)

// WithBatchDelay overrides the inter-batch throttle delay.
func WithBatchDelay(delay time.Duration) Option {
	return func(d *Dispatcher) {
		if delay >= 0 {
			d.delay = delay
		}
	}
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(producer Producer, topics TopicEnsurer, logger *log.Logger, opts ...Option) (*Dispatcher, error) {
	if producer == nil {
		return nil, errors.New("dispatch: nil producer")
	}
	if topics == nil {
		return nil, errors.New("dispatch: nil topic ensurer")
	}
	if logger == nil {
		logger = log.Default()
	}
	d := &Dispatcher{producer: producer, topics: topics, logger: logger, delay: defaultBatchDelay}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Send partitions the instances into batches of 200 (order preserved),
// deduplicates on (elementID, sequence) within the call, and delivers
// the batches sequentially. The first failed batch aborts the call and
// forces a reconnect on the next one; batches already sent stay sent
// (at-least-once towards the sink). An empty instance list is a no-op
// success; incomplete metadata refuses the whole call.
func (d *Dispatcher) Send(ctx context.Context, instances []domain.MaterialInstance, meta Metadata) error {
	if len(instances) == 0 {
		return nil
	}
	if !meta.complete() {
		return ErrIncompleteMetadata
	}

	start := time.Now()
	observed := metrics.ResultSuccess
	batchesSent, instancesSent := 0, 0
	defer func() {
		metrics.ObserveDispatch(observed, time.Since(start), batchesSent, instancesSent)
	}()

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureReadyLocked(ctx); err != nil {
		observed = metrics.ResultError
		return err
	}

	batchCount := (len(instances) + batchSize - 1) / batchSize
	d.logger.Printf("dispatch: sending %d instances in %d batches (project=%s file=%s)", len(instances), batchCount, meta.Project, meta.Filename)

	seen := make(map[string]struct{}, len(instances))
	for index := 0; index < batchCount; index++ {
		low := index * batchSize
		high := low + batchSize
		if high > len(instances) {
			high = len(instances)
		}

		records := make([]WireRecord, 0, high-low)
		for _, instance := range instances[low:high] {
			key := instance.ElementID + "::" + strconv.Itoa(instance.Sequence)
			if _, dup := seen[key]; dup {
				d.logger.Printf("dispatch: duplicate instance %s dropped", key)
				metrics.IncDispatchDuplicate()
				continue
			}
			seen[key] = struct{}{}
			records = append(records, wireRecord(instance))
		}
		if len(records) == 0 {
			continue
		}

		message := BatchMessage{
			Project:   meta.Project,
			Filename:  meta.Filename,
			Timestamp: meta.Timestamp,
			FileID:    meta.FileID,
			Data:      records,
		}
		value, err := json.Marshal(message)
		if err != nil {
			observed = metrics.ResultError
			return fmt.Errorf("dispatch: encode batch %d/%d: %w", index+1, batchCount, err)
		}
		if err := d.producer.Send(ctx, meta.FileID, value); err != nil {
			d.producerConnected = false
			observed = metrics.ResultError
			return fmt.Errorf("dispatch: send batch %d/%d: %w", index+1, batchCount, err)
		}
		batchesSent++
		instancesSent += len(records)

		if index < batchCount-1 && d.delay > 0 {
			if err := sleepContext(ctx, d.delay); err != nil {
				observed = metrics.ResultError
				return err
			}
		}
	}
	return nil
}

// ensureReadyLocked runs the topic check and lazy connect; both are
// remembered across calls and reset on failure.
func (d *Dispatcher) ensureReadyLocked(ctx context.Context) error {
	if !d.topicReady {
		if err := d.topics.EnsureTopic(ctx); err != nil {
			return fmt.Errorf("dispatch: ensure topic: %w", err)
		}
		d.topicReady = true
	}
	if !d.producerConnected {
		if err := d.producer.Connect(ctx); err != nil {
			return fmt.Errorf("dispatch: connect producer: %w", err)
		}
		d.producerConnected = true
	}
	return nil
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
