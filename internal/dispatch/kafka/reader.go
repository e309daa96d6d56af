package kafka

import (
	"context"
	"errors"
	"log"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"lca-backend/internal/observability/metrics"
)

// MessageHandler processes one raw message from a topic.
type MessageHandler interface {
	HandleMessage(ctx context.Context, value []byte) error
}

// ReaderConfig holds consumer group settings for the element topic.
type ReaderConfig struct {
	Broker  string
	Topic   string
	GroupID string
}

// Reader runs a consumer-group loop over one topic and feeds each
// message to a handler. Handler failures are logged and the message is
// committed anyway; a poison message must not wedge the group.
type Reader struct {
	reader  *kafkago.Reader
	handler MessageHandler
	config  ReaderConfig
	logger  *log.Logger
}

// NewReader constructs a reader.
func NewReader(config ReaderConfig, handler MessageHandler, logger *log.Logger) (*Reader, error) {
	if config.Broker == "" {
		return nil, errors.New("kafka: empty broker address")
	}
	if config.Topic == "" {
		return nil, errors.New("kafka: empty topic")
	}
	if config.GroupID == "" {
		return nil, errors.New("kafka: empty group id")
	}
	if handler == nil {
		return nil, errors.New("kafka: nil handler")
	}
	if logger == nil {
		logger = log.Default()
	}
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: []string{config.Broker},
		Topic:   config.Topic,
		GroupID: config.GroupID,
	})
	return &Reader{reader: reader, handler: handler, config: config, logger: logger}, nil
}

// Run consumes until the context is cancelled.
func (r *Reader) Run(ctx context.Context) error {
	r.logger.Printf("kafka: consuming topic %q as group %q", r.config.Topic, r.config.GroupID)
	for {
		message, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if !message.Time.IsZero() {
			metrics.ObserveConsumerLag(r.config.GroupID, time.Since(message.Time))
		}

		if err := r.handler.HandleMessage(ctx, message.Value); err != nil {
			r.logger.Printf("kafka: handler failed at %s/%d offset %d: %v", message.Topic, message.Partition, message.Offset, err)
		}
		if err := r.reader.CommitMessages(ctx, message); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// Close shuts the underlying reader down.
func (r *Reader) Close() error {
	return r.reader.Close()
}
