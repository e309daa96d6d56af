package kafka

import (
	"context"
	"errors"
	"log"
	"net"
	"strconv"
	"sync"

	kafkago "github.com/segmentio/kafka-go"
)

// Config holds broker connection settings for the result topic.
type Config struct {
	Broker   string
	Topic    string
	ClientID string
}

// Client publishes keyed messages to one Kafka topic and can ensure the
// topic exists. It satisfies the dispatcher's Producer and TopicEnsurer
// interfaces.
type Client struct {
	config Config
	logger *log.Logger

	mu     sync.Mutex
	writer *kafkago.Writer
}

// NewClient constructs a client; no connection is made until Connect.
func NewClient(config Config, logger *log.Logger) (*Client, error) {
	if config.Broker == "" {
		return nil, errors.New("kafka: empty broker address")
	}
	if config.Topic == "" {
		return nil, errors.New("kafka: empty topic")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{config: config, logger: logger}, nil
}

// EnsureTopic checks the topic exists on the cluster controller and
// creates it (one partition, replication factor one) when missing.
func (c *Client) EnsureTopic(ctx context.Context) error {
	conn, err := kafkago.DialContext(ctx, "tcp", c.config.Broker)
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafkago.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	if _, err := controllerConn.ReadPartitions(c.config.Topic); err == nil {
		c.logger.Printf("kafka: topic %q already exists", c.config.Topic)
		return nil
	}
	c.logger.Printf("kafka: creating topic %q", c.config.Topic)
	return controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             c.config.Topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
}

// Connect probes the broker and prepares the writer.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := kafkago.DialContext(ctx, "tcp", c.config.Broker)
	if err != nil {
		return err
	}
	_ = conn.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writer != nil {
		return nil
	}
	c.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(c.config.Broker),
		Topic:        c.config.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
	}
	c.logger.Printf("kafka: producer connected to %s", c.config.Broker)
	return nil
}

// Send publishes one keyed message to the topic.
func (c *Client) Send(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	writer := c.writer
	c.mu.Unlock()
	if writer == nil {
		return errors.New("kafka: producer not connected")
	}
	return writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: value,
	})
}

// Close releases the writer.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writer == nil {
		return nil
	}
	err := c.writer.Close()
	c.writer = nil
	return err
}
