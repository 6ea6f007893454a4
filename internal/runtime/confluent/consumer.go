// Package confluent feeds batch handlers from a confluent-kafka-go consumer
// with auto commit disabled.
package confluent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/drblury/kafkaflow/internal/runtime/config"
	loggingpkg "github.com/drblury/kafkaflow/internal/runtime/logging"
	"github.com/drblury/kafkaflow/internal/runtime/message"
	"github.com/drblury/kafkaflow/internal/runtime/records"
)

const (
	defaultSessionTimeout = 45_000
	pollInterval          = 100 * time.Millisecond
)

// ErrNotConfluentRecord is returned by Seek for records this consumer did not
// produce.
var ErrNotConfluentRecord = errors.New("kafkaflow: record was not fetched by a confluent consumer")

// Client is the subset of *kafka.Consumer the batch consumer drives.
type Client interface {
	SubscribeTopics(topics []string, rebalanceCb kafka.RebalanceCb) error
	Poll(timeoutMs int) kafka.Event
	Commit() ([]kafka.TopicPartition, error)
	CommitOffsets(offsets []kafka.TopicPartition) ([]kafka.TopicPartition, error)
	Seek(partition kafka.TopicPartition, ignoredTimeoutMs int) error
	Close() error
}

// Config holds the consumer settings.
type Config struct {
	Brokers         []string
	GroupID         string
	ClientID        string
	Topics          []string
	AutoOffsetReset string
}

// ConfigFromService maps the service configuration onto a consumer config.
func ConfigFromService(conf *config.Config, topics ...string) Config {
	return Config{
		Brokers:         conf.GetKafkaBrokers(),
		GroupID:         conf.GetKafkaConsumerGroup(),
		ClientID:        conf.GetKafkaClientID(),
		Topics:          topics,
		AutoOffsetReset: conf.GetKafkaInitialOffset(),
	}
}

// ConfigMap renders cfg as librdkafka properties.
func (cfg Config) ConfigMap() *kafka.ConfigMap {
	reset := cfg.AutoOffsetReset
	if reset == "" {
		reset = "earliest"
	}
	return &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(cfg.Brokers, ","),
		"group.id":           cfg.GroupID,
		"client.id":          cfg.ClientID,
		"auto.offset.reset":  reset,
		"enable.auto.commit": false,
		"session.timeout.ms": defaultSessionTimeout,
	}
}

// BatchConsumer gathers records into batches and settles them on request.
type BatchConsumer struct {
	client Client
	log    loggingpkg.ServiceLogger

	closeOnce sync.Once
	closeErr  error
}

var _ message.Consumer = (*BatchConsumer)(nil)

// New connects a consumer and subscribes it to cfg.Topics.
func New(cfg Config, log loggingpkg.ServiceLogger) (*BatchConsumer, error) {
	client, err := kafka.NewConsumer(cfg.ConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	c, err := NewWithClient(client, cfg.Topics, log)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return c, nil
}

// NewWithClient wraps an existing client and subscribes it to topics.
func NewWithClient(client Client, topics []string, log loggingpkg.ServiceLogger) (*BatchConsumer, error) {
	if log == nil {
		log = loggingpkg.NewNopLogger()
	}
	if err := client.SubscribeTopics(topics, nil); err != nil {
		return nil, fmt.Errorf("failed to subscribe to topics: %w", err)
	}
	return &BatchConsumer{client: client, log: log.With(loggingpkg.LogFields{"topics": topics})}, nil
}

// Fetch polls until max records arrived or wait elapsed, whichever is first.
// It returns an empty slice when nothing arrived. Only fatal client errors are
// returned.
func (c *BatchConsumer) Fetch(ctx context.Context, max int, wait time.Duration) ([]message.Record, error) {
	if max <= 0 {
		max = 1
	}
	deadline := time.Now().Add(wait)
	batch := make([]message.Record, 0, max)

	for len(batch) < max {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}

		switch ev := c.client.Poll(int(min(remaining, pollInterval).Milliseconds())).(type) {
		case nil:
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				c.log.Error("Skipping record with partition error", ev.TopicPartition.Error, loggingpkg.LogFields{
					"partition": ev.TopicPartition.Partition,
					"offset":    int64(ev.TopicPartition.Offset),
				})
				continue
			}
			batch = append(batch, records.FromConfluent(ev))
		case kafka.Error:
			if ev.IsFatal() {
				return nil, fmt.Errorf("fatal kafka error: %w", ev)
			}
			c.log.Info("Kafka error (non-fatal)", loggingpkg.LogFields{"error": ev.Error()})
		default:
			c.log.Trace("Ignoring kafka event", loggingpkg.LogFields{"event": ev.String()})
		}
	}
	return batch, nil
}

// Commit commits the offsets of everything fetched so far.
func (c *BatchConsumer) Commit(context.Context) error {
	_, err := c.client.Commit()
	return commitError(err)
}

// CommitRecords commits each partition up to and including its latest record
// in recs. Records fetched after them stay uncommitted.
func (c *BatchConsumer) CommitRecords(_ context.Context, recs []message.Record) error {
	if len(recs) == 0 {
		return nil
	}

	latest := make(map[partitionKey]kafka.TopicPartition)
	var order []partitionKey
	for _, rec := range recs {
		src, ok := rec.(*records.Confluent)
		if !ok {
			return ErrNotConfluentRecord
		}
		tp := src.Source().TopicPartition
		key := keyOf(tp)
		current, seen := latest[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || tp.Offset+1 > current.Offset {
			tp.Offset++
			tp.Error = nil
			latest[key] = tp
		}
	}

	offsets := make([]kafka.TopicPartition, 0, len(order))
	for _, key := range order {
		offsets = append(offsets, latest[key])
	}
	_, err := c.client.CommitOffsets(offsets)
	return commitError(err)
}

func commitError(err error) error {
	if err == nil {
		return nil
	}
	var kerr kafka.Error
	if errors.As(err, &kerr) && kerr.Code() == kafka.ErrNoOffset {
		return nil
	}
	return fmt.Errorf("commit offsets: %w", err)
}

type partitionKey struct {
	topic     string
	partition int32
}

func keyOf(tp kafka.TopicPartition) partitionKey {
	key := partitionKey{partition: tp.Partition}
	if tp.Topic != nil {
		key.topic = *tp.Topic
	}
	return key
}

// Seek rewinds the record's partition so it is fetched again.
func (c *BatchConsumer) Seek(_ context.Context, rec message.Record) error {
	src, ok := rec.(*records.Confluent)
	if !ok {
		return ErrNotConfluentRecord
	}
	if err := c.client.Seek(src.Source().TopicPartition, 0); err != nil {
		return fmt.Errorf("seek partition %d to %d: %w", src.Source().TopicPartition.Partition, rec.Offset(), err)
	}
	return nil
}

// Rewind seeks every partition in batch back to its earliest record.
func (c *BatchConsumer) Rewind(ctx context.Context, batch []message.Record) error {
	earliest := make(map[partitionKey]message.Record)
	var order []partitionKey

	for _, rec := range batch {
		src, ok := rec.(*records.Confluent)
		if !ok {
			return ErrNotConfluentRecord
		}
		key := keyOf(src.Source().TopicPartition)
		current, seen := earliest[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || rec.Offset() < current.Offset() {
			earliest[key] = rec
		}
	}

	var errs []error
	for _, key := range order {
		errs = append(errs, c.Seek(ctx, earliest[key]))
	}
	return errors.Join(errs...)
}

// Close leaves the group and releases the client. It is safe to call twice.
func (c *BatchConsumer) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.client.Close()
	})
	return c.closeErr
}
