// Package transport defines the core interfaces and types for kafkaflow
// transports. Each transport implementation (kafka, channel, nats, ...) lives
// in its own sub-package and registers itself with the transport registry.
//
// Consuming transports deliver records whose log position is known, so the
// parser can derive message ids. Reply-only transports carry a Publisher and
// leave Subscriber nil; they receive handler responses.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport combines a publisher and subscriber pair produced by a factory.
// Subscriber is nil for reply-only transports.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close closes both halves, ignoring a nil subscriber.
func (t Transport) Close() error {
	var firstErr error
	if t.Subscriber != nil {
		firstErr = t.Subscriber.Close()
	}
	if t.Publisher != nil {
		if err := t.Publisher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Builder is the function signature for creating a transport from config.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config provides the configuration values needed by transports.
// This interface allows transports to access only the config they need
// without depending on the full config package.
type Config interface {
	// GetTransport returns the consuming transport name.
	GetTransport() string

	// Kafka
	GetKafkaBrokers() []string
	GetKafkaClientID() string
	GetKafkaConsumerGroup() string
	GetKafkaInitialOffset() string

	// RabbitMQ
	GetRabbitMQURL() string

	// NATS
	GetNATSURL() string

	// HTTP
	GetHTTPPublisherURL() string

	// AWS
	GetAWSRegion() string
	GetAWSAccountID() string
	GetAWSAccessKeyID() string
	GetAWSSecretAccessKey() string
	GetAWSEndpoint() string
}

// CapabilitiesProvider is implemented by transports that can report their capabilities.
type CapabilitiesProvider interface {
	Capabilities() Capabilities
}
