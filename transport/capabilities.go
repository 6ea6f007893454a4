package transport

// Capabilities describes the features supported by a transport backend.
// Use this to introspect what operations are available at runtime.
type Capabilities struct {
	// SupportsConsume indicates the transport can deliver messages to handlers.
	// Reply-only transports leave it false.
	SupportsConsume bool

	// SupportsOffsets indicates consumed messages carry a log offset and a
	// broker timestamp, which message ids are derived from.
	SupportsOffsets bool

	// SupportsOrdering indicates the transport guarantees message ordering.
	// When true, messages within a partition/stream are delivered in order.
	SupportsOrdering bool

	// SupportsTracing indicates the transport propagates tracing headers natively.
	SupportsTracing bool

	// SupportsBatching indicates the transport can batch multiple messages.
	SupportsBatching bool

	// SupportsAck indicates the transport supports explicit message acknowledgment.
	SupportsAck bool

	// SupportsNack indicates the transport supports negative acknowledgment (redelivery).
	SupportsNack bool

	// SupportsPartitioning indicates the transport supports message partitioning.
	SupportsPartitioning bool

	// MaxMessageSize is the maximum message size in bytes (0 = unlimited/unknown).
	MaxMessageSize int64

	// Name is the human-readable name of the transport.
	Name string
}

// CanConsume reports whether handlers may be registered on the transport.
func (c Capabilities) CanConsume() bool {
	return c.SupportsConsume && c.SupportsOffsets
}

// SupportsReliableDelivery returns true if the transport supports at-least-once
// delivery semantics (ack + nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// Predefined capability sets for the built-in transports.
var (
	// ChannelCapabilities for the in-memory Go channel transport. Offsets are
	// stamped by its publisher.
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsConsume:  true,
		SupportsOffsets:  true,
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
	}

	// KafkaCapabilities for Apache Kafka transport.
	KafkaCapabilities = Capabilities{
		Name:                 "kafka",
		SupportsConsume:      true,
		SupportsOffsets:      true,
		SupportsOrdering:     true,
		SupportsTracing:      true,
		SupportsBatching:     true,
		SupportsAck:          true,
		SupportsNack:         true,
		SupportsPartitioning: true,
		MaxMessageSize:       1048576, // Default 1MB
	}

	// RabbitMQCapabilities for the RabbitMQ/AMQP reply sink.
	RabbitMQCapabilities = Capabilities{
		Name:             "rabbitmq",
		SupportsOrdering: true,
		SupportsTracing:  true,
		SupportsAck:      true,
		SupportsNack:     true,
	}

	// NATSCapabilities for the NATS Core reply sink.
	NATSCapabilities = Capabilities{
		Name:            "nats",
		SupportsTracing: true,
		MaxMessageSize:  1048576, // Default 1MB
	}

	// AWSCapabilities for the SNS reply sink.
	AWSCapabilities = Capabilities{
		Name:             "aws",
		SupportsTracing:  true,
		SupportsBatching: true,
		MaxMessageSize:   262144, // 256KB
	}

	// SQSCapabilities for the SQS reply sink.
	SQSCapabilities = Capabilities{
		Name:             "sqs",
		SupportsOrdering: true,
		SupportsTracing:  true,
		SupportsBatching: true,
		MaxMessageSize:   262144, // 256KB
	}

	// HTTPCapabilities for the HTTP webhook reply sink.
	HTTPCapabilities = Capabilities{
		Name:            "http",
		SupportsTracing: true,
	}
)

// GetCapabilities returns the capabilities for a transport by name.
// Uses the registry to look up capabilities registered by each transport package.
// Returns a zero Capabilities struct if the transport is unknown.
func GetCapabilities(transportName string) Capabilities {
	return DefaultRegistry.GetCapabilities(transportName)
}
