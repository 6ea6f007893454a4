// Package nats provides a NATS Core reply sink for kafkaflow.
package nats

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/drblury/kafkaflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats"

const (
	connectTimeout = 5 * time.Second
	reconnectWait  = time.Second
)

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return nats.NewPublisher(cfg, logger)
}

func init() {
	Register()
}

// Register registers the NATS transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.NATSCapabilities)
}

// Build creates a publish-only NATS transport. Responses are sent to the
// subject named by the reply topic.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	publisher, err := PublisherFactory(
		nats.PublisherConfig{
			URL:         cfg.GetNATSURL(),
			NatsOptions: ConnectOptions(cfg),
			Marshaler:   &nats.NATSMarshaler{},
			JetStream:   nats.JetStreamConfig{Disabled: true},
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	return transport.Transport{Publisher: publisher}, nil
}

// ConnectOptions returns the nats.go options used for the connection.
func ConnectOptions(cfg transport.Config) []nc.Option {
	name := cfg.GetKafkaClientID()
	if name == "" {
		name = "kafkaflow"
	}
	return []nc.Option{
		nc.Name(name),
		nc.Timeout(connectTimeout),
		nc.RetryOnFailedConnect(true),
		nc.ReconnectWait(reconnectWait),
		nc.MaxReconnects(-1),
	}
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.NATSCapabilities
}
