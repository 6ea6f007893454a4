// Package sqs provides an AWS SQS reply sink for kafkaflow.
package sqs

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sqs"
	"github.com/ThreeDotsLabs/watermill/message"
	amazonsqs "github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/drblury/kafkaflow/transport"
	"github.com/drblury/kafkaflow/transport/aws"
)

// TransportName is the name used to register this transport.
const TransportName = "sqs"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg sqs.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return sqs.NewPublisher(cfg, logger)
}

func init() {
	Register()
}

// Register registers the SQS transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.SQSCapabilities)
}

// Build creates a publish-only SQS transport. Reply topics name queues, which
// are created on first publish.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	awsCfg, err := aws.LoadConfig(ctx, cfg, logger)
	if err != nil {
		return transport.Transport{}, err
	}
	if _, err := aws.EndpointURL(cfg); err != nil {
		return transport.Transport{}, err
	}

	publisherConfig := sqs.PublisherConfig{
		AWSConfig: *awsCfg,
		Marshaler: sqs.DefaultMarshalerUnmarshaler{},
	}
	if endpoint := aws.EndpointOverride(cfg); endpoint != nil {
		publisherConfig.OptFns = []func(*amazonsqs.Options){
			amazonsqs.WithEndpointResolverV2(sqs.OverrideEndpointResolver{Endpoint: *endpoint}),
		}
	}

	publisher, err := PublisherFactory(publisherConfig, logger)
	if err != nil {
		return transport.Transport{}, err
	}
	return transport.Transport{Publisher: publisher}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.SQSCapabilities
}
