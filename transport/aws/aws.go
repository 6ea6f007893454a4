// Package aws provides an AWS SNS reply sink for kafkaflow, along with the
// SDK configuration shared with the sqs transport.
package aws

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sns"
	"github.com/ThreeDotsLabs/watermill/message"
	amazonsns "github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/drblury/kafkaflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "aws"

// TopicResolverFactory allows overriding the topic resolver creation for testing.
var TopicResolverFactory = sns.NewGenerateArnTopicResolver

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg sns.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return sns.NewPublisher(cfg, logger)
}

func init() {
	Register()
}

// Register registers the SNS transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.AWSCapabilities)
}

// Build creates a publish-only SNS transport. Reply topics name SNS topics
// in the configured account and region.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	awsCfg, err := LoadConfig(ctx, cfg, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	accountID, region := ResolveAccountAndRegion(cfg, logger, awsCfg.Region)
	topicResolver, err := TopicResolverFactory(accountID, region)
	if err != nil {
		logger.Error("Failed to create SNS topic resolver", err, watermill.LogFields{
			"accountID": accountID,
			"region":    region,
		})
		return transport.Transport{}, err
	}

	if _, err := EndpointURL(cfg); err != nil {
		return transport.Transport{}, err
	}

	publisherConfig := sns.PublisherConfig{
		TopicResolver: topicResolver,
		AWSConfig:     *awsCfg,
		Marshaler:     sns.DefaultMarshalerUnmarshaler{},
	}
	if endpoint := EndpointOverride(cfg); endpoint != nil {
		publisherConfig.OptFns = []func(*amazonsns.Options){
			amazonsns.WithEndpointResolverV2(sns.OverrideEndpointResolver{Endpoint: *endpoint}),
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
	return transport.AWSCapabilities
}
