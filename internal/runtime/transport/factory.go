// Package transport resolves the consuming and reply transports a Service
// runs on.
package transport

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/kafkaflow/internal/runtime/config"
	errspkg "github.com/drblury/kafkaflow/internal/runtime/errors"
	newtransport "github.com/drblury/kafkaflow/transport"

	// Import all transport packages to register them.
	_ "github.com/drblury/kafkaflow/transport/transports"
)

// Set is the outcome of a factory build: the consuming transport, the
// publisher replies go to, and what the consuming transport can do.
type Set struct {
	Consume      newtransport.Transport
	Reply        message.Publisher
	Capabilities newtransport.Capabilities

	reply *newtransport.Transport
}

// Close closes the reply transport, when separate, and the consuming one.
func (s Set) Close() error {
	var errs []error
	if s.reply != nil {
		errs = append(errs, s.reply.Close())
	}
	errs = append(errs, s.Consume.Close())
	return errors.Join(errs...)
}

// Factory abstracts how kafkaflow initialises message transports.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Set, error)
}

// DefaultFactory returns the factory backed by the default transport registry.
func DefaultFactory() Factory {
	return NewFactory(newtransport.DefaultRegistry)
}

// NewFactory returns a factory that resolves transports from reg.
func NewFactory(reg *newtransport.Registry) Factory {
	return registryFactory{registry: reg}
}

type registryFactory struct {
	registry *newtransport.Registry
}

func (f registryFactory) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Set, error) {
	if conf == nil {
		return Set{}, errspkg.ErrConfigRequired
	}

	consumeName := conf.GetTransport()
	consume, err := f.registry.BuildNamed(ctx, consumeName, conf, logger)
	if err != nil {
		return Set{}, err
	}

	set := Set{
		Consume:      consume,
		Reply:        consume.Publisher,
		Capabilities: f.registry.GetCapabilities(consumeName),
	}

	replyName := conf.ReplyTransportName()
	if replyName == consumeName {
		return set, nil
	}

	reply, err := f.registry.BuildNamed(ctx, replyName, conf, logger)
	if err != nil {
		_ = consume.Close()
		return Set{}, err
	}
	set.Reply = reply.Publisher
	set.reply = &reply
	return set, nil
}
