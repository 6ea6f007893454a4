package runtime

import (
	"context"
	"fmt"

	errspkg "github.com/drblury/kafkaflow/internal/runtime/errors"
	messagepkg "github.com/drblury/kafkaflow/internal/runtime/message"
	parserpkg "github.com/drblury/kafkaflow/internal/runtime/parser"
)

// Handler processes one canonical message. decoded is the decoder's output.
// A non-nil result is published as the reply.
type Handler func(ctx context.Context, msg *messagepkg.Message, decoded any) (any, error)

// HandlerRegistration wires a per-record handler onto a topic of the
// consuming transport.
type HandlerRegistration struct {
	Name  string
	Topic string
	// PublishTopic receives the reply when the message has no reply_to header.
	PublishTopic string
	Handler      Handler
	AckPolicy    messagepkg.AckPolicy
	// Decoder overrides the service resolver for this handler.
	Decoder parserpkg.Decoder
}

// RegisterHandler attaches the provided handler to the service router.
func RegisterHandler(svc *Service, cfg HandlerRegistration) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	return svc.registerHandler(cfg)
}

func (s *Service) registerHandler(cfg HandlerRegistration) error {
	if cfg.Handler == nil {
		return errspkg.ErrHandlerRequired
	}
	if cfg.Topic == "" {
		return errspkg.ErrTopicRequired
	}
	if cfg.Name == "" {
		return errspkg.ErrHandlerNameRequired
	}

	caps := s.transports.Capabilities
	if !caps.CanConsume() || s.transports.Consume.Subscriber == nil {
		return fmt.Errorf("%w: %s", errspkg.ErrOffsetsUnsupported, caps.Name)
	}

	if err := s.addHandlerInfo(HandlerInfo{
		Name:         cfg.Name,
		Topic:        cfg.Topic,
		PublishTopic: cfg.PublishTopic,
		Kind:         HandlerKindRecord,
		AckPolicy:    cfg.AckPolicy.String(),
	}); err != nil {
		return err
	}

	s.router.AddNoPublisherHandler(
		cfg.Name,
		cfg.Topic,
		s.transports.Consume.Subscriber,
		s.recordHandler(cfg, s.parserFor(cfg.Decoder)),
	)

	s.handlersMu.Lock()
	s.recordHandlers++
	s.handlersMu.Unlock()
	return nil
}
