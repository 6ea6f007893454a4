package runtime

import (
	"context"
	"fmt"

	"github.com/drblury/kafkaflow/internal/runtime/codec"
	errspkg "github.com/drblury/kafkaflow/internal/runtime/errors"
	messagepkg "github.com/drblury/kafkaflow/internal/runtime/message"
	parserpkg "github.com/drblury/kafkaflow/internal/runtime/parser"
)

// JSONHandler receives the body unmarshalled into T.
type JSONHandler[T any] func(ctx context.Context, msg *messagepkg.Message, payload T) (any, error)

// JSONHandlerRegistration is HandlerRegistration for a JSON body of type T.
type JSONHandlerRegistration[T any] struct {
	Name         string
	Topic        string
	PublishTopic string
	Handler      JSONHandler[T]
	AckPolicy    messagepkg.AckPolicy
}

// RegisterJSONHandler registers a handler whose body is decoded into T
// regardless of the declared content type.
func RegisterJSONHandler[T any](svc *Service, cfg JSONHandlerRegistration[T]) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	if cfg.Handler == nil {
		return errspkg.ErrHandlerRequired
	}

	return svc.registerHandler(HandlerRegistration{
		Name:         cfg.Name,
		Topic:        cfg.Topic,
		PublishTopic: cfg.PublishTopic,
		AckPolicy:    cfg.AckPolicy,
		Decoder:      JSONDecoder[T](),
		Handler: func(ctx context.Context, msg *messagepkg.Message, decoded any) (any, error) {
			return cfg.Handler(ctx, msg, decoded.(T))
		},
	})
}

// JSONDecoder unmarshals the body into a fresh T.
func JSONDecoder[T any]() parserpkg.Decoder {
	return parserpkg.DecoderFunc(func(_ context.Context, msg *messagepkg.Message) (any, error) {
		var payload T
		if err := codec.Unmarshal(msg.Body(), &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %T: %w", payload, err)
		}
		return payload, nil
	})
}
