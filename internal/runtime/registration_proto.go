package runtime

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/drblury/kafkaflow/internal/runtime/codec"
	errspkg "github.com/drblury/kafkaflow/internal/runtime/errors"
	messagepkg "github.com/drblury/kafkaflow/internal/runtime/message"
	parserpkg "github.com/drblury/kafkaflow/internal/runtime/parser"
)

// ProtoHandler receives the body unmarshalled into T.
type ProtoHandler[T proto.Message] func(ctx context.Context, msg *messagepkg.Message, payload T) (any, error)

// ProtoHandlerRegistration is HandlerRegistration for a protobuf body. Name
// defaults to the message type.
type ProtoHandlerRegistration[T proto.Message] struct {
	Name         string
	Topic        string
	PublishTopic string
	Handler      ProtoHandler[T]
	AckPolicy    messagepkg.AckPolicy
}

// RegisterProtoHandler registers a typed protobuf handler and adds T to the
// service's proto registry so the default resolver can decode it too.
func RegisterProtoHandler[T proto.Message](svc *Service, cfg ProtoHandlerRegistration[T]) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	if cfg.Handler == nil {
		return errspkg.ErrHandlerRequired
	}

	prototype, err := NewProtoMessage[T]()
	if err != nil {
		return err
	}
	svc.resolver.Protos().Register(prototype)

	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("%T-handler", prototype)
	}

	return svc.registerHandler(HandlerRegistration{
		Name:         name,
		Topic:        cfg.Topic,
		PublishTopic: cfg.PublishTopic,
		AckPolicy:    cfg.AckPolicy,
		Decoder:      ProtoDecoder[T](),
		Handler: func(ctx context.Context, msg *messagepkg.Message, decoded any) (any, error) {
			return cfg.Handler(ctx, msg, decoded.(T))
		},
	})
}

// ProtoDecoder unmarshals the body into a fresh T: binary for the protobuf
// content types, protojson for anything else.
func ProtoDecoder[T proto.Message]() parserpkg.Decoder {
	return parserpkg.DecoderFunc(func(_ context.Context, msg *messagepkg.Message) (any, error) {
		payload, err := NewProtoMessage[T]()
		if err != nil {
			return nil, err
		}

		unmarshal := protojson.Unmarshal
		if ct, ok := msg.ContentType(); ok && codec.IsBinaryProto(ct) {
			unmarshal = proto.Unmarshal
		}
		if err := unmarshal(msg.Body(), payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %T: %w", payload, err)
		}
		return payload, nil
	})
}
