// Package codec decodes inbound payloads by content type and encodes handler
// results for publishing.
package codec

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/drblury/kafkaflow/internal/runtime/headers"
	"github.com/drblury/kafkaflow/internal/runtime/message"
	"github.com/drblury/kafkaflow/internal/runtime/parser"
)

// Media types with built-in handling.
const (
	ContentTypeText      = "text/plain"
	ContentTypeJSON      = "application/json"
	ContentTypeProto     = "application/protobuf"
	ContentTypeXProto    = "application/x-protobuf"
	ContentTypeProtoJSON = "application/protobuf+json"
)

var (
	ErrSchemaRequired = errors.New("kafkaflow: protobuf payload without " + headers.KeyEventSchema + " header")
	ErrUnknownSchema  = errors.New("kafkaflow: unknown protobuf schema")
)

// Resolver is the default decoder. It picks a decoding strategy from the
// message content type:
//
//   - registered custom decoders first, by media type
//   - protobuf media types, using the event_message_schema header
//   - anything mentioning "text" becomes a string
//   - anything mentioning "json" becomes a generic JSON value
//   - no content type: JSON when the body parses, raw bytes otherwise
//   - any other content type: raw bytes
type Resolver struct {
	protos *Registry

	mu     sync.RWMutex
	custom map[string]parser.Decoder
}

var _ parser.Decoder = (*Resolver)(nil)

// NewResolver builds a Resolver. A nil registry disables protobuf decoding.
func NewResolver(protos *Registry) *Resolver {
	if protos == nil {
		protos = NewRegistry()
	}
	return &Resolver{protos: protos, custom: make(map[string]parser.Decoder)}
}

// Protos exposes the registry used for protobuf payloads.
func (r *Resolver) Protos() *Registry { return r.protos }

// Register installs d for mediaType, replacing the built-in strategy.
func (r *Resolver) Register(mediaType string, d parser.Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custom[normalizeMediaType(mediaType)] = d
}

func (r *Resolver) Decode(ctx context.Context, msg *message.Message) (any, error) {
	contentType, ok := msg.ContentType()
	if !ok {
		var v any
		if err := Unmarshal(msg.Body(), &v); err != nil {
			return msg.Body(), nil
		}
		return v, nil
	}

	mediaType := normalizeMediaType(contentType)

	r.mu.RLock()
	custom, found := r.custom[mediaType]
	r.mu.RUnlock()
	if found {
		return custom.Decode(ctx, msg)
	}

	switch {
	case mediaType == ContentTypeProto || mediaType == ContentTypeXProto:
		return r.decodeProto(msg, proto.Unmarshal)
	case mediaType == ContentTypeProtoJSON:
		return r.decodeProto(msg, protojson.Unmarshal)
	case strings.Contains(mediaType, "text"):
		return string(msg.Body()), nil
	case strings.Contains(mediaType, "json"):
		var v any
		if err := Unmarshal(msg.Body(), &v); err != nil {
			return nil, fmt.Errorf("decode json body of %s: %w", msg.MessageID(), err)
		}
		return v, nil
	default:
		return msg.Body(), nil
	}
}

func (r *Resolver) decodeProto(msg *message.Message, unmarshal func([]byte, proto.Message) error) (any, error) {
	schema, ok := msg.Header(headers.KeyEventSchema)
	if !ok || schema == "" {
		return nil, ErrSchemaRequired
	}
	typed, ok := r.protos.New(schema)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, schema)
	}
	if err := unmarshal(msg.Body(), typed); err != nil {
		return nil, fmt.Errorf("decode %s body of %s: %w", schema, msg.MessageID(), err)
	}
	return typed, nil
}

// Encode renders a handler result as a payload and the content type to
// publish it with. Byte slices pass through without a content type.
func Encode(v any) (payload []byte, contentType string, err error) {
	switch tv := v.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return tv, "", nil
	case string:
		return []byte(tv), ContentTypeText, nil
	case proto.Message:
		payload, err = protojson.Marshal(tv)
		if err != nil {
			return nil, "", fmt.Errorf("encode %T: %w", tv, err)
		}
		return payload, ContentTypeJSON, nil
	default:
		payload, err = Marshal(tv)
		if err != nil {
			return nil, "", fmt.Errorf("encode %T: %w", tv, err)
		}
		return payload, ContentTypeJSON, nil
	}
}

// IsBinaryProto reports whether contentType names the protobuf wire format.
func IsBinaryProto(contentType string) bool {
	mediaType := normalizeMediaType(contentType)
	return mediaType == ContentTypeProto || mediaType == ContentTypeXProto
}

func normalizeMediaType(contentType string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
