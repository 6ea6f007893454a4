// Package parser normalizes broker records into canonical messages and runs
// the decode step over them.
package parser

import (
	"context"
	"fmt"

	errspkg "github.com/drblury/kafkaflow/internal/runtime/errors"
	"github.com/drblury/kafkaflow/internal/runtime/headers"
	idspkg "github.com/drblury/kafkaflow/internal/runtime/ids"
	"github.com/drblury/kafkaflow/internal/runtime/message"
)

// Decoder turns a canonical message into an application value.
type Decoder interface {
	Decode(ctx context.Context, msg *message.Message) (any, error)
}

// DecoderFunc adapts a plain function to Decoder.
type DecoderFunc func(ctx context.Context, msg *message.Message) (any, error)

func (f DecoderFunc) Decode(ctx context.Context, msg *message.Message) (any, error) {
	return f(ctx, msg)
}

// RawDecoder returns the undecoded body.
var RawDecoder Decoder = DecoderFunc(func(_ context.Context, msg *message.Message) (any, error) {
	return msg.Body(), nil
})

// Parser builds canonical messages. It holds no per-message state and may be
// shared between goroutines.
type Parser struct {
	decoder Decoder
	newID   idspkg.Generator
}

// Option configures a Parser.
type Option func(*Parser)

// WithDecoder sets the decoder used by DecodeMessage. Without it the raw body
// is returned.
func WithDecoder(d Decoder) Option {
	return func(p *Parser) {
		if d != nil {
			p.decoder = d
		}
	}
}

// WithIDGenerator overrides the correlation id generator used when a record
// carries no correlation_id header.
func WithIDGenerator(gen idspkg.Generator) Option {
	return func(p *Parser) {
		if gen != nil {
			p.newID = gen
		}
	}
}

// NewParser returns a Parser with the default ULID generator and raw decoder.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		decoder: RawDecoder,
		newID:   idspkg.Default,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseMessage converts one record into a Message. Headers are folded in
// order so a repeated key keeps its last value.
func (p *Parser) ParseMessage(ctx context.Context, rec message.Record) (*message.Message, error) {
	hdrs, err := decodeHeaders(rec)
	if err != nil {
		return nil, err
	}

	_, ts := rec.Timestamp()
	consumer, manual := message.ResolveHandler(ctx)
	contentType, hasContent := hdrs.Get(headers.KeyContentType)

	return message.New(message.Fields[message.Record, []byte]{
		Body:          rec.Value(),
		Headers:       hdrs,
		ReplyTo:       hdrs[headers.KeyReplyTo],
		ContentType:   contentType,
		HasContent:    hasContent,
		MessageID:     fmt.Sprintf("%d-%d", rec.Offset(), ts),
		CorrelationID: p.correlationID(hdrs),
		Raw:           rec,
		Consumer:      consumer,
		Manual:        manual,
	}), nil
}

// ParseMessageBatch converts a non-empty group of records into a BatchMessage.
// Metadata comes from the first record; the body keeps every payload in order.
// An empty group is a programming error and panics.
func (p *Parser) ParseMessageBatch(ctx context.Context, recs []message.Record) (*message.BatchMessage, error) {
	if len(recs) == 0 {
		panic(errspkg.ErrEmptyBatch)
	}

	first, last := recs[0], recs[len(recs)-1]
	hdrs, err := decodeHeaders(first)
	if err != nil {
		return nil, err
	}

	body := make([][]byte, len(recs))
	for i, rec := range recs {
		body[i] = rec.Value()
	}

	_, firstTS := first.Timestamp()
	consumer, manual := message.ResolveHandler(ctx)
	contentType, hasContent := hdrs.Get(headers.KeyContentType)

	raw := make([]message.Record, len(recs))
	copy(raw, recs)

	return message.New(message.Fields[[]message.Record, [][]byte]{
		Body:          body,
		Headers:       hdrs,
		ReplyTo:       hdrs[headers.KeyReplyTo],
		ContentType:   contentType,
		HasContent:    hasContent,
		MessageID:     fmt.Sprintf("%d-%d-%d", first.Offset(), last.Offset(), firstTS),
		CorrelationID: p.correlationID(hdrs),
		Raw:           raw,
		Consumer:      consumer,
		Manual:        manual,
	}), nil
}

// DecodeMessage runs the configured decoder. Nothing is cached; every call
// decodes again.
func (p *Parser) DecodeMessage(ctx context.Context, msg *message.Message) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.decoder.Decode(ctx, msg)
}

// DecodeMessageBatch parses and decodes each raw record of the batch in order.
// The first failure aborts the batch and no partial results are returned.
func (p *Parser) DecodeMessageBatch(ctx context.Context, msg *message.BatchMessage) ([]any, error) {
	recs := msg.RawMessage()
	out := make([]any, 0, len(recs))
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		single, err := p.ParseMessage(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("batch record %d: %w", i, err)
		}
		decoded, err := p.DecodeMessage(ctx, single)
		if err != nil {
			return nil, fmt.Errorf("batch record %d: %w", i, err)
		}
		out = append(out, decoded)
	}
	return out, nil
}

func (p *Parser) correlationID(hdrs headers.Headers) string {
	if id, ok := hdrs.Get(headers.KeyCorrelationID); ok {
		return id
	}
	return p.newID()
}

func decodeHeaders(rec message.Record) (headers.Headers, error) {
	list, ok := rec.Headers()
	if !ok {
		return headers.Headers{}, nil
	}

	hdrs := make(headers.Headers, len(list))
	for _, h := range list {
		v, err := h.Text()
		if err != nil {
			return nil, err
		}
		hdrs[h.Key] = v
	}
	return hdrs, nil
}
