// Package message defines the canonical, decode-agnostic representation of a
// consumed record or batch of records, plus the broker-facing capabilities it
// is built from.
package message

import (
	"context"
	"sync"

	"github.com/drblury/kafkaflow/internal/runtime/headers"
)

// Payload constrains the body of a StreamMessage: one record's bytes or the
// ordered payloads of a batch.
type Payload interface {
	~[]byte | ~[][]byte
}

// Fields carries everything needed to build a StreamMessage.
type Fields[R any, B Payload] struct {
	Body          B
	Headers       headers.Headers
	ReplyTo       string
	ContentType   string
	HasContent    bool
	MessageID     string
	CorrelationID string
	Raw           R
	Consumer      Consumer
	Manual        bool
}

// StreamMessage is a read-only view over a raw record (R = Record) or an
// ordered group of records (R = []Record). The broker client keeps ownership
// of the raw value.
type StreamMessage[R any, B Payload] struct {
	body          B
	headers       headers.Headers
	replyTo       string
	contentType   string
	hasContent    bool
	messageID     string
	correlationID string
	raw           R
	consumer      Consumer
	manual        bool

	settleMu  sync.Mutex
	settled   bool
	settleErr error
}

// Message is the canonical form of a single record.
type Message = StreamMessage[Record, []byte]

// BatchMessage is the canonical form of a batch of records.
type BatchMessage = StreamMessage[[]Record, [][]byte]

// New builds a StreamMessage. The headers map is copied.
func New[R any, B Payload](f Fields[R, B]) *StreamMessage[R, B] {
	consumer := f.Consumer
	if consumer == nil {
		consumer = FakeConsumer
	}
	return &StreamMessage[R, B]{
		body:          f.Body,
		headers:       f.Headers.Clone(),
		replyTo:       f.ReplyTo,
		contentType:   f.ContentType,
		hasContent:    f.HasContent,
		messageID:     f.MessageID,
		correlationID: f.CorrelationID,
		raw:           f.Raw,
		consumer:      consumer,
		manual:        f.Manual,
	}
}

// Body returns the undecoded payload.
func (m *StreamMessage[R, B]) Body() B { return m.body }

// Headers returns a copy of the decoded headers.
func (m *StreamMessage[R, B]) Headers() headers.Headers { return m.headers.Clone() }

// Header returns a single header value.
func (m *StreamMessage[R, B]) Header(key string) (string, bool) { return m.headers.Get(key) }

// ReplyTo returns the reply topic, or "" when none was requested.
func (m *StreamMessage[R, B]) ReplyTo() string { return m.replyTo }

// ContentType returns the declared content type. ok is false when the header
// was absent, which is distinct from an empty declaration.
func (m *StreamMessage[R, B]) ContentType() (contentType string, ok bool) {
	return m.contentType, m.hasContent
}

// MessageID identifies the log position(s) the message was built from.
func (m *StreamMessage[R, B]) MessageID() string { return m.messageID }

func (m *StreamMessage[R, B]) CorrelationID() string { return m.correlationID }

// RawMessage returns the borrowed broker record(s).
func (m *StreamMessage[R, B]) RawMessage() R { return m.raw }

func (m *StreamMessage[R, B]) Consumer() Consumer { return m.consumer }

// IsManual reports whether acknowledgment is driven by the handler.
func (m *StreamMessage[R, B]) IsManual() bool { return m.manual }

// Ack commits through the consumer. It is a no-op for automatically
// acknowledged messages and after the first Ack or Nack.
func (m *StreamMessage[R, B]) Ack(ctx context.Context) error {
	if !m.manual {
		return nil
	}
	return m.settle(func() error { return m.consumer.Commit(ctx) })
}

// Nack rewinds the consumer to the first record so the message is redelivered.
// Same once-only rules as Ack.
func (m *StreamMessage[R, B]) Nack(ctx context.Context) error {
	if !m.manual {
		return nil
	}
	first, ok := m.firstRecord()
	if !ok {
		return m.settle(func() error { return nil })
	}
	return m.settle(func() error { return m.consumer.Seek(ctx, first) })
}

// Settled reports whether Ack or Nack already ran.
func (m *StreamMessage[R, B]) Settled() bool {
	m.settleMu.Lock()
	defer m.settleMu.Unlock()
	return m.settled
}

func (m *StreamMessage[R, B]) settle(fn func() error) error {
	m.settleMu.Lock()
	defer m.settleMu.Unlock()
	if m.settled {
		return m.settleErr
	}
	m.settleErr = fn()
	m.settled = true
	return m.settleErr
}

func (m *StreamMessage[R, B]) firstRecord() (Record, bool) {
	switch raw := any(m.raw).(type) {
	case Record:
		return raw, raw != nil
	case []Record:
		if len(raw) == 0 {
			return nil, false
		}
		return raw[0], true
	default:
		return nil, false
	}
}
