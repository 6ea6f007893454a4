package records

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/drblury/kafkaflow/internal/runtime/message"
)

// unavailableTimestamp is what librdkafka reports when the broker sent none.
const unavailableTimestamp int64 = -1

// Confluent wraps a confluent-kafka-go message.
type Confluent struct {
	msg *kafka.Message
}

var _ message.Record = (*Confluent)(nil)

// FromConfluent wraps msg without copying it.
func FromConfluent(msg *kafka.Message) *Confluent {
	return &Confluent{msg: msg}
}

// Source returns the wrapped client message.
func (c *Confluent) Source() *kafka.Message { return c.msg }

func (c *Confluent) Headers() ([]message.Header, bool) {
	if c.msg.Headers == nil {
		return nil, false
	}
	out := make([]message.Header, len(c.msg.Headers))
	for i, h := range c.msg.Headers {
		out[i] = message.BytesHeader(h.Key, h.Value)
	}
	return out, true
}

func (c *Confluent) Value() []byte { return c.msg.Value }

func (c *Confluent) Offset() int64 { return int64(c.msg.TopicPartition.Offset) }

func (c *Confluent) Timestamp() (message.TimestampType, int64) {
	switch c.msg.TimestampType {
	case kafka.TimestampCreateTime:
		return message.TimestampCreateTime, c.msg.Timestamp.UnixMilli()
	case kafka.TimestampLogAppendTime:
		return message.TimestampLogAppendTime, c.msg.Timestamp.UnixMilli()
	default:
		return message.TimestampNotAvailable, unavailableTimestamp
	}
}

// ConfluentBatch wraps each message in order.
func ConfluentBatch(msgs []*kafka.Message) []message.Record {
	out := make([]message.Record, len(msgs))
	for i, m := range msgs {
		out[i] = FromConfluent(m)
	}
	return out
}
