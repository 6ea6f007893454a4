package records

import (
	"github.com/IBM/sarama"

	"github.com/drblury/kafkaflow/internal/runtime/message"
)

// Sarama wraps a sarama consumer message.
type Sarama struct {
	msg *sarama.ConsumerMessage
}

var _ message.Record = (*Sarama)(nil)

// FromSarama wraps msg without copying it.
func FromSarama(msg *sarama.ConsumerMessage) *Sarama {
	return &Sarama{msg: msg}
}

func (s *Sarama) Source() *sarama.ConsumerMessage { return s.msg }

// Headers always reports a header list; sarama does not distinguish an absent
// list from an empty one.
func (s *Sarama) Headers() ([]message.Header, bool) {
	out := make([]message.Header, 0, len(s.msg.Headers))
	for _, h := range s.msg.Headers {
		if h == nil {
			continue
		}
		out = append(out, message.BytesHeader(string(h.Key), h.Value))
	}
	return out, true
}

func (s *Sarama) Value() []byte { return s.msg.Value }

func (s *Sarama) Offset() int64 { return s.msg.Offset }

func (s *Sarama) Timestamp() (message.TimestampType, int64) {
	if s.msg.Timestamp.IsZero() {
		return message.TimestampNotAvailable, unavailableTimestamp
	}
	return message.TimestampCreateTime, s.msg.Timestamp.UnixMilli()
}
