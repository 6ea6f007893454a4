// Package records adapts the record types of the supported Kafka clients to
// message.Record.
package records

import "github.com/drblury/kafkaflow/internal/runtime/message"

// Raw is a plain in-memory record. A nil HeaderList means the record carries
// no header list.
type Raw struct {
	HeaderList    []message.Header
	Payload       []byte
	Position      int64
	TimestampKind message.TimestampType
	TimestampMS   int64
}

var _ message.Record = (*Raw)(nil)

func (r *Raw) Headers() ([]message.Header, bool) { return r.HeaderList, r.HeaderList != nil }

func (r *Raw) Value() []byte { return r.Payload }

func (r *Raw) Offset() int64 { return r.Position }

func (r *Raw) Timestamp() (message.TimestampType, int64) { return r.TimestampKind, r.TimestampMS }
