package records

import (
	"sort"
	"strconv"

	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	wmmessage "github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/kafkaflow/internal/runtime/headers"
	"github.com/drblury/kafkaflow/internal/runtime/message"
)

// Watermill exposes a watermill message as a record. Metadata becomes the
// header list, ordered by key. watermill-kafka copies header bytes into
// metadata unchecked, so values are validated like any other byte header. The log position is read from the
// watermill-kafka context first and from the kafkaflow_offset and
// kafkaflow_timestamp metadata otherwise.
type Watermill struct {
	msg    *wmmessage.Message
	offset int64
	tsType message.TimestampType
	ts     int64
}

var _ message.Record = (*Watermill)(nil)

func FromWatermill(msg *wmmessage.Message) *Watermill {
	rec := &Watermill{
		msg:    msg,
		offset: -1,
		tsType: message.TimestampNotAvailable,
		ts:     unavailableTimestamp,
	}

	ctx := msg.Context()
	if offset, ok := kafka.MessagePartitionOffsetFromCtx(ctx); ok {
		rec.offset = offset
	} else if v, err := strconv.ParseInt(msg.Metadata.Get(headers.KeyOffset), 10, 64); err == nil {
		rec.offset = v
	}

	if ts, ok := kafka.MessageTimestampFromCtx(ctx); ok && !ts.IsZero() {
		rec.tsType, rec.ts = message.TimestampCreateTime, ts.UnixMilli()
	} else if v, err := strconv.ParseInt(msg.Metadata.Get(headers.KeyTimestamp), 10, 64); err == nil {
		rec.tsType, rec.ts = message.TimestampCreateTime, v
	}
	return rec
}

func (w *Watermill) Source() *wmmessage.Message { return w.msg }

func (w *Watermill) Headers() ([]message.Header, bool) {
	keys := make([]string, 0, len(w.msg.Metadata))
	for k := range w.msg.Metadata {
		if k == headers.KeyOffset || k == headers.KeyTimestamp {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]message.Header, len(keys))
	for i, k := range keys {
		out[i] = message.BytesHeader(k, []byte(w.msg.Metadata[k]))
	}
	return out, true
}

func (w *Watermill) Value() []byte { return w.msg.Payload }

func (w *Watermill) Offset() int64 { return w.offset }

func (w *Watermill) Timestamp() (message.TimestampType, int64) { return w.tsType, w.ts }
