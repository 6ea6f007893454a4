// Package headers holds the textual header map shared by inbound messages and
// the well-known keys the pipeline reads and writes.
package headers

// Well-known header keys. These are part of the wire contract with producers.
const (
	// KeyCorrelationID tracks related messages across services.
	KeyCorrelationID = "correlation_id"

	// KeyReplyTo names the topic a response should be published to.
	KeyReplyTo = "reply_to"

	// KeyContentType selects the codec used to decode the payload.
	KeyContentType = "content-type"

	// KeyEventSchema identifies the proto message type of a protobuf payload.
	KeyEventSchema = "event_message_schema"

	// KeyOffset and KeyTimestamp carry log position for transports that do not
	// expose it natively (the in-memory channel transport stamps them).
	KeyOffset    = "kafkaflow_offset"
	KeyTimestamp = "kafkaflow_timestamp"
)

// Headers maps header keys to their decoded text values.
type Headers map[string]string

func (h Headers) cloneWithExtra(extra int) Headers {
	size := len(h) + extra
	if size <= 0 {
		return Headers{}
	}

	cloned := make(Headers, size)
	for k, v := range h {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy. A nil receiver yields an empty, non-nil map.
func (h Headers) Clone() Headers {
	return h.cloneWithExtra(0)
}

// Get returns the value for key and whether it was present.
func (h Headers) Get(key string) (string, bool) {
	v, ok := h[key]
	return v, ok
}

// With returns a copy containing the provided key/value pair.
func (h Headers) With(key, value string) Headers {
	cloned := h.cloneWithExtra(1)
	cloned[key] = value
	return cloned
}

// WithAll returns a copy containing the supplied entries; entries win on conflict.
func (h Headers) WithAll(entries Headers) Headers {
	cloned := h.cloneWithExtra(len(entries))
	for k, v := range entries {
		cloned[k] = v
	}
	return cloned
}

// New constructs Headers from alternating key/value pairs. A trailing key
// without a value is ignored.
func New(pairs ...string) Headers {
	h := make(Headers, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		h[pairs[i]] = pairs[i+1]
	}
	return h
}
