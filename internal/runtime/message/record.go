package message

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrMalformedHeader reports a binary header value that is not valid UTF-8 text.
var ErrMalformedHeader = errors.New("kafkaflow: header value is not valid utf-8")

// TimestampType mirrors the broker's timestamp validity flag.
type TimestampType int

const (
	TimestampNotAvailable TimestampType = iota
	TimestampCreateTime
	TimestampLogAppendTime
)

// Valid reports whether the broker supplied a timestamp.
func (t TimestampType) Valid() bool {
	return t != TimestampNotAvailable
}

func (t TimestampType) String() string {
	switch t {
	case TimestampCreateTime:
		return "create_time"
	case TimestampLogAppendTime:
		return "log_append_time"
	default:
		return "not_available"
	}
}

// Header is one key/value pair as carried by a broker record. Textual values
// were already decoded by the client; all others are raw bytes.
type Header struct {
	Key     string
	Value   []byte
	Textual bool
}

// TextHeader builds a header whose value is already text.
func TextHeader(key, value string) Header {
	return Header{Key: key, Value: []byte(value), Textual: true}
}

// BytesHeader builds a header carrying raw bytes.
func BytesHeader(key string, value []byte) Header {
	return Header{Key: key, Value: value}
}

// Text returns the header value as a string. Byte values must be valid UTF-8.
func (h Header) Text() (string, error) {
	if h.Textual {
		return string(h.Value), nil
	}
	if !utf8.Valid(h.Value) {
		return "", fmt.Errorf("header %q: %w", h.Key, ErrMalformedHeader)
	}
	return string(h.Value), nil
}

// Record is the capability set every broker record adapter exposes.
type Record interface {
	// Headers returns the header pairs in broker order. ok is false when the
	// record carries no header list at all.
	Headers() (headers []Header, ok bool)
	Value() []byte
	Offset() int64
	// Timestamp returns the broker-assigned timestamp in milliseconds.
	Timestamp() (TimestampType, int64)
}
