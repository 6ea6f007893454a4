// Package response holds the outbound envelope a handler result is wrapped in
// before it is published.
package response

import (
	"fmt"

	"github.com/drblury/kafkaflow/internal/runtime/headers"
)

// Headers are the outbound header values. They are stringified on publish.
type Headers map[string]any

// Response pairs a handler result with the headers to publish it with.
type Response struct {
	Body    any
	Headers Headers

	// CorrelationID overrides the id propagated from the inbound message.
	CorrelationID string
}

// New builds a Response. A nil headers map is replaced by an empty one.
func New(body any, hdrs Headers) *Response {
	if hdrs == nil {
		hdrs = Headers{}
	}
	return &Response{Body: body, Headers: hdrs}
}

// EnsureResponse returns v unchanged when it already is a *Response and wraps
// it with empty headers otherwise.
func EnsureResponse(v any) *Response {
	if r, ok := v.(*Response); ok && r != nil {
		return r
	}
	return New(v, nil)
}

type headerOptions struct {
	override bool
}

// HeaderOption tunes AddHeaders.
type HeaderOption func(*headerOptions)

// WithoutOverride keeps existing keys and only adds the new ones.
func WithoutOverride() HeaderOption {
	return func(o *headerOptions) { o.override = false }
}

// AddHeaders merges update into the response headers in place. Existing keys
// are replaced unless WithoutOverride is passed.
func (r *Response) AddHeaders(update Headers, opts ...HeaderOption) {
	o := headerOptions{override: true}
	for _, opt := range opts {
		opt(&o)
	}

	if r.Headers == nil {
		r.Headers = make(Headers, len(update))
	}
	for k, v := range update {
		if _, exists := r.Headers[k]; exists && !o.override {
			continue
		}
		r.Headers[k] = v
	}
}

// TextHeaders renders the header values as strings. Nil values are dropped.
func (r *Response) TextHeaders() headers.Headers {
	out := make(headers.Headers, len(r.Headers))
	for k, v := range r.Headers {
		switch tv := v.(type) {
		case nil:
			continue
		case string:
			out[k] = tv
		case []byte:
			out[k] = string(tv)
		default:
			out[k] = fmt.Sprint(tv)
		}
	}
	return out
}
