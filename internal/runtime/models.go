package runtime

import (
	"errors"
	"fmt"
)

// UnprocessableMessageError marks a message whose headers or body cannot be
// decoded. Retrying cannot help, so it is routed to the poison queue.
type UnprocessableMessageError struct {
	MessageID string
	Err       error
}

func (e *UnprocessableMessageError) Error() string {
	return fmt.Sprintf("unprocessable message %s: %v", e.MessageID, e.Err)
}

func (e *UnprocessableMessageError) Unwrap() error {
	return e.Err
}

// IsUnprocessable reports whether err wraps an UnprocessableMessageError.
func IsUnprocessable(err error) bool {
	var target *UnprocessableMessageError
	return errors.As(err, &target)
}

// HandlerKind tells record handlers from batch handlers.
type HandlerKind string

const (
	HandlerKindRecord HandlerKind = "record"
	HandlerKindBatch  HandlerKind = "batch"
)

// HandlerInfo describes a registered handler.
type HandlerInfo struct {
	Name         string      `json:"name"`
	Topic        string      `json:"topic"`
	PublishTopic string      `json:"publish_topic,omitempty"`
	Kind         HandlerKind `json:"kind"`
	AckPolicy    string      `json:"ack_policy"`
}
