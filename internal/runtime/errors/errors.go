package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrServiceRequired     = sterrors.New("kafkaflow: service is required")
	ErrHandlerRequired     = sterrors.New("kafkaflow: handler function is required")
	ErrTopicRequired       = sterrors.New("kafkaflow: topic is required")
	ErrHandlerNameRequired = sterrors.New("kafkaflow: handler name is required")
	ErrPublisherRequired   = sterrors.New("kafkaflow: publisher is required")
	ErrConfigRequired      = sterrors.New("kafkaflow: configuration is required")
	ErrLoggerRequired      = sterrors.New("kafkaflow: logger is required")
	ErrDecoderRequired     = sterrors.New("kafkaflow: decoder is required")
	ErrBatchSourceRequired = sterrors.New("kafkaflow: batch source is required")
	ErrProtoTypeRequired   = sterrors.New("kafkaflow: proto message type must be a pointer type")
	ErrDuplicateHandler    = sterrors.New("kafkaflow: handler name already registered")

	// ErrEmptyBatch is the panic value raised when a batch normalizer receives no records.
	// Callers must never hand an empty group to the parser.
	ErrEmptyBatch = sterrors.New("kafkaflow: batch must contain at least one record")

	// ErrOffsetsUnsupported is returned when a handler is registered on a transport
	// that cannot report log positions.
	ErrOffsetsUnsupported = sterrors.New("kafkaflow: transport does not report record offsets")
)

// ConfigValidationError wraps the joined errors produced by Config.Validate.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("kafkaflow: invalid configuration: %v", e.Err)
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError returns nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
