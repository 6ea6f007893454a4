package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/kafkaflow/internal/runtime/codec"
	errspkg "github.com/drblury/kafkaflow/internal/runtime/errors"
	"github.com/drblury/kafkaflow/internal/runtime/headers"
	idspkg "github.com/drblury/kafkaflow/internal/runtime/ids"
	"github.com/drblury/kafkaflow/internal/runtime/response"
)

// Replyable is the part of an inbound message a reply is derived from.
type Replyable interface {
	ReplyTo() string
	CorrelationID() string
}

// NewOutboundMessage encodes resp into a Watermill message. The correlation
// id comes from resp.CorrelationID, then a correlation_id header, then
// correlationID. The encoder's content type is set unless resp names one.
func NewOutboundMessage(resp *response.Response, correlationID string) (*message.Message, error) {
	if resp == nil {
		resp = response.New(nil, nil)
	}

	payload, contentType, err := codec.Encode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}

	msg := message.NewMessage(idspkg.CreateULID(), payload)
	msg.Metadata = headers.ToWatermill(resp.TextHeaders())

	switch {
	case resp.CorrelationID != "":
		msg.Metadata.Set(headers.KeyCorrelationID, resp.CorrelationID)
	case msg.Metadata.Get(headers.KeyCorrelationID) == "":
		msg.Metadata.Set(headers.KeyCorrelationID, correlationID)
	}
	if contentType != "" && msg.Metadata.Get(headers.KeyContentType) == "" {
		msg.Metadata.Set(headers.KeyContentType, contentType)
	}
	return msg, nil
}

// reply publishes a handler result to the inbound reply_to topic, falling
// back to publishTopic. Nil results and messages with nowhere to go are
// dropped.
func (s *Service) reply(ctx context.Context, in Replyable, publishTopic string, result any) error {
	topic := in.ReplyTo()
	if topic == "" {
		topic = publishTopic
	}
	if topic == "" || result == nil {
		return nil
	}

	out, err := NewOutboundMessage(response.EnsureResponse(result), in.CorrelationID())
	if err != nil {
		return err
	}
	out.SetContext(ctx)

	if err := s.transports.Reply.Publish(topic, out); err != nil {
		return fmt.Errorf("failed to publish reply to %s: %w", topic, err)
	}
	return nil
}

// Publish sends v to topic over the reply transport. v may be a
// *response.Response to control headers.
func (s *Service) Publish(ctx context.Context, topic string, v any) error {
	if s == nil {
		return errors.New("event service is nil")
	}
	if s.transports.Reply == nil {
		return errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return errspkg.ErrTopicRequired
	}

	out, err := NewOutboundMessage(response.EnsureResponse(v), idspkg.Default())
	if err != nil {
		return err
	}
	if ctx != nil {
		out.SetContext(ctx)
	}
	return s.transports.Reply.Publish(topic, out)
}
