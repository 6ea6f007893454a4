package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	messagepkg "github.com/drblury/kafkaflow/internal/runtime/message"
	parserpkg "github.com/drblury/kafkaflow/internal/runtime/parser"
	"github.com/drblury/kafkaflow/internal/runtime/records"
)

// watermillConsumer settles the Watermill message a record was read from.
type watermillConsumer struct {
	msg *message.Message
}

func (c watermillConsumer) Commit(context.Context) error {
	c.msg.Ack()
	return nil
}

func (c watermillConsumer) Seek(context.Context, messagepkg.Record) error {
	c.msg.Nack()
	return nil
}

// recordHandler runs one registration over a single consumed message. The
// router acks on a nil return and nacks otherwise, so only manual Ack/Nack
// calls from the handler settle early.
func (s *Service) recordHandler(reg HandlerRegistration, p *parserpkg.Parser) message.NoPublishHandlerFunc {
	return func(wm *message.Message) error {
		ctx := messagepkg.WithHandler(wm.Context(), messagepkg.HandlerContext{
			Consumer:  watermillConsumer{msg: wm},
			AckPolicy: reg.AckPolicy,
		})

		msg, err := p.ParseMessage(ctx, records.FromWatermill(wm))
		if err != nil {
			return &UnprocessableMessageError{MessageID: wm.UUID, Err: err}
		}
		s.metrics.observeParsed(reg.Name, HandlerKindRecord)

		run := s.hooks.start(JobContext{
			HandlerName:   reg.Name,
			Topic:         reg.Topic,
			MessageID:     msg.MessageID(),
			CorrelationID: msg.CorrelationID(),
			Records:       1,
			Context:       ctx,
		})

		started := time.Now()
		decoded, err := p.DecodeMessage(ctx, msg)
		s.metrics.observeDecode(reg.Name, started, err)
		if err != nil {
			err = s.decodeError(ctx, msg.MessageID(), err)
			run.fail(err)
			return err
		}

		result, err := reg.Handler(ctx, msg, decoded)
		if err == nil {
			err = s.reply(ctx, msg, reg.PublishTopic, result)
		}
		if err != nil {
			run.fail(err)
			return err
		}

		run.done()
		return nil
	}
}

// decodeError marks decode failures unprocessable unless dispatch was
// cancelled.
func (s *Service) decodeError(ctx context.Context, messageID string, err error) error {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}
	return &UnprocessableMessageError{MessageID: messageID, Err: err}
}
