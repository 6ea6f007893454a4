package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/drblury/kafkaflow/internal/runtime/errors"
	"github.com/drblury/kafkaflow/internal/runtime/headers"
	idspkg "github.com/drblury/kafkaflow/internal/runtime/ids"
	loggingpkg "github.com/drblury/kafkaflow/internal/runtime/logging"
	messagepkg "github.com/drblury/kafkaflow/internal/runtime/message"
	parserpkg "github.com/drblury/kafkaflow/internal/runtime/parser"
)

const (
	defaultBatchMaxRecords = 100
	defaultBatchMaxWait    = time.Second
)

// BatchSource feeds a batch handler. confluent.BatchConsumer is the
// production implementation.
type BatchSource interface {
	messagepkg.Consumer
	// Fetch returns up to max records, waiting at most wait for them. An
	// empty result is not an error.
	Fetch(ctx context.Context, max int, wait time.Duration) ([]messagepkg.Record, error)
	Close() error
}

// rewinder is implemented by sources that can redeliver a batch spanning
// several partitions.
type rewinder interface {
	Rewind(ctx context.Context, batch []messagepkg.Record) error
}

// BatchHandler processes one batch. decoded holds one value per record, in
// order.
type BatchHandler func(ctx context.Context, msg *messagepkg.BatchMessage, decoded []any) (any, error)

// BatchHandlerRegistration wires a batch handler onto a BatchSource.
type BatchHandlerRegistration struct {
	Name string
	// Topic is informational; the source decides what is consumed.
	Topic        string
	PublishTopic string
	Source       BatchSource
	Handler      BatchHandler
	AckPolicy    messagepkg.AckPolicy
	Decoder      parserpkg.Decoder
	// MaxRecords and MaxWait bound a single fetch. Zero falls back to the
	// service configuration.
	MaxRecords int
	MaxWait    time.Duration
}

// RegisterBatchHandler adds a batch loop that runs once the service starts.
func RegisterBatchHandler(svc *Service, cfg BatchHandlerRegistration) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	if cfg.Handler == nil {
		return errspkg.ErrHandlerRequired
	}
	if cfg.Source == nil {
		return errspkg.ErrBatchSourceRequired
	}
	if cfg.Name == "" {
		return errspkg.ErrHandlerNameRequired
	}

	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = svc.Conf.BatchMaxRecords
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = defaultBatchMaxRecords
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = svc.Conf.BatchMaxWait
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultBatchMaxWait
	}

	if err := svc.addHandlerInfo(HandlerInfo{
		Name:         cfg.Name,
		Topic:        cfg.Topic,
		PublishTopic: cfg.PublishTopic,
		Kind:         HandlerKindBatch,
		AckPolicy:    cfg.AckPolicy.String(),
	}); err != nil {
		return err
	}

	loop := &batchLoop{
		svc:    svc,
		reg:    cfg,
		parser: svc.parserFor(cfg.Decoder),
		logger: svc.Logger.With(loggingpkg.LogFields{"handler": cfg.Name}),
	}

	svc.handlersMu.Lock()
	svc.batchLoops = append(svc.batchLoops, loop)
	svc.handlersMu.Unlock()
	return nil
}

type batchLoop struct {
	svc    *Service
	reg    BatchHandlerRegistration
	parser *parserpkg.Parser
	logger loggingpkg.ServiceLogger
}

// run fetches and processes batches until ctx is done. Handler failures
// rewind the source and never stop the loop; fetch and settlement failures do.
func (l *batchLoop) run(ctx context.Context) error {
	defer func() {
		if err := l.reg.Source.Close(); err != nil {
			l.logger.Error("Failed to close batch source", err, nil)
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		recs, err := l.reg.Source.Fetch(ctx, l.reg.MaxRecords, l.reg.MaxWait)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("batch handler %s: fetch: %w", l.reg.Name, err)
		}
		if len(recs) == 0 {
			continue
		}

		if err := l.process(ctx, recs); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("batch handler %s: %w", l.reg.Name, err)
		}
	}
}

// process dispatches one non-empty batch. The returned error is fatal to the
// loop; handler errors are handled here by rewinding the source.
func (l *batchLoop) process(ctx context.Context, recs []messagepkg.Record) error {
	src := l.reg.Source
	ctx = messagepkg.WithHandler(ctx, messagepkg.HandlerContext{
		Consumer:  src,
		AckPolicy: l.reg.AckPolicy,
	})

	msg, err := l.parser.ParseMessageBatch(ctx, recs)
	if err != nil {
		return l.reject(ctx, recs, &UnprocessableMessageError{Err: err})
	}
	l.svc.metrics.observeParsed(l.reg.Name, HandlerKindBatch)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ProcessBatch",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("message_id", msg.MessageID()),
			attribute.String("correlation_id", msg.CorrelationID()),
			attribute.Int("records", len(recs)),
		),
	)
	defer span.End()

	run := l.svc.hooks.start(JobContext{
		HandlerName:   l.reg.Name,
		Topic:         l.reg.Topic,
		MessageID:     msg.MessageID(),
		CorrelationID: msg.CorrelationID(),
		Records:       len(recs),
		Context:       ctx,
	})

	started := time.Now()
	decoded, err := l.parser.DecodeMessageBatch(ctx, msg)
	l.svc.metrics.observeDecode(l.reg.Name, started, err)
	if err != nil {
		err = l.svc.decodeError(ctx, msg.MessageID(), err)
		run.fail(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !IsUnprocessable(err) {
			return err
		}
		return l.reject(ctx, recs, err)
	}

	result, err := l.reg.Handler(ctx, msg, decoded)
	if err == nil {
		err = l.svc.reply(ctx, msg, l.reg.PublishTopic, result)
	}
	if err != nil {
		run.fail(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.Error("Batch handler failed", err, loggingpkg.MessageFields(msg))
		if msg.Settled() {
			return nil
		}
		return l.rewind(ctx, recs)
	}

	run.done()
	if l.reg.AckPolicy == messagepkg.AckPolicyAuto {
		return src.Commit(ctx)
	}
	return nil
}

// reject moves an undecodable batch out of the way: each record goes to the
// poison queue when one is configured and the batch is committed.
func (l *batchLoop) reject(ctx context.Context, recs []messagepkg.Record, cause error) error {
	l.logger.Error("Dropping unprocessable batch", cause, loggingpkg.LogFields{"records": len(recs)})

	if topic := l.svc.Conf.PoisonQueue; topic != "" {
		if err := l.poison(ctx, topic, recs, cause); err != nil {
			return err
		}
	}
	return l.reg.Source.Commit(ctx)
}

func (l *batchLoop) poison(ctx context.Context, topic string, recs []messagepkg.Record, cause error) error {
	publisher := l.svc.poisonPublisher()
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}

	msgs := make([]*message.Message, 0, len(recs))
	for _, rec := range recs {
		wm := message.NewMessage(idspkg.CreateULID(), rec.Value())
		if single, err := l.parser.ParseMessage(ctx, rec); err == nil {
			wm.Metadata = headers.ToWatermill(single.Headers())
		}
		wm.Metadata.Set(middleware.ReasonForPoisonedKey, cause.Error())
		wm.Metadata.Set(middleware.PoisonedHandlerKey, l.reg.Name)
		wm.Metadata.Set(middleware.PoisonedTopicKey, l.reg.Topic)
		wm.SetContext(ctx)
		msgs = append(msgs, wm)
	}

	if err := publisher.Publish(topic, msgs...); err != nil {
		return fmt.Errorf("failed to publish to poison queue %s: %w", topic, err)
	}
	return nil
}

// rewind redelivers the whole batch: every partition when the source can,
// otherwise from the first record.
func (l *batchLoop) rewind(ctx context.Context, recs []messagepkg.Record) error {
	if r, ok := l.reg.Source.(rewinder); ok {
		return r.Rewind(ctx, recs)
	}
	return l.reg.Source.Seek(ctx, recs[0])
}
