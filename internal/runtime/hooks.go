package runtime

import (
	"context"
	"time"

	loggingpkg "github.com/drblury/kafkaflow/internal/runtime/logging"
)

// JobContext provides information about a job execution to hooks. A job is
// one handler invocation over a message or a batch.
type JobContext struct {
	// HandlerName is the name of the handler processing the job.
	HandlerName string
	// Topic is the topic the records were consumed from.
	Topic string
	// MessageID and CorrelationID identify the canonical message.
	MessageID     string
	CorrelationID string
	// Records is 1 for record handlers and the batch size otherwise.
	Records int
	// Context is the dispatch context, carrying the handler context.
	Context context.Context
	// StartedAt is when the job started processing.
	StartedAt time.Time
	// Duration is how long the job took (only set in OnJobDone and OnJobError).
	Duration time.Duration
}

// JobHooks defines callbacks for job lifecycle events.
// All hooks are optional - nil hooks are simply not called.
type JobHooks struct {
	// OnJobStart is called after the message was parsed, before decoding.
	OnJobStart func(ctx JobContext)

	// OnJobDone is called when the handler succeeded and its reply, if any,
	// was published.
	OnJobDone func(ctx JobContext)

	// OnJobError is called when decoding, the handler or the reply failed.
	OnJobError func(ctx JobContext, err error)
}

// Merge combines two JobHooks, creating a new JobHooks that calls both.
// The hooks from 'other' are called after the hooks from 'h'.
func (h JobHooks) Merge(other JobHooks) JobHooks {
	return JobHooks{
		OnJobStart: chainHooks(h.OnJobStart, other.OnJobStart),
		OnJobDone:  chainHooks(h.OnJobDone, other.OnJobDone),
		OnJobError: chainErrorHooks(h.OnJobError, other.OnJobError),
	}
}

func chainHooks(a, b func(JobContext)) func(JobContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx JobContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(JobContext, error)) func(JobContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx JobContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// job tracks one invocation between start and completion.
type job struct {
	hooks JobHooks
	ctx   JobContext
}

func (h JobHooks) start(ctx JobContext) *job {
	ctx.StartedAt = time.Now()
	if h.OnJobStart != nil {
		h.OnJobStart(ctx)
	}
	return &job{hooks: h, ctx: ctx}
}

func (j *job) done() {
	j.ctx.Duration = time.Since(j.ctx.StartedAt)
	if j.hooks.OnJobDone != nil {
		j.hooks.OnJobDone(j.ctx)
	}
}

func (j *job) fail(err error) {
	j.ctx.Duration = time.Since(j.ctx.StartedAt)
	if j.hooks.OnJobError != nil {
		j.hooks.OnJobError(j.ctx, err)
	}
}

// LoggingHooks returns pre-built hooks that log job lifecycle events.
func LoggingHooks(logger loggingpkg.ServiceLogger) JobHooks {
	fields := func(ctx JobContext) loggingpkg.LogFields {
		return loggingpkg.LogFields{
			"handler":        ctx.HandlerName,
			"topic":          ctx.Topic,
			"message_id":     ctx.MessageID,
			"correlation_id": ctx.CorrelationID,
			"records":        ctx.Records,
		}
	}
	return JobHooks{
		OnJobStart: func(ctx JobContext) {
			logger.Debug("Job started", fields(ctx))
		},
		OnJobDone: func(ctx JobContext) {
			f := fields(ctx)
			f["duration_ms"] = ctx.Duration.Milliseconds()
			logger.Info("Job completed", f)
		},
		OnJobError: func(ctx JobContext, err error) {
			f := fields(ctx)
			f["duration_ms"] = ctx.Duration.Milliseconds()
			logger.Error("Job failed", err, f)
		},
	}
}

// MetricsHooks returns pre-built hooks that record job metrics.
func MetricsHooks(onStart, onDone, onError func(handlerName, topic string)) JobHooks {
	return JobHooks{
		OnJobStart: func(ctx JobContext) {
			if onStart != nil {
				onStart(ctx.HandlerName, ctx.Topic)
			}
		},
		OnJobDone: func(ctx JobContext) {
			if onDone != nil {
				onDone(ctx.HandlerName, ctx.Topic)
			}
		},
		OnJobError: func(ctx JobContext, err error) {
			if onError != nil {
				onError(ctx.HandlerName, ctx.Topic)
			}
		},
	}
}

// AlertingHooks returns pre-built hooks that trigger alerts on job errors.
func AlertingHooks(alertFunc func(ctx JobContext, err error)) JobHooks {
	return JobHooks{
		OnJobError: alertFunc,
	}
}
