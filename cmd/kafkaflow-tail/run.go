package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/urfave/cli/v2"

	"github.com/drblury/kafkaflow/internal/runtime/codec"
	"github.com/drblury/kafkaflow/internal/runtime/confluent"
	"github.com/drblury/kafkaflow/internal/runtime/headers"
	loggingpkg "github.com/drblury/kafkaflow/internal/runtime/logging"
	"github.com/drblury/kafkaflow/internal/runtime/message"
	"github.com/drblury/kafkaflow/internal/runtime/parser"
)

func run(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}

	level := "info"
	if cfg.Verbose {
		level = "debug"
	}
	logger := loggingpkg.NewJSONLogger(os.Stderr, level)
	logger.Debug("config", loggingpkg.LogFields{
		"bootstrapServers": cfg.Consumer.Brokers,
		"groupID":          cfg.Consumer.GroupID,
		"topics":           cfg.Consumer.Topics,
		"autoOffsetReset":  cfg.Consumer.AutoOffsetReset,
		"batchSize":        cfg.BatchSize,
		"batchWait":        cfg.BatchWait,
		"limit":            cfg.Limit,
		"commit":           cfg.Commit,
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, err := confluent.New(cfg.Consumer, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Error("failed to close consumer", err, nil)
		}
	}()

	return newTailer(cfg, c.App.Writer, logger).run(ctx, consumer)
}

// source is the part of confluent.BatchConsumer the tailer needs.
type source interface {
	message.Consumer
	Fetch(ctx context.Context, max int, wait time.Duration) ([]message.Record, error)
	CommitRecords(ctx context.Context, recs []message.Record) error
}

// line is one printed message.
type line struct {
	MessageID     string          `json:"message_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	ReplyTo       string          `json:"reply_to,omitempty"`
	ContentType   *string         `json:"content_type,omitempty"`
	Offset        int64           `json:"offset"`
	Timestamp     int64           `json:"timestamp"`
	Headers       headers.Headers `json:"headers,omitempty"`
	Body          any             `json:"body,omitempty"`
	Error         string          `json:"error,omitempty"`
}

type tailer struct {
	cfg    *Config
	parser *parser.Parser
	out    sonic.Encoder
	log    loggingpkg.ServiceLogger

	printed int
}

func newTailer(cfg *Config, w io.Writer, log loggingpkg.ServiceLogger) *tailer {
	return &tailer{
		cfg:    cfg,
		parser: parser.NewParser(parser.WithDecoder(codec.NewResolver(codec.NewRegistry()))),
		out:    codec.NewEncoder(w),
		log:    log,
	}
}

// run prints records until ctx is done or the limit is reached.
func (t *tailer) run(ctx context.Context, src source) error {
	ctx = message.WithHandler(ctx, message.HandlerContext{Consumer: src, AckPolicy: message.AckPolicyManual})

	for !t.done() && ctx.Err() == nil {
		recs, err := src.Fetch(ctx, t.cfg.BatchSize, t.cfg.BatchWait)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if len(recs) == 0 {
			continue
		}

		printed := 0
		for _, rec := range recs {
			if t.done() {
				break
			}
			if err := t.print(ctx, rec); err != nil {
				return err
			}
			printed++
		}

		if t.cfg.Commit {
			if err := t.commit(ctx, src, recs, printed); err != nil {
				return fmt.Errorf("failed to commit: %w", err)
			}
		}
	}
	return nil
}

// commit settles a fully printed batch. When the limit cut the batch short
// only the printed records are committed.
func (t *tailer) commit(ctx context.Context, src source, recs []message.Record, printed int) error {
	if printed == len(recs) {
		return src.Commit(ctx)
	}
	return src.CommitRecords(ctx, recs[:printed])
}

func (t *tailer) done() bool {
	return t.cfg.Limit > 0 && t.printed >= t.cfg.Limit
}

// print writes one line per record. Parse and decode failures are printed
// with the error instead of the body.
func (t *tailer) print(ctx context.Context, rec message.Record) error {
	_, ts := rec.Timestamp()
	out := line{Offset: rec.Offset(), Timestamp: ts}

	msg, err := t.parser.ParseMessage(ctx, rec)
	if err != nil {
		out.Error = err.Error()
	} else {
		out.MessageID = msg.MessageID()
		out.CorrelationID = msg.CorrelationID()
		out.ReplyTo = msg.ReplyTo()
		out.Headers = msg.Headers()
		if ct, ok := msg.ContentType(); ok {
			out.ContentType = &ct
		}

		body, err := t.parser.DecodeMessage(ctx, msg)
		if err != nil {
			out.Error = err.Error()
			t.log.Debug("decode failed", loggingpkg.MessageFields(msg))
		} else {
			out.Body = printable(body)
		}
	}

	if err := t.out.Encode(out); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	t.printed++
	return nil
}

// printable renders raw bodies as text when they are valid UTF-8.
func printable(v any) any {
	if b, ok := v.([]byte); ok && utf8.Valid(b) {
		return string(b)
	}
	return v
}
