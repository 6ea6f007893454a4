package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/kafkaflow/internal/runtime/errors"
	"github.com/drblury/kafkaflow/internal/runtime/headers"
	messagepkg "github.com/drblury/kafkaflow/internal/runtime/message"
	parserpkg "github.com/drblury/kafkaflow/internal/runtime/parser"
)

func testBatch() []messagepkg.Record {
	return []messagepkg.Record{
		rawRecord(10, 1000, `{"n":1}`, headers.KeyContentType, "application/json", headers.KeyCorrelationID, "c-1", headers.KeyReplyTo, "replies"),
		rawRecord(11, 1001, `{"n":2}`, headers.KeyContentType, "application/json"),
		rawRecord(12, 1002, `{"n":3}`, headers.KeyContentType, "application/json"),
	}
}

func TestRegisterBatchHandlerValidation(t *testing.T) {
	handler := func(context.Context, *messagepkg.BatchMessage, []any) (any, error) { return nil, nil }
	tests := []struct {
		name string
		reg  BatchHandlerRegistration
		want error
	}{
		{name: "missing handler", reg: BatchHandlerRegistration{Name: "b", Source: &fakeSource{}}, want: errspkg.ErrHandlerRequired},
		{name: "missing source", reg: BatchHandlerRegistration{Name: "b", Handler: handler}, want: errspkg.ErrBatchSourceRequired},
		{name: "missing name", reg: BatchHandlerRegistration{Source: &fakeSource{}, Handler: handler}, want: errspkg.ErrHandlerNameRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, nil, ServiceDependencies{})
			assert.ErrorIs(t, RegisterBatchHandler(svc, tt.reg), tt.want)
		})
	}

	assert.ErrorIs(t, RegisterBatchHandler(nil, BatchHandlerRegistration{}), errspkg.ErrServiceRequired)
}

func TestRegisterBatchHandlerDefaults(t *testing.T) {
	handler := func(context.Context, *messagepkg.BatchMessage, []any) (any, error) { return nil, nil }

	conf := testConfig()
	conf.BatchMaxRecords = 25
	conf.BatchMaxWait = 3 * time.Second
	svc, _ := newTestService(t, conf, ServiceDependencies{})

	loop := mustRegisterBatch(t, svc, BatchHandlerRegistration{Name: "b", Source: &fakeSource{}, Handler: handler})
	assert.Equal(t, 25, loop.reg.MaxRecords)
	assert.Equal(t, 3*time.Second, loop.reg.MaxWait)

	bare, _ := newTestService(t, nil, ServiceDependencies{})
	loop = mustRegisterBatch(t, bare, BatchHandlerRegistration{Name: "b", Source: &fakeSource{}, Handler: handler})
	assert.Equal(t, defaultBatchMaxRecords, loop.reg.MaxRecords)
	assert.Equal(t, defaultBatchMaxWait, loop.reg.MaxWait)

	loop = mustRegisterBatch(t, bare, BatchHandlerRegistration{Name: "c", Source: &fakeSource{}, Handler: handler, MaxRecords: 7, MaxWait: time.Millisecond})
	assert.Equal(t, 7, loop.reg.MaxRecords)
	assert.Equal(t, time.Millisecond, loop.reg.MaxWait)

	assert.Equal(t, HandlerKindBatch, bare.Handlers()[0].Kind)
	assert.ErrorIs(t, RegisterBatchHandler(bare, BatchHandlerRegistration{Name: "c", Source: &fakeSource{}, Handler: handler}), errspkg.ErrDuplicateHandler)
}

func TestBatchProcessAutoCommitAndReply(t *testing.T) {
	svc, pub := newTestService(t, nil, ServiceDependencies{})
	src := &fakeSource{}

	var got *messagepkg.BatchMessage
	var decoded []any
	loop := mustRegisterBatch(t, svc, BatchHandlerRegistration{
		Name:      "sum",
		Topic:     "numbers",
		Source:    src,
		AckPolicy: messagepkg.AckPolicyAuto,
		Handler: func(_ context.Context, msg *messagepkg.BatchMessage, values []any) (any, error) {
			got, decoded = msg, values
			return map[string]int{"count": len(values)}, nil
		},
	})

	require.NoError(t, loop.process(context.Background(), testBatch()))

	require.NotNil(t, got)
	assert.Equal(t, "10-12-1000", got.MessageID())
	assert.Equal(t, "c-1", got.CorrelationID())
	assert.False(t, got.IsManual())
	assert.Len(t, got.Body(), 3)
	assert.Equal(t, []any{
		map[string]any{"n": float64(1)},
		map[string]any{"n": float64(2)},
		map[string]any{"n": float64(3)},
	}, decoded)

	commits, seeks, _ := src.state()
	assert.Equal(t, 1, commits)
	assert.Zero(t, seeks)

	replies := pub.Messages("replies")
	require.Len(t, replies, 1)
	assert.JSONEq(t, `{"count":3}`, string(replies[0].Payload))
	assert.Equal(t, "c-1", replies[0].Metadata.Get(headers.KeyCorrelationID))

	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.parsed.WithLabelValues("sum", string(HandlerKindBatch))))
}

func TestBatchProcessManualAck(t *testing.T) {
	svc, _ := newTestService(t, nil, ServiceDependencies{})
	src := &fakeSource{}

	loop := mustRegisterBatch(t, svc, BatchHandlerRegistration{
		Name:   "manual",
		Source: src,
		Handler: func(ctx context.Context, msg *messagepkg.BatchMessage, _ []any) (any, error) {
			assert.True(t, msg.IsManual())
			require.NoError(t, msg.Ack(ctx))
			require.NoError(t, msg.Ack(ctx))
			return nil, nil
		},
	})

	require.NoError(t, loop.process(context.Background(), testBatch()))
	commits, seeks, _ := src.state()
	assert.Equal(t, 1, commits)
	assert.Zero(t, seeks)
}

func TestBatchProcessHandlerFailureRewinds(t *testing.T) {
	boom := errors.New("boom")

	t.Run("seek to first record", func(t *testing.T) {
		svc, _ := newTestService(t, nil, ServiceDependencies{})
		src := &fakeSource{}
		var failed error
		svc.hooks = JobHooks{OnJobError: func(_ JobContext, err error) { failed = err }}

		loop := mustRegisterBatch(t, svc, BatchHandlerRegistration{
			Name:      "b",
			Source:    src,
			AckPolicy: messagepkg.AckPolicyAuto,
			Handler: func(context.Context, *messagepkg.BatchMessage, []any) (any, error) {
				return nil, boom
			},
		})

		batch := testBatch()
		require.NoError(t, loop.process(context.Background(), batch))

		commits, seeks, _ := src.state()
		assert.Zero(t, commits)
		require.Equal(t, 1, seeks)
		assert.Same(t, batch[0], src.seeks[0])
		assert.ErrorIs(t, failed, boom)
	})

	t.Run("rewind every partition", func(t *testing.T) {
		svc, _ := newTestService(t, nil, ServiceDependencies{})
		src := &rewindingSource{}
		loop := mustRegisterBatch(t, svc, BatchHandlerRegistration{
			Name:   "b",
			Source: src,
			Handler: func(context.Context, *messagepkg.BatchMessage, []any) (any, error) {
				return nil, boom
			},
		})

		batch := testBatch()
		require.NoError(t, loop.process(context.Background(), batch))
		require.Len(t, src.rewound, 1)
		assert.Equal(t, batch, src.rewound[0])
		_, seeks, _ := src.state()
		assert.Zero(t, seeks)
	})

	t.Run("already settled", func(t *testing.T) {
		svc, _ := newTestService(t, nil, ServiceDependencies{})
		src := &rewindingSource{}
		loop := mustRegisterBatch(t, svc, BatchHandlerRegistration{
			Name:   "b",
			Source: src,
			Handler: func(ctx context.Context, msg *messagepkg.BatchMessage, _ []any) (any, error) {
				require.NoError(t, msg.Nack(ctx))
				return nil, boom
			},
		})

		require.NoError(t, loop.process(context.Background(), testBatch()))
		assert.Empty(t, src.rewound)
		_, seeks, _ := src.state()
		assert.Equal(t, 1, seeks)
	})
}

func TestBatchProcessDecodeFailurePoisonsAndCommits(t *testing.T) {
	conf := testConfig()
	conf.PoisonQueue = "poison"
	svc, pub := newTestService(t, conf, ServiceDependencies{})
	src := &fakeSource{}

	called := false
	loop := mustRegisterBatch(t, svc, BatchHandlerRegistration{
		Name:   "b",
		Topic:  "numbers",
		Source: src,
		Decoder: parserpkg.DecoderFunc(func(_ context.Context, msg *messagepkg.Message) (any, error) {
			if msg.MessageID() == "11-1001" {
				return nil, errors.New("bad record")
			}
			return string(msg.Body()), nil
		}),
		Handler: func(context.Context, *messagepkg.BatchMessage, []any) (any, error) {
			called = true
			return nil, nil
		},
	})

	require.NoError(t, loop.process(context.Background(), testBatch()))
	assert.False(t, called)

	commits, seeks, _ := src.state()
	assert.Equal(t, 1, commits)
	assert.Zero(t, seeks)

	poisoned := pub.Messages("poison")
	require.Len(t, poisoned, 3)
	assert.Equal(t, `{"n":1}`, string(poisoned[0].Payload))
	assert.Equal(t, "c-1", poisoned[0].Metadata.Get(headers.KeyCorrelationID))
	assert.Contains(t, poisoned[0].Metadata.Get(middleware.ReasonForPoisonedKey), "bad record")
	assert.Equal(t, "b", poisoned[2].Metadata.Get(middleware.PoisonedHandlerKey))
	assert.Equal(t, "numbers", poisoned[2].Metadata.Get(middleware.PoisonedTopicKey))

	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.decodeFailures.WithLabelValues("b")))
}

func TestBatchProcessDecodeFailureWithoutPoisonQueue(t *testing.T) {
	svc, pub := newTestService(t, nil, ServiceDependencies{})
	src := &fakeSource{}
	loop := mustRegisterBatch(t, svc, BatchHandlerRegistration{
		Name:   "b",
		Source: src,
		Decoder: parserpkg.DecoderFunc(func(context.Context, *messagepkg.Message) (any, error) {
			return nil, errors.New("bad record")
		}),
		Handler: func(context.Context, *messagepkg.BatchMessage, []any) (any, error) { return nil, nil },
	})

	require.NoError(t, loop.process(context.Background(), testBatch()))
	commits, _, _ := src.state()
	assert.Equal(t, 1, commits)
	assert.Empty(t, pub.Messages("poison"))
}

func TestBatchProcessMalformedHeaderRejected(t *testing.T) {
	svc, _ := newTestService(t, nil, ServiceDependencies{})
	src := &fakeSource{}
	loop := mustRegisterBatch(t, svc, BatchHandlerRegistration{
		Name:    "b",
		Source:  src,
		Handler: func(context.Context, *messagepkg.BatchMessage, []any) (any, error) { return nil, nil },
	})

	bad := rawRecord(1, 2, "x")
	bad.HeaderList = append(bad.HeaderList, messagepkg.BytesHeader("k", []byte{0xff}))

	require.NoError(t, loop.process(context.Background(), []messagepkg.Record{bad}))
	commits, _, _ := src.state()
	assert.Equal(t, 1, commits)
}

func TestBatchLoopRun(t *testing.T) {
	svc, _ := newTestService(t, nil, ServiceDependencies{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &fakeSource{batches: [][]messagepkg.Record{nil, testBatch()}}
	src.fetchFn = func(ctx context.Context) ([]messagepkg.Record, error) {
		cancel()
		return nil, ctx.Err()
	}

	handled := 0
	loop := mustRegisterBatch(t, svc, BatchHandlerRegistration{
		Name:      "b",
		Source:    src,
		AckPolicy: messagepkg.AckPolicyAuto,
		Handler: func(context.Context, *messagepkg.BatchMessage, []any) (any, error) {
			handled++
			return nil, nil
		},
	})

	require.NoError(t, loop.run(ctx))
	assert.Equal(t, 1, handled)
	commits, _, closed := src.state()
	assert.Equal(t, 1, commits)
	assert.True(t, closed)
}

func TestBatchLoopRunFetchError(t *testing.T) {
	svc, _ := newTestService(t, nil, ServiceDependencies{})
	boom := errors.New("broker down")
	src := &fakeSource{fetchFn: func(context.Context) ([]messagepkg.Record, error) { return nil, boom }}

	loop := mustRegisterBatch(t, svc, BatchHandlerRegistration{
		Name:    "b",
		Source:  src,
		Handler: func(context.Context, *messagepkg.BatchMessage, []any) (any, error) { return nil, nil },
	})

	err := loop.run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "batch handler b")
	_, _, closed := src.state()
	assert.True(t, closed)
}
