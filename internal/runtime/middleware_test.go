package runtime

import (
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loggingpkg "github.com/drblury/kafkaflow/internal/runtime/logging"
)

func TestRetryMiddlewareConfigDefaults(t *testing.T) {
	cfg := RetryMiddlewareConfig{}.withDefaults()
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.InitialInterval)
	assert.Equal(t, 16*time.Second, cfg.MaxInterval)

	assert.True(t, cfg.RetryIf(errors.New("transient")))
	assert.False(t, cfg.RetryIf(&UnprocessableMessageError{MessageID: "1-2", Err: errors.New("bad")}))

	custom := RetryMiddlewareConfig{MaxRetries: 2, RetryIf: func(error) bool { return false }}.withDefaults()
	assert.Equal(t, 2, custom.MaxRetries)
	assert.False(t, custom.RetryIf(errors.New("transient")))
}

func TestRetryMiddlewareSkipsUnprocessable(t *testing.T) {
	mw := retryMiddleware(RetryMiddlewareConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})

	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{name: "transient", err: errors.New("transient"), wantCalls: 4},
		{name: "unprocessable", err: &UnprocessableMessageError{Err: errors.New("bad")}, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			h := mw(func(*message.Message) ([]*message.Message, error) {
				calls++
				return nil, tt.err
			})

			_, err := h(message.NewMessage("1", nil))
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestRegisterMiddlewareValidation(t *testing.T) {
	svc, _ := newTestService(t, nil, ServiceDependencies{DisableDefaultMiddlewares: true})

	assert.Error(t, svc.RegisterMiddleware(MiddlewareRegistration{Name: "empty"}))
	assert.NoError(t, svc.RegisterMiddleware(MiddlewareRegistration{
		Name:    "skipped",
		Builder: func(*Service) (message.HandlerMiddleware, error) { return nil, nil },
	}))

	boom := errors.New("boom")
	assert.ErrorIs(t, svc.RegisterMiddleware(MiddlewareRegistration{
		Name:    "failing",
		Builder: func(*Service) (message.HandlerMiddleware, error) { return nil, boom },
	}), boom)
}

func TestPoisonQueueMiddleware(t *testing.T) {
	t.Run("skipped without queue", func(t *testing.T) {
		svc, _ := newTestService(t, nil, ServiceDependencies{DisableDefaultMiddlewares: true})
		mw, err := PoisonQueueMiddleware(nil).Builder(svc)
		require.NoError(t, err)
		assert.Nil(t, mw)
	})

	t.Run("routes unprocessable messages", func(t *testing.T) {
		conf := testConfig()
		conf.PoisonQueue = "dead"
		svc, pub := newTestService(t, conf, ServiceDependencies{DisableDefaultMiddlewares: true})

		mw, err := PoisonQueueMiddleware(nil).Builder(svc)
		require.NoError(t, err)
		require.NotNil(t, mw)

		bad := mw(func(*message.Message) ([]*message.Message, error) {
			return nil, &UnprocessableMessageError{MessageID: "1-2", Err: errors.New("bad body")}
		})
		_, err = bad(message.NewMessage("u1", []byte("payload")))
		require.NoError(t, err)

		transient := errors.New("transient")
		failing := mw(func(*message.Message) ([]*message.Message, error) { return nil, transient })
		_, err = failing(message.NewMessage("u2", nil))
		require.ErrorIs(t, err, transient)

		dead := pub.Messages("dead")
		require.Len(t, dead, 1)
		assert.Equal(t, "payload", string(dead[0].Payload))
	})
}

func TestLogMessagesMiddleware(t *testing.T) {
	logger := &capturingLogger{}
	h := logMessagesMiddleware(logger)(func(*message.Message) ([]*message.Message, error) { return nil, nil })

	_, err := h(message.NewMessage("uuid-1", []byte("abc")))
	require.NoError(t, err)
	require.Len(t, logger.entries, 1)
	assert.Equal(t, "Processing message", logger.entries[0].msg)
	assert.Equal(t, "uuid-1", logger.entries[0].fields["message_uuid"])
	assert.Equal(t, 3, logger.entries[0].fields["payload_bytes"])
}

func TestTracerMiddlewarePassesThrough(t *testing.T) {
	boom := errors.New("boom")
	h := tracerMiddleware()(func(msg *message.Message) ([]*message.Message, error) {
		assert.NotNil(t, msg.Context())
		return nil, boom
	})
	_, err := h(message.NewMessage("1", nil))
	assert.ErrorIs(t, err, boom)
}

type logEntry struct {
	level  string
	msg    string
	err    error
	fields loggingpkg.LogFields
}

type capturingLogger struct {
	entries []logEntry
}

func (c *capturingLogger) With(loggingpkg.LogFields) loggingpkg.ServiceLogger { return c }

func (c *capturingLogger) Debug(msg string, fields loggingpkg.LogFields) {
	c.entries = append(c.entries, logEntry{level: "debug", msg: msg, fields: fields})
}

func (c *capturingLogger) Info(msg string, fields loggingpkg.LogFields) {
	c.entries = append(c.entries, logEntry{level: "info", msg: msg, fields: fields})
}

func (c *capturingLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	c.entries = append(c.entries, logEntry{level: "error", msg: msg, err: err, fields: fields})
}

func (c *capturingLogger) Trace(msg string, fields loggingpkg.LogFields) {
	c.entries = append(c.entries, logEntry{level: "trace", msg: msg, fields: fields})
}
