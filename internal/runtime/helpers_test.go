package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/kafkaflow/internal/runtime/config"
	"github.com/drblury/kafkaflow/internal/runtime/headers"
	loggingpkg "github.com/drblury/kafkaflow/internal/runtime/logging"
	messagepkg "github.com/drblury/kafkaflow/internal/runtime/message"
	"github.com/drblury/kafkaflow/internal/runtime/records"
	transportpkg "github.com/drblury/kafkaflow/internal/runtime/transport"
	"github.com/drblury/kafkaflow/transport"
	"github.com/drblury/kafkaflow/transport/transporttest"
)

type stubFactory struct {
	set transportpkg.Set
	err error
}

func (f stubFactory) Build(context.Context, *configpkg.Config, watermill.LoggerAdapter) (transportpkg.Set, error) {
	return f.set, f.err
}

func stubSet(pub *transporttest.Publisher, caps transport.Capabilities) transportpkg.Set {
	return transportpkg.Set{
		Consume:      transport.Transport{Publisher: pub, Subscriber: transporttest.Subscriber{}},
		Reply:        pub,
		Capabilities: caps,
	}
}

func testConfig() *configpkg.Config {
	return &configpkg.Config{Transport: "channel", KafkaClientID: "kafkaflow-test"}
}

// newTestService builds a Service over a recording publisher.
func newTestService(t *testing.T, conf *configpkg.Config, deps ServiceDependencies) (*Service, *transporttest.Publisher) {
	t.Helper()
	if conf == nil {
		conf = testConfig()
	}
	pub := &transporttest.Publisher{}
	if deps.TransportFactory == nil {
		deps.TransportFactory = stubFactory{set: stubSet(pub, transport.ChannelCapabilities)}
	}
	svc := NewService(conf, loggingpkg.NewNopLogger(), context.Background(), deps)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, pub
}

func rawRecord(offset, ts int64, body string, hdrs ...string) *records.Raw {
	list := []messagepkg.Header{}
	for i := 0; i+1 < len(hdrs); i += 2 {
		list = append(list, messagepkg.TextHeader(hdrs[i], hdrs[i+1]))
	}
	return &records.Raw{
		HeaderList:    list,
		Payload:       []byte(body),
		Position:      offset,
		TimestampKind: messagepkg.TimestampCreateTime,
		TimestampMS:   ts,
	}
}

// watermillRecord is what the channel transport delivers: payload plus
// offset metadata.
func watermillRecord(offset, ts string, body string, md map[string]string) *message.Message {
	msg := message.NewMessage(watermill.NewUUID(), []byte(body))
	msg.Metadata.Set(headers.KeyOffset, offset)
	msg.Metadata.Set(headers.KeyTimestamp, ts)
	for k, v := range md {
		msg.Metadata.Set(k, v)
	}
	return msg
}

// fakeSource is a BatchSource serving queued batches.
type fakeSource struct {
	mu      sync.Mutex
	batches [][]messagepkg.Record
	fetchFn func(ctx context.Context) ([]messagepkg.Record, error)

	commits int
	seeks   []messagepkg.Record
	closed  bool
}

func (f *fakeSource) Fetch(ctx context.Context, _ int, _ time.Duration) ([]messagepkg.Record, error) {
	f.mu.Lock()
	if len(f.batches) > 0 {
		next := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return next, nil
	}
	f.mu.Unlock()
	if f.fetchFn != nil {
		return f.fetchFn(ctx)
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSource) Commit(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	return nil
}

func (f *fakeSource) Seek(_ context.Context, rec messagepkg.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, rec)
	return nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) state() (commits int, seeks int, closed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits, len(f.seeks), f.closed
}

// rewindingSource also redelivers whole batches.
type rewindingSource struct {
	fakeSource
	rewound [][]messagepkg.Record
}

func (r *rewindingSource) Rewind(_ context.Context, batch []messagepkg.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rewound = append(r.rewound, batch)
	return nil
}

func mustRegisterBatch(t *testing.T, svc *Service, reg BatchHandlerRegistration) *batchLoop {
	t.Helper()
	require.NoError(t, RegisterBatchHandler(svc, reg))
	svc.handlersMu.RLock()
	defer svc.handlersMu.RUnlock()
	return svc.batchLoops[len(svc.batchLoops)-1]
}
