package message

import "context"

// Consumer is the handle a message uses to settle itself against the broker.
type Consumer interface {
	// Commit marks everything consumed so far as processed.
	Commit(ctx context.Context) error
	// Seek rewinds consumption so rec is delivered again.
	Seek(ctx context.Context, rec Record) error
}

type fakeConsumer struct{}

func (*fakeConsumer) Commit(context.Context) error       { return nil }
func (*fakeConsumer) Seek(context.Context, Record) error { return nil }

// FakeConsumer is the shared no-op consumer used whenever no real consumer is
// available, so callers never need to nil-check Message.Consumer.
var FakeConsumer Consumer = &fakeConsumer{}
