// Package channel provides an in-memory Go channel transport for kafkaflow.
// Published messages are stamped with a per-topic offset and a timestamp so
// consumers see positions the same way they would on Kafka. This transport is
// useful for testing and local development.
package channel

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/kafkaflow/internal/runtime/headers"
	"github.com/drblury/kafkaflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "channel"

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

func init() {
	Register()
}

// Register registers the channel transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.ChannelCapabilities)
}

// Build creates a new Go channel transport. Messages published before a
// subscriber exists are kept and replayed to it.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	pub, sub := Factory(gochannel.Config{
		OutputChannelBuffer: 64,
		Persistent:          true,
	}, logger)
	return transport.Transport{
		Publisher:  NewOffsetPublisher(pub),
		Subscriber: sub,
	}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.ChannelCapabilities
}

// OffsetPublisher stamps kafkaflow_offset and kafkaflow_timestamp metadata on
// every message before handing it to the wrapped publisher. Offsets start at
// zero and grow by one per message within a topic. A timestamp already set by
// the caller is kept.
type OffsetPublisher struct {
	next message.Publisher
	now  func() time.Time

	mu      sync.Mutex
	offsets map[string]int64
}

func NewOffsetPublisher(next message.Publisher) *OffsetPublisher {
	return &OffsetPublisher{
		next:    next,
		now:     time.Now,
		offsets: make(map[string]int64),
	}
}

func (p *OffsetPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ts := strconv.FormatInt(p.now().UnixMilli(), 10)
	for _, msg := range messages {
		offset := p.offsets[topic]
		p.offsets[topic] = offset + 1

		msg.Metadata.Set(headers.KeyOffset, strconv.FormatInt(offset, 10))
		if msg.Metadata.Get(headers.KeyTimestamp) == "" {
			msg.Metadata.Set(headers.KeyTimestamp, ts)
		}
	}
	return p.next.Publish(topic, messages...)
}

func (p *OffsetPublisher) Close() error {
	return p.next.Close()
}
