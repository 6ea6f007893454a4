package codec

import (
	"fmt"
	"sort"
	"sync"

	"google.golang.org/protobuf/proto"
)

// Registry maps schema names to proto message prototypes. A type is reachable
// both by its Go type name (for example "*structpb.Struct") and by its proto
// full name (for example "google.protobuf.Struct").
type Registry struct {
	mu     sync.RWMutex
	protos map[string]func() proto.Message
}

func NewRegistry() *Registry {
	return &Registry{protos: make(map[string]func() proto.Message)}
}

// Register adds the message type of msg. Nil messages are ignored.
func (r *Registry) Register(msgs ...proto.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		factory := func() proto.Message {
			return msg.ProtoReflect().New().Interface()
		}
		r.protos[fmt.Sprintf("%T", msg)] = factory
		r.protos[string(msg.ProtoReflect().Descriptor().FullName())] = factory
	}
}

// New returns a fresh zero message for name.
func (r *Registry) New(name string) (proto.Message, bool) {
	r.mu.RLock()
	factory, ok := r.protos[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return factory(), true
}

// Names lists every registered name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.protos))
	for name := range r.protos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
