package message

import "context"

// AckPolicy selects who acknowledges a message.
type AckPolicy int

const (
	// AckPolicyUnset resolves to manual acknowledgment.
	AckPolicyUnset AckPolicy = iota
	AckPolicyManual
	AckPolicyAuto
)

func (p AckPolicy) String() string {
	switch p {
	case AckPolicyManual:
		return "manual"
	case AckPolicyAuto:
		return "auto"
	default:
		return "unset"
	}
}

// HandlerContext describes the subscriber currently dispatching a message. The
// dispatch layer installs it on the context before parsing and it lives only
// as long as that context.
type HandlerContext struct {
	Consumer  Consumer
	AckPolicy AckPolicy
}

type handlerKey struct{}

// WithHandler returns a child context carrying h.
func WithHandler(ctx context.Context, h HandlerContext) context.Context {
	return context.WithValue(ctx, handlerKey{}, h)
}

// HandlerFromContext returns the active handler, if any.
func HandlerFromContext(ctx context.Context) (HandlerContext, bool) {
	if ctx == nil {
		return HandlerContext{}, false
	}
	h, ok := ctx.Value(handlerKey{}).(HandlerContext)
	return h, ok
}

// ResolveHandler applies the defaults for a missing or partial handler: the
// no-op consumer and manual acknowledgment.
func ResolveHandler(ctx context.Context) (consumer Consumer, manual bool) {
	h, ok := HandlerFromContext(ctx)
	if !ok {
		return FakeConsumer, true
	}

	consumer = h.Consumer
	if consumer == nil {
		consumer = FakeConsumer
	}
	return consumer, h.AckPolicy != AckPolicyAuto
}
