package actor

import (
	"reflect"
)

// Handler is a callable bound to an owning actor plus a payload type
// discriminant. Two handlers are equal iff they reference the same target
// function on the same actor for the same payload type.
type Handler struct {
	// owner is the actor the handler belongs to.
	owner *Actor

	// payloadType is the payload type the handler accepts.
	payloadType reflect.Type

	// fnID discriminates the target function for handler equality.
	fnID uintptr

	// invoke adapts the typed callback to the untyped dispatch path.
	invoke func(*Message)
}

// NewHandler creates a handler owned by the given actor that accepts
// payloads of type P. The callback is invoked with the payload; messages are
// borrowed for the duration of the call and must not be retained.
func NewHandler[P Payload](owner *Actor, fn func(P)) *Handler {
	return &Handler{
		owner:       owner,
		payloadType: payloadTypeOf[P](),
		fnID:        reflect.ValueOf(fn).Pointer(),
		invoke: func(m *Message) {
			fn(m.payload.(P))
		},
	}
}

// Owner returns the actor the handler belongs to.
func (h *Handler) Owner() *Actor {
	return h.owner
}

// PayloadType returns the payload type the handler accepts.
func (h *Handler) PayloadType() reflect.Type {
	return h.payloadType
}

// Equal reports whether both handlers reference the same target function on
// the same actor for the same payload type.
func (h *Handler) Equal(other *Handler) bool {
	return h.owner == other.owner &&
		h.payloadType == other.payloadType &&
		h.fnID == other.fnID
}

// SubscriptionPoint is the (address, handler) tuple recorded by the actor
// owning the handler. The actor keeps its points in insertion order.
type SubscriptionPoint struct {
	// Address is the address the handler is subscribed to.
	Address *Address

	// Handler carries the accepted payload type and the callable.
	Handler *Handler
}

// equal reports whether both points reference the same address and handler.
func (p SubscriptionPoint) equal(other SubscriptionPoint) bool {
	return p.Address == other.Address && p.Handler.Equal(other.Handler)
}
