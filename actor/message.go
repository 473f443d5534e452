package actor

import (
	"reflect"

	"github.com/google/uuid"
)

// BasePayload is a helper struct that can be embedded in payload types
// defined outside the actor package to satisfy the Payload interface's
// unexported payloadMarker method.
type BasePayload struct{}

// payloadMarker implements the unexported method for the Payload interface,
// allowing types that embed BasePayload to satisfy the Payload interface.
func (BasePayload) payloadMarker() {}

// Payload is a sealed interface for message payloads. Handlers dispatch on
// the payload's concrete type, so a payload's type identity is its routing
// key. The interface is "sealed" by the unexported payloadMarker method,
// meaning only types that can satisfy it (e.g., by embedding BasePayload or
// being in the same package) can be payloads.
type Payload interface {
	// payloadMarker is a private method that makes this a sealed
	// interface (see BasePayload for embedding).
	payloadMarker()
}

// payloadTypeOf returns the runtime type discriminant for a payload type
// parameter without allocating a value of it.
func payloadTypeOf[P Payload]() reflect.Type {
	return reflect.TypeOf((*P)(nil)).Elem()
}

// Message couples a payload with its destination address. Ownership of a
// message passes from the sender to the destination locality's queue, then to
// the dispatched handlers, which must treat it as borrowed for the duration
// of the dispatch.
type Message struct {
	// dest is the address the message is delivered to.
	dest *Address

	// payload is the tagged payload carried by the message.
	payload Payload

	// synthetic marks runtime-fabricated messages (timeout responses)
	// that bypass the outstanding-request correlation check.
	synthetic bool
}

// NewMessage creates a message carrying payload to dest.
func NewMessage(dest *Address, payload Payload) *Message {
	return &Message{dest: dest, payload: payload}
}

// Dest returns the destination address of the message.
func (m *Message) Dest() *Address {
	return m.dest
}

// Payload returns the payload carried by the message.
func (m *Message) Payload() Payload {
	return m.payload
}

// payloadType returns the runtime type identity used for dispatch.
func (m *Message) payloadType() reflect.Type {
	return reflect.TypeOf(m.payload)
}

// Request wraps a payload with a correlating identifier and the origin
// address responses must be delivered to. The runtime tracks every
// outstanding request together with exactly one pending timer; whichever of
// the response or the timer arrives first cancels the other.
type Request[P Payload] struct {
	BasePayload

	// ID correlates the request with its response.
	ID uuid.UUID

	// Origin is the address of the requesting actor.
	Origin *Address

	// Body is the request payload proper.
	Body P
}

// Response is the reply to a Request[P] with the same ID. A synthesized
// timeout response carries ErrRequestTimeout in Err and a zero Body.
type Response[P Payload] struct {
	BasePayload

	// ID matches the originating request.
	ID uuid.UUID

	// Err carries the failure chain, nil on success.
	Err error

	// Body is the response payload proper.
	Body P
}

// responder is implemented by every Response instantiation; the supervisor
// uses it to correlate an inbound message against its outstanding-request
// table without knowing the concrete body type.
type responder interface {
	respID() uuid.UUID
}

// respID returns the correlation identifier of the response.
func (r Response[P]) respID() uuid.UUID {
	return r.ID
}
