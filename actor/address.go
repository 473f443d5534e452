package actor

import (
	"fmt"

	"github.com/google/uuid"
)

// Address is an opaque destination identity owned by a supervisor. Messages
// sent to an address are enqueued on the owning supervisor's locality queue.
// Addresses are freely shared; two addresses are equal iff they are the same
// identity (pointer equality). The supervisor back-reference is non-owning:
// an address never keeps its supervisor alive on its own.
type Address struct {
	// id tags the address for logging; identity is pointer equality.
	id uuid.UUID

	// sup is the supervisor owning this address's message queue.
	sup *Supervisor
}

// Supervisor returns the supervisor that owns this address.
func (a *Address) Supervisor() *Supervisor {
	return a.sup
}

// String returns a short printable form of the address identity.
func (a *Address) String() string {
	return fmt.Sprintf("addr:%s", a.id.String()[:8])
}
