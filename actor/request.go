package actor

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// pendingRequest is one outstanding request tracked by the requesting
// actor's supervisor. Exactly one pending timer exists per outstanding
// request: removing either removes the other.
type pendingRequest struct {
	// id correlates the request with its response.
	id uuid.UUID

	// deadline is when the timer fires.
	deadline time.Time

	// expire builds the synthesized timeout response.
	expire func() *Message
}

// RequestHandle is the intermediate of the request builder: Timeout installs
// the timer and enqueues the request, returning the correlation id.
type RequestHandle[P Payload] struct {
	sender *Actor
	dest   *Address
	body   P
}

// RequestOf starts building a request from sender to dest carrying body. The
// request is not sent until Timeout is called; every request carries a
// timeout.
func RequestOf[P Payload](sender *Actor, dest *Address,
	body P) RequestHandle[P] {

	return RequestHandle[P]{
		sender: sender,
		dest:   dest,
		body:   body,
	}
}

// Timeout installs the request timer on the sender's supervisor and enqueues
// the request. Expiry synthesizes a Response[P] carrying ErrRequestTimeout
// to the sender's address; a real reply arriving first cancels the timer,
// and whichever loses the race is dropped.
func (h RequestHandle[P]) Timeout(d time.Duration) uuid.UUID {
	id := uuid.New()
	origin := h.sender.address

	h.sender.owner.trackRequest(&pendingRequest{
		id:       id,
		deadline: time.Now().Add(d),
		expire: func() *Message {
			m := NewMessage(origin, Response[P]{
				ID: id,
				Err: errors.Wrapf(
					ErrRequestTimeout,
					"request to %s", h.dest,
				),
			})
			m.synthetic = true
			return m
		},
	})

	h.sender.Send(h.dest, Request[P]{
		ID:     id,
		Origin: origin,
		Body:   h.body,
	})

	return id
}

// ReplyTo answers a request with an error status and a zero body. A nil err
// signals success.
func ReplyTo[P Payload](a *Actor, req Request[P], err error) {
	a.Send(req.Origin, Response[P]{
		ID:  req.ID,
		Err: err,
	})
}

// Reply answers a request with a successful body.
func Reply[P Payload](a *Actor, req Request[P], body P) {
	a.Send(req.Origin, Response[P]{
		ID:   req.ID,
		Body: body,
	})
}
