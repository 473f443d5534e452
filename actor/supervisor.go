package actor

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Interceptor observes a message about to be delivered by a supervisor. The
// continuation must be invoked exactly once to deliver the message;
// declining to invoke it drops the message.
type Interceptor interface {
	Intercept(m *Message, tag reflect.Type, next func())
}

// Supervisor is an actor that additionally owns children, a locality queue,
// a subscription map, and a timer table. Supervisors sharing a locality
// share one queue, drained by exactly one cooperative agent at a time; the
// queue is the runtime's sole cross-locality synchronization point.
type Supervisor struct {
	*Actor

	// sys is the owning system context.
	sys *System

	// parent is the parent supervisor, nil for the root.
	parent *Supervisor

	// localityKey is the opaque equality key selected at construction;
	// nil keys give the supervisor its own locality.
	localityKey any

	// leader is the supervisor whose queue backs this one. A supervisor
	// with its own locality is its own leader.
	leader *Supervisor

	// queue is the locality's message queue, non-nil only on the leader.
	queue *localityQueue

	// membersMu guards members.
	membersMu sync.Mutex

	// members lists the supervisors sharing this leader's queue,
	// including the leader itself. Leader only.
	members []*Supervisor

	// subs is the handler registry for addresses owned by this
	// supervisor.
	subs subscriptionMap

	// pending is the outstanding-request table: one entry per request
	// issued by actors owned by this supervisor, each with its timer
	// deadline.
	pending map[uuid.UUID]*pendingRequest

	// interceptor, when non-nil, observes every message delivered by
	// this supervisor.
	interceptor Interceptor

	// childManager is the supervisor's child manager plugin, recorded at
	// activation.
	childManager *ChildManager
}

// Parent returns the parent supervisor, nil for the root.
func (s *Supervisor) Parent() *Supervisor {
	return s.parent
}

// System returns the owning system context.
func (s *Supervisor) System() *System {
	return s.sys
}

// LocalityLeader returns the supervisor whose queue backs this one.
func (s *Supervisor) LocalityLeader() *Supervisor {
	return s.leader
}

// QueueLen returns the number of messages waiting in the locality queue.
func (s *Supervisor) QueueLen() int {
	return s.leader.queue.size()
}

// SubscriptionCount returns the number of handlers registered for addresses
// owned by this supervisor.
func (s *Supervisor) SubscriptionCount() int {
	return len(s.subs.allHandlers())
}

// makeAddress mints a new address owned by this supervisor.
func (s *Supervisor) makeAddress() *Address {
	return &Address{
		id:  uuid.New(),
		sup: s,
	}
}

// addMember records a supervisor joining this leader's locality.
func (s *Supervisor) addMember(member *Supervisor) {
	s.membersMu.Lock()
	defer s.membersMu.Unlock()
	s.members = append(s.members, member)
}

// allMembersDown reports whether every supervisor in this leader's locality
// reached SHUT_DOWN.
func (s *Supervisor) allMembersDown() bool {
	s.membersMu.Lock()
	defer s.membersMu.Unlock()

	for _, m := range s.members {
		if m.Actor.State() != StateShutDown {
			return false
		}
	}
	return true
}

// trackRequest installs an outstanding request and its timer.
func (s *Supervisor) trackRequest(pr *pendingRequest) {
	s.pending[pr.id] = pr
}

// nextDeadline returns the earliest pending timer deadline across the
// locality, with ok=false when no timer is pending.
func (s *Supervisor) nextDeadline() (time.Time, bool) {
	leader := s.leader

	leader.membersMu.Lock()
	members := make([]*Supervisor, len(leader.members))
	copy(members, leader.members)
	leader.membersMu.Unlock()

	var (
		earliest time.Time
		found    bool
	)
	for _, m := range members {
		for _, pr := range m.pending {
			if !found || pr.deadline.Before(earliest) {
				earliest = pr.deadline
				found = true
			}
		}
	}
	return earliest, found
}

// fireTimers expires this supervisor's outstanding requests whose deadline
// passed, synthesizing a timeout response for each. Removal of the timer and
// of the request entry is one operation.
func (s *Supervisor) fireTimers(now time.Time) {
	var expired []*pendingRequest
	for _, pr := range s.pending {
		if !pr.deadline.After(now) {
			expired = append(expired, pr)
		}
	}

	for _, pr := range expired {
		delete(s.pending, pr.id)

		log.DebugS(context.Background(), "Request timer fired",
			"supervisor_id", s.id, "request_id", pr.id)

		m := pr.expire()
		m.dest.sup.deliver(m)
	}
}

// fireLocalityTimers expires timers for every supervisor in the locality.
func (s *Supervisor) fireLocalityTimers(now time.Time) {
	s.membersMu.Lock()
	members := make([]*Supervisor, len(s.members))
	copy(members, s.members)
	s.membersMu.Unlock()

	for _, m := range members {
		m.fireTimers(now)
	}
}

// DoProcess drains the locality queue, dispatching each message through the
// subscription map of the supervisor owning its destination address. It
// returns the number of messages processed. Calling DoProcess on any
// supervisor of a shared locality drains the shared queue.
func (s *Supervisor) DoProcess() int {
	leader := s.leader
	processed := 0

	for {
		leader.fireLocalityTimers(time.Now())

		m, ok := leader.queue.pop()
		if !ok {
			break
		}

		m.dest.sup.deliver(m)
		processed++
	}

	return processed
}

// deliver dispatches one message to the handlers registered for its
// (address, type). A message that matched a foreign-owned handler is
// forwarded to the handler's home locality instead of being invoked here:
// handler state belongs exclusively to the locality that owns it. Responses
// are first correlated against the outstanding-request table: a response
// whose request is no longer pending lost the race against its timer and is
// dropped together with it.
func (s *Supervisor) deliver(m *Message) int {
	if fd, ok := m.payload.(forwardedDelivery); ok {
		if fd.handler.owner.State() == StateShutDown {
			return 0
		}
		fd.handler.invoke(fd.orig)
		return 1
	}

	if r, ok := m.payload.(responder); ok && !m.synthetic {
		if _, pend := s.pending[r.respID()]; !pend {
			log.TraceS(context.Background(), "Late response dropped",
				"supervisor_id", s.id,
				"request_id", r.respID())
			return 0
		}
		delete(s.pending, r.respID())
	}

	if s.interceptor != nil {
		var (
			delivered bool
			n         int
		)
		s.interceptor.Intercept(m, m.payloadType(), func() {
			if !delivered {
				delivered = true
				n = s.dispatch(m)
			}
		})
		return n
	}

	return s.dispatch(m)
}

// dispatch invokes the locality-local handlers for a message and forwards it
// once per foreign-owned handler. It returns the number of handlers invoked
// here; forwarded invocations count at their home locality.
func (s *Supervisor) dispatch(m *Message) int {
	handlers := s.subs.handlersFor(m.dest, m.payloadType())

	n := 0
	for _, h := range handlers {
		ownerSup := h.owner.owner
		if ownerSup == nil || ownerSup.leader == s.leader {
			h.invoke(m)
			n++
			continue
		}

		post(NewMessage(ownerSup.address, forwardedDelivery{
			handler: h,
			orig:    m,
		}))
	}

	return n
}

// subscribeHandler records a handler for an address. Local subscriptions hit
// the map synchronously, then confirm to the owning actor; foreign ones go
// through the two-step handshake with the address-owning supervisor. The map
// is always updated before the actor's point list.
func (s *Supervisor) subscribeHandler(addr *Address, h *Handler) {
	point := SubscriptionPoint{Address: addr, Handler: h}

	if addr.sup.leader == s.leader {
		addr.sup.subs.subscribe(addr, h)
		post(NewMessage(
			h.owner.address, subscriptionConfirmation{point: point},
		))
		return
	}

	post(NewMessage(addr.sup.address, subscribeExternal{point: point}))
}

// unsubscribeHandler withdraws a subscription point. Local points are
// confirmed back to the owning actor; foreign ones are requested from the
// address-owning supervisor. A foreign supervisor that is already SHUT_DOWN
// cannot answer, so the withdrawal is synthesized locally to let the owner
// proceed.
func (s *Supervisor) unsubscribeHandler(point SubscriptionPoint) {
	foreign := point.Address.sup

	if foreign.leader == s.leader {
		post(NewMessage(
			point.Handler.owner.address,
			unsubscriptionConfirmation{point: point},
		))
		return
	}

	if foreign.Actor.State() == StateShutDown ||
		!post(NewMessage(
			foreign.address, unsubscribeExternal{point: point},
		)) {

		post(NewMessage(
			point.Handler.owner.address,
			externalUnsubscription{point: point},
		))
	}
}

// commitLocalUnsubscription erases a local point from the address-owning
// supervisor's map. Same-locality, so a direct call.
func (s *Supervisor) commitLocalUnsubscription(point SubscriptionPoint) {
	point.Address.sup.subs.unsubscribe(point.Address, point.Handler)
}

// requestForeignHandlerWithdrawal notifies the owner of every foreign-owned
// handler in this supervisor's map that the subscription is being withdrawn.
// Map entries stay until the matching commit arrives; owners whose locality
// is already gone are erased directly.
func (s *Supervisor) requestForeignHandlerWithdrawal() {
	for _, pt := range s.subs.allHandlers() {
		ownerSup := pt.Handler.owner.owner
		if ownerSup == nil || ownerSup.leader == s.leader {
			continue
		}

		// An owner that is already terminal (or whose locality is
		// closed) can never commit; erase directly.
		if pt.Handler.owner.State() == StateShutDown ||
			!post(NewMessage(
				pt.Handler.owner.address,
				externalUnsubscription{point: pt},
			)) {

			s.subs.unsubscribe(pt.Address, pt.Handler)
		}
	}
}

// foreignHandlersDrained reports whether no foreign-owned handlers remain in
// the map.
func (s *Supervisor) foreignHandlersDrained() bool {
	for _, pt := range s.subs.allHandlers() {
		ownerSup := pt.Handler.owner.owner
		if ownerSup != nil && ownerSup.leader != s.leader {
			return false
		}
	}
	return true
}

// completeShutdown tears down the locality side of a supervisor that just
// reached SHUT_DOWN: outstanding requests die with their timers, and the
// locality queue closes once every sharing supervisor is down. Queued
// messages that never dispatched are accounted for and dropped.
func (s *Supervisor) completeShutdown() {
	s.pending = make(map[uuid.UUID]*pendingRequest)

	leader := s.leader
	if leader.Actor.State() == StateShutDown && leader.allMembersDown() &&
		!leader.queue.isClosed() {

		dropped := leader.queue.close()
		if len(dropped) > 0 {
			log.DebugS(context.Background(),
				"Locality queue closed with undelivered messages",
				"supervisor_id", leader.id,
				"dropped", len(dropped))
		}
	}

	if s.parent == nil && s.sys != nil {
		s.sys.rootDone()
	}
}
