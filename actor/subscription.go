package actor

import (
	"fmt"
	"reflect"
)

// subscriptionMap is the handler registry of a supervisor, keyed by
// (address, payload type). Handlers for the same key dispatch in insertion
// order. The map is only ever touched by the locality that owns the
// supervisor, so it needs no locking.
type subscriptionMap struct {
	byAddr map[*Address]map[reflect.Type][]*Handler
}

func newSubscriptionMap() subscriptionMap {
	return subscriptionMap{
		byAddr: make(map[*Address]map[reflect.Type][]*Handler),
	}
}

// subscribe appends the handler for (addr, handler type). Duplicates are
// allowed; each registered entry receives its own dispatch.
func (s *subscriptionMap) subscribe(addr *Address, h *Handler) {
	byType, ok := s.byAddr[addr]
	if !ok {
		byType = make(map[reflect.Type][]*Handler)
		s.byAddr[addr] = byType
	}
	byType[h.payloadType] = append(byType[h.payloadType], h)
}

// unsubscribe removes the last matching entry for (addr, handler), searching
// in reverse. Unsubscribing without a prior subscribe is a programmer error
// and panics.
func (s *subscriptionMap) unsubscribe(addr *Address, h *Handler) {
	byType := s.byAddr[addr]
	handlers := byType[h.payloadType]
	for i := len(handlers) - 1; i >= 0; i-- {
		if handlers[i].Equal(h) {
			handlers = append(handlers[:i], handlers[i+1:]...)
			if len(handlers) == 0 {
				delete(byType, h.payloadType)
				if len(byType) == 0 {
					delete(s.byAddr, addr)
				}
			} else {
				byType[h.payloadType] = handlers
			}
			return
		}
	}

	panic(fmt.Sprintf("unsubscribe without subscription: %s type=%v",
		addr, h.payloadType))
}

// tryUnsubscribe removes the last matching entry if present, reporting
// whether one was removed. Used on the cross-locality paths where
// concurrent shutdowns can race the same withdrawal from both ends.
func (s *subscriptionMap) tryUnsubscribe(addr *Address, h *Handler) bool {
	byType := s.byAddr[addr]
	handlers := byType[h.payloadType]
	for i := len(handlers) - 1; i >= 0; i-- {
		if handlers[i].Equal(h) {
			s.unsubscribe(addr, h)
			return true
		}
	}
	return false
}

// handlersFor returns a snapshot of the handlers registered for (addr,
// type). Dispatching over the snapshot lets handlers subscribe or
// unsubscribe freely mid-dispatch; changes become visible on the next
// dispatch, never during the current one.
func (s *subscriptionMap) handlersFor(addr *Address,
	typ reflect.Type) []*Handler {

	byType, ok := s.byAddr[addr]
	if !ok {
		return nil
	}
	handlers, ok := byType[typ]
	if !ok {
		return nil
	}

	snapshot := make([]*Handler, len(handlers))
	copy(snapshot, handlers)
	return snapshot
}

// dispatch invokes every handler registered for the message's (address,
// payload type) and returns the number of handlers that ran.
func (s *subscriptionMap) dispatch(m *Message) int {
	snapshot := s.handlersFor(m.dest, m.payloadType())
	for _, h := range snapshot {
		h.invoke(m)
	}
	return len(snapshot)
}

// allHandlers returns a snapshot of every registered handler.
func (s *subscriptionMap) allHandlers() []SubscriptionPoint {
	var out []SubscriptionPoint
	for addr, byType := range s.byAddr {
		for _, handlers := range byType {
			for _, h := range handlers {
				out = append(out, SubscriptionPoint{
					Address: addr,
					Handler: h,
				})
			}
		}
	}
	return out
}

// purgeOwner removes every entry whose handler is owned by the given actor.
// Used when an actor is torn down before its unsubscription round trips can
// complete (failed init, forced shutdown).
func (s *subscriptionMap) purgeOwner(a *Actor) {
	for addr, byType := range s.byAddr {
		for typ, handlers := range byType {
			kept := handlers[:0]
			for _, h := range handlers {
				if h.owner != a {
					kept = append(kept, h)
				}
			}
			if len(kept) == 0 {
				delete(byType, typ)
			} else {
				byType[typ] = kept
			}
		}
		if len(byType) == 0 {
			delete(s.byAddr, addr)
		}
	}
}

// empty reports whether no handlers remain registered.
func (s *subscriptionMap) empty() bool {
	return len(s.byAddr) == 0
}
