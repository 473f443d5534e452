package actor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSubscriptionMapDuplicatesAndReverseRemoval verifies duplicates
// dispatch in insertion order and unsubscribe removes the last matching
// entry.
func TestSubscriptionMapDuplicatesAndReverseRemoval(t *testing.T) {
	t.Parallel()

	subs := newSubscriptionMap()
	owner := &Actor{id: "owner"}
	addr := &Address{}

	var calls int
	h := NewHandler(owner, func(probe) {
		calls++
	})

	subs.subscribe(addr, h)
	subs.subscribe(addr, h)

	n := subs.dispatch(NewMessage(addr, probe{}))
	require.Equal(t, 2, n)
	require.Equal(t, 2, calls)

	subs.unsubscribe(addr, h)
	n = subs.dispatch(NewMessage(addr, probe{}))
	require.Equal(t, 1, n)

	subs.unsubscribe(addr, h)
	require.True(t, subs.empty())

	require.Panics(t, func() {
		subs.unsubscribe(addr, h)
	})
}

// TestSubscriptionMapSnapshotDispatch verifies subscriptions made during a
// dispatch become visible on the next dispatch, never the current one.
func TestSubscriptionMapSnapshotDispatch(t *testing.T) {
	t.Parallel()

	subs := newSubscriptionMap()
	owner := &Actor{id: "owner"}
	addr := &Address{}

	var late int
	lateHandler := NewHandler(owner, func(probe) {
		late++
	})

	first := NewHandler(owner, func(probe) {
		subs.subscribe(addr, lateHandler)
	})
	subs.subscribe(addr, first)

	n := subs.dispatch(NewMessage(addr, probe{}))
	require.Equal(t, 1, n)
	require.Zero(t, late)

	n = subs.dispatch(NewMessage(addr, probe{}))
	require.Equal(t, 2, n)
	require.Equal(t, 1, late)
}

// TestSubscriptionMapUnsubscribeDuringDispatch verifies a handler removing
// itself mid-dispatch still completes the current snapshot.
func TestSubscriptionMapUnsubscribeDuringDispatch(t *testing.T) {
	t.Parallel()

	subs := newSubscriptionMap()
	owner := &Actor{id: "owner"}
	addr := &Address{}

	var aCalls, bCalls int
	var hA *Handler
	hA = NewHandler(owner, func(probe) {
		aCalls++
		subs.unsubscribe(addr, hA)
	})
	hB := NewHandler(owner, func(probe) {
		bCalls++
	})

	subs.subscribe(addr, hA)
	subs.subscribe(addr, hB)

	n := subs.dispatch(NewMessage(addr, probe{}))
	require.Equal(t, 2, n)
	require.Equal(t, 1, aCalls)
	require.Equal(t, 1, bCalls)

	n = subs.dispatch(NewMessage(addr, probe{}))
	require.Equal(t, 1, n)
	require.Equal(t, 1, aCalls)
	require.Equal(t, 2, bCalls)
}

// TestHandlerEquality verifies the (owner, type, target) discriminant.
func TestHandlerEquality(t *testing.T) {
	t.Parallel()

	a1 := &Actor{id: "a1"}
	a2 := &Actor{id: "a2"}

	var hits int
	fn := func(probe) {}
	other := func(probe) { hits++ }
	_ = hits

	require.True(t, NewHandler(a1, fn).Equal(NewHandler(a1, fn)))
	require.False(t, NewHandler(a1, fn).Equal(NewHandler(a2, fn)))
	require.False(t, NewHandler(a1, fn).Equal(NewHandler(a1, other)))
}
