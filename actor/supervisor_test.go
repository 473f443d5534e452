package actor

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// probe is a user payload used across the supervisor tests.
type probe struct {
	BasePayload

	n int
}

// buildTree creates a root supervisor plus one child supervisor in its own
// locality.
func buildTree(t *testing.T, sys *System) (*Supervisor, *Supervisor) {
	t.Helper()

	root, err := sys.BuildSupervisor().
		ID("root").
		Timeout(time.Second).
		Finish()
	require.NoError(t, err)

	child, err := root.BuildSupervisor().
		ID("child").
		Locality("child-locality").
		Timeout(time.Second).
		Finish()
	require.NoError(t, err)

	return root, child
}

// TestTwoLocalitiesChildShutdownFirst drives two supervisors in distinct
// localities to OPERATIONAL, shuts the child down, then the root.
func TestTwoLocalitiesChildShutdownFirst(t *testing.T) {
	t.Parallel()

	sys := NewSystem(Config{})
	a, b := buildTree(t, sys)
	require.NotEqual(t, a.LocalityLeader(), b.LocalityLeader())

	sys.Start()
	driveAll(a, b)

	require.Equal(t, StateOperational, a.State())
	require.Equal(t, StateOperational, b.State())

	b.DoShutdown(nil)
	driveAll(a, b)

	require.Equal(t, StateOperational, a.State())
	require.Equal(t, StateShutDown, b.State())

	a.DoShutdown(nil)
	driveAll(a, b)

	require.Equal(t, StateShutDown, a.State())
	require.Zero(t, a.QueueLen())
	require.Empty(t, a.Points())
	require.Zero(t, a.SubscriptionCount())
}

// TestRootShutdownCascades verifies root shutdown drains the whole tree with
// no leaked subscriptions.
func TestRootShutdownCascades(t *testing.T) {
	t.Parallel()

	sys := NewSystem(Config{})
	a, b := buildTree(t, sys)

	sys.Start()
	driveAll(a, b)
	require.Equal(t, StateOperational, a.State())
	require.Equal(t, StateOperational, b.State())

	a.DoShutdown(nil)
	driveAll(a, b)

	require.Equal(t, StateShutDown, a.State())
	require.Equal(t, StateShutDown, b.State())
	require.Zero(t, a.SubscriptionCount())
	require.Zero(t, b.SubscriptionCount())
	require.Empty(t, a.Points())
	require.Empty(t, b.Points())
}

// TestForeignSubscription subscribes a handler owned by one locality to an
// address owned by another, then shuts the address owner down first: the
// subscriber observes the withdrawal and keeps running.
func TestForeignSubscription(t *testing.T) {
	t.Parallel()

	sys := NewSystem(Config{})

	root, err := sys.BuildSupervisor().Timeout(time.Second).Finish()
	require.NoError(t, err)

	s1, err := root.BuildSupervisor().
		ID("s1").
		Locality("loc-1").
		Timeout(time.Second).
		Finish()
	require.NoError(t, err)

	s2, err := root.BuildSupervisor().
		ID("s2").
		Locality("loc-2").
		Timeout(time.Second).
		Finish()
	require.NoError(t, err)

	sys.Start()
	driveAll(root, s1, s2)

	// S2 subscribes one of its handlers to S1's address.
	var observed int
	before := len(s2.Points())
	s2.SubscribeTo(s1.Address(), NewHandler(s2.Actor, func(probe) {
		observed++
	}))
	driveAll(root, s1, s2)
	require.Len(t, s2.Points(), before+1)

	s2.Send(s1.Address(), probe{n: 1})
	driveAll(root, s1, s2)
	require.Equal(t, 1, observed)

	// Shutting S1 down withdraws the foreign subscription; S2 stays
	// OPERATIONAL.
	s1.DoShutdown(nil)
	driveAll(root, s1, s2)

	require.Equal(t, StateShutDown, s1.State())
	require.Equal(t, StateOperational, s2.State())
	require.Len(t, s2.Points(), before)
	require.Zero(t, s1.SubscriptionCount())

	s2.DoShutdown(nil)
	driveAll(root, s1, s2)
	require.Equal(t, StateShutDown, s2.State())
}

// TestForeignSubscriberShutdownFirst shuts the handler-owning side down
// first: the subscriber drains its foreign point through the two-step
// handshake and the address owner's map ends clean.
func TestForeignSubscriberShutdownFirst(t *testing.T) {
	t.Parallel()

	sys := NewSystem(Config{})

	root, err := sys.BuildSupervisor().Timeout(time.Second).Finish()
	require.NoError(t, err)

	s1, err := root.BuildSupervisor().
		Locality("loc-1").Timeout(time.Second).Finish()
	require.NoError(t, err)

	s2, err := root.BuildSupervisor().
		Locality("loc-2").Timeout(time.Second).Finish()
	require.NoError(t, err)

	sys.Start()
	driveAll(root, s1, s2)

	s2.SubscribeTo(s1.Address(), NewHandler(s2.Actor, func(probe) {}))
	driveAll(root, s1, s2)

	baseline := s1.SubscriptionCount()

	s2.DoShutdown(nil)
	driveAll(root, s1, s2)

	require.Equal(t, StateShutDown, s2.State())
	require.Equal(t, StateOperational, s1.State())
	require.Equal(t, baseline-1, s1.SubscriptionCount())
}

// TestSharedLocalityDispatchOrder verifies that two supervisors sharing a
// locality share one queue and that handlers on the same (address, type)
// dispatch in subscription order.
func TestSharedLocalityDispatchOrder(t *testing.T) {
	t.Parallel()

	sys := NewSystem(Config{})

	root, err := sys.BuildSupervisor().
		Locality("main").
		Timeout(time.Second).
		Finish()
	require.NoError(t, err)

	s1, err := root.BuildSupervisor().
		ID("s1").Locality("main").Timeout(time.Second).Finish()
	require.NoError(t, err)

	s2, err := root.BuildSupervisor().
		ID("s2").Locality("main").Timeout(time.Second).Finish()
	require.NoError(t, err)

	require.Equal(t, root, s1.LocalityLeader())
	require.Equal(t, root, s2.LocalityLeader())

	sys.Start()
	driveAll(root)

	var order []string
	s1.SubscribeTo(root.Address(), NewHandler(s1.Actor, func(p probe) {
		order = append(order, "s1")
	}))
	s2.SubscribeTo(root.Address(), NewHandler(s2.Actor, func(p probe) {
		order = append(order, "s2")
	}))
	driveAll(root)

	root.Send(root.Address(), probe{n: 1})
	root.Send(root.Address(), probe{n: 2})

	// Driving any member drains the shared queue.
	driveAll(s2)

	require.Equal(t, []string{"s1", "s2", "s1", "s2"}, order)
}

// tagInterceptor records intercepted payload tags and can drop probes.
type tagInterceptor struct {
	seen  int
	drops bool
}

func (i *tagInterceptor) Intercept(m *Message, tag reflect.Type,
	next func()) {

	if tag == reflect.TypeOf(probe{}) {
		i.seen++
		if i.drops {
			return
		}
	}
	next()
}

// TestInterceptor verifies the interception hook observes deliveries and can
// drop a message by not invoking the continuation.
func TestInterceptor(t *testing.T) {
	t.Parallel()

	sys := NewSystem(Config{})

	icept := &tagInterceptor{}
	root, err := sys.BuildSupervisor().
		Interceptor(icept).
		Timeout(time.Second).
		Finish()
	require.NoError(t, err)

	sys.Start()
	driveAll(root)
	require.Equal(t, StateOperational, root.State())

	var got int
	root.SubscribeTo(root.Address(), NewHandler(root.Actor, func(probe) {
		got++
	}))
	driveAll(root)

	root.Send(root.Address(), probe{})
	driveAll(root)
	require.Equal(t, 1, icept.seen)
	require.Equal(t, 1, got)

	icept.drops = true
	root.Send(root.Address(), probe{})
	driveAll(root)
	require.Equal(t, 2, icept.seen)
	require.Equal(t, 1, got)
}
