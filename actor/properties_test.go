package actor

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

// TestTreeQuiescenceProperty checks that for any mix of early child
// shutdowns followed by a root shutdown, every actor ends in a resting state
// (OPERATIONAL or SHUT_DOWN, never stranded mid-transition), and the final
// root shutdown reaches a fixed point with empty queues and no leaked
// subscriptions.
func TestTreeQuiescenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sys := NewSystem(Config{})

		root, err := sys.BuildSupervisor().
			Timeout(time.Second).
			Finish()
		if err != nil {
			t.Fatal(err)
		}

		numChildren := rapid.IntRange(0, 5).Draw(t, "numChildren")
		children := make([]*Actor, numChildren)
		early := make([]bool, numChildren)
		for i := 0; i < numChildren; i++ {
			child, err := root.BuildActor().
				Timeout(time.Second).
				Finish()
			if err != nil {
				t.Fatal(err)
			}
			children[i] = child
			early[i] = rapid.Bool().Draw(t, "stopEarly")
		}

		sys.Start()
		driveAll(root)

		for i, child := range children {
			if early[i] {
				child.DoShutdown(nil)
			}
		}
		driveAll(root)

		for i, child := range children {
			want := StateOperational
			if early[i] {
				want = StateShutDown
			}
			if child.State() != want {
				t.Fatalf("child %d: state %v, want %v",
					i, child.State(), want)
			}
		}

		sys.Shutdown(nil)
		driveAll(root)

		if root.State() != StateShutDown {
			t.Fatalf("root not shut down: %v", root.State())
		}
		for i, child := range children {
			if child.State() != StateShutDown {
				t.Fatalf("child %d not shut down", i)
			}
			if len(child.Points()) != 0 {
				t.Fatalf("child %d leaked points", i)
			}
		}
		if root.QueueLen() != 0 {
			t.Fatalf("queue not drained: %d", root.QueueLen())
		}
		if root.SubscriptionCount() != 0 {
			t.Fatalf("subscriptions leaked: %d",
				root.SubscriptionCount())
		}
	})
}

// TestSubscriptionCountProperty checks that outside of dispatch, the point
// list size always equals successful subscribes minus unsubscribes.
func TestSubscriptionCountProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sys := NewSystem(Config{})

		root, err := sys.BuildSupervisor().
			Timeout(time.Second).
			Finish()
		if err != nil {
			t.Fatal(err)
		}

		sys.Start()
		driveAll(root)

		base := len(root.Points())

		var handlers []*Handler
		ops := rapid.IntRange(1, 24).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			subscribe := len(handlers) == 0 ||
				rapid.Bool().Draw(t, "subscribe")

			if subscribe {
				h := NewHandler(root.Actor, func(probe) {})
				root.SubscribeTo(root.Address(), h)
				handlers = append(handlers, h)
			} else {
				h := handlers[len(handlers)-1]
				handlers = handlers[:len(handlers)-1]
				root.Unsubscribe(SubscriptionPoint{
					Address: root.Address(),
					Handler: h,
				})
			}

			driveAll(root)

			if got := len(root.Points()); got != base+len(handlers) {
				t.Fatalf("points=%d, want %d",
					got, base+len(handlers))
			}
		}
	})
}
