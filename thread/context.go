// Package thread provides a thread-backed system context: Run blocks the
// calling goroutine, pumping the root supervisor's locality queue with timed
// waits bound to the queue's notification channel, until the root supervisor
// reaches SHUT_DOWN.
package thread

import (
	"context"
	"time"

	"github.com/roasbeef/lattice/actor"
)

// Context drives a system from a dedicated goroutine or OS thread. Messages
// may be pushed into the locality from any other thread; the queue wakes the
// blocked Run loop.
type Context struct {
	sys *actor.System
}

// NewContext wraps a system context for thread-backed driving.
func NewContext(sys *actor.System) *Context {
	return &Context{sys: sys}
}

// System returns the wrapped system context.
func (c *Context) System() *actor.System {
	return c.sys
}

// Run blocks the caller, draining the root locality queue and firing request
// timers, until the root supervisor reaches SHUT_DOWN. Between drains it
// waits on the queue's notification channel, bounded by the earliest pending
// timer deadline.
func (c *Context) Run() {
	root := c.sys.Root()

	log.DebugS(context.Background(), "Thread context running",
		"root_state", root.State().String())

	for {
		c.sys.DoProcess()

		if root.State() == actor.StateShutDown {
			log.DebugS(context.Background(),
				"Thread context finished")
			return
		}

		var (
			timer  *time.Timer
			timerC <-chan time.Time
		)
		if deadline, ok := root.NextTimerDeadline(); ok {
			wait := time.Until(deadline)
			if wait < 0 {
				wait = 0
			}
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case <-root.QueueWait():
		case <-timerC:
		}

		if timer != nil {
			timer.Stop()
		}
	}
}
