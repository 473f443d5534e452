package actor

import (
	"context"
	"sync"
	"time"
)

// Config holds the configuration of a system context.
type Config struct {
	// OnError receives unrecoverable failures no plugin handled: init
	// failures (plugin vetoes, init timeouts, shutdown during init) and
	// child shutdown timeouts. Reasons passed to DoShutdown or Shutdown
	// become the actor's shutdown reason and are not passed to OnError.
	// The failed actor may already be SHUT_DOWN when the callback runs.
	OnError func(failed *Actor, err error)
}

// System is the root container of a supervision tree: it owns the root
// supervisor, escalates unrecoverable errors, and exposes the drive entry
// points host loops pump.
type System struct {
	// cfg is the system configuration.
	cfg Config

	// root is the root supervisor, set by the first BuildSupervisor.
	root *Supervisor

	// locMu guards localities.
	locMu sync.Mutex

	// localities maps locality keys to their leader supervisors.
	localities map[any]*Supervisor

	// done closes when the root supervisor reaches SHUT_DOWN.
	done     chan struct{}
	doneOnce sync.Once
}

// NewSystem creates a system context.
func NewSystem(cfg Config) *System {
	return &System{
		cfg:        cfg,
		localities: make(map[any]*Supervisor),
		done:       make(chan struct{}),
	}
}

// Root returns the root supervisor, nil before BuildSupervisor.
func (s *System) Root() *Supervisor {
	return s.root
}

// Start enqueues the initial start trigger into the root supervisor. The
// root becomes OPERATIONAL once its init chain completed and the trigger is
// processed.
func (s *System) Start() {
	post(NewMessage(s.root.address, startTrigger{}))
}

// Shutdown requests graceful termination of the whole tree. The reason,
// which may be nil for an orderly shutdown, seeds the root's shutdown
// reason chain.
func (s *System) Shutdown(reason error) {
	s.root.DoShutdown(reason)
}

// DoProcess pumps the root supervisor's locality queue until empty,
// returning the number of messages processed.
func (s *System) DoProcess() int {
	return s.root.DoProcess()
}

// Done returns a channel closed once the root supervisor reaches SHUT_DOWN.
func (s *System) Done() <-chan struct{} {
	return s.done
}

// rootDone marks the root supervisor terminated.
func (s *System) rootDone() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

// escalate dispatches an unrecoverable failure to the configured error hook.
func (s *System) escalate(failed *Actor, err error) {
	log.ErrorS(context.Background(), "Unhandled actor failure", err,
		"actor_id", failed.id)

	if s.cfg.OnError != nil {
		s.cfg.OnError(failed, err)
	}
}

// localityLeader resolves the leader for a locality key, registering the
// candidate as leader on first use of the key.
func (s *System) localityLeader(key any, candidate *Supervisor) *Supervisor {
	s.locMu.Lock()
	defer s.locMu.Unlock()

	if leader, ok := s.localities[key]; ok {
		return leader
	}
	s.localities[key] = candidate
	return candidate
}

// NextTimerDeadline returns the earliest pending request deadline across the
// supervisor's locality.
func (s *Supervisor) NextTimerDeadline() (time.Time, bool) {
	return s.nextDeadline()
}

// QueueWait returns the channel a blocked driver can select on: it is
// signalled when a message is enqueued and closed when the locality queue
// closes.
func (s *Supervisor) QueueWait() <-chan struct{} {
	return s.leader.queue.wait()
}
