package actor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
)

// State is an actor's lifecycle state. Transitions are driven only by plugin
// chain progress; SHUT_DOWN is terminal and left only by destruction.
type State int32

const (
	// StateNew is the freshly constructed state; no plugin is active.
	StateNew State = iota

	// StateInitializing means the plugin chain is activating.
	StateInitializing

	// StateInitialized means every plugin completed its init reaction.
	StateInitialized

	// StateOperational means the actor processes user messages.
	StateOperational

	// StateShuttingDown means the plugin chain is deactivating in
	// reverse order.
	StateShuttingDown

	// StateShutDown is terminal; subscription points are empty.
	StateShutDown
)

// String returns the state's human-readable name.
func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateInitializing:
		return "INITIALIZING"
	case StateInitialized:
		return "INITIALIZED"
	case StateOperational:
		return "OPERATIONAL"
	case StateShuttingDown:
		return "SHUTTING_DOWN"
	case StateShutDown:
		return "SHUT_DOWN"
	default:
		return "UNKNOWN"
	}
}

// Behavior defines the user-supplied logic of an actor. It is a strategy
// interface: the runtime owns the lifecycle, the behavior owns the domain.
type Behavior interface {
	// Configure is invoked once per plugin during that plugin's
	// activation, letting the behavior wire handlers (via the Starter
	// plugin) and declare resources (via the Resources plugin).
	Configure(a *Actor, p Plugin)

	// OnStart is invoked on the OPERATIONAL transition.
	OnStart(a *Actor)
}

// BaseBehavior is a no-op Behavior for embedding.
type BaseBehavior struct{}

// Configure implements Behavior.
func (BaseBehavior) Configure(*Actor, Plugin) {}

// OnStart implements Behavior.
func (BaseBehavior) OnStart(*Actor) {}

// InitFinisher is an optional interface a Behavior can implement to observe
// the INITIALIZING -> INITIALIZED transition.
type InitFinisher interface {
	OnInitFinish(a *Actor)
}

// ShutdownFinisher is an optional interface a Behavior can implement to
// observe the transition to SHUT_DOWN.
type ShutdownFinisher interface {
	OnShutdownFinish(a *Actor)
}

// Actor is the runtime core of a single actor: its lifecycle state, plugin
// chain, subscription points, and request bookkeeping. All fields are owned
// by the actor's locality; only the state word may be read from outside it.
type Actor struct {
	// id identifies the actor in logs.
	id string

	// owner is the supervisor owning the actor's addresses and queue.
	// Nil only for detached actors driven manually.
	owner *Supervisor

	// container is non-nil when this actor core belongs to a supervisor.
	container *Supervisor

	// behavior is the user-supplied logic.
	behavior Behavior

	// configurer is the builder-supplied configuration callback, invoked
	// alongside Behavior.Configure for each plugin activation.
	configurer func(a *Actor, p Plugin)

	// address is the actor's primary address.
	address *Address

	// addresses holds additional addresses the actor created.
	addresses []*Address

	// plugins is the configured plugin list in activation order.
	plugins []Plugin

	// activating holds plugins not yet fully activated.
	activating []Plugin

	// activated holds plugins that committed activation, in order.
	activated []Plugin

	// deactivating holds plugins not yet fully deactivated, in
	// list-reverse order.
	deactivating []Plugin

	// points is the actor's subscription list in insertion order.
	points []SubscriptionPoint

	// state is the lifecycle state, atomically readable across
	// localities.
	state atomic.Int32

	// initFailed is set when a plugin vetoes activation.
	initFailed bool

	// initReply answers the in-flight init request, nil when none.
	initReply func(err error)

	// shutdownReply answers the in-flight shutdown request, nil when
	// none.
	shutdownReply func(err error)

	// shutdownReason is the failure chain behind the shutdown, nil for
	// an orderly one.
	shutdownReason error

	// initTimeout bounds the init request issued by the supervisor.
	initTimeout time.Duration

	// shutdownTimeout bounds the shutdown requests this actor, when it
	// is a supervisor, issues to its children. The shutdown request this
	// actor receives is bounded by its parent's shutdownTimeout.
	shutdownTimeout time.Duration

	// progressInit and progressShutdown guard against re-entrant chain
	// drives: a plugin readiness callback firing inside initContinue or
	// shutdownContinue observes the bit and defers to the running drive.
	progressInit     bool
	progressShutdown bool
}

// ID returns the actor's identifier.
func (a *Actor) ID() string {
	return a.id
}

// Address returns the actor's primary address, nil before the address maker
// plugin activated.
func (a *Actor) Address() *Address {
	return a.address
}

// Owner returns the supervisor owning this actor's addresses.
func (a *Actor) Owner() *Supervisor {
	return a.owner
}

// State returns the lifecycle state. Safe to call from any locality.
func (a *Actor) State() State {
	return State(a.state.Load())
}

func (a *Actor) setState(s State) {
	log.TraceS(context.Background(), "Actor state transition",
		"actor_id", a.id,
		"from", a.State().String(),
		"to", s.String())

	a.state.Store(int32(s))
}

// ShutdownReason returns the failure chain behind the actor's shutdown, nil
// before shutdown or for an orderly one.
func (a *Actor) ShutdownReason() error {
	return a.shutdownReason
}

// Plugins returns the configured plugin list in activation order.
func (a *Actor) Plugins() []Plugin {
	return a.plugins
}

// PluginByID returns the configured plugin with the given identity, nil when
// absent.
func (a *Actor) PluginByID(id PluginID) Plugin {
	for _, p := range a.plugins {
		if p.ID() == id {
			return p
		}
	}
	return nil
}

// ActivatingPlugins returns the plugins not yet fully activated.
func (a *Actor) ActivatingPlugins() []Plugin {
	return a.activating
}

// DeactivatingPlugins returns the plugins not yet fully deactivated.
func (a *Actor) DeactivatingPlugins() []Plugin {
	return a.deactivating
}

// Points returns a copy of the actor's subscription points in insertion
// order.
func (a *Actor) Points() []SubscriptionPoint {
	out := make([]SubscriptionPoint, len(a.points))
	copy(out, a.points)
	return out
}

// configure runs the behavior and builder configuration hooks against a
// plugin during its activation.
func (a *Actor) configure(p Plugin) {
	if a.behavior != nil {
		a.behavior.Configure(a, p)
	}
	if a.configurer != nil {
		a.configurer(a, p)
	}
}

// DoInitialize is idempotent: it ensures the actor has entered the plugin
// activation phase. The owning supervisor follows up with an init request
// that drives the init chain to completion.
func (a *Actor) DoInitialize() {
	if a.State() != StateNew {
		return
	}

	a.setState(StateInitializing)
	a.ActivatePlugins()
}

// ActivatePlugins walks the activation queue in list order, activating each
// plugin. A plugin that commits with ok=false aborts the walk: the plugins
// that already succeeded are reverse-deactivated and the actor's init has
// failed.
func (a *Actor) ActivatePlugins() {
	for _, p := range a.plugins {
		if a.initFailed {
			return
		}
		if !pluginQueued(a.activating, p) {
			continue
		}

		p.Activate(a)
	}
}

// DeactivatePlugins reverse-deactivates every plugin that committed
// activation. Used directly on the failed-init path and by tests driving
// the chain manually; the message-driven path goes through shutdownStart.
func (a *Actor) DeactivatePlugins() {
	for i := len(a.activated) - 1; i >= 0; i-- {
		a.deactivating = append(a.deactivating, a.activated[i])
	}
	a.activated = nil

	queue := make([]Plugin, len(a.deactivating))
	copy(queue, a.deactivating)
	for _, p := range queue {
		p.Deactivate()
	}
}

// CommitPluginActivation completes a plugin's activation. With ok=true the
// plugin leaves the activating queue unless it holds an INIT reaction, in
// which case it stays queued until its HandleInit reports readiness. With
// ok=false the actor's init has failed: the already activated plugins are
// reverse-deactivated and the failing plugin stays in the activating queue
// as the marker of where the chain stopped.
func (a *Actor) CommitPluginActivation(p Plugin, ok bool) {
	if ok {
		a.activated = append(a.activated, p)
		if p.Reactions()&ReactionInit == 0 {
			a.activating = removePlugin(a.activating, p)
		}
		return
	}

	log.DebugS(context.Background(), "Plugin vetoed activation",
		"actor_id", a.id, "plugin", string(p.ID()))

	a.initFailed = true
	a.shutdownReason = errors.Wrapf(
		ErrPluginInitFailed, "plugin %s", p.ID(),
	)
	a.DeactivatePlugins()
}

// CommitPluginDeactivation completes a plugin's deactivation, removing it
// from the deactivating queue.
func (a *Actor) CommitPluginDeactivation(p Plugin) {
	a.deactivating = removePlugin(a.deactivating, p)
}

// initContinue drives the init chain: every still-queued plugin holding an
// INIT reaction is asked for readiness in list order. The first veto parks
// the chain until the plugin revives it. When the queue drains the actor
// becomes INITIALIZED and the init request is answered.
func (a *Actor) initContinue() {
	if a.progressInit || a.State() != StateInitializing {
		return
	}
	a.progressInit = true
	defer func() { a.progressInit = false }()

	for len(a.activating) > 0 {
		p := a.activating[0]
		if p.Reactions()&ReactionInit != 0 && !p.HandleInit() {
			return
		}
		a.activating = removePlugin(a.activating, p)
	}

	a.setState(StateInitialized)
	a.initFinish()
}

// initFinish fires at the INITIALIZING -> INITIALIZED boundary: it notifies
// the behavior and answers the pending init request.
func (a *Actor) initFinish() {
	if f, ok := a.behavior.(InitFinisher); ok {
		f.OnInitFinish(a)
	}

	if a.initReply != nil {
		reply := a.initReply
		a.initReply = nil
		reply(nil)
	}
}

// shutdownStart moves the actor to SHUTTING_DOWN and seeds the deactivating
// queue with the activated plugins in reverse order. Idempotent once
// shutting down.
func (a *Actor) shutdownStart(reason error) {
	if a.State() >= StateShuttingDown {
		return
	}
	if a.shutdownReason == nil {
		a.shutdownReason = reason
	}

	a.setState(StateShuttingDown)

	// An init request still in flight can never complete now; answer it
	// so the supervisor is not left waiting on the init timer.
	if a.initReply != nil {
		reply := a.initReply
		a.initReply = nil
		reply(errors.Wrap(ErrCancelled, "shutdown during init"))
	}

	a.activating = nil
	for i := len(a.activated) - 1; i >= 0; i-- {
		a.deactivating = append(a.deactivating, a.activated[i])
	}
	a.activated = nil
}

// shutdownContinue drives the shutdown chain: the head of the deactivating
// queue is asked for readiness; a veto parks the chain until the plugin
// revives it, otherwise the plugin deactivates and the walk continues. When
// the queue drains the actor reaches SHUT_DOWN.
func (a *Actor) shutdownContinue() {
	if a.progressShutdown || a.State() != StateShuttingDown {
		return
	}
	a.progressShutdown = true
	defer func() { a.progressShutdown = false }()

	for len(a.deactivating) > 0 {
		p := a.deactivating[0]
		if p.Reactions()&ReactionShutdown != 0 && !p.HandleShutdown() {
			return
		}

		p.Deactivate()

		// A plugin whose Deactivate defers its commit stays at the
		// head; park the chain until it commits.
		if len(a.deactivating) > 0 && a.deactivating[0] == p {
			return
		}
	}

	a.finishShutdown()
}

// finishShutdown completes the transition to SHUT_DOWN: the pending shutdown
// request is answered, the behavior notified, and (for supervisors) the
// locality torn down.
func (a *Actor) finishShutdown() {
	a.setState(StateShutDown)

	if a.shutdownReply != nil {
		reply := a.shutdownReply
		a.shutdownReply = nil
		reply(nil)
	}

	if f, ok := a.behavior.(ShutdownFinisher); ok {
		f.OnShutdownFinish(a)
	}

	if a.container != nil {
		a.container.completeShutdown()
	}

	log.DebugS(context.Background(), "Actor shut down",
		"actor_id", a.id)
}

// forceShutDown rips the actor to SHUT_DOWN without the cooperative
// protocol. Used when a shutdown request timed out or init failed: the
// parent cannot be blocked by a misbehaving child, and the terminal state
// must still imply empty subscription points.
func (a *Actor) forceShutDown(reason error) {
	if a.State() == StateShutDown {
		return
	}
	if a.shutdownReason == nil {
		a.shutdownReason = reason
	}

	if a.owner != nil {
		a.owner.subs.purgeOwner(a)
	}
	a.points = nil
	a.activating = nil
	a.deactivating = nil
	a.activated = nil
	a.initReply = nil
	a.shutdownReply = nil
	a.setState(StateShutDown)

	if a.container != nil {
		a.container.completeShutdown()
	}
}

// DoShutdown requests a graceful shutdown, posting a shutdown trigger to the
// owning supervisor. Safe to call from any state; a no-op once SHUT_DOWN.
// The reason, which may be nil for an orderly shutdown, seeds the actor's
// shutdown reason chain.
func (a *Actor) DoShutdown(reason error) {
	if a.State() == StateShutDown {
		return
	}

	if a.owner == nil {
		// Detached actors have no supervisor to route through; drive
		// the chain directly.
		a.shutdownStart(reason)
		a.shutdownContinue()
		return
	}

	a.Send(a.owner.address, shutdownTrigger{
		target: a.address,
		reason: reason,
	})
}

// Send enqueues a payload to the destination address via its supervisor's
// locality queue.
func (a *Actor) Send(dest *Address, p Payload) {
	post(NewMessage(dest, p))
}

// Subscribe subscribes a handler to the actor's own primary address.
func (a *Actor) Subscribe(h *Handler) {
	a.SubscribeTo(a.address, h)
}

// SubscribeTo subscribes a handler to an arbitrary address, local or
// foreign. The point is recorded once the confirmation round trip completes.
func (a *Actor) SubscribeTo(addr *Address, h *Handler) {
	a.owner.subscribeHandler(addr, h)
}

// Unsubscribe withdraws a previously recorded subscription point.
func (a *Actor) Unsubscribe(point SubscriptionPoint) {
	a.owner.unsubscribeHandler(point)
}

// CreateAddress mints an additional address owned by the actor.
func (a *Actor) CreateAddress() *Address {
	addr := a.owner.makeAddress()
	a.addresses = append(a.addresses, addr)
	return addr
}

// addPoint records a confirmed subscription point.
func (a *Actor) addPoint(point SubscriptionPoint) {
	a.points = append(a.points, point)
}

// removePoint removes the last matching point, searching in reverse.
// Removal without a prior subscription is a programmer error.
func (a *Actor) removePoint(point SubscriptionPoint) {
	for i := len(a.points) - 1; i >= 0; i-- {
		if a.points[i].equal(point) {
			a.points = append(a.points[:i], a.points[i+1:]...)
			return
		}
	}

	panic("no subscription point found")
}

// removePointIfPresent removes the last matching point if present, reporting
// whether one was removed. Used on cross-locality paths where both ends of a
// foreign subscription may withdraw it concurrently.
func (a *Actor) removePointIfPresent(point SubscriptionPoint) bool {
	for i := len(a.points) - 1; i >= 0; i-- {
		if a.points[i].equal(point) {
			a.points = append(a.points[:i], a.points[i+1:]...)
			return true
		}
	}
	return false
}

// post enqueues a message on the destination locality's queue. Messages to a
// closed locality are dropped: nothing outlives a locality's shutdown.
func post(m *Message) bool {
	leader := m.dest.sup.leader
	if !leader.queue.push(m) {
		log.TraceS(context.Background(), "Message dropped, locality closed",
			"dest", m.dest.String())
		return false
	}
	return true
}

// pluginQueued reports whether p is still in the given queue.
func pluginQueued(queue []Plugin, p Plugin) bool {
	for _, q := range queue {
		if q == p {
			return true
		}
	}
	return false
}

// removePlugin removes p from the queue, preserving order.
func removePlugin(queue []Plugin, p Plugin) []Plugin {
	for i, q := range queue {
		if q == p {
			return append(queue[:i], queue[i+1:]...)
		}
	}
	return queue
}
