package actor

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// ActorBuilder is the fluent configuration object for actors. Timeout is
// required; Finish constructs the actor and, when built under a supervisor,
// registers it as a child and kicks off its initialization.
type ActorBuilder struct {
	sup        *Supervisor
	managed    bool
	id         string
	behavior   Behavior
	timeout    fn.Option[time.Duration]
	initTO     fn.Option[time.Duration]
	shutdownTO fn.Option[time.Duration]
	plugins    []Plugin
	configurer func(a *Actor, p Plugin)
}

// BuildActor starts configuring a child actor of this supervisor.
func (s *Supervisor) BuildActor() *ActorBuilder {
	return &ActorBuilder{
		sup:     s,
		managed: true,
	}
}

// BuildActor starts configuring a detached actor: it is constructed but not
// registered with any supervisor, and its plugin chain is driven manually.
// Intended for harness-style usage.
func (s *System) BuildActor() *ActorBuilder {
	return &ActorBuilder{
		sup: s.root,
	}
}

// ID sets the actor's log identifier.
func (b *ActorBuilder) ID(id string) *ActorBuilder {
	b.id = id
	return b
}

// Behavior sets the user behavior.
func (b *ActorBuilder) Behavior(bh Behavior) *ActorBuilder {
	b.behavior = bh
	return b
}

// Timeout sets the timeout applied to both init and shutdown unless
// overridden. Required.
func (b *ActorBuilder) Timeout(d time.Duration) *ActorBuilder {
	b.timeout = fn.Some(d)
	return b
}

// InitTimeout overrides the init timeout.
func (b *ActorBuilder) InitTimeout(d time.Duration) *ActorBuilder {
	b.initTO = fn.Some(d)
	return b
}

// ShutdownTimeout overrides the shutdown timeout.
func (b *ActorBuilder) ShutdownTimeout(d time.Duration) *ActorBuilder {
	b.shutdownTO = fn.Some(d)
	return b
}

// Plugins replaces the default plugin list.
func (b *ActorBuilder) Plugins(ps ...Plugin) *ActorBuilder {
	b.plugins = ps
	return b
}

// Configurer sets a callback invoked alongside Behavior.Configure for each
// plugin activation.
func (b *ActorBuilder) Configurer(cb func(a *Actor, p Plugin)) *ActorBuilder {
	b.configurer = cb
	return b
}

// Finish constructs the actor. For managed builds the actor enters
// INITIALIZING, is adopted by the supervisor, and its init request is
// issued; a plugin vetoing activation yields the actor handle alongside the
// structured failure.
func (b *ActorBuilder) Finish() (*Actor, error) {
	if !b.timeout.IsSome() {
		return nil, ErrTimeoutRequired
	}
	timeout := b.timeout.UnwrapOr(0)

	if b.managed && b.sup.Actor.State() >= StateShuttingDown {
		return nil, ErrSupervisorShutDown
	}

	id := b.id
	if id == "" {
		id = fmt.Sprintf("actor-%s", uuid.NewString()[:8])
	}

	behavior := b.behavior
	if behavior == nil {
		behavior = BaseBehavior{}
	}

	plugins := b.plugins
	if plugins == nil {
		plugins = DefaultActorPlugins()
	}

	a := &Actor{
		id:              id,
		owner:           b.sup,
		behavior:        behavior,
		configurer:      b.configurer,
		plugins:         plugins,
		initTimeout:     b.initTO.UnwrapOr(timeout),
		shutdownTimeout: b.shutdownTO.UnwrapOr(timeout),
	}
	a.activating = append(a.activating, plugins...)
	a.setState(StateNew)

	if !b.managed {
		return a, nil
	}

	a.DoInitialize()
	if a.initFailed {
		err := a.shutdownReason
		a.forceShutDown(err)
		b.sup.sys.escalate(a, err)
		return a, err
	}

	cm := b.sup.childManager
	cm.adopt(a)
	cm.requestInit(a)

	return a, nil
}

// SupervisorBuilder is the fluent configuration object for supervisors.
type SupervisorBuilder struct {
	sys         *System
	parent      *Supervisor
	id          string
	behavior    Behavior
	locality    any
	interceptor Interceptor
	timeout     fn.Option[time.Duration]
	initTO      fn.Option[time.Duration]
	shutdownTO  fn.Option[time.Duration]
	plugins     []Plugin
	configurer  func(a *Actor, p Plugin)
}

// BuildSupervisor starts configuring the root supervisor of this system.
func (s *System) BuildSupervisor() *SupervisorBuilder {
	return &SupervisorBuilder{
		sys: s,
	}
}

// BuildSupervisor starts configuring a child supervisor.
func (s *Supervisor) BuildSupervisor() *SupervisorBuilder {
	return &SupervisorBuilder{
		sys:    s.sys,
		parent: s,
	}
}

// ID sets the supervisor's log identifier.
func (b *SupervisorBuilder) ID(id string) *SupervisorBuilder {
	b.id = id
	return b
}

// Behavior sets the user behavior of the supervisor's actor core.
func (b *SupervisorBuilder) Behavior(bh Behavior) *SupervisorBuilder {
	b.behavior = bh
	return b
}

// Locality selects the opaque equality key of the supervisor's locality.
// Supervisors sharing a key share one queue and one cooperative agent; a nil
// key gives the supervisor its own locality.
func (b *SupervisorBuilder) Locality(key any) *SupervisorBuilder {
	b.locality = key
	return b
}

// Interceptor installs a delivery interception hook.
func (b *SupervisorBuilder) Interceptor(i Interceptor) *SupervisorBuilder {
	b.interceptor = i
	return b
}

// Timeout sets the timeout applied to both init and shutdown unless
// overridden. Required.
func (b *SupervisorBuilder) Timeout(d time.Duration) *SupervisorBuilder {
	b.timeout = fn.Some(d)
	return b
}

// InitTimeout overrides the init timeout.
func (b *SupervisorBuilder) InitTimeout(d time.Duration) *SupervisorBuilder {
	b.initTO = fn.Some(d)
	return b
}

// ShutdownTimeout overrides the shutdown timeout applied when cascading
// shutdown to children.
func (b *SupervisorBuilder) ShutdownTimeout(
	d time.Duration) *SupervisorBuilder {

	b.shutdownTO = fn.Some(d)
	return b
}

// Plugins replaces the default plugin list.
func (b *SupervisorBuilder) Plugins(ps ...Plugin) *SupervisorBuilder {
	b.plugins = ps
	return b
}

// Configurer sets a callback invoked alongside Behavior.Configure for each
// plugin activation.
func (b *SupervisorBuilder) Configurer(
	cb func(a *Actor, p Plugin)) *SupervisorBuilder {

	b.configurer = cb
	return b
}

// Finish constructs the supervisor, resolves its locality leader, and kicks
// off its initialization: via the parent's child manager, or self-issued
// for the root.
func (b *SupervisorBuilder) Finish() (*Supervisor, error) {
	if !b.timeout.IsSome() {
		return nil, ErrTimeoutRequired
	}
	timeout := b.timeout.UnwrapOr(0)

	if b.parent == nil && b.sys.root != nil {
		return nil, ErrRootExists
	}
	if b.parent != nil && b.parent.Actor.State() >= StateShuttingDown {
		return nil, ErrSupervisorShutDown
	}

	id := b.id
	if id == "" {
		id = fmt.Sprintf("supervisor-%s", uuid.NewString()[:8])
	}

	behavior := b.behavior
	if behavior == nil {
		behavior = BaseBehavior{}
	}

	plugins := b.plugins
	if plugins == nil {
		plugins = DefaultSupervisorPlugins()
	}

	sup := &Supervisor{
		sys:         b.sys,
		parent:      b.parent,
		localityKey: b.locality,
		subs:        newSubscriptionMap(),
		pending:     make(map[uuid.UUID]*pendingRequest),
		interceptor: b.interceptor,
	}

	a := &Actor{
		id:              id,
		owner:           sup,
		container:       sup,
		behavior:        behavior,
		configurer:      b.configurer,
		plugins:         plugins,
		initTimeout:     b.initTO.UnwrapOr(timeout),
		shutdownTimeout: b.shutdownTO.UnwrapOr(timeout),
	}
	a.activating = append(a.activating, plugins...)
	a.setState(StateNew)
	sup.Actor = a

	// Resolve the locality leader: a nil key means an own locality, any
	// other key joins the locality of the first supervisor built with it.
	leader := sup
	if b.locality != nil {
		leader = b.sys.localityLeader(b.locality, sup)
	}
	sup.leader = leader
	if leader == sup {
		sup.queue = newLocalityQueue()
		sup.members = []*Supervisor{sup}
	} else {
		leader.addMember(sup)
	}

	if b.parent == nil {
		b.sys.root = sup
	}

	a.DoInitialize()
	if a.initFailed {
		err := a.shutdownReason
		a.forceShutDown(err)
		b.sys.escalate(a, err)
		return sup, err
	}

	if b.parent == nil {
		cm := sup.childManager
		cm.selfInit = RequestOf(a, a.address, initBody{}).
			Timeout(a.initTimeout)
	} else {
		pcm := b.parent.childManager
		pcm.adopt(a)
		pcm.requestInit(a)
	}

	return sup, nil
}
