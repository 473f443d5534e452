package actor

// Reaction is a bitset of the lifecycle hooks a plugin participates in. A
// plugin reacting to INIT or SHUTDOWN may veto the actor's state advance by
// returning false from the corresponding handler; the actor calls it back
// when a plugin signals that its condition changed.
type Reaction uint8

const (
	// ReactionInit gates the INITIALIZING -> INITIALIZED transition.
	ReactionInit Reaction = 1 << iota

	// ReactionShutdown gates the SHUTTING_DOWN -> SHUT_DOWN transition.
	ReactionShutdown

	// ReactionStart is notified on the OPERATIONAL transition.
	ReactionStart

	// ReactionSubscription is notified when a subscription point is
	// confirmed.
	ReactionSubscription

	// ReactionUnsubscription is notified when a subscription point is
	// withdrawn.
	ReactionUnsubscription
)

// PluginID uniquely identifies a plugin kind. Each actor holds at most one
// plugin per identity.
type PluginID string

// Plugin is a modular contributor to an actor's lifecycle and messaging
// capabilities. A plugin instance is attached to exactly one actor and lives
// no longer than it. Concrete plugins embed BasePlugin and override the
// hooks they participate in.
type Plugin interface {
	// ID returns the plugin's type identity.
	ID() PluginID

	// Activate attaches the plugin to the actor. The plugin performs its
	// setup and must commit via actor.CommitPluginActivation, with
	// ok=false to veto the actor's init.
	Activate(a *Actor)

	// Deactivate runs the plugin's teardown and must eventually commit
	// via actor.CommitPluginDeactivation.
	Deactivate()

	// Reactions returns the set of hooks the plugin participates in.
	Reactions() Reaction

	// HandleInit is called while the actor drives its init chain.
	// Returning false defers the INITIALIZED transition until the plugin
	// revives the chain.
	HandleInit() bool

	// HandleShutdown is called while the actor drives its shutdown
	// chain. Returning false defers the SHUT_DOWN transition.
	HandleShutdown() bool

	// HandleStart is notified on the OPERATIONAL transition.
	HandleStart()

	// HandleSubscription is notified when a subscription point owned by
	// the actor is confirmed.
	HandleSubscription(point SubscriptionPoint)

	// HandleUnsubscription is notified when a subscription point owned
	// by the actor is withdrawn. external is true when the point's
	// address is owned by a supervisor in another locality, whichever
	// side started the withdrawal.
	HandleUnsubscription(point SubscriptionPoint, external bool)
}

// BasePlugin carries the machinery shared by all plugins: the actor
// back-pointer, the reaction mask, and the default hook implementations.
// Concrete plugins embed it and bind their outer value at construction so
// commits reference the concrete plugin rather than the embedded base.
type BasePlugin struct {
	// self is the concrete plugin embedding this base.
	self Plugin

	// actor is the actor the plugin is attached to.
	actor *Actor

	// reactions is the plugin's current reaction mask.
	reactions Reaction
}

// bind records the concrete plugin embedding this base. Every concrete
// plugin constructor must call it before the plugin is activated.
func (p *BasePlugin) bind(self Plugin) {
	p.self = self
}

// Bind exposes bind for plugins defined outside this package.
func (p *BasePlugin) Bind(self Plugin) {
	p.bind(self)
}

// Actor returns the actor the plugin is attached to, nil before activation.
func (p *BasePlugin) Actor() *Actor {
	return p.actor
}

// ReactOn adds hooks to the plugin's reaction mask.
func (p *BasePlugin) ReactOn(r Reaction) {
	p.reactions |= r
}

// ReactOff removes hooks from the plugin's reaction mask.
func (p *BasePlugin) ReactOff(r Reaction) {
	p.reactions &^= r
}

// Reactions returns the plugin's current reaction mask.
func (p *BasePlugin) Reactions() Reaction {
	return p.reactions
}

// Activate attaches the plugin, runs the actor's configuration hooks against
// it, and commits the activation as successful. Plugins needing to veto
// override Activate and commit with ok=false instead.
func (p *BasePlugin) Activate(a *Actor) {
	p.actor = a
	a.configure(p.self)
	a.CommitPluginActivation(p.self, true)
}

// Deactivate commits the deactivation immediately. Plugins with asynchronous
// teardown override this and commit once drained.
func (p *BasePlugin) Deactivate() {
	p.actor.CommitPluginDeactivation(p.self)
}

// HandleInit reports readiness by default.
func (p *BasePlugin) HandleInit() bool {
	return true
}

// HandleShutdown reports readiness by default.
func (p *BasePlugin) HandleShutdown() bool {
	return true
}

// HandleStart is a no-op by default.
func (p *BasePlugin) HandleStart() {}

// HandleSubscription is a no-op by default.
func (p *BasePlugin) HandleSubscription(SubscriptionPoint) {}

// HandleUnsubscription is a no-op by default.
func (p *BasePlugin) HandleUnsubscription(SubscriptionPoint, bool) {}

// Compile-time checks that the core plugins satisfy the Plugin interface.
var (
	_ Plugin = (*AddressMaker)(nil)
	_ Plugin = (*Lifetime)(nil)
	_ Plugin = (*InitShutdown)(nil)
	_ Plugin = (*Resources)(nil)
	_ Plugin = (*ChildManager)(nil)
	_ Plugin = (*Starter)(nil)
)

// DefaultActorPlugins returns the plugin list a plain actor is configured
// with when the builder does not override it. Order is activation order;
// deactivation runs in reverse.
func DefaultActorPlugins() []Plugin {
	return []Plugin{
		NewAddressMaker(),
		NewLifetime(),
		NewInitShutdown(),
		NewResources(),
		NewStarter(),
	}
}

// DefaultSupervisorPlugins returns the plugin list a supervisor is
// configured with when the builder does not override it. The child manager
// deactivates before the lifetime plugin so children drain while routing is
// still alive.
func DefaultSupervisorPlugins() []Plugin {
	return []Plugin{
		NewAddressMaker(),
		NewLifetime(),
		NewInitShutdown(),
		NewResources(),
		NewChildManager(),
		NewStarter(),
	}
}
