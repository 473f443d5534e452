package actor

import (
	"context"
)

// StarterID identifies the starter plugin.
const StarterID PluginID = "starter"

// Starter wires user handlers during init and performs the OPERATIONAL
// transition on receipt of the start trigger. It vetoes init until every
// subscription it issued has been confirmed, so an actor never starts with
// half-wired handlers.
type Starter struct {
	BasePlugin

	// pending holds the subscription points awaiting confirmation.
	pending []SubscriptionPoint
}

// NewStarter creates the starter plugin.
func NewStarter() *Starter {
	p := &Starter{}
	p.bind(p)
	return p
}

// ID returns the plugin identity.
func (p *Starter) ID() PluginID {
	return StarterID
}

// Activate subscribes the start handler and runs the actor's configuration
// hooks, during which the user typically calls SubscribeActor.
func (p *Starter) Activate(a *Actor) {
	p.actor = a
	p.ReactOn(ReactionInit | ReactionStart | ReactionSubscription)

	p.track(a.address, NewHandler(a, p.onStartTrigger))

	p.BasePlugin.Activate(a)
}

// SubscribeActor subscribes a handler to the actor's own primary address,
// deferring the INITIALIZED transition until the subscription is confirmed.
func (p *Starter) SubscribeActor(h *Handler) {
	p.track(p.actor.address, h)
}

// SubscribeActorTo subscribes a handler to an arbitrary address, local or
// foreign, deferring the INITIALIZED transition until confirmed.
func (p *Starter) SubscribeActorTo(addr *Address, h *Handler) {
	p.track(addr, h)
}

func (p *Starter) track(addr *Address, h *Handler) {
	p.pending = append(p.pending, SubscriptionPoint{
		Address: addr,
		Handler: h,
	})
	p.actor.SubscribeTo(addr, h)
}

// HandleInit reports readiness once every issued subscription confirmed.
func (p *Starter) HandleInit() bool {
	return len(p.pending) == 0
}

// HandleSubscription checks off confirmed points and revives the init chain
// when the last one lands.
func (p *Starter) HandleSubscription(point SubscriptionPoint) {
	for i, q := range p.pending {
		if q.equal(point) {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			break
		}
	}

	a := p.actor
	if len(p.pending) == 0 && a.State() == StateInitializing &&
		!a.progressInit {

		a.initContinue()
	}
}

// onStartTrigger performs the OPERATIONAL transition, notifies plugins
// holding a START reaction, and invokes the behavior's OnStart hook.
func (p *Starter) onStartTrigger(startTrigger) {
	a := p.actor

	if a.State() != StateInitialized {
		log.DebugS(context.Background(), "Start trigger ignored",
			"actor_id", a.id, "state", a.State().String())
		return
	}

	a.setState(StateOperational)

	for _, pl := range a.plugins {
		if pl != p.self && pl.Reactions()&ReactionStart != 0 {
			pl.HandleStart()
		}
	}

	if a.behavior != nil {
		a.behavior.OnStart(a)
	}
}
