package actor

// LifetimeID identifies the lifetime plugin.
const LifetimeID PluginID = "lifetime"

// Lifetime owns the subscription/unsubscription protocol of an actor: it
// records confirmed points, forwards unsubscription commits to the owning
// supervisor, and during shutdown drains the point list, foreign points
// included, before letting the actor reach SHUT_DOWN. On supervisors it also
// withdraws the foreign-owned handlers recorded in the subscription map.
type Lifetime struct {
	BasePlugin

	// unsubscribing is set once the shutdown drain started.
	unsubscribing bool

	// foreignDrainRequested is set once the supervisor-side withdrawal
	// of foreign-owned map entries started.
	foreignDrainRequested bool
}

// NewLifetime creates the lifetime plugin.
func NewLifetime() *Lifetime {
	p := &Lifetime{}
	p.bind(p)
	return p
}

// ID returns the plugin identity.
func (p *Lifetime) ID() PluginID {
	return LifetimeID
}

// Activate subscribes the protocol handlers. Supervisors additionally get
// the foreign-subscription bridge handlers on their address.
func (p *Lifetime) Activate(a *Actor) {
	p.actor = a
	p.ReactOn(ReactionShutdown)

	// The unsubscription handler is subscribed first on purpose: points
	// drain in reverse insertion order during shutdown, so the handler
	// that processes the confirmations is withdrawn last and can still
	// remove itself under the dispatch snapshot.
	a.Subscribe(NewHandler(a, p.onUnsubscriptionConfirmation))
	a.Subscribe(NewHandler(a, p.onSubscriptionConfirmation))
	a.Subscribe(NewHandler(a, p.onExternalUnsubscription))

	if a.container != nil {
		a.Subscribe(NewHandler(a, p.onSubscribeExternal))
		a.Subscribe(NewHandler(a, p.onUnsubscribeExternal))
		a.Subscribe(NewHandler(a, p.onCommitUnsubscription))
	}

	p.BasePlugin.Activate(a)
}

// HandleShutdown drains the actor's subscription points in reverse insertion
// order, and for supervisors withdraws foreign-owned map entries. The
// SHUT_DOWN transition is deferred until both drains complete.
func (p *Lifetime) HandleShutdown() bool {
	a := p.actor

	if a.container != nil && !p.foreignDrainRequested {
		p.foreignDrainRequested = true
		a.container.requestForeignHandlerWithdrawal()
	}

	if !p.unsubscribing {
		p.unsubscribing = true
		points := a.Points()
		for i := len(points) - 1; i >= 0; i-- {
			a.owner.unsubscribeHandler(points[i])
		}
	}

	done := len(a.points) == 0
	if a.container != nil {
		done = done && a.container.foreignHandlersDrained()
	}
	return done
}

// Deactivate clears any leftover points on the forced path and commits.
func (p *Lifetime) Deactivate() {
	p.actor.points = nil
	p.BasePlugin.Deactivate()
}

// notifySubscription broadcasts a confirmed point to the plugins reacting
// to subscriptions.
func (p *Lifetime) notifySubscription(point SubscriptionPoint) {
	for _, pl := range p.actor.plugins {
		if pl.Reactions()&ReactionSubscription != 0 {
			pl.HandleSubscription(point)
		}
	}
}

func (p *Lifetime) notifyUnsubscription(point SubscriptionPoint,
	external bool) {

	for _, pl := range p.actor.plugins {
		if pl.Reactions()&ReactionUnsubscription != 0 {
			pl.HandleUnsubscription(point, external)
		}
	}
}

// advanceIfDrained revives the shutdown chain once the point list empties.
func (p *Lifetime) advanceIfDrained() {
	a := p.actor
	if len(a.points) == 0 && a.State() == StateShuttingDown &&
		!a.progressShutdown {

		a.shutdownContinue()
	}
}

// onSubscriptionConfirmation appends the confirmed point, completing the
// map-before-points ordering, and notifies interested plugins.
func (p *Lifetime) onSubscriptionConfirmation(c subscriptionConfirmation) {
	p.actor.addPoint(c.point)
	p.notifySubscription(c.point)
}

// onUnsubscriptionConfirmation removes a local point and commits the removal
// to the address-owning supervisor's map.
func (p *Lifetime) onUnsubscriptionConfirmation(c unsubscriptionConfirmation) {
	a := p.actor
	a.removePoint(c.point)
	a.owner.commitLocalUnsubscription(c.point)
	p.notifyUnsubscription(c.point, false)
	p.advanceIfDrained()
}

// onExternalUnsubscription removes a foreign point and acknowledges the
// withdrawal to the address-owning supervisor so it can erase its map entry.
func (p *Lifetime) onExternalUnsubscription(c externalUnsubscription) {
	a := p.actor
	if !a.removePointIfPresent(c.point) {
		// Both ends withdrew concurrently; the point is already gone.
		return
	}

	a.Send(c.point.Address.sup.address, commitUnsubscription{point: c.point})
	p.notifyUnsubscription(c.point, true)
	p.advanceIfDrained()
}

// onSubscribeExternal records a foreign handler for one of this supervisor's
// addresses and confirms to the handler's owner. A supervisor that is
// already terminating refuses by answering with an immediate withdrawal.
func (p *Lifetime) onSubscribeExternal(c subscribeExternal) {
	a := p.actor
	s := a.container

	if a.State() >= StateShuttingDown {
		a.Send(c.point.Handler.owner.address,
			externalUnsubscription{point: c.point})
		return
	}

	s.subs.subscribe(c.point.Address, c.point.Handler)
	a.Send(c.point.Handler.owner.address,
		subscriptionConfirmation{point: c.point})
}

// onUnsubscribeExternal handles a subscriber-initiated withdrawal of a
// foreign subscription: the owner is notified and the map entry stays until
// the matching commit arrives.
func (p *Lifetime) onUnsubscribeExternal(c unsubscribeExternal) {
	a := p.actor
	s := a.container

	if !post(NewMessage(c.point.Handler.owner.address,
		externalUnsubscription{point: c.point})) {

		// The owner's locality is gone; erase directly.
		s.subs.tryUnsubscribe(c.point.Address, c.point.Handler)
	}
}

// onCommitUnsubscription erases the map entry of a completed foreign
// unsubscription and revives the supervisor's shutdown chain when the last
// foreign handler drains.
func (p *Lifetime) onCommitUnsubscription(c commitUnsubscription) {
	a := p.actor
	s := a.container

	s.subs.tryUnsubscribe(c.point.Address, c.point.Handler)

	if a.State() == StateShuttingDown && len(a.points) == 0 &&
		s.foreignHandlersDrained() && !a.progressShutdown {

		a.shutdownContinue()
	}
}
