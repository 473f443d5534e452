package actor

// System payloads driving the lifecycle and subscription protocols. None of
// these are part of the public surface: user code observes lifecycle
// progress through plugins and behaviors, never by handling these directly.

// initBody is the body of the init request a supervisor issues to a child
// entering INITIALIZING.
type initBody struct {
	BasePayload
}

// shutdownBody is the body of the shutdown request issued to a child during
// a shutdown cascade.
type shutdownBody struct {
	BasePayload

	// reason carries the originating failure chain, nil for an orderly
	// shutdown.
	reason error
}

// startTrigger moves an INITIALIZED actor to OPERATIONAL.
type startTrigger struct {
	BasePayload
}

// shutdownTrigger asks the supervisor owning target to begin shutting the
// target down. Safe to post from any state.
type shutdownTrigger struct {
	BasePayload

	// target is the address of the actor to shut down.
	target *Address

	// reason carries the originating failure chain, if any.
	reason error
}

// subscriptionConfirmation notifies an actor that one of its handlers has
// been recorded by the address-owning supervisor. The actor appends the
// point to its list on receipt, preserving the map-before-points ordering.
type subscriptionConfirmation struct {
	BasePayload

	point SubscriptionPoint
}

// unsubscriptionConfirmation notifies an actor that one of its local
// subscription points is being withdrawn. The actor removes the point and
// commits the removal back to the owning supervisor's map.
type unsubscriptionConfirmation struct {
	BasePayload

	point SubscriptionPoint
}

// subscribeExternal asks a foreign supervisor to record a handler for one of
// its addresses. Step one of the cross-locality handshake; the foreign
// supervisor answers with subscriptionConfirmation.
type subscribeExternal struct {
	BasePayload

	point SubscriptionPoint
}

// unsubscribeExternal asks a foreign supervisor to withdraw a previously
// recorded handler. The foreign supervisor answers the handler's owner with
// externalUnsubscription and keeps its map entry until the matching
// commitUnsubscription arrives.
type unsubscribeExternal struct {
	BasePayload

	point SubscriptionPoint
}

// externalUnsubscription notifies a handler's owner that a foreign
// supervisor is withdrawing the subscription. The owner removes its point
// and replies with commitUnsubscription.
type externalUnsubscription struct {
	BasePayload

	point SubscriptionPoint
}

// commitUnsubscription completes a cross-locality unsubscription: the
// address-owning supervisor erases the map entry on receipt.
type commitUnsubscription struct {
	BasePayload

	point SubscriptionPoint
}

// forwardedDelivery carries a message matched against a foreign-owned
// handler over to the handler's home locality, where it is invoked. Handler
// state is only ever touched by the locality that owns it.
type forwardedDelivery struct {
	BasePayload

	handler *Handler
	orig    *Message
}
