package actor

// InitShutdownID identifies the init/shutdown plugin.
const InitShutdownID PluginID = "init-shutdown"

// InitShutdown wires the actor into the supervision protocol: it receives
// the init and shutdown requests issued by the owning supervisor and drives
// the corresponding plugin chains, answering the requests when the chains
// complete.
type InitShutdown struct {
	BasePlugin
}

// NewInitShutdown creates the init/shutdown plugin.
func NewInitShutdown() *InitShutdown {
	p := &InitShutdown{}
	p.bind(p)
	return p
}

// ID returns the plugin identity.
func (p *InitShutdown) ID() PluginID {
	return InitShutdownID
}

// Activate subscribes the request handlers on the actor's primary address.
func (p *InitShutdown) Activate(a *Actor) {
	p.actor = a
	a.Subscribe(NewHandler(a, p.onInitRequest))
	a.Subscribe(NewHandler(a, p.onShutdownRequest))

	p.BasePlugin.Activate(a)
}

// onInitRequest stores the reply handle and drives the init chain. The
// request is answered once every plugin completed its init reaction.
func (p *InitShutdown) onInitRequest(req Request[initBody]) {
	a := p.actor

	if a.initFailed {
		ReplyTo(a, req, a.shutdownReason)
		return
	}

	// The init chain can complete before the request is processed when
	// every subscription confirms first; answer right away.
	if a.State() >= StateInitialized {
		ReplyTo(a, req, nil)
		return
	}

	a.initReply = func(err error) {
		ReplyTo(a, req, err)
	}
	a.initContinue()
}

// onShutdownRequest stores the reply handle and drives the shutdown chain.
func (p *InitShutdown) onShutdownRequest(req Request[shutdownBody]) {
	a := p.actor

	if a.State() == StateShutDown {
		ReplyTo(a, req, nil)
		return
	}

	a.shutdownReply = func(err error) {
		ReplyTo(a, req, err)
	}
	a.shutdownStart(req.Body.reason)
	a.shutdownContinue()
}
