package actor

// AddressMakerID identifies the address maker plugin.
const AddressMakerID PluginID = "address-maker"

// AddressMaker ensures the actor owns a primary address before any other
// plugin subscribes handlers. It runs first in every default plugin list.
type AddressMaker struct {
	BasePlugin
}

// NewAddressMaker creates the address maker plugin.
func NewAddressMaker() *AddressMaker {
	p := &AddressMaker{}
	p.bind(p)
	return p
}

// ID returns the plugin identity.
func (p *AddressMaker) ID() PluginID {
	return AddressMakerID
}

// Activate mints the actor's primary address when absent.
func (p *AddressMaker) Activate(a *Actor) {
	if a.address == nil && a.owner != nil {
		a.address = a.owner.makeAddress()
	}

	p.BasePlugin.Activate(a)
}
