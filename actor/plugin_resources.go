package actor

// ResourcesID identifies the resources plugin.
const ResourcesID PluginID = "resources"

// ResourceID indexes a counted resource within the resources plugin.
type ResourceID int

// Resources counts externally held resources (connections, file handles,
// in-flight work) and vetoes the actor's init and shutdown while any are
// held. Behaviors acquire during Configure or at runtime and release when
// the resource is returned; the final release revives whichever chain is
// parked, unless a drive is already running.
type Resources struct {
	BasePlugin

	// counts holds the per-resource acquisition counters.
	counts []uint32
}

// NewResources creates the resources plugin.
func NewResources() *Resources {
	p := &Resources{}
	p.bind(p)
	return p
}

// ID returns the plugin identity.
func (p *Resources) ID() PluginID {
	return ResourcesID
}

// Activate registers the init and shutdown vetoes.
func (p *Resources) Activate(a *Actor) {
	p.ReactOn(ReactionInit | ReactionShutdown)
	p.BasePlugin.Activate(a)
}

// HandleInit defers INITIALIZED while any resource is held.
func (p *Resources) HandleInit() bool {
	return !p.HasAny()
}

// HandleShutdown defers SHUT_DOWN while any resource is held.
func (p *Resources) HandleShutdown() bool {
	return !p.HasAny()
}

// Acquire increments the counter for the given resource.
func (p *Resources) Acquire(id ResourceID) {
	if int(id) >= len(p.counts) {
		grown := make([]uint32, id+1)
		copy(grown, p.counts)
		p.counts = grown
	}
	p.counts[id]++
}

// Release decrements the counter for the given resource and, when the last
// resource drains, revives the parked init or shutdown chain. Releasing a
// resource that was never acquired is a programmer error. It returns whether
// any resource is still held.
func (p *Resources) Release(id ResourceID) bool {
	if int(id) >= len(p.counts) || p.counts[id] == 0 {
		panic("release without acquire")
	}
	p.counts[id]--

	a := p.actor
	if !p.HasAny() {
		switch a.State() {
		case StateInitializing:
			if !a.progressInit {
				a.initContinue()
			}

		case StateShuttingDown:
			if !a.progressShutdown {
				a.shutdownContinue()
			}
		}
	}

	return p.HasAny()
}

// Has returns the acquisition count for the given resource.
func (p *Resources) Has(id ResourceID) uint32 {
	if int(id) >= len(p.counts) {
		return 0
	}
	return p.counts[id]
}

// HasAny reports whether any resource is held.
func (p *Resources) HasAny() bool {
	for _, c := range p.counts {
		if c > 0 {
			return true
		}
	}
	return false
}
