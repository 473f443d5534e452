package actor

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ChildManagerID identifies the child manager plugin.
const ChildManagerID PluginID = "child-manager"

// ChildManager tracks a supervisor's children from creation to SHUT_DOWN:
// it drives their init requests, starts them on confirmation, and during
// shutdown cascades timeout-bounded shutdown requests. A child whose
// shutdown request expires is forced down and the failure escalated through
// the system context; a misbehaving child never blocks its parent.
type ChildManager struct {
	BasePlugin

	// sup is the supervisor this plugin belongs to.
	sup *Supervisor

	// children maps child addresses to child handles.
	children map[*Address]*Actor

	// pendingInits correlates outstanding init requests to children.
	pendingInits map[uuid.UUID]*Actor

	// pendingShutdowns correlates outstanding shutdown requests to
	// children.
	pendingShutdowns map[uuid.UUID]*Actor

	// requested records children whose shutdown request was issued.
	requested map[*Actor]bool

	// selfInit is the id of the root supervisor's self-issued init
	// request, zero otherwise.
	selfInit uuid.UUID

	// cascaded is set once the shutdown cascade was issued.
	cascaded bool
}

// NewChildManager creates the child manager plugin.
func NewChildManager() *ChildManager {
	p := &ChildManager{
		children:         make(map[*Address]*Actor),
		pendingInits:     make(map[uuid.UUID]*Actor),
		pendingShutdowns: make(map[uuid.UUID]*Actor),
		requested:        make(map[*Actor]bool),
	}
	p.bind(p)
	return p
}

// ID returns the plugin identity.
func (p *ChildManager) ID() PluginID {
	return ChildManagerID
}

// Activate records the plugin on its supervisor and subscribes the child
// lifecycle handlers.
func (p *ChildManager) Activate(a *Actor) {
	p.actor = a
	p.sup = a.container
	p.sup.childManager = p
	p.ReactOn(ReactionShutdown)

	a.Subscribe(NewHandler(a, p.onShutdownTrigger))
	a.Subscribe(NewHandler(a, p.onInitResponse))
	a.Subscribe(NewHandler(a, p.onShutdownResponse))

	p.BasePlugin.Activate(a)
}

// Children returns the number of live children.
func (p *ChildManager) Children() int {
	return len(p.children)
}

// adopt records a freshly initialized child.
func (p *ChildManager) adopt(child *Actor) {
	p.children[child.address] = child
}

// requestInit issues the timeout-bounded init request driving the child's
// init chain.
func (p *ChildManager) requestInit(child *Actor) {
	id := RequestOf(p.actor, child.address, initBody{}).
		Timeout(child.initTimeout)
	p.pendingInits[id] = child
}

// requestShutdown issues the timeout-bounded shutdown request for a child,
// at most once per child.
func (p *ChildManager) requestShutdown(child *Actor, reason error) {
	if p.requested[child] {
		return
	}
	p.requested[child] = true

	id := RequestOf(p.actor, child.address, shutdownBody{reason: reason}).
		Timeout(p.actor.shutdownTimeout)
	p.pendingShutdowns[id] = child
}

// HandleShutdown issues the shutdown cascade on first call and defers the
// supervisor's SHUT_DOWN transition until every child is gone.
func (p *ChildManager) HandleShutdown() bool {
	if !p.cascaded {
		p.cascaded = true
		for _, child := range p.children {
			p.requestShutdown(child, p.actor.shutdownReason)
		}
	}

	return len(p.children) == 0
}

// onShutdownTrigger routes a shutdown trigger: triggers for the supervisor
// itself start its own shutdown (forwarded through the parent when one
// exists, so the parent tracks the removal); triggers for a child issue the
// child's shutdown request.
func (p *ChildManager) onShutdownTrigger(t shutdownTrigger) {
	a := p.actor

	if t.target == a.address {
		if a.State() >= StateShuttingDown {
			return
		}

		if p.sup.parent != nil {
			a.Send(p.sup.parent.address, shutdownTrigger{
				target: a.address,
				reason: t.reason,
			})
			return
		}

		a.shutdownStart(t.reason)
		a.shutdownContinue()
		return
	}

	if child, ok := p.children[t.target]; ok {
		p.requestShutdown(child, t.reason)
	}
}

// onInitResponse starts a child whose init confirmed, or shuts it down and
// escalates when init failed or timed out.
func (p *ChildManager) onInitResponse(r Response[initBody]) {
	if r.ID == p.selfInit {
		if r.Err != nil {
			p.sup.sys.escalate(p.actor, errors.Wrap(
				r.Err, "supervisor init",
			))
			p.actor.DoShutdown(r.Err)
		}
		return
	}

	child, ok := p.pendingInits[r.ID]
	if !ok {
		return
	}
	delete(p.pendingInits, r.ID)

	if r.Err != nil {
		log.DebugS(context.Background(), "Child init failed",
			"supervisor_id", p.actor.id,
			"child_id", child.id)

		p.sup.sys.escalate(child, errors.Wrap(r.Err, "child init"))
		p.requestShutdown(child, r.Err)
		return
	}

	p.actor.Send(child.address, startTrigger{})
}

// onShutdownResponse removes a terminated child. A timed-out child is forced
// to SHUT_DOWN (the terminal state must hold regardless) and the failure
// escalated. The supervisor's own shutdown chain revives when the last child
// goes.
func (p *ChildManager) onShutdownResponse(r Response[shutdownBody]) {
	child, ok := p.pendingShutdowns[r.ID]
	if !ok {
		return
	}
	delete(p.pendingShutdowns, r.ID)
	delete(p.children, child.address)
	delete(p.requested, child)

	if r.Err != nil {
		child.forceShutDown(r.Err)
		p.sup.sys.escalate(child, errors.Mark(
			errors.Wrap(r.Err, "child shutdown"),
			ErrShutdownTimeout,
		))
	}

	a := p.actor
	if a.State() == StateShuttingDown && len(p.children) == 0 &&
		!a.progressShutdown {

		a.shutdownContinue()
	}
}
