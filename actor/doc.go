// Package actor implements an event-loop-agnostic actor runtime: actors are
// grouped under hierarchical supervisors, composed from plugins that
// contribute lifecycle and messaging capabilities, and driven cooperatively
// by host loops through DoProcess.
//
// Supervisors sharing a locality share one FIFO message queue drained by a
// single cooperative agent; the queue is the only cross-locality
// synchronization point. Within a locality processing is single-threaded:
// handlers run to completion and state is never locked.
//
// An actor's lifecycle (NEW -> INITIALIZING -> INITIALIZED -> OPERATIONAL ->
// SHUTTING_DOWN -> SHUT_DOWN) advances only through its plugin chain:
// plugins activate in list order, may veto init and shutdown progress, and
// deactivate in reverse order bounded by the shutdown timeout.
package actor
