package actor

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors forming the taxonomy surfaced through System.OnError.
// Failures are always delivered as chains: the newest context wraps an
// underlying sentinel, so callers classify with errors.Is while the full
// chain preserves causality.
var (
	// ErrRequestTimeout indicates an outstanding request expired before a
	// matching response arrived. The synthesized response carries this
	// error.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrPluginInitFailed indicates a plugin vetoed activation by
	// committing with ok=false, aborting the actor's init.
	ErrPluginInitFailed = errors.New("plugin init failed")

	// ErrShutdownTimeout indicates a shutdown cascade did not complete
	// within the configured shutdown timeout.
	ErrShutdownTimeout = errors.New("shutdown timeout")

	// ErrCancelled indicates an operation was abandoned because its actor
	// or locality terminated first.
	ErrCancelled = errors.New("cancelled")

	// ErrTimeoutRequired is returned by builders when Finish is called
	// without a configured timeout.
	ErrTimeoutRequired = errors.New("timeout not configured")

	// ErrSupervisorShutDown is returned when attempting to spawn a child
	// under a supervisor that is already terminating.
	ErrSupervisorShutDown = errors.New("supervisor shut down")

	// ErrRootExists is returned when building a second root supervisor in
	// the same system context.
	ErrRootExists = errors.New("root supervisor already exists")
)
