// Package runner implements the execution driver: per-request Runner
// records and a cooperative Scheduler that drives each runner's script to
// completion exactly once, with a bounded retry policy.
package runner

import (
	"errors"
	"fmt"

	"github.com/fusabi-lang/fusabi/asset"
	"github.com/fusabi-lang/fusabi/vm"
)

// State is a runner's position in its lifecycle.
type State uint8

const (
	// StatePending - asset not yet resolved, or a failed attempt is
	// awaiting retry.
	StatePending State = iota

	// StateRunning - asset resolved and the VM is being invoked. Only
	// observable from within a scheduling pass.
	StateRunning

	// StateSucceeded - terminal. The script ran to completion; the
	// runner is never evaluated again.
	StateSucceeded

	// StateFailed - terminal. The retry budget is exhausted or the
	// runner was abandoned.
	StateFailed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// ErrAbandoned reports a runner that was explicitly given up on.
var ErrAbandoned = errors.New("runner: abandoned")

// Runner tracks one request to execute a script asset. A runner references
// its asset by handle, not by value, so the asset may resolve (or be
// republished) after the runner is created. Runners are owned by their
// scheduler: all mutation happens inside scheduling passes, and accessors
// are safe to call between passes.
type Runner struct {
	handle   asset.Handle
	state    State
	attempts int
	result   vm.Value
	err      error
}

// Handle returns the asset handle the runner executes.
func (r *Runner) Handle() asset.Handle { return r.handle }

// State returns the runner's current state.
func (r *Runner) State() State { return r.state }

// Executed reports whether the runner has successfully completed. It
// transitions false to true at most once over the runner's lifetime.
func (r *Runner) Executed() bool { return r.state == StateSucceeded }

// Terminal reports whether the runner will never be evaluated again.
func (r *Runner) Terminal() bool {
	return r.state == StateSucceeded || r.state == StateFailed
}

// Attempts returns the number of failed execution attempts so far.
func (r *Runner) Attempts() int { return r.attempts }

// Result returns the script's result value. The second return is false
// until the runner has succeeded.
func (r *Runner) Result() (vm.Value, bool) {
	if r.state != StateSucceeded {
		return vm.Nil, false
	}
	return r.result, true
}

// Err returns the most recent failure, or nil.
func (r *Runner) Err() error { return r.err }

// Abandon cancels a runner that has not yet finished, moving it to the
// terminal Failed state. Abandoning a succeeded runner is a no-op.
func (r *Runner) Abandon() {
	if r.Terminal() {
		return
	}
	r.state = StateFailed
	r.err = ErrAbandoned
}
