package runner

import (
	"sync"

	"github.com/tliron/commonlog"

	"github.com/fusabi-lang/fusabi/asset"
	"github.com/fusabi-lang/fusabi/vm"
)

// Policy governs how execution failures are retried. Both deserialization
// and runtime failures consume an attempt; once the budget is exhausted
// the runner moves to the terminal Failed state instead of busy-retrying
// forever.
type Policy struct {
	// MaxAttempts is the failed-attempt budget per runner. Zero or
	// negative selects unbounded retry.
	MaxAttempts int
}

// DefaultPolicy is the policy used when the host supplies none.
var DefaultPolicy = Policy{MaxAttempts: 3}

// Scheduler drives runners against a store, one cooperative pass at a
// time. The host's loop owns the cadence: each Tick evaluates every live
// runner at most once, in strict sequence per runner, with no ordering
// guarantee between runners.
type Scheduler struct {
	store  *asset.Store
	policy Policy
	log    commonlog.Logger

	mu      sync.Mutex
	runners []*Runner
}

// NewScheduler creates a scheduler over the given store.
func NewScheduler(store *asset.Store, policy Policy) *Scheduler {
	return &Scheduler{
		store:  store,
		policy: policy,
		log:    commonlog.GetLogger("fusabi.runner"),
	}
}

// Spawn registers a new runner for the given asset handle. The runner
// starts Pending and is evaluated from the next Tick on.
func (s *Scheduler) Spawn(h asset.Handle) *Runner {
	r := &Runner{handle: h}
	s.mu.Lock()
	s.runners = append(s.runners, r)
	s.mu.Unlock()
	return r
}

// Runners returns a snapshot of all registered runners.
func (s *Scheduler) Runners() []*Runner {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Runner, len(s.runners))
	copy(out, s.runners)
	return out
}

// Done reports whether every registered runner is terminal.
func (s *Scheduler) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.runners {
		if !r.Terminal() {
			return false
		}
	}
	return true
}

// Tick performs one scheduling pass over all live runners.
func (s *Scheduler) Tick() {
	for _, r := range s.Runners() {
		s.evaluate(r)
	}
}

// evaluate advances one runner. Steps run in strict sequence: resolve the
// asset, deserialize its bytecode, execute in a fresh VM, record the
// outcome.
func (s *Scheduler) evaluate(r *Runner) {
	if r.Terminal() {
		return
	}

	script, ok := s.store.Resolve(r.handle)
	if !ok {
		// Still loading; re-evaluate next pass.
		return
	}
	r.state = StateRunning

	chunk, err := script.Chunk()
	if err != nil {
		s.fail(r, script.Name, err)
		return
	}

	// A fresh context per invocation: no state leaks between runs.
	value, err := vm.NewVM().Execute(chunk)
	if err != nil {
		s.fail(r, script.Name, err)
		return
	}

	r.result = value
	r.err = nil
	r.state = StateSucceeded
	s.log.Infof("script %q succeeded after %d failed attempts: %s", script.Name, r.attempts, value)
}

// fail records a failed attempt and applies the retry policy.
func (s *Scheduler) fail(r *Runner, name string, err error) {
	r.attempts++
	r.err = err

	if s.policy.MaxAttempts > 0 && r.attempts >= s.policy.MaxAttempts {
		r.state = StateFailed
		s.log.Errorf("script %q failed, giving up after %d attempts: %v", name, r.attempts, err)
		return
	}
	r.state = StatePending
	s.log.Warningf("script %q failed (attempt %d): %v", name, r.attempts, err)
}
