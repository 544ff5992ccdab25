package runner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fusabi-lang/fusabi/asset"
	"github.com/fusabi-lang/fusabi/frontend"
	"github.com/fusabi-lang/fusabi/vm"
)

// addScript compiles source and publishes it in the store synchronously.
func addScript(t *testing.T, s *asset.Store, name, source string) asset.Handle {
	t.Helper()
	chunk, err := frontend.Compile(name, source)
	if err != nil {
		t.Fatal(err)
	}
	data, err := vm.Serialize(chunk)
	if err != nil {
		t.Fatal(err)
	}
	return s.Add(asset.NewScript(name, data))
}

func TestSchedulerRunsScript(t *testing.T) {
	store := asset.NewStore(asset.NewLoader())
	sched := NewScheduler(store, DefaultPolicy)

	h := addScript(t, store, "sum", "fn main() { return 1 + 1; }")
	r := sched.Spawn(h)

	if r.State() != StatePending {
		t.Errorf("initial state = %s, want pending", r.State())
	}

	sched.Tick()

	if r.State() != StateSucceeded {
		t.Fatalf("state = %s, want succeeded", r.State())
	}
	got, ok := r.Result()
	if !ok || !got.Equal(vm.FromInt(2)) {
		t.Errorf("Result() = %s, %v, want 2", got, ok)
	}
	if !sched.Done() {
		t.Error("Done() = false with all runners terminal")
	}
}

func TestSchedulerAtMostOnce(t *testing.T) {
	store := asset.NewStore(asset.NewLoader())
	sched := NewScheduler(store, DefaultPolicy)

	h := addScript(t, store, "once", "fn main() { return 7; }")
	r := sched.Spawn(h)

	sched.Tick()
	first, _ := r.Result()

	// Further passes never re-run a succeeded runner.
	for i := 0; i < 5; i++ {
		sched.Tick()
	}
	got, _ := r.Result()
	if got != first {
		t.Errorf("result changed across passes: %s -> %s", first, got)
	}
	if r.Attempts() != 0 {
		t.Errorf("Attempts() = %d, want 0", r.Attempts())
	}
}

func TestSchedulerUnresolvedStaysPending(t *testing.T) {
	store := asset.NewStore(asset.NewLoader())
	sched := NewScheduler(store, DefaultPolicy)

	// A handle the store does not know never resolves.
	r := sched.Spawn(asset.Handle(999))

	for i := 0; i < 3; i++ {
		sched.Tick()
	}
	if r.State() != StatePending {
		t.Errorf("state = %s, want pending", r.State())
	}
	if r.Attempts() != 0 {
		t.Errorf("Attempts() = %d, want 0; waiting must not consume the budget", r.Attempts())
	}
	if sched.Done() {
		t.Error("Done() = true with a pending runner")
	}
}

func TestSchedulerRetryBudget(t *testing.T) {
	store := asset.NewStore(asset.NewLoader())
	sched := NewScheduler(store, Policy{MaxAttempts: 3})

	// Resolvable asset whose bytecode never deserializes.
	h := store.Add(asset.NewScript("bad", []byte{0xDE, 0xAD}))
	r := sched.Spawn(h)

	sched.Tick()
	if r.State() != StatePending || r.Attempts() != 1 {
		t.Fatalf("after 1 pass: state = %s, attempts = %d", r.State(), r.Attempts())
	}

	sched.Tick()
	sched.Tick()
	if r.State() != StateFailed || r.Attempts() != 3 {
		t.Fatalf("after 3 passes: state = %s, attempts = %d", r.State(), r.Attempts())
	}
	if r.Err() == nil {
		t.Error("failed runner has no error")
	}

	// Terminal: no further attempts.
	sched.Tick()
	if r.Attempts() != 3 {
		t.Errorf("Attempts() = %d after extra pass, want 3", r.Attempts())
	}
}

func TestSchedulerRuntimeFailureConsumesBudget(t *testing.T) {
	store := asset.NewStore(asset.NewLoader())
	sched := NewScheduler(store, Policy{MaxAttempts: 2})

	h := addScript(t, store, "div", "fn main() { return 1 / 0; }")
	r := sched.Spawn(h)

	sched.Tick()
	sched.Tick()

	if r.State() != StateFailed {
		t.Fatalf("state = %s, want failed", r.State())
	}
	var rerr *vm.RuntimeError
	if !errors.As(r.Err(), &rerr) {
		t.Errorf("Err() = %v, want *vm.RuntimeError", r.Err())
	}
}

func TestSchedulerUnboundedRetry(t *testing.T) {
	store := asset.NewStore(asset.NewLoader())
	sched := NewScheduler(store, Policy{MaxAttempts: -1})

	h := store.Add(asset.NewScript("bad", []byte{0}))
	r := sched.Spawn(h)

	for i := 0; i < 10; i++ {
		sched.Tick()
	}
	if r.State() != StatePending {
		t.Errorf("state = %s, want pending under unbounded retry", r.State())
	}
	if r.Attempts() != 10 {
		t.Errorf("Attempts() = %d, want 10", r.Attempts())
	}
}

func TestSchedulerFailureIsolation(t *testing.T) {
	store := asset.NewStore(asset.NewLoader())
	sched := NewScheduler(store, Policy{MaxAttempts: 1})

	good := sched.Spawn(addScript(t, store, "good", "fn main() { return 1; }"))
	bad := sched.Spawn(store.Add(asset.NewScript("bad", []byte{0xFF})))

	sched.Tick()

	if good.State() != StateSucceeded {
		t.Errorf("good runner state = %s", good.State())
	}
	if bad.State() != StateFailed {
		t.Errorf("bad runner state = %s", bad.State())
	}
}

func TestSchedulerSharedAsset(t *testing.T) {
	store := asset.NewStore(asset.NewLoader())
	sched := NewScheduler(store, DefaultPolicy)

	h := addScript(t, store, "shared", "fn main() { return 10; }")
	r1 := sched.Spawn(h)
	r2 := sched.Spawn(h)

	sched.Tick()

	for i, r := range []*Runner{r1, r2} {
		got, ok := r.Result()
		if !ok || !got.Equal(vm.FromInt(10)) {
			t.Errorf("runner %d: Result() = %s, %v", i, got, ok)
		}
	}
}

func TestRunnerAbandon(t *testing.T) {
	store := asset.NewStore(asset.NewLoader())
	sched := NewScheduler(store, DefaultPolicy)

	r := sched.Spawn(asset.Handle(404))
	r.Abandon()

	if r.State() != StateFailed {
		t.Errorf("state = %s, want failed", r.State())
	}
	if !errors.Is(r.Err(), ErrAbandoned) {
		t.Errorf("Err() = %v, want ErrAbandoned", r.Err())
	}
	if !sched.Done() {
		t.Error("Done() = false after abandoning the only runner")
	}

	// Abandoned runners are never evaluated again.
	sched.Tick()
	if r.Attempts() != 0 {
		t.Errorf("Attempts() = %d, want 0", r.Attempts())
	}
}

func TestRunnerAbandonAfterSuccessIsNoOp(t *testing.T) {
	store := asset.NewStore(asset.NewLoader())
	sched := NewScheduler(store, DefaultPolicy)

	r := sched.Spawn(addScript(t, store, "s", "fn main() { return 1; }"))
	sched.Tick()

	r.Abandon()
	if r.State() != StateSucceeded {
		t.Errorf("state = %s, abandon must not demote a success", r.State())
	}
	if !r.Executed() {
		t.Error("Executed() = false after success")
	}
}

func TestSchedulerAsyncLoadThenRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.fsx")
	if err := os.WriteFile(path, []byte("fn main() { return 5; }"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := asset.NewStore(asset.NewLoader())
	sched := NewScheduler(store, DefaultPolicy)
	r := sched.Spawn(store.Load(path))

	// Tick until the async load resolves and the runner completes.
	deadline := time.Now().Add(5 * time.Second)
	for !sched.Done() {
		if time.Now().After(deadline) {
			t.Fatal("runner never completed")
		}
		sched.Tick()
		time.Sleep(time.Millisecond)
	}

	got, ok := r.Result()
	if !ok || !got.Equal(vm.FromInt(5)) {
		t.Errorf("Result() = %s, %v, want 5", got, ok)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StatePending, "pending"},
		{StateRunning, "running"},
		{StateSucceeded, "succeeded"},
		{StateFailed, "failed"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.s, got, tt.want)
		}
	}
}
