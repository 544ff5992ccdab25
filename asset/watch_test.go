package asset

import (
	"context"
	"testing"
	"time"

	"github.com/fusabi-lang/fusabi/vm"
)

func TestStoreWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "w.fsx", "fn main() { return 1; }")

	s := NewStore(NewLoader())
	h := s.Load(path)
	if ev := waitEvent(t, s, h); ev.Err != nil {
		t.Fatal(ev.Err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Watch(ctx); err != nil {
		t.Fatal(err)
	}

	writeScript(t, dir, "w.fsx", "fn main() { return 2; }")

	// The reload is debounced, then published under the same handle.
	deadline := time.Now().Add(10 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("watched change was never republished")
		}
		script, ok := s.Resolve(h)
		if ok {
			chunk, err := script.Chunk()
			if err != nil {
				t.Fatal(err)
			}
			got, err := vm.NewVM().Execute(chunk)
			if err != nil {
				t.Fatal(err)
			}
			if got.Equal(vm.FromInt(2)) {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestStoreWatchIgnoresUnknownFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "known.fsx", "fn main() { return 1; }")

	s := NewStore(NewLoader())
	h := s.Load(path)
	if ev := waitEvent(t, s, h); ev.Err != nil {
		t.Fatal(ev.Err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Watch(ctx); err != nil {
		t.Fatal(err)
	}

	// A new file in the watched directory has no handle and is ignored.
	writeScript(t, dir, "stranger.fsx", "fn main() { return 9; }")

	select {
	case ev := <-s.Events():
		t.Errorf("unexpected event: %+v", ev)
	case <-time.After(500 * time.Millisecond):
	}
}
