// Fusabi CLI - compile Fusabi scripts and run them through the asset pipeline
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/fusabi-lang/fusabi/asset"
	"github.com/fusabi-lang/fusabi/config"
	"github.com/fusabi-lang/fusabi/frontend"
	"github.com/fusabi-lang/fusabi/runner"
	"github.com/fusabi-lang/fusabi/vm"
)

func main() {
	build := flag.Bool("build", false, "Compile .fsx inputs to .fzb containers instead of running them")
	output := flag.String("o", "", "Output path for -build (single input only)")
	disasm := flag.Bool("disasm", false, "Print a disassembly of the inputs instead of running them")
	watch := flag.Bool("watch", false, "Watch loaded scripts and reload on change")
	maxAttempts := flag.Int("max-attempts", 0, "Failed-attempt budget per script (0 = from fusabi.toml, negative = retry forever)")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fusabi [options] [paths...]\n\n")
		fmt.Fprintf(os.Stderr, "Loads .fsx / .fzb scripts as assets and drives each one to completion.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fusabi hello.fsx                 # compile, execute, print result\n")
		fmt.Fprintf(os.Stderr, "  fusabi -build -o hello.fzb hello.fsx\n")
		fmt.Fprintf(os.Stderr, "  fusabi -watch scripts/*.fsx      # re-run scripts as they change\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	cfg, err := config.FindAndLoad(".")
	if err != nil {
		fatal(err)
	}
	if cfg == nil {
		cfg = config.Default()
	}

	paths := flag.Args()
	if len(paths) == 0 {
		paths = collectScripts(cfg.Assets.Dirs)
	}
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	switch {
	case *build:
		if err := buildScripts(paths, *output); err != nil {
			fatal(err)
		}
	case *disasm:
		if err := disassemble(paths); err != nil {
			fatal(err)
		}
	default:
		policy := runner.Policy{MaxAttempts: cfg.Runner.MaxAttempts}
		if *maxAttempts != 0 {
			policy.MaxAttempts = *maxAttempts
		}
		tick := time.Duration(cfg.Runner.TickMillis) * time.Millisecond
		if err := run(paths, policy, tick, *watch || cfg.Assets.Watch); err != nil {
			fatal(err)
		}
	}
}

// collectScripts lists scripts in the configured asset directories.
func collectScripts(dirs []string) []string {
	var paths []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			ext := filepath.Ext(e.Name())
			if !e.IsDir() && (ext == asset.ExtSource || ext == asset.ExtBytecode) {
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
	}
	return paths
}

// buildScripts compiles .fsx files into .fzb containers.
func buildScripts(paths []string, output string) error {
	if output != "" && len(paths) != 1 {
		return fmt.Errorf("-o requires exactly one input, got %d", len(paths))
	}

	for _, path := range paths {
		if filepath.Ext(path) != asset.ExtSource {
			return fmt.Errorf("cannot build %s: not a %s file", path, asset.ExtSource)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(path), asset.ExtSource)
		chunk, err := frontend.Compile(name, string(data))
		if err != nil {
			return err
		}
		bytecode, err := vm.Serialize(chunk)
		if err != nil {
			return err
		}

		out := output
		if out == "" {
			out = strings.TrimSuffix(path, asset.ExtSource) + asset.ExtBytecode
		}
		container := append(asset.NewHeader().Encode(), bytecode...)
		if err := os.WriteFile(out, container, 0o644); err != nil {
			return err
		}
		fmt.Printf("%s -> %s (%d bytes)\n", path, out, len(container))
	}
	return nil
}

// disassemble prints a listing of each input's bytecode.
func disassemble(paths []string) error {
	loader := asset.NewLoader()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		ext := filepath.Ext(path)
		name := strings.TrimSuffix(filepath.Base(path), ext)
		script, err := loader.Load(data, name, ext)
		if err != nil {
			return err
		}
		chunk, err := script.Chunk()
		if err != nil {
			return err
		}
		fmt.Print(vm.Disassemble(chunk))
	}
	return nil
}

// run loads every path into a store, spawns a runner per script, and
// ticks the scheduler until all runners are terminal.
func run(paths []string, policy runner.Policy, tick time.Duration, watchFiles bool) error {
	store := asset.NewStore(asset.NewLoader())
	sched := runner.NewScheduler(store, policy)

	runnersByHandle := make(map[asset.Handle][]*runner.Runner)
	loaded := make(map[asset.Handle]bool)
	for _, path := range paths {
		h := store.Load(path)
		runnersByHandle[h] = append(runnersByHandle[h], sched.Spawn(h))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if watchFiles {
		if err := store.Watch(ctx); err != nil {
			return err
		}
	}

	var interrupt chan os.Signal
	if watchFiles {
		// Watch mode never drains on its own; run until interrupted.
		interrupt = make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for watchFiles || !sched.Done() {
		select {
		case <-interrupt:
			return summarize(sched)
		case ev := <-store.Events():
			if ev.Err != nil {
				fmt.Fprintf(os.Stderr, "load failed: %v\n", ev.Err)
				// Unless an earlier load already published the asset, the
				// handle will never resolve; release its runners rather
				// than leaving them Pending forever.
				if _, ok := store.Resolve(ev.Handle); !ok {
					for _, r := range runnersByHandle[ev.Handle] {
						r.Abandon()
					}
				}
			} else if watchFiles && loaded[ev.Handle] {
				// A reload republished the asset; run it again. The
				// first completion event belongs to the initial load,
				// whose runner was spawned up front.
				runnersByHandle[ev.Handle] = append(runnersByHandle[ev.Handle], sched.Spawn(ev.Handle))
			}
			loaded[ev.Handle] = true
		case <-ticker.C:
			sched.Tick()
		}
	}
	return summarize(sched)
}

// summarize prints each terminal runner's outcome.
func summarize(sched *runner.Scheduler) error {
	failed := 0
	for _, r := range sched.Runners() {
		switch r.State() {
		case runner.StateSucceeded:
			if v, ok := r.Result(); ok {
				fmt.Printf("result: %s\n", v)
			}
		case runner.StateFailed:
			failed++
			fmt.Fprintf(os.Stderr, "failed: %v\n", r.Err())
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d script(s) failed", failed)
	}
	return nil
}

// fatal prints an error and exits.
func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
