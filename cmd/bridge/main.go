package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/wippyai/hostbridge/hybrid"
	"github.com/wippyai/hostbridge/internal/demo"
	"github.com/wippyai/hostbridge/liveness"
	"github.com/wippyai/hostbridge/luahost"
	"github.com/wippyai/hostbridge/runtime"
	"github.com/wippyai/hostbridge/wasmhost"
)

func main() {
	cfg, err := loadConfig(os.Args[1:], nil, os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	if err := run(cfg, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config, stdout, stderr io.Writer) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	hybrid.SetLogger(logger.Named("hybrid"))
	runtime.SetLogger(logger.Named("runtime"))
	luahost.SetLogger(logger.Named("lua"))
	wasmhost.SetLogger(logger.Named("wasm"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	interactive := cfg.Interactive ||
		(cfg.Script == "" && cfg.Lua == "" && !cfg.List && term.IsTerminal(int(os.Stdin.Fd())))
	if !interactive {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	reports := &liveness.Recorder{}
	host, err := runtime.NewHost(ctx,
		runtime.WithLogger(logger.Named("host")),
		runtime.WithReporter(liveness.ReporterFunc(func(err error) {
			reports.Report(err)
			liveness.LogReporter{Logger: logger}.Report(err)
		})),
	)
	if err != nil {
		return fmt.Errorf("create host: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := host.Close(closeCtx); err != nil {
			logger.Warn("close host", zap.Error(err))
		}
	}()

	set := demo.NewSet(host.Frames())
	for _, g := range set.Globals() {
		if err := host.Expose(ctx, g.Name, g.Value); err != nil {
			return fmt.Errorf("expose %s: %w", g.Name, err)
		}
	}

	switch {
	case cfg.List:
		return list(host, set, stdout)
	case interactive:
		return runInteractive(host, set)
	case cfg.Lua != "":
		return runLua(host, set, cfg.Lua, stdout)
	case cfg.Script != "":
		if err := runScript(ctx, host, cfg, stdout); err != nil {
			return err
		}
		for _, err := range reports.Errors() {
			fmt.Fprintf(stderr, "report: %v\n", err)
		}
		return nil
	}
	return fmt.Errorf("nothing to do: pass -script, -lua, -list or -i")
}

// list prints every demo object as WIT together with its wasm exports.
func list(host *runtime.Host, set *demo.Set, w io.Writer) error {
	mod := wasmhost.NewModule("bridge", host.Guard())
	for _, g := range set.Globals() {
		if err := mod.Define(g.Class, g.Value); err != nil {
			return fmt.Errorf("define %s: %w", g.Class, err)
		}
	}
	for _, g := range set.Globals() {
		doc, err := mod.Describe(g.Value)
		if err != nil {
			return fmt.Errorf("describe %s: %w", g.Name, err)
		}
		fmt.Fprintf(w, "// global %s\n%s\n", g.Name, doc)
	}
	fmt.Fprintln(w, "// wasm exports of module \"bridge\"")
	for _, name := range mod.Exports() {
		fmt.Fprintf(w, "//   %s\n", name)
	}
	return nil
}

func runLua(host *runtime.Host, set *demo.Set, path string, w io.Writer) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read lua script: %w", err)
	}

	state, err := luahost.NewState(host.Guard(), luahost.WithLabel("lua:"+path))
	if err != nil {
		return fmt.Errorf("create lua state: %w", err)
	}
	defer state.Close()

	for _, g := range set.Globals() {
		if err := state.Expose(g.Name, g.Value); err != nil {
			return fmt.Errorf("expose %s: %w", g.Name, err)
		}
	}

	results, err := state.DoString(string(src))
	if err != nil {
		return fmt.Errorf("run lua: %w", err)
	}
	for i, r := range results {
		fmt.Fprintf(w, "[lua] result %d: %v\n", i, r)
	}
	return nil
}

// runScript runs the script on the main runtime and cfg.Workers background
// runtimes concurrently, then drives cfg.Frames frames and closes the
// workers.
func runScript(ctx context.Context, host *runtime.Host, cfg Config, w io.Writer) error {
	src, err := os.ReadFile(cfg.Script)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	workers := make([]*runtime.Runtime, 0, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		rt, err := host.Spawn(ctx, "worker-"+strconv.Itoa(i+1))
		if err != nil {
			return fmt.Errorf("spawn worker: %w", err)
		}
		workers = append(workers, rt)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, rt := range host.Runtimes() {
		g.Go(func() error {
			v, err := rt.RunString(gctx, string(src))
			if err != nil {
				return fmt.Errorf("%s: %w", rt.Name(), err)
			}
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(w, "[%s] %v\n", rt.Name(), v)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// workers go away before the frames fire; their frame callbacks are
	// reported stale
	for _, rt := range workers {
		if err := rt.Close(ctx); err != nil {
			return fmt.Errorf("close %s: %w", rt.Name(), err)
		}
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for i := 0; i < cfg.Frames; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			n := host.Frames().Tick(now)
			fmt.Fprintf(w, "[frame %d] %d callbacks\n", host.Frames().Frame(), n)
		}
	}

	// wait for the fired callbacks to run
	return host.Main().Do(ctx, func(*goja.Runtime) error { return nil })
}
