package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/arigato/aubridge/audiounit"
	"github.com/arigato/aubridge/bridge"
	"github.com/arigato/aubridge/config"
	"github.com/arigato/aubridge/resource"
	"github.com/arigato/aubridge/runtime"
)

// descList collects repeated -unit flags.
type descList []audiounit.Description

func (l *descList) String() string {
	parts := make([]string, len(*l))
	for i, d := range *l {
		parts[i] = d.String()
	}
	return strings.Join(parts, ",")
}

func (l *descList) Set(s string) error {
	d, err := audiounit.ParseDescription(s)
	if err != nil {
		return err
	}
	*l = append(*l, d)
	return nil
}

func main() {
	var units descList
	flag.Var(&units, "unit", "Component description to instantiate and wrap (type:subt:manu), repeatable")
	var (
		wasmFile    = flag.String("wasm", "", "Path to a guest core wasm module")
		funcName    = flag.String("func", "", "Guest function to call with the wrapped handles")
		envFile     = flag.String("env", ".env", "Path to a .env file")
		list        = flag.Bool("list", false, "List available components and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *funcName != "" && *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: arighost [-unit type:subt:manu ...] [-wasm guest.wasm -func name]")
		fmt.Fprintln(os.Stderr, "       arighost -list")
		fmt.Fprintln(os.Stderr, "       arighost -i [-wasm guest.wasm]  (interactive mode)")
		os.Exit(1)
	}

	app, err := newApp(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		err = runInteractive(app, *wasmFile)
	} else {
		err = run(app, units, *wasmFile, *funcName, *list)
	}
	if cerr := app.Close(); cerr != nil {
		err = multierr.Append(err, cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app wires the native host, the object table and the bridge.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	host   *audiounit.Host
	table  *resource.Table
	bridge *bridge.Bridge
}

func newApp(envFile string) (*app, error) {
	ctx := context.Background()

	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.NewFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}
	runtime.SetLogger(logger.Named("runtime"))

	host := audiounit.NewHost(audiounit.SystemCatalog(), audiounit.WithHostLogger(logger.Named("host")))
	table := resource.NewTable(cfg.TableOptions()...)
	b := bridge.New(table, cfg.BridgeOptions(logger.Named("bridge"))...)
	b.Attach(host)

	logger.Debug("host ready",
		zap.Int("components", host.Catalog().Len()),
		zap.Int("max_handles", cfg.MaxHandles),
		zap.Stringer("ownership", cfg.Ownership))
	return &app{cfg: cfg, logger: logger, host: host, table: table, bridge: b}, nil
}

// Close destroys the remaining native units, then reclaims the handles.
func (a *app) Close() error {
	err := multierr.Combine(a.host.Close(), a.table.Close())
	_ = a.logger.Sync()
	return err
}

// wrapNew instantiates a unit for desc and wraps it.
func (a *app) wrapNew(ctx context.Context, desc audiounit.Description) (*bridge.AudioUnitHandle, error) {
	u, err := a.host.Instantiate(ctx, desc)
	if err != nil {
		return nil, err
	}
	h, err := a.bridge.Wrap(u)
	if err != nil {
		return nil, multierr.Append(err, a.host.Destroy(u))
	}
	return h, nil
}

func (a *app) newRuntime(ctx context.Context) (*runtime.Runtime, error) {
	return runtime.NewWithConfig(ctx, a.bridge, a.cfg.RuntimeConfig())
}

func run(a *app, units descList, wasmFile, funcName string, listOnly bool) error {
	ctx := context.Background()

	fmt.Printf("Available components:\n")
	for _, c := range a.host.Catalog().FindAll(audiounit.Any) {
		fmt.Printf("  %s\n", c)
	}
	if listOnly {
		return nil
	}

	var handles []*bridge.AudioUnitHandle
	for _, desc := range units {
		h, err := a.wrapNew(ctx, desc)
		if err != nil {
			return fmt.Errorf("wrap %s: %w", desc, err)
		}
		handles = append(handles, h)
	}

	if len(handles) > 0 {
		fmt.Printf("\nWrapped units:\n")
		for _, h := range handles {
			u := h.Unit()
			fmt.Printf("  %s unit=%s retain=%d\n", h, u.ID(), u.RetainCount())
		}
	}

	if wasmFile == "" {
		return nil
	}

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	rt, err := a.newRuntime(ctx)
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close(ctx)

	mod, err := rt.LoadWASM(ctx, data)
	if err != nil {
		return fmt.Errorf("load module: %w", err)
	}
	fmt.Printf("\nGuest: %s\n", wasmFile)
	fmt.Printf("Host imports: %s\n", strings.Join(mod.Imports(), ", "))
	fmt.Printf("Exports: %s\n", strings.Join(mod.Exports(), ", "))

	if funcName == "" {
		return nil
	}

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	defer inst.Close(ctx)

	fmt.Printf("\nCalling %s with %d handle(s)...\n", funcName, len(handles))
	results, err := inst.CallWithHandles(ctx, funcName, handles...)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}
	fmt.Printf("Result: %v\n", results)
	fmt.Printf("Live handles: %d\n", a.bridge.Len())
	return nil
}
