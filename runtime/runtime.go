package runtime

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arigato/aubridge/bridge"
	"github.com/arigato/aubridge/errors"
)

// Config configures a Runtime.
type Config struct {
	// MemoryLimitPages caps guest linear memory, in 64KiB pages. Zero keeps
	// the wazero default.
	MemoryLimitPages uint32
}

// Runtime executes guest modules against a bridge. Guests reach the
// bridge's AudioUnitHandle objects through the HostModuleName imports.
// Thread-safe.
type Runtime struct {
	runtime wazero.Runtime
	host    api.Module
	bridge  *bridge.Bridge
	refs    *guestRefs
	mu      sync.Mutex
	closed  bool
}

// New creates a runtime with the host module bound to b.
func New(ctx context.Context, b *bridge.Bridge) (*Runtime, error) {
	return NewWithConfig(ctx, b, nil)
}

// NewWithConfig creates a runtime with custom configuration.
func NewWithConfig(ctx context.Context, b *bridge.Bridge, cfg *Config) (*Runtime, error) {
	if b == nil {
		return nil, errors.NilPointer(errors.PhaseRuntime, []string{"bridge"}, "*bridge.Bridge")
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	refs := newGuestRefs()
	host, err := buildHostModule(ctx, rt, b, refs)
	if err != nil {
		return nil, multierr.Append(
			errors.Registration(errors.PhaseHost, HostModuleName, "", err),
			rt.Close(ctx))
	}

	Logger().Debug("runtime created",
		zap.String("host_module", HostModuleName),
		zap.Stringer("ownership", b.Ownership()))
	return &Runtime{
		runtime: rt,
		host:    host,
		bridge:  b,
		refs:    refs,
	}, nil
}

// Bridge returns the bridge guests operate on.
func (r *Runtime) Bridge() *bridge.Bridge {
	return r.bridge
}

// HostModule returns the instantiated host module.
func (r *Runtime) HostModule() api.Module {
	return r.host
}

// LoadWASM compiles a core WebAssembly module. Imports from HostModuleName
// are checked against the host module's exports.
func (r *Runtime) LoadWASM(ctx context.Context, wasm []byte) (*Module, error) {
	if len(wasm) == 0 {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "empty module")
	}
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	compiled, err := r.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidInput, err, "compile module")
	}
	if err := checkImports(compiled, r.host); err != nil {
		return nil, multierr.Append(err, compiled.Close(ctx))
	}
	return &Module{runtime: r, compiled: compiled}, nil
}

// Close releases all runtime resources, including instances still open and
// the handle references their guests still hold. The bridge and its table
// are left to their owner.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	err := multierr.Combine(
		r.host.Close(ctx),
		r.runtime.Close(ctx),
	)
	for owner, refs := range r.refs.takeAll() {
		err = multierr.Append(err, releaseRefs(r.bridge, owner, refs))
	}
	return err
}

func (r *Runtime) checkOpen() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.Closed(errors.PhaseRuntime, "runtime")
	}
	return nil
}

// checkImports verifies that every host import a module declares exists
// with a matching signature.
func checkImports(compiled wazero.CompiledModule, host api.Module) error {
	var errs error
	for _, def := range compiled.ImportedFunctions() {
		moduleName, name, _ := def.Import()
		if moduleName != HostModuleName {
			continue
		}
		fn := host.ExportedFunction(name)
		if fn == nil {
			errs = multierr.Append(errs, errors.NotFound(errors.PhaseRuntime, "host function", name))
			continue
		}
		if !sameTypes(fn.Definition().ParamTypes(), def.ParamTypes()) ||
			!sameTypes(fn.Definition().ResultTypes(), def.ResultTypes()) {
			errs = multierr.Append(errs, errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
				Path(moduleName, name).
				Detail("import signature does not match host function").
				Build())
		}
	}
	return errs
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
