package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arigato/aubridge/bridge"
	"github.com/arigato/aubridge/errors"
)

// Instance is a running guest module.
type Instance struct {
	module   *Module
	instance api.Module
}

// Call invokes an exported function with raw core wasm arguments.
func (i *Instance) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	if i.instance == nil {
		return nil, errors.NotInitialized(errors.PhaseRuntime, "instance")
	}
	fn := i.instance.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "function", name)
	}
	if want := len(fn.Definition().ParamTypes()); want != len(args) {
		return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Path(name).
			Detail("function takes %d arguments, got %d", want, len(args)).
			Build()
	}

	results, err := fn.Call(ctx, args...)
	if err != nil {
		Logger().Debug("guest call failed", zap.String("func", name), zap.Error(err))
		// a trapped guest never gives back what it held
		return nil, multierr.Append(
			errors.Wrap(errors.PhaseRuntime, errors.KindTrap, err, "call "+name),
			i.releaseHeld())
	}
	return results, nil
}

// CallWithHandles invokes an exported function, passing each handle as an
// own<audio-unit> argument. Every handle gains a runtime reference held by
// the instance, which the guest gives back through the drop import. If the
// call fails before the guest took over, or the guest traps, the references
// are returned here; any the guest still holds are returned by Close.
func (i *Instance) CallWithHandles(ctx context.Context, name string, handles ...*bridge.AudioUnitHandle) ([]uint64, error) {
	if i.instance == nil {
		return nil, errors.NotInitialized(errors.PhaseRuntime, "instance")
	}
	b := i.module.runtime.bridge
	args := make([]uint64, 0, len(handles))
	for _, h := range handles {
		if h == nil {
			i.releaseArgs(b, args)
			return nil, errors.NilPointer(errors.PhaseRuntime, []string{name, "handle"}, "*bridge.AudioUnitHandle")
		}
		if err := b.Retain(h.Handle()); err != nil {
			i.releaseArgs(b, args)
			return nil, err
		}
		i.refs().add(i.Name(), h.Handle())
		args = append(args, api.EncodeU32(uint32(h.Handle())))
	}

	fn := i.instance.ExportedFunction(name)
	if fn == nil || len(fn.Definition().ParamTypes()) != len(args) {
		i.releaseArgs(b, args)
	}
	return i.Call(ctx, name, args...)
}

// Name returns the unique module name of the instance.
func (i *Instance) Name() string {
	return i.instance.Name()
}

// Held returns how many handle references the guest currently holds.
func (i *Instance) Held() int {
	return i.refs().count(i.Name())
}

func (i *Instance) refs() *guestRefs {
	return i.module.runtime.refs
}

func (i *Instance) releaseArgs(b *bridge.Bridge, args []uint64) {
	for _, a := range args {
		if h := handleOf(a); i.refs().remove(i.Name(), h) {
			_ = b.Release(h)
		}
	}
}

func (i *Instance) releaseHeld() error {
	return releaseRefs(i.module.runtime.bridge, i.Name(), i.refs().take(i.Name()))
}

// Close closes the instance and releases the handle references its guest
// still holds.
func (i *Instance) Close(ctx context.Context) error {
	return multierr.Combine(
		i.instance.Close(ctx),
		i.releaseHeld(),
	)
}
