package runtime

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/arigato/aubridge/audiounit"
	"github.com/arigato/aubridge/bridge"
	"github.com/arigato/aubridge/resource"
)

// HostModuleName is the import module name guests use.
const HostModuleName = "arigato:audio/unit@0.1.0"

// Host function names.
const (
	FuncDrop                  = "[resource-drop]audio-unit"
	FuncClone                 = "[method]audio-unit.clone"
	FuncIsValid               = "[method]audio-unit.is-valid"
	FuncComponentType         = "[method]audio-unit.component-type"
	FuncComponentSubType      = "[method]audio-unit.component-subtype"
	FuncComponentManufacturer = "[method]audio-unit.component-manufacturer"
	FuncLiveHandles           = "live-handles"
)

// hostFunc is one export of the host module.
type hostFunc struct {
	fn   api.GoModuleFunc
	name string
	sig  Signature
}

// hostFuncs returns the exports backed by b, in export order. References
// guests take or give back are recorded in refs under the calling module.
func hostFuncs(b *bridge.Bridge, refs *guestRefs) []hostFunc {
	return []hostFunc{
		{
			name: FuncDrop,
			sig:  Signature{Params: []wit.Type{Own()}},
			fn: func(ctx context.Context, mod api.Module, stack []uint64) {
				handle := handleOf(stack[0])
				if err := b.Release(handle); err != nil {
					Logger().Warn("drop of invalid audio unit handle",
						zap.Uint32("handle", uint32(handle)),
						zap.String("module", mod.Name()),
						zap.Error(err))
					panic(err)
				}
				refs.remove(mod.Name(), handle)
			},
		},
		{
			name: FuncClone,
			sig:  Signature{Params: []wit.Type{Borrow()}, Results: []wit.Type{Own()}},
			fn: func(ctx context.Context, mod api.Module, stack []uint64) {
				handle := handleOf(stack[0])
				if err := b.Retain(handle); err != nil {
					panic(err)
				}
				refs.add(mod.Name(), handle)
				stack[0] = api.EncodeU32(uint32(handle))
			},
		},
		{
			name: FuncIsValid,
			sig:  Signature{Params: []wit.Type{Borrow()}, Results: []wit.Type{wit.Bool{}}},
			fn: func(ctx context.Context, mod api.Module, stack []uint64) {
				var valid uint32
				if h, err := b.Lookup(handleOf(stack[0])); err == nil && h.Valid() {
					valid = 1
				}
				stack[0] = api.EncodeU32(valid)
			},
		},
		descriptionFunc(b, FuncComponentType, func(d audiounit.Description) audiounit.Code { return d.Type }),
		descriptionFunc(b, FuncComponentSubType, func(d audiounit.Description) audiounit.Code { return d.SubType }),
		descriptionFunc(b, FuncComponentManufacturer, func(d audiounit.Description) audiounit.Code { return d.Manufacturer }),
		{
			name: FuncLiveHandles,
			sig:  Signature{Results: []wit.Type{wit.U32{}}},
			fn: func(ctx context.Context, mod api.Module, stack []uint64) {
				stack[0] = api.EncodeU32(uint32(b.Len()))
			},
		},
	}
}

// descriptionFunc returns a method reporting one field of the wrapped
// unit's component description, or 0 when the handle is invalid.
func descriptionFunc(b *bridge.Bridge, name string, field func(audiounit.Description) audiounit.Code) hostFunc {
	return hostFunc{
		name: name,
		sig:  Signature{Params: []wit.Type{Borrow()}, Results: []wit.Type{wit.U32{}}},
		fn: func(ctx context.Context, mod api.Module, stack []uint64) {
			var code audiounit.Code
			if h, err := b.Lookup(handleOf(stack[0])); err == nil {
				if u := h.Unit(); u != nil {
					code = field(u.Description())
				}
			}
			stack[0] = api.EncodeU32(uint32(code))
		},
	}
}

func handleOf(v uint64) resource.Handle {
	return resource.Handle(api.DecodeU32(v))
}

// buildHostModule instantiates the host module into rt.
func buildHostModule(ctx context.Context, rt wazero.Runtime, b *bridge.Bridge, refs *guestRefs) (api.Module, error) {
	builder := rt.NewHostModuleBuilder(HostModuleName)
	for _, f := range hostFuncs(b, refs) {
		params, results := f.sig.CoreTypes()
		builder.NewFunctionBuilder().
			WithGoModuleFunction(f.fn, params, results).
			WithName(f.name).
			Export(f.name)
	}
	return builder.Instantiate(ctx)
}
