// Package runtime runs WebAssembly guests that script native audio units.
//
// The runtime instantiates a host module, HostModuleName, whose functions
// operate on the AudioUnitHandle objects of a bridge. Guests see handles as
// i32 values typed own<audio-unit> or borrow<audio-unit> in the WIT
// Interface, and give references back with the resource-drop import.
//
// # Quick Start
//
//	table := resource.NewTable()
//	b := bridge.New(table)
//	b.Attach(host)
//
//	rt, err := runtime.New(ctx, b)
//	if err != nil {
//	    return err
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.LoadWASM(ctx, wasmBytes)
//	if err != nil {
//	    return err
//	}
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    return err
//	}
//	defer inst.Close(ctx)
//
//	h, _ := b.Wrap(unit)
//	results, err := inst.CallWithHandles(ctx, "process", h)
//
// # Host Functions
//
//	[resource-drop]audio-unit                  (i32)
//	[method]audio-unit.clone                   (i32) -> i32
//	[method]audio-unit.is-valid                (i32) -> i32
//	[method]audio-unit.component-type          (i32) -> i32
//	[method]audio-unit.component-subtype       (i32) -> i32
//	[method]audio-unit.component-manufacturer  (i32) -> i32
//	live-handles                               () -> i32
//
// Dropping or cloning a handle that does not resolve traps the guest. The
// query methods return 0 for such handles and for invalidated ones.
//
// Each instance tracks the references its guest holds. Those still held
// when a call traps, or when the instance or runtime closes, are released
// on the guest's behalf.
//
// # Logging
//
// The package logs through a package-level zap logger, a no-op until
// SetLogger is called.
package runtime
