// Package aubridge exposes native audio units to a WebAssembly scripting
// runtime.
//
// A native audio unit lives in an audio-unit host that owns its lifetime.
// The scripting runtime refers to objects through integer handles in an
// object table. This library connects the two: it wraps a unit in a
// runtime-managed AudioUnitHandle so guest code can hold, pass and release
// it, without the runtime ever owning or tearing down the unit itself.
//
// # Architecture Overview
//
//	aubridge/
//	├── audiounit/       Native side: FourCC codes, component descriptions, unit host
//	├── resource/        Runtime object table: headers, reference counts, finalizers
//	├── bridge/          AudioUnitHandle and the Bridge that wraps units
//	├── runtime/         wazero host module exposing handles to guests
//	├── config/          Environment configuration
//	├── errors/          Structured error types
//	└── cmd/arighost/    CLI and interactive host
//
// # Quick Start
//
//	host := audiounit.NewHost(audiounit.SystemCatalog())
//	unit, _ := host.Instantiate(ctx, audiounit.StereoMixer)
//
//	b := bridge.New(resource.NewTable())
//	b.Attach(host)
//
//	h, err := b.Wrap(unit)
//	if err != nil {
//	    return err
//	}
//	defer b.Release(h.Handle())
//
// # Lifetimes
//
// Wrapping never changes the unit. Each Wrap yields a new handle with one
// runtime reference; the last Release finalizes the handle and drops its
// unit reference. Destroying the unit in the host invalidates every handle
// that wraps it.
package aubridge
