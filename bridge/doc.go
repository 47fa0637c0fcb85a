// Package bridge exposes native audio units to the guest scripting runtime.
//
// An AudioUnitHandle pairs the runtime's object Header with a reference to
// an audiounit.Unit. The runtime owns the header and the handle's lifetime;
// the audio-unit host owns the unit's lifetime. A handle never destroys the
// unit it references.
//
//	table := resource.NewTable()
//	b := bridge.New(table, bridge.WithLogger(logger))
//	b.Attach(host)
//
//	h, err := b.Wrap(unit)
//	if errors.Is(err, aerrors.ErrAllocation) {
//	    // table exhausted, unit untouched
//	}
//
// # Ownership
//
// Under the default NonOwning policy a handle observes its unit and leaves
// the unit's native retain count alone. Under Shared it retains the unit
// after allocation and releases it when finalized.
//
// # Invalidation
//
// When the host destroys a unit, every handle wrapping it is invalidated:
// Unit returns nil from then on. The handles themselves stay allocated until
// the guest drops its last reference.
package bridge
