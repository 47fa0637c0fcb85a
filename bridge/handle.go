package bridge

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/arigato/aubridge/audiounit"
	"github.com/arigato/aubridge/resource"
)

// TypeName is the runtime type name of AudioUnitHandle objects.
const TypeName = "arigato.AudioUnit"

// AudioUnitHandle is the guest-visible object carrying a reference to a
// native audio unit. The header belongs to the runtime's object table; the
// unit reference is set once at construction and only ever cleared, by
// invalidation or finalization.
type AudioUnitHandle struct {
	header resource.Header
	unit   atomic.Pointer[audiounit.Unit]
	bridge *Bridge
}

// Header returns the runtime bookkeeping for h.
func (h *AudioUnitHandle) Header() resource.Header { return h.header }

// Handle returns the runtime handle guests use to refer to h.
func (h *AudioUnitHandle) Handle() resource.Handle { return h.header.Handle() }

// Unit returns the referenced native unit, or nil once h has been
// invalidated or finalized.
func (h *AudioUnitHandle) Unit() *audiounit.Unit { return h.unit.Load() }

// Valid reports whether h still references a live unit.
func (h *AudioUnitHandle) Valid() bool {
	u := h.unit.Load()
	return u != nil && u.Alive()
}

// Finalize runs when the runtime reclaims h. It drops h's reference to the
// unit and never destroys the unit itself.
func (h *AudioUnitHandle) Finalize() {
	u := h.unit.Swap(nil)
	b := h.bridge
	if u == nil {
		b.logger.Debug("audio unit handle finalized",
			zap.Uint32("handle", uint32(h.Handle())),
			zap.Bool("invalidated", true))
		return
	}

	b.unindex(u, h.Handle())
	if b.ownership == Shared {
		u.Release()
	}
	b.logger.Debug("audio unit handle finalized",
		zap.Uint32("handle", uint32(h.Handle())),
		zap.Stringer("unit", u.ID()),
		zap.Int32("unit_retain_count", u.RetainCount()))
}

// invalidate clears the unit reference if it still points at u.
func (h *AudioUnitHandle) invalidate(u *audiounit.Unit) bool {
	return h.unit.CompareAndSwap(u, nil)
}

func (h *AudioUnitHandle) String() string {
	u := h.unit.Load()
	if u == nil {
		return fmt.Sprintf("<%s #%d invalid>", TypeName, h.Handle())
	}
	return fmt.Sprintf("<%s #%d %s>", TypeName, h.Handle(), u.Description())
}
