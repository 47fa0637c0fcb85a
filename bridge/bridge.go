package bridge

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arigato/aubridge/audiounit"
	"github.com/arigato/aubridge/errors"
	"github.com/arigato/aubridge/resource"
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithOwnership sets the ownership policy. The default is NonOwning.
func WithOwnership(o Ownership) Option {
	return func(b *Bridge) {
		b.ownership = o
	}
}

// WithLogger sets the bridge's logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// Bridge produces AudioUnitHandle objects in a runtime object table and
// keeps them from outliving the units they reference.
// Thread-safe.
type Bridge struct {
	table     *resource.Table
	logger    *zap.Logger
	byUnit    map[uuid.UUID]map[resource.Handle]*AudioUnitHandle
	typeID    resource.TypeID
	ownership Ownership
	mu        sync.Mutex
}

// New registers the AudioUnitHandle type in table and returns a bridge
// allocating from it.
func New(table *resource.Table, opts ...Option) *Bridge {
	b := &Bridge{
		table:  table,
		logger: zap.NewNop(),
		byUnit: make(map[uuid.UUID]map[resource.Handle]*AudioUnitHandle),
		typeID: table.RegisterType(TypeName),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Table returns the runtime object table.
func (b *Bridge) Table() *resource.Table { return b.table }

// TypeID returns the registered type of AudioUnitHandle objects.
func (b *Bridge) TypeID() resource.TypeID { return b.typeID }

// Ownership returns the ownership policy.
func (b *Bridge) Ownership() Ownership { return b.ownership }

// Attach subscribes b to unit destruction on host so that handles are
// invalidated before their unit is torn down.
func (b *Bridge) Attach(host *audiounit.Host) {
	host.Subscribe(b)
}

// OnUnitDestroyed implements audiounit.DestroyObserver.
func (b *Bridge) OnUnitDestroyed(u *audiounit.Unit) {
	b.Invalidate(u)
}

// Wrap returns a new handle referencing unit with one runtime reference.
//
// Every call yields a distinct handle, also for a unit that is already
// wrapped. Wrap fails for a nil or destroyed unit, including one whose
// destruction is in progress, and with an allocation error when the table is
// exhausted; in every failure case the unit is left exactly as it was.
func (b *Bridge) Wrap(unit *audiounit.Unit) (*AudioUnitHandle, error) {
	if unit == nil {
		return nil, errors.NilPointer(errors.PhaseWrap, []string{"unit"}, "*audiounit.Unit")
	}
	if !unit.Alive() {
		return nil, errors.Invalidated(errors.PhaseWrap, "audio unit "+unit.ID().String())
	}

	var created *AudioUnitHandle
	dead := false
	v, err := b.table.Alloc(b.typeID, func(hdr resource.Header) any {
		if b.ownership == Shared && !unit.Retain() {
			dead = true
			return nil
		}
		h := &AudioUnitHandle{header: hdr, bridge: b}
		h.unit.Store(unit)
		if !b.index(unit, h) {
			if b.ownership == Shared {
				unit.Release()
			}
			dead = true
			return nil
		}
		created = h
		return h
	})
	if dead {
		// the slot was abandoned without ever being published
		return nil, errors.Invalidated(errors.PhaseWrap, "audio unit "+unit.ID().String())
	}
	if err != nil {
		if created != nil && created.invalidate(unit) {
			b.unindex(unit, created.Handle())
			if b.ownership == Shared {
				unit.Release()
			}
		}
		b.logger.Warn("audio unit wrap failed",
			zap.Stringer("unit", unit.ID()),
			zap.Error(err))
		return nil, err
	}

	h := v.(*AudioUnitHandle)
	if h.Unit() == nil {
		// invalidated between indexing and publication
		_ = b.table.Release(h.Handle())
		return nil, errors.Invalidated(errors.PhaseWrap, "audio unit "+unit.ID().String())
	}
	b.logger.Debug("audio unit wrapped",
		zap.Uint32("handle", uint32(h.Handle())),
		zap.Stringer("unit", unit.ID()),
		zap.Stringer("component", unit.Description()),
		zap.Stringer("ownership", b.ownership))
	return h, nil
}

// Lookup resolves a runtime handle to its AudioUnitHandle.
func (b *Bridge) Lookup(handle resource.Handle) (*AudioUnitHandle, error) {
	if h, ok := resource.Lookup[*AudioUnitHandle](b.table, handle, b.typeID); ok {
		return h, nil
	}
	if typeID, ok := b.table.TypeOf(handle); ok {
		return nil, errors.TypeMismatch(errors.PhaseLookup, uint32(handle), TypeName, b.table.TypeName(typeID))
	}
	return nil, errors.NotFound(errors.PhaseLookup, "handle", handle)
}

// Retain adds a runtime reference to an AudioUnitHandle.
func (b *Bridge) Retain(handle resource.Handle) error {
	return b.table.RetainTyped(handle, b.typeID)
}

// Release drops a runtime reference. The last release reclaims the handle.
func (b *Bridge) Release(handle resource.Handle) error {
	return b.table.ReleaseTyped(handle, b.typeID)
}

// Handles returns the live handles still referencing unit, in handle order.
func (b *Bridge) Handles(unit *audiounit.Unit) []*AudioUnitHandle {
	if unit == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.byUnit[unit.ID()]
	result := make([]*AudioUnitHandle, 0, len(set))
	for _, h := range set {
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Handle() < result[j].Handle() })
	return result
}

// Invalidate clears the unit reference of every handle wrapping unit and
// returns how many handles were affected. The handles stay allocated until
// the runtime releases them.
func (b *Bridge) Invalidate(unit *audiounit.Unit) int {
	if unit == nil {
		return 0
	}
	b.mu.Lock()
	set := b.byUnit[unit.ID()]
	delete(b.byUnit, unit.ID())
	b.mu.Unlock()

	n := 0
	for _, h := range set {
		if h.invalidate(unit) {
			n++
			if b.ownership == Shared {
				unit.Release()
			}
		}
	}
	if n > 0 {
		b.logger.Info("audio unit handles invalidated",
			zap.Stringer("unit", unit.ID()),
			zap.Int("handles", n))
	}
	return n
}

// Len returns the number of live AudioUnitHandle objects.
func (b *Bridge) Len() int {
	n := 0
	b.table.Each(func(_ resource.Handle, typeID resource.TypeID, _ any) bool {
		if typeID == b.typeID {
			n++
		}
		return true
	})
	return n
}

// index records h under u. It refuses once u has stopped being alive: the
// host marks a unit dead before its observers run, and Invalidate takes b.mu
// after that, so every handle indexed here is seen by Invalidate.
func (b *Bridge) index(u *audiounit.Unit, h *AudioUnitHandle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !u.Alive() {
		return false
	}
	set := b.byUnit[u.ID()]
	if set == nil {
		set = make(map[resource.Handle]*AudioUnitHandle)
		b.byUnit[u.ID()] = set
	}
	set[h.Handle()] = h
	return true
}

func (b *Bridge) unindex(u *audiounit.Unit, handle resource.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.byUnit[u.ID()]
	delete(set, handle)
	if len(set) == 0 {
		delete(b.byUnit, u.ID())
	}
}
