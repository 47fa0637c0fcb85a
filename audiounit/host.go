package audiounit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arigato/aubridge/errors"
)

// Unit is a live native instance of a component. Its lifetime belongs to
// the Host that created it; other code only holds references.
type Unit struct {
	component Component
	id        uuid.UUID
	retain    atomic.Int32
	state     atomic.Int32
}

// Unit lifecycle states. A unit only moves forward.
const (
	unitAlive int32 = iota
	unitDestroying
	unitDead
)

// ID returns the unit's instance identity.
func (u *Unit) ID() uuid.UUID { return u.id }

// Component returns the component the unit was instantiated from.
func (u *Unit) Component() Component { return u.component }

// Description returns the unit's component description.
func (u *Unit) Description() Description { return u.component.Description }

// Alive reports whether the host has not started destroying the unit.
func (u *Unit) Alive() bool { return u.state.Load() == unitAlive }

// Destroying reports whether the host is notifying destroy observers.
func (u *Unit) Destroying() bool { return u.state.Load() == unitDestroying }

// RetainCount returns the native reference count. The host holds one
// reference for as long as the unit is alive.
func (u *Unit) RetainCount() int32 { return u.retain.Load() }

// Retain adds a native reference. It fails once the unit is destroyed.
func (u *Unit) Retain() bool {
	if !u.Alive() {
		return false
	}
	u.retain.Add(1)
	// lost against Destroy
	if !u.Alive() {
		u.Release()
		return false
	}
	return true
}

// Release drops a native reference and returns the remaining count.
func (u *Unit) Release() int32 {
	for {
		n := u.retain.Load()
		if n <= 0 {
			return 0
		}
		if u.retain.CompareAndSwap(n, n-1) {
			return n - 1
		}
	}
}

func (u *Unit) String() string {
	return u.component.String() + " #" + u.id.String()
}

// DestroyObserver is notified before a unit is torn down.
type DestroyObserver interface {
	OnUnitDestroyed(u *Unit)
}

// DestroyObserverFunc adapts a function to DestroyObserver.
type DestroyObserverFunc func(u *Unit)

func (f DestroyObserverFunc) OnUnitDestroyed(u *Unit) { f(u) }

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostLogger sets the host's logger.
func WithHostLogger(l *zap.Logger) HostOption {
	return func(h *Host) {
		h.logger = l
	}
}

// Host instantiates and destroys native units.
// Thread-safe.
type Host struct {
	catalog   *Catalog
	logger    *zap.Logger
	units     map[uuid.UUID]*Unit
	order     []uuid.UUID
	observers []DestroyObserver
	mu        sync.RWMutex
	closed    bool
}

// NewHost creates a host instantiating units from catalog.
func NewHost(catalog *Catalog, opts ...HostOption) *Host {
	h := &Host{
		catalog: catalog,
		logger:  zap.NewNop(),
		units:   make(map[uuid.UUID]*Unit),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Catalog returns the host's component catalog.
func (h *Host) Catalog() *Catalog { return h.catalog }

// Instantiate creates a unit from the first catalog component matching desc.
func (h *Host) Instantiate(ctx context.Context, desc Description) (*Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindInstantiation, err, "instantiate "+desc.String())
	}

	comp, ok := h.catalog.Find(desc)
	if !ok {
		return nil, errors.NotFound(errors.PhaseHost, "component", desc.String())
	}

	u := &Unit{
		component: comp,
		id:        uuid.New(),
	}
	u.retain.Store(1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, errors.Closed(errors.PhaseHost, "audio unit host")
	}
	h.units[u.id] = u
	h.order = append(h.order, u.id)
	h.mu.Unlock()

	h.logger.Debug("audio unit instantiated",
		zap.Stringer("unit", u.id),
		zap.Stringer("component", comp.Description))
	return u, nil
}

// Lookup returns a live unit by ID.
func (h *Host) Lookup(id uuid.UUID) (*Unit, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	u, ok := h.units[id]
	return u, ok
}

// Units returns the live units in creation order.
func (h *Host) Units() []*Unit {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]*Unit, 0, len(h.order))
	for _, id := range h.order {
		result = append(result, h.units[id])
	}
	return result
}

// Subscribe registers an observer for unit destruction.
func (h *Host) Subscribe(o DestroyObserver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers = append(h.observers, o)
}

// Destroy tears down a unit. The unit stops being Alive before observers
// run, so nothing can take a new reference on it while they do; observers
// can still read its identity and description.
func (h *Host) Destroy(u *Unit) error {
	if u == nil {
		return errors.NilPointer(errors.PhaseHost, nil, "*audiounit.Unit")
	}

	h.mu.Lock()
	if _, ok := h.units[u.id]; !ok {
		h.mu.Unlock()
		return errors.NotFound(errors.PhaseHost, "audio unit", u.id)
	}
	delete(h.units, u.id)
	for i, id := range h.order {
		if id == u.id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	observers := append([]DestroyObserver(nil), h.observers...)
	u.state.Store(unitDestroying)
	h.mu.Unlock()

	for _, o := range observers {
		o.OnUnitDestroyed(u)
	}

	u.state.Store(unitDead)
	u.Release()
	h.logger.Debug("audio unit destroyed",
		zap.Stringer("unit", u.id),
		zap.Int32("retain_count", u.RetainCount()))
	return nil
}

// Close destroys every live unit and rejects further instantiation.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	var err error
	for _, u := range h.Units() {
		err = multierr.Append(err, h.Destroy(u))
	}
	return err
}
