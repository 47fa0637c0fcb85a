package resource

import (
	"sync"

	"github.com/arigato/aubridge/errors"
)

// DefaultCapacity is the number of live objects a table holds unless
// configured otherwise.
const DefaultCapacity = 1 << 16

// Option configures a Table.
type Option func(*Table)

// WithCapacity bounds the number of objects the table can hold at once.
// Allocation beyond the bound fails the way an exhausted allocator would.
func WithCapacity(n int) Option {
	return func(t *Table) {
		if n > 0 {
			t.capacity = n
		}
	}
}

// Table is the object table of the scripting runtime: it registers object
// types, allocates objects with their Header, counts references, and
// reclaims objects when the last reference is released.
// Thread-safe.
type Table struct {
	backend   *LocalBackend
	observers map[int]Observer
	typeNames []string
	typeIDs   map[string]TypeID
	nextObs   int
	capacity  int
	allocMu   sync.Mutex
	typesMu   sync.RWMutex
	obsMu     sync.RWMutex
}

// NewTable creates a new table with a LocalBackend.
func NewTable(opts ...Option) *Table {
	t := &Table{
		backend:   NewLocalBackend(),
		observers: make(map[int]Observer),
		typeIDs:   make(map[string]TypeID),
		capacity:  DefaultCapacity,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Capacity returns the maximum number of live objects.
func (t *Table) Capacity() int {
	return t.capacity
}

// RegisterType returns the TypeID for name, registering it on first use.
func (t *Table) RegisterType(name string) TypeID {
	t.typesMu.Lock()
	defer t.typesMu.Unlock()

	if id, ok := t.typeIDs[name]; ok {
		return id
	}
	t.typeNames = append(t.typeNames, name)
	id := TypeID(len(t.typeNames))
	t.typeIDs[name] = id
	return id
}

// TypeName returns the registered name of id, or "" if unknown.
func (t *Table) TypeName(id TypeID) string {
	t.typesMu.RLock()
	defer t.typesMu.RUnlock()

	if id == 0 || int(id) > len(t.typeNames) {
		return ""
	}
	return t.typeNames[id-1]
}

// Alloc allocates an object of typeID. init receives the object's Header and
// returns the object; the object becomes reachable through the table only
// after init returns, with a reference count of 1.
//
// When the table is exhausted or closed, init is not called and no object exists.
func (t *Table) Alloc(typeID TypeID, init func(Header) any) (any, error) {
	name := t.TypeName(typeID)
	if name == "" {
		return nil, errors.NotFound(errors.PhaseAlloc, "type", typeID)
	}

	t.allocMu.Lock()
	if used := t.backend.Reserved(); used >= t.capacity {
		t.allocMu.Unlock()
		return nil, errors.AllocationFailed(errors.PhaseAlloc, name, used, t.capacity)
	}
	handle, err := t.backend.Reserve(typeID)
	t.allocMu.Unlock()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseAlloc, errors.KindClosed, err, "allocate "+name)
	}

	value := init(Header{typeName: name, handle: handle, typeID: typeID})
	if value == nil {
		t.backend.Abandon(handle)
		return nil, errors.New(errors.PhaseAlloc, errors.KindNilPointer).
			GoType(name).
			Detail("initializer returned nil").
			Build()
	}
	if !t.backend.Publish(handle, value) {
		return nil, errors.Closed(errors.PhaseAlloc, "table")
	}

	t.notify(Event{
		Type:     EventAllocated,
		Handle:   handle,
		TypeID:   typeID,
		Value:    value,
		RefCount: 1,
	})
	return value, nil
}

// Get retrieves an object by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves an object only if it has the expected type.
func (t *Table) GetTyped(handle Handle, typeID TypeID) (any, bool) {
	actual, ok := t.backend.TypeID(handle)
	if !ok || actual != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Lookup retrieves an object of typeID as T.
func Lookup[T any](t *Table, handle Handle, typeID TypeID) (T, bool) {
	var zero T
	v, ok := t.GetTyped(handle, typeID)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// TypeOf returns the type of the object behind handle.
func (t *Table) TypeOf(handle Handle) (TypeID, bool) {
	return t.backend.TypeID(handle)
}

// RefCount returns the object's reference count, 0 if the handle is not live.
func (t *Table) RefCount(handle Handle) int32 {
	n, _ := t.backend.RefCount(handle)
	return n
}

// Retain adds a reference to the object.
func (t *Table) Retain(handle Handle) error {
	return t.RetainTyped(handle, 0)
}

// RetainTyped adds a reference to the object if it is of type typeID. The
// type check and the increment happen atomically, so a handle reused by
// another type in between is never retained.
func (t *Table) RetainTyped(handle Handle, typeID TypeID) error {
	refs, ok := t.backend.Retain(handle, typeID)
	if !ok {
		return t.missing(errors.PhaseLookup, handle, typeID)
	}
	if typeID == 0 {
		typeID, _ = t.backend.TypeID(handle)
	}
	value, _ := t.backend.Get(handle)
	t.notify(Event{
		Type:     EventRetained,
		Handle:   handle,
		TypeID:   typeID,
		Value:    value,
		RefCount: refs,
	})
	return nil
}

// Release drops a reference. The last release reclaims the object: it is
// removed from the table first, then its Finalize method runs.
func (t *Table) Release(handle Handle) error {
	return t.ReleaseTyped(handle, 0)
}

// ReleaseTyped drops a reference if the object is of type typeID, checked
// atomically with the decrement.
func (t *Table) ReleaseTyped(handle Handle, typeID TypeID) error {
	if typeID == 0 {
		typeID, _ = t.backend.TypeID(handle)
	}
	value, refs, reclaimed, ok := t.backend.Release(handle, typeID)
	if !ok {
		return t.missing(errors.PhaseRelease, handle, typeID)
	}

	t.notify(Event{
		Type:     EventReleased,
		Handle:   handle,
		TypeID:   typeID,
		Value:    value,
		RefCount: refs,
	})
	if reclaimed {
		t.reclaim(handle, typeID, value)
	}
	return nil
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it.
func (t *Table) Subscribe(o Observer) (unsubscribe func()) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()

	id := t.nextObs
	t.nextObs++
	t.observers[id] = o
	return func() {
		t.obsMu.Lock()
		defer t.obsMu.Unlock()
		delete(t.observers, id)
	}
}

// Len returns the number of live objects.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over live objects in handle order.
func (t *Table) Each(fn func(Handle, TypeID, any) bool) {
	t.backend.Each(fn)
}

// Close reclaims every live object regardless of its reference count and
// rejects further allocation.
func (t *Table) Close() error {
	t.backend.Close(t.reclaim)
	return nil
}

func (t *Table) reclaim(handle Handle, typeID TypeID, value any) {
	if f, ok := value.(Finalizer); ok {
		f.Finalize()
	}
	t.notify(Event{
		Type:   EventReclaimed,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
}

func (t *Table) missing(phase errors.Phase, handle Handle, want TypeID) error {
	if got, ok := t.backend.TypeID(handle); ok && want != 0 && got != want {
		return errors.TypeMismatch(phase, uint32(handle), t.TypeName(want), t.TypeName(got))
	}
	return errors.NotFound(phase, "handle", handle)
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	observers := make([]Observer, 0, len(t.observers))
	for _, o := range t.observers {
		observers = append(observers, o)
	}
	t.obsMu.RUnlock()

	for _, o := range observers {
		o.OnResourceEvent(e)
	}
}
