package resource

// Handle is an opaque reference to an object in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// TypeID identifies a registered object type. TypeID 0 is never assigned.
type TypeID uint32

// Header is the bookkeeping the table attaches to every object it allocates.
// Only the table writes it; embedders store it and read it back.
type Header struct {
	typeName string
	handle   Handle
	typeID   TypeID
}

// Handle returns the object's handle.
func (h Header) Handle() Handle { return h.handle }

// TypeID returns the object's registered type.
func (h Header) TypeID() TypeID { return h.typeID }

// TypeName returns the name the type was registered under.
func (h Header) TypeName() string { return h.typeName }

// IsZero reports whether the header was never initialized by a table.
func (h Header) IsZero() bool { return h.handle == 0 }

// Event types for object lifecycle notifications.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventRetained
	EventReleased
	EventReclaimed
)

func (t EventType) String() string {
	switch t {
	case EventAllocated:
		return "allocated"
	case EventRetained:
		return "retained"
	case EventReleased:
		return "released"
	case EventReclaimed:
		return "reclaimed"
	default:
		return "unknown"
	}
}

// Event represents an object lifecycle event.
type Event struct {
	Value    any
	Handle   Handle
	TypeID   TypeID
	RefCount int32
	Type     EventType
}

// Observer receives notifications about object lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Finalizer is optionally implemented by objects that need cleanup when
// the table reclaims them.
type Finalizer interface {
	Finalize()
}

// Backend provides slot storage and reference counts for a Table.
type Backend interface {
	// Reserve claims a slot for typeID. The slot is invisible until Publish.
	Reserve(typeID TypeID) (Handle, error)
	// Publish stores the value of a reserved slot with a reference count of 1.
	Publish(handle Handle, value any) bool
	// Abandon frees a reserved slot that was never published.
	Abandon(handle Handle)
	// Get retrieves a published value by handle.
	Get(handle Handle) (any, bool)
	// TypeID returns the type of a published value.
	TypeID(handle Handle) (TypeID, bool)
	// Retain increments the reference count and returns the new count. A
	// non-zero typeID must match the slot's type, checked under the same lock.
	Retain(handle Handle, typeID TypeID) (int32, bool)
	// Release decrements the reference count. When it reaches zero the slot
	// is freed and the value returned with reclaimed set. A non-zero typeID
	// must match the slot's type.
	Release(handle Handle, typeID TypeID) (value any, refs int32, reclaimed bool, ok bool)
	// RefCount returns the current reference count.
	RefCount(handle Handle) (int32, bool)
	// Len returns the number of published values.
	Len() int
	// Reserved returns the number of slots in use, published or not.
	Reserved() int
	// Close frees every slot, passing each published value to fn.
	Close(fn func(Handle, TypeID, any))
}
