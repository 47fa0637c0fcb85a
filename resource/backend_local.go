package resource

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("resource backend closed")

var _ Backend = (*LocalBackend)(nil)

type slotState uint8

const (
	slotFree slotState = iota
	slotReserved
	slotLive
)

// LocalBackend is an in-memory backend with a free list for slot reuse.
type LocalBackend struct {
	entries  []entry
	freeList []Handle
	reserved int
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value  any
	typeID TypeID
	refs   int32
	state  slotState
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Reserve claims a slot for typeID.
func (b *LocalBackend) Reserve(typeID TypeID) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	e := entry{
		typeID: typeID,
		state:  slotReserved,
	}
	b.reserved++

	if len(b.freeList) > 0 {
		handle := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = e
		return handle, nil
	}

	b.entries = append(b.entries, e)
	return Handle(len(b.entries)), nil
}

// Publish makes a reserved slot visible with a reference count of 1.
func (b *LocalBackend) Publish(handle Handle, value any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || e.state != slotReserved {
		return false
	}
	e.value = value
	e.refs = 1
	e.state = slotLive
	return true
}

// Abandon frees a reserved slot that was never published.
func (b *LocalBackend) Abandon(handle Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || e.state != slotReserved {
		return
	}
	b.free(handle, e)
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil || e.state != slotLive {
		return nil, false
	}
	return e.value, true
}

// TypeID returns the type ID for a handle.
func (b *LocalBackend) TypeID(handle Handle) (TypeID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil || e.state != slotLive {
		return 0, false
	}
	return e.typeID, true
}

// Retain increments the reference count for a handle of typeID, or of any
// type when typeID is 0.
func (b *LocalBackend) Retain(handle Handle, typeID TypeID) (int32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.live(handle, typeID)
	if e == nil {
		return 0, false
	}
	e.refs++
	return e.refs, true
}

// Release decrements the reference count for a handle of typeID, or of any
// type when typeID is 0, and frees the slot at zero.
func (b *LocalBackend) Release(handle Handle, typeID TypeID) (any, int32, bool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.live(handle, typeID)
	if e == nil {
		return nil, 0, false, false
	}
	e.refs--
	if e.refs > 0 {
		return e.value, e.refs, false, true
	}
	value := e.value
	b.free(handle, e)
	return value, 0, true, true
}

// RefCount returns the reference count for a handle.
func (b *LocalBackend) RefCount(handle Handle) (int32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil || e.state != slotLive {
		return 0, false
	}
	return e.refs, true
}

// Len returns the number of published values.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.state == slotLive {
			count++
		}
	}
	return count
}

// Reserved returns the number of slots in use.
func (b *LocalBackend) Reserved() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.reserved
}

// Each iterates over all published values.
func (b *LocalBackend) Each(fn func(Handle, TypeID, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.state == slotLive {
			if !fn(Handle(i+1), e.typeID, e.value) {
				break
			}
		}
	}
}

// Close frees every slot, passing each published value to fn in handle order.
// fn runs after the backend lock is released.
func (b *LocalBackend) Close(fn func(Handle, TypeID, any)) {
	type freed struct {
		value  any
		handle Handle
		typeID TypeID
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true

	var values []freed
	for i, e := range b.entries {
		if e.state == slotLive {
			values = append(values, freed{value: e.value, handle: Handle(i + 1), typeID: e.typeID})
		}
	}
	b.entries = nil
	b.freeList = nil
	b.reserved = 0
	b.mu.Unlock()

	if fn == nil {
		return
	}
	for _, v := range values {
		fn(v.handle, v.typeID, v.value)
	}
}

// lookup must be called with b.mu held.
func (b *LocalBackend) lookup(handle Handle) *entry {
	if handle == 0 || int(handle) > len(b.entries) {
		return nil
	}
	return &b.entries[handle-1]
}

// live returns the published entry for handle if its type matches typeID.
// Must be called with b.mu held.
func (b *LocalBackend) live(handle Handle, typeID TypeID) *entry {
	e := b.lookup(handle)
	if e == nil || e.state != slotLive {
		return nil
	}
	if typeID != 0 && e.typeID != typeID {
		return nil
	}
	return e
}

// free must be called with b.mu held for writing.
func (b *LocalBackend) free(handle Handle, e *entry) {
	*e = entry{}
	b.reserved--
	b.freeList = append(b.freeList, handle)
}
