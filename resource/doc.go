// Package resource provides the object table of the guest scripting runtime.
//
// Every object the runtime hands to a guest lives in a Table under an
// integer Handle. The table owns the object's bookkeeping (its Header:
// handle and registered type) and its reference count; the object itself
// only stores the Header it was given at allocation.
//
// # Types
//
// Object types are registered by name and receive a stable TypeID:
//
//	table := resource.NewTable()
//	unitType := table.RegisterType("arigato.AudioUnit")
//
// # Allocation
//
// Alloc reserves a slot, passes the Header to an initializer, and publishes
// the object only once the initializer returns, so a partially built object
// is never reachable:
//
//	v, err := table.Alloc(unitType, func(hdr resource.Header) any {
//	    return &myObject{header: hdr}
//	})
//
// A table created WithCapacity(n) fails allocation once n objects are in
// use. The error has Kind allocation and the initializer is never run.
//
// # Reference Counting
//
// Objects start with one reference. Retain adds one, Release drops one.
// The last Release removes the object from the table and then calls its
// Finalize method if it implements Finalizer.
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	unsubscribe := table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    if e.Type == resource.EventReclaimed {
//	        log.Printf("object %d reclaimed", e.Handle)
//	    }
//	}))
//	defer unsubscribe()
//
// # Shutdown
//
// Close reclaims every live object regardless of outstanding references and
// rejects further allocation.
package resource
