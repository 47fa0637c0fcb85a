package resource

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	aerrors "github.com/arigato/aubridge/errors"
)

type testObserver struct {
	events []EventType
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e.Type)
}

type object struct {
	header    Header
	finalized int
}

func (o *object) Finalize() { o.finalized++ }

func newObject(hdr Header) any { return &object{header: hdr} }

func TestTable_RegisterType(t *testing.T) {
	table := NewTable()

	a := table.RegisterType("a")
	b := table.RegisterType("b")
	if a == 0 || b == 0 || a == b {
		t.Fatalf("unexpected type IDs %d, %d", a, b)
	}
	if again := table.RegisterType("a"); again != a {
		t.Fatalf("re-registering returned %d, want %d", again, a)
	}
	if table.TypeName(b) != "b" {
		t.Errorf("TypeName(%d) = %q", b, table.TypeName(b))
	}
	if table.TypeName(0) != "" || table.TypeName(42) != "" {
		t.Error("unknown type IDs should have no name")
	}
}

func TestTable_Alloc(t *testing.T) {
	table := NewTable()
	typ := table.RegisterType("test.Object")

	v, err := table.Alloc(typ, newObject)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	obj := v.(*object)

	hdr := obj.header
	if hdr.IsZero() {
		t.Fatal("header not initialized")
	}
	if hdr.TypeID() != typ || hdr.TypeName() != "test.Object" {
		t.Errorf("header = %d/%q", hdr.TypeID(), hdr.TypeName())
	}
	if table.RefCount(hdr.Handle()) != 1 {
		t.Errorf("RefCount = %d, want 1", table.RefCount(hdr.Handle()))
	}

	got, ok := table.GetTyped(hdr.Handle(), typ)
	if !ok || got != obj {
		t.Fatal("GetTyped did not return the object")
	}
	if _, ok := table.GetTyped(hdr.Handle(), table.RegisterType("other")); ok {
		t.Fatal("GetTyped with wrong type should fail")
	}
	if typed, ok := Lookup[*object](table, hdr.Handle(), typ); !ok || typed != obj {
		t.Fatal("Lookup did not return the object")
	}
	if _, ok := Lookup[string](table, hdr.Handle(), typ); ok {
		t.Fatal("Lookup with wrong Go type should fail")
	}
}

func TestTable_AllocNotVisibleDuringInit(t *testing.T) {
	table := NewTable()
	typ := table.RegisterType("test.Object")

	var visible bool
	_, err := table.Alloc(typ, func(hdr Header) any {
		_, visible = table.Get(hdr.Handle())
		return &object{header: hdr}
	})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if visible {
		t.Fatal("object was reachable before its initializer returned")
	}
}

func TestTable_AllocErrors(t *testing.T) {
	table := NewTable(WithCapacity(2))
	typ := table.RegisterType("test.Object")

	if _, err := table.Alloc(99, newObject); !errors.Is(err, aerrors.ErrNotFound) {
		t.Errorf("unregistered type: err = %v", err)
	}

	if _, err := table.Alloc(typ, func(Header) any { return nil }); err == nil {
		t.Error("nil initializer result should fail")
	}
	if table.Len() != 0 {
		t.Fatalf("failed init left %d objects", table.Len())
	}

	for i := 0; i < 2; i++ {
		if _, err := table.Alloc(typ, newObject); err != nil {
			t.Fatalf("Alloc %d: %v", i, err)
		}
	}

	called := false
	_, err := table.Alloc(typ, func(hdr Header) any {
		called = true
		return &object{header: hdr}
	})
	if !errors.Is(err, aerrors.ErrAllocation) {
		t.Fatalf("exhausted table: err = %v, want allocation failure", err)
	}
	if called {
		t.Error("initializer ran although allocation failed")
	}
	if table.Len() != 2 {
		t.Errorf("Len = %d, want 2", table.Len())
	}
}

func TestTable_RetainRelease(t *testing.T) {
	table := NewTable()
	typ := table.RegisterType("test.Object")
	v, _ := table.Alloc(typ, newObject)
	obj := v.(*object)
	h := obj.header.Handle()

	if err := table.Retain(h); err != nil {
		t.Fatalf("Retain: %v", err)
	}
	if err := table.Release(h); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if obj.finalized != 0 {
		t.Fatal("finalized while a reference remained")
	}
	if err := table.Release(h); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if obj.finalized != 1 {
		t.Fatalf("finalized %d times, want 1", obj.finalized)
	}
	if _, ok := table.Get(h); ok {
		t.Fatal("object reachable after reclamation")
	}

	if err := table.Release(h); !errors.Is(err, aerrors.ErrNotFound) {
		t.Errorf("Release of reclaimed handle: err = %v", err)
	}
	if err := table.Retain(h); !errors.Is(err, aerrors.ErrNotFound) {
		t.Errorf("Retain of reclaimed handle: err = %v", err)
	}
	if obj.finalized != 1 {
		t.Fatalf("finalized %d times, want 1", obj.finalized)
	}
}

func TestTable_RetainReleaseTyped(t *testing.T) {
	table := NewTable()
	mine := table.RegisterType("test.Object")
	other := table.RegisterType("test.Other")
	v, _ := table.Alloc(other, newObject)
	obj := v.(*object)
	h := obj.header.Handle()

	obs := &testObserver{}
	unsubscribe := table.Subscribe(obs)
	defer unsubscribe()

	var e *aerrors.Error
	if err := table.RetainTyped(h, mine); !errors.As(err, &e) || e.Kind != aerrors.KindTypeMismatch {
		t.Fatalf("RetainTyped foreign: err = %v, want type mismatch", err)
	}
	if err := table.ReleaseTyped(h, mine); !errors.As(err, &e) || e.Kind != aerrors.KindTypeMismatch {
		t.Fatalf("ReleaseTyped foreign: err = %v, want type mismatch", err)
	}
	if got := table.RefCount(h); got != 1 {
		t.Fatalf("RefCount = %d after foreign-typed calls, want 1", got)
	}
	if len(obs.events) != 0 {
		t.Fatalf("events %v for rejected calls", obs.events)
	}

	if err := table.RetainTyped(h, other); err != nil {
		t.Fatalf("RetainTyped: %v", err)
	}
	if err := table.ReleaseTyped(h, other); err != nil {
		t.Fatalf("ReleaseTyped: %v", err)
	}
	if err := table.ReleaseTyped(h, other); err != nil {
		t.Fatalf("ReleaseTyped: %v", err)
	}
	if obj.finalized != 1 {
		t.Fatalf("finalized %d times, want 1", obj.finalized)
	}
	if err := table.ReleaseTyped(h, other); !errors.Is(err, aerrors.ErrNotFound) {
		t.Errorf("ReleaseTyped of reclaimed handle: err = %v", err)
	}
	want := []EventType{EventRetained, EventReleased, EventReleased, EventReclaimed}
	if diff := cmp.Diff(want, obs.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	typ := table.RegisterType("test.Object")
	obs := &testObserver{}
	unsubscribe := table.Subscribe(obs)

	v, _ := table.Alloc(typ, newObject)
	h := v.(*object).header.Handle()
	table.Retain(h)
	table.Release(h)
	table.Release(h)

	want := []EventType{EventAllocated, EventRetained, EventReleased, EventReleased, EventReclaimed}
	if diff := cmp.Diff(want, obs.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	unsubscribe()
	table.Alloc(typ, newObject)
	if len(obs.events) != len(want) {
		t.Fatal("Should not receive events after unsubscribe")
	}
}

func TestTable_ObserverFunc(t *testing.T) {
	table := NewTable()
	typ := table.RegisterType("test.Object")

	var reclaimed []Handle
	table.Subscribe(ObserverFunc(func(e Event) {
		if e.Type == EventReclaimed {
			reclaimed = append(reclaimed, e.Handle)
		}
	}))

	v, _ := table.Alloc(typ, newObject)
	h := v.(*object).header.Handle()
	table.Release(h)

	if diff := cmp.Diff([]Handle{h}, reclaimed); diff != "" {
		t.Errorf("reclaimed mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable()
	typ := table.RegisterType("test.Object")

	var objs []*object
	for i := 0; i < 3; i++ {
		v, _ := table.Alloc(typ, newObject)
		objs = append(objs, v.(*object))
	}
	table.Retain(objs[0].header.Handle())

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	for i, o := range objs {
		if o.finalized != 1 {
			t.Errorf("object %d finalized %d times, want 1", i, o.finalized)
		}
	}
	if table.Len() != 0 {
		t.Fatalf("Len = %d after Close", table.Len())
	}

	if _, err := table.Alloc(typ, newObject); !errors.Is(err, aerrors.ErrClosed) {
		t.Fatalf("Alloc after Close: err = %v", err)
	}
}

func TestEventType_String(t *testing.T) {
	got := []string{EventAllocated.String(), EventRetained.String(), EventReleased.String(), EventReclaimed.String(), EventType(99).String()}
	want := []string{"allocated", "retained", "released", "reclaimed", "unknown"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
