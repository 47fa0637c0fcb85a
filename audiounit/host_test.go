package audiounit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	aerrors "github.com/arigato/aubridge/errors"
)

func TestNewComponent(t *testing.T) {
	tests := []struct {
		fullName string
		manu     string
		name     string
	}{
		{"Apple: AUStereoMixer", "Apple", "AUStereoMixer"},
		{"Solo", "", "Solo"},
		{"", "", ""},
		{"A: B: C", "A", "B"},
	}
	for _, tt := range tests {
		c := NewComponent(StereoMixer, tt.fullName)
		if c.ManufacturerName != tt.manu || c.Name != tt.name {
			t.Errorf("NewComponent(%q) = (%q, %q), want (%q, %q)", tt.fullName, c.ManufacturerName, c.Name, tt.manu, tt.name)
		}
	}
}

func TestCatalog_FindAll(t *testing.T) {
	c := SystemCatalog()

	all := c.FindAll(Any)
	if len(all) != c.Len() || len(all) != 7 {
		t.Fatalf("FindAll(Any) returned %d components, catalog has %d", len(all), c.Len())
	}

	var names []string
	for _, comp := range c.FindAll(Description{Type: TypeOutput}) {
		names = append(names, comp.Name)
	}
	if diff := cmp.Diff([]string{"DefaultOutputUnit", "AUGenericOutput"}, names); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}

	if got := c.FindAll(Description{Manufacturer: 0x41424344}); len(got) != 0 {
		t.Errorf("unknown manufacturer matched %d components", len(got))
	}
}

func TestCatalog_Names(t *testing.T) {
	c := NewCatalog()
	c.Register(StereoMixer, "Apple: AUStereoMixer")
	c.Register(Description{Type: TypeEffect, SubType: 1, Manufacturer: 2}, "")

	if diff := cmp.Diff([]string{"AUStereoMixer", "-"}, c.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}

func TestHost_Instantiate(t *testing.T) {
	ctx := context.Background()
	h := NewHost(SystemCatalog())

	u, err := h.Instantiate(ctx, StereoMixer)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if !u.Alive() {
		t.Error("new unit should be alive")
	}
	if u.RetainCount() != 1 {
		t.Errorf("RetainCount = %d, want 1", u.RetainCount())
	}
	if !u.Description().Equal(StereoMixer) {
		t.Errorf("Description = %s", u.Description())
	}
	if got, ok := h.Lookup(u.ID()); !ok || got != u {
		t.Error("Lookup did not return the unit")
	}

	u2, err := h.Instantiate(ctx, StereoMixer)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if u2.ID() == u.ID() {
		t.Error("units must have distinct IDs")
	}
	if diff := cmp.Diff([]*Unit{u, u2}, h.Units(), cmp.Comparer(func(a, b *Unit) bool { return a == b })); diff != "" {
		t.Errorf("Units mismatch (-want +got):\n%s", diff)
	}
}

func TestHost_InstantiateErrors(t *testing.T) {
	h := NewHost(NewCatalog())

	_, err := h.Instantiate(context.Background(), StereoMixer)
	if !errors.Is(err, aerrors.ErrNotFound) {
		t.Errorf("unknown component: err = %v, want not found", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h = NewHost(SystemCatalog())
	_, err = h.Instantiate(ctx, StereoMixer)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("canceled context: err = %v", err)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_, err = h.Instantiate(context.Background(), StereoMixer)
	if !errors.Is(err, aerrors.ErrClosed) {
		t.Errorf("closed host: err = %v, want closed", err)
	}
}

func TestHost_Destroy(t *testing.T) {
	h := NewHost(SystemCatalog())
	u, err := h.Instantiate(context.Background(), DLSSynth)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	var aliveDuringNotify, destroyingDuringNotify, retainedDuringNotify bool
	var notified []*Unit
	h.Subscribe(DestroyObserverFunc(func(d *Unit) {
		aliveDuringNotify = d.Alive()
		destroyingDuringNotify = d.Destroying()
		retainedDuringNotify = d.Retain()
		notified = append(notified, d)
	}))

	if err := h.Destroy(u); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if len(notified) != 1 || notified[0] != u {
		t.Fatalf("observer notified with %v", notified)
	}
	if aliveDuringNotify {
		t.Error("unit should not be alive while observers run")
	}
	if !destroyingDuringNotify {
		t.Error("unit should report Destroying while observers run")
	}
	if retainedDuringNotify {
		t.Error("Retain inside a destroy observer should fail")
	}
	if u.Destroying() {
		t.Error("unit should not report Destroying after Destroy")
	}
	if u.Alive() {
		t.Error("unit should be dead after Destroy")
	}
	if u.RetainCount() != 0 {
		t.Errorf("RetainCount = %d, want 0", u.RetainCount())
	}
	if u.Retain() {
		t.Error("Retain on a destroyed unit should fail")
	}

	if err := h.Destroy(u); !errors.Is(err, aerrors.ErrNotFound) {
		t.Errorf("second Destroy: err = %v, want not found", err)
	}
	if err := h.Destroy(nil); err == nil {
		t.Error("Destroy(nil) should fail")
	}
}

func TestHost_CloseDestroysUnits(t *testing.T) {
	h := NewHost(SystemCatalog())
	ctx := context.Background()
	for _, d := range []Description{DefaultOutput, StereoMixer, SpeechSynthesis} {
		if _, err := h.Instantiate(ctx, d); err != nil {
			t.Fatalf("Instantiate(%s): %v", d, err)
		}
	}

	count := 0
	h.Subscribe(DestroyObserverFunc(func(*Unit) { count++ }))
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if count != 3 {
		t.Errorf("observer called %d times, want 3", count)
	}
	if len(h.Units()) != 0 {
		t.Errorf("%d units left after Close", len(h.Units()))
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestUnit_RetainRacesDestroy(t *testing.T) {
	for i := 0; i < 20; i++ {
		h := NewHost(SystemCatalog())
		u, err := h.Instantiate(context.Background(), StereoMixer)
		if err != nil {
			t.Fatalf("Instantiate: %v", err)
		}

		var wg sync.WaitGroup
		var won atomic.Int32
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if u.Retain() {
					won.Add(1)
				}
			}()
		}
		if err := h.Destroy(u); err != nil {
			t.Fatalf("Destroy: %v", err)
		}
		wg.Wait()

		if got, want := u.RetainCount(), won.Load(); got != want {
			t.Fatalf("RetainCount = %d, want %d successful retains", got, want)
		}
		if u.Retain() {
			t.Fatal("Retain after Destroy should fail")
		}
	}
}

func TestUnit_RetainRelease(t *testing.T) {
	u, err := NewHost(SystemCatalog()).Instantiate(context.Background(), AudioFilePlayer)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u.Retain()
			u.Release()
		}()
	}
	wg.Wait()

	if u.RetainCount() != 1 {
		t.Errorf("RetainCount = %d, want 1", u.RetainCount())
	}
	if n := u.Release(); n != 0 {
		t.Errorf("Release = %d, want 0", n)
	}
	if n := u.Release(); n != 0 {
		t.Errorf("Release below zero = %d, want 0", n)
	}
}
