package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseWrap,
				Kind:   KindNilPointer,
				Path:   []string{"bridge", "unit"},
				GoType: "*audiounit.Unit",
				Detail: "nil pointer",
			},
			contains: []string{"[wrap]", "nil_pointer", "bridge.unit", "*audiounit.Unit", "nil pointer"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseLookup,
				Kind:  KindNotFound,
			},
			contains: []string{"[lookup]", "not_found"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseRuntime,
				Kind:   KindInstantiation,
				Detail: "instantiate module",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[runtime]", "instantiation", "instantiate module", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseConfig, KindInvalidInput, cause, "load env")

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := AllocationFailed(PhaseWrap, "arigato.AudioUnit", 4, 4)

	if !errors.Is(err, &Error{Phase: PhaseWrap, Kind: KindAllocation}) {
		t.Error("should match same phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseRelease, Kind: KindAllocation}) {
		t.Error("should not match a different phase")
	}
	if !errors.Is(err, ErrAllocation) {
		t.Error("should match the kind-only sentinel")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("should not match a different kind")
	}
}

func TestError_As(t *testing.T) {
	var wrapped error = Registration(PhaseHost, "arigato:audio/unit@0.1.0", "live-handles", Closed(PhaseRuntime, "runtime"))

	var target *Error
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As failed")
	}
	if target.Kind != KindRegistration {
		t.Errorf("Kind = %s, want %s", target.Kind, KindRegistration)
	}
	if !errors.Is(wrapped, ErrClosed) {
		t.Error("cause chain should match ErrClosed")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseLookup, KindTypeMismatch).
		Path("table", "7").
		GoType("string").
		Value(uint32(7)).
		Detail("handle %d has type %s", 7, "other").
		Build()

	if err.Phase != PhaseLookup || err.Kind != KindTypeMismatch {
		t.Fatalf("unexpected phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.Detail != "handle 7 has type other" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if err.Value != uint32(7) {
		t.Errorf("Value = %v", err.Value)
	}
	if got := err.Error(); !strings.Contains(got, "table.7") {
		t.Errorf("Error() = %q, missing path", got)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		err  *Error
		kind Kind
	}{
		{NilPointer(PhaseWrap, nil, "*Unit"), KindNilPointer},
		{NotFound(PhaseLookup, "handle", 3), KindNotFound},
		{TypeMismatch(PhaseLookup, 3, "a", "b"), KindTypeMismatch},
		{Invalidated(PhaseWrap, "audio unit"), KindInvalidated},
		{Closed(PhaseWrap, "table"), KindClosed},
		{InvalidInput(PhaseConfig, "bad"), KindInvalidInput},
		{NotInitialized(PhaseRuntime, "bridge"), KindNotInitialized},
		{Instantiation(errors.New("x")), KindInstantiation},
		{ParseFailed("fourcc", "ab", nil), KindInvalidInput},
	}
	for _, tt := range tests {
		if tt.err.Kind != tt.kind {
			t.Errorf("%s: Kind = %s, want %s", tt.err.Error(), tt.err.Kind, tt.kind)
		}
	}
}
