package errors

import (
	"errors"
	"fmt"
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
				Phase:      PhaseDecode,
				Kind:       KindTypeMismatch,
				Path:       []string{"User", "setName", "0"},
				GoType:     "string",
				ScriptType: "number",
				Detail:     "cannot convert",
			},
			contains: []string{"[decode]", "type_mismatch", "User.setName.0", "expected string", "got number", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseRuntime,
				Kind:  KindStaleRuntime,
			},
			contains: []string{"[runtime]", "stale_runtime"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseInvoke,
				Kind:   KindPanic,
				Detail: "handler failed",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[invoke]", "panic", "handler failed", "caused by", "underlying error"},
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
	err := &Error{
		Phase: PhaseHost,
		Kind:  KindMissingObject,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindTypeMismatch,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseDecode, Kind: KindTypeMismatch}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseEncode, Kind: KindTypeMismatch}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindOverflow}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, ErrTypeConversion) {
		t.Error("errors.Is should match the kind-only sentinel")
	}
	if errors.Is(err, ErrNameConflict) {
		t.Error("errors.Is should not match an unrelated sentinel")
	}
}

func TestIsKind(t *testing.T) {
	wrapped := fmt.Errorf("spawn: %w", Closed("runtime"))
	if !IsKind(wrapped, KindClosed) {
		t.Error("IsKind should see through wrapping")
	}
	if IsKind(wrapped, KindStaleRuntime) {
		t.Error("IsKind should not match a different kind")
	}
	if IsKind(errors.New("plain"), KindClosed) {
		t.Error("IsKind should not match plain errors")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDecode, KindTypeMismatch).
		Path("user", "name").
		GoType("string").
		ScriptType("number").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "string", "number").
		Build()

	if err.Phase != PhaseDecode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDecode)
	}
	if len(err.Path) != 2 || err.Path[0] != "user" || err.Path[1] != "name" {
		t.Errorf("Path = %v, want [user name]", err.Path)
	}
	if err.Expected() != "string" || err.Actual() != "number" {
		t.Errorf("Expected=%v Actual=%v", err.Expected(), err.Actual())
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected string, got number" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("NameConflict", func(t *testing.T) {
		err := NameConflict("User", "name", "method", "getter")
		if !errors.Is(err, ErrNameConflict) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNameConflict)
		}
		if !strings.Contains(err.Error(), `cannot add method "name"`) {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("TypeConversion", func(t *testing.T) {
		err := TypeConversion(PhaseDecode, []string{"arg"}, "int", "string")
		if err.Expected() != "int" || err.Actual() != "string" {
			t.Errorf("Expected=%v Actual=%v", err.Expected(), err.Actual())
		}
	})

	t.Run("StaleRuntime", func(t *testing.T) {
		err := StaleRuntime("worker-1", "frame callback")
		if err.Fatal() {
			t.Error("stale runtime errors must not be fatal")
		}
		if !errors.Is(err, ErrStaleRuntime) {
			t.Error("errors.Is should match ErrStaleRuntime")
		}
	})

	t.Run("MissingObject", func(t *testing.T) {
		err := MissingObject("User")
		if !err.Fatal() {
			t.Error("missing object errors are fatal")
		}
		if !errors.Is(err, ErrMissingObject) {
			t.Error("errors.Is should match ErrMissingObject")
		}
	})

	t.Run("Arity", func(t *testing.T) {
		err := Arity([]string{"User", "greet"}, 1, 0)
		if err.Kind != KindArity || err.Value != 0 {
			t.Errorf("Kind=%v Value=%v", err.Kind, err.Value)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseDecode, []string{"val"}, 300, "uint8")
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
		if err.Value != 300 {
			t.Errorf("Value = %v, want 300", err.Value)
		}
	})

	t.Run("Panic", func(t *testing.T) {
		err := Panic([]string{"User", "boom"}, errors.New("kaboom"))
		if !strings.Contains(err.Detail, "kaboom") {
			t.Errorf("Detail = %v", err.Detail)
		}
		err = Panic(nil, 7)
		if err.Detail != "panic: 7" {
			t.Errorf("Detail = %v", err.Detail)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		err := Closed("runtime worker-2")
		if err.Kind != KindClosed || err.Phase != PhaseRuntime {
			t.Errorf("Kind=%v Phase=%v", err.Kind, err.Phase)
		}
	})
}
