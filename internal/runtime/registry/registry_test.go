package registry

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/lambdaloop/internal/runtime/errors"
)

func echoFunction(name string) Function {
	return NewFunction(name, func(msg *message.Message) (*message.Message, error) {
		return msg, nil
	})
}

func TestRegisterValidation(t *testing.T) {
	r := New()

	if err := r.Register(nil); !errors.Is(err, errspkg.ErrFunctionRequired) {
		t.Errorf("expected function required error, got %v", err)
	}
	if err := r.Register(echoFunction("")); !errors.Is(err, errspkg.ErrFunctionNameRequired) {
		t.Errorf("expected name required error, got %v", err)
	}
	if err := r.Register(echoFunction("echo")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(echoFunction("echo")); err == nil {
		t.Error("expected duplicate registration error")
	}
}

func TestLookupByName(t *testing.T) {
	r := New()
	if err := r.Register(echoFunction("myFunc")); err != nil {
		t.Fatal(err)
	}

	if fn := r.Lookup("myFunc", "application/json"); fn == nil || fn.Name() != "myFunc" {
		t.Fatalf("expected myFunc, got %v", fn)
	}
	if fn := r.Lookup("other", "application/json"); fn != nil {
		t.Fatalf("expected nil for unknown name, got %v", fn)
	}
}

func TestLookupDefaultConvention(t *testing.T) {
	r := New()
	if err := r.Register(echoFunction("only")); err != nil {
		t.Fatal(err)
	}

	if fn := r.Lookup("", "application/json"); fn == nil || fn.Name() != "only" {
		t.Fatal("single registered function should resolve as default")
	}

	if err := r.Register(echoFunction("second")); err != nil {
		t.Fatal(err)
	}
	if fn := r.Lookup("", "application/json"); fn != nil {
		t.Fatal("default lookup must fail with more than one function")
	}
}

func TestLookupContentTypeMatching(t *testing.T) {
	r := New()
	if err := r.Register(echoFunction("json-only"), "application/json"); err != nil {
		t.Fatal(err)
	}

	t.Run("matching type", func(t *testing.T) {
		if r.Lookup("json-only", "application/json") == nil {
			t.Error("expected match for declared content type")
		}
	})
	t.Run("type with parameters", func(t *testing.T) {
		if r.Lookup("json-only", "application/json; charset=utf-8") == nil {
			t.Error("expected media-type parameters to be ignored")
		}
	})
	t.Run("mismatched type", func(t *testing.T) {
		if r.Lookup("json-only", "application/xml") != nil {
			t.Error("expected nil for mismatched content type")
		}
	})
	t.Run("no declared type on event", func(t *testing.T) {
		if r.Lookup("json-only", "") == nil {
			t.Error("events without a content type should match")
		}
	})
}

func TestNamesSorted(t *testing.T) {
	r := New()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(echoFunction(name)); err != nil {
			t.Fatal(err)
		}
	}

	names := r.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("unexpected names: %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected sorted names %v, got %v", want, names)
		}
	}
}

func TestSupplierFlag(t *testing.T) {
	fn := NewSupplierFunction("producer", func(msg *message.Message) (*message.Message, error) {
		return message.NewMessage("out", []byte(`"tick"`)), nil
	})
	if !fn.Supplier() {
		t.Fatal("expected supplier flag")
	}
	if echoFunction("echo").Supplier() {
		t.Fatal("plain function must not be a supplier")
	}
}
