package extension

import (
	"testing"

	"github.com/windlx/sun/pkg/meta"
	"github.com/windlx/sun/pkg/value"
)

func TestStaticModuleExposesMetatablesAndGlobals(t *testing.T) {
	greet := meta.NewMetatable("Greeter", meta.ObjectBase())
	greet.SetMethod("hello", value.NewReducer("hello", func(args []*value.Pointer) ([]*value.Pointer, error) {
		return []*value.Pointer{value.NewPointer(value.NewString("hi"))}, nil
	}))

	mod := NewStaticModule(
		map[string]*meta.Metatable{"Greeter": greet},
		map[string]*value.Pointer{"VERSION": value.NewPointer(value.NewString("1.0"))},
	)

	if mod.Metatables()["Greeter"] != greet {
		t.Fatalf("expected Greeter metatable to round-trip")
	}
	if got := mod.Globals()["VERSION"].Get(); value.Equal(got, value.NewString("1.0")) == false {
		t.Fatalf("expected VERSION global to round-trip, got %v", got)
	}
}

func TestStaticModuleDefaultsNilMaps(t *testing.T) {
	mod := NewStaticModule(nil, nil)
	if mod.Metatables() == nil || mod.Globals() == nil {
		t.Fatalf("expected nil inputs to become empty maps")
	}
	if len(mod.Metatables()) != 0 || len(mod.Globals()) != 0 {
		t.Fatalf("expected empty maps")
	}
}

func TestRegistryLoadsRegisteredModule(t *testing.T) {
	r := NewRegistry()
	mod := NewStaticModule(nil, nil)
	r.Register("math", mod)

	got, err := r.Load("math")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != mod {
		t.Fatalf("expected the same module back")
	}
}

func TestRegistryLoadUnknownModuleErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Load("nope"); err == nil {
		t.Fatalf("expected an error for an unregistered module")
	}
}
