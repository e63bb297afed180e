package meta

import (
	"testing"

	"github.com/windlx/sun/pkg/value"
)

func TestResolveDirect(t *testing.T) {
	r := NewRegistry()
	obj := NewMetatable("Object", NoBase())
	r.Define(obj)

	fn := value.NewReducer("type", func(args []*value.Pointer) ([]*value.Pointer, error) { return nil, nil })
	obj.SetMethod("type", fn)

	got, err := r.Resolve("Object", "type")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != fn {
		t.Fatalf("Resolve returned wrong function")
	}
}

func TestResolveWalksBaseChain(t *testing.T) {
	r := NewRegistry()
	obj := NewMetatable("Object", NoBase())
	fn := value.NewReducer("clone", func(args []*value.Pointer) ([]*value.Pointer, error) { return nil, nil })
	obj.SetMethod("clone", fn)
	r.Define(obj)

	number := NewMetatable("Number", ObjectBase())
	r.Define(number)

	got, err := r.Resolve("Number", "clone")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != fn {
		t.Fatalf("expected to find clone via Object base")
	}
}

func TestResolveOtherBase(t *testing.T) {
	r := NewRegistry()
	animal := NewMetatable("Animal", NoBase())
	speak := value.NewReducer("speak", func(args []*value.Pointer) ([]*value.Pointer, error) { return nil, nil })
	animal.SetMethod("speak", speak)
	r.Define(animal)

	dog := NewMetatable("Dog", OtherBase("Animal"))
	r.Define(dog)

	got, err := r.Resolve("Dog", "speak")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != speak {
		t.Fatalf("expected to resolve speak via named base Animal")
	}
}

func TestResolveNoneTerminates(t *testing.T) {
	r := NewRegistry()
	r.Define(NewMetatable("Object", NoBase()))

	if _, err := r.Resolve("Object", "missing"); err == nil {
		t.Fatalf("expected error when method is absent and base is None")
	}
}

func TestResolveDetectsCycle(t *testing.T) {
	r := NewRegistry()
	r.Define(NewMetatable("A", OtherBase("B")))
	r.Define(NewMetatable("B", OtherBase("A")))

	if _, err := r.Resolve("A", "missing"); err == nil {
		t.Fatalf("expected cycle error")
	}
}

func TestResolveUnknownType(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve("Ghost", "x"); err == nil {
		t.Fatalf("expected error resolving against unknown type")
	}
}
