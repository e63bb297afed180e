package vm

import (
	"fmt"
	"math"

	"github.com/windlx/sun/pkg/meta"
	"github.com/windlx/sun/pkg/sunerr"
	"github.com/windlx/sun/pkg/sunlog"
	"github.com/windlx/sun/pkg/value"
)

// Prelude populates r with Sun's built-in metatables (spec §4.5): Object
// at the root, then Nil/Bool/Number/String/Table/Function each based on
// Object so "type"/"clone"/"meta" are inherited rather than repeated.
// Grounded operator-by-operator on original_source/sun/src/value's
// sun_nil.rs, sun_boolean.rs, sun_number.rs, and sun_table.rs, and on
// sun_core/src/utils/object.rs for the Object root.
func Prelude(r *meta.Registry) {
	object := meta.NewMetatable("Object", meta.NoBase())
	object.SetMethod("type", value.NewReducer("type", objectType))
	object.SetMethod("clone", value.NewReducer("clone", objectClone))
	object.SetMethod("meta", value.NewReducer("meta", objectMeta(r)))
	object.SetMethod("global", value.NewHook("global", objectGlobalGet))
	object.SetMethod("setglobal", value.NewHook("setglobal", objectGlobalSet))
	object.SetMethod("refcount", value.NewReducer("refcount", objectRefCount))
	r.Define(object)

	r.Define(nilMetatable())
	r.Define(boolMetatable())
	r.Define(numberMetatable())
	r.Define(stringMetatable())
	r.Define(tableMetatable())
	r.Define(meta.NewMetatable("Function", meta.ObjectBase()))
}

// objectType returns the runtime type name of its receiver as a string
// (spec invariant 2: "type(v) returns the string naming v's metatable").
// This follows the spec's literal text rather than the Rust original's
// _type, which only logs and returns nothing — the spec is the
// authoritative source here, not the reference implementation.
func objectType(args []*value.Pointer) ([]*value.Pointer, error) {
	if len(args) == 0 {
		return nil, sunerr.New(sunerr.Para, 0, "type expects a receiver")
	}
	return []*value.Pointer{value.NewPointer(value.NewString(args[0].Get().TypeName()))}, nil
}

// objectClone returns an independent deep copy of the receiver (spec
// invariant 3). Table does not define its own clone — it inherits this
// one, since value.Pointer.DeepCopy already recurses correctly through
// Table's DeepCopy.
func objectClone(args []*value.Pointer) ([]*value.Pointer, error) {
	if len(args) == 0 {
		return nil, sunerr.New(sunerr.Para, 0, "clone expects a receiver")
	}
	return []*value.Pointer{args[0].DeepCopy()}, nil
}

// objectMeta returns a Reducer closing over the registry directly,
// since value.Machine (what a SystemHook receives) does not expose
// metatable lookups — only a closure taken at Prelude-construction
// time can walk the base chain. It collects every method name
// reachable from the receiver's type, including inherited ones.
func objectMeta(r *meta.Registry) value.Reducer {
	return func(args []*value.Pointer) ([]*value.Pointer, error) {
		if len(args) == 0 {
			return nil, sunerr.New(sunerr.Para, 0, "meta expects a receiver")
		}
		names := value.NewTable()
		visited := make(map[string]bool)
		typeName := args[0].Get().TypeName()
		for typeName != "" && !visited[typeName] {
			visited[typeName] = true
			mt := r.Lookup(typeName)
			if mt == nil {
				break
			}
			for _, n := range mt.MethodNames() {
				names.Push(value.NewPointer(value.NewString(n)))
			}
			switch mt.Base.Kind {
			case meta.BaseObject:
				typeName = "Object"
			case meta.BaseOther:
				typeName = mt.Base.Name
			default:
				typeName = ""
			}
		}
		return []*value.Pointer{value.NewPointer(names)}, nil
	}
}

// objectGlobalGet reads a global by name: `anything.global("x")`. Unlike
// "type" or "clone", this needs the running machine itself rather than
// just its argument handles — there's no Pointer to hand a Reducer that
// would let it reach the VM's global table — so it is a SystemHook
// rather than a Reducer (spec §3's Callable / §6's native extension
// contract). The receiver is accepted and discarded so "global" reads
// as an ordinary method call rather than a free function.
func objectGlobalGet(m value.Machine) error {
	if _, err := m.Pop(); err != nil { // receiver
		return sunerr.New(sunerr.Para, 0, "global expects a receiver")
	}
	name, err := m.Pop()
	if err != nil {
		return sunerr.New(sunerr.Para, 0, "global expects a name")
	}
	nameStr, ok := name.Get().(value.String)
	if !ok {
		return sunerr.New(sunerr.Type, 0, "global name must be a String, got %s", name.Get().TypeName())
	}
	if p := m.Global(string(nameStr)); p != nil {
		m.Push(p)
	} else {
		m.Push(value.NewPointer(value.Nil{}))
	}
	return nil
}

// objectGlobalSet writes a global by name: `anything.setglobal("x", v)`,
// returning v so the call composes like push/insert/remove do. Same
// SystemHook rationale as objectGlobalGet: SetGlobal is Machine-only.
func objectGlobalSet(m value.Machine) error {
	if _, err := m.Pop(); err != nil { // receiver
		return sunerr.New(sunerr.Para, 0, "setglobal expects a receiver")
	}
	name, err := m.Pop()
	if err != nil {
		return sunerr.New(sunerr.Para, 0, "setglobal expects a name")
	}
	val, err := m.Pop()
	if err != nil {
		return sunerr.New(sunerr.Para, 0, "setglobal expects a value")
	}
	nameStr, ok := name.Get().(value.String)
	if !ok {
		return sunerr.New(sunerr.Type, 0, "setglobal name must be a String, got %s", name.Get().TypeName())
	}
	m.SetGlobal(string(nameStr), val)
	m.Push(val)
	return nil
}

// objectRefCount exposes args[0]'s Pointer.RefCount — mostly a
// diagnostic, since Sun never acts on a count reaching zero (Go's own
// collector reclaims the backing Value regardless), but it lets a
// script or test observe the Retain/Release bookkeeping VM.SetGlobal
// performs on every global assignment.
func objectRefCount(args []*value.Pointer) ([]*value.Pointer, error) {
	if len(args) == 0 {
		return nil, sunerr.New(sunerr.Para, 0, "refcount expects a receiver")
	}
	return []*value.Pointer{value.NewPointer(value.Number(args[0].RefCount()))}, nil
}

// nilMetatable implements Nil's permissive operator semantics: every
// arithmetic/logic operator is a no-op returning Nil, every comparison
// is false (grounded on sun_nil.rs's nil_op!/nil_compare! macros).
func nilMetatable() *meta.Metatable {
	mt := meta.NewMetatable("Nil", meta.ObjectBase())
	nilOp := value.NewReducer("nil_op", func(args []*value.Pointer) ([]*value.Pointer, error) {
		return []*value.Pointer{value.NewPointer(value.Nil{})}, nil
	})
	nilCompare := value.NewReducer("nil_compare", func(args []*value.Pointer) ([]*value.Pointer, error) {
		return []*value.Pointer{value.NewPointer(value.Boolean(false))}, nil
	})
	for _, name := range []string{"add", "sub", "mul", "div", "rem", "pow", "neg", "fac", "conj", "and", "or", "xor", "not"} {
		mt.SetMethod(name, nilOp)
	}
	for _, name := range []string{"eq", "noteq", "le", "ge", "less", "greater"} {
		mt.SetMethod(name, nilCompare)
	}
	return mt
}

// boolMetatable implements Bool's logic operators: and/or/xor/not mutate
// the receiver in place and return it, while the six compares construct
// a fresh Boolean pointer (grounded on sun_boolean.rs's
// double_op_b!/single_op_b!/compare_op_b! macros).
func boolMetatable() *meta.Metatable {
	mt := meta.NewMetatable("Bool", meta.ObjectBase())

	mt.SetMethod("and", boolBinary(func(a, b bool) bool { return a && b }))
	mt.SetMethod("or", boolBinary(func(a, b bool) bool { return a || b }))
	mt.SetMethod("xor", boolBinary(func(a, b bool) bool { return a != b }))
	mt.SetMethod("not", value.NewReducer("not", func(args []*value.Pointer) ([]*value.Pointer, error) {
		self, err := oneBoolean(args)
		if err != nil {
			return nil, err
		}
		args[0].Set(value.Boolean(!self))
		return []*value.Pointer{args[0]}, nil
	}))

	mt.SetMethod("eq", boolCompare(func(a, b bool) bool { return a == b }))
	mt.SetMethod("noteq", boolCompare(func(a, b bool) bool { return a != b }))
	mt.SetMethod("le", boolCompare(func(a, b bool) bool { return !a || b }))
	mt.SetMethod("ge", boolCompare(func(a, b bool) bool { return a || !b }))
	mt.SetMethod("less", boolCompare(func(a, b bool) bool { return !a && b }))
	mt.SetMethod("greater", boolCompare(func(a, b bool) bool { return a && !b }))

	return mt
}

func oneBoolean(args []*value.Pointer) (bool, error) {
	if len(args) == 0 {
		return false, sunerr.New(sunerr.Para, 0, "expected a receiver")
	}
	b, ok := args[0].Get().(value.Boolean)
	if !ok {
		return false, sunerr.New(sunerr.Type, 0, "expected Bool, got %s", args[0].Get().TypeName())
	}
	return bool(b), nil
}

func twoBooleans(args []*value.Pointer) (bool, bool, error) {
	self, err := oneBoolean(args)
	if err != nil {
		return false, false, err
	}
	if len(args) < 2 {
		return false, false, sunerr.New(sunerr.Para, 0, "expected an operand")
	}
	other, ok := args[1].Get().(value.Boolean)
	if !ok {
		return false, false, sunerr.New(sunerr.Type, 0, "expected Bool, got %s", args[1].Get().TypeName())
	}
	return self, bool(other), nil
}

func boolBinary(op func(a, b bool) bool) *value.Function {
	return value.NewReducer("bool_op", func(args []*value.Pointer) ([]*value.Pointer, error) {
		self, other, err := twoBooleans(args)
		if err != nil {
			return nil, err
		}
		args[0].Set(value.Boolean(op(self, other)))
		return []*value.Pointer{args[0]}, nil
	})
}

func boolCompare(op func(a, b bool) bool) *value.Function {
	return value.NewReducer("bool_compare", func(args []*value.Pointer) ([]*value.Pointer, error) {
		self, other, err := twoBooleans(args)
		if err != nil {
			return nil, err
		}
		return []*value.Pointer{value.NewPointer(value.Boolean(op(self, other)))}, nil
	})
}

// numberMetatable implements Number's arithmetic (mutate-in-place,
// return the receiver) and comparison (fresh Boolean pointer) operators,
// grounded on sun_number.rs. div/rem by zero and fac outside [0,20] are
// the boundary behaviors spec §8 names explicitly.
func numberMetatable() *meta.Metatable {
	mt := meta.NewMetatable("Number", meta.ObjectBase())

	mt.SetMethod("add", numberBinary(func(a, b float64) (float64, error) { return a + b, nil }))
	mt.SetMethod("sub", numberBinary(func(a, b float64) (float64, error) { return a - b, nil }))
	mt.SetMethod("mul", numberBinary(func(a, b float64) (float64, error) { return a * b, nil }))
	mt.SetMethod("div", numberBinary(numberDiv))
	mt.SetMethod("rem", numberBinary(numberRem))
	mt.SetMethod("pow", numberBinary(func(a, b float64) (float64, error) { return math.Pow(a, b), nil }))

	mt.SetMethod("neg", numberUnary(func(a float64) (float64, error) { return -a, nil }))
	mt.SetMethod("fac", numberUnary(numberFac))
	mt.SetMethod("conj", numberUnary(func(a float64) (float64, error) { return a, nil }))

	mt.SetMethod("eq", numberCompare(func(a, b float64) bool { return a == b }))
	mt.SetMethod("noteq", numberCompare(func(a, b float64) bool { return a != b }))
	mt.SetMethod("le", numberCompare(func(a, b float64) bool { return a <= b }))
	mt.SetMethod("ge", numberCompare(func(a, b float64) bool { return a >= b }))
	mt.SetMethod("less", numberCompare(func(a, b float64) bool { return a < b }))
	mt.SetMethod("greater", numberCompare(func(a, b float64) bool { return a > b }))

	return mt
}

func oneNumber(args []*value.Pointer) (float64, error) {
	if len(args) == 0 {
		return 0, sunerr.New(sunerr.Para, 0, "expected a receiver")
	}
	n, ok := args[0].Get().(value.Number)
	if !ok {
		return 0, sunerr.New(sunerr.Type, 0, "expected Number, got %s", args[0].Get().TypeName())
	}
	return float64(n), nil
}

func twoNumbers(args []*value.Pointer) (float64, float64, error) {
	self, err := oneNumber(args)
	if err != nil {
		return 0, 0, err
	}
	if len(args) < 2 {
		return 0, 0, sunerr.New(sunerr.Para, 0, "expected an operand")
	}
	other, ok := args[1].Get().(value.Number)
	if !ok {
		return 0, 0, sunerr.New(sunerr.Type, 0, "expected Number, got %s", args[1].Get().TypeName())
	}
	return self, float64(other), nil
}

func numberBinary(op func(a, b float64) (float64, error)) *value.Function {
	return value.NewReducer("number_op", func(args []*value.Pointer) ([]*value.Pointer, error) {
		self, other, err := twoNumbers(args)
		if err != nil {
			return nil, err
		}
		result, err := op(self, other)
		if err != nil {
			return nil, err
		}
		args[0].Set(value.Number(result))
		return []*value.Pointer{args[0]}, nil
	})
}

func numberUnary(op func(a float64) (float64, error)) *value.Function {
	return value.NewReducer("number_unary_op", func(args []*value.Pointer) ([]*value.Pointer, error) {
		self, err := oneNumber(args)
		if err != nil {
			return nil, err
		}
		result, err := op(self)
		if err != nil {
			return nil, err
		}
		args[0].Set(value.Number(result))
		return []*value.Pointer{args[0]}, nil
	})
}

func numberCompare(op func(a, b float64) bool) *value.Function {
	return value.NewReducer("number_compare", func(args []*value.Pointer) ([]*value.Pointer, error) {
		self, other, err := twoNumbers(args)
		if err != nil {
			return nil, err
		}
		return []*value.Pointer{value.NewPointer(value.Boolean(op(self, other)))}, nil
	})
}

// numberDiv warns and returns +/-Inf (NaN for 0/0) on division by zero rather than
// raising a fatal error (spec §8's stated boundary behavior).
func numberDiv(a, b float64) (float64, error) {
	if b == 0 {
		sunlog.Warn("division by zero")
		return a / b, nil
	}
	return a / b, nil
}

func numberRem(a, b float64) (float64, error) {
	if b == 0 {
		sunlog.Warn("remainder by zero")
		return math.NaN(), nil
	}
	return math.Mod(a, b), nil
}

// numberFac implements factorial for integers in [0, 20] — 20! is the
// largest factorial that fits in an int64, and spec §8 requires the
// boundary to fail before any multiplication is attempted for n >= 21.
func numberFac(a float64) (float64, error) {
	if a != math.Trunc(a) || a < 0 {
		return 0, sunerr.New(sunerr.Para, 0, "fac expects a non-negative integer, got %g", a)
	}
	if a >= 21 {
		return 0, sunerr.New(sunerr.Para, 0, "fac overflows Number's exact integer range above 20, got %g", a)
	}
	n := int64(a)
	result := int64(1)
	for i := int64(2); i <= n; i++ {
		result *= i
	}
	return float64(result), nil
}

// stringMetatable supplies concatenation and byte-wise comparison. No
// sun_string.rs exists anywhere in original_source — strings never got
// a distinct metatable there — but spec invariant 5 requires these
// operations to be composable, so this is a Sun-original supplement
// grounded directly on that invariant rather than on the original.
func stringMetatable() *meta.Metatable {
	mt := meta.NewMetatable("String", meta.ObjectBase())

	mt.SetMethod("add", value.NewReducer("add", func(args []*value.Pointer) ([]*value.Pointer, error) {
		self, other, err := twoStrings(args)
		if err != nil {
			return nil, err
		}
		joined := append(append(value.String{}, self...), other...)
		args[0].Set(joined)
		return []*value.Pointer{args[0]}, nil
	}))

	mt.SetMethod("eq", stringCompare(func(a, b string) bool { return a == b }))
	mt.SetMethod("noteq", stringCompare(func(a, b string) bool { return a != b }))
	mt.SetMethod("le", stringCompare(func(a, b string) bool { return a <= b }))
	mt.SetMethod("ge", stringCompare(func(a, b string) bool { return a >= b }))
	mt.SetMethod("less", stringCompare(func(a, b string) bool { return a < b }))
	mt.SetMethod("greater", stringCompare(func(a, b string) bool { return a > b }))

	return mt
}

func twoStrings(args []*value.Pointer) (value.String, value.String, error) {
	if len(args) < 2 {
		return nil, nil, sunerr.New(sunerr.Para, 0, "expected a receiver and an operand")
	}
	self, ok := args[0].Get().(value.String)
	if !ok {
		return nil, nil, sunerr.New(sunerr.Type, 0, "expected String, got %s", args[0].Get().TypeName())
	}
	other, ok := args[1].Get().(value.String)
	if !ok {
		return nil, nil, sunerr.New(sunerr.Type, 0, "expected String, got %s", args[1].Get().TypeName())
	}
	return self, other, nil
}

func stringCompare(op func(a, b string) bool) *value.Function {
	return value.NewReducer("string_compare", func(args []*value.Pointer) ([]*value.Pointer, error) {
		self, other, err := twoStrings(args)
		if err != nil {
			return nil, err
		}
		return []*value.Pointer{value.NewPointer(value.Boolean(op(string(self), string(other))))}, nil
	})
}

// tableMetatable implements Table's container operations, grounded on
// sun_table.rs. index returns the table's own stored Pointer (not a
// copy) for both array and dict keys, preserving the aliasing invariant
// that every other fetch path in the VM already relies on.
func tableMetatable() *meta.Metatable {
	mt := meta.NewMetatable("Table", meta.ObjectBase())

	mt.SetMethod("index", value.NewReducer("index", func(args []*value.Pointer) ([]*value.Pointer, error) {
		t, err := asTable(args)
		if err != nil {
			return nil, err
		}
		if len(args) < 2 {
			return nil, sunerr.New(sunerr.Para, 0, "index expects a key")
		}
		switch key := args[1].Get().(type) {
		case value.Number:
			idx := int(key)
			p := t.At(idx)
			if p == nil {
				return nil, sunerr.New(sunerr.Index, 0, "index %d out of range for a table of length %d", idx, t.ALen())
			}
			return []*value.Pointer{p}, nil
		case value.String:
			p := t.Get(string(key))
			if p == nil {
				return nil, sunerr.New(sunerr.Key, 0, "no such key %q", string(key))
			}
			return []*value.Pointer{p}, nil
		default:
			return nil, sunerr.New(sunerr.Type, 0, "table index must be a Number or String, got %s", key.TypeName())
		}
	}))

	mt.SetMethod("push", value.NewReducer("push", func(args []*value.Pointer) ([]*value.Pointer, error) {
		t, err := asTable(args)
		if err != nil {
			return nil, err
		}
		for _, v := range args[1:] {
			t.Push(v)
		}
		return []*value.Pointer{args[0]}, nil
	}))

	mt.SetMethod("insert", value.NewReducer("insert", func(args []*value.Pointer) ([]*value.Pointer, error) {
		t, err := asTable(args)
		if err != nil {
			return nil, err
		}
		if len(args) < 3 {
			return nil, sunerr.New(sunerr.Para, 0, "insert expects a key and a value")
		}
		switch key := args[1].Get().(type) {
		case value.String:
			if !t.Insert(string(key), args[2]) {
				sunlog.Warn(fmt.Sprintf("key %q already exists so its value will be replaced", string(key)))
			}
		case value.Number:
			idx := int(key)
			if float64(idx) != float64(key) {
				sunlog.Warn(fmt.Sprintf("non-integer index %g truncated to %d", float64(key), idx))
			}
			if idx < 0 {
				return nil, sunerr.New(sunerr.Para, 0, "insert index must be non-negative, got %d", idx)
			}
			if idx >= len(t.Array) {
				t.Array = append(t.Array, args[2])
			} else {
				t.Array = append(t.Array[:idx], append([]*value.Pointer{args[2]}, t.Array[idx:]...)...)
			}
		default:
			return nil, sunerr.New(sunerr.Type, 0, "insert key must be a Number or String, got %s", key.TypeName())
		}
		return []*value.Pointer{args[0]}, nil
	}))

	mt.SetMethod("remove", value.NewReducer("remove", func(args []*value.Pointer) ([]*value.Pointer, error) {
		t, err := asTable(args)
		if err != nil {
			return nil, err
		}
		if len(args) < 2 {
			return nil, sunerr.New(sunerr.Para, 0, "remove expects a key")
		}
		switch key := args[1].Get().(type) {
		case value.String:
			if !t.Remove(string(key)) {
				sunlog.Warn(fmt.Sprintf("key %q does not exist", string(key)))
			}
		case value.Number:
			idx := int(key)
			if idx < 0 || idx >= len(t.Array) {
				return nil, sunerr.New(sunerr.Index, 0, "index %d out of range for a table of length %d", idx, len(t.Array))
			}
			t.Array = append(t.Array[:idx], t.Array[idx+1:]...)
		default:
			return nil, sunerr.New(sunerr.Type, 0, "remove key must be a Number or String, got %s", key.TypeName())
		}
		return []*value.Pointer{args[0]}, nil
	}))

	mt.SetMethod("len", tableLength(func(t *value.Table) int { return t.Len() }))
	mt.SetMethod("alen", tableLength(func(t *value.Table) int { return t.ALen() }))
	mt.SetMethod("dlen", tableLength(func(t *value.Table) int { return t.DLen() }))

	return mt
}

func asTable(args []*value.Pointer) (*value.Table, error) {
	if len(args) == 0 {
		return nil, sunerr.New(sunerr.Para, 0, "expected a receiver")
	}
	t, ok := args[0].Get().(*value.Table)
	if !ok {
		return nil, sunerr.New(sunerr.Type, 0, "expected Table, got %s", args[0].Get().TypeName())
	}
	return t, nil
}

func tableLength(measure func(t *value.Table) int) *value.Function {
	return value.NewReducer("table_length", func(args []*value.Pointer) ([]*value.Pointer, error) {
		t, err := asTable(args)
		if err != nil {
			return nil, err
		}
		return []*value.Pointer{value.NewPointer(value.Number(measure(t)))}, nil
	})
}
