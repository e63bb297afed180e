// Package value defines Sun's dynamic value variants and the shared,
// interior-mutable handle (Pointer) that the VM uses for every binding,
// stack slot, and table slot.
package value

import "fmt"

// Value is the closed set of dynamic value kinds Sun programs can hold.
// Every concrete variant implements isValue so the set can't grow outside
// this package, mirroring the ast.Expression/Statement marker-method
// idiom the teacher uses to close its node hierarchy.
type Value interface {
	// TypeName reports the metatable name used for method dispatch.
	// Class instances override this with their class name (spec §3).
	TypeName() string
	isValue()
}

// Nil is the single nil value.
type Nil struct{}

func (Nil) TypeName() string { return "Nil" }
func (Nil) isValue()         {}
func (Nil) String() string   { return "nil" }

// Boolean wraps a bool.
type Boolean bool

func (Boolean) TypeName() string   { return "Bool" }
func (Boolean) isValue()           {}
func (b Boolean) String() string   { return fmt.Sprintf("%t", bool(b)) }

// Number is Sun's single numeric kind: a 64-bit float.
type Number float64

func (Number) TypeName() string { return "Number" }
func (Number) isValue()         {}
func (n Number) String() string { return fmt.Sprintf("%g", float64(n)) }

// String is a byte vector. Strings are byte-addressable and compared
// byte-for-byte (spec invariant 5); display is lossy UTF-8.
type String []byte

func (String) TypeName() string { return "String" }
func (String) isValue()         {}
func (s String) String() string { return string(s) }

// NewString is a convenience constructor from a Go string.
func NewString(s string) String { return String(s) }

// Table is Sun's composite container: an ordered sequence (the "array
// half") plus a name-to-handle map (the "dict half"). The two halves are
// independent, per spec §3.
type Table struct {
	Array []*Pointer
	Dict  map[string]*Pointer
}

func (*Table) TypeName() string { return "Table" }
func (*Table) isValue()         {}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{Dict: make(map[string]*Pointer)}
}

// Push appends a value to the array half.
func (t *Table) Push(p *Pointer) {
	t.Array = append(t.Array, p)
}

// Insert sets a key in the dict half, returning false if the key already
// existed (callers warn rather than fail, per spec §7).
func (t *Table) Insert(key string, p *Pointer) bool {
	_, existed := t.Dict[key]
	t.Dict[key] = p
	return !existed
}

// Remove deletes a key from the dict half, reporting whether it existed.
func (t *Table) Remove(key string) bool {
	_, existed := t.Dict[key]
	delete(t.Dict, key)
	return existed
}

// At returns the array element at idx, or nil if idx is out of range.
func (t *Table) At(idx int) *Pointer {
	if idx < 0 || idx >= len(t.Array) {
		return nil
	}
	return t.Array[idx]
}

// Get returns the dict value for key, or nil if absent.
func (t *Table) Get(key string) *Pointer {
	return t.Dict[key]
}

// ALen is the array half's length.
func (t *Table) ALen() int { return len(t.Array) }

// DLen is the dict half's length.
func (t *Table) DLen() int { return len(t.Dict) }

// Len is the combined length (spec §3: "len returns their sum").
func (t *Table) Len() int { return t.ALen() + t.DLen() }

// DeepCopy recursively duplicates the table's value graph (spec invariant
// 3 / §9's "clone as principled escape"). Shared sub-tables are cloned,
// not aliased; cycles are not detected (spec §4, invariant 4 — cycles are
// an accepted leak, not a guard this method owes).
func (t *Table) DeepCopy() *Table {
	out := NewTable()
	for _, p := range t.Array {
		out.Array = append(out.Array, NewPointer(DeepCopyValue(p.Get())))
	}
	for k, p := range t.Dict {
		out.Dict[k] = NewPointer(DeepCopyValue(p.Get()))
	}
	return out
}

// DeepCopyValue clones v, recursing into tables. Scalar values (Nil,
// Boolean, Number, String) are copied by value since they're already
// immutable from the language's point of view.
func DeepCopyValue(v Value) Value {
	switch t := v.(type) {
	case *Table:
		return t.DeepCopy()
	case String:
		cp := make(String, len(t))
		copy(cp, t)
		return cp
	case *ClassInstance:
		return t.DeepCopy()
	default:
		return v
	}
}

// ClassInstance is a named attribute bag created by extensions; its
// ClassName stands in for a built-in type tag so method dispatch targets
// a user-defined metatable (spec §3).
type ClassInstance struct {
	ClassName  string
	Attributes map[string]*Pointer
}

func (c *ClassInstance) TypeName() string { return c.ClassName }
func (*ClassInstance) isValue()           {}

// NewClassInstance returns an empty instance of the named class.
func NewClassInstance(className string) *ClassInstance {
	return &ClassInstance{ClassName: className, Attributes: make(map[string]*Pointer)}
}

// DeepCopy clones the instance's attribute map.
func (c *ClassInstance) DeepCopy() *ClassInstance {
	out := NewClassInstance(c.ClassName)
	for k, p := range c.Attributes {
		out.Attributes[k] = NewPointer(DeepCopyValue(p.Get()))
	}
	return out
}

// Function wraps a callable (spec §3's Callable). Exactly one of Reducer
// or Hook is set.
type Function struct {
	Name    string
	Reducer Reducer
	Hook    SystemHook
}

func (*Function) TypeName() string { return "Function" }
func (*Function) isValue()         {}

// Reducer is a native function taking argument handles and returning
// result handles — the common case for metatable methods.
type Reducer func(args []*Pointer) ([]*Pointer, error)

// SystemHook is a native function given direct access to the running
// machine; it manipulates the operand stack and globals itself. Machine
// is satisfied by *vm.VM; it's expressed as an interface here so this
// package never imports vm (which imports value), avoiding a cycle.
type SystemHook func(m Machine) error

// Machine is the subset of VM behavior a system hook needs: direct stack
// and global manipulation (spec §3's Callable / §6's native extension
// contract).
type Machine interface {
	Push(*Pointer)
	Pop() (*Pointer, error)
	SetGlobal(name string, p *Pointer)
	Global(name string) *Pointer
}

// NewReducer wraps a Reducer as a Function value.
func NewReducer(name string, fn Reducer) *Function {
	return &Function{Name: name, Reducer: fn}
}

// NewHook wraps a SystemHook as a Function value.
func NewHook(name string, fn SystemHook) *Function {
	return &Function{Name: name, Hook: fn}
}

// Equal implements spec invariant/law equality: structural for scalars
// and tables, identity for Function and Class values (spec §9 Open
// Question — the reference compares functions by identity; Sun documents
// and matches that choice).
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Boolean:
		bv, ok := b.(Boolean)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && string(av) == string(bv)
	case *Table:
		bv, ok := b.(*Table)
		return ok && tableEqual(av, bv)
	case *Function:
		bv, ok := b.(*Function)
		return ok && av == bv
	case *ClassInstance:
		bv, ok := b.(*ClassInstance)
		return ok && av == bv
	default:
		return false
	}
}

func tableEqual(a, b *Table) bool {
	if a == b {
		return true
	}
	if len(a.Array) != len(b.Array) || len(a.Dict) != len(b.Dict) {
		return false
	}
	for i, p := range a.Array {
		if !Equal(p.Get(), b.Array[i].Get()) {
			return false
		}
	}
	for k, p := range a.Dict {
		other, ok := b.Dict[k]
		if !ok || !Equal(p.Get(), other.Get()) {
			return false
		}
	}
	return true
}
