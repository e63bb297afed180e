package value

// Pointer is the runtime unit of aliasing (spec's "Handle"): a shared,
// interior-mutable reference to a Value. Assigning one variable from
// another shares the Pointer, so mutating through one alias is visible
// through all others (spec §3 / §9's "interior mutability and shared
// handles").
//
// Sun is single-threaded (spec §5), so the reference count is a plain
// int rather than an atomic — the teacher's own VM never shares state
// across goroutines either. A concurrent rewrite would need to swap this
// for an atomic count, per spec §9's design note.
type Pointer struct {
	data     Value
	refcount int
}

// NewPointer allocates a fresh handle around v with a reference count of 1.
func NewPointer(v Value) *Pointer {
	return &Pointer{data: v, refcount: 1}
}

// Get returns the pointed-to value.
func (p *Pointer) Get() Value {
	if p == nil {
		return Nil{}
	}
	return p.data
}

// Set overwrites the pointed-to value in place — this is what makes
// aliasing observable: every holder of this Pointer sees the new value.
func (p *Pointer) Set(v Value) {
	p.data = v
}

// Retain increments the reference count. VM.SetGlobal calls it when a
// global binding takes this Pointer; stack slots and table cells hold
// Pointers without retaining them.
func (p *Pointer) Retain() *Pointer {
	p.refcount++
	return p
}

// Release decrements the reference count. Sun does not act on a count
// reaching zero — collection is by reference counting with the
// documented understanding that table cycles leak (spec invariant 4);
// Go's own garbage collector reclaims the backing memory once nothing
// reachable holds the Pointer, making explicit free-lists unnecessary.
func (p *Pointer) Release() {
	if p.refcount > 0 {
		p.refcount--
	}
}

// RefCount reports the current reference count, mostly useful for tests.
func (p *Pointer) RefCount() int {
	return p.refcount
}

// DeepCopy returns a new Pointer holding an independent copy of the
// pointed-to value graph (spec invariant 3).
func (p *Pointer) DeepCopy() *Pointer {
	return NewPointer(DeepCopyValue(p.Get()))
}

// IsNil reports whether the handle currently points at Nil.
func (p *Pointer) IsNil() bool {
	_, ok := p.Get().(Nil)
	return ok
}

// IsTruthy implements Sun's truthiness rule for TestJump: everything but
// Nil and Boolean(false) is truthy (spec §4.4 TestJump semantics).
func (p *Pointer) IsTruthy() bool {
	switch v := p.Get().(type) {
	case Nil:
		return false
	case Boolean:
		return bool(v)
	default:
		return true
	}
}
