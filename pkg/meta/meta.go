// Package meta implements Sun's metatable registry: the per-type method
// tables, and inheritance chain, that every operator and attribute lookup
// dispatches through (spec §3, §4.5).
package meta

import (
	"fmt"

	"github.com/windlx/sun/pkg/value"
)

// BaseKind tags the shape of a Metatable's base reference. Representing
// it as an explicit tagged variant (rather than a nullable name) makes
// the root's stop condition explicit, per spec §9 "Metatable inheritance
// chain": the original Rust SunBase enum only has {Other, Object}; Sun
// adds BaseNone so Object itself can terminate the chain without a
// special-cased string.
type BaseKind int

const (
	BaseNone BaseKind = iota
	BaseObject
	BaseOther
)

// Base is the tagged base-class reference of a Metatable.
type Base struct {
	Kind BaseKind
	Name string // set only when Kind == BaseOther
}

// NoBase is the root terminator.
func NoBase() Base { return Base{Kind: BaseNone} }

// ObjectBase refers to the universal "Object" root.
func ObjectBase() Base { return Base{Kind: BaseObject} }

// OtherBase refers to a named ancestor metatable.
func OtherBase(name string) Base { return Base{Kind: BaseOther, Name: name} }

// Metatable is a type's method table plus its position in the base chain
// (spec §3's Metatable entity).
type Metatable struct {
	Name    string
	Base    Base
	methods map[string]*value.Function
}

// NewMetatable creates an empty metatable for name with the given base.
func NewMetatable(name string, base Base) *Metatable {
	return &Metatable{Name: name, Base: base, methods: make(map[string]*value.Function)}
}

// Method returns the method registered directly on this metatable (no
// base-chain walk), or nil if absent.
func (m *Metatable) Method(name string) *value.Function {
	return m.methods[name]
}

// SetMethod registers fn under name, replacing any existing method.
// Extensions use this to add or override behavior (spec §6).
func (m *Metatable) SetMethod(name string, fn *value.Function) {
	m.methods[name] = fn
}

// MethodNames returns the directly-registered method names (for
// introspection via Object's "meta" method).
func (m *Metatable) MethodNames() []string {
	names := make([]string, 0, len(m.methods))
	for n := range m.methods {
		names = append(names, n)
	}
	return names
}

// Registry is the VM-owned mapping from type name to Metatable (spec
// §4.5). Each VM instance owns an independent Registry — there are no
// package-level singletons (spec §9 "Global mutable state").
type Registry struct {
	tables map[string]*Metatable
}

// NewRegistry returns an empty registry. Callers typically follow this
// with Prelude(r) to populate the built-in entries.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Metatable)}
}

// Define registers or replaces a metatable by name.
func (r *Registry) Define(m *Metatable) {
	r.tables[m.Name] = m
}

// Lookup returns the metatable registered under name, or nil.
func (r *Registry) Lookup(name string) *Metatable {
	return r.tables[name]
}

// Names returns every registered metatable name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tables))
	for n := range r.tables {
		names = append(names, n)
	}
	return names
}

// Resolve implements spec §4.4's method resolution algorithm: look up
// metaName, return the method if this table defines it directly,
// otherwise walk Base (None -> fail, Object -> recurse into "Object",
// Other(name) -> recurse into name). A visited set guards against
// malformed base chains an extension might introduce (spec §9 — loops
// are the extension author's responsibility, but the host shouldn't
// hang forever doing it).
func (r *Registry) Resolve(metaName, methodName string) (*value.Function, error) {
	visited := make(map[string]bool)
	name := metaName
	for {
		if visited[name] {
			return nil, fmt.Errorf("metatable inheritance cycle detected at %q", name)
		}
		visited[name] = true

		mt := r.tables[name]
		if mt == nil {
			return nil, fmt.Errorf("unknown type %q", name)
		}
		if fn := mt.Method(methodName); fn != nil {
			return fn, nil
		}
		switch mt.Base.Kind {
		case BaseNone:
			return nil, fmt.Errorf("no method %q on %q", methodName, metaName)
		case BaseObject:
			name = "Object"
		case BaseOther:
			name = mt.Base.Name
		}
	}
}
