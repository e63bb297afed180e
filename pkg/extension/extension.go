// Package extension specifies Sun's native extension-point contract: the
// host-side shape a module must satisfy to be merged into a running VM
// by the Import instruction (spec §6). It is grounded on
// original_source/sun_core/src/sunc/tran.rs's ExportLib{meta, value}
// shape, with the C-ABI marshalling (to_c/to_rust) dropped — Go
// extensions are linked in-process as extension.Module values, never
// crossed over an FFI boundary, so there is nothing to marshal.
package extension

import (
	"github.com/windlx/sun/pkg/meta"
	"github.com/windlx/sun/pkg/value"
)

// Module is what an external library exports: a set of metatables to
// merge into the registry, and a set of globals to merge into the VM's
// global environment. Metatable methods are either reducers or system
// hooks (spec §6); Module itself is agnostic to which a given extension
// uses.
type Module interface {
	Metatables() map[string]*meta.Metatable
	Globals() map[string]*value.Pointer
}

// StaticModule is the straightforward Module implementation most
// extensions need: a fixed pair of maps built once at construction.
type StaticModule struct {
	metatables map[string]*meta.Metatable
	globals    map[string]*value.Pointer
}

// NewStaticModule returns a Module wrapping the given maps directly (no
// copying — callers should treat them as owned by the module afterward).
func NewStaticModule(metatables map[string]*meta.Metatable, globals map[string]*value.Pointer) *StaticModule {
	if metatables == nil {
		metatables = make(map[string]*meta.Metatable)
	}
	if globals == nil {
		globals = make(map[string]*value.Pointer)
	}
	return &StaticModule{metatables: metatables, globals: globals}
}

func (m *StaticModule) Metatables() map[string]*meta.Metatable { return m.metatables }
func (m *StaticModule) Globals() map[string]*value.Pointer     { return m.globals }

// Loader resolves a library name to a Module. The host program supplies
// one when constructing a VM; pkg/vm has no default loader and rejects
// Import when none is given. Registry below only knows about modules
// registered in-process, since dlopen/plugin loading is explicitly out
// of scope (spec §1).
type Loader interface {
	Load(name string) (Module, error)
}

// Registry is a Loader backed by a fixed, in-process name-to-Module map
// — the only kind of loader Sun ships, since native-library discovery
// (dlopen, cgo, shared-object symbol lookup) is an explicit Non-goal.
type Registry struct {
	modules map[string]Module
}

// NewRegistry returns an empty module registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register makes module available under name for a subsequent Import.
func (r *Registry) Register(name string, module Module) {
	r.modules[name] = module
}

// Load implements Loader.
func (r *Registry) Load(name string) (Module, error) {
	m, ok := r.modules[name]
	if !ok {
		return nil, &unknownModuleError{name: name}
	}
	return m, nil
}

type unknownModuleError struct{ name string }

func (e *unknownModuleError) Error() string {
	return "unknown native module " + e.name
}
