// Package vm implements Sun's bytecode virtual machine: a program-counter
// loop over a flat instruction array, a single operand stack of
// value.Pointer handles, a global environment, and a metatable registry
// that every operator and attribute lookup dispatches through (spec
// §4.4). Grounded on the teacher's instruction-dispatch loop and its
// pkg/vm/errors.go call-stack style, regeneralized from Smalltalk
// message sends to Sun's LoadMethod/Call protocol.
package vm

import (
	"fmt"

	"github.com/windlx/sun/pkg/bytecode"
	"github.com/windlx/sun/pkg/extension"
	"github.com/windlx/sun/pkg/meta"
	"github.com/windlx/sun/pkg/sunerr"
	"github.com/windlx/sun/pkg/sunlog"
	"github.com/windlx/sun/pkg/value"
)

// Options gates the `--cs`/`--cg` per-step dump flags (spec §6), adapted
// from the teacher's interactive debugger machinery into plain tracing
// toggles since Sun has no interactive debugger in scope.
type Options struct {
	DumpStack   bool
	DumpGlobals bool
}

// VM is Sun's execution engine. Each instance owns an independent global
// environment and metatable registry — there are no package-level
// singletons (spec §9 "Global mutable state").
type VM struct {
	stack     []*value.Pointer
	globals   map[string]*value.Pointer
	registry  *meta.Registry
	loader    extension.Loader
	program   *bytecode.Program
	pc        int
	callStack []sunerr.Frame
}

// New returns a VM with the built-in prelude metatables and the "print"
// global already populated. loader resolves libraries named by an
// Import instruction; it may be nil if the program imports nothing.
func New(loader extension.Loader) *VM {
	v := &VM{
		globals:  make(map[string]*value.Pointer),
		registry: meta.NewRegistry(),
		loader:   loader,
	}
	Prelude(v.registry)
	v.globals["print"] = value.NewPointer(value.NewReducer("print", printReducer))
	return v
}

// Registry exposes the metatable registry, mostly for tests and for a
// host embedding Sun that wants to register extra built-ins up front.
func (m *VM) Registry() *meta.Registry { return m.registry }

// Push implements value.Machine.
func (m *VM) Push(p *value.Pointer) { m.stack = append(m.stack, p) }

// Pop implements value.Machine.
func (m *VM) Pop() (*value.Pointer, error) {
	if len(m.stack) == 0 {
		return nil, sunerr.New(sunerr.Run, 0, "operand stack is empty")
	}
	p := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return p, nil
}

// SetGlobal implements value.Machine. Storing a Pointer under a new
// global name is a new owner taking a share of it, and replacing an
// existing binding drops that binding's share. This is the only place
// the VM calls Retain/Release; stack slots and table cells do not.
func (m *VM) SetGlobal(name string, p *value.Pointer) {
	if old := m.globals[name]; old != nil {
		old.Release()
	}
	m.globals[name] = p.Retain()
}

// Global implements value.Machine.
func (m *VM) Global(name string) *value.Pointer { return m.globals[name] }

// StackTop returns the top operand handle, or nil if the stack is empty
// (spec §8 invariant 1: an empty stack is the normal end state for a
// program whose statements all consume their own results).
func (m *VM) StackTop() *value.Pointer {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

// StackDepth reports the number of live operand handles.
func (m *VM) StackDepth() int { return len(m.stack) }

// Run executes program to completion: falling off the end of the
// instruction array is the VM's only transition to a Halted state (spec
// §4.4's two-state machine) — there is no separate field for it.
func (m *VM) Run(program *bytecode.Program, opts Options) error {
	m.program = program
	m.pc = 0
	m.callStack = append(m.callStack, sunerr.Frame{Method: "main"})
	defer func() { m.callStack = m.callStack[:len(m.callStack)-1] }()

	for m.pc < len(program.Instructions) {
		instr := program.Instructions[m.pc]
		m.pc++

		if opts.DumpStack {
			sunlog.Debug(m.stack, true)
		}
		if opts.DumpGlobals {
			sunlog.Debug(m.globals, true)
		}

		if err := m.step(instr); err != nil {
			if se, ok := err.(*sunerr.Error); ok {
				return se.WithTrace(append([]sunerr.Frame(nil), m.callStack...))
			}
			return err
		}
	}
	return nil
}

// step executes a single instruction, dispatching on its opcode per
// spec §4.4's per-instruction semantics table.
func (m *VM) step(instr bytecode.Instruction) error {
	switch instr.Op {
	case bytecode.OpLoadConst:
		if instr.Operand < 0 || instr.Operand >= len(m.program.Constants) {
			return sunerr.New(sunerr.Run, 0, "constant index %d out of range", instr.Operand)
		}
		m.Push(value.NewPointer(m.program.Constants[instr.Operand]))
		return nil

	case bytecode.OpLoadValue:
		p := m.globals[instr.Name]
		if p == nil {
			p = value.NewPointer(value.Nil{})
		}
		m.Push(p)
		return nil

	case bytecode.OpStoreGlobal:
		p, err := m.Pop()
		if err != nil {
			return err
		}
		if p.IsNil() {
			sunlog.Warn(fmt.Sprintf("assigning nil to %q has no effect", instr.Name))
			return nil
		}
		m.SetGlobal(instr.Name, p)
		return nil

	case bytecode.OpLoadMethod:
		return m.loadMethod(instr.Name)

	case bytecode.OpSetTable:
		target, err := m.Pop()
		if err != nil {
			return err
		}
		val, err := m.Pop()
		if err != nil {
			return err
		}
		target.Set(val.Get())
		return nil

	case bytecode.OpCreateTable:
		return m.createTable(instr.Operand)

	case bytecode.OpSetPair:
		return m.setPair(instr.Name)

	case bytecode.OpCall:
		return m.call(instr.Operand)

	case bytecode.OpTestJump:
		cond, err := m.Pop()
		if err != nil {
			return err
		}
		if !cond.IsTruthy() {
			m.pc += instr.Operand
		}
		return nil

	case bytecode.OpJump:
		m.pc += instr.Operand
		return nil

	case bytecode.OpBack:
		m.pc -= instr.Operand
		return nil

	case bytecode.OpImport:
		return m.importModule(instr.Name)

	default:
		return sunerr.New(sunerr.Run, 0, "unknown opcode %v", instr.Op)
	}
}

// loadMethod implements both rows of spec §4.4's LoadMethod entry. The
// "dot" name is special-cased: the lowerer emits it for both `a.b`
// fetches and `a.b(...)` method calls alike (spec §4.3's Dot/DotCall
// rows both route through it), where the key isn't known until the key
// string is popped off the stack. A bare `a.b` fetch still lowers to a
// LoadMethod("dot") followed by a Call(1), so a plain table attribute
// fetch (spec §6: "a.b on a table fetches by string key") is
// implemented by wrapping the stored handle in a synthetic zero-op
// callable that the following Call(1) invokes and that simply hands
// the captured handle back. Any other Name is a method name fixed at
// lowering time (operator dispatch, index), which only peeks the
// receiver so it remains in place as argument 0 of the following Call.
func (m *VM) loadMethod(name string) error {
	if name == "dot" {
		receiver, err := m.Pop()
		if err != nil {
			return err
		}
		key, err := m.Pop()
		if err != nil {
			return err
		}
		keyStr, ok := key.Get().(value.String)
		if !ok {
			return sunerr.New(sunerr.Attribute, 0, "attribute name must be a string, got %s", key.Get().TypeName())
		}

		if t, ok := receiver.Get().(*value.Table); ok {
			if stored := t.Get(string(keyStr)); stored != nil {
				m.Push(receiver)
				m.Push(value.NewPointer(fetchWrapper(stored)))
				return nil
			}
		}

		fn, err := m.registry.Resolve(receiver.Get().TypeName(), string(keyStr))
		if err != nil {
			return sunerr.New(sunerr.Attribute, 0, "%s", err)
		}
		m.Push(receiver)
		m.Push(value.NewPointer(fn))
		return nil
	}

	if len(m.stack) == 0 {
		return sunerr.New(sunerr.Run, 0, "operand stack is empty")
	}
	receiver := m.stack[len(m.stack)-1]
	fn, err := m.registry.Resolve(receiver.Get().TypeName(), name)
	if err != nil {
		return sunerr.New(sunerr.Attribute, 0, "%s", err)
	}
	m.Push(value.NewPointer(fn))
	return nil
}

// call implements spec §4.4's Call(n): pop the callable, then pop n
// operand handles by direct sequential LIFO popping (no reversal — the
// lowerer's own emission order already arranges the stack so this
// reconstructs args[0]=receiver/obj, args[1]=operand/key).
func (m *VM) call(n int) error {
	callee, err := m.Pop()
	if err != nil {
		return err
	}
	fn, ok := callee.Get().(*value.Function)
	if !ok {
		return sunerr.New(sunerr.Call, 0, "%s is not callable", callee.Get().TypeName())
	}

	args := make([]*value.Pointer, n)
	for i := 0; i < n; i++ {
		p, err := m.Pop()
		if err != nil {
			return err
		}
		args[i] = p
	}

	m.callStack = append(m.callStack, sunerr.Frame{Method: fn.Name})
	defer func() { m.callStack = m.callStack[:len(m.callStack)-1] }()

	if fn.Hook != nil {
		for i := len(args) - 1; i >= 0; i-- {
			m.Push(args[i])
		}
		return fn.Hook(m)
	}

	results, err := fn.Reducer(args)
	if err != nil {
		return err
	}
	for _, r := range results {
		m.Push(r)
	}
	return nil
}

// createTable implements spec §4.4's CreateTable(n): each of the n
// popped items either joins the array half directly, or — if it is a
// pair-tagged table produced by SetPair — has its single dict entry
// merged into the result's dict half.
func (m *VM) createTable(n int) error {
	items := make([]*value.Pointer, n)
	for i := 0; i < n; i++ {
		p, err := m.Pop()
		if err != nil {
			return err
		}
		items[i] = p
	}
	t := value.NewTable()
	for _, p := range items {
		if pair, key, ok := asPair(p); ok {
			if !t.Insert(key, pair.Dict[key]) {
				sunlog.Warn(fmt.Sprintf("key %q already exists so its value will be replaced", key))
			}
			continue
		}
		t.Push(p)
	}
	m.Push(value.NewPointer(t))
	return nil
}

// setPair implements spec §4.4's SetPair(key): wrap value in a
// single-entry tagged table whose array half starts with the sentinel
// string "pair" (glossary: "Pair-tagged table"), so a surrounding
// CreateTable can tell keyed items apart from positional ones.
func (m *VM) setPair(key string) error {
	val, err := m.Pop()
	if err != nil {
		return err
	}
	t := value.NewTable()
	t.Push(value.NewPointer(value.NewString("pair")))
	t.Insert(key, val)
	m.Push(value.NewPointer(t))
	return nil
}

// fetchWrapper turns an already-resolved table handle into a callable
// that hands it straight back, ignoring whatever arguments it's
// invoked with (the receiver, for a bare `a.b` fetch).
func fetchWrapper(stored *value.Pointer) *value.Function {
	return value.NewReducer("dot_fetch", func(args []*value.Pointer) ([]*value.Pointer, error) {
		return []*value.Pointer{stored}, nil
	})
}

func asPair(p *value.Pointer) (*value.Table, string, bool) {
	t, ok := p.Get().(*value.Table)
	if !ok || len(t.Array) != 1 || t.DLen() != 1 {
		return nil, "", false
	}
	tag, ok := t.Array[0].Get().(value.String)
	if !ok || string(tag) != "pair" {
		return nil, "", false
	}
	for k := range t.Dict {
		return t, k, true
	}
	return nil, "", false
}

// importModule implements spec §4.4's Import(libname): merge an
// external module's metatables and globals into this VM instance (spec
// §6's native extension contract, via pkg/extension.Loader).
func (m *VM) importModule(name string) error {
	if m.loader == nil {
		return sunerr.New(sunerr.Input, 0, "no native module loader configured, cannot import %q", name)
	}
	mod, err := m.loader.Load(name)
	if err != nil {
		return sunerr.New(sunerr.Input, 0, "%s", err)
	}
	for _, mt := range mod.Metatables() {
		m.registry.Define(mt)
	}
	for gname, p := range mod.Globals() {
		m.globals[gname] = p
	}
	return nil
}

// displayValue formats v for print (spec §4.4's print global). *Table
// has no String() method of its own — composite display is this
// function's job, not the value package's.
func displayValue(v value.Value) string {
	switch t := v.(type) {
	case value.Nil:
		return "nil"
	case value.Boolean:
		return t.String()
	case value.Number:
		return t.String()
	case value.String:
		return t.String()
	case *value.Table:
		return displayTable(t)
	case *value.Function:
		return fmt.Sprintf("<function %s>", t.Name)
	case *value.ClassInstance:
		return fmt.Sprintf("<%s>", t.ClassName)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func displayTable(t *value.Table) string {
	s := "["
	for i, p := range t.Array {
		if i > 0 {
			s += ", "
		}
		s += displayValue(p.Get())
	}
	if len(t.Dict) > 0 {
		if len(t.Array) > 0 {
			s += ", "
		}
		first := true
		for k, p := range t.Dict {
			if !first {
				s += ", "
			}
			first = false
			s += k + ": " + displayValue(p.Get())
		}
	}
	return s + "]"
}

// printReducer implements the bare `print(x)` global call (spec §4.4,
// §8 invariant 1: print leaves no residual operand stack value).
func printReducer(args []*value.Pointer) ([]*value.Pointer, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = displayValue(a.Get())
	}
	line := ""
	for i, s := range parts {
		if i > 0 {
			line += " "
		}
		line += s
	}
	fmt.Println(line)
	return nil, nil
}
