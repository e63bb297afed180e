// Package lowerer turns an AST into a flat bytecode.Program via Sun's
// two-pass descriptor lowering (spec §4.3).
//
// A single forward walk over the AST would need to know a forward jump's
// distance before it has lowered the code the jump skips over. Sun
// instead builds an intermediate list of "descriptors" — each either a
// concrete instruction or a non-emitting structural marker recording a
// label's position — while walking the tree exactly once. A first pass
// over that list counts how many descriptors actually emit an
// instruction (markers don't) to fix every label's final instruction
// index; a second pass then builds the real instruction slice, resolving
// every jump descriptor's signed, instruction-relative offset against
// those fixed positions. This mirrors the naming convention of
// its-hmny-nand2tetris's lowering.go files, generalized from a
// single-pass absolute-target compiler (pkg/compiler/compiler.go in the
// teacher) to the spec's required two-pass relative-offset scheme.
package lowerer

import (
	"github.com/windlx/sun/pkg/ast"
	"github.com/windlx/sun/pkg/bytecode"
	"github.com/windlx/sun/pkg/sunerr"
	"github.com/windlx/sun/pkg/value"
)

// descriptor is either a concrete instruction to emit, or a marker that
// records label's position without emitting anything. A jump descriptor
// (instr.Op one of OpJump/OpTestJump/OpBack) carries a nonzero jumpTo
// referring to the label it targets; its Operand is a placeholder until
// resolve fills it in.
type descriptor struct {
	instr  *bytecode.Instruction
	label  int
	jumpTo int
}

type lowerer struct {
	prog      *bytecode.Program
	descs     []descriptor
	nextLabel int
}

// Lower compiles program into a directly executable bytecode.Program.
func Lower(program *ast.Program) (*bytecode.Program, error) {
	l := &lowerer{prog: &bytecode.Program{}}
	for _, stmt := range program.Statements {
		if err := l.lower(stmt); err != nil {
			return nil, err
		}
	}
	l.prog.Instructions = l.resolve()
	return l.prog, nil
}

func (l *lowerer) newLabel() int {
	l.nextLabel++
	return l.nextLabel
}

func (l *lowerer) emit(op bytecode.Opcode) {
	l.descs = append(l.descs, descriptor{instr: &bytecode.Instruction{Op: op}})
}

func (l *lowerer) emitName(op bytecode.Opcode, name string) {
	l.descs = append(l.descs, descriptor{instr: &bytecode.Instruction{Op: op, Name: name}})
}

func (l *lowerer) emitOperand(op bytecode.Opcode, operand int) {
	l.descs = append(l.descs, descriptor{instr: &bytecode.Instruction{Op: op, Operand: operand}})
}

func (l *lowerer) emitJump(op bytecode.Opcode, target int) {
	l.descs = append(l.descs, descriptor{instr: &bytecode.Instruction{Op: op}, jumpTo: target})
}

func (l *lowerer) mark(label int) {
	l.descs = append(l.descs, descriptor{label: label})
}

// resolve runs the two-pass fixup described in the package doc and
// returns the final instruction slice.
func (l *lowerer) resolve() []bytecode.Instruction {
	labelPos := make(map[int]int, l.nextLabel)
	count := 0
	for _, d := range l.descs {
		if d.instr == nil {
			labelPos[d.label] = count
			continue
		}
		count++
	}

	instrs := make([]bytecode.Instruction, 0, count)
	idx := 0
	for _, d := range l.descs {
		if d.instr == nil {
			continue
		}
		ins := *d.instr
		if d.jumpTo != 0 {
			target := labelPos[d.jumpTo]
			if ins.Op == bytecode.OpBack {
				ins.Operand = (idx + 1) - target
			} else {
				ins.Operand = target - (idx + 1)
			}
		}
		instrs = append(instrs, ins)
		idx++
	}
	return instrs
}

// lower emits e's descriptor sequence, dispatching on its concrete type
// per spec §4.3's AST-to-instruction table.
func (l *lowerer) lower(e ast.Expression) error {
	switch n := e.(type) {
	case *ast.Constant:
		idx := l.prog.AddConstant(n.Value)
		l.emitOperand(bytecode.OpLoadConst, idx)
		return nil

	case *ast.Variable:
		l.emitName(bytecode.OpLoadValue, n.Name)
		return nil

	case *ast.BinOp:
		if err := l.lower(n.Right); err != nil {
			return err
		}
		if err := l.lower(n.Left); err != nil {
			return err
		}
		l.emitName(bytecode.OpLoadMethod, n.Op)
		l.emitOperand(bytecode.OpCall, 2)
		return nil

	case *ast.UnaryOp:
		if err := l.lower(n.X); err != nil {
			return err
		}
		l.emitName(bytecode.OpLoadMethod, n.Op)
		l.emitOperand(bytecode.OpCall, 1)
		return nil

	case *ast.Dot:
		if err := l.lowerDotHead(n); err != nil {
			return err
		}
		l.emitOperand(bytecode.OpCall, 1)
		return nil

	case *ast.Index:
		if err := l.lower(n.Key); err != nil {
			return err
		}
		if err := l.lower(n.Object); err != nil {
			return err
		}
		l.emitName(bytecode.OpLoadMethod, "index")
		l.emitOperand(bytecode.OpCall, 2)
		return nil

	case *ast.Assign:
		if err := l.lower(n.RHS); err != nil {
			return err
		}
		l.emitName(bytecode.OpStoreGlobal, n.Name)
		return nil

	case *ast.TableAssign:
		if err := l.lower(n.RHS); err != nil {
			return err
		}
		if err := l.lower(n.LHS); err != nil {
			return err
		}
		l.emit(bytecode.OpSetTable)
		return nil

	case *ast.Call:
		for i := len(n.Args) - 1; i >= 0; i-- {
			if err := l.lower(n.Args[i]); err != nil {
				return err
			}
		}
		if err := l.lower(n.Head); err != nil {
			return err
		}
		l.emitOperand(bytecode.OpCall, len(n.Args))
		return nil

	case *ast.DotCall:
		for i := len(n.Args) - 1; i >= 0; i-- {
			if err := l.lower(n.Args[i]); err != nil {
				return err
			}
		}
		dot, ok := n.Head.(*ast.Dot)
		if !ok {
			return sunerr.New(sunerr.Run, n.Line, "DotCall head is not a Dot node")
		}
		if err := l.lowerDotHead(dot); err != nil {
			return err
		}
		l.emitOperand(bytecode.OpCall, len(n.Args)+1)
		return nil

	case *ast.TableCreate:
		for i := len(n.Items) - 1; i >= 0; i-- {
			if err := l.lower(n.Items[i]); err != nil {
				return err
			}
		}
		l.emitOperand(bytecode.OpCreateTable, len(n.Items))
		return nil

	case *ast.PairCreate:
		if err := l.lower(n.Value); err != nil {
			return err
		}
		l.emitName(bytecode.OpSetPair, n.Key)
		return nil

	case *ast.If:
		return l.lowerIf(n)

	case *ast.Loop:
		return l.lowerLoop(n)

	case *ast.Return:
		// Sun's source grammar never defines callables, so there is no
		// call frame to unwind: a top-level `return` simply evaluates
		// to its value, same as any other trailing expression.
		return l.lower(n.Value)

	case *ast.Import:
		l.emitName(bytecode.OpImport, n.Name)
		return nil

	default:
		return sunerr.New(sunerr.Run, 0, "unsupported AST node %T", e)
	}
}

// lowerDotHead emits the shared prefix of Dot and DotCall: push the
// method-name key, push the receiver, then LoadMethod("dot") resolves the
// key's string value as a method name on the receiver's metatable,
// leaving [receiver, method] on the stack (spec §4.4's special-cased
// LoadMethod("dot") row). Callers append their own Call — one argument
// for a bare Dot fetch, len(args)+1 for a DotCall.
func (l *lowerer) lowerDotHead(d *ast.Dot) error {
	idx := l.prog.AddConstant(value.NewString(d.Name))
	l.emitOperand(bytecode.OpLoadConst, idx)
	if err := l.lower(d.Object); err != nil {
		return err
	}
	l.emitName(bytecode.OpLoadMethod, "dot")
	return nil
}

func (l *lowerer) lowerIf(n *ast.If) error {
	if err := l.lower(n.Cond); err != nil {
		return err
	}
	elseOrEnd := l.newLabel()
	l.emitJump(bytecode.OpTestJump, elseOrEnd)

	for _, stmt := range n.Then {
		if err := l.lower(stmt); err != nil {
			return err
		}
	}

	if n.Else == nil {
		l.mark(elseOrEnd)
		return nil
	}

	end := l.newLabel()
	l.emitJump(bytecode.OpJump, end)
	l.mark(elseOrEnd)
	for _, stmt := range n.Else {
		if err := l.lower(stmt); err != nil {
			return err
		}
	}
	l.mark(end)
	return nil
}

func (l *lowerer) lowerLoop(n *ast.Loop) error {
	start := l.newLabel()
	l.mark(start)
	if err := l.lower(n.Cond); err != nil {
		return err
	}
	exit := l.newLabel()
	l.emitJump(bytecode.OpTestJump, exit)

	for _, stmt := range n.Body {
		if err := l.lower(stmt); err != nil {
			return err
		}
	}

	l.emitJump(bytecode.OpBack, start)
	l.mark(exit)
	return nil
}
