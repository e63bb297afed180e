// Package bytecode defines Sun's instruction set and compiled-program
// representation — the flat, stack-machine intermediate form the lowerer
// produces and the VM executes.
//
// Instruction Format:
//
// Every instruction has an opcode plus whichever of Name/Operand it
// needs:
//   - Name:    a string operand — a variable, method, library, or table
//     key name (LoadValue, StoreGlobal, LoadMethod, SetPair, Import).
//   - Operand: an int operand — a constant-pool index (LoadConst), an
//     item/argument count (CreateTable, Call), or a signed
//     instruction-relative jump distance (TestJump, Jump, Back).
//
// A two-field operand, rather than the teacher's single packed int, is a
// deliberate departure: Sun's operands are genuinely heterogeneous
// (names vs. counts vs. offsets) where the teacher's SEND packs two
// same-shaped integers.
package bytecode

import "github.com/windlx/sun/pkg/value"

// Opcode is a single bytecode operation.
type Opcode byte

const (
	// OpLoadValue pushes the global handle for Name, or a fresh Nil
	// handle if it is unset.
	OpLoadValue Opcode = iota

	// OpLoadConst pushes a fresh handle wrapping Constants[Operand].
	OpLoadConst

	// OpStoreGlobal pops a handle and binds it to Name in globals,
	// unless it is Nil (a no-op warning case, spec §4.4).
	OpStoreGlobal

	// OpLoadMethod resolves Name on the receiver's metatable chain.
	// When Name == "dot" it pops both the key and the receiver, looks
	// up the key as a method name, and pushes the receiver back
	// followed by the method; otherwise it only peeks the receiver and
	// pushes the resolved method on top (spec §4.4).
	OpLoadMethod

	// OpSetTable pops a target handle then a value handle and writes
	// the value into the target, replacing its contents.
	OpSetTable

	// OpCreateTable pops Operand items (each a plain value or a tagged
	// pair produced by OpSetPair) and pushes the assembled table.
	OpCreateTable

	// OpSetPair pops a value and wraps it with Name as a single-entry
	// tagged pair, consumed by a surrounding OpCreateTable.
	OpSetPair

	// OpCall pops a callable, then Operand argument handles (stack top
	// is argument 0), dispatches it, and pushes every returned handle.
	OpCall

	// OpTestJump pops a condition; if it is Nil or Boolean(false), PC
	// advances by the signed distance Operand, else execution falls
	// through to the next instruction.
	OpTestJump

	// OpJump advances PC by the signed distance Operand.
	OpJump

	// OpBack rewinds PC by the signed distance Operand (loop back-edge).
	OpBack

	// OpImport loads the module named Name and merges its metatables
	// and globals into the running registry (spec §6).
	OpImport
)

func (op Opcode) String() string {
	switch op {
	case OpLoadValue:
		return "LOAD_VALUE"
	case OpLoadConst:
		return "LOAD_CONST"
	case OpStoreGlobal:
		return "STORE_GLOBAL"
	case OpLoadMethod:
		return "LOAD_METHOD"
	case OpSetTable:
		return "SET_TABLE"
	case OpCreateTable:
		return "CREATE_TABLE"
	case OpSetPair:
		return "SET_PAIR"
	case OpCall:
		return "CALL"
	case OpTestJump:
		return "TEST_JUMP"
	case OpJump:
		return "JUMP"
	case OpBack:
		return "BACK"
	case OpImport:
		return "IMPORT"
	default:
		return "UNKNOWN"
	}
}

// Instruction is one bytecode operation.
type Instruction struct {
	Op      Opcode
	Name    string // method/variable/library/key name, where applicable
	Operand int     // constant index, count, or signed jump distance
}

// Program is a fully lowered, directly executable instruction sequence
// plus the constant pool its OpLoadConst instructions index into.
type Program struct {
	Instructions []Instruction
	Constants    []value.Value
}

// AddConstant appends v to the constant pool and returns its index,
// reusing an existing identical scalar constant when possible to keep
// the pool small (mirrors the teacher's addConstant, generalized to
// Sun's value set — tables are never deduplicated since two textually
// identical table literals are independent objects at runtime).
func (p *Program) AddConstant(v value.Value) int {
	switch v.(type) {
	case *value.Table, *value.ClassInstance, *value.Function:
		// never shared: deep-copy/identity semantics apply to these.
	default:
		for i, c := range p.Constants {
			if value.Equal(c, v) {
				return i
			}
		}
	}
	p.Constants = append(p.Constants, v)
	return len(p.Constants) - 1
}
