package lowerer

import (
	"testing"

	"github.com/windlx/sun/pkg/bytecode"
	"github.com/windlx/sun/pkg/parser"
	"github.com/windlx/sun/pkg/value"
)

func lowerSource(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	p := parser.New(src)
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	bc, err := Lower(prog)
	if err != nil {
		t.Fatalf("lower error: %v", err)
	}
	return bc
}

func opSequence(bc *bytecode.Program) []bytecode.Opcode {
	ops := make([]bytecode.Opcode, len(bc.Instructions))
	for i, ins := range bc.Instructions {
		ops[i] = ins.Op
	}
	return ops
}

func TestLowerBinOpSequence(t *testing.T) {
	bc := lowerSource(t, "1 + 2;")
	want := []bytecode.Opcode{bytecode.OpLoadConst, bytecode.OpLoadConst, bytecode.OpLoadMethod, bytecode.OpCall}
	got := opSequence(bc)
	if len(got) != len(want) {
		t.Fatalf("got %v, want shape %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("instr %d: got %s, want %s", i, got[i], want[i])
		}
	}
	last := bc.Instructions[len(bc.Instructions)-1]
	if last.Operand != 2 {
		t.Fatalf("expected Call(2), got Call(%d)", last.Operand)
	}
	method := bc.Instructions[2]
	if method.Name != "add" {
		t.Fatalf("expected LoadMethod(add), got LoadMethod(%s)", method.Name)
	}
}

func TestLowerUnaryOpSequence(t *testing.T) {
	bc := lowerSource(t, "-x;")
	want := []bytecode.Opcode{bytecode.OpLoadValue, bytecode.OpLoadMethod, bytecode.OpCall}
	got := opSequence(bc)
	if len(got) != len(want) {
		t.Fatalf("got %v, want shape %v", got, want)
	}
	if bc.Instructions[1].Name != "neg" {
		t.Fatalf("expected LoadMethod(neg), got %s", bc.Instructions[1].Name)
	}
	if bc.Instructions[2].Operand != 1 {
		t.Fatalf("expected Call(1), got Call(%d)", bc.Instructions[2].Operand)
	}
}

func TestLowerAssignStoresGlobal(t *testing.T) {
	bc := lowerSource(t, "x = 5;")
	last := bc.Instructions[len(bc.Instructions)-1]
	if last.Op != bytecode.OpStoreGlobal || last.Name != "x" {
		t.Fatalf("expected StoreGlobal(x), got %#v", last)
	}
}

func TestLowerDotCallArgCount(t *testing.T) {
	bc := lowerSource(t, "a.push(3);")
	var call bytecode.Instruction
	for _, ins := range bc.Instructions {
		if ins.Op == bytecode.OpCall {
			call = ins
		}
	}
	if call.Operand != 2 {
		t.Fatalf("expected DotCall with receiver+1 arg = 2, got %d", call.Operand)
	}
}

func TestLowerIfForwardJumpLandsPastThen(t *testing.T) {
	bc := lowerSource(t, `if nil: 1; end;`)
	var testJumpIdx, count int
	for i, ins := range bc.Instructions {
		if ins.Op == bytecode.OpTestJump {
			testJumpIdx = i
		}
		count++
	}
	testJump := bc.Instructions[testJumpIdx]
	target := testJumpIdx + 1 + testJump.Operand
	if target != count {
		t.Fatalf("TestJump target = %d, want end of program (%d)", target, count)
	}
}

func TestLowerIfElseSkipsElseOnTrueBranch(t *testing.T) {
	bc := lowerSource(t, `if nil: 1; else 2; end;`)
	var testJumpIdx, jumpIdx int
	for i, ins := range bc.Instructions {
		switch ins.Op {
		case bytecode.OpTestJump:
			testJumpIdx = i
		case bytecode.OpJump:
			jumpIdx = i
		}
	}
	testJump := bc.Instructions[testJumpIdx]
	elseStart := testJumpIdx + 1 + testJump.Operand
	if elseStart != jumpIdx+1 {
		t.Fatalf("TestJump should land right after the unconditional Jump that skips else, got %d want %d", elseStart, jumpIdx+1)
	}
	unconditional := bc.Instructions[jumpIdx]
	end := jumpIdx + 1 + unconditional.Operand
	if end != len(bc.Instructions) {
		t.Fatalf("Jump should land at end of program, got %d want %d", end, len(bc.Instructions))
	}
}

func TestLowerLoopBacksToCondition(t *testing.T) {
	bc := lowerSource(t, `loop x: x = nil; end;`)
	var backIdx int
	for i, ins := range bc.Instructions {
		if ins.Op == bytecode.OpBack {
			backIdx = i
		}
	}
	back := bc.Instructions[backIdx]
	target := backIdx + 1 - back.Operand
	if target != 0 {
		t.Fatalf("Back should rewind to the loop's first instruction (0), got %d", target)
	}
}

func TestLowerTableCreateReversesItems(t *testing.T) {
	bc := lowerSource(t, `{ 1, 2 };`)
	var loads []int
	for _, ins := range bc.Instructions {
		if ins.Op == bytecode.OpLoadConst {
			loads = append(loads, ins.Operand)
		}
	}
	if len(loads) != 2 || loads[0] == loads[1] {
		t.Fatalf("expected two distinct constant loads, got %v", loads)
	}
	if !value.Equal(bc.Constants[loads[0]], value.Number(2)) || !value.Equal(bc.Constants[loads[1]], value.Number(1)) {
		t.Fatalf("expected items lowered last-to-first (2 then 1), got %v then %v", bc.Constants[loads[0]], bc.Constants[loads[1]])
	}
	create := bc.Instructions[len(bc.Instructions)-1]
	if create.Op != bytecode.OpCreateTable || create.Operand != 2 {
		t.Fatalf("expected CreateTable(2), got %#v", create)
	}
}
