package bytecode

import (
	"bytes"
	"testing"

	"github.com/windlx/sun/pkg/value"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := &Program{
		Instructions: []Instruction{
			{Op: OpLoadConst, Operand: 0},
			{Op: OpStoreGlobal, Name: "x"},
			{Op: OpLoadValue, Name: "x"},
			{Op: OpLoadMethod, Name: "add"},
			{Op: OpCall, Operand: 1},
		},
		Constants: []value.Value{
			value.Number(42),
		},
	}

	var buf bytes.Buffer
	if err := Encode(original, &buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("no data was encoded")
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if len(decoded.Instructions) != len(original.Instructions) {
		t.Fatalf("expected %d instructions, got %d", len(original.Instructions), len(decoded.Instructions))
	}
	for i, ins := range original.Instructions {
		got := decoded.Instructions[i]
		if got.Op != ins.Op || got.Name != ins.Name || got.Operand != ins.Operand {
			t.Errorf("instruction %d mismatch: expected %+v, got %+v", i, ins, got)
		}
	}

	if len(decoded.Constants) != len(original.Constants) {
		t.Fatalf("expected %d constants, got %d", len(original.Constants), len(decoded.Constants))
	}
	if !value.Equal(decoded.Constants[0], original.Constants[0]) {
		t.Errorf("expected constant %v, got %v", original.Constants[0], decoded.Constants[0])
	}
}

func TestEncodeDecodeAllConstantKinds(t *testing.T) {
	original := &Program{
		Instructions: []Instruction{
			{Op: OpLoadConst, Operand: 0},
		},
		Constants: []value.Value{
			value.Nil{},
			value.Boolean(true),
			value.Boolean(false),
			value.Number(3.5),
			value.NewString("hello"),
			value.NewString(""),
		},
	}

	var buf bytes.Buffer
	if err := Encode(original, &buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if len(decoded.Constants) != len(original.Constants) {
		t.Fatalf("expected %d constants, got %d", len(original.Constants), len(decoded.Constants))
	}
	for i, c := range original.Constants {
		if !value.Equal(decoded.Constants[i], c) {
			t.Errorf("constant %d: expected %v, got %v", i, c, decoded.Constants[i])
		}
	}
}

func TestDecodeRejectsBadMagicNumber(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0, 1, 0, 0, 0})
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected an error for a bad magic number")
	}
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	if err := writeHeader(&buf); err != nil {
		t.Fatalf("writeHeader failed: %v", err)
	}
	encoded := buf.Bytes()
	// Corrupt the version field (bytes 4-7) to an unsupported value.
	encoded[4] = 0xFF
	if _, err := Decode(bytes.NewReader(encoded)); err == nil {
		t.Fatal("expected an error for an unsupported version")
	}
}

func TestEncodeRejectsUnserializableConstant(t *testing.T) {
	original := &Program{
		Constants: []value.Value{value.NewTable()},
	}
	var buf bytes.Buffer
	if err := Encode(original, &buf); err == nil {
		t.Fatal("expected an error encoding a table constant")
	}
}

func TestDisassembleIncludesConstantsAndInstructions(t *testing.T) {
	program := &Program{
		Instructions: []Instruction{
			{Op: OpLoadConst, Operand: 0},
			{Op: OpStoreGlobal, Name: "x"},
		},
		Constants: []value.Value{value.Number(7)},
	}
	out := Disassemble(program)
	if out == "" {
		t.Fatal("expected non-empty disassembly")
	}
	if !bytes.Contains([]byte(out), []byte("LOAD_CONST")) {
		t.Errorf("expected disassembly to mention LOAD_CONST, got: %s", out)
	}
	if !bytes.Contains([]byte(out), []byte(`"x"`)) {
		t.Errorf("expected disassembly to mention store target name, got: %s", out)
	}
}
