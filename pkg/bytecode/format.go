// Binary file format for pre-compiled Sun programs, used by the `compile`
// and `disassemble` CLI subcommands (spec §6).
//
// File Format Layout:
//
//   [Header]
//     Magic Number (4 bytes): 0x53554E30 ("SUN0" read big-endian),
//       stored little-endian like every other field
//     Version (4 bytes): format version, currently 1
//
//   [Constants Section]
//     Count (4 bytes)
//     For each constant: type byte + type-specific data
//
//   [Instructions Section]
//     Count (4 bytes)
//     For each instruction: opcode (1 byte), name length + bytes (4 bytes
//     + N), operand (4 bytes, signed)
//
// Only the four scalar value kinds are representable in the constant
// pool (Nil, Boolean, Number, String) — Table, Function, and
// ClassInstance constants never appear in a lowered Program, since
// table/pair literals are always built at runtime via CreateTable/
// SetPair and there is no literal function syntax (spec §4.3).
//
// Adapted from the teacher's .sg binary format (magic number + versioned
// header + length-prefixed sections), narrowed to Sun's single Program
// shape in place of the teacher's recursive Bytecode/ClassDefinition/
// MethodDefinition nesting.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/windlx/sun/pkg/value"
)

const (
	// MagicNumber is the file signature for Sun's compiled program files.
	MagicNumber uint32 = 0x53554E30

	// FormatVersion is the current format version.
	FormatVersion uint32 = 1
)

const (
	constTypeNil byte = iota
	constTypeBoolean
	constTypeNumber
	constTypeString
)

// Encode serializes program to w in Sun's binary program format.
func Encode(program *Program, w io.Writer) error {
	if err := writeHeader(w); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writeConstants(w, program.Constants); err != nil {
		return fmt.Errorf("failed to write constants: %w", err)
	}
	if err := writeInstructions(w, program.Instructions); err != nil {
		return fmt.Errorf("failed to write instructions: %w", err)
	}
	return nil
}

// Decode deserializes a Program previously written by Encode.
func Decode(r io.Reader) (*Program, error) {
	version, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("unsupported program version: %d (expected %d)", version, FormatVersion)
	}
	constants, err := readConstants(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read constants: %w", err)
	}
	instructions, err := readInstructions(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read instructions: %w", err)
	}
	return &Program{Instructions: instructions, Constants: constants}, nil
}

func writeHeader(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, MagicNumber); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, FormatVersion)
}

func readHeader(r io.Reader) (uint32, error) {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return 0, err
	}
	if magic != MagicNumber {
		return 0, fmt.Errorf("invalid magic number: 0x%08X (expected 0x%08X)", magic, MagicNumber)
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return 0, err
	}
	return version, nil
}

func writeConstants(w io.Writer, constants []value.Value) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(constants))); err != nil {
		return err
	}
	for i, c := range constants {
		if err := writeConstant(w, c); err != nil {
			return fmt.Errorf("failed to write constant %d: %w", i, err)
		}
	}
	return nil
}

func writeConstant(w io.Writer, c value.Value) error {
	switch v := c.(type) {
	case value.Nil:
		return binary.Write(w, binary.LittleEndian, constTypeNil)
	case value.Boolean:
		if err := binary.Write(w, binary.LittleEndian, constTypeBoolean); err != nil {
			return err
		}
		var b byte
		if v {
			b = 1
		}
		return binary.Write(w, binary.LittleEndian, b)
	case value.Number:
		if err := binary.Write(w, binary.LittleEndian, constTypeNumber); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, float64(v))
	case value.String:
		if err := binary.Write(w, binary.LittleEndian, constTypeString); err != nil {
			return err
		}
		return writeBytes(w, []byte(v))
	default:
		return fmt.Errorf("constant type %s cannot be serialized", c.TypeName())
	}
}

func readConstants(r io.Reader) ([]value.Value, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	constants := make([]value.Value, count)
	for i := range constants {
		c, err := readConstant(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read constant %d: %w", i, err)
		}
		constants[i] = c
	}
	return constants, nil
}

func readConstant(r io.Reader) (value.Value, error) {
	var tag byte
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return nil, err
	}
	switch tag {
	case constTypeNil:
		return value.Nil{}, nil
	case constTypeBoolean:
		var b byte
		if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
			return nil, err
		}
		return value.Boolean(b != 0), nil
	case constTypeNumber:
		var f float64
		if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
			return nil, err
		}
		return value.Number(f), nil
	case constTypeString:
		b, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		return value.String(b), nil
	default:
		return nil, fmt.Errorf("unknown constant type tag: 0x%02X", tag)
	}
}

func writeInstructions(w io.Writer, instructions []Instruction) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(instructions))); err != nil {
		return err
	}
	for i, ins := range instructions {
		if err := binary.Write(w, binary.LittleEndian, byte(ins.Op)); err != nil {
			return fmt.Errorf("failed to write instruction %d opcode: %w", i, err)
		}
		if err := writeBytes(w, []byte(ins.Name)); err != nil {
			return fmt.Errorf("failed to write instruction %d name: %w", i, err)
		}
		if err := binary.Write(w, binary.LittleEndian, int32(ins.Operand)); err != nil {
			return fmt.Errorf("failed to write instruction %d operand: %w", i, err)
		}
	}
	return nil
}

func readInstructions(r io.Reader) ([]Instruction, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	instructions := make([]Instruction, count)
	for i := range instructions {
		var op byte
		if err := binary.Read(r, binary.LittleEndian, &op); err != nil {
			return nil, fmt.Errorf("failed to read instruction %d opcode: %w", i, err)
		}
		name, err := readBytes(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read instruction %d name: %w", i, err)
		}
		var operand int32
		if err := binary.Read(r, binary.LittleEndian, &operand); err != nil {
			return nil, fmt.Errorf("failed to read instruction %d operand: %w", i, err)
		}
		instructions[i] = Instruction{Op: Opcode(op), Name: string(name), Operand: int(operand)}
	}
	return instructions, nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	b := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Disassemble renders program as human-readable text, one instruction
// per line, for the `disassemble` CLI subcommand (spec §6).
func Disassemble(program *Program) string {
	out := "constants:\n"
	for i, c := range program.Constants {
		out += fmt.Sprintf("  %4d  %s\n", i, describeConstant(c))
	}
	out += "instructions:\n"
	for i, ins := range program.Instructions {
		out += fmt.Sprintf("  %4d  %-12s", i, ins.Op)
		if ins.Name != "" {
			out += fmt.Sprintf(" %q", ins.Name)
		}
		if ins.Name == "" {
			out += fmt.Sprintf(" %d", ins.Operand)
		}
		out += "\n"
	}
	return out
}

func describeConstant(c value.Value) string {
	switch v := c.(type) {
	case value.String:
		return fmt.Sprintf("%q", string(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}
