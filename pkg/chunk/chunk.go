// Package chunk defines the bytecode container the compiler emits into and
// the VM executes: a flat byte stream, a constant pool, and a line-ends
// table mapping instruction offsets back to source lines for error
// reporting.
package chunk

import "github.com/MicheleFiladelfia/filang/pkg/value"

// Op is a single bytecode instruction opcode.
type Op byte

// Core opcode set (spec.md §4.4).
const (
	// === Literals ===

	// OpNil, OpTrue, OpFalse push the corresponding singleton value.
	OpNil Op = iota
	OpTrue
	OpFalse

	// OpConstant, OpConstantLong, OpConstantLongLong push constants[idx],
	// differing only in how wide idx is encoded inline: u8, u16, u24
	// (little-endian). Any opcode whose operand is a "constant reference"
	// (a global's name, a local's slot index) is followed by one of these
	// three as its index vehicle — see the VM's readGenericIndex.
	OpConstant
	OpConstantLong
	OpConstantLongLong

	// === Arithmetic ===

	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpPow
	OpNegate

	// === Bitwise / logical ===

	OpNot
	OpBwNot
	OpAnd
	OpOr
	OpBwAnd
	OpBwOr
	OpXor
	OpShl
	OpShr

	// === Comparison ===

	OpEquals
	OpGreater
	OpLess

	OpTernary

	// === Statements ===

	OpPrint
	OpPop

	// === Variables ===

	OpDefineGlobal
	OpGetGlobal
	OpSetGlobal
	OpGetLocal
	OpSetLocal

	// === Control flow ===

	OpJump
	OpJumpIfFalse

	// === Builtins ===

	OpClock
	OpTypeof

	OpReturn

	// OpError is a reserved placeholder; it is never emitted or executed.
	OpError
)

var opNames = [...]string{
	OpNil: "NIL", OpTrue: "TRUE", OpFalse: "FALSE",
	OpConstant: "CONSTANT", OpConstantLong: "CONSTANT_LONG", OpConstantLongLong: "CONSTANT_LONG_LONG",
	OpAdd: "ADD", OpSubtract: "SUBTRACT", OpMultiply: "MULTIPLY", OpDivide: "DIVIDE",
	OpModulo: "MODULO", OpPow: "POW", OpNegate: "NEGATE",
	OpNot: "NOT", OpBwNot: "BW_NOT", OpAnd: "AND", OpOr: "OR",
	OpBwAnd: "BW_AND", OpBwOr: "BW_OR", OpXor: "XOR", OpShl: "SHIFT_LEFT", OpShr: "SHIFT_RIGHT",
	OpEquals: "EQUALS", OpGreater: "GREATER", OpLess: "LESS", OpTernary: "TERNARY",
	OpPrint: "PRINT", OpPop: "POP",
	OpDefineGlobal: "DEFINE_GLOBAL", OpGetGlobal: "GET_GLOBAL", OpSetGlobal: "SET_GLOBAL",
	OpGetLocal: "GET_LOCAL", OpSetLocal: "SET_LOCAL",
	OpJump: "JUMP", OpJumpIfFalse: "JUMP_IF_FALSE",
	OpClock: "CLOCK", OpTypeof: "TYPEOF", OpReturn: "RETURN", OpError: "ERROR",
}

// String returns the opcode's mnemonic, for error messages and tests.
func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "UNKNOWN"
}

const noLine = -1

// lineTable is the line-ends run-length encoding: ends[i] is the greatest
// code index belonging to source line i+1, or noLine if that line produced
// no bytecode. It is monotone — writing to line k never touches an earlier
// line's entry.
type lineTable struct {
	ends []int
}

func (lt *lineTable) record(line, codeIndex int) {
	if line > len(lt.ends) {
		for len(lt.ends) < line {
			lt.ends = append(lt.ends, noLine)
		}
	}
	lt.ends[line-1] = codeIndex
}

// lineFor returns the source line owning instruction offset, scanning
// forward for the first non-sentinel entry whose end is >= offset. This is
// a linear scan: acceptable because it only runs on error paths.
func (lt *lineTable) lineFor(offset int) int {
	for i, end := range lt.ends {
		if end != noLine && end >= offset {
			return i + 1
		}
	}
	if len(lt.ends) > 0 {
		return len(lt.ends)
	}
	return 0
}

// Chunk is a unit of compiled bytecode: the instruction stream, its
// constant pool, and the line-ends table used to attribute runtime errors
// back to source lines.
type Chunk struct {
	Code      []byte
	Constants value.ValueArray
	lines     lineTable
}

// Write appends byte b to the instruction stream, recording that it
// belongs to source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.lines.record(line, len(c.Code)-1)
}

// AddConstant appends v to the constant pool and returns its index.
func (c *Chunk) AddConstant(v value.Value) int {
	return c.Constants.Write(v)
}

// LineAt returns the source line owning the instruction at offset.
func (c *Chunk) LineAt(offset int) int {
	return c.lines.lineFor(offset)
}

// Len returns the number of bytes currently in the instruction stream.
func (c *Chunk) Len() int {
	return len(c.Code)
}
