// Package vm implements the bytecode virtual machine for Fi.
//
// The VM is a stack-based interpreter that executes bytecode instructions.
// It's the final stage in the execution pipeline:
//
//	Source -> Scanner -> Compiler -> Chunk -> VM -> Execution
//
// Virtual Machine Architecture:
//
//   1. Value Stack: fixed-capacity (256 Values), holds intermediate
//      results during computation.
//   2. Locals: a separate array indexed by compile-time slot number,
//      grown on demand -- locals never live on the operand stack.
//   3. Globals: a Robin-Hood hashmap keyed by interned variable names.
//   4. String pool: a Robin-Hood hashmap that canonicalizes every
//      ObjString the VM creates, so string equality is pointer equality.
//
// Execution Model:
//
// The VM executes instructions sequentially using an instruction pointer
// (ip) into the current Chunk's code. Each value-producing instruction
// pops its operands from the stack, computes, and pushes exactly one
// result. PRINT, POP and DEFINE_GLOBAL pop a value and push none;
// SET_GLOBAL and SET_LOCAL copy the top value and leave the stack as it
// is; the jumps push nothing (JUMP_IF_FALSE only peeks).
package vm

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/MicheleFiladelfia/filang/pkg/chunk"
	"github.com/MicheleFiladelfia/filang/pkg/hashmap"
	"github.com/MicheleFiladelfia/filang/pkg/value"
)

const stackCapacity = 256

// InterpretResult is the three-way outcome of a full interpret() call.
type InterpretResult int

const (
	NoErrors InterpretResult = iota
	CompileError
	RuntimeErrorResult
)

// VM holds all execution state: the operand stack, locals, globals,
// string pool, and the REPL-mode flag that changes how POP behaves.
type VM struct {
	stack [stackCapacity]value.Value
	sp    int

	locals []value.Value

	globals hashmap.Map
	strings hashmap.StringPool

	chunk *chunk.Chunk
	ip    int

	Repl   bool
	Stdout io.Writer
}

// New creates a VM with an empty stack, no locals, no globals, and a
// fresh string pool. Globals and interned strings persist across
// multiple Run calls on the same VM, matching a REPL's expectation that
// earlier definitions remain visible.
func New(stdout io.Writer) *VM {
	return &VM{Stdout: stdout}
}

func (vm *VM) resetStack() { vm.sp = 0 }

func (vm *VM) push(v value.Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() value.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) popN(n int) { vm.sp -= n }

// peek returns the value `count` slots below the top without popping;
// peek(0) is the top of the stack.
func (vm *VM) peek(count int) value.Value {
	return vm.stack[vm.sp-1-count]
}

func (vm *VM) peekPtr(count int) *value.Value {
	return &vm.stack[vm.sp-1-count]
}

func (vm *VM) setLocal(slot int, v value.Value) {
	for slot >= len(vm.locals) {
		vm.locals = append(vm.locals, value.Nil)
	}
	vm.locals[slot] = v
}

// Interpret compiles and runs source on a fresh chunk, per interpret() in
// spec.md §6: globals and the string pool persist across calls, but the
// chunk and operand stack are per-call. compile is handed the VM's own
// string pool so that every identifier-name and string-literal constant
// it emits is interned through the same table the VM's globals map and
// OP_ADD/equality checks read back through -- otherwise a name compiled
// in one Interpret call would never match itself compiled in another.
func (vm *VM) Interpret(source string, compile func(string, *hashmap.StringPool) (*chunk.Chunk, error)) (InterpretResult, error) {
	ck, err := compile(source, &vm.strings)
	if err != nil {
		return CompileError, err
	}
	return vm.Run(ck)
}

// Run executes ck from instruction 0 until OP_RETURN or a runtime error.
func (vm *VM) Run(ck *chunk.Chunk) (InterpretResult, error) {
	vm.resetStack()
	vm.chunk = ck
	vm.ip = 0

	for {
		op := chunk.Op(vm.readByte())

		switch op {
		case chunk.OpReturn:
			return NoErrors, nil

		case chunk.OpConstant, chunk.OpConstantLong, chunk.OpConstantLongLong:
			idx := vm.readIndexOperandFor(op)
			vm.push(ck.Constants.Get(idx))

		case chunk.OpTrue:
			vm.push(value.Bool(true))
		case chunk.OpFalse:
			vm.push(value.Bool(false))
		case chunk.OpNil:
			vm.push(value.Nil)

		case chunk.OpAdd:
			if err := vm.add(); err != nil {
				return RuntimeErrorResult, err
			}
		case chunk.OpSubtract:
			if err := vm.binaryNumber(false, "-", func(a, b float64) float64 { return a - b }, func(a, b int64) int64 { return a - b }); err != nil {
				return RuntimeErrorResult, err
			}
		case chunk.OpDivide:
			if err := vm.divide(); err != nil {
				return RuntimeErrorResult, err
			}
		case chunk.OpMultiply:
			if err := vm.binaryNumber(false, "*", func(a, b float64) float64 { return a * b }, func(a, b int64) int64 { return a * b }); err != nil {
				return RuntimeErrorResult, err
			}
		case chunk.OpModulo:
			if err := vm.modulo(); err != nil {
				return RuntimeErrorResult, err
			}
		case chunk.OpPow:
			if err := vm.pow(); err != nil {
				return RuntimeErrorResult, err
			}

		case chunk.OpPrint:
			fmt.Fprintf(vm.Stdout, "%s\n", vm.pop().String())

		case chunk.OpGreater:
			if err := vm.comparison(">", false); err != nil {
				return RuntimeErrorResult, err
			}
		case chunk.OpLess:
			if err := vm.comparison("<", true); err != nil {
				return RuntimeErrorResult, err
			}
		case chunk.OpEquals:
			vm.equals()

		case chunk.OpAnd:
			a, b := vm.peek(1).Truthy(), vm.peek(0).Truthy()
			vm.popN(2)
			vm.push(value.Bool(a && b))
		case chunk.OpOr:
			a, b := vm.peek(1).Truthy(), vm.peek(0).Truthy()
			vm.popN(2)
			vm.push(value.Bool(a || b))

		case chunk.OpNegate:
			if err := vm.negate(); err != nil {
				return RuntimeErrorResult, err
			}
		case chunk.OpNot:
			*vm.peekPtr(0) = value.Bool(!vm.peek(0).Truthy())
		case chunk.OpBwNot:
			if !vm.peek(0).IsInteger() {
				return RuntimeErrorResult, vm.runtimeError("unsupported operand type for ~: %s.", vm.peek(0).TypeName())
			}
			*vm.peekPtr(0) = value.Integer(^vm.peek(0).AsInteger())

		case chunk.OpTernary:
			var result value.Value
			if vm.peek(2).Truthy() {
				result = vm.peek(1)
			} else {
				result = vm.peek(0)
			}
			vm.popN(3)
			vm.push(result)

		case chunk.OpBwAnd:
			if err := vm.binaryInteger("&", func(a, b int64) int64 { return a & b }); err != nil {
				return RuntimeErrorResult, err
			}
		case chunk.OpBwOr:
			if err := vm.binaryInteger("|", func(a, b int64) int64 { return a | b }); err != nil {
				return RuntimeErrorResult, err
			}
		case chunk.OpXor:
			if err := vm.binaryInteger("^", func(a, b int64) int64 { return a ^ b }); err != nil {
				return RuntimeErrorResult, err
			}
		case chunk.OpShl:
			if err := vm.binaryInteger("<<", func(a, b int64) int64 { return a << uint64(b) }); err != nil {
				return RuntimeErrorResult, err
			}
		case chunk.OpShr:
			if err := vm.binaryInteger(">>", func(a, b int64) int64 { return a >> uint64(b) }); err != nil {
				return RuntimeErrorResult, err
			}

		case chunk.OpPop:
			if vm.Repl {
				fmt.Fprintf(vm.Stdout, "%s\n", vm.pop().String())
			} else {
				vm.pop()
			}

		case chunk.OpDefineGlobal:
			name := ck.Constants.Get(vm.readGenericIndex())
			if vm.globals.Insert(name, vm.pop()) {
				return RuntimeErrorResult, vm.runtimeError("redefinition of variable '%s'.", name.AsString().String())
			}

		case chunk.OpGetGlobal:
			name := ck.Constants.Get(vm.readGenericIndex())
			v, ok := vm.globals.Get(name)
			if !ok {
				return RuntimeErrorResult, vm.runtimeError("undefined variable: '%s'.", name.AsString().String())
			}
			vm.push(v)

		case chunk.OpSetGlobal:
			name := ck.Constants.Get(vm.readGenericIndex())
			if !vm.globals.Set(name, vm.peek(0)) {
				return RuntimeErrorResult, vm.runtimeError("undefined variable: '%s'.", name.AsString().String())
			}

		case chunk.OpGetLocal:
			slot := vm.readGenericIndex()
			vm.push(vm.locals[slot])

		case chunk.OpSetLocal:
			slot := vm.readGenericIndex()
			vm.setLocal(slot, vm.peek(0))

		case chunk.OpJump:
			offset := vm.readU16()
			vm.ip += offset
		case chunk.OpJumpIfFalse:
			offset := vm.readU16()
			if !vm.peek(0).Truthy() {
				vm.ip += offset
			}

		case chunk.OpClock:
			vm.push(value.Decimal(float64(time.Now().UnixNano()) / 1e9))
		case chunk.OpTypeof:
			v := vm.pop()
			vm.push(value.Obj(vm.strings.Intern(v.TypeName())))

		default:
			return RuntimeErrorResult, vm.runtimeError("unknown opcode %d.", op)
		}
	}
}

func (vm *VM) readByte() byte {
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readU16() int {
	lo := int(vm.readByte())
	hi := int(vm.readByte())
	return lo | hi<<8
}

// readIndexOperandFor reads the inline index for an already-consumed
// CONSTANT/CONSTANT_LONG/CONSTANT_LONG_LONG opcode byte.
func (vm *VM) readIndexOperandFor(op chunk.Op) int {
	switch op {
	case chunk.OpConstant:
		return int(vm.readByte())
	case chunk.OpConstantLong:
		lo := int(vm.readByte())
		hi := int(vm.readByte())
		return lo | hi<<8
	case chunk.OpConstantLongLong:
		b0 := int(vm.readByte())
		b1 := int(vm.readByte())
		b2 := int(vm.readByte())
		return b0 | b1<<8 | b2<<16
	default:
		return 0
	}
}

// readGenericIndex reads a trailing CONSTANT* opcode used purely as an
// index-encoding vehicle (for global names and local slots) and decodes
// its width-appropriate operand.
func (vm *VM) readGenericIndex() int {
	return vm.readIndexOperandFor(chunk.Op(vm.readByte()))
}

func (vm *VM) runtimeError(format string, args ...interface{}) *RuntimeError {
	line := vm.chunk.LineAt(vm.ip - 1)
	vm.resetStack()
	return newRuntimeError(line, format, args...)
}

// comparisonFusion peeks the not-yet-executed next byte: if it is OP_NOT,
// the error message should read the fused operator name (<=, >=) even
// though the opcode that actually ran is GREATER or LESS (spec.md §4.5,
// §9 Q2 -- the peek affects only the message, never which opcode runs).
func (vm *VM) comparisonFusion(base string, fused string) string {
	if vm.ip < len(vm.chunk.Code) && chunk.Op(vm.chunk.Code[vm.ip]) == chunk.OpNot {
		return fused
	}
	return base
}

func (vm *VM) comparison(symbol string, isLess bool) *RuntimeError {
	fused := map[bool]string{true: ">=", false: "<="}[isLess]
	name := vm.comparisonFusion(symbol, fused)

	if !vm.peek(0).IsNumeric() || !vm.peek(1).IsNumeric() {
		return vm.runtimeError("unsupported operand type(s) for %s: %s and %s.", name, vm.peek(1).TypeName(), vm.peek(0).TypeName())
	}

	b := vm.pop()
	a := vm.pop()
	var result bool
	if a.IsDecimal() || b.IsDecimal() {
		if isLess {
			result = a.AsFloat64() < b.AsFloat64()
		} else {
			result = a.AsFloat64() > b.AsFloat64()
		}
	} else {
		if isLess {
			result = a.AsInteger() < b.AsInteger()
		} else {
			result = a.AsInteger() > b.AsInteger()
		}
	}
	vm.push(value.Bool(result))
	return nil
}

func (vm *VM) equals() {
	b := vm.pop()
	a := vm.pop()
	vm.push(value.Bool(valuesEqual(a, b)))
}

func valuesEqual(a, b value.Value) bool {
	switch {
	case a.IsInteger() && b.IsInteger():
		return a.AsInteger() == b.AsInteger()
	case a.IsInteger() && b.IsDecimal():
		return float64(a.AsInteger()) == b.AsDecimal()
	case a.IsDecimal() && b.IsInteger():
		return a.AsDecimal() == float64(b.AsInteger())
	case a.IsDecimal() && b.IsDecimal():
		return a.AsDecimal() == b.AsDecimal()
	case a.IsString() && b.IsString():
		return a.AsString() == b.AsString()
	case a.IsNil() && b.IsNil():
		return true
	default:
		return false
	}
}

// add implements OP_ADD's dual nature: string concatenation if either
// operand is a string, otherwise the shared numeric lattice. The stack
// holds left beneath right; the two pops must be sequenced so the
// concatenation receives (left, right), not the reverse a naive
// pop-then-pop would produce.
func (vm *VM) add() *RuntimeError {
	if vm.peek(0).IsString() || vm.peek(1).IsString() {
		right := vm.pop()
		left := vm.pop()
		concatenated := left.String() + right.String()
		vm.push(value.Obj(vm.strings.Intern(concatenated)))
		return nil
	}
	return vm.binaryNumber(false, "+", func(a, b float64) float64 { return a + b }, func(a, b int64) int64 { return a + b })
}

// binaryNumber implements the BINARY_NUMBER_OPERATION pattern: integer
// arithmetic when both operands are integer-like, else double promotion.
// castBool wraps the result as Bool instead of Integer/Decimal, used by
// the comparison opcodes that share this machinery in the source VM
// (comparisons here instead go through the dedicated comparison method,
// so castBool is always false for the opcodes that call binaryNumber
// directly).
func (vm *VM) binaryNumber(castBool bool, symbol string, fd func(a, b float64) float64, fi func(a, b int64) int64) *RuntimeError {
	if !vm.peek(0).IsNumeric() || !vm.peek(1).IsNumeric() {
		return vm.runtimeError("unsupported operand type(s) for %s: %s and %s.", symbol, vm.peek(1).TypeName(), vm.peek(0).TypeName())
	}

	b := vm.pop()
	a := vm.pop()

	if a.IsInteger() && b.IsInteger() && symbol != "/" {
		result := fi(a.AsInteger(), b.AsInteger())
		if castBool {
			vm.push(value.Bool(result != 0))
		} else {
			vm.push(value.Integer(result))
		}
		return nil
	}

	result := fd(a.AsFloat64(), b.AsFloat64())
	if castBool {
		vm.push(value.Bool(result != 0))
	} else {
		vm.push(value.Decimal(result))
	}
	return nil
}

func (vm *VM) binaryInteger(symbol string, f func(a, b int64) int64) *RuntimeError {
	if !vm.peek(0).IsInteger() || !vm.peek(1).IsInteger() {
		return vm.runtimeError("unsupported operand type(s) for %s: %s and %s.", symbol, vm.peek(1).TypeName(), vm.peek(0).TypeName())
	}
	b := vm.pop()
	a := vm.pop()
	vm.push(value.Integer(f(a.AsInteger(), b.AsInteger())))
	return nil
}

// isNumericZero reports whether v is integer 0, bool false, or decimal
// 0.0 -- the DIV/MOD zero-guard folds Bool into the numeric-zero check
// (spec.md §9 Q5).
func isNumericZero(v value.Value) bool {
	if v.IsInteger() {
		return v.AsInteger() == 0
	}
	if v.IsDecimal() {
		return v.AsDecimal() == 0
	}
	return false
}

func (vm *VM) divide() *RuntimeError {
	if isNumericZero(vm.peek(0)) {
		return vm.runtimeError("division by zero.")
	}
	return vm.binaryNumber(false, "/", func(a, b float64) float64 { return a / b }, nil)
}

func (vm *VM) modulo() *RuntimeError {
	if isNumericZero(vm.peek(0)) {
		return vm.runtimeError("division by zero.")
	}
	return vm.binaryInteger("%", func(a, b int64) int64 { return a % b })
}

// pow computes a ** b in f64; if the result is an exact integer within
// range it is returned as Integer, else Decimal (spec.md's POW integer
// closure).
func (vm *VM) pow() *RuntimeError {
	if !vm.peek(0).IsNumeric() || !vm.peek(1).IsNumeric() {
		return vm.runtimeError("unsupported operand type(s) for '**': %s and %s.", vm.peek(1).TypeName(), vm.peek(0).TypeName())
	}
	b := vm.pop()
	a := vm.pop()
	result := math.Pow(a.AsFloat64(), b.AsFloat64())
	if math.Floor(result) == result && result >= math.MinInt64 && result < math.MaxInt64 {
		vm.push(value.Integer(int64(result)))
	} else {
		vm.push(value.Decimal(result))
	}
	return nil
}

func (vm *VM) negate() *RuntimeError {
	v := vm.peek(0)
	switch {
	case v.IsInteger():
		*vm.peekPtr(0) = value.Integer(-v.AsInteger())
	case v.IsDecimal():
		*vm.peekPtr(0) = value.Decimal(-v.AsDecimal())
	default:
		return vm.runtimeError("unsupported operand type for -: %s.", v.TypeName())
	}
	return nil
}
