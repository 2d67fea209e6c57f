package vm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MicheleFiladelfia/filang/pkg/compiler"
)

func run(t *testing.T, source string) (string, InterpretResult, error) {
	t.Helper()
	var out bytes.Buffer
	vm := New(&out)
	result, err := vm.Interpret(source, compiler.Compile)
	return out.String(), result, err
}

func TestArithmeticPrecedence(t *testing.T) {
	out, result, err := run(t, "print 1 + 2 * 3;")
	require.NoError(t, err)
	assert.Equal(t, NoErrors, result)
	assert.Equal(t, "7\n", out)
}

func TestPowRightAssociative(t *testing.T) {
	out, _, err := run(t, "print 2 ** 3 ** 2;")
	require.NoError(t, err)
	assert.Equal(t, "512\n", out)
}

func TestAddStringConcatenationOrder(t *testing.T) {
	out, _, err := run(t, `: x = "hi"; : y = 2; print x + y;`)
	require.NoError(t, err)
	assert.Equal(t, "hi2\n", out)
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	_, result, err := run(t, "print 1 / 0;")
	require.Error(t, err)
	assert.Equal(t, RuntimeErrorResult, result)
	assert.Equal(t, "[line 1] RuntimeError: division by zero.\n", err.Error())
}

func TestBlockScopingShadowsAndRestores(t *testing.T) {
	out, _, err := run(t, ": a = 1; { : a = 2; print a; } print a;")
	require.NoError(t, err)
	assert.Equal(t, "2\n1\n", out)
}

func TestIfElseBranches(t *testing.T) {
	out, _, err := run(t, `? (true) { print "T"; } : { print "F"; }`)
	require.NoError(t, err)
	assert.Equal(t, "T\n", out)

	out, _, err = run(t, `? (false) { print "T"; } : { print "F"; }`)
	require.NoError(t, err)
	assert.Equal(t, "F\n", out)
}

func TestModuloByZeroIsRuntimeError(t *testing.T) {
	_, result, err := run(t, "print 5 % 0;")
	require.Error(t, err)
	assert.Equal(t, RuntimeErrorResult, result)
}

func TestModuloByFalseIsRuntimeError(t *testing.T) {
	_, _, err := run(t, "print 5 % false;")
	require.Error(t, err)
}

func TestUnsupportedOperandTypeError(t *testing.T) {
	_, _, err := run(t, `print 1 + nil;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported operand type(s) for +")
}

func TestUndefinedGlobalRead(t *testing.T) {
	_, _, err := run(t, "print undeclared;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined variable: 'undeclared'.")
}

func TestRedefinitionOfGlobalIsRuntimeError(t *testing.T) {
	_, _, err := run(t, ": x = 1; : x = 2;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redefinition of variable 'x'.")
}

func TestComparisonFusionMessage(t *testing.T) {
	_, _, err := run(t, `print nil <= 1;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "for <=:")
}

func TestComparisonFusionGreaterEqual(t *testing.T) {
	_, _, err := run(t, `print nil >= 1;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "for >=:")
}

func TestPowIntegerClosure(t *testing.T) {
	out, _, err := run(t, "print 2 ** 10;")
	require.NoError(t, err)
	assert.Equal(t, "1024\n", out)

	out, _, err = run(t, "print 2 ** 0.5;")
	require.NoError(t, err)
	assert.NotEqual(t, "1\n", out)
}

func TestIntegerOverflowWraps(t *testing.T) {
	out, _, err := run(t, "print 9223372036854775807 + 1;")
	require.NoError(t, err)
	assert.Equal(t, "-9223372036854775808\n", out)
}

func TestEqualityAcrossIntegerAndDecimal(t *testing.T) {
	out, _, err := run(t, "print 2 == 2.0;")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestStringEqualityByInterning(t *testing.T) {
	out, _, err := run(t, `print "ab" == "a" + "b";`)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestTypeofBuiltin(t *testing.T) {
	out, _, err := run(t, `print typeof 1;`)
	require.NoError(t, err)
	assert.Equal(t, "<builtin 'integer'>\n", out)
}

func TestReplModePrintsPoppedExpressionResults(t *testing.T) {
	var out bytes.Buffer
	vmInstance := New(&out)
	vmInstance.Repl = true
	_, err := vmInstance.Interpret("1 + 1;", compiler.Compile)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out.String())
}

func TestGlobalsPersistAcrossInterpretCalls(t *testing.T) {
	var out bytes.Buffer
	vmInstance := New(&out)
	_, err := vmInstance.Interpret(": counter = 1;", compiler.Compile)
	require.NoError(t, err)
	_, err = vmInstance.Interpret("print counter;", compiler.Compile)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out.String())
}

func TestBitwiseOperators(t *testing.T) {
	out, _, err := run(t, "print (6 & 3) | (1 << 4) ^ 1;")
	require.NoError(t, err)
	assert.Equal(t, "19\n", out)
}

func TestTernaryOperator(t *testing.T) {
	out, _, err := run(t, `print true ? "yes" : "no";`)
	require.NoError(t, err)
	assert.Equal(t, "yes\n", out)
}
