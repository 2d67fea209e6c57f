// Package compiler implements a single-pass Pratt parser that emits
// bytecode directly into a chunk.Chunk: there is no intermediate syntax
// tree. Expressions are compiled by a table of per-token {prefix, infix,
// precedence} handlers; statements are compiled by a small set of
// recursive-descent functions layered on top.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/MicheleFiladelfia/filang/pkg/chunk"
	"github.com/MicheleFiladelfia/filang/pkg/hashmap"
	"github.com/MicheleFiladelfia/filang/pkg/scanner"
	"github.com/MicheleFiladelfia/filang/pkg/value"
)

const maxLocalDepth = 512
const unresolved = -1

// local is one entry in the compiler's scope-stack side table: the slot
// assigned to a local is its index in this slice at declaration time, and
// scope exit truncates the slice back to its pre-scope length, reclaiming
// slots for reuse.
type local struct {
	name  string
	depth int
}

// Compiler holds all state for a single compile pass: the token stream,
// the chunk being emitted into, error-recovery flags, and the locals
// side table.
type Compiler struct {
	scanner *scanner.Scanner

	previous scanner.Token
	current  scanner.Token

	hadError  bool
	panicMode bool
	errs      []string

	chunk *chunk.Chunk

	// strings is the same intern pool the VM reads its globals table
	// through: every identifier-name and string-literal constant must be
	// interned here, never allocated fresh, or a later GET_GLOBAL/equality
	// check compiled from separate source text will hold a different
	// *ObjString pointer for the same bytes and never match (see
	// emitStringConstant).
	strings *hashmap.StringPool

	locals       []local
	depthCounts  []int
	currentDepth int
}

// Compile compiles source into a fresh chunk.Chunk, interning every
// identifier-name and string-literal constant through pool -- the same
// pool the VM looks names up in, so a name's DEFINE_GLOBAL and its later
// GET_GLOBAL/SET_GLOBAL (and any two equal string literals) share one
// canonical *value.ObjString. On success it returns the chunk and a nil
// error. On failure it returns a nil chunk and an error whose message is
// the concatenation of every compile error encountered, each already
// formatted as "[line L] CompileError ...: MESSAGE\n" per the language's
// error format.
func Compile(source string, pool *hashmap.StringPool) (*chunk.Chunk, error) {
	c := &Compiler{
		scanner: scanner.New(source),
		chunk:   &chunk.Chunk{},
		strings: pool,
	}

	c.advance()
	for !c.match(scanner.TokenEOF) {
		c.definition()
	}
	c.emitByte(byte(chunk.OpReturn))

	if c.hadError {
		msg := ""
		for _, e := range c.errs {
			msg += e
		}
		return nil, fmt.Errorf("%s", msg)
	}
	return c.chunk, nil
}

// --- token stream -----------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.NextToken()
		if c.current.Type != scanner.TokenError {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(t scanner.TokenType) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t scanner.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t scanner.TokenType, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// --- error reporting ----------------------------------------------------

func (c *Compiler) errorAt(tok scanner.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	var where string
	switch tok.Type {
	case scanner.TokenEOF:
		where = " at end"
	case scanner.TokenError:
		where = ""
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	c.errs = append(c.errs, fmt.Sprintf("[line %d] CompileError%s: %s\n", tok.Line, where, message))
}

func (c *Compiler) errorAtCurrent(message string)  { c.errorAt(c.current, message) }
func (c *Compiler) errorAtPrevious(message string) { c.errorAt(c.previous, message) }

// synchronize discards tokens until it reaches either a token following a
// ';' or a statement-starting token, clearing panicMode so subsequent
// errors are reported again.
func (c *Compiler) synchronize() {
	c.panicMode = false

	for c.current.Type != scanner.TokenEOF {
		if c.previous.Type == scanner.TokenSemicolon {
			return
		}
		switch c.current.Type {
		case scanner.TokenColon, scanner.TokenPrint, scanner.TokenLeftBrace, scanner.TokenInterrogation:
			return
		}
		c.advance()
	}
}

// --- byte emission ------------------------------------------------------

func (c *Compiler) emitByte(b byte) {
	c.chunk.Write(b, c.previous.Line)
}

func (c *Compiler) emitBytes(bs ...byte) {
	for _, b := range bs {
		c.emitByte(b)
	}
}

// emitIndexOperand writes index using the three-way variable-width
// encoding: a single CONSTANT byte operand if it fits in a u8, a
// CONSTANT_LONG u16 if it fits in two bytes, else a CONSTANT_LONG_LONG
// u24. This same encoding is reused both for constant-pool references and
// for local-slot indices (see emitConstant vs. the GET_LOCAL/SET_LOCAL
// emission sites).
func (c *Compiler) emitIndexOperand(index int) {
	switch {
	case index <= 0xFF:
		c.emitBytes(byte(chunk.OpConstant), byte(index))
	case index <= 0xFFFF:
		c.emitBytes(byte(chunk.OpConstantLong), byte(index), byte(index>>8))
	case index <= 0xFFFFFF:
		c.emitBytes(byte(chunk.OpConstantLongLong), byte(index), byte(index>>8), byte(index>>16))
	default:
		c.errorAtPrevious("Too many constants in one chunk.")
	}
}

// emitConstant adds v to the chunk's constant pool and emits a reference
// to it via the variable-width index encoding.
func (c *Compiler) emitConstant(v value.Value) {
	c.emitIndexOperand(c.chunk.AddConstant(v))
}

// emitStringConstant interns chars through the shared string pool before
// adding it to the constant pool, matching original_source/strings.c's
// makeObjString, which always allocates strings through the VM's global
// intern table rather than ad hoc. Used for every identifier name (global
// variable names) and every string literal, so equal text anywhere in the
// program -- whether two read sites for the same global or two string
// literals compared with == -- resolves to one canonical *ObjString.
func (c *Compiler) emitStringConstant(chars string) {
	c.emitConstant(value.Obj(c.strings.Intern(chars)))
}

// emitJump writes opcode followed by a two-byte placeholder and returns
// the offset of the first placeholder byte, to be patched later.
func (c *Compiler) emitJump(op chunk.Op) int {
	c.emitByte(byte(op))
	c.emitBytes(0xFF, 0xFF)
	return c.chunk.Len() - 2
}

// patchJump backfills the two-byte operand at offset with the distance
// from just after it to the current end of the chunk.
func (c *Compiler) patchJump(offset int) {
	dist := c.chunk.Len() - offset - 2
	if dist > 0xFFFF {
		c.errorAtPrevious("Too much code to jump over.")
		return
	}
	c.chunk.Code[offset] = byte(dist)
	c.chunk.Code[offset+1] = byte(dist >> 8)
}

// --- scopes --------------------------------------------------------------

func (c *Compiler) beginScope() {
	c.currentDepth++
	c.depthCounts = append(c.depthCounts, 0)
}

func (c *Compiler) endScope() {
	n := c.depthCounts[len(c.depthCounts)-1]
	c.depthCounts = c.depthCounts[:len(c.depthCounts)-1]
	c.locals = c.locals[:len(c.locals)-n]
	c.currentDepth--
}

func (c *Compiler) localExistsInCurrentScope(name string) bool {
	n := 0
	if len(c.depthCounts) > 0 {
		n = c.depthCounts[len(c.depthCounts)-1]
	}
	for i := len(c.locals) - n; i < len(c.locals); i++ {
		if c.locals[i].name == name {
			return true
		}
	}
	return false
}

// resolveLocal scans locals from the top so inner scopes shadow outer
// ones, returning the slot index or unresolved if name isn't a local.
func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return i
		}
	}
	return unresolved
}

func (c *Compiler) declareLocal(name string) int {
	if c.currentDepth >= maxLocalDepth {
		c.errorAtPrevious("Too many nested blocks.")
		return 0
	}
	c.locals = append(c.locals, local{name: name, depth: c.currentDepth})
	c.depthCounts[len(c.depthCounts)-1]++
	return len(c.locals) - 1
}

// --- definitions & statements --------------------------------------------

func (c *Compiler) definition() {
	if c.match(scanner.TokenColon) {
		c.varDeclaration()
	} else {
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	c.consume(scanner.TokenIdentifier, "expected identifier after ':'.")
	name := c.previous.Lexeme

	if c.currentDepth > 0 && c.localExistsInCurrentScope(name) {
		c.errorAtPrevious(fmt.Sprintf("redefinition of variable '%s'.", name))
	}

	if c.match(scanner.TokenEqual) {
		c.expression()
	} else {
		c.emitByte(byte(chunk.OpNil))
	}
	c.consume(scanner.TokenSemicolon, "expected ';' after variable declaration.")

	if c.currentDepth > 0 {
		slot := c.declareLocal(name)
		c.emitByte(byte(chunk.OpSetLocal))
		c.emitIndexOperand(slot)
		return
	}

	c.emitByte(byte(chunk.OpDefineGlobal))
	c.emitStringConstant(name)
}

func (c *Compiler) statement() {
	switch {
	case c.match(scanner.TokenPrint):
		c.printStatement()
	case c.match(scanner.TokenLeftBrace):
		c.beginScope()
		c.blockBody()
		c.endScope()
	case c.match(scanner.TokenInterrogation):
		c.ifStatement()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	c.parseExpression(precNone + 1)
	c.emitByte(byte(chunk.OpPrint))
	c.consume(scanner.TokenSemicolon, "expected ';' after print statement.")
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.emitByte(byte(chunk.OpPop))
	c.consume(scanner.TokenSemicolon, "expected ';' after expression.")
}

// blockBody compiles definitions until the matching '}'; the opening
// brace has already been consumed by the caller (statement or
// ifStatement), matching where each uses it.
func (c *Compiler) blockBody() {
	for !c.check(scanner.TokenRightBrace) && !c.check(scanner.TokenEOF) {
		c.definition()
	}
	c.consume(scanner.TokenRightBrace, "expected '}' after block.")
}

// ifStatement compiles `? ( cond ) { then } ( : { else } )?` into:
//
//	<cond>
//	JUMP_IF_FALSE J1
//	POP                 ; drop cond on then-path
//	<then-block>
//	JUMP J2
//	J1: POP             ; drop cond on else-path
//	<else-block or nothing>
//	J2:
func (c *Compiler) ifStatement() {
	c.consume(scanner.TokenLeftParen, "expected '(' after '?'.")
	c.expression()
	c.consume(scanner.TokenRightParen, "expected ')' after condition.")

	thenJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitByte(byte(chunk.OpPop))

	c.consume(scanner.TokenLeftBrace, "expected '{' after if condition.")
	c.beginScope()
	c.blockBody()
	c.endScope()

	elseJump := c.emitJump(chunk.OpJump)
	c.patchJump(thenJump)
	c.emitByte(byte(chunk.OpPop))

	if c.match(scanner.TokenColon) {
		c.consume(scanner.TokenLeftBrace, "expected '{' after ':'.")
		c.beginScope()
		c.blockBody()
		c.endScope()
	}
	c.patchJump(elseJump)
}

// --- expressions ----------------------------------------------------------

func (c *Compiler) expression() {
	c.parseExpression(precAssignment)
}

// parseExpression is the Pratt driver: it runs the prefix handler for the
// token it advances onto, then repeatedly applies infix handlers whose
// precedence is at least minPrec.
func (c *Compiler) parseExpression(minPrec precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.errorAtPrevious("expected expression.")
		return
	}

	assignable := minPrec <= precAssignment
	prefix(c, assignable)

	for minPrec <= getRule(c.current.Type).prec {
		rule := getRule(c.current.Type)
		infix := rule.infix
		c.advance()
		infix(c, assignable)
	}

	if assignable && c.match(scanner.TokenEqual) {
		c.errorAtPrevious("Invalid assignment target.")
	}
}

func identifier(c *Compiler, assignable bool) {
	name := c.previous.Lexeme
	slot := c.resolveLocal(name)

	if assignable && c.match(scanner.TokenEqual) {
		c.expression()
		if slot != unresolved {
			c.emitByte(byte(chunk.OpSetLocal))
			c.emitIndexOperand(slot)
		} else {
			c.emitByte(byte(chunk.OpSetGlobal))
			c.emitStringConstant(name)
		}
		return
	}

	if slot != unresolved {
		c.emitByte(byte(chunk.OpGetLocal))
		c.emitIndexOperand(slot)
	} else {
		c.emitByte(byte(chunk.OpGetGlobal))
		c.emitStringConstant(name)
	}
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.consume(scanner.TokenRightParen, "expected ')' after expression.")
}

func number(c *Compiler, _ bool) {
	if c.previous.Type == scanner.TokenInteger {
		n, err := strconv.ParseInt(c.previous.Lexeme, 10, 64)
		if err != nil {
			c.errorAtPrevious("invalid integer literal.")
			return
		}
		c.emitConstant(value.Integer(n))
		return
	}
	d, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.errorAtPrevious("invalid decimal literal.")
		return
	}
	c.emitConstant(value.Decimal(d))
}

func stringLiteral(c *Compiler, _ bool) {
	lexeme := c.previous.Lexeme
	raw := lexeme[1 : len(lexeme)-1] // strip the surrounding quote bytes
	escaped, errMsg := unescape(raw)
	if errMsg != "" {
		c.errorAtPrevious(errMsg)
	}
	c.emitStringConstant(escaped)
}

func boolean(c *Compiler, _ bool) {
	if c.previous.Type == scanner.TokenTrue {
		c.emitByte(byte(chunk.OpTrue))
	} else {
		c.emitByte(byte(chunk.OpFalse))
	}
}

func nilLiteral(c *Compiler, _ bool) { c.emitByte(byte(chunk.OpNil)) }

func clockExpr(c *Compiler, _ bool) { c.emitByte(byte(chunk.OpClock)) }

func typeofExpr(c *Compiler, _ bool) {
	c.parseExpression(precNone + 1)
	c.emitByte(byte(chunk.OpTypeof))
}

func unary(c *Compiler, _ bool) {
	opType := c.previous.Type
	c.parseExpression(precUnary)

	switch opType {
	case scanner.TokenNot:
		c.emitByte(byte(chunk.OpNot))
	case scanner.TokenMinus:
		c.emitByte(byte(chunk.OpNegate))
	case scanner.TokenTilde:
		c.emitByte(byte(chunk.OpBwNot))
	case scanner.TokenPlus:
		// unary plus is a no-op
	}
}

// binary parses the right operand at rule.prec+1 (left-associative)
// except for POW, which recurses at its own precedence so that
// `2 ** 3 ** 2` groups as `2 ** (3 ** 2)`.
func binary(c *Compiler, _ bool) {
	opType := c.previous.Type
	rule := getRule(opType)

	if opType == scanner.TokenStarStar {
		c.parseExpression(rule.prec)
	} else {
		c.parseExpression(rule.prec + 1)
	}

	switch opType {
	case scanner.TokenPlus:
		c.emitByte(byte(chunk.OpAdd))
	case scanner.TokenMinus:
		c.emitByte(byte(chunk.OpSubtract))
	case scanner.TokenStar:
		c.emitByte(byte(chunk.OpMultiply))
	case scanner.TokenSlash:
		c.emitByte(byte(chunk.OpDivide))
	case scanner.TokenPercent:
		c.emitByte(byte(chunk.OpModulo))
	case scanner.TokenStarStar:
		c.emitByte(byte(chunk.OpPow))
	case scanner.TokenAnd:
		c.emitByte(byte(chunk.OpAnd))
	case scanner.TokenOr:
		c.emitByte(byte(chunk.OpOr))
	case scanner.TokenEqualEqual:
		c.emitByte(byte(chunk.OpEquals))
	case scanner.TokenBangEqual:
		c.emitBytes(byte(chunk.OpEquals), byte(chunk.OpNot))
	case scanner.TokenGreater:
		c.emitByte(byte(chunk.OpGreater))
	case scanner.TokenGreaterEqual:
		c.emitBytes(byte(chunk.OpLess), byte(chunk.OpNot))
	case scanner.TokenLess:
		c.emitByte(byte(chunk.OpLess))
	case scanner.TokenLessEqual:
		c.emitBytes(byte(chunk.OpGreater), byte(chunk.OpNot))
	case scanner.TokenAmpersand:
		c.emitByte(byte(chunk.OpBwAnd))
	case scanner.TokenPipe:
		c.emitByte(byte(chunk.OpBwOr))
	case scanner.TokenCaret:
		c.emitByte(byte(chunk.OpXor))
	case scanner.TokenLessLess:
		c.emitByte(byte(chunk.OpShl))
	case scanner.TokenGreaterGreater:
		c.emitByte(byte(chunk.OpShr))
	}
}

func ternary(c *Compiler, _ bool) {
	c.parseExpression(precTernary)
	c.consume(scanner.TokenColon, "expected ':' after '?' operator.")
	c.parseExpression(precTernary)
	c.emitByte(byte(chunk.OpTernary))
}
