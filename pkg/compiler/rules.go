package compiler

import "github.com/MicheleFiladelfia/filang/pkg/scanner"

// parseFn is a Pratt handler: a prefix handler consumes the token already
// advanced onto (in c.previous) and compiles a complete prefix
// expression; an infix handler does the same given a left operand
// already on the stack.
type parseFn func(c *Compiler, assignable bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

var rules = map[scanner.TokenType]parseRule{
	scanner.TokenLeftParen:        {prefix: grouping},
	scanner.TokenMinus:            {prefix: unary, infix: binary, prec: precTerm},
	scanner.TokenPlus:             {prefix: unary, infix: binary, prec: precTerm},
	scanner.TokenSlash:            {infix: binary, prec: precFactor},
	scanner.TokenStar:             {infix: binary, prec: precFactor},
	scanner.TokenPercent:          {infix: binary, prec: precFactor},
	scanner.TokenStarStar:         {infix: binary, prec: precPow},
	scanner.TokenAnd:              {infix: binary, prec: precAnd},
	scanner.TokenOr:               {infix: binary, prec: precOr},
	scanner.TokenNot:              {prefix: unary},
	scanner.TokenTilde:            {prefix: unary},
	scanner.TokenAmpersand:        {infix: binary, prec: precBwAnd},
	scanner.TokenPipe:             {infix: binary, prec: precBwOr},
	scanner.TokenCaret:            {infix: binary, prec: precBwXor},
	scanner.TokenLessLess:         {infix: binary, prec: precBwShift},
	scanner.TokenGreaterGreater:   {infix: binary, prec: precBwShift},
	scanner.TokenInterrogation:    {infix: ternary, prec: precTernary},
	scanner.TokenBangEqual:        {infix: binary, prec: precEquals},
	scanner.TokenEqualEqual:       {infix: binary, prec: precEquals},
	scanner.TokenGreater:          {infix: binary, prec: precCompare},
	scanner.TokenGreaterEqual:     {infix: binary, prec: precCompare},
	scanner.TokenLess:             {infix: binary, prec: precCompare},
	scanner.TokenLessEqual:        {infix: binary, prec: precCompare},
	scanner.TokenIdentifier:       {prefix: identifier},
	scanner.TokenString:           {prefix: stringLiteral},
	scanner.TokenInteger:          {prefix: number},
	scanner.TokenFloat:            {prefix: number},
	scanner.TokenTrue:             {prefix: boolean},
	scanner.TokenFalse:            {prefix: boolean},
	scanner.TokenNil:              {prefix: nilLiteral},
	scanner.TokenClock:            {prefix: clockExpr},
	scanner.TokenTypeof:           {prefix: typeofExpr},
}

var defaultRule = parseRule{prec: precNone}

// ruleTable is the table getRule reads. It is assigned from rules in init
// rather than read from rules directly, because the handlers in rules
// reach getRule through parseExpression, and Go rejects a package-level
// initializer that refers back to itself as an initialization cycle.
var ruleTable map[scanner.TokenType]parseRule

func init() { ruleTable = rules }

func getRule(t scanner.TokenType) parseRule {
	if r, ok := ruleTable[t]; ok {
		return r
	}
	return defaultRule
}
