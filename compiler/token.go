package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the Lispík lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	TokenEOF TokenType = iota

	TokenOpen     // (
	TokenClose    // )
	TokenQuote    // '
	TokenNumber   // 42, -7
	TokenText     // identifiers and keywords
	TokenOperator // + - * / < > <= >=
)

var tokenNames = map[TokenType]string{
	TokenEOF:      "EOF",
	TokenOpen:     "(",
	TokenClose:    ")",
	TokenQuote:    "'",
	TokenNumber:   "NUMBER",
	TokenText:     "TEXT",
	TokenOperator: "OPERATOR",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Operator identifies one of the infix-free arithmetic and comparison heads.
type Operator int

const (
	OperatorAdd Operator = iota
	OperatorSub
	OperatorMul
	OperatorDiv
	OperatorLower
	OperatorGreater
	OperatorLowerEq
	OperatorGreaterEq
)

var operatorNames = map[Operator]string{
	OperatorAdd:       "+",
	OperatorSub:       "-",
	OperatorMul:       "*",
	OperatorDiv:       "/",
	OperatorLower:     "<",
	OperatorGreater:   ">",
	OperatorLowerEq:   "<=",
	OperatorGreaterEq: ">=",
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", o)
}

// Position is a zero-based source location.
type Position struct {
	Line   int
	Column int
}

// String renders the position one-based, the way editors display it.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Column+1)
}

// Token represents a lexical token.
type Token struct {
	Type     TokenType
	Literal  string   // the raw text
	Number   int64    // value of a TokenNumber
	Operator Operator // kind of a TokenOperator
	Pos      Position // start position
	Offset   int      // byte offset of the first character
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenOpen, TokenClose, TokenQuote:
		return t.Type.String()
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// IsIdentStart reports whether r may begin an identifier.
func IsIdentStart(r rune) bool {
	return isLetter(r) || r == '?' || r == '_'
}

// IsIdentPart reports whether r may continue an identifier.
func IsIdentPart(r rune) bool {
	return isLetter(r) || isDigit(r) || r == '?' || r == '_' || r == '-'
}
