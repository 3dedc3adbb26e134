package compiler

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Token errors
// ---------------------------------------------------------------------------

// TokenErrorKind classifies lexer failures.
type TokenErrorKind int

const (
	UnknownCharacter TokenErrorKind = iota
	EOFReached
	UnclosedComment
	CommentWrongFormat
	NumberOutOfRange
)

// TokenError is returned by the lexer.
type TokenError struct {
	Kind TokenErrorKind
	Pos  Position
	Char rune   // offending character for UnknownCharacter
	Text string // offending literal for NumberOutOfRange
}

var (
	ErrUnknownCharacter   = &TokenError{Kind: UnknownCharacter}
	ErrEOFReached         = &TokenError{Kind: EOFReached}
	ErrUnclosedComment    = &TokenError{Kind: UnclosedComment}
	ErrCommentWrongFormat = &TokenError{Kind: CommentWrongFormat}
	ErrNumberOutOfRange   = &TokenError{Kind: NumberOutOfRange}
)

func (e *TokenError) Error() string {
	switch e.Kind {
	case UnknownCharacter:
		return fmt.Sprintf("Unknown character '%c' at %s", e.Char, e.Pos)
	case EOFReached:
		return fmt.Sprintf("EOF reached, but not expected at %s", e.Pos)
	case UnclosedComment:
		return "Unclosed multiline comment"
	case CommentWrongFormat:
		return fmt.Sprintf("Wrong comment format at %s", e.Pos)
	case NumberOutOfRange:
		return fmt.Sprintf("Number %s at %s does not fit into 64 bits", e.Text, e.Pos)
	}
	return "token error"
}

// Is matches any TokenError of the same kind.
func (e *TokenError) Is(target error) bool {
	t, ok := target.(*TokenError)
	return ok && t.Kind == e.Kind
}

// ---------------------------------------------------------------------------
// Parser errors
// ---------------------------------------------------------------------------

// ParserErrorKind classifies parser failures.
type ParserErrorKind int

const (
	UnexpectedToken ParserErrorKind = iota
	InvalidNumberOfArgumentsOperator
	InvalidNumberOfArgumentsBuildIn
	NameMissing
	ApplyEmpty
	ApplyTargetMissingOrInvalid
	EndReached
	DeFunInNonRootScope
	LiteralsOnly
	FunctionDefinedTwice
)

// ParserError is returned by the parser.
type ParserError struct {
	Kind     ParserErrorKind
	Pos      Position
	Token    Token  // offending token, when there is one
	Name     string // function or keyword the error is about
	Expected int
	Got      int
}

var (
	ErrUnexpectedToken                  = &ParserError{Kind: UnexpectedToken}
	ErrInvalidNumberOfArgumentsOperator = &ParserError{Kind: InvalidNumberOfArgumentsOperator}
	ErrInvalidNumberOfArgumentsBuildIn  = &ParserError{Kind: InvalidNumberOfArgumentsBuildIn}
	ErrNameMissing                      = &ParserError{Kind: NameMissing}
	ErrApplyEmpty                       = &ParserError{Kind: ApplyEmpty}
	ErrApplyTargetMissingOrInvalid      = &ParserError{Kind: ApplyTargetMissingOrInvalid}
	ErrEndReached                       = &ParserError{Kind: EndReached}
	ErrDeFunInNonRootScope              = &ParserError{Kind: DeFunInNonRootScope}
	ErrLiteralsOnly                     = &ParserError{Kind: LiteralsOnly}
	ErrFunctionDefinedTwice             = &ParserError{Kind: FunctionDefinedTwice}
)

func (e *ParserError) Error() string {
	switch e.Kind {
	case UnexpectedToken:
		return fmt.Sprintf("An unexpected token occurred: %s at %s", e.Token, e.Pos)
	case InvalidNumberOfArgumentsOperator:
		return fmt.Sprintf("Expected %d, got %d while handling operator %s", e.Expected, e.Got, e.Name)
	case InvalidNumberOfArgumentsBuildIn:
		return fmt.Sprintf("Expected %d, got %d while handling build-in %s", e.Expected, e.Got, e.Name)
	case NameMissing:
		return fmt.Sprintf("Name is missing for %s at %s", e.Token, e.Pos)
	case ApplyEmpty:
		return "Apply args are empty"
	case ApplyTargetMissingOrInvalid:
		return "Apply target not found"
	case EndReached:
		return "No more tokens, but some are required"
	case DeFunInNonRootScope:
		return "Function can be defined only in the root scope"
	case LiteralsOnly:
		return "Only literals are allowed"
	case FunctionDefinedTwice:
		return fmt.Sprintf("Function '%s' is already defined", e.Name)
	}
	return "parser error"
}

// Is matches any ParserError of the same kind.
func (e *ParserError) Is(target error) bool {
	t, ok := target.(*ParserError)
	return ok && t.Kind == e.Kind
}

// ---------------------------------------------------------------------------
// Compile errors
// ---------------------------------------------------------------------------

// CompileErrorKind classifies code generation failures.
type CompileErrorKind int

const (
	NotFoundByName CompileErrorKind = iota
	FunctionsUsedWithoutGlobalEnv
	ApplyOnBuildInsNotSupported
	ApplyArgsCannotBeEmpty
	InvalidBytecode
)

// CompileError is returned by Compile.
type CompileError struct {
	Kind CompileErrorKind
	Pos  Position
	Name string
	Err  error // underlying validation failure for InvalidBytecode
}

var (
	ErrNotFoundByName                = &CompileError{Kind: NotFoundByName}
	ErrFunctionsUsedWithoutGlobalEnv = &CompileError{Kind: FunctionsUsedWithoutGlobalEnv}
	ErrApplyOnBuildInsNotSupported   = &CompileError{Kind: ApplyOnBuildInsNotSupported}
	ErrApplyArgsCannotBeEmpty        = &CompileError{Kind: ApplyArgsCannotBeEmpty}
	ErrInvalidBytecode               = &CompileError{Kind: InvalidBytecode}
)

func (e *CompileError) Error() string {
	switch e.Kind {
	case NotFoundByName:
		return fmt.Sprintf("Parameter %s is not defined", e.Name)
	case FunctionsUsedWithoutGlobalEnv:
		return "To define functions, enable global env"
	case ApplyOnBuildInsNotSupported:
		return fmt.Sprintf("Apply called on build-in function %s is not supported", e.Name)
	case ApplyArgsCannotBeEmpty:
		return "Apply requires at least one argument"
	case InvalidBytecode:
		return fmt.Sprintf("compiler produced invalid bytecode: %v", e.Err)
	}
	return "compile error"
}

// Is matches any CompileError of the same kind.
func (e *CompileError) Is(target error) bool {
	t, ok := target.(*CompileError)
	return ok && t.Kind == e.Kind
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ErrorPosition extracts the source position carried by a lexer, parser or
// compiler error. The second result is false for other errors.
func ErrorPosition(err error) (Position, bool) {
	var tokErr *TokenError
	if errors.As(err, &tokErr) {
		return tokErr.Pos, true
	}
	var parseErr *ParserError
	if errors.As(err, &parseErr) {
		return parseErr.Pos, true
	}
	var compErr *CompileError
	if errors.As(err, &compErr) {
		return compErr.Pos, compErr.Kind == NotFoundByName || compErr.Kind == ApplyOnBuildInsNotSupported
	}
	return Position{}, false
}

var tokenKindNames = [...]string{
	UnknownCharacter:   "UnknownCharacter",
	EOFReached:         "EOFReached",
	UnclosedComment:    "UnclosedComment",
	CommentWrongFormat: "CommentWrongFormat",
	NumberOutOfRange:   "NumberOutOfRange",
}

func (k TokenErrorKind) String() string {
	if k >= 0 && int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenErrorKind(%d)", int(k))
}

var parserKindNames = [...]string{
	UnexpectedToken:                  "UnexpectedToken",
	InvalidNumberOfArgumentsOperator: "InvalidNumberOfArgumentsOperator",
	InvalidNumberOfArgumentsBuildIn:  "InvalidNumberOfArgumentsBuildIn",
	NameMissing:                      "NameMissing",
	ApplyEmpty:                       "ApplyEmpty",
	ApplyTargetMissingOrInvalid:      "ApplyTargetMissingOrInvalid",
	EndReached:                       "EndReached",
	DeFunInNonRootScope:              "DeFunInNonRootScope",
	LiteralsOnly:                     "LiteralsOnly",
	FunctionDefinedTwice:             "FunctionDefinedTwice",
}

func (k ParserErrorKind) String() string {
	if k >= 0 && int(k) < len(parserKindNames) {
		return parserKindNames[k]
	}
	return fmt.Sprintf("ParserErrorKind(%d)", int(k))
}

var compileKindNames = [...]string{
	NotFoundByName:                "NotFoundByName",
	FunctionsUsedWithoutGlobalEnv: "FunctionsUsedWithoutGlobalEnv",
	ApplyOnBuildInsNotSupported:   "ApplyOnBuildInsNotSupported",
	ApplyArgsCannotBeEmpty:        "ApplyArgsCannotBeEmpty",
	InvalidBytecode:               "InvalidBytecode",
}

func (k CompileErrorKind) String() string {
	if k >= 0 && int(k) < len(compileKindNames) {
		return compileKindNames[k]
	}
	return fmt.Sprintf("CompileErrorKind(%d)", int(k))
}
