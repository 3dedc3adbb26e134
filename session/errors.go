package session

import (
	"errors"

	"github.com/chazu/lispik/compiler"
	"github.com/chazu/lispik/vm"
)

// Stage names the pipeline stage an error came from.
type Stage string

const (
	StageLex     Stage = "lex"
	StageParse   Stage = "parse"
	StageCompile Stage = "compile"
	StageRun     Stage = "run"
	StageOther   Stage = "other"
)

// Classify reports the stage and kind name of an evaluation error, e.g.
// (StageRun, "DivisionByZero"). Input rejected by the Read instruction
// belongs to the run stage and keeps the lexer or parser kind.
func Classify(err error) (Stage, string) {
	var tokErr *compiler.TokenError
	var parseErr *compiler.ParserError
	var compileErr *compiler.CompileError
	var execErr *vm.ExecutionError
	var readErr *vm.ReadError

	switch {
	case errors.As(err, &readErr):
		_, kind := Classify(readErr.Err)
		return StageRun, kind
	case errors.As(err, &tokErr):
		return StageLex, tokErr.Kind.String()
	case errors.As(err, &parseErr):
		return StageParse, parseErr.Kind.String()
	case errors.As(err, &compileErr):
		return StageCompile, compileErr.Kind.String()
	case errors.As(err, &execErr):
		return StageRun, execErr.Kind.String()
	}
	return StageOther, ""
}
