package vm

import (
	"fmt"

	"github.com/chazu/lispik/pkg/bytecode"
)

// ExecutionErrorKind classifies runtime failures.
type ExecutionErrorKind int

const (
	NotEnoughOperandsOnStack ExecutionErrorKind = iota
	WrongOperandOnStack
	WrongOperandInByteCode
	DivisionByZero
	NonInstructionOccurred
	CodeNotEmptyOnJoin
	CannotRestoreOldContext
	NothingToTakeFromDump
	InvalidEnvTargetFormat
	ListWrongFormatOrIndexOfBound
	RemovedEnvInsteadOfDummy
	ReadInvalidNumberOfTokens
	StepLimitExceeded
)

var kindNames = map[ExecutionErrorKind]string{
	NotEnoughOperandsOnStack:      "NotEnoughOperandsOnStack",
	WrongOperandOnStack:           "WrongOperandOnStack",
	WrongOperandInByteCode:        "WrongOperandInByteCode",
	DivisionByZero:                "DivisionByZero",
	NonInstructionOccurred:        "NonInstructionOccurred",
	CodeNotEmptyOnJoin:            "CodeNotEmptyOnJoin",
	CannotRestoreOldContext:       "CannotRestoreOldContext",
	NothingToTakeFromDump:         "NothingToTakeFromDump",
	InvalidEnvTargetFormat:        "InvalidEnvTargetFormat",
	ListWrongFormatOrIndexOfBound: "ListWrongFormatOrIndexOfBound",
	RemovedEnvInsteadOfDummy:      "RemovedEnvInsteadOfDummy",
	ReadInvalidNumberOfTokens:     "ReadInvalidNumberOfTokens",
	StepLimitExceeded:             "StepLimitExceeded",
}

func (k ExecutionErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ExecutionErrorKind(%d)", k)
}

// ExecutionError is returned by Run.
type ExecutionError struct {
	Kind        ExecutionErrorKind
	Instruction bytecode.Opcode
	Expected    int    // operand count, token count or step budget
	Got         int    // operand count or token count
	Want        string // expected operand type
	Found       string // actual operand type
}

var (
	ErrNotEnoughOperandsOnStack      = &ExecutionError{Kind: NotEnoughOperandsOnStack}
	ErrWrongOperandOnStack           = &ExecutionError{Kind: WrongOperandOnStack}
	ErrWrongOperandInByteCode        = &ExecutionError{Kind: WrongOperandInByteCode}
	ErrDivisionByZero                = &ExecutionError{Kind: DivisionByZero}
	ErrNonInstructionOccurred        = &ExecutionError{Kind: NonInstructionOccurred}
	ErrCodeNotEmptyOnJoin            = &ExecutionError{Kind: CodeNotEmptyOnJoin}
	ErrCannotRestoreOldContext       = &ExecutionError{Kind: CannotRestoreOldContext}
	ErrNothingToTakeFromDump         = &ExecutionError{Kind: NothingToTakeFromDump}
	ErrInvalidEnvTargetFormat        = &ExecutionError{Kind: InvalidEnvTargetFormat}
	ErrListWrongFormatOrIndexOfBound = &ExecutionError{Kind: ListWrongFormatOrIndexOfBound}
	ErrRemovedEnvInsteadOfDummy      = &ExecutionError{Kind: RemovedEnvInsteadOfDummy}
	ErrReadInvalidNumberOfTokens     = &ExecutionError{Kind: ReadInvalidNumberOfTokens}
	ErrStepLimitExceeded             = &ExecutionError{Kind: StepLimitExceeded}
)

func (e *ExecutionError) Error() string {
	switch e.Kind {
	case NotEnoughOperandsOnStack:
		return fmt.Sprintf("Not enough operands on stack for %s, expected %d, got %d", e.Instruction, e.Expected, e.Got)
	case WrongOperandOnStack:
		return fmt.Sprintf("Unexpected operand type for %s on stack, expected %s, got %s", e.Instruction, e.Want, e.Found)
	case WrongOperandInByteCode:
		return fmt.Sprintf("Unexpected operand type for %s in code, expected %s, got %s", e.Instruction, e.Want, e.Found)
	case DivisionByZero:
		return "Division by zero"
	case NonInstructionOccurred:
		return fmt.Sprintf("You cannot execute values, only instructions (found %s)", e.Found)
	case CodeNotEmptyOnJoin:
		return "Nothing to join"
	case CannotRestoreOldContext:
		return "Cannot restore old context"
	case NothingToTakeFromDump:
		return "Nothing to restore from dump"
	case InvalidEnvTargetFormat:
		return "Invalid environment format"
	case ListWrongFormatOrIndexOfBound:
		return "Wrong format or index of bound"
	case RemovedEnvInsteadOfDummy:
		return "Tried to remove actual environment instead of dummy"
	case ReadInvalidNumberOfTokens:
		return fmt.Sprintf("Read invalid number of tokens, expected %d, got %d", e.Expected, e.Got)
	case StepLimitExceeded:
		return fmt.Sprintf("Step limit of %d instructions exceeded", e.Expected)
	}
	return "execution error"
}

// Is matches any ExecutionError of the same kind.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	return ok && t.Kind == e.Kind
}

// ReadError is a lex or parse failure in a line consumed by the Read
// instruction. It unwraps to the compiler error.
type ReadError struct {
	Line string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("Read %q: %v", e.Line, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// typeName names the dynamic type of a stack value or code element.
func typeName(e bytecode.Element) string {
	switch e.(type) {
	case nil:
		return "nothing"
	case bytecode.Integer:
		return "Integer"
	case bytecode.Nil:
		return "Nil"
	case *bytecode.Pair:
		return "Pair"
	case *bytecode.Closure:
		return "Closure"
	case bytecode.Opcode:
		return "Instruction"
	case bytecode.CodeBlock:
		return "CodeBlock"
	}
	return fmt.Sprintf("%T", e)
}
