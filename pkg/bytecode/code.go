package bytecode

import (
	"fmt"
	"strings"
)

// Element is one item of a code stream: an Opcode, a Literal operand or a
// nested CodeBlock operand.
type Element interface {
	element()
}

// CodeBlock is an ordered instruction stream.
type CodeBlock []Element

func (CodeBlock) element() {}

// String renders the block on one line, nested blocks in brackets:
//
//	[Nil Ldc 1 Cons Ldf [Ld (0.0) Rtn] Ap]
func (c CodeBlock) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range c {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(elementString(e))
	}
	sb.WriteByte(']')
	return sb.String()
}

func elementString(e Element) string {
	switch v := e.(type) {
	case Opcode:
		return v.String()
	case Literal:
		return v.String()
	case CodeBlock:
		return v.String()
	}
	return fmt.Sprintf("%v", e)
}

// ValidationError describes a violation of the positional operand contract.
type ValidationError struct {
	Path   []int // offsets from the outermost block down to the offending element
	Reason string
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Path))
	for i, p := range e.Path {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return fmt.Sprintf("invalid bytecode at %s: %s", strings.Join(parts, "/"), e.Reason)
}

// Validate checks that every instruction is a defined opcode followed by
// operands of the right shape, recursing into nested blocks.
func Validate(code CodeBlock) error {
	return validate(code, nil)
}

func validate(code CodeBlock, path []int) error {
	at := func(i int) []int {
		p := make([]int, len(path)+1)
		copy(p, path)
		p[len(path)] = i
		return p
	}

	for i := 0; i < len(code); i++ {
		op, ok := code[i].(Opcode)
		if !ok {
			return &ValidationError{Path: at(i), Reason: fmt.Sprintf("expected instruction, found %s", elementString(code[i]))}
		}
		if !op.Valid() {
			return &ValidationError{Path: at(i), Reason: fmt.Sprintf("unknown opcode %s", op)}
		}
		n := op.Operands()
		if i+n >= len(code) {
			return &ValidationError{Path: at(i), Reason: fmt.Sprintf("%s expects %d operand(s)", op, n)}
		}

		switch op {
		case OpLdc:
			switch code[i+1].(type) {
			case Integer, Nil, *Pair:
			default:
				return &ValidationError{Path: at(i + 1), Reason: "Ldc operand must be an integer, nil or a list"}
			}
		case OpLd:
			if _, _, ok := SplitCoordinate(asLiteral(code[i+1])); !ok {
				return &ValidationError{Path: at(i + 1), Reason: "Ld operand must be a (depth . index) pair"}
			}
		case OpLdf, OpSel:
			for k := 1; k <= n; k++ {
				block, ok := code[i+k].(CodeBlock)
				if !ok {
					return &ValidationError{Path: at(i + k), Reason: fmt.Sprintf("%s operand must be a code block", op)}
				}
				if err := validate(block, at(i+k)); err != nil {
					return err
				}
			}
		}
		i += n
	}
	return nil
}

func asLiteral(e Element) Literal {
	if l, ok := e.(Literal); ok {
		return l
	}
	return nil
}
