package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/lispik/compiler"
	"github.com/chazu/lispik/pkg/bytecode"
)

func run(t *testing.T, src string, global bool, opts ...Option) ([]bytecode.Literal, error) {
	t.Helper()
	code, _, err := compiler.CompileSource(src, compiler.Options{GlobalEnv: global})
	if err != nil {
		t.Fatalf("CompileSource(%q): %v", src, err)
	}
	opts = append([]Option{WithGlobalEnv(global), WithInput(strings.NewReader("")), WithOutput(&bytes.Buffer{})}, opts...)
	return New(opts...).Run(code)
}

func stackString(stack []bytecode.Literal) string {
	parts := make([]string, len(stack))
	for i, v := range stack {
		parts[i] = v.String()
	}
	return strings.Join(parts, " ")
}

func TestRunExpressions(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"(+ 1 2)", "3"},
		{"(- 10 4)", "6"},
		{"(* 6 7)", "42"},
		{"(/ 7 2)", "3"},
		{"(/ -7 2)", "-3"},
		{"(< 1 2) (> 1 2)", "1 0"},
		{"(<= 2 2) (>= 1 2)", "1 0"},
		{"(cons 1 2)", "(1.2)"},
		{"(list 1 2 3)", "(1 2 3)"},
		{"(car '(1 2)) (cdr '(1 2))", "1 (2)"},
		{"(nil? nil) (nil? 1)", "1 0"},
		{"(atom? 1) (atom? nil) (atom? '(1))", "1 1 0"},
		{"(pair? '(1)) (pair? 1)", "1 0"},
		{"(eq? '(1 2) (list 1 2)) (eq? 1 2)", "1 0"},
		{"(zero? 0) (not 3)", "1 0"},
		{"(and 1 0) (or 0 2) (or 0 0)", "0 1 0"},
		{"(if 1 10 20) (if 0 10 20)", "10 20"},
		{"(if (< 1 2) (+ 1 1) (car nil))", "2"},
		{"(let (x 5) (* x x))", "25"},
		{"(let (x 1) (let (x 2) x))", "2"},
		{"((lambda (x y) (- x y)) 5 3)", "2"},
		{"(let (k (let (x 3) (lambda (y) (+ x y)))) (k 4))", "7"},
		{"(letrec (f (lambda (n) (if (zero? n) 0 (+ n (f (- n 1)))))) (f 4))", "10"},
		{"(apply + 1 '(2))", "3"},
		{"(apply (lambda (a b) (- a b)) '(9 4))", "5"},
		{"(lambda (x) x)", "closure"},
		{"nil '(1 (2 3) 4)", "nil (1 (2 3) 4)"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			stack, err := run(t, tt.src, false)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got := stackString(stack); got != tt.want {
				t.Errorf("stack = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunGlobalFunctions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"factorial",
			"(defun (fact n) (if (eq? n 0) 1 (* n (fact (- n 1))))) (fact 5)",
			"120",
		},
		{
			"fibonacci",
			"(defun (fib n) (if (< n 2) n (+ (fib (- n 1)) (fib (- n 2))))) (fib 5)",
			"5",
		},
		{
			"mutual recursion",
			"(defun (even? n) (if (zero? n) 1 (odd? (- n 1)))) (defun (odd? n) (if (zero? n) 0 (even? (- n 1)))) (even? 6) (odd? 6)",
			"1 0",
		},
		{
			"max via apply",
			"(defun (max a b) (if (> a b) a b)) (apply max 1 '(3))",
			"3",
		},
		{
			"function returning closure",
			"(defun (adder n) (lambda (x) (+ n x))) ((adder 2) 40)",
			"42",
		},
		{
			"letrec inside function",
			"(defun (count n) (letrec (go (lambda (i acc) (if (> i n) acc (go (+ i 1) (+ acc i))))) (go 1 0))) (count 4)",
			"10",
		},
		{
			"plain expression",
			"(+ 1 2) 3",
			"3 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stack, err := run(t, tt.src, true)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got := stackString(stack); got != tt.want {
				t.Errorf("stack = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"car of nil", "(car nil)", ErrWrongOperandOnStack},
		{"add to list", "(+ 1 '(1))", ErrWrongOperandOnStack},
		{"division by zero", "(/ 1 0)", ErrDivisionByZero},
		{"call integer", "(let (f 1) (f 2))", ErrWrongOperandOnStack},
		{"select on list", "(if '(1) 1 2)", ErrWrongOperandOnStack},
		{"apply improper list", "(apply (lambda (a) a) (cons 1 2))", ErrListWrongFormatOrIndexOfBound},
		{"apply to integer", "(apply (lambda (a) a) 5)", ErrWrongOperandOnStack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.src, false)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRunHandWrittenCode(t *testing.T) {
	tests := []struct {
		name string
		code bytecode.CodeBlock
		want error
	}{
		{"empty stack", bytecode.CodeBlock{bytecode.OpCons}, ErrNotEnoughOperandsOnStack},
		{"value as instruction", bytecode.CodeBlock{bytecode.Integer(1)}, ErrNonInstructionOccurred},
		{"missing operand", bytecode.CodeBlock{bytecode.OpLdc}, ErrWrongOperandInByteCode},
		{"ldf without block", bytecode.CodeBlock{bytecode.OpLdf, bytecode.Integer(1)}, ErrWrongOperandInByteCode},
		{"join with code left", bytecode.CodeBlock{bytecode.OpJoin, bytecode.OpNil}, ErrCodeNotEmptyOnJoin},
		{"join on empty dump", bytecode.CodeBlock{bytecode.OpJoin}, ErrNothingToTakeFromDump},
		{"rtn on empty dump", bytecode.CodeBlock{bytecode.OpNil, bytecode.OpRtn}, ErrNothingToTakeFromDump},
		{"bad coordinate", bytecode.CodeBlock{bytecode.OpLd, bytecode.Integer(0)}, ErrInvalidEnvTargetFormat},
		{"no frame", bytecode.CodeBlock{bytecode.OpLd, bytecode.Coordinate(0, 0)}, ErrListWrongFormatOrIndexOfBound},
		{
			"rap without dum",
			bytecode.CodeBlock{bytecode.OpNil, bytecode.OpLdf, bytecode.CodeBlock{bytecode.OpNil, bytecode.OpRtn}, bytecode.OpRap},
			ErrRemovedEnvInsteadOfDummy,
		},
		{
			"rtn after sel",
			bytecode.CodeBlock{
				bytecode.OpLdc, bytecode.Integer(1), bytecode.OpSel,
				bytecode.CodeBlock{bytecode.OpNil, bytecode.OpRtn},
				bytecode.CodeBlock{bytecode.OpNil, bytecode.OpRtn},
			},
			ErrCannotRestoreOldContext,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(WithOutput(&bytes.Buffer{})).Run(tt.code)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNotEnoughOperandsCounts(t *testing.T) {
	_, err := New().Run(bytecode.CodeBlock{bytecode.OpNil, bytecode.OpAdd})
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecutionError, got %v", err)
	}
	if execErr.Instruction != bytecode.OpAdd || execErr.Expected != 2 || execErr.Got != 1 {
		t.Errorf("got %+v", execErr)
	}
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	stack, err := run(t, "(print (list 1 2)) (print 7)", false, WithOutput(&out))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "(1 2)\n7\n" {
		t.Errorf("output = %q", out.String())
	}
	if got := stackString(stack); got != "(1 2) 7" {
		t.Errorf("print must leave its value on the stack, got %q", got)
	}
}

func TestRead(t *testing.T) {
	tests := []struct {
		name  string
		input string
		src   string
		want  string
	}{
		{"integer", "41\n", "(+ 1 (read))", "42"},
		{"list", "(1 2)\n", "(car (read))", "1"},
		{"quoted list", "'(3 4)\n", "(cdr (read))", "(4)"},
		{"blank line", "\n", "(read)", "nil"},
		{"end of input", "", "(read)", "nil"},
		{"two reads", "1\n2\n", "(- (read) (read))", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			stack, err := run(t, tt.src, false, WithInput(strings.NewReader(tt.input)), WithOutput(&out), WithReadPrompt("? "))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got := stackString(stack); got != tt.want {
				t.Errorf("stack = %q, want %q", got, tt.want)
			}
			if !strings.HasPrefix(out.String(), "? ") {
				t.Errorf("prompt not written, output = %q", out.String())
			}
		})
	}
}

func TestReadErrors(t *testing.T) {
	_, err := run(t, "(read)", false, WithInput(strings.NewReader("1 2\n")))
	if !errors.Is(err, ErrReadInvalidNumberOfTokens) {
		t.Errorf("error = %v, want ReadInvalidNumberOfTokens", err)
	}

	_, err = run(t, "(read)", false, WithInput(strings.NewReader("foo\n")))
	if !errors.Is(err, compiler.ErrLiteralsOnly) {
		t.Errorf("error = %v, want LiteralsOnly", err)
	}
	var readErr *ReadError
	if !errors.As(err, &readErr) || readErr.Line != "foo" {
		t.Errorf("error = %#v, want ReadError for %q", err, "foo")
	}
}

type scriptedLines struct {
	lines   []string
	prompts []string
}

func (s *scriptedLines) ReadLine(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.lines) == 0 {
		return "", nil
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func TestLineReader(t *testing.T) {
	lr := &scriptedLines{lines: []string{"5"}}
	stack, err := run(t, "(* 2 (read))", false, WithLineReader(lr), WithReadPrompt("in: "))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := stackString(stack); got != "10" {
		t.Errorf("stack = %q", got)
	}
	if len(lr.prompts) != 1 || lr.prompts[0] != "in: " {
		t.Errorf("prompts = %v", lr.prompts)
	}
}

func TestMaxSteps(t *testing.T) {
	src := "(defun (loop n) (loop n)) (loop 1)"
	_, err := run(t, src, true, WithMaxSteps(1000))
	if !errors.Is(err, ErrStepLimitExceeded) {
		t.Fatalf("error = %v, want StepLimitExceeded", err)
	}

	m := New(WithOutput(&bytes.Buffer{}), WithMaxSteps(100))
	if _, err := m.Run(bytecode.CodeBlock{bytecode.OpLdc, bytecode.Integer(1)}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.Steps() != 1 {
		t.Errorf("Steps() = %d, want 1", m.Steps())
	}
}

func TestRunResetsState(t *testing.T) {
	m := New(WithOutput(&bytes.Buffer{}))
	if _, err := m.Run(bytecode.CodeBlock{bytecode.OpLdc, bytecode.Integer(1)}); err != nil {
		t.Fatal(err)
	}
	stack, err := m.Run(bytecode.CodeBlock{bytecode.OpLdc, bytecode.Integer(2)})
	if err != nil {
		t.Fatal(err)
	}
	if got := stackString(stack); got != "2" {
		t.Errorf("second run stack = %q, want 2", got)
	}
}

func TestRunDoesNotMutateCode(t *testing.T) {
	code, _, err := compiler.CompileSource("(+ 1 (read))", compiler.Options{})
	if err != nil {
		t.Fatal(err)
	}
	before := code.String()
	m := New(WithInput(strings.NewReader("1\n2\n")), WithOutput(&bytes.Buffer{}))
	for i := 0; i < 2; i++ {
		if _, err := m.Run(code); err != nil {
			t.Fatal(err)
		}
	}
	if code.String() != before {
		t.Errorf("code changed: %s -> %s", before, code.String())
	}
}
