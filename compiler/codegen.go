package compiler

import (
	"errors"

	"github.com/chazu/lispik/pkg/bytecode"
)

var errUnknownNode = errors.New("unknown AST node")

// ---------------------------------------------------------------------------
// Code generation: AST → bytecode
// ---------------------------------------------------------------------------

// Options control code generation.
type Options struct {
	// GlobalEnv enables top-level functions. The program is wrapped so that
	// all functions live in a global frame addressed by bytecode.GlobalContext.
	GlobalEnv bool
}

// scope is the compile-time mirror of the runtime environment. frames[0] is
// the innermost frame; with a global env the last frame holds the function
// names.
type scope struct {
	frames [][]string
	global bool
}

func (s scope) push(names []string) scope {
	frames := make([][]string, 0, len(s.frames)+1)
	frames = append(frames, names)
	frames = append(frames, s.frames...)
	return scope{frames: frames, global: s.global}
}

// lookup resolves name to its (depth, index) address.
func (s scope) lookup(name string) (int, int, bool) {
	for depth, frame := range s.frames {
		for i := len(frame) - 1; i >= 0; i-- {
			if frame[i] != name {
				continue
			}
			if s.global && depth == len(s.frames)-1 {
				return int(bytecode.GlobalContext), i, true
			}
			return depth, i, true
		}
	}
	return 0, 0, false
}

// Compile translates a parsed program into a validated code block.
func Compile(program *GlobalScope, opts Options) (bytecode.CodeBlock, error) {
	var code bytecode.CodeBlock
	var err error
	if opts.GlobalEnv {
		code, err = compileGlobal(program)
	} else {
		code, err = compileFlat(program)
	}
	if err != nil {
		return nil, err
	}
	if err := bytecode.Validate(code); err != nil {
		return nil, &CompileError{Kind: InvalidBytecode, Err: err}
	}
	return code, nil
}

// CompileSource parses and compiles src in one step.
func CompileSource(src string, opts Options) (bytecode.CodeBlock, *GlobalScope, error) {
	program, err := Parse(src)
	if err != nil {
		return nil, nil, err
	}
	code, err := Compile(program, opts)
	if err != nil {
		return nil, program, err
	}
	return code, program, nil
}

func compileFlat(program *GlobalScope) (bytecode.CodeBlock, error) {
	if len(program.Functions) > 0 {
		return nil, &CompileError{Kind: FunctionsUsedWithoutGlobalEnv, Pos: program.Functions[0].Pos}
	}
	var code bytecode.CodeBlock
	for _, expr := range program.Expressions {
		c, err := compileNode(expr, scope{})
		if err != nil {
			return nil, err
		}
		code = append(code, c...)
	}
	return code, nil
}

// compileGlobal emits
//
//	Nil (Ldf fn Cons)* Ldf body Ap
//
// Functions are consed last-first so the global frame lists them in
// declaration order. The body has no Rtn: when it finishes the code queue is
// empty and the stack holds the value of every top-level expression.
func compileGlobal(program *GlobalScope) (bytecode.CodeBlock, error) {
	names := make([]string, len(program.Functions))
	for i, fn := range program.Functions {
		names[i] = fn.Name
	}
	root := scope{frames: [][]string{names}, global: true}

	code := bytecode.CodeBlock{bytecode.OpNil}
	for i := len(program.Functions) - 1; i >= 0; i-- {
		fn, err := compileFunction(program.Functions[i], root)
		if err != nil {
			return nil, err
		}
		code = append(code, bytecode.OpLdf, fn, bytecode.OpCons)
	}

	body := bytecode.CodeBlock{}
	for _, expr := range program.Expressions {
		c, err := compileNode(expr, root)
		if err != nil {
			return nil, err
		}
		body = append(body, c...)
	}
	return append(code, bytecode.OpLdf, body, bytecode.OpAp), nil
}

func compileFunction(fn *DeFun, s scope) (bytecode.CodeBlock, error) {
	body, err := compileNode(fn.Body, s.push(fn.Params))
	if err != nil {
		return nil, err
	}
	return append(body, bytecode.OpRtn), nil
}

func compileNode(n Node, s scope) (bytecode.CodeBlock, error) {
	switch n := n.(type) {
	case *IntegerLit:
		return bytecode.CodeBlock{bytecode.OpLdc, bytecode.Integer(n.Value)}, nil

	case *NilLit:
		return bytecode.CodeBlock{bytecode.OpNil}, nil

	case *ListLit:
		return bytecode.CodeBlock{bytecode.OpLdc, LiteralValue(n)}, nil

	case *VarRef:
		return compileVar(n.Name, n.Pos, s)

	case *Nullary:
		return bytecode.CodeBlock{bytecode.OpRead}, nil

	case *Unary:
		return compileUnary(n, s)

	case *Binary:
		return compileBinary(n, s)

	case *If:
		cond, err := compileNode(n.Cond, s)
		if err != nil {
			return nil, err
		}
		then, err := compileNode(n.Then, s)
		if err != nil {
			return nil, err
		}
		els, err := compileNode(n.Else, s)
		if err != nil {
			return nil, err
		}
		return append(cond,
			bytecode.OpSel,
			append(then, bytecode.OpJoin),
			append(els, bytecode.OpJoin),
		), nil

	case *ListExpr:
		code := bytecode.CodeBlock{bytecode.OpNil}
		for i := len(n.Items) - 1; i >= 0; i-- {
			c, err := compileNode(n.Items[i], s)
			if err != nil {
				return nil, err
			}
			code = append(code, c...)
			code = append(code, bytecode.OpCons)
		}
		return code, nil

	case *CallByName:
		callee, err := compileVar(n.Name, n.Pos, s)
		if err != nil {
			return nil, err
		}
		return compileCall(n.Args, callee, s)

	case *CallByEval:
		callee, err := compileNode(n.Target, s)
		if err != nil {
			return nil, err
		}
		return compileCall(n.Args, callee, s)

	case *Lambda:
		return compileClosure(n.Params, n.Body, s)

	case *DeFun:
		return compileClosure(n.Params, n.Body, s)

	case *Let:
		value, err := compileNode(n.Value, s)
		if err != nil {
			return nil, err
		}
		body, err := compileNode(n.Body, s.push([]string{n.Name}))
		if err != nil {
			return nil, err
		}
		code := bytecode.CodeBlock{bytecode.OpNil}
		code = append(code, value...)
		return append(code,
			bytecode.OpCons,
			bytecode.OpLdf, append(body, bytecode.OpRtn),
			bytecode.OpAp,
		), nil

	case *LetRec:
		inner := s.push([]string{n.Name})
		value, err := compileNode(n.Value, inner)
		if err != nil {
			return nil, err
		}
		body, err := compileNode(n.Body, inner)
		if err != nil {
			return nil, err
		}
		code := bytecode.CodeBlock{bytecode.OpDum, bytecode.OpNil}
		code = append(code, value...)
		return append(code,
			bytecode.OpCons,
			bytecode.OpLdf, append(body, bytecode.OpRtn),
			bytecode.OpRap,
		), nil

	case *ApplyCall:
		return compileApplyCall(n, s)

	case *ApplyEval:
		if len(n.Args) == 0 {
			return nil, &CompileError{Kind: ApplyArgsCannotBeEmpty}
		}
		callee, err := compileNode(n.Target, s)
		if err != nil {
			return nil, err
		}
		return compileSpread(n.Args, callee, s)

	case *ApplyOperator:
		return compileApplyOperator(n, s)
	}

	return nil, &CompileError{Kind: InvalidBytecode, Err: errUnknownNode}
}

func compileVar(name string, pos Position, s scope) (bytecode.CodeBlock, error) {
	depth, index, ok := s.lookup(name)
	if !ok {
		return nil, &CompileError{Kind: NotFoundByName, Pos: pos, Name: name}
	}
	return bytecode.CodeBlock{bytecode.OpLd, bytecode.Coordinate(depth, index)}, nil
}

func compileClosure(params []string, body Node, s scope) (bytecode.CodeBlock, error) {
	code, err := compileNode(body, s.push(params))
	if err != nil {
		return nil, err
	}
	return bytecode.CodeBlock{bytecode.OpLdf, append(code, bytecode.OpRtn)}, nil
}

// compileCall builds the argument list and applies callee to it.
func compileCall(args []Node, callee bytecode.CodeBlock, s scope) (bytecode.CodeBlock, error) {
	code, err := compileNode(&ListExpr{Items: args}, s)
	if err != nil {
		return nil, err
	}
	code = append(code, callee...)
	return append(code, bytecode.OpAp), nil
}

// compileSpread conses every argument but the last onto the last one, which
// must evaluate to a list, and applies callee to the result.
func compileSpread(args []Node, callee bytecode.CodeBlock, s scope) (bytecode.CodeBlock, error) {
	code, err := compileNode(args[len(args)-1], s)
	if err != nil {
		return nil, err
	}
	for i := len(args) - 2; i >= 0; i-- {
		c, err := compileNode(args[i], s)
		if err != nil {
			return nil, err
		}
		code = append(code, c...)
		code = append(code, bytecode.OpCons)
	}
	code = append(code, callee...)
	return append(code, bytecode.OpAp), nil
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

var unaryOpcodes = map[UnaryKind]bytecode.Opcode{
	UnaryCar:    bytecode.OpCar,
	UnaryCdr:    bytecode.OpCdr,
	UnaryIsNil:  bytecode.OpIsNil,
	UnaryIsAtom: bytecode.OpIsAtom,
	UnaryIsPair: bytecode.OpIsPair,
	UnaryPrint:  bytecode.OpPrint,
}

var binaryOpcodes = map[BinaryKind]bytecode.Opcode{
	BinaryAdd:     bytecode.OpAdd,
	BinarySub:     bytecode.OpSub,
	BinaryMul:     bytecode.OpMul,
	BinaryDiv:     bytecode.OpDiv,
	BinaryLower:   bytecode.OpLower,
	BinaryGreater: bytecode.OpGreater,
	BinaryCons:    bytecode.OpCons,
	BinaryIsEqual: bytecode.OpIsEqual,
}

func compileUnary(n *Unary, s scope) (bytecode.CodeBlock, error) {
	switch n.Kind {
	case UnaryIsZero:
		return compileBinary(&Binary{Kind: BinaryIsEqual, Arg0: n.Arg, Arg1: &IntegerLit{Value: 0}}, s)
	case UnaryNot:
		return compileUnary(&Unary{Kind: UnaryIsZero, Arg: n.Arg}, s)
	}

	code, err := compileNode(n.Arg, s)
	if err != nil {
		return nil, err
	}
	return append(code, unaryOpcodes[n.Kind]), nil
}

func not(n Node) Node {
	return &Unary{Kind: UnaryNot, Arg: n}
}

// compileBinary pushes Arg1 before Arg0 so that Arg0 is on top when the
// instruction runs.
func compileBinary(n *Binary, s scope) (bytecode.CodeBlock, error) {
	switch n.Kind {
	case BinaryLowerEq:
		return compileNode(not(&Binary{Kind: BinaryGreater, Arg0: n.Arg0, Arg1: n.Arg1}), s)
	case BinaryGreaterEq:
		return compileNode(not(&Binary{Kind: BinaryLower, Arg0: n.Arg0, Arg1: n.Arg1}), s)
	case BinaryAnd:
		return compileBinary(&Binary{Kind: BinaryMul, Arg0: n.Arg0, Arg1: n.Arg1}, s)
	case BinaryOr:
		return compileNode(not(&Binary{Kind: BinaryAnd, Arg0: not(n.Arg0), Arg1: not(n.Arg1)}), s)
	}

	code, err := compileNode(n.Arg1, s)
	if err != nil {
		return nil, err
	}
	arg0, err := compileNode(n.Arg0, s)
	if err != nil {
		return nil, err
	}
	code = append(code, arg0...)
	return append(code, binaryOpcodes[n.Kind]), nil
}

// ---------------------------------------------------------------------------
// Apply
// ---------------------------------------------------------------------------

func compileApplyCall(n *ApplyCall, s scope) (bytecode.CodeBlock, error) {
	if len(n.Args) == 0 {
		return nil, &CompileError{Kind: ApplyArgsCannotBeEmpty, Pos: n.Pos}
	}
	if kw, ok := keywords[n.Name]; ok {
		direct, ok := reduceBuiltinApply(kw, n.Args)
		if !ok {
			return nil, &CompileError{Kind: ApplyOnBuildInsNotSupported, Pos: n.Pos, Name: n.Name}
		}
		return compileNode(direct, s)
	}

	callee, err := compileVar(n.Name, n.Pos, s)
	if err != nil {
		return nil, err
	}
	return compileSpread(n.Args, callee, s)
}

func compileApplyOperator(n *ApplyOperator, s scope) (bytecode.CodeBlock, error) {
	if len(n.Args) == 0 {
		return nil, &CompileError{Kind: ApplyArgsCannotBeEmpty, Pos: n.Pos}
	}
	args, ok := spreadArgs(n.Args)
	if !ok || len(args) != 2 {
		return nil, &CompileError{Kind: ApplyOnBuildInsNotSupported, Pos: n.Pos, Name: n.Operator.String()}
	}
	return compileNode(&Binary{Kind: operatorKinds[n.Operator], Arg0: args[0], Arg1: args[1]}, s)
}

// spreadArgs expands a trailing literal list into individual arguments. It
// fails when the tail is only known at run time.
func spreadArgs(args []Node) ([]Node, bool) {
	last := args[len(args)-1]
	out := append([]Node(nil), args[:len(args)-1]...)
	switch tail := last.(type) {
	case *NilLit:
		return out, true
	case *ListLit:
		for _, item := range tail.Items {
			out = append(out, item)
		}
		return out, true
	}
	return nil, false
}

// reduceBuiltinApply rewrites (apply builtin args...) as a direct call when
// the spread arguments are known and match the builtin's arity.
func reduceBuiltinApply(kw keyword, args []Node) (Node, bool) {
	spread, ok := spreadArgs(args)
	if !ok {
		return nil, false
	}

	if kind, ok := unaryKeywords[kw]; ok && len(spread) == 1 {
		return &Unary{Kind: kind, Arg: spread[0]}, true
	}
	if kind, ok := binaryKeywords[kw]; ok && len(spread) == 2 {
		return &Binary{Kind: kind, Arg0: spread[0], Arg1: spread[1]}, true
	}
	switch kw {
	case kwList:
		return &ListExpr{Items: spread}, true
	case kwIf:
		if len(spread) == 3 {
			return &If{Cond: spread[0], Then: spread[1], Else: spread[2]}, true
		}
	}
	return nil, false
}
