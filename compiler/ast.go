package compiler

// ---------------------------------------------------------------------------
// AST for Lispík programs
// ---------------------------------------------------------------------------

// Node is any parsed expression. The set of implementations is closed.
type Node interface {
	node()
}

// Literal is a node that evaluates to a constant.
type Literal interface {
	Node
	literalNode()
}

// IntegerLit is an integer constant.
type IntegerLit struct {
	Value int64
}

// ListLit is a quoted list of literals.
type ListLit struct {
	Items []Literal
}

// NilLit is nil.
type NilLit struct{}

// VarRef references a parameter, let binding or global function.
type VarRef struct {
	Name string
	Pos  Position
}

// CallByName calls a function or variable by identifier.
type CallByName struct {
	Name string
	Args []Node
	Pos  Position
}

// CallByEval calls whatever the head expression evaluates to.
type CallByEval struct {
	Target Node
	Args   []Node
}

// NullaryKind enumerates builtins without arguments.
type NullaryKind int

const (
	NullaryRead NullaryKind = iota
)

// Nullary is a builtin taking no arguments.
type Nullary struct {
	Kind NullaryKind
}

// UnaryKind enumerates one-argument builtins.
type UnaryKind int

const (
	UnaryCar UnaryKind = iota
	UnaryCdr
	UnaryIsNil
	UnaryIsAtom
	UnaryIsPair
	UnaryIsZero
	UnaryNot
	UnaryPrint
)

// Unary is a one-argument builtin.
type Unary struct {
	Kind UnaryKind
	Arg  Node
}

// BinaryKind enumerates two-argument builtins and operators.
type BinaryKind int

const (
	BinaryAdd BinaryKind = iota
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryLower
	BinaryGreater
	BinaryLowerEq
	BinaryGreaterEq
	BinaryCons
	BinaryIsEqual
	BinaryAnd
	BinaryOr
)

// Binary is a two-argument builtin or operator. Arg0 is the first argument
// in source order.
type Binary struct {
	Kind BinaryKind
	Arg0 Node
	Arg1 Node
}

// If is the conditional.
type If struct {
	Cond Node
	Then Node
	Else Node
}

// ListExpr builds a list from evaluated arguments.
type ListExpr struct {
	Items []Node
}

// Let binds Name to Value while evaluating Body.
type Let struct {
	Name  string
	Value Node
	Body  Node
}

// LetRec is Let where Value may refer to Name.
type LetRec struct {
	Name  string
	Value Node
	Body  Node
}

// Lambda is an anonymous function.
type Lambda struct {
	Params []string
	Body   Node
}

// DeFun is a named top-level function.
type DeFun struct {
	Name   string
	Params []string
	Body   Node
	Pos    Position
	Source string // text of the definition, for hosts that display or persist it
}

// ApplyCall applies a named function to a spread argument list.
type ApplyCall struct {
	Name string
	Args []Node
	Pos  Position
}

// ApplyEval applies an evaluated expression to a spread argument list.
type ApplyEval struct {
	Target Node
	Args   []Node
}

// ApplyOperator applies an operator to a spread argument list.
type ApplyOperator struct {
	Operator Operator
	Args     []Node
	Pos      Position
}

func (*IntegerLit) node()    {}
func (*ListLit) node()       {}
func (*NilLit) node()        {}
func (*VarRef) node()        {}
func (*CallByName) node()    {}
func (*CallByEval) node()    {}
func (*Nullary) node()       {}
func (*Unary) node()         {}
func (*Binary) node()        {}
func (*If) node()            {}
func (*ListExpr) node()      {}
func (*Let) node()           {}
func (*LetRec) node()        {}
func (*Lambda) node()        {}
func (*DeFun) node()         {}
func (*ApplyCall) node()     {}
func (*ApplyEval) node()     {}
func (*ApplyOperator) node() {}

func (*IntegerLit) literalNode() {}
func (*ListLit) literalNode()    {}
func (*NilLit) literalNode()     {}

// GlobalScope is a parsed program: top-level functions in declaration order
// and top-level expressions in source order.
type GlobalScope struct {
	Functions   []*DeFun
	Expressions []Node
}

// Function looks up a top-level function by name.
func (g *GlobalScope) Function(name string) *DeFun {
	for _, f := range g.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// AddFunction appends fn, failing with FunctionDefinedTwice on a name clash.
func (g *GlobalScope) AddFunction(fn *DeFun) error {
	if g.Function(fn.Name) != nil {
		return &ParserError{Kind: FunctionDefinedTwice, Pos: fn.Pos, Name: fn.Name}
	}
	g.Functions = append(g.Functions, fn)
	return nil
}
